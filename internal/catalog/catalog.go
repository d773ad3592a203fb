// Package catalog is the read-only product and location lookup.
package catalog

import (
	"context"
	"errors"

	"github.com/shopspring/decimal"
)

var (
	ErrProductNotFound  = errors.New("product not found")
	ErrLocationNotFound = errors.New("location not found")
)

type Product struct {
	ID    int64           `json:"id"`
	Name  string          `json:"name"`
	Price decimal.Decimal `json:"price"`
}

type Location struct {
	ID   int64  `json:"id"`
	Name string `json:"name"`
}

type Store interface {
	Product(ctx context.Context, id int64) (Product, error)
	Location(ctx context.Context, id int64) (Location, error)
}
