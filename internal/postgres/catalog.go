package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/shopspring/decimal"

	"github.com/ariefcatur/go-retail-orders/internal/catalog"
)

type CatalogRepo struct{ tx pgx.Tx }

func (r *CatalogRepo) Product(ctx context.Context, id int64) (catalog.Product, error) {
	var (
		p     catalog.Product
		price string
	)
	err := r.tx.QueryRow(ctx, `SELECT id, name, price::text FROM products WHERE id=$1`, id).
		Scan(&p.ID, &p.Name, &price)
	if errors.Is(err, pgx.ErrNoRows) {
		return p, catalog.ErrProductNotFound
	}
	if err != nil {
		return p, fmt.Errorf("select product %d: %w", id, err)
	}
	if p.Price, err = decimal.NewFromString(price); err != nil {
		return p, fmt.Errorf("product %d price %q: %w", id, price, err)
	}
	return p, nil
}

func (r *CatalogRepo) Location(ctx context.Context, id int64) (catalog.Location, error) {
	var l catalog.Location
	err := r.tx.QueryRow(ctx, `SELECT id, name FROM locations WHERE id=$1`, id).Scan(&l.ID, &l.Name)
	if errors.Is(err, pgx.ErrNoRows) {
		return l, catalog.ErrLocationNotFound
	}
	if err != nil {
		return l, fmt.Errorf("select location %d: %w", id, err)
	}
	return l, nil
}
