// Package cart holds per-user purchase intents. It does not check stock.
package cart

import (
	"context"
	"errors"
	"math"
)

type Entry struct {
	UserID     int64 `json:"user_id"`
	ProductID  int64 `json:"product_id"`
	LocationID int64 `json:"location_id"`
	Quantity   int   `json:"quantity"`
}

var ErrInvalidQuantity = errors.New("cart quantity must be between 1 and 2147483647")

// Store is keyed by (user, product, location). ListForUser returns entries
// ordered by product then location; forUpdate locks every returned row.
type Store interface {
	Upsert(ctx context.Context, e Entry) error
	Remove(ctx context.Context, userID, productID, locationID int64) (bool, error)
	ListForUser(ctx context.Context, userID int64, forUpdate bool) ([]Entry, error)
	Clear(ctx context.Context, userID int64) error
}

// Validate rejects entries that cannot be stored; quantity 0 means removal, not a row.
func (e Entry) Validate() error {
	if e.Quantity <= 0 || e.Quantity > math.MaxInt32 {
		return ErrInvalidQuantity
	}
	return nil
}
