package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/ariefcatur/go-retail-orders/internal/inventory"
)

type StockRepo struct{ tx pgx.Tx }

// Get with forUpdate first materialises a zero row for a missing key so the
// lock also covers stock that does not exist yet. The placeholder only
// survives if the transaction later writes the row and commits.
func (r *StockRepo) Get(ctx context.Context, k inventory.Key, forUpdate bool) (inventory.Record, bool, error) {
	rec := inventory.Record{Key: k}
	created := false
	q := `SELECT quantity FROM stock WHERE product_id=$1 AND location_id=$2`
	if forUpdate {
		ct, err := r.tx.Exec(ctx, `
			INSERT INTO stock(product_id, location_id, quantity)
			VALUES ($1, $2, 0)
			ON CONFLICT (product_id, location_id) DO NOTHING`, k.ProductID, k.LocationID)
		if err != nil {
			return rec, false, fmt.Errorf("stock placeholder %d/%d: %w", k.ProductID, k.LocationID, translate(err))
		}
		created = ct.RowsAffected() == 1
		q += ` FOR UPDATE`
	}
	err := r.tx.QueryRow(ctx, q, k.ProductID, k.LocationID).Scan(&rec.Quantity)
	if errors.Is(err, pgx.ErrNoRows) {
		return rec, false, nil
	}
	if err != nil {
		return rec, false, fmt.Errorf("select stock %d/%d: %w", k.ProductID, k.LocationID, err)
	}
	return rec, !created, nil
}

func (r *StockRepo) Put(ctx context.Context, rec inventory.Record) error {
	if rec.Quantity < 0 {
		return inventory.ErrInvalidQuantity
	}
	_, err := r.tx.Exec(ctx, `
		INSERT INTO stock(product_id, location_id, quantity, updated_at)
		VALUES ($1, $2, $3, now())
		ON CONFLICT (product_id, location_id)
		DO UPDATE SET quantity = EXCLUDED.quantity, updated_at = now()`,
		rec.ProductID, rec.LocationID, rec.Quantity)
	if err != nil {
		return fmt.Errorf("upsert stock %d/%d: %w", rec.ProductID, rec.LocationID, translate(err))
	}
	return nil
}
