package postgres

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/ariefcatur/go-retail-orders/internal/cart"
)

type CartRepo struct{ tx pgx.Tx }

func (r *CartRepo) Upsert(ctx context.Context, e cart.Entry) error {
	if err := e.Validate(); err != nil {
		return err
	}
	_, err := r.tx.Exec(ctx, `
		INSERT INTO cart_items(user_id, product_id, location_id, quantity)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT (user_id, product_id, location_id)
		DO UPDATE SET quantity = EXCLUDED.quantity, updated_at = now()`,
		e.UserID, e.ProductID, e.LocationID, e.Quantity)
	if err != nil {
		return fmt.Errorf("upsert cart item: %w", translate(err))
	}
	return nil
}

func (r *CartRepo) Remove(ctx context.Context, userID, productID, locationID int64) (bool, error) {
	ct, err := r.tx.Exec(ctx, `
		DELETE FROM cart_items WHERE user_id=$1 AND product_id=$2 AND location_id=$3`,
		userID, productID, locationID)
	if err != nil {
		return false, fmt.Errorf("delete cart item: %w", err)
	}
	return ct.RowsAffected() == 1, nil
}

func (r *CartRepo) ListForUser(ctx context.Context, userID int64, forUpdate bool) ([]cart.Entry, error) {
	q := `SELECT user_id, product_id, location_id, quantity
	      FROM cart_items WHERE user_id=$1
	      ORDER BY product_id, location_id`
	if forUpdate {
		q += ` FOR UPDATE`
	}
	rows, err := r.tx.Query(ctx, q, userID)
	if err != nil {
		return nil, fmt.Errorf("select cart for user %d: %w", userID, err)
	}
	defer rows.Close()

	out := []cart.Entry{}
	for rows.Next() {
		var e cart.Entry
		if err := rows.Scan(&e.UserID, &e.ProductID, &e.LocationID, &e.Quantity); err != nil {
			return nil, err
		}
		out = append(out, e)
	}
	return out, rows.Err()
}

func (r *CartRepo) Clear(ctx context.Context, userID int64) error {
	if _, err := r.tx.Exec(ctx, `DELETE FROM cart_items WHERE user_id=$1`, userID); err != nil {
		return fmt.Errorf("clear cart for user %d: %w", userID, err)
	}
	return nil
}
