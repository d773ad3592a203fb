package postgres

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/shopspring/decimal"

	"github.com/ariefcatur/go-retail-orders/internal/orders"
)

type OrderRepo struct{ tx pgx.Tx }

const orderColumns = `id, user_id, status, payment_method, total_amount::text, admin_notes, created_at, updated_at`

func (r *OrderRepo) Create(ctx context.Context, o *orders.Order) (int64, error) {
	err := r.tx.QueryRow(ctx, `
		INSERT INTO orders(user_id, status, payment_method, total_amount)
		VALUES ($1, $2, $3, $4::numeric)
		RETURNING id, created_at, updated_at`,
		o.UserID, string(o.Status), o.PaymentMethod, o.TotalAmount.String(),
	).Scan(&o.ID, &o.CreatedAt, &o.UpdatedAt)
	if err != nil {
		return 0, fmt.Errorf("insert order: %w", err)
	}
	return o.ID, nil
}

func (r *OrderRepo) AddItem(ctx context.Context, orderID int64, it *orders.OrderItem) (int64, error) {
	err := r.tx.QueryRow(ctx, `
		INSERT INTO order_items(order_id, product_id, location_id, quantity, reserved_quantity, price_at_order)
		VALUES ($1, $2, $3, $4, $5, $6::numeric)
		RETURNING id`,
		orderID, it.ProductID, it.LocationID, it.Quantity, it.ReservedQuantity, it.PriceAtOrder.String(),
	).Scan(&it.ID)
	if err != nil {
		return 0, fmt.Errorf("insert order item for order %d: %w", orderID, translate(err))
	}
	it.OrderID = orderID
	return it.ID, nil
}

func scanOrder(row pgx.Row) (orders.Order, error) {
	var (
		o      orders.Order
		status string
		total  string
	)
	if err := row.Scan(&o.ID, &o.UserID, &status, &o.PaymentMethod, &total, &o.AdminNotes, &o.CreatedAt, &o.UpdatedAt); err != nil {
		return o, err
	}
	st, err := orders.ParseStatus(status)
	if err != nil {
		return o, err
	}
	o.Status = st
	if o.TotalAmount, err = decimal.NewFromString(total); err != nil {
		return o, fmt.Errorf("order %d total %q: %w", o.ID, total, err)
	}
	return o, nil
}

func (r *OrderRepo) GetByID(ctx context.Context, id int64, lockForUpdate bool) (*orders.Order, error) {
	q := `SELECT ` + orderColumns + ` FROM orders WHERE id=$1`
	if lockForUpdate {
		q += ` FOR UPDATE`
	}
	o, err := scanOrder(r.tx.QueryRow(ctx, q, id))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, orders.ErrOrderNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("select order %d: %w", id, err)
	}
	byOrder, err := r.itemsFor(ctx, []int64{id}, lockForUpdate)
	if err != nil {
		return nil, err
	}
	o.Items = byOrder[id]
	if o.Items == nil {
		o.Items = []orders.OrderItem{}
	}
	return &o, nil
}

func (r *OrderRepo) itemsFor(ctx context.Context, orderIDs []int64, lock bool) (map[int64][]orders.OrderItem, error) {
	q := `SELECT id, order_id, product_id, location_id, quantity, reserved_quantity, price_at_order::text
	      FROM order_items WHERE order_id = ANY($1) ORDER BY order_id, id`
	if lock {
		q += ` FOR UPDATE`
	}
	rows, err := r.tx.Query(ctx, q, orderIDs)
	if err != nil {
		return nil, fmt.Errorf("select order items: %w", err)
	}
	defer rows.Close()

	out := make(map[int64][]orders.OrderItem, len(orderIDs))
	for rows.Next() {
		var (
			it    orders.OrderItem
			price string
		)
		if err := rows.Scan(&it.ID, &it.OrderID, &it.ProductID, &it.LocationID, &it.Quantity, &it.ReservedQuantity, &price); err != nil {
			return nil, fmt.Errorf("scan order item: %w", err)
		}
		if it.PriceAtOrder, err = decimal.NewFromString(price); err != nil {
			return nil, fmt.Errorf("order item %d price %q: %w", it.ID, price, err)
		}
		out[it.OrderID] = append(out[it.OrderID], it)
	}
	return out, rows.Err()
}

// SetStatus stamps the row with clock_timestamp(): the caller already holds the
// row lock, so the stamp is later than any previously committed change.
func (r *OrderRepo) SetStatus(ctx context.Context, id int64, st orders.Status, note string) (time.Time, error) {
	var at time.Time
	err := r.tx.QueryRow(ctx, `
		UPDATE orders SET status=$2, admin_notes=$3, updated_at=clock_timestamp()
		WHERE id=$1
		RETURNING updated_at`,
		id, string(st), note).Scan(&at)
	if errors.Is(err, pgx.ErrNoRows) {
		return time.Time{}, orders.ErrOrderNotFound
	}
	if err != nil {
		return time.Time{}, fmt.Errorf("update order %d status: %w", id, err)
	}
	return at, nil
}

func (r *OrderRepo) SetItemReservedQuantity(ctx context.Context, itemID int64, value int) error {
	ct, err := r.tx.Exec(ctx, `UPDATE order_items SET reserved_quantity=$2 WHERE id=$1`, itemID, value)
	if err != nil {
		return fmt.Errorf("update order item %d reserved: %w", itemID, err)
	}
	if ct.RowsAffected() == 0 {
		return fmt.Errorf("order item %d not found", itemID)
	}
	return nil
}

func whereClause(f orders.Filter) (string, []any) {
	var (
		conds []string
		args  []any
	)
	if f.Status != nil {
		args = append(args, string(*f.Status))
		conds = append(conds, fmt.Sprintf("status=$%d", len(args)))
	}
	if f.UserID != nil {
		args = append(args, *f.UserID)
		conds = append(conds, fmt.Sprintf("user_id=$%d", len(args)))
	}
	if len(conds) == 0 {
		return "", args
	}
	return " WHERE " + strings.Join(conds, " AND "), args
}

func (r *OrderRepo) List(ctx context.Context, f orders.Filter, p orders.Page) ([]orders.Order, error) {
	p = p.Normalize()
	where, args := whereClause(f)
	args = append(args, p.Limit, p.Offset)
	q := fmt.Sprintf(`SELECT %s FROM orders%s ORDER BY created_at DESC, id DESC LIMIT $%d OFFSET $%d`,
		orderColumns, where, len(args)-1, len(args))

	rows, err := r.tx.Query(ctx, q, args...)
	if err != nil {
		return nil, fmt.Errorf("list orders: %w", err)
	}
	defer rows.Close()

	list := []orders.Order{}
	var ids []int64
	for rows.Next() {
		o, err := scanOrder(rows)
		if err != nil {
			return nil, fmt.Errorf("scan order: %w", err)
		}
		list = append(list, o)
		ids = append(ids, o.ID)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	rows.Close()
	if len(ids) == 0 {
		return list, nil
	}

	byOrder, err := r.itemsFor(ctx, ids, false)
	if err != nil {
		return nil, err
	}
	for i := range list {
		list[i].Items = byOrder[list[i].ID]
		if list[i].Items == nil {
			list[i].Items = []orders.OrderItem{}
		}
	}
	return list, nil
}

func (r *OrderRepo) Count(ctx context.Context, f orders.Filter) (int, error) {
	where, args := whereClause(f)
	var n int
	if err := r.tx.QueryRow(ctx, `SELECT COUNT(*) FROM orders`+where, args...).Scan(&n); err != nil {
		return 0, fmt.Errorf("count orders: %w", err)
	}
	return n, nil
}
