package lifecycle

import (
	"context"
	"errors"
	"sort"

	"github.com/rs/zerolog/log"
	"github.com/shopspring/decimal"

	"github.com/ariefcatur/go-retail-orders/internal/cart"
	"github.com/ariefcatur/go-retail-orders/internal/inventory"
	"github.com/ariefcatur/go-retail-orders/internal/orders"
)

func entryKey(e cart.Entry) inventory.Key {
	return inventory.Key{ProductID: e.ProductID, LocationID: e.LocationID}
}

// Checkout turns the user's cart into a pending order and reserves the full
// quantity of every line. Either the order exists with all stock debited and
// the cart empty, or nothing changed.
func (c *Coordinator) Checkout(ctx context.Context, userID int64, paymentMethod string) (*orders.Order, error) {
	var created *orders.Order
	err := c.tm.InTx(ctx, func(ctx context.Context, tx Tx) error {
		entries, err := tx.Carts().ListForUser(ctx, userID, true)
		if err != nil {
			return err
		}
		if len(entries) == 0 {
			return newError(CodeCartEmpty, "cart is empty")
		}

		// stock rows are locked in key order so concurrent checkouts cannot deadlock
		locked := make([]cart.Entry, len(entries))
		copy(locked, entries)
		sort.Slice(locked, func(i, j int) bool { return entryKey(locked[i]).Less(entryKey(locked[j])) })

		ledger := inventory.NewLedger(tx.Stock())
		for _, e := range locked {
			avail, err := ledger.Available(ctx, entryKey(e))
			if err != nil {
				return err
			}
			if e.Quantity > avail {
				return insufficient(&inventory.InsufficientError{Key: entryKey(e), Available: avail, Requested: e.Quantity})
			}
		}

		items := make([]orders.OrderItem, 0, len(entries))
		total := decimal.Zero
		for _, e := range entries {
			p, err := tx.Catalog().Product(ctx, e.ProductID)
			if err != nil {
				return err
			}
			it := orders.OrderItem{
				ProductID:        e.ProductID,
				LocationID:       e.LocationID,
				Quantity:         e.Quantity,
				ReservedQuantity: e.Quantity,
				PriceAtOrder:     p.Price,
			}
			total = total.Add(it.LineTotal())
			items = append(items, it)
		}

		o := &orders.Order{
			UserID:        userID,
			Status:        orders.StatusPendingApproval,
			PaymentMethod: paymentMethod,
			TotalAmount:   total,
		}
		if _, err := tx.Orders().Create(ctx, o); err != nil {
			return err
		}
		for i := range items {
			it := &items[i]
			if _, err := tx.Orders().AddItem(ctx, o.ID, it); err != nil {
				return err
			}
			if _, err := ledger.ApplyDelta(ctx, inventory.Key{ProductID: it.ProductID, LocationID: it.LocationID}, -it.Quantity); err != nil {
				var ie *inventory.InsufficientError
				if errors.As(err, &ie) {
					return insufficient(ie)
				}
				return err
			}
		}
		o.Items = items

		if err := tx.Carts().Clear(ctx, userID); err != nil {
			return err
		}
		created = o
		return nil
	})
	if err != nil {
		return nil, c.finish("checkout", err)
	}

	log.Info().Int64("order_id", created.ID).Int64("user_id", userID).
		Str("total", created.TotalAmount.String()).Int("items", len(created.Items)).
		Msg("order created from cart")
	c.notify.OrderCreated(ctx, created)
	return created, nil
}
