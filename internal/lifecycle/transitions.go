package lifecycle

import (
	"context"
	"fmt"
	"sort"

	"github.com/rs/zerolog/log"

	"github.com/ariefcatur/go-retail-orders/internal/inventory"
	"github.com/ariefcatur/go-retail-orders/internal/orders"
)

func (c *Coordinator) Approve(ctx context.Context, orderID, adminID int64) (*orders.Order, error) {
	return c.transition(ctx, "orders.approve", orderID, adminID, orders.StatusApproved,
		requirePending,
		func(orders.Status) string { return fmt.Sprintf("Approved by admin %d", adminID) })
}

func (c *Coordinator) Reject(ctx context.Context, orderID, adminID int64, reason string) (*orders.Order, error) {
	return c.transition(ctx, "orders.reject", orderID, adminID, orders.StatusRejected,
		requirePending,
		func(orders.Status) string { return withReason(fmt.Sprintf("Rejected by admin %d", adminID), reason) })
}

func (c *Coordinator) Cancel(ctx context.Context, orderID, adminID int64, reason string) (*orders.Order, error) {
	return c.transition(ctx, "orders.cancel", orderID, adminID, orders.StatusCancelled,
		requireOpen,
		func(orders.Status) string { return withReason(fmt.Sprintf("Cancelled by admin %d", adminID), reason) })
}

// ChangeStatus moves the order along the transition table. Entering rejected
// or cancelled releases reservations exactly like Reject and Cancel do.
func (c *Coordinator) ChangeStatus(ctx context.Context, orderID, adminID int64, status, notes string) (*orders.Order, error) {
	to, err := orders.ParseStatus(status)
	if err != nil {
		return nil, c.finish("orders.change_status", newError(CodeInvalidTransition, "unknown status %q", status))
	}
	check := func(cur orders.Status) error {
		if err := requireOpen(cur); err != nil {
			return err
		}
		if !orders.CanTransition(cur, to) {
			return newError(CodeInvalidTransition, "cannot move order from %s to %s", cur, to)
		}
		return nil
	}
	note := func(from orders.Status) string {
		return withReason(fmt.Sprintf("Status changed by admin %d from %s to %s", adminID, from, to), notes)
	}
	return c.transition(ctx, "orders.change_status", orderID, adminID, to, check, note)
}

func requirePending(cur orders.Status) error {
	if cur != orders.StatusPendingApproval {
		return newError(CodeAlreadyProcessed, "order already processed (status %s)", cur)
	}
	return nil
}

func requireOpen(cur orders.Status) error {
	if cur.IsTerminal() {
		return newError(CodeAlreadyProcessed, "order already processed (status %s)", cur)
	}
	return nil
}

func withReason(base, reason string) string {
	if reason == "" {
		return base
	}
	return base + ": " + reason
}

func (c *Coordinator) transition(
	ctx context.Context,
	op string,
	orderID, adminID int64,
	to orders.Status,
	check func(cur orders.Status) error,
	note func(from orders.Status) string,
) (*orders.Order, error) {
	var (
		o        *orders.Order
		from     orders.Status
		released []orders.Released
	)
	err := c.tm.InTx(ctx, func(ctx context.Context, tx Tx) error {
		var err error
		if o, err = tx.Orders().GetByID(ctx, orderID, true); err != nil {
			return err
		}
		from = o.Status
		if err := check(from); err != nil {
			return err
		}
		if to.ReleasesStock() {
			if released, err = releaseReservations(ctx, tx, o); err != nil {
				return err
			}
		}
		text := note(from)
		at, err := tx.Orders().SetStatus(ctx, o.ID, to, text)
		if err != nil {
			return err
		}
		o.Status, o.AdminNotes, o.UpdatedAt = to, text, at
		return nil
	})
	if err != nil {
		return nil, c.finish(op, err)
	}

	log.Info().Int64("order_id", o.ID).Int64("admin_id", adminID).
		Str("from", from.String()).Str("to", to.String()).Int("released_lines", len(released)).
		Msg("order status changed")
	c.notify.StatusChanged(ctx, o, from, adminID, released)
	return o, nil
}

// releaseReservations credits every held reservation back to the ledger and
// zeroes it on the item, in stock key order.
func releaseReservations(ctx context.Context, tx Tx, o *orders.Order) ([]orders.Released, error) {
	idx := make([]int, 0, len(o.Items))
	for i, it := range o.Items {
		if it.ReservedQuantity > 0 {
			idx = append(idx, i)
		}
	}
	sort.Slice(idx, func(a, b int) bool {
		ka := inventory.Key{ProductID: o.Items[idx[a]].ProductID, LocationID: o.Items[idx[a]].LocationID}
		kb := inventory.Key{ProductID: o.Items[idx[b]].ProductID, LocationID: o.Items[idx[b]].LocationID}
		return ka.Less(kb)
	})

	ledger := inventory.NewLedger(tx.Stock())
	out := make([]orders.Released, 0, len(idx))
	for _, i := range idx {
		it := &o.Items[i]
		k := inventory.Key{ProductID: it.ProductID, LocationID: it.LocationID}
		if _, err := ledger.ApplyDelta(ctx, k, it.ReservedQuantity); err != nil {
			return nil, err
		}
		if err := tx.Orders().SetItemReservedQuantity(ctx, it.ID, 0); err != nil {
			return nil, err
		}
		out = append(out, orders.Released{ProductID: it.ProductID, LocationID: it.LocationID, Qty: it.ReservedQuantity})
		it.ReservedQuantity = 0
	}
	return out, nil
}
