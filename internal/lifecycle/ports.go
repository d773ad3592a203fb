package lifecycle

import (
	"context"

	"github.com/ariefcatur/go-retail-orders/internal/cart"
	"github.com/ariefcatur/go-retail-orders/internal/catalog"
	"github.com/ariefcatur/go-retail-orders/internal/inventory"
	"github.com/ariefcatur/go-retail-orders/internal/orders"
)

// Tx is one unit of work. Every store it hands out shares the same
// storage transaction and its row locks.
type Tx interface {
	Stock() inventory.Store
	Carts() cart.Store
	Orders() orders.Store
	Catalog() catalog.Store
}

// TxManager opens a transaction, runs fn and commits when fn returns nil.
// Any error from fn (or a panic) rolls the transaction back; fn's error is
// returned unchanged.
type TxManager interface {
	InTx(ctx context.Context, fn func(ctx context.Context, tx Tx) error) error
}

// Notifier hears about committed changes. Implementations must not block
// for long and cannot fail the operation.
type Notifier interface {
	OrderCreated(ctx context.Context, o *orders.Order)
	StatusChanged(ctx context.Context, o *orders.Order, from orders.Status, adminID int64, released []orders.Released)
}

type nopNotifier struct{}

func (nopNotifier) OrderCreated(context.Context, *orders.Order) {}
func (nopNotifier) StatusChanged(context.Context, *orders.Order, orders.Status, int64, []orders.Released) {
}
