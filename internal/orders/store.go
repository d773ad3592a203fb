package orders

import (
	"context"
	"errors"
	"time"
)

var ErrOrderNotFound = errors.New("order not found")

// Store is the order aggregate access used inside one storage transaction.
// Create fills in the generated ID and timestamps on o; AddItem does the same
// for the item. GetByID with lockForUpdate holds the order row until the
// transaction ends. SetStatus returns the committed updated_at, which orders
// status changes of one order.
type Store interface {
	Create(ctx context.Context, o *Order) (int64, error)
	AddItem(ctx context.Context, orderID int64, it *OrderItem) (int64, error)
	GetByID(ctx context.Context, id int64, lockForUpdate bool) (*Order, error)
	SetStatus(ctx context.Context, id int64, st Status, note string) (time.Time, error)
	SetItemReservedQuantity(ctx context.Context, itemID int64, value int) error
	List(ctx context.Context, f Filter, p Page) ([]Order, error)
	Count(ctx context.Context, f Filter) (int, error)
}
