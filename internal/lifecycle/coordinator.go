// Package lifecycle coordinates carts, the stock ledger and orders. Each
// operation runs in exactly one storage transaction.
package lifecycle

import (
	"context"

	"github.com/rs/zerolog/log"

	"github.com/ariefcatur/go-retail-orders/internal/cart"
	"github.com/ariefcatur/go-retail-orders/internal/inventory"
	"github.com/ariefcatur/go-retail-orders/internal/orders"
)

type Coordinator struct {
	tm     TxManager
	notify Notifier
}

type Option func(*Coordinator)

func WithNotifier(n Notifier) Option {
	return func(c *Coordinator) {
		if n != nil {
			c.notify = n
		}
	}
}

func New(tm TxManager, opts ...Option) *Coordinator {
	c := &Coordinator{tm: tm, notify: nopNotifier{}}
	for _, o := range opts {
		o(c)
	}
	return c
}

// finish turns err into the error handed to callers. Business outcomes pass
// through as *Error; anything else is logged and reported as CodeFailed.
func (c *Coordinator) finish(op string, err error) error {
	if err == nil {
		return nil
	}
	if ce, ok := classify(err); ok {
		log.Debug().Str("op", op).Str("code", string(ce.Code)).Msg(ce.Error())
		return ce
	}
	log.Error().Err(err).Str("op", op).Msg("lifecycle: storage failure, transaction rolled back")
	return &Error{Code: CodeFailed, Message: op + " failed", Err: err}
}

// AddToCart inserts the entry or overwrites its quantity.
func (c *Coordinator) AddToCart(ctx context.Context, e cart.Entry) error {
	if err := e.Validate(); err != nil {
		return c.finish("cart.upsert", err)
	}
	err := c.tm.InTx(ctx, func(ctx context.Context, tx Tx) error {
		if _, err := tx.Catalog().Product(ctx, e.ProductID); err != nil {
			return err
		}
		if _, err := tx.Catalog().Location(ctx, e.LocationID); err != nil {
			return err
		}
		return tx.Carts().Upsert(ctx, e)
	})
	return c.finish("cart.upsert", err)
}

func (c *Coordinator) RemoveFromCart(ctx context.Context, userID, productID, locationID int64) error {
	err := c.tm.InTx(ctx, func(ctx context.Context, tx Tx) error {
		found, err := tx.Carts().Remove(ctx, userID, productID, locationID)
		if err != nil {
			return err
		}
		if !found {
			return newError(CodeNotFound, "cart item not found")
		}
		return nil
	})
	return c.finish("cart.remove", err)
}

func (c *Coordinator) ClearCart(ctx context.Context, userID int64) error {
	err := c.tm.InTx(ctx, func(ctx context.Context, tx Tx) error {
		return tx.Carts().Clear(ctx, userID)
	})
	return c.finish("cart.clear", err)
}

func (c *Coordinator) Cart(ctx context.Context, userID int64) ([]cart.Entry, error) {
	var out []cart.Entry
	err := c.tm.InTx(ctx, func(ctx context.Context, tx Tx) error {
		var err error
		out, err = tx.Carts().ListForUser(ctx, userID, false)
		return err
	})
	return out, c.finish("cart.list", err)
}

func (c *Coordinator) Order(ctx context.Context, id int64) (*orders.Order, error) {
	var o *orders.Order
	err := c.tm.InTx(ctx, func(ctx context.Context, tx Tx) error {
		var err error
		o, err = tx.Orders().GetByID(ctx, id, false)
		return err
	})
	return o, c.finish("orders.get", err)
}

func (c *Coordinator) UserOrders(ctx context.Context, userID int64, p orders.Page) ([]orders.Order, error) {
	list, _, err := c.Orders(ctx, orders.Filter{UserID: &userID}, p)
	return list, err
}

// Orders lists matching orders newest first, plus the total match count.
func (c *Coordinator) Orders(ctx context.Context, f orders.Filter, p orders.Page) ([]orders.Order, int, error) {
	var (
		list  []orders.Order
		total int
	)
	err := c.tm.InTx(ctx, func(ctx context.Context, tx Tx) error {
		var err error
		if list, err = tx.Orders().List(ctx, f, p.Normalize()); err != nil {
			return err
		}
		total, err = tx.Orders().Count(ctx, f)
		return err
	})
	return list, total, c.finish("orders.list", err)
}

// Stock is the point query; an absent record is NotFound.
func (c *Coordinator) Stock(ctx context.Context, k inventory.Key) (inventory.Record, error) {
	var rec inventory.Record
	err := c.tm.InTx(ctx, func(ctx context.Context, tx Tx) error {
		r, found, err := inventory.NewLedger(tx.Stock()).Get(ctx, k, false)
		if err != nil {
			return err
		}
		if !found {
			return newError(CodeNotFound, "no stock record for product %d at location %d", k.ProductID, k.LocationID)
		}
		rec = r
		return nil
	})
	return rec, c.finish("stock.get", err)
}

func (c *Coordinator) AdjustStock(ctx context.Context, k inventory.Key, delta int) (inventory.Record, error) {
	if delta == 0 {
		return inventory.Record{}, c.finish("stock.adjust", newError(CodeInvalidQuantity, "delta must not be zero"))
	}
	var rec inventory.Record
	err := c.tm.InTx(ctx, func(ctx context.Context, tx Tx) error {
		if err := c.checkStockKey(ctx, tx, k); err != nil {
			return err
		}
		var err error
		rec, err = inventory.NewLedger(tx.Stock()).ApplyDelta(ctx, k, delta)
		return err
	})
	if err == nil {
		log.Info().Int64("product_id", k.ProductID).Int64("location_id", k.LocationID).
			Int("delta", delta).Int("quantity", rec.Quantity).Msg("stock adjusted")
	}
	return rec, c.finish("stock.adjust", err)
}

func (c *Coordinator) SetStock(ctx context.Context, k inventory.Key, value int) (inventory.Record, error) {
	var rec inventory.Record
	err := c.tm.InTx(ctx, func(ctx context.Context, tx Tx) error {
		if err := c.checkStockKey(ctx, tx, k); err != nil {
			return err
		}
		var err error
		rec, err = inventory.NewLedger(tx.Stock()).SetAbsolute(ctx, k, value)
		return err
	})
	if err == nil {
		log.Info().Int64("product_id", k.ProductID).Int64("location_id", k.LocationID).
			Int("quantity", rec.Quantity).Msg("stock set")
	}
	return rec, c.finish("stock.set", err)
}

func (c *Coordinator) checkStockKey(ctx context.Context, tx Tx, k inventory.Key) error {
	if _, err := tx.Catalog().Product(ctx, k.ProductID); err != nil {
		return err
	}
	_, err := tx.Catalog().Location(ctx, k.LocationID)
	return err
}
