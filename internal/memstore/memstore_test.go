package memstore

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ariefcatur/go-retail-orders/internal/cart"
	"github.com/ariefcatur/go-retail-orders/internal/inventory"
	"github.com/ariefcatur/go-retail-orders/internal/lifecycle"
	"github.com/ariefcatur/go-retail-orders/internal/orders"
)

var key = inventory.Key{ProductID: 1, LocationID: 1}

func TestInTx_RollbackDiscardsWrites(t *testing.T) {
	s := New()
	ctx := context.Background()
	boom := errors.New("boom")

	err := s.InTx(ctx, func(ctx context.Context, tx lifecycle.Tx) error {
		require.NoError(t, tx.Stock().Put(ctx, inventory.Record{Key: key, Quantity: 5}))
		require.NoError(t, tx.Carts().Upsert(ctx, cart.Entry{UserID: 1, ProductID: 1, LocationID: 1, Quantity: 2}))
		_, err := tx.Orders().Create(ctx, &orders.Order{UserID: 1, Status: orders.StatusPendingApproval})
		require.NoError(t, err)
		return boom
	})
	require.ErrorIs(t, err, boom)

	require.NoError(t, s.InTx(ctx, func(ctx context.Context, tx lifecycle.Tx) error {
		_, found, err := tx.Stock().Get(ctx, key, false)
		require.NoError(t, err)
		assert.False(t, found)

		entries, err := tx.Carts().ListForUser(ctx, 1, false)
		require.NoError(t, err)
		assert.Empty(t, entries)

		n, err := tx.Orders().Count(ctx, orders.Filter{})
		require.NoError(t, err)
		assert.Zero(t, n)
		return nil
	}))
}

func TestInTx_CommitPersistsAndAssignsIDs(t *testing.T) {
	s := New()
	fixed := time.Date(2026, 5, 4, 10, 0, 0, 0, time.UTC)
	s.now = func() time.Time { return fixed }
	ctx := context.Background()

	var orderID int64
	require.NoError(t, s.InTx(ctx, func(ctx context.Context, tx lifecycle.Tx) error {
		o := &orders.Order{UserID: 3, Status: orders.StatusPendingApproval, TotalAmount: decimal.NewFromInt(20)}
		id, err := tx.Orders().Create(ctx, o)
		require.NoError(t, err)
		orderID = id
		it := &orders.OrderItem{ProductID: 1, LocationID: 1, Quantity: 2, ReservedQuantity: 2, PriceAtOrder: decimal.NewFromInt(10)}
		_, err = tx.Orders().AddItem(ctx, id, it)
		return err
	}))

	require.NoError(t, s.InTx(ctx, func(ctx context.Context, tx lifecycle.Tx) error {
		o, err := tx.Orders().GetByID(ctx, orderID, false)
		require.NoError(t, err)
		assert.Equal(t, int64(1), o.ID)
		assert.Equal(t, fixed, o.CreatedAt)
		require.Len(t, o.Items, 1)
		assert.Equal(t, orderID, o.Items[0].OrderID)

		assert.Error(t, tx.Orders().SetItemReservedQuantity(ctx, o.Items[0].ID, 3))
		_, err = tx.Orders().AddItem(ctx, 999, &orders.OrderItem{Quantity: 1})
		assert.ErrorIs(t, err, orders.ErrOrderNotFound)
		return nil
	}))
}

func TestSetStatus_StampsStrictlyIncreasingTimes(t *testing.T) {
	s := New()
	fixed := time.Date(2026, 5, 4, 10, 0, 0, 0, time.UTC)
	s.now = func() time.Time { return fixed }
	ctx := context.Background()

	require.NoError(t, s.InTx(ctx, func(ctx context.Context, tx lifecycle.Tx) error {
		id, err := tx.Orders().Create(ctx, &orders.Order{UserID: 1, Status: orders.StatusPendingApproval})
		require.NoError(t, err)

		first, err := tx.Orders().SetStatus(ctx, id, orders.StatusApproved, "a")
		require.NoError(t, err)
		assert.True(t, first.After(fixed))
		second, err := tx.Orders().SetStatus(ctx, id, orders.StatusShipped, "b")
		require.NoError(t, err)
		assert.True(t, second.After(first))

		o, err := tx.Orders().GetByID(ctx, id, false)
		require.NoError(t, err)
		assert.Equal(t, second, o.UpdatedAt)

		_, err = tx.Orders().SetStatus(ctx, 999, orders.StatusApproved, "")
		assert.ErrorIs(t, err, orders.ErrOrderNotFound)
		return nil
	}))
}

func TestStockPut_RejectsNegative(t *testing.T) {
	s := New()
	err := s.InTx(context.Background(), func(ctx context.Context, tx lifecycle.Tx) error {
		return tx.Stock().Put(ctx, inventory.Record{Key: key, Quantity: -1})
	})
	assert.ErrorIs(t, err, inventory.ErrInvalidQuantity)
}

func TestInTx_CancelledContext(t *testing.T) {
	s := New()
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	called := false
	err := s.InTx(ctx, func(context.Context, lifecycle.Tx) error {
		called = true
		return nil
	})
	assert.ErrorIs(t, err, context.Canceled)
	assert.False(t, called)
}
