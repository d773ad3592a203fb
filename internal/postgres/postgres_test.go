package postgres_test

import (
	"context"
	"os"
	"sync"
	"testing"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ariefcatur/go-retail-orders/internal/cart"
	"github.com/ariefcatur/go-retail-orders/internal/inventory"
	"github.com/ariefcatur/go-retail-orders/internal/lifecycle"
	"github.com/ariefcatur/go-retail-orders/internal/orders"
	"github.com/ariefcatur/go-retail-orders/internal/postgres"
)

// Integration tests run only when TEST_POSTGRES_DSN points at a disposable database.
var db *pgxpool.Pool

func TestMain(m *testing.M) {
	dsn := os.Getenv("TEST_POSTGRES_DSN")
	if dsn == "" {
		os.Exit(0)
	}
	if err := postgres.Migrate(dsn); err != nil {
		panic(err)
	}
	var err error
	db, err = postgres.Connect(context.Background(), dsn, 16)
	if err != nil {
		panic(err)
	}
	code := m.Run()
	db.Close()
	os.Exit(code)
}

func setup(t *testing.T) *lifecycle.Coordinator {
	t.Helper()
	ctx := context.Background()
	reset := func() {
		_, err := db.Exec(ctx, `TRUNCATE order_items, orders, cart_items, stock, products, locations RESTART IDENTITY CASCADE`)
		require.NoError(t, err)
	}
	reset()
	t.Cleanup(reset)

	_, err := db.Exec(ctx, `INSERT INTO products(name, price) VALUES ('Beras 5kg', 6.75), ('Minyak 1L', 2.40)`)
	require.NoError(t, err)
	_, err = db.Exec(ctx, `INSERT INTO locations(name) VALUES ('Medan'), ('Makassar')`)
	require.NoError(t, err)
	return lifecycle.New(&postgres.TxManager{DB: db})
}

var p1l1 = inventory.Key{ProductID: 1, LocationID: 1}

func TestCheckoutAndReject(t *testing.T) {
	svc := setup(t)
	ctx := context.Background()

	_, err := svc.SetStock(ctx, p1l1, 10)
	require.NoError(t, err)
	require.NoError(t, svc.AddToCart(ctx, cart.Entry{UserID: 1, ProductID: 1, LocationID: 1, Quantity: 3}))
	require.NoError(t, svc.AddToCart(ctx, cart.Entry{UserID: 1, ProductID: 2, LocationID: 2, Quantity: 1}))

	_, err = svc.Checkout(ctx, 1, "cod")
	require.ErrorIs(t, err, lifecycle.ErrInsufficientStock)
	entries, err := svc.Cart(ctx, 1)
	require.NoError(t, err)
	assert.Len(t, entries, 2)
	_, err = svc.Stock(ctx, inventory.Key{ProductID: 2, LocationID: 2})
	assert.ErrorIs(t, err, lifecycle.ErrNotFound, "placeholder rows must not survive a rollback")

	require.NoError(t, svc.RemoveFromCart(ctx, 1, 2, 2))
	o, err := svc.Checkout(ctx, 1, "cod")
	require.NoError(t, err)
	assert.Equal(t, "20.25", o.TotalAmount.StringFixed(2))
	rec, err := svc.Stock(ctx, p1l1)
	require.NoError(t, err)
	assert.Equal(t, 7, rec.Quantity)

	_, err = svc.Reject(ctx, o.ID, 9, "duplicate")
	require.NoError(t, err)
	_, err = svc.Reject(ctx, o.ID, 9, "duplicate")
	require.ErrorIs(t, err, lifecycle.ErrAlreadyProcessed)

	stored, err := svc.Order(ctx, o.ID)
	require.NoError(t, err)
	assert.Equal(t, orders.StatusRejected, stored.Status)
	assert.Zero(t, stored.Items[0].ReservedQuantity)
	rec, err = svc.Stock(ctx, p1l1)
	require.NoError(t, err)
	assert.Equal(t, 10, rec.Quantity)
}

func TestConcurrentCheckoutsOnScarceStock(t *testing.T) {
	svc := setup(t)
	ctx := context.Background()

	_, err := svc.SetStock(ctx, p1l1, 5)
	require.NoError(t, err)
	const buyers = 12
	for u := int64(1); u <= buyers; u++ {
		require.NoError(t, svc.AddToCart(ctx, cart.Entry{UserID: u, ProductID: 1, LocationID: 1, Quantity: 1}))
	}

	var (
		wg sync.WaitGroup
		mu sync.Mutex
		ok int
	)
	for u := int64(1); u <= buyers; u++ {
		wg.Add(1)
		go func(u int64) {
			defer wg.Done()
			if _, err := svc.Checkout(ctx, u, "cod"); err == nil {
				mu.Lock()
				ok++
				mu.Unlock()
			} else {
				assert.ErrorIs(t, err, lifecycle.ErrInsufficientStock)
			}
		}(u)
	}
	wg.Wait()

	assert.Equal(t, 5, ok)
	rec, err := svc.Stock(ctx, p1l1)
	require.NoError(t, err)
	assert.Zero(t, rec.Quantity)
}

func TestOrdersListing(t *testing.T) {
	svc := setup(t)
	ctx := context.Background()

	_, err := svc.SetStock(ctx, p1l1, 50)
	require.NoError(t, err)
	for i := 0; i < 3; i++ {
		require.NoError(t, svc.AddToCart(ctx, cart.Entry{UserID: 4, ProductID: 1, LocationID: 1, Quantity: 1}))
		_, err := svc.Checkout(ctx, 4, "cod")
		require.NoError(t, err)
	}

	pending := orders.StatusPendingApproval
	list, total, err := svc.Orders(ctx, orders.Filter{Status: &pending}, orders.Page{Limit: 2})
	require.NoError(t, err)
	assert.Equal(t, 3, total)
	require.Len(t, list, 2)
	assert.Greater(t, list[0].ID, list[1].ID)
	assert.Len(t, list[0].Items, 1)
}
