// Package memstore is an in-process storage backend with the same
// transactional contract as the postgres one. Transactions are serialised
// behind a single mutex and run against a private copy of the state, which is
// swapped in on commit and dropped on rollback.
package memstore

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/ariefcatur/go-retail-orders/internal/cart"
	"github.com/ariefcatur/go-retail-orders/internal/catalog"
	"github.com/ariefcatur/go-retail-orders/internal/inventory"
	"github.com/ariefcatur/go-retail-orders/internal/lifecycle"
	"github.com/ariefcatur/go-retail-orders/internal/orders"
)

type cartKey struct {
	user int64
	key  inventory.Key
}

type state struct {
	products  map[int64]catalog.Product
	locations map[int64]catalog.Location
	stock     map[inventory.Key]int
	carts     map[cartKey]int
	orders    map[int64]orders.Order
	items     map[int64]orders.OrderItem
	nextOrder int64
	nextItem  int64
}

func newState() *state {
	return &state{
		products:  map[int64]catalog.Product{},
		locations: map[int64]catalog.Location{},
		stock:     map[inventory.Key]int{},
		carts:     map[cartKey]int{},
		orders:    map[int64]orders.Order{},
		items:     map[int64]orders.OrderItem{},
	}
}

func (s *state) clone() *state {
	c := newState()
	for k, v := range s.products {
		c.products[k] = v
	}
	for k, v := range s.locations {
		c.locations[k] = v
	}
	for k, v := range s.stock {
		c.stock[k] = v
	}
	for k, v := range s.carts {
		c.carts[k] = v
	}
	for k, v := range s.orders {
		c.orders[k] = v
	}
	for k, v := range s.items {
		c.items[k] = v
	}
	c.nextOrder, c.nextItem = s.nextOrder, s.nextItem
	return c
}

type Store struct {
	mu  sync.Mutex
	st  *state
	now func() time.Time
}

var _ lifecycle.TxManager = (*Store)(nil)

func New() *Store {
	return &Store{st: newState(), now: func() time.Time { return time.Now().UTC() }}
}

func (s *Store) InTx(ctx context.Context, fn func(ctx context.Context, tx lifecycle.Tx) error) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := ctx.Err(); err != nil {
		return err
	}
	work := s.st.clone()
	if err := fn(ctx, &tx{st: work, now: s.now}); err != nil {
		return err
	}
	s.st = work
	return nil
}

// AddProduct and AddLocation seed the catalog.
func (s *Store) AddProduct(p catalog.Product) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.st.products[p.ID] = p
}

func (s *Store) AddLocation(l catalog.Location) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.st.locations[l.ID] = l
}

type tx struct {
	st  *state
	now func() time.Time
}

func (t *tx) Stock() inventory.Store { return stockStore{t} }
func (t *tx) Carts() cart.Store { return cartStore{t} }
func (t *tx) Orders() orders.Store { return orderStore{t} }
func (t *tx) Catalog() catalog.Store { return catalogStore{t} }

type stockStore struct{ t *tx }

func (s stockStore) Get(_ context.Context, k inventory.Key, _ bool) (inventory.Record, bool, error) {
	q, ok := s.t.st.stock[k]
	return inventory.Record{Key: k, Quantity: q}, ok, nil
}

func (s stockStore) Put(_ context.Context, r inventory.Record) error {
	if r.Quantity < 0 {
		return inventory.ErrInvalidQuantity
	}
	s.t.st.stock[r.Key] = r.Quantity
	return nil
}

type cartStore struct{ t *tx }

func (c cartStore) Upsert(_ context.Context, e cart.Entry) error {
	if err := e.Validate(); err != nil {
		return err
	}
	c.t.st.carts[cartKey{e.UserID, inventory.Key{ProductID: e.ProductID, LocationID: e.LocationID}}] = e.Quantity
	return nil
}

func (c cartStore) Remove(_ context.Context, userID, productID, locationID int64) (bool, error) {
	k := cartKey{userID, inventory.Key{ProductID: productID, LocationID: locationID}}
	if _, ok := c.t.st.carts[k]; !ok {
		return false, nil
	}
	delete(c.t.st.carts, k)
	return true, nil
}

func (c cartStore) ListForUser(_ context.Context, userID int64, _ bool) ([]cart.Entry, error) {
	out := []cart.Entry{}
	for k, q := range c.t.st.carts {
		if k.user == userID {
			out = append(out, cart.Entry{UserID: userID, ProductID: k.key.ProductID, LocationID: k.key.LocationID, Quantity: q})
		}
	}
	sort.Slice(out, func(i, j int) bool {
		return inventory.Key{ProductID: out[i].ProductID, LocationID: out[i].LocationID}.
			Less(inventory.Key{ProductID: out[j].ProductID, LocationID: out[j].LocationID})
	})
	return out, nil
}

func (c cartStore) Clear(_ context.Context, userID int64) error {
	for k := range c.t.st.carts {
		if k.user == userID {
			delete(c.t.st.carts, k)
		}
	}
	return nil
}

type catalogStore struct{ t *tx }

func (c catalogStore) Product(_ context.Context, id int64) (catalog.Product, error) {
	p, ok := c.t.st.products[id]
	if !ok {
		return catalog.Product{}, catalog.ErrProductNotFound
	}
	return p, nil
}

func (c catalogStore) Location(_ context.Context, id int64) (catalog.Location, error) {
	l, ok := c.t.st.locations[id]
	if !ok {
		return catalog.Location{}, catalog.ErrLocationNotFound
	}
	return l, nil
}
