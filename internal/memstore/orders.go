package memstore

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/ariefcatur/go-retail-orders/internal/orders"
)

type orderStore struct{ t *tx }

func (s orderStore) Create(_ context.Context, o *orders.Order) (int64, error) {
	if !o.Status.Valid() {
		return 0, fmt.Errorf("memstore: invalid status %q", o.Status)
	}
	st := s.t.st
	st.nextOrder++
	now := s.t.now()
	o.ID, o.CreatedAt, o.UpdatedAt = st.nextOrder, now, now
	row := *o
	row.Items = nil
	st.orders[o.ID] = row
	return o.ID, nil
}

func (s orderStore) AddItem(_ context.Context, orderID int64, it *orders.OrderItem) (int64, error) {
	st := s.t.st
	if _, ok := st.orders[orderID]; !ok {
		return 0, orders.ErrOrderNotFound
	}
	if it.Quantity <= 0 || it.ReservedQuantity < 0 || it.ReservedQuantity > it.Quantity {
		return 0, fmt.Errorf("memstore: item quantity %d reserved %d violates constraints", it.Quantity, it.ReservedQuantity)
	}
	st.nextItem++
	it.ID, it.OrderID = st.nextItem, orderID
	st.items[it.ID] = *it
	return it.ID, nil
}

func (s orderStore) GetByID(_ context.Context, id int64, _ bool) (*orders.Order, error) {
	o, ok := s.t.st.orders[id]
	if !ok {
		return nil, orders.ErrOrderNotFound
	}
	o.Items = s.itemsOf(id)
	return &o, nil
}

func (s orderStore) itemsOf(orderID int64) []orders.OrderItem {
	out := []orders.OrderItem{}
	for _, it := range s.t.st.items {
		if it.OrderID == orderID {
			out = append(out, it)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

func (s orderStore) SetStatus(_ context.Context, id int64, st orders.Status, note string) (time.Time, error) {
	o, ok := s.t.st.orders[id]
	if !ok {
		return time.Time{}, orders.ErrOrderNotFound
	}
	at := s.t.now()
	if !at.After(o.UpdatedAt) {
		at = o.UpdatedAt.Add(time.Microsecond)
	}
	o.Status, o.AdminNotes, o.UpdatedAt = st, note, at
	s.t.st.orders[id] = o
	return at, nil
}

func (s orderStore) SetItemReservedQuantity(_ context.Context, itemID int64, value int) error {
	it, ok := s.t.st.items[itemID]
	if !ok {
		return fmt.Errorf("memstore: order item %d not found", itemID)
	}
	if value < 0 || value > it.Quantity {
		return fmt.Errorf("memstore: reserved quantity %d out of range [0,%d]", value, it.Quantity)
	}
	it.ReservedQuantity = value
	s.t.st.items[itemID] = it
	return nil
}

func (s orderStore) matching(f orders.Filter) []orders.Order {
	out := []orders.Order{}
	for _, o := range s.t.st.orders {
		if f.Status != nil && o.Status != *f.Status {
			continue
		}
		if f.UserID != nil && o.UserID != *f.UserID {
			continue
		}
		out = append(out, o)
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].CreatedAt.After(out[j].CreatedAt)
		}
		return out[i].ID > out[j].ID
	})
	return out
}

func (s orderStore) List(_ context.Context, f orders.Filter, p orders.Page) ([]orders.Order, error) {
	all := s.matching(f)
	p = p.Normalize()
	if p.Offset >= len(all) {
		return []orders.Order{}, nil
	}
	end := p.Offset + p.Limit
	if end > len(all) {
		end = len(all)
	}
	page := all[p.Offset:end]
	for i := range page {
		page[i].Items = s.itemsOf(page[i].ID)
	}
	return page, nil
}

func (s orderStore) Count(_ context.Context, f orders.Filter) (int, error) {
	return len(s.matching(f)), nil
}
