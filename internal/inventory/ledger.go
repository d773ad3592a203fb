// Package inventory keeps the per (product, location) stock counters.
package inventory

import (
	"context"
	"errors"
	"fmt"
	"math"
)

type Key struct {
	ProductID  int64 `json:"product_id"`
	LocationID int64 `json:"location_id"`
}

func (k Key) Less(o Key) bool {
	if k.ProductID != o.ProductID {
		return k.ProductID < o.ProductID
	}
	return k.LocationID < o.LocationID
}

type Record struct {
	Key
	Quantity int `json:"quantity"`
}

// Store is the row-level access to stock records inside one transaction.
// Get with forUpdate holds an exclusive row lock until the transaction ends.
type Store interface {
	Get(ctx context.Context, k Key, forUpdate bool) (Record, bool, error)
	Put(ctx context.Context, r Record) error
}

// MaxQuantity is the largest quantity a stock record can hold (INTEGER column).
const MaxQuantity = math.MaxInt32

var ErrInvalidQuantity = errors.New("stock quantity must be between 0 and 2147483647")

// InsufficientError is returned when a debit would take stock below zero.
type InsufficientError struct {
	Key       Key
	Available int
	Requested int
}

func (e *InsufficientError) Error() string {
	return fmt.Sprintf("insufficient stock for product %d at location %d: available %d, requested %d",
		e.Key.ProductID, e.Key.LocationID, e.Available, e.Requested)
}

// Ledger applies stock mutations. Every call locks the row first, so two
// transactions touching the same key are serialised by the store.
type Ledger struct {
	store Store
}

func NewLedger(s Store) *Ledger { return &Ledger{store: s} }

func (l *Ledger) Get(ctx context.Context, k Key, forUpdate bool) (Record, bool, error) {
	return l.store.Get(ctx, k, forUpdate)
}

// Available returns the current quantity under lock; absent rows count as zero.
func (l *Ledger) Available(ctx context.Context, k Key) (int, error) {
	rec, _, err := l.store.Get(ctx, k, true)
	if err != nil {
		return 0, err
	}
	return rec.Quantity, nil
}

// ApplyDelta adds delta to the stored quantity. A result below zero returns
// *InsufficientError and a result above MaxQuantity returns
// ErrInvalidQuantity; both leave the record untouched.
func (l *Ledger) ApplyDelta(ctx context.Context, k Key, delta int) (Record, error) {
	if delta > MaxQuantity || delta < -MaxQuantity {
		return Record{}, ErrInvalidQuantity
	}
	cur, found, err := l.store.Get(ctx, k, true)
	if err != nil {
		return Record{}, fmt.Errorf("lock stock: %w", err)
	}
	if !found {
		cur = Record{Key: k}
	}
	if delta > 0 && cur.Quantity > MaxQuantity-delta {
		return cur, ErrInvalidQuantity
	}
	next := cur.Quantity + delta
	if next < 0 {
		return cur, &InsufficientError{Key: k, Available: cur.Quantity, Requested: -delta}
	}
	if delta == 0 {
		return cur, nil
	}
	rec := Record{Key: k, Quantity: next}
	if err := l.store.Put(ctx, rec); err != nil {
		return Record{}, fmt.Errorf("write stock: %w", err)
	}
	return rec, nil
}

// SetAbsolute overwrites (or creates) the record with value.
func (l *Ledger) SetAbsolute(ctx context.Context, k Key, value int) (Record, error) {
	if value < 0 || value > MaxQuantity {
		return Record{}, ErrInvalidQuantity
	}
	if _, _, err := l.store.Get(ctx, k, true); err != nil {
		return Record{}, fmt.Errorf("lock stock: %w", err)
	}
	rec := Record{Key: k, Quantity: value}
	if err := l.store.Put(ctx, rec); err != nil {
		return Record{}, fmt.Errorf("write stock: %w", err)
	}
	return rec, nil
}
