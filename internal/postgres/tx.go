package postgres

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/ariefcatur/go-retail-orders/internal/cart"
	"github.com/ariefcatur/go-retail-orders/internal/catalog"
	"github.com/ariefcatur/go-retail-orders/internal/inventory"
	"github.com/ariefcatur/go-retail-orders/internal/lifecycle"
	"github.com/ariefcatur/go-retail-orders/internal/orders"
)

// TxManager opens one READ COMMITTED transaction per operation; row locks
// (SELECT ... FOR UPDATE) provide the isolation the ledger needs.
type TxManager struct{ DB *pgxpool.Pool }

var _ lifecycle.TxManager = (*TxManager)(nil)

func (m *TxManager) InTx(ctx context.Context, fn func(ctx context.Context, tx lifecycle.Tx) error) error {
	tx, err := m.DB.BeginTx(ctx, pgx.TxOptions{IsoLevel: pgx.ReadCommitted})
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	// no-op once committed
	defer func() { _ = tx.Rollback(context.WithoutCancel(ctx)) }()

	if err := fn(ctx, &Tx{tx: tx}); err != nil {
		return err
	}
	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit tx: %w", err)
	}
	return nil
}

// Tx binds the repositories to one pgx transaction.
type Tx struct{ tx pgx.Tx }

func (t *Tx) Stock() inventory.Store { return &StockRepo{tx: t.tx} }
func (t *Tx) Carts() cart.Store { return &CartRepo{tx: t.tx} }
func (t *Tx) Orders() orders.Store { return &OrderRepo{tx: t.tx} }
func (t *Tx) Catalog() catalog.Store { return &CatalogRepo{tx: t.tx} }
