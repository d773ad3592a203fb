package postgres

import (
	"errors"
	"fmt"
	"testing"

	"github.com/jackc/pgerrcode"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/stretchr/testify/assert"

	"github.com/ariefcatur/go-retail-orders/internal/catalog"
	"github.com/ariefcatur/go-retail-orders/internal/inventory"
)

func TestTranslate(t *testing.T) {
	plain := errors.New("conn reset")
	tests := []struct {
		name string
		err  error
		want error
	}{
		{"negative stock", &pgconn.PgError{Code: pgerrcode.CheckViolation, TableName: "stock"}, inventory.ErrInvalidQuantity},
		{"missing product", &pgconn.PgError{Code: pgerrcode.ForeignKeyViolation, ConstraintName: "cart_items_product_id_fkey"}, catalog.ErrProductNotFound},
		{"missing location", &pgconn.PgError{Code: pgerrcode.ForeignKeyViolation, ConstraintName: "stock_location_id_fkey"}, catalog.ErrLocationNotFound},
		{"wrapped", fmt.Errorf("upsert stock: %w", &pgconn.PgError{Code: pgerrcode.CheckViolation, TableName: "stock"}), inventory.ErrInvalidQuantity},
		{"other check", &pgconn.PgError{Code: pgerrcode.CheckViolation, TableName: "orders"}, nil},
		{"not postgres", plain, plain},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := translate(tt.err)
			if tt.want == nil {
				assert.Equal(t, tt.err, got)
				return
			}
			assert.ErrorIs(t, got, tt.want)
		})
	}
}
