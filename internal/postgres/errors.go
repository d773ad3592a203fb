package postgres

import (
	"errors"

	"github.com/jackc/pgerrcode"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/ariefcatur/go-retail-orders/internal/catalog"
	"github.com/ariefcatur/go-retail-orders/internal/inventory"
)

// translate maps constraint violations the schema enforces onto domain
// errors; everything else is returned unchanged.
func translate(err error) error {
	var pgErr *pgconn.PgError
	if !errors.As(err, &pgErr) {
		return err
	}
	switch pgErr.Code {
	case pgerrcode.CheckViolation:
		if pgErr.TableName == "stock" {
			return inventory.ErrInvalidQuantity
		}
	case pgerrcode.ForeignKeyViolation:
		switch pgErr.ConstraintName {
		case "stock_product_id_fkey", "cart_items_product_id_fkey", "order_items_product_id_fkey":
			return catalog.ErrProductNotFound
		case "stock_location_id_fkey", "cart_items_location_id_fkey", "order_items_location_id_fkey":
			return catalog.ErrLocationNotFound
		}
	}
	return err
}
