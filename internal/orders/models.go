package orders

import (
	"time"

	"github.com/shopspring/decimal"
)

type Order struct {
	ID            int64           `json:"id"`
	UserID        int64           `json:"user_id"`
	Status        Status          `json:"status"`
	PaymentMethod string          `json:"payment_method"`
	TotalAmount   decimal.Decimal `json:"total_amount"`
	AdminNotes    string          `json:"admin_notes,omitempty"`
	Items         []OrderItem     `json:"items"`
	CreatedAt     time.Time       `json:"created_at"`
	UpdatedAt     time.Time       `json:"updated_at"`
}

type OrderItem struct {
	ID               int64           `json:"id"`
	OrderID          int64           `json:"order_id"`
	ProductID        int64           `json:"product_id"`
	LocationID       int64           `json:"location_id"`
	Quantity         int             `json:"quantity"`
	ReservedQuantity int             `json:"reserved_quantity"`
	PriceAtOrder     decimal.Decimal `json:"price_at_order"`
}

// LineTotal is price_at_order times quantity.
func (it OrderItem) LineTotal() decimal.Decimal {
	return it.PriceAtOrder.Mul(decimal.NewFromInt(int64(it.Quantity)))
}

// Filter narrows order listings; nil fields match everything.
type Filter struct {
	Status *Status
	UserID *int64
}

type Page struct {
	Limit  int
	Offset int
}

const (
	DefaultPageLimit = 20
	MaxPageLimit     = 100
)

// Normalize clamps the page into the supported range.
func (p Page) Normalize() Page {
	if p.Limit <= 0 {
		p.Limit = DefaultPageLimit
	}
	if p.Limit > MaxPageLimit {
		p.Limit = MaxPageLimit
	}
	if p.Offset < 0 {
		p.Offset = 0
	}
	return p
}
