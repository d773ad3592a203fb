package orders

import (
	"encoding/json"
	"time"

	"github.com/shopspring/decimal"
)

const (
	EventOrderCreated       = "OrderCreated"
	EventOrderStatusChanged = "OrderStatusChanged"
)

type Envelope struct {
	EventID       string          `json:"event_id"`
	EventType     string          `json:"event_type"`
	EventVersion  int             `json:"event_version"`
	OccurredAt    time.Time       `json:"occurred_at"`
	Producer      string          `json:"producer"`
	TraceID       string          `json:"trace_id,omitempty"`
	CorrelationID string          `json:"correlation_id,omitempty"` // order id
	Payload       json.RawMessage `json:"payload"`
}

type ItemLine struct {
	ProductID  int64           `json:"product_id"`
	LocationID int64           `json:"location_id"`
	Qty        int             `json:"qty"`
	Price      decimal.Decimal `json:"price"`
}

type OrderCreatedPayload struct {
	OrderID       int64           `json:"order_id"`
	UserID        int64           `json:"user_id"`
	Status        Status          `json:"status"`
	PaymentMethod string          `json:"payment_method"`
	TotalAmount   decimal.Decimal `json:"total_amount"`
	Items         []ItemLine      `json:"items"`
	UpdatedAt     time.Time       `json:"updated_at"`
}

// Released lists stock handed back to the ledger by a transition.
type Released struct {
	ProductID  int64 `json:"product_id"`
	LocationID int64 `json:"location_id"`
	Qty        int   `json:"qty"`
}

type OrderStatusChangedPayload struct {
	OrderID   int64      `json:"order_id"`
	UserID    int64      `json:"user_id"`
	OldStatus Status     `json:"old_status"`
	NewStatus Status     `json:"new_status"`
	AdminID   int64      `json:"admin_id"`
	Note      string     `json:"note,omitempty"`
	Released  []Released `json:"released,omitempty"`
	UpdatedAt time.Time  `json:"updated_at"`
}
