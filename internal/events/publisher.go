// Package events turns committed order changes into kafka envelopes.
package events

import (
	"context"
	"strconv"
	"time"

	"github.com/google/uuid"
	kafkago "github.com/segmentio/kafka-go"

	kafkax "github.com/ariefcatur/go-retail-orders/internal/kafka"
	"github.com/ariefcatur/go-retail-orders/internal/orders"
)

// Sink is the async producer; *kafkax.Producer satisfies it.
type Sink interface {
	Publish(key, value []byte, headers ...kafkago.Header)
}

type Publisher struct {
	Sink    Sink
	Service string
	Now     func() time.Time
}

func NewPublisher(sink Sink, service string) *Publisher {
	return &Publisher{Sink: sink, Service: service, Now: func() time.Time { return time.Now().UTC() }}
}

func (p *Publisher) OrderCreated(ctx context.Context, o *orders.Order) {
	lines := make([]orders.ItemLine, 0, len(o.Items))
	for _, it := range o.Items {
		lines = append(lines, orders.ItemLine{
			ProductID:  it.ProductID,
			LocationID: it.LocationID,
			Qty:        it.Quantity,
			Price:      it.PriceAtOrder,
		})
	}
	p.emit(ctx, o.ID, o.UpdatedAt, orders.EventOrderCreated, orders.OrderCreatedPayload{
		OrderID:       o.ID,
		UserID:        o.UserID,
		Status:        o.Status,
		PaymentMethod: o.PaymentMethod,
		TotalAmount:   o.TotalAmount,
		Items:         lines,
		UpdatedAt:     o.UpdatedAt,
	})
}

func (p *Publisher) StatusChanged(ctx context.Context, o *orders.Order, from orders.Status, adminID int64, released []orders.Released) {
	p.emit(ctx, o.ID, o.UpdatedAt, orders.EventOrderStatusChanged, orders.OrderStatusChangedPayload{
		OrderID:   o.ID,
		UserID:    o.UserID,
		OldStatus: from,
		NewStatus: o.Status,
		AdminID:   adminID,
		Note:      o.AdminNotes,
		Released:  released,
		UpdatedAt: o.UpdatedAt,
	})
}

// emit stamps the envelope with the committed row time so consumers can order
// events of one order against reads from the database.
func (p *Publisher) emit(ctx context.Context, orderID int64, at time.Time, eventType string, payload any) {
	if at.IsZero() {
		at = p.Now()
	}
	ev := orders.Envelope{
		EventID:       uuid.NewString(),
		EventType:     eventType,
		EventVersion:  1,
		OccurredAt:    at.UTC(),
		Producer:      p.Service,
		TraceID:       traceID(ctx),
		CorrelationID: strconv.FormatInt(orderID, 10),
		Payload:       kafkax.MustMarshal(payload),
	}
	p.Sink.Publish(orders.PartitionKey(orderID), kafkax.MustMarshal(ev),
		kafkago.Header{Key: "x-event-type", Value: []byte(eventType)},
		kafkago.Header{Key: "x-event-version", Value: []byte("1")},
	)
}

type traceKey struct{}

// WithTraceID tags ctx so emitted envelopes carry the request id.
func WithTraceID(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, traceKey{}, id)
}

func traceID(ctx context.Context) string {
	s, _ := ctx.Value(traceKey{}).(string)
	return s
}
