// Package projector keeps the redis order-status cache in step with the
// order event stream.
package projector

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"time"

	"github.com/rs/zerolog/log"
	kafkago "github.com/segmentio/kafka-go"

	kafkax "github.com/ariefcatur/go-retail-orders/internal/kafka"
	"github.com/ariefcatur/go-retail-orders/internal/orders"
	"github.com/ariefcatur/go-retail-orders/internal/redisx"
)

type StatusWriter interface {
	Set(ctx context.Context, orderID int64, cs redisx.CachedStatus) error
}

type Deduper interface {
	Seen(ctx context.Context, eventID string) (bool, error)
	Mark(ctx context.Context, eventID string) error
}

type Service struct {
	Cache StatusWriter
	Dedup Deduper
}

// HandleOrderEvent is installed as the consumer handler.
func (s *Service) HandleOrderEvent(ctx context.Context, m kafkago.Message) error {
	var env orders.Envelope
	if err := json.Unmarshal(m.Value, &env); err != nil {
		// a poison message would block the partition forever
		log.Error().Err(err).Int64("offset", m.Offset).Msg("projector: undecodable envelope skipped")
		return nil
	}

	seen, err := s.Dedup.Seen(ctx, env.EventID)
	if err != nil {
		return fmt.Errorf("dedup lookup: %w", err)
	}
	if seen {
		return nil
	}

	orderID, cs, err := statusOf(env)
	if err != nil {
		return err
	}
	if cs.Status == "" {
		return s.Dedup.Mark(ctx, env.EventID)
	}

	if err := s.Cache.Set(ctx, orderID, cs); err != nil {
		return fmt.Errorf("cache status for order %d: %w", orderID, err)
	}
	log.Debug().Int64("order_id", orderID).Str("status", cs.Status).Str("event", env.EventType).Msg("projector: status cached")
	return s.Dedup.Mark(ctx, env.EventID)
}

// statusOf extracts the post-event status stamped with the order's committed
// updated_at; unknown event types yield an empty status.
func statusOf(env orders.Envelope) (int64, redisx.CachedStatus, error) {
	var (
		id int64
		st orders.Status
		at time.Time
	)
	switch env.EventType {
	case orders.EventOrderCreated:
		p, err := kafkax.UnwrapPayload[orders.OrderCreatedPayload](env.Payload)
		if err != nil {
			return 0, redisx.CachedStatus{}, err
		}
		id, st, at = p.OrderID, p.Status, p.UpdatedAt
	case orders.EventOrderStatusChanged:
		p, err := kafkax.UnwrapPayload[orders.OrderStatusChangedPayload](env.Payload)
		if err != nil {
			return 0, redisx.CachedStatus{}, err
		}
		id, st, at = p.OrderID, p.NewStatus, p.UpdatedAt
	default:
		id, _ = strconv.ParseInt(env.CorrelationID, 10, 64)
		return id, redisx.CachedStatus{}, nil
	}
	if at.IsZero() {
		at = env.OccurredAt
	}
	return id, redisx.CachedStatus{Status: string(st), UpdatedAt: at}, nil
}
