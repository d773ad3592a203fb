package kafka

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/segmentio/kafka-go"
)

type Producer struct {
	w       *kafka.Writer
	inbox   chan kafka.Message
	closeCh chan struct{}

	mu      sync.RWMutex // guards closed against Publish
	closed  bool
	dropped atomic.Int64
}

func NewProducer(brokers []string, topic string, buf int) *Producer {
	return &Producer{
		w: &kafka.Writer{
			Addr:         kafka.TCP(brokers...),
			Topic:        topic,
			Balancer:     &kafka.Hash{},
			RequiredAcks: kafka.RequireAll,
			BatchTimeout: 50 * time.Millisecond,
		},
		inbox:   make(chan kafka.Message, buf),
		closeCh: make(chan struct{}),
	}
}

// Start drains the inbox on one goroutine until Close; remaining messages are
// flushed before the writer closes.
func (p *Producer) Start(ctx context.Context) {
	go func() {
		defer close(p.closeCh)
		for m := range p.inbox {
			if err := p.w.WriteMessages(ctx, m); err != nil {
				log.Error().Err(err).Str("topic", p.w.Topic).Str("key", string(m.Key)).Msg("kafka: write failed")
			}
		}
		if err := p.w.Close(); err != nil {
			log.Warn().Err(err).Msg("kafka: close writer")
		}
	}()
}

// Publish never blocks: when the inbox is full or the producer is closed the
// message is dropped and logged.
func (p *Producer) Publish(key, value []byte, headers ...kafka.Header) {
	m := kafka.Message{
		Key:     key,
		Value:   value,
		Time:    time.Now(),
		Headers: headers,
	}

	p.mu.RLock()
	defer p.mu.RUnlock()
	if p.closed {
		p.drop(m, "producer closed")
		return
	}
	select {
	case p.inbox <- m:
	default:
		p.drop(m, "inbox full")
	}
}

func (p *Producer) drop(m kafka.Message, reason string) {
	p.dropped.Add(1)
	log.Warn().Str("topic", p.w.Topic).Str("key", string(m.Key)).Str("reason", reason).Msg("kafka: message dropped")
}

// Dropped reports how many messages Publish has discarded.
func (p *Producer) Dropped() int64 { return p.dropped.Load() }

// Close stops accepting messages; the goroutine flushes what is left and exits.
// Calling it more than once is safe.
func (p *Producer) Close() {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.closed {
		return
	}
	p.closed = true
	close(p.inbox)
}

// WaitClosed blocks until the flush is done.
func (p *Producer) WaitClosed() { <-p.closeCh }
