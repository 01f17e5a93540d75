package stream

import (
	"context"
	"log/slog"
	"time"

	"github.com/veridex/claimsearch/internal/storage"
	"github.com/veridex/claimsearch/pkg/config"
	"github.com/veridex/claimsearch/pkg/kafka"
)

// FallbackEvent is the wire form of a storage state transition.
type FallbackEvent struct {
	Reason    string    `json:"reason"`
	From      string    `json:"from"`
	To        string    `json:"to"`
	Timestamp time.Time `json:"timestamp"`
}

// EventBridge republishes fallback controller transitions to a Kafka topic
// so operators and downstream systems see degradations as they happen.
type EventBridge struct {
	producer *kafka.Producer
	logger   *slog.Logger
}

// NewEventBridge creates a bridge publishing to the fallback-events topic.
func NewEventBridge(cfg config.KafkaConfig) *EventBridge {
	return &EventBridge{
		producer: kafka.NewProducer(cfg, cfg.Topics.FallbackEvents),
		logger:   slog.Default().With("component", "fallback-event-bridge"),
	}
}

// Subscriber returns a callback suitable for Controller.Subscribe. Publish
// failures are logged, not propagated; a broken broker must not block the
// state machine.
func (b *EventBridge) Subscriber() func(storage.Event) {
	return func(ev storage.Event) {
		wire := FallbackEvent{
			Reason:    string(ev.Reason),
			From:      ev.From.String(),
			To:        ev.To.String(),
			Timestamp: ev.Timestamp,
		}
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := b.producer.Publish(ctx, kafka.Event{Key: wire.Reason, Value: wire}); err != nil {
			b.logger.Error("failed to publish fallback event", "reason", wire.Reason, "error", err)
		}
	}
}

// Close flushes and closes the producer.
func (b *EventBridge) Close() error {
	return b.producer.Close()
}
