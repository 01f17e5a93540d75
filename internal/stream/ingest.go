// Package stream connects the registry to Kafka: an ingest consumer that
// applies claim requests from a topic through the same entry point the HTTP
// handler uses, and a bridge that publishes storage fallback events to a
// notification topic.
package stream

import (
	"context"
	"errors"
	"log/slog"

	"github.com/veridex/claimsearch/internal/claim"
	"github.com/veridex/claimsearch/internal/registry"
	"github.com/veridex/claimsearch/pkg/config"
	apperrors "github.com/veridex/claimsearch/pkg/errors"
	"github.com/veridex/claimsearch/pkg/kafka"
)

// IngestConsumer applies claim ingest requests arriving on a Kafka topic.
type IngestConsumer struct {
	consumer *kafka.Consumer
	registry *registry.Registry
	logger   *slog.Logger
}

// NewIngestConsumer creates a consumer for the claim-ingest topic.
func NewIngestConsumer(cfg config.KafkaConfig, reg *registry.Registry) *IngestConsumer {
	c := &IngestConsumer{
		registry: reg,
		logger:   slog.Default().With("component", "ingest-consumer"),
	}
	c.consumer = kafka.NewConsumer(cfg, cfg.Topics.ClaimIngest, c.handle)
	return c
}

// Start runs the consume loop until ctx is cancelled.
func (c *IngestConsumer) Start(ctx context.Context) error {
	return c.consumer.Start(ctx)
}

// Close closes the underlying Kafka reader.
func (c *IngestConsumer) Close() error {
	return c.consumer.Close()
}

// handle decodes one message and ingests it. Validation failures are
// acknowledged rather than retried; redelivering a malformed request can
// never succeed.
func (c *IngestConsumer) handle(ctx context.Context, key, value []byte) error {
	req, err := kafka.DecodeJSON[claim.IngestRequest](value)
	if err != nil {
		c.logger.Warn("dropping undecodable ingest message", "key", string(key), "error", err)
		return nil
	}

	result, err := c.registry.Ingest(ctx, req)
	if err != nil {
		if errors.Is(err, apperrors.ErrInvalidInput) {
			c.logger.Warn("dropping invalid ingest request", "id", req.ID, "error", err)
			return nil
		}
		return err
	}

	c.logger.Info("claim ingested from stream", "id", result.ID, "tier", string(result.Tier), "degraded", result.Degraded)
	return nil
}
