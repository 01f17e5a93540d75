// Package snapshot persists normalized record snapshots to Postgres so the
// in-memory catalog can be rebuilt after a restart without replaying the
// ingest stream.
package snapshot

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/veridex/claimsearch/internal/claim"
	"github.com/veridex/claimsearch/internal/storage"
	"github.com/veridex/claimsearch/pkg/postgres"
	"github.com/veridex/claimsearch/pkg/resilience"
)

const schema = `
CREATE TABLE IF NOT EXISTS claims (
	id          TEXT PRIMARY KEY,
	record      JSONB NOT NULL,
	ref         JSONB NOT NULL,
	updated_at  TIMESTAMPTZ NOT NULL DEFAULT now()
)`

// Row pairs a stored record with its blob reference.
type Row struct {
	Record claim.Record
	Ref    storage.Reference
}

// Store reads and writes claim snapshots in Postgres.
type Store struct {
	client *postgres.Client
	logger *slog.Logger
}

// New creates a Store and ensures the claims table exists.
func New(ctx context.Context, client *postgres.Client) (*Store, error) {
	if _, err := client.DB.ExecContext(ctx, schema); err != nil {
		return nil, fmt.Errorf("ensuring claims table: %w", err)
	}
	return &Store{
		client: client,
		logger: slog.Default().With("component", "snapshot-store"),
	}, nil
}

// Save upserts the snapshot for a record. Records are stored fully
// normalized, so rehydration reindexes them without rerunning the
// normalization pipeline.
func (s *Store) Save(ctx context.Context, rec claim.Record, ref storage.Reference) error {
	recJSON, err := json.Marshal(rec)
	if err != nil {
		return fmt.Errorf("encoding record %s: %w", rec.ID, err)
	}
	refJSON, err := json.Marshal(ref)
	if err != nil {
		return fmt.Errorf("encoding reference for %s: %w", rec.ID, err)
	}
	// Snapshot writes are best-effort from the registry's point of view, so
	// a short retry absorbs transient connection drops without blocking
	// ingest for long.
	return resilience.Retry(ctx, resilience.DefaultRetryConfig(), "snapshot save", func() error {
		_, err := s.client.DB.ExecContext(ctx, `
			INSERT INTO claims (id, record, ref, updated_at)
			VALUES ($1, $2, $3, now())
			ON CONFLICT (id) DO UPDATE
			SET record = EXCLUDED.record, ref = EXCLUDED.ref, updated_at = now()`,
			rec.ID, recJSON, refJSON,
		)
		if err != nil {
			return fmt.Errorf("upserting snapshot for %s: %w", rec.ID, err)
		}
		return nil
	})
}

// Delete removes the snapshot for id. Deleting a missing id is not an error.
func (s *Store) Delete(ctx context.Context, id string) error {
	if _, err := s.client.DB.ExecContext(ctx, `DELETE FROM claims WHERE id = $1`, id); err != nil {
		return fmt.Errorf("deleting snapshot for %s: %w", id, err)
	}
	return nil
}

// LoadAll returns every stored snapshot. Rows that fail to decode are
// logged and skipped so one corrupt row cannot block rehydration.
func (s *Store) LoadAll(ctx context.Context) ([]Row, error) {
	rows, err := s.client.DB.QueryContext(ctx, `SELECT id, record, ref FROM claims ORDER BY id`)
	if err != nil {
		return nil, fmt.Errorf("loading snapshots: %w", err)
	}
	defer rows.Close()

	var result []Row
	for rows.Next() {
		var id string
		var recJSON, refJSON []byte
		if err := rows.Scan(&id, &recJSON, &refJSON); err != nil {
			return nil, fmt.Errorf("scanning snapshot row: %w", err)
		}
		var row Row
		if err := json.Unmarshal(recJSON, &row.Record); err != nil {
			s.logger.Warn("skipping undecodable snapshot", "id", id, "error", err)
			continue
		}
		if err := json.Unmarshal(refJSON, &row.Ref); err != nil {
			s.logger.Warn("skipping snapshot with undecodable reference", "id", id, "error", err)
			continue
		}
		result = append(result, row)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating snapshots: %w", err)
	}
	return result, nil
}

// Ping verifies the Postgres connection.
func (s *Store) Ping(ctx context.Context) error {
	return s.client.DB.PingContext(ctx)
}
