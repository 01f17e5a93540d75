// Package registry orchestrates the write and read paths of the claim
// registry. Ingest validates and normalizes a request, persists the
// authoritative content to blob storage, and only then updates the catalog,
// so a claim is never searchable before its content has landed on a tier.
package registry

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/veridex/claimsearch/internal/catalog"
	"github.com/veridex/claimsearch/internal/claim"
	"github.com/veridex/claimsearch/internal/storage"
	apperrors "github.com/veridex/claimsearch/pkg/errors"
	"github.com/veridex/claimsearch/pkg/metrics"
)

// BlobStore is the storage dependency of the registry. The fallback
// controller satisfies it in production; tests use a fake.
type BlobStore interface {
	Store(ctx context.Context, data []byte) (storage.Reference, error)
	Retrieve(ctx context.Context, ref storage.Reference) ([]byte, error)
}

// Snapshotter persists record snapshots outside the process so the catalog
// can be rebuilt after a restart. All snapshot calls are best-effort.
type Snapshotter interface {
	Save(ctx context.Context, rec claim.Record, ref storage.Reference) error
	Delete(ctx context.Context, id string) error
}

// IngestResult reports where an ingested claim's content landed.
type IngestResult struct {
	ID       string       `json:"id"`
	Tier     storage.Tier `json:"tier"`
	Degraded bool         `json:"degraded"`
}

// Registry ties the catalog, blob storage, and optional collaborators
// together behind the operations transports call.
type Registry struct {
	catalog  *catalog.Catalog
	blobs    BlobStore
	snapshot Snapshotter
	metrics  *metrics.Metrics
	onMutate []func(context.Context)
	logger   *slog.Logger
	now      func() time.Time
}

// Option configures optional registry collaborators.
type Option func(*Registry)

// WithSnapshotter attaches a snapshot store.
func WithSnapshotter(s Snapshotter) Option {
	return func(r *Registry) { r.snapshot = s }
}

// WithMetrics attaches Prometheus collectors.
func WithMetrics(m *metrics.Metrics) Option {
	return func(r *Registry) { r.metrics = m }
}

// WithMutationHook registers a callback run after every successful mutation.
// The search cache invalidates itself through one.
func WithMutationHook(fn func(context.Context)) Option {
	return func(r *Registry) { r.onMutate = append(r.onMutate, fn) }
}

// New creates a Registry.
func New(cat *catalog.Catalog, blobs BlobStore, opts ...Option) *Registry {
	r := &Registry{
		catalog: cat,
		blobs:   blobs,
		logger:  slog.Default().With("component", "registry"),
		now:     time.Now,
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Ingest runs the full write path: validate, normalize tags and keywords,
// store the authoritative content, then publish the record to the catalog.
// Re-ingesting an existing id replaces the record wholesale but preserves
// its original creation time. Storage failure aborts the ingest before the
// catalog is touched; a degraded (ephemeral) write still succeeds and is
// reported in the result.
func (r *Registry) Ingest(ctx context.Context, req claim.IngestRequest) (IngestResult, error) {
	if err := req.Validate(); err != nil {
		r.countIngestFailure()
		return IngestResult{}, err
	}

	tags := claim.NormalizeTags(req.Tags)
	keywords := claim.ExtractKeywords(req.Keywords, []string{req.Title, req.Summary, req.FullContent}, tags)
	status, _ := claim.ParseStatus(req.Status)

	content := claim.Content{
		ID:          req.ID,
		Title:       req.Title,
		Summary:     req.Summary,
		FullContent: req.FullContent,
	}
	payload, err := json.Marshal(content)
	if err != nil {
		r.countIngestFailure()
		return IngestResult{}, fmt.Errorf("encoding claim content: %w", err)
	}

	ref, err := r.blobs.Store(ctx, payload)
	if err != nil {
		r.countIngestFailure()
		return IngestResult{}, fmt.Errorf("storing claim content: %w", err)
	}

	now := r.now().UTC()
	rec := claim.Record{
		ID:         req.ID,
		Title:      req.Title,
		Summary:    req.Summary,
		Status:     status,
		Author:     req.Author,
		Tags:       tags,
		Keywords:   keywords,
		Region:     req.Region,
		Importance: req.Importance,
		CreatedAt:  now,
		UpdatedAt:  now,
	}
	if prev, ok := r.catalog.Get(req.ID); ok {
		rec.CreatedAt = prev.Record.CreatedAt
	}

	r.catalog.Upsert(rec, ref)

	if r.snapshot != nil {
		if err := r.snapshot.Save(ctx, rec, ref); err != nil {
			r.logger.Warn("snapshot save failed", "id", rec.ID, "error", err)
		}
	}
	r.runMutationHooks(ctx)

	if r.metrics != nil {
		r.metrics.ClaimsIngestedTotal.WithLabelValues(string(ref.Tier)).Inc()
		r.metrics.TierWritesTotal.WithLabelValues(string(ref.Tier)).Inc()
	}
	r.logger.Info("claim ingested", "id", rec.ID, "tier", string(ref.Tier), "keywords", len(keywords))

	return IngestResult{
		ID:       rec.ID,
		Tier:     ref.Tier,
		Degraded: ref.Tier == storage.TierEphemeral,
	}, nil
}

// Delete removes a claim from the catalog and the snapshot store. The blob
// itself is left in place; content-addressed tiers reclaim unpinned data on
// their own schedule.
func (r *Registry) Delete(ctx context.Context, id string) error {
	if !r.catalog.Delete(id) {
		return apperrors.ErrClaimNotFound
	}
	if r.snapshot != nil {
		if err := r.snapshot.Delete(ctx, id); err != nil {
			r.logger.Warn("snapshot delete failed", "id", id, "error", err)
		}
	}
	r.runMutationHooks(ctx)
	if r.metrics != nil {
		r.metrics.ClaimsDeletedTotal.Inc()
	}
	r.logger.Info("claim deleted", "id", id)
	return nil
}

// Get returns the record snapshot for id.
func (r *Registry) Get(id string) (claim.Record, error) {
	entry, ok := r.catalog.Get(id)
	if !ok {
		return claim.Record{}, apperrors.ErrClaimNotFound
	}
	return entry.Record, nil
}

// Content retrieves and decodes the authoritative content behind a claim,
// verifying it against the content hash recorded at store time.
func (r *Registry) Content(ctx context.Context, id string) (claim.Content, error) {
	entry, ok := r.catalog.Get(id)
	if !ok {
		return claim.Content{}, apperrors.ErrClaimNotFound
	}
	data, err := r.blobs.Retrieve(ctx, entry.Ref)
	if err != nil {
		return claim.Content{}, fmt.Errorf("retrieving content for %s: %w", id, err)
	}
	if entry.Ref.ContentHash != "" && storage.HashContent(data) != entry.Ref.ContentHash {
		return claim.Content{}, fmt.Errorf("content for %s failed hash verification: %w", id, apperrors.ErrInternal)
	}
	var content claim.Content
	if err := json.NewDecoder(bytes.NewReader(data)).Decode(&content); err != nil {
		return claim.Content{}, fmt.Errorf("decoding content for %s: %w", id, err)
	}
	return content, nil
}

// List returns every record, sorted by id.
func (r *Registry) List() []claim.Record {
	entries := r.catalog.List()
	records := make([]claim.Record, 0, len(entries))
	for _, entry := range entries {
		records = append(records, entry.Record)
	}
	return records
}

// Stats returns catalog statistics with the top N values per dimension.
func (r *Registry) Stats(topN int) catalog.Stats {
	return r.catalog.Stats(topN)
}

func (r *Registry) runMutationHooks(ctx context.Context) {
	for _, fn := range r.onMutate {
		fn(ctx)
	}
}

func (r *Registry) countIngestFailure() {
	if r.metrics != nil {
		r.metrics.IngestFailuresTotal.Inc()
	}
}
