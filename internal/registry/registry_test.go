package registry

import (
	"context"
	"errors"
	"testing"

	"github.com/veridex/claimsearch/internal/catalog"
	"github.com/veridex/claimsearch/internal/claim"
	"github.com/veridex/claimsearch/internal/storage"
	apperrors "github.com/veridex/claimsearch/pkg/errors"
)

// fakeBlobStore keeps blobs in memory and can simulate a degraded tier.
type fakeBlobStore struct {
	blobs    map[string][]byte
	degraded bool
	failing  bool
	stores   int
}

func newFakeBlobStore() *fakeBlobStore {
	return &fakeBlobStore{blobs: make(map[string][]byte)}
}

func (f *fakeBlobStore) Store(ctx context.Context, data []byte) (storage.Reference, error) {
	f.stores++
	if f.failing {
		return storage.Reference{}, apperrors.ErrStorageUnavailable
	}
	id := storage.HashContent(data)
	f.blobs[id] = data
	tier := storage.TierDurable
	if f.degraded {
		tier = storage.TierEphemeral
	}
	return storage.Reference{BlobID: id, ContentHash: id, Tier: tier}, nil
}

func (f *fakeBlobStore) Retrieve(ctx context.Context, ref storage.Reference) ([]byte, error) {
	data, ok := f.blobs[ref.BlobID]
	if !ok {
		return nil, apperrors.ErrBlobNotFound
	}
	return data, nil
}

func validRequest(id string) claim.IngestRequest {
	return claim.IngestRequest{
		ID:          id,
		Title:       "Coastal flood defenses hold",
		Summary:     "Annual inspection confirms barrier integrity",
		FullContent: "full inspection report",
		Tags:        []claim.TagInput{{Name: "Infrastructure", Category: "domain"}, {Name: "flood"}},
		Author:      "alice",
		Status:      "verified",
		Region:      "eu-west",
		Importance:  7,
	}
}

func TestIngestHappyPath(t *testing.T) {
	cat := catalog.New()
	blobs := newFakeBlobStore()
	reg := New(cat, blobs)

	result, err := reg.Ingest(context.Background(), validRequest("c1"))
	if err != nil {
		t.Fatalf("ingest: %v", err)
	}
	if result.ID != "c1" || result.Tier != storage.TierDurable || result.Degraded {
		t.Errorf("unexpected result: %+v", result)
	}

	rec, err := reg.Get("c1")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if rec.Status != claim.StatusVerified || rec.Author != "alice" {
		t.Errorf("record not normalized: %+v", rec)
	}
	if len(rec.Tags) != 2 || rec.Tags[0].Name != "infrastructure" {
		t.Errorf("tags not normalized: %+v", rec.Tags)
	}
	if len(rec.Keywords) == 0 {
		t.Error("keywords not extracted")
	}

	// Indexed and searchable via the catalog.
	entries := cat.Query(catalog.Criteria{Tags: []string{"flood"}})
	if len(entries) != 1 {
		t.Errorf("record not indexed: %v", entries)
	}
}

func TestIngestIndexesLongFormContent(t *testing.T) {
	cat := catalog.New()
	reg := New(cat, newFakeBlobStore())

	req := validRequest("c1")
	req.FullContent = "the xylocarp harvest collapsed after the storm"
	if _, err := reg.Ingest(context.Background(), req); err != nil {
		t.Fatalf("ingest: %v", err)
	}

	rec, err := reg.Get("c1")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	found := false
	for _, kw := range rec.Keywords {
		if kw == "xylocarp" {
			found = true
			break
		}
	}
	if !found {
		t.Errorf("body term missing from keywords: %v", rec.Keywords)
	}

	entries := cat.Query(catalog.Criteria{Keywords: []string{"xylocarp"}})
	if len(entries) != 1 {
		t.Error("record not searchable by a term appearing only in the long-form body")
	}
}

func TestIngestValidationFailureTouchesNothing(t *testing.T) {
	cat := catalog.New()
	blobs := newFakeBlobStore()
	reg := New(cat, blobs)

	req := validRequest("c1")
	req.Author = ""
	if _, err := reg.Ingest(context.Background(), req); !errors.Is(err, apperrors.ErrInvalidInput) {
		t.Fatalf("expected ErrInvalidInput, got %v", err)
	}
	if blobs.stores != 0 {
		t.Error("storage touched for invalid request")
	}
	if cat.Len() != 0 {
		t.Error("catalog touched for invalid request")
	}
}

func TestIngestStorageFailureAborts(t *testing.T) {
	cat := catalog.New()
	blobs := newFakeBlobStore()
	blobs.failing = true
	reg := New(cat, blobs)

	if _, err := reg.Ingest(context.Background(), validRequest("c1")); err == nil {
		t.Fatal("expected storage error")
	}
	if cat.Len() != 0 {
		t.Error("record indexed despite storage failure")
	}
}

func TestIngestDegradedStillSearchable(t *testing.T) {
	cat := catalog.New()
	blobs := newFakeBlobStore()
	blobs.degraded = true
	reg := New(cat, blobs)

	result, err := reg.Ingest(context.Background(), validRequest("c1"))
	if err != nil {
		t.Fatalf("degraded ingest should succeed: %v", err)
	}
	if !result.Degraded || result.Tier != storage.TierEphemeral {
		t.Errorf("expected degraded result, got %+v", result)
	}
	if entries := cat.Query(catalog.Criteria{Authors: []string{"alice"}}); len(entries) != 1 {
		t.Error("degraded record not searchable")
	}
}

func TestReingestPreservesCreatedAt(t *testing.T) {
	cat := catalog.New()
	reg := New(cat, newFakeBlobStore())
	ctx := context.Background()

	if _, err := reg.Ingest(ctx, validRequest("c1")); err != nil {
		t.Fatalf("first ingest: %v", err)
	}
	first, _ := reg.Get("c1")

	req := validRequest("c1")
	req.Title = "Coastal flood defenses breached"
	req.Status = "flagged"
	if _, err := reg.Ingest(ctx, req); err != nil {
		t.Fatalf("re-ingest: %v", err)
	}
	second, _ := reg.Get("c1")

	if !second.CreatedAt.Equal(first.CreatedAt) {
		t.Error("re-ingest must preserve creation time")
	}
	if second.Status != claim.StatusFlagged {
		t.Errorf("re-ingest did not replace record: %+v", second)
	}
	if cat.Len() != 1 {
		t.Errorf("expected 1 record after re-ingest, got %d", cat.Len())
	}
	if entries := cat.Query(catalog.Criteria{Statuses: []string{"verified"}}); len(entries) != 0 {
		t.Error("stale status membership survived re-ingest")
	}
}

func TestContentRoundTrip(t *testing.T) {
	reg := New(catalog.New(), newFakeBlobStore())
	ctx := context.Background()

	if _, err := reg.Ingest(ctx, validRequest("c1")); err != nil {
		t.Fatalf("ingest: %v", err)
	}
	content, err := reg.Content(ctx, "c1")
	if err != nil {
		t.Fatalf("content: %v", err)
	}
	if content.FullContent != "full inspection report" {
		t.Errorf("wrong content: %+v", content)
	}
}

func TestDelete(t *testing.T) {
	cat := catalog.New()
	reg := New(cat, newFakeBlobStore())
	ctx := context.Background()

	if _, err := reg.Ingest(ctx, validRequest("c1")); err != nil {
		t.Fatalf("ingest: %v", err)
	}
	if err := reg.Delete(ctx, "c1"); err != nil {
		t.Fatalf("delete: %v", err)
	}
	if err := reg.Delete(ctx, "c1"); !errors.Is(err, apperrors.ErrClaimNotFound) {
		t.Errorf("expected ErrClaimNotFound, got %v", err)
	}
	if _, err := reg.Get("c1"); !errors.Is(err, apperrors.ErrClaimNotFound) {
		t.Errorf("expected ErrClaimNotFound after delete, got %v", err)
	}
}

func TestMutationHooksFire(t *testing.T) {
	var calls int
	reg := New(catalog.New(), newFakeBlobStore(),
		WithMutationHook(func(ctx context.Context) { calls++ }),
	)
	ctx := context.Background()

	if _, err := reg.Ingest(ctx, validRequest("c1")); err != nil {
		t.Fatalf("ingest: %v", err)
	}
	if err := reg.Delete(ctx, "c1"); err != nil {
		t.Fatalf("delete: %v", err)
	}
	if calls != 2 {
		t.Errorf("expected 2 hook calls, got %d", calls)
	}
}
