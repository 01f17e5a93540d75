package search

import (
	"context"
	"testing"
	"time"

	"github.com/veridex/claimsearch/internal/catalog"
	"github.com/veridex/claimsearch/internal/claim"
	"github.com/veridex/claimsearch/internal/storage"
	"github.com/veridex/claimsearch/pkg/config"
)

func testConfig() config.SearchConfig {
	return config.SearchConfig{
		DefaultLimit:     20,
		MaxLimit:         100,
		TitleWeight:      3.0,
		SummaryWeight:    2.0,
		TagWeight:        1.0,
		VerifiedBoost:    1.25,
		FlaggedPenalty:   0.5,
		ImportanceFactor: 10.0,
	}
}

func seedEngine(t *testing.T, records ...claim.Record) *Engine {
	t.Helper()
	cat := catalog.New()
	for _, rec := range records {
		cat.Upsert(rec, storage.Reference{BlobID: "blob-" + rec.ID, Tier: storage.TierDurable})
	}
	return New(cat, testConfig())
}

func rec(id string, mutate func(*claim.Record)) claim.Record {
	r := claim.Record{
		ID:        id,
		Title:     "claim " + id,
		Summary:   "summary",
		Status:    claim.StatusVerified,
		Author:    "alice",
		Keywords:  []string{"flood"},
		CreatedAt: time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC),
		UpdatedAt: time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC),
	}
	if mutate != nil {
		mutate(&r)
	}
	return r
}

func resultIDs(resp Response) []string {
	ids := make([]string, 0, len(resp.Records))
	for _, r := range resp.Records {
		ids = append(ids, r.ID)
	}
	return ids
}

func TestSearchEmptyRequest(t *testing.T) {
	e := seedEngine(t, rec("c1", nil))
	resp, err := e.Search(context.Background(), Request{})
	if err != nil {
		t.Fatalf("search: %v", err)
	}
	if resp.TotalCount != 0 || len(resp.Records) != 0 || resp.HasMore {
		t.Errorf("empty request must match nothing, got %+v", resp)
	}
}

func TestSearchPostFilters(t *testing.T) {
	e := seedEngine(t,
		rec("low", func(r *claim.Record) { r.Importance = 2 }),
		rec("high", func(r *claim.Record) { r.Importance = 8 }),
		rec("old", func(r *claim.Record) {
			r.Importance = 8
			r.CreatedAt = time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
		}),
	)

	minImportance := 5
	since := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	resp, err := e.Search(context.Background(), Request{
		Keywords:      []string{"flood"},
		MinImportance: &minImportance,
		Since:         &since,
	})
	if err != nil {
		t.Fatalf("search: %v", err)
	}
	if got := resultIDs(resp); len(got) != 1 || got[0] != "high" {
		t.Errorf("post-filters wrong, got %v", got)
	}
	if resp.TotalCount != 1 {
		t.Errorf("total count should reflect post-filters, got %d", resp.TotalCount)
	}
}

func TestSearchSortRecency(t *testing.T) {
	e := seedEngine(t,
		rec("older", func(r *claim.Record) { r.UpdatedAt = time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC) }),
		rec("newer", func(r *claim.Record) { r.UpdatedAt = time.Date(2026, 6, 1, 0, 0, 0, 0, time.UTC) }),
	)

	resp, err := e.Search(context.Background(), Request{Keywords: []string{"flood"}})
	if err != nil {
		t.Fatalf("search: %v", err)
	}
	got := resultIDs(resp)
	if len(got) != 2 || got[0] != "newer" {
		t.Errorf("default recency order wrong: %v", got)
	}

	resp, err = e.Search(context.Background(), Request{Keywords: []string{"flood"}, SortOrder: "asc"})
	if err != nil {
		t.Fatalf("search: %v", err)
	}
	if got := resultIDs(resp); got[0] != "older" {
		t.Errorf("ascending recency order wrong: %v", got)
	}
}

func TestSearchSortImportance(t *testing.T) {
	e := seedEngine(t,
		rec("mid", func(r *claim.Record) { r.Importance = 5 }),
		rec("top", func(r *claim.Record) { r.Importance = 9 }),
		rec("low", func(r *claim.Record) { r.Importance = 1 }),
	)
	resp, err := e.Search(context.Background(), Request{Keywords: []string{"flood"}, SortBy: SortByImportance})
	if err != nil {
		t.Fatalf("search: %v", err)
	}
	got := resultIDs(resp)
	want := []string{"top", "mid", "low"}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("importance order wrong: got %v want %v", got, want)
		}
	}
}

func TestSearchSortRelevance(t *testing.T) {
	e := seedEngine(t,
		rec("title-hit", func(r *claim.Record) {
			r.Title = "flood risk assessment"
		}),
		rec("summary-hit", func(r *claim.Record) {
			r.Summary = "covers flood defenses"
		}),
		rec("flagged-title-hit", func(r *claim.Record) {
			r.Title = "flood risk assessment"
			r.Status = claim.StatusFlagged
		}),
	)

	resp, err := e.Search(context.Background(), Request{
		Keywords: []string{"flood"},
		SortBy:   SortByRelevance,
	})
	if err != nil {
		t.Fatalf("search: %v", err)
	}
	got := resultIDs(resp)
	// Verified title match (3.0 * 1.25) beats verified summary match
	// (2.0 * 1.25) beats flagged title match (3.0 * 0.5).
	want := []string{"title-hit", "summary-hit", "flagged-title-hit"}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("relevance order wrong: got %v want %v", got, want)
		}
	}
}

func TestSearchPaginationStable(t *testing.T) {
	var records []claim.Record
	for _, id := range []string{"a", "b", "c", "d", "e"} {
		records = append(records, rec(id, nil))
	}
	e := seedEngine(t, records...)

	var collected []string
	for offset := 0; ; offset += 2 {
		resp, err := e.Search(context.Background(), Request{
			Keywords: []string{"flood"},
			Limit:    2,
			Offset:   offset,
		})
		if err != nil {
			t.Fatalf("search: %v", err)
		}
		if resp.TotalCount != 5 {
			t.Fatalf("total count changed mid-pagination: %d", resp.TotalCount)
		}
		collected = append(collected, resultIDs(resp)...)
		if !resp.HasMore {
			break
		}
	}

	if len(collected) != 5 {
		t.Fatalf("pagination lost or duplicated records: %v", collected)
	}
	seen := make(map[string]bool)
	for _, id := range collected {
		if seen[id] {
			t.Fatalf("duplicate id %s across pages: %v", id, collected)
		}
		seen[id] = true
	}
}

func TestSearchLimitClamped(t *testing.T) {
	var records []claim.Record
	for i := 0; i < 3; i++ {
		records = append(records, rec(string(rune('a'+i)), nil))
	}
	e := seedEngine(t, records...)

	resp, err := e.Search(context.Background(), Request{Keywords: []string{"flood"}, Limit: 1000})
	if err != nil {
		t.Fatalf("search: %v", err)
	}
	if len(resp.Records) != 3 {
		t.Errorf("expected all 3 records, got %d", len(resp.Records))
	}

	resp, err = e.Search(context.Background(), Request{Keywords: []string{"flood"}})
	if err != nil {
		t.Fatalf("search: %v", err)
	}
	if len(resp.Records) != 3 || resp.HasMore {
		t.Errorf("default limit handling wrong: %+v", resp)
	}
}
