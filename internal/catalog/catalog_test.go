package catalog

import (
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/veridex/claimsearch/internal/claim"
	"github.com/veridex/claimsearch/internal/storage"
)

func testRecord(id string, mutate func(*claim.Record)) claim.Record {
	rec := claim.Record{
		ID:      id,
		Title:   "title " + id,
		Summary: "summary " + id,
		Status:  claim.StatusVerified,
		Author:  "alice",
		Tags: []claim.Tag{
			{Name: "climate", Category: claim.CategoryTopic},
		},
		Keywords:  []string{"flood", "coastal"},
		Region:    "eu-west",
		CreatedAt: time.Now().UTC(),
		UpdatedAt: time.Now().UTC(),
	}
	if mutate != nil {
		mutate(&rec)
	}
	return rec
}

func testRef(id string) storage.Reference {
	return storage.Reference{BlobID: "blob-" + id, Tier: storage.TierDurable}
}

func ids(entries []Entry) map[string]bool {
	out := make(map[string]bool, len(entries))
	for _, e := range entries {
		out[e.Record.ID] = true
	}
	return out
}

func TestUpsertIndexesEveryDimension(t *testing.T) {
	c := New()
	c.Upsert(testRecord("c1", nil), testRef("c1"))

	tests := []struct {
		name     string
		criteria Criteria
	}{
		{"tag", Criteria{Tags: []string{"climate"}}},
		{"keyword", Criteria{Keywords: []string{"flood"}}},
		{"category", Criteria{Categories: []string{"topic"}}},
		{"author", Criteria{Authors: []string{"alice"}}},
		{"region", Criteria{Regions: []string{"eu-west"}}},
		{"status", Criteria{Statuses: []string{"verified"}}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := c.Query(tt.criteria); !ids(got)["c1"] {
				t.Errorf("record not reachable via %s dimension", tt.name)
			}
		})
	}
}

func TestUpsertRetractsStaleMemberships(t *testing.T) {
	c := New()
	c.Upsert(testRecord("c1", nil), testRef("c1"))

	c.Upsert(testRecord("c1", func(r *claim.Record) {
		r.Tags = []claim.Tag{{Name: "energy", Category: claim.CategoryTopic}}
		r.Keywords = []string{"solar"}
		r.Status = claim.StatusFlagged
	}), testRef("c1"))

	stale := []Criteria{
		{Tags: []string{"climate"}},
		{Keywords: []string{"flood"}},
		{Statuses: []string{"verified"}},
	}
	for _, cr := range stale {
		if got := c.Query(cr); len(got) != 0 {
			t.Errorf("stale membership survived update: %+v matched %v", cr, ids(got))
		}
	}
	if got := c.Query(Criteria{Tags: []string{"energy"}}); !ids(got)["c1"] {
		t.Error("new membership missing after update")
	}
}

func TestDeleteRetractsEverything(t *testing.T) {
	c := New()
	c.Upsert(testRecord("c1", nil), testRef("c1"))

	if !c.Delete("c1") {
		t.Fatal("delete reported record missing")
	}
	if c.Delete("c1") {
		t.Error("second delete should report missing")
	}
	if _, ok := c.Get("c1"); ok {
		t.Error("record still readable after delete")
	}
	if got := c.Query(Criteria{Authors: []string{"alice"}}); len(got) != 0 {
		t.Errorf("index still holds deleted record: %v", ids(got))
	}
	if c.Len() != 0 {
		t.Errorf("expected empty catalog, got %d records", c.Len())
	}
}

func TestQuerySemantics(t *testing.T) {
	c := New()
	c.Upsert(testRecord("c1", nil), testRef("c1"))
	c.Upsert(testRecord("c2", func(r *claim.Record) {
		r.Author = "bob"
		r.Keywords = []string{"flood", "inland"}
	}), testRef("c2"))

	t.Run("or within dimension", func(t *testing.T) {
		got := c.Query(Criteria{Keywords: []string{"coastal", "inland"}})
		if len(got) != 2 {
			t.Errorf("expected both records, got %v", ids(got))
		}
	})
	t.Run("and across dimensions", func(t *testing.T) {
		got := c.Query(Criteria{Keywords: []string{"flood"}, Authors: []string{"bob"}})
		if len(got) != 1 || !ids(got)["c2"] {
			t.Errorf("expected only c2, got %v", ids(got))
		}
	})
	t.Run("empty criteria matches nothing", func(t *testing.T) {
		if got := c.Query(Criteria{}); got != nil {
			t.Errorf("empty criteria must match nothing, got %v", ids(got))
		}
	})
	t.Run("unknown value empties intersection", func(t *testing.T) {
		got := c.Query(Criteria{Keywords: []string{"flood"}, Regions: []string{"nowhere"}})
		if len(got) != 0 {
			t.Errorf("expected empty result, got %v", ids(got))
		}
	})
	t.Run("values normalized", func(t *testing.T) {
		got := c.Query(Criteria{Tags: []string{"  CLIMATE "}})
		if len(got) != 2 {
			t.Errorf("expected normalized tag match, got %v", ids(got))
		}
	})
}

func TestUpsertIdempotent(t *testing.T) {
	c := New()
	rec := testRecord("c1", nil)
	c.Upsert(rec, testRef("c1"))
	c.Upsert(rec, testRef("c1"))

	if c.Len() != 1 {
		t.Fatalf("expected 1 record, got %d", c.Len())
	}
	got := c.Query(Criteria{Keywords: []string{"flood"}})
	if len(got) != 1 {
		t.Errorf("expected single match after double upsert, got %d", len(got))
	}
}

func TestStats(t *testing.T) {
	c := New()
	c.Upsert(testRecord("c1", nil), testRef("c1"))
	c.Upsert(testRecord("c2", func(r *claim.Record) {
		r.Keywords = []string{"flood"}
	}), testRef("c2"))
	c.Upsert(testRecord("c3", func(r *claim.Record) {
		r.Keywords = []string{"drought"}
	}), testRef("c3"))

	stats := c.Stats(1)
	if stats.Records != 3 {
		t.Errorf("expected 3 records, got %d", stats.Records)
	}
	kw := stats.Dimensions[DimKeyword]
	if kw.Cardinality != 3 {
		t.Errorf("expected keyword cardinality 3, got %d", kw.Cardinality)
	}
	if len(kw.TopValues) != 1 || kw.TopValues[0].Value != "flood" || kw.TopValues[0].Count != 2 {
		t.Errorf("unexpected top keyword: %+v", kw.TopValues)
	}
}

func hasKeyword(rec claim.Record, want string) bool {
	for _, kw := range rec.Keywords {
		if kw == want {
			return true
		}
	}
	return false
}

// Writers flip a small set of ids between two disjoint (keyword, status)
// shapes while readers query one shape. Every upsert commits the record and
// its index memberships in one critical section, so a hydrated result must
// always match the criteria it was found by; a mismatch means a reader saw
// the store and the index disagree.
func TestConcurrentReadersNeverSeeTornState(t *testing.T) {
	c := New()
	const writers = 4
	const iterations = 500

	var writerWG sync.WaitGroup
	for w := 0; w < writers; w++ {
		writerWG.Add(1)
		go func(seed int) {
			defer writerWG.Done()
			for i := 0; i < iterations; i++ {
				id := fmt.Sprintf("c%d", (seed+i)%8)
				switch i % 7 {
				case 0:
					c.Delete(id)
				default:
					c.Upsert(testRecord(id, func(r *claim.Record) {
						if i%2 == 0 {
							r.Keywords = []string{"flood"}
							r.Status = claim.StatusVerified
						} else {
							r.Keywords = []string{"drought"}
							r.Status = claim.StatusFlagged
						}
					}), testRef(id))
				}
			}
		}(w)
	}

	stop := make(chan struct{})
	var readerWG sync.WaitGroup
	for r := 0; r < 4; r++ {
		readerWG.Add(1)
		go func() {
			defer readerWG.Done()
			for {
				select {
				case <-stop:
					return
				default:
				}
				for _, entry := range c.Query(Criteria{Keywords: []string{"flood"}, Statuses: []string{"verified"}}) {
					if !hasKeyword(entry.Record, "flood") || entry.Record.Status != claim.StatusVerified {
						t.Errorf("query returned record not matching its criteria: %+v", entry.Record)
						return
					}
				}
				for _, entry := range c.Query(Criteria{Keywords: []string{"drought"}}) {
					if !hasKeyword(entry.Record, "drought") {
						t.Errorf("index membership without matching record state: %+v", entry.Record)
						return
					}
				}
			}
		}()
	}

	writerWG.Wait()
	close(stop)
	readerWG.Wait()
}

func BenchmarkUpsert(b *testing.B) {
	c := New()
	b.ReportAllocs()
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		c.Upsert(testRecord(fmt.Sprintf("c%d", i), nil), storage.Reference{})
	}
}

func BenchmarkQuery(b *testing.B) {
	c := New()
	for i := 0; i < 10000; i++ {
		c.Upsert(testRecord(fmt.Sprintf("c%d", i), func(r *claim.Record) {
			if i%2 == 0 {
				r.Author = "bob"
			}
		}), storage.Reference{})
	}
	cr := Criteria{Keywords: []string{"flood"}, Authors: []string{"bob"}}
	b.ReportAllocs()
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		_ = c.Query(cr)
	}
}
