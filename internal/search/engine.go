// Package search implements the query engine: it resolves discrete criteria
// against the catalog's inverted index, applies numeric and date post-filters
// on the hydrated records, sorts, and paginates.
package search

import (
	"context"
	"log/slog"
	"sort"
	"strings"
	"time"

	"github.com/veridex/claimsearch/internal/catalog"
	"github.com/veridex/claimsearch/internal/claim"
	"github.com/veridex/claimsearch/pkg/config"
)

// Sort modes accepted by Request.SortBy.
const (
	SortByRecency    = "recency"
	SortByImportance = "importance"
	SortByRelevance  = "relevance"
)

// Request is the search contract. Discrete dimension lists are resolved
// through the index; MinImportance and the Since/Until date range are
// post-filters on hydrated records.
type Request struct {
	Tags       []string `json:"tags,omitempty"`
	Categories []string `json:"categories,omitempty"`
	Keywords   []string `json:"keywords,omitempty"`
	Authors    []string `json:"authors,omitempty"`
	Regions    []string `json:"regions,omitempty"`
	Statuses   []string `json:"statuses,omitempty"`

	MinImportance *int       `json:"min_importance,omitempty"`
	Since         *time.Time `json:"since,omitempty"`
	Until         *time.Time `json:"until,omitempty"`

	Limit     int    `json:"limit,omitempty"`
	Offset    int    `json:"offset,omitempty"`
	SortBy    string `json:"sort_by,omitempty"`
	SortOrder string `json:"sort_order,omitempty"`
}

// Response carries one page of results plus the pre-pagination total.
type Response struct {
	Records    []claim.Record `json:"records"`
	TotalCount int            `json:"total_count"`
	HasMore    bool           `json:"has_more"`
}

// Engine executes search requests against a catalog.
type Engine struct {
	catalog *catalog.Catalog
	cfg     config.SearchConfig
	weights ScoreWeights
	logger  *slog.Logger
}

// New creates an Engine with scoring weights taken from the search config.
func New(cat *catalog.Catalog, cfg config.SearchConfig) *Engine {
	return &Engine{
		catalog: cat,
		cfg:     cfg,
		weights: WeightsFromConfig(cfg),
		logger:  slog.Default().With("component", "search-engine"),
	}
}

// Search runs the full pipeline: index query, hydrate, post-filter, sort,
// paginate. A request with no discrete criteria matches nothing; callers
// wanting everything use the registry's list operation. The result is
// deterministic for identical catalog state.
func (e *Engine) Search(ctx context.Context, req Request) (Response, error) {
	start := time.Now()

	criteria := catalog.Criteria{
		Tags:       req.Tags,
		Keywords:   req.Keywords,
		Categories: req.Categories,
		Authors:    req.Authors,
		Regions:    req.Regions,
		Statuses:   req.Statuses,
	}
	if criteria.Empty() {
		return Response{Records: []claim.Record{}}, nil
	}

	entries := e.catalog.Query(criteria)
	records := make([]claim.Record, 0, len(entries))
	for _, entry := range entries {
		if !e.passesFilters(entry.Record, req) {
			continue
		}
		records = append(records, entry.Record)
	}

	e.sortRecords(records, req)

	total := len(records)
	page := paginate(records, e.normalizeLimit(req.Limit), max(req.Offset, 0))

	e.logger.Debug("search executed",
		"candidates", len(entries),
		"total", total,
		"returned", len(page),
		"sort_by", req.SortBy,
		"duration", time.Since(start),
	)

	return Response{
		Records:    page,
		TotalCount: total,
		HasMore:    max(req.Offset, 0)+len(page) < total,
	}, nil
}

func (e *Engine) passesFilters(rec claim.Record, req Request) bool {
	if req.MinImportance != nil && rec.Importance < *req.MinImportance {
		return false
	}
	if req.Since != nil && rec.CreatedAt.Before(*req.Since) {
		return false
	}
	if req.Until != nil && rec.CreatedAt.After(*req.Until) {
		return false
	}
	return true
}

// sortRecords orders results by the requested mode. Ties always fall back to
// recency descending, then id ascending, so pagination is stable.
func (e *Engine) sortRecords(records []claim.Record, req Request) {
	ascending := strings.EqualFold(req.SortOrder, "asc")

	var less func(a, b claim.Record) int
	switch req.SortBy {
	case SortByImportance:
		less = func(a, b claim.Record) int {
			return a.Importance - b.Importance
		}
	case SortByRelevance:
		terms := scoringTerms(req)
		scores := make(map[string]float64, len(records))
		for _, rec := range records {
			scores[rec.ID] = relevanceScore(rec, terms, e.weights)
		}
		less = func(a, b claim.Record) int {
			switch {
			case scores[a.ID] < scores[b.ID]:
				return -1
			case scores[a.ID] > scores[b.ID]:
				return 1
			}
			return 0
		}
	default: // recency
		less = func(a, b claim.Record) int {
			return a.UpdatedAt.Compare(b.UpdatedAt)
		}
	}

	sort.SliceStable(records, func(i, j int) bool {
		cmp := less(records[i], records[j])
		if !ascending {
			cmp = -cmp
		}
		if cmp != 0 {
			return cmp < 0
		}
		if !records[i].UpdatedAt.Equal(records[j].UpdatedAt) {
			return records[i].UpdatedAt.After(records[j].UpdatedAt)
		}
		return records[i].ID < records[j].ID
	})
}

func (e *Engine) normalizeLimit(limit int) int {
	if limit <= 0 {
		return e.cfg.DefaultLimit
	}
	if e.cfg.MaxLimit > 0 && limit > e.cfg.MaxLimit {
		return e.cfg.MaxLimit
	}
	return limit
}

func paginate(records []claim.Record, limit, offset int) []claim.Record {
	if offset >= len(records) {
		return []claim.Record{}
	}
	end := offset + limit
	if end > len(records) {
		end = len(records)
	}
	return records[offset:end]
}
