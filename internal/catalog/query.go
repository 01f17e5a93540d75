package catalog

import (
	"strings"
)

// Criteria is a composite index query: per-dimension value lists with OR
// semantics inside a dimension and AND semantics across the dimensions that
// are supplied. A dimension with no values is excluded from the computation
// entirely; it does not zero out the result.
type Criteria struct {
	Tags       []string
	Keywords   []string
	Categories []string
	Authors    []string
	Regions    []string
	Statuses   []string
}

// Empty reports whether no dimension carries any value.
func (cr Criteria) Empty() bool {
	return len(cr.Tags) == 0 && len(cr.Keywords) == 0 && len(cr.Categories) == 0 &&
		len(cr.Authors) == 0 && len(cr.Regions) == 0 && len(cr.Statuses) == 0
}

// Query resolves the criteria against the inverted index and hydrates the
// matching records, all under one read lock so the result is a consistent
// snapshot. A query with zero supplied dimensions matches nothing; callers
// wanting every record use List. A supplied value with no postings yields an
// empty per-dimension union, which empties the final intersection.
func (c *Catalog) Query(cr Criteria) []Entry {
	if cr.Empty() {
		return nil
	}
	c.mu.RLock()
	defer c.mu.RUnlock()

	// Collect the union per supplied dimension. Tag and keyword values are
	// matched in their normalized (lowercased, trimmed) form.
	sets := make([]map[string]struct{}, 0, len(Dimensions))
	appendDim := func(dim Dimension, values []string, normalize bool) {
		if len(values) == 0 {
			return
		}
		sets = append(sets, c.unionLocked(dim, values, normalize))
	}
	appendDim(DimTag, cr.Tags, true)
	appendDim(DimKeyword, cr.Keywords, true)
	appendDim(DimCategory, cr.Categories, true)
	appendDim(DimAuthor, cr.Authors, false)
	appendDim(DimRegion, cr.Regions, false)
	appendDim(DimStatus, cr.Statuses, true)

	candidates := intersect(sets)
	if len(candidates) == 0 {
		return nil
	}
	entries := make([]Entry, 0, len(candidates))
	for id := range candidates {
		if entry, ok := c.records[id]; ok {
			entries = append(entries, entry)
		}
	}
	return entries
}

// unionLocked returns the union of posting sets for the listed values in one
// dimension. Caller holds at least the read lock.
func (c *Catalog) unionLocked(dim Dimension, values []string, normalize bool) map[string]struct{} {
	union := make(map[string]struct{})
	for _, value := range values {
		if normalize {
			value = strings.ToLower(strings.TrimSpace(value))
		}
		p, ok := c.dims[dim][value]
		if !ok {
			continue
		}
		for id := range p.ids {
			union[id] = struct{}{}
		}
	}
	return union
}

// intersect computes the intersection of the given sets, starting from the
// smallest to keep the candidate set tight.
func intersect(sets []map[string]struct{}) map[string]struct{} {
	if len(sets) == 0 {
		return nil
	}
	smallest := 0
	for i, s := range sets {
		if len(s) < len(sets[smallest]) {
			smallest = i
		}
	}
	result := make(map[string]struct{}, len(sets[smallest]))
	for id := range sets[smallest] {
		result[id] = struct{}{}
	}
	for i, s := range sets {
		if i == smallest {
			continue
		}
		for id := range result {
			if _, ok := s[id]; !ok {
				delete(result, id)
			}
		}
	}
	return result
}
