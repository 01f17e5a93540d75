package catalog

import "sort"

// ValueCount is one value in a dimension and the number of records holding it.
type ValueCount struct {
	Value string `json:"value"`
	Count int    `json:"count"`
}

// DimensionStats describes one index dimension for analytics collaborators.
type DimensionStats struct {
	Cardinality int          `json:"cardinality"`
	TopValues   []ValueCount `json:"top_values,omitempty"`
}

// Stats is the per-dimension view of the index plus the live record count.
type Stats struct {
	Records    int                          `json:"records"`
	Dimensions map[Dimension]DimensionStats `json:"dimensions"`
}

// Stats returns per-dimension cardinality and the topN most populous values
// of each dimension, ordered by count descending with ties broken by value
// ascending so the output is deterministic.
func (c *Catalog) Stats(topN int) Stats {
	c.mu.RLock()
	defer c.mu.RUnlock()

	stats := Stats{
		Records:    len(c.records),
		Dimensions: make(map[Dimension]DimensionStats, len(Dimensions)),
	}
	for _, dim := range Dimensions {
		postings := c.dims[dim]
		counts := make([]ValueCount, 0, len(postings))
		for value, p := range postings {
			counts = append(counts, ValueCount{Value: value, Count: len(p.ids)})
		}
		sort.Slice(counts, func(i, j int) bool {
			if counts[i].Count != counts[j].Count {
				return counts[i].Count > counts[j].Count
			}
			return counts[i].Value < counts[j].Value
		})
		top := counts
		if topN > 0 && len(top) > topN {
			top = top[:topN]
		}
		stats.Dimensions[dim] = DimensionStats{
			Cardinality: len(postings),
			TopValues:   top,
		}
	}
	return stats
}
