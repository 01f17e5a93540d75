// Package catalog holds the authoritative in-memory projection of the
// registry: the record store (id → latest snapshot plus storage reference)
// and the six-dimension inverted index. Both structures live behind a single
// RWMutex so a reader can never observe a record present in the store but
// partially removed from the index, or the reverse. All methods are safe for
// concurrent use; writers for the same id serialize on the write lock, which
// makes concurrent duplicate ingests last-writer-wins.
package catalog

import (
	"sort"
	"sync"
	"time"

	"github.com/veridex/claimsearch/internal/claim"
	"github.com/veridex/claimsearch/internal/storage"
)

// Dimension identifies one facet of the inverted index.
type Dimension string

const (
	DimTag      Dimension = "tag"
	DimKeyword  Dimension = "keyword"
	DimCategory Dimension = "category"
	DimAuthor   Dimension = "author"
	DimRegion   Dimension = "region"
	DimStatus   Dimension = "status"
)

// Dimensions lists every index dimension in a fixed order.
var Dimensions = []Dimension{DimTag, DimKeyword, DimCategory, DimAuthor, DimRegion, DimStatus}

// Entry pairs a record snapshot with its blob storage reference.
type Entry struct {
	Record claim.Record
	Ref    storage.Reference
}

// posting is one posting-list entry: the set of record ids holding a value
// in a dimension, plus the time of the last membership change.
type posting struct {
	ids       map[string]struct{}
	updatedAt time.Time
}

// Catalog is the combined record store and inverted index.
type Catalog struct {
	mu      sync.RWMutex
	records map[string]Entry
	dims    map[Dimension]map[string]*posting
}

// New creates an empty Catalog.
func New() *Catalog {
	c := &Catalog{
		records: make(map[string]Entry),
		dims:    make(map[Dimension]map[string]*posting, len(Dimensions)),
	}
	for _, dim := range Dimensions {
		c.dims[dim] = make(map[string]*posting)
	}
	return c
}

// Upsert replaces any prior snapshot for the record's id and rewrites its
// index memberships in the same critical section: prior memberships are
// fully retracted before the new ones are added, never patched in place, so
// no stale or duplicate membership is observable between two updates.
func (c *Catalog) Upsert(rec claim.Record, ref storage.Reference) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if _, exists := c.records[rec.ID]; exists {
		c.retractLocked(rec.ID)
	}
	c.records[rec.ID] = Entry{Record: rec, Ref: ref}
	c.indexLocked(rec)
}

// Delete removes the record and retracts every index membership it held.
// It reports whether the id was present.
func (c *Catalog) Delete(id string) bool {
	c.mu.Lock()
	defer c.mu.Unlock()

	if _, exists := c.records[id]; !exists {
		return false
	}
	c.retractLocked(id)
	delete(c.records, id)
	return true
}

// Get returns a copy of the entry for id.
func (c *Catalog) Get(id string) (Entry, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	entry, ok := c.records[id]
	return entry, ok
}

// List returns every entry, sorted by id for determinism.
func (c *Catalog) List() []Entry {
	c.mu.RLock()
	defer c.mu.RUnlock()
	entries := make([]Entry, 0, len(c.records))
	for _, entry := range c.records {
		entries = append(entries, entry)
	}
	sort.Slice(entries, func(i, j int) bool {
		return entries[i].Record.ID < entries[j].Record.ID
	})
	return entries
}

// Len returns the number of live records.
func (c *Catalog) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.records)
}

// Clear drops every record and posting list. Intended for tests and
// rebuild-from-snapshot.
func (c *Catalog) Clear() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.records = make(map[string]Entry)
	for _, dim := range Dimensions {
		c.dims[dim] = make(map[string]*posting)
	}
}

// indexLocked adds the record's memberships to every dimension. Caller holds
// the write lock.
func (c *Catalog) indexLocked(rec claim.Record) {
	for _, tag := range rec.Tags {
		c.addLocked(DimTag, tag.Name, rec.ID)
		c.addLocked(DimCategory, string(tag.Category), rec.ID)
	}
	for _, kw := range rec.Keywords {
		c.addLocked(DimKeyword, kw, rec.ID)
	}
	c.addLocked(DimAuthor, rec.Author, rec.ID)
	if rec.Region != "" {
		c.addLocked(DimRegion, rec.Region, rec.ID)
	}
	c.addLocked(DimStatus, string(rec.Status), rec.ID)
}

// retractLocked removes the id from every posting list across all
// dimensions, dropping entries whose set becomes empty. The full scan keeps
// retraction correct without a reverse index; per-record membership counts
// are small enough that the scan stays cheap under the write lock.
func (c *Catalog) retractLocked(id string) {
	now := time.Now().UTC()
	for _, dim := range Dimensions {
		for value, p := range c.dims[dim] {
			if _, ok := p.ids[id]; !ok {
				continue
			}
			delete(p.ids, id)
			if len(p.ids) == 0 {
				delete(c.dims[dim], value)
			} else {
				p.updatedAt = now
			}
		}
	}
}

func (c *Catalog) addLocked(dim Dimension, value string, id string) {
	if value == "" {
		return
	}
	p, ok := c.dims[dim][value]
	if !ok {
		p = &posting{ids: make(map[string]struct{})}
		c.dims[dim][value] = p
	}
	p.ids[id] = struct{}{}
	p.updatedAt = time.Now().UTC()
}
