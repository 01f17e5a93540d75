// Package claim defines the core data model of the registry: claim records,
// tags with closed categories, verification statuses, and the normalization
// pipeline (tag canonicalization and keyword extraction) that prepares a
// record for indexing.
package claim

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"

	apperrors "github.com/veridex/claimsearch/pkg/errors"
)

// Status is the verification state of a claim.
type Status string

const (
	StatusVerified    Status = "verified"
	StatusUnderReview Status = "under_review"
	StatusFlagged     Status = "flagged"
)

// ParseStatus converts a wire string into a Status.
func ParseStatus(s string) (Status, error) {
	switch Status(strings.ToLower(strings.TrimSpace(s))) {
	case StatusVerified:
		return StatusVerified, nil
	case StatusUnderReview:
		return StatusUnderReview, nil
	case StatusFlagged:
		return StatusFlagged, nil
	}
	return "", fmt.Errorf("unknown status %q", s)
}

// Category is the closed set of tag categories.
type Category string

const (
	CategoryDomain      Category = "domain"
	CategoryTopic       Category = "topic"
	CategoryMethodology Category = "methodology"
	CategoryUrgency     Category = "urgency"
	CategoryRegion      Category = "region"
	CategoryCustom      Category = "custom"
)

// ParseCategory converts a wire string into a Category.
func ParseCategory(s string) (Category, error) {
	switch Category(strings.ToLower(strings.TrimSpace(s))) {
	case CategoryDomain:
		return CategoryDomain, nil
	case CategoryTopic:
		return CategoryTopic, nil
	case CategoryMethodology:
		return CategoryMethodology, nil
	case CategoryUrgency:
		return CategoryUrgency, nil
	case CategoryRegion:
		return CategoryRegion, nil
	case CategoryCustom:
		return CategoryCustom, nil
	}
	return "", fmt.Errorf("unknown tag category %q", s)
}

// Tag is a canonical (category, name) pair attached to a record. Name is
// always trimmed and lowercased by NormalizeTags.
type Tag struct {
	Name       string   `json:"name"`
	Category   Category `json:"category"`
	Confidence float64  `json:"confidence,omitempty"`
	AddedBy    string   `json:"added_by,omitempty"`
	AddedAt    int64    `json:"added_at,omitempty"`
}

// Record is a fully normalized claim snapshot. It is the unit stored in the
// catalog and returned by search.
type Record struct {
	ID         string    `json:"id"`
	Title      string    `json:"title"`
	Summary    string    `json:"summary"`
	Status     Status    `json:"status"`
	Author     string    `json:"author"`
	Tags       []Tag     `json:"tags,omitempty"`
	Keywords   []string  `json:"keywords,omitempty"`
	Region     string    `json:"region,omitempty"`
	Importance int       `json:"importance,omitempty"`
	CreatedAt  time.Time `json:"created_at"`
	UpdatedAt  time.Time `json:"updated_at"`
}

// TagInput is a tag-like value from the ingest contract: either a bare
// string (category defaults to custom) or a {name, category} object.
type TagInput struct {
	Name       string  `json:"name"`
	Category   string  `json:"category,omitempty"`
	Confidence float64 `json:"confidence,omitempty"`
	AddedBy    string  `json:"added_by,omitempty"`
}

// UnmarshalJSON accepts both "tag-name" and {"name": ..., "category": ...}.
func (t *TagInput) UnmarshalJSON(data []byte) error {
	var bare string
	if err := json.Unmarshal(data, &bare); err == nil {
		t.Name = bare
		t.Category = ""
		return nil
	}
	type alias TagInput
	var full alias
	if err := json.Unmarshal(data, &full); err != nil {
		return err
	}
	*t = TagInput(full)
	return nil
}

// IngestRequest is the ingest contract consumed from transport collaborators
// (HTTP handler, Kafka consumer). It is normalized into a Record before
// anything touches storage or the index.
type IngestRequest struct {
	ID          string     `json:"id"`
	Title       string     `json:"title"`
	Summary     string     `json:"summary"`
	FullContent string     `json:"full_content,omitempty"`
	Tags        []TagInput `json:"tags,omitempty"`
	Keywords    []string   `json:"keywords,omitempty"`
	Author      string     `json:"author"`
	Status      string     `json:"status"`
	Region      string     `json:"region,omitempty"`
	Importance  int        `json:"importance,omitempty"`
}

const (
	maxTitleLength   = 1024
	maxSummaryLength = 65536
)

// ValidationError holds per-field validation failure messages.
type ValidationError struct {
	Fields map[string]string
}

func (e *ValidationError) Error() string {
	parts := make([]string, 0, len(e.Fields))
	for field, msg := range e.Fields {
		parts = append(parts, fmt.Sprintf("%s: %s", field, msg))
	}
	return strings.Join(parts, "; ")
}

func (e *ValidationError) Unwrap() error {
	return apperrors.ErrInvalidInput
}

// Validate rejects malformed ingest input at the normalization boundary so
// a bad request is never partially indexed. Structured tags carrying an
// unknown category are a validation error; tag entries with an empty name
// are not (NormalizeTags drops those silently).
func (r *IngestRequest) Validate() error {
	errs := make(map[string]string)

	if strings.TrimSpace(r.ID) == "" {
		errs["id"] = "id is required"
	}
	title := strings.TrimSpace(r.Title)
	if title == "" {
		errs["title"] = "title is required"
	} else if len(title) > maxTitleLength {
		errs["title"] = fmt.Sprintf("title must be at most %d characters", maxTitleLength)
	}
	if len(r.Summary) > maxSummaryLength {
		errs["summary"] = fmt.Sprintf("summary must be at most %d characters", maxSummaryLength)
	}
	if strings.TrimSpace(r.Author) == "" {
		errs["author"] = "author is required"
	}
	if _, err := ParseStatus(r.Status); err != nil {
		errs["status"] = err.Error()
	}
	for i, tag := range r.Tags {
		if tag.Category == "" {
			continue
		}
		if _, err := ParseCategory(tag.Category); err != nil {
			errs[fmt.Sprintf("tags[%d]", i)] = err.Error()
		}
	}
	if len(errs) > 0 {
		return &ValidationError{Fields: errs}
	}
	return nil
}

// Content is the authoritative payload written to blob storage. The catalog
// holds only the searchable projection; the full content lives in the
// durable (or ephemeral) tier.
type Content struct {
	ID          string `json:"id"`
	Title       string `json:"title"`
	Summary     string `json:"summary"`
	FullContent string `json:"full_content,omitempty"`
}
