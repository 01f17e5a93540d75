package claim

import (
	"strings"
	"time"
)

// NormalizeTags canonicalizes tag-like inputs into deduplicated Tags. Bare
// strings default to the custom category, names are trimmed and lowercased,
// and duplicate (category, name) pairs collapse to the first occurrence so
// its provenance fields win. Entries with an empty name or an unparseable
// category are dropped; the normalizer never errors.
func NormalizeTags(inputs []TagInput) []Tag {
	if len(inputs) == 0 {
		return nil
	}
	type key struct {
		category Category
		name     string
	}
	seen := make(map[key]struct{}, len(inputs))
	tags := make([]Tag, 0, len(inputs))
	now := time.Now().UTC().Unix()

	for _, in := range inputs {
		name := strings.ToLower(strings.TrimSpace(in.Name))
		if name == "" {
			continue
		}
		category := CategoryCustom
		if in.Category != "" {
			parsed, err := ParseCategory(in.Category)
			if err != nil {
				continue
			}
			category = parsed
		}
		k := key{category: category, name: name}
		if _, dup := seen[k]; dup {
			continue
		}
		seen[k] = struct{}{}
		tag := Tag{
			Name:       name,
			Category:   category,
			Confidence: in.Confidence,
			AddedBy:    in.AddedBy,
		}
		if in.AddedBy != "" {
			tag.AddedAt = now
		}
		tags = append(tags, tag)
	}
	if len(tags) == 0 {
		return nil
	}
	return tags
}
