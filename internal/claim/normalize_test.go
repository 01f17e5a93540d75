package claim

import (
	"reflect"
	"testing"
)

func TestNormalizeTagsCanonicalizes(t *testing.T) {
	tags := NormalizeTags([]TagInput{
		{Name: "  Climate  "},
		{Name: "ECONOMY", Category: "topic"},
	})

	if len(tags) != 2 {
		t.Fatalf("expected 2 tags, got %d", len(tags))
	}
	if tags[0].Name != "climate" || tags[0].Category != CategoryCustom {
		t.Errorf("bare tag not normalized: %+v", tags[0])
	}
	if tags[1].Name != "economy" || tags[1].Category != CategoryTopic {
		t.Errorf("structured tag not normalized: %+v", tags[1])
	}
}

func TestNormalizeTagsDedupFirstWins(t *testing.T) {
	tags := NormalizeTags([]TagInput{
		{Name: "Health", Category: "topic", AddedBy: "alice"},
		{Name: "  health ", Category: "Topic", AddedBy: "bob"},
		{Name: "health"}, // different category, kept
	})

	if len(tags) != 2 {
		t.Fatalf("expected 2 tags after dedup, got %d: %+v", len(tags), tags)
	}
	if tags[0].AddedBy != "alice" {
		t.Errorf("first occurrence should win, got AddedBy=%q", tags[0].AddedBy)
	}
	if tags[1].Category != CategoryCustom {
		t.Errorf("same name under custom category should survive, got %+v", tags[1])
	}
}

func TestNormalizeTagsDropsMalformed(t *testing.T) {
	tags := NormalizeTags([]TagInput{
		{Name: ""},
		{Name: "   "},
		{Name: "ok", Category: "no-such-category"},
	})
	if tags != nil {
		t.Fatalf("expected nil for all-malformed input, got %+v", tags)
	}
}

func TestNormalizeTagsDeterministic(t *testing.T) {
	inputs := []TagInput{
		{Name: "One", Category: "domain"},
		{Name: "two"},
		{Name: "Three", Category: "urgency"},
	}
	first := NormalizeTags(inputs)
	second := NormalizeTags(inputs)

	// AddedAt is only stamped when provenance is present, so the outputs
	// must be byte-equal.
	if !reflect.DeepEqual(first, second) {
		t.Errorf("normalization not deterministic:\n%+v\n%+v", first, second)
	}
}
