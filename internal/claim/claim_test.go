package claim

import (
	"encoding/json"
	"errors"
	"testing"

	apperrors "github.com/veridex/claimsearch/pkg/errors"
)

func TestTagInputUnmarshalBareString(t *testing.T) {
	var in TagInput
	if err := json.Unmarshal([]byte(`"Climate"`), &in); err != nil {
		t.Fatalf("unmarshal bare string: %v", err)
	}
	if in.Name != "Climate" || in.Category != "" {
		t.Errorf("unexpected result: %+v", in)
	}
}

func TestTagInputUnmarshalObject(t *testing.T) {
	var in TagInput
	if err := json.Unmarshal([]byte(`{"name":"economy","category":"topic","added_by":"alice"}`), &in); err != nil {
		t.Fatalf("unmarshal object: %v", err)
	}
	if in.Name != "economy" || in.Category != "topic" || in.AddedBy != "alice" {
		t.Errorf("unexpected result: %+v", in)
	}
}

func TestValidateRequiredFields(t *testing.T) {
	req := IngestRequest{Status: "verified"}
	err := req.Validate()
	if err == nil {
		t.Fatal("expected validation error")
	}
	if !errors.Is(err, apperrors.ErrInvalidInput) {
		t.Errorf("validation error should unwrap to ErrInvalidInput, got %v", err)
	}

	var vErr *ValidationError
	if !errors.As(err, &vErr) {
		t.Fatalf("expected *ValidationError, got %T", err)
	}
	for _, field := range []string{"id", "title", "author"} {
		if _, ok := vErr.Fields[field]; !ok {
			t.Errorf("missing validation failure for %q: %v", field, vErr.Fields)
		}
	}
}

func TestValidateStatusAndTagCategory(t *testing.T) {
	req := IngestRequest{
		ID:     "c1",
		Title:  "t",
		Author: "a",
		Status: "bogus",
		Tags:   []TagInput{{Name: "x", Category: "nope"}},
	}
	err := req.Validate()
	var vErr *ValidationError
	if !errors.As(err, &vErr) {
		t.Fatalf("expected *ValidationError, got %v", err)
	}
	if _, ok := vErr.Fields["status"]; !ok {
		t.Error("expected status failure")
	}
	if _, ok := vErr.Fields["tags[0]"]; !ok {
		t.Error("expected tag category failure")
	}
}

func TestValidateAcceptsBareAndEmptyTags(t *testing.T) {
	req := IngestRequest{
		ID:     "c1",
		Title:  "t",
		Author: "a",
		Status: "Under_Review",
		Tags:   []TagInput{{Name: ""}, {Name: "bare"}},
	}
	if err := req.Validate(); err != nil {
		t.Fatalf("expected valid request, got %v", err)
	}
}
