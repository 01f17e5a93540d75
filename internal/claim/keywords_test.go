package claim

import (
	"fmt"
	"reflect"
	"strings"
	"testing"
)

func TestExtractKeywordsDiscoveryOrder(t *testing.T) {
	keywords := ExtractKeywords(
		[]string{"Vaccination"},
		[]string{"Hospital capacity report", "regional capacity numbers"},
		[]Tag{{Name: "epidemiology"}},
	)

	want := []string{"vaccination", "hospital", "capacity", "report", "regional", "numbers", "epidemiology"}
	if !reflect.DeepEqual(keywords, want) {
		t.Errorf("unexpected keyword order:\n got %v\nwant %v", keywords, want)
	}
}

func TestExtractKeywordsFiltering(t *testing.T) {
	tests := []struct {
		name   string
		fields []string
		want   []string
	}{
		{
			name:   "stop words dropped",
			fields: []string{"the report and its findings"},
			want:   []string{"report", "findings"},
		},
		{
			name:   "short tokens dropped",
			fields: []string{"ai ml nlp-based analysis"},
			want:   []string{"nlp-based", "analysis"},
		},
		{
			name:   "punctuation stripped",
			fields: []string{"COVID-19, vaccines; efficacy(95%)"},
			want:   []string{"covid-19", "vaccines", "efficacy"},
		},
		{
			name:   "duplicates collapse",
			fields: []string{"flood flood Flood flooding"},
			want:   []string{"flood", "flooding"},
		},
		{
			name:   "length counted in runes",
			fields: []string{"日本 气候风险 analysis"},
			want:   []string{"气候风险", "analysis"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := ExtractKeywords(nil, tt.fields, nil)
			if !reflect.DeepEqual(got, tt.want) {
				t.Errorf("got %v, want %v", got, tt.want)
			}
		})
	}
}

func TestExtractKeywordsCap(t *testing.T) {
	var words []string
	for i := 0; i < 50; i++ {
		words = append(words, fmt.Sprintf("keyword%02d", i))
	}
	keywords := ExtractKeywords(nil, []string{strings.Join(words, " ")}, nil)

	if len(keywords) != MaxKeywords {
		t.Fatalf("expected cap at %d keywords, got %d", MaxKeywords, len(keywords))
	}
	// The cap keeps the earliest candidates.
	if keywords[0] != "keyword00" || keywords[MaxKeywords-1] != fmt.Sprintf("keyword%02d", MaxKeywords-1) {
		t.Errorf("cap did not preserve discovery order: first=%s last=%s", keywords[0], keywords[len(keywords)-1])
	}
}

func TestExtractKeywordsEmpty(t *testing.T) {
	if got := ExtractKeywords(nil, []string{"a an it the"}, nil); got != nil {
		t.Errorf("expected nil when nothing qualifies, got %v", got)
	}
}

func BenchmarkExtractKeywords(b *testing.B) {
	fields := []string{
		"Regional hospital capacity under sustained heatwave conditions",
		strings.Repeat("long-form analysis of capacity trends across regions with seasonal variation ", 20),
	}
	tags := []Tag{{Name: "heatwave"}, {Name: "infrastructure"}}
	b.ReportAllocs()
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		ExtractKeywords([]string{"capacity"}, fields, tags)
	}
}
