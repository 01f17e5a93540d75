package claim

import (
	"strings"
	"unicode"
	"unicode/utf8"
)

// MaxKeywords caps the keyword list stored per record.
const MaxKeywords = 32

const minKeywordLength = 3

var stopWords = map[string]struct{}{
	"the": {}, "and": {}, "for": {}, "are": {}, "but": {}, "not": {},
	"you": {}, "all": {}, "can": {}, "had": {}, "her": {}, "was": {},
	"one": {}, "our": {}, "out": {}, "has": {}, "him": {}, "his": {},
	"how": {}, "its": {}, "may": {}, "new": {}, "now": {}, "old": {},
	"see": {}, "two": {}, "way": {}, "who": {}, "did": {}, "get": {},
	"any": {}, "that": {}, "this": {}, "with": {}, "from": {}, "they": {},
	"have": {}, "been": {}, "were": {}, "said": {}, "each": {}, "which": {},
	"their": {}, "will": {}, "other": {}, "about": {}, "many": {}, "then": {},
	"them": {}, "these": {}, "some": {}, "would": {}, "into": {}, "more": {},
	"very": {}, "what": {}, "know": {}, "just": {}, "than": {}, "only": {},
	"over": {}, "also": {}, "your": {}, "when": {}, "where": {}, "there": {},
}

// ExtractKeywords builds the bounded keyword list for a record. Candidates
// are collected in a fixed discovery order so index rebuilds are
// reproducible: caller-supplied keywords first, then tokens from the text
// fields (title, summary, long-form body), then normalized tag names. Every
// candidate is lowercased, stripped of characters outside [a-z0-9-], and
// dropped if shorter than three characters or present in the stop-word set.
// The deduplicated list is truncated to MaxKeywords.
func ExtractKeywords(supplied []string, fields []string, tags []Tag) []string {
	seen := make(map[string]struct{})
	keywords := make([]string, 0, MaxKeywords)

	add := func(candidate string) {
		if len(keywords) >= MaxKeywords {
			return
		}
		if utf8.RuneCountInString(candidate) < minKeywordLength {
			return
		}
		if _, stop := stopWords[candidate]; stop {
			return
		}
		if _, dup := seen[candidate]; dup {
			return
		}
		seen[candidate] = struct{}{}
		keywords = append(keywords, candidate)
	}

	for _, kw := range supplied {
		for _, token := range tokenize(kw) {
			add(token)
		}
	}
	for _, field := range fields {
		for _, token := range tokenize(field) {
			add(token)
		}
	}
	for _, tag := range tags {
		for _, token := range tokenize(tag.Name) {
			add(token)
		}
	}
	if len(keywords) == 0 {
		return nil
	}
	return keywords
}

// tokenize lowercases text, replaces every character that is not a letter,
// digit, or hyphen with a space, and splits on whitespace.
func tokenize(text string) []string {
	text = strings.ToLower(text)
	return strings.FieldsFunc(text, func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r) && r != '-'
	})
}
