package search

import (
	"strings"

	"github.com/veridex/claimsearch/internal/claim"
	"github.com/veridex/claimsearch/pkg/config"
)

// ScoreWeights tunes the relevance formula. Title matches outweigh summary
// matches, which outweigh tag-name matches; verification status scales the
// base score and importance adds a bounded bonus.
type ScoreWeights struct {
	Title            float64
	Summary          float64
	Tag              float64
	VerifiedBoost    float64
	FlaggedPenalty   float64
	ImportanceFactor float64
}

// WeightsFromConfig builds ScoreWeights from the search config, falling back
// to defaults for unset values.
func WeightsFromConfig(cfg config.SearchConfig) ScoreWeights {
	w := ScoreWeights{
		Title:            cfg.TitleWeight,
		Summary:          cfg.SummaryWeight,
		Tag:              cfg.TagWeight,
		VerifiedBoost:    cfg.VerifiedBoost,
		FlaggedPenalty:   cfg.FlaggedPenalty,
		ImportanceFactor: cfg.ImportanceFactor,
	}
	if w.Title <= 0 {
		w.Title = 3.0
	}
	if w.Summary <= 0 {
		w.Summary = 2.0
	}
	if w.Tag <= 0 {
		w.Tag = 1.0
	}
	if w.VerifiedBoost <= 0 {
		w.VerifiedBoost = 1.25
	}
	if w.FlaggedPenalty <= 0 {
		w.FlaggedPenalty = 0.5
	}
	if w.ImportanceFactor <= 0 {
		w.ImportanceFactor = 10.0
	}
	return w
}

// scoringTerms collects the normalized terms a relevance sort scores
// against: the request's keywords and tag values.
func scoringTerms(req Request) []string {
	terms := make([]string, 0, len(req.Keywords)+len(req.Tags))
	seen := make(map[string]struct{})
	for _, raw := range append(append([]string{}, req.Keywords...), req.Tags...) {
		term := strings.ToLower(strings.TrimSpace(raw))
		if term == "" {
			continue
		}
		if _, dup := seen[term]; dup {
			continue
		}
		seen[term] = struct{}{}
		terms = append(terms, term)
	}
	return terms
}

// relevanceScore computes the weighted match score of one record against the
// query terms. With no terms every record scores equally and the recency
// tie-break decides the order.
func relevanceScore(rec claim.Record, terms []string, w ScoreWeights) float64 {
	if len(terms) == 0 {
		return 0
	}

	title := strings.ToLower(rec.Title)
	summary := strings.ToLower(rec.Summary)

	var score float64
	for _, term := range terms {
		if strings.Contains(title, term) {
			score += w.Title
		}
		if strings.Contains(summary, term) {
			score += w.Summary
		}
		for _, tag := range rec.Tags {
			if tag.Name == term {
				score += w.Tag
				break
			}
		}
	}

	switch rec.Status {
	case claim.StatusVerified:
		score *= w.VerifiedBoost
	case claim.StatusFlagged:
		score *= w.FlaggedPenalty
	}

	if rec.Importance > 0 {
		score *= 1 + float64(rec.Importance)/w.ImportanceFactor
	}
	return score
}
