package store

import (
	"github.com/mashnote/mashnote/internal/model"
)

// matchAgainst scores each imported ingredient against the catalog rows of
// its own type. Both backends load candidates with one query and share this
// scoring pass, so SQLite and Postgres rank identically.
func matchAgainst(imported []model.NormalizedIngredient, byType map[model.IngredientType][]model.Ingredient) []model.MatchResult {
	results := make([]model.MatchResult, len(imported))
	for i, ing := range imported {
		results[i] = model.MatchResult{
			Imported: ing,
			Best:     bestMatch(ing, byType[ing.Type]),
		}
	}
	return results
}

// bestMatch returns the highest-scoring candidate, or nil when the catalog
// offers nothing of the right type. A low score is still a candidate; the
// threshold decision belongs to the caller.
func bestMatch(imported model.NormalizedIngredient, candidates []model.Ingredient) *model.MatchCandidate {
	var best *model.MatchCandidate
	for _, c := range candidates {
		score, reasons := similarity(imported.Name, c.Name)
		if score <= 0 {
			continue
		}
		if best == nil || score > best.Confidence {
			best = &model.MatchCandidate{Ingredient: c, Confidence: score, Reasons: reasons}
		}
	}
	return best
}
