package importer

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/mashnote/mashnote/internal/model"
)

// Matcher is the ingredient-lookup collaborator: a single batched similarity
// search over the persisted catalog. A missing candidate is a valid result;
// only transport or server faults are errors.
type Matcher interface {
	MatchIngredients(ctx context.Context, imported []model.NormalizedIngredient) ([]model.MatchResult, error)
	MinMatchConfidence() float64
}

// MatchServiceError reports a lookup collaborator fault (network or server),
// as opposed to "no match found", which is a per-ingredient non-error.
type MatchServiceError struct {
	Err error
}

func (e *MatchServiceError) Error() string {
	return fmt.Sprintf("importer: match service: %v", e.Err)
}

func (e *MatchServiceError) Unwrap() error {
	return e.Err
}

// MatchIngredients builds the default decision list for a validated
// ingredient list: one decision per source ingredient, addressable by the
// same index. A candidate at or above the store's minimum confidence
// defaults to use_existing; everything else becomes a create_new draft
// synthesized from the imported row. Re-running on the same list in the same
// order reproduces decisions at the same indices.
func MatchIngredients(ctx context.Context, m Matcher, imported []model.NormalizedIngredient) ([]model.Decision, error) {
	if len(imported) == 0 {
		return []model.Decision{}, nil
	}

	results, err := m.MatchIngredients(ctx, imported)
	if err != nil {
		return nil, &MatchServiceError{Err: err}
	}
	if len(results) != len(imported) {
		return nil, &MatchServiceError{Err: fmt.Errorf("got %d results for %d ingredients", len(results), len(imported))}
	}

	threshold := m.MinMatchConfidence()
	decisions := make([]model.Decision, len(imported))
	for i, ing := range imported {
		res := results[i]
		if res.Best != nil && res.Best.Confidence >= threshold {
			match := res.Best.Ingredient
			decisions[i] = model.Decision{
				Source:     ing,
				Action:     model.ActionUseExisting,
				Confidence: res.Best.Confidence,
				Match:      &match,
			}
			continue
		}

		var confidence float64
		if res.Best != nil {
			confidence = res.Best.Confidence
		}
		decisions[i] = model.Decision{
			Source:     ing,
			Action:     model.ActionCreateNew,
			Confidence: confidence,
			Draft:      draftFromImported(ing),
		}
	}

	zap.L().Info("importer: matching complete",
		zap.Int("ingredients", len(imported)),
		zap.Int("matched", countAction(decisions, model.ActionUseExisting)),
		zap.Int("to_create", countAction(decisions, model.ActionCreateNew)),
	)
	return decisions, nil
}

// draftFromImported synthesizes an ingredient-creation payload from the
// imported row, copying only the attributes that belong to its type.
func draftFromImported(ing model.NormalizedIngredient) *model.IngredientDraft {
	d := &model.IngredientDraft{
		ClientRef: uuid.New().String(),
		Name:      ing.Name,
		Type:      ing.Type,
	}
	switch ing.Type {
	case model.TypeGrain:
		if ing.Grain != nil {
			d.Potential = ing.Grain.Potential
			d.Color = ing.Grain.Color
			d.GrainType = ing.Grain.GrainType
		}
	case model.TypeHop:
		if ing.Hop != nil {
			d.AlphaAcid = ing.Hop.AlphaAcid
		}
	case model.TypeYeast:
		if ing.Yeast != nil {
			d.Attenuation = ing.Yeast.Attenuation
		}
	}
	if ing.Origin != "" {
		d.Notes = fmt.Sprintf("Imported from BeerXML (origin: %s)", ing.Origin)
	} else {
		d.Notes = "Imported from BeerXML"
	}
	return d
}

func countAction(decisions []model.Decision, action model.DecisionAction) int {
	n := 0
	for _, d := range decisions {
		if d.Action == action {
			n++
		}
	}
	return n
}
