package importer

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/mashnote/mashnote/internal/model"
)

// Creator is the ingredient-creation collaborator. CreateIngredients is a
// single batch call; the response order is not contractually tied to the
// input order, which is why resolution falls back through three tiers.
type Creator interface {
	CreateIngredients(ctx context.Context, drafts []model.IngredientDraft) ([]model.Ingredient, error)
}

// CreateError reports a creation collaborator fault.
type CreateError struct {
	Err error
}

func (e *CreateError) Error() string {
	return fmt.Sprintf("importer: create ingredients: %v", e.Err)
}

func (e *CreateError) Unwrap() error {
	return e.Err
}

// ReconcileDiagnostic records a decision whose created-ingredient id could
// not be resolved by any tier. Callers surface these as a "needs re-linking"
// affordance instead of relying on a downstream store rejection.
type ReconcileDiagnostic struct {
	Index             int    `json:"index"`
	Name              string `json:"name"`
	ExpectedCreations int    `json:"expected_creations"`
	CreatedCount      int    `json:"created_count"`
	ComputedIndex     int    `json:"computed_index"`
}

// Reconcile maps every decision to a finalized ingredient. All create_new
// drafts go to the store in one batch; each decision then resolves its
// persisted id through three tiers, each consulted only if the prior one
// fails to yield an id:
//
//  1. identity: the decision's draft is the same object as a batch input
//  2. structural: a batch input matches the draft's name and type
//  3. ordinal: the decision's position among create_new decisions
//
// A decision no tier can resolve keeps its prior id with Resolved=false and
// produces a diagnostic; reconciliation never aborts over it.
func Reconcile(ctx context.Context, c Creator, decisions []model.Decision) ([]model.FinalizedIngredient, []ReconcileDiagnostic, error) {
	var inputs []*model.IngredientDraft
	for _, d := range decisions {
		if d.Action == model.ActionCreateNew && d.Draft != nil {
			inputs = append(inputs, d.Draft)
		}
	}

	var created []model.Ingredient
	if len(inputs) > 0 {
		drafts := make([]model.IngredientDraft, len(inputs))
		for i, p := range inputs {
			drafts[i] = *p
		}
		var err error
		created, err = c.CreateIngredients(ctx, drafts)
		if err != nil {
			return nil, nil, &CreateError{Err: err}
		}
		if len(created) < len(drafts) {
			zap.L().Warn("importer: creation response shorter than batch",
				zap.Int("requested", len(drafts)),
				zap.Int("created", len(created)),
			)
		}
	}

	return resolveDecisions(decisions, inputs, created)
}

// resolveDecisions is the resolution half of Reconcile, split out so that
// the tier fallback can be exercised against a creation batch that did not
// originate from these exact decision objects (e.g., a session restored from
// its serialized form).
func resolveDecisions(decisions []model.Decision, inputs []*model.IngredientDraft, created []model.Ingredient) ([]model.FinalizedIngredient, []ReconcileDiagnostic, error) {
	finalized := make([]model.FinalizedIngredient, len(decisions))
	var diags []ReconcileDiagnostic

	ordinal := 0
	for i, d := range decisions {
		fin := model.FinalizedIngredient{NormalizedIngredient: d.Source}

		switch d.Action {
		case model.ActionUseExisting:
			if d.Match != nil {
				// The persisted id and canonical name win; the imported
				// amount, unit, and usage context stay.
				fin.ID = d.Match.ID
				fin.Name = d.Match.Name
				fin.Resolved = true
			}

		case model.ActionCreateNew:
			ordinal++
			idx, ok := resolveCreatedIndex(d.Draft, inputs, created, ordinal)
			if ok {
				fin.ID = created[idx].ID
				fin.Name = created[idx].Name
				fin.Resolved = true
				break
			}
			diags = append(diags, ReconcileDiagnostic{
				Index:             i,
				Name:              d.Source.Name,
				ExpectedCreations: len(inputs),
				CreatedCount:      len(created),
				ComputedIndex:     idx,
			})
			zap.L().Error("importer: could not resolve created ingredient",
				zap.Int("decision_index", i),
				zap.String("name", d.Source.Name),
				zap.Int("expected_creations", len(inputs)),
				zap.Int("created_count", len(created)),
				zap.Int("computed_index", idx),
				zap.Any("created", created),
			)
		}

		finalized[i] = fin
	}

	return finalized, diags, nil
}

// resolveCreatedIndex walks the three tiers. Each tier yields an index into
// the creation response; a tier whose index falls outside the response (a
// truncated or partially failed batch) counts as failed and the next tier is
// consulted. The returned index is the last one computed, for diagnostics.
func resolveCreatedIndex(draft *model.IngredientDraft, inputs []*model.IngredientDraft, created []model.Ingredient, ordinal int) (int, bool) {
	idx := -1

	// Tier 1: object identity against the batch input list.
	if draft != nil {
		for j, p := range inputs {
			if p == draft {
				idx = j
				break
			}
		}
		if idx >= 0 && idx < len(created) {
			return idx, true
		}
	}

	// Tier 2: structural match on name and type.
	if draft != nil {
		for j, p := range inputs {
			if p.Name == draft.Name && p.Type == draft.Type {
				idx = j
				break
			}
		}
		if idx >= 0 && idx < len(created) {
			return idx, true
		}
	}

	// Tier 3: ordinal position among create_new decisions.
	idx = ordinal - 1
	if idx >= 0 && idx < len(created) {
		return idx, true
	}

	return idx, false
}
