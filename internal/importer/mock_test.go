package importer

import (
	"context"

	"github.com/mashnote/mashnote/internal/model"
)

// mockMatcher implements Matcher for testing.
type mockMatcher struct {
	results   []model.MatchResult
	err       error
	threshold float64
	calls     int
	lastInput []model.NormalizedIngredient
}

func (m *mockMatcher) MatchIngredients(_ context.Context, imported []model.NormalizedIngredient) ([]model.MatchResult, error) {
	m.calls++
	m.lastInput = imported
	if m.err != nil {
		return nil, m.err
	}
	return m.results, nil
}

func (m *mockMatcher) MinMatchConfidence() float64 {
	return m.threshold
}

// mockCreator implements Creator for testing.
type mockCreator struct {
	created    []model.Ingredient
	err        error
	calls      int
	lastDrafts []model.IngredientDraft
}

func (m *mockCreator) CreateIngredients(_ context.Context, drafts []model.IngredientDraft) ([]model.Ingredient, error) {
	m.calls++
	m.lastDrafts = drafts
	if m.err != nil {
		return nil, m.err
	}
	if m.created != nil {
		return m.created, nil
	}
	// Echo each draft back as a persisted ingredient, in input order.
	out := make([]model.Ingredient, len(drafts))
	for i, d := range drafts {
		out[i] = model.Ingredient{ID: "ing-" + d.ClientRef, Name: d.Name, Type: d.Type}
	}
	return out, nil
}
