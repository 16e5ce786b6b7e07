package importer

import (
	"context"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/mashnote/mashnote/internal/brewcalc"
	"github.com/mashnote/mashnote/internal/model"
	"github.com/mashnote/mashnote/internal/units"
)

// ErrAlreadyCommitted is returned when a session's reconciliation commit is
// invoked a second time. The batch-creation call must run exactly once per
// import session.
var ErrAlreadyCommitted = eris.New("importer: session already committed")

// Session owns the state of one import, from raw recipe to finalized
// ingredient list. Stages run strictly in order, but a user may navigate
// backward and re-run earlier stages: everything before Reconcile is free of
// side effects and recomputes on demand, while Reconcile itself commits
// exactly once.
type Session struct {
	raw        model.RawRecipe
	params     *model.RecipeParams
	normalized []model.NormalizedIngredient
	dropped    int
	validated  bool
	rawCount   int

	decisions []model.Decision
	finalized []model.FinalizedIngredient
	diags     []ReconcileDiagnostic
	committed bool
}

// NewSession starts an import session over one raw recipe. The raw recipe is
// treated as immutable for the lifetime of the session; ReplaceRaw starts
// the pipeline over for a corrected input.
func NewSession(raw model.RawRecipe) *Session {
	return &Session{raw: raw, rawCount: len(raw.Ingredients)}
}

// Raw returns the session's raw recipe.
func (s *Session) Raw() model.RawRecipe {
	return s.raw
}

// ReplaceRaw swaps in a corrected raw recipe and invalidates every derived
// stage. It refuses to run after the reconciliation commit.
func (s *Session) ReplaceRaw(raw model.RawRecipe) error {
	if s.committed {
		return ErrAlreadyCommitted
	}
	s.raw = raw
	s.rawCount = len(raw.Ingredients)
	s.params = nil
	s.normalized = nil
	s.validated = false
	s.decisions = nil
	return nil
}

// NormalizeUnits derives the canonical unit system, temperature unit, and
// coerced scalar parameters. Pure; cached per raw recipe.
func (s *Session) NormalizeUnits() model.RecipeParams {
	if s.params == nil {
		p := units.NormalizeParams(s.raw)
		s.params = &p
	}
	return *s.params
}

// ValidateIngredients validates and coerces the raw ingredient list, then
// converts amounts into the canonical unit system. The result is cached and
// recomputed whenever the raw ingredient list changes length (the cheap
// staleness signal for an otherwise immutable input). Returns the kept list
// and how many rows were dropped.
func (s *Session) ValidateIngredients() ([]model.NormalizedIngredient, int) {
	if s.validated && len(s.raw.Ingredients) == s.rawCount {
		return s.normalized, s.dropped
	}

	params := s.NormalizeUnits()
	kept, dropped := ValidateIngredients(s.raw.Ingredients)
	s.normalized = units.NormalizeAmounts(kept, params.UnitSystem)
	s.dropped = dropped
	s.validated = true
	s.rawCount = len(s.raw.Ingredients)

	if dropped > 0 {
		zap.L().Info("importer: validation dropped ingredients",
			zap.Int("kept", len(s.normalized)),
			zap.Int("dropped", dropped),
		)
	}
	return s.normalized, s.dropped
}

// Match runs the batched catalog lookup and installs the default decision
// list. Safe to re-run after a lookup failure: the same validated list in
// the same order produces decisions at the same indices.
func (s *Session) Match(ctx context.Context, m Matcher) ([]model.Decision, error) {
	kept, _ := s.ValidateIngredients()
	decisions, err := MatchIngredients(ctx, m, kept)
	if err != nil {
		return nil, err
	}
	s.decisions = decisions
	return s.decisions, nil
}

// Decisions exposes the decision list for user edits between Match and
// Reconcile. The pipeline reads a snapshot at commit time and never mutates
// a decision itself.
func (s *Session) Decisions() []model.Decision {
	return s.decisions
}

// SetDecisions installs an externally edited (or restored) decision list.
func (s *Session) SetDecisions(decisions []model.Decision) error {
	if s.committed {
		return ErrAlreadyCommitted
	}
	s.decisions = decisions
	return nil
}

// Reconcile commits the decision list: batch-creates every create_new draft
// and resolves every decision to a persisted ingredient id. It runs exactly
// once per session; re-entry returns ErrAlreadyCommitted without touching
// the store. A failed commit leaves the session uncommitted so the caller
// can retry; draft client refs make the retried batch idempotent.
func (s *Session) Reconcile(ctx context.Context, c Creator) ([]model.FinalizedIngredient, []ReconcileDiagnostic, error) {
	if s.committed {
		return nil, nil, ErrAlreadyCommitted
	}
	finalized, diags, err := Reconcile(ctx, c, s.decisions)
	if err != nil {
		return nil, nil, err
	}
	s.finalized = finalized
	s.diags = diags
	s.committed = true
	return finalized, diags, nil
}

// Finalized returns the committed ingredient list, or nil before commit.
func (s *Session) Finalized() []model.FinalizedIngredient {
	return s.finalized
}

// Diagnostics returns the unresolved-ingredient diagnostics from the commit.
func (s *Session) Diagnostics() []ReconcileDiagnostic {
	return s.diags
}

// ComputeMetrics runs the metrics gate over the finalized list. A nil
// metrics result with a nil error means the input was semantically
// insufficient for the formulas; an error means the calculation itself
// faulted. Results are deterministic and cacheable by fingerprint.
func (s *Session) ComputeMetrics() (*model.RecipeMetrics, error) {
	params := s.NormalizeUnits()
	return brewcalc.Compute(s.finalized, params)
}
