// Package model defines the core entities shared across the import pipeline,
// the stores, and the CLI.
package model

import "time"

// UnitSystem is the canonical unit system chosen for a recipe.
type UnitSystem string

const (
	UnitSystemMetric   UnitSystem = "metric"
	UnitSystemImperial UnitSystem = "imperial"
)

// TempUnit is a validated temperature unit.
type TempUnit string

const (
	TempCelsius    TempUnit = "C"
	TempFahrenheit TempUnit = "F"
)

// IngredientType tags an ingredient line item.
type IngredientType string

const (
	TypeGrain IngredientType = "grain"
	TypeHop   IngredientType = "hop"
	TypeYeast IngredientType = "yeast"
	TypeOther IngredientType = "other"
)

// RawRecipe is the untrusted output of the BeerXML parser (or of the serve
// mode's JSON body). None of its fields are trusted to be present, correctly
// typed, or in a canonical unit. Numeric fields are `any` because third-party
// files deliver numbers, numeric strings, empty strings, or nothing at all.
type RawRecipe struct {
	Name          string          `json:"name"`
	Style         string          `json:"style"`
	BatchSize     any             `json:"batch_size"`
	BatchSizeUnit string          `json:"batch_size_unit"`
	BoilTime      any             `json:"boil_time"`
	Efficiency    any             `json:"efficiency"`
	MashTemp      any             `json:"mash_temp"`
	MashTempUnit  string          `json:"mash_temp_unit"`
	UnitSystem    string          `json:"unit_system"`
	Description   string          `json:"description"`
	Notes         string          `json:"notes"`
	Ingredients   []RawIngredient `json:"ingredients"`
}

// RawIngredient is a single untrusted ingredient row from an import.
type RawIngredient struct {
	ID     string `json:"id"`
	Name   string `json:"name"`
	Type   string `json:"type"`
	Amount any    `json:"amount"`
	Unit   string `json:"unit"`
	Use    string `json:"use,omitempty"`
	Time   any    `json:"time,omitempty"`

	// Grain attributes.
	Potential any    `json:"potential,omitempty"`
	Color     any    `json:"color,omitempty"`
	GrainType string `json:"grain_type,omitempty"`

	// Hop attributes.
	AlphaAcid any `json:"alpha_acid,omitempty"`

	// Yeast attributes.
	Attenuation any `json:"attenuation,omitempty"`

	Origin string `json:"origin,omitempty"`
}

// GrainAttrs carries grain-specific fields on a validated ingredient.
type GrainAttrs struct {
	Potential *float64 `json:"potential,omitempty"`
	Color     *float64 `json:"color,omitempty"`
	GrainType string   `json:"grain_type,omitempty"`
}

// HopAttrs carries hop-specific fields on a validated ingredient.
type HopAttrs struct {
	AlphaAcid *float64 `json:"alpha_acid,omitempty"`
}

// YeastAttrs carries yeast-specific fields on a validated ingredient.
type YeastAttrs struct {
	Attenuation *float64 `json:"attenuation,omitempty"`
}

// NormalizedIngredient is a validated, coerced ingredient line item.
// Invariants: ID, Name, Type, and Unit are non-empty; Amount is finite and
// > 0; Time is nil or finite and >= 0. InstanceID is process-local, assigned
// at validation time for list rendering and decision keying; it is never
// persisted and is distinct from any persisted ingredient id.
type NormalizedIngredient struct {
	InstanceID string         `json:"instance_id"`
	ID         string         `json:"id"`
	Name       string         `json:"name"`
	Type       IngredientType `json:"type"`
	Amount     float64        `json:"amount"`
	Unit       string         `json:"unit"`
	Use        string         `json:"use,omitempty"`
	Time       *float64       `json:"time,omitempty"`
	Grain      *GrainAttrs    `json:"grain,omitempty"`
	Hop        *HopAttrs      `json:"hop,omitempty"`
	Yeast      *YeastAttrs    `json:"yeast,omitempty"`
	Origin     string         `json:"origin,omitempty"`
}

// Ingredient is a persisted catalog ingredient.
type Ingredient struct {
	ID          string         `json:"id"`
	Name        string         `json:"name"`
	Type        IngredientType `json:"type"`
	Potential   *float64       `json:"potential,omitempty"`
	Color       *float64       `json:"color,omitempty"`
	GrainType   string         `json:"grain_type,omitempty"`
	AlphaAcid   *float64       `json:"alpha_acid,omitempty"`
	Attenuation *float64       `json:"attenuation,omitempty"`
	Notes       string         `json:"notes,omitempty"`
	CreatedAt   time.Time      `json:"created_at"`
}

// MatchCandidate is a persisted ingredient plus the confidence that it is the
// one an imported name refers to, and the human-readable reasons behind it.
type MatchCandidate struct {
	Ingredient Ingredient `json:"ingredient"`
	Confidence float64    `json:"confidence"`
	Reasons    []string   `json:"reasons,omitempty"`
}

// MatchResult pairs an imported ingredient with its best catalog candidate.
// Best is nil when the catalog has no candidate at all; that is a valid
// outcome, not an error.
type MatchResult struct {
	Imported NormalizedIngredient `json:"imported"`
	Best     *MatchCandidate      `json:"best,omitempty"`
}

// DecisionAction says what to do with one imported ingredient.
type DecisionAction string

const (
	ActionUseExisting DecisionAction = "use_existing"
	ActionCreateNew   DecisionAction = "create_new"
)

// IngredientDraft is the creation payload for an ingredient the catalog does
// not have yet. ClientRef is a caller-generated idempotency key echoed back
// by the store, so a retried batch create never duplicates rows.
type IngredientDraft struct {
	ClientRef   string         `json:"client_ref"`
	Name        string         `json:"name"`
	Type        IngredientType `json:"type"`
	Potential   *float64       `json:"potential,omitempty"`
	Color       *float64       `json:"color,omitempty"`
	GrainType   string         `json:"grain_type,omitempty"`
	AlphaAcid   *float64       `json:"alpha_acid,omitempty"`
	Attenuation *float64       `json:"attenuation,omitempty"`
	Notes       string         `json:"notes,omitempty"`
}

// Decision is the per-ingredient resolution record. Exactly one exists per
// NormalizedIngredient, addressable by position in the source list. The UI
// layer may flip Action, change Match, or replace Draft before the commit;
// the pipeline itself never mutates a decision after creating it.
type Decision struct {
	Source     NormalizedIngredient `json:"source"`
	Action     DecisionAction       `json:"action"`
	Confidence float64              `json:"confidence"`
	Match      *Ingredient          `json:"match,omitempty"`
	Draft      *IngredientDraft     `json:"draft,omitempty"`
}

// FinalizedIngredient is a NormalizedIngredient whose id has been resolved to
// a persisted catalog id. Resolved is false when every resolution tier was
// exhausted; such rows keep their prior id and are expected to be rejected by
// the persistence layer rather than silently dropped.
type FinalizedIngredient struct {
	NormalizedIngredient
	Resolved bool `json:"resolved"`
}

// RecipeMetrics holds the derived brewing numbers. Either all five are
// derivable or no metrics are produced at all; a partial struct never exists.
type RecipeMetrics struct {
	OG  float64 `json:"og"`
	FG  float64 `json:"fg"`
	ABV float64 `json:"abv"`
	IBU float64 `json:"ibu"`
	SRM float64 `json:"srm"`
}

// RecipeParams holds the unit-normalized scalar recipe parameters produced by
// the unit normalizer.
type RecipeParams struct {
	Name          string     `json:"name"`
	Style         string     `json:"style,omitempty"`
	BatchSize     float64    `json:"batch_size"`
	BatchSizeUnit string     `json:"batch_size_unit"`
	BoilTime      float64    `json:"boil_time"`
	Efficiency    float64    `json:"efficiency"`
	MashTemp      float64    `json:"mash_temp"`
	MashTempUnit  TempUnit   `json:"mash_temp_unit"`
	UnitSystem    UnitSystem `json:"unit_system"`
	Description   string     `json:"description,omitempty"`
	Notes         string     `json:"notes,omitempty"`
}

// Recipe is the persisted output of a committed import session.
type Recipe struct {
	ID          string                `json:"id"`
	Params      RecipeParams          `json:"params"`
	Ingredients []FinalizedIngredient `json:"ingredients"`
	Metrics     *RecipeMetrics        `json:"metrics,omitempty"`
	CreatedAt   time.Time             `json:"created_at"`
}
