package brewcalc

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mashnote/mashnote/internal/model"
)

func ptr(f float64) *float64 { return &f }

func grain(id, name string, amount float64, unit string, potential, color float64) model.FinalizedIngredient {
	return model.FinalizedIngredient{
		NormalizedIngredient: model.NormalizedIngredient{
			ID: id, Name: name, Type: model.TypeGrain, Amount: amount, Unit: unit,
			Grain: &model.GrainAttrs{Potential: ptr(potential), Color: ptr(color)},
		},
		Resolved: true,
	}
}

func hop(id, name string, amount float64, unit string, alpha, boilMin float64) model.FinalizedIngredient {
	return model.FinalizedIngredient{
		NormalizedIngredient: model.NormalizedIngredient{
			ID: id, Name: name, Type: model.TypeHop, Amount: amount, Unit: unit,
			Use: "boil", Time: ptr(boilMin),
			Hop: &model.HopAttrs{AlphaAcid: ptr(alpha)},
		},
		Resolved: true,
	}
}

func yeast(id, name string, attenuation float64) model.FinalizedIngredient {
	return model.FinalizedIngredient{
		NormalizedIngredient: model.NormalizedIngredient{
			ID: id, Name: name, Type: model.TypeYeast, Amount: 1, Unit: "pkg",
			Yeast: &model.YeastAttrs{Attenuation: ptr(attenuation)},
		},
		Resolved: true,
	}
}

func paleAle() ([]model.FinalizedIngredient, model.RecipeParams) {
	ings := []model.FinalizedIngredient{
		grain("g1", "Pale Malt", 10, "lb", 1.037, 3),
		hop("h1", "Cascade", 1, "oz", 5.5, 60),
		yeast("y1", "US-05", 75),
	}
	params := model.RecipeParams{
		BatchSize:     5,
		BatchSizeUnit: "gal",
		BoilTime:      60,
		Efficiency:    72,
		UnitSystem:    model.UnitSystemImperial,
	}
	return ings, params
}

func TestCompute_PaleAle(t *testing.T) {
	ings, params := paleAle()

	m, err := Compute(ings, params)
	require.NoError(t, err)
	require.NotNil(t, m)

	assert.InDelta(t, 1.0533, m.OG, 0.0005)
	assert.InDelta(t, 1.0133, m.FG, 0.0005)
	assert.InDelta(t, 5.24, m.ABV, 0.05)
	assert.InDelta(t, 18.4, m.IBU, 1.0)
	assert.InDelta(t, 5.1, m.SRM, 0.2)
}

func TestCompute_Deterministic(t *testing.T) {
	ings, params := paleAle()

	m1, err := Compute(ings, params)
	require.NoError(t, err)
	m2, err := Compute(ings, params)
	require.NoError(t, err)

	assert.Equal(t, m1, m2)
}

func TestCompute_InsufficientInput(t *testing.T) {
	_, params := paleAle()

	tests := []struct {
		name   string
		ings   []model.FinalizedIngredient
		params model.RecipeParams
	}{
		{"no ingredients", nil, params},
		{"no yeast", []model.FinalizedIngredient{grain("g1", "Pale", 10, "lb", 1.037, 3)}, params},
		{"no grain", []model.FinalizedIngredient{yeast("y1", "US-05", 75)}, params},
		{
			"grain missing color",
			[]model.FinalizedIngredient{
				{NormalizedIngredient: model.NormalizedIngredient{
					ID: "g1", Type: model.TypeGrain, Amount: 10, Unit: "lb",
					Grain: &model.GrainAttrs{Potential: ptr(1.037)},
				}},
				yeast("y1", "US-05", 75),
			},
			params,
		},
		{
			"boil hop missing alpha",
			[]model.FinalizedIngredient{
				grain("g1", "Pale", 10, "lb", 1.037, 3),
				{NormalizedIngredient: model.NormalizedIngredient{
					ID: "h1", Type: model.TypeHop, Amount: 30, Unit: "g",
					Use: "boil", Time: ptr(60.0), Hop: &model.HopAttrs{},
				}},
				yeast("y1", "US-05", 75),
			},
			params,
		},
		{"zero batch size", paleAleIngs(t), model.RecipeParams{BatchSizeUnit: "gal", Efficiency: 72}},
		{"zero efficiency", paleAleIngs(t), model.RecipeParams{BatchSize: 5, BatchSizeUnit: "gal"}},
		{
			"volume-valued grain",
			[]model.FinalizedIngredient{
				grain("g1", "Pale LME", 3, "l", 1.036, 4),
				yeast("y1", "US-05", 75),
			},
			params,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m, err := Compute(tt.ings, tt.params)
			assert.NoError(t, err, "insufficient input is absence, not an error")
			assert.Nil(t, m)
		})
	}
}

func paleAleIngs(t *testing.T) []model.FinalizedIngredient {
	t.Helper()
	ings, _ := paleAle()
	return ings
}

func TestCompute_DryHopDoesNotBitter(t *testing.T) {
	ings, params := paleAle()
	dry := hop("h2", "Citra", 2, "oz", 12, 0)
	dry.Use = "dry hop"
	dry.Hop = nil // dry hops may omit alpha entirely
	dry.Time = nil

	m, err := Compute(append(ings, dry), params)
	require.NoError(t, err)
	require.NotNil(t, m)

	base, err := Compute(ings, params)
	require.NoError(t, err)
	assert.Equal(t, base.IBU, m.IBU)
}

func TestCompute_InternalFault(t *testing.T) {
	// Finite but extreme inputs overflow the SRM power term; the gate must
	// surface an internal fault, not absence.
	ings := []model.FinalizedIngredient{
		grain("g1", "Void Malt", 1e308, "lb", 1.037, 1e308),
		yeast("y1", "US-05", 75),
	}
	params := model.RecipeParams{BatchSize: 5, BatchSizeUnit: "gal", Efficiency: 72}

	m, err := Compute(ings, params)
	require.Error(t, err)
	assert.Nil(t, m)
	assert.ErrorIs(t, err, ErrInternal)
}

func TestFingerprint(t *testing.T) {
	ings, params := paleAle()

	a := Fingerprint(ings, params)
	b := Fingerprint(ings, params)
	assert.Equal(t, a, b)

	changed := make([]model.FinalizedIngredient, len(ings))
	copy(changed, ings)
	changed[0].Amount = 11
	assert.NotEqual(t, a, Fingerprint(changed, params))

	params.Efficiency = 80
	assert.NotEqual(t, a, Fingerprint(ings, params))
}

func TestCache(t *testing.T) {
	c := NewCache()
	ings, params := paleAle()

	m1, err := c.Compute(ings, params)
	require.NoError(t, err)
	m2, err := c.Compute(ings, params)
	require.NoError(t, err)

	assert.Same(t, m1, m2) // second call served from cache
	assert.Equal(t, 1, c.Len())

	// Insufficient input is cached too.
	none, err := c.Compute(nil, params)
	require.NoError(t, err)
	assert.Nil(t, none)
	assert.Equal(t, 2, c.Len())
}
