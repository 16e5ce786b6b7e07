package importer

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mashnote/mashnote/internal/model"
)

func validRaw(id, name string) model.RawIngredient {
	return model.RawIngredient{
		ID: id, Name: name, Type: "grain", Amount: 5.0, Unit: "kg",
		Potential: 1.037, Color: 3.0,
	}
}

func TestValidateIngredients_DropRules(t *testing.T) {
	tests := []struct {
		name string
		raw  model.RawIngredient
	}{
		{"missing id", model.RawIngredient{Name: "Pale Malt", Type: "grain", Amount: 5.0, Unit: "kg"}},
		{"missing name", model.RawIngredient{ID: "r1", Type: "grain", Amount: 5.0, Unit: "kg"}},
		{"missing type", model.RawIngredient{ID: "r1", Name: "Pale Malt", Amount: 5.0, Unit: "kg"}},
		{"missing unit", model.RawIngredient{ID: "r1", Name: "Pale Malt", Type: "grain", Amount: 5.0}},
		{"nil amount", model.RawIngredient{ID: "r1", Name: "Pale Malt", Type: "grain", Unit: "kg"}},
		{"empty string amount", model.RawIngredient{ID: "r1", Name: "Pale Malt", Type: "grain", Amount: "", Unit: "kg"}},
		{"non-numeric amount", model.RawIngredient{ID: "r1", Name: "Pale Malt", Type: "grain", Amount: "a lot", Unit: "kg"}},
		{"zero amount", model.RawIngredient{ID: "r1", Name: "Pale Malt", Type: "grain", Amount: 0.0, Unit: "kg"}},
		{"negative amount", model.RawIngredient{ID: "r1", Name: "Pale Malt", Type: "grain", Amount: -2.5, Unit: "kg"}},
		{"boolean amount", model.RawIngredient{ID: "r1", Name: "Pale Malt", Type: "grain", Amount: true, Unit: "kg"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			kept, dropped := ValidateIngredients([]model.RawIngredient{tt.raw})
			assert.Empty(t, kept)
			assert.Equal(t, 1, dropped)
		})
	}
}

func TestValidateIngredients_KeepsValidRowsInOrder(t *testing.T) {
	raw := []model.RawIngredient{
		validRaw("r1", "Pale Malt"),
		{ID: "r2", Name: "Mystery"}, // dropped: missing type, unit, amount
		{ID: "r3", Name: "Cascade", Type: "Hop", Amount: "28.5", Unit: "g", Use: "boil", Time: 60.0, AlphaAcid: "5.5"},
		{ID: "r4", Name: "US-05", Type: "yeast", Amount: 1.0, Unit: "pkg", Attenuation: 75.0},
	}

	kept, dropped := ValidateIngredients(raw)
	require.Len(t, kept, 3)
	assert.Equal(t, 1, dropped)

	assert.Equal(t, "Pale Malt", kept[0].Name)
	assert.Equal(t, model.TypeGrain, kept[0].Type)
	require.NotNil(t, kept[0].Grain)
	assert.InDelta(t, 1.037, *kept[0].Grain.Potential, 1e-9)

	// Coerced from strings, type lowercased, attrs attached per type.
	assert.Equal(t, model.TypeHop, kept[1].Type)
	assert.InDelta(t, 28.5, kept[1].Amount, 1e-9)
	require.NotNil(t, kept[1].Hop)
	assert.InDelta(t, 5.5, *kept[1].Hop.AlphaAcid, 1e-9)
	require.NotNil(t, kept[1].Time)
	assert.InDelta(t, 60, *kept[1].Time, 1e-9)
	assert.Nil(t, kept[1].Grain, "hop rows must not carry grain attributes")

	require.NotNil(t, kept[2].Yeast)
	assert.InDelta(t, 75, *kept[2].Yeast.Attenuation, 1e-9)
}

func TestValidateIngredients_Deterministic(t *testing.T) {
	raw := []model.RawIngredient{
		validRaw("r1", "Pale Malt"),
		{ID: "r2", Name: "Mystery"}, // dropped either run
		{ID: "r3", Name: "Cascade", Type: "Hop", Amount: "28.5", Unit: "g", Use: "boil", Time: 60.0, AlphaAcid: "5.5"},
		{ID: "r4", Name: "US-05", Type: "yeast", Amount: 1.0, Unit: "pkg", Attenuation: 75.0},
	}

	first, firstDropped := ValidateIngredients(raw)
	second, secondDropped := ValidateIngredients(raw)

	assert.Equal(t, firstDropped, secondDropped)
	require.Len(t, second, len(first))

	// Instance ids are freshly assigned per run; everything else must agree.
	for i := range first {
		a, b := first[i], second[i]
		a.InstanceID, b.InstanceID = "", ""
		assert.Equal(t, a, b, "row %d", i)
	}
}

func TestValidateIngredients_InstanceIDsUnique(t *testing.T) {
	raw := []model.RawIngredient{validRaw("r1", "Pale Malt"), validRaw("r1", "Pale Malt")}

	kept, _ := ValidateIngredients(raw)
	require.Len(t, kept, 2)
	assert.NotEmpty(t, kept[0].InstanceID)
	assert.NotEqual(t, kept[0].InstanceID, kept[1].InstanceID)
}

func TestCoerceTime(t *testing.T) {
	zero := 0.0
	sixty := 60.0
	halfHour := 30.5

	tests := []struct {
		name string
		in   any
		want *float64
	}{
		{"nil stays absent", nil, nil},
		{"bool true never a time", true, nil},
		{"bool false never a time", false, nil},
		{"empty string is explicit zero", "", &zero},
		{"whitespace string is explicit zero", "  ", &zero},
		{"string zero is explicit zero", "0", &zero},
		{"numeric zero is explicit zero", 0.0, &zero},
		{"int zero is explicit zero", 0, &zero},
		{"numeric minutes", 60.0, &sixty},
		{"string minutes", "60", &sixty},
		{"fractional minutes", "30.5", &halfHour},
		{"negative discarded", -15.0, nil},
		{"negative string discarded", "-15", nil},
		{"garbage discarded", "an hour", nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := CoerceTime(tt.in)
			if tt.want == nil {
				assert.Nil(t, got)
				return
			}
			require.NotNil(t, got)
			assert.InDelta(t, *tt.want, *got, 1e-9)
		})
	}
}
