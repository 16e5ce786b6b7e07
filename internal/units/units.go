// Package units derives canonical unit systems for imported recipes and
// converts quantities between them, rounding to brewing-friendly increments.
// Every function here is pure and total: bad input degrades to a logged
// warning and a sensible default, never an error.
package units

import (
	"math"
	"strings"

	"go.uber.org/zap"

	"github.com/mashnote/mashnote/internal/coerce"
	"github.com/mashnote/mashnote/internal/model"
)

// DeriveUnitSystem picks the canonical unit system for a recipe. An explicit
// "metric" or "imperial" hint wins outright; a supplied-but-invalid hint logs
// a warning and falls through to derivation from the batch size unit
// ("gal"/"gallons" means imperial, everything else means metric).
func DeriveUnitSystem(batchSizeUnit, explicit string) model.UnitSystem {
	switch explicit {
	case string(model.UnitSystemMetric):
		return model.UnitSystemMetric
	case string(model.UnitSystemImperial):
		return model.UnitSystemImperial
	case "":
	default:
		zap.L().Warn("units: invalid explicit unit system, deriving from batch size unit",
			zap.String("unit_system", explicit),
		)
	}

	switch Canonical(batchSizeUnit) {
	case "gal":
		return model.UnitSystemImperial
	default:
		return model.UnitSystemMetric
	}
}

// DeriveMashTempUnit validates a mash temperature unit, case-insensitively.
// Anything other than C or F falls back to the unit-system default.
func DeriveMashTempUnit(raw string, sys model.UnitSystem) model.TempUnit {
	switch strings.ToUpper(strings.TrimSpace(raw)) {
	case "C":
		return model.TempCelsius
	case "F":
		return model.TempFahrenheit
	}
	if raw != "" {
		zap.L().Warn("units: invalid mash temperature unit, using system default",
			zap.String("mash_temp_unit", raw),
			zap.String("unit_system", string(sys)),
		)
	}
	return DefaultTempUnit(sys)
}

// DefaultTempUnit returns the temperature unit implied by a unit system.
func DefaultTempUnit(sys model.UnitSystem) model.TempUnit {
	if sys == model.UnitSystemImperial {
		return model.TempFahrenheit
	}
	return model.TempCelsius
}

// Canonical normalizes a unit alias ("Gallons", "LBS", "litre") to the short
// form used by the conversion table. Unknown aliases come back lower-cased.
func Canonical(unit string) string {
	u := strings.ToLower(strings.TrimSpace(unit))
	switch u {
	case "gallon", "gallons":
		return "gal"
	case "liter", "liters", "litre", "litres":
		return "l"
	case "quart", "quarts":
		return "qt"
	case "milliliter", "milliliters", "millilitre", "millilitres":
		return "ml"
	case "kilogram", "kilograms", "kgs":
		return "kg"
	case "gram", "grams":
		return "g"
	case "pound", "pounds", "lbs":
		return "lb"
	case "ounce", "ounces", "ozs":
		return "oz"
	case "fahrenheit", "°f":
		return "f"
	case "celsius", "°c":
		return "c"
	}
	return u
}

type unitPair struct {
	from, to string
}

// conversions is the pairwise unit conversion table. Temperatures are affine,
// everything else is a plain factor expressed as a function for uniformity.
var conversions = map[unitPair]func(float64) float64{
	// Mass.
	{"kg", "lb"}: func(v float64) float64 { return v * 2.20462262 },
	{"lb", "kg"}: func(v float64) float64 { return v / 2.20462262 },
	{"kg", "g"}:  func(v float64) float64 { return v * 1000 },
	{"g", "kg"}:  func(v float64) float64 { return v / 1000 },
	{"g", "oz"}:  func(v float64) float64 { return v / 28.349523125 },
	{"oz", "g"}:  func(v float64) float64 { return v * 28.349523125 },
	{"lb", "oz"}: func(v float64) float64 { return v * 16 },
	{"oz", "lb"}: func(v float64) float64 { return v / 16 },
	{"lb", "g"}:  func(v float64) float64 { return v * 453.59237 },
	{"g", "lb"}:  func(v float64) float64 { return v / 453.59237 },
	{"kg", "oz"}: func(v float64) float64 { return v * 35.27396195 },
	{"oz", "kg"}: func(v float64) float64 { return v / 35.27396195 },

	// Volume.
	{"gal", "l"}:  func(v float64) float64 { return v * 3.785411784 },
	{"l", "gal"}:  func(v float64) float64 { return v / 3.785411784 },
	{"gal", "qt"}: func(v float64) float64 { return v * 4 },
	{"qt", "gal"}: func(v float64) float64 { return v / 4 },
	{"qt", "l"}:   func(v float64) float64 { return v * 0.946352946 },
	{"l", "qt"}:   func(v float64) float64 { return v / 0.946352946 },
	{"qt", "ml"}:  func(v float64) float64 { return v * 946.352946 },
	{"ml", "qt"}:  func(v float64) float64 { return v / 946.352946 },
	{"l", "ml"}:   func(v float64) float64 { return v * 1000 },
	{"ml", "l"}:   func(v float64) float64 { return v / 1000 },
	{"ml", "gal"}: func(v float64) float64 { return v / 3785.411784 },
	{"gal", "ml"}: func(v float64) float64 { return v * 3785.411784 },

	// Temperature.
	{"f", "c"}: func(v float64) float64 { return (v - 32) * 5 / 9 },
	{"c", "f"}: func(v float64) float64 { return v*9/5 + 32 },
}

// Convert converts v between two units. Unknown pairs return v unchanged
// with a logged warning; conversion never fails.
func Convert(v float64, from, to string) float64 {
	f, t := Canonical(from), Canonical(to)
	if f == t {
		return v
	}
	fn, ok := conversions[unitPair{f, t}]
	if !ok {
		zap.L().Warn("units: no conversion for unit pair, returning value unchanged",
			zap.String("from", from),
			zap.String("to", to),
		)
		return v
	}
	return fn(v)
}

// ConvertForDisplay converts and snaps a single quantity to a practical
// increment for the target unit.
func ConvertForDisplay(v float64, from, to string) float64 {
	return Snap(Convert(v, from, to), to)
}

// Snap rounds an amount to a brewing-friendly increment for its unit. Files
// produced by converting software carry awkward precision (28.3 g) that no
// brewer weighs out; snapping applies even when no conversion occurred.
func Snap(v float64, unit string) float64 {
	switch Canonical(unit) {
	case "g", "ml":
		return math.Round(v/10) * 10
	case "oz", "lb", "qt":
		return math.Round(v*4) / 4
	case "kg":
		return math.Round(v*100) / 100
	case "l", "gal":
		return math.Round(v*10) / 10
	}
	return v
}

// counterpart maps a unit to its equivalent in the target system. Units
// already native to the target system map to themselves.
func counterpart(unit string, sys model.UnitSystem) string {
	u := Canonical(unit)
	if sys == model.UnitSystemImperial {
		switch u {
		case "kg":
			return "lb"
		case "g":
			return "oz"
		case "l":
			return "gal"
		case "ml":
			return "qt"
		case "c":
			return "f"
		}
		return u
	}
	switch u {
	case "lb":
		return "kg"
	case "oz":
		return "g"
	case "gal":
		return "l"
	case "qt":
		return "l"
	case "f":
		return "c"
	}
	return u
}

// NormalizeAmounts converts every ingredient amount into the target unit
// system and snaps it to a brewing-friendly increment. Amounts whose units
// already belong to the target system are still snapped.
func NormalizeAmounts(ings []model.NormalizedIngredient, sys model.UnitSystem) []model.NormalizedIngredient {
	out := make([]model.NormalizedIngredient, len(ings))
	for i, ing := range ings {
		target := counterpart(ing.Unit, sys)
		ing.Amount = ConvertForDisplay(ing.Amount, ing.Unit, target)
		ing.Unit = target
		out[i] = ing
	}
	return out
}

// NormalizeParams derives the canonical unit system and temperature unit for
// a raw recipe and coerces its scalar parameters into that system. Missing or
// unusable numeric fields stay zero; the metrics gate treats them as
// insufficient input rather than failing here.
func NormalizeParams(raw model.RawRecipe) model.RecipeParams {
	sys := DeriveUnitSystem(raw.BatchSizeUnit, raw.UnitSystem)
	tempUnit := DeriveMashTempUnit(raw.MashTempUnit, sys)

	p := model.RecipeParams{
		Name:         raw.Name,
		Style:        raw.Style,
		UnitSystem:   sys,
		MashTempUnit: tempUnit,
		Description:  raw.Description,
		Notes:        raw.Notes,
	}

	batchUnit := "l"
	if sys == model.UnitSystemImperial {
		batchUnit = "gal"
	}
	p.BatchSizeUnit = batchUnit
	if v, ok := coerce.ToFloat(raw.BatchSize); ok && v > 0 {
		from := Canonical(raw.BatchSizeUnit)
		if from == "" {
			from = batchUnit
		}
		p.BatchSize = Snap(Convert(v, from, batchUnit), batchUnit)
	} else if raw.BatchSize != nil {
		zap.L().Warn("units: unusable batch size", zap.Any("batch_size", raw.BatchSize))
	}

	if v, ok := coerce.ToFloat(raw.BoilTime); ok && v >= 0 {
		p.BoilTime = v
	}
	if v, ok := coerce.ToFloat(raw.Efficiency); ok && v > 0 {
		p.Efficiency = v
	}
	if v, ok := coerce.ToFloat(raw.MashTemp); ok {
		from := strings.ToUpper(strings.TrimSpace(raw.MashTempUnit))
		if from == "C" || from == "F" {
			p.MashTemp = Convert(v, from, string(tempUnit))
		} else {
			// The raw unit was invalid or absent; take the value as already
			// being in the derived unit.
			p.MashTemp = v
		}
	}

	return p
}

// Physically sane chart bounds per temperature unit.
const (
	axisMinF, axisMaxF = 32.0, 100.0
	axisMinC, axisMaxC = 0.0, 38.0
)

// TemperatureAxisConfig returns a chart-friendly [min, max] for a set of
// sampled temperatures, padded by 10% of the observed span and clamped to
// physically sane bounds for the unit.
func TemperatureAxisConfig(samples []float64, unit model.TempUnit) (float64, float64) {
	clampMin, clampMax := axisMinC, axisMaxC
	if unit == model.TempFahrenheit {
		clampMin, clampMax = axisMinF, axisMaxF
	}
	if len(samples) == 0 {
		return clampMin, clampMax
	}

	lo, hi := samples[0], samples[0]
	for _, s := range samples[1:] {
		lo = math.Min(lo, s)
		hi = math.Max(hi, s)
	}

	pad := (hi - lo) * 0.1
	if pad == 0 {
		pad = 1
	}
	lo -= pad
	hi += pad

	return math.Max(lo, clampMin), math.Min(hi, clampMax)
}
