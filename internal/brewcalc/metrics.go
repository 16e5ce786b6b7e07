// Package brewcalc computes recipe metrics (OG, FG, ABV, IBU, SRM) from a
// finalized ingredient list using the standard homebrew formulas (points and
// efficiency for gravity, Tinseth for IBU, Morey for SRM).
//
// The computation distinguishes two failure modes. Semantically insufficient
// input (no grains, no yeast attenuation, a zero batch size) yields
// (nil, nil): the metrics are simply absent. A fault inside the calculation
// itself (a panic or a non-finite result) yields an error wrapping
// ErrInternal, so callers can say "could not calculate" instead of silently
// omitting the numbers.
package brewcalc

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"math"
	"strings"

	"github.com/rotisserie/eris"

	"github.com/mashnote/mashnote/internal/model"
	"github.com/mashnote/mashnote/internal/units"
)

// ErrInternal marks a fault inside the calculation, distinct from
// insufficient input.
var ErrInternal = eris.New("brewcalc: internal calculation fault")

const (
	tinsethBigness   = 1.65
	tinsethBase      = 0.000125
	tinsethRate      = 0.04
	tinsethDivisor   = 4.15
	moreyCoefficient = 1.4922
	moreyExponent    = 0.6859
	abvFactor        = 131.25
)

// Compute derives the full metrics set, or reports why it cannot. The
// function is pure and deterministic: identical input always yields an
// identical result, so results may be cached by Fingerprint with no expiry.
func Compute(ings []model.FinalizedIngredient, p model.RecipeParams) (m *model.RecipeMetrics, err error) {
	defer func() {
		if r := recover(); r != nil {
			m = nil
			err = eris.Wrapf(ErrInternal, "recovered: %v", r)
		}
	}()

	if !sufficient(ings, p) {
		return nil, nil
	}

	gallons := units.Convert(p.BatchSize, p.BatchSizeUnit, "gal")
	liters := units.Convert(p.BatchSize, p.BatchSizeUnit, "l")

	og := computeOG(ings, p.Efficiency, gallons)
	fg := computeFG(og, maxAttenuation(ings))
	abv := (og - fg) * abvFactor
	ibu := computeIBU(ings, og, liters)
	srm := computeSRM(ings, gallons)

	for _, v := range []float64{og, fg, abv, ibu, srm} {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return nil, eris.Wrap(ErrInternal, "non-finite metric")
		}
	}

	return &model.RecipeMetrics{OG: og, FG: fg, ABV: abv, IBU: ibu, SRM: srm}, nil
}

// sufficient checks whether the formulas have everything they need. Absence
// here is a valid state, never an error.
func sufficient(ings []model.FinalizedIngredient, p model.RecipeParams) bool {
	if p.BatchSize <= 0 || p.Efficiency <= 0 || p.Efficiency > 100 {
		return false
	}
	if !isVolumeUnit(p.BatchSizeUnit) {
		return false
	}

	grains, yeasts := 0, 0
	for _, ing := range ings {
		switch ing.Type {
		case model.TypeGrain:
			if ing.Grain == nil || ing.Grain.Potential == nil || ing.Grain.Color == nil {
				return false
			}
			if !isMassUnit(ing.Unit) {
				return false
			}
			grains++
		case model.TypeHop:
			if !boilHop(ing) {
				continue
			}
			if ing.Hop == nil || ing.Hop.AlphaAcid == nil || ing.Time == nil {
				return false
			}
			if !isMassUnit(ing.Unit) {
				return false
			}
		case model.TypeYeast:
			if ing.Yeast != nil && ing.Yeast.Attenuation != nil {
				yeasts++
			}
		}
	}
	return grains > 0 && yeasts > 0
}

func computeOG(ings []model.FinalizedIngredient, efficiency, gallons float64) float64 {
	points := 0.0
	for _, ing := range ings {
		if ing.Type != model.TypeGrain {
			continue
		}
		lbs := units.Convert(ing.Amount, ing.Unit, "lb")
		ppg := (*ing.Grain.Potential - 1) * 1000
		points += ppg * lbs
	}
	return 1 + points*(efficiency/100)/gallons/1000
}

func computeFG(og, attenuation float64) float64 {
	return og - (og-1)*attenuation/100
}

// maxAttenuation picks the most attenuative yeast; blends ferment to the
// strongest strain's limit.
func maxAttenuation(ings []model.FinalizedIngredient) float64 {
	att := 0.0
	for _, ing := range ings {
		if ing.Type == model.TypeYeast && ing.Yeast != nil && ing.Yeast.Attenuation != nil {
			att = math.Max(att, *ing.Yeast.Attenuation)
		}
	}
	return att
}

// computeIBU implements Tinseth utilization over the boil additions.
func computeIBU(ings []model.FinalizedIngredient, og, liters float64) float64 {
	bigness := tinsethBigness * math.Pow(tinsethBase, og-1)
	ibu := 0.0
	for _, ing := range ings {
		if ing.Type != model.TypeHop || !boilHop(ing) {
			continue
		}
		grams := units.Convert(ing.Amount, ing.Unit, "g")
		boilTimeFactor := (1 - math.Exp(-tinsethRate*(*ing.Time))) / tinsethDivisor
		mgPerL := (*ing.Hop.AlphaAcid / 100) * grams * 1000 / liters
		ibu += bigness * boilTimeFactor * mgPerL
	}
	return ibu
}

// computeSRM implements Morey's formula over malt color units.
func computeSRM(ings []model.FinalizedIngredient, gallons float64) float64 {
	mcu := 0.0
	for _, ing := range ings {
		if ing.Type != model.TypeGrain {
			continue
		}
		lbs := units.Convert(ing.Amount, ing.Unit, "lb")
		mcu += *ing.Grain.Color * lbs / gallons
	}
	if mcu == 0 {
		return 0
	}
	return moreyCoefficient * math.Pow(mcu, moreyExponent)
}

// boilHop reports whether a hop addition contributes bitterness. Dry hops
// and whirlpool additions after flameout do not.
func boilHop(ing model.FinalizedIngredient) bool {
	switch strings.ToLower(ing.Use) {
	case "", "boil", "first wort":
		return true
	default:
		return false
	}
}

func isMassUnit(unit string) bool {
	switch units.Canonical(unit) {
	case "g", "kg", "oz", "lb":
		return true
	}
	return false
}

func isVolumeUnit(unit string) bool {
	switch units.Canonical(unit) {
	case "l", "ml", "gal", "qt":
		return true
	}
	return false
}

// Fingerprint derives the cache key for a computation: ingredient ids,
// amounts, and units plus the scalar parameters. Two imports with the same
// fingerprint always produce the same metrics.
func Fingerprint(ings []model.FinalizedIngredient, p model.RecipeParams) string {
	h := sha256.New()
	for _, ing := range ings {
		fmt.Fprintf(h, "%s|%g|%s|%s|%s\n", ing.ID, ing.Amount, ing.Unit, ing.Type, ing.Use)
		if ing.Time != nil {
			fmt.Fprintf(h, "t=%g\n", *ing.Time)
		}
	}
	fmt.Fprintf(h, "%g|%s|%g|%g|%g|%s\n",
		p.BatchSize, p.BatchSizeUnit, p.BoilTime, p.Efficiency, p.MashTemp, p.MashTempUnit)
	return hex.EncodeToString(h.Sum(nil))
}
