// Package importer implements the recipe import pipeline: unit-normalized
// raw recipes flow through ingredient validation, catalog matching,
// reconciliation, and the metrics gate before persistence.
package importer

import (
	"strings"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/mashnote/mashnote/internal/coerce"
	"github.com/mashnote/mashnote/internal/model"
)

// ValidateIngredients filters a raw imported ingredient list down to
// well-formed line items. Each dropped row is logged with its reason; the
// returned count of drops feeds the user-facing import summary. The function
// is pure apart from logging: running it twice on the same input yields the
// same kept list (instance ids aside).
func ValidateIngredients(raw []model.RawIngredient) ([]model.NormalizedIngredient, int) {
	kept := make([]model.NormalizedIngredient, 0, len(raw))
	dropped := 0

	for i, r := range raw {
		if r.ID == "" {
			zap.L().Warn("importer: dropping ingredient without reference id",
				zap.Int("index", i),
				zap.String("name", r.Name),
			)
			dropped++
			continue
		}
		if r.Name == "" || r.Type == "" || r.Unit == "" {
			zap.L().Error("importer: dropping ingredient with missing name, type, or unit",
				zap.Int("index", i),
				zap.String("id", r.ID),
				zap.String("name", r.Name),
				zap.String("type", r.Type),
				zap.String("unit", r.Unit),
			)
			dropped++
			continue
		}
		if r.Amount == nil || r.Amount == "" {
			zap.L().Error("importer: dropping ingredient without amount",
				zap.Int("index", i),
				zap.String("name", r.Name),
			)
			dropped++
			continue
		}
		amount, ok := coerce.ToFloat(r.Amount)
		if !ok || amount <= 0 {
			zap.L().Error("importer: dropping ingredient with non-positive or non-numeric amount",
				zap.Int("index", i),
				zap.String("name", r.Name),
				zap.Any("amount", r.Amount),
			)
			dropped++
			continue
		}

		ing := model.NormalizedIngredient{
			InstanceID: uuid.New().String(),
			ID:         r.ID,
			Name:       r.Name,
			Type:       model.IngredientType(strings.ToLower(r.Type)),
			Amount:     amount,
			Unit:       r.Unit,
			Use:        r.Use,
			Time:       CoerceTime(r.Time),
			Origin:     r.Origin,
		}
		attachTypeAttrs(&ing, r)
		kept = append(kept, ing)
	}

	return kept, dropped
}

// attachTypeAttrs copies type-specific optional fields onto the normalized
// ingredient only when the type matches, so a mislabeled row cannot leak
// grain attributes into a hop downstream.
func attachTypeAttrs(ing *model.NormalizedIngredient, r model.RawIngredient) {
	switch ing.Type {
	case model.TypeGrain:
		attrs := &model.GrainAttrs{GrainType: r.GrainType}
		if v, ok := coerce.ToFloat(r.Potential); ok {
			attrs.Potential = &v
		}
		if v, ok := coerce.ToFloat(r.Color); ok {
			attrs.Color = &v
		}
		ing.Grain = attrs
	case model.TypeHop:
		attrs := &model.HopAttrs{}
		if v, ok := coerce.ToFloat(r.AlphaAcid); ok {
			attrs.AlphaAcid = &v
		}
		ing.Hop = attrs
	case model.TypeYeast:
		attrs := &model.YeastAttrs{}
		if v, ok := coerce.ToFloat(r.Attenuation); ok {
			attrs.Attenuation = &v
		}
		ing.Yeast = attrs
	}
}

// CoerceTime interprets an untrusted time field. The precedence is exact:
// absent stays absent; booleans are never valid times; an empty string,
// numeric zero, or "0" is an explicit zero (distinct from "no time"); any
// other value must coerce to a finite number >= 0 or it is discarded.
func CoerceTime(v any) *float64 {
	zero := 0.0
	switch t := v.(type) {
	case nil:
		return nil
	case bool:
		return nil
	case string:
		if strings.TrimSpace(t) == "" || strings.TrimSpace(t) == "0" {
			return &zero
		}
	case float64:
		if t == 0 {
			return &zero
		}
	case int:
		if t == 0 {
			return &zero
		}
	}

	f, ok := coerce.ToFloat(v)
	if !ok || f < 0 {
		return nil
	}
	return &f
}
