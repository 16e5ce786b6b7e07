package coerce

import (
	"encoding/json"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestToFloat(t *testing.T) {
	tests := []struct {
		name string
		in   any
		want float64
		ok   bool
	}{
		{"nil", nil, 0, false},
		{"bool true", true, 0, false},
		{"bool false", false, 0, false},
		{"float64", 4.5, 4.5, true},
		{"float32", float32(2.5), 2.5, true},
		{"int", 60, 60, true},
		{"int64", int64(-3), -3, true},
		{"numeric string", "28.5", 28.5, true},
		{"padded string", "  19.0 ", 19, true},
		{"empty string", "", 0, false},
		{"blank string", "   ", 0, false},
		{"word string", "a pinch", 0, false},
		{"json number", json.Number("1.037"), 1.037, true},
		{"bad json number", json.Number("x"), 0, false},
		{"nan", math.NaN(), 0, false},
		{"inf", math.Inf(1), 0, false},
		{"inf string", "Inf", 0, false},
		{"struct", struct{}{}, 0, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := ToFloat(tt.in)
			assert.Equal(t, tt.ok, ok)
			if tt.ok {
				assert.InDelta(t, tt.want, got, 1e-9)
			}
		})
	}
}
