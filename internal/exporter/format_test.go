package exporter

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestFormatRaw(t *testing.T) {
	tests := []struct {
		in   float64
		want string
	}{
		{2, "2"},
		{1.5, "1.5"},
		{500, "500"},
		{0.333, "0.333"},
		{0, "0"},
		{math.NaN(), placeholder},
		{math.Inf(-1), placeholder},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, formatRaw(tt.in))
	}
}

func TestFormatAmount(t *testing.T) {
	tests := []struct {
		name string
		in   float64
		want string
	}{
		{"exact", 0.75, "0.75"},
		{"pads to two places", 2, "2.00"},
		{"rounds half away from zero", 0.745, "0.75"},
		{"rounds the shortest decimal form", 1.005, "1.01"},
		{"negative rounds away from zero", -2.345, "-2.35"},
		{"rounds down", 1.234, "1.23"},
		{"not finite", math.NaN(), placeholder},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, formatAmount(tt.in))
		})
	}
}

func TestFormatPercent(t *testing.T) {
	assert.Equal(t, "50.00%", formatPercent(50))
	assert.Equal(t, "33.33%", formatPercent(100.0/3))
	assert.Equal(t, "-100.00%", formatPercent(-100))
	assert.Equal(t, placeholder, formatPercent(math.Inf(1)))
}

func TestRoundAmount(t *testing.T) {
	assert.Equal(t, 0.75, roundAmount(0.745))
	assert.Equal(t, 33.33, roundAmount(100.0/3))
	assert.Zero(t, roundAmount(math.NaN()))
}
