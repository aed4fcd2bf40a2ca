package exporter

import (
	"math"
	"strconv"

	"github.com/shopspring/decimal"
)

// placeholder is printed for values that cannot be represented
const placeholder = "-"

// formatRaw prints a source value in its shortest form, as received
func formatRaw(f float64) string {
	if !finite(f) {
		return placeholder
	}
	return strconv.FormatFloat(f, 'f', -1, 64)
}

// formatAmount prints a derived value rounded half away from zero to 2 places
func formatAmount(f float64) string {
	if !finite(f) {
		return placeholder
	}
	return decimal.NewFromFloat(f).StringFixed(2)
}

// formatPercent prints a derived rate with a literal % suffix
func formatPercent(f float64) string {
	if !finite(f) {
		return placeholder
	}
	return formatAmount(f) + "%"
}

// roundAmount returns the 2-place value written into typed spreadsheet cells
func roundAmount(f float64) float64 {
	if !finite(f) {
		return 0
	}
	v, _ := decimal.NewFromFloat(f).Round(2).Float64()
	return v
}

func finite(f float64) bool {
	return !math.IsNaN(f) && !math.IsInf(f, 0)
}
