package dataprocessing

import (
	"math"

	"fieldreport/pkg/contracts/domain"
)

// AdjustedPrice rescales price as if the product had recordCapacity, using
// baselineCapacity as the unit-price reference:
//
//	(price / baselineCapacity) * recordCapacity
//
// A zero, negative or NaN capacity on either side returns 0.
func AdjustedPrice(price, baselineCapacity, recordCapacity float64) float64 {
	if !usableCapacity(baselineCapacity) || !usableCapacity(recordCapacity) {
		return 0
	}
	return (price / baselineCapacity) * recordCapacity
}

// MarginRate returns the signed percentage difference between price and its
// adjusted price. A zero or NaN price returns 0.
func MarginRate(price, adjustedPrice float64) float64 {
	if price == 0 || math.IsNaN(price) {
		return 0
	}
	return ((price - adjustedPrice) / price) * 100
}

// OccupancyShare returns qte as a percentage of the article total.
// A zero (or non-finite) total returns 0 so rendered shares stay finite.
func OccupancyShare(qte, totalQte float64) float64 {
	if totalQte <= 0 || math.IsNaN(totalQte) || math.IsInf(totalQte, 0) {
		return 0
	}
	return (qte / totalQte) * 100
}

// TotalQuantity sums the quantities of an article subgroup
func TotalQuantity(records []domain.QuantityObservation) float64 {
	var total float64
	for _, r := range records {
		total += r.Qte
	}
	return total
}

func usableCapacity(c float64) bool {
	return c > 0 && !math.IsNaN(c) && !math.IsInf(c, 0)
}
