// Package dataprocessing turns flat survey observations into grouped,
// derived report structures.
//
// # Architecture
//
// The package is organized into three components:
//
// 1. Grouping: partitions observations by mission visit (date, client,
// address) and, inside a visit, by article. Grouping is stable: groups come
// out in first-appearance order and records keep their fetch order.
// 2. Derivation: pure numeric helpers for the adjusted price, the margin rate
// and the occupancy share.
// 3. Builder: assembles groups and derived values into domain.PriceReport and
// domain.QuantityReport, ready for the exporter package.
//
// # Usage
//
//	dates := locale.MustFormatter("fr-FR", "Africa/Casablanca")
//	builder := dataprocessing.NewBuilder(logger, dates)
//	report := builder.BuildPriceReport(ctx, observations)
//
// # Data Flow
//
//	Observations → GroupByDateClient → derivation per group → Builder → Report
//
// # Degenerate input
//
// Nothing in this package rejects input. A record with missing grouping fields
// forms its own group keyed on whatever is present, a zero capacity yields a
// zero adjusted price and an article whose quantities sum to zero yields zero
// occupancy shares. Empty input produces an empty report.
package dataprocessing
