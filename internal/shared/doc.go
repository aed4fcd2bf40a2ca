// Package shared holds helpers used across packages that belong to no layer
// of their own.
//
// The testutil subpackage provides a capturing slog handler and a fake survey
// backend serving price and quantity records over HTTP:
//
//	backend := testutil.NewBackend(t, testutil.PriceRecords(), testutil.QuantityRecords())
//	cfg.Backend.BaseURL = backend.BaseURL()
//
// Nothing here may import transport or application packages.
package shared
