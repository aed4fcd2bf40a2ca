// Package exporter renders survey reports into static documents.
//
// A report is first flattened into a layout of sections and tables whose
// columns follow the fixed report column order. The layout is then encoded as:
//
// HTML: the canonical printable document, produced with html/template.
// Rendering the same report twice yields byte-identical output.
//
// CSV: one flat row per observation with the group label repeated, prefixed
// with a UTF-8 BOM for spreadsheet compatibility.
//
// XLSX: one worksheet with a block per group, numeric cells typed as numbers.
//
// PDF: the HTML document printed by a PDFConverter such as ChromePDFConverter.
//
// Example usage:
//
//	renderer := exporter.NewRenderer(logger, exporter.NewChromePDFConverter(cfg, logger))
//	doc, err := renderer.RenderPrice(ctx, report, domain.ReportFormatHTML)
package exporter
