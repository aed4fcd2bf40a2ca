// Package files manages the exports directory written by the file share sink.
//
// Archive lists shared documents, opens them for download and prunes those
// older than the configured retention. Exported names follow the sink's
// layout, <document name>_<checksum prefix><extension>, so the listing can
// recover the report kind and format without reading file contents.
//
//	archive := files.NewArchive(paths.ExportsDir, logger)
//	exports, err := archive.List(ctx, files.Filter{Kind: domain.ReportKindPrice})
package files
