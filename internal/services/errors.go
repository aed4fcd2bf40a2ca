package services

import "errors"

// Report service errors
var (
	// ErrSupersededFetch is returned when a newer fetch for the same session
	// started before this one completed
	ErrSupersededFetch = errors.New("fetch superseded by a newer request")

	// ErrUnknownReportKind is returned for kinds other than price and quantity
	ErrUnknownReportKind = errors.New("unknown report kind")

	// ErrSharingUnavailable is returned when no publisher is configured
	ErrSharingUnavailable = errors.New("sharing is not configured")
)
