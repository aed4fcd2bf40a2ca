// Package services implements the report pipeline behind the HTTP handlers
// and the command line tool.
//
// ReportService runs fetch, group, derive and build for one report kind,
// renders the result as a document, and hands documents to the share
// publisher. A fetch that fails is not an error for the caller: the service
// returns an empty report carrying a notice so the "no data" state can still
// be rendered.
//
// # Sessions
//
// Callers may tag a request with a session identifier (one per screen
// instance). Within a session and report kind, starting a new fetch cancels
// the one in flight. A superseded fetch never publishes its result and
// returns ErrSupersededFetch instead:
//
//	report, err := svc.PriceReport(ctx, sessionID, query)
//	if errors.Is(err, services.ErrSupersededFetch) {
//	    return // a newer request owns the screen
//	}
//
// An empty session identifier disables supersession.
package services
