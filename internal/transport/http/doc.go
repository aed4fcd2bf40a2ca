// Package http implements the HTTP handlers of the report service. Handlers
// stay thin: they parse and validate the request, call a service and map
// service errors onto RFC 7807 problems through the shared error handler.
//
// Routes mounted under /api:
//
//	GET  /reports/price                  price report of the session
//	GET  /reports/quantity               quantity report of the session
//	GET  /reports/{kind}/document        rendered document (?format=html|pdf|csv|xlsx)
//	POST /reports/{kind}/share           render and deliver to the share sink
//	POST /logs                           report viewer log forwarding
//	GET  /health, /health/ready, /health/live, /version
//
// Report fetches carry the X-Report-Session header. A newer fetch of the same
// kind in the same session supersedes an older one, which then answers 409.
package http
