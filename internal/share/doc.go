// Package share hands rendered report documents to an export destination.
//
// A Sink stores one document and returns a Receipt. The Publisher wraps a
// sink: it converts HTML to PDF when asked, records metrics, and announces
// every outcome to WebSocket clients. Failures are returned as *ShareError,
// which carries a reason that can be shown to the user as is.
//
// Available sinks:
//
//	file     the exports directory
//	webhook  multipart POST to a configured URL
//	drive    a Google Drive folder
//	none     sharing disabled
package share
