// Package app wires the report service together and manages its lifecycle.
//
// NewApplication loads configuration, initializes logging and telemetry,
// builds the record source, report builder, renderer, share publisher and
// WebSocket hub, then mounts the HTTP routes. Run blocks until SIGINT or
// SIGTERM and shuts everything down in reverse order.
//
//	app, err := app.NewApplication(nil)
//	if err != nil {
//	    return err
//	}
//	return app.Run()
package app
