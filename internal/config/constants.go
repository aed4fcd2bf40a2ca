package config

// Application constants
const (
	AppName    = "Field Report"
	AppVersion = "1.0.0"

	// ServiceName identifies the process in telemetry
	ServiceName = "fieldreport"

	// SessionHeader carries the report session that supersedes older fetches
	SessionHeader = "X-Report-Session"
)
