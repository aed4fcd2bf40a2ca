// Package config provides centralized configuration management for the field
// report service.
//
// # Configuration Sources
//
// Configuration is layered in the following order of precedence:
//
//  1. Environment variables (highest priority)
//  2. YAML configuration file
//  3. Default values (lowest priority)
//
// # Environment Variables
//
// All environment variables use the FIELDREPORT_ prefix followed by the
// section and field name:
//
//	FIELDREPORT_SERVER_PORT=8080
//	FIELDREPORT_BACKEND_BASE_URL=https://survey.example.com/api/
//	FIELDREPORT_LOCALE_TAG=fr-FR
//	FIELDREPORT_SHARE_SINK=webhook
//	FIELDREPORT_SHARE_WEBHOOK_URL=https://hooks.example.com/reports
//	FIELDREPORT_SHARE_RETENTION=168h
//
// FIELDREPORT_SHARE_DRIVE_CREDENTIALS_KEY opens a sealed Drive credentials
// file and is never read from YAML.
//
// # Locale
//
// The locale tag and time zone decide the short mission date used in report
// group keys. Changing either changes how observations are grouped.
//
// # Path Management
//
// Relative directories resolve against the executable location, never the
// working directory:
//
//	paths, err := cfg.ResolvePaths()
//	target := paths.GetExportPath("Rapport_Prix.pdf")
//
// # Usage
//
//	cfg, err := config.Load()
//	if err != nil {
//	    log.Fatal(err)
//	}
package config
