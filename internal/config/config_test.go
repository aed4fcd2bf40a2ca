package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfigFile(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))
	return path
}

func TestLoadFile_Defaults(t *testing.T) {
	cfg, err := LoadFile("")
	require.NoError(t, err)

	assert.Equal(t, 8080, cfg.Server.Port)
	assert.Equal(t, 15*time.Second, cfg.Server.ReadTimeout)
	assert.Equal(t, "fr-FR", cfg.Locale.Tag)
	assert.Equal(t, "pdf", cfg.Export.DefaultFormat)
	assert.Equal(t, SinkFile, cfg.Share.Sink)
	assert.Equal(t, "json", cfg.Logging.Format)
	assert.Equal(t, "http://localhost:5000/api/", cfg.Backend.BaseURL)
}

func TestLoadFile_FileOverlay(t *testing.T) {
	path := writeConfigFile(t, `
server:
  port: 9191
backend:
  base_url: https://survey.example.com/api
locale:
  tag: en-US
  timezone: UTC
export:
  default_format: excel
`)

	cfg, err := LoadFile(path)
	require.NoError(t, err)

	assert.Equal(t, 9191, cfg.Server.Port)
	assert.Equal(t, 15*time.Second, cfg.Server.ReadTimeout, "fields missing from the file keep defaults")
	assert.Equal(t, "https://survey.example.com/api/", cfg.Backend.BaseURL)
	assert.Equal(t, "en-US", cfg.Locale.Tag)
	assert.Equal(t, "xlsx", cfg.Export.DefaultFormat)
}

func TestLoadFile_EnvOverridesFile(t *testing.T) {
	path := writeConfigFile(t, "server:\n  port: 9191\n")

	t.Setenv("FIELDREPORT_SERVER_PORT", "7070")
	t.Setenv("FIELDREPORT_SHARE_SINK", "webhook")
	t.Setenv("FIELDREPORT_SHARE_WEBHOOK_URL", "https://hooks.example.com/reports")
	t.Setenv("FIELDREPORT_SECURITY_ALLOWED_ORIGINS", "https://a.example.com,https://b.example.com")
	t.Setenv("FIELDREPORT_BACKEND_TIMEOUT", "5s")

	cfg, err := LoadFile(path)
	require.NoError(t, err)

	assert.Equal(t, 7070, cfg.Server.Port)
	assert.Equal(t, SinkWebhook, cfg.Share.Sink)
	assert.Equal(t, []string{"https://a.example.com", "https://b.example.com"}, cfg.Security.AllowedOrigins)
	assert.Equal(t, 5*time.Second, cfg.Backend.Timeout)
}

func TestLoadFile_Errors(t *testing.T) {
	tests := []struct {
		name string
		env  map[string]string
		file string
	}{
		{name: "invalid port", env: map[string]string{"FIELDREPORT_SERVER_PORT": "70000"}},
		{name: "malformed env value", env: map[string]string{"FIELDREPORT_SERVER_PORT": "eighty"}},
		{name: "backend scheme", env: map[string]string{"FIELDREPORT_BACKEND_BASE_URL": "ftp://example.com"}},
		{name: "unknown locale", env: map[string]string{"FIELDREPORT_LOCALE_TAG": "??"}},
		{name: "unknown time zone", env: map[string]string{"FIELDREPORT_LOCALE_TIMEZONE": "Nowhere/Town"}},
		{name: "unknown format", env: map[string]string{"FIELDREPORT_EXPORT_DEFAULT_FORMAT": "docx"}},
		{name: "unknown sink", env: map[string]string{"FIELDREPORT_SHARE_SINK": "email"}},
		{name: "webhook without url", env: map[string]string{"FIELDREPORT_SHARE_SINK": "webhook"}},
		{name: "drive without folder", env: map[string]string{"FIELDREPORT_SHARE_SINK": "drive"}},
		{name: "invalid yaml", file: "server: [nope"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			for k, v := range tt.env {
				t.Setenv(k, v)
			}
			path := ""
			if tt.file != "" {
				path = writeConfigFile(t, tt.file)
			}

			_, err := LoadFile(path)
			assert.Error(t, err)
		})
	}
}

func TestLoadFile_MissingFile(t *testing.T) {
	_, err := LoadFile(filepath.Join(t.TempDir(), "absent.yaml"))
	assert.Error(t, err)
}

func TestConfig_Address(t *testing.T) {
	cfg := Default()
	cfg.Server.Host = "127.0.0.1"
	assert.Equal(t, "127.0.0.1:8080", cfg.Address())
}

func TestPathsConfig_Resolve(t *testing.T) {
	base := t.TempDir()
	abs := filepath.Join(t.TempDir(), "elsewhere")

	paths := PathsConfig{DataDir: "data", ExportsDir: abs, LogsDir: "logs"}.Resolve(base)

	assert.Equal(t, filepath.Join(base, "data"), paths.DataDir)
	assert.Equal(t, abs, paths.ExportsDir)
	assert.Equal(t, filepath.Join(base, "logs", "app.log"), paths.GetLogPath("app.log"))
	assert.Equal(t, filepath.Join(abs, "Rapport_Prix.pdf"), paths.GetExportPath("Rapport_Prix.pdf"))

	require.NoError(t, paths.EnsureDirectories())
	assert.True(t, FileExists(paths.DataDir))
	assert.True(t, FileExists(paths.ExportsDir))
	assert.True(t, FileExists(paths.LogsDir))
}

func TestExecutableDir(t *testing.T) {
	dir, err := ExecutableDir()
	require.NoError(t, err)
	assert.True(t, filepath.IsAbs(dir))
}
