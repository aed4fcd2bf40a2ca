package config

import (
	"fmt"
	"net/url"
	"os"
	"strings"
	"time"

	"github.com/kelseyhightower/envconfig"
	"gopkg.in/yaml.v2"

	"fieldreport/internal/locale"
	"fieldreport/pkg/contracts/domain"
)

// EnvPrefix namespaces every environment variable, e.g. FIELDREPORT_SERVER_PORT
const EnvPrefix = "FIELDREPORT"

// Share sink names
const (
	SinkFile    = "file"
	SinkWebhook = "webhook"
	SinkDrive   = "drive"
	SinkNone    = "none"
)

// Config represents the complete application configuration
type Config struct {
	Server    ServerConfig    `yaml:"server" envconfig:"SERVER"`
	Security  SecurityConfig  `yaml:"security" envconfig:"SECURITY"`
	Logging   LoggingConfig   `yaml:"logging" envconfig:"LOGGING"`
	Paths     PathsConfig     `yaml:"paths" envconfig:"PATHS"`
	WebSocket WebSocketConfig `yaml:"websocket" envconfig:"WEBSOCKET"`
	Backend   BackendConfig   `yaml:"backend" envconfig:"BACKEND"`
	Locale    LocaleConfig    `yaml:"locale" envconfig:"LOCALE"`
	Export    ExportConfig    `yaml:"export" envconfig:"EXPORT"`
	Share     ShareConfig     `yaml:"share" envconfig:"SHARE"`
	Telemetry TelemetryConfig `yaml:"telemetry" envconfig:"TELEMETRY"`
}

// ServerConfig contains HTTP server configuration
type ServerConfig struct {
	Host            string        `yaml:"host" envconfig:"HOST"`
	Port            int           `yaml:"port" envconfig:"PORT"`
	ReadTimeout     time.Duration `yaml:"read_timeout" envconfig:"READ_TIMEOUT"`
	WriteTimeout    time.Duration `yaml:"write_timeout" envconfig:"WRITE_TIMEOUT"`
	IdleTimeout     time.Duration `yaml:"idle_timeout" envconfig:"IDLE_TIMEOUT"`
	MaxHeaderBytes  int           `yaml:"max_header_bytes" envconfig:"MAX_HEADER_BYTES"`
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout" envconfig:"SHUTDOWN_TIMEOUT"`
	RequestTimeout  time.Duration `yaml:"request_timeout" envconfig:"REQUEST_TIMEOUT"`
	ExportTimeout   time.Duration `yaml:"export_timeout" envconfig:"EXPORT_TIMEOUT"`
}

// SecurityConfig contains security-related configuration
type SecurityConfig struct {
	AllowedOrigins []string        `yaml:"allowed_origins" envconfig:"ALLOWED_ORIGINS"`
	EnableCORS     bool            `yaml:"enable_cors" envconfig:"ENABLE_CORS"`
	RateLimit      RateLimitConfig `yaml:"rate_limit" envconfig:"RATE_LIMIT"`
}

// RateLimitConfig contains rate limiting configuration
type RateLimitConfig struct {
	Enabled bool    `yaml:"enabled" envconfig:"ENABLED"`
	RPS     float64 `yaml:"rps" envconfig:"RPS"`
	Burst   int     `yaml:"burst" envconfig:"BURST"`
}

// LoggingConfig contains logging configuration
type LoggingConfig struct {
	Level       string `yaml:"level" envconfig:"LEVEL"`
	Format      string `yaml:"format" envconfig:"FORMAT"`
	Output      string `yaml:"output" envconfig:"OUTPUT"`
	FilePath    string `yaml:"file_path" envconfig:"FILE_PATH"`
	Development bool   `yaml:"development" envconfig:"DEVELOPMENT"`
}

// PathsConfig contains file system paths, relative ones resolve against the executable
type PathsConfig struct {
	DataDir    string `yaml:"data_dir" envconfig:"DATA_DIR"`
	ExportsDir string `yaml:"exports_dir" envconfig:"EXPORTS_DIR"`
	LogsDir    string `yaml:"logs_dir" envconfig:"LOGS_DIR"`
}

// WebSocketConfig contains WebSocket configuration
type WebSocketConfig struct {
	ReadBufferSize  int           `yaml:"read_buffer_size" envconfig:"READ_BUFFER_SIZE"`
	WriteBufferSize int           `yaml:"write_buffer_size" envconfig:"WRITE_BUFFER_SIZE"`
	PingPeriod      time.Duration `yaml:"ping_period" envconfig:"PING_PERIOD"`
	PongWait        time.Duration `yaml:"pong_wait" envconfig:"PONG_WAIT"`
}

// BackendConfig points at the survey record source
type BackendConfig struct {
	BaseURL   string        `yaml:"base_url" envconfig:"BASE_URL"`
	Timeout   time.Duration `yaml:"timeout" envconfig:"TIMEOUT"`
	RPS       float64       `yaml:"rps" envconfig:"RPS"`
	Burst     int           `yaml:"burst" envconfig:"BURST"`
	UserAgent string        `yaml:"user_agent" envconfig:"USER_AGENT"`
}

// LocaleConfig selects how mission dates are rendered and grouped
type LocaleConfig struct {
	Tag      string `yaml:"tag" envconfig:"TAG"`
	Timezone string `yaml:"timezone" envconfig:"TIMEZONE"`
}

// ExportConfig contains document rendering options
type ExportConfig struct {
	DefaultFormat  string        `yaml:"default_format" envconfig:"DEFAULT_FORMAT"`
	ChromePath     string        `yaml:"chrome_path" envconfig:"CHROME_PATH"`
	Headless       bool          `yaml:"headless" envconfig:"HEADLESS"`
	PDFTimeout     time.Duration `yaml:"pdf_timeout" envconfig:"PDF_TIMEOUT"`
	GroupingChunks int           `yaml:"grouping_chunks" envconfig:"GROUPING_CHUNKS"`
}

// ShareConfig selects where exported documents are delivered
type ShareConfig struct {
	Sink                 string        `yaml:"sink" envconfig:"SINK"`
	WebhookURL           string        `yaml:"webhook_url" envconfig:"WEBHOOK_URL"`
	WebhookTimeout       time.Duration `yaml:"webhook_timeout" envconfig:"WEBHOOK_TIMEOUT"`
	DriveFolderID        string        `yaml:"drive_folder_id" envconfig:"DRIVE_FOLDER_ID"`
	DriveCredentialsFile string        `yaml:"drive_credentials_file" envconfig:"DRIVE_CREDENTIALS_FILE"`
	// DriveCredentialsKey opens a sealed credentials file; environment only
	DriveCredentialsKey string `yaml:"-" envconfig:"DRIVE_CREDENTIALS_KEY"`
	// Retention prunes file sink exports older than this at startup, 0 keeps all
	Retention time.Duration `yaml:"retention" envconfig:"RETENTION"`
}

// TelemetryConfig contains OpenTelemetry exporter selection
type TelemetryConfig struct {
	Environment    string  `yaml:"environment" envconfig:"ENVIRONMENT"`
	TraceExporter  string  `yaml:"trace_exporter" envconfig:"TRACE_EXPORTER"`
	MetricExporter string  `yaml:"metric_exporter" envconfig:"METRIC_EXPORTER"`
	SampleRatio    float64 `yaml:"sample_ratio" envconfig:"SAMPLE_RATIO"`
}

// Load builds the configuration from defaults, the first config file found in
// the usual locations, then environment variables.
func Load() (*Config, error) {
	return LoadFile(getConfigFilePath())
}

// LoadFile is like Load with an explicit config file. An empty path skips the file.
// Environment variables take precedence over file values, which take
// precedence over defaults.
func LoadFile(configFile string) (*Config, error) {
	cfg := Default()

	if configFile != "" {
		if err := loadFromFile(configFile, cfg); err != nil {
			return nil, fmt.Errorf("failed to load config from file: %w", err)
		}
	}

	if err := envconfig.Process(EnvPrefix, cfg); err != nil {
		return nil, fmt.Errorf("failed to load config from env: %w", err)
	}

	if err := cfg.validate(); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}

	return cfg, nil
}

// loadFromFile overlays YAML values onto cfg, keeping fields the file omits
func loadFromFile(filePath string, cfg *Config) error {
	data, err := os.ReadFile(filePath)
	if err != nil {
		return err
	}
	return yaml.Unmarshal(data, cfg)
}

// validate validates and normalizes the configuration
func (c *Config) validate() error {
	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		return fmt.Errorf("invalid server port: %d", c.Server.Port)
	}

	if c.Server.ReadTimeout <= 0 {
		return fmt.Errorf("server read timeout must be positive")
	}

	if c.Server.WriteTimeout <= 0 {
		return fmt.Errorf("server write timeout must be positive")
	}

	if c.Security.EnableCORS && len(c.Security.AllowedOrigins) == 0 {
		return fmt.Errorf("at least one allowed origin must be specified")
	}

	if c.Security.RateLimit.Enabled && c.Security.RateLimit.RPS <= 0 {
		return fmt.Errorf("rate limit rps must be positive")
	}

	if err := c.validateBackend(); err != nil {
		return err
	}

	if _, err := locale.NewFormatter(c.Locale.Tag, c.Locale.Timezone); err != nil {
		return fmt.Errorf("invalid locale: %w", err)
	}

	format, err := domain.ParseReportFormat(c.Export.DefaultFormat)
	if err != nil {
		return fmt.Errorf("invalid default export format: %w", err)
	}
	c.Export.DefaultFormat = string(format)

	if err := c.validateShare(); err != nil {
		return err
	}

	c.Logging.Format = "json"
	if c.Logging.Output != "console" && c.Logging.Output != "file" {
		c.Logging.Output = "both"
	}
	if c.Logging.FilePath == "" {
		c.Logging.FilePath = "logs/app.log"
	}

	return nil
}

func (c *Config) validateBackend() error {
	if c.Backend.BaseURL == "" {
		return fmt.Errorf("backend base url is required")
	}

	u, err := url.Parse(c.Backend.BaseURL)
	if err != nil {
		return fmt.Errorf("invalid backend base url: %w", err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return fmt.Errorf("backend base url must be http or https, got %q", u.Scheme)
	}

	// Endpoint paths are appended directly to the base.
	if !strings.HasSuffix(c.Backend.BaseURL, "/") {
		c.Backend.BaseURL += "/"
	}

	if c.Backend.Timeout <= 0 {
		return fmt.Errorf("backend timeout must be positive")
	}
	if c.Backend.RPS <= 0 || c.Backend.Burst <= 0 {
		return fmt.Errorf("backend rate limit must be positive")
	}
	return nil
}

func (c *Config) validateShare() error {
	c.Share.Sink = strings.ToLower(strings.TrimSpace(c.Share.Sink))

	switch c.Share.Sink {
	case SinkFile, SinkNone:
	case SinkWebhook:
		if c.Share.WebhookURL == "" {
			return fmt.Errorf("share sink %q requires a webhook url", c.Share.Sink)
		}
		if _, err := url.ParseRequestURI(c.Share.WebhookURL); err != nil {
			return fmt.Errorf("invalid webhook url: %w", err)
		}
	case SinkDrive:
		if c.Share.DriveFolderID == "" || c.Share.DriveCredentialsFile == "" {
			return fmt.Errorf("share sink %q requires a folder id and a credentials file", c.Share.Sink)
		}
	default:
		return fmt.Errorf("unknown share sink %q", c.Share.Sink)
	}
	return nil
}

// Address returns the host:port the HTTP server listens on
func (c *Config) Address() string {
	return fmt.Sprintf("%s:%d", c.Server.Host, c.Server.Port)
}

// getConfigFilePath returns the path to the config file
func getConfigFilePath() string {
	locations := []string{
		"config.yaml",
		"configs/config.yaml",
		"../configs/config.yaml",
	}

	for _, location := range locations {
		if _, err := os.Stat(location); err == nil {
			return location
		}
	}

	return ""
}

// Default returns default configuration
func Default() *Config {
	return &Config{
		Server: ServerConfig{
			Port:            8080,
			ReadTimeout:     15 * time.Second,
			WriteTimeout:    60 * time.Second,
			IdleTimeout:     60 * time.Second,
			MaxHeaderBytes:  1 << 20, // 1MB
			ShutdownTimeout: 30 * time.Second,
			RequestTimeout:  30 * time.Second,
			ExportTimeout:   2 * time.Minute,
		},
		Security: SecurityConfig{
			AllowedOrigins: []string{"http://localhost:8080"},
			EnableCORS:     true,
			RateLimit: RateLimitConfig{
				Enabled: true,
				RPS:     100,
				Burst:   50,
			},
		},
		Logging: LoggingConfig{
			Level:       "info",
			Format:      "json",
			Output:      "both",
			FilePath:    "logs/app.log",
			Development: true,
		},
		Paths: PathsConfig{
			DataDir:    "data",
			ExportsDir: "data/exports",
			LogsDir:    "logs",
		},
		WebSocket: WebSocketConfig{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			PingPeriod:      30 * time.Second,
			PongWait:        60 * time.Second,
		},
		Backend: BackendConfig{
			BaseURL:   "http://localhost:5000/api/",
			Timeout:   20 * time.Second,
			RPS:       5,
			Burst:     5,
			UserAgent: "fieldreport/" + AppVersion,
		},
		Locale: LocaleConfig{
			Tag: locale.DefaultTag,
		},
		Export: ExportConfig{
			DefaultFormat: string(domain.ReportFormatPDF),
			Headless:      true,
			PDFTimeout:    30 * time.Second,
		},
		Share: ShareConfig{
			Sink:           SinkFile,
			WebhookTimeout: 30 * time.Second,
			Retention:      30 * 24 * time.Hour,
		},
		Telemetry: TelemetryConfig{
			Environment:    "development",
			TraceExporter:  "none",
			MetricExporter: "prometheus",
			SampleRatio:    1.0,
		},
	}
}
