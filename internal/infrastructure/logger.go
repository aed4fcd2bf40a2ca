package infrastructure

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"fieldreport/internal/config"
)

var (
	globalLogger     *slog.Logger
	globalLoggerOnce sync.Once

	// logFile is the open log file of the global logger, closed on shutdown
	logFile   *os.File
	logFileMu sync.Mutex
)

// InitializeLogger builds the process logger from the logging configuration
// and installs it as the slog default. Only the first call has an effect;
// later calls return the logger built by the first one.
//
// Records are JSON. Every record carries the service name and version, and
// records logged with a context also carry its trace ID and report session.
func InitializeLogger(cfg config.LoggingConfig) (*slog.Logger, error) {
	var err error
	globalLoggerOnce.Do(func() {
		globalLogger, err = newLogger(cfg)
		if globalLogger != nil {
			slog.SetDefault(globalLogger)
		}
	})
	return globalLogger, err
}

// GetLogger returns the process logger, or the slog default before
// InitializeLogger ran
func GetLogger() *slog.Logger {
	if globalLogger == nil {
		return slog.Default()
	}
	return globalLogger
}

func newLogger(cfg config.LoggingConfig) (*slog.Logger, error) {
	output, file, err := openLogOutput(cfg)
	if err != nil {
		return nil, err
	}

	logFileMu.Lock()
	logFile = file
	logFileMu.Unlock()

	opts := &slog.HandlerOptions{
		AddSource:   true,
		Level:       parseLogLevel(cfg.Level),
		ReplaceAttr: shortenSource,
	}
	if cfg.Development {
		opts.Level = slog.LevelDebug
	}

	handler := NewContextHandler(slog.NewJSONHandler(output, opts))
	return slog.New(handler).With(
		slog.String("service", ServiceName),
		slog.String("version", ServiceVersion),
	), nil
}

// openLogOutput resolves the configured output mode. Anything other than
// "console" or "file" writes to both.
func openLogOutput(cfg config.LoggingConfig) (io.Writer, *os.File, error) {
	mode := strings.ToLower(cfg.Output)
	if mode == "console" || mode == "stdout" || (mode != "file" && cfg.FilePath == "") {
		return os.Stdout, nil, nil
	}

	file, err := openLogFile(cfg.FilePath)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to open log file: %w", err)
	}
	if mode == "file" {
		return file, file, nil
	}
	return io.MultiWriter(os.Stdout, file), file, nil
}

// shortenSource keeps the package directory and file name of the source attribute
func shortenSource(_ []string, a slog.Attr) slog.Attr {
	if a.Key != slog.SourceKey {
		return a
	}
	src, ok := a.Value.Any().(*slog.Source)
	if !ok || src == nil {
		return a
	}
	short := *src
	short.File = filepath.Join(filepath.Base(filepath.Dir(src.File)), filepath.Base(src.File))
	return slog.Any(slog.SourceKey, &short)
}

// contextHandler copies request-scoped identifiers from the context onto records
type contextHandler struct {
	slog.Handler
}

// NewContextHandler wraps h so records logged with a context carry its
// trace_id and session_id
func NewContextHandler(h slog.Handler) slog.Handler {
	return &contextHandler{Handler: h}
}

func (h *contextHandler) Handle(ctx context.Context, r slog.Record) error {
	if traceID := GetTraceID(ctx); traceID != "" {
		r.AddAttrs(slog.String("trace_id", traceID))
	}
	if sessionID := GetSessionID(ctx); sessionID != "" {
		r.AddAttrs(slog.String("session_id", sessionID))
	}
	return h.Handler.Handle(ctx, r)
}

func (h *contextHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	return &contextHandler{Handler: h.Handler.WithAttrs(attrs)}
}

func (h *contextHandler) WithGroup(name string) slog.Handler {
	return &contextHandler{Handler: h.Handler.WithGroup(name)}
}

func parseLogLevel(level string) slog.Level {
	switch strings.ToLower(level) {
	case "debug":
		return slog.LevelDebug
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

// CloseLogFile closes the log file of the process logger, if any
func CloseLogFile() error {
	logFileMu.Lock()
	defer logFileMu.Unlock()

	if logFile == nil {
		return nil
	}
	err := logFile.Close()
	logFile = nil
	return err
}

// ResetLoggerForTesting drops the process logger so tests can initialize a new one
func ResetLoggerForTesting() {
	CloseLogFile()
	globalLogger = nil
	globalLoggerOnce = sync.Once{}
}

func openLogFile(path string) (*os.File, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return nil, fmt.Errorf("failed to create log directory: %w", err)
	}
	return os.OpenFile(path, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0644)
}
