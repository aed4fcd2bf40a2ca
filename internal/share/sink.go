package share

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"fieldreport/internal/config"
	apperrors "fieldreport/internal/errors"
	"fieldreport/pkg/contracts/domain"
)

// ErrSharingDisabled is returned by the sink selected with "none"
var ErrSharingDisabled = errors.New("sharing is disabled")

// Sink stores a document at an export destination
type Sink interface {
	Name() string
	Put(ctx context.Context, doc *domain.Document) (*Receipt, error)
}

// Receipt describes a stored document
type Receipt struct {
	DocumentID string `json:"document_id"`
	Name       string `json:"name"`
	Sink       string `json:"sink"`
	Location   string `json:"location"`
	Bytes      int    `json:"bytes"`
	Checksum   string `json:"checksum"`
}

// Intent is the caller's export request
type Intent struct {
	Format domain.ReportFormat `json:"format"`
}

// ShareError is a recoverable export failure. Reason is user-facing; the
// wrapped error keeps the cause for logs and maps to an EXPORT AppError.
type ShareError struct {
	Sink   string
	Reason string
	Err    error
}

func (e *ShareError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("share via %s failed: %s: %v", e.Sink, e.Reason, e.Err)
	}
	return fmt.Sprintf("share via %s failed: %s", e.Sink, e.Reason)
}

func (e *ShareError) Unwrap() error {
	return apperrors.NewExportError(e.Reason, e.Err).
		WithContext("sink", e.Sink)
}

// Recoverable reports whether the user may retry; export failures always are
func (e *ShareError) Recoverable() bool {
	return true
}

func newShareError(sink, reason string, err error) *ShareError {
	return &ShareError{Sink: sink, Reason: reason, Err: err}
}

// NewSink builds the sink selected by the share configuration
func NewSink(ctx context.Context, cfg config.ShareConfig, paths *config.Paths, logger *slog.Logger) (Sink, error) {
	switch cfg.Sink {
	case config.SinkFile, "":
		return NewFileSink(paths.ExportsDir, logger), nil
	case config.SinkWebhook:
		return NewWebhookSink(cfg.WebhookURL, cfg.WebhookTimeout, logger), nil
	case config.SinkDrive:
		return NewDriveSinkFromCredentials(ctx, cfg.DriveFolderID, cfg.DriveCredentialsFile, cfg.DriveCredentialsKey, logger)
	case config.SinkNone:
		return disabledSink{}, nil
	default:
		return nil, apperrors.NewConfigError(fmt.Sprintf("unknown share sink %q", cfg.Sink), nil)
	}
}

type disabledSink struct{}

func (disabledSink) Name() string { return config.SinkNone }

func (disabledSink) Put(context.Context, *domain.Document) (*Receipt, error) {
	return nil, ErrSharingDisabled
}
