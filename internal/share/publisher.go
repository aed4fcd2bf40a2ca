package share

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"fieldreport/internal/exporter"
	"fieldreport/internal/infrastructure"
	"fieldreport/pkg/contracts/domain"
	"fieldreport/pkg/contracts/events"
)

// Notifier receives export outcomes, typically the WebSocket hub
type Notifier interface {
	BroadcastExport(ctx context.Context, event events.ExportEvent, failed bool)
}

// Publisher converts documents when needed and hands them to a sink
type Publisher struct {
	sink     Sink
	pdf      exporter.PDFConverter
	notifier Notifier
	metrics  *infrastructure.BusinessMetrics
	logger   *slog.Logger
}

// NewPublisher creates a publisher. pdf, notifier and metrics are optional.
func NewPublisher(sink Sink, pdf exporter.PDFConverter, notifier Notifier, metrics *infrastructure.BusinessMetrics, logger *slog.Logger) *Publisher {
	if logger == nil {
		logger = infrastructure.GetLogger()
	}
	return &Publisher{
		sink:     sink,
		pdf:      pdf,
		notifier: notifier,
		metrics:  metrics,
		logger:   logger.With(slog.String("component", "share.publisher")),
	}
}

// SinkName returns the configured sink identifier
func (p *Publisher) SinkName() string {
	return p.sink.Name()
}

// ExportAndShare delivers doc in the format of intent. An HTML document is
// printed to PDF when the intent asks for PDF; any other format mismatch is
// rejected. Every failure is a *ShareError and nothing is retried.
func (p *Publisher) ExportAndShare(ctx context.Context, doc *domain.Document, intent Intent) (*Receipt, error) {
	if doc == nil {
		return nil, newShareError(p.sink.Name(), "Aucun document à partager.", exporter.ErrNilReport)
	}

	start := time.Now()
	target, err := p.prepare(ctx, doc, intent)
	if err == nil {
		var receipt *Receipt
		receipt, err = p.sink.Put(ctx, target)
		if err == nil {
			p.succeeded(ctx, target, receipt, time.Since(start))
			return receipt, nil
		}
		err = newShareError(p.sink.Name(), failureReason(err), err)
	}

	if target == nil {
		target = doc
	}
	p.failed(ctx, target, err, time.Since(start))
	return nil, err
}

func (p *Publisher) prepare(ctx context.Context, doc *domain.Document, intent Intent) (*domain.Document, error) {
	format := intent.Format
	if format == "" || format == doc.Format {
		return doc, nil
	}

	if format != domain.ReportFormatPDF || doc.Format != domain.ReportFormatHTML {
		return nil, newShareError(p.sink.Name(), "Format de partage non pris en charge.",
			fmt.Errorf("cannot convert %s document to %s", doc.Format, format))
	}
	if p.pdf == nil {
		return nil, newShareError(p.sink.Name(), "La génération PDF n'est pas disponible.", exporter.ErrPDFUnavailable)
	}

	content, err := p.pdf.ConvertHTML(ctx, doc.Content)
	if err != nil {
		return nil, newShareError(p.sink.Name(), "La conversion en PDF a échoué.", err)
	}

	checksum := exporter.Checksum(content)
	return &domain.Document{
		ID:       exporter.DocumentID(doc.Kind, checksum),
		Name:     doc.Name,
		Kind:     doc.Kind,
		Format:   domain.ReportFormatPDF,
		MIMEType: domain.ReportFormatPDF.MIMEType(),
		Checksum: checksum,
		Content:  content,
	}, nil
}

func failureReason(err error) string {
	switch {
	case errors.Is(err, ErrSharingDisabled):
		return "Le partage est désactivé."
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return "Le partage a été interrompu."
	default:
		return "Le document n'a pas pu être partagé."
	}
}

func (p *Publisher) succeeded(ctx context.Context, doc *domain.Document, receipt *Receipt, elapsed time.Duration) {
	infrastructure.RecordExport(ctx, p.metrics, p.sink.Name(), string(doc.Format), elapsed, nil)

	p.logger.InfoContext(ctx, "Document shared",
		slog.String("document_id", doc.ID),
		slog.String("sink", receipt.Sink),
		slog.String("location", receipt.Location),
		slog.Duration("duration", elapsed))

	if p.notifier != nil {
		p.notifier.BroadcastExport(ctx, events.ExportEvent{
			DocumentID: doc.ID,
			Name:       receipt.Name,
			Kind:       string(doc.Kind),
			Format:     string(doc.Format),
			Sink:       receipt.Sink,
			Location:   receipt.Location,
			Bytes:      receipt.Bytes,
		}, false)
	}
}

func (p *Publisher) failed(ctx context.Context, doc *domain.Document, err error, elapsed time.Duration) {
	infrastructure.RecordExport(ctx, p.metrics, p.sink.Name(), string(doc.Format), elapsed, err)
	infrastructure.RecordError(ctx, err)

	reason := "Le document n'a pas pu être partagé."
	var shareErr *ShareError
	if errors.As(err, &shareErr) {
		reason = shareErr.Reason
	}

	p.logger.WarnContext(ctx, "Document share failed",
		slog.String("document_id", doc.ID),
		slog.String("sink", p.sink.Name()),
		slog.String("reason", reason),
		slog.String("error", err.Error()))

	if p.notifier != nil {
		p.notifier.BroadcastExport(ctx, events.ExportEvent{
			DocumentID:  doc.ID,
			Name:        doc.FileName(),
			Kind:        string(doc.Kind),
			Format:      string(doc.Format),
			Sink:        p.sink.Name(),
			Reason:      reason,
			Recoverable: true,
		}, true)
	}
}
