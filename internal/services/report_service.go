package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/go-playground/validator/v10"

	"fieldreport/internal/dataprocessing"
	apperrors "fieldreport/internal/errors"
	"fieldreport/internal/infrastructure"
	"fieldreport/internal/share"
	"fieldreport/pkg/contracts/domain"
)

// FetchFailedNotice is shown in place of data when the backend fetch failed
const FetchFailedNotice = "Erreur lors de la récupération des rapports."

// ReportService runs the report pipeline for both report kinds
type ReportService struct {
	source    RecordSource
	builder   *dataprocessing.Builder
	renderer  DocumentRenderer
	publisher DocumentPublisher
	metrics   *infrastructure.BusinessMetrics
	sessions  *sessionTracker
	validate  *validator.Validate
	logger    *slog.Logger
}

// ReportServiceOption customizes a ReportService
type ReportServiceOption func(*ReportService)

// WithPublisher enables Share
func WithPublisher(p DocumentPublisher) ReportServiceOption {
	return func(s *ReportService) { s.publisher = p }
}

// WithMetrics records report metrics
func WithMetrics(m *infrastructure.BusinessMetrics) ReportServiceOption {
	return func(s *ReportService) { s.metrics = m }
}

// NewReportService creates a report service with injected dependencies
func NewReportService(source RecordSource, builder *dataprocessing.Builder, renderer DocumentRenderer, logger *slog.Logger, opts ...ReportServiceOption) *ReportService {
	if logger == nil {
		logger = slog.Default()
	}

	s := &ReportService{
		source:   source,
		builder:  builder,
		renderer: renderer,
		sessions: newSessionTracker(),
		validate: validator.New(),
		logger:   logger.With(slog.String("component", "report_service")),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// PriceReport fetches price observations and builds the price report.
// A fetch failure yields an empty report with FetchFailedNotice set.
func (s *ReportService) PriceReport(ctx context.Context, sessionID string, query domain.ReportQuery) (*domain.PriceReport, error) {
	kind := string(domain.ReportKindPrice)
	fetchCtx, ticket := s.sessions.begin(ctx, sessionKey(sessionID, kind))
	defer s.sessions.end(ticket)

	records, fetchErr := s.source.FetchPrice(fetchCtx, query)
	if err := s.checkFetch(ctx, ticket, kind, fetchErr); err != nil {
		return nil, err
	}
	if s.logger.Enabled(ctx, slog.LevelDebug) {
		s.logRecordIssues(ctx, kind, dataprocessing.InspectRecords(s.validate, records))
	}

	report, err := s.builder.BuildPriceReport(fetchCtx, records)
	if err != nil {
		return nil, s.buildFailed(ctx, ticket, kind, err)
	}
	if !s.sessions.current(ticket) {
		return nil, s.superseded(ctx, kind)
	}

	if fetchErr != nil {
		report.Notice = FetchFailedNotice
	}
	infrastructure.RecordReportBuilt(ctx, s.metrics, kind, report.RowCount(), fetchErr != nil)
	s.logger.InfoContext(ctx, "Price report built",
		slog.Int("records", report.RecordCount),
		slog.Int("sections", len(report.Sections)),
		slog.Bool("degraded", fetchErr != nil))

	return report, nil
}

// QuantityReport fetches quantity observations and builds the occupancy report.
// A fetch failure yields an empty report with FetchFailedNotice set.
func (s *ReportService) QuantityReport(ctx context.Context, sessionID string, query domain.ReportQuery) (*domain.QuantityReport, error) {
	kind := string(domain.ReportKindQuantity)
	fetchCtx, ticket := s.sessions.begin(ctx, sessionKey(sessionID, kind))
	defer s.sessions.end(ticket)

	records, fetchErr := s.source.FetchQuantity(fetchCtx, query)
	if err := s.checkFetch(ctx, ticket, kind, fetchErr); err != nil {
		return nil, err
	}
	if s.logger.Enabled(ctx, slog.LevelDebug) {
		s.logRecordIssues(ctx, kind, dataprocessing.InspectRecords(s.validate, records))
	}

	report, err := s.builder.BuildQuantityReport(fetchCtx, records)
	if err != nil {
		return nil, s.buildFailed(ctx, ticket, kind, err)
	}
	if !s.sessions.current(ticket) {
		return nil, s.superseded(ctx, kind)
	}

	if fetchErr != nil {
		report.Notice = FetchFailedNotice
	}
	infrastructure.RecordReportBuilt(ctx, s.metrics, kind, report.RowCount(), fetchErr != nil)
	s.logger.InfoContext(ctx, "Quantity report built",
		slog.Int("records", report.RecordCount),
		slog.Int("sections", len(report.Sections)),
		slog.Bool("degraded", fetchErr != nil))

	return report, nil
}

// checkFetch decides what a finished fetch means. It returns a non-nil error
// only when the result must not be published: the fetch was superseded or the
// caller itself went away. Any other fetch error degrades to an empty report.
func (s *ReportService) checkFetch(ctx context.Context, ticket *fetchTicket, kind string, fetchErr error) error {
	if !s.sessions.current(ticket) {
		return s.superseded(ctx, kind)
	}
	if ctx.Err() != nil {
		return ctx.Err()
	}
	if fetchErr != nil {
		infrastructure.RecordError(ctx, fetchErr)
		s.logger.WarnContext(ctx, "Record fetch failed, serving empty report",
			slog.String("kind", kind),
			slog.String("error", fetchErr.Error()),
			slog.Bool("network", apperrors.IsType(fetchErr, apperrors.ErrTypeNetwork)),
			slog.Bool("parsing", apperrors.IsType(fetchErr, apperrors.ErrTypeParsing)))
	}
	return nil
}

// logRecordIssues reports records that break the record contract. They are
// still grouped and rendered.
func (s *ReportService) logRecordIssues(ctx context.Context, kind string, issues []dataprocessing.RecordIssue) {
	if len(issues) == 0 {
		return
	}
	for _, issue := range issues {
		s.logger.DebugContext(ctx, "Record breaks contract",
			slog.String("kind", kind),
			slog.Int("index", issue.Index),
			slog.String("field", issue.Field),
			slog.String("rule", issue.Rule))
	}
	s.logger.DebugContext(ctx, "Records with contract issues",
		slog.String("kind", kind),
		slog.Int("issues", len(issues)))
}

func (s *ReportService) buildFailed(ctx context.Context, ticket *fetchTicket, kind string, err error) error {
	if !s.sessions.current(ticket) {
		return s.superseded(ctx, kind)
	}
	if ctx.Err() != nil {
		return ctx.Err()
	}
	return fmt.Errorf("build %s report: %w", kind, err)
}

func (s *ReportService) superseded(ctx context.Context, kind string) error {
	infrastructure.RecordSuperseded(ctx, s.metrics, kind)
	s.logger.DebugContext(ctx, "Discarding superseded fetch", slog.String("kind", kind))
	return ErrSupersededFetch
}

// Document builds a fresh report of kind and renders it in format
func (s *ReportService) Document(ctx context.Context, kind domain.ReportKind, query domain.ReportQuery, format domain.ReportFormat) (*domain.Document, error) {
	var (
		doc *domain.Document
		err error
	)

	switch kind {
	case domain.ReportKindPrice:
		var report *domain.PriceReport
		if report, err = s.PriceReport(ctx, "", query); err == nil {
			doc, err = s.renderer.RenderPrice(ctx, report, format)
		}
	case domain.ReportKindQuantity:
		var report *domain.QuantityReport
		if report, err = s.QuantityReport(ctx, "", query); err == nil {
			doc, err = s.renderer.RenderQuantity(ctx, report, format)
		}
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownReportKind, kind)
	}
	if err != nil {
		return nil, err
	}

	infrastructure.RecordDocumentRendered(ctx, s.metrics, string(kind), string(format), doc.Size())
	s.logger.InfoContext(ctx, "Document rendered",
		slog.String("document_id", doc.ID),
		slog.String("kind", string(kind)),
		slog.String("format", string(format)),
		slog.Int("bytes", doc.Size()))

	return doc, nil
}

// Share renders the report and hands it to the publisher. PDF is printed
// from the HTML document at share time.
func (s *ReportService) Share(ctx context.Context, kind domain.ReportKind, query domain.ReportQuery, intent share.Intent) (*share.Receipt, error) {
	if s.publisher == nil {
		return nil, ErrSharingUnavailable
	}

	renderFormat := intent.Format
	if renderFormat == domain.ReportFormatPDF || renderFormat == "" {
		renderFormat = domain.ReportFormatHTML
	}
	if intent.Format == "" {
		intent.Format = domain.ReportFormatPDF
	}

	start := time.Now()
	doc, err := s.Document(ctx, kind, query, renderFormat)
	if err != nil {
		return nil, err
	}

	receipt, err := s.publisher.ExportAndShare(ctx, doc, intent)
	if err != nil {
		var shareErr *share.ShareError
		if errors.As(err, &shareErr) {
			s.logger.WarnContext(ctx, "Share failed",
				slog.String("kind", string(kind)),
				slog.String("reason", shareErr.Reason))
		}
		return nil, err
	}

	s.logger.InfoContext(ctx, "Report shared",
		slog.String("kind", string(kind)),
		slog.String("location", receipt.Location),
		slog.Duration("duration", time.Since(start)))
	return receipt, nil
}

// ActiveFetches returns the number of session-tracked fetches in flight
func (s *ReportService) ActiveFetches() int {
	return s.sessions.active()
}
