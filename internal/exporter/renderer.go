package exporter

import (
	"context"
	"encoding/hex"
	"errors"
	"fmt"
	"log/slog"

	"golang.org/x/crypto/blake2b"

	apperrors "fieldreport/internal/errors"
	"fieldreport/pkg/contracts/domain"
)

// ErrNilReport is returned when rendering is asked for a missing report
var ErrNilReport = errors.New("report is nil")

// Renderer turns built reports into documents
type Renderer struct {
	logger *slog.Logger
	pdf    PDFConverter
}

// NewRenderer creates a renderer. pdf may be nil, in which case PDF output
// fails with ErrPDFUnavailable and every other format still works.
func NewRenderer(logger *slog.Logger, pdf PDFConverter) *Renderer {
	if logger == nil {
		logger = slog.Default()
	}
	return &Renderer{
		logger: logger.With(slog.String("component", "renderer")),
		pdf:    pdf,
	}
}

// RenderPrice renders a price report in the requested format
func (r *Renderer) RenderPrice(ctx context.Context, report *domain.PriceReport, format domain.ReportFormat) (*domain.Document, error) {
	if report == nil {
		return nil, ErrNilReport
	}
	return r.Render(ctx, PriceLayout(report), format)
}

// RenderQuantity renders a quantity report in the requested format
func (r *Renderer) RenderQuantity(ctx context.Context, report *domain.QuantityReport, format domain.ReportFormat) (*domain.Document, error) {
	if report == nil {
		return nil, ErrNilReport
	}
	return r.Render(ctx, QuantityLayout(report), format)
}

// Render encodes a layout. Output is a pure function of the layout for the
// HTML and CSV formats.
func (r *Renderer) Render(ctx context.Context, l *Layout, format domain.ReportFormat) (*domain.Document, error) {
	var (
		content []byte
		err     error
	)

	switch format {
	case domain.ReportFormatHTML, "":
		format = domain.ReportFormatHTML
		content, err = encodeHTML(l)
	case domain.ReportFormatCSV:
		content, err = encodeCSV(l)
	case domain.ReportFormatExcel:
		content, err = encodeXLSX(l)
	case domain.ReportFormatPDF:
		content, err = r.encodePDF(ctx, l)
	default:
		return nil, apperrors.NewRenderError(fmt.Sprintf("unsupported report format %q", format), nil).
			WithContext("kind", string(l.Kind))
	}
	if err != nil {
		return nil, apperrors.NewRenderError(fmt.Sprintf("render %s %s", l.Kind, format), err).
			WithContext("kind", string(l.Kind)).
			WithContext("format", string(format))
	}

	doc := newDocument(l, format, content)

	r.logger.DebugContext(ctx, "document rendered",
		slog.String("kind", string(l.Kind)),
		slog.String("format", string(format)),
		slog.Int("sections", len(l.Sections)),
		slog.Int("rows", l.RowCount()),
		slog.Int("bytes", doc.Size()))

	return doc, nil
}

func (r *Renderer) encodePDF(ctx context.Context, l *Layout) ([]byte, error) {
	if r.pdf == nil {
		return nil, ErrPDFUnavailable
	}
	html, err := encodeHTML(l)
	if err != nil {
		return nil, err
	}
	return r.pdf.ConvertHTML(ctx, html)
}

func newDocument(l *Layout, format domain.ReportFormat, content []byte) *domain.Document {
	checksum := Checksum(content)
	return &domain.Document{
		ID:       DocumentID(l.Kind, checksum),
		Name:     l.Name,
		Kind:     l.Kind,
		Format:   format,
		MIMEType: format.MIMEType(),
		Checksum: checksum,
		Content:  content,
	}
}

// Checksum returns the hex BLAKE2b-256 digest of content
func Checksum(content []byte) string {
	sum := blake2b.Sum256(content)
	return hex.EncodeToString(sum[:])
}

// DocumentID derives the stable document identifier from a checksum
func DocumentID(kind domain.ReportKind, checksum string) string {
	if len(checksum) > 16 {
		checksum = checksum[:16]
	}
	return fmt.Sprintf("%s-%s", kind, checksum)
}
