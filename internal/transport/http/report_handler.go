package http

import (
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/render"

	apierrors "fieldreport/internal/errors"
	"fieldreport/internal/exporter"
	"fieldreport/internal/middleware"
	"fieldreport/internal/services"
	"fieldreport/internal/share"
	api "fieldreport/pkg/contracts/api/v1"
	"fieldreport/pkg/contracts/domain"
)

var documentFormats = []string{"html", "pdf", "csv", "xlsx", "excel"}

// ReportHandler serves built reports, rendered documents and share requests
type ReportHandler struct {
	service      ReportServiceInterface
	validation   *middleware.ValidationMiddleware
	params       *middleware.QueryParamValidator
	logger       *slog.Logger
	errorHandler *apierrors.ErrorHandler
}

// NewReportHandler creates a new report handler with RFC 7807 error handling
func NewReportHandler(service ReportServiceInterface, logger *slog.Logger, errorHandler *apierrors.ErrorHandler) *ReportHandler {
	return &ReportHandler{
		service:      service,
		validation:   middleware.NewValidationMiddleware(logger, errorHandler),
		params:       middleware.NewQueryParamValidator(logger, errorHandler),
		logger:       logger.With(slog.String("component", "report_handler")),
		errorHandler: errorHandler,
	}
}

// Routes returns the report routes
func (h *ReportHandler) Routes() chi.Router {
	r := chi.NewRouter()

	r.Use(middleware.Session)

	r.With(render.SetContentType(render.ContentTypeJSON)).Get("/price", h.GetPriceReport)
	r.With(render.SetContentType(render.ContentTypeJSON)).Get("/quantity", h.GetQuantityReport)

	r.Route("/{kind}", func(r chi.Router) {
		r.Use(h.KindCtx)
		r.Use(middleware.AuditLog(h.logger))
		r.Get("/document", h.GetDocument)
		r.With(h.validation.ValidateRequest, middleware.ContentTypeValidator("application/json")).
			Post("/share", h.ShareReport)
	})

	return r
}

// KindCtx resolves the {kind} URL parameter
func (h *ReportHandler) KindCtx(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		kind, err := domain.ParseReportKind(chi.URLParam(r, "kind"))
		if err != nil {
			h.errorHandler.HandleError(w, r, apierrors.ErrUnknownReportKind)
			return
		}
		next.ServeHTTP(w, r.WithContext(contextWithKind(r.Context(), kind)))
	})
}

// GetPriceReport handles GET /api/reports/price
func (h *ReportHandler) GetPriceReport(w http.ResponseWriter, r *http.Request) {
	query, ok := h.parseQuery(w, r)
	if !ok {
		return
	}

	report, err := h.service.PriceReport(r.Context(), middleware.GetSessionID(r.Context()), query)
	if err != nil {
		h.handleServiceError(w, r, err)
		return
	}

	render.JSON(w, r, api.Success(report))
}

// GetQuantityReport handles GET /api/reports/quantity
func (h *ReportHandler) GetQuantityReport(w http.ResponseWriter, r *http.Request) {
	query, ok := h.parseQuery(w, r)
	if !ok {
		return
	}

	report, err := h.service.QuantityReport(r.Context(), middleware.GetSessionID(r.Context()), query)
	if err != nil {
		h.handleServiceError(w, r, err)
		return
	}

	render.JSON(w, r, api.Success(report))
}

// GetDocument handles GET /api/reports/{kind}/document?format=
func (h *ReportHandler) GetDocument(w http.ResponseWriter, r *http.Request) {
	query, ok := h.parseQuery(w, r)
	if !ok {
		return
	}
	value, ok := h.params.ValidateEnum(w, r, "format", documentFormats, string(domain.ReportFormatHTML))
	if !ok {
		return
	}
	format, err := domain.ParseReportFormat(value)
	if err != nil {
		h.errorHandler.HandleError(w, r, apierrors.ErrUnsupportedFormat)
		return
	}

	doc, err := h.service.Document(r.Context(), kindFromContext(r.Context()), query, format)
	if err != nil {
		h.handleServiceError(w, r, err)
		return
	}

	disposition := "attachment"
	if doc.Format == domain.ReportFormatHTML {
		disposition = "inline"
	}

	w.Header().Set("Content-Type", doc.MIMEType)
	w.Header().Set("Content-Length", strconv.Itoa(doc.Size()))
	w.Header().Set("Content-Disposition", fmt.Sprintf("%s; filename=%q", disposition, doc.FileName()))
	w.Header().Set("X-Document-ID", doc.ID)
	w.Header().Set("ETag", strconv.Quote(doc.Checksum))
	w.WriteHeader(http.StatusOK)
	if _, err := w.Write(doc.Content); err != nil {
		h.logger.WarnContext(r.Context(), "Document write interrupted",
			slog.String("document_id", doc.ID),
			slog.String("error", err.Error()))
	}
}

// ShareReport handles POST /api/reports/{kind}/share
func (h *ReportHandler) ShareReport(w http.ResponseWriter, r *http.Request) {
	var req api.ShareRequest
	if !h.validation.DecodeAndValidate(w, r, &req) {
		return
	}

	intent := share.Intent{Format: domain.ReportFormatPDF}
	if req.Format != "" {
		format, err := domain.ParseReportFormat(req.Format)
		if err != nil {
			h.errorHandler.HandleError(w, r, apierrors.ErrUnsupportedFormat)
			return
		}
		intent.Format = format
	}

	kind := kindFromContext(r.Context())
	receipt, err := h.service.Share(r.Context(), kind, req.Query(), intent)
	if err != nil {
		h.handleServiceError(w, r, err)
		return
	}

	w.Header().Set("X-Document-ID", receipt.DocumentID)
	render.Status(r, http.StatusCreated)
	render.JSON(w, r, api.Success(api.ShareResponse{
		DocumentID: receipt.DocumentID,
		Name:       receipt.Name,
		Kind:       kind,
		Format:     intent.Format,
		Sink:       receipt.Sink,
		Location:   receipt.Location,
		Bytes:      receipt.Bytes,
		Checksum:   receipt.Checksum,
		SharedAt:   time.Now().UTC(),
	}))
}

// parseQuery reads and validates the report filters from the query string
func (h *ReportHandler) parseQuery(w http.ResponseWriter, r *http.Request) (domain.ReportQuery, bool) {
	q := r.URL.Query()
	req := api.ReportRequest{
		Date:      q.Get("date"),
		UserID:    q.Get("user_id"),
		MissionID: q.Get("mission_id"),
	}
	if err := h.validation.ValidateStruct(&req); err != nil {
		h.errorHandler.HandleError(w, r, err)
		return domain.ReportQuery{}, false
	}
	return req.Query(), true
}

// handleServiceError maps service sentinels onto API errors
func (h *ReportHandler) handleServiceError(w http.ResponseWriter, r *http.Request, err error) {
	switch {
	case errors.Is(err, services.ErrSupersededFetch):
		h.errorHandler.HandleError(w, r, apierrors.ErrSuperseded)
	case errors.Is(err, services.ErrUnknownReportKind):
		h.errorHandler.HandleError(w, r, apierrors.ErrUnknownReportKind)
	case errors.Is(err, services.ErrSharingUnavailable):
		h.errorHandler.HandleError(w, r, apierrors.ErrSharingDisabled)
	case errors.Is(err, exporter.ErrPDFUnavailable):
		h.errorHandler.HandleError(w, r, apierrors.ErrPDFUnavailable)
	default:
		// Share failures unwrap to EXPORT application errors.
		h.errorHandler.HandleError(w, r, err)
	}
}
