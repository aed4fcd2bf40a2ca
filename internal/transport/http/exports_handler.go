package http

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"path"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/render"

	apierrors "fieldreport/internal/errors"
	"fieldreport/internal/files"
	"fieldreport/internal/middleware"
	api "fieldreport/pkg/contracts/api/v1"
	"fieldreport/pkg/contracts/domain"
)

// ExportArchive is the read side of the exports directory
type ExportArchive interface {
	List(ctx context.Context, filter files.Filter) ([]files.ExportFile, error)
	Open(name string) (*os.File, files.ExportFile, error)
}

// ExportsHandler lists and serves documents written by the file sink
type ExportsHandler struct {
	archive      ExportArchive
	params       *middleware.QueryParamValidator
	logger       *slog.Logger
	errorHandler *apierrors.ErrorHandler
}

// NewExportsHandler creates a new exports handler
func NewExportsHandler(archive ExportArchive, logger *slog.Logger, errorHandler *apierrors.ErrorHandler) *ExportsHandler {
	return &ExportsHandler{
		archive:      archive,
		params:       middleware.NewQueryParamValidator(logger, errorHandler),
		logger:       logger.With(slog.String("component", "exports_handler")),
		errorHandler: errorHandler,
	}
}

// Routes returns the export archive routes
func (h *ExportsHandler) Routes() chi.Router {
	r := chi.NewRouter()
	r.With(render.SetContentType(render.ContentTypeJSON)).Get("/", h.ListExports)
	r.Get("/{name}", h.DownloadExport)
	return r
}

// ListExports handles GET /api/exports?kind=&format=&since=
func (h *ExportsHandler) ListExports(w http.ResponseWriter, r *http.Request) {
	kind, ok := h.params.ValidateEnum(w, r, "kind", []string{"price", "quantity"}, "")
	if !ok {
		return
	}
	format, ok := h.params.ValidateEnum(w, r, "format", documentFormats, "")
	if !ok {
		return
	}
	since, err := parseSince(r.URL.Query().Get("since"))
	if err != nil {
		h.errorHandler.HandleError(w, r, apierrors.ErrValidation("since", "since must be a date (YYYY-MM-DD) or an RFC 3339 timestamp"))
		return
	}

	filter := files.Filter{Kind: domain.ReportKind(kind), Since: since}
	if format != "" {
		// already validated against documentFormats
		filter.Format, _ = domain.ParseReportFormat(format)
	}

	exports, err := h.archive.List(r.Context(), filter)
	if err != nil {
		h.errorHandler.HandleError(w, r, err)
		return
	}

	base := strings.TrimSuffix(r.URL.Path, "/")
	resp := api.ExportListResponse{Exports: make([]api.ExportEntry, 0, len(exports)), Count: len(exports)}
	for _, e := range exports {
		resp.Exports = append(resp.Exports, api.ExportEntry{
			Name:       e.Name,
			Kind:       e.Kind,
			Format:     e.Format,
			Checksum:   e.Checksum,
			Size:       e.Size,
			ModifiedAt: e.ModTime,
			URL:        path.Join(base, e.Name),
		})
	}

	render.JSON(w, r, api.Success(resp))
}

// DownloadExport handles GET /api/exports/{name}
func (h *ExportsHandler) DownloadExport(w http.ResponseWriter, r *http.Request) {
	name := chi.URLParam(r, "name")

	f, export, err := h.archive.Open(name)
	if err != nil {
		h.errorHandler.HandleError(w, r, err)
		return
	}
	defer f.Close()

	h.logger.DebugContext(r.Context(), "Serving export",
		slog.String("name", export.Name),
		slog.Int64("bytes", export.Size))

	w.Header().Set("Content-Type", export.Format.MIMEType())
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", export.Name))
	w.Header().Set("ETag", fmt.Sprintf("%q", export.Checksum))
	http.ServeContent(w, r, export.Name, export.ModTime, f)
}

func parseSince(value string) (time.Time, error) {
	value = strings.TrimSpace(value)
	if value == "" {
		return time.Time{}, nil
	}
	if t, err := time.Parse(time.DateOnly, value); err == nil {
		return t, nil
	}
	return time.Parse(time.RFC3339, value)
}
