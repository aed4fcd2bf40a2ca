package errors

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"fieldreport/internal/infrastructure"
)

func newTestHandler() *ErrorHandler {
	return NewErrorHandler(slog.New(slog.NewTextHandler(io.Discard, nil)), false)
}

func TestErrorHandler_ErrorToProblem(t *testing.T) {
	tests := []struct {
		name       string
		err        error
		wantStatus int
		wantType   string
	}{
		{"deadline", context.DeadlineExceeded, http.StatusGatewayTimeout, TypeTimeout},
		{"wrapped cancel", fmt.Errorf("fetch: %w", context.Canceled), http.StatusGatewayTimeout, TypeTimeout},
		{"api validation", ErrValidation("date", "bad"), http.StatusBadRequest, TypeValidation},
		{"api unsupported format", ErrUnsupportedFormat, http.StatusBadRequest, TypeUnsupportedFormat},
		{"api superseded", ErrSuperseded, http.StatusConflict, TypeFetchSuperseded},
		{"api sharing disabled", ErrSharingDisabled, http.StatusServiceUnavailable, TypeServiceDown},
		{"api invalid body", InvalidRequestWithError(io.ErrUnexpectedEOF), http.StatusBadRequest, TypeValidation},
		{"api pdf unavailable", ErrPDFUnavailable, http.StatusServiceUnavailable, TypeServiceDown},
		{"app network", NewNetworkError("backend down", io.EOF), http.StatusBadGateway, TypeUpstream},
		{"app parsing", NewParsingError("bad json", nil), http.StatusBadGateway, TypeUpstreamPayload},
		{"app export", fmt.Errorf("share: %w", NewExportError("webhook refused", nil)), http.StatusBadGateway, TypeShareFailed},
		{"app render", fmt.Errorf("document: %w", NewRenderError("template", nil)), http.StatusInternalServerError, TypeRenderFailed},
		{"app not found", NewNotFoundError("export x.csv"), http.StatusNotFound, TypeNotFound},
		{"plain not found", fmt.Errorf("report not found"), http.StatusNotFound, TypeNotFound},
		{"plain unknown", fmt.Errorf("boom"), http.StatusInternalServerError, TypeInternal},
	}

	h := newTestHandler()
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/api/reports/price", nil)
			problem := h.ErrorToProblem(tt.err, req)
			assert.Equal(t, tt.wantStatus, problem.Status)
			assert.Equal(t, tt.wantType, problem.Type)
			assert.Equal(t, "/api/reports/price", problem.Instance)
		})
	}
}

func TestErrorHandler_HandleError(t *testing.T) {
	h := newTestHandler()

	req := httptest.NewRequest(http.MethodGet, "/api/reports/price", nil)
	req = req.WithContext(infrastructure.WithTraceID(req.Context(), "trace-123"))
	rec := httptest.NewRecorder()

	h.HandleError(rec, req, NewExportError("upload refused", nil).WithContext("sink", "webhook"))

	assert.Equal(t, http.StatusBadGateway, rec.Code)

	var body map[string]interface{}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, TypeShareFailed, body["type"])
	assert.Equal(t, "upload refused", body["detail"])
	assert.Equal(t, "trace-123", body["trace_id"])
	assert.Equal(t, "webhook", body["sink"])
	assert.Equal(t, "EXPORT", body["error_type"])
}

func TestErrorHandler_HandleErrorNil(t *testing.T) {
	rec := httptest.NewRecorder()
	newTestHandler().HandleError(rec, httptest.NewRequest(http.MethodGet, "/", nil), nil)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Empty(t, rec.Body.String())
}

func TestErrorHandler_NotFoundAndMethodNotAllowed(t *testing.T) {
	h := newTestHandler()

	rec := httptest.NewRecorder()
	h.NotFound(rec, httptest.NewRequest(http.MethodGet, "/nope", nil))
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec = httptest.NewRecorder()
	h.MethodNotAllowed(rec, httptest.NewRequest(http.MethodDelete, "/api/health", nil))
	assert.Equal(t, http.StatusMethodNotAllowed, rec.Code)
	assert.Contains(t, rec.Body.String(), "DELETE")
}

func TestErrorHandler_HandlePanic(t *testing.T) {
	h := NewErrorHandler(slog.New(slog.NewTextHandler(io.Discard, nil)), true)
	rec := httptest.NewRecorder()

	h.HandlePanic(rec, httptest.NewRequest(http.MethodGet, "/", nil), "kaboom")

	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.Contains(t, rec.Body.String(), "kaboom")
}

func TestProblemDetails_MarshalJSON(t *testing.T) {
	problem := NewProblemDetails(http.StatusBadRequest, TypeValidation, "Validation Failed", "", "/x").
		WithExtension("errors", []ValidationError{{Field: "date", Message: "invalid"}})

	data, err := json.Marshal(problem)
	require.NoError(t, err)

	var decoded map[string]interface{}
	require.NoError(t, json.Unmarshal(data, &decoded))
	assert.Equal(t, float64(400), decoded["status"])
	assert.NotContains(t, decoded, "detail")
	assert.Contains(t, decoded, "errors")
}

func TestAppError(t *testing.T) {
	cause := io.ErrUnexpectedEOF
	err := NewNetworkError("fetch price records", cause)

	assert.Equal(t, "[NETWORK] fetch price records: unexpected EOF", err.Error())
	assert.ErrorIs(t, err, cause)
	assert.True(t, IsType(fmt.Errorf("wrap: %w", err), ErrTypeNetwork))
	assert.False(t, IsType(err, ErrTypeParsing))
	assert.Equal(t, "[NOT_FOUND] report not found", NewNotFoundError("report").Error())
}
