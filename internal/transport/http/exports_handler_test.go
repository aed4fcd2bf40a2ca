package http

import (
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	apierrors "fieldreport/internal/errors"
	"fieldreport/internal/files"
)

func newExportsRouter(t *testing.T) (http.Handler, string) {
	t.Helper()
	dir := t.TempDir()
	now := time.Now()
	for i, name := range []string{"Rapport_Prix_11111111.pdf", "RapportQte_22222222.csv", "Rapport_Prix_33333333.csv"} {
		path := filepath.Join(dir, name)
		require.NoError(t, os.WriteFile(path, []byte("contenu "+name), 0644))
		mtime := now.Add(time.Duration(i-3) * time.Hour)
		require.NoError(t, os.Chtimes(path, mtime, mtime))
	}

	h := NewExportsHandler(files.NewArchive(dir, discardLogger()), discardLogger(), apierrors.NewErrorHandler(discardLogger(), false))
	r := chi.NewRouter()
	r.Mount("/api/exports", h.Routes())
	return r, dir
}

func TestExportsHandler_List(t *testing.T) {
	router, _ := newExportsRouter(t)

	tests := []struct {
		name      string
		target    string
		wantCount int
		wantFirst string
	}{
		{name: "all newest first", target: "/api/exports", wantCount: 3, wantFirst: "Rapport_Prix_33333333.csv"},
		{name: "by kind", target: "/api/exports?kind=QUANTITY", wantCount: 1, wantFirst: "RapportQte_22222222.csv"},
		{name: "by format", target: "/api/exports?format=pdf", wantCount: 1, wantFirst: "Rapport_Prix_11111111.pdf"},
		{name: "since timestamp", target: "/api/exports?since=" + time.Now().Add(-150*time.Minute).UTC().Format(time.RFC3339), wantCount: 2, wantFirst: "Rapport_Prix_33333333.csv"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := httptest.NewRecorder()
			router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, tt.target, nil))

			require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
			body := decodeBody(t, rec)
			data := body["data"].(map[string]interface{})
			assert.EqualValues(t, tt.wantCount, data["count"])
			first := data["exports"].([]interface{})[0].(map[string]interface{})
			assert.Equal(t, tt.wantFirst, first["name"])
			assert.Equal(t, "/api/exports/"+tt.wantFirst, first["url"])
		})
	}
}

func TestExportsHandler_ListRejectsBadFilters(t *testing.T) {
	router, _ := newExportsRouter(t)

	for _, target := range []string{"/api/exports?kind=stock", "/api/exports?format=docx", "/api/exports?since=yesterday"} {
		rec := httptest.NewRecorder()
		router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, target, nil))
		assert.Equal(t, http.StatusBadRequest, rec.Code, target)
	}
}

func TestExportsHandler_Download(t *testing.T) {
	router, _ := newExportsRouter(t)

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/exports/RapportQte_22222222.csv", nil))

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "text/csv; charset=utf-8", rec.Header().Get("Content-Type"))
	assert.Equal(t, `attachment; filename="RapportQte_22222222.csv"`, rec.Header().Get("Content-Disposition"))
	assert.Equal(t, "contenu RapportQte_22222222.csv", rec.Body.String())

	rec = httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/exports/RapportQte_99999999.csv", nil))
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec = httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/exports/..%2Fsecret.txt", nil))
	assert.Equal(t, http.StatusNotFound, rec.Code)
}
