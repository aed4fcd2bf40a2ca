package app

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"fieldreport/internal/config"
	"fieldreport/internal/shared/testutil"
	"fieldreport/pkg/contracts/events"
)

func testConfig(t *testing.T, baseURL string) *config.Config {
	t.Helper()
	dir := t.TempDir()

	cfg := config.Default()
	cfg.Server.Port = 0
	cfg.Server.Host = "127.0.0.1"
	cfg.Backend.BaseURL = baseURL
	cfg.Paths = config.PathsConfig{
		DataDir:    filepath.Join(dir, "data"),
		ExportsDir: filepath.Join(dir, "exports"),
		LogsDir:    filepath.Join(dir, "logs"),
	}
	cfg.Logging.Output = "console"
	cfg.Logging.Level = "error"
	cfg.Telemetry.TraceExporter = "none"
	cfg.Telemetry.MetricExporter = "none"
	cfg.Share.Sink = config.SinkFile
	cfg.Security.RateLimit.Enabled = false
	return cfg
}

func newTestApplication(t *testing.T) *Application {
	t.Helper()
	backend := testutil.NewBackend(t, testutil.PriceRecords(), testutil.QuantityRecords())
	app, err := NewApplication(testConfig(t, backend.BaseURL()))
	require.NoError(t, err)
	return app
}

func serve(app *Application, method, target, body string) *httptest.ResponseRecorder {
	var reader io.Reader
	if body != "" {
		reader = strings.NewReader(body)
	}
	req := httptest.NewRequest(method, target, reader)
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	rec := httptest.NewRecorder()
	app.Router.ServeHTTP(rec, req)
	return rec
}

func TestNewApplication(t *testing.T) {
	app := newTestApplication(t)

	require.NotNil(t, app.Services)
	assert.NotNil(t, app.Services.Reports)
	assert.NotNil(t, app.Services.Health)
	assert.Equal(t, config.SinkFile, app.Services.Publisher.SinkName())
	assert.DirExists(t, app.Paths.ExportsDir)
	assert.Equal(t, "127.0.0.1:0", app.Server.Addr)
}

func TestNewApplicationUnknownSink(t *testing.T) {
	cfg := testConfig(t, "http://127.0.0.1:1/api/")
	cfg.Share.Sink = "carrier-pigeon"

	_, err := NewApplication(cfg)
	assert.Error(t, err)
}

func TestHealthRoutes(t *testing.T) {
	app := newTestApplication(t)

	rec := serve(app, http.MethodGet, "/api/health", "")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.NotEmpty(t, rec.Header().Get("X-Request-ID"))
	assert.Equal(t, "nosniff", rec.Header().Get("X-Content-Type-Options"))

	rec = serve(app, http.MethodGet, "/api/version", "")
	assert.Equal(t, http.StatusOK, rec.Code)

	rec = serve(app, http.MethodGet, "/api/nothing-here", "")
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Contains(t, rec.Header().Get("Content-Type"), "json")
}

func TestMetricsRouteDisabled(t *testing.T) {
	app := newTestApplication(t)
	rec := serve(app, http.MethodGet, "/metrics", "")
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestPriceReportEndToEnd(t *testing.T) {
	app := newTestApplication(t)

	rec := serve(app, http.MethodGet, "/api/reports/price?date=2024-03-05", "")
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	var body struct {
		Status string `json:"status"`
		Data   struct {
			RecordCount int `json:"record_count"`
			Sections    []struct {
				Rows []struct {
					Article       string  `json:"article"`
					AdjustedPrice float64 `json:"adjusted_price"`
				} `json:"rows"`
			} `json:"sections"`
		} `json:"data"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, "success", body.Status)
	assert.Equal(t, 3, body.Data.RecordCount)
	require.Len(t, body.Data.Sections, 2)
	require.Len(t, body.Data.Sections[0].Rows, 2)
	// 9.5 scaled from a 1 litre baseline to 0.5
	assert.InDelta(t, 4.75, body.Data.Sections[0].Rows[1].AdjustedPrice, 1e-9)
}

func TestDocumentEndToEnd(t *testing.T) {
	app := newTestApplication(t)

	rec := serve(app, http.MethodGet, "/api/reports/quantity/document?format=csv", "")
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Equal(t, "text/csv; charset=utf-8", rec.Header().Get("Content-Type"))
	assert.True(t, strings.HasPrefix(rec.Header().Get("X-Document-ID"), "quantity-"))
	assert.Contains(t, rec.Body.String(), "Centrale")

	rec = serve(app, http.MethodGet, "/api/reports/price/document", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Header().Get("Content-Type"), "text/html")
	assert.Contains(t, rec.Body.String(), "Epicerie Atlas")
}

func TestShareEndToEnd(t *testing.T) {
	app := newTestApplication(t)
	app.WebSocketHub.Start()
	t.Cleanup(app.WebSocketHub.Stop)

	server := httptest.NewServer(app.Router)
	t.Cleanup(server.Close)

	conn, _, err := websocket.DefaultDialer.Dial("ws"+strings.TrimPrefix(server.URL, "http")+"/ws", nil)
	require.NoError(t, err)
	defer conn.Close()

	readMessage := func() events.WebSocketMessage {
		require.NoError(t, conn.SetReadDeadline(time.Now().Add(5*time.Second)))
		_, data, err := conn.ReadMessage()
		require.NoError(t, err)
		var msg events.WebSocketMessage
		require.NoError(t, json.Unmarshal(data, &msg))
		return msg
	}
	assert.Equal(t, events.MessageTypeConnect, readMessage().Type)

	resp, err := http.Post(server.URL+"/api/reports/quantity/share", "application/json", strings.NewReader(`{"format":"csv"}`))
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusCreated, resp.StatusCode)

	var body struct {
		Data struct {
			Location string `json:"location"`
			Sink     string `json:"sink"`
		} `json:"data"`
	}
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
	assert.Equal(t, config.SinkFile, body.Data.Sink)
	assert.FileExists(t, body.Data.Location)
	assert.Equal(t, app.Paths.ExportsDir, filepath.Dir(body.Data.Location))

	msg := readMessage()
	assert.Equal(t, events.MessageTypeReportExported, msg.Type)
	data := msg.Data.(map[string]interface{})
	assert.Equal(t, "csv", data["format"])
	assert.Equal(t, body.Data.Location, data["location"])

	rec := serve(app, http.MethodGet, "/api/exports?kind=quantity", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), filepath.Base(body.Data.Location))

	rec = serve(app, http.MethodGet, "/api/exports/"+filepath.Base(body.Data.Location), "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "Centrale")
}

func TestShareDisabled(t *testing.T) {
	cfg := testConfig(t, testutil.NewBackend(t, nil, testutil.QuantityRecords()).BaseURL())
	cfg.Share.Sink = config.SinkNone
	app, err := NewApplication(cfg)
	require.NoError(t, err)

	rec := serve(app, http.MethodPost, "/api/reports/price/share", `{"format":"csv"}`)
	assert.Equal(t, http.StatusBadGateway, rec.Code)

	entries, err := os.ReadDir(app.Paths.ExportsDir)
	require.NoError(t, err)
	assert.Empty(t, entries)
}

func TestStartStop(t *testing.T) {
	app := newTestApplication(t)

	stale := filepath.Join(app.Paths.ExportsDir, "RapportQte_0badc0de.csv")
	require.NoError(t, os.WriteFile(stale, []byte("old"), 0644))
	old := time.Now().Add(-app.Config.Share.Retention - time.Hour)
	require.NoError(t, os.Chtimes(stale, old, old))

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	require.NoError(t, app.Start(ctx, cancel))
	assert.NoFileExists(t, stale)
	assert.NoError(t, app.Stop(ctx))
	assert.Equal(t, 0, app.WebSocketHub.ClientCount())
}
