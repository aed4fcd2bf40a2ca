package share

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/api/option"

	"fieldreport/internal/config"
	apperrors "fieldreport/internal/errors"
	"fieldreport/internal/exporter"
	"fieldreport/internal/security"
	"fieldreport/pkg/contracts/domain"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func testDocument(format domain.ReportFormat, content string) *domain.Document {
	checksum := exporter.Checksum([]byte(content))
	return &domain.Document{
		ID:       exporter.DocumentID(domain.ReportKindPrice, checksum),
		Name:     "Rapport_Prix",
		Kind:     domain.ReportKindPrice,
		Format:   format,
		MIMEType: format.MIMEType(),
		Checksum: checksum,
		Content:  []byte(content),
	}
}

func TestFileSinkPut(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "exports")
	sink := NewFileSink(dir, testLogger())
	doc := testDocument(domain.ReportFormatCSV, "a;b\n1;2\n")

	receipt, err := sink.Put(context.Background(), doc)
	require.NoError(t, err)

	assert.Equal(t, config.SinkFile, receipt.Sink)
	assert.Equal(t, "Rapport_Prix.csv", receipt.Name)
	assert.Equal(t, doc.Checksum, receipt.Checksum)
	assert.Equal(t, len(doc.Content), receipt.Bytes)
	assert.Equal(t, filepath.Join(dir, "Rapport_Prix_"+doc.Checksum[:8]+".csv"), receipt.Location)

	content, err := os.ReadFile(receipt.Location)
	require.NoError(t, err)
	assert.Equal(t, doc.Content, content)

	// Same document, same file.
	again, err := sink.Put(context.Background(), doc)
	require.NoError(t, err)
	assert.Equal(t, receipt.Location, again.Location)

	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	assert.Len(t, entries, 1, "temp files must not be left behind")
}

func TestFileSinkCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := NewFileSink(t.TempDir(), testLogger()).Put(ctx, testDocument(domain.ReportFormatHTML, "<p>x</p>"))
	assert.ErrorIs(t, err, context.Canceled)
}

func TestWebhookSinkPut(t *testing.T) {
	var (
		gotFields map[string]string
		gotFile   []byte
		gotName   string
		gotType   string
	)
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		if !assert.NoError(t, r.ParseMultipartForm(1<<20)) {
			return
		}

		gotFields = map[string]string{}
		for k, v := range r.MultipartForm.Value {
			gotFields[k] = v[0]
		}
		file, header, err := r.FormFile("file")
		if !assert.NoError(t, err) {
			return
		}
		defer file.Close()
		gotFile, _ = io.ReadAll(file)
		gotName = header.Filename
		gotType = header.Header.Get("Content-Type")

		w.Header().Set("Location", "https://files.example/42")
		w.WriteHeader(http.StatusCreated)
	}))
	defer server.Close()

	doc := testDocument(domain.ReportFormatHTML, "<h1>Rapport Prix</h1>")
	receipt, err := NewWebhookSink(server.URL, 0, testLogger()).Put(context.Background(), doc)
	require.NoError(t, err)

	assert.Equal(t, "https://files.example/42", receipt.Location)
	assert.Equal(t, config.SinkWebhook, receipt.Sink)
	assert.Equal(t, doc.Content, gotFile)
	assert.Equal(t, "Rapport_Prix.html", gotName)
	assert.Equal(t, doc.MIMEType, gotType)
	assert.Equal(t, map[string]string{
		"document_id": doc.ID,
		"kind":        "price",
		"format":      "html",
		"checksum":    doc.Checksum,
	}, gotFields)
}

func TestWebhookSinkRejected(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "nope", http.StatusForbidden)
	}))
	defer server.Close()

	_, err := NewWebhookSink(server.URL, 0, testLogger()).Put(context.Background(), testDocument(domain.ReportFormatCSV, "x"))
	assert.ErrorContains(t, err, "status 403")
}

func TestDriveSinkPut(t *testing.T) {
	var uploads int
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost || !strings.Contains(r.URL.Path, "/files") {
			http.NotFound(w, r)
			return
		}
		uploads++
		body, _ := io.ReadAll(r.Body)
		assert.Contains(t, string(body), `"parents":["folder-1"]`)
		assert.Contains(t, string(body), "Rapport_Prix.pdf")

		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(map[string]string{
			"id":          "file-123",
			"name":        "Rapport_Prix.pdf",
			"webViewLink": "https://drive.example/file-123",
		})
	}))
	defer server.Close()

	sink, err := NewDriveSink(context.Background(), "folder-1", testLogger(),
		option.WithEndpoint(server.URL+"/drive/v3/"),
		option.WithoutAuthentication(),
		option.WithHTTPClient(server.Client()),
	)
	require.NoError(t, err)

	receipt, err := sink.Put(context.Background(), testDocument(domain.ReportFormatPDF, "%PDF-1.4 fake"))
	require.NoError(t, err)
	assert.Equal(t, 1, uploads)
	assert.Equal(t, config.SinkDrive, receipt.Sink)
	assert.Equal(t, "https://drive.example/file-123", receipt.Location)
}

func TestNewSink(t *testing.T) {
	paths := &config.Paths{ExportsDir: t.TempDir()}
	ctx := context.Background()

	sink, err := NewSink(ctx, config.ShareConfig{Sink: config.SinkFile}, paths, testLogger())
	require.NoError(t, err)
	assert.IsType(t, &FileSink{}, sink)

	sink, err = NewSink(ctx, config.ShareConfig{Sink: config.SinkWebhook, WebhookURL: "http://localhost/hook"}, paths, testLogger())
	require.NoError(t, err)
	assert.IsType(t, &WebhookSink{}, sink)

	sink, err = NewSink(ctx, config.ShareConfig{Sink: config.SinkNone}, paths, testLogger())
	require.NoError(t, err)
	_, err = sink.Put(ctx, testDocument(domain.ReportFormatCSV, "x"))
	assert.ErrorIs(t, err, ErrSharingDisabled)

	_, err = NewSink(ctx, config.ShareConfig{Sink: "ftp"}, paths, testLogger())
	assert.True(t, apperrors.IsType(err, apperrors.ErrTypeConfig))
}

func TestNewSinkDriveCredentials(t *testing.T) {
	paths := &config.Paths{ExportsDir: t.TempDir()}
	ctx := context.Background()

	_, err := NewSink(ctx, config.ShareConfig{
		Sink:                 config.SinkDrive,
		DriveFolderID:        "folder-1",
		DriveCredentialsFile: filepath.Join(t.TempDir(), "absent.json"),
	}, paths, testLogger())
	assert.True(t, apperrors.IsType(err, apperrors.ErrTypeConfig))

	sealed, err := security.Seal([]byte(`{"type":"service_account"}`), []byte("a passphrase of 16+ bytes"), security.DefaultKDFParams())
	require.NoError(t, err)
	sealedPath := filepath.Join(t.TempDir(), "drive.sealed.json")
	require.NoError(t, security.WriteSealed(sealedPath, sealed))

	_, err = NewSink(ctx, config.ShareConfig{
		Sink:                 config.SinkDrive,
		DriveFolderID:        "folder-1",
		DriveCredentialsFile: sealedPath,
	}, paths, testLogger())
	assert.ErrorIs(t, err, security.ErrPassphraseRequired)
}

func TestShareErrorUnwrap(t *testing.T) {
	cause := errors.New("connection refused")
	err := newShareError(config.SinkWebhook, "Le document n'a pas pu être partagé.", cause)

	assert.True(t, err.Recoverable())
	assert.ErrorIs(t, err, cause)
	assert.True(t, apperrors.IsType(err, apperrors.ErrTypeExport))
	assert.Contains(t, err.Error(), "webhook")

	var appErr *apperrors.AppError
	require.ErrorAs(t, err, &appErr)
	assert.Equal(t, "Le document n'a pas pu être partagé.", appErr.Message)
	assert.Equal(t, config.SinkWebhook, appErr.Context["sink"])
}
