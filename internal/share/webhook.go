package share

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"log/slog"
	"mime/multipart"
	"net/http"
	"net/textproto"
	"time"

	"fieldreport/internal/config"
	"fieldreport/internal/infrastructure"
	"fieldreport/pkg/contracts/domain"
)

const defaultWebhookTimeout = 30 * time.Second

// WebhookSink posts documents as multipart/form-data
type WebhookSink struct {
	url    string
	client *http.Client
	logger *slog.Logger
}

// NewWebhookSink creates a sink posting to url
func NewWebhookSink(url string, timeout time.Duration, logger *slog.Logger) *WebhookSink {
	if logger == nil {
		logger = infrastructure.GetLogger()
	}
	if timeout <= 0 {
		timeout = defaultWebhookTimeout
	}
	return &WebhookSink{
		url:    url,
		client: &http.Client{Timeout: timeout},
		logger: logger.With(slog.String("component", "share.webhook")),
	}
}

// Name returns the sink identifier
func (s *WebhookSink) Name() string {
	return config.SinkWebhook
}

// Put uploads the document in a "file" part alongside its metadata
func (s *WebhookSink) Put(ctx context.Context, doc *domain.Document) (*Receipt, error) {
	body, contentType, err := encodeMultipart(doc)
	if err != nil {
		return nil, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.url, body)
	if err != nil {
		return nil, fmt.Errorf("build webhook request: %w", err)
	}
	req.Header.Set("Content-Type", contentType)
	if traceID := infrastructure.GetTraceID(ctx); traceID != "" {
		req.Header.Set("X-Request-ID", traceID)
	}

	resp, err := s.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("post document: %w", err)
	}
	defer resp.Body.Close()
	io.Copy(io.Discard, io.LimitReader(resp.Body, 64<<10))

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, fmt.Errorf("webhook responded with status %d", resp.StatusCode)
	}

	location := resp.Header.Get("Location")
	if location == "" {
		location = s.url
	}

	s.logger.InfoContext(ctx, "Document posted",
		slog.String("name", doc.FileName()),
		slog.Int("status", resp.StatusCode),
		slog.Int("bytes", doc.Size()))

	return &Receipt{
		DocumentID: doc.ID,
		Name:       doc.FileName(),
		Sink:       s.Name(),
		Location:   location,
		Bytes:      doc.Size(),
		Checksum:   doc.Checksum,
	}, nil
}

func encodeMultipart(doc *domain.Document) (*bytes.Buffer, string, error) {
	var buf bytes.Buffer
	w := multipart.NewWriter(&buf)

	fields := [][2]string{
		{"document_id", doc.ID},
		{"kind", string(doc.Kind)},
		{"format", string(doc.Format)},
		{"checksum", doc.Checksum},
	}
	for _, f := range fields {
		if err := w.WriteField(f[0], f[1]); err != nil {
			return nil, "", fmt.Errorf("write field %s: %w", f[0], err)
		}
	}

	header := make(textproto.MIMEHeader)
	header.Set("Content-Disposition", fmt.Sprintf(`form-data; name="file"; filename=%q`, doc.FileName()))
	header.Set("Content-Type", doc.MIMEType)
	part, err := w.CreatePart(header)
	if err != nil {
		return nil, "", fmt.Errorf("create file part: %w", err)
	}
	if _, err := part.Write(doc.Content); err != nil {
		return nil, "", fmt.Errorf("write file part: %w", err)
	}
	if err := w.Close(); err != nil {
		return nil, "", fmt.Errorf("close multipart body: %w", err)
	}
	return &buf, w.FormDataContentType(), nil
}
