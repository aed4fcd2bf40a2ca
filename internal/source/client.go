// Package source fetches survey observations from the reporting backend.
package source

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"golang.org/x/time/rate"

	"fieldreport/internal/config"
	apperrors "fieldreport/internal/errors"
	"fieldreport/internal/infrastructure"
	"fieldreport/pkg/contracts/domain"
)

const (
	priceEndpoint    = "Rapporting/GetRapport"
	quantityEndpoint = "Rapporting/GetRapportQte"

	// maxPayloadBytes bounds a single record set response
	maxPayloadBytes = 32 << 20
)

// Client reads record sets from the reporting backend
type Client struct {
	baseURL   *url.URL
	http      *http.Client
	limiter   *rate.Limiter
	userAgent string
	tracer    trace.Tracer
	metrics   *infrastructure.BusinessMetrics
	location  *time.Location
	logger    *slog.Logger
}

// Option customizes a Client
type Option func(*Client)

// WithHTTPClient replaces the default HTTP client
func WithHTTPClient(c *http.Client) Option {
	return func(cl *Client) { cl.http = c }
}

// WithMetrics records fetch metrics
func WithMetrics(m *infrastructure.BusinessMetrics) Option {
	return func(cl *Client) { cl.metrics = m }
}

// WithTracer overrides the global tracer
func WithTracer(t trace.Tracer) Option {
	return func(cl *Client) { cl.tracer = t }
}

// WithLocation sets the time zone of mission dates sent without an offset.
// The default is UTC.
func WithLocation(loc *time.Location) Option {
	return func(cl *Client) { cl.location = loc }
}

// NewClient creates a backend client from the backend configuration
func NewClient(cfg config.BackendConfig, logger *slog.Logger, opts ...Option) (*Client, error) {
	if logger == nil {
		logger = infrastructure.GetLogger()
	}

	base := cfg.BaseURL
	if !strings.HasSuffix(base, "/") {
		base += "/"
	}
	baseURL, err := url.Parse(base)
	if err != nil || baseURL.Scheme == "" || baseURL.Host == "" {
		return nil, apperrors.NewConfigError(fmt.Sprintf("invalid backend url %q", cfg.BaseURL), err)
	}

	limit := rate.Inf
	if cfg.RPS > 0 {
		limit = rate.Limit(cfg.RPS)
	}
	burst := cfg.Burst
	if burst <= 0 {
		burst = 1
	}

	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 15 * time.Second
	}

	c := &Client{
		baseURL:   baseURL,
		http:      &http.Client{Timeout: timeout},
		limiter:   rate.NewLimiter(limit, burst),
		userAgent: cfg.UserAgent,
		location:  time.UTC,
		tracer:    otel.Tracer(infrastructure.MeterName),
		logger:    logger.With(slog.String("component", "record_source")),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c, nil
}

// FetchPrice returns the price observations matching query.
// Filtering by date and surveyor happens on the backend.
func (c *Client) FetchPrice(ctx context.Context, query domain.ReportQuery) ([]domain.PriceObservation, error) {
	params := url.Values{}
	params.Set("date", query.Date)
	params.Set("user_id", query.UserID)

	var records []domain.PriceObservation
	err := c.fetch(ctx, domain.ReportKindPrice, priceEndpoint, params, func(body []byte) (err error) {
		records, err = domain.DecodePriceObservations(body, c.location)
		return err
	})
	if err != nil {
		return nil, err
	}
	return records, nil
}

// FetchQuantity returns the quantity observations matching query
func (c *Client) FetchQuantity(ctx context.Context, query domain.ReportQuery) ([]domain.QuantityObservation, error) {
	params := url.Values{}
	params.Set("date", query.Date)
	params.Set("user_id", query.UserID)
	params.Set("mission_id", query.MissionID)

	var records []domain.QuantityObservation
	err := c.fetch(ctx, domain.ReportKindQuantity, quantityEndpoint, params, func(body []byte) (err error) {
		records, err = domain.DecodeQuantityObservations(body, c.location)
		return err
	})
	if err != nil {
		return nil, err
	}
	return records, nil
}

func (c *Client) fetch(ctx context.Context, kind domain.ReportKind, endpoint string, params url.Values, decode func([]byte) error) (err error) {
	ctx, span := c.tracer.Start(ctx, "source.fetch",
		trace.WithSpanKind(trace.SpanKindClient),
		trace.WithAttributes(
			attribute.String("report.kind", string(kind)),
			attribute.String("http.route", endpoint),
		))
	start := time.Now()
	defer func() {
		infrastructure.RecordFetch(ctx, c.metrics, string(kind), time.Since(start), err)
		if err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
		}
		span.End()
	}()

	if err := c.limiter.Wait(ctx); err != nil {
		return err
	}

	target := c.baseURL.ResolveReference(&url.URL{Path: endpoint, RawQuery: params.Encode()})
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, target.String(), nil)
	if err != nil {
		return apperrors.NewNetworkError("build backend request", err)
	}
	req.Header.Set("Accept", "application/json")
	if c.userAgent != "" {
		req.Header.Set("User-Agent", c.userAgent)
	}
	if traceID := infrastructure.GetTraceID(ctx); traceID != "" {
		req.Header.Set("X-Request-ID", traceID)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		return apperrors.NewNetworkError("backend request failed", err).
			WithContext("endpoint", endpoint)
	}
	defer resp.Body.Close()
	span.SetAttributes(attribute.Int("http.status_code", resp.StatusCode))

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxPayloadBytes))
	if err != nil {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		return apperrors.NewNetworkError("read backend response", err).
			WithContext("endpoint", endpoint)
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return apperrors.NewNetworkError(fmt.Sprintf("backend responded with status %d", resp.StatusCode), nil).
			WithContext("endpoint", endpoint).
			WithContext("status", resp.StatusCode)
	}

	// An empty or null body is an empty record set.
	if len(bytes.TrimSpace(body)) == 0 {
		return nil
	}
	if err := decode(body); err != nil {
		return apperrors.NewParsingError("decode backend records", err).
			WithContext("endpoint", endpoint)
	}

	c.logger.DebugContext(ctx, "Fetched records",
		slog.String("kind", string(kind)),
		slog.Int("bytes", len(body)),
		slog.Duration("duration", time.Since(start)))
	return nil
}
