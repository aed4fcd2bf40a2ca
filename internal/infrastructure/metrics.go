package infrastructure

import (
	"context"
	"fmt"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"
)

// BusinessMetrics holds all application-specific metrics
type BusinessMetrics struct {
	// HTTP metrics
	HTTPRequestsTotal   metric.Int64Counter
	HTTPRequestDuration metric.Float64Histogram
	HTTPActiveRequests  metric.Int64UpDownCounter

	// Record source metrics
	FetchesTotal    metric.Int64Counter
	FetchDuration   metric.Float64Histogram
	FetchFailures   metric.Int64Counter
	FetchSuperseded metric.Int64Counter

	// Report metrics
	ReportsBuilt      metric.Int64Counter
	ReportRows        metric.Int64Counter
	DocumentsRendered metric.Int64Counter
	DocumentBytes     metric.Int64Counter

	// Export metrics
	ExportsTotal   metric.Int64Counter
	ExportFailures metric.Int64Counter
	ExportDuration metric.Float64Histogram

	// WebSocket metrics
	WebSocketClients metric.Int64UpDownCounter
}

// CreateBusinessMetrics creates application-specific metrics
func CreateBusinessMetrics(meter metric.Meter) (*BusinessMetrics, error) {
	var (
		m   BusinessMetrics
		err error
	)

	counters := []struct {
		target      *metric.Int64Counter
		name        string
		description string
		unit        string
	}{
		{&m.HTTPRequestsTotal, "http_requests_total", "Total number of HTTP requests", ""},
		{&m.FetchesTotal, "record_fetches_total", "Total number of record source fetches", ""},
		{&m.FetchFailures, "record_fetch_failures_total", "Total number of failed record source fetches", ""},
		{&m.FetchSuperseded, "record_fetches_superseded_total", "Fetches discarded because a newer request started", ""},
		{&m.ReportsBuilt, "reports_built_total", "Total number of reports built", ""},
		{&m.ReportRows, "report_rows_total", "Total number of observation rows placed in reports", ""},
		{&m.DocumentsRendered, "documents_rendered_total", "Total number of rendered documents", ""},
		{&m.DocumentBytes, "document_bytes_total", "Total bytes of rendered documents", "By"},
		{&m.ExportsTotal, "exports_total", "Total number of document exports", ""},
		{&m.ExportFailures, "export_failures_total", "Total number of failed document exports", ""},
	}
	for _, c := range counters {
		opts := []metric.Int64CounterOption{metric.WithDescription(c.description)}
		if c.unit != "" {
			opts = append(opts, metric.WithUnit(c.unit))
		}
		if *c.target, err = meter.Int64Counter(c.name, opts...); err != nil {
			return nil, fmt.Errorf("create counter %s: %w", c.name, err)
		}
	}

	histograms := []struct {
		target      *metric.Float64Histogram
		name        string
		description string
	}{
		{&m.HTTPRequestDuration, "http_request_duration_seconds", "HTTP request duration in seconds"},
		{&m.FetchDuration, "record_fetch_duration_seconds", "Record source fetch duration in seconds"},
		{&m.ExportDuration, "export_duration_seconds", "Document export duration in seconds"},
	}
	for _, h := range histograms {
		if *h.target, err = meter.Float64Histogram(h.name, metric.WithDescription(h.description), metric.WithUnit("s")); err != nil {
			return nil, fmt.Errorf("create histogram %s: %w", h.name, err)
		}
	}

	if m.HTTPActiveRequests, err = meter.Int64UpDownCounter(
		"http_active_requests",
		metric.WithDescription("Number of active HTTP requests"),
	); err != nil {
		return nil, err
	}

	if m.WebSocketClients, err = meter.Int64UpDownCounter(
		"websocket_clients",
		metric.WithDescription("Number of connected WebSocket clients"),
	); err != nil {
		return nil, err
	}

	return &m, nil
}

func statusAttr(err error) attribute.KeyValue {
	if err != nil {
		return attribute.String("status", "failure")
	}
	return attribute.String("status", "success")
}

// RecordFetch records one record source fetch
func RecordFetch(ctx context.Context, metrics *BusinessMetrics, kind string, duration time.Duration, err error) {
	if metrics == nil {
		return
	}

	attrs := metric.WithAttributes(attribute.String("report.kind", kind), statusAttr(err))
	metrics.FetchesTotal.Add(ctx, 1, attrs)
	metrics.FetchDuration.Record(ctx, duration.Seconds(), attrs)
	if err != nil {
		metrics.FetchFailures.Add(ctx, 1, metric.WithAttributes(
			attribute.String("report.kind", kind),
			attribute.String("error.type", fmt.Sprintf("%T", err)),
		))
	}
}

// RecordSuperseded records a fetch result discarded for a newer request
func RecordSuperseded(ctx context.Context, metrics *BusinessMetrics, kind string) {
	if metrics == nil {
		return
	}
	metrics.FetchSuperseded.Add(ctx, 1, metric.WithAttributes(attribute.String("report.kind", kind)))
}

// RecordReportBuilt records a built report and its row count
func RecordReportBuilt(ctx context.Context, metrics *BusinessMetrics, kind string, rows int, degraded bool) {
	if metrics == nil {
		return
	}

	attrs := metric.WithAttributes(
		attribute.String("report.kind", kind),
		attribute.Bool("report.degraded", degraded),
	)
	metrics.ReportsBuilt.Add(ctx, 1, attrs)
	metrics.ReportRows.Add(ctx, int64(rows), attrs)

	span := trace.SpanFromContext(ctx)
	if span.IsRecording() {
		span.AddEvent("report.built", trace.WithAttributes(
			attribute.String("report.kind", kind),
			attribute.Int("report.rows", rows),
			attribute.Bool("report.degraded", degraded),
		))
	}
}

// RecordDocumentRendered records a rendered document
func RecordDocumentRendered(ctx context.Context, metrics *BusinessMetrics, kind, format string, size int) {
	if metrics == nil {
		return
	}

	attrs := metric.WithAttributes(
		attribute.String("report.kind", kind),
		attribute.String("document.format", format),
	)
	metrics.DocumentsRendered.Add(ctx, 1, attrs)
	metrics.DocumentBytes.Add(ctx, int64(size), attrs)
}

// RecordExport records one export attempt to a share sink
func RecordExport(ctx context.Context, metrics *BusinessMetrics, sink, format string, duration time.Duration, err error) {
	if metrics == nil {
		return
	}

	attrs := metric.WithAttributes(
		attribute.String("share.sink", sink),
		attribute.String("document.format", format),
		statusAttr(err),
	)
	metrics.ExportsTotal.Add(ctx, 1, attrs)
	metrics.ExportDuration.Record(ctx, duration.Seconds(), attrs)
	if err != nil {
		metrics.ExportFailures.Add(ctx, 1, metric.WithAttributes(attribute.String("share.sink", sink)))
	}
}
