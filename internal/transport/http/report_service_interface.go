package http

import (
	"context"

	"fieldreport/internal/share"
	"fieldreport/pkg/contracts/domain"
)

// ReportServiceInterface defines the report operations exposed over HTTP
type ReportServiceInterface interface {
	PriceReport(ctx context.Context, sessionID string, query domain.ReportQuery) (*domain.PriceReport, error)
	QuantityReport(ctx context.Context, sessionID string, query domain.ReportQuery) (*domain.QuantityReport, error)
	Document(ctx context.Context, kind domain.ReportKind, query domain.ReportQuery, format domain.ReportFormat) (*domain.Document, error)
	Share(ctx context.Context, kind domain.ReportKind, query domain.ReportQuery, intent share.Intent) (*share.Receipt, error)
}
