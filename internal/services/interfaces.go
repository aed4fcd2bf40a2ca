package services

import (
	"context"

	"fieldreport/internal/share"
	"fieldreport/pkg/contracts/domain"
)

// RecordSource fetches observations from the reporting backend
type RecordSource interface {
	FetchPrice(ctx context.Context, query domain.ReportQuery) ([]domain.PriceObservation, error)
	FetchQuantity(ctx context.Context, query domain.ReportQuery) ([]domain.QuantityObservation, error)
}

// DocumentRenderer turns built reports into documents
type DocumentRenderer interface {
	RenderPrice(ctx context.Context, report *domain.PriceReport, format domain.ReportFormat) (*domain.Document, error)
	RenderQuantity(ctx context.Context, report *domain.QuantityReport, format domain.ReportFormat) (*domain.Document, error)
}

// DocumentPublisher delivers documents to the configured share sink
type DocumentPublisher interface {
	ExportAndShare(ctx context.Context, doc *domain.Document, intent share.Intent) (*share.Receipt, error)
}
