package dataprocessing

import (
	"context"
	"fmt"
	"log/slog"

	"fieldreport/pkg/contracts/domain"
)

const (
	// PriceReportTitle is the heading of the price normalization report
	PriceReportTitle = "Rapport Prix"
	// QuantityReportTitle is the heading of the shelf occupancy report
	QuantityReportTitle = "Rapport Quantité"
)

// BuilderConfig holds configuration options for the Builder
type BuilderConfig struct {
	// GroupingChunks splits grouping across goroutines when greater than 1
	GroupingChunks int
}

// Builder assembles grouped and derived observations into report structures.
// It holds no per-report state; every call rebuilds from the given records.
type Builder struct {
	logger *slog.Logger
	dates  DateFormatter
	chunks int
}

// NewBuilder creates a report builder using dates for group keys and labels
func NewBuilder(logger *slog.Logger, dates DateFormatter) *Builder {
	return NewBuilderWithConfig(logger, dates, BuilderConfig{})
}

// NewBuilderWithConfig creates a report builder with explicit options
func NewBuilderWithConfig(logger *slog.Logger, dates DateFormatter, config BuilderConfig) *Builder {
	if logger == nil {
		logger = slog.Default()
	}
	return &Builder{
		logger: logger.With(slog.String("component", "report_builder")),
		dates:  dates,
		chunks: config.GroupingChunks,
	}
}

// BuildPriceReport groups price observations by visit and annotates each row
// with its adjusted price and margin rate. The baseline capacity of a group is
// the capacity of the first observation added to it; rows are not reordered
// by article.
func (b *Builder) BuildPriceReport(ctx context.Context, records []domain.PriceObservation) (*domain.PriceReport, error) {
	groups, err := GroupByDateClientConcurrent(ctx, records, b.dates, b.chunks)
	if err != nil {
		return nil, fmt.Errorf("group price observations: %w", err)
	}

	report := &domain.PriceReport{
		Title:       PriceReportTitle,
		Sections:    make([]domain.PriceSection, 0, len(groups)),
		RecordCount: len(records),
	}

	for _, group := range groups {
		baseline := group.Records[0].Contenance

		section := domain.PriceSection{
			Heading:          group.Key.String(),
			Label:            labelFor(group.Key, ""),
			BaselineCapacity: baseline,
			Rows:             make([]domain.PriceRow, 0, len(group.Records)),
		}

		for _, obs := range group.Records {
			adjusted := AdjustedPrice(obs.Prix, baseline, obs.Contenance)
			section.Rows = append(section.Rows, domain.PriceRow{
				Article:       obs.Article,
				Marque:        obs.Marque,
				Prix:          obs.Prix,
				Contenance:    obs.Contenance,
				AdjustedPrice: adjusted,
				MarginRate:    MarginRate(obs.Prix, adjusted),
			})
		}

		report.Sections = append(report.Sections, section)
	}

	b.logger.DebugContext(ctx, "price report built",
		slog.Int("record_count", len(records)),
		slog.Int("group_count", len(report.Sections)))

	return report, nil
}

// BuildQuantityReport groups quantity observations by visit, then by article,
// and annotates each row with its share of the article total.
func (b *Builder) BuildQuantityReport(ctx context.Context, records []domain.QuantityObservation) (*domain.QuantityReport, error) {
	groups, err := GroupByDateClientConcurrent(ctx, records, b.dates, b.chunks)
	if err != nil {
		return nil, fmt.Errorf("group quantity observations: %w", err)
	}

	report := &domain.QuantityReport{
		Title:       QuantityReportTitle,
		Sections:    make([]domain.QuantitySection, 0, len(groups)),
		RecordCount: len(records),
	}

	for _, group := range groups {
		surveyor := group.Records[0].UserName
		label := labelFor(group.Key, surveyor)

		section := domain.QuantitySection{
			Heading: quantityHeading(label),
			Label:   label,
		}

		for _, article := range GroupByArticle(group.Records) {
			total := TotalQuantity(article.Records)
			block := domain.ArticleBlock{
				Article:  article.Key,
				TotalQte: total,
				Rows:     make([]domain.QuantityRow, 0, len(article.Records)),
			}
			for _, obs := range article.Records {
				block.Rows = append(block.Rows, domain.QuantityRow{
					Article:        obs.Article,
					Marque:         obs.Marque,
					Qte:            obs.Qte,
					Contenance:     obs.Contenance,
					OccupancyShare: OccupancyShare(obs.Qte, total),
				})
			}
			section.Articles = append(section.Articles, block)
		}

		report.Sections = append(report.Sections, section)
	}

	b.logger.DebugContext(ctx, "quantity report built",
		slog.Int("record_count", len(records)),
		slog.Int("group_count", len(report.Sections)))

	return report, nil
}

func labelFor(key GroupKey, surveyor string) domain.GroupLabel {
	return domain.GroupLabel{
		Date:     key.Date,
		Client:   key.Client,
		Address:  key.Address,
		Surveyor: surveyor,
	}
}

// quantityHeading renders "Mission du <date> | <client> <address> | <surveyor>"
func quantityHeading(label domain.GroupLabel) string {
	heading := fmt.Sprintf("Mission du %s | %s %s", label.Date, label.Client, label.Address)
	if label.Surveyor != "" {
		heading += " | " + label.Surveyor
	}
	return heading
}
