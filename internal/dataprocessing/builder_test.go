package dataprocessing

import (
	"context"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"fieldreport/internal/locale"
	"fieldreport/pkg/contracts/domain"
)

func newTestBuilder(chunks int) *Builder {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	return NewBuilderWithConfig(logger, locale.MustFormatter("fr-FR", ""), BuilderConfig{GroupingChunks: chunks})
}

func TestBuildPriceReport(t *testing.T) {
	date := day(2024, 1, 1)
	records := []domain.PriceObservation{
		{Article: "Water", Marque: "Aqua", Prix: 2.0, Contenance: 500, MissionDate: date, RaisonSocial: "A", Adresse: "X"},
		{Article: "Water", Marque: "Pure", Prix: 1.5, Contenance: 250, MissionDate: date, RaisonSocial: "A", Adresse: "X"},
	}

	report, err := newTestBuilder(0).BuildPriceReport(context.Background(), records)
	require.NoError(t, err)

	assert.Equal(t, PriceReportTitle, report.Title)
	assert.Equal(t, 2, report.RecordCount)
	require.Len(t, report.Sections, 1)

	section := report.Sections[0]
	assert.Equal(t, "01/01/2024 | A | X", section.Heading)
	assert.Equal(t, domain.GroupLabel{Date: "01/01/2024", Client: "A", Address: "X"}, section.Label)
	assert.Equal(t, 500.0, section.BaselineCapacity)
	require.Len(t, section.Rows, 2)

	first := section.Rows[0]
	assert.InDelta(t, 2.0, first.AdjustedPrice, 1e-9)
	assert.InDelta(t, 0.0, first.MarginRate, 1e-9)

	second := section.Rows[1]
	assert.Equal(t, "Pure", second.Marque)
	assert.InDelta(t, 0.75, second.AdjustedPrice, 1e-9)
	assert.InDelta(t, 50.0, second.MarginRate, 1e-9)
}

func TestBuildPriceReport_BaselineIsFirstRecordOfGroup(t *testing.T) {
	records := []domain.PriceObservation{
		{Article: "Juice", Prix: 3, Contenance: 1000, MissionDate: day(2024, 1, 1), RaisonSocial: "A", Adresse: "X"},
		{Article: "Water", Prix: 1, Contenance: 330, MissionDate: day(2024, 1, 2), RaisonSocial: "B", Adresse: "Y"},
		{Article: "Water", Prix: 2, Contenance: 500, MissionDate: day(2024, 1, 1), RaisonSocial: "A", Adresse: "X"},
	}

	report, err := newTestBuilder(0).BuildPriceReport(context.Background(), records)
	require.NoError(t, err)
	require.Len(t, report.Sections, 2)

	assert.Equal(t, 1000.0, report.Sections[0].BaselineCapacity)
	assert.Equal(t, 330.0, report.Sections[1].BaselineCapacity)

	// rows keep input order, no sort by article
	assert.Equal(t, "Juice", report.Sections[0].Rows[0].Article)
	assert.Equal(t, "Water", report.Sections[0].Rows[1].Article)
	assert.InDelta(t, 4.0, report.Sections[0].Rows[1].AdjustedPrice, 1e-9)
}

func TestBuildPriceReport_ZeroBaseline(t *testing.T) {
	records := []domain.PriceObservation{
		{Article: "Loose", Prix: 2, Contenance: 0, MissionDate: day(2024, 1, 1), RaisonSocial: "A", Adresse: "X"},
		{Article: "Water", Prix: 2, Contenance: 500, MissionDate: day(2024, 1, 1), RaisonSocial: "A", Adresse: "X"},
	}

	report, err := newTestBuilder(0).BuildPriceReport(context.Background(), records)
	require.NoError(t, err)

	for _, row := range report.Sections[0].Rows {
		assert.Zero(t, row.AdjustedPrice)
		assert.InDelta(t, 100.0, row.MarginRate, 1e-9)
	}
}

func TestBuildPriceReport_Empty(t *testing.T) {
	report, err := newTestBuilder(0).BuildPriceReport(context.Background(), nil)
	require.NoError(t, err)
	assert.Equal(t, PriceReportTitle, report.Title)
	assert.Empty(t, report.Sections)
	assert.Zero(t, report.RowCount())
}

func TestBuildQuantityReport(t *testing.T) {
	date := day(2024, 1, 1)
	records := []domain.QuantityObservation{
		{Article: "Juice", Marque: "Sun", Qte: 3, Contenance: 1, MissionDate: date, RaisonSocial: "A", Adresse: "X", UserName: "Awa"},
		{Article: "Water", Marque: "Aqua", Qte: 4, Contenance: 1.5, MissionDate: date, RaisonSocial: "A", Adresse: "X", UserName: "Awa"},
		{Article: "Juice", Marque: "Fresh", Qte: 7, Contenance: 1, MissionDate: date, RaisonSocial: "A", Adresse: "X", UserName: "Awa"},
	}

	report, err := newTestBuilder(0).BuildQuantityReport(context.Background(), records)
	require.NoError(t, err)

	assert.Equal(t, QuantityReportTitle, report.Title)
	assert.Equal(t, 3, report.RowCount())
	require.Len(t, report.Sections, 1)

	section := report.Sections[0]
	assert.Equal(t, "Mission du 01/01/2024 | A X | Awa", section.Heading)
	assert.Equal(t, "Awa", section.Label.Surveyor)
	require.Len(t, section.Articles, 2)

	juice := section.Articles[0]
	assert.Equal(t, "Juice", juice.Article)
	assert.Equal(t, 10.0, juice.TotalQte)
	require.Len(t, juice.Rows, 2)
	assert.InDelta(t, 30.0, juice.Rows[0].OccupancyShare, 1e-9)
	assert.InDelta(t, 70.0, juice.Rows[1].OccupancyShare, 1e-9)

	water := section.Articles[1]
	assert.InDelta(t, 100.0, water.Rows[0].OccupancyShare, 1e-9)
}

func TestBuildQuantityReport_SharesSumToHundred(t *testing.T) {
	date := day(2024, 2, 1)
	var records []domain.QuantityObservation
	for _, q := range []float64{1, 2, 3, 5, 8, 13} {
		records = append(records, domain.QuantityObservation{Article: "Milk", Qte: q, MissionDate: date, RaisonSocial: "A", Adresse: "X"})
	}

	report, err := newTestBuilder(0).BuildQuantityReport(context.Background(), records)
	require.NoError(t, err)

	sum := 0.0
	for _, row := range report.Sections[0].Articles[0].Rows {
		sum += row.OccupancyShare
	}
	assert.InDelta(t, 100.0, sum, 1e-9)
}

func TestBuildQuantityReport_ZeroTotal(t *testing.T) {
	records := []domain.QuantityObservation{
		{Article: "Milk", Qte: 0, MissionDate: day(2024, 2, 1), RaisonSocial: "A", Adresse: "X"},
		{Article: "Milk", Qte: 0, MissionDate: day(2024, 2, 1), RaisonSocial: "A", Adresse: "X"},
	}

	report, err := newTestBuilder(0).BuildQuantityReport(context.Background(), records)
	require.NoError(t, err)

	section := report.Sections[0]
	assert.Equal(t, "Mission du 01/02/2024 | A X", section.Heading, "no surveyor suffix when unknown")
	for _, row := range section.Articles[0].Rows {
		assert.Zero(t, row.OccupancyShare)
	}
}

func TestBuildQuantityReport_InvalidDate(t *testing.T) {
	records := []domain.QuantityObservation{{Article: "Milk", Qte: 1, RaisonSocial: "A", Adresse: "X"}}

	report, err := newTestBuilder(0).BuildQuantityReport(context.Background(), records)
	require.NoError(t, err)
	assert.Equal(t, locale.InvalidDate, report.Sections[0].Label.Date)
}

func TestBuilder_ChunkedMatchesSequential(t *testing.T) {
	var records []domain.PriceObservation
	clients := []string{"A", "B", "C", "D", "E"}
	for i := 0; i < 120; i++ {
		records = append(records, domain.PriceObservation{
			Article:      "item",
			Prix:         float64(i%9) + 0.5,
			Contenance:   float64(100 * (1 + i%4)),
			MissionDate:  day(2024, 3, 1).Add(time.Duration(i%2) * 24 * time.Hour),
			RaisonSocial: clients[i%len(clients)],
			Adresse:      "addr",
		})
	}

	sequential, err := newTestBuilder(0).BuildPriceReport(context.Background(), records)
	require.NoError(t, err)
	chunked, err := newTestBuilder(6).BuildPriceReport(context.Background(), records)
	require.NoError(t, err)

	assert.Equal(t, sequential, chunked)
}

func TestBuilder_RebuildIsDeterministic(t *testing.T) {
	records := []domain.PriceObservation{
		{Article: "Water", Prix: 2, Contenance: 500, MissionDate: day(2024, 1, 1), RaisonSocial: "A", Adresse: "X"},
	}
	b := newTestBuilder(0)

	first, err := b.BuildPriceReport(context.Background(), records)
	require.NoError(t, err)
	second, err := b.BuildPriceReport(context.Background(), records)
	require.NoError(t, err)
	assert.Equal(t, first, second)
}
