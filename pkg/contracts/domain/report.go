package domain

import (
	"fmt"
	"strings"
)

// ReportKind identifies which survey report is built
type ReportKind string

const (
	ReportKindPrice    ReportKind = "price"
	ReportKindQuantity ReportKind = "quantity"
)

// ParseReportKind converts a route or flag value to a ReportKind
func ParseReportKind(s string) (ReportKind, error) {
	switch ReportKind(strings.ToLower(strings.TrimSpace(s))) {
	case ReportKindPrice:
		return ReportKindPrice, nil
	case ReportKindQuantity:
		return ReportKindQuantity, nil
	default:
		return "", fmt.Errorf("unknown report kind %q", s)
	}
}

// ReportFormat defines the serialized form of a rendered report
type ReportFormat string

const (
	ReportFormatHTML  ReportFormat = "html"
	ReportFormatPDF   ReportFormat = "pdf"
	ReportFormatCSV   ReportFormat = "csv"
	ReportFormatExcel ReportFormat = "xlsx"
)

// ParseReportFormat converts a query or flag value to a ReportFormat.
// An empty value selects HTML.
func ParseReportFormat(s string) (ReportFormat, error) {
	switch ReportFormat(strings.ToLower(strings.TrimSpace(s))) {
	case "", ReportFormatHTML:
		return ReportFormatHTML, nil
	case ReportFormatPDF:
		return ReportFormatPDF, nil
	case ReportFormatCSV:
		return ReportFormatCSV, nil
	case ReportFormatExcel, "excel":
		return ReportFormatExcel, nil
	default:
		return "", fmt.Errorf("unsupported report format %q", s)
	}
}

// Extension returns the file extension including the leading dot
func (f ReportFormat) Extension() string {
	return "." + string(f)
}

// MIMEType returns the media type used when sharing or downloading
func (f ReportFormat) MIMEType() string {
	switch f {
	case ReportFormatPDF:
		return "application/pdf"
	case ReportFormatCSV:
		return "text/csv; charset=utf-8"
	case ReportFormatExcel:
		return "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"
	default:
		return "text/html; charset=utf-8"
	}
}

// ReportQuery carries the caller-side filters forwarded to the record source.
// Filtering itself happens on the backend.
type ReportQuery struct {
	Date      string `json:"date,omitempty" validate:"omitempty,datetime=2006-01-02"`
	UserID    string `json:"user_id,omitempty" validate:"omitempty,max=64"`
	MissionID string `json:"mission_id,omitempty" validate:"omitempty,max=64"`
}

// GroupLabel is the display identity of a date-client group
type GroupLabel struct {
	Date     string `json:"date"`
	Client   string `json:"client"`
	Address  string `json:"address"`
	Surveyor string `json:"surveyor,omitempty"`
}

// PriceRow is one observation row of a price report
type PriceRow struct {
	Article       string  `json:"article"`
	Marque        string  `json:"marque"`
	Prix          float64 `json:"prix"`
	Contenance    float64 `json:"contenance"`
	AdjustedPrice float64 `json:"adjusted_price"`
	MarginRate    float64 `json:"margin_rate"`
}

// PriceSection holds the rows of one date-client group.
// BaselineCapacity is the capacity of the first observation of the group.
type PriceSection struct {
	Heading          string     `json:"heading"`
	Label            GroupLabel `json:"label"`
	BaselineCapacity float64    `json:"baseline_capacity"`
	Rows             []PriceRow `json:"rows"`
}

// PriceReport is the renderable price normalization report
type PriceReport struct {
	Title       string         `json:"title"`
	Sections    []PriceSection `json:"sections"`
	RecordCount int            `json:"record_count"`
	Notice      string         `json:"notice,omitempty"`
}

// QuantityRow is one observation row of a quantity report
type QuantityRow struct {
	Article        string  `json:"article"`
	Marque         string  `json:"marque"`
	Qte            float64 `json:"qte"`
	Contenance     float64 `json:"contenance"`
	OccupancyShare float64 `json:"occupancy_share"`
}

// ArticleBlock groups quantity rows of the same article inside a section
type ArticleBlock struct {
	Article  string        `json:"article"`
	TotalQte float64       `json:"total_qte"`
	Rows     []QuantityRow `json:"rows"`
}

// QuantitySection holds the article blocks of one date-client group
type QuantitySection struct {
	Heading  string         `json:"heading"`
	Label    GroupLabel     `json:"label"`
	Articles []ArticleBlock `json:"articles"`
}

// QuantityReport is the renderable shelf occupancy report
type QuantityReport struct {
	Title       string            `json:"title"`
	Sections    []QuantitySection `json:"sections"`
	RecordCount int               `json:"record_count"`
	Notice      string            `json:"notice,omitempty"`
}

// RowCount returns the number of observation rows across all sections
func (r *QuantityReport) RowCount() int {
	n := 0
	for _, s := range r.Sections {
		for _, a := range s.Articles {
			n += len(a.Rows)
		}
	}
	return n
}

// RowCount returns the number of observation rows across all sections
func (r *PriceReport) RowCount() int {
	n := 0
	for _, s := range r.Sections {
		n += len(s.Rows)
	}
	return n
}
