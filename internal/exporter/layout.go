package exporter

import (
	"fmt"

	"fieldreport/pkg/contracts/domain"
)

// Document base names, the format extension is appended on export.
const (
	PriceDocumentName    = "Rapport_Prix"
	QuantityDocumentName = "RapportQte"
)

// emptyMessage is shown in documents for reports without sections
const emptyMessage = "Aucune donnée disponible."

var (
	priceColumns    = []string{"Article", "Marque", "Prix", "Contenance", "Prix Ajusté", "Taux de Marge"}
	quantityColumns = []string{"Article", "Marque", "Quantité", "Contenance", "Taux OCC"}

	priceLabelColumns    = []string{"Date", "Client", "Adresse"}
	quantityLabelColumns = []string{"Date", "Client", "Adresse", "Enquêteur"}
)

type cellKind int

const (
	textCell cellKind = iota
	rawCell
	amountCell
	percentCell
)

// Cell is one rendered table value with its typed source number
type Cell struct {
	Text  string
	Value float64
	kind  cellKind
}

// Numeric reports whether the cell holds a number
func (c Cell) Numeric() bool {
	return c.kind != textCell
}

func text(s string) Cell { return Cell{Text: s, kind: textCell} }

func raw(f float64) Cell { return Cell{Text: formatRaw(f), Value: f, kind: rawCell} }

func amount(f float64) Cell {
	return Cell{Text: formatAmount(f), Value: roundAmount(f), kind: amountCell}
}

func percent(f float64) Cell {
	return Cell{Text: formatPercent(f), Value: roundAmount(f), kind: percentCell}
}

// Table is a grid with fixed columns
type Table struct {
	Columns []string
	Rows    [][]Cell
}

// Section is the rendered form of one date-client group
type Section struct {
	Heading string
	Label   domain.GroupLabel
	Table   Table
}

// Layout is the format-independent shape every encoder works from
type Layout struct {
	Title        string
	Notice       string
	Empty        string
	Sections     []Section
	Kind         domain.ReportKind
	Name         string
	LabelColumns []string
	Columns      []string
}

// RowCount returns the number of observation rows in the layout
func (l *Layout) RowCount() int {
	n := 0
	for _, s := range l.Sections {
		n += len(s.Table.Rows)
	}
	return n
}

// labelValues returns the repeated group columns of a flat export row
func (l *Layout) labelValues(label domain.GroupLabel) []string {
	values := []string{label.Date, label.Client, label.Address}
	if l.Kind == domain.ReportKindQuantity {
		values = append(values, label.Surveyor)
	}
	return values
}

// PriceLayout flattens a price report into one table per group
func PriceLayout(report *domain.PriceReport) *Layout {
	l := &Layout{
		Title:        report.Title,
		Notice:       report.Notice,
		Empty:        emptyMessage,
		Sections:     make([]Section, 0, len(report.Sections)),
		Kind:         domain.ReportKindPrice,
		Name:         PriceDocumentName,
		LabelColumns: priceLabelColumns,
		Columns:      priceColumns,
	}

	for _, s := range report.Sections {
		table := Table{Columns: priceColumns, Rows: make([][]Cell, 0, len(s.Rows))}
		for _, row := range s.Rows {
			table.Rows = append(table.Rows, []Cell{
				text(row.Article),
				text(row.Marque),
				raw(row.Prix),
				raw(row.Contenance),
				amount(row.AdjustedPrice),
				percent(row.MarginRate),
			})
		}
		l.Sections = append(l.Sections, Section{Heading: s.Heading, Label: s.Label, Table: table})
	}
	return l
}

// QuantityLayout flattens a quantity report into one table per group. Rows
// of the same article are adjacent, articles in first-appearance order.
func QuantityLayout(report *domain.QuantityReport) *Layout {
	l := &Layout{
		Title:        report.Title,
		Notice:       report.Notice,
		Empty:        emptyMessage,
		Sections:     make([]Section, 0, len(report.Sections)),
		Kind:         domain.ReportKindQuantity,
		Name:         QuantityDocumentName,
		LabelColumns: quantityLabelColumns,
		Columns:      quantityColumns,
	}

	for _, s := range report.Sections {
		table := Table{Columns: quantityColumns}
		for _, block := range s.Articles {
			for _, row := range block.Rows {
				table.Rows = append(table.Rows, []Cell{
					text(row.Article),
					text(row.Marque),
					raw(row.Qte),
					raw(row.Contenance),
					percent(row.OccupancyShare),
				})
			}
		}
		l.Sections = append(l.Sections, Section{Heading: s.Heading, Label: s.Label, Table: table})
	}
	return l
}
