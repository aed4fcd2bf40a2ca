package exporter

import (
	"fmt"

	"github.com/xuri/excelize/v2"
)

const (
	amountNumFmt  = "0.00"
	percentNumFmt = `0.00"%"`
)

// sheetStyles holds the style IDs registered on a workbook
type sheetStyles struct {
	title   int
	heading int
	header  int
	amount  int
	percent int
}

func newSheetStyles(f *excelize.File) (*sheetStyles, error) {
	var s sheetStyles
	var err error

	amountFmt, percentFmt := amountNumFmt, percentNumFmt
	defs := []struct {
		target *int
		style  *excelize.Style
	}{
		{&s.title, &excelize.Style{Font: &excelize.Font{Bold: true, Size: 14}}},
		{&s.heading, &excelize.Style{Font: &excelize.Font{Bold: true}}},
		{&s.header, &excelize.Style{
			Font: &excelize.Font{Bold: true},
			Fill: excelize.Fill{Type: "pattern", Pattern: 1, Color: []string{"F0F0F0"}},
		}},
		{&s.amount, &excelize.Style{CustomNumFmt: &amountFmt}},
		{&s.percent, &excelize.Style{CustomNumFmt: &percentFmt}},
	}
	for _, d := range defs {
		if *d.target, err = f.NewStyle(d.style); err != nil {
			return nil, fmt.Errorf("failed to create sheet style: %w", err)
		}
	}
	return &s, nil
}

// encodeXLSX writes the layout into a single worksheet, one block per group
func encodeXLSX(l *Layout) ([]byte, error) {
	f := excelize.NewFile()
	defer f.Close()

	sheet := l.Name
	if err := f.SetSheetName("Sheet1", sheet); err != nil {
		return nil, fmt.Errorf("failed to name sheet: %w", err)
	}

	styles, err := newSheetStyles(f)
	if err != nil {
		return nil, err
	}

	w := &sheetWriter{file: f, sheet: sheet, row: 1}
	w.text(1, l.Title, styles.title)
	w.row++
	if l.Notice != "" {
		w.text(1, l.Notice, 0)
		w.row++
	}
	if len(l.Sections) == 0 {
		w.text(1, l.Empty, 0)
	}

	for _, s := range l.Sections {
		w.row++
		w.text(1, s.Heading, styles.heading)
		w.row++
		for i, col := range s.Table.Columns {
			w.text(i+1, col, styles.header)
		}
		w.row++
		for _, cells := range s.Table.Rows {
			for i, c := range cells {
				w.cell(i+1, c, styles)
			}
			w.row++
		}
	}
	if w.err != nil {
		return nil, w.err
	}

	if err := f.SetColWidth(sheet, "A", "F", 18); err != nil {
		return nil, fmt.Errorf("failed to set column width: %w", err)
	}

	buf, err := f.WriteToBuffer()
	if err != nil {
		return nil, fmt.Errorf("failed to write workbook: %w", err)
	}
	return buf.Bytes(), nil
}

// sheetWriter tracks the current row and keeps the first write error
type sheetWriter struct {
	file  *excelize.File
	sheet string
	row   int
	err   error
}

func (w *sheetWriter) set(col int, value any, style int) {
	if w.err != nil {
		return
	}
	name, err := excelize.CoordinatesToCellName(col, w.row)
	if err != nil {
		w.err = err
		return
	}
	if err := w.file.SetCellValue(w.sheet, name, value); err != nil {
		w.err = fmt.Errorf("failed to set cell %s: %w", name, err)
		return
	}
	if style != 0 {
		if err := w.file.SetCellStyle(w.sheet, name, name, style); err != nil {
			w.err = fmt.Errorf("failed to style cell %s: %w", name, err)
		}
	}
}

func (w *sheetWriter) text(col int, s string, style int) {
	w.set(col, s, style)
}

func (w *sheetWriter) cell(col int, c Cell, styles *sheetStyles) {
	switch {
	case !c.Numeric() || !finite(c.Value):
		w.set(col, c.Text, 0)
	case c.kind == amountCell:
		w.set(col, c.Value, styles.amount)
	case c.kind == percentCell:
		w.set(col, c.Value, styles.percent)
	default:
		w.set(col, c.Value, 0)
	}
}
