package exporter

import (
	"bytes"
	"encoding/csv"
	"fmt"
	"io"
)

var utf8BOM = []byte{0xEF, 0xBB, 0xBF}

// WriteOptions configures CSV writing behavior
type WriteOptions struct {
	Headers   []string
	Records   [][]string
	BOMPrefix bool // Add UTF-8 BOM for Excel compatibility
}

// WriteCSV writes headers and records to w
func WriteCSV(w io.Writer, options WriteOptions) error {
	if options.BOMPrefix {
		if _, err := w.Write(utf8BOM); err != nil {
			return fmt.Errorf("failed to write BOM: %w", err)
		}
	}

	writer := csv.NewWriter(w)

	if len(options.Headers) > 0 {
		if err := writer.Write(options.Headers); err != nil {
			return fmt.Errorf("failed to write headers: %w", err)
		}
	}

	for i, record := range options.Records {
		if err := writer.Write(record); err != nil {
			return fmt.Errorf("failed to write record %d: %w", i, err)
		}
	}

	writer.Flush()
	return writer.Error()
}

// encodeCSV flattens the layout to one row per observation, each prefixed
// with its group label columns
func encodeCSV(l *Layout) ([]byte, error) {
	headers := append(append([]string{}, l.LabelColumns...), l.Columns...)
	records := make([][]string, 0, l.RowCount())

	for _, s := range l.Sections {
		label := l.labelValues(s.Label)
		for _, row := range s.Table.Rows {
			record := make([]string, 0, len(headers))
			record = append(record, label...)
			for _, c := range row {
				record = append(record, c.Text)
			}
			records = append(records, record)
		}
	}

	var buf bytes.Buffer
	if err := WriteCSV(&buf, WriteOptions{Headers: headers, Records: records, BOMPrefix: true}); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}
