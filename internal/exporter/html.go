package exporter

import (
	"bytes"
	_ "embed"
	"fmt"
	"html/template"
)

//go:embed templates/report.html.tmpl
var reportTemplateText string

var reportTemplate = template.Must(template.New("report").Parse(reportTemplateText))

// encodeHTML renders the layout as a standalone printable page
func encodeHTML(l *Layout) ([]byte, error) {
	var buf bytes.Buffer
	if err := reportTemplate.Execute(&buf, l); err != nil {
		return nil, fmt.Errorf("failed to execute report template: %w", err)
	}
	return buf.Bytes(), nil
}
