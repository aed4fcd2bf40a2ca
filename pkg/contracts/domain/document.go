package domain

// Document is a rendered, shareable report file.
// ID is derived from the content checksum, so re-rendering the same report
// yields the same ID.
type Document struct {
	ID       string       `json:"id"`
	Name     string       `json:"name"`
	Kind     ReportKind   `json:"kind"`
	Format   ReportFormat `json:"format"`
	MIMEType string       `json:"mime_type"`
	Checksum string       `json:"checksum"`
	Content  []byte       `json:"-"`
}

// FileName returns the document name with its format extension
func (d *Document) FileName() string {
	return d.Name + d.Format.Extension()
}

// Size returns the content length in bytes
func (d *Document) Size() int {
	return len(d.Content)
}
