package api

import (
	"time"

	"fieldreport/pkg/contracts/domain"
)

// Response is the success envelope of every JSON endpoint
type Response struct {
	Status string      `json:"status"`
	Data   interface{} `json:"data"`
}

// Success wraps data in the success envelope
func Success(data interface{}) Response {
	return Response{Status: "success", Data: data}
}

// ShareResponse describes a delivered document
type ShareResponse struct {
	DocumentID string              `json:"document_id"`
	Name       string              `json:"name"`
	Kind       domain.ReportKind   `json:"kind"`
	Format     domain.ReportFormat `json:"format"`
	Sink       string              `json:"sink"`
	Location   string              `json:"location"`
	Bytes      int                 `json:"bytes"`
	Checksum   string              `json:"checksum"`
	SharedAt   time.Time           `json:"shared_at"`
}

// ExportEntry is one document kept by the file share sink
type ExportEntry struct {
	Name       string              `json:"name"`
	Kind       domain.ReportKind   `json:"kind,omitempty"`
	Format     domain.ReportFormat `json:"format"`
	Checksum   string              `json:"checksum"`
	Size       int64               `json:"size"`
	ModifiedAt time.Time           `json:"modified_at"`
	URL        string              `json:"url"`
}

// ExportListResponse lists archived exports, newest first
type ExportListResponse struct {
	Exports []ExportEntry `json:"exports"`
	Count   int           `json:"count"`
}
