// Package api contains the REST contract of the report service.
// Version v1 represents the current stable API version.
package api

import (
	"fieldreport/pkg/contracts/domain"
)

// ReportRequest carries the report filters. GET endpoints read them from the
// query string, share requests from the JSON body.
type ReportRequest struct {
	Date      string `json:"date,omitempty" query:"date" validate:"omitempty,iso8601"`
	UserID    string `json:"user_id,omitempty" query:"user_id" validate:"omitempty,max=64"`
	MissionID string `json:"mission_id,omitempty" query:"mission_id" validate:"omitempty,max=64"`
}

// Query converts the request into the backend filter set
func (r ReportRequest) Query() domain.ReportQuery {
	return domain.ReportQuery{Date: r.Date, UserID: r.UserID, MissionID: r.MissionID}
}

// ShareRequest asks for a report to be rendered and delivered to the share sink.
// An empty format shares a PDF.
type ShareRequest struct {
	ReportRequest
	Format string `json:"format,omitempty" validate:"omitempty,oneof=html pdf csv xlsx excel"`
}
