// Package events contains the WebSocket message contracts pushed to
// connected report clients.
package events

import (
	"time"
)

// MessageType defines the type of WebSocket message
type MessageType string

const (
	// Export outcomes
	MessageTypeReportExported     MessageType = "report:exported"
	MessageTypeReportExportFailed MessageType = "report:export_failed"

	// Connection messages
	MessageTypeConnect MessageType = "connect"
	MessageTypeError   MessageType = "error"
)

// BaseMessage represents the base structure for all WebSocket messages
type BaseMessage struct {
	ID        string      `json:"id,omitempty"`
	Type      MessageType `json:"type"`
	Timestamp time.Time   `json:"timestamp"`
	TraceID   string      `json:"trace_id,omitempty"`
}

// WebSocketMessage represents a complete WebSocket message
type WebSocketMessage struct {
	BaseMessage
	Data interface{} `json:"data,omitempty"`
}

// ExportEvent describes the outcome of one export/share attempt.
// Reason is set only for failures and is safe to show to a user.
type ExportEvent struct {
	DocumentID  string `json:"document_id"`
	Name        string `json:"name"`
	Kind        string `json:"kind"`
	Format      string `json:"format"`
	Sink        string `json:"sink"`
	Location    string `json:"location,omitempty"`
	Bytes       int    `json:"bytes,omitempty"`
	Reason      string `json:"reason,omitempty"`
	Recoverable bool   `json:"recoverable,omitempty"`
}

// ConnectEvent is sent to a client right after it registers
type ConnectEvent struct {
	Status   string `json:"status"`
	ClientID string `json:"client_id"`
	Message  string `json:"message"`
}
