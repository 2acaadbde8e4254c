// Package events contains the event contracts pushed to dashboard clients
// over the websocket channel.
package events

import (
	"time"
)

// MessageType defines the type of WebSocket message
type MessageType string

const (
	// Dataset lifecycle
	MessageTypeDatasetCreated MessageType = "dataset:created"
	MessageTypeDatasetDeleted MessageType = "dataset:deleted"
	MessageTypeDatasetEvicted MessageType = "dataset:evicted"

	// Batch outcome, one per upload or source load
	MessageTypeIngestCompleted MessageType = "ingest:completed"

	// Source registry changes
	MessageTypeSourceAdded   MessageType = "source:added"
	MessageTypeSourceRemoved MessageType = "source:removed"

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

// DatasetEvent is the payload of the dataset messages
type DatasetEvent struct {
	ID   string `json:"id"`
	Name string `json:"name,omitempty"`
	Type string `json:"type,omitempty"`
	Rows int    `json:"rows,omitempty"`
}

// IngestEvent summarises a finished batch
type IngestEvent struct {
	Origin   string   `json:"origin"`
	Files    int      `json:"files"`
	Loaded   int      `json:"loaded"`
	Skipped  int      `json:"skipped"`
	Datasets []string `json:"datasets"`
}

// SourceEvent is the payload of the source messages
type SourceEvent struct {
	Name    string `json:"name"`
	Locator string `json:"locator,omitempty"`
}

// ConnectEvent greets a newly registered client
type ConnectEvent struct {
	ClientID string `json:"client_id"`
}

// ErrorMessage represents an error message
type ErrorMessage struct {
	BaseMessage
	Data struct {
		Code    string      `json:"code"`
		Message string      `json:"message"`
		Details interface{} `json:"details,omitempty"`
	} `json:"data"`
}
