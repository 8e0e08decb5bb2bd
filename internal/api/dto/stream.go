package dto

import (
	"time"

	"github.com/pratik-mahalle/satwatch/internal/view"
)

// Stream message types
const (
	StreamTypeConnected = "connected"
	StreamTypeDashboard = "dashboard"
	StreamTypeError     = "error"
	StreamTypeFilter    = "filter"
)

// StreamMessage is a frame sent over the dashboard stream
type StreamMessage struct {
	Type      string      `json:"type"`
	Data      interface{} `json:"data,omitempty"`
	Timestamp time.Time   `json:"timestamp"`
}

// StreamCommand is a frame received from a stream client
type StreamCommand struct {
	Type   string           `json:"type"`
	Filter view.FilterState `json:"filter"`
}
