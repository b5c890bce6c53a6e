package websocket

import (
	"time"

	"github.com/gorilla/websocket"
)

// EventType represents the type of WebSocket event
type EventType string

const (
	// EventTypeOperation reports a completed generate, anonymize or analyze call
	EventTypeOperation EventType = "operation"
	// EventTypeSystemStatus represents a system status event
	EventTypeSystemStatus EventType = "system_status"
	// EventTypeConnection represents connection events
	EventTypeConnection EventType = "connection"
	// EventTypePong answers a client ping
	EventTypePong EventType = "pong"
)

// Event represents a WebSocket event sent to clients
type Event struct {
	Type      EventType `json:"type"`
	Timestamp time.Time `json:"timestamp"`
	Data      any       `json:"data"`
	RequestID string    `json:"request_id,omitempty"`
}

// OperationEvent summarizes one API call. It never carries document
// content, only counts.
type OperationEvent struct {
	Operation    string  `json:"operation"`
	Format       string  `json:"format,omitempty"`
	StatusCode   int     `json:"status_code"`
	ItemCount    int     `json:"item_count,omitempty"`
	FieldCount   int     `json:"field_count,omitempty"`
	ClientIP     string  `json:"client_ip"`
	ProcessingMS float64 `json:"processing_ms"`
}

// SystemStatusEvent represents system status information
type SystemStatusEvent struct {
	Status           string `json:"status"`
	Uptime           string `json:"uptime"`
	TotalOperations  int64  `json:"total_operations"`
	ConnectedClients int    `json:"connected_clients"`
}

// ConnectionEvent represents WebSocket connection events
type ConnectionEvent struct {
	Action    string `json:"action"` // "connected", "disconnected"
	ClientID  string `json:"client_id"`
	ClientIP  string `json:"client_ip"`
	UserAgent string `json:"user_agent,omitempty"`
}

// ClientMessage represents messages sent from clients to server
type ClientMessage struct {
	Type   string      `json:"type"`
	Events []EventType `json:"events,omitempty"`
}

// Client represents a WebSocket client connection
type Client struct {
	ID          string
	Conn        *websocket.Conn
	Send        chan Event
	ConnectedAt time.Time
	LastPing    time.Time
	IP          string
	UserAgent   string

	// nil means every event type
	subscribed map[EventType]bool
}

func (c *Client) wants(t EventType) bool {
	if c.subscribed == nil {
		return true
	}
	return c.subscribed[t]
}
