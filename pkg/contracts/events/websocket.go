// Package events contains event contract definitions for the WebSocket
// lifecycle stream of the Solunex license server.
package events

import (
	"time"
)

// MessageType defines the type of WebSocket message
type MessageType string

const (
	// License lifecycle messages
	MessageTypeLicenseActivated MessageType = "license:activated"
	MessageTypeLicenseDenied    MessageType = "license:denied"
	MessageTypeLicenseChecked   MessageType = "license:checked"

	// System messages
	MessageTypeSystemStatus MessageType = "system:status"

	// Connection messages
	MessageTypeConnect    MessageType = "connect"
	MessageTypeDisconnect MessageType = "disconnect"
	MessageTypeError      MessageType = "error"
)

// BaseMessage represents the base structure for all WebSocket messages
type BaseMessage struct {
	ID        string      `json:"id,omitempty"`       // Unique message ID
	Type      MessageType `json:"type"`               // Message type
	Timestamp time.Time   `json:"timestamp"`          // Message timestamp
	TraceID   string      `json:"trace_id,omitempty"` // Request trace ID
}

// WebSocketMessage represents a complete WebSocket message
type WebSocketMessage struct {
	BaseMessage
	Data interface{} `json:"data,omitempty"` // Message payload
}

// LicenseEvent is the payload for license lifecycle messages. LicenseKey
// is masked before broadcast; subscribers never see full keys.
type LicenseEvent struct {
	LicenseKey  string `json:"license_key"`
	DeviceID    string `json:"device_id,omitempty"`
	Outcome     string `json:"outcome"` // activated|rebound|revoked|expired|max_devices|not_found
	BoundCount  int    `json:"bound_count"`
	MaxDevices  int    `json:"max_devices,omitempty"`
	ClientName  string `json:"client_name,omitempty"`
	Environment string `json:"environment,omitempty"`
}

// SystemStatusEvent reports overall service health on the stream.
type SystemStatusEvent struct {
	Status     string            `json:"status"` // healthy|degraded|unhealthy
	Components map[string]string `json:"components"`
	Version    string            `json:"version"`
}
