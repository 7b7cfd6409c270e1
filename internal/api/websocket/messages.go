package websocket

import "time"

// MessageType defines the type of WebSocket message
type MessageType string

const (
	// Input state messages
	MessageTypeInputState MessageType = "input_state"

	// Device and monitor lifecycle messages
	MessageTypeDeviceStatus  MessageType = "device_status"
	MessageTypeMonitorStatus MessageType = "monitor_status"

	// Settings messages
	MessageTypePullModes MessageType = "pull_modes"

	// System messages
	MessageTypeSystemStatus MessageType = "system_status"

	// Auth handshake messages
	MessageTypeAuthSuccess MessageType = "auth_success"
	MessageTypeAuthFailed  MessageType = "auth_failed"
)

// Message represents a WebSocket message
type Message struct {
	Type      MessageType `json:"type"`
	Timestamp time.Time   `json:"timestamp"`
	Data      interface{} `json:"data,omitempty"`
}

// SystemStatusData represents a system state change
type SystemStatusData struct {
	State    string `json:"state"`
	Previous string `json:"previous_state,omitempty"`
	Reason   string `json:"reason,omitempty"`
}

// AuthFailedData carries the rejection reason of the auth handshake
type AuthFailedData struct {
	Reason string `json:"reason"`
}

// NewMessage creates a new message with current timestamp
func NewMessage(msgType MessageType, data interface{}) Message {
	return Message{
		Type:      msgType,
		Timestamp: time.Now(),
		Data:      data,
	}
}

func NewSystemStatusMessage(state, previous, reason string) Message {
	return NewMessage(MessageTypeSystemStatus, SystemStatusData{
		State:    state,
		Previous: previous,
		Reason:   reason,
	})
}
