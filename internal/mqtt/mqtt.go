// Package mqtt fans accepted input transitions out to an MQTT broker.
package mqtt

import (
	"encoding/json"
	"time"

	"github.com/gingerskull/joycore-link/internal/rawstate"
)

// Publisher publishes transitions and service lifecycle events.
type Publisher interface {
	// PublishTransition sends one accepted state change to the broker.
	// Returns error if publishing fails (must not crash the process).
	PublishTransition(tr rawstate.Transition) error

	// PublishStatus sends a service lifecycle event to the broker.
	PublishStatus(event SystemEvent) error

	// Close disconnects from the broker.
	Close() error
}

// SystemEvent represents a service lifecycle event (startup, shutdown,
// monitor start/stop).
type SystemEvent struct {
	Timestamp time.Time
	Event     string // e.g. "STARTUP", "SHUTDOWN", "MONITOR_STARTED"
	Reason    string
	Retained  bool
}

// TransitionTopic returns the per-domain topic under the prefix, e.g.
// "joycore/input/gpio".
func TransitionTopic(prefix string, domain rawstate.Domain) string {
	return prefix + "/input/" + string(domain)
}

// StatusTopic returns the lifecycle topic under the prefix.
func StatusTopic(prefix string) string {
	return prefix + "/system"
}

type systemPayload struct {
	System systemPayloadInner `json:"system"`
}

type systemPayloadInner struct {
	Timestamp string `json:"timestamp"`
	Event     string `json:"event"`
	Reason    string `json:"reason,omitempty"`
}

func formatSystemPayload(event SystemEvent) ([]byte, error) {
	return json.Marshal(systemPayload{
		System: systemPayloadInner{
			Timestamp: event.Timestamp.UTC().Format(time.RFC3339),
			Event:     event.Event,
			Reason:    event.Reason,
		},
	})
}

// Nop is used when the broker integration is disabled.
type Nop struct{}

func (Nop) PublishTransition(rawstate.Transition) error { return nil }
func (Nop) PublishStatus(SystemEvent) error             { return nil }
func (Nop) Close() error                                { return nil }
