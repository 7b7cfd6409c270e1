package storage

import (
	"encoding/json"
	"time"
)

// TransitionRecord is one accepted input state change persisted for
// later analysis. Payload carries the domain-specific sample as JSONB.
type TransitionRecord struct {
	ID         int64           `json:"id"`
	Domain     string          `json:"domain"`
	Signature  string          `json:"signature"`
	Payload    json.RawMessage `json:"payload"`
	OccurredMs int64           `json:"occurred_ms"`
	RecordedAt time.Time       `json:"recorded_at"`
}
