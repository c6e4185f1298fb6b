package core

import (
	"time"

	"github.com/google/uuid"
)

// CoherenceEvent records a single validation passing through the monitor.
// After emission it should be treated as immutable. It captures:
//   - Correlation (ID, Source)
//   - The validated content (or a joined reasoning chain)
//   - The owned CoherenceResult
//   - Opaque caller-supplied context
//   - High precision UTC timestamp
//
// Events are retained only inside the monitor's bounded history; holders of
// an event value never observe later mutation because the struct is copied
// on read.
type CoherenceEvent struct {
	ID        string          `json:"id"`
	Timestamp time.Time       `json:"timestamp"`
	Source    string          `json:"source"`
	Content   string          `json:"content"`
	Result    CoherenceResult `json:"result"`
	Context   map[string]any  `json:"context,omitempty"`
}

// NewCoherenceEvent creates an event for the given source and content,
// stamping it with a fresh ID and the current UTC time.
func NewCoherenceEvent(source, content string, result CoherenceResult, context map[string]any) CoherenceEvent {
	return CoherenceEvent{
		ID:        NewID(),
		Timestamp: time.Now().UTC(),
		Source:    source,
		Content:   content,
		Result:    result,
		Context:   context,
	}
}

// NewID generates a new unique identifier for events, sessions and messages.
//
// This function creates a UUID-based unique identifier that can be used
// for tracking and correlation throughout the framework.
//
// Returns a string representation of a new UUID.
func NewID() string { return uuid.NewString() }

// UnixSeconds returns the timestamp as fractional seconds since Unix epoch.
// Useful for metrics & numeric serialization paths.
func (e CoherenceEvent) UnixSeconds() float64 { return float64(e.Timestamp.UnixNano()) / 1e9 }
