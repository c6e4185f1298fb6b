package core

import (
	"fmt"
	"sync"
	"time"
)

// SessionStatus tracks a validation session through its lifecycle.
// Transitions are monotonic: CREATED → ACTIVE → {COMPLETED, HALTED} → CLOSED.
// A closed session never transitions again.
type SessionStatus string

const (
	// SessionCreated is the initial status after registry creation.
	SessionCreated SessionStatus = "created"
	// SessionActive means the session is accepting validations.
	SessionActive SessionStatus = "active"
	// SessionCompleted means the session finished without a halt.
	SessionCompleted SessionStatus = "completed"
	// SessionHalted means a halt event stopped the session.
	SessionHalted SessionStatus = "halted"
	// SessionClosed is the terminal status; closed sessions remain queryable
	// for audit but reject all writes.
	SessionClosed SessionStatus = "closed"
)

// sessionTransitions enumerates the allowed forward edges of the lifecycle.
var sessionTransitions = map[SessionStatus][]SessionStatus{
	SessionCreated:   {SessionActive, SessionClosed},
	SessionActive:    {SessionCompleted, SessionHalted, SessionClosed},
	SessionCompleted: {SessionClosed},
	SessionHalted:    {SessionClosed},
	SessionClosed:    {},
}

// SessionConfig carries per-session tuning for halt evaluation.
type SessionConfig struct {
	// ErrorThreshold halts when a result's level is at or below it.
	ErrorThreshold CoherenceLevel `json:"error_threshold" yaml:"error_threshold"`
	// WarningThreshold warns when a result's level is at or below it but
	// above ErrorThreshold.
	WarningThreshold CoherenceLevel `json:"warning_threshold" yaml:"warning_threshold"`
	// TokenBudget bounds cumulative token usage; 0 means unlimited.
	TokenBudget int `json:"token_budget" yaml:"token_budget"`
	// Metadata holds free-form caller annotations.
	Metadata map[string]string `json:"metadata,omitempty" yaml:"metadata,omitempty"`
}

// DefaultSessionConfig returns the baseline thresholds: halt at LOW or worse,
// warn at MEDIUM, no token budget.
func DefaultSessionConfig() SessionConfig {
	return SessionConfig{
		ErrorThreshold:   LevelLow,
		WarningThreshold: LevelMedium,
	}
}

// ValidationSession is a registry-owned container tracking the lifecycle of
// one validated execution. It is safe for concurrent access.
//
// Contract:
//   - Status mutations go through Transition and are strictly monotonic
//   - Halt events are append-only audit history
//   - Snapshot returns a defensive copy to avoid external mutation
//
// Other components reference sessions by ID only; the registry retains sole
// ownership.
type ValidationSession struct {
	ID         string        `json:"id"`
	Status     SessionStatus `json:"status"`
	Config     SessionConfig `json:"config"`
	CreatedAt  time.Time     `json:"created_at"`
	ClosedAt   *time.Time    `json:"closed_at,omitempty"`
	HaltEvents []HaltEvent   `json:"halt_events,omitempty"`
	mu         sync.RWMutex
}

// NewValidationSession creates a session in status CREATED with the given config.
func NewValidationSession(id string, cfg SessionConfig) *ValidationSession {
	return &ValidationSession{
		ID:        id,
		Status:    SessionCreated,
		Config:    cfg,
		CreatedAt: time.Now().UTC(),
	}
}

// Transition moves the session to the target status, enforcing the monotonic
// lifecycle. Closing additionally stamps ClosedAt.
func (s *ValidationSession) Transition(to SessionStatus) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, allowed := range sessionTransitions[s.Status] {
		if allowed == to {
			s.Status = to
			if to == SessionClosed {
				now := time.Now().UTC()
				s.ClosedAt = &now
			}
			return nil
		}
	}
	return fmt.Errorf("invalid session transition %s -> %s", s.Status, to)
}

// CurrentStatus returns the session status under the read lock.
func (s *ValidationSession) CurrentStatus() SessionStatus {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.Status
}

// AddHaltEvent appends a halt event to the audit history.
func (s *ValidationSession) AddHaltEvent(ev HaltEvent) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.HaltEvents = append(s.HaltEvents, ev)
}

// GetHaltEvents returns a defensive copy of the halt history.
func (s *ValidationSession) GetHaltEvents() []HaltEvent {
	s.mu.RLock()
	defer s.mu.RUnlock()
	events := make([]HaltEvent, len(s.HaltEvents))
	copy(events, s.HaltEvents)
	return events
}

// Snapshot returns a deep copy of the session safe for independent inspection.
func (s *ValidationSession) Snapshot() *ValidationSession {
	s.mu.RLock()
	defer s.mu.RUnlock()
	snap := &ValidationSession{
		ID:        s.ID,
		Status:    s.Status,
		Config:    s.Config,
		CreatedAt: s.CreatedAt,
	}
	if s.ClosedAt != nil {
		closed := *s.ClosedAt
		snap.ClosedAt = &closed
	}
	if len(s.HaltEvents) > 0 {
		snap.HaltEvents = make([]HaltEvent, len(s.HaltEvents))
		copy(snap.HaltEvents, s.HaltEvents)
	}
	if s.Config.Metadata != nil {
		snap.Config.Metadata = make(map[string]string, len(s.Config.Metadata))
		for k, v := range s.Config.Metadata {
			snap.Config.Metadata[k] = v
		}
	}
	return snap
}

// SessionRegistry manages validation session lifecycles. Implementations must
// be safe for concurrent use; creation and closure are atomic with respect to
// concurrent lookups.
type SessionRegistry interface {
	Create(cfg SessionConfig) (*ValidationSession, error)
	Get(id string) (*ValidationSession, error)
	Close(id string) error
}
