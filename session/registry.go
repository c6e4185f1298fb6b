package session

import (
	"fmt"
	"sync"

	"github.com/hupe1980/agentguard/core"
	"github.com/hupe1980/agentguard/logging"
)

// Registry is a process-local core.SessionRegistry storing validation
// sessions in a map. It is safe for concurrent access; creation and closure
// are atomic with respect to concurrent lookups. Returned sessions are
// snapshots to prevent external mutation of internal state.
type Registry struct {
	mu       sync.RWMutex
	sessions map[string]*core.ValidationSession
	logger   logging.Logger
}

// RegistryOption customizes a Registry.
type RegistryOption func(*Registry)

// WithLogger sets the logger used for lifecycle events.
func WithLogger(l logging.Logger) RegistryOption {
	return func(r *Registry) {
		if l != nil {
			r.logger = l
		}
	}
}

// NewRegistry constructs an empty in-memory session registry.
func NewRegistry(optFns ...RegistryOption) *Registry {
	r := &Registry{
		sessions: make(map[string]*core.ValidationSession),
		logger:   logging.NoOpLogger{},
	}
	for _, fn := range optFns {
		fn(r)
	}
	return r
}

// Create registers a new session with a fresh id in status CREATED.
func (r *Registry) Create(cfg core.SessionConfig) (*core.ValidationSession, error) {
	sess := core.NewValidationSession(core.NewID(), cfg)

	r.mu.Lock()
	r.sessions[sess.ID] = sess
	r.mu.Unlock()

	r.logger.Debug("session created", "session_id", sess.ID)
	return sess.Snapshot(), nil
}

// Get returns a snapshot of an existing session. Closed sessions are
// returned as well so halt history stays queryable for audit; only unknown
// ids yield ErrNotFound.
func (r *Registry) Get(id string) (*core.ValidationSession, error) {
	r.mu.RLock()
	sess, ok := r.sessions[id]
	r.mu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("get session %q: %w", id, ErrNotFound)
	}
	return sess.Snapshot(), nil
}

// Activate transitions a session from CREATED to ACTIVE.
func (r *Registry) Activate(id string) error {
	return r.transition(id, core.SessionActive)
}

// Complete transitions an ACTIVE session to COMPLETED.
func (r *Registry) Complete(id string) error {
	return r.transition(id, core.SessionCompleted)
}

// Halt transitions an ACTIVE session to HALTED and records the triggering
// halt event in the session's audit history.
func (r *Registry) Halt(id string, ev core.HaltEvent) error {
	r.mu.RLock()
	sess, ok := r.sessions[id]
	r.mu.RUnlock()
	if !ok {
		return fmt.Errorf("halt session %q: %w", id, ErrNotFound)
	}
	if sess.CurrentStatus() == core.SessionClosed {
		return fmt.Errorf("halt session %q: %w", id, ErrClosed)
	}

	// Transition first: a rejected transition must leave no trace in the
	// audit history.
	if err := sess.Transition(core.SessionHalted); err != nil {
		return fmt.Errorf("halt session %q: %w", id, err)
	}
	sess.AddHaltEvent(ev)

	r.logger.Warn("session halted", "session_id", id, "reason", string(ev.Reason))
	return nil
}

// AppendHalt records an additional halt event without changing status. Used
// when one evaluation yields several simultaneous triggers: the first halts
// the session, the rest are appended for the audit trail.
func (r *Registry) AppendHalt(id string, ev core.HaltEvent) error {
	r.mu.RLock()
	sess, ok := r.sessions[id]
	r.mu.RUnlock()
	if !ok {
		return fmt.Errorf("append halt to session %q: %w", id, ErrNotFound)
	}
	if sess.CurrentStatus() == core.SessionClosed {
		return fmt.Errorf("append halt to session %q: %w", id, ErrClosed)
	}
	sess.AddHaltEvent(ev)
	return nil
}

// Close moves a session to its terminal CLOSED status. Closing an unknown or
// already-closed session returns ErrNotFound.
func (r *Registry) Close(id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	sess, ok := r.sessions[id]
	if !ok || sess.CurrentStatus() == core.SessionClosed {
		return fmt.Errorf("close session %q: %w", id, ErrNotFound)
	}
	if err := sess.Transition(core.SessionClosed); err != nil {
		return fmt.Errorf("close session %q: %w", id, err)
	}

	r.logger.Debug("session closed", "session_id", id)
	return nil
}

// List returns snapshots of all registered sessions, closed ones included.
func (r *Registry) List() []*core.ValidationSession {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]*core.ValidationSession, 0, len(r.sessions))
	for _, sess := range r.sessions {
		out = append(out, sess.Snapshot())
	}
	return out
}

// HaltStatistics aggregates halt counts across all sessions by reason.
func (r *Registry) HaltStatistics() map[core.HaltReason]int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	stats := make(map[core.HaltReason]int)
	for _, sess := range r.sessions {
		for _, ev := range sess.GetHaltEvents() {
			stats[ev.Reason]++
		}
	}
	return stats
}

// Reset drops all sessions. Intended for test isolation.
func (r *Registry) Reset() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.sessions = make(map[string]*core.ValidationSession)
}

func (r *Registry) transition(id string, to core.SessionStatus) error {
	r.mu.RLock()
	sess, ok := r.sessions[id]
	r.mu.RUnlock()
	if !ok {
		return fmt.Errorf("transition session %q: %w", id, ErrNotFound)
	}
	if err := sess.Transition(to); err != nil {
		return fmt.Errorf("transition session %q: %w", id, err)
	}
	return nil
}
