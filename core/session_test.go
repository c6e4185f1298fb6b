package core

import "testing"

func TestValidationSession_MonotonicTransitions(t *testing.T) {
	s := NewValidationSession("s1", DefaultSessionConfig())

	if err := s.Transition(SessionActive); err != nil {
		t.Fatalf("CREATED -> ACTIVE should be allowed: %v", err)
	}
	if err := s.Transition(SessionHalted); err != nil {
		t.Fatalf("ACTIVE -> HALTED should be allowed: %v", err)
	}
	if err := s.Transition(SessionActive); err == nil {
		t.Fatal("HALTED -> ACTIVE must be rejected")
	}
	if err := s.Transition(SessionClosed); err != nil {
		t.Fatalf("HALTED -> CLOSED should be allowed: %v", err)
	}
	if s.ClosedAt == nil {
		t.Fatal("closing must stamp ClosedAt")
	}

	// Closed is terminal.
	for _, to := range []SessionStatus{SessionCreated, SessionActive, SessionCompleted, SessionHalted, SessionClosed} {
		if err := s.Transition(to); err == nil {
			t.Errorf("CLOSED -> %s must be rejected", to)
		}
	}
}

func TestValidationSession_SkipActivationRejected(t *testing.T) {
	s := NewValidationSession("s2", DefaultSessionConfig())
	if err := s.Transition(SessionCompleted); err == nil {
		t.Fatal("CREATED -> COMPLETED must be rejected")
	}
}

func TestValidationSession_SnapshotIsIndependent(t *testing.T) {
	s := NewValidationSession("s3", SessionConfig{
		ErrorThreshold:   LevelLow,
		WarningThreshold: LevelMedium,
		Metadata:         map[string]string{"team": "alpha"},
	})
	s.AddHaltEvent(NewHaltEvent(HaltUserRequested, "stop", nil, nil))

	snap := s.Snapshot()
	if snap == s {
		t.Fatal("Snapshot should be a different pointer")
	}

	snap.HaltEvents = append(snap.HaltEvents, NewHaltEvent(HaltUserRequested, "again", nil, nil))
	snap.Config.Metadata["team"] = "beta"

	if len(s.GetHaltEvents()) != 1 {
		t.Error("original halt history must not grow through the snapshot")
	}
	if s.Config.Metadata["team"] != "alpha" {
		t.Error("original metadata must not change through the snapshot")
	}
}
