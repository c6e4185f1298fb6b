package core

import "time"

// HaltReason categorizes why execution was halted.
type HaltReason string

const (
	// HaltLogicalContradiction indicates contradictions detected in content.
	HaltLogicalContradiction HaltReason = "logical_contradiction"
	// HaltMissingPrerequisites indicates required context or inputs were absent.
	HaltMissingPrerequisites HaltReason = "missing_prerequisites"
	// HaltTokenBudgetExceeded indicates the session's token budget was overrun.
	HaltTokenBudgetExceeded HaltReason = "token_budget_exceeded"
	// HaltQualityThresholdViolated indicates the coherence score fell below the
	// configured error threshold without explicit contradictions.
	HaltQualityThresholdViolated HaltReason = "quality_threshold_violated"
	// HaltUserRequested indicates an explicit halt request by the caller.
	HaltUserRequested HaltReason = "user_requested"
)

// Decision is the halt controller's verdict on whether execution should
// continue, warn, or stop.
type Decision int

const (
	// DecisionContinue allows execution to proceed unchanged.
	DecisionContinue Decision = iota
	// DecisionWarn allows execution but flags degraded coherence.
	DecisionWarn
	// DecisionHalt stops execution.
	DecisionHalt
)

// String returns the string representation of the decision.
func (d Decision) String() string {
	switch d {
	case DecisionContinue:
		return "CONTINUE"
	case DecisionWarn:
		return "WARN"
	case DecisionHalt:
		return "HALT"
	default:
		return "UNKNOWN"
	}
}

// HaltEvent records a single halt trigger. Every halt event references exactly
// one cause (a coherence breach, a token/prerequisite check or a user
// request); it is never fabricated without one. Immutable after construction.
type HaltEvent struct {
	Reason              HaltReason     `json:"reason"`
	Description         string         `json:"description"`
	Timestamp           time.Time      `json:"timestamp"`
	Context             map[string]any `json:"context,omitempty"`
	RecoverySuggestions []string       `json:"recovery_suggestions,omitempty"`
}

// NewHaltEvent constructs a halt event stamped with the current UTC time.
func NewHaltEvent(reason HaltReason, description string, context map[string]any, suggestions []string) HaltEvent {
	return HaltEvent{
		Reason:              reason,
		Description:         description,
		Timestamp:           time.Now().UTC(),
		Context:             context,
		RecoverySuggestions: suggestions,
	}
}
