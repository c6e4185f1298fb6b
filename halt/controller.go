// Package halt decides whether agent execution should continue, warn, or
// stop, based on coherence results and orthogonal checks (token budgets,
// missing prerequisites, explicit user requests). Each trigger produces its
// own HaltEvent; one evaluation can therefore yield several events that
// callers must handle as an ordered sequence.
package halt

import (
	"fmt"

	"github.com/hupe1980/agentguard/core"
	"github.com/hupe1980/agentguard/logging"
)

// recoverySuggestions maps every halt reason to actionable follow-ups
// surfaced on the HaltEvent.
var recoverySuggestions = map[core.HaltReason][]string{
	core.HaltLogicalContradiction: {
		"review the contradicting statements and re-derive the reasoning chain",
		"supply additional context that resolves the contradiction",
	},
	core.HaltMissingPrerequisites: {
		"provide the missing prerequisites and retry",
	},
	core.HaltTokenBudgetExceeded: {
		"raise the session token budget or split the task",
		"compress earlier context before continuing",
	},
	core.HaltQualityThresholdViolated: {
		"lower the session error threshold if the content is acceptable",
		"rephrase the content and validate again",
	},
	core.HaltUserRequested: {
		"resume by creating a new session once the underlying issue is resolved",
	},
}

// TriggerInput bundles the orthogonal halt checks supplied by collaborators
// for one evaluation. Zero values disable the corresponding check.
type TriggerInput struct {
	// Result is the coherence result to evaluate against the thresholds.
	Result core.CoherenceResult
	// TokensUsed / TokenBudget enable the budget check when budget > 0.
	TokensUsed  int
	TokenBudget int
	// MissingPrerequisites lists absent required inputs; non-empty triggers a halt.
	MissingPrerequisites []string
}

// Controller evaluates validation results against per-session thresholds and
// produces halt decisions. It is stateless apart from its logger and safe for
// concurrent use.
type Controller struct {
	logger logging.Logger
}

// Option customizes a Controller.
type Option func(*Controller)

// WithLogger sets the logger used for halt decisions.
func WithLogger(l logging.Logger) Option {
	return func(c *Controller) {
		if l != nil {
			c.logger = l
		}
	}
}

// NewController constructs a halt controller.
func NewController(optFns ...Option) *Controller {
	c := &Controller{logger: logging.NoOpLogger{}}
	for _, fn := range optFns {
		fn(c)
	}
	return c
}

// Evaluate applies the threshold policy: level at or below the error
// threshold halts, above the error threshold but at or below the warning
// threshold warns, anything else continues.
func (c *Controller) Evaluate(result core.CoherenceResult, cfg core.SessionConfig) core.Decision {
	switch {
	case result.Level <= cfg.ErrorThreshold:
		return core.DecisionHalt
	case result.Level <= cfg.WarningThreshold:
		return core.DecisionWarn
	default:
		return core.DecisionContinue
	}
}

// EvaluateTriggers runs the threshold policy plus every orthogonal check and
// returns one HaltEvent per firing trigger, in a fixed order (coherence,
// prerequisites, token budget). An empty slice means execution may proceed
// (possibly with a warning; inspect Evaluate for the distinction).
func (c *Controller) EvaluateTriggers(in TriggerInput, cfg core.SessionConfig) []core.HaltEvent {
	var events []core.HaltEvent

	if c.Evaluate(in.Result, cfg) == core.DecisionHalt {
		events = append(events, c.coherenceHalt(in.Result))
	}

	if len(in.MissingPrerequisites) > 0 {
		events = append(events, c.newHalt(
			core.HaltMissingPrerequisites,
			fmt.Sprintf("missing prerequisites: %d required inputs absent", len(in.MissingPrerequisites)),
			map[string]any{"missing": in.MissingPrerequisites},
		))
	}

	if in.TokenBudget > 0 && in.TokensUsed > in.TokenBudget {
		events = append(events, c.newHalt(
			core.HaltTokenBudgetExceeded,
			fmt.Sprintf("token budget exceeded: %d used of %d", in.TokensUsed, in.TokenBudget),
			map[string]any{"tokens_used": in.TokensUsed, "token_budget": in.TokenBudget},
		))
	}

	return events
}

// ForceHalt constructs a user-requested halt event. The caller is responsible
// for recording it against the session.
func (c *Controller) ForceHalt(reason string, context map[string]any) core.HaltEvent {
	if context == nil {
		context = map[string]any{}
	}
	context["requested_reason"] = reason
	return c.newHalt(core.HaltUserRequested, fmt.Sprintf("user requested halt: %s", reason), context)
}

// coherenceHalt builds the halt event for a threshold breach. Contradictions
// present means the breach is attributed to them; otherwise it is a pure
// quality violation.
func (c *Controller) coherenceHalt(result core.CoherenceResult) core.HaltEvent {
	if result.HasContradictions() {
		return c.newHalt(
			core.HaltLogicalContradiction,
			fmt.Sprintf("logical contradictions detected (score %.2f, %d found)", result.Score, len(result.Contradictions)),
			map[string]any{
				"score":          result.Score,
				"level":          result.Level.String(),
				"contradictions": result.Contradictions,
			},
		)
	}
	return c.newHalt(
		core.HaltQualityThresholdViolated,
		fmt.Sprintf("coherence score %.2f below error threshold (%s)", result.Score, result.Level),
		map[string]any{
			"score": result.Score,
			"level": result.Level.String(),
		},
	)
}

func (c *Controller) newHalt(reason core.HaltReason, description string, context map[string]any) core.HaltEvent {
	ev := core.NewHaltEvent(reason, description, context, recoverySuggestions[reason])
	c.logger.Error("execution halted", "reason", string(reason), "description", description)
	return ev
}
