package halt

import (
	"testing"

	"github.com/hupe1980/agentguard/core"
	"github.com/hupe1980/agentguard/internal/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestController_ThresholdPolicy(t *testing.T) {
	c := NewController()
	cfg := core.DefaultSessionConfig() // error=LOW, warning=MEDIUM

	tests := []struct {
		level core.CoherenceLevel
		want  core.Decision
	}{
		{core.LevelCritical, core.DecisionHalt},
		{core.LevelLow, core.DecisionHalt},
		{core.LevelMedium, core.DecisionWarn},
		{core.LevelHigh, core.DecisionContinue},
	}
	for _, tt := range tests {
		result := testutil.NewResultBuilder().Level(tt.level).Build()
		assert.Equal(t, tt.want, c.Evaluate(result, cfg), "level %s", tt.level)
	}
}

func TestController_CustomThresholds(t *testing.T) {
	c := NewController()
	cfg := core.SessionConfig{
		ErrorThreshold:   core.LevelCritical,
		WarningThreshold: core.LevelLow,
	}

	assert.Equal(t, core.DecisionHalt, c.Evaluate(testutil.NewResultBuilder().Level(core.LevelCritical).Build(), cfg))
	assert.Equal(t, core.DecisionWarn, c.Evaluate(testutil.NewResultBuilder().Level(core.LevelLow).Build(), cfg))
	assert.Equal(t, core.DecisionContinue, c.Evaluate(testutil.NewResultBuilder().Level(core.LevelMedium).Build(), cfg))
}

func TestController_ContradictionReason(t *testing.T) {
	c := NewController()
	cfg := core.DefaultSessionConfig()

	result := testutil.NewResultBuilder().Score(0.1).Contradiction("always vs never").Build()
	events := c.EvaluateTriggers(TriggerInput{Result: result}, cfg)

	require.Len(t, events, 1)
	assert.Equal(t, core.HaltLogicalContradiction, events[0].Reason)
	assert.NotEmpty(t, events[0].RecoverySuggestions)
	assert.Contains(t, events[0].Context, "contradictions")
}

func TestController_QualityReasonWithoutContradictions(t *testing.T) {
	c := NewController()
	cfg := core.DefaultSessionConfig()

	result := testutil.NewResultBuilder().Score(0.2).Build()
	events := c.EvaluateTriggers(TriggerInput{Result: result}, cfg)

	require.Len(t, events, 1)
	assert.Equal(t, core.HaltQualityThresholdViolated, events[0].Reason)
}

func TestController_SimultaneousTriggers(t *testing.T) {
	c := NewController()
	cfg := core.DefaultSessionConfig()

	events := c.EvaluateTriggers(TriggerInput{
		Result:               testutil.NewResultBuilder().Score(0.1).Contradiction("x").Build(),
		TokensUsed:           1500,
		TokenBudget:          1000,
		MissingPrerequisites: []string{"schema", "baseline"},
	}, cfg)

	require.Len(t, events, 3, "each trigger yields its own halt event")
	assert.Equal(t, core.HaltLogicalContradiction, events[0].Reason)
	assert.Equal(t, core.HaltMissingPrerequisites, events[1].Reason)
	assert.Equal(t, core.HaltTokenBudgetExceeded, events[2].Reason)
}

func TestController_NoTriggers(t *testing.T) {
	c := NewController()
	cfg := core.DefaultSessionConfig()

	events := c.EvaluateTriggers(TriggerInput{
		Result:      testutil.NewResultBuilder().Score(0.95).Build(),
		TokensUsed:  500,
		TokenBudget: 1000,
	}, cfg)

	assert.Empty(t, events)
}

func TestController_BudgetDisabledWhenZero(t *testing.T) {
	c := NewController()
	cfg := core.DefaultSessionConfig()

	events := c.EvaluateTriggers(TriggerInput{
		Result:     testutil.NewResultBuilder().Score(0.95).Build(),
		TokensUsed: 1_000_000,
	}, cfg)

	assert.Empty(t, events, "zero budget disables the token check")
}

func TestController_ForceHalt(t *testing.T) {
	c := NewController()

	ev := c.ForceHalt("operator intervention", map[string]any{"ticket": "OPS-42"})

	assert.Equal(t, core.HaltUserRequested, ev.Reason)
	assert.Equal(t, "operator intervention", ev.Context["requested_reason"])
	assert.Equal(t, "OPS-42", ev.Context["ticket"])
	assert.False(t, ev.Timestamp.IsZero())
}
