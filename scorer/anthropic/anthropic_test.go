package anthropic

import (
	"context"
	"testing"

	"github.com/hupe1980/agentguard/core"
	"github.com/hupe1980/agentguard/scorer"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var _ scorer.Scorer = (*Scorer)(nil)

func TestParseVerdict(t *testing.T) {
	res, err := parseVerdict(`Here is my assessment:
{"score": 0.4, "contradictions": ["claims X then denies X"], "confidence": 0.8}`)
	require.NoError(t, err)

	assert.Equal(t, 0.4, res.Score)
	assert.Equal(t, core.LevelLow, res.Level)
	assert.Equal(t, []string{"claims X then denies X"}, res.Contradictions)
	assert.Equal(t, 0.8, res.Confidence)
}

func TestParseVerdict_ClampsScore(t *testing.T) {
	res, err := parseVerdict(`{"score": 1.7, "contradictions": [], "confidence": 0.9}`)
	require.NoError(t, err)
	assert.Equal(t, 1.0, res.Score)
	assert.Equal(t, core.LevelHigh, res.Level)
}

func TestParseVerdict_Invalid(t *testing.T) {
	_, err := parseVerdict("the text looks fine to me")
	assert.Error(t, err)

	_, err = parseVerdict(`{"score": "high"}`)
	assert.Error(t, err)
}

func TestScoreContext_EmptyContent(t *testing.T) {
	s := New()
	res, err := s.ScoreContext(context.Background(), "   ")
	require.NoError(t, err)
	assert.Equal(t, core.LevelCritical, res.Level)
	assert.True(t, res.HasContradictions())
}

func TestScoreChain_Empty(t *testing.T) {
	s := New()
	res := s.ScoreChain(nil)
	assert.Equal(t, core.LevelCritical, res.Level)
}

func TestNumberSteps(t *testing.T) {
	assert.Equal(t, "1. first\n2. second\n", numberSteps([]string{"first", "second"}))
}
