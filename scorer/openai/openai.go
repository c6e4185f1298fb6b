// Package openai provides a scorer backed by the OpenAI Chat Completions API.
// It adapts the same JSON verdict contract as the anthropic adapter so the two
// backends are interchangeable behind scorer.Scorer.
package openai

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/hupe1980/agentguard/core"
	"github.com/hupe1980/agentguard/scorer"
	"github.com/openai/openai-go"
)

const systemPrompt = `You grade text for logical consistency. Respond with a single JSON object:
{"score": <0.0-1.0>, "contradictions": ["..."], "confidence": <0.0-1.0>}
Score 1.0 means fully consistent; list every contradiction you find.`

// Options configure the OpenAI scorer adapter.
// Fields mirror a subset of Chat Completion parameters intentionally kept
// minimal; extend via functional options without breaking callers.
type Options struct {
	Model               string
	MaxCompletionTokens int64
	Timeout             time.Duration
}

// Scorer wraps the OpenAI Chat Completions API behind the scorer.Scorer interface.
type Scorer struct {
	client *openai.Client
	opts   Options
}

// New creates a new OpenAI-backed scorer using the official client.
func New(optFns ...func(o *Options)) *Scorer {
	client := openai.NewClient()
	return NewFromClient(&client, optFns...)
}

// NewFromClient creates a new OpenAI-backed scorer from an existing client.
func NewFromClient(client *openai.Client, optFns ...func(o *Options)) *Scorer {
	opts := Options{
		Model:               openai.ChatModelGPT4oMini,
		MaxCompletionTokens: 1024,
		Timeout:             30 * time.Second,
	}
	for _, fn := range optFns {
		fn(&opts)
	}
	return &Scorer{client: client, opts: opts}
}

// Score implements scorer.Scorer. API failures degrade to a CRITICAL result
// carrying the failure as a contradiction entry.
func (s *Scorer) Score(content string) core.CoherenceResult {
	ctx, cancel := context.WithTimeout(context.Background(), s.opts.Timeout)
	defer cancel()

	result, err := s.ScoreContext(ctx, content)
	if err != nil {
		return core.CoherenceResult{
			Score:          0.0,
			Level:          core.LevelCritical,
			Contradictions: []string{fmt.Sprintf("scoring backend unavailable: %v", err)},
			Confidence:     0.0,
		}
	}
	return result
}

// ScoreChain implements scorer.Scorer for ordered reasoning steps.
func (s *Scorer) ScoreChain(steps []string) core.CoherenceResult {
	if len(steps) == 0 {
		return core.CoherenceResult{
			Score:          0.0,
			Level:          core.LevelCritical,
			Contradictions: []string{"reasoning chain has no steps"},
			Confidence:     1.0,
		}
	}
	var b strings.Builder
	for i, step := range steps {
		fmt.Fprintf(&b, "%d. %s\n", i+1, step)
	}
	return s.Score(b.String())
}

// ScoreContext scores content with an explicit context for cancellation and
// deadline control.
func (s *Scorer) ScoreContext(ctx context.Context, content string) (core.CoherenceResult, error) {
	if strings.TrimSpace(content) == "" {
		return core.CoherenceResult{
			Score:          0.0,
			Level:          core.LevelCritical,
			Contradictions: []string{"empty content cannot be validated"},
			Confidence:     1.0,
		}, nil
	}

	resp, err := s.client.Chat.Completions.New(ctx, openai.ChatCompletionNewParams{
		Model:               s.opts.Model,
		Temperature:         openai.Float(0),
		MaxCompletionTokens: openai.Int(s.opts.MaxCompletionTokens),
		Messages: []openai.ChatCompletionMessageParamUnion{
			openai.SystemMessage(systemPrompt),
			openai.UserMessage(content),
		},
	})
	if err != nil {
		return core.CoherenceResult{}, fmt.Errorf("openai scoring request: %w", err)
	}
	if len(resp.Choices) == 0 {
		return core.CoherenceResult{}, fmt.Errorf("no choices returned")
	}

	return parseVerdict(resp.Choices[0].Message.Content)
}

type verdict struct {
	Score          float64  `json:"score"`
	Contradictions []string `json:"contradictions"`
	Confidence     float64  `json:"confidence"`
}

func parseVerdict(reply string) (core.CoherenceResult, error) {
	start := strings.Index(reply, "{")
	end := strings.LastIndex(reply, "}")
	if start < 0 || end <= start {
		return core.CoherenceResult{}, fmt.Errorf("no JSON object in model reply: %q", reply)
	}

	var v verdict
	if err := json.Unmarshal([]byte(reply[start:end+1]), &v); err != nil {
		return core.CoherenceResult{}, fmt.Errorf("decode model verdict: %w", err)
	}

	if v.Score < 0 {
		v.Score = 0
	}
	if v.Score > 1 {
		v.Score = 1
	}

	return core.CoherenceResult{
		Score:          v.Score,
		Level:          scorer.LevelForScore(v.Score),
		Contradictions: v.Contradictions,
		Confidence:     v.Confidence,
	}, nil
}
