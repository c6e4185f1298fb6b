// Package anthropic provides a scorer backed by the Anthropic Messages API.
package anthropic

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"
	"github.com/hupe1980/agentguard/core"
	"github.com/hupe1980/agentguard/scorer"
)

const systemPrompt = `You grade text for logical consistency. Respond with a single JSON object:
{"score": <0.0-1.0>, "contradictions": ["..."], "confidence": <0.0-1.0>}
Score 1.0 means fully consistent; list every contradiction you find.`

// Options configures the Anthropic scorer adapter (model id, max tokens,
// request timeout, API key). Extend via functional options to preserve stability.
type Options struct {
	Model     anthropic.Model
	MaxTokens int64
	Timeout   time.Duration
	APIKey    string
}

// Scorer wraps the Anthropic Messages API behind the scorer.Scorer interface.
// Unlike the heuristic scorer its verdicts depend on the served model, so
// determinism holds only per model snapshot at temperature zero.
type Scorer struct {
	client *anthropic.Client
	opts   Options
}

// New creates a new Anthropic-backed scorer using the official client.
func New(optFns ...func(o *Options)) *Scorer {
	opts := Options{
		Model:     anthropic.ModelClaude3_5Sonnet20241022,
		MaxTokens: 1024,
		Timeout:   30 * time.Second,
	}

	for _, fn := range optFns {
		fn(&opts)
	}

	var clientOpts []option.RequestOption
	if opts.APIKey != "" {
		clientOpts = append(clientOpts, option.WithAPIKey(opts.APIKey))
	}

	client := anthropic.NewClient(clientOpts...)

	return &Scorer{
		client: &client,
		opts:   opts,
	}
}

// NewFromClient creates a new Anthropic-backed scorer from an existing client.
func NewFromClient(client *anthropic.Client, optFns ...func(o *Options)) *Scorer {
	opts := Options{
		Model:     anthropic.ModelClaude3_5Sonnet20241022,
		MaxTokens: 1024,
		Timeout:   30 * time.Second,
	}

	for _, fn := range optFns {
		fn(&opts)
	}

	return &Scorer{
		client: client,
		opts:   opts,
	}
}

// Score implements scorer.Scorer. API failures degrade to a CRITICAL result
// carrying the failure as a contradiction entry, preserving the contract that
// scoring never raises.
func (s *Scorer) Score(content string) core.CoherenceResult {
	ctx, cancel := context.WithTimeout(context.Background(), s.opts.Timeout)
	defer cancel()

	result, err := s.ScoreContext(ctx, content)
	if err != nil {
		return degradedResult(err)
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
	return s.Score(numberSteps(steps))
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

	msg, err := s.client.Messages.New(ctx, anthropic.MessageNewParams{
		Model:       s.opts.Model,
		MaxTokens:   s.opts.MaxTokens,
		Temperature: anthropic.Float(0),
		System:      []anthropic.TextBlockParam{{Text: systemPrompt}},
		Messages: []anthropic.MessageParam{
			anthropic.NewUserMessage(anthropic.NewTextBlock(content)),
		},
	})
	if err != nil {
		return core.CoherenceResult{}, fmt.Errorf("anthropic scoring request: %w", err)
	}

	var text strings.Builder
	for _, block := range msg.Content {
		if block.Type == "text" {
			text.WriteString(block.AsText().Text)
		}
	}

	return parseVerdict(text.String())
}

// verdict is the JSON shape the model is instructed to emit.
type verdict struct {
	Score          float64  `json:"score"`
	Contradictions []string `json:"contradictions"`
	Confidence     float64  `json:"confidence"`
}

// parseVerdict extracts the JSON object from the model reply and maps it to a
// CoherenceResult using the shared score/level buckets.
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

func degradedResult(err error) core.CoherenceResult {
	return core.CoherenceResult{
		Score:          0.0,
		Level:          core.LevelCritical,
		Contradictions: []string{fmt.Sprintf("scoring backend unavailable: %v", err)},
		Confidence:     0.0,
	}
}

func numberSteps(steps []string) string {
	var b strings.Builder
	for i, step := range steps {
		fmt.Fprintf(&b, "%d. %s\n", i+1, step)
	}
	return b.String()
}
