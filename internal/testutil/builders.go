package testutil

import (
	"time"

	"github.com/hupe1980/agentguard/core"
)

// ResultBuilder provides a fluent helper for constructing coherence results
// in tests. Example:
//
//	res := NewResultBuilder().Score(0.2).Contradiction("a vs b").Build()
//
// Chain only the parts you need; sensible defaults are applied. The level is
// derived from the score unless overridden.
type ResultBuilder struct {
	score          float64
	level          *core.CoherenceLevel
	contradictions []string
	confidence     float64
}

// NewResultBuilder creates a builder defaulting to a fully coherent result.
func NewResultBuilder() *ResultBuilder {
	return &ResultBuilder{score: 1.0, confidence: 0.9}
}

// Score sets the score (chainable).
func (b *ResultBuilder) Score(s float64) *ResultBuilder { b.score = s; return b }

// Level overrides the derived level (chainable).
func (b *ResultBuilder) Level(l core.CoherenceLevel) *ResultBuilder { b.level = &l; return b }

// Contradiction appends a contradiction entry (chainable).
func (b *ResultBuilder) Contradiction(c string) *ResultBuilder {
	b.contradictions = append(b.contradictions, c)
	return b
}

// Confidence sets the confidence (chainable).
func (b *ResultBuilder) Confidence(c float64) *ResultBuilder { b.confidence = c; return b }

// Build assembles the CoherenceResult.
func (b *ResultBuilder) Build() core.CoherenceResult {
	level := levelFor(b.score)
	if b.level != nil {
		level = *b.level
	}
	return core.CoherenceResult{
		Score:          b.score,
		Level:          level,
		Contradictions: b.contradictions,
		Confidence:     b.confidence,
	}
}

func levelFor(score float64) core.CoherenceLevel {
	switch {
	case score >= 0.7:
		return core.LevelHigh
	case score >= 0.5:
		return core.LevelMedium
	case score >= 0.3:
		return core.LevelLow
	default:
		return core.LevelCritical
	}
}

// MessageBuilder provides a fluent helper for constructing optimizer
// messages in tests.
type MessageBuilder struct {
	msg core.OptimizerMessage
}

// NewMessageBuilder creates a builder with sender "agent-a", medium priority
// and the default TTL.
func NewMessageBuilder() *MessageBuilder {
	return &MessageBuilder{msg: core.NewOptimizerMessage(core.MessageCoordinationSync, "agent-a", "", nil)}
}

// Type sets the message type (chainable).
func (b *MessageBuilder) Type(t core.MessageType) *MessageBuilder { b.msg.Type = t; return b }

// From sets the sender id (chainable).
func (b *MessageBuilder) From(id string) *MessageBuilder { b.msg.SenderID = id; return b }

// To sets the recipient id; skip for broadcast (chainable).
func (b *MessageBuilder) To(id string) *MessageBuilder { b.msg.RecipientID = id; return b }

// Priority sets the delivery priority (chainable).
func (b *MessageBuilder) Priority(p core.Priority) *MessageBuilder { b.msg.Priority = p; return b }

// At overrides the timestamp (chainable). Use with a fake bus clock for
// deterministic expiry tests.
func (b *MessageBuilder) At(t time.Time) *MessageBuilder { b.msg.Timestamp = t; return b }

// TTL sets the time-to-live (chainable).
func (b *MessageBuilder) TTL(d time.Duration) *MessageBuilder { b.msg.TTL = d; return b }

// RequiresAck flags the message for acknowledgement tracking (chainable).
func (b *MessageBuilder) RequiresAck() *MessageBuilder { b.msg.RequiresAck = true; return b }

// Payload sets the payload map (chainable).
func (b *MessageBuilder) Payload(p map[string]any) *MessageBuilder { b.msg.Payload = p; return b }

// Build returns the assembled message.
func (b *MessageBuilder) Build() core.OptimizerMessage { return b.msg }

// AgentBuilder provides a fluent helper for constructing agent registrations.
type AgentBuilder struct {
	info core.AgentInfo
}

// NewAgentBuilder creates a builder for an optimizer-type agent.
func NewAgentBuilder(id string) *AgentBuilder {
	return &AgentBuilder{info: core.AgentInfo{AgentID: id, AgentType: "optimizer"}}
}

// Type sets the agent type (chainable).
func (b *AgentBuilder) Type(t string) *AgentBuilder { b.info.AgentType = t; return b }

// Capabilities sets the advertised capabilities (chainable).
func (b *AgentBuilder) Capabilities(caps ...string) *AgentBuilder {
	b.info.Capabilities = caps
	return b
}

// LastSeen sets the last heartbeat time (chainable).
func (b *AgentBuilder) LastSeen(t time.Time) *AgentBuilder { b.info.LastSeen = t; return b }

// Build returns the assembled registration record.
func (b *AgentBuilder) Build() core.AgentInfo { return b.info }
