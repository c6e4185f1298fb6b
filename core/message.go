package core

import "time"

// MessageType categorizes optimizer messages exchanged between agents.
type MessageType string

const (
	// MessagePerformanceUpdate carries agent performance metrics.
	MessagePerformanceUpdate MessageType = "performance_update"
	// MessageStrategyChange announces a change of optimization strategy.
	MessageStrategyChange MessageType = "strategy_change"
	// MessageOptimizationRequest asks a peer to run an optimization.
	MessageOptimizationRequest MessageType = "optimization_request"
	// MessageFeedbackReport returns the result of a requested optimization.
	MessageFeedbackReport MessageType = "feedback_report"
	// MessageCoordinationSync aligns shared state between agents.
	MessageCoordinationSync MessageType = "coordination_sync"
	// MessageAlert propagates coherence or performance alerts.
	MessageAlert MessageType = "alert"
	// MessageHeartbeat signals agent liveness.
	MessageHeartbeat MessageType = "heartbeat"
)

// Priority orders messages within a single inbox read. It does not affect
// cross-agent scheduling fairness.
type Priority int

const (
	// PriorityLow is the lowest delivery priority.
	PriorityLow Priority = iota + 1
	// PriorityMedium is the default delivery priority.
	PriorityMedium
	// PriorityHigh marks messages that should be read before routine traffic.
	PriorityHigh
	// PriorityCritical marks messages that must be read first.
	PriorityCritical
)

// DefaultMessageTTL bounds how long an undelivered message stays eligible.
const DefaultMessageTTL = 300 * time.Second

// OptimizerMessage is the unit of inter-agent communication. The bus owns a
// message until it is delivered or expires. RecipientID empty means broadcast
// to every registered agent except the sender.
//
// TTL is relative to Timestamp; a message older than its TTL is never
// delivered.
type OptimizerMessage struct {
	MessageID   string         `json:"message_id"`
	Type        MessageType    `json:"message_type"`
	SenderID    string         `json:"sender_id"`
	RecipientID string         `json:"recipient_id,omitempty"`
	Priority    Priority       `json:"priority"`
	Timestamp   time.Time      `json:"timestamp"`
	Payload     map[string]any `json:"payload,omitempty"`
	RequiresAck bool           `json:"requires_ack"`
	TTL         time.Duration  `json:"ttl"`
}

// NewOptimizerMessage constructs a message with a fresh ID, current UTC
// timestamp, medium priority and the default TTL. Leave recipientID empty for
// broadcast.
func NewOptimizerMessage(msgType MessageType, senderID, recipientID string, payload map[string]any) OptimizerMessage {
	return OptimizerMessage{
		MessageID:   NewID(),
		Type:        msgType,
		SenderID:    senderID,
		RecipientID: recipientID,
		Priority:    PriorityMedium,
		Timestamp:   time.Now().UTC(),
		Payload:     payload,
		TTL:         DefaultMessageTTL,
	}
}

// IsBroadcast reports whether the message fans out to all registered agents.
func (m OptimizerMessage) IsBroadcast() bool { return m.RecipientID == "" }

// ExpiredAt reports whether the message's TTL has elapsed at the given time.
func (m OptimizerMessage) ExpiredAt(now time.Time) bool {
	return now.Sub(m.Timestamp) > m.TTL
}

// AgentStatus reports the liveness of a registered agent.
type AgentStatus string

const (
	// AgentOnline means the agent heartbeated within the staleness window.
	AgentOnline AgentStatus = "online"
	// AgentOffline means the agent's last heartbeat is older than the
	// staleness window; the registration record is retained for post-mortem
	// analysis until explicitly unregistered.
	AgentOffline AgentStatus = "offline"
)

// AgentInfo describes a registered agent. LastSeen is updated only by
// heartbeat receipt.
type AgentInfo struct {
	AgentID            string             `json:"agent_id"`
	AgentType          string             `json:"agent_type"`
	LastSeen           time.Time          `json:"last_seen"`
	Capabilities       []string           `json:"capabilities,omitempty"`
	PerformanceMetrics map[string]float64 `json:"performance_metrics,omitempty"`
}

// HasCapability reports whether the agent advertises the given capability.
func (a AgentInfo) HasCapability(capability string) bool {
	for _, c := range a.Capabilities {
		if c == capability {
			return true
		}
	}
	return false
}
