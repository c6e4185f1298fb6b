// Package bus delivers OptimizerMessages between registered agents. It
// supports broadcast and point-to-point delivery, per-agent liveness via
// heartbeats, lazy TTL expiry at delivery time, and acknowledgement tracking
// for messages that require it. All state is in-memory and guarded by a
// single mutex; no operation blocks on I/O.
package bus

import (
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/hupe1980/agentguard/core"
	"github.com/hupe1980/agentguard/logging"
)

// DefaultStalenessWindow is how long after the last heartbeat an agent is
// still considered online: three missed 30s heartbeats.
const DefaultStalenessWindow = 90 * time.Second

// ackKey identifies one pending acknowledgement.
type ackKey struct {
	messageID   string
	recipientID string
}

// PendingAck is a queryable view of an unacknowledged delivery. The bus does
// not retry delivery automatically; retry policy belongs to the sending agent.
type PendingAck struct {
	MessageID   string
	RecipientID string
	Message     core.OptimizerMessage
}

// Stats exposes delivery counters. Expired messages are a normal drop, not an
// error, and are observable only here.
type Stats struct {
	Sent        int `json:"sent"`
	Delivered   int `json:"delivered"`
	Expired     int `json:"expired"`
	PendingAcks int `json:"pending_acks"`
}

// Bus is the in-memory agent message bus. Safe for concurrent use.
//
// Delivery semantics: targeted messages go to exactly one inbox; broadcasts
// fan out to every currently-registered, non-stale agent except the sender.
// Within one Receive, messages are ordered by priority descending then
// timestamp ascending. Expired messages are dropped lazily at delivery time
// and never reappear.
type Bus struct {
	mu          sync.Mutex
	agents      map[string]*core.AgentInfo
	inboxes     map[string][]core.OptimizerMessage
	pendingAcks map[ackKey]core.OptimizerMessage
	stats       Stats

	staleness  time.Duration
	defaultTTL time.Duration
	now        func() time.Time
	logger     logging.Logger
}

// Option customizes a Bus.
type Option func(*Bus)

// WithLogger sets the structured logger.
func WithLogger(l logging.Logger) Option {
	return func(b *Bus) {
		if l != nil {
			b.logger = l
		}
	}
}

// WithStalenessWindow overrides how long agents stay online without a heartbeat.
func WithStalenessWindow(d time.Duration) Option {
	return func(b *Bus) {
		if d > 0 {
			b.staleness = d
		}
	}
}

// WithDefaultTTL overrides the TTL applied to messages sent without one.
func WithDefaultTTL(d time.Duration) Option {
	return func(b *Bus) {
		if d > 0 {
			b.defaultTTL = d
		}
	}
}

// WithClock injects the time source used for expiry and staleness checks.
// Tests use this to simulate elapsed time without real delays.
func WithClock(now func() time.Time) Option {
	return func(b *Bus) {
		if now != nil {
			b.now = now
		}
	}
}

// New constructs an empty message bus.
func New(optFns ...Option) *Bus {
	b := &Bus{
		agents:      make(map[string]*core.AgentInfo),
		inboxes:     make(map[string][]core.OptimizerMessage),
		pendingAcks: make(map[ackKey]core.OptimizerMessage),
		staleness:   DefaultStalenessWindow,
		defaultTTL:  core.DefaultMessageTTL,
		now:         time.Now,
		logger:      logging.NoOpLogger{},
	}
	for _, fn := range optFns {
		fn(b)
	}
	return b
}

// Register adds (or replaces) an agent registration. A zero LastSeen is
// stamped with the current time so a freshly registered agent starts online.
func (b *Bus) Register(info core.AgentInfo) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if info.LastSeen.IsZero() {
		info.LastSeen = b.now()
	}
	b.agents[info.AgentID] = &info
	if _, ok := b.inboxes[info.AgentID]; !ok {
		b.inboxes[info.AgentID] = nil
	}
	b.logger.Debug("agent registered", "agent_id", info.AgentID, "agent_type", info.AgentType)
}

// Unregister removes an agent, its inbox and its pending acknowledgements.
// Registration records are otherwise retained even for stale agents, so this
// is the only way a record disappears.
func (b *Bus) Unregister(agentID string) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if _, ok := b.agents[agentID]; !ok {
		return fmt.Errorf("unregister %q: %w", agentID, ErrUnknownAgent)
	}
	delete(b.agents, agentID)
	delete(b.inboxes, agentID)
	for key := range b.pendingAcks {
		if key.recipientID == agentID {
			delete(b.pendingAcks, key)
		}
	}
	return nil
}

// Send enqueues a message. Targeted messages require a registered recipient;
// broadcasts fan out to all currently-registered, non-stale agents except the
// sender (agents registered after the send never see it). Missing message
// fields (id, timestamp, priority, ttl) are filled with defaults.
func (b *Bus) Send(msg core.OptimizerMessage) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if msg.MessageID == "" {
		msg.MessageID = core.NewID()
	}
	if msg.Timestamp.IsZero() {
		msg.Timestamp = b.now()
	}
	if msg.Priority == 0 {
		msg.Priority = core.PriorityMedium
	}
	if msg.TTL <= 0 {
		msg.TTL = b.defaultTTL
	}

	if !msg.IsBroadcast() {
		if _, ok := b.agents[msg.RecipientID]; !ok {
			return fmt.Errorf("send to %q: %w", msg.RecipientID, ErrUnknownAgent)
		}
		b.enqueueLocked(msg.RecipientID, msg)
		b.stats.Sent++
		return nil
	}

	now := b.now()
	for id, info := range b.agents {
		if id == msg.SenderID {
			continue
		}
		if now.Sub(info.LastSeen) > b.staleness {
			continue
		}
		b.enqueueLocked(id, msg)
	}
	b.stats.Sent++
	return nil
}

// enqueueLocked appends to one inbox and records the pending-ack entry when
// the message requires acknowledgement. Caller holds the lock.
func (b *Bus) enqueueLocked(agentID string, msg core.OptimizerMessage) {
	b.inboxes[agentID] = append(b.inboxes[agentID], msg)
	if msg.RequiresAck {
		b.pendingAcks[ackKey{messageID: msg.MessageID, recipientID: agentID}] = msg
	}
}

// Receive drains the agent's inbox, dropping messages whose TTL elapsed and
// returning the rest sorted by priority descending, then timestamp ascending.
// Each message is delivered at most once.
func (b *Bus) Receive(agentID string) ([]core.OptimizerMessage, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if _, ok := b.agents[agentID]; !ok {
		return nil, fmt.Errorf("receive for %q: %w", agentID, ErrUnknownAgent)
	}

	now := b.now()
	pending := b.inboxes[agentID]
	b.inboxes[agentID] = nil

	delivered := make([]core.OptimizerMessage, 0, len(pending))
	for _, msg := range pending {
		if msg.ExpiredAt(now) {
			b.stats.Expired++
			// An expired requires_ack entry can never be acknowledged.
			delete(b.pendingAcks, ackKey{messageID: msg.MessageID, recipientID: agentID})
			continue
		}
		delivered = append(delivered, msg)
	}

	sort.SliceStable(delivered, func(i, j int) bool {
		if delivered[i].Priority != delivered[j].Priority {
			return delivered[i].Priority > delivered[j].Priority
		}
		return delivered[i].Timestamp.Before(delivered[j].Timestamp)
	})

	b.stats.Delivered += len(delivered)
	b.logger.Debug("messages delivered", "agent_id", agentID, "count", len(delivered))
	return delivered, nil
}

// Heartbeat updates the agent's LastSeen. Only heartbeat receipt moves it.
func (b *Bus) Heartbeat(agentID string) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	info, ok := b.agents[agentID]
	if !ok {
		return fmt.Errorf("heartbeat for %q: %w", agentID, ErrUnknownAgent)
	}
	info.LastSeen = b.now()
	return nil
}

// Ack clears the pending-ack entry for the exact (message, recipient) pair.
func (b *Bus) Ack(messageID, agentID string) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	key := ackKey{messageID: messageID, recipientID: agentID}
	if _, ok := b.pendingAcks[key]; !ok {
		return fmt.Errorf("ack message %q by %q: %w", messageID, agentID, ErrUnknownAck)
	}
	delete(b.pendingAcks, key)
	return nil
}

// PendingAcks returns the unacknowledged deliveries in a deterministic order
// (timestamp ascending, then message id, then recipient id).
func (b *Bus) PendingAcks() []PendingAck {
	b.mu.Lock()
	defer b.mu.Unlock()

	out := make([]PendingAck, 0, len(b.pendingAcks))
	for key, msg := range b.pendingAcks {
		out = append(out, PendingAck{MessageID: key.messageID, RecipientID: key.recipientID, Message: msg})
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].Message.Timestamp.Equal(out[j].Message.Timestamp) {
			return out[i].Message.Timestamp.Before(out[j].Message.Timestamp)
		}
		if out[i].MessageID != out[j].MessageID {
			return out[i].MessageID < out[j].MessageID
		}
		return out[i].RecipientID < out[j].RecipientID
	})
	return out
}

// Status reports the agent's liveness against the staleness window. Stale
// agents are OFFLINE but their registration record is retained for
// post-mortem analysis until explicitly unregistered.
func (b *Bus) Status(agentID string) (core.AgentStatus, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	info, ok := b.agents[agentID]
	if !ok {
		return "", fmt.Errorf("status of %q: %w", agentID, ErrUnknownAgent)
	}
	if b.now().Sub(info.LastSeen) > b.staleness {
		return core.AgentOffline, nil
	}
	return core.AgentOnline, nil
}

// Agents returns copies of all registration records, stale ones included,
// sorted by agent id.
func (b *Bus) Agents() []core.AgentInfo {
	b.mu.Lock()
	defer b.mu.Unlock()

	out := make([]core.AgentInfo, 0, len(b.agents))
	for _, info := range b.agents {
		out = append(out, copyAgentInfo(info))
	}
	sort.Slice(out, func(i, j int) bool { return out[i].AgentID < out[j].AgentID })
	return out
}

// AgentsByCapability returns agents advertising the given capability.
func (b *Bus) AgentsByCapability(capability string) []core.AgentInfo {
	var out []core.AgentInfo
	for _, info := range b.Agents() {
		if info.HasCapability(capability) {
			out = append(out, info)
		}
	}
	return out
}

// UpdatePerformance replaces an agent's performance metrics.
func (b *Bus) UpdatePerformance(agentID string, metrics map[string]float64) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	info, ok := b.agents[agentID]
	if !ok {
		return fmt.Errorf("update performance of %q: %w", agentID, ErrUnknownAgent)
	}
	copied := make(map[string]float64, len(metrics))
	for k, v := range metrics {
		copied[k] = v
	}
	info.PerformanceMetrics = copied
	return nil
}

// Statistics returns a snapshot of the delivery counters.
func (b *Bus) Statistics() Stats {
	b.mu.Lock()
	defer b.mu.Unlock()
	stats := b.stats
	stats.PendingAcks = len(b.pendingAcks)
	return stats
}

// Reset drops all agents, inboxes, pending acks and counters. Intended for
// test isolation.
func (b *Bus) Reset() {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.agents = make(map[string]*core.AgentInfo)
	b.inboxes = make(map[string][]core.OptimizerMessage)
	b.pendingAcks = make(map[ackKey]core.OptimizerMessage)
	b.stats = Stats{}
}

func copyAgentInfo(info *core.AgentInfo) core.AgentInfo {
	out := *info
	if info.Capabilities != nil {
		out.Capabilities = append([]string(nil), info.Capabilities...)
	}
	if info.PerformanceMetrics != nil {
		out.PerformanceMetrics = make(map[string]float64, len(info.PerformanceMetrics))
		for k, v := range info.PerformanceMetrics {
			out.PerformanceMetrics[k] = v
		}
	}
	return out
}
