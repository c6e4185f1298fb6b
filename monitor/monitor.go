// Package monitor implements the real-time coherence monitoring pipeline: it
// scores content through a pluggable Scorer, records events in bounded
// sliding windows, notifies subscribers, and raises alerts when the halt
// controller detects a threshold breach.
package monitor

import (
	"strings"
	"sync"
	"sync/atomic"

	"github.com/hupe1980/agentguard/core"
	"github.com/hupe1980/agentguard/halt"
	"github.com/hupe1980/agentguard/logging"
	"github.com/hupe1980/agentguard/scorer"
)

const (
	// DefaultHistorySize bounds the retained event history.
	DefaultHistorySize = 1000
	// DefaultTrendSize bounds the retained score trend window.
	DefaultTrendSize = 100

	// chainSeparator joins reasoning steps for storage and display only; it
	// is never parsed back.
	chainSeparator = " -> "
)

// Trend direction values reported by Statistics.
const (
	TrendImproving        = "improving"
	TrendDeclining        = "declining"
	TrendInsufficientData = "insufficient_data"
)

// Subscriber receives every coherence event recorded while the monitor is
// running. Delivery happens in registration order, outside the monitor's
// critical section. A returned error is logged and isolated: it never aborts
// the validation pipeline or delivery to the remaining subscribers.
type Subscriber interface {
	OnCoherenceEvent(ev core.CoherenceEvent) error
}

// SubscriberFunc adapts a plain function to the Subscriber interface.
type SubscriberFunc func(ev core.CoherenceEvent) error

// OnCoherenceEvent calls the wrapped function.
func (f SubscriberFunc) OnCoherenceEvent(ev core.CoherenceEvent) error { return f(ev) }

// AlertPublisher publishes alert messages raised on threshold breach. The
// message bus satisfies this interface; the indirection keeps the monitor
// from depending on the bus package and guarantees no two locks are ever held
// at once.
type AlertPublisher interface {
	Send(msg core.OptimizerMessage) error
}

// Statistics summarizes the monitor's retained trend window and history.
type Statistics struct {
	TotalValidations int            `json:"total_validations"`
	AverageCoherence float64        `json:"average_coherence"`
	RecentAverage    float64        `json:"recent_average"`
	TrendDirection   string         `json:"trend_direction"`
	Distribution     map[string]int `json:"coherence_distribution"`
}

// subscription pairs a subscriber with its opaque handle so unsubscription
// works for non-comparable callables (function values).
type subscription struct {
	id  string
	sub Subscriber
}

// Monitor owns the bounded event history and trend buffers, performs the
// validate-and-record step, notifies subscribers and consults the halt
// controller on every recorded result. Safe for concurrent use.
//
// While stopped, validation degrades to a pass-through call into the Scorer:
// no recording, no notification, no halt evaluation.
type Monitor struct {
	scorer     scorer.Scorer
	controller *halt.Controller
	logger     logging.Logger
	publisher  AlertPublisher
	alertFrom  string
	cfg        core.SessionConfig

	running atomic.Bool

	mu               sync.Mutex
	history          *ring[core.CoherenceEvent]
	trend            *ring[float64]
	totalValidations int

	subMu       sync.Mutex
	subscribers []subscription
}

// Option customizes a Monitor.
type Option func(*Monitor)

// WithLogger sets the structured logger.
func WithLogger(l logging.Logger) Option {
	return func(m *Monitor) {
		if l != nil {
			m.logger = l
		}
	}
}

// WithThresholds overrides the monitoring thresholds used for alerting.
func WithThresholds(cfg core.SessionConfig) Option {
	return func(m *Monitor) { m.cfg = cfg }
}

// WithAlertPublisher wires an alert sink (typically the agent message bus).
// On halt-level breaches the monitor publishes a broadcast ALERT message.
func WithAlertPublisher(p AlertPublisher, senderID string) Option {
	return func(m *Monitor) {
		m.publisher = p
		m.alertFrom = senderID
	}
}

// WithWindowSizes overrides the bounded history and trend capacities.
// Intended for tests; production code should keep the defaults.
func WithWindowSizes(history, trend int) Option {
	return func(m *Monitor) {
		if history > 0 {
			m.history = newRing[core.CoherenceEvent](history)
		}
		if trend > 0 {
			m.trend = newRing[float64](trend)
		}
	}
}

// New constructs a stopped Monitor around the given scorer. Call Start to
// begin recording.
func New(s scorer.Scorer, optFns ...Option) *Monitor {
	m := &Monitor{
		scorer:  s,
		logger:  logging.NoOpLogger{},
		cfg:     core.DefaultSessionConfig(),
		history: newRing[core.CoherenceEvent](DefaultHistorySize),
		trend:   newRing[float64](DefaultTrendSize),
	}
	for _, fn := range optFns {
		fn(m)
	}
	m.controller = halt.NewController(halt.WithLogger(m.logger))
	return m
}

// Start enables recording. It has no side effect beyond the flag.
func (m *Monitor) Start() {
	m.running.Store(true)
	m.logger.Info("coherence monitoring started")
}

// Stop disables recording. It has no side effect beyond the flag.
func (m *Monitor) Stop() {
	m.running.Store(false)
	m.logger.Info("coherence monitoring stopped")
}

// Running reports whether the monitor is recording.
func (m *Monitor) Running() bool { return m.running.Load() }

// ValidateAndMonitor scores content and, while running, records the event,
// notifies subscribers and evaluates the halt thresholds. The scorer's result
// is always returned; pipeline failures never reach the caller.
func (m *Monitor) ValidateAndMonitor(content, source string, context map[string]any) core.CoherenceResult {
	if !m.running.Load() {
		return m.scorer.Score(content)
	}
	result := m.scorer.Score(content)
	m.record(core.NewCoherenceEvent(source, content, result, context))
	return result
}

// ValidateChainAndMonitor runs the identical pipeline over an ordered
// reasoning chain. The stored content joins the steps with a separator for
// display only.
func (m *Monitor) ValidateChainAndMonitor(steps []string, source string, context map[string]any) core.CoherenceResult {
	if !m.running.Load() {
		return m.scorer.ScoreChain(steps)
	}
	result := m.scorer.ScoreChain(steps)
	m.record(core.NewCoherenceEvent(source, strings.Join(steps, chainSeparator), result, context))
	return result
}

// record appends the event under the lock, then notifies subscribers and
// checks thresholds outside it so slow subscriber code never blocks
// concurrent validations.
func (m *Monitor) record(ev core.CoherenceEvent) {
	m.mu.Lock()
	m.history.push(ev)
	m.trend.push(ev.Result.Score)
	m.totalValidations++
	m.mu.Unlock()

	m.notify(ev)
	m.checkThresholds(ev)
}

// Subscribe registers a subscriber and returns an opaque handle for
// Unsubscribe. Delivery order follows registration order.
func (m *Monitor) Subscribe(sub Subscriber) string {
	m.subMu.Lock()
	defer m.subMu.Unlock()
	id := core.NewID()
	m.subscribers = append(m.subscribers, subscription{id: id, sub: sub})
	return id
}

// Unsubscribe removes a previously registered subscriber. Removal during an
// in-flight notification is best-effort: the current delivery pass may still
// reach the subscriber once.
func (m *Monitor) Unsubscribe(id string) {
	m.subMu.Lock()
	defer m.subMu.Unlock()
	for i, s := range m.subscribers {
		if s.id == id {
			m.subscribers = append(m.subscribers[:i], m.subscribers[i+1:]...)
			return
		}
	}
}

func (m *Monitor) notify(ev core.CoherenceEvent) {
	m.subMu.Lock()
	subs := make([]subscription, len(m.subscribers))
	copy(subs, m.subscribers)
	m.subMu.Unlock()

	for _, s := range subs {
		if err := s.sub.OnCoherenceEvent(ev); err != nil {
			m.logger.Warn("coherence subscriber error", "subscription_id", s.id, "error", err.Error())
		}
	}
}

// checkThresholds consults the halt controller and raises structured alerts.
// Alerts never propagate back to the validating caller.
func (m *Monitor) checkThresholds(ev core.CoherenceEvent) {
	switch m.controller.Evaluate(ev.Result, m.cfg) {
	case core.DecisionHalt:
		m.logger.Error("coherence error",
			"source", ev.Source,
			"score", ev.Result.Score,
			"level", ev.Result.Level.String(),
			"contradictions", ev.Result.Contradictions,
		)
		m.publishAlert(ev)
	case core.DecisionWarn:
		m.logger.Warn("coherence warning",
			"source", ev.Source,
			"score", ev.Result.Score,
			"level", ev.Result.Level.String(),
		)
	}
}

// publishAlert broadcasts a critical ALERT message for other agents. Bus
// errors are logged and swallowed.
func (m *Monitor) publishAlert(ev core.CoherenceEvent) {
	if m.publisher == nil {
		return
	}
	msg := core.NewOptimizerMessage(core.MessageAlert, m.alertFrom, "", map[string]any{
		"event_id":       ev.ID,
		"timestamp":      ev.UnixSeconds(),
		"source":         ev.Source,
		"score":          ev.Result.Score,
		"level":          ev.Result.Level.String(),
		"contradictions": ev.Result.Contradictions,
	})
	msg.Priority = core.PriorityCritical
	if err := m.publisher.Send(msg); err != nil {
		m.logger.Warn("alert publish failed", "error", err.Error())
	}
}

// GetRecentEvents returns up to count most recent events, oldest first.
func (m *Monitor) GetRecentEvents(count int) []core.CoherenceEvent {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.history.tail(count)
}

// HistoryLen returns the number of retained events.
func (m *Monitor) HistoryLen() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.history.len()
}

// TotalValidations returns the lifetime validation counter (not windowed).
func (m *Monitor) TotalValidations() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.totalValidations
}

// Statistics computes trend statistics over the retained window: overall and
// most-recent-10 averages, trend direction (recent ten versus earliest ten of
// the window, once at least ten points exist) and a per-level histogram over
// the retained history.
func (m *Monitor) Statistics() Statistics {
	m.mu.Lock()
	defer m.mu.Unlock()

	stats := Statistics{
		TotalValidations: m.totalValidations,
		TrendDirection:   TrendInsufficientData,
		Distribution:     map[string]int{},
	}
	for _, ev := range m.history.snapshot() {
		stats.Distribution[ev.Result.Level.String()]++
	}

	if m.trend.len() == 0 {
		return stats
	}

	stats.AverageCoherence = mean(m.trend.snapshot())
	stats.RecentAverage = mean(m.trend.tail(10))

	if m.trend.len() >= 10 {
		earlyAvg := mean(m.trend.headSlice(10))
		if stats.RecentAverage > earlyAvg {
			stats.TrendDirection = TrendImproving
		} else {
			stats.TrendDirection = TrendDeclining
		}
	}

	return stats
}

// Reset clears history, trend and counters. Intended for test isolation; the
// running flag and subscriber list are left untouched.
func (m *Monitor) Reset() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.history = newRing[core.CoherenceEvent](len(m.history.buf))
	m.trend = newRing[float64](len(m.trend.buf))
	m.totalValidations = 0
}

func mean(values []float64) float64 {
	if len(values) == 0 {
		return 0
	}
	sum := 0.0
	for _, v := range values {
		sum += v
	}
	return sum / float64(len(values))
}
