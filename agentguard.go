// Package agentguard provides a high-level façade over the coherence
// monitoring engine and its service abstractions (scoring, sessions, halt
// control, agent messaging & logging) enabling real-time validation of AI
// agent output. Most applications interact with this package by:
//  1. Creating a Guard via New() (optionally overriding the default heuristic scorer)
//  2. Starting monitoring and validating content or reasoning chains
//  3. Registering optimizer agents on the bus to exchange coherence alerts
//
// The façade wires the monitor's alert path onto the message bus and keeps
// one instance of each component; construct once and pass by reference to all
// collaborators. Reset exists for test isolation. All defaults are safe for
// local development and testing; production deployments typically supply a
// model-backed scorer and a structured logger.
package agentguard

import (
	"time"

	"github.com/hupe1980/agentguard/bus"
	"github.com/hupe1980/agentguard/config"
	"github.com/hupe1980/agentguard/core"
	"github.com/hupe1980/agentguard/halt"
	"github.com/hupe1980/agentguard/logging"
	"github.com/hupe1980/agentguard/monitor"
	"github.com/hupe1980/agentguard/scorer"
	"github.com/hupe1980/agentguard/session"
)

// AlertSenderID identifies the monitor on the bus when it broadcasts alerts.
const AlertSenderID = "coherence-monitor"

// Options configures the Guard instance.
type Options struct {
	// Scorer evaluates content; defaults to the heuristic scorer.
	Scorer scorer.Scorer

	// Thresholds used by the monitor for alerting and as per-session defaults.
	Thresholds core.SessionConfig

	// StalenessWindow for bus liveness (defaults to bus.DefaultStalenessWindow).
	StalenessWindow time.Duration

	// DefaultTTL applied to bus messages sent without one.
	DefaultTTL time.Duration

	// HistorySize / TrendSize override the monitor's bounded windows when > 0.
	HistorySize int
	TrendSize   int

	// PublishAlerts controls whether halt-level breaches broadcast an ALERT
	// message on the bus. Enabled by default.
	PublishAlerts bool

	// Logger (defaults to NoOp logger if nil).
	Logger logging.Logger
}

// Guard aggregates the monitor, session registry, halt controller and message
// bus behind one handle.
type Guard struct {
	monitor    *monitor.Monitor
	registry   *session.Registry
	controller *halt.Controller
	bus        *bus.Bus
}

// New creates a new Guard with optional overrides. Any unset service is
// initialized with its in-memory default.
func New(optFns ...func(o *Options)) *Guard {
	opts := Options{
		Scorer:        scorer.NewHeuristicScorer(),
		Thresholds:    core.DefaultSessionConfig(),
		PublishAlerts: true,
		Logger:        logging.NoOpLogger{},
	}

	for _, fn := range optFns {
		fn(&opts)
	}

	busOpts := []bus.Option{bus.WithLogger(opts.Logger)}
	if opts.StalenessWindow > 0 {
		busOpts = append(busOpts, bus.WithStalenessWindow(opts.StalenessWindow))
	}
	if opts.DefaultTTL > 0 {
		busOpts = append(busOpts, bus.WithDefaultTTL(opts.DefaultTTL))
	}
	b := bus.New(busOpts...)

	monOpts := []monitor.Option{
		monitor.WithLogger(opts.Logger),
		monitor.WithThresholds(opts.Thresholds),
	}
	if opts.HistorySize > 0 || opts.TrendSize > 0 {
		monOpts = append(monOpts, monitor.WithWindowSizes(opts.HistorySize, opts.TrendSize))
	}
	if opts.PublishAlerts {
		monOpts = append(monOpts, monitor.WithAlertPublisher(b, AlertSenderID))
	}

	return &Guard{
		monitor:    monitor.New(opts.Scorer, monOpts...),
		registry:   session.NewRegistry(session.WithLogger(opts.Logger)),
		controller: halt.NewController(halt.WithLogger(opts.Logger)),
		bus:        b,
	}
}

// NewFromConfig creates a Guard from a loaded configuration document. Later
// option functions override what the document set.
func NewFromConfig(cfg config.Config, optFns ...func(o *Options)) *Guard {
	fromDoc := func(o *Options) {
		o.Logger = logging.NewSlogLogger(cfg.LogLevel(), cfg.Logging.Format, false)
		o.Thresholds = cfg.SessionDefaults()
		o.StalenessWindow = cfg.Bus.StalenessWindow
		o.DefaultTTL = cfg.Bus.DefaultTTL
		o.HistorySize = cfg.Monitor.HistorySize
		o.TrendSize = cfg.Monitor.TrendSize
	}
	return New(append([]func(o *Options){fromDoc}, optFns...)...)
}

// Monitor returns the coherence monitor.
func (g *Guard) Monitor() *monitor.Monitor { return g.monitor }

// Sessions returns the validation session registry.
func (g *Guard) Sessions() *session.Registry { return g.registry }

// Controller returns the halt controller.
func (g *Guard) Controller() *halt.Controller { return g.controller }

// Bus returns the agent message bus.
func (g *Guard) Bus() *bus.Bus { return g.bus }

// Validate scores content through the monitor pipeline.
func (g *Guard) Validate(content, source string, context map[string]any) core.CoherenceResult {
	return g.monitor.ValidateAndMonitor(content, source, context)
}

// ValidateChain scores an ordered reasoning chain through the monitor pipeline.
func (g *Guard) ValidateChain(steps []string, source string, context map[string]any) core.CoherenceResult {
	return g.monitor.ValidateChainAndMonitor(steps, source, context)
}

// EvaluateSession runs the full halt evaluation for one session: every firing
// trigger yields its own halt event; the first halts the session, the rest
// are appended to its audit history. The events are returned in trigger order.
func (g *Guard) EvaluateSession(sessionID string, in halt.TriggerInput) ([]core.HaltEvent, error) {
	sess, err := g.registry.Get(sessionID)
	if err != nil {
		return nil, err
	}

	events := g.controller.EvaluateTriggers(in, sess.Config)
	for i, ev := range events {
		if i == 0 {
			if err := g.registry.Halt(sessionID, ev); err != nil {
				return events, err
			}
			continue
		}
		if err := g.registry.AppendHalt(sessionID, ev); err != nil {
			return events, err
		}
	}
	return events, nil
}

// Reset restores all components to their initial state. Intended for test
// isolation; not safe to call concurrently with in-flight validations.
func (g *Guard) Reset() {
	g.monitor.Reset()
	g.registry.Reset()
	g.bus.Reset()
}
