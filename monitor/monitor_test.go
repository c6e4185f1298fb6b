package monitor

import (
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/hupe1980/agentguard/core"
	"github.com/hupe1980/agentguard/scorer"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

// scriptedScorer returns preset scores in sequence, then repeats the last
// one. It lets tests drive the trend buffers with exact values.
type scriptedScorer struct {
	mu     sync.Mutex
	scores []float64
	next   int
}

func (s *scriptedScorer) result() core.CoherenceResult {
	s.mu.Lock()
	defer s.mu.Unlock()
	score := s.scores[s.next]
	if s.next < len(s.scores)-1 {
		s.next++
	}
	return core.CoherenceResult{Score: score, Level: scorer.LevelForScore(score), Confidence: 0.9}
}

func (s *scriptedScorer) Score(string) core.CoherenceResult        { return s.result() }
func (s *scriptedScorer) ScoreChain([]string) core.CoherenceResult { return s.result() }

func constScorer(score float64) *scriptedScorer { return &scriptedScorer{scores: []float64{score}} }

func TestMonitor_PassThroughWhileStopped(t *testing.T) {
	m := New(constScorer(0.1))

	res := m.ValidateAndMonitor("whatever", "test", nil)

	assert.Equal(t, 0.1, res.Score, "scorer still runs while stopped")
	assert.Zero(t, m.HistoryLen(), "no recording while stopped")
	assert.Zero(t, m.TotalValidations())
}

func TestMonitor_RecordsWhileRunning(t *testing.T) {
	m := New(constScorer(0.9))
	m.Start()
	defer m.Stop()

	m.ValidateAndMonitor("first", "src-a", map[string]any{"k": "v"})
	m.ValidateChainAndMonitor([]string{"a", "b"}, "src-b", nil)

	assert.Equal(t, 2, m.HistoryLen())
	assert.Equal(t, 2, m.TotalValidations())

	events := m.GetRecentEvents(10)
	require.Len(t, events, 2)
	assert.Equal(t, "src-a", events[0].Source)
	assert.Equal(t, "first", events[0].Content)
	assert.Equal(t, "a -> b", events[1].Content, "chain content joins steps for display")
}

func TestMonitor_HistoryBounded(t *testing.T) {
	m := New(constScorer(0.9))
	m.Start()

	const n = 1100
	for i := 0; i < n; i++ {
		m.ValidateAndMonitor(fmt.Sprintf("content-%d", i), "burst", nil)
	}

	assert.Equal(t, DefaultHistorySize, m.HistoryLen())
	assert.Equal(t, n, m.TotalValidations(), "counter is lifetime, not windowed")

	// Exactly the most recent 1000 remain, oldest evicted first.
	events := m.GetRecentEvents(DefaultHistorySize)
	assert.Equal(t, fmt.Sprintf("content-%d", n-DefaultHistorySize), events[0].Content)
	assert.Equal(t, fmt.Sprintf("content-%d", n-1), events[len(events)-1].Content)
}

func TestMonitor_TrendDeclining(t *testing.T) {
	scores := append(repeat(0.9, 10), repeat(0.2, 10)...)
	m := New(&scriptedScorer{scores: scores})
	m.Start()

	for i := 0; i < 20; i++ {
		m.ValidateAndMonitor("x", "trend", nil)
	}

	stats := m.Statistics()
	assert.Equal(t, TrendDeclining, stats.TrendDirection)
	assert.InDelta(t, 0.2, stats.RecentAverage, 1e-9)
}

func TestMonitor_TrendImproving(t *testing.T) {
	scores := append(repeat(0.2, 10), repeat(0.9, 10)...)
	m := New(&scriptedScorer{scores: scores})
	m.Start()

	for i := 0; i < 20; i++ {
		m.ValidateAndMonitor("x", "trend", nil)
	}

	assert.Equal(t, TrendImproving, m.Statistics().TrendDirection)
}

func TestMonitor_TrendInsufficientData(t *testing.T) {
	m := New(constScorer(0.9))
	m.Start()

	for i := 0; i < 9; i++ {
		m.ValidateAndMonitor("x", "trend", nil)
	}

	assert.Equal(t, TrendInsufficientData, m.Statistics().TrendDirection)
}

func TestMonitor_Distribution(t *testing.T) {
	scores := []float64{0.9, 0.9, 0.55, 0.1}
	m := New(&scriptedScorer{scores: scores})
	m.Start()

	for range scores {
		m.ValidateAndMonitor("x", "dist", nil)
	}

	stats := m.Statistics()
	assert.Equal(t, 2, stats.Distribution["HIGH"])
	assert.Equal(t, 1, stats.Distribution["MEDIUM"])
	assert.Equal(t, 1, stats.Distribution["CRITICAL"])
}

func TestMonitor_SubscriberIsolation(t *testing.T) {
	m := New(constScorer(0.9))
	m.Start()

	var order []string
	m.Subscribe(SubscriberFunc(func(ev core.CoherenceEvent) error {
		order = append(order, "first")
		return fmt.Errorf("boom")
	}))
	m.Subscribe(SubscriberFunc(func(ev core.CoherenceEvent) error {
		order = append(order, "second")
		return nil
	}))

	m.ValidateAndMonitor("a", "iso", nil)
	m.ValidateAndMonitor("b", "iso", nil)

	// The failing first subscriber never blocks delivery to the second,
	// and registration order is preserved per event.
	require.Equal(t, []string{"first", "second", "first", "second"}, order)
}

func TestMonitor_Unsubscribe(t *testing.T) {
	m := New(constScorer(0.9))
	m.Start()

	calls := 0
	id := m.Subscribe(SubscriberFunc(func(ev core.CoherenceEvent) error {
		calls++
		return nil
	}))

	m.ValidateAndMonitor("a", "unsub", nil)
	m.Unsubscribe(id)
	m.ValidateAndMonitor("b", "unsub", nil)

	assert.Equal(t, 1, calls)
}

// captivePublisher records alert messages sent by the monitor.
type captivePublisher struct {
	mu   sync.Mutex
	msgs []core.OptimizerMessage
	err  error
}

func (p *captivePublisher) Send(msg core.OptimizerMessage) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.err != nil {
		return p.err
	}
	p.msgs = append(p.msgs, msg)
	return nil
}

func (p *captivePublisher) all() []core.OptimizerMessage {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]core.OptimizerMessage(nil), p.msgs...)
}

func TestMonitor_AlertPublishedOnBreach(t *testing.T) {
	pub := &captivePublisher{}
	m := New(constScorer(0.1), WithAlertPublisher(pub, "mon"))
	m.Start()

	m.ValidateAndMonitor("bad content", "alerts", nil)

	msgs := pub.all()
	require.Len(t, msgs, 1)
	assert.Equal(t, core.MessageAlert, msgs[0].Type)
	assert.Equal(t, "mon", msgs[0].SenderID)
	assert.True(t, msgs[0].IsBroadcast())
	assert.Equal(t, core.PriorityCritical, msgs[0].Priority)
	assert.Equal(t, "alerts", msgs[0].Payload["source"])

	ts, ok := msgs[0].Payload["timestamp"].(float64)
	require.True(t, ok, "alert carries the event time as fractional unix seconds")
	assert.InDelta(t, float64(time.Now().Unix()), ts, 5)
}

func TestMonitor_NoAlertOnWarn(t *testing.T) {
	pub := &captivePublisher{}
	m := New(constScorer(0.55), WithAlertPublisher(pub, "mon"))
	m.Start()

	m.ValidateAndMonitor("mediocre content", "alerts", nil)

	assert.Empty(t, pub.all(), "warnings log but do not publish")
}

func TestMonitor_PublisherErrorDoesNotPropagate(t *testing.T) {
	pub := &captivePublisher{err: fmt.Errorf("bus down")}
	m := New(constScorer(0.1), WithAlertPublisher(pub, "mon"))
	m.Start()

	res := m.ValidateAndMonitor("bad content", "alerts", nil)

	assert.Equal(t, 0.1, res.Score, "publish failure never reaches the caller")
}

func TestMonitor_Reset(t *testing.T) {
	m := New(constScorer(0.9))
	m.Start()
	m.ValidateAndMonitor("a", "reset", nil)

	m.Reset()

	assert.Zero(t, m.HistoryLen())
	assert.Zero(t, m.TotalValidations())
	assert.True(t, m.Running(), "reset leaves the running flag untouched")
}

func TestMonitor_ConcurrentValidations(t *testing.T) {
	m := New(constScorer(0.9), WithWindowSizes(100, 50))
	m.Start()

	var wg sync.WaitGroup
	for i := 0; i < 16; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < 50; j++ {
				m.ValidateAndMonitor("concurrent", "load", nil)
			}
		}()
	}
	wg.Wait()

	assert.Equal(t, 16*50, m.TotalValidations())
	assert.Equal(t, 100, m.HistoryLen(), "window bound holds under concurrency")
}

func repeat(v float64, n int) []float64 {
	out := make([]float64, n)
	for i := range out {
		out[i] = v
	}
	return out
}
