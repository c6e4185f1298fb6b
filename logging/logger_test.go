package logging

import (
	"bytes"
	"encoding/json"
	"errors"
	"strings"
	"testing"
	"time"
)

// Interface compliance (compile-time assertions)
var (
	_ Logger = (*SlogAdapter)(nil)
	_ Logger = (*AgentGuardLogger)(nil)
	_ Logger = NoOpLogger{}
)

// newCaptureLogger builds a JSON logger writing into a buffer so tests can
// decode the emitted records.
func newCaptureLogger(level LogLevel) (*AgentGuardLogger, *bytes.Buffer) {
	buf := &bytes.Buffer{}
	return NewLogger(&LoggerConfig{
		Level:       level,
		Format:      "json",
		Output:      buf,
		CustomAttrs: map[string]interface{}{},
	}), buf
}

// decodeLines parses each JSON record written to the buffer.
func decodeLines(t *testing.T, buf *bytes.Buffer) []map[string]any {
	t.Helper()
	var records []map[string]any
	for _, line := range strings.Split(strings.TrimSpace(buf.String()), "\n") {
		if line == "" {
			continue
		}
		var rec map[string]any
		if err := json.Unmarshal([]byte(line), &rec); err != nil {
			t.Fatalf("decode log line %q: %v", line, err)
		}
		records = append(records, rec)
	}
	return records
}

func TestAgentGuardLogger_ContextualCloning(t *testing.T) {
	base, buf := newCaptureLogger(LogLevelDebug)

	derived := base.WithComponent("monitor").WithSession("sess-1", "agent-1").WithContext("attempt", 2)
	derived.Info("scoring round")

	recs := decodeLines(t, buf)
	if len(recs) != 1 {
		t.Fatalf("expected 1 record, got %d", len(recs))
	}
	rec := recs[0]
	if rec["component"] != "monitor" || rec["session_id"] != "sess-1" || rec["source"] != "agent-1" {
		t.Errorf("contextual attrs missing: %v", rec)
	}
	if rec["attempt"] != float64(2) {
		t.Errorf("WithContext attr missing: %v", rec)
	}

	// Cloning never mutates the parent.
	buf.Reset()
	base.Info("plain")
	rec = decodeLines(t, buf)[0]
	if _, ok := rec["component"]; ok {
		t.Error("parent logger gained the child's component")
	}
}

func TestAgentGuardLogger_LevelGating(t *testing.T) {
	l, buf := newCaptureLogger(LogLevelWarn)

	l.Debug("hidden")
	l.Info("hidden")
	l.Warn("shown")
	l.Error("shown")

	if got := len(decodeLines(t, buf)); got != 2 {
		t.Fatalf("expected 2 records at warn level, got %d", got)
	}
}

func TestAgentGuardLogger_LogValidation(t *testing.T) {
	l, buf := newCaptureLogger(LogLevelInfo)

	l.LogValidation("agent-1", 0.4, "LOW", 2)

	rec := decodeLines(t, buf)[0]
	if rec["msg"] != "Validation completed" {
		t.Errorf("unexpected message %v", rec["msg"])
	}
	if rec["validation_source"] != "agent-1" || rec["score"] != 0.4 || rec["level"] != "LOW" || rec["contradiction_count"] != float64(2) {
		t.Errorf("validation attrs wrong: %v", rec)
	}
}

func TestAgentGuardLogger_LogHalt(t *testing.T) {
	l, buf := newCaptureLogger(LogLevelInfo)

	l.LogHalt("logical_contradiction", "contradictions detected", true)

	rec := decodeLines(t, buf)[0]
	if rec["msg"] != "Execution halted" || rec["level"] != "ERROR" {
		t.Errorf("halt record wrong: %v", rec)
	}
	if rec["halt_reason"] != "logical_contradiction" || rec["recoverable"] != true {
		t.Errorf("halt attrs wrong: %v", rec)
	}
}

func TestAgentGuardLogger_LogDelivery(t *testing.T) {
	l, buf := newCaptureLogger(LogLevelInfo)

	l.LogDelivery("optimizer-1", 3, 1)

	rec := decodeLines(t, buf)[0]
	if rec["agent_id"] != "optimizer-1" || rec["delivered"] != float64(3) || rec["expired"] != float64(1) {
		t.Errorf("delivery attrs wrong: %v", rec)
	}
}

func TestAgentGuardLogger_LogPerformance(t *testing.T) {
	l, buf := newCaptureLogger(LogLevelInfo)

	l.LogPerformance("score_chain", 25*time.Millisecond, map[string]interface{}{"steps": 4})

	rec := decodeLines(t, buf)[0]
	if rec["operation"] != "score_chain" {
		t.Errorf("operation attr wrong: %v", rec)
	}
	if rec["metric_steps"] != float64(4) {
		t.Errorf("metric attr wrong: %v", rec)
	}
}

func TestAgentGuardLogger_StartTimer(t *testing.T) {
	l, buf := newCaptureLogger(LogLevelInfo)

	done := l.StartTimer("batch_validation")
	done()

	rec := decodeLines(t, buf)[0]
	msg, _ := rec["msg"].(string)
	if !strings.HasPrefix(msg, "Operation completed") {
		t.Errorf("timer message wrong: %v", msg)
	}
}

func TestAgentGuardLogger_ErrorWithStack(t *testing.T) {
	l, buf := newCaptureLogger(LogLevelInfo)

	l.ErrorWithStack(errors.New("boom"), "pipeline failure")

	rec := decodeLines(t, buf)[0]
	if rec["error"] != "boom" {
		t.Errorf("error attr wrong: %v", rec)
	}
	stack, _ := rec["stack_trace"].(string)
	if !strings.Contains(stack, "goroutine") {
		t.Error("stack trace missing")
	}

	// Suppressed entirely above error level? The gate is level > error,
	// which no configured level exceeds; verify it still emits at error.
	if rec["level"] != "ERROR" {
		t.Errorf("expected ERROR level, got %v", rec["level"])
	}
}

func TestSlogAdapterAndNoOp(t *testing.T) {
	// NoOpLogger swallows everything without panicking.
	NoOpLogger{}.Debug("x", "k", "v")
	NoOpLogger{}.Error("x")

	l := NewDefaultSlogLogger()
	if l == nil {
		t.Fatal("default adapter must not be nil")
	}
}
