package core

import (
	"testing"
	"time"
)

func TestOptimizerMessage_Expiry(t *testing.T) {
	base := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	msg := NewOptimizerMessage(MessageAlert, "a", "b", nil)
	msg.Timestamp = base
	msg.TTL = time.Second

	if msg.ExpiredAt(base.Add(500 * time.Millisecond)) {
		t.Error("message within TTL should not be expired")
	}
	if !msg.ExpiredAt(base.Add(2 * time.Second)) {
		t.Error("message past TTL must be expired")
	}
}

func TestOptimizerMessage_Broadcast(t *testing.T) {
	if !NewOptimizerMessage(MessageHeartbeat, "a", "", nil).IsBroadcast() {
		t.Error("empty recipient means broadcast")
	}
	if NewOptimizerMessage(MessageHeartbeat, "a", "b", nil).IsBroadcast() {
		t.Error("set recipient means point-to-point")
	}
}

func TestAgentInfo_HasCapability(t *testing.T) {
	info := AgentInfo{AgentID: "a", Capabilities: []string{"tuning", "routing"}}
	if !info.HasCapability("routing") {
		t.Error("expected capability match")
	}
	if info.HasCapability("planning") {
		t.Error("unexpected capability match")
	}
}
