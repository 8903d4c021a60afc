package services

import (
	"testing"
	"time"
)

func TestSSEHub_SubscribeUnsubscribe(t *testing.T) {
	hub := NewSSEHub()
	if hub.ClientCount() != 0 {
		t.Errorf("new hub should have 0 clients, got %d", hub.ClientCount())
	}

	hub.Subscribe("client1")
	ch2 := hub.Subscribe("client2")
	if hub.ClientCount() != 2 {
		t.Fatalf("expected 2 clients, got %d", hub.ClientCount())
	}

	hub.Unsubscribe("nonexistent")
	hub.Unsubscribe("client2")
	if hub.ClientCount() != 1 {
		t.Errorf("expected 1 client after unsubscribe, got %d", hub.ClientCount())
	}
	if _, open := <-ch2; open {
		t.Error("unsubscribed channel should be closed")
	}
}

func TestSSEHub_Publish(t *testing.T) {
	hub := NewSSEHub()
	ch1 := hub.Subscribe("client1")
	ch2 := hub.Subscribe("client2")

	score := 85.5
	hub.Publish(AnalysisEvent{Userkey: "profileId:1", Status: AnalysisCompleted, R4RScore: &score, RiskLevel: "High"})

	for i, ch := range []<-chan AnalysisEvent{ch1, ch2} {
		select {
		case received := <-ch:
			if received.Userkey != "profileId:1" || received.Status != AnalysisCompleted {
				t.Errorf("client%d: unexpected event %+v", i+1, received)
			}
			if received.R4RScore == nil || *received.R4RScore != 85.5 {
				t.Errorf("client%d: score not delivered", i+1)
			}
			if received.Timestamp.IsZero() {
				t.Errorf("client%d: timestamp should be filled in", i+1)
			}
		case <-time.After(100 * time.Millisecond):
			t.Errorf("client%d: timed out waiting for event", i+1)
		}
	}
}

func TestSSEHub_NonBlockingPublish(t *testing.T) {
	hub := NewSSEHub()
	hub.Subscribe("slow_client")

	done := make(chan struct{})
	go func() {
		for i := 0; i < 200; i++ {
			hub.Publish(AnalysisEvent{Status: AnalysisQueued})
		}
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("Publish blocked on a full client buffer")
	}
}

func TestGetSSEHub_Singleton(t *testing.T) {
	if GetSSEHub() != GetSSEHub() {
		t.Error("GetSSEHub should return the same instance")
	}
}
