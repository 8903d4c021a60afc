package services

import (
	"sync"
	"time"
)

// Analysis event statuses.
const (
	AnalysisQueued    = "queued"
	AnalysisRunning   = "analyzing"
	AnalysisCompleted = "completed"
	AnalysisFailed    = "failed"
)

// AnalysisEvent is a real-time analysis status update.
// Userkey is the key the analysis was requested with; CanonicalKey is
// the resolved identity key once known.
type AnalysisEvent struct {
	Userkey      string    `json:"userkey"`
	CanonicalKey string    `json:"canonicalKey,omitempty"`
	Status       string    `json:"status"`
	R4RScore     *float64  `json:"r4rScore,omitempty"`
	RiskLevel    string    `json:"riskLevel,omitempty"`
	Error        string    `json:"error,omitempty"`
	Timestamp    time.Time `json:"timestamp"`
}

// Concerns reports whether the event is about the identity keyed by key.
func (e AnalysisEvent) Concerns(key string) bool {
	return e.Userkey == key || (e.CanonicalKey != "" && e.CanonicalKey == key)
}

// SSEHub manages SSE client connections and event broadcasting
type SSEHub struct {
	clients map[string]chan AnalysisEvent
	mu      sync.RWMutex
}

func NewSSEHub() *SSEHub {
	return &SSEHub{
		clients: make(map[string]chan AnalysisEvent),
	}
}

// Subscribe registers a new client and returns a channel for receiving events
func (h *SSEHub) Subscribe(clientID string) <-chan AnalysisEvent {
	h.mu.Lock()
	defer h.mu.Unlock()

	ch := make(chan AnalysisEvent, 100)
	h.clients[clientID] = ch
	return ch
}

func (h *SSEHub) Unsubscribe(clientID string) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if ch, ok := h.clients[clientID]; ok {
		close(ch)
		delete(h.clients, clientID)
	}
}

// Publish broadcasts an event to all connected clients. Slow clients with a
// full buffer miss the event.
func (h *SSEHub) Publish(event AnalysisEvent) {
	if event.Timestamp.IsZero() {
		event.Timestamp = time.Now()
	}

	h.mu.RLock()
	defer h.mu.RUnlock()

	for _, ch := range h.clients {
		select {
		case ch <- event:
		default:
		}
	}
}

func (h *SSEHub) ClientCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

var globalSSEHub *SSEHub
var sseHubOnce sync.Once

// GetSSEHub returns the global SSE hub singleton
func GetSSEHub() *SSEHub {
	sseHubOnce.Do(func() {
		globalSSEHub = NewSSEHub()
	})
	return globalSSEHub
}
