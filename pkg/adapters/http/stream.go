package http

import (
	"encoding/json"
	"log/slog"
	"sync"

	"github.com/aretw0/helix/internal/logging"
	"github.com/aretw0/helix/pkg/domain"
)

// Message is one server-sent event.
type Message struct {
	Event string
	Data  string
}

// StreamManager fans session events out to SSE subscribers.
// Slow subscribers lose messages instead of blocking publishers.
type StreamManager struct {
	mu          sync.RWMutex
	subscribers map[chan Message]struct{}
	logger      *slog.Logger
}

// NewStreamManager creates an empty manager.
func NewStreamManager(logger *slog.Logger) *StreamManager {
	if logger == nil {
		logger = logging.NewNop()
	}
	return &StreamManager{subscribers: make(map[chan Message]struct{}), logger: logger}
}

// Subscribe registers a subscriber. The returned func unsubscribes and closes the channel.
func (sm *StreamManager) Subscribe() (<-chan Message, func()) {
	sm.mu.Lock()
	defer sm.mu.Unlock()

	ch := make(chan Message, 16)
	sm.subscribers[ch] = struct{}{}

	var once sync.Once
	return ch, func() {
		once.Do(func() {
			sm.mu.Lock()
			defer sm.mu.Unlock()
			delete(sm.subscribers, ch)
			close(ch)
		})
	}
}

// Subscribers returns the number of active subscribers.
func (sm *StreamManager) Subscribers() int {
	sm.mu.RLock()
	defer sm.mu.RUnlock()
	return len(sm.subscribers)
}

// Broadcast encodes v as JSON and sends it to every subscriber.
func (sm *StreamManager) Broadcast(event string, v any) {
	data, err := json.Marshal(v)
	if err != nil {
		sm.logger.Error("stream payload encode failed", "event", event, "err", err)
		return
	}
	msg := Message{Event: event, Data: string(data)}

	sm.mu.RLock()
	defer sm.mu.RUnlock()
	for ch := range sm.subscribers {
		select {
		case ch <- msg:
		default:
			sm.logger.Warn("SSE: client buffer full, dropping message", "event", event)
		}
	}
}

type stateMessage struct {
	From  domain.SessionState `json:"from"`
	To    domain.SessionState `json:"to"`
	Error string              `json:"error,omitempty"`
}

// PublishState is a session state observer.
func (sm *StreamManager) PublishState(ev domain.StateEvent) {
	msg := stateMessage{From: ev.From, To: ev.To}
	if ev.Err != nil {
		msg.Error = ev.Err.Error()
	}
	sm.Broadcast(string(domain.EventStateChange), msg)
}

// PublishTranscript is a session transcript handler.
func (sm *StreamManager) PublishTranscript(item domain.ConversationItem) {
	sm.Broadcast(string(domain.EventTranscript), item)
}

type refreshMessage struct {
	Collection domain.Collection `json:"collection"`
	Rows       int               `json:"rows"`
	Error      string            `json:"error,omitempty"`
}

// PublishRefresh is a reconciler refresh hook payload.
func (sm *StreamManager) PublishRefresh(ev *domain.RefreshEvent) {
	msg := refreshMessage{Collection: ev.Collection, Rows: ev.Rows}
	if ev.Err != nil {
		msg.Error = ev.Err.Error()
	}
	sm.Broadcast(string(domain.EventRefresh), msg)
}
