package http

import (
	"encoding/json"
	"log/slog"
	"sync"

	"github.com/aretw0/animgate/pkg/domain"
)

// allControllers is the topic of subscribers that want every outcome.
const allControllers = ""

// StreamManager fans normalization outcomes out to SSE connections.
type StreamManager struct {
	mu          sync.RWMutex
	subscribers map[string]map[chan<- string]struct{} // controller id -> set of channels
}

func NewStreamManager() *StreamManager {
	return &StreamManager{
		subscribers: make(map[string]map[chan<- string]struct{}),
	}
}

// Subscribe registers a channel for outcomes of controller, or of every
// controller when it is empty. The returned func unsubscribes and closes it.
func (sm *StreamManager) Subscribe(controller string) (chan string, func()) {
	sm.mu.Lock()
	defer sm.mu.Unlock()

	ch := make(chan string, 10)
	if _, ok := sm.subscribers[controller]; !ok {
		sm.subscribers[controller] = make(map[chan<- string]struct{})
	}
	sm.subscribers[controller][ch] = struct{}{}

	return ch, func() {
		sm.mu.Lock()
		defer sm.mu.Unlock()
		if subs, ok := sm.subscribers[controller]; ok {
			delete(subs, ch)
			close(ch)
			if len(subs) == 0 {
				delete(sm.subscribers, controller)
			}
		}
	}
}

// Broadcast sends o to its controller's subscribers and to the catch-all ones.
func (sm *StreamManager) Broadcast(o domain.Outcome) {
	payload, err := json.Marshal(o)
	if err != nil {
		slog.Error("StreamManager: encode outcome failed", "error", err)
		return
	}
	msg := string(payload)

	sm.mu.RLock()
	defer sm.mu.RUnlock()

	slog.Debug("StreamManager: Broadcasting", "controller", o.Controller, "payload_size", len(msg))

	topics := []string{o.Controller}
	if o.Controller != allControllers {
		topics = append(topics, allControllers)
	}
	for _, topic := range topics {
		for ch := range sm.subscribers[topic] {
			select {
			case ch <- msg:
			default:
				// Drop message if channel is full (slow client)
				slog.Warn("SSE: Client buffer full, dropping message", "controller", o.Controller)
			}
		}
	}
}

// Subscribers returns the number of open subscriptions.
func (sm *StreamManager) Subscribers() int {
	sm.mu.RLock()
	defer sm.mu.RUnlock()
	n := 0
	for _, subs := range sm.subscribers {
		n += len(subs)
	}
	return n
}
