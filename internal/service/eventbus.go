package service

import (
	"sync"
)

// Event is a video status transition published to SSE subscribers, keyed by
// the video's public token.
type Event struct {
	Status    string `json:"status"`
	Rendition string `json:"rendition,omitempty"`
	Message   string `json:"message,omitempty"`
}

type EventBus struct {
	subscribers map[string][]chan Event
	mu          sync.RWMutex
}

func NewEventBus() *EventBus {
	return &EventBus{
		subscribers: make(map[string][]chan Event),
	}
}

func (eb *EventBus) Subscribe(token string) chan Event {
	eb.mu.Lock()
	defer eb.mu.Unlock()

	ch := make(chan Event, 16)
	eb.subscribers[token] = append(eb.subscribers[token], ch)
	return ch
}

func (eb *EventBus) Unsubscribe(token string, ch chan Event) {
	eb.mu.Lock()
	defer eb.mu.Unlock()

	subs := eb.subscribers[token]
	for i, sub := range subs {
		if sub == ch {
			eb.subscribers[token] = append(subs[:i], subs[i+1:]...)
			close(ch)
			break
		}
	}

	if len(eb.subscribers[token]) == 0 {
		delete(eb.subscribers, token)
	}
}

func (eb *EventBus) Publish(token string, event Event) {
	eb.mu.RLock()
	defer eb.mu.RUnlock()

	for _, ch := range eb.subscribers[token] {
		select {
		case ch <- event:
		default:
			// Drop event if subscriber is slow
		}
	}
}
