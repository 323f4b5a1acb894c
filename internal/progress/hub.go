// Package progress implements an in-process pub/sub hub that streams
// job progress to any number of subscribers.
package progress

import (
	"sync"
	"time"

	"github.com/google/uuid"
)

// Event kinds published by job runners.
const (
	KindProgress = "progress"
	KindResult   = "result"
	KindStatus   = "status"
)

// Event is a single progress update on a topic.
type Event struct {
	Kind      string    `json:"kind"`
	Topic     string    `json:"topic"`
	Timestamp time.Time `json:"timestamp"`
	Data      any       `json:"data,omitempty"`
}

// subscriberBuffer is the per-subscriber channel capacity. When a
// subscriber falls behind, the oldest buffered event is dropped so
// publishers never block.
const subscriberBuffer = 16

// Subscription is one listener on a topic.
type Subscription struct {
	ID    uuid.UUID
	Topic string
	C     <-chan Event

	ch chan Event
}

// Hub fans events out to topic subscribers. Publishing never blocks;
// slow subscribers lose their oldest events first.
type Hub struct {
	mu     sync.RWMutex
	topics map[string]map[uuid.UUID]*Subscription
}

// NewHub creates an empty Hub.
func NewHub() *Hub {
	return &Hub{topics: map[string]map[uuid.UUID]*Subscription{}}
}

// Subscribe registers a listener on topic.
func (h *Hub) Subscribe(topic string) *Subscription {
	ch := make(chan Event, subscriberBuffer)
	sub := &Subscription{ID: uuid.New(), Topic: topic, C: ch, ch: ch}

	h.mu.Lock()
	defer h.mu.Unlock()
	if h.topics[topic] == nil {
		h.topics[topic] = map[uuid.UUID]*Subscription{}
	}
	h.topics[topic][sub.ID] = sub
	return sub
}

// Unsubscribe removes a listener and closes its channel. Safe to call
// more than once for the same subscription.
func (h *Hub) Unsubscribe(sub *Subscription) {
	if sub == nil {
		return
	}

	h.mu.Lock()
	defer h.mu.Unlock()

	subs := h.topics[sub.Topic]
	if _, ok := subs[sub.ID]; !ok {
		return
	}
	delete(subs, sub.ID)
	if len(subs) == 0 {
		delete(h.topics, sub.Topic)
	}
	close(sub.ch)
}

// Publish delivers an event to every subscriber of topic. A full
// subscriber buffer drops its oldest event to make room.
func (h *Hub) Publish(topic, kind string, data any) {
	event := Event{
		Kind:      kind,
		Topic:     topic,
		Timestamp: time.Now().UTC(),
		Data:      data,
	}

	h.mu.RLock()
	defer h.mu.RUnlock()
	for _, sub := range h.topics[topic] {
		for {
			select {
			case sub.ch <- event:
			default:
				select {
				case <-sub.ch:
				default:
				}
				continue
			}
			break
		}
	}
}

// SubscriberCount returns the number of listeners on topic.
func (h *Hub) SubscriberCount(topic string) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.topics[topic])
}
