// Package events fans out lead notifications to live subscribers.
package events

import (
	"sync"
	"time"
)

// Event announces a delivered lead.
type Event struct {
	Type          string    `json:"type"`
	LeadID        string    `json:"leadId"`
	PriorityScore int       `json:"priorityScore"`
	MarketSegment string    `json:"marketSegment"`
	Region        string    `json:"region"`
	ReceivedAt    time.Time `json:"receivedAt"`
}

// TypeLeadDelivered is the only event type published today.
const TypeLeadDelivered = "lead.delivered"

// Broker manages SSE subscribers.
type Broker struct {
	mu          sync.RWMutex
	subscribers map[chan Event]struct{}
}

// NewBroker constructs a broker instance.
func NewBroker() *Broker {
	return &Broker{subscribers: make(map[chan Event]struct{})}
}

// Subscribe returns a buffered channel that receives events.
func (b *Broker) Subscribe() chan Event {
	ch := make(chan Event, 8)
	b.mu.Lock()
	b.subscribers[ch] = struct{}{}
	b.mu.Unlock()
	return ch
}

// Unsubscribe removes and closes the channel.
func (b *Broker) Unsubscribe(ch chan Event) {
	b.mu.Lock()
	if _, ok := b.subscribers[ch]; ok {
		delete(b.subscribers, ch)
		close(ch)
	}
	b.mu.Unlock()
}

// Subscribers counts the open subscriptions.
func (b *Broker) Subscribers() int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return len(b.subscribers)
}

// Publish sends evt to every subscriber. Slow subscribers miss the event.
func (b *Broker) Publish(evt Event) {
	b.mu.RLock()
	defer b.mu.RUnlock()
	for ch := range b.subscribers {
		select {
		case ch <- evt:
		default:
		}
	}
}
