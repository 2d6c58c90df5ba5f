// Package relay fans session snapshots and feed status out to SSE clients.
package relay

import (
	"sort"
	"sync"
	"sync/atomic"
)

const subscriberBufSize = 256

// Event is one SSE message. Topic is a session ID or FeedTopic.
type Event struct {
	Topic   string
	Kind    string
	Payload string
}

type subscriber struct {
	ch      chan Event
	topics  map[string]bool // nil receives every topic
	dropped atomic.Int64
}

func (s *subscriber) wants(topic string) bool {
	return s.topics == nil || s.topics[topic]
}

// Broker delivers events to subscribers without blocking and keeps the
// latest event per topic for replay.
type Broker struct {
	mu     sync.RWMutex
	subs   map[int64]*subscriber
	latest map[string]Event
	nextID atomic.Int64
}

func NewBroker() *Broker {
	return &Broker{
		subs:   make(map[int64]*subscriber),
		latest: make(map[string]Event),
	}
}

// Subscribe registers a client for topics (nil for all) and returns the
// cached events it should replay first, ordered by topic. Events published
// after Subscribe returns arrive on the channel; a full buffer drops them.
func (b *Broker) Subscribe(topics map[string]bool) (int64, <-chan Event, []Event) {
	sub := &subscriber{ch: make(chan Event, subscriberBufSize), topics: topics}
	id := b.nextID.Add(1)

	b.mu.Lock()
	defer b.mu.Unlock()
	b.subs[id] = sub
	replay := make([]Event, 0, len(b.latest))
	for topic, evt := range b.latest {
		if sub.wants(topic) {
			replay = append(replay, evt)
		}
	}
	sort.Slice(replay, func(i, j int) bool { return replay[i].Topic < replay[j].Topic })
	return id, sub.ch, replay
}

// Unsubscribe removes a subscriber, closes its channel and returns how many
// events it missed.
func (b *Broker) Unsubscribe(id int64) int64 {
	b.mu.Lock()
	defer b.mu.Unlock()
	sub, ok := b.subs[id]
	if !ok {
		return 0
	}
	delete(b.subs, id)
	close(sub.ch)
	return sub.dropped.Load()
}

func (b *Broker) Publish(evt Event) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.latest[evt.Topic] = evt
	for _, sub := range b.subs {
		if !sub.wants(evt.Topic) {
			continue
		}
		select {
		case sub.ch <- evt:
		default:
			sub.dropped.Add(1)
		}
	}
}

// Forget drops the cached event of a topic.
func (b *Broker) Forget(topic string) {
	b.mu.Lock()
	delete(b.latest, topic)
	b.mu.Unlock()
}

// Latest returns the cached event of topic.
func (b *Broker) Latest(topic string) (Event, bool) {
	b.mu.RLock()
	defer b.mu.RUnlock()
	evt, ok := b.latest[topic]
	return evt, ok
}

func (b *Broker) ClientCount() int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return len(b.subs)
}
