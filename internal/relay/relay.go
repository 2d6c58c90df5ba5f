package relay

import (
	"encoding/json"
	"log/slog"
	"sync"

	"github.com/dgnsrekt/chartwindow/internal/livefeed"
	"github.com/dgnsrekt/chartwindow/internal/window"
)

// FeedTopic carries live feed connection status.
const FeedTopic = "feed"

// Event kinds.
const (
	KindSnapshot = "snapshot"
	KindFeed     = "feed_status"
	KindClosed   = "session_closed"
)

// Relay turns session and feed callbacks into broker events.
type Relay struct {
	broker *Broker

	mu       sync.Mutex
	versions map[string]uint64
}

// NewRelay creates a relay publishing to broker.
func NewRelay(broker *Broker) *Relay {
	return &Relay{broker: broker, versions: make(map[string]uint64)}
}

// Broker returns the underlying broker.
func (r *Relay) Broker() *Broker { return r.broker }

// OnSnapshot publishes a session snapshot. It is used as the session
// OnChange hook, which may run on several goroutines; a snapshot older than
// the last one published for its session is dropped.
func (r *Relay) OnSnapshot(snap window.Snapshot) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if last, ok := r.versions[snap.SessionID]; ok && snap.Version <= last {
		return
	}
	r.versions[snap.SessionID] = snap.Version
	r.publish(snap.SessionID, KindSnapshot, snap)
}

// OnFeedStatus publishes live feed connection changes.
func (r *Relay) OnFeedStatus(st livefeed.Status) {
	r.publish(FeedTopic, KindFeed, st)
}

// SessionClosed tells clients a session is gone and drops its cached state.
func (r *Relay) SessionClosed(id string) {
	r.mu.Lock()
	delete(r.versions, id)
	r.mu.Unlock()
	r.publish(id, KindClosed, map[string]string{"session_id": id})
	r.broker.Forget(id)
}

func (r *Relay) publish(topic, kind string, v any) {
	data, err := json.Marshal(v)
	if err != nil {
		slog.Error("relay marshal failed", "topic", topic, "kind", kind, "error", err)
		return
	}
	r.broker.Publish(Event{Topic: topic, Kind: kind, Payload: string(data)})
}
