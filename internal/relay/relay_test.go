package relay

import (
	"bufio"
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/dgnsrekt/chartwindow/internal/window"
)

func TestBrokerDropsForSlowClients(t *testing.T) {
	b := NewBroker()
	id, ch, _ := b.Subscribe(nil)
	for i := 0; i < subscriberBufSize+10; i++ {
		b.Publish(Event{Topic: "s1", Kind: KindSnapshot, Payload: "{}"})
	}
	if got := len(ch); got != subscriberBufSize {
		t.Fatalf("buffered %d events, want %d", got, subscriberBufSize)
	}
	if dropped := b.Unsubscribe(id); dropped != 10 {
		t.Fatalf("dropped = %d, want 10", dropped)
	}
	if b.ClientCount() != 0 {
		t.Fatal("subscriber not removed")
	}
}

func TestBrokerFiltersTopics(t *testing.T) {
	b := NewBroker()
	b.Publish(Event{Topic: "b", Kind: KindSnapshot, Payload: "old-b"})
	b.Publish(Event{Topic: "a", Kind: KindSnapshot, Payload: "old-a"})

	_, ch, replay := b.Subscribe(map[string]bool{"a": true})
	if len(replay) != 1 || replay[0].Payload != "old-a" {
		t.Fatalf("replay = %+v", replay)
	}
	b.Publish(Event{Topic: "b", Kind: KindSnapshot, Payload: "new-b"})
	b.Publish(Event{Topic: "a", Kind: KindSnapshot, Payload: "new-a"})
	if got := len(ch); got != 1 {
		t.Fatalf("queued %d events, want 1", got)
	}
	if evt := <-ch; evt.Payload != "new-a" {
		t.Fatalf("event = %+v", evt)
	}

	_, _, all := b.Subscribe(nil)
	if len(all) != 2 || all[0].Topic != "a" || all[1].Topic != "b" {
		t.Fatalf("replay order = %+v", all)
	}
}

func TestRelayCachesLatestPerTopic(t *testing.T) {
	b := NewBroker()
	r := NewRelay(b)
	r.OnSnapshot(window.Snapshot{SessionID: "a", Version: 1})
	r.OnSnapshot(window.Snapshot{SessionID: "a", Version: 2})
	r.OnSnapshot(window.Snapshot{SessionID: "b", Version: 1})

	latest, ok := b.Latest("a")
	if !ok || !strings.Contains(latest.Payload, `"version":2`) {
		t.Fatalf("unexpected latest: %+v", latest)
	}

	// A slower goroutine delivering an older snapshot must not win.
	r.OnSnapshot(window.Snapshot{SessionID: "a", Version: 1})
	if latest, _ := b.Latest("a"); !strings.Contains(latest.Payload, `"version":2`) {
		t.Fatalf("stale snapshot replaced latest: %+v", latest)
	}

	r.SessionClosed("a")
	if got, ok := b.Latest("a"); ok {
		t.Fatalf("closed session still cached: %+v", got)
	}
}

func TestSSEHandlerReplaysAndFilters(t *testing.T) {
	b := NewBroker()
	r := NewRelay(b)
	r.OnSnapshot(window.Snapshot{SessionID: "a", Symbol: "AAPL", Version: 1})
	r.OnSnapshot(window.Snapshot{SessionID: "b", Symbol: "MSFT", Version: 1})

	srv := httptest.NewServer(SSEHandler(b))
	defer srv.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	req, _ := http.NewRequestWithContext(ctx, http.MethodGet, srv.URL+"?sessions=a", nil)
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatal(err)
	}
	defer resp.Body.Close()
	if ct := resp.Header.Get("Content-Type"); ct != "text/event-stream" {
		t.Fatalf("content type %q", ct)
	}

	lines := make(chan string, 16)
	go func() {
		sc := bufio.NewScanner(resp.Body)
		for sc.Scan() {
			lines <- sc.Text()
		}
		close(lines)
	}()

	next := func() string {
		t.Helper()
		for {
			select {
			case l, ok := <-lines:
				if !ok {
					t.Fatal("stream closed")
				}
				if strings.HasPrefix(l, "data: ") {
					return l
				}
			case <-ctx.Done():
				t.Fatal("timed out waiting for event")
			}
		}
	}

	if l := next(); !strings.Contains(l, `"symbol":"AAPL"`) {
		t.Fatalf("replayed %q", l)
	}

	// Wait for the subscription before publishing live events.
	deadline := time.Now().Add(time.Second)
	for b.ClientCount() == 0 && time.Now().Before(deadline) {
		time.Sleep(5 * time.Millisecond)
	}
	r.OnSnapshot(window.Snapshot{SessionID: "b", Symbol: "IGNORED", Version: 2})
	r.OnSnapshot(window.Snapshot{SessionID: "a", Symbol: "TSLA", Version: 2})
	if l := next(); !strings.Contains(l, `"symbol":"TSLA"`) {
		t.Fatalf("live event %q", l)
	}
}
