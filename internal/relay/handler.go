package relay

import (
	"fmt"
	"log/slog"
	"net/http"
	"strings"
)

// SSEHandler streams events as server-sent events. ?sessions=id1,id2
// restricts the stream to those sessions plus FeedTopic. Each matching
// topic's latest event is sent first.
func SSEHandler(broker *Broker) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		flusher, ok := w.(http.Flusher)
		if !ok {
			http.Error(w, "streaming not supported", http.StatusInternalServerError)
			return
		}

		var topics map[string]bool
		if q := r.URL.Query().Get("sessions"); q != "" {
			topics = map[string]bool{FeedTopic: true}
			for _, s := range strings.Split(q, ",") {
				if s = strings.TrimSpace(s); s != "" {
					topics[s] = true
				}
			}
		}

		w.Header().Set("Content-Type", "text/event-stream")
		w.Header().Set("Cache-Control", "no-cache")
		w.Header().Set("Connection", "keep-alive")
		w.Header().Set("X-Accel-Buffering", "no")

		id, ch, replay := broker.Subscribe(topics)
		defer func() {
			if dropped := broker.Unsubscribe(id); dropped > 0 {
				slog.Warn("sse client fell behind", "subscriber_id", id, "dropped", dropped)
			}
		}()

		for _, evt := range replay {
			writeEvent(w, evt)
		}
		flusher.Flush()

		for {
			select {
			case <-r.Context().Done():
				return
			case evt, ok := <-ch:
				if !ok {
					return
				}
				writeEvent(w, evt)
				flusher.Flush()
			}
		}
	}
}

func writeEvent(w http.ResponseWriter, evt Event) {
	fmt.Fprintf(w, "event: %s\nid: %s\ndata: %s\n\n", evt.Kind, evt.Topic, evt.Payload)
}
