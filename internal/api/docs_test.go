package api

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/dgnsrekt/chartwindow/internal/controller"
	"github.com/dgnsrekt/chartwindow/internal/livefeed"
	"github.com/dgnsrekt/chartwindow/internal/types"
	"github.com/dgnsrekt/chartwindow/internal/viewport"
	"github.com/dgnsrekt/chartwindow/internal/window"
)

type stubService struct {
	lastDelta int
	lastWidth int
	anchor    int
}

func stubSnapshot(id string) window.Snapshot {
	return window.Snapshot{SessionID: id, Symbol: "AAPL", Timeframe: types.Timeframe1h, Viewport: viewport.Viewport{Start: 10, End: 19}, SeriesLength: 20}
}

func (s *stubService) lookup(id string) (window.Snapshot, error) {
	if id != "s1" {
		return window.Snapshot{}, types.NewError(types.CodeSessionNotFound, "session not found", nil)
	}
	return stubSnapshot(id), nil
}

func (s *stubService) CreateSession(ctx context.Context, symbol, timeframe string, live bool) (window.Snapshot, error) {
	if symbol == "" {
		return window.Snapshot{}, types.NewError(types.CodeValidation, "symbol is required", nil)
	}
	return stubSnapshot("s1"), nil
}
func (s *stubService) ListSessions() []controller.SessionInfo {
	return []controller.SessionInfo{{ID: "s1", Symbol: "AAPL", Timeframe: types.Timeframe1h}}
}
func (s *stubService) GetSession(id string) (window.Snapshot, error) { return s.lookup(id) }
func (s *stubService) DeleteSession(id string) error {
	_, err := s.lookup(id)
	return err
}
func (s *stubService) Pan(id string, delta int) (window.Snapshot, error) {
	s.lastDelta = delta
	return s.lookup(id)
}
func (s *stubService) Zoom(id string, width, anchor int) (window.Snapshot, error) {
	s.lastWidth, s.anchor = width, anchor
	return s.lookup(id)
}
func (s *stubService) SetVisibleRange(id string, start, end float64) (window.Snapshot, error) {
	return s.lookup(id)
}
func (s *stubService) SkipTo(ctx context.Context, id, target string) (window.Snapshot, error) {
	snap, err := s.lookup(id)
	if err != nil {
		return snap, err
	}
	return snap, types.NewError(types.CodeTransport, "fetch centered bars", nil)
}
func (s *stubService) SetTimeframe(ctx context.Context, id, timeframe string) (window.Snapshot, error) {
	return s.lookup(id)
}
func (s *stubService) SetSymbol(ctx context.Context, id, symbol string) (window.Snapshot, error) {
	return s.lookup(id)
}
func (s *stubService) SetLive(id string, enabled bool) (window.Snapshot, error) { return s.lookup(id) }
func (s *stubService) BeginGesture(id string) (window.Snapshot, error)          { return s.lookup(id) }
func (s *stubService) EndGesture(id string) (window.Snapshot, error)            { return s.lookup(id) }
func (s *stubService) Retry(ctx context.Context, id string) (window.Snapshot, error) {
	return s.lookup(id)
}
func (s *stubService) FeedStatus() (livefeed.Status, error) {
	return livefeed.Status{}, types.NewError(types.CodeFeedUnavailable, "no live feed configured", nil)
}

func do(t *testing.T, h http.Handler, method, path, body string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	w := httptest.NewRecorder()
	h.ServeHTTP(w, req)
	return w
}

func TestDocsDarkMode(t *testing.T) {
	h := NewServer(&stubService{}, nil)
	w := do(t, h, http.MethodGet, "/docs", "")

	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, want %d", w.Code, http.StatusOK)
	}
	body := w.Body.String()
	if !strings.Contains(body, `data-theme="dark"`) {
		t.Fatalf("docs missing dark theme marker")
	}
}

func TestCreateSession(t *testing.T) {
	h := NewServer(&stubService{}, nil)
	w := do(t, h, http.MethodPost, "/api/v1/sessions", `{"symbol":"AAPL","timeframe":"1h"}`)
	if w.Code != http.StatusCreated {
		t.Fatalf("status = %d, want %d: %s", w.Code, http.StatusCreated, w.Body.String())
	}
	var snap window.Snapshot
	if err := json.Unmarshal(w.Body.Bytes(), &snap); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if snap.SessionID != "s1" || snap.Viewport.End != 19 {
		t.Fatalf("snapshot = %+v", snap)
	}
}

func TestErrorMapping(t *testing.T) {
	h := NewServer(&stubService{}, nil)
	cases := []struct {
		name   string
		method string
		path   string
		body   string
		want   int
	}{
		{"validation", http.MethodPost, "/api/v1/sessions", `{"symbol":""}`, http.StatusBadRequest},
		{"not found", http.MethodGet, "/api/v1/sessions/nope", "", http.StatusNotFound},
		{"transport", http.MethodPost, "/api/v1/sessions/s1/skip-to", `{"target":"2024-01-02T00:00:00Z"}`, http.StatusBadGateway},
		{"feed unavailable", http.MethodGet, "/api/v1/feed", "", http.StatusServiceUnavailable},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			w := do(t, h, tc.method, tc.path, tc.body)
			if w.Code != tc.want {
				t.Fatalf("status = %d, want %d: %s", w.Code, tc.want, w.Body.String())
			}
		})
	}
}

func TestViewportIntents(t *testing.T) {
	svc := &stubService{}
	h := NewServer(svc, nil)

	if w := do(t, h, http.MethodPost, "/api/v1/sessions/s1/pan", `{"delta":-7}`); w.Code != http.StatusOK {
		t.Fatalf("pan status = %d: %s", w.Code, w.Body.String())
	}
	if svc.lastDelta != -7 {
		t.Fatalf("pan delta = %d, want -7", svc.lastDelta)
	}

	if w := do(t, h, http.MethodPost, "/api/v1/sessions/s1/zoom", `{"width":40}`); w.Code != http.StatusOK {
		t.Fatalf("zoom status = %d: %s", w.Code, w.Body.String())
	}
	if svc.lastWidth != 40 || svc.anchor != -1 {
		t.Fatalf("zoom = (%d, %d), want (40, -1)", svc.lastWidth, svc.anchor)
	}
}

func TestEventsMounted(t *testing.T) {
	events := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTeapot)
	})
	h := NewServer(&stubService{}, events)
	if w := do(t, h, http.MethodGet, "/api/v1/events", ""); w.Code != http.StatusTeapot {
		t.Fatalf("status = %d, want %d", w.Code, http.StatusTeapot)
	}
}
