package controller

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"strings"
	"sync"

	"github.com/google/uuid"

	"github.com/dgnsrekt/chartwindow/internal/livefeed"
	"github.com/dgnsrekt/chartwindow/internal/prefs"
	"github.com/dgnsrekt/chartwindow/internal/relay"
	"github.com/dgnsrekt/chartwindow/internal/types"
	"github.com/dgnsrekt/chartwindow/internal/window"
)

// Feed is the live feed as seen by the controller.
type Feed interface {
	window.Feed
	Status() livefeed.Status
}

// Deps are the shared collaborators handed to every session.
type Deps struct {
	Fetcher  window.Fetcher
	Feed     Feed              // optional
	Prefs    *prefs.Timeframes // optional
	Recorder window.Recorder   // optional
	Relay    *relay.Relay      // optional
}

// SessionInfo is the list view of a session.
type SessionInfo struct {
	ID           string          `json:"id"`
	Symbol       string          `json:"symbol"`
	Timeframe    types.Timeframe `json:"timeframe"`
	SeriesLength int             `json:"series_length"`
	Live         bool            `json:"live"`
	Error        string          `json:"error,omitempty"`
}

// Service owns the chart sessions.
type Service struct {
	opts window.Options
	deps Deps

	mu       sync.RWMutex
	sessions map[string]*window.Session
}

func NewService(opts window.Options, deps Deps) *Service {
	return &Service{opts: opts, deps: deps, sessions: make(map[string]*window.Session)}
}

func (s *Service) requireNonEmpty(value, fieldName string) error {
	if strings.TrimSpace(value) == "" {
		return types.NewError(types.CodeValidation, fieldName+" is required", nil)
	}
	return nil
}

func (s *Service) session(id string) (*window.Session, error) {
	if err := s.requireNonEmpty(id, "session_id"); err != nil {
		return nil, err
	}
	s.mu.RLock()
	sess, ok := s.sessions[strings.TrimSpace(id)]
	s.mu.RUnlock()
	if !ok {
		return nil, types.NewError(types.CodeSessionNotFound, fmt.Sprintf("session %q not found", id), nil)
	}
	return sess, nil
}

func parseTimeframe(raw string) (types.Timeframe, error) {
	tf, err := types.ParseTimeframe(raw)
	if err != nil {
		return "", types.NewError(types.CodeValidation, err.Error(), nil)
	}
	return tf, nil
}

// CreateSession registers a session and performs its initial load. A failed
// load leaves the session in place with its error state set. An empty
// timeframe uses the persisted preference.
func (s *Service) CreateSession(ctx context.Context, symbol, timeframe string, live bool) (window.Snapshot, error) {
	if err := s.requireNonEmpty(symbol, "symbol"); err != nil {
		return window.Snapshot{}, err
	}
	var tf types.Timeframe
	if strings.TrimSpace(timeframe) == "" {
		tf = prefs.DefaultTimeframe
		if s.deps.Prefs != nil {
			tf = s.deps.Prefs.LoadTimeframe(ctx)
		}
	} else {
		var err error
		if tf, err = parseTimeframe(timeframe); err != nil {
			return window.Snapshot{}, err
		}
	}

	if live && s.deps.Feed == nil {
		slog.Warn("live mode requested without a feed", "symbol", symbol)
		live = false
	}

	id := uuid.New().String()
	wd := window.Deps{Fetcher: s.deps.Fetcher, Recorder: s.deps.Recorder}
	if s.deps.Feed != nil {
		wd.Feed = s.deps.Feed
	}
	if s.deps.Prefs != nil {
		wd.Prefs = s.deps.Prefs
	}
	if s.deps.Relay != nil {
		wd.OnChange = s.deps.Relay.OnSnapshot
	}
	sess := window.New(id, strings.TrimSpace(symbol), tf, s.opts, wd)

	s.mu.Lock()
	s.sessions[id] = sess
	s.mu.Unlock()
	slog.Info("session created", "session_id", id, "symbol", symbol, "timeframe", tf, "live", live)

	if live {
		sess.SetLiveMode(true)
	}
	if err := sess.Start(ctx); err != nil {
		slog.Warn("session initial load failed", "session_id", id, "error", err)
	}
	return sess.Snapshot(), nil
}

func (s *Service) ListSessions() []SessionInfo {
	s.mu.RLock()
	list := make([]*window.Session, 0, len(s.sessions))
	for _, sess := range s.sessions {
		list = append(list, sess)
	}
	s.mu.RUnlock()

	out := make([]SessionInfo, 0, len(list))
	for _, sess := range list {
		snap := sess.Snapshot()
		out = append(out, SessionInfo{
			ID:           snap.SessionID,
			Symbol:       snap.Symbol,
			Timeframe:    snap.Timeframe,
			SeriesLength: snap.SeriesLength,
			Live:         snap.Live,
			Error:        snap.Error,
		})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

func (s *Service) GetSession(id string) (window.Snapshot, error) {
	sess, err := s.session(id)
	if err != nil {
		return window.Snapshot{}, err
	}
	return sess.Snapshot(), nil
}

func (s *Service) DeleteSession(id string) error {
	sess, err := s.session(id)
	if err != nil {
		return err
	}
	s.mu.Lock()
	delete(s.sessions, sess.ID())
	s.mu.Unlock()
	sess.Close()
	if s.deps.Relay != nil {
		s.deps.Relay.SessionClosed(sess.ID())
	}
	slog.Info("session deleted", "session_id", sess.ID())
	return nil
}

func (s *Service) Pan(id string, delta int) (window.Snapshot, error) {
	sess, err := s.session(id)
	if err != nil {
		return window.Snapshot{}, err
	}
	return sess.Pan(delta), nil
}

func (s *Service) Zoom(id string, width, anchor int) (window.Snapshot, error) {
	sess, err := s.session(id)
	if err != nil {
		return window.Snapshot{}, err
	}
	if width <= 0 {
		return window.Snapshot{}, types.NewError(types.CodeValidation, "width must be positive", nil)
	}
	// A negative anchor zooms around the right edge.
	if anchor < 0 {
		anchor = sess.Snapshot().Viewport.End
	}
	return sess.Zoom(width, anchor), nil
}

func (s *Service) SetVisibleRange(id string, start, end float64) (window.Snapshot, error) {
	sess, err := s.session(id)
	if err != nil {
		return window.Snapshot{}, err
	}
	return sess.SetVisibleRange(start, end), nil
}

func (s *Service) SkipTo(ctx context.Context, id, target string) (window.Snapshot, error) {
	sess, err := s.session(id)
	if err != nil {
		return window.Snapshot{}, err
	}
	if err := s.requireNonEmpty(target, "target"); err != nil {
		return window.Snapshot{}, err
	}
	t, err := types.ParseTimestamp(strings.TrimSpace(target))
	if err != nil {
		return window.Snapshot{}, types.NewError(types.CodeValidation, "target must be an RFC 3339 timestamp", err)
	}
	if err := sess.SkipTo(ctx, t); err != nil {
		return sess.Snapshot(), err
	}
	return sess.Snapshot(), nil
}

func (s *Service) SetTimeframe(ctx context.Context, id, timeframe string) (window.Snapshot, error) {
	sess, err := s.session(id)
	if err != nil {
		return window.Snapshot{}, err
	}
	tf, err := parseTimeframe(timeframe)
	if err != nil {
		return window.Snapshot{}, err
	}
	if err := sess.SetTimeframe(ctx, tf); err != nil {
		return sess.Snapshot(), err
	}
	return sess.Snapshot(), nil
}

func (s *Service) SetSymbol(ctx context.Context, id, symbol string) (window.Snapshot, error) {
	sess, err := s.session(id)
	if err != nil {
		return window.Snapshot{}, err
	}
	if err := s.requireNonEmpty(symbol, "symbol"); err != nil {
		return window.Snapshot{}, err
	}
	if err := sess.SetSymbol(ctx, strings.TrimSpace(symbol)); err != nil {
		return sess.Snapshot(), err
	}
	return sess.Snapshot(), nil
}

func (s *Service) SetLive(id string, enabled bool) (window.Snapshot, error) {
	sess, err := s.session(id)
	if err != nil {
		return window.Snapshot{}, err
	}
	if enabled && s.deps.Feed == nil {
		return window.Snapshot{}, types.NewError(types.CodeFeedUnavailable, "no live feed configured", nil)
	}
	return sess.SetLiveMode(enabled), nil
}

func (s *Service) BeginGesture(id string) (window.Snapshot, error) {
	sess, err := s.session(id)
	if err != nil {
		return window.Snapshot{}, err
	}
	return sess.BeginGesture(), nil
}

func (s *Service) EndGesture(id string) (window.Snapshot, error) {
	sess, err := s.session(id)
	if err != nil {
		return window.Snapshot{}, err
	}
	return sess.EndGesture(), nil
}

func (s *Service) Retry(ctx context.Context, id string) (window.Snapshot, error) {
	sess, err := s.session(id)
	if err != nil {
		return window.Snapshot{}, err
	}
	if err := sess.Retry(ctx); err != nil {
		return sess.Snapshot(), err
	}
	return sess.Snapshot(), nil
}

func (s *Service) FeedStatus() (livefeed.Status, error) {
	if s.deps.Feed == nil {
		return livefeed.Status{}, types.NewError(types.CodeFeedUnavailable, "no live feed configured", nil)
	}
	return s.deps.Feed.Status(), nil
}

// Close closes every session and waits for their in-flight loads.
func (s *Service) Close() {
	s.mu.Lock()
	sessions := s.sessions
	s.sessions = make(map[string]*window.Session)
	s.mu.Unlock()
	for _, sess := range sessions {
		sess.Close()
	}
	slog.Info("sessions closed", "count", len(sessions))
}
