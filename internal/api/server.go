package api

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/danielgtaylor/huma/v2"
	"github.com/danielgtaylor/huma/v2/adapters/humachi"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/dgnsrekt/chartwindow/internal/controller"
	"github.com/dgnsrekt/chartwindow/internal/livefeed"
	"github.com/dgnsrekt/chartwindow/internal/types"
	"github.com/dgnsrekt/chartwindow/internal/window"
)

type Service interface {
	CreateSession(ctx context.Context, symbol, timeframe string, live bool) (window.Snapshot, error)
	ListSessions() []controller.SessionInfo
	GetSession(id string) (window.Snapshot, error)
	DeleteSession(id string) error
	Pan(id string, delta int) (window.Snapshot, error)
	Zoom(id string, width, anchor int) (window.Snapshot, error)
	SetVisibleRange(id string, start, end float64) (window.Snapshot, error)
	SkipTo(ctx context.Context, id, target string) (window.Snapshot, error)
	SetTimeframe(ctx context.Context, id, timeframe string) (window.Snapshot, error)
	SetSymbol(ctx context.Context, id, symbol string) (window.Snapshot, error)
	SetLive(id string, enabled bool) (window.Snapshot, error)
	BeginGesture(id string) (window.Snapshot, error)
	EndGesture(id string) (window.Snapshot, error)
	Retry(ctx context.Context, id string) (window.Snapshot, error)
	FeedStatus() (livefeed.Status, error)
}

type sessionIDInput struct {
	SessionID string `path:"session_id"`
}

type snapshotOutput struct {
	Body window.Snapshot
}

// NewServer builds the HTTP surface. events, when non-nil, is mounted at
// /api/v1/events as the server-sent event stream.
func NewServer(svc Service, events http.Handler) http.Handler {
	router := chi.NewMux()
	router.Use(middleware.RequestID)
	router.Use(requestLogger)
	router.Use(middleware.Recoverer)

	cfg := huma.DefaultConfig("Chart Window API", "1.0.0")
	cfg.DocsPath = ""
	api := humachi.New(router, cfg)

	router.Get("/docs", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/html")
		if _, err := w.Write([]byte(docsHTML)); err != nil {
			slog.Debug("docs response write failed", "error", err)
		}
	})
	if events != nil {
		router.Handle("/api/v1/events", events)
	}

	registerSessionHandlers(api, svc)
	registerViewportHandlers(api, svc)
	registerMiscHandlers(api, svc)

	return router
}

func registerMiscHandlers(api huma.API, svc Service) {
	type healthOutput struct {
		Body struct {
			Status string `json:"status"`
		}
	}
	huma.Register(api, huma.Operation{OperationID: "health", Method: http.MethodGet, Path: "/health", Summary: "Health check", Tags: []string{"Health"}},
		func(ctx context.Context, input *struct{}) (*healthOutput, error) {
			out := &healthOutput{}
			out.Body.Status = "ok"
			return out, nil
		})

	type feedOutput struct {
		Body livefeed.Status
	}
	huma.Register(api, huma.Operation{OperationID: "feed-status", Method: http.MethodGet, Path: "/api/v1/feed", Summary: "Live quote feed status", Tags: []string{"Feed"}},
		func(ctx context.Context, input *struct{}) (*feedOutput, error) {
			st, err := svc.FeedStatus()
			if err != nil {
				return nil, mapErr(err)
			}
			return &feedOutput{Body: st}, nil
		})
}

func mapErr(err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, window.ErrClosed) {
		return huma.Error409Conflict(err.Error())
	}
	var coded *types.CodedError
	if errors.As(err, &coded) {
		switch coded.Code {
		case types.CodeValidation:
			return huma.Error400BadRequest(coded.Message)
		case types.CodeSessionNotFound:
			return huma.Error404NotFound(coded.Message)
		case types.CodeTransport:
			return huma.Error502BadGateway(coded.Error())
		case types.CodeFeedUnavailable:
			return huma.Error503ServiceUnavailable(coded.Message)
		default:
			return huma.Error500InternalServerError(fmt.Sprintf("%s: %s", coded.Code, coded.Message))
		}
	}
	return huma.Error500InternalServerError(err.Error())
}
