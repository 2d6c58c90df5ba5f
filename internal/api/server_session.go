package api

import (
	"context"
	"net/http"

	"github.com/danielgtaylor/huma/v2"

	"github.com/dgnsrekt/chartwindow/internal/controller"
)

func registerSessionHandlers(api huma.API, svc Service) {
	type createInput struct {
		Body struct {
			Symbol    string `json:"symbol" doc:"Instrument symbol"`
			Timeframe string `json:"timeframe,omitempty" doc:"Bar timeframe such as 1m or 1h. Omit to use the saved preference."`
			Live      bool   `json:"live,omitempty" doc:"Subscribe to streamed quotes"`
		}
	}
	huma.Register(api, huma.Operation{OperationID: "create-session", Method: http.MethodPost, Path: "/api/v1/sessions", Summary: "Open a chart session and load the newest bars", Tags: []string{"Sessions"}, DefaultStatus: http.StatusCreated},
		func(ctx context.Context, input *createInput) (*snapshotOutput, error) {
			snap, err := svc.CreateSession(ctx, input.Body.Symbol, input.Body.Timeframe, input.Body.Live)
			if err != nil {
				return nil, mapErr(err)
			}
			return &snapshotOutput{Body: snap}, nil
		})

	type listOutput struct {
		Body struct {
			Sessions []controller.SessionInfo `json:"sessions"`
		}
	}
	huma.Register(api, huma.Operation{OperationID: "list-sessions", Method: http.MethodGet, Path: "/api/v1/sessions", Summary: "List chart sessions", Tags: []string{"Sessions"}},
		func(ctx context.Context, input *struct{}) (*listOutput, error) {
			out := &listOutput{}
			out.Body.Sessions = svc.ListSessions()
			return out, nil
		})

	huma.Register(api, huma.Operation{OperationID: "get-session", Method: http.MethodGet, Path: "/api/v1/sessions/{session_id}", Summary: "Get the visible bars and viewport", Tags: []string{"Sessions"}},
		func(ctx context.Context, input *sessionIDInput) (*snapshotOutput, error) {
			snap, err := svc.GetSession(input.SessionID)
			if err != nil {
				return nil, mapErr(err)
			}
			return &snapshotOutput{Body: snap}, nil
		})

	type deleteOutput struct {
		Body struct {
			SessionID string `json:"session_id"`
			Status    string `json:"status"`
		}
	}
	huma.Register(api, huma.Operation{OperationID: "delete-session", Method: http.MethodDelete, Path: "/api/v1/sessions/{session_id}", Summary: "Close a chart session", Tags: []string{"Sessions"}},
		func(ctx context.Context, input *sessionIDInput) (*deleteOutput, error) {
			if err := svc.DeleteSession(input.SessionID); err != nil {
				return nil, mapErr(err)
			}
			out := &deleteOutput{}
			out.Body.SessionID = input.SessionID
			out.Body.Status = "closed"
			return out, nil
		})

	type timeframeInput struct {
		SessionID string `path:"session_id"`
		Body      struct {
			Timeframe string `json:"timeframe" doc:"Bar timeframe such as 1m or 1h"`
		}
	}
	huma.Register(api, huma.Operation{OperationID: "set-timeframe", Method: http.MethodPut, Path: "/api/v1/sessions/{session_id}/timeframe", Summary: "Switch timeframe and reload", Tags: []string{"Sessions"}},
		func(ctx context.Context, input *timeframeInput) (*snapshotOutput, error) {
			snap, err := svc.SetTimeframe(ctx, input.SessionID, input.Body.Timeframe)
			if err != nil {
				return nil, mapErr(err)
			}
			return &snapshotOutput{Body: snap}, nil
		})

	type symbolInput struct {
		SessionID string `path:"session_id"`
		Body      struct {
			Symbol string `json:"symbol"`
		}
	}
	huma.Register(api, huma.Operation{OperationID: "set-symbol", Method: http.MethodPut, Path: "/api/v1/sessions/{session_id}/symbol", Summary: "Switch symbol and reload", Tags: []string{"Sessions"}},
		func(ctx context.Context, input *symbolInput) (*snapshotOutput, error) {
			snap, err := svc.SetSymbol(ctx, input.SessionID, input.Body.Symbol)
			if err != nil {
				return nil, mapErr(err)
			}
			return &snapshotOutput{Body: snap}, nil
		})

	type liveInput struct {
		SessionID string `path:"session_id"`
		Body      struct {
			Enabled bool `json:"enabled"`
		}
	}
	huma.Register(api, huma.Operation{OperationID: "set-live", Method: http.MethodPut, Path: "/api/v1/sessions/{session_id}/live", Summary: "Toggle streamed quotes", Tags: []string{"Sessions"}},
		func(ctx context.Context, input *liveInput) (*snapshotOutput, error) {
			snap, err := svc.SetLive(input.SessionID, input.Body.Enabled)
			if err != nil {
				return nil, mapErr(err)
			}
			return &snapshotOutput{Body: snap}, nil
		})

	huma.Register(api, huma.Operation{OperationID: "retry-session", Method: http.MethodPost, Path: "/api/v1/sessions/{session_id}/retry", Summary: "Clear the error state and reload", Tags: []string{"Sessions"}},
		func(ctx context.Context, input *sessionIDInput) (*snapshotOutput, error) {
			snap, err := svc.Retry(ctx, input.SessionID)
			if err != nil {
				return nil, mapErr(err)
			}
			return &snapshotOutput{Body: snap}, nil
		})
}
