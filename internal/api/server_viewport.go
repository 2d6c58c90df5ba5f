package api

import (
	"context"
	"net/http"

	"github.com/danielgtaylor/huma/v2"
)

func registerViewportHandlers(api huma.API, svc Service) {
	type panInput struct {
		SessionID string `path:"session_id"`
		Body      struct {
			Delta int `json:"delta" doc:"Bars to move. Negative values move into history."`
		}
	}
	huma.Register(api, huma.Operation{OperationID: "pan", Method: http.MethodPost, Path: "/api/v1/sessions/{session_id}/pan", Summary: "Pan the viewport", Tags: []string{"Viewport"}},
		func(ctx context.Context, input *panInput) (*snapshotOutput, error) {
			snap, err := svc.Pan(input.SessionID, input.Body.Delta)
			if err != nil {
				return nil, mapErr(err)
			}
			return &snapshotOutput{Body: snap}, nil
		})

	type zoomInput struct {
		SessionID string `path:"session_id"`
		Body      struct {
			Width  int `json:"width" minimum:"1" doc:"Visible bar count"`
			Anchor int `json:"anchor,omitempty" default:"-1" doc:"Series index kept in place. Negative zooms around the right edge."`
		}
	}
	huma.Register(api, huma.Operation{OperationID: "zoom", Method: http.MethodPost, Path: "/api/v1/sessions/{session_id}/zoom", Summary: "Zoom the viewport", Tags: []string{"Viewport"}},
		func(ctx context.Context, input *zoomInput) (*snapshotOutput, error) {
			snap, err := svc.Zoom(input.SessionID, input.Body.Width, input.Body.Anchor)
			if err != nil {
				return nil, mapErr(err)
			}
			return &snapshotOutput{Body: snap}, nil
		})

	type rangeInput struct {
		SessionID string `path:"session_id"`
		Body      struct {
			Start float64 `json:"start"`
			End   float64 `json:"end"`
		}
	}
	huma.Register(api, huma.Operation{OperationID: "set-visible-range", Method: http.MethodPut, Path: "/api/v1/sessions/{session_id}/viewport", Summary: "Set the visible index range", Tags: []string{"Viewport"}},
		func(ctx context.Context, input *rangeInput) (*snapshotOutput, error) {
			snap, err := svc.SetVisibleRange(input.SessionID, input.Body.Start, input.Body.End)
			if err != nil {
				return nil, mapErr(err)
			}
			return &snapshotOutput{Body: snap}, nil
		})

	type skipInput struct {
		SessionID string `path:"session_id"`
		Body      struct {
			Target string `json:"target" doc:"RFC 3339 timestamp to center on"`
		}
	}
	huma.Register(api, huma.Operation{OperationID: "skip-to", Method: http.MethodPost, Path: "/api/v1/sessions/{session_id}/skip-to", Summary: "Jump to a point in history", Tags: []string{"Viewport"}},
		func(ctx context.Context, input *skipInput) (*snapshotOutput, error) {
			snap, err := svc.SkipTo(ctx, input.SessionID, input.Body.Target)
			if err != nil {
				return nil, mapErr(err)
			}
			return &snapshotOutput{Body: snap}, nil
		})

	huma.Register(api, huma.Operation{OperationID: "begin-gesture", Method: http.MethodPost, Path: "/api/v1/sessions/{session_id}/gesture/begin", Summary: "Mark an interaction in progress", Tags: []string{"Viewport"}},
		func(ctx context.Context, input *sessionIDInput) (*snapshotOutput, error) {
			snap, err := svc.BeginGesture(input.SessionID)
			if err != nil {
				return nil, mapErr(err)
			}
			return &snapshotOutput{Body: snap}, nil
		})

	huma.Register(api, huma.Operation{OperationID: "end-gesture", Method: http.MethodPost, Path: "/api/v1/sessions/{session_id}/gesture/end", Summary: "Mark an interaction finished", Tags: []string{"Viewport"}},
		func(ctx context.Context, input *sessionIDInput) (*snapshotOutput, error) {
			snap, err := svc.EndGesture(input.SessionID)
			if err != nil {
				return nil, mapErr(err)
			}
			return &snapshotOutput{Body: snap}, nil
		})
}
