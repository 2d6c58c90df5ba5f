// Package chartdata is the HTTP client for the chart-data REST endpoint.
package chartdata

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/dgnsrekt/chartwindow/internal/series"
	"github.com/dgnsrekt/chartwindow/internal/types"
)

// Path is the chart data endpoint relative to the base URL.
const Path = "/api/chart-data"

// Client fetches bars from a chart data provider.
type Client struct {
	BaseURL string // e.g. http://127.0.0.1:8000
	Token   string // optional bearer token
	HTTP    *http.Client
	Now     func() time.Time
}

// New returns a client with its own http.Client.
func New(baseURL, token string, timeout time.Duration) *Client {
	return &Client{
		BaseURL: strings.TrimRight(baseURL, "/"),
		Token:   token,
		HTTP:    &http.Client{Timeout: timeout},
	}
}

type chartDataResp struct {
	Bars []types.Bar `json:"bars"`
}

// FetchBars implements the past, future and centered queries. Centered is
// served as two sub-queries of ⌊limit/2⌋ bars: strictly before the target
// and at or after it. The result is always ascending and de-duplicated.
func (c *Client) FetchBars(ctx context.Context, q types.Query) ([]types.Bar, error) {
	if err := q.Validate(); err != nil {
		return nil, err
	}
	if q.Direction != types.DirectionCentered {
		bars, err := c.get(ctx, q)
		if err != nil {
			return nil, err
		}
		return series.Merge(nil, bars), nil
	}

	target := q.Start
	if target.IsZero() {
		target = c.now()
	}
	half := max(1, q.Limit/2)

	before, err := c.get(ctx, types.Query{Symbol: q.Symbol, Timeframe: q.Timeframe, Limit: half, Start: target, Direction: types.DirectionPast})
	if err != nil {
		return nil, err
	}
	after, err := c.get(ctx, types.Query{Symbol: q.Symbol, Timeframe: q.Timeframe, Limit: half, Start: target, Direction: types.DirectionFuture})
	if err != nil {
		return nil, err
	}

	pastHalf := make([]types.Bar, 0, len(before))
	for _, b := range before {
		if b.Time().Before(target) {
			pastHalf = append(pastHalf, b)
		}
	}
	futureHalf := make([]types.Bar, 0, len(after))
	for _, b := range after {
		if !b.Time().Before(target) {
			futureHalf = append(futureHalf, b)
		}
	}
	slog.Debug("centered fetch", "symbol", q.Symbol, "timeframe", q.Timeframe, "past", len(pastHalf), "future", len(futureHalf))
	return series.Merge(pastHalf, futureHalf), nil
}

func (c *Client) now() time.Time {
	if c.Now != nil {
		return c.Now()
	}
	return time.Now()
}

func (c *Client) get(ctx context.Context, q types.Query) ([]types.Bar, error) {
	if c.BaseURL == "" {
		return nil, types.NewError(types.CodeValidation, "chartdata: missing base url", nil)
	}
	u, err := url.Parse(c.BaseURL)
	if err != nil {
		return nil, types.NewError(types.CodeValidation, "chartdata: invalid base url", err)
	}
	u = u.JoinPath(Path)

	v := u.Query()
	v.Set("symbol", q.Symbol)
	v.Set("timeframe", string(q.Timeframe))
	v.Set("limit", strconv.Itoa(q.Limit))
	v.Set("direction", string(q.Direction))
	if !q.Start.IsZero() {
		v.Set("start_time", types.FormatTimestamp(q.Start))
	}
	u.RawQuery = v.Encode()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u.String(), nil)
	if err != nil {
		return nil, types.NewError(types.CodeTransport, "chartdata: build request", err)
	}
	req.Header.Set("Accept", "application/json")
	if c.Token != "" {
		req.Header.Set("Authorization", "Bearer "+c.Token)
	}

	httpClient := c.HTTP
	if httpClient == nil {
		httpClient = http.DefaultClient
	}
	resp, err := httpClient.Do(req)
	if err != nil {
		return nil, types.NewError(types.CodeTransport, "chartdata: request failed", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		b, _ := io.ReadAll(io.LimitReader(resp.Body, 4*1024))
		return nil, types.NewError(types.CodeTransport,
			fmt.Sprintf("chartdata: http %d: %s", resp.StatusCode, strings.TrimSpace(string(b))), nil)
	}

	var cr chartDataResp
	if err := json.NewDecoder(resp.Body).Decode(&cr); err != nil {
		return nil, types.NewError(types.CodeTransport, "chartdata: decode response", err)
	}
	return cr.Bars, nil
}
