package window

import (
	"context"
	"time"

	"github.com/dgnsrekt/chartwindow/internal/types"
)

// PrunePolicy decides where the retained window sits relative to the
// viewport when the series is trimmed.
type PrunePolicy string

const (
	// PruneAnchorStart keeps the window starting at the viewport start.
	// Everything before the viewport is dropped and the next settle
	// reloads it, since the viewport now sits at the head.
	PruneAnchorStart PrunePolicy = "start"
	// PruneAnchorCenter centers the viewport inside the retained window,
	// keeping up to BufferSize bars on each side of it, so a trimmed edge
	// stays outside LoadMargin of the viewport. It is the default;
	// set PrunePolicy to PruneAnchorStart for start-anchored trimming.
	PruneAnchorCenter PrunePolicy = "center"
)

// Options tunes a session. Zero fields take the DefaultOptions value.
type Options struct {
	BufferSize     int
	DefaultWindow  int
	LoadMargin     int
	MinZoomWidth   int
	EndOfDataRatio float64
	Cooldown       time.Duration
	SettleDelay    time.Duration
	PruneDelay     time.Duration
	FetchTimeout   time.Duration
	MaxGap         int
	PrunePolicy    PrunePolicy
	Now            func() time.Time
}

// DefaultOptions returns the production tuning. Pruning centers on the
// viewport (PruneAnchorCenter).
func DefaultOptions() Options {
	return Options{
		BufferSize:     500,
		DefaultWindow:  80,
		LoadMargin:     20,
		MinZoomWidth:   5,
		EndOfDataRatio: 0.01,
		Cooldown:       30 * time.Second,
		SettleDelay:    100 * time.Millisecond,
		PruneDelay:     200 * time.Millisecond,
		FetchTimeout:   15 * time.Second,
		MaxGap:         30,
		PrunePolicy:    PruneAnchorCenter,
		Now:            time.Now,
	}
}

func (o Options) withDefaults() Options {
	d := DefaultOptions()
	if o.BufferSize <= 0 {
		o.BufferSize = d.BufferSize
	}
	if o.DefaultWindow <= 0 {
		o.DefaultWindow = d.DefaultWindow
	}
	if o.LoadMargin < 0 {
		o.LoadMargin = 0
	}
	if o.MinZoomWidth <= 0 {
		o.MinZoomWidth = d.MinZoomWidth
	}
	if o.EndOfDataRatio <= 0 {
		o.EndOfDataRatio = d.EndOfDataRatio
	}
	if o.Cooldown <= 0 {
		o.Cooldown = d.Cooldown
	}
	if o.SettleDelay <= 0 {
		o.SettleDelay = d.SettleDelay
	}
	if o.PruneDelay <= 0 {
		o.PruneDelay = d.PruneDelay
	}
	if o.FetchTimeout <= 0 {
		o.FetchTimeout = d.FetchTimeout
	}
	if o.MaxGap <= 0 {
		o.MaxGap = d.MaxGap
	}
	if o.PrunePolicy == "" {
		o.PrunePolicy = d.PrunePolicy
	}
	if o.Now == nil {
		o.Now = d.Now
	}
	return o
}

// Fetcher loads historical bars. Implemented by chartdata.Client.
type Fetcher interface {
	FetchBars(ctx context.Context, q types.Query) ([]types.Bar, error)
}

// TickHandler receives one streamed bar.
type TickHandler = func(symbol string, bar types.Bar)

// Feed is a live quote subscription keyed by symbol. Implemented by
// livefeed.Client. Handlers must not be invoked while the feed holds locks
// that Subscribe or the returned cancel func also take.
type Feed interface {
	Subscribe(symbol string, fn TickHandler) (cancel func())
}

// TimeframeSaver persists the last selected timeframe. Implementations log
// their own failures.
type TimeframeSaver interface {
	SaveTimeframe(ctx context.Context, tf types.Timeframe)
}

// Recorder journals bars as they are received.
type Recorder interface {
	RecordBars(symbol string, tf types.Timeframe, source string, bars []types.Bar)
}

// Deps are the collaborators of a session. Only Fetcher is required.
type Deps struct {
	Fetcher  Fetcher
	Feed     Feed
	Prefs    TimeframeSaver
	Recorder Recorder
	OnChange func(Snapshot)
}
