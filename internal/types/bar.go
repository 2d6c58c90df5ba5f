package types

import (
	"fmt"
	"math"
	"time"
)

// Bar is one OHLCV record for a single timeframe bucket. Timestamp is the
// identity key.
type Bar struct {
	Timestamp string  `json:"timestamp"`
	Open      float64 `json:"open"`
	High      float64 `json:"high"`
	Low       float64 `json:"low"`
	Close     float64 `json:"close"`
	Volume    int64   `json:"volume"`
	// Synthetic marks gap-filler bars inserted for display. They are never
	// market data.
	Synthetic bool `json:"synthetic,omitempty"`
}

// Time parses the bar timestamp. Unparseable timestamps yield the zero time.
func (b Bar) Time() time.Time {
	t, err := ParseTimestamp(b.Timestamp)
	if err != nil {
		return time.Time{}
	}
	return t
}

// Valid reports whether the bar satisfies the OHLCV shape constraints.
func (b Bar) Valid() error {
	if _, err := ParseTimestamp(b.Timestamp); err != nil {
		return err
	}
	if b.High < math.Max(b.Open, b.Close) {
		return fmt.Errorf("bar %s: high %v below open/close", b.Timestamp, b.High)
	}
	if b.Low > math.Min(b.Open, b.Close) {
		return fmt.Errorf("bar %s: low %v above open/close", b.Timestamp, b.Low)
	}
	if b.Volume < 0 {
		return fmt.Errorf("bar %s: negative volume %d", b.Timestamp, b.Volume)
	}
	return nil
}

// QuoteKey identifies a streamed bar by content, ignoring volume.
type QuoteKey struct {
	Timestamp string
	Open      float64
	High      float64
	Low       float64
	Close     float64
}

// Key returns the content key used for live tick de-duplication.
func (b Bar) Key() QuoteKey {
	return QuoteKey{Timestamp: b.Timestamp, Open: b.Open, High: b.High, Low: b.Low, Close: b.Close}
}

// ParseTimestamp accepts RFC 3339 timestamps with or without fractional
// seconds.
func ParseTimestamp(s string) (time.Time, error) {
	t, err := time.Parse(time.RFC3339Nano, s)
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid timestamp %q: %w", s, err)
	}
	return t.UTC(), nil
}

// FormatTimestamp renders t in the canonical bar timestamp form.
func FormatTimestamp(t time.Time) string {
	return t.UTC().Format(time.RFC3339)
}
