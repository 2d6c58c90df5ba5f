package types

import (
	"fmt"
	"strings"
	"time"
)

// Timeframe is the bucket size of a bar series.
type Timeframe string

const (
	Timeframe1m  Timeframe = "1m"
	Timeframe5m  Timeframe = "5m"
	Timeframe15m Timeframe = "15m"
	Timeframe30m Timeframe = "30m"
	Timeframe1h  Timeframe = "1h"
	Timeframe2h  Timeframe = "2h"
	Timeframe4h  Timeframe = "4h"
	Timeframe1d  Timeframe = "1d"
	Timeframe1w  Timeframe = "1w"
	Timeframe1M  Timeframe = "1M"
)

// Timeframes lists every supported timeframe, finest first.
var Timeframes = []Timeframe{
	Timeframe1m, Timeframe5m, Timeframe15m, Timeframe30m,
	Timeframe1h, Timeframe2h, Timeframe4h,
	Timeframe1d, Timeframe1w, Timeframe1M,
}

// ParseTimeframe validates s. Only "1M" is case sensitive (month vs minute).
func ParseTimeframe(s string) (Timeframe, error) {
	s = strings.TrimSpace(s)
	if s == "1M" {
		return Timeframe1M, nil
	}
	tf := Timeframe(strings.ToLower(s))
	for _, known := range Timeframes {
		if tf == known {
			return tf, nil
		}
	}
	return "", fmt.Errorf("unknown timeframe %q", s)
}

// Duration returns the nominal bucket length. Months are treated as 30 days;
// use Align/Next for calendar-correct month buckets.
func (tf Timeframe) Duration() time.Duration {
	switch tf {
	case Timeframe1m:
		return time.Minute
	case Timeframe5m:
		return 5 * time.Minute
	case Timeframe15m:
		return 15 * time.Minute
	case Timeframe30m:
		return 30 * time.Minute
	case Timeframe1h:
		return time.Hour
	case Timeframe2h:
		return 2 * time.Hour
	case Timeframe4h:
		return 4 * time.Hour
	case Timeframe1d:
		return 24 * time.Hour
	case Timeframe1w:
		return 7 * 24 * time.Hour
	case Timeframe1M:
		return 30 * 24 * time.Hour
	}
	return 0
}

// Align floors t to the start of its bucket in UTC. Weeks start on Monday.
func (tf Timeframe) Align(t time.Time) time.Time {
	t = t.UTC()
	switch tf {
	case Timeframe1d:
		return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
	case Timeframe1w:
		day := time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
		offset := (int(day.Weekday()) + 6) % 7
		return day.AddDate(0, 0, -offset)
	case Timeframe1M:
		return time.Date(t.Year(), t.Month(), 1, 0, 0, 0, 0, time.UTC)
	}
	d := tf.Duration()
	if d <= 0 {
		return t
	}
	return t.Truncate(d)
}

// Next returns the start of the bucket following the one containing t.
func (tf Timeframe) Next(t time.Time) time.Time {
	start := tf.Align(t)
	switch tf {
	case Timeframe1w:
		return start.AddDate(0, 0, 7)
	case Timeframe1M:
		return start.AddDate(0, 1, 0)
	case Timeframe1d:
		return start.AddDate(0, 0, 1)
	}
	return start.Add(tf.Duration())
}

func (tf Timeframe) String() string { return string(tf) }
