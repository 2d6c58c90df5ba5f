package storage

import (
	"strings"

	"github.com/dgnsrekt/chartwindow/internal/types"
)

// StreamName returns the filesystem-safe file stem for a symbol and
// timeframe, e.g. "BTC-USD_1h". "1M" becomes "1mo" so it cannot collide with
// "1m" on case-insensitive filesystems.
func StreamName(symbol string, tf types.Timeframe) string {
	return SanitizeSegment(symbol) + "_" + timeframeSegment(tf)
}

func timeframeSegment(tf types.Timeframe) string {
	if tf == types.Timeframe1M {
		return "1mo"
	}
	return string(tf)
}

// SanitizeSegment maps anything outside [A-Za-z0-9._-] to '-'.
func SanitizeSegment(s string) string {
	s = strings.TrimSpace(s)
	if s == "" {
		return "unknown"
	}
	var b strings.Builder
	for _, r := range s {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9', r == '.', r == '_', r == '-':
			b.WriteRune(r)
		default:
			b.WriteByte('-')
		}
	}
	out := b.String()
	if out == "." || out == ".." {
		return "unknown"
	}
	return out
}
