package types

import (
	"errors"
	"testing"
	"time"
)

func TestParseTimeframe(t *testing.T) {
	cases := map[string]Timeframe{
		"1m":  Timeframe1m,
		"1M":  Timeframe1M,
		" 1H": Timeframe1h,
		"4h":  Timeframe4h,
		"1w":  Timeframe1w,
	}
	for in, want := range cases {
		got, err := ParseTimeframe(in)
		if err != nil {
			t.Fatalf("ParseTimeframe(%q) error = %v", in, err)
		}
		if got != want {
			t.Fatalf("ParseTimeframe(%q) = %q; want %q", in, got, want)
		}
	}
	if _, err := ParseTimeframe("3m"); err == nil {
		t.Fatalf("ParseTimeframe(3m) = nil error; want error")
	}
}

func TestTimeframeAlign(t *testing.T) {
	ts := time.Date(2024, 3, 14, 15, 47, 12, 0, time.UTC) // Thursday
	tests := []struct {
		tf   Timeframe
		want time.Time
	}{
		{Timeframe1m, time.Date(2024, 3, 14, 15, 47, 0, 0, time.UTC)},
		{Timeframe15m, time.Date(2024, 3, 14, 15, 45, 0, 0, time.UTC)},
		{Timeframe4h, time.Date(2024, 3, 14, 12, 0, 0, 0, time.UTC)},
		{Timeframe1d, time.Date(2024, 3, 14, 0, 0, 0, 0, time.UTC)},
		{Timeframe1w, time.Date(2024, 3, 11, 0, 0, 0, 0, time.UTC)},
		{Timeframe1M, time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC)},
	}
	for _, tt := range tests {
		if got := tt.tf.Align(ts); !got.Equal(tt.want) {
			t.Fatalf("%s.Align() = %v; want %v", tt.tf, got, tt.want)
		}
	}
	if got := Timeframe1M.Next(ts); !got.Equal(time.Date(2024, 4, 1, 0, 0, 0, 0, time.UTC)) {
		t.Fatalf("1M.Next() = %v", got)
	}
}

func TestBarValid(t *testing.T) {
	good := Bar{Timestamp: "2024-01-01T00:00:00Z", Open: 10, High: 12, Low: 9, Close: 11, Volume: 5}
	if err := good.Valid(); err != nil {
		t.Fatalf("Valid() = %v; want nil", err)
	}
	bad := good
	bad.High = 10.5
	if err := bad.Valid(); err == nil {
		t.Fatalf("Valid() = nil; want high error")
	}
	bad = good
	bad.Timestamp = "yesterday"
	if err := bad.Valid(); err == nil {
		t.Fatalf("Valid() = nil; want timestamp error")
	}
}

func TestCodedErrorUnwrap(t *testing.T) {
	cause := errors.New("dial tcp: refused")
	err := NewError(CodeTransport, "fetch failed", cause)
	if !errors.Is(err, cause) {
		t.Fatalf("errors.Is() = false; want true")
	}
	var coded *CodedError
	if !errors.As(err, &coded) || coded.Code != CodeTransport {
		t.Fatalf("errors.As() code = %v", coded)
	}
	if got := err.Error(); got != "TRANSPORT: fetch failed: dial tcp: refused" {
		t.Fatalf("Error() = %q", got)
	}
}
