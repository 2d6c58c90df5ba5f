package types

import "time"

// Query describes one chart data fetch. A zero Start means "now".
type Query struct {
	Symbol    string
	Timeframe Timeframe
	Limit     int
	Start     time.Time
	Direction Direction
}

// Validate checks the fields a data provider needs.
func (q Query) Validate() error {
	if q.Symbol == "" {
		return NewError(CodeValidation, "symbol is required", nil)
	}
	if _, err := ParseTimeframe(string(q.Timeframe)); err != nil {
		return NewError(CodeValidation, "invalid timeframe", err)
	}
	if q.Limit <= 0 {
		return NewError(CodeValidation, "limit must be positive", nil)
	}
	if _, err := ParseDirection(string(q.Direction)); err != nil {
		return NewError(CodeValidation, "invalid direction", err)
	}
	return nil
}
