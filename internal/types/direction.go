package types

import "fmt"

// Direction selects which side of an anchor timestamp a fetch covers.
type Direction string

const (
	DirectionPast     Direction = "past"
	DirectionFuture   Direction = "future"
	DirectionCentered Direction = "centered"
)

// ParseDirection validates s.
func ParseDirection(s string) (Direction, error) {
	switch d := Direction(s); d {
	case DirectionPast, DirectionFuture, DirectionCentered:
		return d, nil
	}
	return "", fmt.Errorf("unknown direction %q", s)
}
