package engine

import (
	"errors"
	"fmt"
)

var (
	ErrMalformedLayout     = errors.New("malformed layout")
	ErrUnknownVehicle      = errors.New("unknown vehicle")
	ErrOutOfBounds         = errors.New("out of bounds")
	ErrBlocked             = errors.New("blocked")
	ErrInvalidDisplacement = errors.New("displacement must be nonzero")
	ErrGameOver            = errors.New("game is over")
)

// LayoutError reports where a layout description violates the parser's rules.
// Row and Col are 0-based; -1 means the error is not tied to a cell.
type LayoutError struct {
	Row    int
	Col    int
	Symbol string
	Reason string
}

func (e *LayoutError) Error() string {
	switch {
	case e.Row >= 0 && e.Col >= 0:
		return fmt.Sprintf("%v: %s at row %d, col %d", ErrMalformedLayout, e.Reason, e.Row, e.Col)
	case e.Row >= 0:
		return fmt.Sprintf("%v: %s at row %d", ErrMalformedLayout, e.Reason, e.Row)
	case e.Symbol != "":
		return fmt.Sprintf("%v: vehicle %q: %s", ErrMalformedLayout, e.Symbol, e.Reason)
	default:
		return fmt.Sprintf("%v: %s", ErrMalformedLayout, e.Reason)
	}
}

func (e *LayoutError) Unwrap() error {
	return ErrMalformedLayout
}

func layoutErr(reason string, args ...any) *LayoutError {
	return &LayoutError{Row: -1, Col: -1, Reason: fmt.Sprintf(reason, args...)}
}

// MoveError is returned by a rejected move. Err is one of ErrInvalidDisplacement,
// ErrUnknownVehicle, ErrOutOfBounds or ErrBlocked. Cell is the first offending cell
// for bounds and collision failures.
type MoveError struct {
	Vehicle      string
	Displacement int
	Cell         *Position
	Err          error
}

func (e *MoveError) Error() string {
	if e.Cell != nil {
		return fmt.Sprintf("move %s by %d: %v at (%d,%d)", e.Vehicle, e.Displacement, e.Err, e.Cell.X, e.Cell.Y)
	}
	return fmt.Sprintf("move %s by %d: %v", e.Vehicle, e.Displacement, e.Err)
}

func (e *MoveError) Unwrap() error {
	return e.Err
}

// MoveErrorCode maps a move error to a short machine-friendly code
func MoveErrorCode(err error) string {
	switch {
	case err == nil:
		return ""
	case errors.Is(err, ErrBlocked):
		return "blocked"
	case errors.Is(err, ErrOutOfBounds):
		return "out_of_bounds"
	case errors.Is(err, ErrUnknownVehicle):
		return "unknown_vehicle"
	case errors.Is(err, ErrInvalidDisplacement):
		return "invalid_displacement"
	case errors.Is(err, ErrGameOver):
		return "game_over"
	default:
		return "error"
	}
}
