package engine

import (
	"fmt"
	"strings"
)

// Side is a grid boundary
type Side string

const (
	SideLeft  Side = "left"
	SideRight Side = "right"
	SideUp    Side = "up"
	SideDown  Side = "down"
)

// ParseSide accepts the four side names plus the compass aliases
func ParseSide(s string) (Side, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "left", "west", "w":
		return SideLeft, nil
	case "right", "east", "e":
		return SideRight, nil
	case "up", "top", "north", "n":
		return SideUp, nil
	case "down", "bottom", "south", "s":
		return SideDown, nil
	default:
		return "", fmt.Errorf("unknown exit side %q", s)
	}
}

// Orientation returns the axis a vehicle must have to leave through this side
func (s Side) Orientation() Orientation {
	if s == SideUp || s == SideDown {
		return Vertical
	}
	return Horizontal
}

// ExitRule decides whether the goal vehicle has reached the exit
type ExitRule interface {
	Reached(goal Vehicle) bool
	String() string
}

// EdgeExit is reached when the goal's leading edge touches the grid boundary on Side
type EdgeExit struct {
	Side   Side
	Width  int
	Height int
}

func (e EdgeExit) Reached(goal Vehicle) bool {
	if goal.Orientation != e.Side.Orientation() {
		return false
	}
	switch e.Side {
	case SideLeft:
		return goal.Anchor.X == 0
	case SideRight:
		return goal.Head().X == e.Width-1
	case SideUp:
		return goal.Anchor.Y == 0
	case SideDown:
		return goal.Head().Y == e.Height-1
	}
	return false
}

func (e EdgeExit) String() string {
	return fmt.Sprintf("edge:%s", e.Side)
}

// CellExit is reached when the goal covers the marked exit cell
type CellExit struct {
	Cell Position
}

func (e CellExit) Reached(goal Vehicle) bool {
	return goal.Covers(e.Cell)
}

func (e CellExit) String() string {
	return fmt.Sprintf("cell:(%d,%d)", e.Cell.X, e.Cell.Y)
}
