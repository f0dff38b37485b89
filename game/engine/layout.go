package engine

import (
	"fmt"
	"strings"
	"unicode"
)

// Alphabet is the symbol set of a layout description
type Alphabet struct {
	Empty rune
	Wall  rune
	Goal  rune
	Exit  rune
}

// DefaultAlphabet returns '.', '#', 'A' and '@'
func DefaultAlphabet() Alphabet {
	return Alphabet{Empty: DefaultEmpty, Wall: DefaultWall, Goal: DefaultGoal, Exit: DefaultExit}
}

func (a Alphabet) validate() error {
	symbols := map[string]rune{"empty": a.Empty, "wall": a.Wall, "goal": a.Goal, "exit": a.Exit}
	seen := make(map[rune]string, len(symbols))
	for _, name := range []string{"empty", "wall", "goal", "exit"} {
		r := symbols[name]
		if r == 0 || unicode.IsSpace(r) || !unicode.IsPrint(r) {
			return layoutErr("%s symbol %q is not printable", name, r)
		}
		if other, dup := seen[r]; dup {
			return layoutErr("%s and %s symbols are both %q", other, name, r)
		}
		seen[r] = name
	}
	return nil
}

type parseOptions struct {
	alphabet    Alphabet
	exitSide    Side
	requireExit bool
}

// ParseOption customizes how a layout is read
type ParseOption func(*parseOptions)

// WithAlphabet replaces the default symbol set
func WithAlphabet(a Alphabet) ParseOption {
	return func(o *parseOptions) { o.alphabet = a }
}

// WithExitSide places the exit on the given boundary instead of the goal's positive end.
// It cannot be combined with an exit marker in the layout.
func WithExitSide(side Side) ParseOption {
	return func(o *parseOptions) { o.exitSide = side }
}

// WithRequiredExitMarker makes a layout without an exit marker malformed
func WithRequiredExitMarker() ParseOption {
	return func(o *parseOptions) { o.requireExit = true }
}

// ParseString parses a newline separated layout. Blank lines around the block are ignored.
func ParseString(layout string, opts ...ParseOption) (*Lot, error) {
	lines := strings.Split(strings.ReplaceAll(layout, "\r\n", "\n"), "\n")
	for len(lines) > 0 && strings.TrimSpace(lines[0]) == "" {
		lines = lines[1:]
	}
	for len(lines) > 0 && strings.TrimSpace(lines[len(lines)-1]) == "" {
		lines = lines[:len(lines)-1]
	}
	return Parse(lines, opts...)
}

// Parse builds a puzzle instance from rows of symbols. It never partially
// constructs: any rule violation returns a *LayoutError and no Lot.
func Parse(rows []string, opts ...ParseOption) (*Lot, error) {
	o := parseOptions{alphabet: DefaultAlphabet()}
	for _, opt := range opts {
		opt(&o)
	}
	if err := o.alphabet.validate(); err != nil {
		return nil, err
	}
	if o.exitSide != "" {
		if _, err := ParseSide(string(o.exitSide)); err != nil {
			return nil, layoutErr("%v", err)
		}
	}

	if len(rows) == 0 {
		return nil, layoutErr("layout is empty")
	}
	grid := make([][]rune, len(rows))
	for y, row := range rows {
		grid[y] = []rune(strings.TrimRight(row, "\r"))
		if len(grid[y]) == 0 {
			return nil, &LayoutError{Row: y, Col: -1, Reason: "row is empty"}
		}
		if len(grid[y]) != len(grid[0]) {
			return nil, &LayoutError{Row: y, Col: -1, Reason: fmt.Sprintf("row has %d symbols, expected %d", len(grid[y]), len(grid[0]))}
		}
	}

	width, height := len(grid[0]), len(grid)
	board := &Board{
		width:  width,
		height: height,
		walls:  make([]bool, width*height),
		layout: append([]string(nil), rows...),
		opts:   o,
	}

	a := o.alphabet
	cells := make(map[rune][]Position)
	var order []rune
	var exitCell *Position

	for y, row := range grid {
		for x, r := range row {
			switch {
			case r == a.Empty:
			case r == a.Wall:
				board.walls[y*width+x] = true
			case r == a.Exit:
				if exitCell != nil {
					return nil, &LayoutError{Row: y, Col: x, Reason: "duplicate exit marker"}
				}
				exitCell = &Position{X: x, Y: y}
			case unicode.IsSpace(r) || !unicode.IsPrint(r):
				return nil, &LayoutError{Row: y, Col: x, Reason: fmt.Sprintf("invalid symbol %q", r)}
			default:
				if _, seen := cells[r]; !seen {
					order = append(order, r)
				}
				cells[r] = append(cells[r], Position{X: x, Y: y})
			}
		}
	}

	vehicles := make([]Vehicle, 0, len(order))
	goal := -1
	for _, sym := range order {
		v, err := buildVehicle(sym, cells[sym])
		if err != nil {
			return nil, err
		}
		if sym == a.Goal {
			v.Goal = true
			goal = len(vehicles)
		}
		vehicles = append(vehicles, v)
	}
	if goal < 0 {
		return nil, layoutErr("missing goal vehicle %q", string(a.Goal))
	}

	exit, err := resolveExit(board, &vehicles[goal], exitCell)
	if err != nil {
		return nil, err
	}
	board.exit = exit
	board.initial = vehicles

	return newLot(board, vehicles)
}

// buildVehicle checks that cells, listed in row-major order, form one contiguous straight run
func buildVehicle(sym rune, cells []Position) (Vehicle, error) {
	v := Vehicle{
		ID:          string(sym),
		Orientation: Horizontal,
		Length:      len(cells),
		Anchor:      cells[0],
	}
	if len(cells) == 1 {
		return v, nil
	}

	sameRow, sameCol := true, true
	for _, c := range cells[1:] {
		sameRow = sameRow && c.Y == cells[0].Y
		sameCol = sameCol && c.X == cells[0].X
	}
	switch {
	case sameRow:
		v.Orientation = Horizontal
	case sameCol:
		v.Orientation = Vertical
	default:
		return Vehicle{}, &LayoutError{Row: -1, Col: -1, Symbol: v.ID, Reason: "cells are not in one straight run"}
	}

	for i, c := range cells {
		if c != v.CellAt(i) {
			return Vehicle{}, &LayoutError{Row: -1, Col: -1, Symbol: v.ID, Reason: "cells are not contiguous"}
		}
	}
	return v, nil
}

// resolveExit derives the exit rule and pins the axis of a length-1 goal vehicle
func resolveExit(board *Board, goal *Vehicle, marker *Position) (ExitRule, error) {
	o := board.opts

	if marker != nil {
		if o.exitSide != "" {
			return nil, layoutErr("exit marker and exit side %q are both set", o.exitSide)
		}
		if goal.Length == 1 {
			if marker.Y != goal.Anchor.Y && marker.X == goal.Anchor.X {
				goal.Orientation = Vertical
			}
		}
		aligned := (goal.Orientation == Horizontal && marker.Y == goal.Anchor.Y) ||
			(goal.Orientation == Vertical && marker.X == goal.Anchor.X)
		if !aligned {
			return nil, &LayoutError{Row: marker.Y, Col: marker.X, Reason: fmt.Sprintf("exit marker is not aligned with %s goal vehicle", goal.Orientation)}
		}
		return CellExit{Cell: *marker}, nil
	}

	if o.requireExit {
		return nil, layoutErr("missing exit marker %q", string(o.alphabet.Exit))
	}

	side := o.exitSide
	if side == "" {
		side = SideRight
		if goal.Orientation == Vertical {
			side = SideDown
		}
	}
	side, _ = ParseSide(string(side))
	if goal.Length == 1 {
		goal.Orientation = side.Orientation()
	}
	if side.Orientation() != goal.Orientation {
		return nil, layoutErr("exit side %s is not aligned with %s goal vehicle", side, goal.Orientation)
	}
	return EdgeExit{Side: side, Width: board.width, Height: board.height}, nil
}
