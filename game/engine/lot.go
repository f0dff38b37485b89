package engine

import (
	"fmt"
)

const (
	emptySlot = -1
	wallSlot  = -2
)

// Board is the immutable part of a puzzle: dimensions, walls, exit and the
// layout it was parsed from. Lots created by Reset, Restore and Clone share it.
type Board struct {
	width   int
	height  int
	walls   []bool
	exit    ExitRule
	layout  []string
	opts    parseOptions
	initial []Vehicle
}

func (b *Board) Width() int         { return b.width }
func (b *Board) Height() int        { return b.height }
func (b *Board) Exit() ExitRule     { return b.exit }
func (b *Board) Alphabet() Alphabet { return b.opts.alphabet }

// Layout returns a copy of the original layout description
func (b *Board) Layout() []string {
	return append([]string(nil), b.layout...)
}

// IsWall reports whether (x, y) is a wall; cells outside the grid are not walls
func (b *Board) IsWall(x, y int) bool {
	return b.inBounds(Position{X: x, Y: y}) && b.walls[y*b.width+x]
}

// Walls returns the wall cells in row-major order
func (b *Board) Walls() []Position {
	var walls []Position
	for i, wall := range b.walls {
		if wall {
			walls = append(walls, Position{X: i % b.width, Y: i / b.width})
		}
	}
	return walls
}

func (b *Board) inBounds(p Position) bool {
	return p.X >= 0 && p.X < b.width && p.Y >= 0 && p.Y < b.height
}

// Lot is one puzzle instance: a Board plus the vehicle table and the
// occupancy derived from it. Vehicle anchors are authoritative; occupancy is
// patched only when a move commits.
type Lot struct {
	board     *Board
	vehicles  []Vehicle
	index     map[string]int
	occupancy []int
	goal      int
}

// newLot builds the occupancy for vehicles and rejects any placement that
// leaves the grid or overlaps a wall or another vehicle
func newLot(board *Board, vehicles []Vehicle) (*Lot, error) {
	lot := &Lot{
		board:     board,
		vehicles:  append([]Vehicle(nil), vehicles...),
		index:     make(map[string]int, len(vehicles)),
		occupancy: make([]int, board.width*board.height),
		goal:      -1,
	}
	for i, wall := range board.walls {
		if wall {
			lot.occupancy[i] = wallSlot
		} else {
			lot.occupancy[i] = emptySlot
		}
	}

	for i, v := range lot.vehicles {
		if _, dup := lot.index[v.ID]; dup {
			return nil, fmt.Errorf("%w: duplicate vehicle %q", ErrMalformedLayout, v.ID)
		}
		lot.index[v.ID] = i
		if v.Goal {
			lot.goal = i
		}
		for _, c := range v.Cells() {
			if !board.inBounds(c) {
				return nil, &MoveError{Vehicle: v.ID, Cell: &c, Err: ErrOutOfBounds}
			}
			slot := c.Y*board.width + c.X
			if lot.occupancy[slot] != emptySlot {
				return nil, &MoveError{Vehicle: v.ID, Cell: &c, Err: ErrBlocked}
			}
			lot.occupancy[slot] = i
		}
	}
	if lot.goal < 0 {
		return nil, fmt.Errorf("%w: no goal vehicle", ErrMalformedLayout)
	}
	return lot, nil
}

// Board returns the immutable board
func (l *Lot) Board() *Board {
	return l.board
}

// Dimensions returns the grid width and height
func (l *Lot) Dimensions() (int, int) {
	return l.board.width, l.board.height
}

// Layout returns the original layout description
func (l *Lot) Layout() []string {
	return l.board.Layout()
}

// Exit returns the rule used by IsSolved
func (l *Lot) Exit() ExitRule {
	return l.board.exit
}

// Walls returns the wall cells in row-major order
func (l *Lot) Walls() []Position {
	return l.board.Walls()
}

// VehicleIDs returns vehicle identifiers in row-major first-appearance order.
// The order is stable for the lifetime of the layout.
func (l *Lot) VehicleIDs() []string {
	ids := make([]string, len(l.vehicles))
	for i, v := range l.vehicles {
		ids[i] = v.ID
	}
	return ids
}

// Vehicles returns a copy of the vehicle table
func (l *Lot) Vehicles() []Vehicle {
	return append([]Vehicle(nil), l.vehicles...)
}

// Vehicle looks up a vehicle by identifier
func (l *Lot) Vehicle(id string) (Vehicle, bool) {
	i, ok := l.index[id]
	if !ok {
		return Vehicle{}, false
	}
	return l.vehicles[i], true
}

// Anchor returns the current anchor of a vehicle
func (l *Lot) Anchor(id string) (Position, error) {
	v, ok := l.Vehicle(id)
	if !ok {
		return Position{}, fmt.Errorf("%w: %q", ErrUnknownVehicle, id)
	}
	return v.Anchor, nil
}

// Goal returns the designated goal vehicle
func (l *Lot) Goal() Vehicle {
	return l.vehicles[l.goal]
}

// CellAt reports what occupies (x, y)
func (l *Lot) CellAt(x, y int) (Cell, error) {
	p := Position{X: x, Y: y}
	if !l.board.inBounds(p) {
		return Cell{}, fmt.Errorf("%w: (%d,%d)", ErrOutOfBounds, x, y)
	}
	switch slot := l.occupancy[y*l.board.width+x]; slot {
	case emptySlot:
		return Cell{Kind: EmptyCell}, nil
	case wallSlot:
		return Cell{Kind: WallCell}, nil
	default:
		return Cell{Kind: VehicleCell, Vehicle: l.vehicles[slot].ID}, nil
	}
}

// Grid returns an independent snapshot of the grid as symbols: the wall
// symbol, the empty symbol, or a vehicle identifier
func (l *Lot) Grid() [][]rune {
	a := l.board.opts.alphabet
	grid := make([][]rune, l.board.height)
	for y := range grid {
		grid[y] = make([]rune, l.board.width)
		for x := range grid[y] {
			switch slot := l.occupancy[y*l.board.width+x]; slot {
			case emptySlot:
				grid[y][x] = a.Empty
			case wallSlot:
				grid[y][x] = a.Wall
			default:
				grid[y][x] = []rune(l.vehicles[slot].ID)[0]
			}
		}
	}
	return grid
}

// Rows returns the grid snapshot as one string per row
func (l *Lot) Rows() []string {
	grid := l.Grid()
	rows := make([]string, len(grid))
	for y, row := range grid {
		rows[y] = string(row)
	}
	return rows
}

// String renders the rows separated by newlines
func (l *Lot) String() string {
	var out []byte
	for i, row := range l.Rows() {
		if i > 0 {
			out = append(out, '\n')
		}
		out = append(out, row...)
	}
	return string(out)
}

// IsSolved reports whether the goal vehicle satisfies the exit rule
func (l *Lot) IsSolved() bool {
	return l.board.exit.Reached(l.vehicles[l.goal])
}

// Clone returns an independent copy sharing only the immutable board
func (l *Lot) Clone() *Lot {
	index := make(map[string]int, len(l.index))
	for id, i := range l.index {
		index[id] = i
	}
	return &Lot{
		board:     l.board,
		vehicles:  append([]Vehicle(nil), l.vehicles...),
		index:     index,
		occupancy: append([]int(nil), l.occupancy...),
		goal:      l.goal,
	}
}

// Reset returns a new instance in the layout's initial configuration.
// The receiver is left untouched.
func (l *Lot) Reset() *Lot {
	lot, err := newLot(l.board, l.board.initial)
	if err != nil {
		// initial vehicles were validated when the layout was parsed
		panic(err)
	}
	return lot
}

// Restore returns a new instance from the same layout with the given anchors.
// Vehicles missing from anchors keep their initial anchor. The result must
// satisfy every occupancy invariant or an error is returned.
func (l *Lot) Restore(anchors map[string]Position) (*Lot, error) {
	vehicles := append([]Vehicle(nil), l.board.initial...)
	applied := 0
	for i := range vehicles {
		if a, ok := anchors[vehicles[i].ID]; ok {
			vehicles[i].Anchor = a
			applied++
		}
	}
	if applied != len(anchors) {
		for id := range anchors {
			if _, ok := l.index[id]; !ok {
				return nil, fmt.Errorf("restore: %w: %q", ErrUnknownVehicle, id)
			}
		}
	}
	lot, err := newLot(l.board, vehicles)
	if err != nil {
		return nil, fmt.Errorf("restore: %w", err)
	}
	return lot, nil
}
