package engine

import (
	"sort"
)

// movePlan is a fully validated move that has not been committed yet
type movePlan struct {
	index int
	from  Vehicle
	to    Vehicle
}

// Move slides a vehicle by displacement cells along its own axis and returns
// the new anchor. A rejected move leaves the lot unchanged and returns a
// *MoveError. Displacements are never clamped.
func (l *Lot) Move(id string, displacement int) (Position, error) {
	plan, err := l.plan(id, displacement)
	if err != nil {
		return Position{}, err
	}
	l.commit(plan)
	return plan.to.Anchor, nil
}

// CanMove reports whether Move(id, displacement) would succeed
func (l *Lot) CanMove(id string, displacement int) bool {
	_, err := l.plan(id, displacement)
	return err == nil
}

// plan validates a move: nonzero displacement, known vehicle, destination in
// bounds, and every swept cell free
func (l *Lot) plan(id string, d int) (movePlan, error) {
	if d == 0 {
		return movePlan{}, &MoveError{Vehicle: id, Displacement: d, Err: ErrInvalidDisplacement}
	}
	i, ok := l.index[id]
	if !ok {
		return movePlan{}, &MoveError{Vehicle: id, Displacement: d, Err: ErrUnknownVehicle}
	}

	from := l.vehicles[i]
	to := from.Shifted(d)
	for _, c := range []Position{to.Anchor, to.Head()} {
		if !l.board.inBounds(c) {
			return movePlan{}, &MoveError{Vehicle: id, Displacement: d, Cell: &c, Err: ErrOutOfBounds}
		}
	}

	// Walk the band between the old and new position, starting next to the vehicle.
	edge, step := from.Length-1, 1
	if d < 0 {
		edge, step = 0, -1
	}
	for k := 1; k <= abs(d); k++ {
		c := from.CellAt(edge + k*step)
		if l.occupancy[c.Y*l.board.width+c.X] != emptySlot {
			return movePlan{}, &MoveError{Vehicle: id, Displacement: d, Cell: &c, Err: ErrBlocked}
		}
	}

	return movePlan{index: i, from: from, to: to}, nil
}

// commit applies a validated plan; it cannot fail
func (l *Lot) commit(p movePlan) {
	w := l.board.width
	for _, c := range p.from.Cells() {
		l.occupancy[c.Y*w+c.X] = emptySlot
	}
	for _, c := range p.to.Cells() {
		l.occupancy[c.Y*w+c.X] = p.index
	}
	l.vehicles[p.index] = p.to
}

// LegalRange returns how far a vehicle can slide towards decreasing (back)
// and increasing (forward) coordinates before hitting a wall, another
// vehicle or the grid boundary
func (l *Lot) LegalRange(id string) (back, forward int, err error) {
	i, ok := l.index[id]
	if !ok {
		return 0, 0, &MoveError{Vehicle: id, Err: ErrUnknownVehicle}
	}
	v := l.vehicles[i]
	return l.freeRun(v, 0, -1), l.freeRun(v, v.Length-1, 1), nil
}

// freeRun counts empty cells past the vehicle's edge cell in direction step
func (l *Lot) freeRun(v Vehicle, edge, step int) int {
	n := 0
	for {
		c := v.CellAt(edge + (n+1)*step)
		if !l.board.inBounds(c) || l.occupancy[c.Y*l.board.width+c.X] != emptySlot {
			return n
		}
		n++
	}
}

// LegalMoves returns, for every vehicle, the ascending list of nonzero
// displacements it can make. Immobile vehicles map to an empty slice.
func (l *Lot) LegalMoves() map[string][]int {
	moves := make(map[string][]int, len(l.vehicles))
	for _, v := range l.vehicles {
		back, forward, _ := l.LegalRange(v.ID)
		ds := make([]int, 0, back+forward)
		for d := -back; d <= forward; d++ {
			if d != 0 {
				ds = append(ds, d)
			}
		}
		moves[v.ID] = ds
	}
	return moves
}

// MovableVehicles returns the identifiers with at least one legal move, in vehicle order
func (l *Lot) MovableVehicles() []string {
	var ids []string
	for _, v := range l.vehicles {
		if back, forward, _ := l.LegalRange(v.ID); back+forward > 0 {
			ids = append(ids, v.ID)
		}
	}
	return ids
}

// CountLegalMoves returns the total number of legal (vehicle, displacement) pairs
func (l *Lot) CountLegalMoves() int {
	total := 0
	for _, ds := range l.LegalMoves() {
		total += len(ds)
	}
	return total
}

// sortedIDs returns the keys of a legal-move map in ascending order
func sortedIDs(moves map[string][]int) []string {
	ids := make([]string, 0, len(moves))
	for id := range moves {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}
