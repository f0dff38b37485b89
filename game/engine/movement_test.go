package engine

import (
	"errors"
	"math/rand/v2"
	"reflect"
	"testing"
)

const rushLayout = `
BBB..C
..D..C
AAD..C
..EEFF
G.....
G.HHH.`

func mustParse(t *testing.T, layout string, opts ...ParseOption) *Lot {
	t.Helper()
	lot, err := ParseString(layout, opts...)
	if err != nil {
		t.Fatalf("ParseString failed: %v", err)
	}
	return lot
}

func TestMove_Example(t *testing.T) {
	lot := mustParse(t, "AA..\n....\n....\n....")

	moves := lot.LegalMoves()
	if !reflect.DeepEqual(moves["A"], []int{1, 2}) {
		t.Errorf("Expected A legal moves [1 2], got %v", moves["A"])
	}
	if lot.IsSolved() {
		t.Error("Expected puzzle not solved initially")
	}

	anchor, err := lot.Move("A", 2)
	if err != nil {
		t.Fatalf("Move failed: %v", err)
	}
	if anchor != (Position{2, 0}) {
		t.Errorf("Expected anchor (2,0), got %v", anchor)
	}
	if !lot.IsSolved() {
		t.Error("Expected puzzle solved once A touches the right edge")
	}
}

func TestMove_ZeroDisplacementRejected(t *testing.T) {
	lot := mustParse(t, "AA..\n....")
	before := lot.Rows()

	_, err := lot.Move("A", 0)
	if !errors.Is(err, ErrInvalidDisplacement) {
		t.Fatalf("Expected ErrInvalidDisplacement, got %v", err)
	}
	if !reflect.DeepEqual(before, lot.Rows()) {
		t.Error("Grid changed after rejected move")
	}
}

func TestMove_UnknownVehicleLeavesGridUnchanged(t *testing.T) {
	lot := mustParse(t, rushLayout)
	before := lot.Grid()

	_, err := lot.Move("Z", 1)
	if !errors.Is(err, ErrUnknownVehicle) {
		t.Fatalf("Expected ErrUnknownVehicle, got %v", err)
	}
	if !reflect.DeepEqual(before, lot.Grid()) {
		t.Error("Grid changed after unknown vehicle move")
	}
}

func TestMove_Failures(t *testing.T) {
	tests := []struct {
		name    string
		vehicle string
		d       int
		want    error
		cell    *Position
	}{
		{"left off grid", "A", -1, ErrOutOfBounds, &Position{-1, 2}},
		{"blocked by D", "A", 1, ErrBlocked, &Position{2, 2}},
		{"not clamped", "B", 3, ErrBlocked, &Position{5, 0}},
		{"vertical off grid", "C", -1, ErrOutOfBounds, &Position{5, -1}},
		{"blocked by goal", "G", -2, ErrBlocked, &Position{0, 2}},
		{"down off grid", "G", 1, ErrOutOfBounds, &Position{0, 6}},
		{"unknown", "Q", 1, ErrUnknownVehicle, nil},
		{"zero", "A", 0, ErrInvalidDisplacement, nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			lot := mustParse(t, rushLayout)
			before := lot.Vehicles()

			_, err := lot.Move(tt.vehicle, tt.d)
			if !errors.Is(err, tt.want) {
				t.Fatalf("Expected %v, got %v", tt.want, err)
			}

			var me *MoveError
			if !errors.As(err, &me) {
				t.Fatalf("Expected *MoveError, got %T", err)
			}
			if me.Vehicle != tt.vehicle || me.Displacement != tt.d {
				t.Errorf("Unexpected error fields: %+v", me)
			}
			if !reflect.DeepEqual(me.Cell, tt.cell) {
				t.Errorf("Expected offending cell %v, got %v", tt.cell, me.Cell)
			}
			if !reflect.DeepEqual(before, lot.Vehicles()) {
				t.Error("Vehicle table changed after rejected move")
			}
		})
	}
}

func TestMove_CheckOrder(t *testing.T) {
	lot := mustParse(t, rushLayout)

	// far out of bounds and blocked on the way: bounds wins
	if _, err := lot.Move("A", 10); !errors.Is(err, ErrOutOfBounds) {
		t.Errorf("Expected ErrOutOfBounds, got %v", err)
	}
	// unknown vehicle with zero displacement: displacement wins
	if _, err := lot.Move("Q", 0); !errors.Is(err, ErrInvalidDisplacement) {
		t.Errorf("Expected ErrInvalidDisplacement, got %v", err)
	}
}

func TestMove_SolveSequence(t *testing.T) {
	lot := mustParse(t, rushLayout)

	steps := []struct {
		id string
		d  int
	}{
		{"E", -2},
		{"D", 2},
		{"F", -1},
		{"C", 3},
		{"A", 4},
	}
	for i, s := range steps {
		if lot.IsSolved() {
			t.Fatalf("Solved too early at step %d", i)
		}
		if _, err := lot.Move(s.id, s.d); err != nil {
			t.Fatalf("Step %d (%s %d) failed: %v\n%s", i, s.id, s.d, err, lot)
		}
	}
	if !lot.IsSolved() {
		t.Errorf("Expected solved, got:\n%s", lot)
	}
}

func TestLegalMoves(t *testing.T) {
	lot := mustParse(t, rushLayout)

	want := map[string][]int{
		"B": {1, 2},
		"C": {},
		"D": {},
		"A": {},
		"E": {-2, -1},
		"F": {},
		"G": {-1},
		"H": {-1, 1},
	}
	got := lot.LegalMoves()
	if !reflect.DeepEqual(got, want) {
		t.Errorf("Expected %v, got %v", FormatLegalMoves(want), FormatLegalMoves(got))
	}
	for id, ds := range got {
		if ds == nil {
			t.Errorf("Expected non-nil slice for %s", id)
		}
	}

	if n := lot.CountLegalMoves(); n != 7 {
		t.Errorf("Expected 7 legal moves, got %d", n)
	}
	if ids := lot.MovableVehicles(); !reflect.DeepEqual(ids, []string{"B", "E", "G", "H"}) {
		t.Errorf("Unexpected movable vehicles %v", ids)
	}
}

func TestLegalRange(t *testing.T) {
	lot := mustParse(t, rushLayout)

	back, forward, err := lot.LegalRange("H")
	if err != nil {
		t.Fatalf("LegalRange failed: %v", err)
	}
	if back != 1 || forward != 1 {
		t.Errorf("Expected (1, 1), got (%d, %d)", back, forward)
	}

	if _, _, err := lot.LegalRange("Q"); !errors.Is(err, ErrUnknownVehicle) {
		t.Errorf("Expected ErrUnknownVehicle, got %v", err)
	}
}

// checkOccupancy verifies that every cell holds at most one of wall or a
// single vehicle and that every vehicle covers exactly Length in-bounds cells
func checkOccupancy(t *testing.T, lot *Lot) {
	t.Helper()
	w, h := lot.Dimensions()
	owner := make(map[Position]string)
	for _, p := range lot.Board().Walls() {
		owner[p] = "#"
	}
	for _, v := range lot.Vehicles() {
		cells := v.Cells()
		if len(cells) != v.Length {
			t.Fatalf("Vehicle %s has %d cells, length %d", v.ID, len(cells), v.Length)
		}
		for _, c := range cells {
			if c.X < 0 || c.X >= w || c.Y < 0 || c.Y >= h {
				t.Fatalf("Vehicle %s out of bounds at %v", v.ID, c)
			}
			if other, taken := owner[c]; taken {
				t.Fatalf("Cell %v held by %s and %s", c, other, v.ID)
			}
			owner[c] = v.ID
		}
	}
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			cell, err := lot.CellAt(x, y)
			if err != nil {
				t.Fatalf("CellAt(%d,%d) failed: %v", x, y, err)
			}
			want, taken := owner[Position{x, y}]
			switch {
			case !taken && cell.Kind != EmptyCell,
				taken && want == "#" && cell.Kind != WallCell,
				taken && want != "#" && cell.Vehicle != want:
				t.Fatalf("Occupancy mismatch at (%d,%d): %+v vs %q", x, y, cell, want)
			}
		}
	}
}

func TestProperties_RandomWalk(t *testing.T) {
	layouts := map[string]string{
		"rush":   rushLayout,
		"walled": "#######\n#..B..#\n#AAB..@\n#.....#\n#.....#\n#######",
		"tower":  "A.B\nA.B\nC..",
	}

	for name, layout := range layouts {
		t.Run(name, func(t *testing.T) {
			lot := mustParse(t, layout)
			rng := rand.New(rand.NewPCG(7, 11))
			w, h := lot.Dimensions()
			span := max(w, h)

			for i := 0; i < 200; i++ {
				legal := lot.LegalMoves()

				// every legal displacement succeeds and round-trips
				for _, id := range lot.VehicleIDs() {
					for _, d := range legal[id] {
						probe := lot.Clone()
						before := probe.Grid()
						anchor, _ := probe.Anchor(id)
						if _, err := probe.Move(id, d); err != nil {
							t.Fatalf("Legal move %s %d rejected: %v", id, d, err)
						}
						checkOccupancy(t, probe)
						if _, err := probe.Move(id, -d); err != nil {
							t.Fatalf("Reverse move %s %d rejected: %v", id, -d, err)
						}
						if back, _ := probe.Anchor(id); back != anchor {
							t.Fatalf("Round trip moved %s from %v to %v", id, anchor, back)
						}
						if !reflect.DeepEqual(before, probe.Grid()) {
							t.Fatalf("Round trip of %s %d changed the grid", id, d)
						}
					}

					// every other displacement in range fails with Blocked or OutOfBounds
					allowed := make(map[int]bool)
					for _, d := range legal[id] {
						allowed[d] = true
					}
					for d := -span; d <= span; d++ {
						if d == 0 || allowed[d] {
							continue
						}
						if lot.CanMove(id, d) {
							t.Fatalf("CanMove(%s, %d) true but not in legal set %v", id, d, legal[id])
						}
						_, err := lot.Clone().Move(id, d)
						if !errors.Is(err, ErrBlocked) && !errors.Is(err, ErrOutOfBounds) {
							t.Fatalf("Move(%s, %d) expected Blocked or OutOfBounds, got %v", id, d, err)
						}
					}
				}

				solved := lot.IsSolved()
				if lot.IsSolved() != solved {
					t.Fatal("IsSolved is not idempotent")
				}
				if solved {
					lot = lot.Reset()
					continue
				}

				movable := lot.MovableVehicles()
				if len(movable) == 0 {
					break
				}
				id := movable[rng.IntN(len(movable))]
				ds := legal[id]
				if _, err := lot.Move(id, ds[rng.IntN(len(ds))]); err != nil {
					t.Fatalf("Random legal move failed: %v", err)
				}
				checkOccupancy(t, lot)
			}
		})
	}
}

func TestProperties_ResetDeterminism(t *testing.T) {
	lot := mustParse(t, rushLayout)
	initial := lot.LegalMoves()

	lot.Move("B", 2)
	lot.Move("H", -1)

	for i := 0; i < 3; i++ {
		fresh := lot.Reset()
		if !reflect.DeepEqual(initial, fresh.LegalMoves()) {
			t.Fatalf("Reset %d produced different legal moves", i)
		}
	}
}
