package engine

// Orientation is the fixed axis a vehicle slides along
type Orientation string

const (
	Horizontal Orientation = "horizontal"
	Vertical   Orientation = "vertical"
)

// CellKind describes what occupies a grid cell
type CellKind string

const (
	EmptyCell   CellKind = "empty"
	WallCell    CellKind = "wall"
	VehicleCell CellKind = "vehicle"
)

const (
	// Validation constants
	MinGridSize  = 2
	MaxGridSize  = 50
	MaxBulkMoves = 50

	// Default layout symbols
	DefaultEmpty = '.'
	DefaultWall  = '#'
	DefaultGoal  = 'A'
	DefaultExit  = '@'
)

// Position represents x,y coordinates; x is the column, y the row
type Position struct {
	X int `json:"x"`
	Y int `json:"y"`
}

// Cell is the occupancy of a single grid cell
type Cell struct {
	Kind    CellKind `json:"kind"`
	Vehicle string   `json:"vehicle,omitempty"`
}

// Vehicle is a rectilinear run of cells that slides along its orientation.
// Anchor is the lowest-indexed cell along that axis.
type Vehicle struct {
	ID          string      `json:"id"`
	Orientation Orientation `json:"orientation"`
	Length      int         `json:"length"`
	Anchor      Position    `json:"anchor"`
	Goal        bool        `json:"goal,omitempty"`
}

// axis returns the unit step along the vehicle's orientation
func (v Vehicle) axis() (dx, dy int) {
	if v.Orientation == Vertical {
		return 0, 1
	}
	return 1, 0
}

// CellAt returns the i-th cell of the vehicle counted from its anchor.
// i may be negative or beyond Length to address cells outside the vehicle.
func (v Vehicle) CellAt(i int) Position {
	dx, dy := v.axis()
	return Position{X: v.Anchor.X + i*dx, Y: v.Anchor.Y + i*dy}
}

// Cells returns the cells the vehicle occupies, anchor first
func (v Vehicle) Cells() []Position {
	cells := make([]Position, v.Length)
	for i := range cells {
		cells[i] = v.CellAt(i)
	}
	return cells
}

// Head returns the cell at the increasing end of the vehicle
func (v Vehicle) Head() Position {
	return v.CellAt(v.Length - 1)
}

// Shifted returns a copy of the vehicle moved d cells along its axis
func (v Vehicle) Shifted(d int) Vehicle {
	v.Anchor = v.CellAt(d)
	return v
}

// Covers reports whether the vehicle occupies p
func (v Vehicle) Covers(p Position) bool {
	for i := 0; i < v.Length; i++ {
		if v.CellAt(i) == p {
			return true
		}
	}
	return false
}

// PuzzleConfig represents a puzzle definition loaded from JSON
type PuzzleConfig struct {
	Name        string          `json:"name"`
	Description string          `json:"description"`
	Layout      []string        `json:"layout"`
	Alphabet    *AlphabetConfig `json:"alphabet,omitempty"`
	ExitSide    string          `json:"exit_side,omitempty"`
	MaxMoves    int             `json:"max_moves,omitempty"`
	Messages    Messages        `json:"messages"`
}

// AlphabetConfig overrides the default layout symbols; empty fields keep the default
type AlphabetConfig struct {
	Empty string `json:"empty,omitempty"`
	Wall  string `json:"wall,omitempty"`
	Goal  string `json:"goal,omitempty"`
	Exit  string `json:"exit,omitempty"`
}

// Messages are the player-facing texts shown after engine events
type Messages struct {
	Welcome             string `json:"welcome"`
	Moved               string `json:"moved,omitempty"`
	Blocked             string `json:"blocked,omitempty"`
	OutOfBounds         string `json:"out_of_bounds,omitempty"`
	UnknownVehicle      string `json:"unknown_vehicle,omitempty"`
	InvalidDisplacement string `json:"invalid_displacement,omitempty"`
	Solved              string `json:"solved"`
	OutOfMoves          string `json:"out_of_moves,omitempty"`
}

// GameState is a JSON snapshot of a puzzle instance and its play history.
// It never aliases engine internals.
type GameState struct {
	Width       int                `json:"width"`
	Height      int                `json:"height"`
	Rows        []string           `json:"rows"`
	Vehicles    []Vehicle          `json:"vehicles"`
	GoalVehicle string             `json:"goal_vehicle"`
	Exit        string             `json:"exit"`
	LegalMoves  map[string][]int   `json:"legal_moves"`
	Solved      bool               `json:"solved"`
	GameOver    bool               `json:"game_over"`
	Message     string             `json:"message"`
	ConfigName  string             `json:"config_name"`
	MaxMoves    int                `json:"max_moves,omitempty"`
	Moves       int                `json:"moves"`
	MoveHistory []MoveHistoryEntry `json:"move_history"`
	TotalMoves  int                `json:"total_moves"`

	// CurrentMoves tracks only the attempts since the last reset. It mirrors MoveHistory entries
	// but gets cleared on reset while MoveHistory remains cumulative.
	CurrentMoves      []MoveHistoryEntry `json:"current_moves"`
	CurrentMovesCount int                `json:"current_moves_count"`
}

// Anchors returns the vehicle anchors recorded in the snapshot
func (gs *GameState) Anchors() map[string]Position {
	anchors := make(map[string]Position, len(gs.Vehicles))
	for _, v := range gs.Vehicles {
		anchors[v.ID] = v.Anchor
	}
	return anchors
}

// MoveHistoryEntry represents a single move attempt in the game history
type MoveHistoryEntry struct {
	Vehicle      string   `json:"vehicle"`
	Displacement int      `json:"displacement"`
	From         Position `json:"from"`
	To           Position `json:"to"`
	Success      bool     `json:"success"`
	Error        string   `json:"error,omitempty"`
	Timestamp    int64    `json:"timestamp"`
	MoveNumber   int      `json:"move_number"`
}
