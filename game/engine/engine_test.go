package engine

import (
	"errors"
	"reflect"
	"strings"
	"testing"
)

func createTestConfig() *PuzzleConfig {
	return &PuzzleConfig{
		Name:        "Engine Test Config",
		Description: "Configuration for engine integration tests",
		Layout: []string{
			"BBB..C",
			"..D..C",
			"AAD..C",
			"..EEFF",
			"G.....",
			"G.HHH.",
		},
		Messages: Messages{
			Welcome: "Welcome to engine test!",
			Moved:   "Moved!",
			Blocked: "Blocked!",
			Solved:  "Solved in %d moves!",
		},
	}
}

var solution = []Step{
	{"E", -2},
	{"D", 2},
	{"F", -1},
	{"C", 3},
	{"A", 4},
}

func TestNewEngine(t *testing.T) {
	config := createTestConfig()
	engine, err := NewEngine(config)
	if err != nil {
		t.Fatalf("Failed to create new engine: %v", err)
	}

	state := engine.GetState()
	if state.Width != 6 || state.Height != 6 {
		t.Errorf("Expected 6x6, got %dx%d", state.Width, state.Height)
	}
	if state.Message != config.Messages.Welcome {
		t.Errorf("Expected welcome message, got %q", state.Message)
	}
	if state.GoalVehicle != "A" || state.Exit != "edge:right" {
		t.Errorf("Unexpected goal/exit: %s %s", state.GoalVehicle, state.Exit)
	}
	if state.ConfigName != config.Name {
		t.Errorf("Expected config name %q, got %q", config.Name, state.ConfigName)
	}
	if engine.IsGameOver() || engine.IsSolved() {
		t.Error("Expected fresh game not to be over")
	}
	if len(state.MoveHistory) != 0 || state.TotalMoves != 0 {
		t.Error("Expected empty history")
	}

	if _, err := NewEngine(&PuzzleConfig{Name: "broken"}); err == nil {
		t.Error("Expected error for invalid config")
	}
}

func TestNewEngineWithDefaults(t *testing.T) {
	engine := NewEngineWithDefaults()
	if engine.GetConfig().Name != "default" {
		t.Errorf("Expected default config, got %q", engine.GetConfig().Name)
	}
	if engine.IsSolved() {
		t.Error("Default puzzle must not start solved")
	}
}

func TestEngine_Move(t *testing.T) {
	engine, _ := NewEngine(createTestConfig())

	out := engine.Move("B", 2)
	if !out.Success || out.Err != nil {
		t.Fatalf("Expected success, got %+v", out)
	}
	if out.From != (Position{0, 0}) || out.To != (Position{2, 0}) {
		t.Errorf("Unexpected from/to: %v -> %v", out.From, out.To)
	}
	if out.Message != "Moved!" {
		t.Errorf("Expected moved message, got %q", out.Message)
	}

	out = engine.Move("A", 1)
	if out.Success || !errors.Is(out.Err, ErrBlocked) {
		t.Fatalf("Expected blocked, got %+v", out)
	}
	if out.Message != "Blocked!" {
		t.Errorf("Expected blocked message, got %q", out.Message)
	}

	out = engine.Move("A", -1)
	if !errors.Is(out.Err, ErrOutOfBounds) || out.Message != "That move would leave the lot." {
		t.Errorf("Expected default out of bounds message, got %+v", out)
	}

	state := engine.GetState()
	if state.Moves != 1 {
		t.Errorf("Expected 1 successful move, got %d", state.Moves)
	}
	if state.TotalMoves != 3 || state.CurrentMovesCount != 3 {
		t.Errorf("Expected 3 attempts, got %d/%d", state.TotalMoves, state.CurrentMovesCount)
	}

	last := engine.GetLastMove()
	if last == nil || last.Vehicle != "A" || last.Error != "out_of_bounds" || last.MoveNumber != 3 {
		t.Errorf("Unexpected last move %+v", last)
	}
}

func TestEngine_Solve(t *testing.T) {
	engine, _ := NewEngine(createTestConfig())

	results := engine.BulkMove(solution)
	if len(results) != len(solution) {
		t.Fatalf("Expected %d results, got %d", len(solution), len(results))
	}
	final := results[len(results)-1]
	if !final.Solved || !final.GameOver {
		t.Errorf("Expected solved, got %+v", final)
	}
	if final.Message != "Solved in 5 moves!" {
		t.Errorf("Unexpected solved message %q", final.Message)
	}

	if engine.CanMove("B", 1) {
		t.Error("Expected no moves after solving")
	}
	for id, ds := range engine.GetLegalMoves() {
		if len(ds) != 0 {
			t.Errorf("Expected no legal moves for %s after solving, got %v", id, ds)
		}
	}

	out := engine.Move("B", 1)
	if !errors.Is(out.Err, ErrGameOver) {
		t.Errorf("Expected ErrGameOver, got %v", out.Err)
	}
}

func TestEngine_BulkMoveStopsOnFailure(t *testing.T) {
	engine, _ := NewEngine(createTestConfig())

	results := engine.BulkMove([]Step{{"B", 1}, {"A", 1}, {"B", 1}})
	if len(results) != 2 {
		t.Fatalf("Expected 2 results, got %d", len(results))
	}
	if !results[0].Success || results[1].Success {
		t.Errorf("Unexpected results %+v", results)
	}
	if a, _ := engine.Snapshot().Anchor("B"); a != (Position{1, 0}) {
		t.Errorf("Expected B at (1,0), got %v", a)
	}
}

func TestEngine_MaxMoves(t *testing.T) {
	config := createTestConfig()
	config.MaxMoves = 2
	config.Messages.OutOfMoves = "No moves left"
	engine, err := NewEngine(config)
	if err != nil {
		t.Fatalf("NewEngine failed: %v", err)
	}

	engine.Move("B", 1)
	if engine.IsGameOver() {
		t.Fatal("Game over too early")
	}
	out := engine.Move("B", -1)
	if !out.GameOver || out.Solved || out.Message != "No moves left" {
		t.Errorf("Expected out of moves, got %+v", out)
	}
	if !engine.IsGameOver() {
		t.Error("Expected game over after max moves")
	}
}

func TestEngine_Reset(t *testing.T) {
	engine, _ := NewEngine(createTestConfig())
	engine.BulkMove(solution)

	state := engine.Reset()
	if state.Solved || state.GameOver {
		t.Error("Expected fresh game after reset")
	}
	if !reflect.DeepEqual(state.Rows, createTestConfig().Layout) {
		t.Errorf("Expected initial rows, got %v", state.Rows)
	}
	if state.TotalMoves != len(solution) || len(state.MoveHistory) != len(solution) {
		t.Errorf("Expected cumulative history to survive reset, got %d", state.TotalMoves)
	}
	if state.CurrentMovesCount != 0 || len(state.CurrentMoves) != 0 || state.Moves != 0 {
		t.Error("Expected current segment cleared")
	}
	if state.Message != "Welcome to engine test!" {
		t.Errorf("Expected welcome message, got %q", state.Message)
	}

	engine.Move("B", 1)
	if last := engine.GetLastMove(); last.MoveNumber != len(solution)+1 {
		t.Errorf("Expected move number to continue, got %d", last.MoveNumber)
	}
}

func TestEngine_SetState(t *testing.T) {
	engine, _ := NewEngine(createTestConfig())
	engine.Move("B", 2)
	engine.Move("E", -1)
	saved := engine.GetState()

	other, _ := NewEngine(createTestConfig())
	if err := other.SetState(saved); err != nil {
		t.Fatalf("SetState failed: %v", err)
	}
	restored := other.GetState()
	if !reflect.DeepEqual(restored.Rows, saved.Rows) {
		t.Errorf("Rows differ after restore:\n%v\n%v", restored.Rows, saved.Rows)
	}
	if restored.Moves != 2 || restored.TotalMoves != 2 {
		t.Errorf("Expected counts restored, got %d/%d", restored.Moves, restored.TotalMoves)
	}

	t.Run("nil", func(t *testing.T) {
		if err := other.SetState(nil); err == nil {
			t.Error("Expected error for nil state")
		}
	})

	t.Run("overlapping anchors", func(t *testing.T) {
		bad := other.GetState()
		for i := range bad.Vehicles {
			if bad.Vehicles[i].ID == "A" {
				bad.Vehicles[i].Anchor = Position{1, 2}
			}
		}
		if err := other.SetState(bad); !errors.Is(err, ErrBlocked) {
			t.Errorf("Expected ErrBlocked, got %v", err)
		}
		if !reflect.DeepEqual(other.GetState().Rows, saved.Rows) {
			t.Error("Failed SetState changed the engine")
		}
	})

	t.Run("other config", func(t *testing.T) {
		bad := other.GetState()
		bad.ConfigName = "something else"
		if err := other.SetState(bad); err == nil {
			t.Error("Expected error for foreign config")
		}
	})
}

func TestEngine_StateIsSnapshot(t *testing.T) {
	engine, _ := NewEngine(createTestConfig())
	state := engine.GetState()
	engine.Move("B", 1)

	if state.Rows[0] != "BBB..C" {
		t.Errorf("Earlier state changed: %v", state.Rows[0])
	}
	if !strings.HasPrefix(engine.GetState().Rows[0], ".BBB") {
		t.Errorf("Expected B moved, got %v", engine.GetState().Rows[0])
	}
}

func TestEngine_SetConfig(t *testing.T) {
	engine, _ := NewEngine(createTestConfig())
	engine.Move("B", 1)

	next := createTestConfig()
	next.Name = "Second"
	next.Layout = []string{"AA..", "...."}
	if err := engine.SetConfig(next); err != nil {
		t.Fatalf("SetConfig failed: %v", err)
	}
	state := engine.GetState()
	if state.ConfigName != "Second" || state.Width != 4 || state.TotalMoves != 0 {
		t.Errorf("Unexpected state after SetConfig: %+v", state)
	}
}
