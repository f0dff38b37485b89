// Command analyze prints quick, human-readable heuristics about the puzzles in
// a configs directory. It summarizes dimensions, vehicle counts by orientation
// and length, the exit rule, the vehicles standing between the goal and the
// exit, and the legal moves available from the initial layout.
package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"sort"
	"strings"

	"github.com/urfave/cli/v3"

	"github.com/wricardo/parking-lot-game/game/config"
	"github.com/wricardo/parking-lot-game/game/engine"
)

// ExitPath describes the straight run the goal vehicle has to travel
type ExitPath struct {
	Displacement int
	Blockers     []string
	Reachable    bool
}

// exitPath finds the displacement that brings the goal onto the exit when only
// walls count, and lists the vehicles currently covering the swept cells
func exitPath(lot *engine.Lot) ExitPath {
	board := lot.Board()
	goal := lot.Goal()
	exit := lot.Exit()

	free := func(p engine.Position) bool {
		return p.X >= 0 && p.Y >= 0 && p.X < board.Width() && p.Y < board.Height() && !board.IsWall(p.X, p.Y)
	}

	for _, step := range []int{1, -1} {
		var swept []engine.Position
		for d := step; ; d += step {
			moved := goal.Shifted(d)
			leading := moved.Head()
			if step < 0 {
				leading = moved.Anchor
			}
			if !free(leading) {
				break
			}
			swept = append(swept, leading)
			if exit.Reached(moved) {
				return ExitPath{Displacement: d, Blockers: blockers(lot, swept), Reachable: true}
			}
		}
	}
	return ExitPath{}
}

// blockers returns the distinct vehicles covering cells, in path order
func blockers(lot *engine.Lot, cells []engine.Position) []string {
	seen := make(map[string]bool)
	var ids []string
	for _, c := range cells {
		cell, err := lot.CellAt(c.X, c.Y)
		if err != nil || cell.Kind != engine.VehicleCell || seen[cell.Vehicle] {
			continue
		}
		seen[cell.Vehicle] = true
		ids = append(ids, cell.Vehicle)
	}
	return ids
}

// formatHistogram renders a length histogram as "len2:5 len3:3"
func formatHistogram(hist map[int]int) string {
	lengths := make([]int, 0, len(hist))
	for l := range hist {
		lengths = append(lengths, l)
	}
	sort.Ints(lengths)

	parts := make([]string, len(lengths))
	for i, l := range lengths {
		parts[i] = fmt.Sprintf("len%d:%d", l, hist[l])
	}
	return strings.Join(parts, " ")
}

// analyzeConfig writes the analysis of one puzzle
func analyzeConfig(w io.Writer, id string, cfg *engine.PuzzleConfig) error {
	lot, err := engine.NewLotFromConfig(cfg)
	if err != nil {
		return fmt.Errorf("analyze %s: %w", id, err)
	}

	width, height := lot.Dimensions()
	vehicles := lot.Vehicles()
	horizontal, vertical := engine.CountVehicles(vehicles)
	goal := lot.Goal()

	fmt.Fprintf(w, "Name: %s\n", cfg.Name)
	fmt.Fprintf(w, "Grid Size: %d x %d\n", width, height)
	fmt.Fprintf(w, "Vehicles: %d (horizontal %d, vertical %d)\n", len(vehicles), horizontal, vertical)
	fmt.Fprintf(w, "Lengths: %s\n", formatHistogram(engine.LengthHistogram(vehicles)))
	fmt.Fprintf(w, "Walls: %d\n", len(lot.Walls()))
	fmt.Fprintf(w, "Goal: %s at (%d, %d), %s, length %d\n", goal.ID, goal.Anchor.X, goal.Anchor.Y, goal.Orientation, goal.Length)
	fmt.Fprintf(w, "Exit: %s\n", lot.Exit())
	if cfg.MaxMoves > 0 {
		fmt.Fprintf(w, "Max Moves: %d\n", cfg.MaxMoves)
	}

	path := exitPath(lot)
	switch {
	case !path.Reachable:
		fmt.Fprintf(w, "⚠️  CRITICAL: walls keep %s from the exit\n", goal.ID)
	case len(path.Blockers) == 0:
		fmt.Fprintf(w, "✅ Path clear: %s%+d exits\n", goal.ID, path.Displacement)
	default:
		fmt.Fprintf(w, "Exit distance: %+d, blocked by %s\n", path.Displacement, strings.Join(path.Blockers, ","))
	}

	movable := lot.MovableVehicles()
	fmt.Fprintf(w, "Initial legal moves: %d across %d vehicles\n", lot.CountLegalMoves(), len(movable))
	if len(movable) == 0 {
		fmt.Fprintf(w, "⚠️  WARNING: no vehicle can move\n")
	}
	fmt.Fprintf(w, "  %s\n", engine.FormatLegalMoves(lot.LegalMoves()))
	return nil
}

// analyzeAll analyzes the named configs, or every config when names is empty.
// A name ending in .json is read as a file path instead of a catalog entry.
func analyzeAll(w io.Writer, manager *config.Manager, names []string) error {
	if len(names) == 0 {
		infos, err := manager.ListConfigs()
		if err != nil {
			return err
		}
		for _, info := range infos {
			names = append(names, info.ConfigID)
		}
	}

	var failed []string
	for _, name := range names {
		fmt.Fprintf(w, "\n=== Analyzing %s ===\n", name)
		var cfg *engine.PuzzleConfig
		var err error
		if strings.HasSuffix(name, ".json") {
			cfg, err = engine.LoadPuzzleConfig(name)
		} else {
			cfg, err = manager.LoadConfig(name)
		}
		if err == nil {
			err = analyzeConfig(w, name, cfg)
		}
		if err != nil {
			fmt.Fprintf(w, "Error: %v\n", err)
			failed = append(failed, name)
		}
	}
	if len(failed) > 0 {
		return fmt.Errorf("could not analyze %s", strings.Join(failed, ", "))
	}
	return nil
}

func newCommand(out io.Writer) *cli.Command {
	return &cli.Command{
		Name:      "analyze",
		Usage:     "print heuristics about parking lot puzzles",
		ArgsUsage: "[config | file.json ...]",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "config-dir",
				Usage:   "directory containing puzzle *.json files",
				Value:   "configs",
				Sources: cli.EnvVars("CONFIG_DIR"),
			},
		},
		Action: func(ctx context.Context, cmd *cli.Command) error {
			manager, err := config.NewManager(cmd.String("config-dir"))
			if err != nil {
				return err
			}
			return analyzeAll(out, manager, cmd.Args().Slice())
		},
	}
}

func main() {
	if err := newCommand(os.Stdout).Run(context.Background(), os.Args); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
