// Command validate checks puzzle configuration JSON files. For each file it
// verifies:
//   - JSON structure, with unknown fields rejected
//   - Every rule the engine enforces when loading a puzzle (layout shape,
//     straight contiguous vehicles, goal vehicle, exit alignment, messages)
//   - At least one vehicle can move from the initial layout
//   - Exit reachability: the goal vehicle can slide onto the exit when only
//     walls are taken into account, since walls never move
package main

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/urfave/cli/v3"

	"github.com/wricardo/parking-lot-game/game/engine"
)

// ValidationResult captures the outcome of validating a single file.
// If Valid is true, Errors contains informational messages; otherwise it
// accumulates the validation errors that were found.
type ValidationResult struct {
	File   string
	Valid  bool
	Errors []string
}

func (r *ValidationResult) fail(format string, args ...interface{}) {
	r.Valid = false
	r.Errors = append(r.Errors, fmt.Sprintf(format, args...))
}

func (r *ValidationResult) info(format string, args ...interface{}) {
	r.Errors = append(r.Errors, "✓ "+fmt.Sprintf(format, args...))
}

// validateConfig loads and validates a single configuration JSON file
func validateConfig(filePath string) ValidationResult {
	result := ValidationResult{
		File:   filepath.Base(filePath),
		Valid:  true,
		Errors: []string{},
	}

	data, err := os.ReadFile(filePath)
	if err != nil {
		result.fail("Failed to read file: %v", err)
		return result
	}

	config, err := engine.DecodePuzzleConfig(bytes.NewReader(data))
	if err != nil {
		result.fail("Invalid JSON: %v", err)
		return result
	}

	if err := engine.ValidatePuzzleConfig(config); err != nil {
		result.fail("%v", err)
		return result
	}

	lot, err := engine.NewLotFromConfig(config)
	if err != nil {
		result.fail("%v", err)
		return result
	}

	if lot.CountLegalMoves() == 0 {
		result.fail("No vehicle can move from the initial layout")
	}

	reach := validateExitReachable(lot)
	if !reach.Valid {
		result.Valid = false
	}
	result.Errors = append(result.Errors, reach.Errors...)

	if result.Valid {
		w, h := lot.Dimensions()
		horizontal, vertical := engine.CountVehicles(lot.Vehicles())
		goal := lot.Goal()

		result.info("Name: %s", config.Name)
		result.info("Grid: %dx%d", w, h)
		result.info("Vehicles: %d (%d horizontal, %d vertical)", horizontal+vertical, horizontal, vertical)
		result.info("Walls: %d", len(lot.Walls()))
		result.info("Goal: %s (%s, length %d)", goal.ID, goal.Orientation, goal.Length)
		result.info("Exit: %s", lot.Exit())
		result.info("Initial legal moves: %d", lot.CountLegalMoves())
		if config.MaxMoves > 0 {
			result.info("Max moves: %d", config.MaxMoves)
		}
	}

	return result
}

// validateExitReachable slides the goal vehicle in both directions over
// every cell that is inside the grid and not a wall, and reports whether any
// of those positions satisfies the exit rule. Other vehicles are ignored.
func validateExitReachable(lot *engine.Lot) ValidationResult {
	result := ValidationResult{
		Valid:  true,
		Errors: []string{},
	}

	board := lot.Board()
	goal := lot.Goal()
	exit := lot.Exit()

	free := func(p engine.Position) bool {
		return p.X >= 0 && p.Y >= 0 && p.X < board.Width() && p.Y < board.Height() && !board.IsWall(p.X, p.Y)
	}

	for _, step := range []int{1, -1} {
		for d := step; ; d += step {
			moved := goal.Shifted(d)
			leading := moved.Head()
			if step < 0 {
				leading = moved.Anchor
			}
			if !free(leading) {
				break
			}
			if exit.Reached(moved) {
				result.info("Exit reachable: %s%+d reaches %s", goal.ID, d, exit)
				return result
			}
		}
	}

	result.fail("Exit unreachable: walls or the grid boundary keep %s from %s", goal.ID, exit)
	return result
}

// validateDir validates every *.json file in dir, writes a report and
// returns whether all files are valid
func validateDir(w io.Writer, dir string, quiet bool) (bool, error) {
	files, err := filepath.Glob(filepath.Join(dir, "*.json"))
	if err != nil {
		return false, fmt.Errorf("finding config files: %w", err)
	}
	if len(files) == 0 {
		return false, fmt.Errorf("no config files found in %s", dir)
	}

	allValid := true
	for _, file := range files {
		result := validateConfig(file)

		fmt.Fprintf(w, "\n%s %s\n", strings.Repeat("=", 20), result.File)

		if result.Valid {
			fmt.Fprintln(w, "✅ VALID")
			if quiet {
				continue
			}
			for _, info := range result.Errors {
				fmt.Fprintln(w, "  "+info)
			}
		} else {
			fmt.Fprintln(w, "❌ INVALID")
			allValid = false
			for _, err := range result.Errors {
				if !strings.HasPrefix(err, "✓") {
					fmt.Fprintln(w, "  ❌ "+err)
				}
			}
		}
	}

	fmt.Fprintf(w, "\n%s\n", strings.Repeat("=", 40))
	if allValid {
		fmt.Fprintln(w, "✅ All configurations are valid!")
	} else {
		fmt.Fprintln(w, "❌ Some configurations have errors")
	}
	return allValid, nil
}

var errInvalidConfigs = errors.New("some configurations have errors")

func newCommand(out io.Writer) *cli.Command {
	return &cli.Command{
		Name:  "validate",
		Usage: "validate parking lot puzzle configurations",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "dir",
				Usage:   "directory containing puzzle *.json files",
				Value:   "../configs",
				Sources: cli.EnvVars("CONFIG_DIR"),
			},
			&cli.BoolFlag{
				Name:  "quiet",
				Usage: "only print errors for invalid files",
			},
		},
		Action: func(ctx context.Context, cmd *cli.Command) error {
			ok, err := validateDir(out, cmd.String("dir"), cmd.Bool("quiet"))
			if err != nil {
				return err
			}
			if !ok {
				return errInvalidConfigs
			}
			return nil
		},
	}
}

// main validates every config in --dir and exits non-zero if any is invalid
func main() {
	if err := newCommand(os.Stdout).Run(context.Background(), os.Args); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
