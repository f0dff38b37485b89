package engine

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"unicode/utf8"
)

// ValidatePuzzleConfig validates a puzzle configuration for correctness and playability
func ValidatePuzzleConfig(config *PuzzleConfig) error {
	if config == nil {
		return fmt.Errorf("config validation: config is nil")
	}

	// Validate required fields
	if config.Name == "" {
		return fmt.Errorf("config validation: name is required")
	}
	if config.Description == "" {
		return fmt.Errorf("config validation: description is required")
	}

	// Validate grid size
	if h := len(config.Layout); h < MinGridSize || h > MaxGridSize {
		return fmt.Errorf("config validation: layout must have between %d and %d rows, got %d", MinGridSize, MaxGridSize, h)
	}
	if w := utf8.RuneCountInString(config.Layout[0]); w < MinGridSize || w > MaxGridSize {
		return fmt.Errorf("config validation: layout rows must have between %d and %d symbols, got %d", MinGridSize, MaxGridSize, w)
	}

	if config.MaxMoves < 0 {
		return fmt.Errorf("config validation: max_moves must be >= 0, got %d", config.MaxMoves)
	}

	// Validate messages
	if config.Messages.Welcome == "" {
		return fmt.Errorf("config validation: messages.welcome is required")
	}
	if config.Messages.Solved == "" {
		return fmt.Errorf("config validation: messages.solved is required")
	}
	if !strings.Contains(config.Messages.Solved, "%d") {
		return fmt.Errorf("config validation: messages.solved must contain %%d for the move count")
	}

	// Validate layout
	lot, err := NewLotFromConfig(config)
	if err != nil {
		return fmt.Errorf("config validation: %w", err)
	}
	if lot.IsSolved() {
		return fmt.Errorf("config validation: puzzle %q starts solved", config.Name)
	}

	return nil
}

// ParseOptions converts the optional alphabet and exit side into parser options
func (c *PuzzleConfig) ParseOptions() ([]ParseOption, error) {
	var opts []ParseOption
	if c.Alphabet != nil {
		a := DefaultAlphabet()
		for _, field := range []struct {
			name  string
			value string
			dst   *rune
		}{
			{"empty", c.Alphabet.Empty, &a.Empty},
			{"wall", c.Alphabet.Wall, &a.Wall},
			{"goal", c.Alphabet.Goal, &a.Goal},
			{"exit", c.Alphabet.Exit, &a.Exit},
		} {
			if field.value == "" {
				continue
			}
			if utf8.RuneCountInString(field.value) != 1 {
				return nil, fmt.Errorf("alphabet.%s must be a single symbol, got %q", field.name, field.value)
			}
			*field.dst, _ = utf8.DecodeRuneInString(field.value)
		}
		opts = append(opts, WithAlphabet(a))
	}
	if c.ExitSide != "" {
		side, err := ParseSide(c.ExitSide)
		if err != nil {
			return nil, err
		}
		opts = append(opts, WithExitSide(side))
	}
	return opts, nil
}

// NewLotFromConfig parses the configuration's layout with its options
func NewLotFromConfig(config *PuzzleConfig) (*Lot, error) {
	opts, err := config.ParseOptions()
	if err != nil {
		return nil, err
	}
	return Parse(config.Layout, opts...)
}

// DecodePuzzleConfig reads exactly one JSON puzzle document from r. Unknown
// fields and trailing data are errors. The result is not validated.
func DecodePuzzleConfig(r io.Reader) (*PuzzleConfig, error) {
	dec := json.NewDecoder(r)
	dec.DisallowUnknownFields()

	var config PuzzleConfig
	if err := dec.Decode(&config); err != nil {
		return nil, fmt.Errorf("decode puzzle config: %w", err)
	}
	if _, err := dec.Token(); err != io.EOF {
		return nil, fmt.Errorf("decode puzzle config: unexpected data after the puzzle document")
	}
	return &config, nil
}

// LoadPuzzleConfig decodes and validates the puzzle file at path
func LoadPuzzleConfig(path string) (*PuzzleConfig, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	config, err := DecodePuzzleConfig(f)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", filepath.Base(path), err)
	}
	if err := ValidatePuzzleConfig(config); err != nil {
		return nil, fmt.Errorf("%s: %w", filepath.Base(path), err)
	}
	return config, nil
}

// DefaultPuzzleConfig returns the built-in 6x6 puzzle used when no config is available
func DefaultPuzzleConfig() *PuzzleConfig {
	return &PuzzleConfig{
		Name:        "default",
		Description: "Built-in 6x6 puzzle: slide A out through the right edge",
		Layout: []string{
			"BBB..C",
			"..D..C",
			"AAD..C",
			"..EEFF",
			"G.....",
			"G.HHH.",
		},
		Messages: Messages{
			Welcome: "Welcome to the parking lot! Slide vehicle A out through the right edge.",
			Solved:  "Solved in %d moves!",
		},
	}
}

// withDefaultMessages fills in optional messages that a config left empty
func withDefaultMessages(m Messages) Messages {
	defaults := Messages{
		Moved:               "Vehicle moved.",
		Blocked:             "Blocked! Another vehicle or a wall is in the way.",
		OutOfBounds:         "That move would leave the lot.",
		UnknownVehicle:      "No vehicle with that identifier.",
		InvalidDisplacement: "Displacement must be nonzero.",
		OutOfMoves:          "Out of moves! Game over.",
	}
	for _, pair := range []struct{ dst, def *string }{
		{&m.Moved, &defaults.Moved},
		{&m.Blocked, &defaults.Blocked},
		{&m.OutOfBounds, &defaults.OutOfBounds},
		{&m.UnknownVehicle, &defaults.UnknownVehicle},
		{&m.InvalidDisplacement, &defaults.InvalidDisplacement},
		{&m.OutOfMoves, &defaults.OutOfMoves},
	} {
		if *pair.dst == "" {
			*pair.dst = *pair.def
		}
	}
	return m
}
