// Package config provides puzzle catalog management for the parking lot game.
//
// The config package handles:
//   - Loading puzzle configurations from JSON files
//   - Validation through engine.ValidatePuzzleConfig
//   - Default configuration management
//   - Configuration discovery and listing
//
// Configuration Format:
//
// Puzzles are stored as JSON files in the configs directory. The file name
// without extension is the config id used to create sessions. Each file
// defines a name, a description, the layout rows, optional alphabet and
// exit_side overrides, an optional max_moves budget and the player messages.
//
// Available Configurations:
//   - classic: 6x6 rush hour puzzle, exit on the right edge
//   - easy: small warm-up puzzle
//   - walled: walls with an explicit exit marker
//   - garage: custom alphabet and a length-1 goal vehicle
//   - tower: vertical goal vehicle leaving through the top
//   - limited: classic layout with a move budget
//
// Usage:
//
//	manager, err := config.NewManager("configs")
//	if err != nil {
//		log.Fatal(err)
//	}
//
//	puzzle, err := manager.LoadConfig("classic")
//	configs, err := manager.ListConfigs()
package config
