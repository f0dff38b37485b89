// Package engine provides the core puzzle logic for the Parking Lot game.
//
// The engine package implements the sliding-vehicle mechanics including:
//   - Layout parsing from rows of symbols into a board and a vehicle table
//   - Occupancy tracking with strict invariants under mutation
//   - Move validation and atomic application
//   - Legal-move enumeration bounded by free-cell runs
//   - Solved detection through a pluggable exit rule
//
// Core Types:
//
// Lot is one owned puzzle instance: an immutable Board (dimensions, walls,
// exit) plus the mutable vehicle anchors. GameEngine wraps a Lot with the
// PuzzleConfig it was built from, move history and player-facing messages.
// GameState is the JSON snapshot handed to callers.
//
// Usage:
//
//	lot, err := engine.ParseString("AA..\n....\n....\n....")
//	if err != nil {
//		log.Fatal(err)
//	}
//
//	moves := lot.LegalMoves() // map[A:[1 2]]
//	if _, err := lot.Move("A", 2); err != nil {
//		log.Fatal(err)
//	}
//	solved := lot.IsSolved() // true
//
// Layout Format:
//
// Each row is a string of equal length. By default '.' is empty, '#' is a
// wall, 'A' is the goal vehicle and '@' marks an optional exit cell. Any
// other symbol is a vehicle identifier; its cells must form one contiguous
// straight run. Without an exit marker the exit is the grid edge at the
// positive end of the goal vehicle's axis.
//
// Concurrency:
//
// A Lot is not safe for concurrent use. Callers own one instance per episode
// and serialize access themselves. Reset never mutates: it returns a fresh
// instance, so snapshots taken earlier stay valid.
package engine
