// Package gym adapts a parking lot puzzle to a reinforcement-learning style
// environment.
//
// Observations encode the grid as integers: 0 for an empty cell, 1 for a
// wall, and 2+i for the i-th vehicle in engine.Lot.VehicleIDs order. An
// Action addresses a vehicle with the same 2+i numbering and carries a
// signed displacement. The index mapping belongs to the Env; the engine
// itself only knows vehicle identifiers.
//
// Rewards follow a fixed schedule: 0 for the move that solves the puzzle,
// -1 for any other legal move and -2 for a rejected move. Rejected moves are
// not episode-ending; the engine error code is reported in Info.
//
// Usage:
//
//	env, err := gym.NewEnv("AA..\n....", gym.WithMaxSteps(200))
//	obs, info := env.Reset()
//	res, err := env.Step(gym.Action{Vehicle: 2, Steps: 2})
package gym
