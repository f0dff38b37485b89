package engine

import (
	"math/rand/v2"
)

// Scramble performs up to n random legal moves on lot, never leaving it
// solved, and returns how many moves were applied. Vehicles and
// displacements are drawn uniformly from the current legal moves, so the
// same rng seed always yields the same walk.
func Scramble(lot *Lot, n int, rng *rand.Rand) int {
	applied := 0
	for i := 0; i < n; i++ {
		moves := lot.LegalMoves()
		var choices []string
		for _, id := range lot.VehicleIDs() {
			if len(moves[id]) > 0 {
				choices = append(choices, id)
			}
		}
		if len(choices) == 0 {
			break
		}

		id := choices[rng.IntN(len(choices))]
		d := moves[id][rng.IntN(len(moves[id]))]
		if _, err := lot.Move(id, d); err != nil {
			// LegalMoves and Move share one occupancy model
			panic(err)
		}
		if lot.IsSolved() {
			lot.Move(id, -d)
			continue
		}
		applied++
	}
	return applied
}
