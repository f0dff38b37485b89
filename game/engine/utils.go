package engine

import (
	"fmt"
	"strings"
)

// FormatLegalMoves renders a legal-move map as "A:[1 2] B:[] ..." with sorted keys
func FormatLegalMoves(moves map[string][]int) string {
	parts := make([]string, 0, len(moves))
	for _, id := range sortedIDs(moves) {
		parts = append(parts, fmt.Sprintf("%s:%v", id, moves[id]))
	}
	return strings.Join(parts, " ")
}

// CountVehicles groups vehicles by orientation
func CountVehicles(vehicles []Vehicle) (horizontal, vertical int) {
	for _, v := range vehicles {
		if v.Orientation == Vertical {
			vertical++
		} else {
			horizontal++
		}
	}
	return horizontal, vertical
}

// LengthHistogram counts vehicles per length
func LengthHistogram(vehicles []Vehicle) map[int]int {
	hist := make(map[int]int)
	for _, v := range vehicles {
		hist[v.Length]++
	}
	return hist
}

// abs returns the absolute value of x
func abs(x int) int {
	if x < 0 {
		return -x
	}
	return x
}
