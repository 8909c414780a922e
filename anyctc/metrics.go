package anyctc

import (
	"github.com/sergi/go-diff/diffmatchpatch"
)

// labelRuneBase maps labels into a Unicode private use
// area so that label sequences can be diffed as text.
const labelRuneBase = 0xF0000

// EditDistance computes the number of insertions,
// deletions, and substitutions needed to turn one label
// sequence into another.
func EditDistance(expected, actual []int) int {
	dmp := diffmatchpatch.New()
	dmp.DiffTimeout = 0
	diffs := dmp.DiffMainRunes(labelRunes(expected), labelRunes(actual), false)
	return dmp.DiffLevenshtein(diffs)
}

// LabelErrorRate computes the total edit distance between
// corresponding label sequences, divided by the total
// length of the expected sequences.
//
// If every expected sequence is empty, the result is the
// number of extra labels in actual.
func LabelErrorRate(expected, actual [][]int) float64 {
	if len(expected) != len(actual) {
		panic("mismatching number of label sequences")
	}
	var dist, total int
	for i, x := range expected {
		dist += EditDistance(x, actual[i])
		total += len(x)
	}
	if total == 0 {
		return float64(dist)
	}
	return float64(dist) / float64(total)
}

func labelRunes(labels []int) []rune {
	res := make([]rune, len(labels))
	for i, x := range labels {
		res[i] = rune(labelRuneBase + x)
	}
	return res
}
