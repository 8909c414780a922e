package s2sloss

import (
	"fmt"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat"
)

// A Summary describes the per-example losses of a batch.
type Summary struct {
	Count  int
	Masked int

	Mean   float64
	StdDev float64
	Min    float64
	Max    float64
}

// Summarize computes a Summary for per-example losses.
//
// StdDev is the population standard deviation, so a
// single loss has a deviation of zero.
//
// The masked argument is the number of examples whose
// losses were replaced by MaskNaNs.
func Summarize(losses []float64, masked int) Summary {
	res := Summary{Count: len(losses), Masked: masked}
	if len(losses) == 0 {
		return res
	}
	res.Mean, res.StdDev = stat.PopMeanStdDev(losses, nil)
	res.Min = floats.Min(losses)
	res.Max = floats.Max(losses)
	return res
}

// String formats the summary for logging.
func (s Summary) String() string {
	return fmt.Sprintf("n=%d masked=%d mean=%.4f std=%.4f min=%.4f max=%.4f",
		s.Count, s.Masked, s.Mean, s.StdDev, s.Min, s.Max)
}
