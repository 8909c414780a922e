package anyctc

import (
	"math"

	"github.com/unixpickle/anydiff"
	"github.com/unixpickle/anyvec"
	"github.com/unixpickle/s2sloss"
)

// logLikelihood computes the log likelihood of the label
// given a sequence of log probability vectors.
// The last entry of each vector is the log probability of
// the blank symbol.
//
// The forward variables are indexed by position in the
// blank-augmented label: even positions are blanks and
// odd position 2k+1 is label[k].
func logLikelihood(c anyvec.Creator, seq []anydiff.Res, label []int) anydiff.Res {
	if len(seq) == 0 {
		var val float64
		if len(label) > 0 {
			val = math.Inf(-1)
		}
		return anydiff.NewConst(makeVector(c, []float64{val}))
	}

	// Forward steps retain the label until propagation.
	label = append([]int{}, label...)

	start := make([]float64, len(label)*2+1)
	for i := 1; i < len(start); i++ {
		start[i] = math.Inf(-1)
	}
	var alpha anydiff.Res = anydiff.NewConst(makeVector(c, start))
	for _, in := range seq {
		alpha = newForwardStep(in, alpha, label)
	}

	if len(label) == 0 {
		return alpha
	}
	return newEndSum(alpha)
}

// canSkip checks if the label at an odd position may be
// reached directly from the previous label, skipping the
// blank between them.
func canSkip(label []int, pos int) bool {
	idx := (pos - 1) / 2
	return idx > 0 && label[idx-1] != label[idx]
}

type forwardStep struct {
	OutVec anyvec.Vector
	Alpha  anydiff.Res
	In     anydiff.Res
	Label  []int
	V      anydiff.VarSet
}

func newForwardStep(in, alpha anydiff.Res, label []int) *forwardStep {
	probs := s2sloss.Float64s(in.Output())
	last := s2sloss.Float64s(alpha.Output())
	blank := probs[len(probs)-1]

	next := make([]float64, len(last))
	next[0] = last[0] + blank
	for pos := 1; pos < len(last); pos++ {
		sum := addLogs(last[pos], last[pos-1])
		if pos%2 == 0 {
			next[pos] = sum + blank
			continue
		}
		if canSkip(label, pos) {
			sum = addLogs(sum, last[pos-2])
		}
		next[pos] = sum + probs[label[(pos-1)/2]]
	}

	return &forwardStep{
		OutVec: makeVector(in.Output().Creator(), next),
		Alpha:  alpha,
		In:     in,
		Label:  label,
		V:      anydiff.MergeVarSets(in.Vars(), alpha.Vars()),
	}
}

func (f *forwardStep) Output() anyvec.Vector {
	return f.OutVec
}

func (f *forwardStep) Vars() anydiff.VarSet {
	return f.V
}

func (f *forwardStep) Propagate(u anyvec.Vector, g anydiff.Grad) {
	upstream := s2sloss.Float64s(u)
	if allZero(upstream) {
		return
	}
	last := s2sloss.Float64s(f.Alpha.Output())
	numProbs := f.In.Output().Len()

	lastGrad := make([]float64, len(last))
	inGrad := make([]float64, numProbs)

	lastGrad[0] = upstream[0]
	inGrad[numProbs-1] = upstream[0]
	for pos := 1; pos < len(last); pos++ {
		if pos%2 == 0 {
			inGrad[numProbs-1] += upstream[pos]
		} else {
			inGrad[f.Label[(pos-1)/2]] += upstream[pos]
		}
		if pos%2 == 1 && canSkip(f.Label, pos) {
			da, db := addLogsDeriv(addLogs(last[pos-2], last[pos-1]), last[pos], upstream[pos])
			lastGrad[pos] += db
			da, db = addLogsDeriv(last[pos-2], last[pos-1], da)
			lastGrad[pos-2] += da
			lastGrad[pos-1] += db
		} else {
			da, db := addLogsDeriv(last[pos-1], last[pos], upstream[pos])
			lastGrad[pos-1] += da
			lastGrad[pos] += db
		}
	}

	c := f.Alpha.Output().Creator()
	if g.Intersects(f.Alpha.Vars()) {
		f.Alpha.Propagate(makeVector(c, lastGrad), g)
	}
	if g.Intersects(f.In.Vars()) {
		f.In.Propagate(makeVector(f.In.Output().Creator(), inGrad), g)
	}
}

// allZero checks for an upstream vector which cannot
// contribute to the gradient.
// Skipping such vectors keeps masked, non-finite costs
// from producing NaN gradients.
func allZero(v []float64) bool {
	for _, x := range v {
		if x != 0 {
			return false
		}
	}
	return true
}

// addLogs adds two numbers in the log domain.
func addLogs(a, b float64) float64 {
	if math.IsInf(a, -1) {
		return b
	} else if math.IsInf(b, -1) {
		return a
	}
	max := math.Max(a, b)
	return math.Log(math.Exp(a-max)+math.Exp(b-max)) + max
}

// addLogsDeriv computes the partial derivatives of
// addLogs(a, b), scaled by upstream.
func addLogsDeriv(a, b, upstream float64) (da, db float64) {
	if math.IsInf(a, -1) && math.IsInf(b, -1) {
		return
	}
	sum := addLogs(a, b)
	da = upstream * math.Exp(a-sum)
	db = upstream * math.Exp(b-sum)
	return
}

// endSum adds the final two forward variables, which
// correspond to ending on the last label or on the
// trailing blank.
type endSum struct {
	In     anydiff.Res
	OutVec anyvec.Vector
}

func newEndSum(alpha anydiff.Res) *endSum {
	v := s2sloss.Float64s(alpha.Output())
	return &endSum{
		In:     alpha,
		OutVec: makeVector(alpha.Output().Creator(), []float64{addLogs(v[len(v)-1], v[len(v)-2])}),
	}
}

func (e *endSum) Output() anyvec.Vector {
	return e.OutVec
}

func (e *endSum) Vars() anydiff.VarSet {
	return e.In.Vars()
}

func (e *endSum) Propagate(u anyvec.Vector, g anydiff.Grad) {
	upstream := s2sloss.Float64s(u)
	if allZero(upstream) {
		return
	}
	v := s2sloss.Float64s(e.In.Output())
	da, db := addLogsDeriv(v[len(v)-1], v[len(v)-2], upstream[0])
	down := make([]float64, len(v))
	down[len(v)-1] = da
	down[len(v)-2] = db
	e.In.Propagate(makeVector(u.Creator(), down), g)
}
