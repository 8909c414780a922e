package s2sloss

import (
	"fmt"
	"math"

	"github.com/unixpickle/anydiff"
	"github.com/unixpickle/anyvec"
)

// Float64s copies the components of a vector into a new
// []float64.
//
// The vector must use a []float32 or []float64 numeric
// list type.
func Float64s(v anyvec.Vector) []float64 {
	switch d := v.Data().(type) {
	case []float64:
		return append([]float64{}, d...)
	case []float32:
		res := make([]float64, len(d))
		for i, x := range d {
			res[i] = float64(x)
		}
		return res
	default:
		panic(fmt.Sprintf("unsupported numeric type: %T", d))
	}
}

// MaskNaNs replaces every non-finite component of the
// input with zero.
// Masked components pass no gradient back to the input.
func MaskNaNs(in anydiff.Res) anydiff.Res {
	vals := Float64s(in.Output())
	keep := make([]bool, len(vals))
	for i, x := range vals {
		if math.IsNaN(x) || math.IsInf(x, 0) {
			vals[i] = 0
		} else {
			keep[i] = true
		}
	}
	c := in.Output().Creator()
	return &maskRes{
		In:     in,
		Keep:   keep,
		OutVec: c.MakeVectorData(c.MakeNumericList(vals)),
	}
}

type maskRes struct {
	In     anydiff.Res
	Keep   []bool
	OutVec anyvec.Vector
}

func (m *maskRes) Output() anyvec.Vector {
	return m.OutVec
}

func (m *maskRes) Vars() anydiff.VarSet {
	return m.In.Vars()
}

func (m *maskRes) Propagate(u anyvec.Vector, g anydiff.Grad) {
	down := Float64s(u)
	for i, keep := range m.Keep {
		if !keep {
			down[i] = 0
		}
	}
	c := u.Creator()
	m.In.Propagate(c.MakeVectorData(c.MakeNumericList(down)), g)
}

// NumMasked returns the number of components that
// MaskNaNs would replace.
func NumMasked(v anyvec.Vector) int {
	var res int
	for _, x := range Float64s(v) {
		if math.IsNaN(x) || math.IsInf(x, 0) {
			res++
		}
	}
	return res
}

// Mean averages the components of the input.
// The input may not be empty.
func Mean(in anydiff.Res) anydiff.Res {
	n := in.Output().Len()
	if n == 0 {
		panic("cannot average empty vector")
	}
	c := in.Output().Creator()
	return anydiff.Scale(anydiff.Sum(in), c.MakeNumeric(1/float64(n)))
}
