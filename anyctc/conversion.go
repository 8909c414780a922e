package anyctc

import (
	"reflect"

	"github.com/unixpickle/anydiff"
	"github.com/unixpickle/anyvec"
	"github.com/unixpickle/s2sloss"
)

// makeVector creates a vector from float64 values using
// the creator's numeric type.
func makeVector(c anyvec.Creator, vals []float64) anyvec.Vector {
	return c.MakeVectorData(c.MakeNumericList(vals))
}

// sameNumericType checks if a vector already stores the
// numeric type produced by a creator.
func sameNumericType(v anyvec.Vector, c anyvec.Creator) bool {
	return reflect.TypeOf(v.Data()) == reflect.TypeOf(c.MakeNumericList(nil))
}

// castRes converts a result to a different creator.
// Gradients are converted back to the input's creator.
type castRes struct {
	In     anydiff.Res
	OutVec anyvec.Vector
}

func cast(c anyvec.Creator, in anydiff.Res) anydiff.Res {
	if sameNumericType(in.Output(), c) {
		return in
	}
	return &castRes{
		In:     in,
		OutVec: makeVector(c, s2sloss.Float64s(in.Output())),
	}
}

func (c *castRes) Output() anyvec.Vector {
	return c.OutVec
}

func (c *castRes) Vars() anydiff.VarSet {
	return c.In.Vars()
}

func (c *castRes) Propagate(u anyvec.Vector, g anydiff.Grad) {
	inCreator := c.In.Output().Creator()
	c.In.Propagate(makeVector(inCreator, s2sloss.Float64s(u)), g)
}
