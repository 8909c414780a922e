package anysgd

import (
	"math"

	"github.com/unixpickle/anydiff"
	"github.com/unixpickle/anyvec"
)

const (
	adamDefaultBeta1   = 0.9
	adamDefaultBeta2   = 0.999
	adamDefaultDamping = 1e-8
)

// Adam implements the adaptive moments technique from
// https://arxiv.org/abs/1412.6980.
type Adam struct {
	// Beta1 and Beta2 are the decay rates for the first
	// and second moment estimates.
	// If zero, 0.9 and 0.999 are used.
	Beta1, Beta2 float64

	// Damping is added to the second moment before it is
	// used as a divisor.
	// If zero, a small default is used.
	Damping float64

	first  anydiff.Grad
	second anydiff.Grad
	steps  float64
}

// Transform replaces each gradient vector with its bias
// corrected first moment, divided by the square root of
// its second moment.
//
// This is not thread-safe.
func (a *Adam) Transform(g anydiff.Grad) anydiff.Grad {
	beta1 := orDefault(a.Beta1, adamDefaultBeta1)
	beta2 := orDefault(a.Beta2, adamDefaultBeta2)
	damping := orDefault(a.Damping, adamDefaultDamping)

	if a.first == nil {
		a.first = zeroGrad(g)
		a.second = zeroGrad(g)
	}
	a.steps++
	correction := math.Sqrt(1-math.Pow(beta2, a.steps)) / (1 - math.Pow(beta1, a.steps))

	for v, vec := range g {
		c := vec.Creator()

		first := a.first[v]
		first.Scale(c.MakeNumeric(beta1))
		scaled := vec.Copy()
		scaled.Scale(c.MakeNumeric(1 - beta1))
		first.Add(scaled)

		second := a.second[v]
		second.Scale(c.MakeNumeric(beta2))
		sq := vec.Copy()
		anyvec.Pow(sq, c.MakeNumeric(2))
		sq.Scale(c.MakeNumeric(1 - beta2))
		second.Add(sq)

		divisor := second.Copy()
		divisor.AddScalar(c.MakeNumeric(damping))
		anyvec.Pow(divisor, c.MakeNumeric(0.5))

		vec.Set(first)
		vec.Scale(c.MakeNumeric(correction))
		vec.Div(divisor)
	}
	return g
}

func orDefault(x, def float64) float64 {
	if x == 0 {
		return def
	}
	return x
}

func zeroGrad(g anydiff.Grad) anydiff.Grad {
	res := anydiff.Grad{}
	for v, vec := range g {
		res[v] = vec.Creator().MakeVector(vec.Len())
	}
	return res
}
