package anysgd

import "github.com/unixpickle/anydiff"

// Momentum implements SGD with momentum.
//
// The transformed gradient v is computed as
//
//	v := Momentum*v + grad
type Momentum struct {
	Momentum float64

	velocity anydiff.Grad
}

// Transform applies momentum to the gradient.
//
// This is not thread-safe.
func (m *Momentum) Transform(g anydiff.Grad) anydiff.Grad {
	if m.velocity == nil {
		m.velocity = zeroGrad(g)
	}
	for v, vec := range g {
		vel := m.velocity[v]
		vel.Scale(vel.Creator().MakeNumeric(m.Momentum))
		vel.Add(vec)
		vec.Set(vel)
	}
	return g
}
