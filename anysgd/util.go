package anysgd

import (
	"math"
	"math/rand"
)

// Shuffle shuffles a list of samples.
// If r is nil, the global source is used.
// If the list implements PostShuffler, then PostShuffle
// is called after the shuffle completes.
func Shuffle(r *rand.Rand, s SampleList) {
	intn := rand.Intn
	if r != nil {
		intn = r.Intn
	}
	for i := 0; i < s.Len(); i++ {
		j := i + intn(s.Len()-i)
		s.Swap(i, j)
	}
	if p, ok := s.(PostShuffler); ok {
		p.PostShuffle()
	}
}

// A ConstRater is a Rater which always returns the same
// constant learning rate.
type ConstRater float64

// Rate returns float64(c).
func (c ConstRater) Rate(epoch float64) float64 {
	return float64(c)
}

// An ExpRater decays the learning rate exponentially with
// the epoch.
type ExpRater struct {
	Initial float64

	// Decay is the factor applied per epoch.
	Decay float64
}

// Rate returns Initial * Decay^epoch.
func (e ExpRater) Rate(epoch float64) float64 {
	return e.Initial * math.Pow(e.Decay, epoch)
}
