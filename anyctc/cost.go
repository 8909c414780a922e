package anyctc

import (
	"github.com/unixpickle/anydiff"
	"github.com/unixpickle/s2sloss"
)

// DenseCost computes the negative log likelihood of each
// label given the logits in the input.
//
// The logits are normalized with a log-softmax at each
// valid timestep.
// Timesteps past a sequence's source length are ignored.
//
// If ignoreLonger is set, then sequences with labels
// longer than their source length get a cost of zero and
// contribute nothing to the gradient.
func DenseCost(in *s2sloss.Input, labels [][]int, ignoreLonger bool) anydiff.Res {
	c := in.Logits.Output().Creator()
	return anydiff.Pool(in.Logits, func(logits anydiff.Res) anydiff.Res {
		costs := make([]anydiff.Res, len(labels))
		for i, label := range labels {
			steps := in.SrcLengths[i]
			if ignoreLonger && len(label) > steps {
				costs[i] = anydiff.NewConst(c.MakeVector(1))
				continue
			}
			seq := make([]anydiff.Res, steps)
			for t := range seq {
				start := in.Offset(i, t)
				row := anydiff.Slice(logits, start, start+in.NumClasses)
				seq[t] = anydiff.LogSoftmax(row, in.NumClasses)
			}
			costs[i] = anydiff.Scale(logLikelihood(c, seq, label), c.MakeNumeric(-1))
		}
		return anydiff.Concat(costs...)
	})
}
