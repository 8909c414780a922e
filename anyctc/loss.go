package anyctc

import (
	"fmt"

	"github.com/unixpickle/anydiff"
	"github.com/unixpickle/anyvec"
	"github.com/unixpickle/essentials"
	"github.com/unixpickle/s2sloss"
)

// DefaultName is the name given to a Loss whose params
// do not specify one.
const DefaultName = "ctc_loss"

// Loss is the CTC loss for a batch of logit sequences.
//
// The loss is the average, over the batch, of each
// sequence's negative log likelihood.
type Loss struct {
	// Params is a copy of the configuration with defaults
	// applied.
	Params s2sloss.Params

	creator anyvec.Creator
}

// NewLoss creates a Loss from its parameters.
//
// The CTC loss only runs in float32.
// Any other dtype is replaced with a warning.
func NewLoss(p *s2sloss.Params) (*Loss, error) {
	params := *p
	if params.Name == "" {
		params.Name = DefaultName
	}
	if params.MaskNaN == nil {
		mask := true
		params.MaskNaN = &mask
	}
	if params.DType != s2sloss.Float32 {
		s2sloss.Logger.Println("Warning: defaulting CTC loss to work in float32")
		params.DType = s2sloss.Float32
	}
	if err := params.Validate(); err != nil {
		return nil, essentials.AddCtx("new CTC loss", err)
	}
	return &Loss{Params: params, creator: params.DType.Creator()}, nil
}

// Compute computes the average CTC loss of the batch.
func (l *Loss) Compute(in *s2sloss.Input) (anydiff.Res, error) {
	costs, _, err := l.PerExample(in)
	if err != nil {
		return nil, err
	}
	return s2sloss.Mean(costs), nil
}

// PerExample computes a cost for each sequence in the
// batch.
//
// If NaN masking is enabled, non-finite costs are zeroed.
// The returned count is the number of non-finite costs,
// whether or not they were masked.
func (l *Loss) PerExample(in *s2sloss.Input) (costs anydiff.Res, nonFinite int, err error) {
	labels, err := l.labels(in)
	if err != nil {
		return nil, 0, essentials.AddCtx(l.Params.Name, err)
	}

	castIn := *in
	castIn.Logits = cast(l.creator, in.Logits)
	costs = DenseCost(&castIn, labels, true)

	nonFinite = s2sloss.NumMasked(costs.Output())
	if l.Params.MaskNaNEnabled() {
		costs = s2sloss.MaskNaNs(costs)
	}
	return costs, nonFinite, nil
}

func (l *Loss) labels(in *s2sloss.Input) ([][]int, error) {
	if err := in.Validate(); err != nil {
		return nil, err
	}
	sparse, err := DenseToSparse(in.TgtSequence, in.TgtLengths)
	if err != nil {
		return nil, err
	}
	labels := sparse.Sequences()
	if err := checkLabels(labels, in.NumClasses); err != nil {
		return nil, err
	}
	return labels, nil
}

func checkLabels(labels [][]int, numClasses int) error {
	blank := numClasses - 1
	for i, seq := range labels {
		for _, x := range seq {
			if x < 0 || x >= blank {
				return fmt.Errorf("sequence %d: label %d out of range [0, %d)",
					i, x, blank)
			}
		}
	}
	return nil
}
