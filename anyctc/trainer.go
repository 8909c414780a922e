package anyctc

import (
	"errors"

	"github.com/unixpickle/anydiff"
	"github.com/unixpickle/anyvec"
	"github.com/unixpickle/essentials"
	"github.com/unixpickle/s2sloss"
	"github.com/unixpickle/s2sloss/anysgd"
)

// A Batch stores padded input sequences and the
// corresponding labels.
type Batch struct {
	// Features is a batch-major tensor with shape
	// [batch, MaxTime, NumFeatures].
	// Timesteps past a sequence's length are zero.
	Features    anydiff.Res
	MaxTime     int
	NumFeatures int
	SrcLengths  []int

	Labels     *s2sloss.IntMatrix
	TgtLengths []int
}

// A Trainer creates batches, computes gradients, and adds
// up costs for CTC.
type Trainer struct {
	// Func maps rows of features to rows of logits.
	// It is called with every timestep of every sequence
	// in a Batch, in batch-major order.
	Func       func(in anydiff.Res, rows int) anydiff.Res
	NumClasses int
	Loss       *Loss
	Params     []*anydiff.Var

	// After every gradient computation, LastCost is set to
	// the average cost of the batch, and LastSummary
	// describes the per-example costs.
	LastCost    anyvec.Numeric
	LastSummary s2sloss.Summary
}

// Fetch produces a *Batch for the subset of samples.
// The s argument must implement SampleList.
// The batch may not be empty.
func (t *Trainer) Fetch(s anysgd.SampleList) (anysgd.Batch, error) {
	if s.Len() == 0 {
		return nil, errors.New("fetch batch: empty batch")
	}
	l := s.(SampleList)
	samples := make([]*Sample, l.Len())
	maxTime, maxLabel, numFeatures := 1, 0, 0
	for i := range samples {
		sample, err := l.GetSample(i)
		if err != nil {
			return nil, essentials.AddCtx("fetch batch", err)
		}
		samples[i] = sample
		if len(sample.Input) > maxTime {
			maxTime = len(sample.Input)
		}
		if len(sample.Label) > maxLabel {
			maxLabel = len(sample.Label)
		}
		if len(sample.Input) > 0 {
			numFeatures = sample.Input[0].Len()
		}
	}
	if numFeatures == 0 {
		return nil, errors.New("fetch batch: no features")
	}

	res := &Batch{
		MaxTime:     maxTime,
		NumFeatures: numFeatures,
		SrcLengths:  make([]int, len(samples)),
		Labels:      s2sloss.NewIntMatrix(len(samples), maxLabel),
		TgtLengths:  make([]int, len(samples)),
	}
	data := make([]float64, len(samples)*maxTime*numFeatures)
	for i, sample := range samples {
		res.SrcLengths[i] = len(sample.Input)
		res.TgtLengths[i] = len(sample.Label)
		for j, x := range sample.Label {
			res.Labels.Set(i, j, x)
		}
		for step, vec := range sample.Input {
			if vec.Len() != numFeatures {
				return nil, errors.New("fetch batch: inconsistent feature count")
			}
			copy(data[(i*maxTime+step)*numFeatures:], s2sloss.Float64s(vec))
		}
	}
	c := l.Creator()
	res.Features = anydiff.NewConst(c.MakeVectorData(c.MakeNumericList(data)))
	return res, nil
}

// Input applies t.Func to the batch and produces an input
// for the loss.
func (t *Trainer) Input(b *Batch) *s2sloss.Input {
	rows := len(b.SrcLengths) * b.MaxTime
	return &s2sloss.Input{
		Logits:      t.Func(b.Features, rows),
		NumClasses:  t.NumClasses,
		SrcLengths:  b.SrcLengths,
		TgtSequence: b.Labels,
		TgtLengths:  b.TgtLengths,
	}
}

// TotalCost computes the average cost for the batch and
// updates t.LastSummary.
func (t *Trainer) TotalCost(b *Batch) (anydiff.Res, error) {
	costs, nonFinite, err := t.Loss.PerExample(t.Input(b))
	if err != nil {
		return nil, essentials.AddCtx("total cost", err)
	}
	t.LastSummary = s2sloss.Summarize(s2sloss.Float64s(costs.Output()), nonFinite)
	return s2sloss.Mean(costs), nil
}

// Gradient computes the gradient for the batch's cost.
// It also sets t.LastCost to the numerical value of the
// cost.
//
// The b argument must be a *Batch.
func (t *Trainer) Gradient(b anysgd.Batch) (anydiff.Grad, error) {
	res := anydiff.NewGrad(t.Params...)

	cost, err := t.TotalCost(b.(*Batch))
	if err != nil {
		return nil, err
	}
	t.LastCost = anyvec.Sum(cost.Output())

	c := cost.Output().Creator()
	upstream := c.MakeVectorData(c.MakeNumericList([]float64{1}))
	cost.Propagate(upstream, res)

	return res, nil
}
