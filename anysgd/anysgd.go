// Package anysgd provides a mini-batch Stochastic
// Gradient Descent loop for training with a loss.
package anysgd

import (
	"context"
	"errors"
	"math/rand"

	"github.com/unixpickle/anydiff"
	"github.com/unixpickle/essentials"
)

// SGD performs stochastic gradient descent.
type SGD struct {
	// Fetcher turns mini-batches of samples into Batches.
	Fetcher Fetcher

	// Gradienter computes the gradient for each Batch.
	Gradienter Gradienter

	// Samples is the list of training samples.
	// It will be shuffled and re-shuffled as needed.
	//
	// The list may not be empty.
	Samples SampleList

	// Transformer, if non-nil, is applied to every
	// gradient before it is scaled by the learning rate.
	Transformer Transformer

	// Rater determines the learning rate for each step.
	Rater Rater

	// Rand, if non-nil, is used to shuffle Samples.
	Rand *rand.Rand

	// StatusFunc, if non-nil, is called after every step
	// with the step number, starting at 1.
	StatusFunc func(step int)

	// BatchSize is the mini-batch size.
	// If it is 0, then the entire sample list is used at
	// every step.
	BatchSize int

	// NumSteps is the number of steps to run.
	// If it is 0, Run continues until its context is done.
	NumSteps int

	// NumProcessed is the number of samples that have
	// been used so far.
	// It is used to compute the epoch for Rater.
	NumProcessed int
}

// Run runs SGD until the context is done or NumSteps
// steps have been taken.
//
// Cancellation is not an error: Run returns nil once the
// context is done.
func (s *SGD) Run(ctx context.Context) error {
	if s.Samples.Len() == 0 {
		return errors.New("run SGD: empty sample list")
	}
	idx := s.Samples.Len()
	for step := 1; s.NumSteps == 0 || step <= s.NumSteps; step++ {
		select {
		case <-ctx.Done():
			return nil
		default:
		}

		remaining := s.Samples.Len() - idx
		if remaining == 0 {
			Shuffle(s.Rand, s.Samples)
			idx = 0
			remaining = s.Samples.Len()
		}
		batchSize := s.batchSize(remaining)
		samples := s.Samples.Slice(idx, idx+batchSize)
		idx += batchSize

		batch, err := s.Fetcher.Fetch(samples)
		if err != nil {
			return essentials.AddCtx("run SGD", err)
		}
		grad, err := s.Gradienter.Gradient(batch)
		if err != nil {
			return essentials.AddCtx("run SGD", err)
		}

		if s.Transformer != nil {
			grad = s.Transformer.Transform(grad)
		}

		epoch := float64(s.NumProcessed) / float64(s.Samples.Len())
		scaleGradient(grad, -s.Rater.Rate(epoch))
		grad.AddToVars()
		s.NumProcessed += batchSize

		if s.StatusFunc != nil {
			s.StatusFunc(step)
		}
	}
	return nil
}

func (s *SGD) batchSize(remaining int) int {
	if s.BatchSize == 0 || s.BatchSize > remaining {
		return remaining
	}
	return s.BatchSize
}

func scaleGradient(g anydiff.Grad, s float64) {
	for _, v := range g {
		g.Scale(v.Creator().MakeNumeric(s))
		return
	}
}
