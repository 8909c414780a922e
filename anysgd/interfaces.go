package anysgd

import "github.com/unixpickle/anydiff"

// A Batch is an immutable list of samples, prepared for
// a gradient computation.
//
// Batches are obtained using a Fetcher and then used as
// arguments to a Gradienter.
type Batch interface{}

// A Fetcher is responsible for fetching Batches for
// SampleLists.
type Fetcher interface {
	Fetch(s SampleList) (Batch, error)
}

// A Gradienter computes a gradient for a Batch.
//
// The same gradient instance may be re-used by successive
// calls to Gradient.
type Gradienter interface {
	Gradient(b Batch) (anydiff.Grad, error)
}

// A Transformer changes a gradient before it is applied,
// as done by adaptive optimizers.
//
// Transformers may modify the gradient in place and
// return it.
type Transformer interface {
	Transform(g anydiff.Grad) anydiff.Grad
}

// A Rater determines the learning rate given the epoch
// number.
// An "epoch" is a full pass over the training set, so
// fractional epochs are possible.
type Rater interface {
	Rate(epoch float64) float64
}

// A SampleList represents a list of training samples.
type SampleList interface {
	// Len returns the number of samples.
	Len() int

	// Swap swaps two samples.
	Swap(i, j int)

	// Slice generates a shallow copy of a subset of the
	// list.
	Slice(i, j int) SampleList
}

// PostShuffler is used to notify a SampleList that it has
// been shuffled, allowing it to re-order samples.
//
// For example, a list of sequences might sort nearby
// samples by length so that mini-batches need less
// padding.
type PostShuffler interface {
	PostShuffle()
}
