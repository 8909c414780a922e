// Package s2sloss provides the loss contract used to
// train sequence-to-sequence models built with anydiff.
//
// A Loss consumes the logits produced by a decoder along
// with the target label sequences, and produces a single
// differentiable scalar for an optimizer to minimize.
// See the anyctc sub-package for the CTC loss.
package s2sloss

import (
	"errors"
	"fmt"
	"log"
	"os"

	"github.com/unixpickle/anydiff"
)

// Logger receives warnings produced while configuring
// losses.
var Logger = log.New(os.Stderr, "*** ", log.LstdFlags)

// A Loss computes a scalar cost for a batch.
//
// The result of Compute has exactly one component.
type Loss interface {
	Compute(in *Input) (anydiff.Res, error)
}

// IntMatrix is a dense, row-major matrix of integers.
type IntMatrix struct {
	Rows int
	Cols int
	Data []int
}

// NewIntMatrix creates a zero matrix.
func NewIntMatrix(rows, cols int) *IntMatrix {
	return &IntMatrix{Rows: rows, Cols: cols, Data: make([]int, rows*cols)}
}

// At returns the entry at the given row and column.
func (i *IntMatrix) At(row, col int) int {
	return i.Data[row*i.Cols+col]
}

// Set sets the entry at the given row and column.
func (i *IntMatrix) Set(row, col, val int) {
	i.Data[row*i.Cols+col] = val
}

// Input stores everything needed to evaluate a loss on
// a batch.
type Input struct {
	// Logits is a packed tensor of unnormalized scores.
	// By default it is batch-major, with shape
	// [batch, time, NumClasses].
	// If TimeMajor is set, the shape is
	// [time, batch, NumClasses].
	Logits     anydiff.Res
	NumClasses int
	TimeMajor  bool

	// SrcLengths stores the number of valid timesteps in
	// each sequence of Logits.
	SrcLengths []int

	// TgtSequence stores one padded label sequence per
	// row, and TgtLengths gives the unpadded lengths.
	TgtSequence *IntMatrix
	TgtLengths  []int
}

// BatchSize returns the number of sequences.
func (i *Input) BatchSize() int {
	return len(i.SrcLengths)
}

// MaxTime returns the padded number of timesteps.
func (i *Input) MaxTime() int {
	if i.BatchSize() == 0 || i.NumClasses == 0 {
		return 0
	}
	return i.Logits.Output().Len() / (i.BatchSize() * i.NumClasses)
}

// Offset returns the index in Logits of the first
// component for the given sequence and timestep.
func (i *Input) Offset(seq, t int) int {
	if i.TimeMajor {
		return (t*i.BatchSize() + seq) * i.NumClasses
	}
	return (seq*i.MaxTime() + t) * i.NumClasses
}

// Validate checks that the shapes in the input agree.
func (i *Input) Validate() error {
	if i.Logits == nil || i.TgtSequence == nil {
		return errors.New("validate input: missing logits or targets")
	}
	n := i.BatchSize()
	if n == 0 {
		return errors.New("validate input: empty batch")
	}
	if i.NumClasses < 1 {
		return fmt.Errorf("validate input: invalid class count %d", i.NumClasses)
	}
	if len(i.TgtLengths) != n || i.TgtSequence.Rows != n {
		return fmt.Errorf("validate input: batch size %d does not match targets", n)
	}
	if len(i.TgtSequence.Data) != i.TgtSequence.Rows*i.TgtSequence.Cols {
		return errors.New("validate input: target matrix has bad data length")
	}
	logitsLen := i.Logits.Output().Len()
	if logitsLen%(n*i.NumClasses) != 0 {
		return fmt.Errorf("validate input: logits length %d not divisible by %d",
			logitsLen, n*i.NumClasses)
	}
	maxTime := i.MaxTime()
	for j, l := range i.SrcLengths {
		if l < 0 || l > maxTime {
			return fmt.Errorf("validate input: source length %d out of range [0, %d]",
				l, maxTime)
		}
		if tl := i.TgtLengths[j]; tl < 0 || tl > i.TgtSequence.Cols {
			return fmt.Errorf("validate input: target length %d out of range [0, %d]",
				tl, i.TgtSequence.Cols)
		}
	}
	return nil
}
