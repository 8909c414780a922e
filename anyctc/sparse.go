package anyctc

import (
	"fmt"

	"github.com/unixpickle/s2sloss"
)

// SparseLabels stores the valid entries of a padded label
// matrix.
//
// Indices lists (row, column) pairs in row-major order,
// and Values stores the corresponding labels.
// Shape is the shape of the original dense matrix.
type SparseLabels struct {
	Indices [][2]int
	Values  []int
	Shape   [2]int
}

// DenseToSparse keeps the entries of each row of dense
// which are before the row's length.
// Everything past a row's length is padding and is
// dropped.
func DenseToSparse(dense *s2sloss.IntMatrix, lengths []int) (*SparseLabels, error) {
	if len(lengths) != dense.Rows {
		return nil, fmt.Errorf("dense to sparse: got %d lengths for %d rows",
			len(lengths), dense.Rows)
	}
	res := &SparseLabels{Shape: [2]int{dense.Rows, dense.Cols}}
	for row, length := range lengths {
		if length < 0 || length > dense.Cols {
			return nil, fmt.Errorf("dense to sparse: length %d out of range [0, %d]",
				length, dense.Cols)
		}
		for col := 0; col < length; col++ {
			res.Indices = append(res.Indices, [2]int{row, col})
			res.Values = append(res.Values, dense.At(row, col))
		}
	}
	return res, nil
}

// Sequences groups the values by row.
// Rows without entries produce empty sequences.
func (s *SparseLabels) Sequences() [][]int {
	res := make([][]int, s.Shape[0])
	for i := range res {
		res[i] = []int{}
	}
	for i, idx := range s.Indices {
		res[idx[0]] = append(res[idx[0]], s.Values[i])
	}
	return res
}
