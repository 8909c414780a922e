// Package anyctc implements a Connectionist Temporal
// Classification (CTC) loss for sequence models.
//
// Dense, padded label matrices are converted to a sparse
// form, each sequence of logits is scored against its
// label with the CTC forward algorithm, and the costs are
// averaged over the batch.
//
// For more information on CTC, see this paper:
// http://www.cs.toronto.edu/~graves/icml_2006.pdf.
//
// Like TensorFlow, the blank symbol is the last class.
package anyctc
