package s2sloss

import (
	"errors"
	"fmt"
	"math"
	"math/rand"

	"github.com/unixpickle/anydiff"
	"github.com/unixpickle/anyvec"
	"github.com/unixpickle/anyvec/anyvecsave"
	"github.com/unixpickle/essentials"
	"github.com/unixpickle/serializer"
)

func init() {
	var f FCDecoder
	serializer.RegisterTypedDeserializer(f.SerializerType(), DeserializeFCDecoder)
}

// FCDecoder projects encoder features to per-timestep
// class logits with a single fully-connected layer.
//
// For CTC, NumClasses includes the blank, which is the
// final class.
type FCDecoder struct {
	InFeatures int
	NumClasses int
	Weights    *anydiff.Var
	Biases     *anydiff.Var
}

// DeserializeFCDecoder attempts to deserialize an
// FCDecoder.
func DeserializeFCDecoder(d []byte) (*FCDecoder, error) {
	var weights, biases *anyvecsave.S
	if err := serializer.DeserializeAny(d, &weights, &biases); err != nil {
		return nil, essentials.AddCtx("deserialize FCDecoder", err)
	}
	numClasses := biases.Vector.Len()
	if numClasses == 0 || weights.Vector.Len()%numClasses != 0 {
		return nil, errors.New("deserialize FCDecoder: invalid matrix dimensions")
	}
	return &FCDecoder{
		InFeatures: weights.Vector.Len() / numClasses,
		NumClasses: numClasses,
		Weights:    anydiff.NewVar(weights.Vector),
		Biases:     anydiff.NewVar(biases.Vector),
	}, nil
}

// NewFCDecoder creates a randomized FCDecoder.
// The weights are scaled so that unit-variance inputs
// produce unit-variance logits.
//
// If r is nil, the global source is used.
func NewFCDecoder(c anyvec.Creator, r *rand.Rand, inFeatures, numClasses int) *FCDecoder {
	res := NewFCDecoderZero(c, inFeatures, numClasses)
	anyvec.Rand(res.Weights.Vector, anyvec.Normal, r)
	res.Weights.Vector.Scale(c.MakeNumeric(1 / math.Sqrt(float64(inFeatures))))
	return res
}

// NewFCDecoderZero creates an FCDecoder with all
// parameters set to zero.
func NewFCDecoderZero(c anyvec.Creator, inFeatures, numClasses int) *FCDecoder {
	return &FCDecoder{
		InFeatures: inFeatures,
		NumClasses: numClasses,
		Weights:    anydiff.NewVar(c.MakeVector(inFeatures * numClasses)),
		Biases:     anydiff.NewVar(c.MakeVector(numClasses)),
	}
}

// Apply computes logits for rows packed feature vectors.
//
// The layout of the rows is preserved, so batch-major
// features produce batch-major logits.
func (f *FCDecoder) Apply(in anydiff.Res, rows int) anydiff.Res {
	if rows*f.InFeatures != in.Output().Len() {
		panic(fmt.Sprintf("input length should be %d, but got %d",
			rows*f.InFeatures, in.Output().Len()))
	}
	weightMat := &anydiff.Matrix{
		Data: f.Weights,
		Rows: f.NumClasses,
		Cols: f.InFeatures,
	}
	inMat := &anydiff.Matrix{
		Data: in,
		Rows: rows,
		Cols: f.InFeatures,
	}
	weighted := anydiff.MatMul(false, true, inMat, weightMat)
	return anydiff.AddRepeated(weighted.Data, f.Biases)
}

// Parameters returns the weights and biases, in that
// order.
func (f *FCDecoder) Parameters() []*anydiff.Var {
	return []*anydiff.Var{f.Weights, f.Biases}
}

// SerializerType returns the unique ID used to serialize
// an FCDecoder with the serializer package.
func (f *FCDecoder) SerializerType() string {
	return "github.com/unixpickle/s2sloss.FCDecoder"
}

// Serialize serializes the FCDecoder.
func (f *FCDecoder) Serialize() ([]byte, error) {
	weights := &anyvecsave.S{Vector: f.Weights.Vector}
	biases := &anyvecsave.S{Vector: f.Biases.Vector}
	return serializer.SerializeAny(weights, biases)
}
