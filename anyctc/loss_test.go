package anyctc

import (
	"bytes"
	"log"
	"math"
	"strings"
	"testing"

	"github.com/unixpickle/anydiff"
	"github.com/unixpickle/anydiff/anydifftest"
	"github.com/unixpickle/anyvec"
	"github.com/unixpickle/anyvec/anyvec32"
	"github.com/unixpickle/anyvec/anyvec64"
	"github.com/unixpickle/s2sloss"
)

var testProbs = [][][]float64{
	{{0.3, 0.2, 0.5}, {0.1, 0.5, 0.4}},
	{{0.2, 0.2, 0.6}, {0.1, 0.1, 0.8}},
}

func TestLossOutput(t *testing.T) {
	in := testDenseInput(testProbs, []int{2, 2})
	in.TgtSequence = &s2sloss.IntMatrix{Rows: 2, Cols: 2, Data: []int{0, 1, 7, 7}}
	in.TgtLengths = []int{2, 0}

	l := newTestLoss(t, &s2sloss.Params{})
	actual := computeLoss(t, l, in)
	expected := (-math.Log(0.3*0.5) - math.Log(0.6*0.8)) / 2
	if math.Abs(actual-expected) > testPrecision {
		t.Errorf("expected %f but got %f", expected, actual)
	}
}

func TestLossTimeMajor(t *testing.T) {
	batchMajor := testDenseInput(testProbs, []int{2, 1})
	var transposed []float64
	for step := 0; step < 2; step++ {
		for _, seq := range testProbs {
			for _, p := range seq[step] {
				transposed = append(transposed, math.Log(p))
			}
		}
	}
	timeMajor := *batchMajor
	timeMajor.Logits = anydiff.NewVar(makeVector(anyvec32.CurrentCreator(), transposed))
	timeMajor.TimeMajor = true

	for _, in := range []*s2sloss.Input{batchMajor, &timeMajor} {
		in.TgtSequence = &s2sloss.IntMatrix{Rows: 2, Cols: 2, Data: []int{0, 1, 1, 0}}
		in.TgtLengths = []int{2, 1}
	}

	l := newTestLoss(t, &s2sloss.Params{})
	expected := computeLoss(t, l, batchMajor)
	actual := computeLoss(t, l, &timeMajor)
	if math.Abs(actual-expected) > 1e-5 {
		t.Errorf("expected %f but got %f", expected, actual)
	}
}

func TestLossNonNegative(t *testing.T) {
	c := anyvec32.CurrentCreator()
	l := newTestLoss(t, &s2sloss.Params{})
	for i := 0; i < 10; i++ {
		in := randomInput(c, 4, 6, 5, 3)
		actual := computeLoss(t, l, in)
		if actual < 0 || math.IsNaN(actual) || math.IsInf(actual, 0) {
			t.Errorf("trial %d: invalid loss %f", i, actual)
		}
	}
}

func TestLossMaskNaN(t *testing.T) {
	in := testDenseInput(testProbs, []int{2, 2})

	// The second label repeats a symbol, which needs
	// three timesteps.
	in.TgtSequence = &s2sloss.IntMatrix{Rows: 2, Cols: 2, Data: []int{0, 1, 1, 1}}
	in.TgtLengths = []int{2, 2}

	l := newTestLoss(t, &s2sloss.Params{})
	costs, nonFinite, err := l.PerExample(in)
	if err != nil {
		t.Fatal(err)
	}
	if nonFinite != 1 {
		t.Errorf("expected 1 non-finite cost but got %d", nonFinite)
	}
	actual := s2sloss.Float64s(s2sloss.Mean(costs).Output())[0]
	expected := -math.Log(0.3*0.5) / 2
	if math.Abs(actual-expected) > testPrecision {
		t.Errorf("expected %f but got %f", expected, actual)
	}

	disabled := false
	l = newTestLoss(t, &s2sloss.Params{MaskNaN: &disabled})
	if actual := computeLoss(t, l, in); !math.IsInf(actual, 1) {
		t.Errorf("expected unmasked loss to be +Inf but got %f", actual)
	}
}

func TestLossMaskNaNGrad(t *testing.T) {
	c := anyvec32.CurrentCreator()
	logits := make([]float64, 2*2*3)
	logits[6] = math.NaN()
	v := anydiff.NewVar(makeVector(c, logits))
	in := &s2sloss.Input{
		Logits:      v,
		NumClasses:  3,
		SrcLengths:  []int{2, 2},
		TgtSequence: &s2sloss.IntMatrix{Rows: 2, Cols: 1, Data: []int{0, 1}},
		TgtLengths:  []int{1, 1},
	}
	l := newTestLoss(t, &s2sloss.Params{})
	cost, err := l.Compute(in)
	if err != nil {
		t.Fatal(err)
	}
	actual := s2sloss.Float64s(cost.Output())[0]

	// With uniform logits, each of the 3 paths for the
	// label has probability 1/9.
	expected := math.Log(3) / 2
	if math.Abs(actual-expected) > testPrecision {
		t.Errorf("expected %f but got %f", expected, actual)
	}

	grad := anydiff.NewGrad(v)
	cost.Propagate(makeVector(c, []float64{1}), grad)
	for i, x := range s2sloss.Float64s(grad[v]) {
		if math.IsNaN(x) || math.IsInf(x, 0) {
			t.Errorf("gradient %d is %f", i, x)
		} else if i >= 6 && x != 0 {
			t.Errorf("masked gradient %d should be 0 but got %f", i, x)
		}
	}
}

func TestLossIgnoreLonger(t *testing.T) {
	in := testDenseInput(testProbs, []int{2, 2})
	in.TgtSequence = &s2sloss.IntMatrix{Rows: 2, Cols: 3, Data: []int{0, 1, 0, 1, 0, 1}}
	in.TgtLengths = []int{2, 3}

	l := newTestLoss(t, &s2sloss.Params{})
	costs, nonFinite, err := l.PerExample(in)
	if err != nil {
		t.Fatal(err)
	}
	if nonFinite != 0 {
		t.Errorf("expected no non-finite costs but got %d", nonFinite)
	}
	if x := s2sloss.Float64s(costs.Output())[1]; x != 0 {
		t.Errorf("expected ignored cost 0 but got %f", x)
	}
}

func TestLossGrad(t *testing.T) {
	c := anyvec32.CurrentCreator()
	in := randomInput(c, 3, 5, 4, 3)
	l := newTestLoss(t, &s2sloss.Params{})
	ch := anydifftest.ResChecker{
		F: func() anydiff.Res {
			res, err := l.Compute(in)
			if err != nil {
				t.Fatal(err)
			}
			return res
		},
		V:     []*anydiff.Var{in.Logits.(*anydiff.Var)},
		Prec:  testPrecision * 3,
		Delta: testPrecision,
	}
	ch.FullCheck(t)
}

func TestLossFloat64Input(t *testing.T) {
	c := anyvec64.DefaultCreator{}
	in := randomInput(c, 2, 4, 3, 2)
	l := newTestLoss(t, &s2sloss.Params{})
	cost, err := l.Compute(in)
	if err != nil {
		t.Fatal(err)
	}
	if _, ok := cost.Output().Data().([]float32); !ok {
		t.Errorf("expected float32 output but got %T", cost.Output().Data())
	}
	v := in.Logits.(*anydiff.Var)
	grad := anydiff.NewGrad(v)
	cost.Propagate(makeVector(cost.Output().Creator(), []float64{1}), grad)
	if _, ok := grad[v].Data().([]float64); !ok {
		t.Errorf("expected float64 gradient but got %T", grad[v].Data())
	}
}

func TestNewLossDType(t *testing.T) {
	var buf bytes.Buffer
	oldLogger := s2sloss.Logger
	s2sloss.Logger = log.New(&buf, "", 0)
	defer func() {
		s2sloss.Logger = oldLogger
	}()

	p := &s2sloss.Params{DType: s2sloss.Mixed}
	l := newTestLoss(t, p)
	if l.Params.DType != s2sloss.Float32 {
		t.Errorf("expected float32 but got %v", l.Params.DType)
	}
	if l.Params.Name != DefaultName || !l.Params.MaskNaNEnabled() {
		t.Errorf("unexpected defaults: %+v", l.Params)
	}
	if !strings.Contains(buf.String(), "defaulting CTC loss to work in float32") {
		t.Errorf("missing warning, got %q", buf.String())
	}

	buf.Reset()
	newTestLoss(t, &s2sloss.Params{Name: "ctc", DType: s2sloss.Float32})
	if buf.Len() != 0 {
		t.Errorf("unexpected warning: %q", buf.String())
	}
}

func TestLossErrors(t *testing.T) {
	l := newTestLoss(t, &s2sloss.Params{})

	in := testDenseInput(testProbs, []int{2, 2})
	in.TgtSequence = &s2sloss.IntMatrix{Rows: 2, Cols: 1, Data: []int{2, 0}}
	in.TgtLengths = []int{1, 1}
	if _, err := l.Compute(in); err == nil {
		t.Error("expected error for blank label")
	}

	in.TgtLengths = []int{1}
	if _, err := l.Compute(in); err == nil {
		t.Error("expected error for mismatched lengths")
	}
}

func newTestLoss(t *testing.T, p *s2sloss.Params) *Loss {
	l, err := NewLoss(p)
	if err != nil {
		t.Fatal(err)
	}
	return l
}

func computeLoss(t *testing.T, l *Loss, in *s2sloss.Input) float64 {
	res, err := l.Compute(in)
	if err != nil {
		t.Fatal(err)
	}
	out := s2sloss.Float64s(res.Output())
	if len(out) != 1 {
		t.Fatalf("expected scalar but got %d components", len(out))
	}
	return out[0]
}

// randomInput creates batch-major random logits and
// random labels which always fit in their sequences.
func randomInput(c anyvec.Creator, batch, steps, classes, maxLabel int) *s2sloss.Input {
	logits := c.MakeVector(batch * steps * classes)
	anyvec.Rand(logits, anyvec.Normal, nil)
	in := &s2sloss.Input{
		Logits:      anydiff.NewVar(logits),
		NumClasses:  classes,
		SrcLengths:  make([]int, batch),
		TgtSequence: s2sloss.NewIntMatrix(batch, maxLabel),
		TgtLengths:  make([]int, batch),
	}
	for i := 0; i < batch; i++ {
		in.SrcLengths[i] = steps - i%2
		in.TgtLengths[i] = i % (maxLabel + 1)
		for j := 0; j < in.TgtLengths[i]; j++ {
			in.TgtSequence.Set(i, j, (i+j)%(classes-1))
		}
	}
	return in
}
