package s2sloss

import (
	"testing"

	"github.com/unixpickle/anydiff"
	"github.com/unixpickle/anyvec/anyvec32"
)

func testInput(batch, time, classes, labelCols int) *Input {
	return &Input{
		Logits:      anydiff.NewConst(anyvec32.CurrentCreator().MakeVector(batch * time * classes)),
		NumClasses:  classes,
		SrcLengths:  make([]int, batch),
		TgtSequence: NewIntMatrix(batch, labelCols),
		TgtLengths:  make([]int, batch),
	}
}

func TestInputShape(t *testing.T) {
	in := testInput(2, 5, 3, 4)
	if err := in.Validate(); err != nil {
		t.Fatal(err)
	}
	if in.BatchSize() != 2 || in.MaxTime() != 5 {
		t.Errorf("bad shape: batch=%d time=%d", in.BatchSize(), in.MaxTime())
	}
	if off := in.Offset(1, 2); off != (1*5+2)*3 {
		t.Errorf("bad batch-major offset %d", off)
	}
	in.TimeMajor = true
	if off := in.Offset(1, 2); off != (2*2+1)*3 {
		t.Errorf("bad time-major offset %d", off)
	}
}

func TestInputValidateErrors(t *testing.T) {
	cases := map[string]func(in *Input){
		"LongSource":  func(in *Input) { in.SrcLengths[0] = 6 },
		"NegSource":   func(in *Input) { in.SrcLengths[1] = -1 },
		"LongTarget":  func(in *Input) { in.TgtLengths[0] = 5 },
		"BatchTarget": func(in *Input) { in.TgtLengths = in.TgtLengths[:1] },
		"Classes":     func(in *Input) { in.NumClasses = 4 },
		"NoTargets":   func(in *Input) { in.TgtSequence = nil },
		"Empty":       func(in *Input) { in.SrcLengths = nil },
	}
	for name, modify := range cases {
		t.Run(name, func(t *testing.T) {
			in := testInput(2, 5, 3, 4)
			modify(in)
			if in.Validate() == nil {
				t.Error("expected an error")
			}
		})
	}
}
