package main

import (
	"context"
	"math/rand"
	"path/filepath"
	"testing"

	"github.com/unixpickle/anyvec/anyvec32"
	"github.com/unixpickle/s2sloss"
	"github.com/unixpickle/s2sloss/anyctc"
)

func TestGenerateSamples(t *testing.T) {
	cfg := DefaultConfig().Data
	samples := GenerateSamples(rand.New(rand.NewSource(2)), anyvec32.CurrentCreator(),
		cfg, 20)
	if len(samples) != 20 {
		t.Fatalf("expected 20 samples but got %d", len(samples))
	}
	for i, sample := range samples {
		if len(sample.Label) > cfg.MaxLabel {
			t.Errorf("sample %d: label too long: %v", i, sample.Label)
		}
		if len(sample.Input) < 2*len(sample.Label)+1 {
			t.Errorf("sample %d: %d frames for %d labels", i, len(sample.Input),
				len(sample.Label))
		}
		for _, vec := range sample.Input {
			if vec.Len() != cfg.Symbols+1 {
				t.Fatalf("sample %d: bad feature count %d", i, vec.Len())
			}
		}
		for _, x := range sample.Label {
			if x < 0 || x >= cfg.Symbols {
				t.Errorf("sample %d: bad label %d", i, x)
			}
		}
	}
}

func TestRun(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Steps = 20
	cfg.LogEvery = 10
	cfg.Data.TrainCount = 32
	cfg.Data.TestCount = 8
	cfg.Decoder = "greedy"
	cfg.OutFile = filepath.Join(t.TempDir(), "decoder.bin")
	if err := run(context.Background(), cfg); err != nil {
		t.Fatal(err)
	}
	decoder, err := LoadDecoder(cfg.OutFile)
	if err != nil {
		t.Fatal(err)
	}
	if decoder.InFeatures != cfg.Data.Symbols+1 || decoder.NumClasses != cfg.Data.Symbols+1 {
		t.Errorf("unexpected decoder shape: %d -> %d", decoder.InFeatures,
			decoder.NumClasses)
	}
}

func TestEvaluate(t *testing.T) {
	c := anyvec32.CurrentCreator()
	cfg := DefaultConfig()
	cfg.Data.Noise = 0
	samples := GenerateSamples(rand.New(rand.NewSource(3)), c, cfg.Data, 16)

	// A scaled identity maps each one-hot frame to a
	// confident prediction of its class.
	n := cfg.Data.Symbols + 1
	decoder := s2sloss.NewFCDecoderZero(c, n, n)
	weights := make([]float64, n*n)
	for i := 0; i < n; i++ {
		weights[i*n+i] = 10
	}
	decoder.Weights.Vector.SetData(c.MakeNumericList(weights))
	tr := &anyctc.Trainer{Func: decoder.Apply, NumClasses: n}

	for _, name := range []string{"greedy", "prefix"} {
		cfg.Decoder = name
		ler, err := evaluate(tr, cfg.Decode, samples)
		if err != nil {
			t.Fatal(err)
		}
		if ler != 0 {
			t.Errorf("decoder %s: expected no errors but got rate %f", name, ler)
		}
	}
}
