package main

import (
	"math/rand"

	"github.com/unixpickle/anyvec"
	"github.com/unixpickle/s2sloss/anyctc"
)

// framesPerSymbol bounds how many frames each symbol or
// gap occupies.
const framesPerSymbol = 3

// GenerateSamples creates a synthetic frame labelling
// task.
//
// Each label symbol is spoken for one to a few frames,
// and symbols are separated by silent frames.
// The features of a frame are a noisy one-hot vector of
// Symbols+1 components, where the last component means
// silence.
func GenerateSamples(r *rand.Rand, c anyvec.Creator, cfg DataConfig, count int) anyctc.SliceSampleList {
	res := make(anyctc.SliceSampleList, count)
	for i := range res {
		label := make([]int, r.Intn(cfg.MaxLabel+1))
		for j := range label {
			label[j] = r.Intn(cfg.Symbols)
		}
		var frames []int
		silence := cfg.Symbols
		frames = appendFrames(r, frames, silence)
		for _, symbol := range label {
			frames = appendFrames(r, frames, symbol)
			frames = appendFrames(r, frames, silence)
		}

		sample := &anyctc.Sample{Label: label}
		for _, class := range frames {
			vec := make([]float64, cfg.Symbols+1)
			for k := range vec {
				vec[k] = r.NormFloat64() * cfg.Noise
			}
			vec[class] += 1
			sample.Input = append(sample.Input, c.MakeVectorData(c.MakeNumericList(vec)))
		}
		res[i] = sample
	}
	return res
}

func appendFrames(r *rand.Rand, frames []int, class int) []int {
	n := 1 + r.Intn(framesPerSymbol)
	for i := 0; i < n; i++ {
		frames = append(frames, class)
	}
	return frames
}
