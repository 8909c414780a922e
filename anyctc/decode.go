package anyctc

import (
	"math"
	"sort"

	"github.com/unixpickle/s2sloss"
)

// DefaultBlankThreshold is a blankThresh for BestLabels
// that keeps the search fast without hurting accuracy.
const DefaultBlankThreshold = -1e-3

// BestLabels runs a prefix search to find the most likely
// labeling of each sequence of logits.
//
// The logits are normalized with a log-softmax at every
// valid timestep.
//
// The blankThresh argument controls how greedily blanks
// are handled.
// Any timestep where the blank's log probability exceeds
// blankThresh is treated as a certain blank, and the
// search is split at that timestep.
// A blankThresh of zero makes the search exponential in
// the sequence length.
func BestLabels(in *s2sloss.Input, blankThresh float64) [][]int {
	logits := s2sloss.Float64s(in.Logits.Output())
	res := make([][]int, in.BatchSize())
	for i := range res {
		steps := make([][]float64, in.SrcLengths[i])
		for t := range steps {
			start := in.Offset(i, t)
			steps[t] = logSoftmax(logits[start : start+in.NumClasses])
		}
		res[i] = []int{}
		for _, chunk := range splitOnBlanks(steps, blankThresh) {
			res[i] = append(res[i], searchChunk(chunk)...)
		}
	}
	return res
}

// GreedyLabels decodes each sequence of logits by taking
// the most likely class at every valid timestep, merging
// repeated classes, and dropping blanks.
func GreedyLabels(in *s2sloss.Input) [][]int {
	logits := s2sloss.Float64s(in.Logits.Output())
	blank := in.NumClasses - 1
	res := make([][]int, in.BatchSize())
	for i := range res {
		res[i] = []int{}
		prev := blank
		for t := 0; t < in.SrcLengths[i]; t++ {
			start := in.Offset(i, t)
			best := argmax(logits[start : start+in.NumClasses])
			if best != blank && best != prev {
				res[i] = append(res[i], best)
			}
			prev = best
		}
	}
	return res
}

func argmax(v []float64) int {
	var idx int
	for i, x := range v {
		if x > v[idx] {
			idx = i
		}
	}
	return idx
}

func logSoftmax(v []float64) []float64 {
	max := v[argmax(v)]
	var sum float64
	for _, x := range v {
		sum += math.Exp(x - max)
	}
	norm := max + math.Log(sum)
	res := make([]float64, len(v))
	for i, x := range v {
		res[i] = x - norm
	}
	return res
}

// splitOnBlanks removes near-certain blanks from seq and
// returns the runs of timesteps between them.
func splitOnBlanks(seq [][]float64, blankThresh float64) [][][]float64 {
	var chunks [][][]float64
	var chunk [][]float64
	for _, x := range seq {
		if x[len(x)-1] > blankThresh {
			if len(chunk) > 0 {
				chunks = append(chunks, chunk)
				chunk = nil
			}
		} else {
			chunk = append(chunk, x)
		}
	}
	if len(chunk) > 0 {
		chunks = append(chunks, chunk)
	}
	return chunks
}

// A prefix is a partial labeling after Steps timesteps.
//
// Blank and NoBlank are the log probabilities of the
// paths producing the labeling which end in a blank or
// in the last label, respectively.
type prefix struct {
	Labels  []int
	Steps   int
	Blank   float64
	NoBlank float64
}

func (p *prefix) Total() float64 {
	return addLogs(p.Blank, p.NoBlank)
}

// Children lists every way to extend p by the next
// timestep of log probabilities.
func (p *prefix) Children(step []float64) []*prefix {
	blank := len(step) - 1
	total := p.Total()
	res := make([]*prefix, 0, len(step))

	same := &prefix{
		Labels:  p.Labels,
		Steps:   p.Steps + 1,
		Blank:   total + step[blank],
		NoBlank: math.Inf(-1),
	}
	if n := len(p.Labels); n > 0 {
		same.NoBlank = p.NoBlank + step[p.Labels[n-1]]
	}
	res = append(res, same)

	for label, prob := range step[:blank] {
		// A repeat needs a blank in between.
		from := total
		if n := len(p.Labels); n > 0 && p.Labels[n-1] == label {
			from = p.Blank
		}
		labels := make([]int, len(p.Labels)+1)
		copy(labels, p.Labels)
		labels[len(p.Labels)] = label
		res = append(res, &prefix{
			Labels:  labels,
			Steps:   p.Steps + 1,
			Blank:   math.Inf(-1),
			NoBlank: from + prob,
		})
	}
	return res
}

// searchChunk finds the most likely labeling of a run of
// timesteps with a depth-first branch and bound search.
//
// A prefix's probability never grows as timesteps are
// added, so any prefix less likely than the best complete
// labeling is pruned.
func searchChunk(seq [][]float64) []int {
	var best *prefix
	bestProb := math.Inf(-1)
	stack := []*prefix{{NoBlank: math.Inf(-1)}}
	for len(stack) > 0 {
		p := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		if p.Total() <= bestProb {
			continue
		}
		if p.Steps == len(seq) {
			best, bestProb = p, p.Total()
			continue
		}
		children := p.Children(seq[p.Steps])
		// Visit the likeliest child first.
		sort.Slice(children, func(i, j int) bool {
			return children[i].Total() < children[j].Total()
		})
		stack = append(stack, children...)
	}
	if best == nil {
		return nil
	}
	return best.Labels
}
