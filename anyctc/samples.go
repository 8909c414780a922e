package anyctc

import (
	"sort"

	"github.com/unixpickle/anyvec"
	"github.com/unixpickle/anyvec/anyvec32"
	"github.com/unixpickle/s2sloss/anysgd"
)

// A Sample is a sequence of feature vectors paired with
// its label.
type Sample struct {
	Input []anyvec.Vector
	Label []int
}

// A SampleList is an anysgd.SampleList that produces
// CTC samples.
type SampleList interface {
	anysgd.SampleList

	GetSample(idx int) (*Sample, error)
	Creator() anyvec.Creator
}

// A SortableSampleList is a SampleList which can cheaply
// report the length of an input sequence.
type SortableSampleList interface {
	SampleList

	LenAt(idx int) int
}

// A SliceSampleList is a concrete SampleList with
// predetermined samples.
type SliceSampleList []*Sample

// Len returns the number of samples.
func (s SliceSampleList) Len() int {
	return len(s)
}

// Swap swaps two samples.
func (s SliceSampleList) Swap(i, j int) {
	s[i], s[j] = s[j], s[i]
}

// Slice copies a sub-slice of the list.
func (s SliceSampleList) Slice(i, j int) anysgd.SampleList {
	return append(SliceSampleList{}, s[i:j]...)
}

// GetSample returns the sample at the index.
func (s SliceSampleList) GetSample(idx int) (*Sample, error) {
	return s[idx], nil
}

// LenAt returns the number of timesteps in a sample.
func (s SliceSampleList) LenAt(idx int) int {
	return len(s[idx].Input)
}

// Creator returns the creator of the first input vector,
// or the float32 creator if there are no vectors.
func (s SliceSampleList) Creator() anyvec.Creator {
	for _, sample := range s {
		if len(sample.Input) > 0 {
			return sample.Input[0].Creator()
		}
	}
	return anyvec32.CurrentCreator()
}

// A SortSampleList wraps a SortableSampleList and sorts
// samples by length within chunks of BatchSize after
// every shuffle.
// This reduces the padding in each mini-batch.
type SortSampleList struct {
	SortableSampleList

	BatchSize int
}

// Slice produces a subset of the SortSampleList.
func (s *SortSampleList) Slice(i, j int) anysgd.SampleList {
	return &SortSampleList{
		SortableSampleList: s.SortableSampleList.Slice(i, j).(SortableSampleList),
		BatchSize:          s.BatchSize,
	}
}

// PostShuffle sorts each chunk of samples.
// A BatchSize of zero or less sorts the list as a single
// chunk.
func (s *SortSampleList) PostShuffle() {
	chunk := s.BatchSize
	if chunk <= 0 {
		chunk = s.Len()
	}
	for i := 0; i < s.Len(); i += chunk {
		end := i + chunk
		if end > s.Len() {
			end = s.Len()
		}
		sort.Sort(&chunkSorter{List: s.SortableSampleList, Start: i, End: end})
	}
}

type chunkSorter struct {
	List  SortableSampleList
	Start int
	End   int
}

func (c *chunkSorter) Len() int {
	return c.End - c.Start
}

func (c *chunkSorter) Swap(i, j int) {
	c.List.Swap(i+c.Start, j+c.Start)
}

func (c *chunkSorter) Less(i, j int) bool {
	return c.List.LenAt(i+c.Start) < c.List.LenAt(j+c.Start)
}
