package processor

import (
	"bufio"
	"fmt"
	"io"
	"slices"

	"github.com/vtisweden/matsim-projects-sub003/population"
	"github.com/vtisweden/matsim-projects-sub003/roundtrip"
)

// SizeDistributionLogger writes the fleet's trip-size histogram as one
// tab-separated line per due state, after a header line naming the sizes
// 0..maxSize. Without intrazonal legs a trip's size is its number of legs
// between distinct locations.
type SizeDistributionLogger struct {
	counter
	w                 *bufio.Writer
	maxSize           int
	includeIntrazonal bool
	last              []int
}

// NewSizeDistributionLogger creates the logger. The writer is flushed after
// every line and at End; closing it is up to the caller.
func NewSizeDistributionLogger(w io.Writer, sampling Sampling, maxSize int, includeIntrazonal bool) (*SizeDistributionLogger, error) {
	if err := sampling.Validate(); err != nil {
		return nil, err
	}
	if maxSize < 1 {
		return nil, fmt.Errorf("max size must be positive, got %d", maxSize)
	}
	return &SizeDistributionLogger{
		counter:           counter{sampling: sampling},
		w:                 bufio.NewWriter(w),
		maxSize:           maxSize,
		includeIntrazonal: includeIntrazonal,
	}, nil
}

func (l *SizeDistributionLogger) Start() error {
	l.reset()
	l.last = nil
	for s := 0; s <= l.maxSize; s++ {
		fmt.Fprintf(l.w, "\tSize=%d", s)
	}
	l.w.WriteByte('\n')
	return l.w.Flush()
}

func (l *SizeDistributionLogger) ProcessState(m *population.MultiRoundTrip) error {
	index, ok := l.tick()
	if !ok {
		return nil
	}
	counts := make([]int, l.maxSize+1)
	for i, rt := range m.Trips() {
		size := l.size(rt)
		if size > l.maxSize {
			return fmt.Errorf("agent %d: trip size %d exceeds %d", i, size, l.maxSize)
		}
		counts[size]++
	}
	l.last = counts

	fmt.Fprintf(l.w, "Iteration=%d", index)
	for _, c := range counts {
		fmt.Fprintf(l.w, "\t%d", c)
	}
	l.w.WriteByte('\n')
	return l.w.Flush()
}

func (l *SizeDistributionLogger) End() error {
	return l.w.Flush()
}

// LastSizeCounts returns the most recently written histogram.
func (l *SizeDistributionLogger) LastSizeCounts() []int {
	return slices.Clone(l.last)
}

func (l *SizeDistributionLogger) size(rt *roundtrip.RoundTrip) int {
	if l.includeIntrazonal {
		return rt.Size()
	}
	size := 0
	for i := range rt.Size() {
		if rt.Location(i) != rt.SuccessorLocation(i) {
			size++
		}
	}
	return size
}
