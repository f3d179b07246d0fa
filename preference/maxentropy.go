package preference

import (
	"fmt"
	"math"

	"gonum.org/v1/gonum/stat/combin"
	"gonum.org/v1/gonum/stat/distuv"

	"github.com/vtisweden/matsim-projects-sub003/roundtrip"
)

// MaximumEntropyPriorFactory builds size priors for trips over a fixed
// number of locations and time bins.
//
// Trip length J is Binomial(maxLen, mean/maxLen). For a single trip the
// prior divides by the number of distinct trips of each length,
// C(binCount, J)·L^J, so that the length distribution (not the individual
// trip) follows the binomial once the sampler explores uniformly.
type MaximumEntropyPriorFactory struct {
	locationCount int
	binCount      int
	maxLen        int
	logTripCount  []float64 // by length 0..maxLen
}

// NewMaximumEntropyPriorFactory creates a factory. maxLen is capped at binCount.
func NewMaximumEntropyPriorFactory(locationCount, binCount, maxLen int) (*MaximumEntropyPriorFactory, error) {
	if locationCount <= 0 || binCount <= 0 || maxLen <= 0 {
		return nil, fmt.Errorf("location count, bin count and max length must be positive, got %d, %d, %d",
			locationCount, binCount, maxLen)
	}
	f := &MaximumEntropyPriorFactory{
		locationCount: locationCount,
		binCount:      binCount,
		maxLen:        min(maxLen, binCount),
	}
	f.logTripCount = make([]float64, f.maxLen+1)
	for j := range f.logTripCount {
		f.logTripCount[j] = combin.LogGeneralizedBinomial(float64(binCount), float64(j)) +
			float64(j)*math.Log(float64(locationCount))
	}
	return f, nil
}

// NewMaximumEntropyPriorFactoryFor creates a factory matching a scenario.
func NewMaximumEntropyPriorFactoryFor(s *roundtrip.Scenario) (*MaximumEntropyPriorFactory, error) {
	return NewMaximumEntropyPriorFactory(s.LocationCount(), s.BinCount(), s.MaxPossibleStayEpisodes())
}

// MaxLength returns the largest trip length the factory's priors cover.
func (f *MaximumEntropyPriorFactory) MaxLength() int { return f.maxLen }

func (f *MaximumEntropyPriorFactory) lengthLogWeights(mean float64, correct bool) ([]float64, error) {
	if mean < 0 || mean > float64(f.maxLen) || math.IsNaN(mean) {
		return nil, fmt.Errorf("mean length must be in [0, %d], got %v", f.maxLen, mean)
	}
	result := make([]float64, f.maxLen+1)
	for j := range result {
		result[j] = binomialLogProb(f.maxLen, mean/float64(f.maxLen), j)
		if correct {
			result[j] -= f.logTripCount[j]
		}
	}
	return result, nil
}

// binomialLogProb handles the degenerate p ∈ {0, 1} explicitly; distuv
// yields NaN there.
func binomialLogProb(n int, p float64, j int) float64 {
	switch p {
	case 0:
		if j == 0 {
			return 0
		}
		return math.Inf(-1)
	case 1:
		if j == n {
			return 0
		}
		return math.Inf(-1)
	}
	return distuv.Binomial{N: float64(n), P: p}.LogProb(float64(j))
}

// probasFromLogWeights normalizes log-weights into probabilities.
func probasFromLogWeights(logWeights []float64) []float64 {
	maxLW := math.Inf(-1)
	for _, lw := range logWeights {
		maxLW = max(maxLW, lw)
	}
	result := make([]float64, len(logWeights))
	sum := 0.0
	for j, lw := range logWeights {
		result[j] = math.Exp(lw - maxLW)
		sum += result[j]
	}
	for j := range result {
		result[j] /= sum
	}
	return result
}

// Single returns a prior over one trip's length with the given mean.
func (f *MaximumEntropyPriorFactory) Single(meanLength float64) (*MaximumEntropyPrior, error) {
	lw, err := f.lengthLogWeights(meanLength, true)
	if err != nil {
		return nil, err
	}
	return &MaximumEntropyPrior{logWeights: lw}, nil
}

// Singles lifts Single(meanLength) to a fleet, one term per agent.
func (f *MaximumEntropyPriorFactory) Singles(meanLength float64) (*SingleToMultiWeight, error) {
	single, err := f.Single(meanLength)
	if err != nil {
		return nil, err
	}
	return NewSingleToMultiWeight(single)
}

// Fleet returns a prior over the length frequencies of a fleet of the
// given size. See SizeDistributionPrior.
func (f *MaximumEntropyPriorFactory) Fleet(size int) (*SizeDistributionPrior, error) {
	if size <= 0 {
		return nil, fmt.Errorf("fleet size must be positive, got %d", size)
	}
	probas := make([][]float64, f.maxLen+1)
	for mean := range probas {
		lw, err := f.lengthLogWeights(float64(mean), false)
		if err != nil {
			return nil, err
		}
		probas[mean] = probasFromLogWeights(lw)
	}
	return &SizeDistributionPrior{
		size:   size,
		maxLen: f.maxLen,
		probas: probas,
		chi2:   distuv.ChiSquared{K: float64(size)},
	}, nil
}

// MaximumEntropyPrior scores a single trip by its length.
type MaximumEntropyPrior struct {
	logWeights []float64
}

func (p *MaximumEntropyPrior) LogWeight(rt *roundtrip.RoundTrip) (float64, error) {
	if rt.Size() >= len(p.logWeights) {
		return 0, fmt.Errorf("%w: length %d exceeds %d", roundtrip.ErrInvalidRoundTrip, rt.Size(), len(p.logWeights)-1)
	}
	return p.logWeights[rt.Size()], nil
}
