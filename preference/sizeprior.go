package preference

import (
	"fmt"
	"math"

	"gonum.org/v1/gonum/stat/distuv"

	"github.com/vtisweden/matsim-projects-sub003/population"
)

// SizeDistributionPrior scores a fleet by how well its trip-length
// frequencies match a binomial length distribution whose mean is the
// fleet's realized mean length. The mismatch is Pearson's chi-squared
// statistic, scored by a chi-squared density with one degree of freedom per
// agent.
type SizeDistributionPrior struct {
	size   int
	maxLen int
	probas [][]float64 // [integer mean][length]
	chi2   distuv.ChiSquared
}

// Statistic returns the chi-squared statistic of the fleet.
func (p *SizeDistributionPrior) Statistic(m *population.MultiRoundTrip) (float64, error) {
	if m.Size() != p.size {
		return 0, fmt.Errorf("fleet has %d agents, prior expects %d", m.Size(), p.size)
	}
	freq := make([]int, p.maxLen+1)
	total := 0
	for _, rt := range m.Trips() {
		if rt.Size() > p.maxLen {
			return 0, fmt.Errorf("trip length %d exceeds %d", rt.Size(), p.maxLen)
		}
		freq[rt.Size()]++
		total += rt.Size()
	}

	mean := float64(total) / float64(p.size)
	lower := int(mean)
	upper := min(lower+1, p.maxLen)
	w := mean - float64(lower)

	chi2 := 0.0
	n := float64(p.size)
	for j, f := range freq {
		proba := (1-w)*p.probas[lower][j] + w*p.probas[upper][j]
		if proba == 0 {
			if f > 0 {
				return math.Inf(1), nil
			}
			continue
		}
		d := float64(f) - proba*n
		chi2 += d * d / proba
	}
	return chi2, nil
}

func (p *SizeDistributionPrior) LogWeight(m *population.MultiRoundTrip) (float64, error) {
	chi2, err := p.Statistic(m)
	if err != nil {
		return 0, err
	}
	if math.IsInf(chi2, 1) {
		return math.Inf(-1), nil
	}
	if chi2 == 0 && p.chi2.K == 2 {
		// exp(-x/2)/2 at x = 0; distuv evaluates 0·log(0) there
		return -math.Ln2, nil
	}
	return p.chi2.LogProb(chi2), nil
}
