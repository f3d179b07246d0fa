package preference

import (
	"fmt"

	"github.com/vtisweden/matsim-projects-sub003/mh"
	"github.com/vtisweden/matsim-projects-sub003/population"
	"github.com/vtisweden/matsim-projects-sub003/roundtrip"
)

// SingleToMultiWeight sums a single-trip weight over all agents of a fleet.
//
// Trips are immutable, so the last log-weight of each agent is cached by
// trip identity and only agents whose trip changed are re-evaluated. The
// cache makes the weight NOT safe for concurrent use.
type SingleToMultiWeight struct {
	single mh.Weight[*roundtrip.RoundTrip]

	trips      []*roundtrip.RoundTrip
	logWeights []float64
}

// NewSingleToMultiWeight wraps a single-trip weight.
func NewSingleToMultiWeight(single mh.Weight[*roundtrip.RoundTrip]) (*SingleToMultiWeight, error) {
	if single == nil {
		return nil, fmt.Errorf("single-trip weight is nil")
	}
	return &SingleToMultiWeight{single: single}, nil
}

func (w *SingleToMultiWeight) LogWeight(m *population.MultiRoundTrip) (float64, error) {
	if len(w.trips) != m.Size() {
		w.trips = make([]*roundtrip.RoundTrip, m.Size())
		w.logWeights = make([]float64, m.Size())
	}
	sum := 0.0
	for i := range m.Size() {
		rt := m.RoundTrip(i)
		if w.trips[i] != rt {
			lw, err := w.single.LogWeight(rt)
			if err != nil {
				w.trips[i] = nil
				return 0, fmt.Errorf("agent %d: %w", i, err)
			}
			w.trips[i], w.logWeights[i] = rt, lw
		}
		sum += w.logWeights[i]
	}
	return sum, nil
}
