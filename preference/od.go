package preference

import (
	"fmt"
	"math"

	"github.com/vtisweden/matsim-projects-sub003/population"
	"github.com/vtisweden/matsim-projects-sub003/roundtrip"
)

// ODWeight rewards fleets whose OD shares reproduce a target OD matrix.
//
// With realized share r = count/legs and target share t = target/total for
// every target pair, the reproduction error is Σ max(0, |r − t| − slack)
// where slack = 0.5/total, i.e. half a trip of the target. The log-weight
// is −size × (error + slack × pairs). Diagonal (intrazonal) target entries
// are ignored. The fleet must carry a population.ODSummary.
type ODWeight struct {
	pairs   []population.ODPair // insertion order keeps sums reproducible
	targets map[population.ODPair]float64
	total   float64
}

// NewODWeight creates an OD weight without targets.
func NewODWeight() *ODWeight {
	return &ODWeight{targets: make(map[population.ODPair]float64)}
}

// SetTarget sets the target count of trips from one location to another.
// Intrazonal entries are ignored.
func (w *ODWeight) SetTarget(from, to *roundtrip.Location, count float64) error {
	if count < 0 || math.IsNaN(count) || math.IsInf(count, 0) {
		return fmt.Errorf("target %v->%v must be finite and non-negative, got %v", from, to, count)
	}
	if from == to {
		return nil
	}
	pair := population.ODPair{From: from, To: to}
	if _, ok := w.targets[pair]; !ok {
		w.pairs = append(w.pairs, pair)
	}
	w.total += count - w.targets[pair]
	w.targets[pair] = count
	return nil
}

// TargetTotal returns the sum of all non-diagonal targets.
func (w *ODWeight) TargetTotal() float64 { return w.total }

// ReproductionError returns the slack-corrected OD share error of the fleet.
func (w *ODWeight) ReproductionError(m *population.MultiRoundTrip) (float64, error) {
	if w.total <= 0 {
		return 0, fmt.Errorf("OD target is empty")
	}
	od, ok := population.SummaryOf[*population.ODSummary](m)
	if !ok {
		return 0, fmt.Errorf("fleet carries no OD summary")
	}
	slack := w.slack()
	legs := float64(od.Legs())
	sum := 0.0
	for _, pair := range w.pairs {
		target := w.targets[pair]
		realized := 0.0
		if legs > 0 {
			realized = float64(od.Count(pair.From, pair.To)) / legs
		}
		sum += max(0, math.Abs(realized-target/w.total)-slack)
	}
	return sum, nil
}

func (w *ODWeight) slack() float64 { return 0.5 / w.total }

func (w *ODWeight) LogWeight(m *population.MultiRoundTrip) (float64, error) {
	repErr, err := w.ReproductionError(m)
	if err != nil {
		return 0, err
	}
	return -float64(m.Size()) * (repErr + w.slack()*float64(len(w.pairs))), nil
}
