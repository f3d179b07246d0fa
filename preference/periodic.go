package preference

import (
	"fmt"

	"github.com/vtisweden/matsim-projects-sub003/roundtrip"
)

// PeriodicScheduleWeight penalizes trips whose home stay is shorter than a
// minimum duration. The penalty is the missing time as a fraction of the
// period; a trip whose last arrival lies after the first departure of the
// next period has a home stay of zero length.
type PeriodicScheduleWeight struct {
	minHome float64
	period  float64
}

// NewPeriodicScheduleWeight creates the weight. minHomeHours may be 0, in
// which case only trips that overrun the period are penalized.
func NewPeriodicScheduleWeight(minHomeHours, periodHours float64) (*PeriodicScheduleWeight, error) {
	if periodHours <= 0 {
		return nil, fmt.Errorf("period must be positive, got %v", periodHours)
	}
	if minHomeHours < 0 || minHomeHours > periodHours {
		return nil, fmt.Errorf("minimum home duration must be in [0, %v], got %v", periodHours, minHomeHours)
	}
	return &PeriodicScheduleWeight{minHome: minHomeHours, period: periodHours}, nil
}

// Discrepancy returns how many hours the home stay falls short of the
// minimum, accounting for trips that arrive home later than they left.
func (w *PeriodicScheduleWeight) Discrepancy(rt *roundtrip.RoundTrip) (float64, error) {
	if rt.Size() == 1 {
		return 0, nil
	}
	episodes := rt.Episodes()
	if len(episodes) < 2 {
		return 0, fmt.Errorf("trip %v has not been simulated", rt)
	}
	home, leaveHome := episodes[0], episodes[1]
	if home.Kind != roundtrip.KindStay || leaveHome.Kind != roundtrip.KindMove {
		return 0, fmt.Errorf("trip %v: unexpected episode order %v, %v", rt, home.Kind, leaveHome.Kind)
	}
	earliestLeave := home.StartTime() + w.minHome
	return max(0, earliestLeave-leaveHome.StartTime()), nil
}

func (w *PeriodicScheduleWeight) LogWeight(rt *roundtrip.RoundTrip) (float64, error) {
	d, err := w.Discrepancy(rt)
	if err != nil {
		return 0, err
	}
	return -d / w.period, nil
}
