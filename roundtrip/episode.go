package roundtrip

import "fmt"

// EpisodeKind distinguishes stays from moves.
type EpisodeKind int

const (
	// KindStay is time spent at one location.
	KindStay EpisodeKind = iota
	// KindMove is travel between two locations.
	KindMove
)

func (k EpisodeKind) String() string {
	switch k {
	case KindStay:
		return "stay"
	case KindMove:
		return "move"
	default:
		return fmt.Sprintf("EpisodeKind(%d)", int(k))
	}
}

// Episode is a timed Stay or Move segment of a simulated trip.
//
// Times are in hours on an unwrapped time axis: the home stay of a
// multi-location trip starts before 0, and late episodes may end after the
// period. Use StartTimeInPeriod or EffectiveIntervals for wrapped times.
type Episode struct {
	Kind     EpisodeKind
	EndTime  float64
	Duration float64

	// Simulator state before and after the episode; nil for stateless models.
	InitialState any
	FinalState   any

	Location    *Location // KindStay
	Origin      *Location // KindMove
	Destination *Location // KindMove
}

// NewStayEpisode creates a stay at loc.
func NewStayEpisode(loc *Location, endTime, duration float64) Episode {
	return Episode{Kind: KindStay, Location: loc, EndTime: endTime, Duration: duration}
}

// NewMoveEpisode creates a move from origin to destination.
func NewMoveEpisode(origin, destination *Location, endTime, duration float64) Episode {
	return Episode{Kind: KindMove, Origin: origin, Destination: destination, EndTime: endTime, Duration: duration}
}

// StartTime returns EndTime - Duration on the unwrapped axis.
func (e Episode) StartTime() float64 {
	return e.EndTime - e.Duration
}

// StartTimeInPeriod returns the start time wrapped into [0, period).
func (e Episode) StartTimeInPeriod(period float64) float64 {
	return wrap(e.StartTime(), period)
}

// Interval is a half-open time interval [Start, End) in hours.
type Interval struct {
	Start, End float64
}

// EffectiveIntervals returns the episode's time span wrapped into
// [0, period]. An episode crossing the period boundary yields two intervals;
// one lasting longer than the period covers it completely.
func (e Episode) EffectiveIntervals(period float64) []Interval {
	if e.Duration > period {
		return []Interval{{0, period}}
	}
	end := e.EndTime
	for end < 0 {
		end += period
	}
	for end > period {
		end -= period
	}
	start := end - e.Duration
	if start < 0 {
		return []Interval{{start + period, period}, {0, end}}
	}
	return []Interval{{start, end}}
}

// Overlap returns the total time in hours the episode shares with the given
// within-period intervals.
func (e Episode) Overlap(intervals []Interval, period float64) float64 {
	total := 0.0
	for _, own := range e.EffectiveIntervals(period) {
		for _, other := range intervals {
			total += overlap(own, other)
		}
	}
	return total
}

func (e Episode) String() string {
	switch e.Kind {
	case KindStay:
		return fmt.Sprintf("stay(%v,%.2f,%.2f)", e.Location, e.StartTime(), e.EndTime)
	case KindMove:
		return fmt.Sprintf("move(%v->%v,%.2f,%.2f)", e.Origin, e.Destination, e.StartTime(), e.EndTime)
	default:
		return e.Kind.String()
	}
}

func overlap(a, b Interval) float64 {
	return max(0, min(a.End, b.End)-max(a.Start, b.Start))
}

func wrap(t, period float64) float64 {
	for t < 0 {
		t += period
	}
	for t >= period {
		t -= period
	}
	return t
}
