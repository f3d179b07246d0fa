package roundtrip

import (
	"fmt"
	"math/rand"
)

// Location is a named place agents can stay at. Locations are created by a
// Scenario and compared by pointer identity.
type Location struct {
	name  string
	index int
}

// Name returns the location's unique name.
func (l *Location) Name() string { return l.name }

// Index returns the location's position in its scenario.
func (l *Location) Index() int { return l.index }

func (l *Location) String() string { return l.name }

type od struct {
	from, to int
}

// Scenario holds the static geography and time discretization shared by all
// sampled trips. Build it completely before sampling starts; afterwards it
// is read-only and safe for concurrent use by any number of chains.
type Scenario struct {
	binSize         float64 // hours
	binCount        int
	maxStayEpisodes int

	locations []*Location
	byName    map[string]*Location
	times     map[od]float64 // hours
	distances map[od]float64 // km
}

// NewScenario creates an empty scenario. maxStayEpisodes caps the number of
// locations in a trip; 0 means no cap beyond binCount.
func NewScenario(binSizeHours float64, binCount, maxStayEpisodes int) (*Scenario, error) {
	if binSizeHours <= 0 {
		return nil, fmt.Errorf("bin size must be positive, got %v", binSizeHours)
	}
	if binCount <= 0 {
		return nil, fmt.Errorf("bin count must be positive, got %d", binCount)
	}
	if maxStayEpisodes < 0 {
		return nil, fmt.Errorf("max stay episodes must be non-negative, got %d", maxStayEpisodes)
	}
	if maxStayEpisodes == 0 {
		maxStayEpisodes = binCount
	}
	return &Scenario{
		binSize:         binSizeHours,
		binCount:        binCount,
		maxStayEpisodes: maxStayEpisodes,
		byName:          make(map[string]*Location),
		times:           make(map[od]float64),
		distances:       make(map[od]float64),
	}, nil
}

// AddLocation registers a new location. Names must be unique.
func (s *Scenario) AddLocation(name string) (*Location, error) {
	if name == "" {
		return nil, fmt.Errorf("location name is empty")
	}
	if _, ok := s.byName[name]; ok {
		return nil, fmt.Errorf("duplicate location %q", name)
	}
	loc := &Location{name: name, index: len(s.locations)}
	s.locations = append(s.locations, loc)
	s.byName[name] = loc
	return loc, nil
}

// Location looks up a location by name; nil if unknown.
func (s *Scenario) Location(name string) *Location {
	return s.byName[name]
}

// Locations returns all locations in insertion order. Callers must not
// modify the returned slice.
func (s *Scenario) Locations() []*Location {
	return s.locations
}

// LocationCount returns the number of locations.
func (s *Scenario) LocationCount() int {
	return len(s.locations)
}

// SetTime sets the travel time in hours from one location to another.
func (s *Scenario) SetTime(from, to *Location, hours float64) {
	s.times[od{from.index, to.index}] = hours
}

// SetSymmetricTime sets the travel time in both directions.
func (s *Scenario) SetSymmetricTime(a, b *Location, hours float64) {
	s.SetTime(a, b, hours)
	s.SetTime(b, a, hours)
}

// Time returns the travel time in hours and whether it is known.
func (s *Scenario) Time(from, to *Location) (float64, bool) {
	h, ok := s.times[od{from.index, to.index}]
	return h, ok
}

// SetDistance sets the distance in km from one location to another.
func (s *Scenario) SetDistance(from, to *Location, km float64) {
	s.distances[od{from.index, to.index}] = km
}

// SetSymmetricDistance sets the distance in both directions.
func (s *Scenario) SetSymmetricDistance(a, b *Location, km float64) {
	s.SetDistance(a, b, km)
	s.SetDistance(b, a, km)
}

// Distance returns the distance in km and whether it is known.
func (s *Scenario) Distance(from, to *Location) (float64, bool) {
	km, ok := s.distances[od{from.index, to.index}]
	return km, ok
}

// BinSize returns the duration of one time bin in hours.
func (s *Scenario) BinSize() float64 { return s.binSize }

// BinCount returns the number of time bins per period.
func (s *Scenario) BinCount() int { return s.binCount }

// PeriodLength returns BinSize * BinCount in hours.
func (s *Scenario) PeriodLength() float64 { return s.binSize * float64(s.binCount) }

// MaxStayEpisodes returns the configured cap on locations per trip.
func (s *Scenario) MaxStayEpisodes() int { return s.maxStayEpisodes }

// MaxPossibleStayEpisodes returns min(MaxStayEpisodes, BinCount), the
// largest trip size the proposal can reach.
func (s *Scenario) MaxPossibleStayEpisodes() int {
	return min(s.maxStayEpisodes, s.binCount)
}

// NewInitialRoundTrip creates a single-location trip. A nil location or a
// negative departure is drawn uniformly with rng.
func (s *Scenario) NewInitialRoundTrip(rng *rand.Rand, loc *Location, departure int) (*RoundTrip, error) {
	if len(s.locations) == 0 {
		return nil, fmt.Errorf("scenario has no locations")
	}
	if loc == nil {
		loc = s.locations[rng.Intn(len(s.locations))]
	}
	if departure < 0 {
		departure = rng.Intn(s.binCount)
	}
	if departure >= s.binCount {
		return nil, fmt.Errorf("departure bin %d out of range [0, %d)", departure, s.binCount)
	}
	return NewRoundTrip([]*Location{loc}, []int{departure})
}
