package roundtrip

import (
	"fmt"
	"math"
	"slices"
)

// MoveKind enumerates the proposal moves.
type MoveKind int

const (
	MoveInsert MoveKind = iota
	MoveRemove
	MoveFlipLocation
	MoveFlipDeparture
)

var moveKindNames = [...]string{"insert", "remove", "flip-location", "flip-departure"}

func (k MoveKind) String() string {
	if k < 0 || int(k) >= len(moveKindNames) {
		return fmt.Sprintf("MoveKind(%d)", int(k))
	}
	return moveKindNames[k]
}

// ProposalParams holds the relative weights of the four moves. Infeasible
// moves are dropped before normalization.
type ProposalParams struct {
	InsertWeight        float64 `yaml:"insert_weight"`
	RemoveWeight        float64 `yaml:"remove_weight"`
	FlipLocationWeight  float64 `yaml:"flip_location_weight"`
	FlipDepartureWeight float64 `yaml:"flip_departure_weight"`
}

// DefaultProposalParams weights all moves equally.
func DefaultProposalParams() ProposalParams {
	return ProposalParams{InsertWeight: 1, RemoveWeight: 1, FlipLocationWeight: 1, FlipDepartureWeight: 1}
}

// Validate checks that weights are non-negative and not all zero.
func (p ProposalParams) Validate() error {
	ws := []float64{p.InsertWeight, p.RemoveWeight, p.FlipLocationWeight, p.FlipDepartureWeight}
	sum := 0.0
	for i, w := range ws {
		if w < 0 || math.IsNaN(w) || math.IsInf(w, 0) {
			return fmt.Errorf("%s weight must be finite and non-negative, got %v", MoveKind(i), w)
		}
		sum += w
	}
	if sum <= 0 {
		return fmt.Errorf("at least one move weight must be positive")
	}
	return nil
}

// TransitionKernel holds the move probabilities at one trip and evaluates
// the exact probability of reaching any other trip in one proposal step.
type TransitionKernel struct {
	from     *RoundTrip
	scenario *Scenario
	moveProb [4]float64
}

// NewTransitionKernel creates the kernel at from. It fails with
// ErrInfeasibleMove if no move is possible at all.
func NewTransitionKernel(from *RoundTrip, scenario *Scenario, params ProposalParams) (*TransitionKernel, error) {
	n := from.Size()
	binCount := scenario.BinCount()

	var w [4]float64
	if n < scenario.MaxPossibleStayEpisodes() {
		w[MoveInsert] = params.InsertWeight
	}
	if n > 1 {
		w[MoveRemove] = params.RemoveWeight
	}
	if scenario.LocationCount() > 1 {
		w[MoveFlipLocation] = params.FlipLocationWeight
	}
	if n < binCount {
		w[MoveFlipDeparture] = params.FlipDepartureWeight
	}
	sum := w[0] + w[1] + w[2] + w[3]
	if sum <= 0 {
		return nil, fmt.Errorf("%w: no move has positive weight at %v", ErrInfeasibleMove, from)
	}

	k := &TransitionKernel{from: from, scenario: scenario}
	for i := range w {
		k.moveProb[i] = w[i] / sum
	}
	return k, nil
}

// MoveProb returns the probability of choosing the given move.
func (k *TransitionKernel) MoveProb(kind MoveKind) float64 {
	return k.moveProb[kind]
}

// TransitionProb returns the probability that one proposal step from the
// kernel's trip yields to. It is 0 if to is not reachable in one step.
// Equivalent insertion (or removal) positions that produce the same
// location sequence are counted.
func (k *TransitionKernel) TransitionProb(to *RoundTrip) float64 {
	kind, m, ok := k.identify(to)
	if !ok {
		return 0
	}
	n := float64(k.from.Size())
	numLocations := float64(k.scenario.LocationCount())
	freeBins := float64(k.scenario.BinCount() - k.from.Size())

	switch kind {
	case MoveInsert:
		return k.moveProb[MoveInsert] * float64(m) / (n + 1) / numLocations / freeBins
	case MoveRemove:
		return k.moveProb[MoveRemove] * float64(m) / n / n
	case MoveFlipLocation:
		return k.moveProb[MoveFlipLocation] / n / (numLocations - 1)
	default:
		return k.moveProb[MoveFlipDeparture] / n / freeBins
	}
}

// LogTransitionProb is log(TransitionProb(to)); -Inf when unreachable.
func (k *TransitionKernel) LogTransitionProb(to *RoundTrip) float64 {
	return math.Log(k.TransitionProb(to))
}

// IdentifyMove returns the move that maps the kernel's trip onto to, and
// false if no single feasible move does.
func (k *TransitionKernel) IdentifyMove(to *RoundTrip) (MoveKind, bool) {
	kind, _, ok := k.identify(to)
	return kind, ok
}

func (k *TransitionKernel) identify(to *RoundTrip) (MoveKind, int, bool) {
	from := k.from
	var kind MoveKind
	m := 1

	switch to.Size() {
	case from.Size() + 1:
		kind = MoveInsert
		m = insertionPoints(from.locations, to.locations)
		if m == 0 || !departureAdded(from.departures, to.departures) {
			return kind, 0, false
		}
	case from.Size() - 1:
		kind = MoveRemove
		m = insertionPoints(to.locations, from.locations)
		if m == 0 || !departureAdded(to.departures, from.departures) {
			return kind, 0, false
		}
	case from.Size():
		sameLocations := slices.Equal(from.locations, to.locations)
		sameDepartures := slices.Equal(from.departures, to.departures)
		switch {
		case sameDepartures && !sameLocations:
			kind = MoveFlipLocation
			if differences(from.locations, to.locations) != 1 {
				return kind, 0, false
			}
		case sameLocations && !sameDepartures:
			kind = MoveFlipDeparture
			if !departureReplaced(from.departures, to.departures) {
				return kind, 0, false
			}
		default:
			return kind, 0, false
		}
	default:
		return kind, 0, false
	}
	if k.moveProb[kind] == 0 {
		return kind, 0, false
	}
	return kind, m, true
}

// insertionPoints counts the positions i at which inserting longer[i] into
// shorter yields longer.
func insertionPoints[T comparable](shorter, longer []T) int {
	n := len(shorter)
	if len(longer) != n+1 {
		return 0
	}
	prefix := 0
	for prefix < n && shorter[prefix] == longer[prefix] {
		prefix++
	}
	suffix := 0
	for suffix < n && shorter[n-1-suffix] == longer[n-suffix] {
		suffix++
	}
	// valid positions satisfy n-suffix <= i <= prefix
	return max(0, prefix-(n-suffix)+1)
}

func differences[T comparable](a, b []T) int {
	d := 0
	for i := range a {
		if a[i] != b[i] {
			d++
		}
	}
	return d
}

// departureAdded reports whether the sorted longer equals the sorted shorter
// plus exactly one bin.
func departureAdded(shorter, longer []int) bool {
	if len(longer) != len(shorter)+1 {
		return false
	}
	skipped := false
	for i, j := 0, 0; i < len(shorter); j++ {
		if shorter[i] == longer[j] {
			i++
			continue
		}
		if skipped {
			return false
		}
		skipped = true
	}
	return true
}

// departureReplaced reports whether the sorted sets a and b differ by
// exactly one element in each direction.
func departureReplaced(a, b []int) bool {
	if len(a) != len(b) {
		return false
	}
	onlyA, onlyB := 0, 0
	i, j := 0, 0
	for i < len(a) && j < len(b) {
		switch {
		case a[i] == b[j]:
			i++
			j++
		case a[i] < b[j]:
			onlyA++
			i++
		default:
			onlyB++
			j++
		}
	}
	onlyA += len(a) - i
	onlyB += len(b) - j
	return onlyA == 1 && onlyB == 1
}
