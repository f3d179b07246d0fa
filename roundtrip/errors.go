package roundtrip

import "errors"

var (
	// ErrInfeasibleMove is returned when a proposal move is attempted that
	// the current trip cannot support, e.g. drawing a free departure bin
	// when every bin is taken, or removing the only location of a trip.
	ErrInfeasibleMove = errors.New("infeasible move")

	// ErrNotConverged is returned when the episode simulator's wraparound
	// fixed point is not reached within the iteration cap.
	ErrNotConverged = errors.New("episode simulation did not converge")

	// ErrMissingTravelTime is returned when the scenario has no travel time
	// for a leg of a simulated trip.
	ErrMissingTravelTime = errors.New("missing travel time")

	// ErrInvalidRoundTrip is returned by Validate and constructors when the
	// trip violates a structural invariant.
	ErrInvalidRoundTrip = errors.New("invalid round trip")
)
