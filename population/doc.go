// Package population holds fleets of round trips and the aggregate
// statistics that preference components score them by.
//
// A MultiRoundTrip stores one immutable *roundtrip.RoundTrip per agent.
// Replacing an agent's trip notifies every attached Summary with the old
// and new trip, so aggregates such as the OD matrix are maintained in
// O(legs) per change instead of being recomputed over the whole fleet.
package population
