// Package roundtrip models a single agent's cyclic daily schedule.
//
// A RoundTrip is an ordered list of locations, each paired with the time bin
// at which the agent departs from it. The last location connects back to
// the first, so the schedule repeats every period. Trips are immutable:
// every edit returns a new trip and leaves the original untouched, so a
// Markov chain can keep its current state while candidates are evaluated.
//
// # Reading Guide
//
//   - scenario.go: locations, travel times, time discretization
//   - roundtrip.go: the RoundTrip value and its copy-on-write edits
//   - simulator.go: converts a trip into timed Stay/Move episodes
//   - kernel.go: exact transition probabilities of the proposal
//   - proposal.go: the insert/remove/flip proposal used by the sampler
package roundtrip
