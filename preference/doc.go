// Package preference provides weight components for the round-trip sampler.
//
// Every component implements mh.Weight for either a single
// *roundtrip.RoundTrip or a *population.MultiRoundTrip. Components are
// combined with SamplingWeights, which multiplies each component's
// log-weight by a factor and sums the results. SingleToMultiWeight lifts a
// single-trip component to a fleet by summing over agents.
//
// Components may cache; unless stated otherwise they are NOT safe for
// concurrent use.
package preference
