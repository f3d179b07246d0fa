// Package mh provides a general-purpose Metropolis-Hastings sampling engine.
//
// # Reading Guide
//
// Start with these files:
//   - mh.go: Transition, State and the Proposal/Weight/StateProcessor contracts
//   - sequential.go: the classic single-chain accept/reject step
//   - algorithm.go: the run loop that drives a StepLogic and feeds state processors
//
// # Architecture
//
// The engine knows nothing about the sampled state space. Domain packages
// implement the extension points:
//   - roundtrip/: single-agent round trips, episode simulator, proposal kernel
//   - population/: fleets of round trips with incrementally maintained summaries
//   - preference/: weight components
//   - mh/ensemble/: parallel-ensemble step logic (drop-in StepLogic)
//   - mh/trace/: per-iteration decision trace
//
// # Randomness
//
// Nothing in this module uses a global random source. Each chain receives its
// own *rand.Rand, typically from a PartitionedRNG, so that independent chains
// can run on separate goroutines and a fixed seed reproduces a run exactly.
package mh
