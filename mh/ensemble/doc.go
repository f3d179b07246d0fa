// Package ensemble provides a parallel-ensemble Metropolis-Hastings step
// logic.
//
// Each step draws k candidates from the current state, possibly on
// separate goroutines, and moves to one of the k+1 states (the current one
// included) according to the stationary distribution of a small
// continuous-time chain whose rates satisfy detailed balance among the
// candidates. With k = 1 this reduces to Barker-style acceptance.
//
// StepLogic implements mh.StepLogic and is used with mh.NewAlgorithm.
package ensemble
