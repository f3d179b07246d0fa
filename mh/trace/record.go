// Package trace provides per-iteration trace recording for sampler diagnostics.
// It has no dependencies on mh/; it stores pure data types.
package trace

// IterationRecord captures the chain state after one iteration.
type IterationRecord struct {
	Iteration int64
	Accepted  bool
	LogWeight float64 // log-weight of the state the chain holds after the iteration
}

// DecisionRecord captures one accept/reject decision with its inputs.
type DecisionRecord struct {
	Iteration         int64
	CurrentLogWeight  float64
	ProposalLogWeight float64
	FwdLogProb        float64
	BwdLogProb        float64
	LogAlpha          float64
	Accepted          bool
}
