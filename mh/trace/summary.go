package trace

import "math"

// TraceSummary aggregates statistics from a ChainTrace.
type TraceSummary struct {
	TotalIterations int
	AcceptedCount   int
	AcceptanceRate  float64
	MeanLogWeight   float64
	MaxLogWeight    float64
	// ImpossibleProposals counts decisions whose log acceptance ratio was -Inf.
	ImpossibleProposals int
}

// Summarize computes aggregate statistics from a ChainTrace.
// Safe for nil or empty traces (returns zero-value fields).
func Summarize(ct *ChainTrace) *TraceSummary {
	summary := &TraceSummary{}
	if ct == nil {
		return summary
	}

	summary.TotalIterations = len(ct.Iterations)
	if summary.TotalIterations > 0 {
		total := 0.0
		finite := 0
		summary.MaxLogWeight = math.Inf(-1)
		for _, r := range ct.Iterations {
			if r.Accepted {
				summary.AcceptedCount++
			}
			if r.LogWeight > summary.MaxLogWeight {
				summary.MaxLogWeight = r.LogWeight
			}
			if !math.IsInf(r.LogWeight, 0) && !math.IsNaN(r.LogWeight) {
				total += r.LogWeight
				finite++
			}
		}
		if finite > 0 {
			summary.MeanLogWeight = total / float64(finite)
		}
		summary.AcceptanceRate = float64(summary.AcceptedCount) / float64(summary.TotalIterations)
	}

	for _, d := range ct.Decisions {
		if math.IsInf(d.LogAlpha, -1) {
			summary.ImpossibleProposals++
		}
	}
	return summary
}
