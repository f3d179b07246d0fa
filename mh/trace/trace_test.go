package trace

import (
	"math"
	"testing"
)

func TestChainTrace_RecordIteration_AppendsRecord(t *testing.T) {
	// GIVEN a trace configured for decisions
	ct := NewChainTrace(TraceConfig{Level: TraceLevelDecisions})

	// WHEN an iteration record is recorded
	ct.RecordIteration(IterationRecord{Iteration: 1, Accepted: true, LogWeight: -2.5})

	// THEN the trace contains one record with correct data
	if len(ct.Iterations) != 1 {
		t.Fatalf("expected 1 iteration, got %d", len(ct.Iterations))
	}
	if ct.Iterations[0].LogWeight != -2.5 {
		t.Errorf("expected log weight -2.5, got %v", ct.Iterations[0].LogWeight)
	}
	if !ct.Iterations[0].Accepted {
		t.Error("expected accepted=true")
	}
}

func TestChainTrace_MultipleRecords_PreservesOrder(t *testing.T) {
	ct := NewChainTrace(TraceConfig{Level: TraceLevelDecisions})

	ct.RecordDecision(DecisionRecord{Iteration: 1, LogAlpha: -1})
	ct.RecordDecision(DecisionRecord{Iteration: 2, LogAlpha: 0.5, Accepted: true})

	if len(ct.Decisions) != 2 {
		t.Fatalf("expected 2 decisions, got %d", len(ct.Decisions))
	}
	if ct.Decisions[0].Iteration != 1 || ct.Decisions[1].Iteration != 2 {
		t.Error("decision order not preserved")
	}
}

func TestIsValidTraceLevel_ValidLevels(t *testing.T) {
	tests := []struct {
		level string
		valid bool
	}{
		{"none", true},
		{"decisions", true},
		{"", true},
		{"all", false},
		{"DECISIONS", false},
	}
	for _, tt := range tests {
		if got := IsValidTraceLevel(tt.level); got != tt.valid {
			t.Errorf("IsValidTraceLevel(%q) = %v, want %v", tt.level, got, tt.valid)
		}
	}
}

func TestTraceConfig_Enabled(t *testing.T) {
	if (TraceConfig{Level: TraceLevelNone}).Enabled() {
		t.Error("none must be disabled")
	}
	if (TraceConfig{}).Enabled() {
		t.Error("empty level must be disabled")
	}
	if !(TraceConfig{Level: TraceLevelDecisions}).Enabled() {
		t.Error("decisions must be enabled")
	}
}

func TestSummarize_NilTrace_ReturnsZero(t *testing.T) {
	s := Summarize(nil)
	if s.TotalIterations != 0 || s.AcceptanceRate != 0 {
		t.Errorf("expected zero summary, got %+v", s)
	}
}

func TestSummarize_AcceptanceAndWeights(t *testing.T) {
	// GIVEN four iterations, three accepted, one with -Inf weight
	ct := NewChainTrace(TraceConfig{Level: TraceLevelDecisions})
	ct.RecordIteration(IterationRecord{Iteration: 1, Accepted: true, LogWeight: -1})
	ct.RecordIteration(IterationRecord{Iteration: 2, Accepted: true, LogWeight: -3})
	ct.RecordIteration(IterationRecord{Iteration: 3, Accepted: false, LogWeight: math.Inf(-1)})
	ct.RecordIteration(IterationRecord{Iteration: 4, Accepted: true, LogWeight: -2})
	ct.RecordDecision(DecisionRecord{Iteration: 3, LogAlpha: math.Inf(-1)})

	// WHEN summarized
	s := Summarize(ct)

	// THEN rates and means ignore the infinite weight
	if s.AcceptedCount != 3 {
		t.Errorf("AcceptedCount = %d, want 3", s.AcceptedCount)
	}
	if math.Abs(s.AcceptanceRate-0.75) > 1e-12 {
		t.Errorf("AcceptanceRate = %v, want 0.75", s.AcceptanceRate)
	}
	if math.Abs(s.MeanLogWeight-(-2)) > 1e-12 {
		t.Errorf("MeanLogWeight = %v, want -2", s.MeanLogWeight)
	}
	if s.MaxLogWeight != -1 {
		t.Errorf("MaxLogWeight = %v, want -1", s.MaxLogWeight)
	}
	if s.ImpossibleProposals != 1 {
		t.Errorf("ImpossibleProposals = %d, want 1", s.ImpossibleProposals)
	}
}
