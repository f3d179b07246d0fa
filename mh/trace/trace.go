package trace

// TraceLevel controls the verbosity of chain tracing.
type TraceLevel string

const (
	// TraceLevelNone disables tracing (zero overhead).
	TraceLevelNone TraceLevel = "none"
	// TraceLevelDecisions captures every iteration and accept/reject decision.
	TraceLevelDecisions TraceLevel = "decisions"
)

var validTraceLevels = map[TraceLevel]bool{
	TraceLevelNone:      true,
	TraceLevelDecisions: true,
	"":                  true, // empty defaults to none
}

// IsValidTraceLevel returns true if the given level string is a recognized trace level.
func IsValidTraceLevel(level string) bool {
	return validTraceLevels[TraceLevel(level)]
}

// TraceConfig controls trace collection behavior.
type TraceConfig struct {
	Level TraceLevel
	Chain int // chain index, for labeling
}

// Enabled reports whether anything is recorded at this level.
func (c TraceConfig) Enabled() bool {
	return c.Level == TraceLevelDecisions
}

// ChainTrace collects records of a single chain.
type ChainTrace struct {
	Config     TraceConfig
	Iterations []IterationRecord
	Decisions  []DecisionRecord
}

// NewChainTrace creates a ChainTrace ready for recording.
func NewChainTrace(config TraceConfig) *ChainTrace {
	return &ChainTrace{
		Config:     config,
		Iterations: make([]IterationRecord, 0),
		Decisions:  make([]DecisionRecord, 0),
	}
}

// RecordIteration appends an iteration record.
func (ct *ChainTrace) RecordIteration(record IterationRecord) {
	ct.Iterations = append(ct.Iterations, record)
}

// RecordDecision appends a decision record.
func (ct *ChainTrace) RecordDecision(record DecisionRecord) {
	ct.Decisions = append(ct.Decisions, record)
}
