package mh

import (
	"errors"
	"math"
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vtisweden/matsim-projects-sub003/mh/trace"
)

// ringProposal moves to a uniformly chosen neighbor on a ring of size n.
type ringProposal struct{ n int }

func (p ringProposal) NewTransition(rng *rand.Rand, from int) (Transition[int], error) {
	step := 1
	if rng.Intn(2) == 0 {
		step = -1
	}
	to := (from + step + p.n) % p.n
	return NewTransition(from, to, math.Log(0.5), math.Log(0.5)), nil
}

// failingProposal always errors.
type failingProposal struct{}

func (failingProposal) NewTransition(*rand.Rand, int) (Transition[int], error) {
	return Transition[int]{}, errors.New("boom")
}

func TestAcceptanceLogRatio(t *testing.T) {
	tests := []struct {
		name                string
		cur, prop, fwd, bwd float64
		want                float64
	}{
		{"equal weights symmetric", -1, -1, -2, -2, 0},
		{"better proposal", -3, -1, -1, -1, 2},
		{"asymmetric proposal", 0, 0, math.Log(0.25), math.Log(0.5), math.Log(2)},
		{"impossible reverse", 0, 5, -1, math.Inf(-1), math.Inf(-1)},
		{"impossible proposal", 0, math.Inf(-1), -1, -1, math.Inf(-1)},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := AcceptanceLogRatio(tt.cur, tt.prop, tt.fwd, tt.bwd)
			if math.IsInf(tt.want, -1) {
				assert.True(t, math.IsInf(got, -1), "got %v", got)
				return
			}
			assert.InDelta(t, tt.want, got, 1e-12)
		})
	}
}

func TestNewSequential_RejectsNilArguments(t *testing.T) {
	rng := rand.New(rand.NewSource(1))
	w := WeightFunc[int](func(int) (float64, error) { return 0, nil })

	_, err := NewSequential[int](nil, w, rng)
	assert.Error(t, err)
	_, err = NewSequential[int](ringProposal{n: 3}, nil, rng)
	assert.Error(t, err)
	_, err = NewSequential[int](ringProposal{n: 3}, w, nil)
	assert.Error(t, err)
}

func TestSequential_NeverAcceptsZeroWeightState(t *testing.T) {
	// GIVEN a ring where state 1 has zero weight
	rng := rand.New(rand.NewSource(3))
	w := WeightFunc[int](func(s int) (float64, error) {
		if s == 1 {
			return math.Inf(-1), nil
		}
		return 0, nil
	})
	logic, err := NewSequential[int](ringProposal{n: 3}, w, rng)
	require.NoError(t, err)

	// WHEN stepping many times
	cur, err := logic.Init(0)
	require.NoError(t, err)
	for i := 0; i < 1000; i++ {
		cur, _, err = logic.Step(cur)
		require.NoError(t, err)
		// THEN the chain never sits in state 1
		require.NotEqual(t, 1, cur.Value)
	}
}

func TestSequential_OnDecisionCalledEveryStep(t *testing.T) {
	rng := rand.New(rand.NewSource(5))
	w := WeightFunc[int](func(s int) (float64, error) { return float64(s), nil })
	logic, err := NewSequential[int](ringProposal{n: 5}, w, rng)
	require.NoError(t, err)

	var decisions []Decision
	logic.OnDecision = func(d Decision) { decisions = append(decisions, d) }

	cur, err := logic.Init(2)
	require.NoError(t, err)
	accepted := 0
	for i := 0; i < 50; i++ {
		var ok bool
		cur, ok, err = logic.Step(cur)
		require.NoError(t, err)
		if ok {
			accepted++
		}
	}
	require.Len(t, decisions, 50)
	n := 0
	for _, d := range decisions {
		if d.Accepted {
			n++
		}
	}
	assert.Equal(t, accepted, n)
}

func TestRecordDecisions_NumbersIterations(t *testing.T) {
	// GIVEN a sequential step wired to a decision trace
	rng := rand.New(rand.NewSource(8))
	w := WeightFunc[int](func(s int) (float64, error) { return -float64(s), nil })
	algo, err := NewSequentialAlgorithm[int](ringProposal{n: 4}, w, rng)
	require.NoError(t, err)
	ct := trace.NewChainTrace(trace.TraceConfig{Level: trace.TraceLevelDecisions})
	algo.logic.(*Sequential[int]).OnDecision = RecordDecisions(ct)
	algo.SetTrace(ct)
	algo.SetInitialState(0)

	// WHEN run
	require.NoError(t, algo.Run(30))

	// THEN decisions line up with iteration records
	require.Len(t, ct.Decisions, 30)
	require.Len(t, ct.Iterations, 30)
	for i, d := range ct.Decisions {
		assert.Equal(t, int64(i+1), d.Iteration)
		assert.Equal(t, ct.Iterations[i].Accepted, d.Accepted)
	}
}

func TestSequential_ProposalErrorIsWrapped(t *testing.T) {
	rng := rand.New(rand.NewSource(1))
	w := WeightFunc[int](func(int) (float64, error) { return 0, nil })
	logic, err := NewSequential[int](failingProposal{}, w, rng)
	require.NoError(t, err)

	cur, err := logic.Init(0)
	require.NoError(t, err)
	_, _, err = logic.Step(cur)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "proposing transition")
	assert.Contains(t, err.Error(), "boom")
}

func TestSequential_StationaryDistribution(t *testing.T) {
	// GIVEN target weights proportional to 1, 2, 3, 4 on a ring
	rng := rand.New(rand.NewSource(42))
	w := WeightFunc[int](func(s int) (float64, error) { return math.Log(float64(s + 1)), nil })
	logic, err := NewSequential[int](ringProposal{n: 4}, w, rng)
	require.NoError(t, err)

	// WHEN sampling
	const iterations = 200000
	counts := make([]int, 4)
	cur, err := logic.Init(0)
	require.NoError(t, err)
	for i := 0; i < iterations; i++ {
		cur, _, err = logic.Step(cur)
		require.NoError(t, err)
		counts[cur.Value]++
	}

	// THEN empirical frequencies approach k/10
	for s, c := range counts {
		want := float64(s+1) / 10
		got := float64(c) / iterations
		assert.InDelta(t, want, got, 0.02, "state %d", s)
	}
}
