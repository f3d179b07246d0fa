package preference

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vtisweden/matsim-projects-sub003/population"
)

func TestODWeight(t *testing.T) {
	s := newTestScenario(t, 4, 1)
	a, b := s.Location("A"), s.Location("B")

	// GIVEN a target of one trip A->B and one trip B->A; slack is 0.25
	w := NewODWeight()
	require.NoError(t, w.SetTarget(a, b, 1))
	require.NoError(t, w.SetTarget(b, a, 1))
	require.NoError(t, w.SetTarget(a, a, 100)) // ignored
	assert.Equal(t, 2.0, w.TargetTotal())

	tests := []struct {
		name      string
		trips     [][]string
		wantError float64
	}{
		{"target shares reproduced", [][]string{{"A", "B"}, {"B", "A"}}, 0},
		{"no targeted legs", [][]string{{"A", "C"}, {"C", "A"}}, 0.5},
		{"no legs at all", [][]string{{"A"}, {"B"}}, 0.5},
		{"half of the legs targeted", [][]string{{"A", "B"}, {"A", "C"}}, 0},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			m, _ := population.NewMultiRoundTripWithOD(len(tc.trips))
			for i, names := range tc.trips {
				deps := []int{6, 18}[:len(names)]
				m.SetRoundTrip(i, simulatedTrip(t, s, names, deps))
			}

			repErr, err := w.ReproductionError(m)
			require.NoError(t, err)
			assert.InDelta(t, tc.wantError, repErr, 1e-12)

			lw, err := w.LogWeight(m)
			require.NoError(t, err)
			assert.InDelta(t, -float64(len(tc.trips))*(tc.wantError+0.5), lw, 1e-12)
		})
	}
}

func TestODWeight_SetTargetReplaces(t *testing.T) {
	s := newTestScenario(t, 4, 1)
	a, b := s.Location("A"), s.Location("B")
	w := NewODWeight()
	require.NoError(t, w.SetTarget(a, b, 3))
	require.NoError(t, w.SetTarget(a, b, 1))
	assert.Equal(t, 1.0, w.TargetTotal())
	assert.Error(t, w.SetTarget(a, b, -1))
}

func TestODWeight_Errors(t *testing.T) {
	s := newTestScenario(t, 4, 1)
	w := NewODWeight()

	m, _ := population.NewMultiRoundTripWithOD(1)
	m.SetRoundTrip(0, simulatedTrip(t, s, []string{"A"}, []int{1}))
	_, err := w.LogWeight(m)
	assert.Error(t, err, "empty target")

	require.NoError(t, w.SetTarget(s.Location("A"), s.Location("B"), 1))
	plain := population.NewMultiRoundTrip(1)
	plain.SetRoundTrip(0, m.RoundTrip(0))
	_, err = w.LogWeight(plain)
	assert.Error(t, err, "no OD summary")
}
