package processor

import (
	"bytes"
	"context"
	"errors"
	"math/rand"
	"strconv"
	"strings"
	"testing"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vtisweden/matsim-projects-sub003/mh"
	"github.com/vtisweden/matsim-projects-sub003/population"
	"github.com/vtisweden/matsim-projects-sub003/roundtrip"
)

func newTestScenario(t testing.TB) *roundtrip.Scenario {
	t.Helper()
	s, err := roundtrip.NewScenario(1, 24, 4)
	require.NoError(t, err)
	for _, name := range []string{"A", "B", "C"} {
		_, err := s.AddLocation(name)
		require.NoError(t, err)
	}
	return s
}

func mustTrip(t testing.TB, s *roundtrip.Scenario, names []string, departures []int) *roundtrip.RoundTrip {
	t.Helper()
	locs := make([]*roundtrip.Location, len(names))
	for i, n := range names {
		locs[i] = s.Location(n)
	}
	rt, err := roundtrip.NewRoundTrip(locs, departures)
	require.NoError(t, err)
	return rt
}

func TestSampling(t *testing.T) {
	tests := []struct {
		name     string
		sampling Sampling
		want     []int64
	}{
		{"every state", EveryState, []int64{0, 1, 2, 3, 4, 5, 6, 7}},
		{"interval", Sampling{Interval: 3}, []int64{0, 3, 6}},
		{"burn-in and interval", Sampling{BurnIn: 2, Interval: 2}, []int64{2, 4, 6}},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			require.NoError(t, tc.sampling.Validate())
			c := counter{sampling: tc.sampling}
			var got []int64
			for range 8 {
				if index, ok := c.tick(); ok {
					got = append(got, index)
				}
			}
			assert.Equal(t, tc.want, got)
		})
	}
	assert.Error(t, Sampling{Interval: 0}.Validate())
	assert.Error(t, Sampling{BurnIn: -1, Interval: 1}.Validate())
}

func TestLogProcessor(t *testing.T) {
	// GIVEN the standard logger redirected to a buffer
	var buf bytes.Buffer
	orig := logrus.StandardLogger().Out
	logrus.SetOutput(&buf)
	t.Cleanup(func() { logrus.SetOutput(orig) })

	p, err := NewLogProcessor[int]("chain", Sampling{Interval: 2}, func(s int) string { return "state=" + strconv.Itoa(s) })
	require.NoError(t, err)

	// WHEN five states are processed
	require.NoError(t, p.Start())
	for s := range 5 {
		require.NoError(t, p.ProcessState(s*10))
	}
	require.NoError(t, p.End())

	// THEN states 0, 2 and 4 are logged
	out := buf.String()
	assert.Contains(t, out, "state=0")
	assert.Contains(t, out, "state=20")
	assert.Contains(t, out, "state=40")
	assert.NotContains(t, out, "state=10")
	assert.Contains(t, out, "[chain 000000004]")
}

func TestSizeDistributionLogger(t *testing.T) {
	s := newTestScenario(t)
	m := population.NewMultiRoundTrip(3)
	m.SetRoundTrip(0, mustTrip(t, s, []string{"A"}, []int{3}))
	m.SetRoundTrip(1, mustTrip(t, s, []string{"A", "B"}, []int{6, 18}))
	m.SetRoundTrip(2, mustTrip(t, s, []string{"A", "A", "B"}, []int{1, 6, 18}))

	tests := []struct {
		name              string
		includeIntrazonal bool
		want              []int
	}{
		{"with intrazonal legs", true, []int{0, 1, 1, 1, 0}},
		// A->A legs do not count: sizes 0, 2, 2
		{"without intrazonal legs", false, []int{1, 0, 2, 0, 0}},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			var buf bytes.Buffer
			l, err := NewSizeDistributionLogger(&buf, EveryState, 4, tc.includeIntrazonal)
			require.NoError(t, err)

			require.NoError(t, l.Start())
			require.NoError(t, l.ProcessState(m))
			require.NoError(t, l.ProcessState(m))
			require.NoError(t, l.End())

			assert.Equal(t, tc.want, l.LastSizeCounts())
			lines := strings.Split(strings.TrimSuffix(buf.String(), "\n"), "\n")
			require.Len(t, lines, 3)
			assert.Equal(t, "\tSize=0\tSize=1\tSize=2\tSize=3\tSize=4", lines[0])
			assert.True(t, strings.HasPrefix(lines[2], "Iteration=1\t"), lines[2])
			fields := strings.Split(lines[2], "\t")[1:]
			for i, f := range fields {
				assert.Equal(t, strconv.Itoa(tc.want[i]), f)
			}
		})
	}
}

func TestSizeDistributionLogger_TripTooLong(t *testing.T) {
	s := newTestScenario(t)
	m := population.NewMultiRoundTrip(1)
	m.SetRoundTrip(0, mustTrip(t, s, []string{"A", "B", "C"}, []int{1, 2, 3}))

	l, err := NewSizeDistributionLogger(&bytes.Buffer{}, EveryState, 2, true)
	require.NoError(t, err)
	require.NoError(t, l.Start())
	assert.Error(t, l.ProcessState(m))

	_, err = NewSizeDistributionLogger(&bytes.Buffer{}, EveryState, 0, true)
	assert.Error(t, err)
}

func TestSampleStore_RoundTrip(t *testing.T) {
	// GIVEN an in-memory sample database
	ctx := context.Background()
	db, err := OpenSampleDB(ctx, ":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	store, err := NewSampleStore[int](db, Sampling{BurnIn: 1, Interval: 2}, 42, "test run", nil)
	require.NoError(t, err)

	// WHEN two runs are recorded
	var runIDs []string
	for run := range 2 {
		require.NoError(t, store.Start())
		for s := range 6 {
			require.NoError(t, store.ProcessState(100*run+s))
		}
		require.NoError(t, store.End())
		runIDs = append(runIDs, store.RunID())
	}

	// THEN each run has its own ID and its due states
	assert.NotEqual(t, runIDs[0], runIDs[1])
	ids, err := Runs(ctx, db)
	require.NoError(t, err)
	assert.ElementsMatch(t, runIDs, ids)

	samples, err := Samples(ctx, db, runIDs[1])
	require.NoError(t, err)
	assert.Equal(t, []Sample{{1, "101"}, {3, "103"}, {5, "105"}}, samples)
}

func TestSampleStore_EncodesTrips(t *testing.T) {
	ctx := context.Background()
	db, err := OpenSampleDB(ctx, ":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	s := newTestScenario(t)
	store, err := NewSampleStore[*roundtrip.RoundTrip](db, EveryState, 1, "", nil)
	require.NoError(t, err)
	require.NoError(t, store.Start())
	require.NoError(t, store.ProcessState(mustTrip(t, s, []string{"A", "B"}, []int{6, 18})))
	require.NoError(t, store.End())

	samples, err := Samples(ctx, db, store.RunID())
	require.NoError(t, err)
	require.Len(t, samples, 1)
	assert.Equal(t, "locations[A,B],bins[6,18]", samples[0].State)
}

func TestSampleStore_Errors(t *testing.T) {
	ctx := context.Background()
	db, err := OpenSampleDB(ctx, ":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	_, err = NewSampleStore[int](nil, EveryState, 0, "", nil)
	assert.Error(t, err)

	failing := func(int) (string, error) { return "", errors.New("boom") }
	store, err := NewSampleStore[int](db, EveryState, 0, "", failing)
	require.NoError(t, err)

	assert.Error(t, store.ProcessState(1), "not started")
	require.NoError(t, store.Start())
	assert.ErrorContains(t, store.ProcessState(1), "boom")
	require.NoError(t, store.End())
	require.NoError(t, store.End())
}

// counterProposal always moves from n to n+1.
type counterProposal struct{}

func (counterProposal) NewTransition(_ *rand.Rand, from int) (mh.Transition[int], error) {
	return mh.NewTransition(from, from+1, 0, 0), nil
}

func TestSampleStore_KeepsSamplesOfAbortedRun(t *testing.T) {
	// GIVEN a chain whose weight fails when it reaches state 5
	ctx := context.Background()
	db, err := OpenSampleDB(ctx, ":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	w := mh.WeightFunc[int](func(s int) (float64, error) {
		if s == 5 {
			return 0, errors.New("weight failure")
		}
		return 0, nil
	})
	algo, err := mh.NewSequentialAlgorithm[int](counterProposal{}, w, rand.New(rand.NewSource(1)))
	require.NoError(t, err)
	algo.SetInitialState(0)
	store, err := NewSampleStore[int](db, EveryState, 3, "aborted", nil)
	require.NoError(t, err)
	require.NoError(t, algo.AddStateProcessor(store))

	// WHEN the run aborts before End is called
	err = algo.Run(10)
	var runErr *mh.RunError
	require.ErrorAs(t, err, &runErr)
	assert.Equal(t, int64(5), runErr.Iteration)

	// THEN the run and every state handed to the store are persisted
	ids, err := Runs(ctx, db)
	require.NoError(t, err)
	assert.Equal(t, []string{store.RunID()}, ids)
	samples, err := Samples(ctx, db, store.RunID())
	require.NoError(t, err)
	assert.Equal(t, []Sample{{0, "0"}, {1, "1"}, {2, "2"}, {3, "3"}, {4, "4"}}, samples)
}
