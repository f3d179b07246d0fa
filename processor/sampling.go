package processor

import "fmt"

// Sampling selects which chain states a processor handles. States are
// numbered from 0 (the initial state).
type Sampling struct {
	BurnIn   int64
	Interval int64
}

// EveryState processes all states.
var EveryState = Sampling{Interval: 1}

// Validate reports an invalid schedule.
func (s Sampling) Validate() error {
	if s.BurnIn < 0 {
		return fmt.Errorf("burn-in must be non-negative, got %d", s.BurnIn)
	}
	if s.Interval <= 0 {
		return fmt.Errorf("sampling interval must be positive, got %d", s.Interval)
	}
	return nil
}

func (s Sampling) due(index int64) bool {
	return index >= s.BurnIn && (index-s.BurnIn)%s.Interval == 0
}

// counter numbers the states a processor sees since its last Start.
type counter struct {
	sampling Sampling
	next     int64
}

// tick returns the index of the current state and whether it is due.
func (c *counter) tick() (int64, bool) {
	index := c.next
	c.next++
	return index, c.sampling.due(index)
}

func (c *counter) reset() { c.next = 0 }
