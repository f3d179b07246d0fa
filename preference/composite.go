package preference

import (
	"fmt"
	"math"

	"github.com/vtisweden/matsim-projects-sub003/mh"
)

// Term is one component's contribution to a composite log-weight.
type Term struct {
	Name      string
	Factor    float64
	LogWeight float64 // unscaled component value
}

type component[S any] struct {
	name   string
	weight mh.Weight[S]
	factor float64
}

// SamplingWeights is the weighted sum of its components' log-weights.
type SamplingWeights[S any] struct {
	components []component[S]
}

// NewSamplingWeights creates an empty composite. Its log-weight is 0 until
// components are added.
func NewSamplingWeights[S any]() *SamplingWeights[S] {
	return &SamplingWeights[S]{}
}

// Add registers a component with a non-negative factor.
func (w *SamplingWeights[S]) Add(name string, weight mh.Weight[S], factor float64) error {
	if weight == nil {
		return fmt.Errorf("component %q: weight is nil", name)
	}
	if factor < 0 || math.IsNaN(factor) || math.IsInf(factor, 0) {
		return fmt.Errorf("component %q: factor must be finite and non-negative, got %v", name, factor)
	}
	w.components = append(w.components, component[S]{name: name, weight: weight, factor: factor})
	return nil
}

// Len returns the number of components.
func (w *SamplingWeights[S]) Len() int { return len(w.components) }

// LogWeight returns Σ factor × component log-weight. Components with a
// zero factor are not evaluated.
func (w *SamplingWeights[S]) LogWeight(state S) (float64, error) {
	sum := 0.0
	for _, c := range w.components {
		if c.factor == 0 {
			continue
		}
		lw, err := c.weight.LogWeight(state)
		if err != nil {
			return 0, fmt.Errorf("component %q: %w", c.name, err)
		}
		if math.IsNaN(lw) {
			return 0, fmt.Errorf("component %q: log-weight is NaN", c.name)
		}
		sum += c.factor * lw
	}
	return sum, nil
}

// Terms evaluates every component separately, for diagnostics.
func (w *SamplingWeights[S]) Terms(state S) ([]Term, error) {
	terms := make([]Term, 0, len(w.components))
	for _, c := range w.components {
		lw, err := c.weight.LogWeight(state)
		if err != nil {
			return nil, fmt.Errorf("component %q: %w", c.name, err)
		}
		terms = append(terms, Term{Name: c.name, Factor: c.factor, LogWeight: lw})
	}
	return terms, nil
}
