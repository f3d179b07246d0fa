package ensemble

import (
	"errors"
	"fmt"
	"math"

	"github.com/sirupsen/logrus"
	"gonum.org/v1/gonum/mat"
)

// ErrSingularBalance is returned when the stationary distribution of the
// balance matrix is not unique or cannot be computed reliably.
var ErrSingularBalance = errors.New("singular balance system")

// negativeTolerance bounds the negative stationary probabilities that are
// attributed to round-off and clamped to zero.
const negativeTolerance = 1e-9

// BalanceMatrix returns the rate matrix over len(w) states with
//
//	A[i][j] = min(1, exp(w[j] - w[i])) / k   for i != j
//
// and a diagonal that makes every row sum to zero. A pair whose w are both
// -Inf carries no rate.
func BalanceMatrix(w []float64, k int) (*mat.Dense, error) {
	if k <= 0 {
		return nil, fmt.Errorf("candidate count must be positive, got %d", k)
	}
	for i, wi := range w {
		if math.IsNaN(wi) || math.IsInf(wi, 1) {
			return nil, fmt.Errorf("balance weight %d is %v", i, wi)
		}
	}
	n := len(w)
	a := mat.NewDense(n, n, nil)
	for i := range n {
		out := 0.0
		for j := range n {
			if i == j {
				continue
			}
			rate := transferRate(w[i], w[j]) / float64(k)
			a.Set(i, j, rate)
			out += rate
		}
		a.Set(i, i, -out)
	}
	return a, nil
}

func transferRate(from, to float64) float64 {
	if math.IsInf(from, -1) && math.IsInf(to, -1) {
		return 0
	}
	return math.Min(1, math.Exp(to-from))
}

// StationaryDistribution solves πᵀA = 0 with Σπ = 1 by QR least squares
// on the stacked system [Aᵀ; 1ᵀ]π = [0; 1].
func StationaryDistribution(a mat.Matrix) ([]float64, error) {
	n, c := a.Dims()
	if n != c || n == 0 {
		return nil, fmt.Errorf("balance matrix must be square and non-empty, got %dx%d", n, c)
	}
	if n == 1 {
		return []float64{1}, nil
	}

	m := mat.NewDense(n+1, n, nil)
	for i := range n {
		for j := range n {
			m.Set(j, i, a.At(i, j))
		}
		m.Set(n, i, 1)
	}
	b := mat.NewVecDense(n+1, nil)
	b.SetVec(n, 1)

	var qr mat.QR
	qr.Factorize(m)
	var x mat.VecDense
	if err := qr.SolveVecTo(&x, false, b); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrSingularBalance, err)
	}

	return normalizeSolution(mat.Col(nil, 0, &x))
}

// normalizeSolution turns a raw least-squares solution into probabilities.
// Negative entries within negativeTolerance are round-off and become 0.
func normalizeSolution(x []float64) ([]float64, error) {
	pi := make([]float64, len(x))
	sum := 0.0
	for i, v := range x {
		switch {
		case math.IsNaN(v) || math.IsInf(v, 0):
			return nil, fmt.Errorf("%w: non-finite probability %v at %d", ErrSingularBalance, v, i)
		case v < -negativeTolerance:
			return nil, fmt.Errorf("%w: negative probability %v at %d", ErrSingularBalance, v, i)
		case v < 0:
			logrus.Debugf("clamping stationary probability %g of state %d to 0", v, i)
			v = 0
		}
		pi[i] = v
		sum += v
	}
	if sum <= 0 {
		return nil, fmt.Errorf("%w: probabilities sum to %v", ErrSingularBalance, sum)
	}
	for i := range pi {
		pi[i] /= sum
	}
	return pi, nil
}

// sampleIndex draws an index from probabilities p by inverse CDF.
func sampleIndex(p []float64, u float64) int {
	cum := 0.0
	for i, pi := range p {
		cum += pi
		if u < cum {
			return i
		}
	}
	// round-off: fall back to the last state with mass
	for i := len(p) - 1; i >= 0; i-- {
		if p[i] > 0 {
			return i
		}
	}
	return 0
}
