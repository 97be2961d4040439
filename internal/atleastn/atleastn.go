// Package atleastn computes the survival function of a Poisson-binomial
// distribution: the probability that at least n of a set of independent
// Bernoulli trials succeed.
package atleastn

import (
	"fmt"
	"iter"
)

// #region constructor
// New creates an engine over a copy of the given probabilities.
// Values are not range checked.
func New(probabilities []float64) *Engine {
	ps := make([]float64, len(probabilities))
	copy(ps, probabilities)
	return newEngine(ps)
}

// FromSeq drains seq and creates an engine over the collected values.
func FromSeq(seq iter.Seq[float64]) *Engine {
	var ps []float64
	for p := range seq {
		ps = append(ps, p)
	}
	return newEngine(ps)
}

func newEngine(ps []float64) *Engine {
	return &Engine{
		probabilities: ps,
		allZero:       buildAllZero(ps),
	}
}

// #endregion constructor

// #region compute
// Compute returns the probability that at least n trials succeed.
// n must be greater than 0.
func (e *Engine) Compute(n int) (float64, error) {
	if n < 1 {
		return 0, fmt.Errorf("%w: n must be greater than 0", ErrInvalidArgument)
	}
	return e.atLeastAt(len(e.probabilities)-1, n), nil
}

// AtLeastN is shorthand for New(probabilities).Compute(n).
func AtLeastN(probabilities []float64, n int) (float64, error) {
	return New(probabilities).Compute(n)
}

// #endregion compute

// #region exactly
// Exactly returns the probability that exactly k trials succeed.
// It is 0 for k < 0 or k > Len().
func (e *Engine) Exactly(k int) float64 {
	last := len(e.probabilities) - 1
	switch {
	case k < 0:
		return 0
	case k == 0:
		if last < 0 {
			return 1
		}
		return e.allZero[last]
	}
	return e.exactlyAt(last, k)
}

// Len returns the number of trials.
func (e *Engine) Len() int {
	return len(e.probabilities)
}

// #endregion exactly

// #region subproblems
// zeroCondition reports whether trials 0..m cannot produce k successes.
func zeroCondition(m, k int) bool {
	notEnoughElements := m+1 < k
	noElementsLeft := m < 0
	return notEnoughElements || noElementsLeft
}

func (e *Engine) exactlyAt(m, k int) float64 {
	if k < 1 || zeroCondition(m, k) {
		return 0
	}
	e.fillExactly(k)
	return e.exactly[k-1][m]
}

func (e *Engine) atLeastAt(m, k int) float64 {
	if k < 1 || zeroCondition(m, k) {
		return 0
	}
	e.fillAtLeast(k)
	return e.atLeast[k-1][m]
}

// #endregion subproblems

// #region arenas
func buildAllZero(ps []float64) []float64 {
	allZero := make([]float64, len(ps))
	product := 1.0
	for m, p := range ps {
		product *= 1.0 - p
		allZero[m] = product
	}
	return allZero
}

// fillExactly materializes exactly rows 1..k.
func (e *Engine) fillExactly(k int) {
	ps := e.probabilities
	for row := len(e.exactly) + 1; row <= k; row++ {
		cur := make([]float64, len(ps))
		for m := range ps {
			if zeroCondition(m, row) {
				continue
			}
			p := ps[m]
			if row == 1 {
				if m == 0 {
					cur[m] = p
					continue
				}
				cur[m] = p*e.allZero[m-1] + (1.0-p)*cur[m-1]
				continue
			}
			// trial m is either the row-th success or a failure.
			var prevFewer, prevSame float64
			if m > 0 {
				prevFewer = e.exactly[row-2][m-1]
				prevSame = cur[m-1]
			}
			cur[m] = p*prevFewer + (1.0-p)*prevSame
		}
		e.exactly = append(e.exactly, cur)
	}
}

// fillAtLeast materializes the at-least row for k, and the exactly
// rows it depends on.
func (e *Engine) fillAtLeast(k int) {
	if len(e.atLeast) >= k && e.atLeast[k-1] != nil {
		return
	}
	for len(e.atLeast) < k {
		e.atLeast = append(e.atLeast, nil)
	}
	if k > 1 {
		e.fillExactly(k - 1)
	}

	ps := e.probabilities
	cur := make([]float64, len(ps))
	for m := range ps {
		if zeroCondition(m, k) {
			continue
		}
		if k == 1 {
			cur[m] = 1.0 - e.allZero[m]
			continue
		}
		// m >= 1 here since m+1 >= k >= 2.
		cur[m] = ps[m]*e.exactly[k-2][m-1] + cur[m-1]
	}
	e.atLeast[k-1] = cur
}

// #endregion arenas
