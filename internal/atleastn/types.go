package atleastn

import "errors"

// #region errors
// ErrInvalidArgument is returned by Compute when the target count is not positive.
var ErrInvalidArgument = errors.New("invalid argument")

// #endregion errors

// #region engine-struct
// Engine computes at-least-n probabilities over one fixed sequence of
// independent trial probabilities. Subproblem results are memoized in
// arenas owned by the engine, so an Engine must never be reused for a
// different sequence. Not safe for concurrent use.
type Engine struct {
	probabilities []float64

	// allZero[m] is the probability that trials 0..m all fail.
	allZero []float64

	// exactly[k-1][m] is the probability that exactly k of trials 0..m succeed.
	exactly [][]float64

	// atLeast[k-1][m] is the probability that at least k of trials 0..m succeed.
	// A nil row has not been computed yet.
	atLeast [][]float64
}

// #endregion engine-struct
