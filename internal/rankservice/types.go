package rankservice

import (
	"github.com/danielpatrickdp/atleastn/internal/dataset"
	"github.com/danielpatrickdp/atleastn/internal/evaluator"
)

// #region compute-messages
// ComputeRequest asks for the probability that at least N of Probabilities succeed.
type ComputeRequest struct {
	Probabilities []float64 `json:"probabilities"`
	N             int       `json:"n"`
}

// ComputeResponse carries the computed probability.
type ComputeResponse struct {
	Probability float64 `json:"probability"`
}

// #endregion compute-messages

// #region rank-messages
// RankRequest ranks either the inline Entities over Attributes, or the
// stored dataset named by Dataset when the server has a store.
type RankRequest struct {
	Dataset    string                        `json:"dataset,omitempty"`
	Attributes []string                      `json:"attributes,omitempty"`
	Entities   map[string]map[string]float64 `json:"entities,omitempty"`
	Config     dataset.FixtureConfig         `json:"config"`
}

// RankResponse is the ranked dataset and its text rendering.
type RankResponse struct {
	N        int                `json:"n"`
	Results  []evaluator.Result `json:"results"`
	Rendered string             `json:"rendered"`
	Cached   bool               `json:"cached"`
}

// #endregion rank-messages
