package evaluator

import (
	"fmt"
)

// #region defaults
const (
	DefaultThreshold   = 0.8
	DefaultRoundTo     = 3
	DefaultProbability = 0.5
)

// #endregion defaults

// #region dataset
// Attributes maps attribute keys to the probability the attribute is present.
type Attributes[K comparable] map[K]float64

// Dataset maps entity names to their (possibly partial) attributes.
type Dataset[K comparable] map[string]Attributes[K]

// #endregion dataset

// #region config
// Config controls how an Evaluator derives n, fills missing attributes and
// renders results.
type Config[K comparable] struct {
	Threshold          float64 // fraction of len(keys) used to derive n when N is 0
	N                  int     // explicit target count; 0 means derive from Threshold
	RoundTo            int     // decimal places in String output
	DefaultAttributes  Attributes[K]
	DefaultProbability float64 // used when a key is in neither the entity nor DefaultAttributes
}

// DefaultConfig returns the standard evaluation settings.
func DefaultConfig[K comparable]() Config[K] {
	return Config[K]{
		Threshold:          DefaultThreshold,
		RoundTo:            DefaultRoundTo,
		DefaultAttributes:  Attributes[K]{},
		DefaultProbability: DefaultProbability,
	}
}

// Validate checks the configuration for values that cannot be evaluated.
func (c Config[K]) Validate() error {
	if c.N < 0 {
		return fmt.Errorf("n must be >= 0, got %d", c.N)
	}
	if c.N == 0 && c.Threshold <= 0 {
		return fmt.Errorf("threshold must be > 0, got %.3f", c.Threshold)
	}
	if c.RoundTo < 0 {
		return fmt.Errorf("round_to must be >= 0, got %d", c.RoundTo)
	}
	return nil
}

// #endregion config

// #region result
// Result is one ranked entity.
type Result struct {
	Name        string  `json:"name"`
	Probability float64 `json:"probability"`
}

// Summary describes the distribution of ranked probabilities.
type Summary struct {
	Count     int     `json:"count"`
	Mean      float64 `json:"mean"`
	Median    float64 `json:"median"`
	StdDev    float64 `json:"std_dev"`
	Min       float64 `json:"min"`
	Max       float64 `json:"max"`
	Cutoff    float64 `json:"cutoff"`
	AtOrAbove int     `json:"at_or_above"` // entities whose probability >= Cutoff
}

// #endregion result
