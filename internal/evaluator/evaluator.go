package evaluator

import (
	"cmp"
	"context"
	"fmt"
	"maps"
	"math"
	"slices"
	"strings"
	"sync"
	"unicode/utf8"

	"github.com/montanaflynn/stats"
	"golang.org/x/sync/errgroup"

	"github.com/danielpatrickdp/atleastn/internal/atleastn"
)

// #region evaluator-struct
// Evaluator ranks the entities of a dataset by the probability that at
// least n of their attributes are present. Its configuration must not be
// changed after the first call to Evaluate.
type Evaluator[K comparable] struct {
	dataset Dataset[K]
	keys    []K
	config  Config[K]
	n       int

	once    sync.Once
	results []Result
	err     error
}

// #endregion evaluator-struct

// #region constructor
// New creates an evaluator over dataset. keys is the ordered, distinct
// enumeration of recognized attributes; it fixes the length and order of
// every encoded probability vector.
func New[K comparable](dataset Dataset[K], keys []K, config Config[K]) (*Evaluator[K], error) {
	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	seen := make(map[K]struct{}, len(keys))
	for _, k := range keys {
		if _, dup := seen[k]; dup {
			return nil, fmt.Errorf("duplicate attribute key %v", k)
		}
		seen[k] = struct{}{}
	}
	if config.DefaultAttributes == nil {
		config.DefaultAttributes = Attributes[K]{}
	}

	n := config.N
	if n == 0 {
		n = int(math.Ceil(config.Threshold * float64(len(keys))))
	}

	return &Evaluator[K]{
		dataset: dataset,
		keys:    slices.Clone(keys),
		config:  config,
		n:       n,
	}, nil
}

// N returns the target count every entity is evaluated against.
func (e *Evaluator[K]) N() int {
	return e.n
}

// Config returns the evaluator's configuration.
func (e *Evaluator[K]) Config() Config[K] {
	return e.config
}

// #endregion constructor

// #region encode
// Encode converts attributes into a probability vector with one entry per
// key. Missing keys fall back to DefaultAttributes, then DefaultProbability.
func (e *Evaluator[K]) Encode(attributes Attributes[K]) []float64 {
	probabilities := make([]float64, 0, len(e.keys))
	for _, k := range e.keys {
		p, ok := attributes[k]
		if !ok {
			p, ok = e.config.DefaultAttributes[k]
		}
		if !ok {
			p = e.config.DefaultProbability
		}
		probabilities = append(probabilities, p)
	}
	return probabilities
}

// #endregion encode

// #region evaluate
// Evaluate returns every entity ordered by descending probability, ties
// broken by name. The ranking is computed once and cached.
func (e *Evaluator[K]) Evaluate() ([]Result, error) {
	e.once.Do(func() {
		e.results, e.err = e.rank()
	})
	if e.err != nil {
		return nil, e.err
	}
	return slices.Clone(e.results), nil
}

func (e *Evaluator[K]) rank() ([]Result, error) {
	names := e.names()
	results := make([]Result, 0, len(names))
	for _, name := range names {
		r, err := e.computeOne(name)
		if err != nil {
			return nil, err
		}
		results = append(results, r)
	}
	sortResults(results)
	return results, nil
}

// EvaluateParallel ranks the dataset using up to workers goroutines. The
// ordering matches Evaluate. Results are not cached.
func (e *Evaluator[K]) EvaluateParallel(ctx context.Context, workers int) ([]Result, error) {
	names := e.names()
	results := make([]Result, len(names))

	g, ctx := errgroup.WithContext(ctx)
	if workers > 0 {
		g.SetLimit(workers)
	}
	for i, name := range names {
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}
			r, err := e.computeOne(name)
			if err != nil {
				return err
			}
			results[i] = r
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	sortResults(results)
	return results, nil
}

// computeOne evaluates a single entity with its own engine.
func (e *Evaluator[K]) computeOne(name string) (Result, error) {
	engine := atleastn.New(e.Encode(e.dataset[name]))
	p, err := engine.Compute(e.n)
	if err != nil {
		return Result{}, fmt.Errorf("evaluate %s: %w", name, err)
	}
	return Result{Name: name, Probability: p}, nil
}

func (e *Evaluator[K]) names() []string {
	return slices.Sorted(maps.Keys(e.dataset))
}

func sortResults(results []Result) {
	slices.SortStableFunc(results, func(a, b Result) int {
		if c := cmp.Compare(b.Probability, a.Probability); c != 0 {
			return c
		}
		return strings.Compare(a.Name, b.Name)
	})
}

// #endregion evaluate

// #region summary
// Summary describes the ranked probabilities and counts the entities whose
// probability is at least cutoff.
func (e *Evaluator[K]) Summary(cutoff float64) (Summary, error) {
	results, err := e.Evaluate()
	if err != nil {
		return Summary{}, err
	}
	return Summarize(results, cutoff)
}

// Summarize computes distribution statistics over results.
func Summarize(results []Result, cutoff float64) (Summary, error) {
	s := Summary{Count: len(results), Cutoff: cutoff}
	if len(results) == 0 {
		return s, nil
	}

	data := make(stats.Float64Data, len(results))
	for i, r := range results {
		data[i] = r.Probability
		if r.Probability >= cutoff {
			s.AtOrAbove++
		}
	}

	var err error
	if s.Mean, err = stats.Mean(data); err != nil {
		return Summary{}, fmt.Errorf("mean: %w", err)
	}
	if s.Median, err = stats.Median(data); err != nil {
		return Summary{}, fmt.Errorf("median: %w", err)
	}
	if s.StdDev, err = stats.StandardDeviationPopulation(data); err != nil {
		return Summary{}, fmt.Errorf("std dev: %w", err)
	}
	if s.Min, err = stats.Min(data); err != nil {
		return Summary{}, fmt.Errorf("min: %w", err)
	}
	if s.Max, err = stats.Max(data); err != nil {
		return Summary{}, fmt.Errorf("max: %w", err)
	}
	return s, nil
}

// #endregion summary

// #region render
// Render evaluates the dataset and formats it with Format, right-aligning
// names to the longest entity name in the dataset.
func (e *Evaluator[K]) Render() (string, error) {
	results, err := e.Evaluate()
	if err != nil {
		return "", err
	}
	width := 0
	for name := range e.dataset {
		width = max(width, utf8.RuneCountInString(name))
	}
	return Format(results, width, e.config.RoundTo), nil
}

// String returns the rendered ranking, or an empty string if evaluation fails.
func (e *Evaluator[K]) String() string {
	out, err := e.Render()
	if err != nil {
		return ""
	}
	return out
}

// Format writes one line per result: the name right-aligned to width, a
// space, and the probability with roundTo decimal places.
func Format(results []Result, width, roundTo int) string {
	lines := make([]string, len(results))
	for i, r := range results {
		lines[i] = fmt.Sprintf("%*s %.*f", width, r.Name, roundTo, r.Probability)
	}
	return strings.Join(lines, "\n")
}

// #endregion render
