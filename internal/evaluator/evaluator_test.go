package evaluator

import (
	"context"
	"errors"
	"math"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/danielpatrickdp/atleastn/internal/atleastn"
)

type attribute int

const (
	a0 attribute = iota
	a1
	a2
)

var allAttributes = []attribute{a0, a1, a2}

func makeAttributes(ps ...float64) Attributes[attribute] {
	attrs := Attributes[attribute]{}
	for i, p := range ps {
		attrs[allAttributes[i]] = p
	}
	return attrs
}

func withN(n int) Config[attribute] {
	c := DefaultConfig[attribute]()
	c.N = n
	return c
}

func TestNewDerivesNFromThreshold(t *testing.T) {
	c := DefaultConfig[attribute]()
	c.Threshold = 0.6
	e, err := New(Dataset[attribute]{}, allAttributes, c)
	require.NoError(t, err)
	assert.Equal(t, int(math.Ceil(0.6*3)), e.N())
	assert.Equal(t, 2, e.N())

	e, err = New(Dataset[attribute]{}, allAttributes, DefaultConfig[attribute]())
	require.NoError(t, err)
	assert.Equal(t, 3, e.N())
}

func TestNewExplicitNOverridesThreshold(t *testing.T) {
	c := withN(10)
	c.Threshold = 0.6
	e, err := New(Dataset[attribute]{}, allAttributes, c)
	require.NoError(t, err)
	assert.Equal(t, 10, e.N())
}

func TestThresholdAboveOneRanksEverythingZero(t *testing.T) {
	c := DefaultConfig[attribute]()
	c.Threshold = 1.5
	ds := Dataset[attribute]{
		"certain": makeAttributes(1, 1, 1),
		"likely":  makeAttributes(0.9, 0.9, 0.9),
	}
	e, err := New(ds, allAttributes, c)
	require.NoError(t, err)
	assert.Equal(t, 5, e.N())

	results, err := e.Evaluate()
	require.NoError(t, err)
	assert.Equal(t, []Result{{Name: "certain", Probability: 0}, {Name: "likely", Probability: 0}}, results)
}

func TestNewDefaults(t *testing.T) {
	c := DefaultConfig[attribute]()
	c.DefaultAttributes = nil
	e, err := New(Dataset[attribute]{}, allAttributes, c)
	require.NoError(t, err)
	got := e.Config()
	assert.Equal(t, Attributes[attribute]{}, got.DefaultAttributes)
	assert.Equal(t, 0.8, got.Threshold)
	assert.Equal(t, 3, got.RoundTo)
	assert.Equal(t, 0.5, got.DefaultProbability)
}

func TestNewRejectsInvalidConfig(t *testing.T) {
	for name, mutate := range map[string]func(*Config[attribute]){
		"negative n":      func(c *Config[attribute]) { c.N = -1 },
		"zero threshold":  func(c *Config[attribute]) { c.Threshold = 0 },
		"negative thresh": func(c *Config[attribute]) { c.Threshold = -0.5 },
		"negative digits": func(c *Config[attribute]) { c.RoundTo = -2 },
	} {
		t.Run(name, func(t *testing.T) {
			c := DefaultConfig[attribute]()
			mutate(&c)
			_, err := New(Dataset[attribute]{}, allAttributes, c)
			require.Error(t, err)
		})
	}
}

func TestNewRejectsDuplicateKeys(t *testing.T) {
	_, err := New(Dataset[attribute]{}, []attribute{a0, a1, a0}, DefaultConfig[attribute]())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "duplicate attribute key")
}

func TestEncodeFallbacks(t *testing.T) {
	c := DefaultConfig[attribute]()
	c.DefaultAttributes = Attributes[attribute]{a1: 0.3}
	c.DefaultProbability = 0.9
	e, err := New(Dataset[attribute]{}, allAttributes, c)
	require.NoError(t, err)

	assert.Equal(t, []float64{0.1, 0.3, 0.9}, e.Encode(makeAttributes(0.1)))
	assert.Equal(t, []float64{0.1, 0.2, 0.9}, e.Encode(makeAttributes(0.1, 0.2)))
	assert.Equal(t, []float64{0.9, 0.3, 0.9}, e.Encode(nil))
}

func TestEvaluate(t *testing.T) {
	tests := []struct {
		name     string
		dataset  Dataset[attribute]
		config   func() Config[attribute]
		expected []Result
	}{
		{
			name: "no_missing",
			dataset: Dataset[attribute]{
				"name_0": makeAttributes(0.5, 0.5, 0.5),
				"name_1": makeAttributes(0.2, 0.7, 0.9),
				"name_2": makeAttributes(0.5, 0.1, 0.5),
			},
			config: func() Config[attribute] { return withN(3) },
			expected: []Result{
				{"name_1", 0.126},
				{"name_0", 0.125},
				{"name_2", 0.025},
			},
		},
		{
			name: "default_probability",
			dataset: Dataset[attribute]{
				"name_0": makeAttributes(0.5, 0.5, 0.5),
				"name_1": makeAttributes(0.2),
				"name_2": makeAttributes(),
			},
			config: func() Config[attribute] {
				c := withN(3)
				c.DefaultProbability = 1.0
				return c
			},
			expected: []Result{
				{"name_2", 1.0},
				{"name_1", 0.2},
				{"name_0", 0.125},
			},
		},
		{
			name: "default_attributes",
			dataset: Dataset[attribute]{
				"name_0": makeAttributes(0.5, 0.5, 0.5),
				"name_1": makeAttributes(0.25),
				"name_2": makeAttributes(),
			},
			config: func() Config[attribute] {
				c := withN(1)
				c.DefaultProbability = 1.0
				c.DefaultAttributes = makeAttributes(0, 0, 0)
				return c
			},
			expected: []Result{
				{"name_0", 0.875},
				{"name_1", 0.25},
				{"name_2", 0.0},
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			e, err := New(tt.dataset, allAttributes, tt.config())
			require.NoError(t, err)
			got, err := e.Evaluate()
			require.NoError(t, err)
			require.Len(t, got, len(tt.expected))
			for i, want := range tt.expected {
				assert.Equal(t, want.Name, got[i].Name, "position %d", i)
				assert.InDelta(t, want.Probability, got[i].Probability, 1e-9, "position %d", i)
			}
		})
	}
}

func TestEvaluateTiesAreDeterministic(t *testing.T) {
	dataset := Dataset[attribute]{
		"delta": makeAttributes(0.5, 0.5, 0.5),
		"alpha": makeAttributes(0.5, 0.5, 0.5),
		"gamma": makeAttributes(0.9, 0.9, 0.9),
		"beta":  makeAttributes(0.5, 0.5, 0.5),
	}
	for i := 0; i < 5; i++ {
		e, err := New(dataset, allAttributes, withN(2))
		require.NoError(t, err)
		got, err := e.Evaluate()
		require.NoError(t, err)
		names := make([]string, len(got))
		for j, r := range got {
			names[j] = r.Name
		}
		assert.Equal(t, []string{"gamma", "alpha", "beta", "delta"}, names)
	}
}

func TestEvaluateIsCached(t *testing.T) {
	dataset := Dataset[attribute]{"only": makeAttributes(0.5, 0.5, 0.5)}
	e, err := New(dataset, allAttributes, withN(3))
	require.NoError(t, err)

	first, err := e.Evaluate()
	require.NoError(t, err)
	first[0].Probability = 42
	dataset["only"] = makeAttributes(1, 1, 1)

	second, err := e.Evaluate()
	require.NoError(t, err)
	assert.InDelta(t, 0.125, second[0].Probability, 1e-9)
}

func TestEvaluateMissingAttributesUseDefault(t *testing.T) {
	c := withN(3)
	c.DefaultProbability = 1.0
	e, err := New(Dataset[attribute]{"empty": {}}, allAttributes, c)
	require.NoError(t, err)
	got, err := e.Evaluate()
	require.NoError(t, err)
	want, err := atleastn.AtLeastN([]float64{1, 1, 1}, 3)
	require.NoError(t, err)
	assert.Equal(t, want, got[0].Probability)
}

func TestEvaluateWithoutKeys(t *testing.T) {
	e, err := New(Dataset[attribute]{"x": {}}, nil, DefaultConfig[attribute]())
	require.NoError(t, err)
	_, err = e.Evaluate()
	require.True(t, errors.Is(err, atleastn.ErrInvalidArgument))
	assert.Equal(t, "", e.String())
}

func TestEvaluateParallelMatchesEvaluate(t *testing.T) {
	dataset := Dataset[attribute]{}
	for i := 0; i < 50; i++ {
		p := float64(i%10) / 10
		dataset[strings.Repeat("e", i+1)] = makeAttributes(p, 1-p, 0.5)
	}
	e, err := New(dataset, allAttributes, withN(2))
	require.NoError(t, err)

	want, err := e.Evaluate()
	require.NoError(t, err)
	got, err := e.EvaluateParallel(context.Background(), 4)
	require.NoError(t, err)
	assert.Equal(t, want, got)
}

func TestEvaluateParallelCancelled(t *testing.T) {
	e, err := New(Dataset[attribute]{"a": {}, "b": {}}, allAttributes, withN(1))
	require.NoError(t, err)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err = e.EvaluateParallel(ctx, 1)
	require.ErrorIs(t, err, context.Canceled)
}

func TestString(t *testing.T) {
	dataset := Dataset[attribute]{
		"n_0":    makeAttributes(0.5, 0.5, 0.5),
		"name_1": makeAttributes(0.2, 0.7, 0.9),
		"name2":  makeAttributes(0.5, 0.1, 0.5),
	}
	c := withN(1)
	c.RoundTo = 5
	e, err := New(dataset, allAttributes, c)
	require.NoError(t, err)

	expected := strings.Join([]string{
		"name_1 0.97600",
		"   n_0 0.87500",
		" name2 0.77500",
	}, "\n")
	assert.Equal(t, expected, e.String())
}

func TestFormatRoundsAndAlignsRunes(t *testing.T) {
	out := Format([]Result{{"café", 0.12345}, {"b", 1}}, 5, 2)
	assert.Equal(t, " café 0.12\n    b 1.00", out)
	assert.Equal(t, "", Format(nil, 3, 3))
}

func TestSummary(t *testing.T) {
	dataset := Dataset[attribute]{
		"a": makeAttributes(1, 1, 1),
		"b": makeAttributes(0.5, 0.5, 0.5),
		"c": makeAttributes(0, 0, 0),
	}
	e, err := New(dataset, allAttributes, withN(3))
	require.NoError(t, err)

	s, err := e.Summary(0.1)
	require.NoError(t, err)
	assert.Equal(t, 3, s.Count)
	assert.Equal(t, 2, s.AtOrAbove)
	assert.InDelta(t, 0.375, s.Mean, 1e-9)
	assert.InDelta(t, 0.125, s.Median, 1e-9)
	assert.InDelta(t, 0.0, s.Min, 1e-9)
	assert.InDelta(t, 1.0, s.Max, 1e-9)
	assert.Greater(t, s.StdDev, 0.0)

	empty, err := Summarize(nil, 0.5)
	require.NoError(t, err)
	assert.Equal(t, Summary{Cutoff: 0.5}, empty)
}
