package dataset

import (
	"encoding/json"
	"fmt"
	"math"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/danielpatrickdp/atleastn/internal/evaluator"
)

// #region fixture-types

// Fixture is a dataset file: the attribute enumeration, the entities and
// optional evaluation settings and expectations.
type Fixture struct {
	Description string                        `yaml:"description" json:"description"`
	Attributes  []string                      `yaml:"attributes" json:"attributes"`
	Config      FixtureConfig                 `yaml:"config" json:"config"`
	Entities    map[string]map[string]float64 `yaml:"entities" json:"entities"`
	Expected    []FixtureExpected             `yaml:"expected,omitempty" json:"expected,omitempty"`
}

// FixtureConfig mirrors evaluator.Config. Nil fields keep the evaluator defaults.
type FixtureConfig struct {
	Threshold          *float64           `yaml:"threshold,omitempty" json:"threshold,omitempty"`
	N                  int                `yaml:"n,omitempty" json:"n,omitempty"`
	RoundTo            *int               `yaml:"round_to,omitempty" json:"round_to,omitempty"`
	DefaultProbability *float64           `yaml:"default_probability,omitempty" json:"default_probability,omitempty"`
	DefaultAttributes  map[string]float64 `yaml:"default_attributes,omitempty" json:"default_attributes,omitempty"`
}

// FixtureExpected is the expected probability for one entity.
type FixtureExpected struct {
	Name        string  `yaml:"name" json:"name"`
	Probability float64 `yaml:"probability" json:"probability"`
}

// #endregion fixture-types

// #region fixture-loader

// LoadFixture reads a YAML or JSON fixture, chosen by file extension.
func LoadFixture(path string) (*Fixture, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read fixture %s: %w", path, err)
	}
	f, err := ParseFixture(data, filepath.Ext(path))
	if err != nil {
		return nil, fmt.Errorf("parse fixture %s: %w", path, err)
	}
	return f, nil
}

// ParseFixture decodes fixture bytes. ext selects JSON for ".json" and
// YAML otherwise.
func ParseFixture(data []byte, ext string) (*Fixture, error) {
	var f Fixture
	if strings.EqualFold(ext, ".json") {
		if err := json.Unmarshal(data, &f); err != nil {
			return nil, err
		}
	} else if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, err
	}
	if err := f.Validate(); err != nil {
		return nil, err
	}
	return &f, nil
}

// Validate checks that attributes are distinct and that every entity only
// uses declared attributes.
func (f *Fixture) Validate() error {
	declared := make(map[string]bool, len(f.Attributes))
	for _, a := range f.Attributes {
		if declared[a] {
			return fmt.Errorf("duplicate attribute %q", a)
		}
		declared[a] = true
	}
	for name, attrs := range f.Entities {
		for a := range attrs {
			if !declared[a] {
				return fmt.Errorf("entity %q uses undeclared attribute %q", name, a)
			}
		}
	}
	for a := range f.Config.DefaultAttributes {
		if !declared[a] {
			return fmt.Errorf("default for undeclared attribute %q", a)
		}
	}
	return nil
}

// #endregion fixture-loader

// #region conversions

// Dataset converts the fixture entities to an evaluator dataset.
func (f *Fixture) Dataset() evaluator.Dataset[string] {
	ds := make(evaluator.Dataset[string], len(f.Entities))
	for name, attrs := range f.Entities {
		ea := make(evaluator.Attributes[string], len(attrs))
		for k, p := range attrs {
			ea[k] = p
		}
		ds[name] = ea
	}
	return ds
}

// EvaluatorConfig overlays the fixture settings on base.
func (fc *FixtureConfig) EvaluatorConfig(base evaluator.Config[string]) evaluator.Config[string] {
	c := base
	if fc.Threshold != nil {
		c.Threshold = *fc.Threshold
	}
	if fc.N != 0 {
		c.N = fc.N
	}
	if fc.RoundTo != nil {
		c.RoundTo = *fc.RoundTo
	}
	if fc.DefaultProbability != nil {
		c.DefaultProbability = *fc.DefaultProbability
	}
	if len(fc.DefaultAttributes) > 0 {
		c.DefaultAttributes = make(evaluator.Attributes[string], len(fc.DefaultAttributes))
		for k, p := range fc.DefaultAttributes {
			c.DefaultAttributes[k] = p
		}
	}
	return c
}

// CheckExpected compares results against the fixture expectations and
// returns one message per mismatch.
func (f *Fixture) CheckExpected(results []evaluator.Result, tolerance float64) []string {
	if len(f.Expected) == 0 {
		return nil
	}
	var mismatches []string
	if len(results) != len(f.Expected) {
		mismatches = append(mismatches, fmt.Sprintf("expected %d results, got %d", len(f.Expected), len(results)))
	}
	for i, want := range f.Expected {
		if i >= len(results) {
			break
		}
		got := results[i]
		if got.Name != want.Name {
			mismatches = append(mismatches, fmt.Sprintf("position %d: expected %s, got %s", i, want.Name, got.Name))
			continue
		}
		if math.Abs(got.Probability-want.Probability) > tolerance {
			mismatches = append(mismatches, fmt.Sprintf("%s: expected %.6f, got %.6f", want.Name, want.Probability, got.Probability))
		}
	}
	return mismatches
}

// #endregion conversions
