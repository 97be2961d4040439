package dataset

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/danielpatrickdp/atleastn/internal/evaluator"
)

const yamlFixture = `
description: cafes
attributes: [wifi, outlets, quiet]
config:
  n: 2
  round_to: 4
  default_attributes:
    quiet: 0.2
entities:
  blue_bottle: {wifi: 0.9, outlets: 0.4}
  ritual: {wifi: 0.5, outlets: 0.5, quiet: 0.5}
  empty: {}
expected:
  - {name: ritual, probability: 0.5}
  - {name: blue_bottle, probability: 0.476}
  - {name: empty, probability: 0.35}
`

const jsonFixture = `{
  "description": "tiny",
  "attributes": ["a", "b"],
  "entities": {"x": {"a": 1, "b": 1}}
}`

func writeFixture(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write fixture: %v", err)
	}
	return path
}

func TestLoadFixtureYAML(t *testing.T) {
	f, err := LoadFixture(writeFixture(t, "cafes.yaml", yamlFixture))
	if err != nil {
		t.Fatalf("LoadFixture: %v", err)
	}
	if f.Description != "cafes" {
		t.Fatalf("expected description cafes, got %q", f.Description)
	}
	if len(f.Attributes) != 3 || f.Attributes[2] != "quiet" {
		t.Fatalf("unexpected attributes %v", f.Attributes)
	}
	if len(f.Entities) != 3 {
		t.Fatalf("expected 3 entities, got %d", len(f.Entities))
	}
	if f.Config.N != 2 || f.Config.RoundTo == nil || *f.Config.RoundTo != 4 {
		t.Fatalf("unexpected config %+v", f.Config)
	}
	if f.Config.Threshold != nil {
		t.Fatal("expected threshold to be unset")
	}
}

func TestLoadFixtureJSON(t *testing.T) {
	f, err := LoadFixture(writeFixture(t, "tiny.json", jsonFixture))
	if err != nil {
		t.Fatalf("LoadFixture: %v", err)
	}
	if f.Entities["x"]["a"] != 1 {
		t.Fatalf("expected x.a = 1, got %v", f.Entities["x"]["a"])
	}
}

func TestLoadFixtureMissingFile(t *testing.T) {
	if _, err := LoadFixture(filepath.Join(t.TempDir(), "missing.yaml")); err == nil {
		t.Fatal("expected error for missing file")
	}
}

func TestFixtureValidate(t *testing.T) {
	cases := map[string]string{
		"duplicate attribute": "attributes: [a, a]\n",
		"undeclared entity":   "attributes: [a]\nentities:\n  x: {b: 0.5}\n",
		"undeclared default":  "attributes: [a]\nconfig:\n  default_attributes: {b: 0.5}\n",
	}
	for name, content := range cases {
		t.Run(name, func(t *testing.T) {
			if _, err := ParseFixture([]byte(content), ".yaml"); err == nil {
				t.Fatal("expected validation error")
			}
		})
	}
}

func TestFixtureEvaluatesAndChecksExpected(t *testing.T) {
	f, err := ParseFixture([]byte(yamlFixture), ".yml")
	if err != nil {
		t.Fatalf("ParseFixture: %v", err)
	}

	cfg := f.Config.EvaluatorConfig(evaluator.DefaultConfig[string]())
	if cfg.N != 2 || cfg.RoundTo != 4 || cfg.Threshold != evaluator.DefaultThreshold {
		t.Fatalf("unexpected evaluator config %+v", cfg)
	}
	if cfg.DefaultAttributes["quiet"] != 0.2 {
		t.Fatalf("expected default quiet 0.2, got %v", cfg.DefaultAttributes["quiet"])
	}

	e, err := evaluator.New(f.Dataset(), f.Attributes, cfg)
	if err != nil {
		t.Fatalf("evaluator.New: %v", err)
	}
	results, err := e.Evaluate()
	if err != nil {
		t.Fatalf("Evaluate: %v", err)
	}

	if mismatches := f.CheckExpected(results, 1e-9); len(mismatches) != 0 {
		t.Fatalf("unexpected mismatches: %v", mismatches)
	}

	f.Expected[0].Probability = 0.9
	if mismatches := f.CheckExpected(results, 1e-9); len(mismatches) != 1 {
		t.Fatalf("expected 1 mismatch, got %v", mismatches)
	}
}
