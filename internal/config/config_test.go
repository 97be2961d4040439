package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/danielpatrickdp/atleastn/internal/evaluator"
)

func TestLoadDefaults(t *testing.T) {
	s, err := Load(New(), "")
	require.NoError(t, err)

	assert.Equal(t, evaluator.DefaultThreshold, s.Threshold)
	assert.Equal(t, 0, s.N)
	assert.Equal(t, evaluator.DefaultRoundTo, s.RoundTo)
	assert.Equal(t, evaluator.DefaultProbability, s.DefaultProbability)
	assert.Equal(t, "info", s.LogLevel)
	assert.Equal(t, 128, s.CacheSize)
	assert.Empty(t, s.MetricsAddr)

	c := s.EvaluatorConfig()
	assert.Equal(t, evaluator.DefaultConfig[string](), c)
}

func TestLoadFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "atleastn.yaml")
	content := `
threshold: 0.6
round_to: 5
default_probability: 0.25
default_attributes:
  wifi: 0.9
db: /tmp/ranks.db
`
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))

	s, err := Load(New(), path)
	require.NoError(t, err)
	assert.Equal(t, 0.6, s.Threshold)
	assert.Equal(t, 5, s.RoundTo)
	assert.Equal(t, "/tmp/ranks.db", s.DB)

	c := s.EvaluatorConfig()
	assert.Equal(t, 0.25, c.DefaultProbability)
	assert.Equal(t, 0.9, c.DefaultAttributes["wifi"])
}

func TestLoadEnvOverride(t *testing.T) {
	t.Setenv("ATLEASTN_N", "4")
	t.Setenv("ATLEASTN_LOG_LEVEL", "debug")

	s, err := Load(New(), "")
	require.NoError(t, err)
	assert.Equal(t, 4, s.N)
	assert.Equal(t, 4, s.EvaluatorConfig().N)
	assert.Equal(t, "debug", s.LogLevel)
}

func TestLoadMissingFile(t *testing.T) {
	_, err := Load(New(), filepath.Join(t.TempDir(), "nope.yaml"))
	require.Error(t, err)
}

func TestValidate(t *testing.T) {
	base, err := Load(New(), "")
	require.NoError(t, err)

	for name, mutate := range map[string]func(*Settings){
		"threshold":  func(s *Settings) { s.Threshold = 0 },
		"n":          func(s *Settings) { s.N = -3 },
		"cutoff":     func(s *Settings) { s.SummaryCutoff = -0.1 },
		"workers":    func(s *Settings) { s.Workers = -1 },
		"cache size": func(s *Settings) { s.CacheSize = 0 },
	} {
		t.Run(name, func(t *testing.T) {
			s := base
			mutate(&s)
			assert.Error(t, s.Validate())
		})
	}
	assert.NoError(t, base.Validate())
}
