package config

import (
	"errors"
	"fmt"
	"strings"

	"github.com/spf13/viper"

	"github.com/danielpatrickdp/atleastn/internal/evaluator"
)

// EnvPrefix is prepended to every environment override, e.g. ATLEASTN_THRESHOLD.
const EnvPrefix = "ATLEASTN"

// #region settings
// Settings is the resolved configuration shared by the CLI and the server.
type Settings struct {
	Threshold          float64            `mapstructure:"threshold"`
	N                  int                `mapstructure:"n"`
	RoundTo            int                `mapstructure:"round_to"`
	DefaultProbability float64            `mapstructure:"default_probability"`
	DefaultAttributes  map[string]float64 `mapstructure:"default_attributes"`
	SummaryCutoff      float64            `mapstructure:"summary_cutoff"`
	Workers            int                `mapstructure:"workers"`

	DB          string `mapstructure:"db"`
	LogLevel    string `mapstructure:"log_level"`
	LogJSON     bool   `mapstructure:"log_json"`
	ListenAddr  string `mapstructure:"listen_addr"`
	MetricsAddr string `mapstructure:"metrics_addr"` // empty disables /metrics
	CacheSize   int    `mapstructure:"cache_size"`
}

// #endregion settings

// #region defaults
// SetDefaults registers the default value of every setting on v.
func SetDefaults(v *viper.Viper) {
	v.SetDefault("threshold", evaluator.DefaultThreshold)
	v.SetDefault("n", 0)
	v.SetDefault("round_to", evaluator.DefaultRoundTo)
	v.SetDefault("default_probability", evaluator.DefaultProbability)
	v.SetDefault("default_attributes", map[string]float64{})
	v.SetDefault("summary_cutoff", 0.5)
	v.SetDefault("workers", 0)
	v.SetDefault("db", "atleastn.db")
	v.SetDefault("log_level", "info")
	v.SetDefault("log_json", false)
	v.SetDefault("listen_addr", "localhost:50061")
	v.SetDefault("metrics_addr", "")
	v.SetDefault("cache_size", 128)
}

// New returns a viper instance with defaults and ATLEASTN_* environment
// overrides wired in.
func New() *viper.Viper {
	v := viper.New()
	SetDefaults(v)
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_", ".", "_"))
	v.AutomaticEnv()
	return v
}

// #endregion defaults

// #region load
// Load reads configFile (if non-empty) into v and decodes the result.
func Load(v *viper.Viper, configFile string) (Settings, error) {
	if configFile != "" {
		v.SetConfigFile(configFile)
		if err := v.ReadInConfig(); err != nil {
			return Settings{}, fmt.Errorf("read config %s: %w", configFile, err)
		}
	}

	var s Settings
	if err := v.Unmarshal(&s); err != nil {
		return Settings{}, fmt.Errorf("decode config: %w", err)
	}
	if err := s.Validate(); err != nil {
		return Settings{}, err
	}
	return s, nil
}

// Validate checks for invalid configuration values.
func (s Settings) Validate() error {
	var errs []error
	if err := s.EvaluatorConfig().Validate(); err != nil {
		errs = append(errs, err)
	}
	if s.SummaryCutoff < 0 || s.SummaryCutoff > 1 {
		errs = append(errs, fmt.Errorf("summary_cutoff must be between 0 and 1, got %.2f", s.SummaryCutoff))
	}
	if s.Workers < 0 {
		errs = append(errs, fmt.Errorf("workers must be >= 0, got %d", s.Workers))
	}
	if s.CacheSize <= 0 {
		errs = append(errs, fmt.Errorf("cache_size must be > 0, got %d", s.CacheSize))
	}
	if len(errs) > 0 {
		return fmt.Errorf("invalid config: %w", errors.Join(errs...))
	}
	return nil
}

// #endregion load

// #region evaluator-config
// EvaluatorConfig converts the evaluation settings to an evaluator.Config.
func (s Settings) EvaluatorConfig() evaluator.Config[string] {
	c := evaluator.DefaultConfig[string]()
	c.Threshold = s.Threshold
	c.N = s.N
	c.RoundTo = s.RoundTo
	c.DefaultProbability = s.DefaultProbability
	for k, p := range s.DefaultAttributes {
		c.DefaultAttributes[k] = p
	}
	return c
}

// #endregion evaluator-config
