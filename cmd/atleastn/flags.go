package main

import (
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

// configKeyAnnotation marks a flag as an override of a config setting.
const configKeyAnnotation = "atleastn/config-key"

// configFlag ties flag name on fs to the config key. The binding happens in
// bindConfigFlags so that subcommands can share keys.
func configFlag(fs *pflag.FlagSet, name, key string) {
	if err := fs.SetAnnotation(name, configKeyAnnotation, []string{key}); err != nil {
		panic(err)
	}
}

// bindConfigFlags binds every annotated flag of the running command to v.
func bindConfigFlags(v *viper.Viper, cmd *cobra.Command) error {
	var err error
	cmd.Flags().VisitAll(func(f *pflag.Flag) {
		keys := f.Annotations[configKeyAnnotation]
		if len(keys) == 0 || err != nil {
			return
		}
		err = v.BindPFlag(keys[0], f)
	})
	return err
}

// addEvaluationFlags registers the evaluator settings on cmd.
func addEvaluationFlags(cmd *cobra.Command) {
	flags := cmd.Flags()
	flags.Float64("threshold", 0.8, "fraction of attributes that must be present when --n is unset")
	flags.Int("n", 0, "explicit number of attributes that must be present")
	flags.Int("round-to", 3, "decimal places in the output")
	flags.Float64("default-probability", 0.5, "probability for attributes missing from an entity")
	configFlag(flags, "threshold", "threshold")
	configFlag(flags, "n", "n")
	configFlag(flags, "round-to", "round_to")
	configFlag(flags, "default-probability", "default_probability")
}

// addWorkersFlag registers --workers on cmd.
func addWorkersFlag(cmd *cobra.Command) {
	cmd.Flags().Int("workers", 0, "evaluate entities on this many goroutines (0 = sequential)")
	configFlag(cmd.Flags(), "workers", "workers")
}

// changedEvaluationFlags reports which evaluator settings were set on the
// command line.
func changedEvaluationFlags(cmd *cobra.Command) map[string]bool {
	changed := map[string]bool{}
	for _, name := range []string{"threshold", "n", "round-to", "default-probability"} {
		if cmd.Flags().Changed(name) {
			changed[name] = true
		}
	}
	return changed
}
