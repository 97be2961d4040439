package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"

	"github.com/danielpatrickdp/atleastn/internal/config"
	"github.com/danielpatrickdp/atleastn/internal/dataset"
	"github.com/danielpatrickdp/atleastn/internal/logging"
)

// #region main
func main() {
	if err := newRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}

// #endregion main

// #region app
// app carries the state shared by every subcommand once flags are parsed.
type app struct {
	v          *viper.Viper
	configFile string
	settings   config.Settings
	log        *zap.Logger
}

func (a *app) openStore() (*dataset.Store, error) {
	store, err := dataset.NewStore(a.settings.DB)
	if err != nil {
		return nil, fmt.Errorf("open store %s: %w", a.settings.DB, err)
	}
	return store, nil
}

// #endregion app

// #region root
func newRootCmd() *cobra.Command {
	a := &app{v: config.New()}

	root := &cobra.Command{
		Use:          "atleastn",
		Short:        "rank entities by the probability that at least n attributes are present",
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if err := bindConfigFlags(a.v, cmd); err != nil {
				return err
			}
			settings, err := config.Load(a.v, a.configFile)
			if err != nil {
				return err
			}
			a.settings = settings
			a.log, err = logging.NewLogger(settings.LogLevel, settings.LogJSON)
			return err
		},
		PersistentPostRun: func(cmd *cobra.Command, args []string) {
			if a.log != nil {
				a.log.Sync()
			}
		},
	}

	flags := root.PersistentFlags()
	flags.StringVar(&a.configFile, "config", "", "path to a YAML config file")
	flags.String("db", "atleastn.db", "path to the SQLite store")
	flags.String("log-level", "info", "log level (debug, info, warn, error)")
	flags.Bool("log-json", false, "log as JSON")
	configFlag(flags, "db", "db")
	configFlag(flags, "log-level", "log_level")
	configFlag(flags, "log-json", "log_json")

	root.AddCommand(
		computeCmd(a),
		rankCmd(a),
		importCmd(a),
		datasetsCmd(a),
		historyCmd(a),
		showCmd(a),
		serveCmd(a),
	)
	return root
}

// #endregion root
