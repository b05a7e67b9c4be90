package main

import (
	"github.com/Gobusters/ectologger"
	"github.com/spf13/cobra"

	"github.com/Ramsey-B/thistle/config"
	"github.com/Ramsey-B/thistle/pkg/logging"
)

// app carries what every command needs once the root has run
type app struct {
	configPath string
	envFiles   []string
	logLevel   string

	cfg   *config.Config
	log   ectologger.Logger
	flush func()
}

func newRootCmd() *cobra.Command {
	a := &app{}

	root := &cobra.Command{
		Use:           "thistle",
		Short:         "Screen customers against negative and positive watchlists",
		Version:       version,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			return a.init(cmd)
		},
		PersistentPostRun: func(*cobra.Command, []string) {
			if a.flush != nil {
				a.flush()
			}
		},
	}

	flags := root.PersistentFlags()
	flags.StringVar(&a.configPath, "config", "", "YAML config file")
	flags.StringSliceVar(&a.envFiles, "env-file", []string{".env"}, "env files to load, missing files are skipped")
	flags.StringVar(&a.logLevel, "log-level", "", "override LOG_LEVEL")

	root.AddCommand(
		newScreenCmd(a),
		newNormalizeCmd(a),
		newRulesCmd(a),
		newServeCmd(a),
	)
	return root
}

func (a *app) init(cmd *cobra.Command) error {
	cfg, err := config.Load(a.configPath, a.envFiles...)
	if err != nil {
		return err
	}
	if cmd.Flags().Changed("log-level") {
		cfg.LogLevel = a.logLevel
	}

	log, flush, err := logging.New(cfg.AppName, cfg.LogLevel, cfg.PrettyLogs)
	if err != nil {
		return err
	}

	a.cfg = cfg
	a.log = log
	a.flush = flush
	return nil
}
