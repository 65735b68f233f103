package main

import (
	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/cory-johannsen/dccqol/internal/config"
	"github.com/cory-johannsen/dccqol/internal/observability"
)

// app holds the state shared by every subcommand.
type app struct {
	configPath string
	seed       int64
	cfg        config.Config
	logger     *zap.Logger
}

func newRootCmd() *cobra.Command {
	a := &app{}
	root := &cobra.Command{
		Use:           "dccqol",
		Short:         "DCC combat resolution engine",
		Long:          `dccqol resolves Dungeon Crawl Classics attacks: range bands, action dice, luck, deeds and friendly fire.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			return a.init(cmd)
		},
		PersistentPostRun: func(*cobra.Command, []string) {
			if a.logger != nil {
				_ = a.logger.Sync()
			}
		},
	}
	root.PersistentFlags().StringVar(&a.configPath, "config", "", "path to configuration file; empty uses defaults and DCCQOL_* env")
	root.PersistentFlags().Int64Var(&a.seed, "seed", 0, "seed for reproducible rolls; overrides dice.seed")

	root.AddCommand(
		newResolveCmd(a),
		newShowCmd(a),
		newBumpCmd(a),
		newDistanceCmd(a),
		newRangeCmd(a),
	)
	return root
}

func (a *app) init(cmd *cobra.Command) error {
	cfg, err := config.Load(a.configPath)
	if err != nil {
		return err
	}
	if cmd.Flags().Changed("seed") {
		cfg.Dice.Seed = a.seed
	}
	logger, err := observability.NewLoggerTo(cfg.Logging, zapcore.AddSync(cmd.ErrOrStderr()))
	if err != nil {
		return err
	}
	a.cfg = cfg
	a.logger = logger
	return nil
}
