package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/aretw0/helix"
	"github.com/aretw0/helix/internal/cli"
	"github.com/aretw0/helix/internal/config"
	"github.com/aretw0/helix/internal/logging"
)

var rootCmd = &cobra.Command{
	Use:   "helix",
	Short: "HELIX is a realtime voice orchestrator for your tensions, baseline fields and calendar",
	Long: `HELIX opens realtime voice sessions against an external speech runtime and lets the
assistant act on the core backend through a catalogue of validated tools.

Settings come from helix.yaml (working directory or ~/.helix), HELIX_* environment
variables and the flags below, in increasing priority.`,
	SilenceUsage: true,
}

// Execute adds all child commands to the root command and sets flags appropriately.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().String("config", "", "Path to a config file")
	rootCmd.PersistentFlags().String("log-level", "", "Log level: debug, info, warn or error")
	rootCmd.PersistentFlags().String("core-url", "", "Base URL of the core backend")
	rootCmd.PersistentFlags().String("cache", "", "Cache backend: memory, file or redis")
	rootCmd.PersistentFlags().Bool("debug", false, "Log lifecycle events")
}

// env is what every command needs after flags are parsed.
type env struct {
	cfg    config.Config
	logger *slog.Logger
	debug  bool
}

func loadEnv(cmd *cobra.Command) (env, error) {
	v := viper.New()
	config.SetDefaults(v)
	flags := cmd.Flags()
	for key, flag := range map[string]string{
		"log_level":     "log-level",
		"core_url":      "core-url",
		"cache.backend": "cache",
	} {
		if f := flags.Lookup(flag); f != nil && f.Changed {
			if err := v.BindPFlag(key, f); err != nil {
				return env{}, err
			}
		}
	}

	file, _ := flags.GetString("config")
	cfg, err := config.Load(v, file)
	if err != nil {
		return env{}, err
	}

	debug, _ := flags.GetBool("debug")
	if debug {
		cfg.LogLevel = "debug"
	}
	level, err := logging.ParseLevel(cfg.LogLevel)
	if err != nil {
		return env{}, err
	}
	return env{cfg: cfg, logger: logging.New(level), debug: debug}, nil
}

func (e env) orchestrator(ctx context.Context, extra ...helix.Option) (*helix.Helix, error) {
	return cli.NewOrchestrator(ctx, e.cfg, e.logger, e.debug, extra...)
}
