/*
Copyright © 2025 Joseph Goksu josephgoksu@gmail.com
*/
package cmd

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"

	"github.com/josephgoksu/wbsplan/internal/app"
	"github.com/josephgoksu/wbsplan/internal/config"
	"github.com/josephgoksu/wbsplan/internal/logger"
	"github.com/josephgoksu/wbsplan/types"
)

var (
	// appConfig is the configuration resolved for the running command.
	appConfig *types.AppConfig
	// appLogger is the process logger; it never writes to stdout.
	appLogger *slog.Logger
	// settings keeps the viper instance appConfig was read from.
	settings *viper.Viper
	closeLog func() error
)

// initConfig reads the config file, .env and environment, then builds the
// logger. It runs before every command.
func initConfig() error {
	v := viper.New()
	if err := v.BindPFlag("verbose", rootCmd.PersistentFlags().Lookup("verbose")); err != nil {
		return fmt.Errorf("bind verbose flag: %w", err)
	}
	cfg, err := config.Load(v, cfgFile)
	if err != nil {
		return err
	}

	level := cfg.Log.Level
	if cfg.Verbose {
		level = "debug"
	}
	log, closeFn, err := logger.New(logger.Options{Level: level, Format: cfg.Log.Format, File: cfg.Log.File})
	if err != nil {
		return fmt.Errorf("init logger: %w", err)
	}
	if cfg.Verbose && v.ConfigFileUsed() != "" {
		fmt.Fprintln(os.Stderr, "Using config file:", v.ConfigFileUsed())
	}

	logger.SetBasePath(cfg.Planning.OutputDir)
	slog.SetDefault(log)
	appConfig, appLogger, settings, closeLog = cfg, log, v, closeFn
	return nil
}

func closeConfig() error {
	if closeLog == nil {
		return nil
	}
	err := closeLog()
	closeLog = nil
	return err
}

// newAppContext builds the engine for a one-shot CLI command. Document
// watching only makes sense for the long-running server. Read-only commands
// pass withJournal=false so they leave no audit records.
func newAppContext(withJournal bool) (*app.Context, error) {
	if appConfig == nil {
		return nil, fmt.Errorf("configuration not loaded")
	}
	return app.NewContext(appConfig, app.Options{Logger: appLogger, SkipWatcher: true, SkipJournal: !withJournal})
}

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Show the effective configuration",
	Long: `Print the configuration after merging defaults, the config file,
.env and environment variables (WBSPLAN_* and the legacy MCP_*/ENABLE_* names).`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		out, err := yaml.Marshal(settings.AllSettings())
		if err != nil {
			return fmt.Errorf("encode config: %w", err)
		}
		if used := settings.ConfigFileUsed(); used != "" {
			fmt.Fprintf(cmd.OutOrStdout(), "# %s\n", used)
		}
		_, err = cmd.OutOrStdout().Write(out)
		return err
	},
}

func init() {
	rootCmd.AddCommand(configCmd)
}
