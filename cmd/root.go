/*
Copyright © 2025 Joseph Goksu josephgoksu@gmail.com
*/
package cmd

import (
	"os"

	"github.com/spf13/cobra"

	"github.com/josephgoksu/wbsplan/internal/logger"
)

var (
	// cfgFile is the path to the configuration file.
	cfgFile string
	// verbose enables verbose output.
	verbose bool
	// version is the application version.
	version = "0.1.0"
)

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:   "wbsplan",
	Short: "wbsplan - Work Breakdown Structure planning and execution",
	Long: `wbsplan builds hierarchical work breakdown structures step by step, writes
them as Markdown plan documents, and walks them task by task in dependency order.

Run 'wbsplan mcp' to expose the planning and execution tools to an AI assistant
over the Model Context Protocol, or use the offline commands to render, check and
update plan documents directly.`,
	Version:       version,
	SilenceUsage:  true,
	SilenceErrors: true,
}

// Execute adds all child commands to the root command and sets flags appropriately.
// This is called by main.main(). It only needs to happen once to the rootCmd.
func Execute() {
	logger.SetVersion(version)
	if err := rootCmd.Execute(); err != nil {
		PrintError(rootCmd.ErrOrStderr(), err)
		_ = closeConfig()
		os.Exit(1)
	}
}

// GetVersion returns the application version.
func GetVersion() string {
	return version
}

func init() {
	// Hooks are assigned here because initConfig reads rootCmd's flags.
	rootCmd.PersistentPreRunE = func(cmd *cobra.Command, args []string) error {
		logger.SetCommand(cmd.CommandPath())
		return initConfig()
	}
	rootCmd.PersistentPostRunE = func(cmd *cobra.Command, args []string) error {
		return closeConfig()
	}

	rootCmd.PersistentFlags().StringVarP(&cfgFile, "config", "c", "", "config file (default is ./.wbsplan.yaml or $HOME/.wbsplan.yaml)")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "enable verbose output")
}
