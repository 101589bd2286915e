// Selectmini uploads G-code to an MP Select Mini 3D printer over WiFi.
//
// It sends the file through the printer's web interface, optionally starts
// the print, and can scan the network for printers or follow a printer's
// status feed.
//
// Usage:
//
//	selectmini [command] [flags]
//
// See 'selectmini --help' for available commands.
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/muurk/selectmini/internal/logging"
	"github.com/muurk/selectmini/internal/version"
)

var logLevel string

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

var rootCmd = &cobra.Command{
	Use:   "selectmini",
	Short: "MP Select Mini upload utility",
	Long: `A command line utility for sending G-code to an MP Select Mini printer.

The printer address and the start-after-upload choice are read from the
configuration file (see 'selectmini config path') and can be overridden
per command with flags.`,
	Version:       version.Version,
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		if logLevel != "" {
			return logging.Initialize(logLevel)
		}
		return logging.InitializeFromEnv()
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		logging.Sync()
	},
}

func init() {
	// Disable automatic completion command generation
	rootCmd.CompletionOptions.DisableDefaultCmd = true

	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "", "Log level (debug, info, warn, error); default from "+logging.LogLevelEnvVar)

	rootCmd.AddCommand(versionCmd)
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print version information",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Printf("selectmini %s\n", version.Full())
	},
}
