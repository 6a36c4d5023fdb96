// Airscan discovers network scanners and scans documents over eSCL.
//
// Scanners are found through DNS-SD announcements on the local network and
// remembered between runs. A scan submits a job to the scanner, waits for
// the page and saves the image to disk.
//
// Usage:
//
//	airscan [command] [flags]
//
// Running without arguments launches the interactive interface.
// See 'airscan --help' for available commands.
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/muurk/airscan/internal/logging"
	"github.com/muurk/airscan/internal/version"
)

func main() {
	err := rootCmd.Execute()
	logging.Sync()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

var logLevel string

var rootCmd = &cobra.Command{
	Use:   "airscan",
	Short: "Network scanner discovery and eSCL scanning",
	Long: `Discover AirScan (eSCL) scanners on the local network and scan documents.

Devices are found through multicast DNS and stored in devices.yaml in the
configuration directory. Preferences are read from config.yaml next to it.

If no command is specified, the interactive interface launches automatically.`,
	Version:       version.Version,
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		return logging.Initialize(logLevel)
	},
	RunE: runInteractive,
}

func init() {
	// Disable automatic completion command generation
	rootCmd.CompletionOptions.DisableDefaultCmd = true

	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "", "Log level (debug, info, warn, error); defaults to AIRSCAN_LOG_LEVEL")

	rootCmd.AddCommand(versionCmd)
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print version information",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Printf("airscan %s (commit: %s)\n", version.Version, version.Commit)
	},
}
