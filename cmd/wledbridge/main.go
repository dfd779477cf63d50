// Wledbridge is a control and bridging utility for WLED LED controllers.
//
// It provides device discovery, direct control commands (power, brightness,
// effects, presets, playlists), a live watch dashboard, and a bridge server
// that exposes a device to a home-automation host over HTTP and WebSocket.
//
// Usage:
//
//	wledbridge [command] [flags]
//
// See 'wledbridge --help' for available commands.
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/wled-tools/wledbridge/internal/logging"
	"github.com/wled-tools/wledbridge/internal/version"
)

func main() {
	if err := logging.InitializeFromEnv(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
	defer logging.Sync()

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

var rootCmd = &cobra.Command{
	Use:   "wledbridge",
	Short: "WLED device control and bridge utility",
	Long: `A standalone utility for controlling WLED LED controllers.

Provides device discovery, direct control commands, a live watch
dashboard, and a bridge server exposing a device to a home-automation
host over HTTP and WebSocket.`,
	Version:       version.Version,
	SilenceUsage:  true,
	SilenceErrors: true,
}

func init() {
	// Disable automatic completion command generation
	rootCmd.CompletionOptions.DisableDefaultCmd = true

	rootCmd.AddCommand(versionCmd)
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print version information",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Printf("wledbridge %s (commit: %s)\n", version.Version, version.Commit)
	},
}
