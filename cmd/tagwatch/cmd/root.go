// Package cmd contains the CLI commands for tagwatch.
package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var (
	// Used for flags
	serverURL string
	apiKey    string
	verbose   bool
	output    string
)

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:   "tagwatch",
	Short: "TagWatch - Sensor alarm management",
	Long: `TagWatch manages environmental sensor alarms on a running
tagwatch-server instance.

Examples:
  # List registered sensors
  tagwatch sensors list

  # Show the alarm status of a sensor
  tagwatch sensors status AA:BB:CC:DD:EE:01

  # List alarm rules for a sensor
  tagwatch rules list AA:BB:CC:DD:EE:01

  # Silence a rule for two hours
  tagwatch rules mute 42 --for 2h`,
	// Run when no subcommand is specified
	Run: func(cmd *cobra.Command, args []string) {
		// Show help by default
		cmd.Help()
	},
}

// Execute adds all child commands to the root command and sets flags appropriately.
// This is called by main.main(). It only needs to happen once to the rootCmd.
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	// Global flags
	rootCmd.PersistentFlags().StringVarP(&serverURL, "server", "s", "http://localhost:8080", "tagwatch-server base URL")
	rootCmd.PersistentFlags().StringVarP(&apiKey, "api-key", "k", "", "API key (default: TAGWATCH_API_KEY env)")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "verbose output")
	rootCmd.PersistentFlags().StringVarP(&output, "output", "o", "table", "output format (table, json)")
}

// GetOutput returns the output format.
func GetOutput() string {
	return output
}

// PrintError prints an error message and exits if fatal is true.
func PrintError(msg string, fatal bool) {
	fmt.Fprintln(os.Stderr, "Error:", msg)
	if fatal {
		os.Exit(1)
	}
}
