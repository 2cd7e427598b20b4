package commands

import (
	"github.com/spf13/cobra"
)

var (
	// Global flags
	configFile string
	verbose    bool
)

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:   "tickscan",
	Short: "Intraday tick-flow stock ranker",
	Long: `tickscan ranks mainboard A-share stocks by intraday tick-level
order flow, microstructure and momentum features.

Usage:
  go run ./cmd/tickscan [command]

Examples:
  go run ./cmd/tickscan scan
  go run ./cmd/tickscan serve
  go run ./cmd/tickscan schedule start
  go run ./cmd/tickscan presets`,
}

// Execute adds all child commands to the root command and sets flags appropriately.
// This is called by main.main(). It only needs to happen once to the rootCmd.
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	// Global flags
	rootCmd.PersistentFlags().StringVar(&configFile, "config", "", "config file (default is .env)")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "verbose output")
}
