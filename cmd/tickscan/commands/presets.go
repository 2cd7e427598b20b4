package commands

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/qlab/tickscan/internal/scoring"
)

// presetsCmd represents the presets command
var presetsCmd = &cobra.Command{
	Use:   "presets",
	Short: "List available scoring presets",
	RunE:  listPresets,
}

func init() {
	rootCmd.AddCommand(presetsCmd)
}

func listPresets(cmd *cobra.Command, args []string) error {
	fmt.Println("Scoring presets:")
	for _, version := range scoring.Versions() {
		marker := " "
		if version == scoring.DefaultVersion {
			marker = "*"
		}
		fmt.Printf("  %s %s\n", marker, version)
	}
	fmt.Println("\n* default (override with MODEL_VERSION or --model)")
	return nil
}
