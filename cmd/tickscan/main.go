package main

import (
	"os"

	"github.com/qlab/tickscan/cmd/tickscan/commands"
)

// main is the entry point for the tickscan CLI
func main() {
	if err := commands.Execute(); err != nil {
		os.Exit(1)
	}
}
