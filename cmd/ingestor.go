/*
Copyright © 2026 Michael Putera Wardana <michaelputeraw@gmail.com>
*/
package cmd

import (
	"github.com/krobus00/coin-tick-pipeline/internal/bootstrap"
	"github.com/spf13/cobra"
)

// ingestorCmd represents the ingestor command
var ingestorCmd = &cobra.Command{
	Use:   "ingestor",
	Short: "Consume price ticks into the warehouse table",
	Long: `Subscribes to the durable tick consumer, validates every message and
appends it to the warehouse table. Messages are acknowledged only after
the row is stored.`,
	Run: bootstrap.StartIngestor,
}

func init() {
	rootCmd.AddCommand(ingestorCmd)
}
