/*
Copyright © 2026 Michael Putera Wardana <michaelputeraw@gmail.com>
*/
package cmd

import (
	"github.com/krobus00/coin-tick-pipeline/internal/bootstrap"
	"github.com/spf13/cobra"
)

// collectorCmd represents the collector command
var collectorCmd = &cobra.Command{
	Use:   "collector",
	Short: "Poll CoinGecko and publish price ticks",
	Long: `Fetches the configured coins from the CoinGecko markets API on a fixed
interval and publishes one tick message per coin to NATS JetStream.`,
	Run: bootstrap.StartCollector,
}

func init() {
	rootCmd.AddCommand(collectorCmd)
}
