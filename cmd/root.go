/*
Copyright © 2026 Michael Putera Wardana <michaelputeraw@gmail.com>
*/
package cmd

import (
	"os"

	"github.com/krobus00/coin-tick-pipeline/internal/config"
	"github.com/krobus00/coin-tick-pipeline/internal/constant"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
)

var configPath string

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:   "coin-tick-pipeline",
	Short: "Poll CoinGecko prices into a queue and store them as ticks",
	Long: `coin-tick-pipeline polls the CoinGecko markets API on a fixed interval,
publishes one tick per coin to NATS JetStream and ingests the ticks into
an append-only Postgres table.

Run the collector and ingestor as separate processes, or both at once
with the pipeline command.`,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		err := config.LoadConfig(configPath)
		if err != nil {
			return err
		}

		logrus.SetReportCaller(config.Env.Log.ShowCaller)

		if config.Env.Env == constant.ProductionEnvironment {
			logrus.SetFormatter(&logrus.JSONFormatter{})
		}

		logLevel, err := logrus.ParseLevel(config.Env.Log.LogLevel)
		if err != nil {
			return err
		}
		logrus.SetLevel(logLevel)

		return nil
	},
}

// Execute adds all child commands to the root command and sets flags appropriately.
// This is called by main.main(). It only needs to happen once to the rootCmd.
func Execute() {
	err := rootCmd.Execute()
	if err != nil {
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "", "config file path (default: ./config.yml)")
}
