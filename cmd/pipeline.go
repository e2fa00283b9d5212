/*
Copyright © 2026 Michael Putera Wardana <michaelputeraw@gmail.com>
*/
package cmd

import (
	"github.com/krobus00/coin-tick-pipeline/internal/bootstrap"
	"github.com/spf13/cobra"
)

// pipelineCmd represents the pipeline command
var pipelineCmd = &cobra.Command{
	Use:   "pipeline",
	Short: "Run the collector and the ingestor in one process",
	Run:   bootstrap.StartPipeline,
}

func init() {
	rootCmd.AddCommand(pipelineCmd)
}
