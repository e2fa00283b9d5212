/*
Copyright © 2024 Michael Putera Wardana <michaelputeraw@gmail.com>
*/
package cmd

import (
	"github.com/krobus00/coin-tick-pipeline/internal/bootstrap"
	"github.com/spf13/cobra"
)

// migrateCmd represents the migrate command
var migrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "provision the tick table",
	Long: `provision the warehouse schema and tick table.
Every action is idempotent, running up twice leaves the table untouched.`,
	Run: bootstrap.StartMigrate,
}

func init() {
	rootCmd.AddCommand(migrateCmd)
	migrateCmd.PersistentFlags().String("action", "up", "action up|up-by-one|up-to|down|down-to|reset|status")
	migrateCmd.PersistentFlags().Int64("version", 1, "version")
	migrateCmd.PersistentFlags().String("databaseName", "warehouse", "database name")
}
