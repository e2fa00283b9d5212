package bootstrap

import (
	"context"
	"database/sql"
	"errors"

	"github.com/guregu/null/v5"
	"github.com/krobus00/coin-tick-pipeline/internal/config"
	"github.com/krobus00/coin-tick-pipeline/internal/migration"
	"github.com/krobus00/coin-tick-pipeline/internal/util"
	"github.com/pressly/goose/v3"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
)

func StartMigrate(cmd *cobra.Command, args []string) {
	databaseName, _ := cmd.Flags().GetString("databaseName")
	actionType, _ := cmd.Flags().GetString("action")
	version, _ := cmd.Flags().GetInt64("version")

	ctx := context.Background()

	db, err := sql.Open("postgres", config.Env.Database[databaseName].DSN)
	util.ContinueOrFatal(err)
	defer db.Close()

	provider, err := migration.NewWarehouseProvider(db, config.Env.Warehouse.Dataset, config.Env.Warehouse.Table)
	util.ContinueOrFatal(err)

	var results []*goose.MigrationResult

	switch actionType {
	case "up":
		results, err = provider.Up(ctx)
	case "up-by-one":
		var result *goose.MigrationResult
		result, err = provider.UpByOne(ctx)
		results = appendResult(results, result)
	case "up-to":
		results, err = provider.UpTo(ctx, null.IntFrom(version).Int64)
	case "down":
		var result *goose.MigrationResult
		result, err = provider.Down(ctx)
		results = appendResult(results, result)
	case "down-to":
		results, err = provider.DownTo(ctx, null.IntFrom(version).Int64)
	case "status":
		err = logMigrationStatus(ctx, provider)
	case "reset":
		results, err = provider.DownTo(ctx, 0)
		if err != nil {
			break
		}
		results, err = provider.Up(ctx)
	default:
		err = errors.New("invalid command")
	}

	for _, result := range results {
		logrus.Info(result.String())
	}

	util.ContinueOrFatal(err)
}

func appendResult(results []*goose.MigrationResult, result *goose.MigrationResult) []*goose.MigrationResult {
	if result == nil {
		return results
	}
	return append(results, result)
}

func logMigrationStatus(ctx context.Context, provider *goose.Provider) error {
	statuses, err := provider.Status(ctx)
	if err != nil {
		return err
	}

	for _, status := range statuses {
		logrus.WithFields(logrus.Fields{
			"version":    status.Source.Version,
			"state":      status.State,
			"applied_at": status.AppliedAt,
		}).Info("migration status")
	}

	return nil
}
