package migration

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/krobus00/coin-tick-pipeline/internal/repository"
	"github.com/lib/pq"
	"github.com/pressly/goose/v3"
)

type step struct {
	up   []string
	down []string
}

func warehouseSteps(dataset, table string) []step {
	qualified := repository.QualifiedTableName(dataset, table)
	indexName := pq.QuoteIdentifier(fmt.Sprintf("%s_coin_id_timestamp_utc_idx", table))

	return []step{
		{
			up: []string{
				fmt.Sprintf(`CREATE SCHEMA IF NOT EXISTS %s`, pq.QuoteIdentifier(dataset)),
				fmt.Sprintf(`CREATE TABLE IF NOT EXISTS %s (
	coin_id TEXT NOT NULL,
	timestamp_utc TEXT NOT NULL,
	price_usd NUMERIC NOT NULL,
	volume_24h NUMERIC NOT NULL,
	source TEXT NOT NULL
)`, qualified),
			},
			down: []string{
				fmt.Sprintf(`DROP TABLE IF EXISTS %s`, qualified),
			},
		},
		{
			up: []string{
				fmt.Sprintf(`CREATE INDEX IF NOT EXISTS %s ON %s (coin_id, timestamp_utc)`, indexName, qualified),
			},
			down: []string{
				fmt.Sprintf(`DROP INDEX IF EXISTS %s.%s`, pq.QuoteIdentifier(dataset), indexName),
			},
		},
	}
}

// WarehouseMigrations returns the schema steps of the tick table. Dataset and
// table come from configuration, so the steps are Go migrations rather than
// static SQL files.
func WarehouseMigrations(dataset, table string) []*goose.Migration {
	steps := warehouseSteps(dataset, table)

	migrations := make([]*goose.Migration, 0, len(steps))
	for idx, s := range steps {
		migrations = append(migrations, goose.NewGoMigration(int64(idx+1),
			&goose.GoFunc{RunTx: execAll(s.up...)},
			&goose.GoFunc{RunTx: execAll(s.down...)},
		))
	}

	return migrations
}

// NewWarehouseProvider builds a goose provider that only knows the tick
// table migrations.
func NewWarehouseProvider(db *sql.DB, dataset, table string) (*goose.Provider, error) {
	return goose.NewProvider(goose.DialectPostgres, db, nil,
		goose.WithGoMigrations(WarehouseMigrations(dataset, table)...),
		goose.WithDisableGlobalRegistry(true),
	)
}

func execAll(statements ...string) func(ctx context.Context, tx *sql.Tx) error {
	return func(ctx context.Context, tx *sql.Tx) error {
		for _, stmt := range statements {
			if _, err := tx.ExecContext(ctx, stmt); err != nil {
				return fmt.Errorf("exec %q: %w", stmt, err)
			}
		}
		return nil
	}
}
