package migration

import (
	"context"

	"errors"
	"regexp"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWarehouseMigrationsVersions(t *testing.T) {
	migrations := WarehouseMigrations("market", "coin_ticks")

	require.Len(t, migrations, 2)
	assert.Equal(t, int64(1), migrations[0].Version)
	assert.Equal(t, int64(2), migrations[1].Version)
}

func TestWarehouseStepsUseConfiguredTable(t *testing.T) {
	steps := warehouseSteps("market", "coin_ticks")

	assert.Equal(t, `CREATE SCHEMA IF NOT EXISTS "market"`, steps[0].up[0])
	assert.Contains(t, steps[0].up[1], `CREATE TABLE IF NOT EXISTS "market"."coin_ticks"`)
	for _, column := range []string{"coin_id TEXT", "timestamp_utc TEXT", "price_usd NUMERIC", "volume_24h NUMERIC", "source TEXT"} {
		assert.Contains(t, steps[0].up[1], column)
	}
	assert.Equal(t, `DROP TABLE IF EXISTS "market"."coin_ticks"`, steps[0].down[0])
	assert.Equal(t, `CREATE INDEX IF NOT EXISTS "coin_ticks_coin_id_timestamp_utc_idx" ON "market"."coin_ticks" (coin_id, timestamp_utc)`, steps[1].up[0])
}

func TestExecAllStopsOnFirstError(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	mock.ExpectBegin()
	mock.ExpectExec(regexp.QuoteMeta(`CREATE SCHEMA IF NOT EXISTS "market"`)).WillReturnError(errors.New("permission denied"))
	mock.ExpectRollback()

	tx, err := db.BeginTx(context.Background(), nil)
	require.NoError(t, err)

	err = execAll(warehouseSteps("market", "coin_ticks")[0].up...)(context.Background(), tx)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "permission denied")

	require.NoError(t, tx.Rollback())
	require.NoError(t, mock.ExpectationsWereMet())
}
