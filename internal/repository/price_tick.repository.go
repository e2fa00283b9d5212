package repository

import (
	"context"

	sq "github.com/Masterminds/squirrel"
	"github.com/jmoiron/sqlx"
	"github.com/krobus00/coin-tick-pipeline/internal/entity"
	"github.com/lib/pq"
	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"
)

var priceTickColumns = []string{
	"coin_id",
	"timestamp_utc",
	"price_usd",
	"volume_24h",
	"source",
}

// PriceTickRepository appends ticks to the analytical table. Rows have no
// generated id and are never updated, duplicates from redelivery are kept.
type PriceTickRepository struct {
	db    *sqlx.DB
	table string
}

func NewPriceTickRepository(db *sqlx.DB, dataset, table string) *PriceTickRepository {
	return &PriceTickRepository{
		db:    db,
		table: QualifiedTableName(dataset, table),
	}
}

// QualifiedTableName quotes dataset and table as a schema-qualified identifier.
func QualifiedTableName(dataset, table string) string {
	return pq.QuoteIdentifier(dataset) + "." + pq.QuoteIdentifier(table)
}

// Insert appends tick as a single row. A nil or empty result means the row
// was stored; otherwise it holds one error per rejected row.
func (r *PriceTickRepository) Insert(ctx context.Context, tick entity.PriceTick) []error {
	return r.InsertRows(ctx, []entity.PriceTick{tick})
}

func (r *PriceTickRepository) InsertRows(ctx context.Context, ticks []entity.PriceTick) []error {
	var rowErrs []error
	for idx, tick := range ticks {
		if err := r.insertRow(ctx, tick); err != nil {
			logrus.WithFields(logrus.Fields{
				"table": r.table,
				"row":   idx,
				"tick":  tick.String(),
			}).WithError(err).Error("failed to insert price tick row")
			rowErrs = append(rowErrs, &entity.RowError{Index: idx, Err: err})
		}
	}

	return rowErrs
}

func (r *PriceTickRepository) insertRow(ctx context.Context, tick entity.PriceTick) error {
	query, args, err := sq.StatementBuilder.
		PlaceholderFormat(sq.Dollar).
		Insert(r.table).
		Columns(priceTickColumns...).
		Values(
			tick.CoinID(),
			tick.TimestampISO(),
			decimal.NewFromFloat(tick.PriceUSD()),
			decimal.NewFromFloat(tick.Volume24h()),
			tick.Source(),
		).
		ToSql()
	if err != nil {
		return err
	}

	_, err = r.db.ExecContext(ctx, query, args...)
	if err != nil {
		return &entity.TransportError{Op: "insert price tick", Err: err}
	}

	return nil
}
