package repository

import (
	"context"
	"errors"

	"github.com/goccy/go-json"
	"github.com/krobus00/coin-tick-pipeline/internal/constant"
	"github.com/krobus00/coin-tick-pipeline/internal/entity"
	"github.com/redis/go-redis/v9"
)

const latestTickFieldPayload = "payload"

// saveIfNewerScript writes the tick only when it is newer than the stored
// one, so redelivered or out-of-order ticks never move the snapshot back.
var saveIfNewerScript = redis.NewScript(`
local current = redis.call("HGET", KEYS[1], "ts_ms")
if current and tonumber(current) >= tonumber(ARGV[1]) then
    return 0
end
redis.call("HSET", KEYS[1], "ts_ms", ARGV[1], "payload", ARGV[2])
return 1
`)

type LatestTickRepository struct {
	client *redis.Client
}

func NewLatestTickRepository(client *redis.Client) *LatestTickRepository {
	return &LatestTickRepository{client: client}
}

// Save stores tick as the latest snapshot of its coin. It reports whether
// the snapshot moved forward.
func (r *LatestTickRepository) Save(ctx context.Context, tick entity.PriceTick) (bool, error) {
	payload, err := json.Marshal(tick)
	if err != nil {
		return false, err
	}

	updated, err := saveIfNewerScript.Run(ctx, r.client,
		[]string{constant.GetTickLatestCacheKey(tick.CoinID())},
		tick.TimestampUTC().UnixMilli(), payload,
	).Int()
	if err != nil {
		return false, &entity.TransportError{Op: "save latest tick", Err: err}
	}

	return updated == 1, nil
}

func (r *LatestTickRepository) Get(ctx context.Context, coinID string) (entity.PriceTick, bool, error) {
	payload, err := r.client.HGet(ctx, constant.GetTickLatestCacheKey(coinID), latestTickFieldPayload).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return entity.PriceTick{}, false, nil
		}
		return entity.PriceTick{}, false, &entity.TransportError{Op: "get latest tick", Err: err}
	}

	tick, err := entity.DecodePriceTick(payload)
	if err != nil {
		return entity.PriceTick{}, false, err
	}

	return tick, true, nil
}

func (r *LatestTickRepository) Close() error {
	return r.client.Close()
}
