package entity

import (
	"time"

	"github.com/guregu/null/v5"
)

// CoinMarketEntry is one element of the /coins/markets response.
type CoinMarketEntry struct {
	ID           null.String `json:"id"`
	CurrentPrice null.Float  `json:"current_price"`
	TotalVolume  null.Float  `json:"total_volume"`
}

// ToPriceTick maps the entry to a validated tick stamped with fetchedAt.
// A missing total_volume is treated as 0.
func (e CoinMarketEntry) ToPriceTick(fetchedAt time.Time, source string) (PriceTick, error) {
	if !e.ID.Valid {
		return PriceTick{}, &ValidationError{Field: "id", Reason: "is required"}
	}
	if !e.CurrentPrice.Valid {
		return PriceTick{}, &ValidationError{Field: "current_price", Reason: "is required"}
	}

	return NewPriceTick(e.ID.String, fetchedAt, e.CurrentPrice.Float64, e.TotalVolume.ValueOrZero(), source)
}
