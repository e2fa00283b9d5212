package entity

import (
	"fmt"
	"math"
	"strings"
	"time"

	"github.com/goccy/go-json"
)

const DefaultTickSource = "coingecko"

// PriceTick is one validated price observation for a coin. Fields are only
// reachable through accessors so a constructed tick cannot be mutated.
type PriceTick struct {
	coinID       string
	timestampUTC time.Time
	priceUSD     float64
	volume24h    float64
	source       string
}

// priceTickPayload is the wire shape shared by the queue message and the cache.
type priceTickPayload struct {
	CoinID       *string  `json:"coin_id"`
	TimestampUTC *string  `json:"timestamp_utc"`
	PriceUSD     *float64 `json:"price_usd"`
	Volume24h    *float64 `json:"volume_24h"`
	Source       *string  `json:"source,omitempty"`
}

func NewPriceTick(coinID string, timestampUTC time.Time, priceUSD, volume24h float64, source string) (PriceTick, error) {
	coinID = strings.TrimSpace(coinID)
	if coinID == "" {
		return PriceTick{}, &ValidationError{Field: "coin_id", Reason: "must not be empty"}
	}

	if timestampUTC.IsZero() {
		return PriceTick{}, &ValidationError{Field: "timestamp_utc", Reason: "must be set"}
	}

	if math.IsNaN(priceUSD) || math.IsInf(priceUSD, 0) {
		return PriceTick{}, &ValidationError{Field: "price_usd", Reason: "must be a finite number"}
	}
	if priceUSD <= 0 {
		return PriceTick{}, &ValidationError{Field: "price_usd", Reason: fmt.Sprintf("must be greater than 0, got %v", priceUSD)}
	}

	if math.IsNaN(volume24h) || math.IsInf(volume24h, 0) {
		return PriceTick{}, &ValidationError{Field: "volume_24h", Reason: "must be a finite number"}
	}
	if volume24h < 0 {
		return PriceTick{}, &ValidationError{Field: "volume_24h", Reason: fmt.Sprintf("must not be negative, got %v", volume24h)}
	}

	source = strings.TrimSpace(source)
	if source == "" {
		source = DefaultTickSource
	}

	return PriceTick{
		coinID:       coinID,
		timestampUTC: timestampUTC.UTC().Round(0),
		priceUSD:     priceUSD,
		volume24h:    volume24h,
		source:       source,
	}, nil
}

func (t PriceTick) CoinID() string          { return t.coinID }
func (t PriceTick) TimestampUTC() time.Time { return t.timestampUTC }
func (t PriceTick) PriceUSD() float64       { return t.priceUSD }
func (t PriceTick) Volume24h() float64      { return t.volume24h }
func (t PriceTick) Source() string          { return t.source }

// TimestampISO returns the ISO-8601 UTC form used on the wire and in the table store.
func (t PriceTick) TimestampISO() string {
	return t.timestampUTC.Format(time.RFC3339Nano)
}

func (t PriceTick) Equal(other PriceTick) bool {
	return t.coinID == other.coinID &&
		t.timestampUTC.Equal(other.timestampUTC) &&
		t.priceUSD == other.priceUSD &&
		t.volume24h == other.volume24h &&
		t.source == other.source
}

func (t PriceTick) String() string {
	return fmt.Sprintf("PriceTick{coin_id=%s timestamp_utc=%s price_usd=%v volume_24h=%v source=%s}",
		t.coinID, t.TimestampISO(), t.priceUSD, t.volume24h, t.source)
}

func (t PriceTick) MarshalJSON() ([]byte, error) {
	ts := t.TimestampISO()
	return json.Marshal(priceTickPayload{
		CoinID:       &t.coinID,
		TimestampUTC: &ts,
		PriceUSD:     &t.priceUSD,
		Volume24h:    &t.volume24h,
		Source:       &t.source,
	})
}

// DecodePriceTick parses a serialized tick and validates it again. The
// producer's validation is never trusted.
func DecodePriceTick(data []byte) (PriceTick, error) {
	var payload priceTickPayload
	if err := json.Unmarshal(data, &payload); err != nil {
		return PriceTick{}, fmt.Errorf("decode price tick: %w", err)
	}

	if payload.CoinID == nil {
		return PriceTick{}, &ValidationError{Field: "coin_id", Reason: "is required"}
	}
	if payload.TimestampUTC == nil {
		return PriceTick{}, &ValidationError{Field: "timestamp_utc", Reason: "is required"}
	}
	if payload.PriceUSD == nil {
		return PriceTick{}, &ValidationError{Field: "price_usd", Reason: "is required"}
	}
	if payload.Volume24h == nil {
		return PriceTick{}, &ValidationError{Field: "volume_24h", Reason: "is required"}
	}

	ts, err := time.Parse(time.RFC3339Nano, *payload.TimestampUTC)
	if err != nil {
		return PriceTick{}, &ValidationError{Field: "timestamp_utc", Reason: fmt.Sprintf("not ISO-8601: %q", *payload.TimestampUTC)}
	}

	source := ""
	if payload.Source != nil {
		source = *payload.Source
	}

	return NewPriceTick(*payload.CoinID, ts, *payload.PriceUSD, *payload.Volume24h, source)
}
