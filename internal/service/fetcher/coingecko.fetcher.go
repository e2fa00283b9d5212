package fetcher

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"slices"
	"strings"
	"time"

	"github.com/goccy/go-json"
	"github.com/krobus00/coin-tick-pipeline/internal/entity"
	"github.com/sirupsen/logrus"
)

const (
	defaultCoinGeckoBaseURL = "https://api.coingecko.com/api/v3"
	defaultRequestTimeout   = 15 * time.Second
	maxErrorBodyBytes       = 512
)

type CoinGeckoFetcherConfig struct {
	BaseURL        string
	RequestTimeout time.Duration
	Source         string
}

// CoinGeckoFetcher polls the /coins/markets endpoint and maps each market
// entry to a validated tick.
type CoinGeckoFetcher struct {
	baseURL    string
	source     string
	httpClient *http.Client
	now        func() time.Time
}

func NewCoinGeckoFetcher(cfg CoinGeckoFetcherConfig) *CoinGeckoFetcher {
	baseURL := strings.TrimSpace(cfg.BaseURL)
	if baseURL == "" {
		baseURL = defaultCoinGeckoBaseURL
	}

	timeout := cfg.RequestTimeout
	if timeout <= 0 {
		timeout = defaultRequestTimeout
	}

	return &CoinGeckoFetcher{
		baseURL:    strings.TrimRight(baseURL, "/"),
		source:     cfg.Source,
		httpClient: &http.Client{Timeout: timeout},
		now:        time.Now,
	}
}

// Fetch requests all coins in one call. Every returned tick carries the same
// fetch timestamp. Entries that fail to map are logged and skipped; only a
// failure of the request itself is returned.
func (f *CoinGeckoFetcher) Fetch(ctx context.Context, coinIDs []string, vsCurrency string) ([]entity.PriceTick, error) {
	ids := uniqueCoinIDs(coinIDs)
	if len(ids) == 0 {
		return nil, nil
	}

	entries, err := f.requestMarkets(ctx, ids, vsCurrency)
	if err != nil {
		return nil, err
	}

	fetchedAt := f.now().UTC()
	ticks := make([]entity.PriceTick, 0, len(entries))
	for idx, raw := range entries {
		var entry entity.CoinMarketEntry
		if err := json.Unmarshal(raw, &entry); err != nil {
			logrus.WithFields(logrus.Fields{
				"index": idx,
				"entry": string(raw),
			}).WithError(err).Error("failed to parse coin market entry")
			continue
		}

		tick, err := entry.ToPriceTick(fetchedAt, f.source)
		if err != nil {
			logrus.WithFields(logrus.Fields{
				"index": idx,
				"entry": string(raw),
			}).WithError(err).Error("invalid coin market entry")
			continue
		}

		logrus.WithField("tick", tick.String()).Debug("valid tick")
		ticks = append(ticks, tick)
	}

	return ticks, nil
}

func (f *CoinGeckoFetcher) requestMarkets(ctx context.Context, ids []string, vsCurrency string) ([]json.RawMessage, error) {
	query := url.Values{}
	query.Set("ids", strings.Join(ids, ","))
	query.Set("vs_currency", vsCurrency)
	query.Set("include_market_cap", "true")
	query.Set("include_24hr_vol", "true")

	endpoint := fmt.Sprintf("%s/coins/markets?%s", f.baseURL, query.Encode())
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, &entity.TransportError{Op: "fetch", Err: err}
	}
	req.Header.Set("Accept", "application/json")

	resp, err := f.httpClient.Do(req)
	if err != nil {
		return nil, &entity.TransportError{Op: "fetch", Err: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode < http.StatusOK || resp.StatusCode >= http.StatusMultipleChoices {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBodyBytes))
		return nil, &entity.TransportError{
			Op:  "fetch",
			Err: fmt.Errorf("unexpected status %d: %s", resp.StatusCode, strings.TrimSpace(string(body))),
		}
	}

	var entries []json.RawMessage
	if err := json.NewDecoder(resp.Body).Decode(&entries); err != nil {
		return nil, &entity.TransportError{Op: "fetch", Err: fmt.Errorf("decode response: %w", err)}
	}

	return entries, nil
}

func uniqueCoinIDs(coinIDs []string) []string {
	ids := make([]string, 0, len(coinIDs))
	for _, id := range coinIDs {
		id = strings.TrimSpace(id)
		if id != "" {
			ids = append(ids, id)
		}
	}

	slices.Sort(ids)
	return slices.Compact(ids)
}
