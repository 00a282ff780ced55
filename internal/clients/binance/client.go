// Package binance provides current prices from the Binance 24h ticker
// endpoint. It serves as the fallback when the primary source is rate-limited
// or down.
package binance

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/rs/zerolog"

	"cryptofolio/internal/domain"
)

// Client for the Binance public market data API
type Client struct {
	baseURL string
	client  *http.Client
	log     zerolog.Logger
}

// NewClient creates a new Binance client
func NewClient(baseURL string, log zerolog.Logger) *Client {
	if baseURL == "" {
		baseURL = "https://api.binance.com"
	}
	return &Client{
		baseURL: baseURL,
		client:  &http.Client{Timeout: 10 * time.Second},
		log:     log.With().Str("client", "binance").Logger(),
	}
}

// Name identifies the source in logs and source-chain diagnostics.
func (c *Client) Name() string { return "binance" }

// GetPrices fetches the full 24h ticker list and picks out the <SYM>USDT
// pairs for the requested symbols. Stablecoins are quoted at 1.0 directly
// since they have no USDT pair worth consulting.
func (c *Client) GetPrices(ctx context.Context, symbols []string) (map[string]domain.AssetPrice, error) {
	result := make(map[string]domain.AssetPrice)
	now := time.Now().UTC()

	wanted := make(map[string]string, len(symbols)) // pair -> symbol
	for _, sym := range symbols {
		s := domain.NormalizeSymbol(sym)
		if s == "" {
			continue
		}
		if domain.IsStablecoin(s) {
			result[s] = domain.AssetPrice{
				Symbol:       s,
				Name:         s,
				CurrentPrice: 1.0,
				LastUpdated:  now,
			}
			continue
		}
		wanted[s+"USDT"] = s
	}
	if len(wanted) == 0 {
		return result, nil
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/api/v3/ticker/24hr", nil)
	if err != nil {
		return nil, fmt.Errorf("failed to build request: %w", err)
	}

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("API request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("API returned status %d", resp.StatusCode)
	}

	var tickers []struct {
		Symbol             string `json:"symbol"`
		LastPrice          string `json:"lastPrice"`
		PriceChangePercent string `json:"priceChangePercent"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&tickers); err != nil {
		return nil, fmt.Errorf("failed to parse response: %w", err)
	}

	for _, t := range tickers {
		sym, ok := wanted[t.Symbol]
		if !ok {
			continue
		}

		price, err := strconv.ParseFloat(t.LastPrice, 64)
		if err != nil || price <= 0 {
			continue
		}
		change, err := strconv.ParseFloat(t.PriceChangePercent, 64)
		if err != nil {
			change = 0
		}

		result[sym] = domain.AssetPrice{
			Symbol:            sym,
			Name:              sym,
			CurrentPrice:      price,
			PriceChange24hPct: change,
			LastUpdated:       now,
		}
	}

	c.log.Debug().
		Int("requested", len(symbols)).
		Int("returned", len(result)).
		Msg("Fetched prices")

	return result, nil
}
