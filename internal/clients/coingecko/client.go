// Package coingecko provides current prices and 24h changes from the
// CoinGecko public API. This is the primary price source.
package coingecko

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"cryptofolio/internal/domain"
)

// symbolToID maps ticker symbols to CoinGecko coin ids. Symbols outside this
// table are simply absent from results; callers tolerate partial maps.
var symbolToID = map[string]string{
	"BTC":   "bitcoin",
	"ETH":   "ethereum",
	"BNB":   "binancecoin",
	"XRP":   "ripple",
	"ADA":   "cardano",
	"SOL":   "solana",
	"DOT":   "polkadot",
	"DOGE":  "dogecoin",
	"AVAX":  "avalanche-2",
	"LINK":  "chainlink",
	"MATIC": "matic-network",
	"NEAR":  "near",
	"APT":   "aptos",
	"ARB":   "arbitrum",
	"OP":    "optimism",
	"USDT":  "tether",
	"USDC":  "usd-coin",
	"DAI":   "dai",
}

// idToSymbol is the reverse lookup, built once at init.
var idToSymbol = func() map[string]string {
	m := make(map[string]string, len(symbolToID))
	for sym, id := range symbolToID {
		m[id] = sym
	}
	return m
}()

// Client for the CoinGecko API
type Client struct {
	baseURL string
	client  *http.Client
	log     zerolog.Logger
}

// NewClient creates a new CoinGecko client
func NewClient(baseURL string, log zerolog.Logger) *Client {
	if baseURL == "" {
		baseURL = "https://api.coingecko.com/api/v3"
	}
	return &Client{
		baseURL: baseURL,
		client:  &http.Client{Timeout: 10 * time.Second},
		log:     log.With().Str("client", "coingecko").Logger(),
	}
}

// Name identifies the source in logs and source-chain diagnostics.
func (c *Client) Name() string { return "coingecko" }

// GetPrices fetches current USD price and 24h change for the given symbols.
// Unknown symbols are skipped; the returned map may cover a subset of the
// request. An error is returned only when the request itself fails.
func (c *Client) GetPrices(ctx context.Context, symbols []string) (map[string]domain.AssetPrice, error) {
	result := make(map[string]domain.AssetPrice)

	var ids []string
	for _, sym := range symbols {
		if id, ok := symbolToID[domain.NormalizeSymbol(sym)]; ok {
			ids = append(ids, id)
		}
	}
	if len(ids) == 0 {
		return result, nil
	}

	reqURL := fmt.Sprintf(
		"%s/simple/price?ids=%s&vs_currencies=usd&include_24hr_change=true",
		c.baseURL, url.QueryEscape(strings.Join(ids, ",")),
	)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
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

	var raw map[string]struct {
		USD       float64 `json:"usd"`
		USDChange float64 `json:"usd_24h_change"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&raw); err != nil {
		return nil, fmt.Errorf("failed to parse response: %w", err)
	}

	now := time.Now().UTC()
	for id, quote := range raw {
		sym, ok := idToSymbol[id]
		if !ok {
			continue
		}
		result[sym] = domain.AssetPrice{
			Symbol:            sym,
			Name:              id,
			CurrentPrice:      quote.USD,
			PriceChange24hPct: quote.USDChange,
			LastUpdated:       now,
		}
	}

	c.log.Debug().
		Int("requested", len(symbols)).
		Int("returned", len(result)).
		Msg("Fetched prices")

	return result, nil
}
