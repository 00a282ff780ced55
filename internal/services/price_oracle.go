// Package services contains shared services that sit between external
// clients and the domain modules.
package services

import (
	"context"
	"time"

	"github.com/rs/zerolog"

	"cryptofolio/internal/clientdata"
	"cryptofolio/internal/domain"
)

// PriceSource is one upstream quote provider. Sources may return a subset of
// the requested symbols; an error means the source itself is unusable.
type PriceSource interface {
	Name() string
	GetPrices(ctx context.Context, symbols []string) (map[string]domain.AssetPrice, error)
}

// PriceOracle resolves quotes through a source chain with a persistent cache
// in front. Resolution order per symbol: fresh cache, then each source in
// order, then stale cache. The oracle never returns an error - total upstream
// failure degrades to whatever the cache still holds, possibly nothing.
// Callers signal "prices unavailable" separately; missing entries must never
// poison the valuation path.
type PriceOracle struct {
	sources []PriceSource
	cache   *clientdata.Repository
	ttl     time.Duration
	log     zerolog.Logger
}

// NewPriceOracle creates a price oracle. Sources are consulted in the order
// given. cache may be nil, which disables caching entirely.
func NewPriceOracle(cache *clientdata.Repository, ttl time.Duration, log zerolog.Logger, sources ...PriceSource) *PriceOracle {
	return &PriceOracle{
		sources: sources,
		cache:   cache,
		ttl:     ttl,
		log:     log.With().Str("service", "price_oracle").Logger(),
	}
}

// GetPrices returns best-effort quotes for the given symbols. The result may
// cover any subset of the request, including none.
func (o *PriceOracle) GetPrices(ctx context.Context, symbols []string) map[string]domain.AssetPrice {
	result := make(map[string]domain.AssetPrice)

	// Normalize and dedupe
	seen := make(map[string]bool, len(symbols))
	var wanted []string
	for _, sym := range symbols {
		s := domain.NormalizeSymbol(sym)
		if s == "" || seen[s] {
			continue
		}
		seen[s] = true
		wanted = append(wanted, s)
	}

	// Cache-first
	var misses []string
	for _, sym := range wanted {
		if price, ok := o.fromCache(sym, true); ok {
			result[sym] = price
		} else {
			misses = append(misses, sym)
		}
	}
	if len(misses) == 0 {
		return result
	}

	// Source chain: each source gets a shot at whatever is still missing
	for _, src := range o.sources {
		prices, err := src.GetPrices(ctx, misses)
		if err != nil {
			o.log.Warn().
				Err(err).
				Str("source", src.Name()).
				Int("symbols", len(misses)).
				Msg("Price source failed, trying next")
			continue
		}

		var remaining []string
		for _, sym := range misses {
			price, ok := prices[sym]
			if !ok {
				remaining = append(remaining, sym)
				continue
			}
			result[sym] = price
			o.store(sym, price)
		}
		misses = remaining

		if len(misses) == 0 {
			return result
		}
	}

	// All sources exhausted: stale data beats no data
	for _, sym := range misses {
		if price, ok := o.fromCache(sym, false); ok {
			o.log.Warn().
				Str("symbol", sym).
				Time("last_updated", price.LastUpdated).
				Msg("All sources failed, using stale cached quote")
			result[sym] = price
		}
	}

	return result
}

func (o *PriceOracle) fromCache(symbol string, freshOnly bool) (domain.AssetPrice, bool) {
	if o.cache == nil {
		return domain.AssetPrice{}, false
	}

	var price domain.AssetPrice
	var ok bool
	var err error
	if freshOnly {
		ok, err = o.cache.GetIfFresh(symbol, &price)
	} else {
		ok, err = o.cache.Get(symbol, &price)
	}
	if err != nil {
		o.log.Warn().Err(err).Str("symbol", symbol).Msg("Cache read failed")
		return domain.AssetPrice{}, false
	}
	return price, ok
}

func (o *PriceOracle) store(symbol string, price domain.AssetPrice) {
	if o.cache == nil {
		return
	}
	if err := o.cache.Store(symbol, price, o.ttl); err != nil {
		o.log.Warn().Err(err).Str("symbol", symbol).Msg("Failed to cache quote")
	}
}
