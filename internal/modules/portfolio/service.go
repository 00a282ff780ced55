package portfolio

import (
	"context"
	"fmt"
	"sort"

	"github.com/rs/zerolog"

	"cryptofolio/internal/domain"
	"cryptofolio/internal/modules/ledger"
)

// PriceProvider supplies best-effort quotes. Partial or empty results are
// acceptable; the valuation degrades instead of failing.
type PriceProvider interface {
	GetPrices(ctx context.Context, symbols []string) map[string]domain.AssetPrice
}

// Overview is the full valued portfolio in one response.
type Overview struct {
	Positions []domain.PositionWithMetrics `json:"positions"`
	Metrics   domain.PortfolioMetrics      `json:"metrics"`
}

// AllocationSlice is one asset's share of the portfolio by market value.
type AllocationSlice struct {
	Asset      string  `json:"asset"`
	Value      float64 `json:"value"`
	Percentage float64 `json:"percentage"`
}

// Service computes portfolio views on demand. Nothing is cached here - every
// call re-reads the ledger and re-folds, so the result always reflects the
// latest records and the freshest quotes the oracle can offer.
type Service struct {
	txRepo *ledger.TransactionRepository
	prices PriceProvider
	log    zerolog.Logger
}

// NewService creates a new portfolio service
func NewService(txRepo *ledger.TransactionRepository, prices PriceProvider, log zerolog.Logger) *Service {
	return &Service{
		txRepo: txRepo,
		prices: prices,
		log:    log.With().Str("service", "portfolio").Logger(),
	}
}

// GetOverview aggregates the ledger, fetches quotes for the held assets and
// values every position. Positions come back sorted by market value,
// largest first.
func (s *Service) GetOverview(ctx context.Context) (Overview, error) {
	txs, err := s.txRepo.ListChronological()
	if err != nil {
		return Overview{}, fmt.Errorf("failed to load transactions: %w", err)
	}

	positions := Aggregate(txs)

	symbols := make([]string, 0, len(positions))
	for _, pos := range positions {
		symbols = append(symbols, pos.Asset)
	}
	priceMap := s.prices.GetPrices(ctx, symbols)

	if len(priceMap) < len(symbols) {
		s.log.Debug().
			Int("held", len(symbols)).
			Int("quoted", len(priceMap)).
			Msg("Partial price coverage, unquoted positions valued at zero")
	}

	valued, metrics := Value(positions, priceMap)

	sort.SliceStable(valued, func(i, j int) bool {
		return valued[i].Value > valued[j].Value
	})

	return Overview{Positions: valued, Metrics: metrics}, nil
}

// GetAllocation returns each asset's share of total portfolio value.
// Zero-valued positions still appear, at 0%.
func (s *Service) GetAllocation(ctx context.Context) ([]AllocationSlice, error) {
	overview, err := s.GetOverview(ctx)
	if err != nil {
		return nil, err
	}

	slices := make([]AllocationSlice, 0, len(overview.Positions))
	for _, pos := range overview.Positions {
		slice := AllocationSlice{Asset: pos.Asset, Value: pos.Value}
		if overview.Metrics.TotalValue > 0 {
			slice.Percentage = pos.Value / overview.Metrics.TotalValue * 100
		}
		slices = append(slices, slice)
	}

	return slices, nil
}
