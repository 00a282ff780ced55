package scheduler

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"cryptofolio/internal/modules/ledger"
	"cryptofolio/internal/modules/portfolio"
)

// RefreshPricesJob keeps the quote cache warm for every held asset so that
// portfolio requests are served from cache instead of hitting upstream APIs
// on the request path.
type RefreshPricesJob struct {
	txRepo *ledger.TransactionRepository
	prices portfolio.PriceProvider
	log    zerolog.Logger
}

// NewRefreshPricesJob creates a new price refresh job
func NewRefreshPricesJob(txRepo *ledger.TransactionRepository, prices portfolio.PriceProvider, log zerolog.Logger) *RefreshPricesJob {
	return &RefreshPricesJob{
		txRepo: txRepo,
		prices: prices,
		log:    log.With().Str("job", "refresh_prices").Logger(),
	}
}

// Name returns the job name
func (j *RefreshPricesJob) Name() string { return "refresh_prices" }

// Run fetches fresh quotes for all currently held assets.
func (j *RefreshPricesJob) Run() error {
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	txs, err := j.txRepo.ListChronological()
	if err != nil {
		return fmt.Errorf("failed to load transactions: %w", err)
	}

	positions := portfolio.Aggregate(txs)
	if len(positions) == 0 {
		return nil
	}

	symbols := make([]string, 0, len(positions))
	for _, pos := range positions {
		symbols = append(symbols, pos.Asset)
	}

	prices := j.prices.GetPrices(ctx, symbols)

	j.log.Debug().
		Int("held", len(symbols)).
		Int("quoted", len(prices)).
		Msg("Refreshed prices")

	return nil
}
