// Package portfolio derives positions and valuations from the transaction
// ledger. Everything here is pure computation over snapshots - no storage,
// no I/O, no hidden state.
package portfolio

import (
	"math"
	"sort"
	"strings"

	"cryptofolio/internal/domain"
)

// Aggregate folds transactions into net per-asset positions using a
// moving-average cost model. Disposals are costed at the position's current
// blended average, not at their own price. Transactions are folded strictly
// in input order; the result only contains assets with a positive net
// quantity, sorted by asset symbol.
func Aggregate(txs []domain.Transaction) []domain.Position {
	byAsset := make(map[string]*domain.Position)

	for _, tx := range txs {
		asset := domain.NormalizeSymbol(tx.Asset)
		if asset == "" {
			continue
		}

		quantity := sanitize(tx.Quantity)
		if quantity <= 0 {
			continue
		}

		pos, exists := byAsset[asset]

		switch tx.Type {
		case domain.TypeBuy, domain.TypeDeposit, domain.TypeSwap:
			if !exists {
				pos = &domain.Position{Asset: asset}
				byAsset[asset] = pos
			}
			pos.TotalQuantity += quantity
			pos.TotalInvestment += quantity * effectivePrice(tx)

		case domain.TypeSell, domain.TypeWithdraw:
			// Disposal against nothing: no position is created, no
			// synthetic short. The record is skipped outright.
			if !exists {
				continue
			}
			cost := quantity * pos.AverageBuyPrice
			pos.TotalQuantity -= quantity
			pos.TotalInvestment -= cost
			if pos.TotalQuantity < 0 {
				pos.TotalQuantity = 0
			}
			if pos.TotalInvestment < 0 {
				pos.TotalInvestment = 0
			}

		default:
			continue
		}

		if pos.TotalQuantity > 0 {
			pos.AverageBuyPrice = pos.TotalInvestment / pos.TotalQuantity
		} else {
			pos.AverageBuyPrice = 0
		}

		pos.Transactions = append(pos.Transactions, tx)
		if tx.Notes != "" {
			if pos.Notes != "" {
				pos.Notes += "; "
			}
			pos.Notes += tx.Notes
		}
		trackDates(pos, tx.TransactionDate)
	}

	positions := make([]domain.Position, 0, len(byAsset))
	for _, pos := range byAsset {
		if pos.TotalQuantity <= 0 {
			continue
		}
		positions = append(positions, *pos)
	}

	sort.Slice(positions, func(i, j int) bool {
		return positions[i].Asset < positions[j].Asset
	})

	return positions
}

// effectivePrice resolves the unit cost of an acquiring transaction.
// Stablecoin deposits without a price default to 1.0; anything else without
// a price contributes zero cost basis.
func effectivePrice(tx domain.Transaction) float64 {
	price := sanitize(tx.PriceUSD)
	if price > 0 {
		return price
	}
	if tx.Type == domain.TypeDeposit && domain.IsStablecoin(tx.Asset) {
		return 1.0
	}
	return 0
}

// trackDates keeps the min/max transaction date on the position. Dates are
// YYYY-MM-DD strings, so lexicographic comparison is chronological.
func trackDates(pos *domain.Position, date string) {
	date = strings.TrimSpace(date)
	if date == "" {
		return
	}
	if pos.EarliestDate == "" || date < pos.EarliestDate {
		pos.EarliestDate = date
	}
	if pos.LatestDate == "" || date > pos.LatestDate {
		pos.LatestDate = date
	}
}

// sanitize coerces NaN to 0 so one bad record cannot poison a whole position.
func sanitize(f float64) float64 {
	if math.IsNaN(f) {
		return 0
	}
	return f
}
