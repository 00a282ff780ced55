package portfolio

import (
	"cryptofolio/internal/domain"
)

// Value combines positions with a possibly incomplete price map. A missing
// quote values the position at zero rather than failing - signalling "prices
// unavailable" is the caller's job, never this function's.
func Value(positions []domain.Position, prices map[string]domain.AssetPrice) ([]domain.PositionWithMetrics, domain.PortfolioMetrics) {
	result := make([]domain.PositionWithMetrics, 0, len(positions))
	var totals domain.PortfolioMetrics

	for _, pos := range positions {
		m := domain.PositionWithMetrics{Position: pos}

		if quote, ok := prices[pos.Asset]; ok {
			q := quote
			m.AssetInfo = &q
			m.CurrentPrice = sanitize(quote.CurrentPrice)
		}

		m.Value = pos.TotalQuantity * m.CurrentPrice
		m.PnL = m.Value - pos.TotalInvestment
		if pos.TotalInvestment > 0 {
			m.PnLPercentage = m.PnL / pos.TotalInvestment * 100
		}

		totals.TotalValue += m.Value
		totals.TotalCost += pos.TotalInvestment
		totals.TotalPnL += m.PnL
		totals.Change24h += change24h(m)

		result = append(result, m)
	}

	if totals.TotalCost > 0 {
		totals.TotalPnLPercentage = totals.TotalPnL / totals.TotalCost * 100
	}

	// Back-solve the implied portfolio value 24h ago. Approximation: assumes
	// quantities were constant over the window.
	prevValue := totals.TotalValue - totals.Change24h
	if prevValue > 0 {
		totals.Change24hPercentage = totals.Change24h / prevValue * 100
	}

	return result, totals
}

// change24h recovers the position's implied value 24 hours ago from today's
// percentage change, and returns the dollar difference.
func change24h(m domain.PositionWithMetrics) float64 {
	if m.AssetInfo == nil || m.Value == 0 {
		return 0
	}
	pct := sanitize(m.AssetInfo.PriceChange24hPct)
	if pct == 0 {
		return 0
	}
	denom := 1 + pct/100
	if denom <= 0 {
		// -100% or worse would imply division by zero or a negative
		// prior value; treat as no usable change data.
		return 0
	}
	prev := m.Value / denom
	return m.Value - prev
}
