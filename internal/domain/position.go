package domain

import "time"

// Position is the net holding of one asset, derived by folding all of its
// transactions. Never stored - recomputed wholesale on every pass.
type Position struct {
	Asset           string        `json:"asset"`
	TotalQuantity   float64       `json:"total_quantity"`
	AverageBuyPrice float64       `json:"average_buy_price"`
	TotalInvestment float64       `json:"total_investment"`
	Transactions    []Transaction `json:"transactions,omitempty"` // contributing records, input order
	EarliestDate    string        `json:"earliest_date,omitempty"`
	LatestDate      string        `json:"latest_date,omitempty"`
	Notes           string        `json:"notes,omitempty"` // semicolon-joined across contributors
}

// AssetPrice is a best-effort quote from the price oracle.
type AssetPrice struct {
	Symbol            string    `json:"symbol"`
	Name              string    `json:"name"`
	CurrentPrice      float64   `json:"current_price"`
	PriceChange24hPct float64   `json:"price_change_percentage_24h"`
	LastUpdated       time.Time `json:"last_updated"`
	Image             string    `json:"image,omitempty"`
}

// PositionWithMetrics joins a Position with its current quote.
// A missing quote degrades to zero value, never an error.
type PositionWithMetrics struct {
	Position
	CurrentPrice  float64     `json:"current_price"`
	Value         float64     `json:"value"`
	PnL           float64     `json:"pnl"`
	PnLPercentage float64     `json:"pnl_percentage"`
	AssetInfo     *AssetPrice `json:"asset_info,omitempty"`
}

// PortfolioMetrics sums metrics across all positions.
//
// Change24h back-solves the prior value from today's percentage change
// applied to today's quantity. That assumes the quantity was constant over
// the last 24h, which is not generally true - known approximation.
type PortfolioMetrics struct {
	TotalValue          float64 `json:"total_value"`
	TotalCost           float64 `json:"total_cost"`
	TotalPnL            float64 `json:"total_pnl"`
	TotalPnLPercentage  float64 `json:"total_pnl_percentage"`
	Change24h           float64 `json:"change_24h"`
	Change24hPercentage float64 `json:"change_24h_percentage"`
}
