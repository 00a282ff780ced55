package portfolio

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"cryptofolio/internal/domain"
)

func TestValue_BasicPosition(t *testing.T) {
	positions := []domain.Position{
		{Asset: "BTC", TotalQuantity: 2, AverageBuyPrice: 100, TotalInvestment: 200},
	}
	prices := map[string]domain.AssetPrice{
		"BTC": {Symbol: "BTC", CurrentPrice: 120},
	}

	valued, totals := Value(positions, prices)

	require.Len(t, valued, 1)
	assert.InDelta(t, 240, valued[0].Value, 1e-9)
	assert.InDelta(t, 40, valued[0].PnL, 1e-9)
	assert.InDelta(t, 20, valued[0].PnLPercentage, 1e-9)
	assert.InDelta(t, 240, totals.TotalValue, 1e-9)
	assert.InDelta(t, 200, totals.TotalCost, 1e-9)
	assert.InDelta(t, 40, totals.TotalPnL, 1e-9)
	assert.InDelta(t, 20, totals.TotalPnLPercentage, 1e-9)
}

func TestValue_MissingPriceDegradesToZero(t *testing.T) {
	positions := []domain.Position{
		{Asset: "BTC", TotalQuantity: 1, AverageBuyPrice: 100, TotalInvestment: 100},
	}

	valued, totals := Value(positions, map[string]domain.AssetPrice{})

	require.Len(t, valued, 1)
	assert.Zero(t, valued[0].Value)
	assert.InDelta(t, -100, valued[0].PnL, 1e-9)
	assert.Nil(t, valued[0].AssetInfo)
	assert.InDelta(t, -100, totals.TotalPnL, 1e-9)
}

func TestValue_ZeroCostYieldsZeroPercent(t *testing.T) {
	positions := []domain.Position{
		{Asset: "BTC", TotalQuantity: 1, TotalInvestment: 0},
	}
	prices := map[string]domain.AssetPrice{
		"BTC": {Symbol: "BTC", CurrentPrice: 100},
	}

	valued, totals := Value(positions, prices)

	require.Len(t, valued, 1)
	assert.Zero(t, valued[0].PnLPercentage)
	assert.Zero(t, totals.TotalPnLPercentage)
}

func TestValue_Change24h(t *testing.T) {
	positions := []domain.Position{
		{Asset: "BTC", TotalQuantity: 1, TotalInvestment: 100},
	}
	prices := map[string]domain.AssetPrice{
		"BTC": {Symbol: "BTC", CurrentPrice: 110, PriceChange24hPct: 10},
	}

	_, totals := Value(positions, prices)

	// value 110 up 10% over 24h: prior value 100, change +10
	assert.InDelta(t, 10, totals.Change24h, 1e-9)
	assert.InDelta(t, 10, totals.Change24hPercentage, 1e-9)
}

func TestValue_Change24hGuardsAtMinusHundred(t *testing.T) {
	positions := []domain.Position{
		{Asset: "BTC", TotalQuantity: 1, TotalInvestment: 100},
	}
	prices := map[string]domain.AssetPrice{
		"BTC": {Symbol: "BTC", CurrentPrice: 50, PriceChange24hPct: -100},
	}

	_, totals := Value(positions, prices)

	assert.Zero(t, totals.Change24h)
	assert.Zero(t, totals.Change24hPercentage)
}

func TestValue_EmptyPortfolio(t *testing.T) {
	valued, totals := Value(nil, nil)

	assert.Empty(t, valued)
	assert.Zero(t, totals.TotalValue)
	assert.Zero(t, totals.TotalPnLPercentage)
	assert.Zero(t, totals.Change24hPercentage)
}

// End-to-end: buy 1 BTC at 50000, sell 0.5 to USDT at 60000, BTC now 70000.
func TestAggregateAndValue_EndToEnd(t *testing.T) {
	sell := tx("BTC", domain.TypeSell, 0.5, 60000)
	sell.DestinationAsset = "USDT"

	// The synthetic USDT buy is produced by the submission layer, mirrored
	// here the way it lands in the ledger.
	transactions := []domain.Transaction{
		tx("BTC", domain.TypeBuy, 1, 50000),
		sell,
		tx("USDT", domain.TypeBuy, 30000, 1),
	}

	positions := Aggregate(transactions)
	require.Len(t, positions, 2)

	var btc, usdt domain.Position
	for _, pos := range positions {
		switch pos.Asset {
		case "BTC":
			btc = pos
		case "USDT":
			usdt = pos
		}
	}

	assert.InDelta(t, 0.5, btc.TotalQuantity, 1e-9)
	assert.InDelta(t, 50000, btc.AverageBuyPrice, 1e-9)
	assert.InDelta(t, 25000, btc.TotalInvestment, 1e-9)
	assert.InDelta(t, 30000, usdt.TotalQuantity, 1e-9)
	assert.InDelta(t, 1, usdt.AverageBuyPrice, 1e-9)

	prices := map[string]domain.AssetPrice{
		"BTC":  {Symbol: "BTC", CurrentPrice: 70000},
		"USDT": {Symbol: "USDT", CurrentPrice: 1},
	}
	valued, _ := Value(positions, prices)

	var btcValued domain.PositionWithMetrics
	for _, v := range valued {
		if v.Asset == "BTC" {
			btcValued = v
		}
	}

	assert.InDelta(t, 35000, btcValued.Value, 1e-9)
	assert.InDelta(t, 10000, btcValued.PnL, 1e-9)
	assert.InDelta(t, 40, btcValued.PnLPercentage, 1e-9)
}
