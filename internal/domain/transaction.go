// Package domain contains the core types shared across modules.
// Types here are pure data - no infrastructure dependencies.
package domain

import (
	"fmt"
	"strings"
	"time"
)

// TransactionType is a closed set of ledger entry kinds. Adding a new kind
// means touching every switch that folds transactions, which is intentional.
type TransactionType string

const (
	TypeBuy      TransactionType = "buy"
	TypeSell     TransactionType = "sell"
	TypeSwap     TransactionType = "swap"
	TypeDeposit  TransactionType = "deposit"
	TypeWithdraw TransactionType = "withdraw"
)

// ParseTransactionType validates a raw type string.
func ParseTransactionType(raw string) (TransactionType, error) {
	t := TransactionType(strings.ToLower(strings.TrimSpace(raw)))
	switch t {
	case TypeBuy, TypeSell, TypeSwap, TypeDeposit, TypeWithdraw:
		return t, nil
	}
	return "", fmt.Errorf("unknown transaction type %q", raw)
}

// IsAcquiring reports whether the type increases the asset's quantity.
func (t TransactionType) IsAcquiring() bool {
	switch t {
	case TypeBuy, TypeDeposit, TypeSwap:
		return true
	case TypeSell, TypeWithdraw:
		return false
	}
	return false
}

// Transaction is a single ledger record. Quantity is always the amount of
// Asset moved; PriceUSD semantics depend on Type (unit cost for acquisitions,
// unit proceeds for disposals).
type Transaction struct {
	ID               string          `json:"id"`
	Asset            string          `json:"asset"`
	Type             TransactionType `json:"type"`
	Quantity         float64         `json:"quantity"`
	PriceUSD         float64         `json:"price_usd"`
	DestinationAsset string          `json:"destination_asset,omitempty"` // sell only: currency received
	SourceAsset      string          `json:"source_asset,omitempty"`      // swap only: currency spent
	TransactionDate  string          `json:"transaction_date,omitempty"`  // YYYY-MM-DD, informational
	Notes            string          `json:"notes,omitempty"`
	CreatedAt        time.Time       `json:"created_at"`
	UpdatedAt        time.Time       `json:"updated_at"`
}

// TransactionInput is the user-supplied part of a transaction.
type TransactionInput struct {
	Asset            string  `json:"asset"`
	Type             string  `json:"type"`
	Quantity         float64 `json:"quantity"`
	PriceUSD         float64 `json:"price_usd"`
	DestinationAsset string  `json:"destination_asset"`
	SourceAsset      string  `json:"source_asset"`
	TransactionDate  string  `json:"transaction_date"`
	Notes            string  `json:"notes"`
}

// NormalizeSymbol uppercases and trims an asset ticker.
func NormalizeSymbol(s string) string {
	return strings.ToUpper(strings.TrimSpace(s))
}

// stablecoins pinned to 1 USD for price defaulting.
var stablecoins = map[string]bool{
	"USDT":  true,
	"USDC":  true,
	"DAI":   true,
	"BUSD":  true,
	"TUSD":  true,
	"FDUSD": true,
}

// IsStablecoin reports whether the symbol is a known USD stablecoin.
func IsStablecoin(symbol string) bool {
	return stablecoins[NormalizeSymbol(symbol)]
}

// HistoryAction is the kind of ledger mutation recorded in the audit trail.
type HistoryAction string

const (
	ActionAdd    HistoryAction = "add"
	ActionUpdate HistoryAction = "update"
	ActionDelete HistoryAction = "delete"
)

// HistoryEntry is an append-only snapshot of a ledger mutation. It is used
// for audit/timeline display only and never feeds back into aggregation.
type HistoryEntry struct {
	ID               string          `json:"id"`
	Action           HistoryAction   `json:"action"`
	TransactionID    string          `json:"transaction_id"`
	Asset            string          `json:"asset"`
	Type             TransactionType `json:"type"`
	DestinationAsset string          `json:"destination_asset,omitempty"`
	SourceAsset      string          `json:"source_asset,omitempty"`
	Quantity         float64         `json:"quantity"`
	PriceUSD         float64         `json:"price_usd"`
	TransactionDate  string          `json:"transaction_date,omitempty"`
	Notes            string          `json:"notes,omitempty"`
	Timestamp        time.Time       `json:"timestamp"`
}
