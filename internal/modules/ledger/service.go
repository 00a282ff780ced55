package ledger

import (
	"database/sql"
	"fmt"
	"math"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"cryptofolio/internal/database"
	"cryptofolio/internal/domain"
)

// Service is the transaction submission service. It validates input, applies
// the price defaulting rules, and performs the cross-asset pairing for sells
// and swaps atomically: the disposal record and its synthetic counterpart
// either both land in the ledger or neither does. The aggregator downstream
// only ever sees single-asset records.
type Service struct {
	db          *sql.DB
	txRepo      *TransactionRepository
	historyRepo *HistoryRepository
	log         zerolog.Logger
}

// NewService creates a new ledger service
func NewService(db *sql.DB, txRepo *TransactionRepository, historyRepo *HistoryRepository, log zerolog.Logger) *Service {
	return &Service{
		db:          db,
		txRepo:      txRepo,
		historyRepo: historyRepo,
		log:         log.With().Str("service", "ledger").Logger(),
	}
}

// List returns all transactions, newest first.
func (s *Service) List() ([]domain.Transaction, error) {
	return s.txRepo.List()
}

// Get returns one transaction by id.
func (s *Service) Get(id string) (domain.Transaction, error) {
	return s.txRepo.Get(id)
}

// Create records a new transaction. A sell with a destination asset also
// records a synthetic buy of the destination; a swap with a source asset also
// records a synthetic sell of the source. Proceeds are quantity x price at an
// implied unit price of 1.0, which keeps stablecoin balances consistent.
func (s *Service) Create(input domain.TransactionInput) (domain.Transaction, error) {
	tx, err := s.buildTransaction(input)
	if err != nil {
		return domain.Transaction{}, err
	}

	err = database.WithTransaction(s.db, func(sqlTx *sql.Tx) error {
		if err := s.txRepo.CreateIn(sqlTx, tx); err != nil {
			return err
		}
		if err := s.historyRepo.AppendIn(sqlTx, historyFor(domain.ActionAdd, tx)); err != nil {
			return err
		}

		paired, ok := pairedTransaction(tx)
		if !ok {
			return nil
		}
		if err := s.txRepo.CreateIn(sqlTx, paired); err != nil {
			return err
		}
		return s.historyRepo.AppendIn(sqlTx, historyFor(domain.ActionAdd, paired))
	})
	if err != nil {
		return domain.Transaction{}, err
	}

	s.log.Info().
		Str("id", tx.ID).
		Str("asset", tx.Asset).
		Str("type", string(tx.Type)).
		Float64("quantity", tx.Quantity).
		Msg("Transaction recorded")

	return tx, nil
}

// Update replaces the mutable fields of an existing transaction. No
// re-pairing happens on update; the original behaves the same way.
func (s *Service) Update(id string, input domain.TransactionInput) (domain.Transaction, error) {
	existing, err := s.txRepo.Get(id)
	if err != nil {
		return domain.Transaction{}, err
	}

	tx, err := s.buildTransaction(input)
	if err != nil {
		return domain.Transaction{}, err
	}
	tx.ID = existing.ID
	tx.CreatedAt = existing.CreatedAt
	tx.UpdatedAt = time.Now().UTC()

	err = database.WithTransaction(s.db, func(sqlTx *sql.Tx) error {
		if err := s.txRepo.UpdateIn(sqlTx, tx); err != nil {
			return err
		}
		return s.historyRepo.AppendIn(sqlTx, historyFor(domain.ActionUpdate, tx))
	})
	if err != nil {
		return domain.Transaction{}, err
	}

	s.log.Info().Str("id", tx.ID).Str("asset", tx.Asset).Msg("Transaction updated")

	return tx, nil
}

// Delete removes a transaction and appends a delete entry carrying the full
// record snapshot to the audit trail, atomically.
func (s *Service) Delete(id string) error {
	err := database.WithTransaction(s.db, func(sqlTx *sql.Tx) error {
		tx, err := s.txRepo.GetIn(sqlTx, id)
		if err != nil {
			return err
		}
		if err := s.historyRepo.AppendIn(sqlTx, historyFor(domain.ActionDelete, tx)); err != nil {
			return err
		}
		return s.txRepo.DeleteIn(sqlTx, id)
	})
	if err != nil {
		return err
	}

	s.log.Info().Str("id", id).Msg("Transaction deleted")

	return nil
}

// History returns the audit trail, newest first.
func (s *Service) History() ([]domain.HistoryEntry, error) {
	return s.historyRepo.List()
}

// HistoryByAsset returns the audit trail for one asset.
func (s *Service) HistoryByAsset(asset string) ([]domain.HistoryEntry, error) {
	return s.historyRepo.ListByAsset(asset)
}

// HistoryByTransaction returns the audit trail for one transaction id.
func (s *Service) HistoryByTransaction(id string) ([]domain.HistoryEntry, error) {
	return s.historyRepo.ListByTransaction(id)
}

// buildTransaction validates and normalizes input into a storable record.
// This is the validating boundary: bad user entry is rejected here so the
// aggregation core downstream can stay lenient.
func (s *Service) buildTransaction(input domain.TransactionInput) (domain.Transaction, error) {
	asset := domain.NormalizeSymbol(input.Asset)
	if asset == "" {
		return domain.Transaction{}, fmt.Errorf("asset is required")
	}

	txType, err := domain.ParseTransactionType(input.Type)
	if err != nil {
		return domain.Transaction{}, err
	}

	if math.IsNaN(input.Quantity) || input.Quantity <= 0 {
		return domain.Transaction{}, fmt.Errorf("quantity must be positive")
	}

	price := input.PriceUSD
	if math.IsNaN(price) {
		price = 0
	}
	switch {
	case price > 0:
		// explicit price always wins
	case txType == domain.TypeWithdraw:
		price = 0
	case txType == domain.TypeDeposit && domain.IsStablecoin(asset):
		price = 1.0
	default:
		return domain.Transaction{}, fmt.Errorf("price_usd must be positive for %s of %s", txType, asset)
	}

	now := time.Now().UTC()
	tx := domain.Transaction{
		ID:              uuid.NewString(),
		Asset:           asset,
		Type:            txType,
		Quantity:        input.Quantity,
		PriceUSD:        price,
		TransactionDate: input.TransactionDate,
		Notes:           input.Notes,
		CreatedAt:       now,
		UpdatedAt:       now,
	}

	// Cross-asset fields only carry meaning on their own types
	if txType == domain.TypeSell {
		tx.DestinationAsset = domain.NormalizeSymbol(input.DestinationAsset)
	}
	if txType == domain.TypeSwap {
		tx.SourceAsset = domain.NormalizeSymbol(input.SourceAsset)
	}

	return tx, nil
}

// pairedTransaction synthesizes the counterpart record for cross-asset
// transactions. Returns false when no pairing applies.
func pairedTransaction(tx domain.Transaction) (domain.Transaction, bool) {
	now := time.Now().UTC()
	proceeds := tx.Quantity * tx.PriceUSD

	switch {
	case tx.Type == domain.TypeSell && tx.DestinationAsset != "":
		return domain.Transaction{
			ID:              uuid.NewString(),
			Asset:           tx.DestinationAsset,
			Type:            domain.TypeBuy,
			Quantity:        proceeds,
			PriceUSD:        1.0,
			TransactionDate: tx.TransactionDate,
			Notes:           fmt.Sprintf("Received from selling %v %s", tx.Quantity, tx.Asset),
			CreatedAt:       now,
			UpdatedAt:       now,
		}, true

	case tx.Type == domain.TypeSwap && tx.SourceAsset != "":
		return domain.Transaction{
			ID:              uuid.NewString(),
			Asset:           tx.SourceAsset,
			Type:            domain.TypeSell,
			Quantity:        proceeds,
			PriceUSD:        1.0,
			TransactionDate: tx.TransactionDate,
			Notes:           fmt.Sprintf("Spent acquiring %v %s", tx.Quantity, tx.Asset),
			CreatedAt:       now,
			UpdatedAt:       now,
		}, true
	}

	return domain.Transaction{}, false
}

// historyFor snapshots a transaction into an audit entry.
func historyFor(action domain.HistoryAction, tx domain.Transaction) domain.HistoryEntry {
	return domain.HistoryEntry{
		ID:               uuid.NewString(),
		Action:           action,
		TransactionID:    tx.ID,
		Asset:            tx.Asset,
		Type:             tx.Type,
		DestinationAsset: tx.DestinationAsset,
		SourceAsset:      tx.SourceAsset,
		Quantity:         tx.Quantity,
		PriceUSD:         tx.PriceUSD,
		TransactionDate:  tx.TransactionDate,
		Notes:            tx.Notes,
		Timestamp:        time.Now().UTC(),
	}
}
