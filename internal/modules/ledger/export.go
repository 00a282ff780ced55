package ledger

import (
	"database/sql"
	"fmt"
	"time"

	"cryptofolio/internal/database"
	"cryptofolio/internal/domain"
)

// ExportBundle is the portable JSON form of the full ledger. Good enough to
// move a portfolio between instances or keep a plain-text backup next to the
// database archives.
type ExportBundle struct {
	Version      int                   `json:"version"`
	ExportedAt   time.Time             `json:"exported_at"`
	Transactions []domain.Transaction  `json:"transactions"`
	History      []domain.HistoryEntry `json:"history"`
}

const exportVersion = 1

// Export snapshots all transactions and history entries.
func (s *Service) Export() (ExportBundle, error) {
	txs, err := s.txRepo.List()
	if err != nil {
		return ExportBundle{}, fmt.Errorf("failed to export transactions: %w", err)
	}
	entries, err := s.historyRepo.List()
	if err != nil {
		return ExportBundle{}, fmt.Errorf("failed to export history: %w", err)
	}

	return ExportBundle{
		Version:      exportVersion,
		ExportedAt:   time.Now().UTC(),
		Transactions: txs,
		History:      entries,
	}, nil
}

// Import replaces the entire ledger with the bundle contents, atomically.
// Existing records are gone after a successful import; a failed import leaves
// the ledger untouched.
func (s *Service) Import(bundle ExportBundle) error {
	if bundle.Version != exportVersion {
		return fmt.Errorf("unsupported export version %d", bundle.Version)
	}

	for i, tx := range bundle.Transactions {
		if tx.ID == "" {
			return fmt.Errorf("transaction %d has no id", i)
		}
		if _, err := domain.ParseTransactionType(string(tx.Type)); err != nil {
			return fmt.Errorf("transaction %s: %w", tx.ID, err)
		}
	}

	err := database.WithTransaction(s.db, func(sqlTx *sql.Tx) error {
		if _, err := sqlTx.Exec("DELETE FROM transactions"); err != nil {
			return fmt.Errorf("failed to clear transactions: %w", err)
		}
		if _, err := sqlTx.Exec("DELETE FROM history"); err != nil {
			return fmt.Errorf("failed to clear history: %w", err)
		}

		for _, tx := range bundle.Transactions {
			tx.Asset = domain.NormalizeSymbol(tx.Asset)
			if err := s.txRepo.CreateIn(sqlTx, tx); err != nil {
				return err
			}
		}
		for _, entry := range bundle.History {
			if err := s.historyRepo.AppendIn(sqlTx, entry); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return err
	}

	s.log.Info().
		Int("transactions", len(bundle.Transactions)).
		Int("history", len(bundle.History)).
		Msg("Ledger imported")

	return nil
}
