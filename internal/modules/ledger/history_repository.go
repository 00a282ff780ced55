package ledger

import (
	"database/sql"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"cryptofolio/internal/domain"
)

const historyColumns = `id, action, transaction_id, asset, type, destination_asset, source_asset, quantity, price_usd, transaction_date, notes, timestamp`

// HistoryRepository handles the append-only audit trail. There is no update
// or delete - entries are written once and only ever read back for display.
type HistoryRepository struct {
	ledgerDB *sql.DB
	log      zerolog.Logger
}

// NewHistoryRepository creates a new history repository
func NewHistoryRepository(ledgerDB *sql.DB, log zerolog.Logger) *HistoryRepository {
	return &HistoryRepository{
		ledgerDB: ledgerDB,
		log:      log.With().Str("repo", "history").Logger(),
	}
}

// Append writes a history entry.
func (r *HistoryRepository) Append(entry domain.HistoryEntry) error {
	return insertHistory(r.ledgerDB, entry)
}

// AppendIn writes a history entry inside an open database transaction.
func (r *HistoryRepository) AppendIn(sqlTx *sql.Tx, entry domain.HistoryEntry) error {
	return insertHistory(sqlTx, entry)
}

// List returns all history entries, newest first.
func (r *HistoryRepository) List() ([]domain.HistoryEntry, error) {
	query := fmt.Sprintf("SELECT %s FROM history ORDER BY timestamp DESC, rowid DESC", historyColumns)
	return r.queryHistory(query)
}

// ListByAsset returns history entries for one asset, newest first.
func (r *HistoryRepository) ListByAsset(asset string) ([]domain.HistoryEntry, error) {
	query := fmt.Sprintf("SELECT %s FROM history WHERE asset = ? ORDER BY timestamp DESC, rowid DESC", historyColumns)
	return r.queryHistory(query, domain.NormalizeSymbol(asset))
}

// ListByTransaction returns history entries for one transaction id, newest first.
func (r *HistoryRepository) ListByTransaction(transactionID string) ([]domain.HistoryEntry, error) {
	query := fmt.Sprintf("SELECT %s FROM history WHERE transaction_id = ? ORDER BY timestamp DESC, rowid DESC", historyColumns)
	return r.queryHistory(query, transactionID)
}

func (r *HistoryRepository) queryHistory(query string, args ...interface{}) ([]domain.HistoryEntry, error) {
	rows, err := r.ledgerDB.Query(query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query history: %w", err)
	}
	defer rows.Close()

	var entries []domain.HistoryEntry
	for rows.Next() {
		entry, err := scanHistory(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan history entry: %w", err)
		}
		entries = append(entries, entry)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating history: %w", err)
	}

	return entries, nil
}

func insertHistory(e executor, entry domain.HistoryEntry) error {
	query := `
		INSERT INTO history
		(id, action, transaction_id, asset, type, destination_asset, source_asset,
		 quantity, price_usd, transaction_date, notes, timestamp)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`

	_, err := e.Exec(query,
		entry.ID,
		string(entry.Action),
		entry.TransactionID,
		entry.Asset,
		string(entry.Type),
		nullString(entry.DestinationAsset),
		nullString(entry.SourceAsset),
		entry.Quantity,
		entry.PriceUSD,
		nullString(entry.TransactionDate),
		nullString(entry.Notes),
		entry.Timestamp.UTC().Format(time.RFC3339),
	)
	if err != nil {
		return fmt.Errorf("failed to insert history entry: %w", err)
	}

	return nil
}

func scanHistory(rows *sql.Rows) (domain.HistoryEntry, error) {
	var entry domain.HistoryEntry
	var action, txType string
	var destAsset, srcAsset, txDate, notes sql.NullString
	var timestamp string

	err := rows.Scan(
		&entry.ID,
		&action,
		&entry.TransactionID,
		&entry.Asset,
		&txType,
		&destAsset,
		&srcAsset,
		&entry.Quantity,
		&entry.PriceUSD,
		&txDate,
		&notes,
		&timestamp,
	)
	if err != nil {
		return domain.HistoryEntry{}, err
	}

	entry.Action = domain.HistoryAction(action)
	entry.Type = domain.TransactionType(txType)
	entry.DestinationAsset = destAsset.String
	entry.SourceAsset = srcAsset.String
	entry.TransactionDate = txDate.String
	entry.Notes = notes.String
	entry.Timestamp, _ = time.Parse(time.RFC3339, timestamp)

	return entry, nil
}
