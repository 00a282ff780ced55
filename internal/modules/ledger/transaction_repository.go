// Package ledger owns the durable transaction records and the append-only
// history log in ledger.db.
package ledger

import (
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"cryptofolio/internal/domain"
)

// ErrNotFound is returned when a transaction id does not exist.
var ErrNotFound = errors.New("transaction not found")

// executor abstracts *sql.DB and *sql.Tx so repository writes can join a
// surrounding database transaction.
type executor interface {
	Exec(query string, args ...interface{}) (sql.Result, error)
	Query(query string, args ...interface{}) (*sql.Rows, error)
	QueryRow(query string, args ...interface{}) *sql.Row
}

// transactionColumns avoids SELECT *; order must match scanTransaction.
const transactionColumns = `id, asset, type, quantity, price_usd, destination_asset, source_asset, transaction_date, notes, created_at, updated_at`

// TransactionRepository handles transaction record database operations.
type TransactionRepository struct {
	ledgerDB *sql.DB
	log      zerolog.Logger
}

// NewTransactionRepository creates a new transaction repository
func NewTransactionRepository(ledgerDB *sql.DB, log zerolog.Logger) *TransactionRepository {
	return &TransactionRepository{
		ledgerDB: ledgerDB,
		log:      log.With().Str("repo", "transaction").Logger(),
	}
}

// List returns all transactions, newest first. Presentation order only - the
// aggregator makes no ordering assumption.
func (r *TransactionRepository) List() ([]domain.Transaction, error) {
	query := fmt.Sprintf("SELECT %s FROM transactions ORDER BY created_at DESC, rowid DESC", transactionColumns)

	rows, err := r.ledgerDB.Query(query)
	if err != nil {
		return nil, fmt.Errorf("failed to query transactions: %w", err)
	}
	defer rows.Close()

	var txs []domain.Transaction
	for rows.Next() {
		tx, err := scanTransaction(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan transaction: %w", err)
		}
		txs = append(txs, tx)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating transactions: %w", err)
	}

	return txs, nil
}

// ListChronological returns all transactions oldest first. This is the order
// the position fold wants: disposals are costed against the average built up
// by the acquisitions before them.
func (r *TransactionRepository) ListChronological() ([]domain.Transaction, error) {
	query := fmt.Sprintf("SELECT %s FROM transactions ORDER BY transaction_date ASC, created_at ASC, rowid ASC", transactionColumns)

	rows, err := r.ledgerDB.Query(query)
	if err != nil {
		return nil, fmt.Errorf("failed to query transactions: %w", err)
	}
	defer rows.Close()

	var txs []domain.Transaction
	for rows.Next() {
		tx, err := scanTransaction(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan transaction: %w", err)
		}
		txs = append(txs, tx)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating transactions: %w", err)
	}

	return txs, nil
}

// Get returns one transaction by id.
func (r *TransactionRepository) Get(id string) (domain.Transaction, error) {
	return getTransaction(r.ledgerDB, id)
}

// Create inserts a new transaction record.
func (r *TransactionRepository) Create(tx domain.Transaction) error {
	return insertTransaction(r.ledgerDB, tx)
}

// CreateIn inserts a new transaction record inside an open database transaction.
func (r *TransactionRepository) CreateIn(sqlTx *sql.Tx, tx domain.Transaction) error {
	return insertTransaction(sqlTx, tx)
}

// Update replaces the mutable fields of a transaction record.
func (r *TransactionRepository) Update(tx domain.Transaction) error {
	return updateTransaction(r.ledgerDB, tx)
}

// UpdateIn replaces the mutable fields inside an open database transaction.
func (r *TransactionRepository) UpdateIn(sqlTx *sql.Tx, tx domain.Transaction) error {
	return updateTransaction(sqlTx, tx)
}

// Delete removes a transaction record by id.
func (r *TransactionRepository) Delete(id string) error {
	return deleteTransaction(r.ledgerDB, id)
}

// DeleteIn removes a transaction record inside an open database transaction.
func (r *TransactionRepository) DeleteIn(sqlTx *sql.Tx, id string) error {
	return deleteTransaction(sqlTx, id)
}

// GetIn returns one transaction by id inside an open database transaction.
func (r *TransactionRepository) GetIn(sqlTx *sql.Tx, id string) (domain.Transaction, error) {
	return getTransaction(sqlTx, id)
}

func insertTransaction(e executor, tx domain.Transaction) error {
	query := `
		INSERT INTO transactions
		(id, asset, type, quantity, price_usd, destination_asset, source_asset,
		 transaction_date, notes, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`

	_, err := e.Exec(query,
		tx.ID,
		tx.Asset,
		string(tx.Type),
		tx.Quantity,
		tx.PriceUSD,
		nullString(tx.DestinationAsset),
		nullString(tx.SourceAsset),
		nullString(tx.TransactionDate),
		nullString(tx.Notes),
		tx.CreatedAt.UTC().Format(time.RFC3339),
		tx.UpdatedAt.UTC().Format(time.RFC3339),
	)
	if err != nil {
		return fmt.Errorf("failed to insert transaction: %w", err)
	}

	return nil
}

func updateTransaction(e executor, tx domain.Transaction) error {
	query := `
		UPDATE transactions
		SET asset = ?, type = ?, quantity = ?, price_usd = ?,
		    destination_asset = ?, source_asset = ?, transaction_date = ?,
		    notes = ?, updated_at = ?
		WHERE id = ?
	`

	result, err := e.Exec(query,
		tx.Asset,
		string(tx.Type),
		tx.Quantity,
		tx.PriceUSD,
		nullString(tx.DestinationAsset),
		nullString(tx.SourceAsset),
		nullString(tx.TransactionDate),
		nullString(tx.Notes),
		tx.UpdatedAt.UTC().Format(time.RFC3339),
		tx.ID,
	)
	if err != nil {
		return fmt.Errorf("failed to update transaction: %w", err)
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if affected == 0 {
		return ErrNotFound
	}

	return nil
}

func deleteTransaction(e executor, id string) error {
	result, err := e.Exec("DELETE FROM transactions WHERE id = ?", id)
	if err != nil {
		return fmt.Errorf("failed to delete transaction: %w", err)
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if affected == 0 {
		return ErrNotFound
	}

	return nil
}

func getTransaction(e executor, id string) (domain.Transaction, error) {
	query := fmt.Sprintf("SELECT %s FROM transactions WHERE id = ?", transactionColumns)

	row := e.QueryRow(query, id)
	tx, err := scanTransactionRow(row)
	if err == sql.ErrNoRows {
		return domain.Transaction{}, ErrNotFound
	}
	if err != nil {
		return domain.Transaction{}, fmt.Errorf("failed to get transaction: %w", err)
	}

	return tx, nil
}

// rowScanner is satisfied by both *sql.Row and *sql.Rows.
type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanTransaction(rows *sql.Rows) (domain.Transaction, error) {
	return scanTransactionFields(rows)
}

func scanTransactionRow(row *sql.Row) (domain.Transaction, error) {
	return scanTransactionFields(row)
}

func scanTransactionFields(s rowScanner) (domain.Transaction, error) {
	var tx domain.Transaction
	var txType string
	var destAsset, srcAsset, txDate, notes sql.NullString
	var createdAt, updatedAt string

	err := s.Scan(
		&tx.ID,
		&tx.Asset,
		&txType,
		&tx.Quantity,
		&tx.PriceUSD,
		&destAsset,
		&srcAsset,
		&txDate,
		&notes,
		&createdAt,
		&updatedAt,
	)
	if err != nil {
		return domain.Transaction{}, err
	}

	tx.Type = domain.TransactionType(txType)
	tx.DestinationAsset = destAsset.String
	tx.SourceAsset = srcAsset.String
	tx.TransactionDate = txDate.String
	tx.Notes = notes.String
	tx.CreatedAt, _ = time.Parse(time.RFC3339, createdAt)
	tx.UpdatedAt, _ = time.Parse(time.RFC3339, updatedAt)

	return tx, nil
}

// nullString converts empty strings to NULL for optional columns
func nullString(s string) interface{} {
	if s == "" {
		return nil
	}
	return s
}
