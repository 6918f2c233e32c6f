package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/Veraticus/the-spice-must-sort/internal/common"
	"github.com/Veraticus/the-spice-must-sort/internal/model"
)

const transactionColumns = `id, hash, account_id, date, description, normalized_merchant, amount,
	category_id, confidence_score, categorization_source, created_at`

// maxIDsPerQuery keeps IN lists under SQLite's bound parameter limit.
const maxIDsPerQuery = 500

// rowScanner is satisfied by *sql.Row and *sql.Rows.
type rowScanner interface {
	Scan(dest ...any) error
}

// SaveTransactions stores new transactions. Rows whose hash already exists are ignored.
func (s *SQLiteStorage) SaveTransactions(ctx context.Context, transactions []model.Transaction) error {
	if err := validateContext(ctx); err != nil {
		return err
	}
	if err := validateTransactions(transactions); err != nil {
		return err
	}

	return s.withTx(ctx, func(tx *sql.Tx) error {
		stmt, err := tx.PrepareContext(ctx, `
			INSERT OR IGNORE INTO transactions (`+transactionColumns+`)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`)
		if err != nil {
			return fmt.Errorf("failed to prepare statement: %w", err)
		}
		defer func() { _ = stmt.Close() }()

		now := s.now()
		for _, txn := range transactions {
			if txn.Hash == "" {
				txn.Hash = txn.GenerateHash()
			}
			if txn.CreatedAt.IsZero() {
				txn.CreatedAt = now
			}
			if _, err := stmt.ExecContext(ctx, transactionArgs(&txn)...); err != nil {
				return fmt.Errorf("failed to insert transaction %s: %w", txn.ID, mapConstraintError(err))
			}
		}
		return nil
	})
}

// GetTransaction returns a transaction by ID.
func (s *SQLiteStorage) GetTransaction(ctx context.Context, id string) (*model.Transaction, error) {
	if err := validateContext(ctx); err != nil {
		return nil, err
	}
	if err := validateString(id, "id"); err != nil {
		return nil, err
	}
	return getTransactionTx(ctx, s.db, id)
}

// GetTransactionsByIDs returns the transactions that exist among ids, in the order given.
func (s *SQLiteStorage) GetTransactionsByIDs(ctx context.Context, ids []string) ([]model.Transaction, error) {
	if err := validateContext(ctx); err != nil {
		return nil, err
	}

	found := make(map[string]model.Transaction, len(ids))
	for start := 0; start < len(ids); start += maxIDsPerQuery {
		end := min(start+maxIDsPerQuery, len(ids))
		chunk := ids[start:end]

		args := make([]any, len(chunk))
		for i, id := range chunk {
			args[i] = id
		}
		placeholders := strings.TrimSuffix(strings.Repeat("?,", len(chunk)), ",")

		txns, err := s.queryTransactions(ctx,
			`SELECT `+transactionColumns+` FROM transactions WHERE id IN (`+placeholders+`)`, args...)
		if err != nil {
			return nil, err
		}
		for _, txn := range txns {
			found[txn.ID] = txn
		}
	}

	result := make([]model.Transaction, 0, len(found))
	seen := make(map[string]bool, len(found))
	for _, id := range ids {
		if txn, ok := found[id]; ok && !seen[id] {
			seen[id] = true
			result = append(result, txn)
		}
	}
	return result, nil
}

// GetUnclassifiedTransactions returns every transaction without a category, oldest first.
func (s *SQLiteStorage) GetUnclassifiedTransactions(ctx context.Context) ([]model.Transaction, error) {
	if err := validateContext(ctx); err != nil {
		return nil, err
	}
	return s.queryTransactions(ctx,
		`SELECT `+transactionColumns+` FROM transactions WHERE category_id IS NULL ORDER BY date, id`)
}

// CountUnclassifiedTransactions counts transactions without a category.
func (s *SQLiteStorage) CountUnclassifiedTransactions(ctx context.Context) (int, error) {
	if err := validateContext(ctx); err != nil {
		return 0, err
	}

	var count int
	if err := s.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM transactions WHERE category_id IS NULL`).Scan(&count); err != nil {
		return 0, fmt.Errorf("failed to count unclassified transactions: %w", err)
	}
	return count, nil
}

// ReplaceTransaction applies c to a transaction by reading the full row,
// merging, deleting the row by primary key and inserting the merged row in a
// single SQL transaction. In-place UPDATEs are avoided on this table.
func (s *SQLiteStorage) ReplaceTransaction(ctx context.Context, id string, c model.Categorization) (*model.Transaction, error) {
	if err := validateContext(ctx); err != nil {
		return nil, err
	}
	if err := validateString(id, "id"); err != nil {
		return nil, err
	}

	var merged *model.Transaction
	err := s.withTx(ctx, func(tx *sql.Tx) error {
		txn, err := getTransactionTx(ctx, tx, id)
		if err != nil {
			return err
		}

		txn.Apply(c)
		if err := txn.Validate(); err != nil {
			return fmt.Errorf("%w: %w", ErrInvalidTransaction, err)
		}

		res, err := tx.ExecContext(ctx, `DELETE FROM transactions WHERE id = ?`, id)
		if err != nil {
			return fmt.Errorf("failed to delete transaction: %w", err)
		}
		if n, _ := res.RowsAffected(); n != 1 {
			return fmt.Errorf("delete affected %d rows: %w", n, common.ErrNotFound)
		}

		if _, err := tx.ExecContext(ctx,
			`INSERT INTO transactions (`+transactionColumns+`) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
			transactionArgs(txn)...); err != nil {
			return fmt.Errorf("failed to reinsert transaction: %w", mapConstraintError(err))
		}

		merged = txn
		return nil
	})
	if err != nil {
		return nil, err
	}
	return merged, nil
}

type queryRower interface {
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

func getTransactionTx(ctx context.Context, q queryRower, id string) (*model.Transaction, error) {
	row := q.QueryRowContext(ctx, `SELECT `+transactionColumns+` FROM transactions WHERE id = ?`, id)
	txn, err := scanTransaction(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("transaction %s: %w", id, common.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get transaction: %w", err)
	}
	return txn, nil
}

func (s *SQLiteStorage) queryTransactions(ctx context.Context, query string, args ...any) ([]model.Transaction, error) {
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query transactions: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var transactions []model.Transaction
	for rows.Next() {
		txn, err := scanTransaction(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan transaction: %w", err)
		}
		transactions = append(transactions, *txn)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating transactions: %w", err)
	}
	return transactions, nil
}

func scanTransaction(row rowScanner) (*model.Transaction, error) {
	var (
		txn        model.Transaction
		merchant   sql.NullString
		categoryID sql.NullInt64
		confidence sql.NullFloat64
		source     string
	)

	if err := row.Scan(&txn.ID, &txn.Hash, &txn.AccountID, &txn.Date, &txn.Description, &merchant,
		&txn.Amount, &categoryID, &confidence, &source, &txn.CreatedAt); err != nil {
		return nil, err
	}

	txn.NormalizedMerchant = merchant.String
	txn.Source = model.CategorizationSource(source)
	if categoryID.Valid {
		id := int(categoryID.Int64)
		txn.CategoryID = &id
	}
	if confidence.Valid {
		c := confidence.Float64
		txn.ConfidenceScore = &c
	}
	return &txn, nil
}

func transactionArgs(txn *model.Transaction) []any {
	source := txn.Source
	if source == "" {
		source = model.SourceNone
	}

	var merchant, categoryID, confidence any
	if txn.NormalizedMerchant != "" {
		merchant = txn.NormalizedMerchant
	}
	if txn.CategoryID != nil {
		categoryID = *txn.CategoryID
	}
	if txn.ConfidenceScore != nil {
		confidence = *txn.ConfidenceScore
	}

	return []any{
		txn.ID, txn.Hash, txn.AccountID, txn.Date.UTC(), txn.Description, merchant, txn.Amount,
		categoryID, confidence, string(source), txn.CreatedAt.UTC(),
	}
}
