package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/Veraticus/the-spice-must-sort/internal/common"
	"github.com/Veraticus/the-spice-must-sort/internal/model"
)

const batchColumns = `id, transaction_count, success_count, failure_count, skipped_count,
	rule_match_count, desc_rule_match_count, ai_match_count, auto_rules_created,
	duration_ms, started_at, completed_at, error_message`

// CreateBatch records the start of a categorization run.
func (s *SQLiteStorage) CreateBatch(ctx context.Context, batch *model.CategorizationBatch) error {
	if err := validateContext(ctx); err != nil {
		return err
	}
	if batch == nil {
		return fmt.Errorf("%w: batch", ErrNilParameter)
	}
	if err := validateString(batch.ID, "batch.ID"); err != nil {
		return err
	}
	if batch.StartedAt.IsZero() {
		batch.StartedAt = s.now()
	}

	if _, err := s.db.ExecContext(ctx, `
		INSERT INTO categorization_batches (id, transaction_count, started_at)
		VALUES (?, ?, ?)`, batch.ID, batch.TransactionCount, batch.StartedAt.UTC()); err != nil {
		return fmt.Errorf("failed to create batch %s: %w", batch.ID, mapConstraintError(err))
	}
	return nil
}

// CompleteBatch writes the final counters, duration and error of a run.
func (s *SQLiteStorage) CompleteBatch(ctx context.Context, batch *model.CategorizationBatch) error {
	if err := validateContext(ctx); err != nil {
		return err
	}
	if batch == nil {
		return fmt.Errorf("%w: batch", ErrNilParameter)
	}

	var completedAt any
	if batch.CompletedAt != nil {
		completedAt = batch.CompletedAt.UTC()
	}

	res, err := s.db.ExecContext(ctx, `
		UPDATE categorization_batches SET
			transaction_count = ?, success_count = ?, failure_count = ?, skipped_count = ?,
			rule_match_count = ?, desc_rule_match_count = ?, ai_match_count = ?,
			auto_rules_created = ?, duration_ms = ?, completed_at = ?, error_message = ?
		WHERE id = ?`,
		batch.TransactionCount, batch.SuccessCount, batch.FailureCount, batch.SkippedCount,
		batch.RuleMatchCount, batch.DescRuleMatchCount, batch.AIMatchCount,
		batch.AutoRulesCreated, batch.DurationMS, completedAt, batch.ErrorMessage,
		batch.ID)
	if err != nil {
		return fmt.Errorf("failed to complete batch %s: %w", batch.ID, err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("batch %s: %w", batch.ID, common.ErrNotFound)
	}
	return nil
}

// GetBatch returns a persisted batch by ID.
func (s *SQLiteStorage) GetBatch(ctx context.Context, id string) (*model.CategorizationBatch, error) {
	if err := validateContext(ctx); err != nil {
		return nil, err
	}

	row := s.db.QueryRowContext(ctx, `SELECT `+batchColumns+` FROM categorization_batches WHERE id = ?`, id)
	batch, err := scanBatch(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("batch %s: %w", id, common.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get batch: %w", err)
	}
	return batch, nil
}

// ListBatches returns the most recent batches first.
func (s *SQLiteStorage) ListBatches(ctx context.Context, limit int) ([]model.CategorizationBatch, error) {
	if err := validateContext(ctx); err != nil {
		return nil, err
	}
	if limit <= 0 {
		limit = 20
	}

	rows, err := s.db.QueryContext(ctx,
		`SELECT `+batchColumns+` FROM categorization_batches ORDER BY started_at DESC LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query batches: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var batches []model.CategorizationBatch
	for rows.Next() {
		batch, err := scanBatch(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan batch: %w", err)
		}
		batches = append(batches, *batch)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating batches: %w", err)
	}
	return batches, nil
}

func scanBatch(row rowScanner) (*model.CategorizationBatch, error) {
	var (
		b           model.CategorizationBatch
		completedAt sql.NullTime
	)
	if err := row.Scan(&b.ID, &b.TransactionCount, &b.SuccessCount, &b.FailureCount, &b.SkippedCount,
		&b.RuleMatchCount, &b.DescRuleMatchCount, &b.AIMatchCount, &b.AutoRulesCreated,
		&b.DurationMS, &b.StartedAt, &completedAt, &b.ErrorMessage); err != nil {
		return nil, err
	}
	if completedAt.Valid {
		t := completedAt.Time
		b.CompletedAt = &t
	}
	return &b, nil
}
