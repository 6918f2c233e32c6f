package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/Veraticus/the-spice-must-sort/internal/common"
	"github.com/Veraticus/the-spice-must-sort/internal/model"
	"github.com/Veraticus/the-spice-must-sort/internal/pattern"
	"github.com/Veraticus/the-spice-must-sort/internal/service"
)

const descriptionRuleColumns = `id, account_id, description_pattern, category_id, source, created_at`

// CreateDescriptionRule stores an account-scoped description rule with the
// same manual-upsert, ai-insert-only contract as CreateMerchantRule.
func (s *SQLiteStorage) CreateDescriptionRule(ctx context.Context, accountID, descriptionPattern string, categoryID int, source model.RuleSource) (*model.DescriptionRule, error) {
	if err := validateContext(ctx); err != nil {
		return nil, err
	}
	if err := validateString(accountID, "accountID"); err != nil {
		return nil, err
	}
	p, err := normalizeRulePattern(descriptionPattern)
	if err != nil {
		return nil, err
	}
	if err := validateRuleSource(source); err != nil {
		return nil, err
	}

	query := `INSERT INTO description_rules (account_id, description_pattern, category_id, source, created_at)
		VALUES (?, ?, ?, ?, ?)`
	if source == model.RuleSourceManual {
		query += ` ON CONFLICT(account_id, description_pattern) DO UPDATE SET
			category_id = excluded.category_id,
			created_at = excluded.created_at`
	}

	if _, err := s.db.ExecContext(ctx, query, accountID, p, categoryID, string(source), s.now()); err != nil {
		return nil, fmt.Errorf("failed to create description rule %q: %w", p, mapConstraintError(err))
	}

	return s.GetDescriptionRule(ctx, accountID, p)
}

// FindDescriptionRule returns the most recently created rule of accountID
// whose wildcard pattern matches the whole description, or nil.
func (s *SQLiteStorage) FindDescriptionRule(ctx context.Context, description, accountID string) (*model.DescriptionRule, error) {
	if err := validateContext(ctx); err != nil {
		return nil, err
	}
	if strings.TrimSpace(description) == "" || accountID == "" {
		return nil, nil
	}

	matcher, err := s.DescriptionMatcher(ctx, accountID)
	if err != nil {
		return nil, err
	}
	return matcher.Match(description), nil
}

// DescriptionMatcher loads and compiles accountID's description rules,
// newest first. Rules of other accounts are never loaded.
func (s *SQLiteStorage) DescriptionMatcher(ctx context.Context, accountID string) (pattern.DescriptionMatcher, error) {
	if err := validateContext(ctx); err != nil {
		return nil, err
	}

	rules, err := s.queryDescriptionRules(ctx,
		`SELECT `+descriptionRuleColumns+` FROM description_rules
		WHERE account_id = ? ORDER BY created_at DESC, id DESC`, accountID)
	if err != nil {
		return nil, err
	}
	return pattern.NewDescriptionMatcher(rules), nil
}

// GetDescriptionRule returns the rule stored for exactly (accountID, pattern).
func (s *SQLiteStorage) GetDescriptionRule(ctx context.Context, accountID, descriptionPattern string) (*model.DescriptionRule, error) {
	if err := validateContext(ctx); err != nil {
		return nil, err
	}
	p, err := normalizeRulePattern(descriptionPattern)
	if err != nil {
		return nil, err
	}

	row := s.db.QueryRowContext(ctx, `SELECT `+descriptionRuleColumns+` FROM description_rules
		WHERE account_id = ? AND description_pattern = ?`, accountID, p)
	rule, err := scanDescriptionRule(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("description rule %q for account %s: %w", p, accountID, common.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get description rule: %w", err)
	}
	return rule, nil
}

// DeleteDescriptionRule removes a description rule by ID.
func (s *SQLiteStorage) DeleteDescriptionRule(ctx context.Context, id int64) error {
	if err := validateContext(ctx); err != nil {
		return err
	}

	res, err := s.db.ExecContext(ctx, `DELETE FROM description_rules WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("failed to delete description rule: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("description rule %d: %w", id, common.ErrNotFound)
	}
	return nil
}

// ListDescriptionRules returns a page of rules, newest first, and the total matching count.
func (s *SQLiteStorage) ListDescriptionRules(ctx context.Context, filter service.RuleFilter, page service.Page) ([]model.DescriptionRule, int, error) {
	if err := validateContext(ctx); err != nil {
		return nil, 0, err
	}
	page = page.Normalize()

	where, args := ruleFilterClause(filter, "description_pattern", true)

	var total int
	if err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM description_rules`+where, args...).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("failed to count description rules: %w", err)
	}

	rules, err := s.queryDescriptionRules(ctx,
		`SELECT `+descriptionRuleColumns+` FROM description_rules`+where+
			` ORDER BY created_at DESC, id DESC LIMIT ? OFFSET ?`,
		append(args, page.Limit, page.Offset)...)
	if err != nil {
		return nil, 0, err
	}
	return rules, total, nil
}

func (s *SQLiteStorage) queryDescriptionRules(ctx context.Context, query string, args ...any) ([]model.DescriptionRule, error) {
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query description rules: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var rules []model.DescriptionRule
	for rows.Next() {
		rule, err := scanDescriptionRule(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan description rule: %w", err)
		}
		rules = append(rules, *rule)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating description rules: %w", err)
	}
	return rules, nil
}

func scanDescriptionRule(row rowScanner) (*model.DescriptionRule, error) {
	var (
		rule   model.DescriptionRule
		source string
	)
	if err := row.Scan(&rule.ID, &rule.AccountID, &rule.DescriptionPattern, &rule.CategoryID, &source, &rule.CreatedAt); err != nil {
		return nil, err
	}
	rule.Source = model.RuleSource(source)
	return &rule, nil
}
