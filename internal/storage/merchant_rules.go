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

const merchantRuleColumns = `id, merchant_pattern, category_id, source, created_at`

// CreateMerchantRule stores a merchant rule. Manual rules overwrite the
// category and timestamp of an existing rule with the same pattern; ai rules
// are insert-only and report common.ErrDuplicateEntry instead.
func (s *SQLiteStorage) CreateMerchantRule(ctx context.Context, merchantPattern string, categoryID int, source model.RuleSource) (*model.MerchantRule, error) {
	if err := validateContext(ctx); err != nil {
		return nil, err
	}
	p, err := normalizeRulePattern(merchantPattern)
	if err != nil {
		return nil, err
	}
	if err := validateRuleSource(source); err != nil {
		return nil, err
	}

	query := `INSERT INTO merchant_rules (merchant_pattern, category_id, source, created_at) VALUES (?, ?, ?, ?)`
	if source == model.RuleSourceManual {
		query += ` ON CONFLICT(merchant_pattern) DO UPDATE SET
			category_id = excluded.category_id,
			created_at = excluded.created_at`
	}

	if _, err := s.db.ExecContext(ctx, query, p, categoryID, string(source), s.now()); err != nil {
		return nil, fmt.Errorf("failed to create merchant rule %q: %w", p, mapConstraintError(err))
	}

	return s.GetMerchantRuleByPattern(ctx, p)
}

// FindMerchantRule returns the most recently created rule whose pattern is a
// case-insensitive substring of normalizedMerchant, or nil if none matches.
func (s *SQLiteStorage) FindMerchantRule(ctx context.Context, normalizedMerchant string) (*model.MerchantRule, error) {
	if err := validateContext(ctx); err != nil {
		return nil, err
	}
	if strings.TrimSpace(normalizedMerchant) == "" {
		return nil, nil
	}

	matcher, err := s.MerchantMatcher(ctx)
	if err != nil {
		return nil, err
	}
	return matcher.Match(normalizedMerchant), nil
}

// MerchantMatcher loads every merchant rule, newest first, into a matcher.
// The matcher does not see rules created after it was loaded.
func (s *SQLiteStorage) MerchantMatcher(ctx context.Context) (pattern.MerchantMatcher, error) {
	if err := validateContext(ctx); err != nil {
		return nil, err
	}

	rules, err := s.queryMerchantRules(ctx,
		`SELECT `+merchantRuleColumns+` FROM merchant_rules ORDER BY created_at DESC, id DESC`)
	if err != nil {
		return nil, err
	}
	return pattern.NewMerchantMatcher(rules), nil
}

// GetMerchantRuleByPattern returns the rule with exactly this pattern.
func (s *SQLiteStorage) GetMerchantRuleByPattern(ctx context.Context, merchantPattern string) (*model.MerchantRule, error) {
	if err := validateContext(ctx); err != nil {
		return nil, err
	}
	p, err := normalizeRulePattern(merchantPattern)
	if err != nil {
		return nil, err
	}

	row := s.db.QueryRowContext(ctx,
		`SELECT `+merchantRuleColumns+` FROM merchant_rules WHERE merchant_pattern = ?`, p)
	rule, err := scanMerchantRule(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("merchant rule %q: %w", p, common.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get merchant rule: %w", err)
	}
	return rule, nil
}

// DeleteMerchantRule removes a merchant rule by ID.
func (s *SQLiteStorage) DeleteMerchantRule(ctx context.Context, id int64) error {
	if err := validateContext(ctx); err != nil {
		return err
	}

	res, err := s.db.ExecContext(ctx, `DELETE FROM merchant_rules WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("failed to delete merchant rule: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("merchant rule %d: %w", id, common.ErrNotFound)
	}
	return nil
}

// ListMerchantRules returns a page of rules, newest first, and the total matching count.
func (s *SQLiteStorage) ListMerchantRules(ctx context.Context, filter service.RuleFilter, page service.Page) ([]model.MerchantRule, int, error) {
	if err := validateContext(ctx); err != nil {
		return nil, 0, err
	}
	page = page.Normalize()

	where, args := ruleFilterClause(filter, "merchant_pattern", false)

	var total int
	if err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM merchant_rules`+where, args...).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("failed to count merchant rules: %w", err)
	}

	rules, err := s.queryMerchantRules(ctx,
		`SELECT `+merchantRuleColumns+` FROM merchant_rules`+where+
			` ORDER BY created_at DESC, id DESC LIMIT ? OFFSET ?`,
		append(args, page.Limit, page.Offset)...)
	if err != nil {
		return nil, 0, err
	}
	return rules, total, nil
}

func (s *SQLiteStorage) queryMerchantRules(ctx context.Context, query string, args ...any) ([]model.MerchantRule, error) {
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query merchant rules: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var rules []model.MerchantRule
	for rows.Next() {
		rule, err := scanMerchantRule(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan merchant rule: %w", err)
		}
		rules = append(rules, *rule)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating merchant rules: %w", err)
	}
	return rules, nil
}

func scanMerchantRule(row rowScanner) (*model.MerchantRule, error) {
	var (
		rule   model.MerchantRule
		source string
	)
	if err := row.Scan(&rule.ID, &rule.MerchantPattern, &rule.CategoryID, &source, &rule.CreatedAt); err != nil {
		return nil, err
	}
	rule.Source = model.RuleSource(source)
	return &rule, nil
}

// ruleFilterClause builds a WHERE clause shared by both rule tables.
func ruleFilterClause(filter service.RuleFilter, patternColumn string, scoped bool) (string, []any) {
	var (
		conds []string
		args  []any
	)

	if filter.CategoryID != nil {
		conds = append(conds, "category_id = ?")
		args = append(args, *filter.CategoryID)
	}
	if filter.Source != "" {
		conds = append(conds, "source = ?")
		args = append(args, string(filter.Source))
	}
	if filter.Search != "" {
		conds = append(conds, "instr("+patternColumn+", ?) > 0")
		args = append(args, strings.ToLower(filter.Search))
	}
	if scoped && filter.AccountID != "" {
		conds = append(conds, "account_id = ?")
		args = append(args, filter.AccountID)
	}

	if len(conds) == 0 {
		return "", nil
	}
	return " WHERE " + strings.Join(conds, " AND "), args
}
