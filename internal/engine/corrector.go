package engine

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/Veraticus/the-spice-must-sort/internal/model"
	"github.com/Veraticus/the-spice-must-sort/internal/pattern"
	"github.com/Veraticus/the-spice-must-sort/internal/service"
)

// CorrectionStore is what manual corrections touch.
type CorrectionStore interface {
	service.TransactionStore
	service.CategoryStore
	RuleStore
}

// Correction is the outcome of a manual correction. At most one rule is set.
type Correction struct {
	Transaction     *model.Transaction
	MerchantRule    *model.MerchantRule
	DescriptionRule *model.DescriptionRule
}

// Corrector applies user corrections and optionally remembers them as manual rules.
type Corrector struct {
	store  CorrectionStore
	logger *slog.Logger
}

// NewCorrector creates a Corrector.
func NewCorrector(store CorrectionStore, logger *slog.Logger) *Corrector {
	if logger == nil {
		logger = slog.Default()
	}
	return &Corrector{store: store, logger: logger}
}

// Correct assigns categoryID to the transaction with source manual. When
// learn is set a manual rule is upserted: a merchant rule if the transaction
// has a merchant, otherwise a description rule when the extracted pattern is
// specific enough. Manual rules replace whatever rule held the same key.
func (c *Corrector) Correct(ctx context.Context, txnID string, categoryID int, learn bool) (*Correction, error) {
	if _, err := c.store.GetCategoryByID(ctx, categoryID); err != nil {
		return nil, fmt.Errorf("invalid category: %w", err)
	}

	txn, err := c.store.ReplaceTransaction(ctx, txnID, model.Categorization{
		CategoryID: categoryID,
		Source:     model.SourceManual,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to correct transaction %s: %w", txnID, err)
	}

	result := &Correction{Transaction: txn}
	c.logger.Info("transaction corrected",
		"transaction_id", txnID,
		"category_id", categoryID)

	if !learn {
		return result, nil
	}

	if merchant := strings.ToLower(strings.TrimSpace(txn.NormalizedMerchant)); merchant != "" {
		rule, err := c.store.CreateMerchantRule(ctx, merchant, categoryID, model.RuleSourceManual)
		if err != nil {
			return result, fmt.Errorf("transaction corrected but merchant rule failed: %w", err)
		}
		result.MerchantRule = rule
		return result, nil
	}

	p := pattern.ExtractPattern(txn.Description)
	if !pattern.IsLearnable(p) {
		c.logger.Info("description too generic for a rule",
			"transaction_id", txnID,
			"pattern", p)
		return result, nil
	}

	rule, err := c.store.CreateDescriptionRule(ctx, txn.AccountID, p, categoryID, model.RuleSourceManual)
	if err != nil {
		return result, fmt.Errorf("transaction corrected but description rule failed: %w", err)
	}
	result.DescriptionRule = rule
	return result, nil
}
