package engine

import (
	"context"
	"errors"
	"log/slog"
	"strings"

	"github.com/Veraticus/the-spice-must-sort/internal/common"
	"github.com/Veraticus/the-spice-must-sort/internal/model"
	"github.com/Veraticus/the-spice-must-sort/internal/pattern"
)

// LearnCandidate is an accepted AI result together with the transaction it categorized.
type LearnCandidate struct {
	Transaction model.Transaction
	CategoryID  int
	Confidence  float64
}

// LearnStats summarizes one learning pass.
type LearnStats struct {
	MerchantRulesCreated    int
	DescriptionRulesCreated int
	Skipped                 int // Below threshold, unlearnable or already covered
	Failed                  int
}

// Created returns the number of rules written.
func (s LearnStats) Created() int {
	return s.MerchantRulesCreated + s.DescriptionRulesCreated
}

// RuleLearner turns high-confidence AI results into ai-sourced rules. It only
// ever inserts: an existing rule for the same key, whatever its source, wins.
type RuleLearner struct {
	store     RuleStore
	logger    *slog.Logger
	threshold float64
}

// NewRuleLearner creates a learner that considers results at or above threshold.
func NewRuleLearner(store RuleStore, threshold float64, logger *slog.Logger) *RuleLearner {
	if logger == nil {
		logger = slog.Default()
	}
	return &RuleLearner{store: store, threshold: threshold, logger: logger}
}

type descriptionKey struct {
	accountID string
	pattern   string
}

// Learn processes the accepted results of one AI sub-batch.
func (l *RuleLearner) Learn(ctx context.Context, candidates []LearnCandidate) LearnStats {
	var stats LearnStats

	var (
		merchants      = make(map[string]LearnCandidate)
		merchantOrder  []string
		descriptions   = make(map[descriptionKey]LearnCandidate)
		descriptionOrd []descriptionKey
	)

	for _, c := range candidates {
		if c.Confidence < l.threshold {
			stats.Skipped++
			continue
		}

		if merchant := strings.ToLower(strings.TrimSpace(c.Transaction.NormalizedMerchant)); merchant != "" {
			best, seen := merchants[merchant]
			if !seen {
				merchantOrder = append(merchantOrder, merchant)
				merchants[merchant] = c
				continue
			}
			stats.Skipped++
			if c.Confidence > best.Confidence {
				merchants[merchant] = c
			}
			continue
		}

		p := pattern.ExtractPattern(c.Transaction.Description)
		if !pattern.IsLearnable(p) {
			l.logger.Debug("description pattern too generic to learn",
				"transaction_id", c.Transaction.ID,
				"pattern", p)
			stats.Skipped++
			continue
		}

		key := descriptionKey{accountID: c.Transaction.AccountID, pattern: p}
		best, seen := descriptions[key]
		if !seen {
			descriptionOrd = append(descriptionOrd, key)
			descriptions[key] = c
			continue
		}
		stats.Skipped++
		if c.Confidence > best.Confidence {
			descriptions[key] = c
		}
	}

	for _, merchant := range merchantOrder {
		l.learnMerchant(ctx, merchant, merchants[merchant], &stats)
	}
	for _, key := range descriptionOrd {
		l.learnDescription(ctx, key, descriptions[key], &stats)
	}

	if stats.Created() > 0 {
		l.logger.Info("learned rules from AI results",
			"merchant_rules", stats.MerchantRulesCreated,
			"description_rules", stats.DescriptionRulesCreated)
	}
	return stats
}

func (l *RuleLearner) learnMerchant(ctx context.Context, merchant string, c LearnCandidate, stats *LearnStats) {
	existing, err := l.store.GetMerchantRuleByPattern(ctx, merchant)
	switch {
	case err == nil:
		l.logger.Debug("merchant rule already exists",
			"pattern", merchant,
			"rule_id", existing.ID,
			"source", existing.Source)
		stats.Skipped++
		return
	case !errors.Is(err, common.ErrNotFound):
		l.logger.Warn("failed to look up merchant rule", "pattern", merchant, "error", err)
		stats.Failed++
		return
	}

	rule, err := l.store.CreateMerchantRule(ctx, merchant, c.CategoryID, model.RuleSourceAI)
	if err != nil {
		if errors.Is(err, common.ErrDuplicateEntry) {
			stats.Skipped++
			return
		}
		l.logger.Warn("failed to create merchant rule", "pattern", merchant, "error", err)
		stats.Failed++
		return
	}

	l.logger.Debug("created merchant rule",
		"rule_id", rule.ID,
		"pattern", rule.MerchantPattern,
		"category_id", rule.CategoryID,
		"confidence", c.Confidence)
	stats.MerchantRulesCreated++
}

func (l *RuleLearner) learnDescription(ctx context.Context, key descriptionKey, c LearnCandidate, stats *LearnStats) {
	existing, err := l.store.GetDescriptionRule(ctx, key.accountID, key.pattern)
	switch {
	case err == nil:
		l.logger.Debug("description rule already exists",
			"account_id", key.accountID,
			"pattern", key.pattern,
			"rule_id", existing.ID)
		stats.Skipped++
		return
	case !errors.Is(err, common.ErrNotFound):
		l.logger.Warn("failed to look up description rule",
			"account_id", key.accountID, "pattern", key.pattern, "error", err)
		stats.Failed++
		return
	}

	rule, err := l.store.CreateDescriptionRule(ctx, key.accountID, key.pattern, c.CategoryID, model.RuleSourceAI)
	if err != nil {
		if errors.Is(err, common.ErrDuplicateEntry) {
			stats.Skipped++
			return
		}
		l.logger.Warn("failed to create description rule",
			"account_id", key.accountID, "pattern", key.pattern, "error", err)
		stats.Failed++
		return
	}

	l.logger.Debug("created description rule",
		"rule_id", rule.ID,
		"account_id", rule.AccountID,
		"pattern", rule.DescriptionPattern,
		"category_id", rule.CategoryID,
		"confidence", c.Confidence)
	stats.DescriptionRulesCreated++
}
