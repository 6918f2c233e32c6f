// Package engine runs the three-tier categorization pipeline: merchant rules,
// account-scoped description rules, then the AI classifier, learning new
// rules from confident AI answers as it goes.
package engine

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/Veraticus/the-spice-must-sort/internal/common"
	"github.com/Veraticus/the-spice-must-sort/internal/config"
	"github.com/Veraticus/the-spice-must-sort/internal/llm"
	"github.com/Veraticus/the-spice-must-sort/internal/model"
	"github.com/Veraticus/the-spice-must-sort/internal/pattern"
	"github.com/google/uuid"
)

// RunOptions configures a single categorization run.
type RunOptions struct {
	BatchID   string // Generated when empty
	BatchSize int    // Clamped to the configured bounds; zero uses the default
}

// Progress is a snapshot of a run, reported after the rule tier and after
// every AI sub-batch.
type Progress struct {
	Counts    model.BatchCounts
	Processed int
	Total     int
}

// ProgressFunc receives progress snapshots. It is called from the goroutine
// executing Run.
type ProgressFunc func(Progress)

// Categorizer orchestrates rule matching, AI classification and rule learning.
type Categorizer struct {
	store      Store
	classifier Classifier
	learner    *RuleLearner
	logger     *slog.Logger
	now        func() time.Time
	cfg        config.Categorization
}

// NewCategorizer creates a categorizer. cfg is expected to be validated.
func NewCategorizer(store Store, classifier Classifier, cfg config.Categorization, logger *slog.Logger) *Categorizer {
	if logger == nil {
		logger = slog.Default()
	}
	return &Categorizer{
		store:      store,
		classifier: classifier,
		learner:    NewRuleLearner(store, cfg.AutoRuleThreshold, logger),
		logger:     logger,
		now:        time.Now,
		cfg:        cfg,
	}
}

// run holds the mutable state of one Run call.
type run struct {
	progress ProgressFunc
	batchID  string
	counts   model.BatchCounts
	total    int
}

func (r *run) report() {
	if r.progress == nil {
		return
	}
	r.progress(Progress{
		Counts:    r.counts,
		Processed: r.counts.Accounted(),
		Total:     r.total,
	})
}

// Run categorizes txns and persists a batch record for the run. The returned
// batch is non-nil whenever the record was created, including when the run
// was aborted; the error then carries the cause.
//
// Every transaction ends up in exactly one of the rule, desc_rule, ai,
// skipped or failure counters unless the run is aborted.
func (c *Categorizer) Run(ctx context.Context, txns []model.Transaction, opts RunOptions, progress ProgressFunc) (*model.CategorizationBatch, error) {
	if opts.BatchID == "" {
		opts.BatchID = uuid.NewString()
	}

	started := c.now()
	batch := &model.CategorizationBatch{
		ID:               opts.BatchID,
		TransactionCount: len(txns),
		StartedAt:        started,
	}
	if err := c.store.CreateBatch(ctx, batch); err != nil {
		return nil, fmt.Errorf("failed to record batch: %w", err)
	}

	r := &run{batchID: opts.BatchID, total: len(txns), progress: progress}
	runErr := c.execute(ctx, r, txns, c.cfg.ClampBatchSize(opts.BatchSize))

	completed := c.now()
	batch.BatchCounts = r.counts
	batch.CompletedAt = &completed
	batch.DurationMS = completed.Sub(started).Milliseconds()
	if runErr != nil {
		batch.ErrorMessage = runErr.Error()
	}

	if err := c.store.CompleteBatch(context.WithoutCancel(ctx), batch); err != nil {
		c.logger.Error("failed to complete batch record", "batch_id", batch.ID, "error", err)
	}

	c.logger.Info("categorization run finished",
		"batch_id", batch.ID,
		"transactions", batch.TransactionCount,
		"rule_matches", batch.RuleMatchCount,
		"desc_rule_matches", batch.DescRuleMatchCount,
		"ai_matches", batch.AIMatchCount,
		"skipped", batch.SkippedCount,
		"failed", batch.FailureCount,
		"rules_created", batch.AutoRulesCreated,
		"duration_ms", batch.DurationMS)

	return batch, runErr
}

func (c *Categorizer) execute(ctx context.Context, r *run, txns []model.Transaction, batchSize int) error {
	if err := c.classifier.CheckCredentials(); err != nil {
		return err
	}

	pending := c.applyRules(ctx, r, txns)
	r.report()

	if len(pending) == 0 {
		return nil
	}

	categories, err := c.store.GetCategories(ctx)
	if err != nil {
		return fmt.Errorf("failed to load categories: %w", err)
	}
	if len(categories) == 0 {
		c.logger.Warn("no categories defined, skipping AI classification",
			"batch_id", r.batchID,
			"transactions", len(pending))
		r.counts.SkippedCount += len(pending)
		r.report()
		return nil
	}

	known := make(map[int]bool, len(categories))
	for _, cat := range categories {
		known[cat.ID] = true
	}

	for start := 0; start < len(pending); start += batchSize {
		end := min(start+batchSize, len(pending))
		chunk := pending[start:end]

		if err := c.classifyChunk(ctx, r, chunk, categories, known); err != nil {
			return err
		}
		r.report()
	}

	return nil
}

// applyRules runs the merchant and description tiers and returns the
// transactions neither matched.
func (c *Categorizer) applyRules(ctx context.Context, r *run, txns []model.Transaction) []model.Transaction {
	pending := make([]model.Transaction, 0, len(txns))
	rules := newRuleSet(c.store)

	for _, txn := range txns {
		categorization, err := rules.match(ctx, txn)
		if err != nil {
			c.logger.Error("rule lookup failed",
				"batch_id", r.batchID,
				"transaction_id", txn.ID,
				"error", err)
			r.counts.FailureCount++
			continue
		}
		if categorization == nil {
			pending = append(pending, txn)
			continue
		}

		if !c.apply(ctx, r, txn.ID, *categorization) {
			continue
		}
		if categorization.Source == model.SourceRule {
			r.counts.RuleMatchCount++
		} else {
			r.counts.DescRuleMatchCount++
		}
	}

	c.logger.Info("rule tier complete",
		"batch_id", r.batchID,
		"rule_matches", r.counts.RuleMatchCount,
		"desc_rule_matches", r.counts.DescRuleMatchCount,
		"pending", len(pending))
	return pending
}

// ruleSet loads the merchant matcher and each account's description matcher
// at most once per rule tier. Failed loads are retried on the next lookup.
type ruleSet struct {
	store     RuleStore
	merchants pattern.MerchantMatcher
	accounts  map[string]pattern.DescriptionMatcher
}

func newRuleSet(store RuleStore) *ruleSet {
	return &ruleSet{store: store, accounts: make(map[string]pattern.DescriptionMatcher)}
}

func (rs *ruleSet) match(ctx context.Context, txn model.Transaction) (*model.Categorization, error) {
	if strings.TrimSpace(txn.NormalizedMerchant) != "" {
		if rs.merchants == nil {
			m, err := rs.store.MerchantMatcher(ctx)
			if err != nil {
				return nil, err
			}
			rs.merchants = m
		}
		if rule := rs.merchants.Match(txn.NormalizedMerchant); rule != nil {
			return &model.Categorization{CategoryID: rule.CategoryID, Source: model.SourceRule}, nil
		}
	}

	if strings.TrimSpace(txn.Description) == "" || txn.AccountID == "" {
		return nil, nil
	}
	descriptions, ok := rs.accounts[txn.AccountID]
	if !ok {
		m, err := rs.store.DescriptionMatcher(ctx, txn.AccountID)
		if err != nil {
			return nil, err
		}
		rs.accounts[txn.AccountID] = m
		descriptions = m
	}
	if rule := descriptions.Match(txn.Description); rule != nil {
		return &model.Categorization{CategoryID: rule.CategoryID, Source: model.SourceDescRule}, nil
	}
	return nil, nil
}

// classifyChunk sends one sub-batch to the classifier and applies the answers.
// A configuration problem, a rejected credential or a canceled context is
// returned and aborts the run; anything else fails the chunk's transactions
// and lets the run continue.
func (c *Categorizer) classifyChunk(ctx context.Context, r *run, chunk []model.Transaction, categories []model.Category, known map[int]bool) error {
	prompt, err := BuildPrompt(chunk, categories)
	if err != nil {
		return err
	}

	results, err := c.classifier.Classify(ctx, prompt, c.cfg.Timeout)
	if err != nil {
		if common.IsConfigurationError(err) || errors.Is(err, context.Canceled) {
			return err
		}
		if common.IsAuthenticationError(err) {
			return fmt.Errorf("credential rejected: %w", err)
		}
		c.logger.Error("sub-batch classification failed",
			"batch_id", r.batchID,
			"transactions", len(chunk),
			"error", err)
		r.counts.FailureCount += len(chunk)
		return nil
	}

	accepted := c.applyResults(ctx, r, chunk, results, known)

	stats := c.learner.Learn(ctx, accepted)
	r.counts.AutoRulesCreated += stats.Created()
	return nil
}

// applyResults applies accepted answers and returns them for rule learning.
// Answers for unknown transactions are ignored and the first answer for a
// transaction wins. Transactions without a usable answer are skipped.
func (c *Categorizer) applyResults(ctx context.Context, r *run, chunk []model.Transaction, results []llm.Result, known map[int]bool) []LearnCandidate {
	byID := make(map[string]model.Transaction, len(chunk))
	for _, txn := range chunk {
		byID[txn.ID] = txn
	}

	answered := make(map[string]bool, len(chunk))
	var accepted []LearnCandidate

	for _, res := range results {
		txn, ok := byID[res.TransactionID]
		if !ok {
			c.logger.Debug("ignoring result for unknown transaction",
				"batch_id", r.batchID,
				"transaction_id", res.TransactionID)
			continue
		}
		if answered[res.TransactionID] {
			continue
		}
		answered[res.TransactionID] = true

		if res.CategoryID == nil || !known[*res.CategoryID] || res.Confidence < c.cfg.AcceptThreshold {
			r.counts.SkippedCount++
			continue
		}

		confidence := res.Confidence
		ok = c.apply(ctx, r, txn.ID, model.Categorization{
			CategoryID: *res.CategoryID,
			Source:     model.SourceAI,
			Confidence: &confidence,
		})
		if !ok {
			continue
		}

		r.counts.AIMatchCount++
		accepted = append(accepted, LearnCandidate{
			Transaction: txn,
			CategoryID:  *res.CategoryID,
			Confidence:  confidence,
		})
	}

	for _, txn := range chunk {
		if !answered[txn.ID] {
			r.counts.SkippedCount++
		}
	}

	return accepted
}

// apply persists a categorization, counting success or failure.
func (c *Categorizer) apply(ctx context.Context, r *run, txnID string, categorization model.Categorization) bool {
	if _, err := c.store.ReplaceTransaction(ctx, txnID, categorization); err != nil {
		perr := &common.PersistenceError{TransactionID: txnID, Op: "replace", Err: err}
		c.logger.Error("failed to apply categorization",
			"batch_id", r.batchID,
			"transaction_id", txnID,
			"source", categorization.Source,
			"error", perr)
		r.counts.FailureCount++
		return false
	}
	r.counts.SuccessCount++
	return true
}
