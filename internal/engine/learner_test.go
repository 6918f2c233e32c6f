package engine

import (
	"context"
	"testing"

	"github.com/Veraticus/the-spice-must-sort/internal/common"
	"github.com/Veraticus/the-spice-must-sort/internal/model"
	"github.com/Veraticus/the-spice-must-sort/internal/service"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func candidate(txn model.Transaction, categoryID int, confidence float64) LearnCandidate {
	return LearnCandidate{Transaction: txn, CategoryID: categoryID, Confidence: confidence}
}

func TestRuleLearner_Learn(t *testing.T) {
	store, cats := createTestStorage(t, "Coffee", "Income", "Fees")
	ctx := context.Background()
	learner := NewRuleLearner(store, 0.9, common.DiscardLogger())

	stats := learner.Learn(ctx, []LearnCandidate{
		candidate(makeTransaction("m1", "acc1", "PEETS 123", "Peet's Coffee"), cats[0].ID, 0.95),
		candidate(makeTransaction("low", "acc1", "RANDOM SHOP", "Random Shop"), cats[0].ID, 0.89),
		candidate(makeTransaction("d1", "acc1", "DIRECT DEPOSIT Fidelity Bro461026 (Cash)", ""), cats[1].ID, 0.93),
		candidate(makeTransaction("d2", "acc1", "DIRECT DEPOSIT Fidelity Bro777777 (Cash)", ""), cats[2].ID, 0.99),
		candidate(makeTransaction("short", "acc1", "AB 12345", ""), cats[2].ID, 0.99),
		candidate(makeTransaction("blank", "acc1", "   ", ""), cats[2].ID, 0.99),
	})

	assert.Equal(t, 1, stats.MerchantRulesCreated)
	assert.Equal(t, 1, stats.DescriptionRulesCreated)
	assert.Equal(t, 4, stats.Skipped, "low confidence, duplicate pattern, too short and blank")
	assert.Zero(t, stats.Failed)

	_, err := store.GetMerchantRuleByPattern(ctx, "peet's coffee")
	require.NoError(t, err)
	_, err = store.GetMerchantRuleByPattern(ctx, "random shop")
	assert.ErrorIs(t, err, common.ErrNotFound)

	rule, err := store.GetDescriptionRule(ctx, "acc1", "direct deposit fidelity bro* (cash)")
	require.NoError(t, err)
	assert.Equal(t, cats[2].ID, rule.CategoryID, "highest confidence wins within the batch")
	assert.Equal(t, model.RuleSourceAI, rule.Source)
}

func TestRuleLearner_NeverOverwritesManualRules(t *testing.T) {
	store, cats := createTestStorage(t, "Mine", "Theirs")
	ctx := context.Background()

	_, err := store.CreateMerchantRule(ctx, "blue bottle", cats[0].ID, model.RuleSourceManual)
	require.NoError(t, err)
	_, err = store.CreateDescriptionRule(ctx, "acc1", "payroll acme *", cats[0].ID, model.RuleSourceManual)
	require.NoError(t, err)

	learner := NewRuleLearner(store, 0.9, common.DiscardLogger())
	stats := learner.Learn(ctx, []LearnCandidate{
		candidate(makeTransaction("m", "acc1", "BLUE BOTTLE", "Blue Bottle"), cats[1].ID, 0.99),
		candidate(makeTransaction("d", "acc1", "PAYROLL ACME 20240301", ""), cats[1].ID, 0.99),
	})
	assert.Zero(t, stats.Created())
	assert.Equal(t, 2, stats.Skipped)

	merchant, err := store.GetMerchantRuleByPattern(ctx, "blue bottle")
	require.NoError(t, err)
	assert.Equal(t, cats[0].ID, merchant.CategoryID)
	assert.Equal(t, model.RuleSourceManual, merchant.Source)

	desc, err := store.GetDescriptionRule(ctx, "acc1", "payroll acme *")
	require.NoError(t, err)
	assert.Equal(t, cats[0].ID, desc.CategoryID)
	assert.Equal(t, model.RuleSourceManual, desc.Source)
}

func TestRuleLearner_Idempotent(t *testing.T) {
	store, cats := createTestStorage(t, "Coffee")
	ctx := context.Background()
	learner := NewRuleLearner(store, 0.9, common.DiscardLogger())

	candidates := []LearnCandidate{
		candidate(makeTransaction("a", "acc1", "STARBUCKS 1", "Starbucks"), cats[0].ID, 0.95),
		candidate(makeTransaction("b", "acc1", "UBER TRIP 8812345", ""), cats[0].ID, 0.95),
		candidate(makeTransaction("c", "acc2", "UBER TRIP 8812345", ""), cats[0].ID, 0.95),
	}

	first := learner.Learn(ctx, candidates)
	assert.Equal(t, 3, first.Created())

	second := learner.Learn(ctx, candidates)
	assert.Zero(t, second.Created())
	assert.Equal(t, 3, second.Skipped)

	_, merchantTotal, err := store.ListMerchantRules(ctx, service.RuleFilter{}, service.Page{})
	require.NoError(t, err)
	assert.Equal(t, 1, merchantTotal)

	_, descTotal, err := store.ListDescriptionRules(ctx, service.RuleFilter{}, service.Page{})
	require.NoError(t, err)
	assert.Equal(t, 2, descTotal, "one per account")
}
