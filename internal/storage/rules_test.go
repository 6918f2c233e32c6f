package storage

import (
	"context"
	"testing"
	"time"

	"github.com/Veraticus/the-spice-must-sort/internal/common"
	"github.com/Veraticus/the-spice-must-sort/internal/model"
	"github.com/Veraticus/the-spice-must-sort/internal/service"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// steppingClock returns strictly increasing timestamps.
func steppingClock() func() time.Time {
	current := time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC)
	return func() time.Time {
		current = current.Add(time.Second)
		return current
	}
}

func TestMerchantRules_ManualUpsertAndAIInsertOnly(t *testing.T) {
	store, cats, cleanup := createSeededStorage(t, "Coffee", "Groceries")
	defer cleanup()
	store.now = steppingClock()
	ctx := context.Background()

	created, err := store.CreateMerchantRule(ctx, "  STARBUCKS ", cats[0].ID, model.RuleSourceAI)
	require.NoError(t, err)
	assert.Equal(t, "starbucks", created.MerchantPattern)
	assert.Equal(t, model.RuleSourceAI, created.Source)

	// ai never overwrites
	_, err = store.CreateMerchantRule(ctx, "starbucks", cats[1].ID, model.RuleSourceAI)
	assert.ErrorIs(t, err, common.ErrDuplicateEntry)

	got, err := store.GetMerchantRuleByPattern(ctx, "Starbucks")
	require.NoError(t, err)
	assert.Equal(t, cats[0].ID, got.CategoryID)

	// manual updates category and timestamp in place
	updated, err := store.CreateMerchantRule(ctx, "starbucks", cats[1].ID, model.RuleSourceManual)
	require.NoError(t, err)
	assert.Equal(t, created.ID, updated.ID)
	assert.Equal(t, cats[1].ID, updated.CategoryID)
	assert.True(t, updated.CreatedAt.After(created.CreatedAt))

	// and a manual rule is still never replaced by ai
	_, err = store.CreateMerchantRule(ctx, "starbucks", cats[0].ID, model.RuleSourceAI)
	assert.ErrorIs(t, err, common.ErrDuplicateEntry)
	got, err = store.GetMerchantRuleByPattern(ctx, "starbucks")
	require.NoError(t, err)
	assert.Equal(t, cats[1].ID, got.CategoryID)
}

func TestMerchantRules_Validation(t *testing.T) {
	store, cats, cleanup := createSeededStorage(t, "Coffee")
	defer cleanup()
	ctx := context.Background()

	_, err := store.CreateMerchantRule(ctx, "   ", cats[0].ID, model.RuleSourceManual)
	assert.ErrorIs(t, err, ErrInvalidRule)

	_, err = store.CreateMerchantRule(ctx, "peets", cats[0].ID, model.RuleSource("robot"))
	assert.ErrorIs(t, err, ErrInvalidRule)

	_, err = store.CreateMerchantRule(ctx, "peets", 404, model.RuleSourceManual)
	assert.ErrorIs(t, err, ErrInvalidReference)
}

func TestMerchantRules_FindNewestSubstringMatch(t *testing.T) {
	store, cats, cleanup := createSeededStorage(t, "Shopping", "Streaming")
	defer cleanup()
	store.now = steppingClock()
	ctx := context.Background()

	_, err := store.CreateMerchantRule(ctx, "amazon", cats[0].ID, model.RuleSourceManual)
	require.NoError(t, err)
	newer, err := store.CreateMerchantRule(ctx, "prime video", cats[1].ID, model.RuleSourceAI)
	require.NoError(t, err)

	match, err := store.FindMerchantRule(ctx, "AMAZON Prime Video")
	require.NoError(t, err)
	require.NotNil(t, match)
	assert.Equal(t, newer.ID, match.ID)

	match, err = store.FindMerchantRule(ctx, "Amazon Marketplace")
	require.NoError(t, err)
	require.NotNil(t, match)
	assert.Equal(t, "amazon", match.MerchantPattern)

	match, err = store.FindMerchantRule(ctx, "Target")
	require.NoError(t, err)
	assert.Nil(t, match)

	match, err = store.FindMerchantRule(ctx, "")
	require.NoError(t, err)
	assert.Nil(t, match)
}

func TestMerchantRules_ListAndDelete(t *testing.T) {
	store, cats, cleanup := createSeededStorage(t, "A", "B")
	defer cleanup()
	store.now = steppingClock()
	ctx := context.Background()

	for _, p := range []string{"alpha", "beta", "gamma"} {
		_, err := store.CreateMerchantRule(ctx, p, cats[0].ID, model.RuleSourceAI)
		require.NoError(t, err)
	}
	manual, err := store.CreateMerchantRule(ctx, "delta", cats[1].ID, model.RuleSourceManual)
	require.NoError(t, err)

	rules, total, err := store.ListMerchantRules(ctx, service.RuleFilter{}, service.Page{Limit: 2})
	require.NoError(t, err)
	assert.Equal(t, 4, total)
	require.Len(t, rules, 2)
	assert.Equal(t, "delta", rules[0].MerchantPattern, "newest first")

	rules, total, err = store.ListMerchantRules(ctx, service.RuleFilter{Source: model.RuleSourceAI, Search: "MM"}, service.Page{})
	require.NoError(t, err)
	assert.Equal(t, 1, total)
	require.Len(t, rules, 1)
	assert.Equal(t, "gamma", rules[0].MerchantPattern)

	catID := cats[1].ID
	_, total, err = store.ListMerchantRules(ctx, service.RuleFilter{CategoryID: &catID}, service.Page{})
	require.NoError(t, err)
	assert.Equal(t, 1, total)

	require.NoError(t, store.DeleteMerchantRule(ctx, manual.ID))
	assert.ErrorIs(t, store.DeleteMerchantRule(ctx, manual.ID), common.ErrNotFound)
}

func TestDescriptionRules_AccountScopedMatching(t *testing.T) {
	store, cats, cleanup := createSeededStorage(t, "Investments")
	defer cleanup()
	store.now = steppingClock()
	ctx := context.Background()

	rule, err := store.CreateDescriptionRule(ctx, "acc1", "DIRECT DEPOSIT Fidelity bro* (cash)", cats[0].ID, model.RuleSourceAI)
	require.NoError(t, err)
	assert.Equal(t, "direct deposit fidelity bro* (cash)", rule.DescriptionPattern)

	match, err := store.FindDescriptionRule(ctx, "DIRECT DEPOSIT Fidelity Bro458529 (Cash)", "acc1")
	require.NoError(t, err)
	require.NotNil(t, match)
	assert.Equal(t, rule.ID, match.ID)

	match, err = store.FindDescriptionRule(ctx, "DIRECT DEPOSIT Chase Bro458529 (Cash)", "acc1")
	require.NoError(t, err)
	assert.Nil(t, match)

	match, err = store.FindDescriptionRule(ctx, "DIRECT DEPOSIT Fidelity Bro458529 (Cash)", "acc2")
	require.NoError(t, err)
	assert.Nil(t, match, "rules never cross accounts")
}

func TestDescriptionRules_ManualUpsertAndAIInsertOnly(t *testing.T) {
	store, cats, cleanup := createSeededStorage(t, "Fees", "Transfers")
	defer cleanup()
	store.now = steppingClock()
	ctx := context.Background()

	manual, err := store.CreateDescriptionRule(ctx, "acc1", "wire fee *", cats[0].ID, model.RuleSourceManual)
	require.NoError(t, err)

	_, err = store.CreateDescriptionRule(ctx, "acc1", "wire fee *", cats[1].ID, model.RuleSourceAI)
	assert.ErrorIs(t, err, common.ErrDuplicateEntry)

	// Same pattern under another account is a different key
	other, err := store.CreateDescriptionRule(ctx, "acc2", "wire fee *", cats[1].ID, model.RuleSourceAI)
	require.NoError(t, err)
	assert.NotEqual(t, manual.ID, other.ID)

	updated, err := store.CreateDescriptionRule(ctx, "acc1", "wire fee *", cats[1].ID, model.RuleSourceManual)
	require.NoError(t, err)
	assert.Equal(t, manual.ID, updated.ID)
	assert.Equal(t, cats[1].ID, updated.CategoryID)

	_, err = store.CreateDescriptionRule(ctx, "unknown-account", "wire fee *", cats[0].ID, model.RuleSourceManual)
	assert.ErrorIs(t, err, ErrInvalidReference)

	rules, total, err := store.ListDescriptionRules(ctx, service.RuleFilter{AccountID: "acc2"}, service.Page{})
	require.NoError(t, err)
	assert.Equal(t, 1, total)
	require.Len(t, rules, 1)
	assert.Equal(t, other.ID, rules[0].ID)

	require.NoError(t, store.DeleteDescriptionRule(ctx, other.ID))
	_, err = store.GetDescriptionRule(ctx, "acc2", "wire fee *")
	assert.ErrorIs(t, err, common.ErrNotFound)
}

func TestDescriptionRules_NewestWins(t *testing.T) {
	store, cats, cleanup := createSeededStorage(t, "Broad", "Narrow")
	defer cleanup()
	store.now = steppingClock()
	ctx := context.Background()

	_, err := store.CreateDescriptionRule(ctx, "acc1", "uber *", cats[0].ID, model.RuleSourceAI)
	require.NoError(t, err)
	narrow, err := store.CreateDescriptionRule(ctx, "acc1", "uber * eats", cats[1].ID, model.RuleSourceAI)
	require.NoError(t, err)

	match, err := store.FindDescriptionRule(ctx, "UBER 8812 EATS", "acc1")
	require.NoError(t, err)
	require.NotNil(t, match)
	assert.Equal(t, narrow.ID, match.ID)
}

func TestRuleMatchers_Snapshot(t *testing.T) {
	store, cats, cleanup := createSeededStorage(t, "Shopping")
	defer cleanup()
	ctx := context.Background()

	_, err := store.CreateMerchantRule(ctx, "amazon", cats[0].ID, model.RuleSourceManual)
	require.NoError(t, err)
	_, err = store.CreateDescriptionRule(ctx, "acc1", "card purchase *", cats[0].ID, model.RuleSourceManual)
	require.NoError(t, err)

	merchants, err := store.MerchantMatcher(ctx)
	require.NoError(t, err)
	descriptions, err := store.DescriptionMatcher(ctx, "acc1")
	require.NoError(t, err)
	other, err := store.DescriptionMatcher(ctx, "acc2")
	require.NoError(t, err)

	_, err = store.CreateMerchantRule(ctx, "target", cats[0].ID, model.RuleSourceManual)
	require.NoError(t, err)

	assert.NotNil(t, merchants.Match("Amazon Marketplace"))
	assert.Nil(t, merchants.Match("Target"), "rules created later are not visible")
	assert.NotNil(t, descriptions.Match("CARD PURCHASE 123456"))
	assert.Nil(t, other.Match("CARD PURCHASE 123456"))
}
