package testutil

import (
	"context"
	"testing"

	"github.com/Veraticus/the-spice-must-sort/internal/model"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSetupTestDB(t *testing.T) {
	db := SetupTestDB(t,
		WithAccounts("acc1", "acc2"),
		WithCategories(BasicCategories...),
		WithTransactions(NewTransactions(3, "acc1", "txn-%d", "Shop %d")...),
	)
	ctx := context.Background()

	require.Len(t, db.Categories, len(BasicCategories))
	assert.Equal(t, 1, db.Categories[0].ID)
	assert.Equal(t, CategoryTravel, db.MustGetCategory(CategoryTravel).Name)

	accounts, err := db.GetAccounts(ctx)
	require.NoError(t, err)
	assert.Len(t, accounts, 2)

	count, err := db.CountUnclassifiedTransactions(ctx)
	require.NoError(t, err)
	assert.Equal(t, 3, count)

	txn := db.MustGetTransaction("txn-1")
	assert.Equal(t, "Shop 1", txn.NormalizedMerchant)
	assert.Equal(t, model.SourceNone, txn.Source)
}

func TestNewTransactions(t *testing.T) {
	txns := NewTransactions(2, "acc9", "id-%02d", "")
	require.Len(t, txns, 2)
	assert.Equal(t, "id-01", txns[1].ID)
	assert.Empty(t, txns[1].NormalizedMerchant)
	assert.NotEqual(t, txns[0].Hash, txns[1].Hash)
	assert.Equal(t, TestDate, txns[0].Date)
}
