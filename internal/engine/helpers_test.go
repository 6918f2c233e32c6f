package engine

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"

	"github.com/Veraticus/the-spice-must-sort/internal/common"
	"github.com/Veraticus/the-spice-must-sort/internal/config"
	"github.com/Veraticus/the-spice-must-sort/internal/model"
	"github.com/Veraticus/the-spice-must-sort/internal/pattern"
	"github.com/Veraticus/the-spice-must-sort/internal/storage"
	"github.com/Veraticus/the-spice-must-sort/internal/testutil"
	"github.com/stretchr/testify/require"
)

func createTestStorage(t *testing.T, categories ...string) (*storage.SQLiteStorage, []model.Category) {
	t.Helper()
	db := testutil.SetupTestDB(t,
		testutil.WithAccounts("acc1", "acc2"),
		testutil.WithCategories(categories...),
	)
	return db.SQLiteStorage, db.Categories
}

func newTestCategorizer(store Store, classifier Classifier) *Categorizer {
	return NewCategorizer(store, classifier, config.DefaultCategorization(), common.DiscardLogger())
}

func makeTransaction(id, account, description, merchant string) model.Transaction {
	return testutil.NewTransaction(id, account, description, merchant)
}

func saveTransactions(t *testing.T, store *storage.SQLiteStorage, txns ...model.Transaction) {
	t.Helper()
	require.NoError(t, store.SaveTransactions(context.Background(), txns))
}

func makeTransactions(n int) []model.Transaction {
	txns := make([]model.Transaction, n)
	for i := range txns {
		txns[i] = makeTransaction(
			fmt.Sprintf("txn-%03d", i),
			"acc1",
			fmt.Sprintf("POS PURCHASE %d REF %08d", i, 40000000+i),
			fmt.Sprintf("Merchant %d", i%10),
		)
	}
	return txns
}

// failingStore fails ReplaceTransaction for selected ids.
type failingStore struct {
	*storage.SQLiteStorage
	failIDs map[string]bool
	mu      sync.Mutex
}

func (s *failingStore) ReplaceTransaction(ctx context.Context, id string, c model.Categorization) (*model.Transaction, error) {
	s.mu.Lock()
	fail := s.failIDs[id]
	s.mu.Unlock()
	if fail {
		return nil, errors.New("disk I/O error")
	}
	return s.SQLiteStorage.ReplaceTransaction(ctx, id, c)
}

// countingStore counts rule matcher loads and can fail them per account.
type countingStore struct {
	*storage.SQLiteStorage
	failAccounts     map[string]bool
	merchantLoads    int
	descriptionLoads map[string]int
}

func (s *countingStore) MerchantMatcher(ctx context.Context) (pattern.MerchantMatcher, error) {
	s.merchantLoads++
	return s.SQLiteStorage.MerchantMatcher(ctx)
}

func (s *countingStore) DescriptionMatcher(ctx context.Context, accountID string) (pattern.DescriptionMatcher, error) {
	if s.descriptionLoads == nil {
		s.descriptionLoads = make(map[string]int)
	}
	s.descriptionLoads[accountID]++
	if s.failAccounts[accountID] {
		return nil, errors.New("database is locked")
	}
	return s.SQLiteStorage.DescriptionMatcher(ctx, accountID)
}
