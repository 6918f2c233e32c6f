// Package testutil provides a migrated, seeded SQLite database for tests of
// the packages built on top of storage.
package testutil

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/Veraticus/the-spice-must-sort/internal/model"
	"github.com/Veraticus/the-spice-must-sort/internal/storage"
)

// Common category names used across tests.
const (
	CategoryGroceries  = "Groceries"
	CategoryDining     = "Food & Dining"
	CategoryTravel     = "Travel"
	CategoryInvestment = "Investment Income"
	CategoryUtilities  = "Utilities"
)

// BasicCategories is the minimal set most pipeline tests need.
var BasicCategories = []string{CategoryGroceries, CategoryDining, CategoryTravel}

// TestDB is a file-backed database living in the test's temp dir.
type TestDB struct {
	*storage.SQLiteStorage
	t          *testing.T
	Categories []model.Category
}

type setup struct {
	accounts     []string
	categories   []string
	transactions []model.Transaction
}

// Option seeds data into a TestDB.
type Option func(*setup)

// WithAccounts creates accounts with the given ids.
func WithAccounts(ids ...string) Option {
	return func(s *setup) { s.accounts = append(s.accounts, ids...) }
}

// WithCategories creates categories in order, so IDs start at 1.
func WithCategories(names ...string) Option {
	return func(s *setup) { s.categories = append(s.categories, names...) }
}

// WithTransactions saves transactions after accounts and categories exist.
func WithTransactions(txns ...model.Transaction) Option {
	return func(s *setup) { s.transactions = append(s.transactions, txns...) }
}

// SetupTestDB creates a migrated database, applies opts and registers cleanup.
//
// Example:
//
//	db := testutil.SetupTestDB(t,
//		testutil.WithAccounts("acc1"),
//		testutil.WithCategories(testutil.BasicCategories...),
//	)
func SetupTestDB(t *testing.T, opts ...Option) *TestDB {
	t.Helper()

	var s setup
	for _, opt := range opts {
		opt(&s)
	}

	store, err := storage.NewSQLiteStorage(filepath.Join(t.TempDir(), "test.db"))
	if err != nil {
		t.Fatalf("failed to create test database: %v", err)
	}
	t.Cleanup(func() {
		_ = store.Close()
	})

	ctx := context.Background()
	if err := store.Migrate(ctx); err != nil {
		t.Fatalf("failed to run migrations: %v", err)
	}

	for _, id := range s.accounts {
		if err := store.CreateAccount(ctx, &model.Account{ID: id, Name: id}); err != nil {
			t.Fatalf("failed to seed account %q: %v", id, err)
		}
	}

	db := &TestDB{SQLiteStorage: store, t: t}
	for _, name := range s.categories {
		cat, err := store.CreateCategory(ctx, name, "Test category: "+name)
		if err != nil {
			t.Fatalf("failed to seed category %q: %v", name, err)
		}
		db.Categories = append(db.Categories, *cat)
	}

	if len(s.transactions) > 0 {
		if err := store.SaveTransactions(ctx, s.transactions); err != nil {
			t.Fatalf("failed to seed transactions: %v", err)
		}
	}

	return db
}

// MustGetCategory returns the seeded category with the given name or fails the test.
func (db *TestDB) MustGetCategory(name string) model.Category {
	db.t.Helper()
	for _, c := range db.Categories {
		if c.Name == name {
			return c
		}
	}
	db.t.Fatalf("category %q was not seeded", name)
	return model.Category{}
}

// MustGetTransaction loads a transaction or fails the test.
func (db *TestDB) MustGetTransaction(id string) *model.Transaction {
	db.t.Helper()
	txn, err := db.GetTransaction(context.Background(), id)
	if err != nil {
		db.t.Fatalf("failed to load transaction %q: %v", id, err)
	}
	return txn
}
