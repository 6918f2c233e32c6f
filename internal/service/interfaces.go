// Package service defines the interfaces for all application services.
package service

import (
	"context"

	"github.com/Veraticus/the-spice-must-sort/internal/model"
	"github.com/Veraticus/the-spice-must-sort/internal/pattern"
)

// TransactionStore is the row-level contract the categorization pipeline
// consumes. Categorizations are written with ReplaceTransaction, never with
// partial in-place updates.
type TransactionStore interface {
	SaveTransactions(ctx context.Context, transactions []model.Transaction) error
	GetTransaction(ctx context.Context, id string) (*model.Transaction, error)
	GetTransactionsByIDs(ctx context.Context, ids []string) ([]model.Transaction, error)
	// GetUnclassifiedTransactions returns every transaction with no category.
	GetUnclassifiedTransactions(ctx context.Context) ([]model.Transaction, error)
	CountUnclassifiedTransactions(ctx context.Context) (int, error)
	// ReplaceTransaction reads the full row, merges c into it, deletes the row
	// by primary key and inserts the merged row, all in one SQL transaction.
	ReplaceTransaction(ctx context.Context, id string, c model.Categorization) (*model.Transaction, error)
}

// CategoryStore looks up categories for prompts and validation.
type CategoryStore interface {
	GetCategories(ctx context.Context) ([]model.Category, error)
	GetCategoryByID(ctx context.Context, id int) (*model.Category, error)
	CreateCategory(ctx context.Context, name, description string) (*model.Category, error)
}

// AccountStore looks up the accounts description rules are scoped to.
type AccountStore interface {
	GetAccount(ctx context.Context, id string) (*model.Account, error)
	GetAccounts(ctx context.Context) ([]model.Account, error)
	CreateAccount(ctx context.Context, account *model.Account) error
}

// MerchantRuleStore holds global merchant to category rules.
type MerchantRuleStore interface {
	// CreateMerchantRule upserts when source is manual. An ai rule is only
	// inserted; an existing pattern yields common.ErrDuplicateEntry.
	CreateMerchantRule(ctx context.Context, pattern string, categoryID int, source model.RuleSource) (*model.MerchantRule, error)
	// FindMerchantRule returns the newest rule contained in the merchant name, or nil.
	FindMerchantRule(ctx context.Context, normalizedMerchant string) (*model.MerchantRule, error)
	// MerchantMatcher snapshots every merchant rule for repeated lookups.
	MerchantMatcher(ctx context.Context) (pattern.MerchantMatcher, error)
	GetMerchantRuleByPattern(ctx context.Context, pattern string) (*model.MerchantRule, error)
	DeleteMerchantRule(ctx context.Context, id int64) error
	ListMerchantRules(ctx context.Context, filter RuleFilter, page Page) ([]model.MerchantRule, int, error)
}

// DescriptionRuleStore holds account-scoped wildcard description rules.
type DescriptionRuleStore interface {
	// CreateDescriptionRule has the same manual-upsert, ai-insert-only
	// contract as CreateMerchantRule, keyed on (accountID, pattern).
	CreateDescriptionRule(ctx context.Context, accountID, pattern string, categoryID int, source model.RuleSource) (*model.DescriptionRule, error)
	// FindDescriptionRule returns the newest rule of accountID whose pattern
	// matches the whole description, or nil.
	FindDescriptionRule(ctx context.Context, description, accountID string) (*model.DescriptionRule, error)
	// DescriptionMatcher snapshots one account's rules for repeated lookups.
	DescriptionMatcher(ctx context.Context, accountID string) (pattern.DescriptionMatcher, error)
	GetDescriptionRule(ctx context.Context, accountID, pattern string) (*model.DescriptionRule, error)
	DeleteDescriptionRule(ctx context.Context, id int64) error
	ListDescriptionRules(ctx context.Context, filter RuleFilter, page Page) ([]model.DescriptionRule, int, error)
}

// BatchStore persists categorization run summaries.
type BatchStore interface {
	CreateBatch(ctx context.Context, batch *model.CategorizationBatch) error
	CompleteBatch(ctx context.Context, batch *model.CategorizationBatch) error
	GetBatch(ctx context.Context, id string) (*model.CategorizationBatch, error)
	ListBatches(ctx context.Context, limit int) ([]model.CategorizationBatch, error)
}

// Storage defines the contract for our persistence layer.
type Storage interface {
	TransactionStore
	CategoryStore
	AccountStore
	MerchantRuleStore
	DescriptionRuleStore
	BatchStore

	// Database management
	Migrate(ctx context.Context) error
	Close() error
}

// RuleFilter narrows rule listings. Zero values match everything.
type RuleFilter struct {
	CategoryID *int
	AccountID  string // Description rules only
	Source     model.RuleSource
	Search     string // Case-insensitive substring of the pattern
}

// Page selects a window of a listing.
type Page struct {
	Limit  int
	Offset int
}

// Normalize applies the default and maximum page size.
func (p Page) Normalize() Page {
	if p.Limit <= 0 {
		p.Limit = DefaultPageSize
	}
	if p.Limit > MaxPageSize {
		p.Limit = MaxPageSize
	}
	if p.Offset < 0 {
		p.Offset = 0
	}
	return p
}

// Page size bounds for listings.
const (
	DefaultPageSize = 50
	MaxPageSize     = 500
)
