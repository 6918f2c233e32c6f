package engine

import (
	"context"
	"time"

	"github.com/Veraticus/the-spice-must-sort/internal/llm"
	"github.com/Veraticus/the-spice-must-sort/internal/service"
)

// Classifier defines the contract for the AI tier of categorization.
type Classifier interface {
	// CheckCredentials fails with a *common.ConfigurationError when the
	// classifier cannot be used at all.
	CheckCredentials() error
	Classify(ctx context.Context, prompt string, timeout time.Duration) ([]llm.Result, error)
}

// RuleStore is the part of storage the rule learner writes to.
type RuleStore interface {
	service.MerchantRuleStore
	service.DescriptionRuleStore
}

// Store is everything the categorizer reads and writes.
type Store interface {
	service.TransactionStore
	service.CategoryStore
	service.BatchStore
	RuleStore
}

var (
	_ Classifier = (*llm.Classifier)(nil)
	_ Classifier = (*MockClassifier)(nil)
)
