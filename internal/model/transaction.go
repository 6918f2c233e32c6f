package model

import (
	"crypto/sha256"
	"errors"
	"fmt"
	"time"
)

// CategorizationSource records which tier produced a transaction's category.
type CategorizationSource string

// Categorization source constants.
const (
	SourceRule     CategorizationSource = "rule"
	SourceDescRule CategorizationSource = "desc_rule"
	SourceAI       CategorizationSource = "ai"
	SourceManual   CategorizationSource = "manual"
	SourceNone     CategorizationSource = "none"
)

// Valid reports whether s is a known categorization source.
func (s CategorizationSource) Valid() bool {
	switch s {
	case SourceRule, SourceDescRule, SourceAI, SourceManual, SourceNone:
		return true
	}
	return false
}

// Transaction represents a single imported financial transaction.
type Transaction struct {
	Date               time.Time
	CreatedAt          time.Time
	CategoryID         *int
	ConfidenceScore    *float64
	ID                 string
	AccountID          string
	Description        string // Raw transaction description
	NormalizedMerchant string // Cleaned merchant name, empty when enrichment found none
	Hash               string
	Source             CategorizationSource
	Amount             float64
}

// Transaction invariant errors.
var (
	ErrCategoryWithoutSource = errors.New("category set without a categorization source")
	ErrSourceWithoutCategory = errors.New("categorization source set without a category")
	ErrConfidenceNotAI       = errors.New("confidence score is only valid for ai categorizations")
)

// GenerateHash creates a unique hash for duplicate detection.
func (t *Transaction) GenerateHash() string {
	data := fmt.Sprintf("%s:%.2f:%s:%s:%s",
		t.Date.Format("2006-01-02"),
		t.Amount,
		t.Description,
		t.NormalizedMerchant,
		t.AccountID)
	hash := sha256.Sum256([]byte(data))
	return fmt.Sprintf("%x", hash)
}

// IsCategorized reports whether the transaction carries a category.
func (t *Transaction) IsCategorized() bool {
	return t.CategoryID != nil
}

// Validate checks the category/source/confidence invariant.
func (t *Transaction) Validate() error {
	source := t.Source
	if source == "" {
		source = SourceNone
	}
	if !source.Valid() {
		return fmt.Errorf("unknown categorization source %q", t.Source)
	}
	if t.CategoryID != nil && source == SourceNone {
		return ErrCategoryWithoutSource
	}
	if t.CategoryID == nil && source != SourceNone {
		return ErrSourceWithoutCategory
	}
	if t.ConfidenceScore != nil && source != SourceAI {
		return ErrConfidenceNotAI
	}
	return nil
}

// Categorization is the set of fields a pipeline tier changes on a transaction.
type Categorization struct {
	Confidence *float64
	Source     CategorizationSource
	CategoryID int
}

// Apply merges c into the transaction, keeping the invariant intact.
func (t *Transaction) Apply(c Categorization) {
	categoryID := c.CategoryID
	t.CategoryID = &categoryID
	t.Source = c.Source
	t.ConfidenceScore = nil
	if c.Source == SourceAI && c.Confidence != nil {
		confidence := *c.Confidence
		t.ConfidenceScore = &confidence
	}
}
