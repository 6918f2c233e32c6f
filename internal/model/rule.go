// Package model defines the core data structures for the spice application.
package model

import (
	"time"
)

// RuleSource indicates how a rule was created.
type RuleSource string

const (
	// RuleSourceManual marks rules created from an explicit user correction.
	RuleSourceManual RuleSource = "manual"
	// RuleSourceAI marks rules learned from high-confidence classifier output.
	RuleSourceAI RuleSource = "ai"
)

// Valid reports whether s is a known rule source.
func (s RuleSource) Valid() bool {
	return s == RuleSourceManual || s == RuleSourceAI
}

// RuleType distinguishes the two rule tables in API responses.
type RuleType string

// Rule type constants.
const (
	RuleTypeMerchant    RuleType = "merchant"
	RuleTypeDescription RuleType = "description"
)

// MerchantRule maps a merchant substring to a category, across all accounts.
type MerchantRule struct {
	CreatedAt       time.Time  `json:"created_at"`
	MerchantPattern string     `json:"merchant_pattern"`
	Source          RuleSource `json:"source"`
	ID              int64      `json:"id"`
	CategoryID      int        `json:"category_id"`
}

// DescriptionRule maps a wildcard description pattern to a category within one account.
type DescriptionRule struct {
	CreatedAt          time.Time  `json:"created_at"`
	AccountID          string     `json:"account_id"`
	DescriptionPattern string     `json:"description_pattern"`
	Source             RuleSource `json:"source"`
	ID                 int64      `json:"id"`
	CategoryID         int        `json:"category_id"`
}
