package pattern

import (
	"regexp"
	"strings"

	"github.com/Veraticus/the-spice-must-sort/internal/model"
)

// MerchantRules matches merchant names against a set of merchant rules.
// Rules must be supplied newest first; the first substring hit wins.
type MerchantRules struct {
	rules []model.MerchantRule
}

// NewMerchantMatcher creates a matcher over rules ordered by created_at descending.
func NewMerchantMatcher(rules []model.MerchantRule) *MerchantRules {
	return &MerchantRules{rules: rules}
}

// Match returns the most recently created rule whose pattern is a
// case-insensitive substring of normalizedMerchant.
func (m *MerchantRules) Match(normalizedMerchant string) *model.MerchantRule {
	merchant := strings.ToLower(strings.TrimSpace(normalizedMerchant))
	if merchant == "" {
		return nil
	}

	for i := range m.rules {
		p := strings.ToLower(m.rules[i].MerchantPattern)
		if p != "" && strings.Contains(merchant, p) {
			rule := m.rules[i]
			return &rule
		}
	}
	return nil
}

// DescriptionRules matches raw descriptions against one account's description rules.
type DescriptionRules struct {
	compiled []*regexp.Regexp
	rules    []model.DescriptionRule
}

// NewDescriptionMatcher pre-compiles rules ordered by created_at descending.
// Rules whose pattern fails to compile never match.
func NewDescriptionMatcher(rules []model.DescriptionRule) *DescriptionRules {
	m := &DescriptionRules{
		rules:    rules,
		compiled: make([]*regexp.Regexp, len(rules)),
	}

	for i, rule := range rules {
		if re, err := CompileWildcard(rule.DescriptionPattern); err == nil {
			m.compiled[i] = re
		}
	}

	return m
}

// Match returns the most recently created rule whose compiled pattern
// matches the whole lowercased description.
func (m *DescriptionRules) Match(description string) *model.DescriptionRule {
	desc := strings.ToLower(strings.TrimSpace(description))
	if desc == "" {
		return nil
	}

	for i, re := range m.compiled {
		if re != nil && re.MatchString(desc) {
			rule := m.rules[i]
			return &rule
		}
	}
	return nil
}

var (
	_ MerchantMatcher    = (*MerchantRules)(nil)
	_ DescriptionMatcher = (*DescriptionRules)(nil)
)
