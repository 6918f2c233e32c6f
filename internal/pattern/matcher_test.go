package pattern

import (
	"testing"
	"time"

	"github.com/Veraticus/the-spice-must-sort/internal/model"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCompileWildcard(t *testing.T) {
	tests := []struct {
		name    string
		pattern string
		input   string
		want    bool
	}{
		{name: "literal exact", pattern: "netflix.com", input: "netflix.com", want: true},
		{name: "dot is literal", pattern: "netflix.com", input: "netflixxcom", want: false},
		{name: "anchored start", pattern: "netflix", input: "pay netflix", want: false},
		{name: "anchored end", pattern: "netflix", input: "netflix monthly", want: false},
		{name: "wildcard matches empty", pattern: "uber*trip", input: "ubertrip", want: true},
		{name: "case insensitive", pattern: "uber * trip", input: "UBER 123 TRIP", want: true},
		{name: "regex metacharacters escaped", pattern: "a+b (c)*", input: "a+b (c) 991", want: true},
		{name: "brackets escaped", pattern: "[x]*", input: "xyz", want: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			re, err := CompileWildcard(tt.pattern)
			require.NoError(t, err)
			assert.Equal(t, tt.want, re.MatchString(tt.input))
		})
	}
}

func TestMerchantRules_Match(t *testing.T) {
	now := time.Now()
	// newest first
	rules := []model.MerchantRule{
		{ID: 3, MerchantPattern: "amazon prime", CategoryID: 30, CreatedAt: now},
		{ID: 2, MerchantPattern: "amazon", CategoryID: 20, CreatedAt: now.Add(-time.Hour)},
		{ID: 1, MerchantPattern: "starbucks", CategoryID: 10, CreatedAt: now.Add(-2 * time.Hour)},
	}
	m := NewMerchantMatcher(rules)

	tests := []struct {
		name     string
		merchant string
		wantID   int64
	}{
		{name: "substring match", merchant: "Starbucks Coffee #12", wantID: 1},
		{name: "case insensitive", merchant: "AMAZON MKTPLACE", wantID: 2},
		{name: "newest wins when several match", merchant: "Amazon Prime Video", wantID: 3},
		{name: "no match", merchant: "Target", wantID: 0},
		{name: "empty merchant", merchant: "", wantID: 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := m.Match(tt.merchant)
			if tt.wantID == 0 {
				assert.Nil(t, got)
				return
			}
			require.NotNil(t, got)
			assert.Equal(t, tt.wantID, got.ID)
		})
	}
}

func TestMerchantRules_MatchReturnsCopy(t *testing.T) {
	rules := []model.MerchantRule{{ID: 1, MerchantPattern: "shell", CategoryID: 4}}
	m := NewMerchantMatcher(rules)

	got := m.Match("shell oil 5521")
	require.NotNil(t, got)
	got.CategoryID = 99

	assert.Equal(t, 4, rules[0].CategoryID)
}

func TestDescriptionRules_Match(t *testing.T) {
	rules := []model.DescriptionRule{
		{ID: 2, AccountID: "acc1", DescriptionPattern: "direct deposit fidelity bro* (cash)", CategoryID: 5},
		{ID: 1, AccountID: "acc1", DescriptionPattern: "direct deposit *", CategoryID: 6},
	}
	m := NewDescriptionMatcher(rules)

	got := m.Match("DIRECT DEPOSIT Fidelity Bro458529 (Cash)")
	require.NotNil(t, got)
	assert.Equal(t, int64(2), got.ID)

	got = m.Match("DIRECT DEPOSIT Chase Bro458529 (Cash)")
	require.NotNil(t, got)
	assert.Equal(t, int64(1), got.ID, "falls through to the broader rule")

	assert.Nil(t, m.Match("ATM WITHDRAWAL"))
	assert.Nil(t, m.Match(""))
}
