// Package pattern generalizes transaction descriptions into reusable wildcard
// patterns and matches transactions against merchant and description rules.
package pattern

import (
	"github.com/Veraticus/the-spice-must-sort/internal/model"
)

// Wildcard is the token that stands in for any run of characters.
const Wildcard = "*"

// MerchantMatcher finds the merchant rule that applies to a normalized merchant name.
type MerchantMatcher interface {
	// Match returns the winning rule, or nil when no rule applies.
	Match(normalizedMerchant string) *model.MerchantRule
}

// DescriptionMatcher finds the description rule that applies to a raw description.
type DescriptionMatcher interface {
	// Match returns the winning rule, or nil when no rule applies.
	Match(description string) *model.DescriptionRule
}
