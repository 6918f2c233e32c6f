package pattern

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestExtractPattern(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  string
	}{
		{name: "empty", input: "", want: ""},
		{name: "blank", input: "   \t ", want: ""},
		{name: "short passes through", input: "ATM", want: "atm"},
		{name: "no digit run", input: "  Coffee Shop 42 ", want: "coffee shop 42"},
		{name: "brokerage deposit", input: "DIRECT DEPOSIT Fidelity Bro461026 (Cash)", want: "direct deposit fidelity bro* (cash)"},
		{name: "bare digit run", input: "CHECK 10234", want: "check *"},
		{name: "adjacent wildcards collapse", input: "POS 1234 5678 AMAZON", want: "pos * amazon"},
		{name: "run inside token", input: "ACH12345XYZ", want: "ach*xyz"},
		{name: "two digit run untouched", input: "Store 12", want: "store 12"},
		{name: "only digits", input: "123456", want: "*"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, ExtractPattern(tt.input))
		})
	}
}

func TestExtractPattern_Idempotent(t *testing.T) {
	inputs := []string{
		"",
		"ATM",
		"DIRECT DEPOSIT Fidelity Bro461026 (Cash)",
		"POS 1234 * 5678 AMAZON",
		"12*345",
		"** Uber   Trip 9988776 **",
		"Payment Thank You - Web 000123",
	}

	for _, in := range inputs {
		once := ExtractPattern(in)
		assert.Equal(t, once, ExtractPattern(once), "re-extracting %q", in)
	}
}

func TestIsLearnable(t *testing.T) {
	tests := []struct {
		pattern string
		want    bool
	}{
		{pattern: "", want: false},
		{pattern: "*", want: false},
		{pattern: "a*", want: false},
		{pattern: "* a b *", want: false},
		{pattern: "a b*", want: false},
		{pattern: "a  \tb", want: false},
		{pattern: "ab c*", want: true},
		{pattern: "atm", want: true},
		{pattern: "bro*", want: true},
		{pattern: "direct deposit fidelity bro* (cash)", want: true},
	}

	for _, tt := range tests {
		t.Run(tt.pattern, func(t *testing.T) {
			assert.Equal(t, tt.want, IsLearnable(tt.pattern))
		})
	}
}

func TestExtractedPatternMatchesSiblingDescriptions(t *testing.T) {
	p := ExtractPattern("DIRECT DEPOSIT Fidelity Bro461026 (Cash)")
	require.Equal(t, "direct deposit fidelity bro* (cash)", p)

	re, err := CompileWildcard(p)
	require.NoError(t, err)

	assert.True(t, re.MatchString("direct deposit fidelity bro458529 (cash)"))
	assert.False(t, re.MatchString("direct deposit chase bro458529 (cash)"))
}
