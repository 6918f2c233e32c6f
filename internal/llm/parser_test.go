package llm

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestExtractJSONArray(t *testing.T) {
	tests := []struct {
		name         string
		text         string
		wantStrategy string
		wantLen      int
	}{
		{
			name:         "raw array",
			text:         `[{"transaction_id":"t1","category_id":3,"confidence":0.9}]`,
			wantStrategy: "direct",
			wantLen:      1,
		},
		{
			name:         "wrapped in results object",
			text:         `{"results":[{"transaction_id":"t1"},{"transaction_id":"t2"}]}`,
			wantStrategy: "direct",
			wantLen:      2,
		},
		{
			name:         "fenced json block",
			text:         "Here you go:\n```json\n[{\"transaction_id\":\"t1\"}]\n```\nThanks!",
			wantStrategy: "fenced_block",
			wantLen:      1,
		},
		{
			name:         "fenced block without language",
			text:         "```\n[]\n```",
			wantStrategy: "fenced_block",
			wantLen:      0,
		},
		{
			name:         "array inside prose",
			text:         `Sure! The classifications are [{"transaction_id":"t1"},{"transaction_id":"t2"}] as requested.`,
			wantStrategy: "bracket_span",
			wantLen:      2,
		},
		{
			name:         "broken fence falls through to brackets",
			text:         "```json\nnot json\n``` but then [{\"transaction_id\":\"t9\"}]",
			wantStrategy: "bracket_span",
			wantLen:      1,
		},
		{
			name:         "no json at all",
			text:         "I cannot help with that.",
			wantStrategy: "",
			wantLen:      0,
		},
		{
			name:         "empty reply",
			text:         "",
			wantStrategy: "",
			wantLen:      0,
		},
		{
			name:         "unbalanced brackets",
			text:         "] nothing [",
			wantStrategy: "",
			wantLen:      0,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			elems, strategy := extractJSONArray(tt.text)
			assert.Equal(t, tt.wantStrategy, strategy)
			assert.Len(t, elems, tt.wantLen)
			assert.NotNil(t, ExtractJSONArray(tt.text), "never nil")
		})
	}
}

func TestResult_UnmarshalJSON(t *testing.T) {
	tests := []struct {
		wantCat  *int
		name     string
		input    string
		wantTxn  string
		wantConf float64
		wantErr  bool
	}{
		{name: "snake case", input: `{"transaction_id":"abc","category_id":4,"confidence":0.93}`, wantTxn: "abc", wantCat: intPtr(4), wantConf: 0.93},
		{name: "camel case", input: `{"transactionId":"abc","categoryId":"4","confidence":"0.75"}`, wantTxn: "abc", wantCat: intPtr(4), wantConf: 0.75},
		{name: "numeric transaction id", input: `{"id":1234,"category_id":2.0,"confidence":1}`, wantTxn: "1234", wantCat: intPtr(2), wantConf: 1},
		{name: "null category", input: `{"transaction_id":"abc","category_id":null,"confidence":0.2}`, wantTxn: "abc", wantConf: 0.2},
		{name: "missing confidence", input: `{"transaction_id":"abc","category_id":5}`, wantTxn: "abc", wantCat: intPtr(5)},
		{name: "missing id", input: `{"category_id":5,"confidence":0.9}`, wantErr: true},
		{name: "fractional category", input: `{"transaction_id":"a","category_id":2.5}`, wantErr: true},
		{name: "not an object", input: `"hello"`, wantErr: true},
		{name: "bad confidence", input: `{"transaction_id":"a","confidence":"high"}`, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var r Result
			err := json.Unmarshal([]byte(tt.input), &r)
			if tt.wantErr {
				require.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.wantTxn, r.TransactionID)
			assert.Equal(t, tt.wantCat, r.CategoryID)
			assert.InDelta(t, tt.wantConf, r.Confidence, 1e-9)
		})
	}
}

func TestDecodeResults_SkipsInvalidElements(t *testing.T) {
	elems := ExtractJSONArray(`[{"transaction_id":"t1","category_id":1,"confidence":0.9}, 42, {"category_id":3}, {"transaction_id":"t2"}]`)
	require.Len(t, elems, 4)

	results, skipped := DecodeResults(elems)
	assert.Equal(t, 2, skipped)
	require.Len(t, results, 2)
	assert.Equal(t, "t1", results[0].TransactionID)
	assert.Equal(t, "t2", results[1].TransactionID)
	assert.Nil(t, results[1].CategoryID)
}

func intPtr(v int) *int { return &v }
