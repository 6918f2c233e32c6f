package llm

import (
	"encoding/json"
	"fmt"
	"math"
	"strconv"
	"strings"
)

// Result is one classification returned by the provider.
type Result struct {
	CategoryID    *int    `json:"category_id"`
	TransactionID string  `json:"transaction_id"`
	Confidence    float64 `json:"confidence"`
}

// UnmarshalJSON accepts snake or camel case keys, ids given as numbers or
// strings, confidences given as strings, and a null category.
func (r *Result) UnmarshalJSON(data []byte) error {
	var fields map[string]json.RawMessage
	if err := json.Unmarshal(data, &fields); err != nil {
		return fmt.Errorf("result is not an object: %w", err)
	}

	raw := func(keys ...string) json.RawMessage {
		for _, k := range keys {
			if v, ok := fields[k]; ok {
				return v
			}
		}
		return nil
	}

	txnID, err := scalarString(raw("transaction_id", "transactionId", "id"))
	if err != nil {
		return fmt.Errorf("invalid transaction_id: %w", err)
	}
	if txnID == "" {
		return fmt.Errorf("missing transaction_id")
	}

	var categoryID *int
	if s, err := scalarString(raw("category_id", "categoryId")); err != nil {
		return fmt.Errorf("invalid category_id: %w", err)
	} else if s != "" {
		f, convErr := strconv.ParseFloat(s, 64)
		if convErr != nil || f != math.Trunc(f) {
			return fmt.Errorf("invalid category_id %q", s)
		}
		id := int(f)
		categoryID = &id
	}

	var confidence float64
	if s, err := scalarString(raw("confidence", "confidence_score")); err != nil {
		return fmt.Errorf("invalid confidence: %w", err)
	} else if s != "" {
		confidence, err = strconv.ParseFloat(s, 64)
		if err != nil {
			return fmt.Errorf("invalid confidence %q: %w", s, err)
		}
	}

	r.TransactionID = txnID
	r.CategoryID = categoryID
	r.Confidence = confidence
	return nil
}

// scalarString renders a JSON number or string as a trimmed string.
// Null and absent values yield "".
func scalarString(v json.RawMessage) (string, error) {
	if len(v) == 0 || string(v) == "null" {
		return "", nil
	}

	var s string
	if err := json.Unmarshal(v, &s); err == nil {
		return strings.TrimSpace(s), nil
	}

	var n json.Number
	if err := json.Unmarshal(v, &n); err != nil {
		return "", err
	}
	return n.String(), nil
}

// DecodeResults decodes each element, skipping the ones that are not valid results.
func DecodeResults(elems []json.RawMessage) (results []Result, skipped int) {
	results = make([]Result, 0, len(elems))
	for _, elem := range elems {
		var r Result
		if err := json.Unmarshal(elem, &r); err != nil {
			skipped++
			continue
		}
		results = append(results, r)
	}
	return results, skipped
}
