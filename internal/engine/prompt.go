package engine

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/Veraticus/the-spice-must-sort/internal/model"
)

const transactionsHeader = "Transactions:"

// promptTransaction is the JSON shape of a transaction inside a prompt.
type promptTransaction struct {
	ID          string  `json:"transaction_id"`
	Date        string  `json:"date"`
	Description string  `json:"description"`
	Merchant    string  `json:"merchant,omitempty"`
	Amount      float64 `json:"amount"`
}

// BuildPrompt renders the classification request for one sub-batch. Every
// active category is listed so the classifier can only answer with known ids.
func BuildPrompt(txns []model.Transaction, categories []model.Category) (string, error) {
	var b strings.Builder

	b.WriteString("Assign each transaction below to exactly one of the listed categories.\n\n")
	b.WriteString("Categories:\n")
	for _, cat := range categories {
		if cat.Description != "" {
			fmt.Fprintf(&b, "- id=%d: %s (%s)\n", cat.ID, cat.Name, cat.Description)
			continue
		}
		fmt.Fprintf(&b, "- id=%d: %s\n", cat.ID, cat.Name)
	}

	items := make([]promptTransaction, len(txns))
	for i, txn := range txns {
		items[i] = promptTransaction{
			ID:          txn.ID,
			Date:        txn.Date.Format("2006-01-02"),
			Description: txn.Description,
			Merchant:    txn.NormalizedMerchant,
			Amount:      txn.Amount,
		}
	}
	encoded, err := json.Marshal(items)
	if err != nil {
		return "", fmt.Errorf("failed to encode transactions: %w", err)
	}

	b.WriteString("\n" + transactionsHeader + "\n")
	b.Write(encoded)
	b.WriteString("\n\n")
	b.WriteString(`Respond with ONLY a JSON array containing one object per transaction:
[{"transaction_id": "<id from above>", "category_id": <category id or null if none fits>, "confidence": <0.0 to 1.0>}]
`)

	return b.String(), nil
}

// PromptTransactionIDs recovers the transaction ids embedded in a prompt
// built by BuildPrompt.
func PromptTransactionIDs(prompt string) []string {
	_, rest, ok := strings.Cut(prompt, transactionsHeader+"\n")
	if !ok {
		return nil
	}
	line, _, _ := strings.Cut(rest, "\n")

	var items []promptTransaction
	if err := json.Unmarshal([]byte(line), &items); err != nil {
		return nil
	}

	ids := make([]string, len(items))
	for i, item := range items {
		ids[i] = item.ID
	}
	return ids
}
