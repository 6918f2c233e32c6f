package testutil

import (
	"fmt"
	"time"

	"github.com/Veraticus/the-spice-must-sort/internal/model"
)

// TestDate is the date every generated transaction carries.
var TestDate = time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC)

// NewTransaction builds an uncategorized transaction with its hash set.
func NewTransaction(id, account, description, merchant string) model.Transaction {
	txn := model.Transaction{
		ID:                 id,
		AccountID:          account,
		Date:               TestDate,
		Description:        description,
		NormalizedMerchant: merchant,
		Amount:             12.34,
		Source:             model.SourceNone,
	}
	txn.Hash = txn.GenerateHash()
	return txn
}

// NewTransactions builds n transactions on account. IDs follow idFormat
// (e.g. "txn-%03d"); merchants follow merchantFormat applied to i, and are
// left empty when merchantFormat is "". Descriptions are unique per i.
func NewTransactions(n int, account, idFormat, merchantFormat string) []model.Transaction {
	txns := make([]model.Transaction, n)
	for i := range txns {
		merchant := ""
		if merchantFormat != "" {
			merchant = fmt.Sprintf(merchantFormat, i)
		}
		txns[i] = NewTransaction(
			fmt.Sprintf(idFormat, i),
			account,
			fmt.Sprintf("POS PURCHASE %d REF %08d", i, 40000000+i),
			merchant,
		)
	}
	return txns
}
