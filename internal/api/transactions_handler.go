package api

import (
	"errors"
	"net/http"
	"time"

	"github.com/Veraticus/the-spice-must-sort/internal/common"
	"github.com/Veraticus/the-spice-must-sort/internal/model"
	"github.com/gin-gonic/gin"
)

// CorrectionRequest is the body of PUT /api/transactions/:id/category.
type CorrectionRequest struct {
	CategoryID int  `json:"categoryId" binding:"required,gt=0"`
	CreateRule bool `json:"createRule"`
}

// TransactionResponse is the wire form of a transaction.
type TransactionResponse struct {
	Date               time.Time                  `json:"date"`
	CategoryID         *int                       `json:"categoryId"`
	ConfidenceScore    *float64                   `json:"confidenceScore"`
	ID                 string                     `json:"id"`
	AccountID          string                     `json:"accountId"`
	Description        string                     `json:"description"`
	NormalizedMerchant string                     `json:"normalizedMerchant,omitempty"`
	Source             model.CategorizationSource `json:"categorizationSource"`
	Amount             float64                    `json:"amount"`
}

// CorrectionResponse reports the corrected transaction and any rule it produced.
type CorrectionResponse struct {
	Rule        *RuleResponse       `json:"rule"`
	Transaction TransactionResponse `json:"transaction"`
}

// CorrectTransaction applies a manual category and optionally learns a manual rule.
func (s *Server) CorrectTransaction(c *gin.Context) {
	var req CorrectionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		s.respondWithError(c, WithMessage(ErrInvalidInput, err.Error()))
		return
	}

	if err := s.requireCategory(c, req.CategoryID); err != nil {
		s.respondWithError(c, err)
		return
	}

	correction, err := s.corrector.Correct(c.Request.Context(), c.Param("id"), req.CategoryID, req.CreateRule)
	if err != nil && correction == nil {
		if errors.Is(err, common.ErrNotFound) {
			err = Wrap(ErrTransactionNotFound, err)
		}
		s.respondWithError(c, err)
		return
	}
	if err != nil {
		// The transaction was corrected; only the rule failed.
		s.logger.Warn("correction rule not saved",
			"transaction_id", c.Param("id"),
			"error", err)
	}

	txn := correction.Transaction
	resp := CorrectionResponse{
		Transaction: TransactionResponse{
			ID:                 txn.ID,
			AccountID:          txn.AccountID,
			Date:               txn.Date,
			Description:        txn.Description,
			NormalizedMerchant: txn.NormalizedMerchant,
			Amount:             txn.Amount,
			CategoryID:         txn.CategoryID,
			ConfidenceScore:    txn.ConfidenceScore,
			Source:             txn.Source,
		},
	}
	switch {
	case correction.MerchantRule != nil:
		rule := merchantRuleResponse(correction.MerchantRule)
		resp.Rule = &rule
	case correction.DescriptionRule != nil:
		rule := descriptionRuleResponse(correction.DescriptionRule)
		resp.Rule = &rule
	}

	c.JSON(http.StatusOK, resp)
}
