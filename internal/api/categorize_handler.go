package api

import (
	"errors"
	"io"
	"net/http"
	"time"

	"github.com/Veraticus/the-spice-must-sort/internal/common"
	"github.com/Veraticus/the-spice-must-sort/internal/jobs"
	"github.com/Veraticus/the-spice-must-sort/internal/model"
	"github.com/gin-gonic/gin"
)

// TriggerRequest is the optional body of POST /api/categorize.
type TriggerRequest struct {
	TransactionIDs []string `json:"transactionIds"`
	BatchSize      int      `json:"batchSize" binding:"omitempty,min=0"`
}

// ProgressResponse is the poll view of a job.
type ProgressResponse struct {
	StartedAt             time.Time       `json:"startedAt"`
	CompletedAt           *time.Time      `json:"completedAt,omitempty"`
	BatchID               string          `json:"batchId"`
	Status                model.JobStatus `json:"status"`
	ErrorMessage          string          `json:"errorMessage,omitempty"`
	TotalTransactions     int             `json:"totalTransactions"`
	ProcessedTransactions int             `json:"processedTransactions"`
	SuccessCount          int             `json:"successCount"`
	FailureCount          int             `json:"failureCount"`
	SkippedCount          int             `json:"skippedCount"`
	RuleMatchCount        int             `json:"ruleMatchCount"`
	DescRuleMatchCount    int             `json:"descRuleMatchCount"`
	AIMatchCount          int             `json:"aiMatchCount"`
	AutoRulesCreated      int             `json:"autoRulesCreated"`
}

func newProgressResponse(s model.BatchJobState) ProgressResponse {
	return ProgressResponse{
		BatchID:               s.BatchID,
		Status:                s.Status,
		TotalTransactions:     s.TotalTransactions,
		ProcessedTransactions: s.ProcessedTransactions,
		SuccessCount:          s.SuccessCount,
		FailureCount:          s.FailureCount,
		SkippedCount:          s.SkippedCount,
		RuleMatchCount:        s.RuleMatchCount,
		DescRuleMatchCount:    s.DescRuleMatchCount,
		AIMatchCount:          s.AIMatchCount,
		AutoRulesCreated:      s.AutoRulesCreated,
		ErrorMessage:          s.ErrorMessage,
		StartedAt:             s.StartedAt,
		CompletedAt:           s.CompletedAt,
	}
}

// TriggerCategorization starts a background job and answers 202 immediately.
func (s *Server) TriggerCategorization(c *gin.Context) {
	var req TriggerRequest
	if err := c.ShouldBindJSON(&req); err != nil && !errors.Is(err, io.EOF) {
		s.respondWithError(c, WithMessage(ErrInvalidInput, err.Error()))
		return
	}

	resp, err := s.runner.Trigger(c.Request.Context(), jobs.TriggerRequest{
		TransactionIDs: req.TransactionIDs,
		BatchSize:      req.BatchSize,
	})
	if err != nil {
		s.respondWithError(c, err)
		return
	}

	c.JSON(http.StatusAccepted, resp)
}

// GetProgress returns the current state of a job.
func (s *Server) GetProgress(c *gin.Context) {
	state, err := s.runner.Progress(c.Param("batchId"))
	if err != nil {
		if errors.Is(err, common.ErrNotFound) {
			s.respondWithError(c, Wrap(ErrBatchNotFound, err))
			return
		}
		s.respondWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, newProgressResponse(state))
}

// GetUnclassifiedCount returns how many transactions still need a category.
func (s *Server) GetUnclassifiedCount(c *gin.Context) {
	count, err := s.runner.UnclassifiedCount(c.Request.Context())
	if err != nil {
		s.respondWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"count": count})
}
