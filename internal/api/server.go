// Package api exposes categorization jobs, rule management and manual
// corrections over HTTP.
package api

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/Veraticus/the-spice-must-sort/internal/engine"
	"github.com/Veraticus/the-spice-must-sort/internal/jobs"
	"github.com/Veraticus/the-spice-must-sort/internal/model"
	"github.com/Veraticus/the-spice-must-sort/internal/service"
	"github.com/gin-gonic/gin"
)

// JobRunner starts and reports categorization jobs.
type JobRunner interface {
	Trigger(ctx context.Context, req jobs.TriggerRequest) (*jobs.TriggerResponse, error)
	Progress(batchID string) (model.BatchJobState, error)
	UnclassifiedCount(ctx context.Context) (int, error)
}

// Corrector applies manual corrections.
type Corrector interface {
	Correct(ctx context.Context, txnID string, categoryID int, learn bool) (*engine.Correction, error)
}

// Store is the storage the HTTP handlers read and write directly.
type Store interface {
	service.MerchantRuleStore
	service.DescriptionRuleStore
	service.CategoryStore
	service.AccountStore
}

// Server holds the handler dependencies.
type Server struct {
	runner    JobRunner
	store     Store
	corrector Corrector
	logger    *slog.Logger
}

// NewServer creates a Server.
func NewServer(runner JobRunner, store Store, corrector Corrector, logger *slog.Logger) *Server {
	if logger == nil {
		logger = slog.Default()
	}
	return &Server{runner: runner, store: store, corrector: corrector, logger: logger}
}

// Router builds the gin engine with every route registered.
func (s *Server) Router() *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery(), requestLogging(s.logger))

	r.GET("/healthz", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	api := r.Group("/api")
	api.POST("/categorize", s.TriggerCategorization)
	api.GET("/categorize/:batchId", s.GetProgress)
	api.GET("/transactions/unclassified/count", s.GetUnclassifiedCount)
	api.PUT("/transactions/:id/category", s.CorrectTransaction)

	rules := api.Group("/rules")
	rules.POST("/merchant", s.CreateMerchantRule)
	rules.GET("/merchant", s.ListMerchantRules)
	rules.DELETE("/merchant/:id", s.DeleteMerchantRule)
	rules.POST("/description", s.CreateDescriptionRule)
	rules.GET("/description", s.ListDescriptionRules)
	rules.DELETE("/description/:id", s.DeleteDescriptionRule)

	return r
}
