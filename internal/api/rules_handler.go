package api

import (
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/Veraticus/the-spice-must-sort/internal/common"
	"github.com/Veraticus/the-spice-must-sort/internal/model"
	"github.com/Veraticus/the-spice-must-sort/internal/service"
	"github.com/gin-gonic/gin"
)

// RuleResponse is the wire form of both rule kinds.
type RuleResponse struct {
	CreatedAt  time.Time        `json:"createdAt"`
	RuleType   model.RuleType   `json:"ruleType"`
	Source     model.RuleSource `json:"source"`
	Pattern    string           `json:"pattern"`
	AccountID  string           `json:"accountId,omitempty"`
	ID         int64            `json:"id"`
	CategoryID int              `json:"categoryId"`
}

func merchantRuleResponse(r *model.MerchantRule) RuleResponse {
	return RuleResponse{
		ID:         r.ID,
		RuleType:   model.RuleTypeMerchant,
		Source:     r.Source,
		Pattern:    r.MerchantPattern,
		CategoryID: r.CategoryID,
		CreatedAt:  r.CreatedAt,
	}
}

func descriptionRuleResponse(r *model.DescriptionRule) RuleResponse {
	return RuleResponse{
		ID:         r.ID,
		RuleType:   model.RuleTypeDescription,
		Source:     r.Source,
		Pattern:    r.DescriptionPattern,
		AccountID:  r.AccountID,
		CategoryID: r.CategoryID,
		CreatedAt:  r.CreatedAt,
	}
}

// RuleListResponse is a page of rules.
type RuleListResponse struct {
	Rules  []RuleResponse `json:"rules"`
	Total  int            `json:"total"`
	Limit  int            `json:"limit"`
	Offset int            `json:"offset"`
}

// CreateMerchantRuleRequest creates or updates a manual merchant rule.
type CreateMerchantRuleRequest struct {
	Pattern    string `json:"pattern" binding:"required"`
	CategoryID int    `json:"categoryId" binding:"required,gt=0"`
}

// CreateDescriptionRuleRequest creates or updates a manual description rule.
type CreateDescriptionRuleRequest struct {
	AccountID  string `json:"accountId" binding:"required"`
	Pattern    string `json:"pattern" binding:"required"`
	CategoryID int    `json:"categoryId" binding:"required,gt=0"`
}

// CreateMerchantRule upserts a manual merchant rule.
func (s *Server) CreateMerchantRule(c *gin.Context) {
	var req CreateMerchantRuleRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		s.respondWithError(c, WithMessage(ErrInvalidInput, err.Error()))
		return
	}
	if err := s.requireCategory(c, req.CategoryID); err != nil {
		s.respondWithError(c, err)
		return
	}

	rule, err := s.store.CreateMerchantRule(c.Request.Context(), req.Pattern, req.CategoryID, model.RuleSourceManual)
	if err != nil {
		s.respondWithError(c, err)
		return
	}

	c.JSON(http.StatusCreated, merchantRuleResponse(rule))
}

// ListMerchantRules lists merchant rules, newest first.
func (s *Server) ListMerchantRules(c *gin.Context) {
	filter, page, err := ruleQuery(c)
	if err != nil {
		s.respondWithError(c, err)
		return
	}

	rules, total, err := s.store.ListMerchantRules(c.Request.Context(), filter, page)
	if err != nil {
		s.respondWithError(c, err)
		return
	}

	resp := RuleListResponse{Rules: make([]RuleResponse, 0, len(rules)), Total: total, Limit: page.Limit, Offset: page.Offset}
	for i := range rules {
		resp.Rules = append(resp.Rules, merchantRuleResponse(&rules[i]))
	}
	c.JSON(http.StatusOK, resp)
}

// DeleteMerchantRule removes a merchant rule.
func (s *Server) DeleteMerchantRule(c *gin.Context) {
	id, err := parsePathID(c, "id")
	if err != nil {
		s.respondWithError(c, err)
		return
	}

	if err := s.store.DeleteMerchantRule(c.Request.Context(), id); err != nil {
		if errors.Is(err, common.ErrNotFound) {
			err = Wrap(ErrRuleNotFound, err)
		}
		s.respondWithError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

// CreateDescriptionRule upserts a manual description rule for an account.
func (s *Server) CreateDescriptionRule(c *gin.Context) {
	var req CreateDescriptionRuleRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		s.respondWithError(c, WithMessage(ErrInvalidInput, err.Error()))
		return
	}
	if err := s.requireCategory(c, req.CategoryID); err != nil {
		s.respondWithError(c, err)
		return
	}
	if _, err := s.store.GetAccount(c.Request.Context(), req.AccountID); err != nil {
		if errors.Is(err, common.ErrNotFound) {
			err = Wrap(ErrAccountNotFound, err)
		}
		s.respondWithError(c, err)
		return
	}

	rule, err := s.store.CreateDescriptionRule(c.Request.Context(), req.AccountID, req.Pattern, req.CategoryID, model.RuleSourceManual)
	if err != nil {
		s.respondWithError(c, err)
		return
	}

	c.JSON(http.StatusCreated, descriptionRuleResponse(rule))
}

// ListDescriptionRules lists description rules, newest first.
func (s *Server) ListDescriptionRules(c *gin.Context) {
	filter, page, err := ruleQuery(c)
	if err != nil {
		s.respondWithError(c, err)
		return
	}
	filter.AccountID = c.Query("accountId")

	rules, total, err := s.store.ListDescriptionRules(c.Request.Context(), filter, page)
	if err != nil {
		s.respondWithError(c, err)
		return
	}

	resp := RuleListResponse{Rules: make([]RuleResponse, 0, len(rules)), Total: total, Limit: page.Limit, Offset: page.Offset}
	for i := range rules {
		resp.Rules = append(resp.Rules, descriptionRuleResponse(&rules[i]))
	}
	c.JSON(http.StatusOK, resp)
}

// DeleteDescriptionRule removes a description rule.
func (s *Server) DeleteDescriptionRule(c *gin.Context) {
	id, err := parsePathID(c, "id")
	if err != nil {
		s.respondWithError(c, err)
		return
	}

	if err := s.store.DeleteDescriptionRule(c.Request.Context(), id); err != nil {
		if errors.Is(err, common.ErrNotFound) {
			err = Wrap(ErrRuleNotFound, err)
		}
		s.respondWithError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

func (s *Server) requireCategory(c *gin.Context, id int) error {
	if _, err := s.store.GetCategoryByID(c.Request.Context(), id); err != nil {
		if errors.Is(err, common.ErrNotFound) {
			return Wrap(ErrCategoryNotFound, err)
		}
		return err
	}
	return nil
}

// ruleQuery reads the shared list filters: categoryId, source, search, limit and offset.
func ruleQuery(c *gin.Context) (service.RuleFilter, service.Page, error) {
	var filter service.RuleFilter

	categoryID, ok, err := queryInt(c, "categoryId")
	if err != nil {
		return filter, service.Page{}, err
	}
	if ok {
		filter.CategoryID = &categoryID
	}

	if source := strings.ToLower(c.Query("source")); source != "" {
		filter.Source = model.RuleSource(source)
		if !filter.Source.Valid() {
			return filter, service.Page{}, WithMessage(ErrInvalidInput, "source must be manual or ai")
		}
	}
	filter.Search = c.Query("search")

	limit, _, err := queryInt(c, "limit")
	if err != nil {
		return filter, service.Page{}, err
	}
	offset, _, err := queryInt(c, "offset")
	if err != nil {
		return filter, service.Page{}, err
	}

	return filter, service.Page{Limit: limit, Offset: offset}.Normalize(), nil
}
