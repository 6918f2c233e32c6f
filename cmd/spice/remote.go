package main

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/Veraticus/the-spice-must-sort/internal/api"
	"github.com/Veraticus/the-spice-must-sort/internal/common"
	"github.com/Veraticus/the-spice-must-sort/internal/jobs"
	"github.com/Veraticus/the-spice-must-sort/internal/model"
)

// remoteClient talks to the categorize endpoints of a running server.
type remoteClient struct {
	http    *http.Client
	baseURL string
}

func newRemoteClient(baseURL string, httpClient *http.Client) *remoteClient {
	if httpClient == nil {
		httpClient = &http.Client{Timeout: 30 * time.Second}
	}
	return &remoteClient{http: httpClient, baseURL: strings.TrimRight(baseURL, "/")}
}

// Trigger starts a job and returns its id.
func (c *remoteClient) Trigger(ctx context.Context, req jobs.TriggerRequest) (*jobs.TriggerResponse, error) {
	body, err := json.Marshal(req)
	if err != nil {
		return nil, fmt.Errorf("failed to encode request: %w", err)
	}

	var resp jobs.TriggerResponse
	if err := c.do(ctx, http.MethodPost, "/api/categorize", body, http.StatusAccepted, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// Progress fetches the state of a job.
func (c *remoteClient) Progress(ctx context.Context, batchID string) (model.BatchJobState, error) {
	var resp api.ProgressResponse
	if err := c.do(ctx, http.MethodGet, "/api/categorize/"+url.PathEscape(batchID), nil, http.StatusOK, &resp); err != nil {
		return model.BatchJobState{}, err
	}

	return model.BatchJobState{
		BatchCounts: model.BatchCounts{
			SuccessCount:       resp.SuccessCount,
			FailureCount:       resp.FailureCount,
			SkippedCount:       resp.SkippedCount,
			RuleMatchCount:     resp.RuleMatchCount,
			DescRuleMatchCount: resp.DescRuleMatchCount,
			AIMatchCount:       resp.AIMatchCount,
			AutoRulesCreated:   resp.AutoRulesCreated,
		},
		BatchID:               resp.BatchID,
		Status:                resp.Status,
		ErrorMessage:          resp.ErrorMessage,
		TotalTransactions:     resp.TotalTransactions,
		ProcessedTransactions: resp.ProcessedTransactions,
		StartedAt:             resp.StartedAt,
		CompletedAt:           resp.CompletedAt,
	}, nil
}

type errorEnvelope struct {
	Error struct {
		Code    string `json:"code"`
		Message string `json:"message"`
	} `json:"error"`
}

func (c *remoteClient) do(ctx context.Context, method, path string, body []byte, want int, out any) error {
	var reader io.Reader
	if body != nil {
		reader = bytes.NewReader(body)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return fmt.Errorf("failed to build request: %w", err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("request to %s failed: %w", c.baseURL, err)
	}
	defer func() { _ = resp.Body.Close() }()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("failed to read response: %w", err)
	}

	if resp.StatusCode != want {
		return remoteError(resp.StatusCode, data)
	}
	if err := json.Unmarshal(data, out); err != nil {
		return fmt.Errorf("failed to decode response: %w", err)
	}
	return nil
}

// remoteError maps the server's error codes back onto local sentinels.
func remoteError(status int, data []byte) error {
	var env errorEnvelope
	if err := json.Unmarshal(data, &env); err != nil || env.Error.Code == "" {
		return fmt.Errorf("server returned %d: %s", status, strings.TrimSpace(string(data)))
	}

	switch env.Error.Code {
	case api.ErrJobRunning.Code:
		return common.ErrJobRunning
	case api.ErrNoTransactions.Code:
		return common.ErrNoTransactions
	case api.ErrBatchNotFound.Code:
		return fmt.Errorf("batch %w", common.ErrNotFound)
	}
	return fmt.Errorf("server returned %d %s: %s", status, env.Error.Code, env.Error.Message)
}
