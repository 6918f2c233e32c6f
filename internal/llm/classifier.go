package llm

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/Veraticus/the-spice-must-sort/internal/common"
)

// Classifier sends classification prompts through a rate limiter and a retry
// policy, bounding every attempt with its own timeout.
type Classifier struct {
	client      Client
	rateLimiter *rateLimiter
	logger      *slog.Logger
	retry       common.RetryPolicy
}

// NewClassifier wraps client. A zero rateLimit uses the default of 60 requests per minute.
func NewClassifier(client Client, retry common.RetryPolicy, rateLimit int, logger *slog.Logger) *Classifier {
	if logger == nil {
		logger = slog.Default()
	}
	if retry.Logger == nil {
		retry.Logger = logger
	}

	return &Classifier{
		client:      client,
		rateLimiter: newRateLimiter(rateLimit),
		logger:      logger,
		retry:       retry,
	}
}

// CheckCredentials reports a *common.ConfigurationError when the provider
// has no usable credential. No network call is made.
func (c *Classifier) CheckCredentials() error {
	if checker, ok := c.client.(CredentialChecker); ok {
		return checker.CheckCredentials()
	}
	return nil
}

// Classify sends prompt and returns the parsed results. Timeouts and rate
// limits are retried per the retry policy; a reply with no recognizable JSON
// array yields an empty slice and no error.
func (c *Classifier) Classify(ctx context.Context, prompt string, timeout time.Duration) ([]Result, error) {
	if err := c.CheckCredentials(); err != nil {
		return nil, err
	}

	var reply string
	err := c.retry.Do(ctx, func(ctx context.Context) error {
		if err := c.rateLimiter.wait(ctx); err != nil {
			return err
		}

		text, err := c.send(ctx, prompt, timeout)
		if err != nil {
			return err
		}
		reply = text
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("classification request failed: %w", err)
	}

	elems, strategy := extractJSONArray(reply)
	if strategy == "" {
		c.logger.Warn("no JSON array found in classification reply",
			"reply_length", len(reply))
		return []Result{}, nil
	}

	results, skipped := DecodeResults(elems)
	c.logger.Debug("classification reply parsed",
		"strategy", strategy,
		"results", len(results),
		"skipped", skipped)

	return results, nil
}

// send performs a single attempt bounded by timeout.
func (c *Classifier) send(ctx context.Context, prompt string, timeout time.Duration) (string, error) {
	callCtx := ctx
	cancel := func() {}
	if timeout > 0 {
		callCtx, cancel = context.WithTimeout(ctx, timeout)
	}
	defer cancel()

	text, err := c.client.SendPrompt(callCtx, prompt)
	if err == nil {
		return text, nil
	}

	var timeoutErr *common.TimeoutError
	if errors.As(err, &timeoutErr) {
		if timeoutErr.Timeout == "" && timeout > 0 {
			timeoutErr.Timeout = timeout.String()
		}
		return "", err
	}
	if errors.Is(callCtx.Err(), context.DeadlineExceeded) && ctx.Err() == nil {
		return "", &common.TimeoutError{Err: err, Timeout: timeout.String()}
	}
	return "", err
}

// Close releases the rate limiter.
func (c *Classifier) Close() {
	c.rateLimiter.Close()
}
