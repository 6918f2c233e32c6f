package llm

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/Veraticus/the-spice-must-sort/internal/common"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// scriptedClient replays a fixed sequence of replies and errors.
type scriptedClient struct {
	credErr error
	steps   []scriptedStep
	prompts []string
	mu      sync.Mutex
}

type scriptedStep struct {
	err   error
	reply string
	block bool // wait for the call deadline
}

func (c *scriptedClient) SendPrompt(ctx context.Context, prompt string) (string, error) {
	c.mu.Lock()
	idx := len(c.prompts)
	c.prompts = append(c.prompts, prompt)
	c.mu.Unlock()

	if idx >= len(c.steps) {
		return "", errors.New("unexpected call")
	}
	step := c.steps[idx]
	if step.block {
		<-ctx.Done()
		return "", ctx.Err()
	}
	return step.reply, step.err
}

func (c *scriptedClient) CheckCredentials() error { return c.credErr }

func (c *scriptedClient) calls() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.prompts)
}

func newTestClassifier(client Client, slept *[]time.Duration) *Classifier {
	policy := common.RetryPolicy{
		Delays:    common.DefaultRetryDelays,
		Retryable: common.IsRetryable,
		Sleep: func(_ context.Context, d time.Duration) error {
			*slept = append(*slept, d)
			return nil
		},
		Logger: common.DiscardLogger(),
	}
	return NewClassifier(client, policy, 1000, common.DiscardLogger())
}

func TestClassifier_Classify(t *testing.T) {
	client := &scriptedClient{steps: []scriptedStep{
		{reply: "```json\n[{\"transaction_id\":\"t1\",\"category_id\":2,\"confidence\":0.95}]\n```"},
	}}
	var slept []time.Duration
	c := newTestClassifier(client, &slept)
	defer c.Close()

	results, err := c.Classify(context.Background(), "prompt", time.Second)
	require.NoError(t, err)
	require.Len(t, results, 1)
	assert.Equal(t, "t1", results[0].TransactionID)
	assert.Equal(t, 2, *results[0].CategoryID)
	assert.Empty(t, slept)
}

func TestClassifier_RetriesRateLimitThenSucceeds(t *testing.T) {
	rateLimited := &common.InvocationError{Provider: "anthropic", Kind: common.KindRateLimit, StatusCode: 429}
	client := &scriptedClient{steps: []scriptedStep{
		{err: rateLimited},
		{err: rateLimited},
		{reply: `[]`},
	}}
	var slept []time.Duration
	c := newTestClassifier(client, &slept)
	defer c.Close()

	results, err := c.Classify(context.Background(), "prompt", time.Second)
	require.NoError(t, err)
	assert.Empty(t, results)
	assert.Equal(t, 3, client.calls())
	assert.Equal(t, []time.Duration{2 * time.Second, 4 * time.Second}, slept)
}

func TestClassifier_ExhaustedRetries(t *testing.T) {
	timeout := &common.TimeoutError{Err: context.DeadlineExceeded}
	client := &scriptedClient{steps: []scriptedStep{{err: timeout}, {err: timeout}, {err: timeout}, {err: timeout}}}
	var slept []time.Duration
	c := newTestClassifier(client, &slept)
	defer c.Close()

	_, err := c.Classify(context.Background(), "prompt", time.Second)
	require.Error(t, err)
	assert.ErrorIs(t, err, common.ErrMaxRetries)
	assert.ErrorIs(t, err, common.ErrClient)
	assert.Equal(t, 4, client.calls())
	assert.Len(t, slept, 3)
}

func TestClassifier_AuthenticationIsTerminal(t *testing.T) {
	client := &scriptedClient{steps: []scriptedStep{
		{err: &common.InvocationError{Provider: "openai", Kind: common.KindAuthentication, StatusCode: 401}},
	}}
	var slept []time.Duration
	c := newTestClassifier(client, &slept)
	defer c.Close()

	_, err := c.Classify(context.Background(), "prompt", time.Second)
	require.Error(t, err)
	assert.NotErrorIs(t, err, common.ErrMaxRetries)
	assert.Equal(t, 1, client.calls())
	assert.Empty(t, slept)
}

func TestClassifier_PerCallTimeout(t *testing.T) {
	client := &scriptedClient{steps: []scriptedStep{{block: true}, {reply: `[{"transaction_id":"t1"}]`}}}
	var slept []time.Duration
	c := newTestClassifier(client, &slept)
	defer c.Close()

	results, err := c.Classify(context.Background(), "prompt", 20*time.Millisecond)
	require.NoError(t, err)
	assert.Len(t, results, 1)
	assert.Equal(t, []time.Duration{2 * time.Second}, slept, "timed out attempt is retried")
}

func TestClassifier_MissingCredentialsFailFast(t *testing.T) {
	client := &scriptedClient{credErr: &common.ConfigurationError{Setting: "llm.api_key", Message: "missing"}}
	var slept []time.Duration
	c := newTestClassifier(client, &slept)
	defer c.Close()

	require.Error(t, c.CheckCredentials())

	_, err := c.Classify(context.Background(), "prompt", time.Second)
	require.Error(t, err)
	assert.True(t, common.IsConfigurationError(err))
	assert.Equal(t, 0, client.calls())
}

func TestClassifier_UnparseableReply(t *testing.T) {
	client := &scriptedClient{steps: []scriptedStep{{reply: "Sorry, I can't do that."}}}
	var slept []time.Duration
	c := newTestClassifier(client, &slept)
	defer c.Close()

	results, err := c.Classify(context.Background(), "prompt", time.Second)
	require.NoError(t, err)
	assert.NotNil(t, results)
	assert.Empty(t, results)
}
