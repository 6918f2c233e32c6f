package llm

import (
	"context"
	"net/http"
)

// Client is a raw connection to a classification provider.
type Client interface {
	// SendPrompt sends prompt and returns the provider's text reply.
	SendPrompt(ctx context.Context, prompt string) (string, error)
}

// CredentialChecker is implemented by clients that can verify their
// credentials without a network call.
type CredentialChecker interface {
	CheckCredentials() error
}

// Config holds the provider settings for a Client.
type Config struct {
	HTTPClient  *http.Client
	Provider    string
	APIKey      string
	Model       string
	Endpoint    string // Overrides the provider's API URL
	RateLimit   int    // Requests per minute
	Temperature float64
	MaxTokens   int
}

// systemPrompt asks the provider for machine-readable output only.
const systemPrompt = "You are a financial transaction classifier. Respond with ONLY a JSON array of objects " +
	"with the fields transaction_id, category_id and confidence. Do not include any explanatory text or markdown."
