package llm

import (
	"fmt"
	"strings"

	"github.com/Veraticus/the-spice-must-sort/internal/common"
)

// NewClient creates a raw provider client based on the provided configuration.
func NewClient(cfg Config) (Client, error) {
	switch strings.ToLower(cfg.Provider) {
	case "", anthropicProvider:
		return newAnthropicClient(cfg), nil
	case openAIProvider:
		return newOpenAIClient(cfg), nil
	default:
		return nil, &common.ConfigurationError{
			Setting: "llm.provider",
			Message: fmt.Sprintf("unsupported LLM provider: %s", cfg.Provider),
		}
	}
}
