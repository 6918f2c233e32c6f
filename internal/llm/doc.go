// Package llm talks to the external classification service. It supports the
// OpenAI and Anthropic providers and layers rate limiting, per-call timeouts,
// retry with backoff and tolerant JSON extraction on top of them.
package llm
