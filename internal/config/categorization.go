// Package config loads categorization, provider and storage settings from viper.
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/Veraticus/the-spice-must-sort/internal/common"
	"github.com/Veraticus/the-spice-must-sort/internal/llm"
	"github.com/spf13/cast"
	"github.com/spf13/viper"
)

// Batch size bounds for AI sub-batches.
const (
	DefaultBatchSize = 50
	MinBatchSize     = 10
	MaxBatchSize     = 200
)

// Categorization holds the tunables of the categorization pipeline.
type Categorization struct {
	RetryDelays       []time.Duration
	Timeout           time.Duration
	BatchSize         int
	AcceptThreshold   float64
	AutoRuleThreshold float64
}

// DefaultCategorization returns the settings used when nothing is configured.
func DefaultCategorization() Categorization {
	return Categorization{
		Timeout:           30 * time.Second,
		RetryDelays:       append([]time.Duration(nil), common.DefaultRetryDelays...),
		BatchSize:         DefaultBatchSize,
		AcceptThreshold:   0.7,
		AutoRuleThreshold: 0.9,
	}
}

// Validate checks thresholds and timings.
func (c Categorization) Validate() error {
	if c.Timeout <= 0 {
		return fmt.Errorf("%w: categorization.timeout must be positive", common.ErrInvalidConfig)
	}
	if c.AcceptThreshold < 0 || c.AcceptThreshold > 1 {
		return fmt.Errorf("%w: categorization.accept_threshold must be within [0, 1]", common.ErrInvalidConfig)
	}
	if c.AutoRuleThreshold < 0 || c.AutoRuleThreshold > 1 {
		return fmt.Errorf("%w: categorization.auto_rule_threshold must be within [0, 1]", common.ErrInvalidConfig)
	}
	if c.AutoRuleThreshold < c.AcceptThreshold {
		return fmt.Errorf("%w: categorization.auto_rule_threshold must not be below accept_threshold", common.ErrInvalidConfig)
	}
	for _, d := range c.RetryDelays {
		if d < 0 {
			return fmt.Errorf("%w: categorization.retry_delays must not be negative", common.ErrInvalidConfig)
		}
	}
	return nil
}

// ClampBatchSize returns n limited to [MinBatchSize, MaxBatchSize], or the
// configured default when n is not positive.
func (c Categorization) ClampBatchSize(n int) int {
	if n <= 0 {
		n = c.BatchSize
	}
	if n <= 0 {
		n = DefaultBatchSize
	}
	if n < MinBatchSize {
		return MinBatchSize
	}
	if n > MaxBatchSize {
		return MaxBatchSize
	}
	return n
}

// SetDefaults registers every default with v.
func SetDefaults(v *viper.Viper) {
	def := DefaultCategorization()
	delays := make([]string, len(def.RetryDelays))
	for i, d := range def.RetryDelays {
		delays[i] = d.String()
	}

	v.SetDefault("categorization.timeout", def.Timeout.String())
	v.SetDefault("categorization.retry_delays", delays)
	v.SetDefault("categorization.batch_size", def.BatchSize)
	v.SetDefault("categorization.accept_threshold", def.AcceptThreshold)
	v.SetDefault("categorization.auto_rule_threshold", def.AutoRuleThreshold)

	v.SetDefault("llm.provider", "anthropic")
	v.SetDefault("llm.rate_limit", 60)
	v.SetDefault("llm.max_tokens", 4096)

	v.SetDefault("server.address", ":8080")
	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.format", "console")
}

// LoadCategorization reads the categorization settings from v.
// Durations accept Go syntax ("30s") or a bare number of seconds.
func LoadCategorization(v *viper.Viper) (Categorization, error) {
	c := DefaultCategorization()

	if v.IsSet("categorization.timeout") {
		d, err := parseSeconds(v.Get("categorization.timeout"))
		if err != nil {
			return c, fmt.Errorf("%w: categorization.timeout: %w", common.ErrInvalidConfig, err)
		}
		c.Timeout = d
	}

	if v.IsSet("categorization.retry_delays") {
		delays, err := parseDelays(v.Get("categorization.retry_delays"))
		if err != nil {
			return c, fmt.Errorf("%w: categorization.retry_delays: %w", common.ErrInvalidConfig, err)
		}
		c.RetryDelays = delays
	}

	if v.IsSet("categorization.batch_size") {
		c.BatchSize = v.GetInt("categorization.batch_size")
	}
	c.BatchSize = c.ClampBatchSize(c.BatchSize)

	if v.IsSet("categorization.accept_threshold") {
		c.AcceptThreshold = v.GetFloat64("categorization.accept_threshold")
	}
	if v.IsSet("categorization.auto_rule_threshold") {
		c.AutoRuleThreshold = v.GetFloat64("categorization.auto_rule_threshold")
	}

	if err := c.Validate(); err != nil {
		return c, err
	}
	return c, nil
}

// LoadLLM reads the provider settings from v. The API key falls back to the
// provider's conventional environment variable.
func LoadLLM(v *viper.Viper) llm.Config {
	cfg := llm.Config{
		Provider:    strings.ToLower(v.GetString("llm.provider")),
		APIKey:      v.GetString("llm.api_key"),
		Model:       v.GetString("llm.model"),
		Endpoint:    v.GetString("llm.endpoint"),
		RateLimit:   v.GetInt("llm.rate_limit"),
		Temperature: v.GetFloat64("llm.temperature"),
		MaxTokens:   v.GetInt("llm.max_tokens"),
	}

	if cfg.APIKey == "" {
		switch cfg.Provider {
		case "openai":
			cfg.APIKey = os.Getenv("OPENAI_API_KEY")
		case "", "anthropic":
			cfg.APIKey = os.Getenv("ANTHROPIC_API_KEY")
		}
	}

	return cfg
}

func parseDelays(raw any) ([]time.Duration, error) {
	var items []string
	if s, ok := raw.(string); ok {
		for _, part := range strings.Split(s, ",") {
			if part = strings.TrimSpace(part); part != "" {
				items = append(items, part)
			}
		}
	} else {
		slice, err := cast.ToStringSliceE(raw)
		if err != nil {
			return nil, err
		}
		items = slice
	}

	delays := make([]time.Duration, 0, len(items))
	for _, item := range items {
		d, err := parseSeconds(item)
		if err != nil {
			return nil, err
		}
		delays = append(delays, d)
	}
	return delays, nil
}

// parseSeconds treats bare numbers as seconds and anything else as a Go duration.
func parseSeconds(raw any) (time.Duration, error) {
	s := strings.TrimSpace(cast.ToString(raw))
	if s == "" {
		return 0, fmt.Errorf("empty duration")
	}
	if secs, err := strconv.ParseFloat(s, 64); err == nil {
		return time.Duration(secs * float64(time.Second)), nil
	}
	return time.ParseDuration(s)
}
