package main

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/Veraticus/the-spice-must-sort/internal/common"
	"github.com/Veraticus/the-spice-must-sort/internal/config"
	"github.com/Veraticus/the-spice-must-sort/internal/engine"
	"github.com/Veraticus/the-spice-must-sort/internal/llm"
	"github.com/Veraticus/the-spice-must-sort/internal/storage"
	"github.com/spf13/viper"
)

// envKeyReplacer maps nested keys to env names: llm.api_key -> SPICE_LLM_API_KEY.
var envKeyReplacer = strings.NewReplacer(".", "_")

// initStorage opens the configured database and brings its schema up to date.
func initStorage(ctx context.Context, v *viper.Viper) (*storage.SQLiteStorage, error) {
	dbPath := config.DatabasePath(v)

	store, err := storage.NewSQLiteStorage(dbPath)
	if err != nil {
		return nil, err
	}

	if err := store.Migrate(ctx); err != nil {
		_ = store.Close()
		return nil, fmt.Errorf("failed to run migrations: %w", err)
	}

	return store, nil
}

// pipeline bundles the categorizer with the classifier it owns.
type pipeline struct {
	categorizer *engine.Categorizer
	classifier  *llm.Classifier
	cfg         config.Categorization
}

func (p *pipeline) Close() {
	p.classifier.Close()
}

// newPipeline builds the classifier and categorizer from configuration.
func newPipeline(v *viper.Viper, store engine.Store, logger *slog.Logger) (*pipeline, error) {
	cfg, err := config.LoadCategorization(v)
	if err != nil {
		return nil, err
	}

	llmCfg := config.LoadLLM(v)
	client, err := llm.NewClient(llmCfg)
	if err != nil {
		return nil, err
	}

	classifier := llm.NewClassifier(client, common.NewRetryPolicy(cfg.RetryDelays, logger), llmCfg.RateLimit, logger)
	return &pipeline{
		categorizer: engine.NewCategorizer(store, classifier, cfg, logger),
		classifier:  classifier,
		cfg:         cfg,
	}, nil
}
