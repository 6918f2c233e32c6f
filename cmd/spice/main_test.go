package main

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/Veraticus/the-spice-must-sort/internal/config"
	"github.com/Veraticus/the-spice-must-sort/internal/model"
	"github.com/Veraticus/the-spice-must-sort/internal/storage"
	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadConfig_FileAndEnv(t *testing.T) {
	dir := t.TempDir()
	file := filepath.Join(dir, "config.yaml")
	require.NoError(t, os.WriteFile(file, []byte(`
categorization:
  batch_size: 25
  accept_threshold: 0.6
llm:
  provider: openai
database:
  path: `+filepath.Join(dir, "spice.db")+`
logging:
  level: warn
`), 0o600))

	t.Setenv("SPICE_CATEGORIZATION_TIMEOUT", "45")

	v := viper.New()
	require.NoError(t, loadConfig(v, file))

	cfg, err := config.LoadCategorization(v)
	require.NoError(t, err)
	assert.Equal(t, 25, cfg.BatchSize)
	assert.InDelta(t, 0.6, cfg.AcceptThreshold, 1e-9)
	assert.InDelta(t, 0.9, cfg.AutoRuleThreshold, 1e-9)
	assert.Equal(t, 45*time.Second, cfg.Timeout)

	assert.Equal(t, "openai", config.LoadLLM(v).Provider)
	assert.Equal(t, filepath.Join(dir, "spice.db"), config.DatabasePath(v))
}

func TestLoadConfig_MissingFile(t *testing.T) {
	v := viper.New()
	err := loadConfig(v, filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)
}

func TestLoadConfig_InvalidLogLevel(t *testing.T) {
	t.Setenv("SPICE_LOGGING_LEVEL", "loud")
	v := viper.New()
	file := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(file, []byte("server:\n  address: :9090\n"), 0o600))

	err := loadConfig(v, file)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "invalid log level")
}

func TestLoadTransactions(t *testing.T) {
	ctx := context.Background()
	v := viper.New()
	config.SetDefaults(v)
	v.Set("database.path", filepath.Join(t.TempDir(), "spice.db"))

	store, err := initStorage(ctx, v)
	require.NoError(t, err)
	t.Cleanup(func() { _ = store.Close() })

	require.NoError(t, store.CreateAccount(ctx, &model.Account{ID: "chk"}))
	txns := []model.Transaction{
		{ID: "a", AccountID: "chk", Date: time.Now(), Description: "ONE"},
		{ID: "b", AccountID: "chk", Date: time.Now(), Description: "TWO"},
	}
	for i := range txns {
		txns[i].Hash = txns[i].GenerateHash()
	}
	require.NoError(t, store.SaveTransactions(ctx, txns))

	version, err := store.SchemaVersion(ctx)
	require.NoError(t, err)
	assert.Equal(t, storage.ExpectedSchemaVersion, version)

	all, err := loadTransactions(ctx, store, nil)
	require.NoError(t, err)
	assert.Len(t, all, 2)

	some, err := loadTransactions(ctx, store, []string{"b", "missing"})
	require.NoError(t, err)
	require.Len(t, some, 1)
	assert.Equal(t, "b", some[0].ID)
}
