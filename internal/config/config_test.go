package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadWatchlist(t *testing.T) {
	path := filepath.Join(t.TempDir(), "watchlist.yaml")

	require.NoError(t, os.WriteFile(path, []byte(`
username: watcher
exclude_users:
  - noisy_account
include_keywords:
  - AI
  - LLM
exclude_keywords:
  - giveaway
trending_query: '(AI OR LLM) min_faves:100'
`), 0o644))

	wl, err := LoadWatchlist(path)
	require.NoError(t, err)

	assert.Equal(t, "watcher", wl.Username)
	assert.Equal(t, []string{"noisy_account"}, wl.ExcludeUsers)
	assert.Equal(t, []string{"AI", "LLM"}, wl.IncludeKeywords)
	assert.Equal(t, []string{"giveaway"}, wl.ExcludeKeywords)
	assert.Equal(t, "(AI OR LLM) min_faves:100", wl.TrendingQuery)
}

func TestLoadWatchlistMissingFile(t *testing.T) {
	wl, err := LoadWatchlist(filepath.Join(t.TempDir(), "nope.yaml"))

	require.NoError(t, err)
	assert.Empty(t, wl.Username)
	assert.NotEmpty(t, wl.TrendingQuery)
}

func TestLoadWatchlistDefaultsQuery(t *testing.T) {
	path := filepath.Join(t.TempDir(), "watchlist.yaml")
	require.NoError(t, os.WriteFile(path, []byte("username: watcher\n"), 0o644))

	wl, err := LoadWatchlist(path)
	require.NoError(t, err)

	assert.Contains(t, wl.TrendingQuery, "AI")
}

func TestLookback(t *testing.T) {
	cfg := &Config{LookbackHours: 8}
	assert.Equal(t, 8*time.Hour, cfg.Lookback())

	cfg.LookbackHours = 0.5
	assert.Equal(t, 30*time.Minute, cfg.Lookback())

	cfg.LookbackHours = 0
	assert.Equal(t, time.Duration(0), cfg.Lookback())
}

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, 3, cfg.LLMMaxRetries)
	assert.Equal(t, 120*time.Second, cfg.LLMTimeout)
	assert.Equal(t, 30000, cfg.MaxBatchTokens)
	assert.Equal(t, 24*time.Hour, cfg.AccountCacheTTL)
	assert.True(t, cfg.Deduplicate)
}
