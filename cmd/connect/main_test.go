package main

import (
	"context"
	"testing"

	"github.com/pysugar/oauth-connect/internal/accounts"
	"github.com/pysugar/oauth-connect/internal/config"
	"github.com/pysugar/oauth-connect/internal/db"
	"github.com/pysugar/oauth-connect/internal/providers"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestOpenStore_MemoryByDefault(t *testing.T) {
	store, err := openStore(config.Default())
	require.NoError(t, err)
	assert.IsType(t, &accounts.MemoryStore{}, store)
}

func TestOpenStore_SQLite(t *testing.T) {
	cfg := config.Default()
	cfg.CacheBackend = config.CacheSQLite
	cfg.CacheDSN = "file:connect_main_test?mode=memory&cache=shared"

	store, err := openStore(cfg)
	require.NoError(t, err)
	assert.IsType(t, &db.Store{}, store)

	ctx := context.Background()
	require.NoError(t, store.Upsert(ctx, providers.Gmail, accounts.Record{AccountID: "a1", Status: accounts.StatusConnected}))
	_, ok, err := store.Get(ctx, providers.Gmail)
	require.NoError(t, err)
	assert.True(t, ok)
}
