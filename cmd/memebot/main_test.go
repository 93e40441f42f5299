package main

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Vladymirovich/MemeBot/internal/config"
	"github.com/Vladymirovich/MemeBot/internal/domain"
	"github.com/Vladymirovich/MemeBot/internal/ingestion"
)

func TestRouter(t *testing.T) {
	srv := httptest.NewServer(newRouter())
	defer srv.Close()

	resp, err := http.Get(srv.URL + "/health")
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	resp, err = http.Get(srv.URL + "/metrics")
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	resp, err = http.Post(srv.URL+"/health", "text/plain", nil)
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusMethodNotAllowed, resp.StatusCode)
}

func TestOpenStore(t *testing.T) {
	ctx := context.Background()

	t.Run("memory", func(t *testing.T) {
		store, err := openStore(ctx, config.DatabaseConfig{Driver: "memory"})
		require.NoError(t, err)
		defer store.Close()
		require.NoError(t, store.UpsertFromSearch(ctx, &domain.Coin{MintAddress: "MintA"}))
	})

	t.Run("sqlite", func(t *testing.T) {
		dsn := filepath.Join(t.TempDir(), "nested", "memebot.db")
		store, err := openStore(ctx, config.DatabaseConfig{Driver: "sqlite", DSN: dsn})
		require.NoError(t, err)
		require.NoError(t, store.UpsertFromSearch(ctx, &domain.Coin{MintAddress: "MintA"}))
		require.NoError(t, store.Close())

		_, err = os.Stat(dsn)
		assert.NoError(t, err)
	})

	t.Run("unknown", func(t *testing.T) {
		_, err := openStore(ctx, config.DatabaseConfig{Driver: "mysql"})
		assert.Error(t, err)
	})
}

func TestConfigCommand(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte("search:\n  query: BONK/SOL\n"), 0o600))

	configPath = path
	t.Cleanup(func() { configPath = "config/config.yaml" })

	var out bytes.Buffer
	configCmd.SetOut(&out)
	require.NoError(t, configCmd.RunE(configCmd, nil))
	assert.Contains(t, out.String(), "query: BONK/SOL")
}

func TestIgnoreCancel(t *testing.T) {
	assert.NoError(t, ignoreCancel(context.Canceled))
	assert.NoError(t, ignoreCancel(nil))
	assert.Error(t, ignoreCancel(assert.AnError))

	searchFailed := fmt.Errorf("%w: search %q: %w", ingestion.ErrIngestFailed, "PEPE/SOL", assert.AnError)
	err := ignoreCancel(errors.Join(searchFailed, context.Canceled))
	require.Error(t, err)
	assert.ErrorIs(t, err, ingestion.ErrIngestFailed)

	feedLost := fmt.Errorf("%w: %w", ingestion.ErrFeedDisconnected, assert.AnError)
	assert.Error(t, ignoreCancel(errors.Join(nil, feedLost, context.Canceled)))
}
