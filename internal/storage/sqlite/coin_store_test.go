package sqlite

import (
	"context"
	"fmt"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Vladymirovich/MemeBot/internal/domain"
	"github.com/Vladymirovich/MemeBot/internal/storage"
)

type stepClock struct {
	mu sync.Mutex
	t  time.Time
}

func (c *stepClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.t = c.t.Add(time.Second)
	return c.t
}

func setupCoinStore(t *testing.T) *CoinStore {
	t.Helper()

	dsn := filepath.Join(t.TempDir(), "data", "coins.sqlite")
	db, err := Open(context.Background(), dsn)
	require.NoError(t, err, "open sqlite")

	clock := &stepClock{t: time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)}
	store := NewCoinStoreWithClock(db, clock.Now)
	t.Cleanup(func() {
		_ = store.Close()
	})
	return store
}

func ptr[T any](v T) *T {
	return &v
}

func searchCoin(mint string, marketCap float64) *domain.Coin {
	return &domain.Coin{
		MintAddress:  mint,
		Name:         ptr("Test Token"),
		Symbol:       ptr("TEST"),
		MarketCap:    ptr(marketCap),
		Liquidity:    ptr(50000.0),
		TxnsH24Buys:  ptr(int64(100)),
		TxnsH24Sells: ptr(int64(50)),
	}
}

func TestCoinStore_UpsertFromSearch_Idempotent(t *testing.T) {
	store := setupCoinStore(t)
	ctx := context.Background()

	require.NoError(t, store.UpsertFromSearch(ctx, searchCoin("mint1", 1000)))
	first, err := store.GetByMint(ctx, "mint1")
	require.NoError(t, err)
	assert.Equal(t, domain.SourceSearch, first.Source)

	require.NoError(t, store.UpsertFromSearch(ctx, searchCoin("mint1", 2000)))

	all, err := store.ListAll(ctx)
	require.NoError(t, err)
	require.Len(t, all, 1)
	assert.Equal(t, first.ID, all[0].ID)
	assert.Equal(t, 2000.0, *all[0].MarketCap)
	assert.True(t, all[0].UpdatedAt.After(first.UpdatedAt))
	assert.True(t, all[0].CreatedAt.Equal(first.CreatedAt))
}

func TestCoinStore_UpsertKeepsFlagsAndSource(t *testing.T) {
	store := setupCoinStore(t)
	ctx := context.Background()

	inserted, err := store.InsertIfAbsentFromEvent(ctx, &domain.Coin{MintAddress: "mint1", Symbol: ptr("EVT")})
	require.NoError(t, err)
	require.True(t, inserted)

	c, err := store.GetByMint(ctx, "mint1")
	require.NoError(t, err)
	assert.Equal(t, domain.SourceEvent, c.Source)

	require.NoError(t, store.UpdateClassification(ctx, c.ID, domain.Classification{Tier1: true}))
	require.NoError(t, store.SetBundledSupply(ctx, c.ID, true))
	require.NoError(t, store.UpsertFromSearch(ctx, searchCoin("mint1", 42)))

	got, err := store.GetByMint(ctx, "mint1")
	require.NoError(t, err)
	assert.True(t, got.Tier1)
	assert.True(t, got.BundledSupply)
	assert.Equal(t, domain.SourceEvent, got.Source)
	assert.Equal(t, "TEST", *got.Symbol)
	assert.Equal(t, 42.0, *got.MarketCap)
}

func TestCoinStore_InsertIfAbsent_DoesNotOverwrite(t *testing.T) {
	store := setupCoinStore(t)
	ctx := context.Background()

	require.NoError(t, store.UpsertFromSearch(ctx, searchCoin("mint1", 1000)))

	inserted, err := store.InsertIfAbsentFromEvent(ctx, &domain.Coin{MintAddress: "mint1", Name: ptr("Other")})
	require.NoError(t, err)
	assert.False(t, inserted)

	got, err := store.GetByMint(ctx, "mint1")
	require.NoError(t, err)
	assert.Equal(t, "Test Token", *got.Name)
	assert.Equal(t, 1000.0, *got.MarketCap)
	assert.Equal(t, int64(100), *got.TxnsH24Buys)
}

func TestCoinStore_UpdateNotFound(t *testing.T) {
	store := setupCoinStore(t)
	ctx := context.Background()

	assert.ErrorIs(t, store.UpdateClassification(ctx, 7, domain.Classification{Pump: true}), storage.ErrNotFound)
	assert.ErrorIs(t, store.SetBundledSupply(ctx, 7, true), storage.ErrNotFound)

	_, err := store.GetByMint(ctx, "nope")
	assert.ErrorIs(t, err, storage.ErrNotFound)
}

func TestCoinStore_InvalidInput(t *testing.T) {
	store := setupCoinStore(t)
	ctx := context.Background()

	assert.ErrorIs(t, store.UpsertFromSearch(ctx, &domain.Coin{MintAddress: "  "}), storage.ErrInvalidInput)
	_, err := store.InsertIfAbsentFromEvent(ctx, &domain.Coin{})
	assert.ErrorIs(t, err, storage.ErrInvalidInput)

	all, err := store.ListAll(ctx)
	require.NoError(t, err)
	assert.Empty(t, all)
}

func TestCoinStore_ConcurrentWriters(t *testing.T) {
	store := setupCoinStore(t)
	ctx := context.Background()

	const mints = 25
	var wg sync.WaitGroup
	wg.Add(2)

	go func() {
		defer wg.Done()
		for i := 0; i < mints; i++ {
			assert.NoError(t, store.UpsertFromSearch(ctx, searchCoin(fmt.Sprintf("mint-%d", i), float64(i))))
		}
	}()
	go func() {
		defer wg.Done()
		for i := mints - 1; i >= 0; i-- {
			_, err := store.InsertIfAbsentFromEvent(ctx, &domain.Coin{MintAddress: fmt.Sprintf("mint-%d", i)})
			assert.NoError(t, err)
		}
	}()
	wg.Wait()

	all, err := store.ListAll(ctx)
	require.NoError(t, err)
	assert.Len(t, all, mints)
	for _, c := range all {
		assert.NotNil(t, c.MarketCap, c.MintAddress)
	}
}

func TestEnsureDirectory(t *testing.T) {
	assert.NoError(t, ensureDirectory(":memory:"))
	assert.NoError(t, ensureDirectory("file::memory:?cache=shared"))

	dir := filepath.Join(t.TempDir(), "nested", "dir")
	require.NoError(t, ensureDirectory("file:"+filepath.Join(dir, "x.db")+"?_pragma=busy_timeout(5000)"))
	assert.DirExists(t, dir)
}
