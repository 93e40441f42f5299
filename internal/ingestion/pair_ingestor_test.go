package ingestion

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Vladymirovich/MemeBot/internal/dexscreener"
	"github.com/Vladymirovich/MemeBot/internal/domain"
	"github.com/Vladymirovich/MemeBot/internal/storage"
	"github.com/Vladymirovich/MemeBot/internal/storage/memory"
)

type stubPairSource struct {
	resp  *dexscreener.SearchResponse
	err   error
	calls int
}

func (s *stubPairSource) Search(_ context.Context, _ string) (*dexscreener.SearchResponse, error) {
	s.calls++
	return s.resp, s.err
}

func rawPairs(t *testing.T, entries ...string) *dexscreener.SearchResponse {
	t.Helper()
	resp := &dexscreener.SearchResponse{}
	for _, e := range entries {
		resp.Pairs = append(resp.Pairs, json.RawMessage(e))
	}
	return resp
}

// failingStore fails writes for one mint and delegates the rest.
type failingStore struct {
	storage.CoinStore
	failMint string
}

func (s *failingStore) UpsertFromSearch(ctx context.Context, c *domain.Coin) error {
	if c.MintAddress == s.failMint {
		return errors.New("disk full")
	}
	return s.CoinStore.UpsertFromSearch(ctx, c)
}

func (s *failingStore) InsertIfAbsentFromEvent(ctx context.Context, c *domain.Coin) (bool, error) {
	if c.MintAddress == s.failMint {
		return false, errors.New("disk full")
	}
	return s.CoinStore.InsertIfAbsentFromEvent(ctx, c)
}

func TestIngestor_EndToEndSearch(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/dex/search", r.URL.Path)
		assert.Equal(t, "T1/SOL", r.URL.Query().Get("q"))
		_, _ = w.Write([]byte(`{"schemaVersion":"1.0.0","pairs":[{
			"pairAddress":"P1",
			"baseToken":{"address":"T1","name":"Token One","symbol":"T1"},
			"info":{"description":"first","imageUrl":"https://img/t1.png"},
			"priceUsd":"0.0042",
			"marketCap":1000000,
			"liquidity":{"usd":50000},
			"volume":{"h24":120000},
			"txns":{"h24":{"buys":100,"sells":50}}
		}]}`))
	}))
	defer srv.Close()

	store := memory.NewCoinStore()
	ing := NewIngestor(IngestorOptions{
		Source: dexscreener.NewClient(srv.URL, dexscreener.WithRateLimit(0)),
		Store:  store,
	})

	res, err := ing.Ingest(context.Background(), "T1/SOL")
	require.NoError(t, err)
	assert.Equal(t, &IngestResult{Query: "T1/SOL", Received: 1, Upserted: 1}, res)

	coins, err := store.ListAll(context.Background())
	require.NoError(t, err)
	require.Len(t, coins, 1)

	c := coins[0]
	assert.Equal(t, "T1", c.MintAddress)
	assert.Equal(t, domain.SourceSearch, c.Source)
	require.NotNil(t, c.MarketCap)
	assert.Equal(t, 1_000_000.0, *c.MarketCap)
	require.NotNil(t, c.Liquidity)
	assert.Equal(t, 50_000.0, *c.Liquidity)
	require.NotNil(t, c.TxnsH24Buys)
	assert.Equal(t, int64(100), *c.TxnsH24Buys)
	require.NotNil(t, c.TxnsH24Sells)
	assert.Equal(t, int64(50), *c.TxnsH24Sells)
	require.NotNil(t, c.PriceUSD)
	assert.InDelta(t, 0.0042, *c.PriceUSD, 1e-12)
	require.NotNil(t, c.Volume24h)
	assert.Equal(t, 120000.0, *c.Volume24h)
	assert.Equal(t, "Token One", *c.Name)
	assert.Equal(t, "first", *c.Description)
	assert.Equal(t, "https://img/t1.png", *c.ImageURI)
}

func TestIngestor_SkipsBadEntriesAndContinues(t *testing.T) {
	src := &stubPairSource{resp: rawPairs(t,
		`{"pairAddress":"P1","baseToken":{"address":"MintA","symbol":"A"}}`,
		`{broken`,
		`{"pairAddress":"P3","baseToken":{"symbol":"NOADDR"}}`,
		`{"pairAddress":"P4","baseToken":{"address":"MintFail"}}`,
		`{"pairAddress":"P5","baseToken":{"address":"MintB"},"marketCap":"not-a-number"}`,
		`{"pairAddress":"P6","baseToken":{"address":"MintC"}}`,
	)}
	store := memory.NewCoinStore()
	ing := NewIngestor(IngestorOptions{
		Source: src,
		Store:  &failingStore{CoinStore: store, failMint: "MintFail"},
	})

	res, err := ing.Ingest(context.Background(), "q")
	require.NoError(t, err)
	assert.Equal(t, 6, res.Received)
	assert.Equal(t, 2, res.Upserted)
	assert.Equal(t, 4, res.Skipped)

	coins, err := store.ListAll(context.Background())
	require.NoError(t, err)
	require.Len(t, coins, 2)
	// Response order is preserved.
	assert.Equal(t, "MintA", coins[0].MintAddress)
	assert.Equal(t, "MintC", coins[1].MintAddress)
}

func TestIngestor_EmptyResponseIsNoop(t *testing.T) {
	for _, resp := range []*dexscreener.SearchResponse{{}, {Pairs: []json.RawMessage{}}} {
		store := memory.NewCoinStore()
		ing := NewIngestor(IngestorOptions{Source: &stubPairSource{resp: resp}, Store: store})

		res, err := ing.Ingest(context.Background(), "nothing")
		require.NoError(t, err)
		assert.Zero(t, res.Received)

		coins, err := store.ListAll(context.Background())
		require.NoError(t, err)
		assert.Empty(t, coins)
	}
}

func TestIngestor_TransportFailure(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	defer srv.Close()

	store := memory.NewCoinStore()
	ing := NewIngestor(IngestorOptions{
		Source: dexscreener.NewClient(srv.URL, dexscreener.WithRateLimit(0)),
		Store:  store,
	})

	res, err := ing.Ingest(context.Background(), "PEPE/SOL")
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrIngestFailed)
	assert.ErrorIs(t, err, dexscreener.ErrUnexpectedStatus)
	assert.Zero(t, res.Upserted)
}

func TestIngestor_NoInternalRetry(t *testing.T) {
	src := &stubPairSource{err: errors.New("connection refused")}
	ing := NewIngestor(IngestorOptions{Source: src, Store: memory.NewCoinStore()})

	_, err := ing.Ingest(context.Background(), "q")
	assert.ErrorIs(t, err, ErrIngestFailed)
	assert.Equal(t, 1, src.calls)
}

func TestIngestor_ReingestOverwritesMarketFields(t *testing.T) {
	store := memory.NewCoinStore()
	first := &stubPairSource{resp: rawPairs(t, `{"baseToken":{"address":"MintA"},"marketCap":100,"liquidity":{"usd":10}}`)}
	second := &stubPairSource{resp: rawPairs(t, `{"baseToken":{"address":"MintA"},"marketCap":200}`)}

	_, err := NewIngestor(IngestorOptions{Source: first, Store: store}).Ingest(context.Background(), "q")
	require.NoError(t, err)
	_, err = NewIngestor(IngestorOptions{Source: second, Store: store}).Ingest(context.Background(), "q")
	require.NoError(t, err)

	c, err := store.GetByMint(context.Background(), "MintA")
	require.NoError(t, err)
	assert.Equal(t, 200.0, *c.MarketCap)
	assert.Nil(t, c.Liquidity, "absent fields overwrite wholesale")
}

func TestIngestor_BlankPriceStoredAsNull(t *testing.T) {
	src := &stubPairSource{resp: rawPairs(t,
		`{"pairAddress":"P1","baseToken":{"address":"MintA"},"priceUsd":"","marketCap":3000}`,
	)}
	store := memory.NewCoinStore()

	res, err := NewIngestor(IngestorOptions{Source: src, Store: store}).Ingest(context.Background(), "q")
	require.NoError(t, err)
	assert.Equal(t, 1, res.Upserted)
	assert.Zero(t, res.Skipped)

	c, err := store.GetByMint(context.Background(), "MintA")
	require.NoError(t, err)
	assert.Nil(t, c.PriceUSD)
	require.NotNil(t, c.MarketCap)
	assert.Equal(t, 3000.0, *c.MarketCap)
}
