package dexscreener

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const searchBody = `{
  "schemaVersion": "1.0.0",
  "pairs": [
    {
      "chainId": "solana",
      "pairAddress": "PairT1",
      "baseToken": {"address": "MintT1", "name": "Token One", "symbol": "T1"},
      "priceUsd": "0.0012",
      "marketCap": 1000000,
      "liquidity": {"usd": 50000},
      "volume": {"h24": 120000.5},
      "txns": {"h24": {"buys": 100, "sells": 50}},
      "info": {"imageUrl": "https://img/t1.png"}
    },
    {"pairAddress": "PairBroken", "marketCap": "not-a-number"}
  ]
}`

func TestClient_Search(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/latest/dex/search", r.URL.Path)
		assert.Equal(t, "PEPE/SOL", r.URL.Query().Get("q"))
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(searchBody))
	}))
	defer server.Close()

	client := NewClient(server.URL+"/latest", WithRateLimit(0))
	resp, err := client.Search(context.Background(), "PEPE/SOL")
	require.NoError(t, err)
	require.Len(t, resp.Pairs, 2)

	pair, err := DecodePair(resp.Pairs[0])
	require.NoError(t, err)
	assert.Equal(t, "PairT1", pair.PairAddress)
	assert.Equal(t, "MintT1", pair.BaseToken.Address)
	assert.Equal(t, 0.0012, *pair.PriceUSD.Float())
	assert.Equal(t, 1000000.0, *pair.MarketCap.Float())
	assert.Equal(t, 50000.0, *pair.Liquidity.USD.Float())
	assert.Equal(t, 120000.5, *pair.Volume.H24.Float())
	assert.Equal(t, int64(100), *pair.Txns.H24.Buys)
	assert.Equal(t, int64(50), *pair.Txns.H24.Sells)
	assert.Equal(t, "https://img/t1.png", pair.Info.ImageURL)

	_, err = DecodePair(resp.Pairs[1])
	assert.Error(t, err)
}

func TestClient_SearchNoPairs(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"schemaVersion":"1.0.0","pairs":null}`))
	}))
	defer server.Close()

	resp, err := NewClient(server.URL, WithRateLimit(0)).Search(context.Background(), "nothing")
	require.NoError(t, err)
	assert.Empty(t, resp.Pairs)
}

func TestClient_SearchErrors(t *testing.T) {
	t.Run("non-2xx status", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			http.Error(w, "boom", http.StatusBadGateway)
		}))
		defer server.Close()

		_, err := NewClient(server.URL, WithRateLimit(0)).Search(context.Background(), "q")
		require.Error(t, err)
		assert.True(t, errors.Is(err, ErrUnexpectedStatus))
	})

	t.Run("undecodable envelope", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			_, _ = w.Write([]byte(`<html>`))
		}))
		defer server.Close()

		_, err := NewClient(server.URL, WithRateLimit(0)).Search(context.Background(), "q")
		assert.Error(t, err)
	})

	t.Run("timeout", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			time.Sleep(200 * time.Millisecond)
		}))
		defer server.Close()

		_, err := NewClient(server.URL, WithRateLimit(0), WithTimeout(20*time.Millisecond)).
			Search(context.Background(), "q")
		assert.Error(t, err)
	})
}

func TestFlexFloat(t *testing.T) {
	tests := []struct {
		name    string
		raw     string
		want    *float64
		wantErr bool
	}{
		{"number", `{"priceUsd": 1.5}`, ptr(1.5), false},
		{"string", `{"priceUsd": "2.25"}`, ptr(2.25), false},
		{"null", `{"priceUsd": null}`, nil, false},
		{"absent", `{}`, nil, false},
		{"empty string", `{"priceUsd": ""}`, nil, false},
		{"blank string", `{"priceUsd": "  "}`, nil, false},
		{"zero", `{"priceUsd": "0"}`, ptr(0.0), false},
		{"garbage", `{"priceUsd": "abc"}`, nil, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p, err := DecodePair([]byte(tt.raw))
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, p.PriceUSD.Float())
		})
	}
}

func TestDecodePair_BlankNumbersKeepPair(t *testing.T) {
	p, err := DecodePair([]byte(`{
		"pairAddress": "P1",
		"baseToken": {"address": "MintA"},
		"priceUsd": "",
		"marketCap": 2500,
		"liquidity": {"usd": ""},
		"volume": {"h24": null}
	}`))
	require.NoError(t, err)
	assert.Equal(t, "MintA", p.BaseToken.Address)
	assert.Nil(t, p.PriceUSD.Float())
	assert.Equal(t, ptr(2500.0), p.MarketCap.Float())
	assert.Nil(t, p.Liquidity.USD.Float())
	assert.Nil(t, p.Volume.H24.Float())
}

func ptr[T any](v T) *T {
	return &v
}
