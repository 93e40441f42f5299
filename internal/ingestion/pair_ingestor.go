// Package ingestion writes search results and feed events into the coin store.
package ingestion

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"github.com/Vladymirovich/MemeBot/internal/dexscreener"
	"github.com/Vladymirovich/MemeBot/internal/observability"
	"github.com/Vladymirovich/MemeBot/internal/storage"
)

// ErrIngestFailed wraps a transport failure that aborted an ingest call.
var ErrIngestFailed = errors.New("ingest failed")

// IngestResult counts the outcome of one Ingest call.
type IngestResult struct {
	Query    string
	Received int // pairs in the response
	Upserted int
	Skipped  int // decode, mapping or store failures
}

// Ingestor polls the search endpoint and upserts each pair.
type Ingestor struct {
	source PairSource
	store  storage.CoinStore
	logger zerolog.Logger
}

// IngestorOptions contains configuration for creating an Ingestor.
type IngestorOptions struct {
	Source PairSource
	Store  storage.CoinStore
	Logger *zerolog.Logger // nil: no logging
}

// NewIngestor creates a new pair ingestor.
func NewIngestor(opts IngestorOptions) *Ingestor {
	logger := zerolog.Nop()
	if opts.Logger != nil {
		logger = *opts.Logger
	}
	return &Ingestor{
		source: opts.Source,
		store:  opts.Store,
		logger: logger.With().Str("component", "ingestor").Logger(),
	}
}

// Ingest performs one search for query and upserts the results in response
// order. A failed entry is logged and skipped. A transport failure aborts the
// call with ErrIngestFailed; nothing is retried here.
func (i *Ingestor) Ingest(ctx context.Context, query string) (*IngestResult, error) {
	result := &IngestResult{Query: query}

	start := time.Now()
	resp, err := i.source.Search(ctx, query)
	if err != nil {
		observability.RecordSearch("error", time.Since(start))
		i.logger.Error().Err(err).Str("query", query).Msg("search failed")
		return result, fmt.Errorf("%w: search %q: %w", ErrIngestFailed, query, err)
	}
	observability.RecordSearch("ok", time.Since(start))

	result.Received = len(resp.Pairs)
	if result.Received == 0 {
		i.logger.Info().Str("query", query).Msg("search returned no pairs")
		return result, nil
	}

	for idx, raw := range resp.Pairs {
		pairAddress, err := i.ingestPair(ctx, raw)
		if err != nil {
			result.Skipped++
			observability.RecordIngest("search", "skipped")
			i.logger.Warn().Err(err).
				Int("index", idx).
				Str("pair", pairAddress).
				Msg("skipping pair")
			continue
		}
		result.Upserted++
		observability.RecordIngest("search", "upserted")
	}

	i.logger.Info().
		Str("query", query).
		Int("received", result.Received).
		Int("upserted", result.Upserted).
		Int("skipped", result.Skipped).
		Msg("search ingest complete")
	return result, nil
}

// ingestPair decodes, maps and upserts one entry. It returns the pair
// address for logging, empty when the entry could not be decoded.
func (i *Ingestor) ingestPair(ctx context.Context, raw []byte) (string, error) {
	pair, err := dexscreener.DecodePair(raw)
	if err != nil {
		return "", err
	}

	coin, err := coinFromPair(pair)
	if err != nil {
		return pair.PairAddress, err
	}

	if err := i.store.UpsertFromSearch(ctx, coin); err != nil {
		return pair.PairAddress, fmt.Errorf("upsert %s: %w", coin.MintAddress, err)
	}

	i.logger.Debug().
		Str("mint", coin.MintAddress).
		Str("symbol", coin.DisplaySymbol()).
		Msg("upserted pair")
	return pair.PairAddress, nil
}
