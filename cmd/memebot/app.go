package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/rs/zerolog"

	"github.com/Vladymirovich/MemeBot/internal/classification"
	"github.com/Vladymirovich/MemeBot/internal/config"
	"github.com/Vladymirovich/MemeBot/internal/dexscreener"
	"github.com/Vladymirovich/MemeBot/internal/ingestion"
	"github.com/Vladymirovich/MemeBot/internal/logging"
	"github.com/Vladymirovich/MemeBot/internal/orchestrator"
	"github.com/Vladymirovich/MemeBot/internal/pumpportal"
	"github.com/Vladymirovich/MemeBot/internal/rugcheck"
	"github.com/Vladymirovich/MemeBot/internal/storage"
	chstore "github.com/Vladymirovich/MemeBot/internal/storage/clickhouse"
	"github.com/Vladymirovich/MemeBot/internal/storage/memory"
	"github.com/Vladymirovich/MemeBot/internal/storage/migrations"
	pgstore "github.com/Vladymirovich/MemeBot/internal/storage/postgres"
	sqlitestore "github.com/Vladymirovich/MemeBot/internal/storage/sqlite"
)

// app holds the wired components of one process and the handles it owns.
type app struct {
	cfg          config.Config
	logger       zerolog.Logger
	store        storage.CoinStore
	orchestrator *orchestrator.Orchestrator

	closers []io.Closer // closed in reverse order
	metrics *metricsServer
}

// setup loads the configuration and wires every component.
func setup(ctx context.Context) (*app, error) {
	cfg, err := loadConfig()
	if err != nil {
		return nil, err
	}

	logger, err := logging.New(cfg.Logging.Level, cfg.Logging.Format, os.Stderr)
	if err != nil {
		return nil, err
	}

	a := &app{cfg: cfg, logger: logger}
	if err := a.wire(ctx); err != nil {
		a.Close()
		return nil, err
	}
	return a, nil
}

func (a *app) wire(ctx context.Context) error {
	store, err := openStore(ctx, a.cfg.Database)
	if err != nil {
		return err
	}
	a.store = store
	a.closers = append(a.closers, store)
	a.logger.Info().Str("driver", a.cfg.Database.Driver).Msg("coin store opened")

	verdicts, err := a.openVerdicts(ctx)
	if err != nil {
		return err
	}

	fetcher, err := a.riskFetcher(ctx)
	if err != nil {
		return err
	}

	search := dexscreener.NewClient(a.cfg.API.DexScreenerURL, dexscreener.WithTimeout(a.cfg.API.Timeout))

	feedCfg := pumpportal.DefaultConfig()
	if a.cfg.API.Timeout > 0 {
		feedCfg.HandshakeTimeout = a.cfg.API.Timeout
	}

	pipeline := classification.NewPipeline(classification.PipelineOptions{
		Store:     store,
		Verdicts:  verdicts,
		Fetcher:   fetcher,
		Blacklist: classification.NewBlacklist(a.cfg.Blacklist.Tokens, a.cfg.Blacklist.Developers),
		Thresholds: classification.Thresholds{
			MinMarketCap:            a.cfg.Filters.MinMarketCap,
			MinLiquidity:            a.cfg.Filters.MinLiquidity,
			MaxVolumeLiquidityRatio: a.cfg.Filters.MaxVolumeLiquidityRatio,
			MinTxns24h:              a.cfg.Filters.MinTxns24h,
			MaxBuySellRatio:         a.cfg.Filters.MaxBuySellRatio,
		},
		ConcentrationRisks: a.cfg.Risk.ConcentrationRisks,
		Logger:             &a.logger,
	})

	a.orchestrator = orchestrator.New(orchestrator.Options{
		Ingestor: ingestion.NewIngestor(ingestion.IngestorOptions{
			Source: search,
			Store:  store,
			Logger: &a.logger,
		}),
		Listener: ingestion.NewListener(ingestion.ListenerOptions{
			Dialer: ingestion.PumpPortalDialer(a.cfg.API.PumpPortalWSURL, &feedCfg),
			Store:  store,
			Logger: &a.logger,
		}),
		Pipeline:            pipeline,
		ListenWindow:        a.cfg.Listener.Window,
		SearchRetries:       a.cfg.Search.Retries,
		ListenerRestarts:    a.cfg.Listener.Restarts,
		ClassifyAfterListen: classify,
		Logger:              &a.logger,
	})

	if a.cfg.Metrics.Addr != "" {
		a.metrics = startMetricsServer(a.cfg.Metrics.Addr, a.logger)
	}
	return nil
}

// openStore opens the configured coin store. The caller owns and closes it.
func openStore(ctx context.Context, cfg config.DatabaseConfig) (storage.CoinStore, error) {
	switch cfg.Driver {
	case "memory":
		return memory.NewCoinStore(), nil

	case "sqlite":
		db, err := sqlitestore.Open(ctx, cfg.DSN)
		if err != nil {
			return nil, err
		}
		return sqlitestore.NewCoinStore(db), nil

	case "postgres":
		pool, err := pgstore.NewPool(ctx, cfg.DSN)
		if err != nil {
			return nil, fmt.Errorf("connect to postgres: %w", err)
		}
		if err := migrations.RunPostgresMigrations(ctx, pool); err != nil {
			pool.Close()
			return nil, err
		}
		return pgstore.NewCoinStore(pool), nil
	}
	return nil, fmt.Errorf("unknown database driver %q", cfg.Driver)
}

// openVerdicts connects the ClickHouse verdict log when configured.
func (a *app) openVerdicts(ctx context.Context) (storage.VerdictStore, error) {
	dsn := a.cfg.Verdicts.ClickhouseDSN
	if dsn == "" {
		return nil, nil
	}
	conn, err := migrations.RunClickhouseMigrations(ctx, dsn)
	if err != nil {
		return nil, fmt.Errorf("clickhouse verdict log: %w", err)
	}
	a.closers = append(a.closers, conn)
	a.logger.Info().Msg("verdict log enabled")
	return chstore.NewVerdictStore(conn), nil
}

// riskFetcher builds the RugCheck client behind the configured cache.
func (a *app) riskFetcher(ctx context.Context) (classification.ReportFetcher, error) {
	rc := a.cfg.Risk
	client := rugcheck.NewClient(a.cfg.API.RugCheckURL,
		rugcheck.WithTimeout(a.cfg.API.Timeout),
		rugcheck.WithCallInterval(rc.CallInterval),
		rugcheck.WithBreaker(rugcheck.BreakerSettings{
			MaxFailures: rc.BreakerMaxFailures,
			OpenTimeout: rc.BreakerTimeout,
		}),
	)
	if rc.CacheTTL <= 0 {
		return client, nil
	}

	if rc.RedisAddr == "" {
		return rugcheck.NewCachingFetcher(client, rugcheck.NewMemoryCache(), rc.CacheTTL, a.logger), nil
	}

	cache, err := rugcheck.NewRedisCache(ctx, rc.RedisAddr)
	if err != nil {
		return nil, fmt.Errorf("risk report cache: %w", err)
	}
	a.closers = append(a.closers, cache)
	return rugcheck.NewCachingFetcher(client, cache, rc.CacheTTL, a.logger), nil
}

// Close stops the metrics server and releases every owned handle once.
func (a *app) Close() {
	if a.metrics != nil {
		a.metrics.Shutdown()
		a.metrics = nil
	}

	var errs []error
	for i := len(a.closers) - 1; i >= 0; i-- {
		if err := a.closers[i].Close(); err != nil {
			errs = append(errs, err)
		}
	}
	a.closers = nil

	if err := errors.Join(errs...); err != nil {
		a.logger.Warn().Err(err).Msg("close resources")
	}
}

func (a *app) logResult(res *orchestrator.RunResult) {
	if res == nil {
		return
	}
	ev := a.logger.Info().Str("mode", string(res.Mode))
	if res.Ingest != nil {
		ev = ev.Int("search_received", res.Ingest.Received).
			Int("search_upserted", res.Ingest.Upserted).
			Int("search_skipped", res.Ingest.Skipped)
	}
	if res.Listen != nil {
		ev = ev.Int("feed_inserted", res.Listen.Inserted).
			Int("feed_existing", res.Listen.Existing).
			Int("feed_skipped", res.Listen.Skipped)
	}
	if c := res.Classification; c != nil {
		ev = ev.Str("run_id", c.RunID).
			Int("classified", c.Classified).
			Int("rejected", c.Rejected).
			Int("failed", c.Failed).
			Int("bundled", c.BundledFlagged)
	}
	ev.Msg("cycle finished")
}
