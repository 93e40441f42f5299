// Package orchestrator runs the ingestion flows and the classification pass.
// Flow: search and/or listen → classify
package orchestrator

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/rs/zerolog"

	"github.com/Vladymirovich/MemeBot/internal/classification"
	"github.com/Vladymirovich/MemeBot/internal/ingestion"
	"github.com/Vladymirovich/MemeBot/internal/observability"
)

// Mode selects which ingestion flows a cycle runs.
type Mode string

const (
	ModeSearch Mode = "search" // ingest once, then classify
	ModeListen Mode = "listen" // listener only
	ModeBoth   Mode = "both"   // both flows concurrently, then classify
)

// ErrUnknownMode is returned for an unsupported Mode.
var ErrUnknownMode = errors.New("unknown mode")

// ParseMode parses a mode name.
func ParseMode(s string) (Mode, error) {
	switch m := Mode(strings.ToLower(strings.TrimSpace(s))); m {
	case ModeSearch, ModeListen, ModeBoth:
		return m, nil
	}
	return "", fmt.Errorf("%w %q", ErrUnknownMode, s)
}

// Ingester performs one search ingest. *ingestion.Ingestor satisfies it.
type Ingester interface {
	Ingest(ctx context.Context, query string) (*ingestion.IngestResult, error)
}

// EventListener runs one feed subscription. *ingestion.Listener satisfies it.
type EventListener interface {
	Run(ctx context.Context) (*ingestion.ListenResult, error)
}

// Classifier runs one classification pass. *classification.Pipeline satisfies it.
type Classifier interface {
	Run(ctx context.Context) (*classification.RunResult, error)
}

// Default retry intervals.
const (
	DefaultRetryInitialInterval = time.Second
	DefaultRetryMaxInterval     = 30 * time.Second
)

// Orchestrator coordinates ingestion and classification.
type Orchestrator struct {
	ingestor Ingester
	listener EventListener
	pipeline Classifier

	listenWindow        time.Duration
	searchRetries       int
	listenerRestarts    int
	classifyAfterListen bool
	retryInitial        time.Duration
	retryMax            time.Duration

	logger zerolog.Logger
}

// Options for creating Orchestrator.
type Options struct {
	Ingestor Ingester
	Listener EventListener
	Pipeline Classifier

	// ListenWindow bounds each listener run. Zero runs until cancelled.
	ListenWindow time.Duration
	// SearchRetries is how many times a failed search ingest is retried.
	SearchRetries int
	// ListenerRestarts is how many times a disconnected listener is restarted
	// within the window.
	ListenerRestarts int
	// ClassifyAfterListen runs a pass after a listen-only cycle.
	ClassifyAfterListen bool

	RetryInitialInterval time.Duration // default 1s
	RetryMaxInterval     time.Duration // default 30s

	Logger *zerolog.Logger // nil: no logging
}

// New creates a new Orchestrator.
func New(opts Options) *Orchestrator {
	initial := opts.RetryInitialInterval
	if initial <= 0 {
		initial = DefaultRetryInitialInterval
	}
	maxInterval := opts.RetryMaxInterval
	if maxInterval <= 0 {
		maxInterval = DefaultRetryMaxInterval
	}
	logger := zerolog.Nop()
	if opts.Logger != nil {
		logger = *opts.Logger
	}

	return &Orchestrator{
		ingestor:            opts.Ingestor,
		listener:            opts.Listener,
		pipeline:            opts.Pipeline,
		listenWindow:        opts.ListenWindow,
		searchRetries:       max(opts.SearchRetries, 0),
		listenerRestarts:    max(opts.ListenerRestarts, 0),
		classifyAfterListen: opts.ClassifyAfterListen,
		retryInitial:        initial,
		retryMax:            maxInterval,
		logger:              logger.With().Str("component", "orchestrator").Logger(),
	}
}

// RunResult contains results from one cycle. Fields of flows that did not
// run are nil.
type RunResult struct {
	Mode           Mode
	Query          string
	Ingest         *ingestion.IngestResult
	IngestAttempts int
	Listen         *ingestion.ListenResult
	ListenAttempts int
	Classification *classification.RunResult
}

// Run executes one cycle in the given mode. Classification runs after every
// ingestion task has returned, also when one failed, and is skipped once ctx
// is cancelled. Ingestion errors are joined and returned with the result.
func (o *Orchestrator) Run(ctx context.Context, mode Mode, query string) (*RunResult, error) {
	result := &RunResult{Mode: mode, Query: query}

	var ingestErr error
	switch mode {
	case ModeSearch:
		ingestErr = o.runSearch(ctx, query, result)
	case ModeListen:
		ingestErr = o.runListener(ctx, result)
	case ModeBoth:
		var wg sync.WaitGroup
		var searchErr, listenErr error
		wg.Add(2)
		go func() {
			defer wg.Done()
			searchErr = o.runSearch(ctx, query, result)
		}()
		go func() {
			defer wg.Done()
			listenErr = o.runListener(ctx, result)
		}()
		wg.Wait()
		ingestErr = errors.Join(searchErr, listenErr)
	default:
		return result, fmt.Errorf("%w %q", ErrUnknownMode, mode)
	}

	if ingestErr == nil {
		observability.RecordIngestionSuccess()
	} else {
		o.logger.Error().Err(ingestErr).Str("mode", string(mode)).Msg("ingestion finished with errors")
	}

	if err := ctx.Err(); err != nil {
		o.logger.Info().Msg("cancelled, skipping classification")
		if !errors.Is(ingestErr, err) {
			ingestErr = errors.Join(ingestErr, err)
		}
		return result, ingestErr
	}
	if mode == ModeListen && !o.classifyAfterListen {
		return result, ingestErr
	}

	cls, err := o.Classify(ctx)
	result.Classification = cls
	return result, errors.Join(ingestErr, err)
}

// Classify runs one classification pass on its own.
func (o *Orchestrator) Classify(ctx context.Context) (*classification.RunResult, error) {
	if o.pipeline == nil {
		return nil, errors.New("classification pipeline not configured")
	}
	res, err := o.pipeline.Run(ctx)
	if err != nil {
		return res, fmt.Errorf("classify: %w", err)
	}
	return res, nil
}

// runSearch ingests once, retrying failed calls with exponential backoff.
// It writes only the search fields of result.
func (o *Orchestrator) runSearch(ctx context.Context, query string, result *RunResult) error {
	if o.ingestor == nil {
		return errors.New("search ingestor not configured")
	}

	attempts := 0
	op := func() error {
		attempts++
		res, err := o.ingestor.Ingest(ctx, query)
		result.Ingest = res
		if err != nil {
			if ctx.Err() != nil {
				return backoff.Permanent(ctx.Err())
			}
			o.logger.Warn().Err(err).Int("attempt", attempts).Msg("search ingest failed")
			return err
		}
		return nil
	}

	err := backoff.Retry(op, o.newBackOff(ctx, o.searchRetries))
	result.IngestAttempts = attempts
	return err
}

// runListener runs the listener within the window, restarting it after a
// disconnect. Window expiry is a normal stop. It writes only the listen
// fields of result.
func (o *Orchestrator) runListener(ctx context.Context, result *RunResult) error {
	if o.listener == nil {
		return errors.New("event listener not configured")
	}

	listenCtx := ctx
	if o.listenWindow > 0 {
		var cancel context.CancelFunc
		listenCtx, cancel = context.WithTimeout(ctx, o.listenWindow)
		defer cancel()
	}

	total := &ingestion.ListenResult{}
	result.Listen = total

	attempts := 0
	op := func() error {
		attempts++
		res, err := o.listener.Run(listenCtx)
		addListen(total, res)
		if err == nil {
			return nil
		}
		if listenCtx.Err() != nil {
			return backoff.Permanent(listenCtx.Err())
		}
		o.logger.Warn().Err(err).Int("attempt", attempts).Msg("listener stopped")
		return err
	}

	err := backoff.Retry(op, o.newBackOff(listenCtx, o.listenerRestarts))
	result.ListenAttempts = attempts

	if err != nil && ctx.Err() == nil && listenCtx.Err() != nil {
		o.logger.Info().Dur("window", o.listenWindow).Msg("listen window elapsed")
		return nil
	}
	if err != nil && ctx.Err() != nil && errors.Is(err, ctx.Err()) {
		// Outer cancellation is a stop, not a listener failure.
		return nil
	}
	return err
}

func (o *Orchestrator) newBackOff(ctx context.Context, retries int) backoff.BackOff {
	b := backoff.NewExponentialBackOff()
	b.InitialInterval = o.retryInitial
	b.MaxInterval = o.retryMax
	b.MaxElapsedTime = 0
	return backoff.WithContext(backoff.WithMaxRetries(b, uint64(retries)), ctx)
}

func addListen(total, res *ingestion.ListenResult) {
	if res == nil {
		return
	}
	total.Received += res.Received
	total.Inserted += res.Inserted
	total.Existing += res.Existing
	total.Ignored += res.Ignored
	total.Skipped += res.Skipped
}
