package ingestion

import (
	"context"
	"errors"
	"fmt"

	"github.com/rs/zerolog"

	"github.com/Vladymirovich/MemeBot/internal/observability"
	"github.com/Vladymirovich/MemeBot/internal/storage"
)

// ErrFeedDisconnected wraps a dial, subscribe or mid-stream connection failure.
var ErrFeedDisconnected = errors.New("feed disconnected")

// ListenResult counts the outcome of one listener run.
type ListenResult struct {
	Received int // every message read from the feed
	Inserted int
	Existing int // mint already stored, left untouched
	Ignored  int // messages without a mint key
	Skipped  int // malformed messages and store failures
}

// Listener consumes the new-token feed and inserts unseen mints.
type Listener struct {
	dialer FeedDialer
	store  storage.CoinStore
	logger zerolog.Logger
}

// ListenerOptions contains configuration for creating a Listener.
type ListenerOptions struct {
	Dialer FeedDialer
	Store  storage.CoinStore
	Logger *zerolog.Logger // nil: no logging
}

// NewListener creates a new event listener.
func NewListener(opts ListenerOptions) *Listener {
	logger := zerolog.Nop()
	if opts.Logger != nil {
		logger = *opts.Logger
	}
	return &Listener{
		dialer: opts.Dialer,
		store:  opts.Store,
		logger: logger.With().Str("component", "listener").Logger(),
	}
}

// Run subscribes to the feed and processes messages one at a time in arrival
// order until ctx is cancelled or the connection fails. It never reconnects.
// Cancellation returns ctx.Err(); a connection failure returns an error
// wrapping ErrFeedDisconnected. The feed is closed on every path; the store
// is left open for its owner.
func (l *Listener) Run(ctx context.Context) (*ListenResult, error) {
	result := &ListenResult{}

	feed, err := l.dialer.Dial(ctx)
	if err != nil {
		if ctx.Err() != nil {
			return result, ctx.Err()
		}
		observability.RecordFeedDisconnect()
		return result, fmt.Errorf("%w: dial: %w", ErrFeedDisconnected, err)
	}
	defer func() {
		if err := feed.Close(); err != nil {
			l.logger.Debug().Err(err).Msg("close feed")
		}
	}()

	messages, err := feed.SubscribeNewTokens(ctx)
	if err != nil {
		if ctx.Err() != nil {
			return result, ctx.Err()
		}
		observability.RecordFeedDisconnect()
		return result, fmt.Errorf("%w: subscribe: %w", ErrFeedDisconnected, err)
	}
	l.logger.Info().Msg("subscribed to new token events")

	for {
		select {
		case <-ctx.Done():
			l.logSummary(result, "listener stopped")
			return result, ctx.Err()

		case msg, ok := <-messages:
			if !ok {
				if ctx.Err() != nil {
					l.logSummary(result, "listener stopped")
					return result, ctx.Err()
				}
				cause := feed.Err()
				if cause == nil {
					cause = errors.New("message channel closed")
				}
				observability.RecordFeedDisconnect()
				l.logSummary(result, "feed disconnected")
				return result, fmt.Errorf("%w: %w", ErrFeedDisconnected, cause)
			}
			l.handle(ctx, msg, result)
		}
	}
}

// handle processes one message. Failures are confined to the message.
func (l *Listener) handle(ctx context.Context, msg []byte, result *ListenResult) {
	result.Received++

	coin, kind, err := parseMessage(msg)
	observability.RecordFeedMessage(kind.String())
	switch kind {
	case kindIgnored:
		result.Ignored++
		return
	case kindMalformed:
		result.Skipped++
		observability.RecordIngest("event", "skipped")
		l.logger.Warn().Err(err).Str("message", truncate(msg, 200)).Msg("skipping feed message")
		return
	}

	inserted, err := l.store.InsertIfAbsentFromEvent(ctx, coin)
	if err != nil {
		result.Skipped++
		observability.RecordIngest("event", "skipped")
		l.logger.Error().Err(err).Str("mint", coin.MintAddress).Msg("insert new token failed")
		return
	}

	if inserted {
		result.Inserted++
		observability.RecordIngest("event", "inserted")
		l.logger.Info().
			Str("mint", coin.MintAddress).
			Str("symbol", coin.DisplaySymbol()).
			Msg("new token")
		return
	}
	result.Existing++
	observability.RecordIngest("event", "existing")
}

func (l *Listener) logSummary(result *ListenResult, msg string) {
	l.logger.Info().
		Int("received", result.Received).
		Int("inserted", result.Inserted).
		Int("existing", result.Existing).
		Int("ignored", result.Ignored).
		Int("skipped", result.Skipped).
		Msg(msg)
}

func truncate(b []byte, n int) string {
	if len(b) <= n {
		return string(b)
	}
	return string(b[:n]) + "..."
}
