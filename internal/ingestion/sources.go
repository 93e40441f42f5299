package ingestion

import (
	"context"

	"github.com/Vladymirovich/MemeBot/internal/dexscreener"
	"github.com/Vladymirovich/MemeBot/internal/pumpportal"
)

// PairSource performs one pair search.
type PairSource interface {
	// Search returns the raw search envelope. Any error is a transport failure.
	Search(ctx context.Context, query string) (*dexscreener.SearchResponse, error)
}

// TokenFeed is one live new-token subscription.
type TokenFeed interface {
	// SubscribeNewTokens sends the subscribe message and returns raw messages
	// in arrival order. The channel is closed when the connection ends.
	SubscribeNewTokens(ctx context.Context) (<-chan []byte, error)
	// Err reports why the channel was closed, nil after Close.
	Err() error
	Close() error
}

// FeedDialer opens a TokenFeed.
type FeedDialer interface {
	Dial(ctx context.Context) (TokenFeed, error)
}

// FeedDialerFunc adapts a function to FeedDialer.
type FeedDialerFunc func(ctx context.Context) (TokenFeed, error)

// Dial implements FeedDialer.
func (f FeedDialerFunc) Dial(ctx context.Context) (TokenFeed, error) {
	return f(ctx)
}

// PumpPortalDialer dials the PumpPortal websocket at endpoint.
func PumpPortalDialer(endpoint string, config *pumpportal.Config) FeedDialer {
	return FeedDialerFunc(func(ctx context.Context) (TokenFeed, error) {
		return pumpportal.Dial(ctx, endpoint, config)
	})
}

var (
	_ PairSource = (*dexscreener.Client)(nil)
	_ TokenFeed  = (*pumpportal.Client)(nil)
)
