package storage

import (
	"context"

	"github.com/Vladymirovich/MemeBot/internal/domain"
)

// CoinStore provides access to coins storage.
// Every mutating operation is atomic for a single record and safe for
// concurrent use. The unique key on mint_address is enforced by the store.
type CoinStore interface {
	// UpsertFromSearch inserts the coin, or when mint_address exists overwrites
	// every descriptive and market field and updated_at. Classification flags,
	// source and created_at of an existing row are left untouched.
	// Returns ErrInvalidInput if mint_address is empty.
	UpsertFromSearch(ctx context.Context, c *domain.Coin) error

	// InsertIfAbsentFromEvent inserts the coin only if mint_address is absent.
	// Returns false without error when the row already exists.
	// Returns ErrInvalidInput if mint_address is empty.
	InsertIfAbsentFromEvent(ctx context.Context, c *domain.Coin) (bool, error)

	// ListAll retrieves every coin ordered by id ASC.
	ListAll(ctx context.Context) ([]*domain.Coin, error)

	// GetByMint retrieves a coin by mint address. Returns ErrNotFound if not exists.
	GetByMint(ctx context.Context, mint string) (*domain.Coin, error)

	// UpdateClassification writes the four classification flags and updated_at.
	// Returns ErrNotFound if id does not exist.
	UpdateClassification(ctx context.Context, id int64, flags domain.Classification) error

	// SetBundledSupply writes bundled_supply and updated_at.
	// Returns ErrNotFound if id does not exist.
	SetBundledSupply(ctx context.Context, id int64, bundled bool) error

	// Close releases the underlying handle.
	Close() error
}

// VerdictStore provides access to the append-only classification_verdicts log.
type VerdictStore interface {
	// InsertBulk appends verdicts of one classification pass.
	InsertBulk(ctx context.Context, verdicts []*domain.Verdict) error

	// GetByRunID retrieves verdicts of one pass ordered by coin_id ASC.
	GetByRunID(ctx context.Context, runID string) ([]*domain.Verdict, error)

	// GetByMint retrieves every verdict for a mint ordered by evaluated_at ASC.
	GetByMint(ctx context.Context, mint string) ([]*domain.Verdict, error)
}
