package memory

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/Vladymirovich/MemeBot/internal/domain"
	"github.com/Vladymirovich/MemeBot/internal/storage"
)

// CoinStore is an in-memory implementation of storage.CoinStore.
type CoinStore struct {
	mu     sync.RWMutex
	byID   map[int64]*domain.Coin  // keyed by id
	byMint map[string]*domain.Coin // keyed by mint_address (unique)
	nextID int64
	now    func() time.Time
}

// NewCoinStore creates a new in-memory coin store.
func NewCoinStore() *CoinStore {
	return NewCoinStoreWithClock(time.Now)
}

// NewCoinStoreWithClock creates a store that stamps created_at/updated_at with now.
func NewCoinStoreWithClock(now func() time.Time) *CoinStore {
	return &CoinStore{
		byID:   make(map[int64]*domain.Coin),
		byMint: make(map[string]*domain.Coin),
		now:    now,
	}
}

// UpsertFromSearch inserts the coin or overwrites descriptive and market fields.
func (s *CoinStore) UpsertFromSearch(_ context.Context, c *domain.Coin) error {
	if err := storage.ValidateCoin(c); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.now().UTC()
	existing, ok := s.byMint[c.MintAddress]
	if !ok {
		s.insertLocked(c, storage.SourceOrDefault(c, domain.SourceSearch), now)
		return nil
	}

	existing.Name = c.Name
	existing.Symbol = c.Symbol
	existing.Description = c.Description
	existing.ImageURI = c.ImageURI
	existing.MarketCap = c.MarketCap
	existing.Liquidity = c.Liquidity
	existing.PriceUSD = c.PriceUSD
	existing.TxnsH24Buys = c.TxnsH24Buys
	existing.TxnsH24Sells = c.TxnsH24Sells
	existing.Volume24h = c.Volume24h
	existing.UpdatedAt = now
	return nil
}

// InsertIfAbsentFromEvent inserts the coin only if its mint is unknown.
func (s *CoinStore) InsertIfAbsentFromEvent(_ context.Context, c *domain.Coin) (bool, error) {
	if err := storage.ValidateCoin(c); err != nil {
		return false, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.byMint[c.MintAddress]; exists {
		return false, nil
	}
	s.insertLocked(c, storage.SourceOrDefault(c, domain.SourceEvent), s.now().UTC())
	return true, nil
}

// insertLocked stores a copy of c with a fresh id. Caller holds mu.
func (s *CoinStore) insertLocked(c *domain.Coin, source domain.Source, now time.Time) {
	s.nextID++

	// Store a copy to prevent external mutation
	coinCopy := *c
	coinCopy.ID = s.nextID
	coinCopy.Source = source
	coinCopy.RugPull, coinCopy.Pump, coinCopy.Tier1, coinCopy.CEXListed = false, false, false, false
	coinCopy.BundledSupply = false
	coinCopy.CreatedAt = now
	coinCopy.UpdatedAt = now

	s.byID[coinCopy.ID] = &coinCopy
	s.byMint[coinCopy.MintAddress] = &coinCopy
}

// ListAll retrieves every coin ordered by id ASC.
func (s *CoinStore) ListAll(_ context.Context) ([]*domain.Coin, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	result := make([]*domain.Coin, 0, len(s.byID))
	for _, c := range s.byID {
		coinCopy := *c
		result = append(result, &coinCopy)
	}

	sort.Slice(result, func(i, j int) bool {
		return result[i].ID < result[j].ID
	})
	return result, nil
}

// GetByMint retrieves a coin by mint address. Returns ErrNotFound if not exists.
func (s *CoinStore) GetByMint(_ context.Context, mint string) (*domain.Coin, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	c, exists := s.byMint[mint]
	if !exists {
		return nil, storage.ErrNotFound
	}

	coinCopy := *c
	return &coinCopy, nil
}

// UpdateClassification writes the four flags and updated_at.
func (s *CoinStore) UpdateClassification(_ context.Context, id int64, flags domain.Classification) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	c, exists := s.byID[id]
	if !exists {
		return storage.ErrNotFound
	}

	c.RugPull = flags.RugPull
	c.Pump = flags.Pump
	c.Tier1 = flags.Tier1
	c.CEXListed = flags.CEXListed
	c.UpdatedAt = s.now().UTC()
	return nil
}

// SetBundledSupply writes bundled_supply and updated_at.
func (s *CoinStore) SetBundledSupply(_ context.Context, id int64, bundled bool) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	c, exists := s.byID[id]
	if !exists {
		return storage.ErrNotFound
	}

	c.BundledSupply = bundled
	c.UpdatedAt = s.now().UTC()
	return nil
}

// Close is a no-op for the in-memory store.
func (s *CoinStore) Close() error {
	return nil
}

var _ storage.CoinStore = (*CoinStore)(nil)
