package sqlite

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/Vladymirovich/MemeBot/internal/domain"
	"github.com/Vladymirovich/MemeBot/internal/storage"
)

// CoinStore implements storage.CoinStore on sqlite through gorm.
// Writes are serialized by mu; each write is one ON CONFLICT statement.
type CoinStore struct {
	db  *gorm.DB
	mu  sync.Mutex
	now func() time.Time
}

// NewCoinStore creates a CoinStore over an opened database.
func NewCoinStore(db *gorm.DB) *CoinStore {
	return NewCoinStoreWithClock(db, time.Now)
}

// NewCoinStoreWithClock creates a store that stamps created_at/updated_at with now.
func NewCoinStoreWithClock(db *gorm.DB, now func() time.Time) *CoinStore {
	return &CoinStore{db: db, now: now}
}

// Compile-time interface check.
var _ storage.CoinStore = (*CoinStore)(nil)

// UpsertFromSearch inserts the coin or overwrites descriptive and market fields.
func (s *CoinStore) UpsertFromSearch(ctx context.Context, c *domain.Coin) error {
	if err := storage.ValidateCoin(c); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	row := toRow(c, storage.SourceOrDefault(c, domain.SourceSearch), s.now().UTC())
	err := s.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "mint_address"}},
		DoUpdates: clause.AssignmentColumns(searchColumns),
	}).Create(row).Error
	if err != nil {
		return fmt.Errorf("upsert coin: %w", err)
	}
	return nil
}

// InsertIfAbsentFromEvent inserts the coin only if its mint is unknown.
func (s *CoinStore) InsertIfAbsentFromEvent(ctx context.Context, c *domain.Coin) (bool, error) {
	if err := storage.ValidateCoin(c); err != nil {
		return false, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	row := toRow(c, storage.SourceOrDefault(c, domain.SourceEvent), s.now().UTC())
	result := s.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "mint_address"}},
		DoNothing: true,
	}).Create(row)
	if result.Error != nil {
		return false, fmt.Errorf("insert coin: %w", result.Error)
	}
	return result.RowsAffected > 0, nil
}

// ListAll retrieves every coin ordered by id ASC.
func (s *CoinStore) ListAll(ctx context.Context) ([]*domain.Coin, error) {
	var rows []coinRow
	if err := s.db.WithContext(ctx).Order("id ASC").Find(&rows).Error; err != nil {
		return nil, fmt.Errorf("list coins: %w", err)
	}

	coins := make([]*domain.Coin, 0, len(rows))
	for i := range rows {
		coins = append(coins, rows[i].toDomain())
	}
	return coins, nil
}

// GetByMint retrieves a coin by mint address. Returns ErrNotFound if not exists.
func (s *CoinStore) GetByMint(ctx context.Context, mint string) (*domain.Coin, error) {
	var row coinRow
	err := s.db.WithContext(ctx).Where("mint_address = ?", mint).First(&row).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, storage.ErrNotFound
		}
		return nil, fmt.Errorf("get coin by mint: %w", err)
	}
	return row.toDomain(), nil
}

// UpdateClassification writes the four flags and updated_at.
func (s *CoinStore) UpdateClassification(ctx context.Context, id int64, flags domain.Classification) error {
	return s.update(ctx, id, map[string]any{
		"rug_pull":   flags.RugPull,
		"pump":       flags.Pump,
		"tier1":      flags.Tier1,
		"cex_listed": flags.CEXListed,
	})
}

// SetBundledSupply writes bundled_supply and updated_at.
func (s *CoinStore) SetBundledSupply(ctx context.Context, id int64, bundled bool) error {
	return s.update(ctx, id, map[string]any{"bundled_supply": bundled})
}

func (s *CoinStore) update(ctx context.Context, id int64, fields map[string]any) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	fields["updated_at"] = s.now().UTC()
	result := s.db.WithContext(ctx).Model(&coinRow{}).Where("id = ?", id).Updates(fields)
	if result.Error != nil {
		return fmt.Errorf("update coin %d: %w", id, result.Error)
	}
	if result.RowsAffected == 0 {
		return storage.ErrNotFound
	}
	return nil
}

// Close closes the underlying database handle.
func (s *CoinStore) Close() error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return fmt.Errorf("get sql db: %w", err)
	}
	return sqlDB.Close()
}
