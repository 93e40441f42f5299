package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/Vladymirovich/MemeBot/internal/domain"
	"github.com/Vladymirovich/MemeBot/internal/storage"
)

// CoinStore implements storage.CoinStore using PostgreSQL.
// Every write is a single statement, so the unique key on mint_address
// settles races between concurrent writers.
type CoinStore struct {
	pool *Pool
}

// NewCoinStore creates a new CoinStore.
func NewCoinStore(pool *Pool) *CoinStore {
	return &CoinStore{pool: pool}
}

// Compile-time interface check.
var _ storage.CoinStore = (*CoinStore)(nil)

const coinColumns = `id, mint_address, name, symbol, description, image_uri, source,
	market_cap, liquidity, price_usd, volume_24h, txns_24h_buys, txns_24h_sells,
	rug_pull, pump, tier1, cex_listed, bundled_supply, created_at, updated_at`

// UpsertFromSearch inserts the coin or overwrites descriptive and market fields.
func (s *CoinStore) UpsertFromSearch(ctx context.Context, c *domain.Coin) error {
	if err := storage.ValidateCoin(c); err != nil {
		return err
	}

	query := `
		INSERT INTO coins (
			mint_address, name, symbol, description, image_uri, source,
			market_cap, liquidity, price_usd, volume_24h, txns_24h_buys, txns_24h_sells
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)
		ON CONFLICT (mint_address) DO UPDATE SET
			name = EXCLUDED.name,
			symbol = EXCLUDED.symbol,
			description = EXCLUDED.description,
			image_uri = EXCLUDED.image_uri,
			market_cap = EXCLUDED.market_cap,
			liquidity = EXCLUDED.liquidity,
			price_usd = EXCLUDED.price_usd,
			volume_24h = EXCLUDED.volume_24h,
			txns_24h_buys = EXCLUDED.txns_24h_buys,
			txns_24h_sells = EXCLUDED.txns_24h_sells,
			updated_at = clock_timestamp()
	`

	_, err := s.pool.Exec(ctx, query,
		c.MintAddress,
		c.Name,
		c.Symbol,
		c.Description,
		c.ImageURI,
		string(storage.SourceOrDefault(c, domain.SourceSearch)),
		c.MarketCap,
		c.Liquidity,
		c.PriceUSD,
		c.Volume24h,
		c.TxnsH24Buys,
		c.TxnsH24Sells,
	)
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

	query := `
		INSERT INTO coins (
			mint_address, name, symbol, description, image_uri, source,
			market_cap, liquidity, price_usd, volume_24h, txns_24h_buys, txns_24h_sells
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)
		ON CONFLICT (mint_address) DO NOTHING
	`

	tag, err := s.pool.Exec(ctx, query,
		c.MintAddress,
		c.Name,
		c.Symbol,
		c.Description,
		c.ImageURI,
		string(storage.SourceOrDefault(c, domain.SourceEvent)),
		c.MarketCap,
		c.Liquidity,
		c.PriceUSD,
		c.Volume24h,
		c.TxnsH24Buys,
		c.TxnsH24Sells,
	)
	if err != nil {
		return false, fmt.Errorf("insert coin: %w", err)
	}
	return tag.RowsAffected() == 1, nil
}

// ListAll retrieves every coin ordered by id ASC.
func (s *CoinStore) ListAll(ctx context.Context) ([]*domain.Coin, error) {
	query := `SELECT ` + coinColumns + ` FROM coins ORDER BY id ASC`

	rows, err := s.pool.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("list coins: %w", err)
	}
	defer rows.Close()

	var coins []*domain.Coin
	for rows.Next() {
		c, err := scanCoin(rows)
		if err != nil {
			return nil, fmt.Errorf("scan coin: %w", err)
		}
		coins = append(coins, c)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate coins: %w", err)
	}
	return coins, nil
}

// GetByMint retrieves a coin by mint address. Returns ErrNotFound if not exists.
func (s *CoinStore) GetByMint(ctx context.Context, mint string) (*domain.Coin, error) {
	query := `SELECT ` + coinColumns + ` FROM coins WHERE mint_address = $1`

	c, err := scanCoin(s.pool.QueryRow(ctx, query, mint))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, storage.ErrNotFound
		}
		return nil, fmt.Errorf("get coin by mint: %w", err)
	}
	return c, nil
}

// UpdateClassification writes the four flags and updated_at.
func (s *CoinStore) UpdateClassification(ctx context.Context, id int64, flags domain.Classification) error {
	query := `
		UPDATE coins
		SET rug_pull = $2, pump = $3, tier1 = $4, cex_listed = $5, updated_at = clock_timestamp()
		WHERE id = $1
	`

	tag, err := s.pool.Exec(ctx, query, id, flags.RugPull, flags.Pump, flags.Tier1, flags.CEXListed)
	if err != nil {
		return fmt.Errorf("update classification: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return storage.ErrNotFound
	}
	return nil
}

// SetBundledSupply writes bundled_supply and updated_at.
func (s *CoinStore) SetBundledSupply(ctx context.Context, id int64, bundled bool) error {
	query := `UPDATE coins SET bundled_supply = $2, updated_at = clock_timestamp() WHERE id = $1`

	tag, err := s.pool.Exec(ctx, query, id, bundled)
	if err != nil {
		return fmt.Errorf("set bundled supply: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return storage.ErrNotFound
	}
	return nil
}

// Close closes the underlying pool.
func (s *CoinStore) Close() error {
	s.pool.Close()
	return nil
}

// scanCoin scans a single row into Coin.
func scanCoin(row pgx.Row) (*domain.Coin, error) {
	var c domain.Coin
	var source string

	err := row.Scan(
		&c.ID,
		&c.MintAddress,
		&c.Name,
		&c.Symbol,
		&c.Description,
		&c.ImageURI,
		&source,
		&c.MarketCap,
		&c.Liquidity,
		&c.PriceUSD,
		&c.Volume24h,
		&c.TxnsH24Buys,
		&c.TxnsH24Sells,
		&c.RugPull,
		&c.Pump,
		&c.Tier1,
		&c.CEXListed,
		&c.BundledSupply,
		&c.CreatedAt,
		&c.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}

	c.Source = domain.Source(source)
	return &c, nil
}
