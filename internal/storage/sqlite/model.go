package sqlite

import (
	"time"

	"github.com/Vladymirovich/MemeBot/internal/domain"
)

// coinRow is the gorm model of the coins table.
type coinRow struct {
	ID           int64    `gorm:"column:id;primaryKey;autoIncrement"`
	MintAddress  string   `gorm:"column:mint_address;type:text;not null;uniqueIndex"`
	Name         *string  `gorm:"column:name;type:text"`
	Symbol       *string  `gorm:"column:symbol;type:text"`
	Description  *string  `gorm:"column:description;type:text"`
	ImageURI     *string  `gorm:"column:image_uri;type:text"`
	Source       string   `gorm:"column:source;type:text;not null"`
	MarketCap    *float64 `gorm:"column:market_cap"`
	Liquidity    *float64 `gorm:"column:liquidity"`
	PriceUSD     *float64 `gorm:"column:price_usd"`
	Volume24h    *float64 `gorm:"column:volume_24h"`
	TxnsH24Buys  *int64   `gorm:"column:txns_24h_buys"`
	TxnsH24Sells *int64   `gorm:"column:txns_24h_sells"`

	RugPull       bool `gorm:"column:rug_pull;not null"`
	Pump          bool `gorm:"column:pump;not null"`
	Tier1         bool `gorm:"column:tier1;not null"`
	CEXListed     bool `gorm:"column:cex_listed;not null"`
	BundledSupply bool `gorm:"column:bundled_supply;not null"`

	// Timestamps are stamped by the store clock, not by gorm.
	CreatedAt time.Time `gorm:"column:created_at;not null;autoCreateTime:false"`
	UpdatedAt time.Time `gorm:"column:updated_at;not null;autoUpdateTime:false"`
}

func (coinRow) TableName() string {
	return "coins"
}

// searchColumns are overwritten when a search upsert hits an existing mint.
var searchColumns = []string{
	"name", "symbol", "description", "image_uri",
	"market_cap", "liquidity", "price_usd", "volume_24h",
	"txns_24h_buys", "txns_24h_sells", "updated_at",
}

func toRow(c *domain.Coin, source domain.Source, now time.Time) *coinRow {
	return &coinRow{
		MintAddress:  c.MintAddress,
		Name:         c.Name,
		Symbol:       c.Symbol,
		Description:  c.Description,
		ImageURI:     c.ImageURI,
		Source:       string(source),
		MarketCap:    c.MarketCap,
		Liquidity:    c.Liquidity,
		PriceUSD:     c.PriceUSD,
		Volume24h:    c.Volume24h,
		TxnsH24Buys:  c.TxnsH24Buys,
		TxnsH24Sells: c.TxnsH24Sells,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
}

func (r *coinRow) toDomain() *domain.Coin {
	return &domain.Coin{
		ID:            r.ID,
		MintAddress:   r.MintAddress,
		Name:          r.Name,
		Symbol:        r.Symbol,
		Description:   r.Description,
		ImageURI:      r.ImageURI,
		Source:        domain.Source(r.Source),
		MarketCap:     r.MarketCap,
		Liquidity:     r.Liquidity,
		PriceUSD:      r.PriceUSD,
		Volume24h:     r.Volume24h,
		TxnsH24Buys:   r.TxnsH24Buys,
		TxnsH24Sells:  r.TxnsH24Sells,
		RugPull:       r.RugPull,
		Pump:          r.Pump,
		Tier1:         r.Tier1,
		CEXListed:     r.CEXListed,
		BundledSupply: r.BundledSupply,
		CreatedAt:     r.CreatedAt.UTC(),
		UpdatedAt:     r.UpdatedAt.UTC(),
	}
}
