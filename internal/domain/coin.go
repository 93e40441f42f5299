package domain

import "time"

// Coin represents one token tracked by mint address.
// Corresponds to the coins table.
type Coin struct {
	ID          int64   // surrogate key assigned by the store
	MintAddress string  // unique on-chain mint address
	Name        *string // nullable
	Symbol      *string // nullable
	Description *string // nullable
	ImageURI    *string // nullable
	Source      Source  // flow that first wrote the row

	// Market snapshot, overwritten on every search upsert.
	MarketCap    *float64
	Liquidity    *float64 // quote-currency units (USD)
	PriceUSD     *float64
	TxnsH24Buys  *int64
	TxnsH24Sells *int64
	Volume24h    *float64

	// Classification flags, written only by the classification pipeline.
	RugPull       bool
	Pump          bool
	Tier1         bool
	CEXListed     bool
	BundledSupply bool

	CreatedAt time.Time // set once on first insert
	UpdatedAt time.Time // refreshed on every write
}

// Flags returns the four classification flags of the coin.
func (c *Coin) Flags() Classification {
	return Classification{
		RugPull:   c.RugPull,
		Pump:      c.Pump,
		Tier1:     c.Tier1,
		CEXListed: c.CEXListed,
	}
}

// DisplaySymbol returns the symbol for log lines, or "?" when unknown.
func (c *Coin) DisplaySymbol() string {
	if c.Symbol == nil || *c.Symbol == "" {
		return "?"
	}
	return *c.Symbol
}

// Classification holds the flags computed at the end of the gate chain.
// All four are overwritten together.
type Classification struct {
	RugPull   bool
	Pump      bool
	Tier1     bool
	CEXListed bool
}
