package dexscreener

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
)

// Pair is one entry of the search response. Only the fields the ingestor
// stores are decoded.
type Pair struct {
	ChainID     string     `json:"chainId"`
	DexID       string     `json:"dexId"`
	PairAddress string     `json:"pairAddress"`
	BaseToken   Token      `json:"baseToken"`
	QuoteToken  Token      `json:"quoteToken"`
	PriceUSD    FlexFloat  `json:"priceUsd"`
	MarketCap   FlexFloat  `json:"marketCap"`
	Liquidity   *Liquidity `json:"liquidity"`
	Volume      *Volume    `json:"volume"`
	Txns        *Txns      `json:"txns"`
	Info        *Info      `json:"info"`
}

// Token is the base or quote token of a pair.
type Token struct {
	Address string `json:"address"`
	Name    string `json:"name"`
	Symbol  string `json:"symbol"`
}

// Liquidity is the pool depth of a pair.
type Liquidity struct {
	USD FlexFloat `json:"usd"`
}

// Volume is the traded volume of a pair.
type Volume struct {
	H24 FlexFloat `json:"h24"`
}

// Txns holds transaction counts per window.
type Txns struct {
	H24 *TxnCounts `json:"h24"`
}

// TxnCounts is the number of buys and sells in one window.
type TxnCounts struct {
	Buys  *int64 `json:"buys"`
	Sells *int64 `json:"sells"`
}

// Info is the optional token profile of a pair.
type Info struct {
	ImageURL    string `json:"imageUrl"`
	Description string `json:"description"`
}

// DecodePair decodes a single raw search entry.
func DecodePair(raw json.RawMessage) (*Pair, error) {
	var p Pair
	if err := json.Unmarshal(raw, &p); err != nil {
		return nil, fmt.Errorf("decode pair: %w", err)
	}
	return &p, nil
}

// FlexFloat decodes a JSON number or a numeric string.
// priceUsd arrives as a string while marketCap arrives as a number. Absent,
// null and blank values leave it unset.
type FlexFloat struct {
	value float64
	valid bool
}

// UnmarshalJSON implements json.Unmarshaler.
func (f *FlexFloat) UnmarshalJSON(data []byte) error {
	*f = FlexFloat{}
	data = bytes.TrimSpace(data)
	if bytes.Equal(data, []byte("null")) {
		return nil
	}

	if len(data) > 0 && data[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		s = strings.TrimSpace(s)
		if s == "" {
			return nil
		}
		v, err := strconv.ParseFloat(s, 64)
		if err != nil {
			return fmt.Errorf("parse numeric string %q: %w", s, err)
		}
		*f = FlexFloat{value: v, valid: true}
		return nil
	}

	var v float64
	if err := json.Unmarshal(data, &v); err != nil {
		return err
	}
	*f = FlexFloat{value: v, valid: true}
	return nil
}

// Float returns the value as *float64, nil when unset.
func (f FlexFloat) Float() *float64 {
	if !f.valid {
		return nil
	}
	v := f.value
	return &v
}
