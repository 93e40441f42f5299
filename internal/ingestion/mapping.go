package ingestion

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/mr-tron/base58"

	"github.com/Vladymirovich/MemeBot/internal/dexscreener"
	"github.com/Vladymirovich/MemeBot/internal/domain"
)

// Mapping errors.
var (
	// ErrMissingMint is returned when a pair or event carries no mint address.
	ErrMissingMint = errors.New("missing mint address")

	// ErrInvalidMint is returned when an event mint is not a Solana address.
	ErrInvalidMint = errors.New("invalid mint address")
)

// solanaAddressLen is the decoded length of a Solana public key.
const solanaAddressLen = 32

// coinFromPair maps a decoded search pair to a search-origin coin.
func coinFromPair(p *dexscreener.Pair) (*domain.Coin, error) {
	mint := strings.TrimSpace(p.BaseToken.Address)
	if mint == "" {
		return nil, ErrMissingMint
	}

	c := &domain.Coin{
		MintAddress: mint,
		Name:        optString(p.BaseToken.Name),
		Symbol:      optString(p.BaseToken.Symbol),
		Source:      domain.SourceSearch,
		MarketCap:   p.MarketCap.Float(),
		PriceUSD:    p.PriceUSD.Float(),
	}
	if p.Info != nil {
		c.Description = optString(p.Info.Description)
		c.ImageURI = optString(p.Info.ImageURL)
	}
	if p.Liquidity != nil {
		c.Liquidity = p.Liquidity.USD.Float()
	}
	if p.Volume != nil {
		c.Volume24h = p.Volume.H24.Float()
	}
	if p.Txns != nil && p.Txns.H24 != nil {
		c.TxnsH24Buys = p.Txns.H24.Buys
		c.TxnsH24Sells = p.Txns.H24.Sells
	}
	return c, nil
}

// newTokenEvent is the subset of a feed new-token message that is stored.
type newTokenEvent struct {
	Mint        string `json:"mint"`
	Name        string `json:"name"`
	Symbol      string `json:"symbol"`
	Description string `json:"description"`
	ImageURI    string `json:"image_uri"`
	URI         string `json:"uri"`
}

// messageKind classifies a raw feed message.
type messageKind int

const (
	kindEvent     messageKind = iota
	kindIgnored               // JSON object without a mint key
	kindMalformed             // not a JSON object, or a bad event
)

func (k messageKind) String() string {
	switch k {
	case kindEvent:
		return "event"
	case kindIgnored:
		return "ignored"
	default:
		return "malformed"
	}
}

// parseMessage decodes one feed message. A nil coin with kindIgnored is
// feed chatter such as the subscription acknowledgement.
func parseMessage(msg []byte) (*domain.Coin, messageKind, error) {
	var fields map[string]json.RawMessage
	if err := json.Unmarshal(msg, &fields); err != nil {
		return nil, kindMalformed, fmt.Errorf("decode message: %w", err)
	}
	if _, ok := fields["mint"]; !ok {
		return nil, kindIgnored, nil
	}

	var ev newTokenEvent
	if err := json.Unmarshal(msg, &ev); err != nil {
		return nil, kindMalformed, fmt.Errorf("decode event: %w", err)
	}

	mint := strings.TrimSpace(ev.Mint)
	if mint == "" {
		return nil, kindMalformed, ErrMissingMint
	}
	if err := validateMint(mint); err != nil {
		return nil, kindMalformed, err
	}

	image := ev.ImageURI
	if strings.TrimSpace(image) == "" {
		image = ev.URI
	}

	return &domain.Coin{
		MintAddress: mint,
		Name:        optString(ev.Name),
		Symbol:      optString(ev.Symbol),
		Description: optString(ev.Description),
		ImageURI:    optString(image),
		Source:      domain.SourceEvent,
	}, kindEvent, nil
}

// validateMint checks that mint decodes to a 32-byte public key.
func validateMint(mint string) error {
	raw, err := base58.Decode(mint)
	if err != nil {
		return fmt.Errorf("%w %q: %v", ErrInvalidMint, mint, err)
	}
	if len(raw) != solanaAddressLen {
		return fmt.Errorf("%w %q: decoded %d bytes", ErrInvalidMint, mint, len(raw))
	}
	return nil
}

func optString(s string) *string {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil
	}
	return &s
}
