package storage

import (
	"fmt"
	"strings"

	"github.com/Vladymirovich/MemeBot/internal/domain"
)

// ValidateCoin checks the fields every backend requires before a write.
func ValidateCoin(c *domain.Coin) error {
	if c == nil {
		return fmt.Errorf("%w: nil coin", ErrInvalidInput)
	}
	if strings.TrimSpace(c.MintAddress) == "" {
		return fmt.Errorf("%w: missing mint address", ErrInvalidInput)
	}
	if c.Source != "" && !c.Source.IsValid() {
		return fmt.Errorf("%w: unknown source %q", ErrInvalidInput, c.Source)
	}
	return nil
}

// SourceOrDefault returns the coin's source, or def when it is unset.
func SourceOrDefault(c *domain.Coin, def domain.Source) domain.Source {
	if c.Source == "" {
		return def
	}
	return c.Source
}
