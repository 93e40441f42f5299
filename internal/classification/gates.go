package classification

import (
	"fmt"
	"strings"

	"github.com/Vladymirovich/MemeBot/internal/domain"
)

// Thresholds holds the threshold and synthetic-volume limits.
type Thresholds struct {
	MinMarketCap            float64
	MinLiquidity            float64
	MaxVolumeLiquidityRatio float64
	MinTxns24h              int64
	MaxBuySellRatio         float64
}

// Blacklist holds blocked token mints and developer addresses.
type Blacklist struct {
	tokens     map[string]struct{}
	developers map[string]struct{}
}

// NewBlacklist builds a blacklist. Entries are trimmed; empty ones are dropped.
func NewBlacklist(tokens, developers []string) *Blacklist {
	return &Blacklist{
		tokens:     toSet(tokens),
		developers: toSet(developers),
	}
}

// IsTokenBlacklisted reports whether mint is blocked.
func (b *Blacklist) IsTokenBlacklisted(mint string) bool {
	if b == nil {
		return false
	}
	_, ok := b.tokens[strings.TrimSpace(mint)]
	return ok
}

// IsDeveloperBlacklisted reports whether a developer address is blocked.
// No source provides a developer address yet, so no gate calls it.
func (b *Blacklist) IsDeveloperBlacklisted(addr string) bool {
	if b == nil {
		return false
	}
	_, ok := b.developers[strings.TrimSpace(addr)]
	return ok
}

func toSet(values []string) map[string]struct{} {
	set := make(map[string]struct{}, len(values))
	for _, v := range values {
		if v = strings.TrimSpace(v); v != "" {
			set[v] = struct{}{}
		}
	}
	return set
}

// CheckRiskReport returns a rejection reason for a rugged or Danger report,
// empty when the report passes.
func CheckRiskReport(r *domain.RiskReport) string {
	if r.Rugged {
		return "marked as rugged"
	}
	if r.Result == domain.RiskResultDanger {
		return "risk result is Danger"
	}
	return ""
}

// CheckThresholds returns a rejection reason when market cap or liquidity is
// present and below its minimum. Absent values never reject.
func CheckThresholds(c *domain.Coin, t Thresholds) string {
	if c.MarketCap != nil && *c.MarketCap < t.MinMarketCap {
		return fmt.Sprintf("market cap %.2f below minimum %.2f", *c.MarketCap, t.MinMarketCap)
	}
	if c.Liquidity != nil && *c.Liquidity < t.MinLiquidity {
		return fmt.Sprintf("liquidity %.2f below minimum %.2f", *c.Liquidity, t.MinLiquidity)
	}
	return ""
}

// HasFakeVolume reports whether the coin's trading looks synthetic and why.
func HasFakeVolume(c *domain.Coin, t Thresholds) (bool, string) {
	if c.Liquidity != nil && *c.Liquidity > 0 && c.Volume24h != nil {
		ratio := *c.Volume24h / *c.Liquidity
		if ratio > t.MaxVolumeLiquidityRatio {
			return true, fmt.Sprintf("volume/liquidity ratio %.2f exceeds %.2f", ratio, t.MaxVolumeLiquidityRatio)
		}
	}

	if c.TxnsH24Buys == nil || c.TxnsH24Sells == nil {
		return false, ""
	}
	buys, sells := *c.TxnsH24Buys, *c.TxnsH24Sells

	if total := buys + sells; total < t.MinTxns24h {
		return true, fmt.Sprintf("%d transactions in 24h below minimum %d", total, t.MinTxns24h)
	}
	if sells > 0 {
		if ratio := float64(buys) / float64(sells); ratio > t.MaxBuySellRatio {
			return true, fmt.Sprintf("buy/sell ratio %.2f exceeds %.2f", ratio, t.MaxBuySellRatio)
		}
	}
	if buys > 0 {
		if ratio := float64(sells) / float64(buys); ratio > t.MaxBuySellRatio {
			return true, fmt.Sprintf("sell/buy ratio %.2f exceeds %.2f", ratio, t.MaxBuySellRatio)
		}
	}
	return false, ""
}
