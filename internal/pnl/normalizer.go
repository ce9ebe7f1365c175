package pnl

import (
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"hyperliquid-pnl-lab/internal/domain"
)

// MarketOf infers the market kind of a venue coin symbol and returns the
// asset key used for position tracking.
//
//   - "PURR/USDC" → spot, "PURR" (base asset)
//   - "@107"      → spot, "@107" (venue spot index, kept as is)
//   - "BTC"       → perp, "BTC"
func MarketOf(coin string) (domain.MarketKind, string) {
	if base, _, ok := strings.Cut(coin, "/"); ok {
		return domain.MarketSpot, base
	}
	if strings.HasPrefix(coin, "@") {
		return domain.MarketSpot, coin
	}
	return domain.MarketPerp, coin
}

// SideOf maps the venue side code to a trade side.
func SideOf(code string) (domain.Side, bool) {
	switch code {
	case "B":
		return domain.SideBuy, true
	case "A", "S":
		return domain.SideSell, true
	default:
		return "", false
	}
}

// NormalizeFills converts raw venue fills into normalized trades.
// Fees are stored as absolute values; spot closedPnl is forced to zero.
// The first unparseable record fails the whole call.
func NormalizeFills(fills []domain.RawFill) ([]domain.NormalizedTrade, error) {
	trades := make([]domain.NormalizedTrade, 0, len(fills))
	for i := range fills {
		t, err := normalizeFill(&fills[i])
		if err != nil {
			return nil, fmt.Errorf("fill %d (coin=%s tid=%d): %w", i, fills[i].Coin, fills[i].Tid, err)
		}
		trades = append(trades, t)
	}
	return trades, nil
}

func normalizeFill(f *domain.RawFill) (domain.NormalizedTrade, error) {
	if f.Coin == "" {
		return domain.NormalizedTrade{}, fmt.Errorf("%w: empty coin", ErrMalformedUpstreamData)
	}
	side, ok := SideOf(f.Side)
	if !ok {
		return domain.NormalizedTrade{}, fmt.Errorf("%w: side %q", ErrMalformedUpstreamData, f.Side)
	}
	price, err := parseDecimal("px", f.Px, false)
	if err != nil {
		return domain.NormalizedTrade{}, err
	}
	size, err := parseDecimal("sz", f.Sz, false)
	if err != nil {
		return domain.NormalizedTrade{}, err
	}
	fee, err := parseDecimal("fee", f.Fee, true)
	if err != nil {
		return domain.NormalizedTrade{}, err
	}
	closed, err := parseDecimal("closedPnl", f.ClosedPnl, true)
	if err != nil {
		return domain.NormalizedTrade{}, err
	}

	market, coin := MarketOf(f.Coin)
	if market == domain.MarketSpot {
		closed = decimal.Zero
	}

	return domain.NormalizedTrade{
		Coin:      coin,
		Side:      side,
		Price:     price,
		Size:      size.Abs(),
		Timestamp: time.UnixMilli(f.Time).UTC(),
		Fee:       fee.Abs(),
		ClosedPnl: closed,
		Market:    market,
	}, nil
}

// NormalizeFunding converts raw funding records into normalized payments.
func NormalizeFunding(records []domain.RawFunding) ([]domain.NormalizedFunding, error) {
	out := make([]domain.NormalizedFunding, 0, len(records))
	for i, r := range records {
		amount, err := parseDecimal("usdc", r.USDC, false)
		if err != nil {
			return nil, fmt.Errorf("funding %d (coin=%s time=%d): %w", i, r.Coin, r.Time, err)
		}
		out = append(out, domain.NormalizedFunding{
			Coin:      r.Coin,
			Amount:    amount,
			Timestamp: time.UnixMilli(r.Time).UTC(),
		})
	}
	return out, nil
}

// parseDecimal parses a venue decimal string. Empty input is zero only when
// emptyIsZero is set.
func parseDecimal(field, s string, emptyIsZero bool) (decimal.Decimal, error) {
	if s == "" {
		if emptyIsZero {
			return decimal.Zero, nil
		}
		return decimal.Zero, fmt.Errorf("%w: empty %s", ErrMalformedUpstreamData, field)
	}
	d, err := decimal.NewFromString(s)
	if err != nil {
		return decimal.Zero, fmt.Errorf("%w: %s=%q", ErrMalformedUpstreamData, field, s)
	}
	return d, nil
}
