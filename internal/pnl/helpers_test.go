package pnl

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"

	"hyperliquid-pnl-lab/internal/domain"
)

func d(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

func assertDec(t *testing.T, want string, got decimal.Decimal, msgAndArgs ...interface{}) {
	t.Helper()
	assert.True(t, d(want).Equal(got), append([]interface{}{"want %s, got %s", want, got.String()}, msgAndArgs...)...)
}

func ms(date string, hour int) int64 {
	t, err := time.ParseInLocation(DateLayout, date, time.UTC)
	if err != nil {
		panic(err)
	}
	return t.Add(time.Duration(hour) * time.Hour).UnixMilli()
}

func fill(coin, side, px, sz, fee, closed string, at int64) domain.RawFill {
	return domain.RawFill{Coin: coin, Side: side, Px: px, Sz: sz, Fee: fee, ClosedPnl: closed, Time: at}
}

func anchorAt(date, equity string, unrealized *string) *domain.AnchorPoint {
	a := &domain.AnchorPoint{Date: date, Equity: d(equity)}
	if unrealized != nil {
		a.UnrealizedPnl = decimal.NewNullDecimal(d(*unrealized))
	}
	return a
}

func strp(s string) *string { return &s }

// assertRowInvariants checks the net identity and breakdown sums on every row.
func assertRowInvariants(t *testing.T, rows []domain.DailyPnlRow) {
	t.Helper()
	for _, r := range rows {
		net := r.RealizedPnl.Add(r.UnrealizedPnl).Sub(r.Fees).Add(r.Funding)
		assert.True(t, net.Equal(r.NetPnl), "net identity on %s", r.Date)
		for _, b := range []domain.MarketBreakdown{r.Perp, r.Spot} {
			bn := b.Realized.Add(b.Unrealized).Sub(b.Fees).Add(b.Funding)
			assert.True(t, bn.Equal(b.Net), "breakdown net identity on %s", r.Date)
		}
		assert.True(t, r.RealizedPnl.Equal(r.Perp.Realized.Add(r.Spot.Realized)), "realized sum on %s", r.Date)
		assert.True(t, r.UnrealizedPnl.Equal(r.Perp.Unrealized.Add(r.Spot.Unrealized)), "unrealized sum on %s", r.Date)
		assert.True(t, r.Fees.Equal(r.Perp.Fees.Add(r.Spot.Fees)), "fees sum on %s", r.Date)
		assert.True(t, r.Funding.Equal(r.Perp.Funding), "funding on %s", r.Date)
		assert.True(t, r.Spot.Funding.IsZero(), "spot funding on %s", r.Date)
		assert.False(t, r.Fees.IsNegative(), "fees sign on %s", r.Date)
	}
}

// assertContinuity checks equity[i+1] - equity[i] == net[i+1].
func assertContinuity(t *testing.T, rows []domain.DailyPnlRow) {
	t.Helper()
	for i := 0; i+1 < len(rows); i++ {
		assert.True(t, rows[i].Equity.Valid && rows[i+1].Equity.Valid, "equity set at %d", i)
		delta := rows[i+1].Equity.Decimal.Sub(rows[i].Equity.Decimal)
		assert.True(t, delta.Equal(rows[i+1].NetPnl), "continuity between %s and %s", rows[i].Date, rows[i+1].Date)
	}
}
