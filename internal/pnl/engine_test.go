package pnl

import (
	"encoding/json"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"hyperliquid-pnl-lab/internal/domain"
)

var threeDays = []string{"2025-01-01", "2025-01-02", "2025-01-03"}

func TestEngine_AnchoredScenario(t *testing.T) {
	res, err := NewEngine().Compute(Input{
		Dates:  threeDays,
		Fills:  []domain.RawFill{fill("BTC", "A", "50000", "0.1", "5", "100", ms("2025-01-02", 12))},
		Anchor: anchorAt("2025-01-03", "10000", strp("0")),
	})
	require.NoError(t, err)
	require.Len(t, res.Daily, 3)

	assert.Equal(t, []string{"0", "95", "0"}, []string{
		res.Daily[0].NetPnl.String(), res.Daily[1].NetPnl.String(), res.Daily[2].NetPnl.String(),
	})
	assert.Equal(t, []string{"9905", "10000", "10000"}, equities(res.Daily))
	assert.Equal(t, domain.EquityModeAnchored, res.Diagnostics.EquityMode)
	assert.True(t, res.Diagnostics.AbsoluteEquity)
	assert.Equal(t, "2025-01-03", res.Diagnostics.AnchorDate)

	assertDec(t, "100", res.Summary.TotalRealized)
	assertDec(t, "5", res.Summary.TotalFees)
	assertDec(t, "95", res.Summary.NetPnl)
	assertDec(t, "95", res.Summary.Perp.NetPnl)
	assert.True(t, res.Summary.Spot.NetPnl.IsZero())
	assertContinuity(t, res.Daily)
	assertRowInvariants(t, res.Daily)
}

func TestEngine_SpotScenario(t *testing.T) {
	res, err := NewEngine().Compute(Input{
		Dates: []string{"2025-01-01"},
		Fills: []domain.RawFill{
			fill("PURR/USDC", "B", "2", "10", "0", "", ms("2025-01-01", 1)),
			fill("PURR/USDC", "A", "3", "10", "0", "", ms("2025-01-01", 2)),
		},
		Anchor: anchorAt("2025-01-01", "1000", nil),
	})
	require.NoError(t, err)

	row := res.Daily[0]
	assertDec(t, "10", row.RealizedPnl)
	assertDec(t, "10", row.Spot.Realized)
	assert.True(t, row.Perp.Realized.IsZero())
	assertDec(t, "10", res.Summary.Spot.TotalRealized)
	assertRowInvariants(t, res.Daily)
}

func TestEngine_NoAnchorScenario(t *testing.T) {
	res, err := NewEngine().Compute(Input{
		Dates: []string{"2025-01-01"},
		Fills: []domain.RawFill{fill("ETH", "B", "3000", "1", "20", "0", ms("2025-01-01", 6))},
	})
	require.NoError(t, err)

	assertDec(t, "-20", res.Daily[0].NetPnl)
	assertDec(t, "20", res.Daily[0].Equity.Decimal)
	assert.Equal(t, domain.EquitySourceRelative, res.Daily[0].EquitySource)
	assert.Equal(t, domain.EquityModeRelative, res.Diagnostics.EquityMode)
	assert.False(t, res.Diagnostics.AbsoluteEquity)
	assert.Contains(t, res.Diagnostics.Warnings, domain.WarningAmbiguousAnchor)
	assert.NotEmpty(t, res.Diagnostics.Notes)
	assert.Empty(t, res.Diagnostics.UnrealizedDate)
	assert.True(t, res.Summary.TotalUnrealized.IsZero())
}

func TestEngine_ZeroActivityDay(t *testing.T) {
	res, err := NewEngine().Compute(Input{
		Dates: threeDays,
		Fills: []domain.RawFill{
			fill("BTC", "A", "1", "1", "1", "10", ms("2025-01-01", 1)),
			fill("BTC", "A", "1", "1", "1", "30", ms("2025-01-03", 1)),
		},
		Anchor: anchorAt("2025-01-03", "500", nil),
	})
	require.NoError(t, err)

	mid := res.Daily[1]
	for _, v := range []decimal.Decimal{mid.RealizedPnl, mid.UnrealizedPnl, mid.Fees, mid.Funding, mid.NetPnl} {
		assert.True(t, v.IsZero())
	}
	require.True(t, mid.Equity.Valid)
	assertDec(t, "471", mid.Equity.Decimal)
	assertDec(t, "471", res.Daily[0].Equity.Decimal)
	assertContinuity(t, res.Daily)
}

func TestEngine_MixedMarketsInvariants(t *testing.T) {
	dates, err := DateRange("2025-01-01", "2025-01-07", DefaultMaxRangeDays)
	require.NoError(t, err)

	res, err := NewEngine().Compute(Input{
		Dates: dates,
		Fills: []domain.RawFill{
			fill("BTC", "B", "60000", "0.01", "0.3", "0", ms("2025-01-01", 9)),
			fill("BTC", "A", "61000", "0.01", "0.31", "10", ms("2025-01-03", 9)),
			fill("@107", "B", "1.2", "100", "0.05", "", ms("2025-01-02", 1)),
			fill("@107", "B", "1.5", "50", "0.05", "", ms("2025-01-04", 1)),
			fill("@107", "A", "2", "120", "-0.02", "", ms("2025-01-06", 1)),
			fill("ETH", "A", "3000", "1", "1.5", "-25.5", ms("2025-01-07", 23)),
		},
		Funding: []domain.RawFunding{
			{Time: ms("2025-01-02", 8), Coin: "BTC", USDC: "-0.4"},
			{Time: ms("2025-01-05", 16), Coin: "BTC", USDC: "0.15"},
		},
		Anchor: anchorAt("2025-01-07", "2500", strp("12.5")),
		Marks:  &domain.PositionMarks{Date: "2025-01-07", Perp: d("12.5")},
	})
	require.NoError(t, err)
	require.Len(t, res.Daily, len(dates))

	for i, r := range res.Daily {
		assert.Equal(t, dates[i], r.Date)
	}
	assertRowInvariants(t, res.Daily)
	assertContinuity(t, res.Daily)

	// avg = (100*1.2 + 50*1.5) / 150 = 1.3; sold 120 @ 2
	assertDec(t, "84", res.Daily[5].Spot.Realized)
	assertDec(t, "-0.4", res.Daily[1].Funding)
	assertDec(t, "0.02", res.Daily[5].Spot.Fees)

	for i, r := range res.Daily {
		if i == 6 {
			assertDec(t, "12.5", r.UnrealizedPnl)
			continue
		}
		assert.True(t, r.UnrealizedPnl.IsZero(), "unrealized only on the anchor day")
	}
	assertDec(t, "12.5", res.Summary.TotalUnrealized)
	assert.Equal(t, "2025-01-07", res.Diagnostics.UnrealizedDate)

	sum := decimal.Zero
	for _, r := range res.Daily {
		sum = sum.Add(r.NetPnl)
	}
	assert.True(t, sum.Equal(res.Summary.NetPnl))
	assert.True(t, res.Summary.Perp.NetPnl.Add(res.Summary.Spot.NetPnl).Equal(res.Summary.NetPnl))
}

func TestEngine_AnchorDateWinsOverLastDay(t *testing.T) {
	res, err := NewEngine().Compute(Input{
		Dates:  threeDays,
		Anchor: anchorAt("2025-01-02", "100", strp("7")),
		Marks:  &domain.PositionMarks{Date: "2025-01-03", Perp: d("7")},
	})
	require.NoError(t, err)

	assertDec(t, "7", res.Daily[1].UnrealizedPnl)
	assert.True(t, res.Daily[2].UnrealizedPnl.IsZero())
	assertDec(t, "7", res.Summary.TotalUnrealized)
	assert.Equal(t, "2025-01-02", res.Diagnostics.UnrealizedDate)
}

func TestEngine_UnmatchedSpotSellWarning(t *testing.T) {
	res, err := NewEngine().Compute(Input{
		Dates: []string{"2025-01-01"},
		Fills: []domain.RawFill{fill("HYPE/USDC", "A", "20", "3", "0", "", ms("2025-01-01", 4))},
	})
	require.NoError(t, err)

	assert.True(t, res.Daily[0].RealizedPnl.IsZero())
	found := false
	for _, w := range res.Diagnostics.Warnings {
		if len(w) >= len(domain.WarningUnmatchedSpotSell) && w[:len(domain.WarningUnmatchedSpotSell)] == domain.WarningUnmatchedSpotSell {
			found = true
		}
	}
	assert.True(t, found)
}

func TestEngine_Idempotent(t *testing.T) {
	in := Input{
		Dates: threeDays,
		Fills: []domain.RawFill{
			fill("SOL", "B", "180.25", "3", "0.2", "0", ms("2025-01-01", 2)),
			fill("PURR/USDC", "B", "0.3", "33", "0.01", "", ms("2025-01-01", 3)),
			fill("PURR/USDC", "A", "0.31", "10", "0.01", "", ms("2025-01-02", 3)),
		},
		Funding: []domain.RawFunding{{Time: ms("2025-01-02", 1), Coin: "SOL", USDC: "0.011"}},
		Anchor:  anchorAt("2025-01-03", "777.77", strp("1.1")),
	}

	a, err := NewEngine().Compute(in)
	require.NoError(t, err)
	b, err := NewEngine().Compute(in)
	require.NoError(t, err)

	ja, err := json.Marshal(a)
	require.NoError(t, err)
	jb, err := json.Marshal(b)
	require.NoError(t, err)
	assert.Equal(t, string(ja), string(jb))
}

func TestEngine_Errors(t *testing.T) {
	_, err := NewEngine().Compute(Input{Dates: []string{"2025-01-02", "2025-01-01"}})
	assert.ErrorIs(t, err, ErrInvalidDateRange)

	_, err = NewEngine().Compute(Input{
		Dates: threeDays,
		Fills: []domain.RawFill{fill("BTC", "B", "oops", "1", "0", "0", ms("2025-01-01", 1))},
	})
	assert.ErrorIs(t, err, ErrMalformedUpstreamData)

	_, err = NewEngine().Compute(Input{
		Dates:   threeDays,
		Funding: []domain.RawFunding{{Time: ms("2025-01-01", 1), Coin: "BTC", USDC: ""}},
	})
	assert.ErrorIs(t, err, ErrMalformedUpstreamData)
}
