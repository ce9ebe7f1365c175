package pnl

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"hyperliquid-pnl-lab/internal/domain"
)

// rowsWithNet builds combined rows whose perp realized equals the given nets.
func rowsWithNet(start string, nets ...string) []domain.DailyPnlRow {
	dates, err := DateRange(start, mustAddDays(start, len(nets)-1), 0)
	if err != nil {
		panic(err)
	}
	rows := make([]domain.DailyPnlRow, len(nets))
	for i, n := range nets {
		rows[i].Date = dates[i]
		rows[i].Perp.Realized = d(n)
		rows[i].Combine()
	}
	return rows
}

func mustAddDays(date string, n int) string {
	t, err := ParseDate(date)
	if err != nil {
		panic(err)
	}
	return t.AddDate(0, 0, n).Format(DateLayout)
}

func equities(rows []domain.DailyPnlRow) []string {
	out := make([]string, len(rows))
	for i, r := range rows {
		if r.Equity.Valid {
			out[i] = r.Equity.Decimal.String()
		}
	}
	return out
}

func sources(rows []domain.DailyPnlRow) []domain.EquitySource {
	out := make([]domain.EquitySource, len(rows))
	for i, r := range rows {
		out[i] = r.EquitySource
	}
	return out
}

func TestReconstructEquity_AnchoredMiddle(t *testing.T) {
	rows := rowsWithNet("2025-01-01", "10", "95", "-30")

	out := ReconstructEquity(rows, anchorAt("2025-01-02", "1000", nil), nil)

	assert.Equal(t, domain.EquityModeAnchored, out.Mode)
	assert.True(t, out.AbsoluteEquity)
	assert.Equal(t, 1, out.AnchorIndex)
	assert.Equal(t, []string{"905", "1000", "970"}, equities(rows))
	assert.Equal(t, []domain.EquitySource{
		domain.EquitySourceDerived, domain.EquitySourceAnchor, domain.EquitySourceDerived,
	}, sources(rows))
	assertContinuity(t, rows)
}

func TestReconstructEquity_AnchorOutsideRange(t *testing.T) {
	rows := rowsWithNet("2025-01-01", "0", "95", "0")

	out := ReconstructEquity(rows, anchorAt("2025-01-10", "500", strp("25")), nil)

	assert.Equal(t, domain.EquityModeAnchoredLastDay, out.Mode)
	assert.Equal(t, 2, out.AnchorIndex)
	assertDec(t, "25", rows[2].UnrealizedPnl, "anchor unrealized lands on the last row")
	assertDec(t, "25", rows[2].NetPnl)
	assert.Equal(t, []string{"380", "475", "500"}, equities(rows))
	assertContinuity(t, rows)
	assertRowInvariants(t, rows)
}

func TestReconstructEquity_UnrealizedOverride(t *testing.T) {
	rows := rowsWithNet("2025-01-01", "0", "0")
	rows[1].Perp.Unrealized = d("40")
	rows[1].Combine()

	ReconstructEquity(rows, anchorAt("2025-01-02", "1000", strp("50")), nil)

	assertDec(t, "50", rows[1].UnrealizedPnl)
	assertDec(t, "50", rows[1].Perp.Unrealized)
	assertDec(t, "50", rows[1].NetPnl)
	assertDec(t, "950", rows[0].Equity.Decimal)
	assertRowInvariants(t, rows)
}

func TestReconstructEquity_Relative(t *testing.T) {
	rows := rowsWithNet("2025-01-01", "5", "-10", "-20")

	out := ReconstructEquity(rows, nil, nil)

	assert.Equal(t, domain.EquityModeRelative, out.Mode)
	assert.False(t, out.AbsoluteEquity)
	assert.Equal(t, []string{domain.WarningAmbiguousAnchor}, out.Warnings)
	assert.Equal(t, []string{"50", "40", "20"}, equities(rows))
	for _, r := range rows {
		assert.Equal(t, domain.EquitySourceRelative, r.EquitySource)
	}
	assertContinuity(t, rows)
}

func TestReconstructEquity_StoredSnapshots(t *testing.T) {
	rows := rowsWithNet("2025-01-01", "0", "10", "0", "-5", "0")
	stored := map[string]decimal.Decimal{"2025-01-02": d("1010")}

	out := ReconstructEquity(rows, anchorAt("2025-01-05", "2000", nil), stored)

	assert.Equal(t, domain.EquityModeStoredSnapshots, out.Mode)
	assert.True(t, out.AbsoluteEquity)
	assert.Equal(t, 1, out.StoredPoints)
	assert.Equal(t, 4, out.AnchorIndex)
	assert.Equal(t, []string{"1000", "1010", "2005", "2000", "2000"}, equities(rows))
	assert.Equal(t, []domain.EquitySource{
		domain.EquitySourceDerived, domain.EquitySourceStored, domain.EquitySourceDerived,
		domain.EquitySourceDerived, domain.EquitySourceAnchor,
	}, sources(rows))

	require.Len(t, out.Warnings, 1)
	assert.Contains(t, out.Warnings[0], domain.WarningStoredDiscontinuity)
	assert.Contains(t, out.Warnings[0], "2025-01-03")
}

func TestReconstructEquity_StoredWinsOverAnchor(t *testing.T) {
	rows := rowsWithNet("2025-01-01", "0", "10")
	stored := map[string]decimal.Decimal{"2025-01-02": d("1500")}

	out := ReconstructEquity(rows, anchorAt("2025-01-02", "2000", nil), stored)

	assert.Equal(t, -1, out.AnchorIndex)
	assert.Equal(t, []string{"1490", "1500"}, equities(rows))
	assert.Equal(t, domain.EquitySourceStored, rows[1].EquitySource)
	assert.Empty(t, out.Warnings)
}

func TestReconstructEquity_StoredKeepsAnchorUnrealized(t *testing.T) {
	rows := rowsWithNet("2025-01-01", "0", "10")
	stored := map[string]decimal.Decimal{"2025-01-01": d("1000")}

	out := ReconstructEquity(rows, anchorAt("2025-02-01", "5000", strp("30")), stored)

	assert.Equal(t, domain.EquityModeStoredSnapshots, out.Mode)
	assert.Equal(t, -1, out.AnchorIndex, "anchor equity outside the range is not a known point")
	assertDec(t, "30", rows[1].UnrealizedPnl)
	assertDec(t, "40", rows[1].NetPnl)
	assert.Equal(t, []string{"1000", "1040"}, equities(rows))
	assertRowInvariants(t, rows)
	assertContinuity(t, rows)
}

func TestReconstructEquity_StoredForwardFill(t *testing.T) {
	rows := rowsWithNet("2025-01-01", "0", "10", "0", "-5", "0")
	stored := map[string]decimal.Decimal{
		"2025-01-02": d("1000"),
		"2024-06-01": d("1"), // outside range
	}

	out := ReconstructEquity(rows, nil, stored)

	assert.Equal(t, domain.EquityModeStoredSnapshots, out.Mode)
	assert.Equal(t, 1, out.StoredPoints)
	assert.Equal(t, []string{"990", "1000", "1000", "995", "995"}, equities(rows))
	assertContinuity(t, rows)
	assert.Empty(t, out.Warnings)
}

func TestReconstructEquity_StoredOutsideRangeFallsBack(t *testing.T) {
	rows := rowsWithNet("2025-01-01", "0", "10")
	stored := map[string]decimal.Decimal{"2024-12-01": d("1")}

	out := ReconstructEquity(rows, nil, stored)

	assert.Equal(t, domain.EquityModeRelative, out.Mode)
	assert.Zero(t, out.StoredPoints)
}

func TestReconstructEquity_GenuineZeroEquity(t *testing.T) {
	rows := rowsWithNet("2025-01-01", "0", "0")

	ReconstructEquity(rows, anchorAt("2025-01-02", "0", nil), nil)

	for _, r := range rows {
		assert.True(t, r.Equity.Valid, "zero equity is a value, not unset")
		assert.True(t, r.Equity.Decimal.IsZero())
	}
}
