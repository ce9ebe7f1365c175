package pnl

import (
	"github.com/shopspring/decimal"

	"hyperliquid-pnl-lab/internal/domain"
)

// Caveat strings attached to every diagnostics record.
const (
	UnrealizedPolicy = "unrealized PnL reflects only the most recent day; historical days assume zero mark-to-market movement"

	notesAbsolute = "equity reconstructed from the anchor using daily net PnL"
	notesLastDay  = "anchor date outside range; equity anchored on the last day and propagated backward"
	notesStored   = "equity taken from stored daily snapshots where available, derived from the nearest known point elsewhere"
	notesRelative = "no account snapshot available; equity is relative to an arbitrary zero after the last day and its absolute level is meaningless"
)

// Summarize reduces the daily rows into range totals. Realized, fees,
// funding and net are summed; unrealized is taken from rows[unrealizedIdx]
// only, and is zero when unrealizedIdx is -1.
func Summarize(rows []domain.DailyPnlRow, unrealizedIdx int) domain.PnlSummary {
	var s domain.PnlSummary
	for _, r := range rows {
		s.TotalRealized = s.TotalRealized.Add(r.RealizedPnl)
		s.TotalFees = s.TotalFees.Add(r.Fees)
		s.TotalFunding = s.TotalFunding.Add(r.Funding)
		s.NetPnl = s.NetPnl.Add(r.NetPnl)
		addMarket(&s.Perp, r.Perp)
		addMarket(&s.Spot, r.Spot)
	}

	s.TotalUnrealized = decimal.Zero
	s.Perp.TotalUnrealized = decimal.Zero
	s.Spot.TotalUnrealized = decimal.Zero
	if unrealizedIdx >= 0 && unrealizedIdx < len(rows) {
		r := rows[unrealizedIdx]
		s.TotalUnrealized = r.UnrealizedPnl
		s.Perp.TotalUnrealized = r.Perp.Unrealized
		s.Spot.TotalUnrealized = r.Spot.Unrealized
	}
	return s
}

func addMarket(t *domain.MarketTotals, b domain.MarketBreakdown) {
	t.TotalRealized = t.TotalRealized.Add(b.Realized)
	t.TotalFees = t.TotalFees.Add(b.Fees)
	t.TotalFunding = t.TotalFunding.Add(b.Funding)
	t.NetPnl = t.NetPnl.Add(b.Net)
}

// BuildDiagnostics describes the reconstruction mode and caveats of a result.
// Provenance fields (data source, call time, run ID) are stamped by callers.
func BuildDiagnostics(rows []domain.DailyPnlRow, eq EquityOutcome, unrealizedIdx int, extra []string) domain.Diagnostics {
	d := domain.Diagnostics{
		EquityMode:       eq.Mode,
		AbsoluteEquity:   eq.AbsoluteEquity,
		StoredSnapshots:  eq.StoredPoints,
		UnrealizedPolicy: UnrealizedPolicy,
	}
	if eq.AnchorIndex >= 0 && eq.AnchorIndex < len(rows) {
		d.AnchorDate = rows[eq.AnchorIndex].Date
	}
	if unrealizedIdx >= 0 && unrealizedIdx < len(rows) {
		d.UnrealizedDate = rows[unrealizedIdx].Date
	}

	switch eq.Mode {
	case domain.EquityModeAnchored:
		d.Notes = notesAbsolute
	case domain.EquityModeAnchoredLastDay:
		d.Notes = notesLastDay
	case domain.EquityModeStoredSnapshots:
		d.Notes = notesStored
	default:
		d.Notes = notesRelative
	}

	d.Warnings = append(d.Warnings, eq.Warnings...)
	d.Warnings = append(d.Warnings, extra...)
	return d
}
