package pnl

import (
	"fmt"

	"github.com/shopspring/decimal"

	"hyperliquid-pnl-lab/internal/domain"
)

// EquityOutcome describes how equity was reconstructed for a row series.
type EquityOutcome struct {
	Mode           domain.EquityMode
	AbsoluteEquity bool
	AnchorIndex    int // row that received the live anchor, -1 if none
	StoredPoints   int // stored snapshots used as known points
	Warnings       []string
}

// ReconstructEquity fills the equity of every row from the net PnL series.
//
// Known points are stored snapshots inside the range and the live anchor.
// With stored points, unknown rows derive backward from the next known row
// and rows after the last known row derive forward. Without stored points:
//
//   - anchor in range:  equity[a] = anchor; backward equity[i] = equity[i+1] - net[i+1];
//     forward equity[i] = equity[i-1] + net[i]
//   - anchor elsewhere: last row = anchor; backward only
//   - no anchor:        equity[last] = -net[last]; backward; level is relative
//
// When the anchor carries unrealized PnL it overrides the target row's
// value before any propagation. This holds in every mode: with stored points
// the anchor equity may go unused (its day is covered, or it lies outside the
// range), yet its unrealized PnL still lands on the anchor day, or on the last
// row when the anchor is outside the range, and that row's net PnL follows.
func ReconstructEquity(rows []domain.DailyPnlRow, anchor *domain.AnchorPoint, stored map[string]decimal.Decimal) EquityOutcome {
	out := EquityOutcome{Mode: domain.EquityModeRelative, AnchorIndex: -1}
	if len(rows) == 0 {
		return out
	}
	last := len(rows) - 1

	anchorIdx := -1
	anchorInRange := false
	if anchor != nil {
		anchorIdx = indexOfDate(rows, anchor.Date)
		anchorInRange = anchorIdx >= 0
		if !anchorInRange {
			anchorIdx = last
		}
		if anchor.UnrealizedPnl.Valid {
			overrideUnrealized(&rows[anchorIdx], anchor.UnrealizedPnl.Decimal)
		}
	}

	known := make([]bool, len(rows))
	for i := range rows {
		if v, ok := stored[rows[i].Date]; ok {
			setEquity(&rows[i], v, domain.EquitySourceStored)
			known[i] = true
			out.StoredPoints++
		}
	}

	if out.StoredPoints > 0 {
		if anchorInRange && !known[anchorIdx] {
			setEquity(&rows[anchorIdx], anchor.Equity, domain.EquitySourceAnchor)
			known[anchorIdx] = true
			out.AnchorIndex = anchorIdx
		}
		fillFromKnown(rows, known)
		out.Mode = domain.EquityModeStoredSnapshots
		out.AbsoluteEquity = true
		out.Warnings = discontinuities(rows, known)
		return out
	}

	switch {
	case anchor != nil && anchorInRange:
		setEquity(&rows[anchorIdx], anchor.Equity, domain.EquitySourceAnchor)
		propagateBackward(rows, anchorIdx, domain.EquitySourceDerived)
		propagateForward(rows, anchorIdx, domain.EquitySourceDerived)
		out.Mode = domain.EquityModeAnchored
		out.AbsoluteEquity = true
		out.AnchorIndex = anchorIdx

	case anchor != nil:
		setEquity(&rows[last], anchor.Equity, domain.EquitySourceAnchor)
		propagateBackward(rows, last, domain.EquitySourceDerived)
		out.Mode = domain.EquityModeAnchoredLastDay
		out.AbsoluteEquity = true
		out.AnchorIndex = last

	default:
		setEquity(&rows[last], rows[last].NetPnl.Neg(), domain.EquitySourceRelative)
		propagateBackward(rows, last, domain.EquitySourceRelative)
		out.Warnings = []string{domain.WarningAmbiguousAnchor}
	}
	return out
}

func setEquity(row *domain.DailyPnlRow, v decimal.Decimal, src domain.EquitySource) {
	row.Equity = decimal.NullDecimal{Decimal: v, Valid: true}
	row.EquitySource = src
}

// propagateBackward derives rows[from-1..0] from rows[from].
func propagateBackward(rows []domain.DailyPnlRow, from int, src domain.EquitySource) {
	for i := from - 1; i >= 0; i-- {
		setEquity(&rows[i], rows[i+1].Equity.Decimal.Sub(rows[i+1].NetPnl), src)
	}
}

// propagateForward derives rows[from+1..] from rows[from].
func propagateForward(rows []domain.DailyPnlRow, from int, src domain.EquitySource) {
	for i := from + 1; i < len(rows); i++ {
		setEquity(&rows[i], rows[i-1].Equity.Decimal.Add(rows[i].NetPnl), src)
	}
}

// fillFromKnown derives every unknown row from the nearest known point:
// backward from the next known row, forward after the last one.
func fillFromKnown(rows []domain.DailyPnlRow, known []bool) {
	lastKnown := -1
	for i := len(rows) - 1; i >= 0; i-- {
		if known[i] {
			if lastKnown < 0 {
				lastKnown = i
			}
			continue
		}
		if i+1 < len(rows) && rows[i+1].Equity.Valid {
			setEquity(&rows[i], rows[i+1].Equity.Decimal.Sub(rows[i+1].NetPnl), domain.EquitySourceDerived)
		}
	}
	if lastKnown >= 0 {
		propagateForward(rows, lastKnown, domain.EquitySourceDerived)
	}
}

// discontinuities reports known points whose value does not follow from the
// previous row and its own net PnL.
func discontinuities(rows []domain.DailyPnlRow, known []bool) []string {
	var warnings []string
	for i := 1; i < len(rows); i++ {
		if !known[i] && !known[i-1] {
			continue
		}
		delta := rows[i].Equity.Decimal.Sub(rows[i-1].Equity.Decimal)
		if !delta.Equal(rows[i].NetPnl) {
			warnings = append(warnings, fmt.Sprintf("%s: %s (gap %s)",
				domain.WarningStoredDiscontinuity, rows[i].Date, delta.Sub(rows[i].NetPnl).String()))
		}
	}
	return warnings
}
