package pnl

import (
	"github.com/shopspring/decimal"

	"hyperliquid-pnl-lab/internal/domain"
)

// Aggregate builds one daily row per bucket from trades, funding and spot
// realized PnL. Equity is left unset.
//
// Per row and per market breakdown:
//
//	fees     = Σ |fee|
//	funding  = Σ amount (perp only)
//	realized = Σ closedPnl (perp) + tracker realized (spot)
//	net      = realized + unrealized - fees + funding
func Aggregate(buckets []DayBucket, spot *CostBasisTracker) []domain.DailyPnlRow {
	rows := make([]domain.DailyPnlRow, len(buckets))
	for i, b := range buckets {
		row := domain.DailyPnlRow{Date: b.Date}

		for _, t := range b.Trades {
			switch t.Market {
			case domain.MarketPerp:
				row.Perp.Fees = row.Perp.Fees.Add(t.Fee)
				row.Perp.Realized = row.Perp.Realized.Add(t.ClosedPnl)
			case domain.MarketSpot:
				row.Spot.Fees = row.Spot.Fees.Add(t.Fee)
			}
		}
		for _, f := range b.Funding {
			row.Perp.Funding = row.Perp.Funding.Add(f.Amount)
		}
		if spot != nil {
			row.Spot.Realized = spot.RealizedOn(b.Date)
		}

		row.Combine()
		rows[i] = row
	}
	return rows
}

// UnrealizedTarget returns the index of the single row that carries
// unrealized PnL. The anchor date wins over the marks date; a date outside
// the range maps to the last row. Without anchor and marks it returns -1.
func UnrealizedTarget(rows []domain.DailyPnlRow, anchor *domain.AnchorPoint, marks *domain.PositionMarks) int {
	if len(rows) == 0 {
		return -1
	}
	var date string
	switch {
	case anchor != nil:
		date = anchor.Date
	case marks != nil:
		date = marks.Date
	default:
		return -1
	}
	if idx := indexOfDate(rows, date); idx >= 0 {
		return idx
	}
	return len(rows) - 1
}

// PlaceUnrealized puts the current position marks on rows[idx].
func PlaceUnrealized(rows []domain.DailyPnlRow, idx int, marks *domain.PositionMarks) {
	if marks == nil || idx < 0 || idx >= len(rows) {
		return
	}
	row := &rows[idx]
	row.Perp.Unrealized = marks.Perp
	row.Spot.Unrealized = marks.Spot
	row.Combine()
}

// overrideUnrealized replaces the row's unrealized PnL with a trusted value.
// The perp breakdown absorbs the difference. Reports whether the row changed.
func overrideUnrealized(row *domain.DailyPnlRow, unrealized decimal.Decimal) bool {
	diff := unrealized.Sub(row.UnrealizedPnl)
	if diff.IsZero() {
		return false
	}
	row.Perp.Unrealized = row.Perp.Unrealized.Add(diff)
	row.Combine()
	return true
}

func indexOfDate(rows []domain.DailyPnlRow, date string) int {
	if date == "" {
		return -1
	}
	for i := range rows {
		if rows[i].Date == date {
			return i
		}
	}
	return -1
}
