package pnl

import (
	"github.com/shopspring/decimal"

	"hyperliquid-pnl-lab/internal/domain"
)

// SpotPosition is the weighted-average cost position of one spot coin.
// AvgCost is only meaningful while Size > 0.
type SpotPosition struct {
	Coin    string
	Size    decimal.Decimal
	AvgCost decimal.Decimal
}

// UnmatchedSell records the part of a spot sell that exceeded the tracked size.
type UnmatchedSell struct {
	Coin string
	Date string
	Size decimal.Decimal
}

// CostBasisTracker computes spot realized PnL with weighted-average cost.
// A tracker is scoped to one computation and must be fed trades in
// chronological order across the whole range.
//
//   - buy s@p:  avg = p if size == 0, else (size*avg + s*p) / (size + s); size += s
//   - sell s@p: matched = min(s, size); realized[date] += matched * (p - avg); size -= matched
//
// Selling more than the tracked size realizes nothing for the excess.
type CostBasisTracker struct {
	positions map[string]*SpotPosition
	realized  map[string]decimal.Decimal
	unmatched []UnmatchedSell
}

// NewCostBasisTracker creates an empty tracker.
func NewCostBasisTracker() *CostBasisTracker {
	return &CostBasisTracker{
		positions: make(map[string]*SpotPosition),
		realized:  make(map[string]decimal.Decimal),
	}
}

// Apply processes a single trade. Non-spot trades are ignored.
func (c *CostBasisTracker) Apply(t domain.NormalizedTrade) {
	if t.Market != domain.MarketSpot {
		return
	}

	pos, ok := c.positions[t.Coin]
	if !ok {
		pos = &SpotPosition{Coin: t.Coin}
		c.positions[t.Coin] = pos
	}

	switch t.Side {
	case domain.SideBuy:
		if pos.Size.IsZero() {
			pos.AvgCost = t.Price
		} else {
			cost := pos.Size.Mul(pos.AvgCost).Add(t.Size.Mul(t.Price))
			pos.AvgCost = cost.Div(pos.Size.Add(t.Size))
		}
		pos.Size = pos.Size.Add(t.Size)

	case domain.SideSell:
		date := DateOf(t.Timestamp)
		matched := decimal.Min(t.Size, pos.Size)
		if matched.IsPositive() {
			pnl := matched.Mul(t.Price.Sub(pos.AvgCost))
			c.realized[date] = c.realized[date].Add(pnl)
			pos.Size = pos.Size.Sub(matched)
		}
		if excess := t.Size.Sub(matched); excess.IsPositive() {
			c.unmatched = append(c.unmatched, UnmatchedSell{Coin: t.Coin, Date: date, Size: excess})
		}
	}
}

// ApplyBuckets feeds every trade of the buckets in order.
// Buckets must be ascending and their trades time-ordered.
func (c *CostBasisTracker) ApplyBuckets(buckets []DayBucket) {
	for _, b := range buckets {
		for _, t := range b.Trades {
			c.Apply(t)
		}
	}
}

// RealizedOn returns spot realized PnL attributed to date.
func (c *CostBasisTracker) RealizedOn(date string) decimal.Decimal {
	return c.realized[date]
}

// Position returns a copy of the tracked position for coin.
func (c *CostBasisTracker) Position(coin string) (SpotPosition, bool) {
	pos, ok := c.positions[coin]
	if !ok {
		return SpotPosition{}, false
	}
	return *pos, true
}

// Unmatched returns sells that exceeded the tracked size, in processing order.
func (c *CostBasisTracker) Unmatched() []UnmatchedSell {
	return c.unmatched
}
