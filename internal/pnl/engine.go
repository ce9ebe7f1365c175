package pnl

import (
	"fmt"

	"github.com/shopspring/decimal"

	"hyperliquid-pnl-lab/internal/domain"
)

// Input is everything a single PnL computation needs, already fetched.
type Input struct {
	Dates        []string                   // inclusive, ascending, gap-free
	Fills        []domain.RawFill           // perp and spot fills
	Funding      []domain.RawFunding        // perp funding payments
	Anchor       *domain.AnchorPoint        // live snapshot, nil when unavailable
	Marks        *domain.PositionMarks      // current unrealized PnL, nil when unavailable
	StoredEquity map[string]decimal.Decimal // stored daily equity by date, may be nil
}

// Result is the output of a PnL computation.
type Result struct {
	Daily       []domain.DailyPnlRow
	Summary     domain.PnlSummary
	Diagnostics domain.Diagnostics
}

// Engine runs the daily PnL and equity pipeline. It holds no state between
// calls and is safe for concurrent use.
type Engine struct{}

// NewEngine creates a new engine.
func NewEngine() *Engine {
	return &Engine{}
}

// Compute runs normalize → bucket → cost basis → aggregate → equity → summary.
func (e *Engine) Compute(in Input) (*Result, error) {
	trades, err := NormalizeFills(in.Fills)
	if err != nil {
		return nil, fmt.Errorf("normalize fills: %w", err)
	}
	funding, err := NormalizeFunding(in.Funding)
	if err != nil {
		return nil, fmt.Errorf("normalize funding: %w", err)
	}

	buckets, err := Bucket(in.Dates, trades, funding)
	if err != nil {
		return nil, err
	}

	tracker := NewCostBasisTracker()
	tracker.ApplyBuckets(buckets)

	rows := Aggregate(buckets, tracker)

	unrealizedIdx := UnrealizedTarget(rows, in.Anchor, in.Marks)
	PlaceUnrealized(rows, unrealizedIdx, in.Marks)

	eq := ReconstructEquity(rows, in.Anchor, in.StoredEquity)

	var extra []string
	for _, u := range tracker.Unmatched() {
		extra = append(extra, fmt.Sprintf("%s: %s %s on %s",
			domain.WarningUnmatchedSpotSell, u.Coin, u.Size.String(), u.Date))
	}

	return &Result{
		Daily:       rows,
		Summary:     Summarize(rows, unrealizedIdx),
		Diagnostics: BuildDiagnostics(rows, eq, unrealizedIdx, extra),
	}, nil
}
