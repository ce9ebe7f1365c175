package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// MarketBreakdown holds PnL components scoped to one market kind.
// Invariant: Net = Realized + Unrealized - Fees + Funding.
type MarketBreakdown struct {
	Realized   decimal.Decimal `json:"realized_pnl_usd"`
	Unrealized decimal.Decimal `json:"unrealized_pnl_usd"`
	Fees       decimal.Decimal `json:"fees_usd"`
	Funding    decimal.Decimal `json:"funding_usd"`
	Net        decimal.Decimal `json:"net_pnl_usd"`
}

// Recompute sets Net from the other components.
func (b *MarketBreakdown) Recompute() {
	b.Net = b.Realized.Add(b.Unrealized).Sub(b.Fees).Add(b.Funding)
}

// EquitySource records how a row's equity value was obtained.
type EquitySource string

const (
	EquitySourceAnchor   EquitySource = "anchor"   // live account snapshot
	EquitySourceStored   EquitySource = "stored"   // persisted daily snapshot
	EquitySourceDerived  EquitySource = "derived"  // propagated from a known point
	EquitySourceRelative EquitySource = "relative" // no known point, level is arbitrary
)

// DailyPnlRow is one calendar day of PnL for a wallet.
// Equity stays invalid until the equity reconstructor runs.
type DailyPnlRow struct {
	Date          string              `json:"date"` // YYYY-MM-DD (UTC)
	RealizedPnl   decimal.Decimal     `json:"realized_pnl_usd"`
	UnrealizedPnl decimal.Decimal     `json:"unrealized_pnl_usd"`
	Fees          decimal.Decimal     `json:"fees_usd"`
	Funding       decimal.Decimal     `json:"funding_usd"`
	NetPnl        decimal.Decimal     `json:"net_pnl_usd"`
	Equity        decimal.NullDecimal `json:"equity_usd"`
	EquitySource  EquitySource        `json:"equity_source,omitempty"`
	Perp          MarketBreakdown     `json:"perp"`
	Spot          MarketBreakdown     `json:"spot"`
}

// Combine recomputes the combined fields from the perp and spot breakdowns.
func (r *DailyPnlRow) Combine() {
	r.Perp.Recompute()
	r.Spot.Recompute()
	r.RealizedPnl = r.Perp.Realized.Add(r.Spot.Realized)
	r.UnrealizedPnl = r.Perp.Unrealized.Add(r.Spot.Unrealized)
	r.Fees = r.Perp.Fees.Add(r.Spot.Fees)
	r.Funding = r.Perp.Funding.Add(r.Spot.Funding)
	r.NetPnl = r.RealizedPnl.Add(r.UnrealizedPnl).Sub(r.Fees).Add(r.Funding)
}

// AnchorPoint is the single trusted absolute equity observation for a request.
type AnchorPoint struct {
	Date          string              // YYYY-MM-DD the snapshot was taken
	Equity        decimal.Decimal     // account value at snapshot time
	UnrealizedPnl decimal.NullDecimal // mark-to-market at snapshot time (nullable)
}

// PositionMarks is the current unrealized PnL split by market.
// Only the current snapshot is available, so it lands on exactly one row.
type PositionMarks struct {
	Date string          // YYYY-MM-DD the marks belong to
	Perp decimal.Decimal // sum of open perp position unrealized PnL
	Spot decimal.Decimal // spot balance mark-to-market, zero when not tracked
}

// MarketTotals mirrors the summary reduction for one market kind.
type MarketTotals struct {
	TotalRealized   decimal.Decimal `json:"total_realized_usd"`
	TotalUnrealized decimal.Decimal `json:"total_unrealized_usd"`
	TotalFees       decimal.Decimal `json:"total_fees_usd"`
	TotalFunding    decimal.Decimal `json:"total_funding_usd"`
	NetPnl          decimal.Decimal `json:"net_pnl_usd"`
}

// PnlSummary is the range reduction over all daily rows.
type PnlSummary struct {
	TotalRealized   decimal.Decimal `json:"total_realized_usd"`
	TotalUnrealized decimal.Decimal `json:"total_unrealized_usd"`
	TotalFees       decimal.Decimal `json:"total_fees_usd"`
	TotalFunding    decimal.Decimal `json:"total_funding_usd"`
	NetPnl          decimal.Decimal `json:"net_pnl_usd"`
	Perp            MarketTotals    `json:"perp"`
	Spot            MarketTotals    `json:"spot"`
}

// EquityMode names the equity reconstruction strategy used for a response.
type EquityMode string

const (
	EquityModeAnchored        EquityMode = "anchored"
	EquityModeAnchoredLastDay EquityMode = "anchored_last_day"
	EquityModeRelative        EquityMode = "relative"
	EquityModeStoredSnapshots EquityMode = "stored_snapshots"
)

// String returns the string representation of EquityMode.
func (m EquityMode) String() string {
	return string(m)
}

// Diagnostic warning codes.
const (
	WarningAmbiguousAnchor     = "AMBIGUOUS_ANCHOR"
	WarningUnmatchedSpotSell   = "UNMATCHED_SPOT_SELL"
	WarningStoredDiscontinuity = "STORED_EQUITY_DISCONTINUITY"
)

// DataSourceHyperliquid is the data_source value for venue-derived responses.
const DataSourceHyperliquid = "hyperliquid_api"

// Diagnostics records provenance and caveats of a PnL response.
type Diagnostics struct {
	DataSource       string     `json:"data_source"`
	LastAPICall      *time.Time `json:"last_api_call,omitempty"`
	RunID            string     `json:"run_id,omitempty"`
	EquityMode       EquityMode `json:"equity_mode"`
	AbsoluteEquity   bool       `json:"absolute_equity"`
	AnchorDate       string     `json:"anchor_date,omitempty"`
	UnrealizedDate   string     `json:"unrealized_date,omitempty"`
	StoredSnapshots  int        `json:"stored_snapshots,omitempty"`
	Warnings         []string   `json:"warnings,omitempty"`
	Notes            string     `json:"notes"`
	UnrealizedPolicy string     `json:"unrealized_policy"`
	CacheHit         bool       `json:"cache_hit"`
}

// WalletPnlResponse is the full PnL answer for a wallet and date range.
type WalletPnlResponse struct {
	Wallet      string        `json:"wallet"`
	Start       string        `json:"start"`
	End         string        `json:"end"`
	Daily       []DailyPnlRow `json:"daily"`
	Summary     PnlSummary    `json:"summary"`
	Diagnostics Diagnostics   `json:"diagnostics"`
}
