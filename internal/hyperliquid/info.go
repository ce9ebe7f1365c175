package hyperliquid

import (
	"context"
	"errors"
	"fmt"

	"github.com/shopspring/decimal"

	"hyperliquid-pnl-lab/internal/domain"
)

// ErrUpstream marks failures of the venue API: transport errors, non-2xx
// responses after retries and undecodable bodies.
var ErrUpstream = errors.New("hyperliquid upstream error")

// InfoClient defines the read-only HyperLiquid info API used by the service.
type InfoClient interface {
	// ClearinghouseState returns perp account state, nil if the venue has none.
	ClearinghouseState(ctx context.Context, user string) (*ClearinghouseState, error)

	// SpotClearinghouseState returns spot balances, nil if the venue has none.
	SpotClearinghouseState(ctx context.Context, user string) (*SpotClearinghouseState, error)

	// UserFillsByTime returns all fills in [startMs, endMs], following pagination.
	UserFillsByTime(ctx context.Context, user string, startMs, endMs int64) ([]domain.RawFill, error)

	// UserFunding returns all funding payments in [startMs, endMs], following pagination.
	UserFunding(ctx context.Context, user string, startMs, endMs int64) ([]domain.RawFunding, error)
}

// ClearinghouseState is the perp account state of a user.
type ClearinghouseState struct {
	MarginSummary      MarginSummary   `json:"marginSummary"`
	CrossMarginSummary MarginSummary   `json:"crossMarginSummary"`
	Withdrawable       string          `json:"withdrawable"`
	AssetPositions     []AssetPosition `json:"assetPositions"`
	Time               int64           `json:"time"` // Unix milliseconds
}

// MarginSummary holds account-level margin figures as decimal strings.
type MarginSummary struct {
	AccountValue    string `json:"accountValue"`
	TotalNtlPos     string `json:"totalNtlPos"`
	TotalRawUsd     string `json:"totalRawUsd"`
	TotalMarginUsed string `json:"totalMarginUsed"`
}

// AssetPosition wraps a single open perp position.
type AssetPosition struct {
	Type     string   `json:"type"`
	Position Position `json:"position"`
}

// Position is an open perp position.
type Position struct {
	Coin           string   `json:"coin"`
	Szi            string   `json:"szi"` // signed size
	EntryPx        string   `json:"entryPx"`
	PositionValue  string   `json:"positionValue"`
	UnrealizedPnl  string   `json:"unrealizedPnl"`
	ReturnOnEquity string   `json:"returnOnEquity"`
	LiquidationPx  *string  `json:"liquidationPx"`
	MarginUsed     string   `json:"marginUsed"`
	Leverage       Leverage `json:"leverage"`
}

// Leverage describes position leverage.
type Leverage struct {
	Type  string `json:"type"` // cross | isolated
	Value int    `json:"value"`
}

// AccountValue parses marginSummary.accountValue.
func (s *ClearinghouseState) AccountValue() (decimal.Decimal, error) {
	return parseField("accountValue", s.MarginSummary.AccountValue)
}

// TotalMarginUsed parses marginSummary.totalMarginUsed.
func (s *ClearinghouseState) TotalMarginUsed() (decimal.Decimal, error) {
	return parseField("totalMarginUsed", s.MarginSummary.TotalMarginUsed)
}

// UnrealizedPnl sums unrealized PnL over open positions.
func (s *ClearinghouseState) UnrealizedPnl() (decimal.Decimal, error) {
	total := decimal.Zero
	for _, p := range s.AssetPositions {
		v, err := parseField("unrealizedPnl", p.Position.UnrealizedPnl)
		if err != nil {
			return decimal.Zero, fmt.Errorf("position %s: %w", p.Position.Coin, err)
		}
		total = total.Add(v)
	}
	return total, nil
}

// SpotClearinghouseState lists spot token balances of a user.
type SpotClearinghouseState struct {
	Balances []SpotBalance `json:"balances"`
}

// SpotBalance is a single spot token balance.
type SpotBalance struct {
	Coin     string `json:"coin"`
	Token    int    `json:"token"`
	Total    string `json:"total"`
	Hold     string `json:"hold"`
	EntryNtl string `json:"entryNtl"`
}

// NonZero returns balances with a non-zero total.
func (s *SpotClearinghouseState) NonZero() []SpotBalance {
	var out []SpotBalance
	for _, b := range s.Balances {
		if v, err := decimal.NewFromString(b.Total); err == nil && !v.IsZero() {
			out = append(out, b)
		}
	}
	return out
}

// rawFundingEntry is one userFunding item as returned by the venue.
type rawFundingEntry struct {
	Time  int64  `json:"time"`
	Hash  string `json:"hash"`
	Delta struct {
		Type        string `json:"type"`
		Coin        string `json:"coin"`
		USDC        string `json:"usdc"`
		Szi         string `json:"szi"`
		FundingRate string `json:"fundingRate"`
	} `json:"delta"`
}

func (e rawFundingEntry) flatten() domain.RawFunding {
	return domain.RawFunding{
		Time:        e.Time,
		Hash:        e.Hash,
		Coin:        e.Delta.Coin,
		USDC:        e.Delta.USDC,
		Szi:         e.Delta.Szi,
		FundingRate: e.Delta.FundingRate,
	}
}

func parseField(name, s string) (decimal.Decimal, error) {
	if s == "" {
		return decimal.Zero, nil
	}
	v, err := decimal.NewFromString(s)
	if err != nil {
		return decimal.Zero, fmt.Errorf("%w: %s=%q", ErrUpstream, name, s)
	}
	return v, nil
}
