package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// RawFill is a fill record as returned by the venue info API.
// Numeric fields are decimal strings and are parsed by the normalizer.
type RawFill struct {
	Coin          string `json:"coin"`          // "BTC" (perp), "PURR/USDC" or "@107" (spot)
	Px            string `json:"px"`            // execution price
	Sz            string `json:"sz"`            // executed size
	Side          string `json:"side"`          // "B" bid/buy, "A" ask/sell
	Time          int64  `json:"time"`          // Unix timestamp in milliseconds
	StartPosition string `json:"startPosition"` // position before the fill
	Dir           string `json:"dir"`           // "Open Long", "Close Short", "Buy", ...
	ClosedPnl     string `json:"closedPnl"`     // venue-reported realized PnL (perp)
	Hash          string `json:"hash"`          // L1 transaction hash
	Oid           int64  `json:"oid"`           // order ID
	Crossed       bool   `json:"crossed"`       // taker flag
	Fee           string `json:"fee"`           // fee charged, may be negative for rebates
	Tid           int64  `json:"tid"`           // trade ID
	FeeToken      string `json:"feeToken"`      // fee currency
}

// RawFunding is a flattened funding payment record from the venue.
type RawFunding struct {
	Time        int64  // Unix timestamp in milliseconds
	Hash        string // L1 transaction hash
	Coin        string // perp asset
	USDC        string // signed payment, positive = received
	Szi         string // signed position size at payment time
	FundingRate string // hourly funding rate
}

// NormalizedTrade is a market-agnostic trade produced by the normalizer.
type NormalizedTrade struct {
	Coin      string          // base asset for spot, asset for perp
	Side      Side            // buy | sell
	Price     decimal.Decimal // execution price
	Size      decimal.Decimal // executed size, positive
	Timestamp time.Time       // UTC execution time
	Fee       decimal.Decimal // absolute fee, always >= 0
	ClosedPnl decimal.Decimal // venue-reported realized PnL (perp), zero for spot
	Market    MarketKind      // perp | spot
}

// NormalizedFunding is a funding payment attributed to a perpetual position.
type NormalizedFunding struct {
	Coin      string          // perp asset
	Amount    decimal.Decimal // signed, positive = received
	Timestamp time.Time       // UTC payment time
}
