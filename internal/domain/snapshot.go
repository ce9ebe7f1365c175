package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// EquitySnapshot is a captured end-of-day account state for a wallet.
// Corresponds to equity_snapshots table; unique on (wallet, date).
type EquitySnapshot struct {
	ID               int64           `json:"id"`
	Wallet           string          `json:"wallet"` // lowercased 0x address
	Date             string          `json:"date"`   // YYYY-MM-DD (UTC)
	EquityUSD        decimal.Decimal `json:"equity_usd"`
	UnrealizedPnlUSD decimal.Decimal `json:"unrealized_pnl_usd"` // sum of open position unrealized PnL
	AccountValue     decimal.Decimal `json:"account_value"`      // marginSummary.accountValue
	TotalMarginUsed  decimal.Decimal `json:"total_margin_used"`  // marginSummary.totalMarginUsed
	PositionsCount   int             `json:"positions_count"`
	SnapshotTime     time.Time       `json:"snapshot_time"` // when the state was observed
	CreatedAt        time.Time       `json:"created_at"`
}

// TrackedWallet is a wallet enrolled for periodic snapshot capture.
// Corresponds to tracked_wallets table; removal is a soft delete.
type TrackedWallet struct {
	ID        int64     `json:"id"`
	Wallet    string    `json:"wallet"` // lowercased 0x address, unique
	Name      *string   `json:"name"`   // optional label
	Active    bool      `json:"active"` // false after removal
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// PnlCacheEntry is a serialized PnL response cached for (wallet, start, end).
type PnlCacheEntry struct {
	Key       string    // idhash.PnlCacheKey(wallet, start, end)
	Wallet    string    // lowercased 0x address
	Start     string    // YYYY-MM-DD
	End       string    // YYYY-MM-DD
	Payload   []byte    // JSON-encoded WalletPnlResponse
	CreatedAt time.Time // when computed
	ExpiresAt time.Time // CreatedAt + TTL
}

// DailyPnlRecord is a daily row persisted to the analytics history.
// Later runs for the same (wallet, date) supersede earlier ones.
type DailyPnlRecord struct {
	Wallet        string
	Date          string
	RunID         string // ULID of the computation
	ComputedAt    time.Time
	RealizedPnl   decimal.Decimal
	UnrealizedPnl decimal.Decimal
	Fees          decimal.Decimal
	Funding       decimal.Decimal
	NetPnl        decimal.Decimal
	Equity        decimal.NullDecimal
	EquityMode    EquityMode
	PerpNet       decimal.Decimal
	SpotNet       decimal.Decimal
}
