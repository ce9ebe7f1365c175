package reporting

import (
	"time"

	"hyperliquid-pnl-lab/internal/domain"
)

// Report is a rendered-ready view of a wallet PnL response.
type Report struct {
	// Metadata
	GeneratedAt time.Time
	Wallet      string
	Start       string
	End         string

	Daily       []domain.DailyPnlRow
	Summary     domain.PnlSummary
	Diagnostics domain.Diagnostics

	// Stored equity snapshots in range, optional
	Snapshots []*domain.EquitySnapshot
}

// NewReport builds a Report from a PnL response and optional stored snapshots.
func NewReport(resp *domain.WalletPnlResponse, snapshots []*domain.EquitySnapshot, generatedAt time.Time) *Report {
	return &Report{
		GeneratedAt: generatedAt.UTC(),
		Wallet:      resp.Wallet,
		Start:       resp.Start,
		End:         resp.End,
		Daily:       resp.Daily,
		Summary:     resp.Summary,
		Diagnostics: resp.Diagnostics,
		Snapshots:   snapshots,
	}
}
