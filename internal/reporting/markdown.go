package reporting

import (
	"fmt"
	"strings"
	"time"
)

// RenderMarkdown renders report as Markdown string.
func RenderMarkdown(r *Report) string {
	var sb strings.Builder

	// Header
	sb.WriteString(fmt.Sprintf("# PnL Report: %s\n\n", r.Wallet))
	sb.WriteString(fmt.Sprintf("Generated: %s\n\n", r.GeneratedAt.Format(time.RFC3339)))
	sb.WriteString(fmt.Sprintf("Range: %s to %s (%d days)\n\n", r.Start, r.End, len(r.Daily)))

	// Summary
	sb.WriteString("## Summary\n\n")
	sb.WriteString("| Metric | Total | Perp | Spot |\n")
	sb.WriteString("|--------|-------|------|------|\n")
	s := r.Summary
	sb.WriteString(fmt.Sprintf("| Realized | %s | %s | %s |\n", usd(s.TotalRealized), usd(s.Perp.TotalRealized), usd(s.Spot.TotalRealized)))
	sb.WriteString(fmt.Sprintf("| Unrealized | %s | %s | %s |\n", usd(s.TotalUnrealized), usd(s.Perp.TotalUnrealized), usd(s.Spot.TotalUnrealized)))
	sb.WriteString(fmt.Sprintf("| Fees | %s | %s | %s |\n", usd(s.TotalFees), usd(s.Perp.TotalFees), usd(s.Spot.TotalFees)))
	sb.WriteString(fmt.Sprintf("| Funding | %s | %s | %s |\n", usd(s.TotalFunding), usd(s.Perp.TotalFunding), usd(s.Spot.TotalFunding)))
	sb.WriteString(fmt.Sprintf("| **Net** | **%s** | %s | %s |\n", usd(s.NetPnl), usd(s.Perp.NetPnl), usd(s.Spot.NetPnl)))
	sb.WriteString("\n")

	// Daily
	sb.WriteString("## Daily\n\n")
	if len(r.Daily) > 0 {
		sb.WriteString("| Date | Realized | Unrealized | Fees | Funding | Net | Equity |\n")
		sb.WriteString("|------|----------|------------|------|---------|-----|--------|\n")
		for _, row := range r.Daily {
			sb.WriteString(fmt.Sprintf("| %s | %s | %s | %s | %s | %s | %s |\n",
				row.Date, usd(row.RealizedPnl), usd(row.UnrealizedPnl), usd(row.Fees),
				usd(row.Funding), usd(row.NetPnl), nullUSD(row.Equity, "n/a")))
		}
	} else {
		sb.WriteString("No daily rows.\n")
	}
	sb.WriteString("\n")

	// Diagnostics
	d := r.Diagnostics
	sb.WriteString("## Diagnostics\n\n")
	sb.WriteString("| Field | Value |\n")
	sb.WriteString("|-------|-------|\n")
	sb.WriteString(fmt.Sprintf("| Equity mode | %s |\n", d.EquityMode))
	sb.WriteString(fmt.Sprintf("| Absolute equity | %t |\n", d.AbsoluteEquity))
	if d.AnchorDate != "" {
		sb.WriteString(fmt.Sprintf("| Anchor date | %s |\n", d.AnchorDate))
	}
	if d.UnrealizedDate != "" {
		sb.WriteString(fmt.Sprintf("| Unrealized date | %s |\n", d.UnrealizedDate))
	}
	if d.StoredSnapshots > 0 {
		sb.WriteString(fmt.Sprintf("| Stored snapshots | %d |\n", d.StoredSnapshots))
	}
	if d.RunID != "" {
		sb.WriteString(fmt.Sprintf("| Run ID | %s |\n", d.RunID))
	}
	sb.WriteString(fmt.Sprintf("| Cache hit | %t |\n", d.CacheHit))
	sb.WriteString("\n")
	if d.Notes != "" {
		sb.WriteString(fmt.Sprintf("> %s\n\n", d.Notes))
	}
	if len(d.Warnings) > 0 {
		sb.WriteString("### Warnings\n\n")
		for _, w := range d.Warnings {
			sb.WriteString(fmt.Sprintf("- %s\n", w))
		}
		sb.WriteString("\n")
	}

	// Stored snapshots
	if len(r.Snapshots) > 0 {
		sb.WriteString("## Stored Snapshots\n\n")
		sb.WriteString("| Date | Equity | Unrealized | Margin Used | Positions |\n")
		sb.WriteString("|------|--------|------------|-------------|-----------|\n")
		for _, snap := range r.Snapshots {
			sb.WriteString(fmt.Sprintf("| %s | %s | %s | %s | %d |\n",
				snap.Date, usd(snap.EquityUSD), usd(snap.UnrealizedPnlUSD),
				usd(snap.TotalMarginUsed), snap.PositionsCount))
		}
		sb.WriteString("\n")
	}

	return sb.String()
}
