package reporting

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"
	"text/tabwriter"

	"hyperliquid-pnl-lab/internal/domain"
)

// RenderTable renders the daily rows and summary as an aligned text table.
func RenderTable(r *Report) string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "wallet %s  %s..%s  mode=%s\n\n", r.Wallet, r.Start, r.End, r.Diagnostics.EquityMode)

	tw := tabwriter.NewWriter(&sb, 0, 0, 2, ' ', tabwriter.AlignRight)
	fmt.Fprintln(tw, "DATE\tREALIZED\tUNREALIZED\tFEES\tFUNDING\tNET\tEQUITY\t")
	for _, row := range r.Daily {
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\t%s\t%s\t\n",
			row.Date, usd(row.RealizedPnl), usd(row.UnrealizedPnl), usd(row.Fees),
			usd(row.Funding), usd(row.NetPnl), nullUSD(row.Equity, "-"))
	}
	s := r.Summary
	fmt.Fprintf(tw, "TOTAL\t%s\t%s\t%s\t%s\t%s\t\t\n",
		usd(s.TotalRealized), usd(s.TotalUnrealized), usd(s.TotalFees), usd(s.TotalFunding), usd(s.NetPnl))
	tw.Flush()

	if r.Diagnostics.Notes != "" {
		fmt.Fprintf(&sb, "\n%s\n", r.Diagnostics.Notes)
	}
	for _, w := range r.Diagnostics.Warnings {
		fmt.Fprintf(&sb, "warning: %s\n", w)
	}
	return sb.String()
}

// RenderJSON writes the report in the API response shape.
func RenderJSON(w io.Writer, r *Report) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(domain.WalletPnlResponse{
		Wallet:      r.Wallet,
		Start:       r.Start,
		End:         r.End,
		Daily:       r.Daily,
		Summary:     r.Summary,
		Diagnostics: r.Diagnostics,
	})
}
