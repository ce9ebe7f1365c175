package reporting

import (
	"encoding/csv"
	"strings"
)

var csvHeader = []string{
	"date", "realized_pnl_usd", "unrealized_pnl_usd", "fees_usd", "funding_usd",
	"net_pnl_usd", "equity_usd", "equity_source", "perp_net_usd", "spot_net_usd",
}

// RenderCSV renders the daily rows as CSV. Unknown equity is an empty field.
func RenderCSV(r *Report) (string, error) {
	var sb strings.Builder
	w := csv.NewWriter(&sb)

	if err := w.Write(csvHeader); err != nil {
		return "", err
	}
	for _, row := range r.Daily {
		record := []string{
			row.Date,
			usd(row.RealizedPnl),
			usd(row.UnrealizedPnl),
			usd(row.Fees),
			usd(row.Funding),
			usd(row.NetPnl),
			nullUSD(row.Equity, ""),
			string(row.EquitySource),
			usd(row.Perp.Net),
			usd(row.Spot.Net),
		}
		if err := w.Write(record); err != nil {
			return "", err
		}
	}

	w.Flush()
	return sb.String(), w.Error()
}
