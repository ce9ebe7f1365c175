package main

import (
	"fmt"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"hyperliquid-pnl-lab/internal/app"
	"hyperliquid-pnl-lab/internal/domain"
	"hyperliquid-pnl-lab/internal/reporting"
)

func newPnlCmd(rc *rootConfig) *cobra.Command {
	var (
		start, end, format string
		withSnapshots      bool
	)

	cmd := &cobra.Command{
		Use:   "pnl <wallet>",
		Short: "Compute daily PnL for a wallet over a date range",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			f, err := reporting.ParseFormat(format)
			if err != nil {
				return err
			}
			if start == "" || end == "" {
				return fmt.Errorf("--start and --end are required")
			}
			return rc.withApp(cmd.Context(), func(a *app.App) error {
				resp, err := a.PnL.GetWalletPnl(cmd.Context(), args[0], start, end)
				if err != nil {
					return err
				}
				var snaps []*domain.EquitySnapshot
				if withSnapshots {
					snaps, err = a.Snapshots.Snapshots(cmd.Context(), resp.Wallet, start, end)
					if err != nil {
						return err
					}
				}
				r := reporting.NewReport(resp, snaps, time.Now().UTC())
				return reporting.Render(cmd.OutOrStdout(), r, f)
			})
		},
	}
	cmd.Flags().StringVar(&start, "start", "", "first day, YYYY-MM-DD (UTC)")
	cmd.Flags().StringVar(&end, "end", "", "last day, YYYY-MM-DD (UTC)")
	cmd.Flags().StringVar(&format, "format", "table", "output format: table, csv, markdown, json")
	cmd.Flags().BoolVar(&withSnapshots, "snapshots", false, "include stored equity snapshots in the report")
	return cmd
}

func newHistoryCmd(rc *rootConfig) *cobra.Command {
	var start, end string

	cmd := &cobra.Command{
		Use:   "history <wallet>",
		Short: "Show persisted daily PnL rows for a wallet",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if start == "" || end == "" {
				return fmt.Errorf("--start and --end are required")
			}
			return rc.withApp(cmd.Context(), func(a *app.App) error {
				rows, err := a.PnL.History(cmd.Context(), args[0], start, end)
				if err != nil {
					return err
				}
				tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 0, 2, ' ', 0)
				fmt.Fprintln(tw, "DATE\tNET\tREALIZED\tFEES\tFUNDING\tEQUITY\tMODE\tRUN")
				for _, r := range rows {
					equity := "-"
					if r.Equity.Valid {
						equity = r.Equity.Decimal.StringFixed(2)
					}
					fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\t%s\t%s\t%s\n",
						r.Date,
						r.NetPnl.StringFixed(2),
						r.RealizedPnl.StringFixed(2),
						r.Fees.StringFixed(2),
						r.Funding.StringFixed(2),
						equity,
						r.EquityMode,
						r.RunID,
					)
				}
				return tw.Flush()
			})
		},
	}
	cmd.Flags().StringVar(&start, "start", "", "first day, YYYY-MM-DD (UTC)")
	cmd.Flags().StringVar(&end, "end", "", "last day, YYYY-MM-DD (UTC)")
	return cmd
}
