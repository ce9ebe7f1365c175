package main

import (
	"encoding/json"
	"fmt"
	"io"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"hyperliquid-pnl-lab/internal/app"
	"hyperliquid-pnl-lab/internal/domain"
	"hyperliquid-pnl-lab/internal/snapshot"
)

func newSnapshotCmd(rc *rootConfig) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "snapshot",
		Short: "Capture and list equity snapshots",
	}
	cmd.AddCommand(
		newSnapshotCaptureCmd(rc),
		newSnapshotCaptureAllCmd(rc),
		newSnapshotListCmd(rc),
	)
	return cmd
}

func newSnapshotCaptureCmd(rc *rootConfig) *cobra.Command {
	return &cobra.Command{
		Use:   "capture <wallet>",
		Short: "Capture today's equity snapshot for a wallet",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return rc.withApp(cmd.Context(), func(a *app.App) error {
				if err := a.RequirePersistent(); err != nil {
					return err
				}
				snap, err := a.Snapshots.Capture(cmd.Context(), args[0], snapshot.TriggerManual)
				if err != nil {
					return err
				}
				return printJSON(cmd.OutOrStdout(), snap)
			})
		},
	}
}

func newSnapshotCaptureAllCmd(rc *rootConfig) *cobra.Command {
	return &cobra.Command{
		Use:   "capture-all",
		Short: "Capture snapshots for every tracked wallet",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return rc.withApp(cmd.Context(), func(a *app.App) error {
				if err := a.RequirePersistent(); err != nil {
					return err
				}
				report, err := a.Snapshots.CaptureAll(cmd.Context(), snapshot.TriggerManual)
				if err != nil {
					return err
				}
				return printJSON(cmd.OutOrStdout(), report)
			})
		},
	}
}

func newSnapshotListCmd(rc *rootConfig) *cobra.Command {
	var start, end string

	cmd := &cobra.Command{
		Use:   "list <wallet>",
		Short: "List stored snapshots for a wallet",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if start == "" || end == "" {
				return fmt.Errorf("--start and --end are required")
			}
			return rc.withApp(cmd.Context(), func(a *app.App) error {
				snaps, err := a.Snapshots.Snapshots(cmd.Context(), args[0], start, end)
				if err != nil {
					return err
				}
				return printSnapshots(cmd.OutOrStdout(), snaps)
			})
		},
	}
	cmd.Flags().StringVar(&start, "start", "", "first day, YYYY-MM-DD (UTC)")
	cmd.Flags().StringVar(&end, "end", "", "last day, YYYY-MM-DD (UTC)")
	return cmd
}

func printSnapshots(w io.Writer, snaps []*domain.EquitySnapshot) error {
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "DATE\tEQUITY\tUNREALIZED\tMARGIN USED\tPOSITIONS\tTAKEN AT")
	for _, s := range snaps {
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%d\t%s\n",
			s.Date,
			s.EquityUSD.StringFixed(2),
			s.UnrealizedPnlUSD.StringFixed(2),
			s.TotalMarginUsed.StringFixed(2),
			s.PositionsCount,
			s.SnapshotTime.Format("2006-01-02T15:04:05Z"),
		)
	}
	return tw.Flush()
}

func printJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
