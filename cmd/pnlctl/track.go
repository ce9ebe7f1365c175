package main

import (
	"fmt"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"hyperliquid-pnl-lab/internal/app"
)

func newTrackCmd(rc *rootConfig) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "track",
		Short: "Manage wallets enrolled for snapshot capture",
	}
	cmd.AddCommand(
		newTrackAddCmd(rc),
		newTrackRemoveCmd(rc),
		newTrackListCmd(rc),
	)
	return cmd
}

func newTrackAddCmd(rc *rootConfig) *cobra.Command {
	var name string

	cmd := &cobra.Command{
		Use:   "add <wallet>",
		Short: "Track a wallet and capture its first snapshot",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return rc.withApp(cmd.Context(), func(a *app.App) error {
				if err := a.RequirePersistent(); err != nil {
					return err
				}
				var label *string
				if cmd.Flags().Changed("name") {
					label = &name
				}
				res, err := a.Snapshots.Track(cmd.Context(), args[0], label)
				if err != nil {
					return err
				}
				return printJSON(cmd.OutOrStdout(), res)
			})
		},
	}
	cmd.Flags().StringVar(&name, "name", "", "optional label for the wallet")
	return cmd
}

func newTrackRemoveCmd(rc *rootConfig) *cobra.Command {
	return &cobra.Command{
		Use:   "remove <wallet>",
		Short: "Stop tracking a wallet",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return rc.withApp(cmd.Context(), func(a *app.App) error {
				if err := a.RequirePersistent(); err != nil {
					return err
				}
				wallet, err := a.Snapshots.Untrack(cmd.Context(), args[0])
				if err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "untracked %s\n", wallet)
				return nil
			})
		},
	}
}

func newTrackListCmd(rc *rootConfig) *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List active tracked wallets",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return rc.withApp(cmd.Context(), func(a *app.App) error {
				wallets, err := a.Snapshots.Tracked(cmd.Context())
				if err != nil {
					return err
				}
				tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 0, 2, ' ', 0)
				fmt.Fprintln(tw, "WALLET\tNAME\tSINCE")
				for _, w := range wallets {
					name := "-"
					if w.Name != nil {
						name = *w.Name
					}
					fmt.Fprintf(tw, "%s\t%s\t%s\n", w.Wallet, name, w.CreatedAt.Format("2006-01-02"))
				}
				return tw.Flush()
			})
		},
	}
}
