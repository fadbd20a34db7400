package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"moviepilot/internal/ipc"
)

func newWishlistCommand(ctx *commandContext) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "wishlist",
		Short: "Trakt watchlist integration",
	}
	var asJSON bool
	syncCmd := &cobra.Command{
		Use:   "sync",
		Short: "Pull the Trakt watchlist and subscribe to new entries",
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withClient(func(client *ipc.Client) error {
				resp, err := client.WishlistSync()
				if err != nil {
					return err
				}
				if asJSON {
					return writeJSON(cmd, resp)
				}
				fmt.Fprintf(cmd.OutOrStdout(),
					"Watchlist: %d listed, %d new (%d already in library, %d downloading, %d subscribed, %d failed)\n",
					resp.Listed, resp.New, resp.Held, resp.Downloaded, resp.Subscribed, resp.Failed)
				return nil
			})
		},
	}
	addJSONFlag(syncCmd, &asJSON)
	cmd.AddCommand(syncCmd)
	return cmd
}
