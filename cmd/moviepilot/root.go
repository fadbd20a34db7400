package main

import (
	"github.com/spf13/cobra"
)

func newRootCommand() *cobra.Command {
	ctx := newCommandContext()

	root := &cobra.Command{
		Use:           "moviepilot",
		Short:         "Subscription-driven movie and TV downloader",
		Long:          "moviepilot watches indexers for the movies and shows you subscribe to and hands matching releases to a download client.",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			if shouldSkipConfig(cmd) {
				return nil
			}
			_, err := ctx.ensureConfig()
			return err
		},
		RunE: func(cmd *cobra.Command, _ []string) error {
			return cmd.Help()
		},
	}
	ctx.bindFlags(root)

	root.AddCommand(newDaemonCommands(ctx)...)
	root.AddCommand(
		newDaemonRunCommand(ctx),
		newSubscribeCommand(ctx),
		newRefreshCommand(ctx),
		newCacheCommand(ctx),
		newWishlistCommand(ctx),
		newIndexersCommand(ctx),
		newConfigCommand(ctx),
		newTestNotifyCommand(ctx),
		newLogsCommand(ctx),
	)
	return root
}
