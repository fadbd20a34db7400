package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"moviepilot/internal/ipc"
)

func newTestNotifyCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "test-notify",
		Short: "Send a test message through ntfy and Telegram",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return ctx.withClient(func(client *ipc.Client) error {
				resp, err := client.TestNotification()
				fmt.Fprintln(cmd.OutOrStdout(), notifyOutcome(resp))
				return err
			})
		},
	}
}

func notifyOutcome(resp *ipc.TestNotificationResponse) string {
	switch {
	case resp == nil:
		return "No response from daemon"
	case resp.Message != "":
		return resp.Message
	case resp.Sent:
		return "Test notification sent"
	}
	return "No notification channel accepted the message"
}
