package main

import (
	"strings"

	"github.com/spf13/cobra"

	"moviepilot/internal/ipc"
)

func newIndexersCommand(ctx *commandContext) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "indexers",
		Short: "Inspect configured indexers",
	}

	listCmd := &cobra.Command{
		Use:   "list",
		Short: "List indexers from the configuration",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			rows := make([][]string, 0, len(cfg.Indexers))
			for _, idx := range cfg.Indexers {
				rows = append(rows, []string{
					idx.Name,
					idx.Protocol,
					idx.URL,
					strings.Join(idx.Categories, ","),
					yesNo(idx.Enabled),
				})
			}
			printTable(cmd.OutOrStdout(),
				[]string{"Name", "Protocol", "URL", "Categories", "Enabled"},
				rows, nil, "No indexers configured")
			return nil
		},
	}

	var asJSON bool
	checkCmd := &cobra.Command{
		Use:   "check",
		Short: "Probe every enabled indexer's API and web login",
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withClient(func(client *ipc.Client) error {
				resp, err := client.IndexersCheck()
				if err != nil {
					return err
				}
				if asJSON {
					return writeJSON(cmd, resp.Items)
				}
				rows := make([][]string, 0, len(resp.Items))
				for _, item := range resp.Items {
					result := "ok"
					if item.Error != "" {
						result = item.Error
					}
					rows = append(rows, []string{item.Name, item.Protocol, item.Server, item.Login, result})
				}
				printTable(cmd.OutOrStdout(),
					[]string{"Name", "Protocol", "Server", "Login", "Result"},
					rows, nil, "No indexers enabled")
				return nil
			})
		},
	}
	addJSONFlag(checkCmd, &asJSON)

	cmd.AddCommand(listCmd, checkCmd)
	return cmd
}
