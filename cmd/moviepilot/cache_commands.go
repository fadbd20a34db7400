package main

import (
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"moviepilot/internal/api"
	"moviepilot/internal/ipc"
)

func newCacheCommand(ctx *commandContext) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "cache",
		Short: "Inspect and maintain the TMDB metadata cache",
	}
	cmd.AddCommand(newCacheListCommand(ctx))
	cmd.AddCommand(newCacheShowCommand(ctx))
	cmd.AddCommand(newCacheRenameCommand(ctx))
	cmd.AddCommand(newCacheInvalidateCommand(ctx))
	cmd.AddCommand(newCacheClearCommand(ctx))
	cmd.AddCommand(newCacheSaveCommand(ctx))
	return cmd
}

func newCacheListCommand(ctx *commandContext) *cobra.Command {
	var (
		sentinels bool
		asJSON    bool
	)
	cmd := &cobra.Command{
		Use:     "list",
		Aliases: []string{"ls"},
		Short:   "List cached recognitions",
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withClient(func(client *ipc.Client) error {
				resp, err := client.CacheList(sentinels)
				if err != nil {
					return err
				}
				if asJSON {
					return writeJSON(cmd, resp)
				}
				out := cmd.OutOrStdout()
				rows := make([][]string, 0, len(resp.Items))
				for _, item := range resp.Items {
					rows = append(rows, cacheRow(item))
				}
				printTable(out,
					[]string{"Key", "TMDB", "Title", "Year", "Expires"},
					rows,
					[]columnAlignment{alignLeft, alignRight, alignLeft, alignRight, alignLeft},
					"Cache is empty",
				)
				fmt.Fprintf(out, "%d entries (%d negative)\n", resp.Stats.Entries, resp.Stats.Sentinels)
				return nil
			})
		},
	}
	cmd.Flags().BoolVar(&sentinels, "sentinels", false, "Include negative (not found) entries")
	addJSONFlag(cmd, &asJSON)
	return cmd
}

func newCacheShowCommand(ctx *commandContext) *cobra.Command {
	var asJSON bool
	cmd := &cobra.Command{
		Use:   "show <key>",
		Short: "Show one cache entry",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withClient(func(client *ipc.Client) error {
				resp, err := client.CacheShow(args[0])
				if err != nil {
					return err
				}
				if asJSON {
					return writeJSON(cmd, resp.Item)
				}
				printCacheEntry(cmd.OutOrStdout(), resp.Item)
				return nil
			})
		},
	}
	addJSONFlag(cmd, &asJSON)
	return cmd
}

func newCacheRenameCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "rename <key> <title...>",
		Short: "Correct the title stored for a cache entry",
		Args:  cobra.MinimumNArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			title := strings.TrimSpace(strings.Join(args[1:], " "))
			return ctx.withClient(func(client *ipc.Client) error {
				resp, err := client.CacheRename(args[0], title)
				if err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Renamed %s to %q\n", resp.Item.Key, resp.Item.Title)
				return nil
			})
		},
	}
}

func newCacheInvalidateCommand(ctx *commandContext) *cobra.Command {
	var req ipc.CacheInvalidateRequest
	cmd := &cobra.Command{
		Use:   "invalidate [key]",
		Short: "Drop cache entries so the next lookup asks TMDB again",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if len(args) == 1 {
				req.Key = args[0]
			}
			if req.Key == "" && req.TMDBID <= 0 && !req.Sentinels {
				return errors.New("specify a key, --tmdb, or --sentinels")
			}
			return ctx.withClient(func(client *ipc.Client) error {
				resp, err := client.CacheInvalidate(req)
				if err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Removed %d cache entries\n", resp.Removed)
				return nil
			})
		},
	}
	cmd.Flags().Int64Var(&req.TMDBID, "tmdb", 0, "Drop every entry pointing at this TMDB id")
	cmd.Flags().BoolVar(&req.Sentinels, "sentinels", false, "Drop every negative entry")
	return cmd
}

func newCacheClearCommand(ctx *commandContext) *cobra.Command {
	var confirm bool
	cmd := &cobra.Command{
		Use:   "clear",
		Short: "Drop every cache entry",
		RunE: func(cmd *cobra.Command, args []string) error {
			if !confirm {
				return errors.New("refusing to clear the cache without --yes")
			}
			return ctx.withClient(func(client *ipc.Client) error {
				resp, err := client.CacheClear()
				if err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Cleared %d cache entries\n", resp.Removed)
				return nil
			})
		},
	}
	cmd.Flags().BoolVarP(&confirm, "yes", "y", false, "Confirm clearing the cache")
	return cmd
}

func newCacheSaveCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "save",
		Short: "Write the cache to disk now",
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withClient(func(client *ipc.Client) error {
				resp, err := client.CacheSave()
				if err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Cache saved (%d entries)\n", resp.Stats.Entries)
				return nil
			})
		},
	}
}

func cacheRow(item api.CacheEntry) []string {
	tmdb := "-"
	title := item.Title
	if item.Sentinel {
		title = "(not found)"
	} else {
		tmdb = strconv.FormatInt(item.TMDBID, 10)
	}
	year := ""
	if item.Year > 0 {
		year = strconv.Itoa(item.Year)
	}
	return []string{item.Key, tmdb, title, year, item.ExpiresAt}
}

func printCacheEntry(out io.Writer, item api.CacheEntry) {
	fmt.Fprintf(out, "Key:      %s\n", item.Key)
	if item.Sentinel {
		fmt.Fprintln(out, "Result:   not found on TMDB")
	} else {
		fmt.Fprintf(out, "TMDB:     %d\n", item.TMDBID)
		fmt.Fprintf(out, "Kind:     %s\n", item.Kind)
		fmt.Fprintf(out, "Title:    %s\n", item.Title)
		if item.Year > 0 {
			fmt.Fprintf(out, "Year:     %d\n", item.Year)
		}
		if item.IMDbID != "" {
			fmt.Fprintf(out, "IMDb:     %s\n", item.IMDbID)
		}
		if item.Poster != "" {
			fmt.Fprintf(out, "Poster:   %s\n", item.Poster)
		}
	}
	fmt.Fprintf(out, "Expires:  %s\n", item.ExpiresAt)
}
