package main

import (
	"errors"
	"fmt"
	"io"
	"sort"
	"strconv"
	"strings"

	"github.com/lithammer/fuzzysearch/fuzzy"
	"github.com/spf13/cobra"

	"moviepilot/internal/api"
	"moviepilot/internal/ipc"
)

func newSubscribeCommand(ctx *commandContext) *cobra.Command {
	cmd := &cobra.Command{
		Use:     "subscribe",
		Aliases: []string{"sub"},
		Short:   "Manage movie and series subscriptions",
	}
	cmd.AddCommand(newSubscribeAddCommand(ctx))
	cmd.AddCommand(newSubscribeListCommand(ctx))
	cmd.AddCommand(newSubscribeRemoveCommand(ctx))
	cmd.AddCommand(newSubscribeSearchCommand(ctx))
	return cmd
}

func newSubscribeAddCommand(ctx *commandContext) *cobra.Command {
	var (
		req    ipc.SubscribeAddRequest
		asJSON bool
	)
	cmd := &cobra.Command{
		Use:   "add <title...>",
		Short: "Subscribe to a movie or a series season",
		Long: "Subscribe to a movie or a series season. The title may include a year and a season\n" +
			"marker, for example `moviepilot subscribe add The Expanse 2015 S03`.",
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			req.Title = strings.TrimSpace(strings.Join(args, " "))
			return ctx.withClient(func(client *ipc.Client) error {
				resp, err := client.SubscribeAdd(req)
				if err != nil {
					return err
				}
				if asJSON {
					return writeJSON(cmd, resp)
				}
				out := cmd.OutOrStdout()
				if resp.Duplicate {
					fmt.Fprintf(out, "Already subscribed: %s (#%d, %s)\n", resp.Item.Label, resp.Item.ID, resp.Item.State)
					return nil
				}
				fmt.Fprintf(out, "Subscribed: %s (#%d)\n", resp.Item.Label, resp.Item.ID)
				if resp.Item.MissingEpisodes > 0 {
					fmt.Fprintf(out, "Missing episodes: %d\n", resp.Item.MissingEpisodes)
				}
				return nil
			})
		},
	}
	cmd.Flags().IntVar(&req.Year, "year", 0, "Release year")
	cmd.Flags().StringVar(&req.Kind, "kind", "", "Media kind (movie or tv)")
	cmd.Flags().IntVar(&req.Season, "season", 0, "Season number for series")
	cmd.Flags().Int64Var(&req.TMDBID, "tmdb", 0, "TMDB id, skips recognition")
	cmd.Flags().StringVar(&req.IMDbID, "imdb", "", "IMDb id (tt...)")
	cmd.Flags().StringVar(&req.Keyword, "keyword", "", "Search keyword used instead of the title")
	addJSONFlag(cmd, &asJSON)
	return cmd
}

func newSubscribeListCommand(ctx *commandContext) *cobra.Command {
	var (
		states []string
		match  string
		asJSON bool
	)
	cmd := &cobra.Command{
		Use:     "list",
		Aliases: []string{"ls"},
		Short:   "List subscriptions",
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withClient(func(client *ipc.Client) error {
				resp, err := client.SubscribeList(states)
				if err != nil {
					return err
				}
				items := resp.Items
				if strings.TrimSpace(match) != "" {
					items = fuzzyFilterSubscriptions(items, match)
				}
				if asJSON {
					return writeJSON(cmd, items)
				}
				printSubscriptions(cmd.OutOrStdout(), items)
				return nil
			})
		},
	}
	cmd.Flags().StringSliceVar(&states, "state", nil, "Only show subscriptions in these states (new, subscribed, downloading, completed)")
	cmd.Flags().StringVar(&match, "match", "", "Fuzzy-match subscription titles")
	addJSONFlag(cmd, &asJSON)
	return cmd
}

func newSubscribeRemoveCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:     "remove <id...>",
		Aliases: []string{"rm"},
		Short:   "Remove subscriptions by id",
		Args:    cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ids, err := parsePositiveIDs(args)
			if err != nil {
				return err
			}
			return ctx.withClient(func(client *ipc.Client) error {
				out := cmd.OutOrStdout()
				for _, id := range ids {
					resp, err := client.SubscribeRemove(id)
					if err != nil {
						return err
					}
					if resp.Removed {
						fmt.Fprintf(out, "Subscription %d removed\n", id)
					} else {
						fmt.Fprintf(out, "Subscription %d not found\n", id)
					}
				}
				return nil
			})
		},
	}
}

func newSubscribeSearchCommand(ctx *commandContext) *cobra.Command {
	var asJSON bool
	cmd := &cobra.Command{
		Use:   "search [id]",
		Short: "Search indexers directly for one subscription, or for all of them",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			var id int64
			if len(args) == 1 {
				ids, err := parsePositiveIDs(args)
				if err != nil {
					return err
				}
				id = ids[0]
			}
			return ctx.withClient(func(client *ipc.Client) error {
				resp, err := client.SubscribeSearch(id)
				if err != nil {
					return err
				}
				if asJSON {
					return writeJSON(cmd, resp.Summary)
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Search finished: %s\n", summaryLine(resp.Summary))
				return nil
			})
		},
	}
	addJSONFlag(cmd, &asJSON)
	return cmd
}

func newRefreshCommand(ctx *commandContext) *cobra.Command {
	var asJSON bool
	cmd := &cobra.Command{
		Use:   "refresh",
		Short: "Refresh indexer feeds and reconcile subscriptions now",
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withClient(func(client *ipc.Client) error {
				resp, err := client.Refresh()
				if err != nil {
					return err
				}
				if asJSON {
					return writeJSON(cmd, resp.Summary)
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Refresh finished: %s\n", summaryLine(resp.Summary))
				return nil
			})
		},
	}
	addJSONFlag(cmd, &asJSON)
	return cmd
}

func printSubscriptions(out io.Writer, items []api.Subscription) {
	rows := make([][]string, 0, len(items))
	for _, item := range items {
		missing := ""
		if item.MissingEpisodes > 0 {
			missing = strconv.Itoa(item.MissingEpisodes)
		}
		tmdb := ""
		if item.TMDBID > 0 {
			tmdb = strconv.FormatInt(item.TMDBID, 10)
		}
		rows = append(rows, []string{
			strconv.FormatInt(item.ID, 10),
			item.Label,
			item.Kind,
			item.State,
			missing,
			tmdb,
		})
	}
	printTable(out,
		[]string{"ID", "Title", "Kind", "State", "Missing", "TMDB"},
		rows,
		[]columnAlignment{alignRight, alignLeft, alignLeft, alignLeft, alignRight, alignRight},
		"No subscriptions",
	)
}

// fuzzyFilterSubscriptions keeps subscriptions whose label fuzzy-matches
// term, best matches first.
func fuzzyFilterSubscriptions(items []api.Subscription, term string) []api.Subscription {
	labels := make([]string, len(items))
	for i, item := range items {
		labels[i] = item.Label
	}
	ranks := fuzzy.RankFindNormalizedFold(strings.TrimSpace(term), labels)
	sort.Stable(ranks)
	out := make([]api.Subscription, 0, len(ranks))
	for _, rank := range ranks {
		out = append(out, items[rank.OriginalIndex])
	}
	return out
}

func parsePositiveIDs(args []string) ([]int64, error) {
	ids := make([]int64, 0, len(args))
	for _, arg := range args {
		id, err := strconv.ParseInt(strings.TrimSpace(arg), 10, 64)
		if err != nil || id <= 0 {
			return nil, fmt.Errorf("invalid subscription id %q", arg)
		}
		ids = append(ids, id)
	}
	if len(ids) == 0 {
		return nil, errors.New("at least one id is required")
	}
	return ids, nil
}
