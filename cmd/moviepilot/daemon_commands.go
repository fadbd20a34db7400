package main

import (
	"errors"
	"fmt"
	"io"
	"os"
	"sort"
	"strconv"
	"time"

	"github.com/spf13/cobra"

	"moviepilot/internal/api"
	"moviepilot/internal/daemonctl"
)

func newDaemonCommands(ctx *commandContext) []*cobra.Command {
	startCmd := &cobra.Command{
		Use:   "start",
		Short: "Start the moviepilot daemon",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			exe, err := daemonExecutable()
			if err != nil {
				return err
			}
			stdout := cmd.OutOrStdout()
			result, err := daemonctl.EnsureStarted(cfg, exe, daemonctl.LaunchOptions{
				ConfigPath: ctx.configPath(),
				LogLevel:   ctx.logLevel(),
			}, 10*time.Second)
			if err != nil {
				return err
			}
			if result.Launched {
				fmt.Fprintln(stdout, "Daemon not running, launching...")
			}
			switch result.State {
			case daemonctl.StartStateStarted:
				fmt.Fprintln(stdout, "Daemon started")
			case daemonctl.StartStateAlreadyRunning:
				fmt.Fprintln(stdout, "Daemon already running")
			case daemonctl.StartStateRequested:
				fmt.Fprintln(stdout, result.Message)
			}
			return nil
		},
	}

	stopCmd := &cobra.Command{
		Use:   "stop",
		Short: "Stop the moviepilot daemon and terminate its process",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			stdout := cmd.OutOrStdout()
			result, err := daemonctl.StopAndTerminate(cfg, 5*time.Second)
			if errors.Is(err, daemonctl.ErrDaemonNotRunning) {
				fmt.Fprintln(stdout, "Daemon is not running")
				return nil
			}
			if err != nil {
				return err
			}
			if result.StopAcknowledged {
				fmt.Fprintln(stdout, "Stopping scheduled work...")
			} else {
				fmt.Fprintln(stdout, "Stop request sent")
			}
			if result.ForcedKill && result.PID > 0 {
				fmt.Fprintf(stdout, "Daemon process (pid %d) ignored SIGTERM and was killed\n", result.PID)
			}
			fmt.Fprintln(stdout, "Daemon stopped")
			return nil
		},
	}

	var asJSON bool
	statusCmd := &cobra.Command{
		Use:   "status",
		Short: "Show daemon, subscription, cache, and indexer status",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			snap, err := daemonctl.BuildStatusSnapshot(cmd.Context(), cfg)
			if err != nil {
				return err
			}
			if asJSON {
				return writeJSON(cmd, snap.Status)
			}
			stdout := cmd.OutOrStdout()
			printStatus(stdout, snap, shouldColorize(stdout))
			return nil
		},
	}
	addJSONFlag(statusCmd, &asJSON)

	return []*cobra.Command{startCmd, stopCmd, statusCmd}
}

func printStatus(out io.Writer, snap *daemonctl.Snapshot, colorize bool) {
	status := snap.Status

	printSectionHeader(out, "Daemon", colorize)
	switch {
	case snap.Reachable && status.Running:
		fmt.Fprintln(out, renderStatusLine("Daemon", statusOK, fmt.Sprintf("Running (pid %d)", status.PID), colorize))
	case snap.Reachable:
		fmt.Fprintln(out, renderStatusLine("Daemon", statusWarn, fmt.Sprintf("Idle (pid %d); run `moviepilot start`", status.PID), colorize))
	case status.PID > 0:
		fmt.Fprintln(out, renderStatusLine("Daemon", statusWarn, fmt.Sprintf("Process %d alive but socket unreachable", status.PID), colorize))
	default:
		fmt.Fprintln(out, renderStatusLine("Daemon", statusInfo, "Not running", colorize))
	}
	fmt.Fprintln(out, renderStatusLine("Database", statusInfo, status.DatabasePath, colorize))
	fmt.Fprintln(out, renderStatusLine("Metadata cache", statusInfo, status.CachePath, colorize))
	if snap.Reachable {
		fmt.Fprintln(out, renderStatusLine("Telegram", statusInfo, yesNo(status.Telegram), colorize))
		fmt.Fprintln(out, renderStatusLine("Trakt wishlist", statusInfo, yesNo(status.Wishlist), colorize))
	}
	fmt.Fprintln(out)

	if len(snap.Checks) > 0 {
		printSectionHeader(out, "System Checks", colorize)
		for _, check := range snap.Checks {
			fmt.Fprintln(out, renderStatusLine(check.Name, statusKindFromSeverity(check.Severity()), check.Detail, colorize))
		}
		fmt.Fprintln(out)
	}

	printSectionHeader(out, "Subscriptions", colorize)
	printTable(out, []string{"State", "Count"}, subscriptionCountRows(status.Subscriptions),
		[]columnAlignment{alignLeft, alignRight}, "No subscriptions")

	if !snap.Reachable {
		return
	}
	fmt.Fprintln(out)

	printSectionHeader(out, "Metadata Cache", colorize)
	cacheLine := fmt.Sprintf("%d entries, %d negative, %d unsaved writes", status.Cache.Entries, status.Cache.Sentinels, status.Cache.Writes)
	fmt.Fprintln(out, renderStatusLine("Entries", statusInfo, cacheLine, colorize))
	lastSave := status.Cache.LastSave
	if lastSave == "" {
		lastSave = "never"
	}
	fmt.Fprintln(out, renderStatusLine("Last save", statusInfo, lastSave, colorize))
	fmt.Fprintln(out)

	printSectionHeader(out, "Reconcile", colorize)
	engine := status.Engine
	if engine.Cycles == 0 {
		fmt.Fprintln(out, renderStatusLine("Last cycle", statusInfo, "No cycle has run yet", colorize))
	} else {
		fmt.Fprintln(out, renderStatusLine("Last cycle", statusInfo, fmt.Sprintf("%s (%s)", engine.LastCycle, summaryLine(engine.LastSummary)), colorize))
	}
	if engine.LastError != "" {
		fmt.Fprintln(out, renderStatusLine("Last error", statusError, engine.LastError, colorize))
	}
	fmt.Fprintln(out)

	printSectionHeader(out, "Indexers", colorize)
	printTable(out, []string{"Indexer", "Releases", "Refreshed"}, sourceRows(status.Sources),
		[]columnAlignment{alignLeft, alignRight, alignLeft}, "No indexer inventory yet")
	fmt.Fprintln(out)

	printSectionHeader(out, "Jobs", colorize)
	printTable(out, []string{"Job", "Schedule", "Next", "Runs", "Last Error"}, jobRows(status.Jobs),
		[]columnAlignment{alignLeft, alignLeft, alignLeft, alignRight, alignLeft}, "No scheduled jobs")
}

func subscriptionCountRows(counts map[string]int) [][]string {
	states := make([]string, 0, len(counts))
	for state := range counts {
		states = append(states, state)
	}
	sort.Strings(states)
	rows := make([][]string, 0, len(states))
	for _, state := range states {
		rows = append(rows, []string{state, strconv.Itoa(counts[state])})
	}
	return rows
}

func sourceRows(sources []api.SourceStat) [][]string {
	rows := make([][]string, 0, len(sources))
	for _, src := range sources {
		rows = append(rows, []string{src.Name, strconv.Itoa(src.Releases), src.Refreshed})
	}
	return rows
}

func jobRows(jobs []api.Job) [][]string {
	rows := make([][]string, 0, len(jobs))
	for _, job := range jobs {
		rows = append(rows, []string{job.Name, job.Spec, job.Next, strconv.Itoa(job.Runs), job.LastErr})
	}
	return rows
}

func summaryLine(s api.Summary) string {
	return fmt.Sprintf("processed %d, skipped %d, matched %d, downloads %d, completed %d",
		s.Processed, s.Skipped, s.Matched, s.Downloads, s.Completed)
}

func daemonExecutable() (string, error) {
	exe, err := os.Executable()
	if err != nil {
		return "", fmt.Errorf("resolve executable: %w", err)
	}
	return exe, nil
}
