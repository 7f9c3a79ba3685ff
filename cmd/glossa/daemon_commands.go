package main

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"glossa/internal/api"
	"glossa/internal/daemonctl"
)

func newDaemonCommands(ctx *commandContext) []*cobra.Command {
	startCmd := &cobra.Command{
		Use:   "start",
		Short: "Start the glossa daemon",
		RunE: func(cmd *cobra.Command, args []string) error {
			stdout := cmd.OutOrStdout()
			exe, err := daemonExecutable()
			if err != nil {
				return err
			}

			result, err := daemonctl.EnsureStarted(
				ctx.socketPath(),
				exe,
				daemonLaunchOptions(ctx),
				10*time.Second,
			)
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
				if strings.TrimSpace(result.Message) != "" {
					fmt.Fprintln(stdout, result.Message)
					return nil
				}
				fmt.Fprintln(stdout, "Start request sent")
			}
			return nil
		},
	}

	stopCmd := &cobra.Command{
		Use:   "stop",
		Short: "Stop the glossa daemon (completely terminates the process)",
		RunE: func(cmd *cobra.Command, args []string) error {
			stdout := cmd.OutOrStdout()
			result, err := daemonctl.StopAndTerminate(ctx.socketPath(), ctx.configValue(), 5*time.Second)
			if errors.Is(err, daemonctl.ErrDaemonNotRunning) {
				fmt.Fprintln(stdout, "Daemon is not running")
				return nil
			}
			if err != nil {
				return err
			}
			if !result.StopAcknowledged {
				fmt.Fprintln(stdout, "Stop request sent")
			}
			if result.ForcedKill && result.PID > 0 {
				fmt.Fprintf(stdout, "Stopping daemon process (pid %d)...\n", result.PID)
			}
			fmt.Fprintln(stdout, "Daemon stopped")
			return nil
		},
	}

	restartCmd := &cobra.Command{
		Use:   "restart",
		Short: "Restart the glossa daemon",
		RunE: func(cmd *cobra.Command, args []string) error {
			stdout := cmd.OutOrStdout()
			exe, err := daemonExecutable()
			if err != nil {
				return err
			}

			result, err := daemonctl.Restart(
				ctx.socketPath(),
				ctx.configValue(),
				exe,
				daemonLaunchOptions(ctx),
				5*time.Second,
				10*time.Second,
			)
			if err != nil {
				return err
			}

			if result.WasRunning {
				if result.Stop.ForcedKill && result.Stop.PID > 0 {
					fmt.Fprintf(stdout, "Stopping daemon process (pid %d)...\n", result.Stop.PID)
				}
				fmt.Fprintln(stdout, "Daemon stopped")
			}

			switch result.Start.State {
			case daemonctl.StartStateStarted, daemonctl.StartStateAlreadyRunning:
				fmt.Fprintln(stdout, "Daemon restarted")
			case daemonctl.StartStateRequested:
				if strings.TrimSpace(result.Start.Message) != "" {
					fmt.Fprintln(stdout, result.Start.Message)
					return nil
				}
				fmt.Fprintln(stdout, "Start request sent")
			}
			return nil
		},
	}

	statusCmd := &cobra.Command{
		Use:   "status",
		Short: "Show daemon, engine, and job status",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg := ctx.configValue()
			statusResp, err := daemonctl.BuildStatusSnapshot(cmd.Context(), ctx.socketPath(), cfg)
			if err != nil {
				return err
			}

			stdout := cmd.OutOrStdout()
			colorize := shouldColorize(stdout)

			for _, line := range renderSectionHeader("Daemon", colorize) {
				fmt.Fprintln(stdout, line)
			}
			for _, line := range daemonLines(statusResp, colorize) {
				fmt.Fprintln(stdout, line)
			}
			fmt.Fprintln(stdout)

			for _, line := range renderSectionHeader("Engine", colorize) {
				fmt.Fprintln(stdout, line)
			}
			for _, line := range engineLines(statusResp, colorize) {
				fmt.Fprintln(stdout, line)
			}
			fmt.Fprintln(stdout)

			for _, line := range renderSectionHeader("Checks", colorize) {
				fmt.Fprintln(stdout, line)
			}
			for _, line := range dependencyLines(statusResp.Dependencies, colorize) {
				fmt.Fprintln(stdout, line)
			}
			fmt.Fprintln(stdout)

			for _, line := range renderSectionHeader("Jobs", colorize) {
				fmt.Fprintln(stdout, line)
			}
			rows := buildJobStatsRows(statusResp.Jobs)
			if len(rows) == 0 {
				fmt.Fprintln(stdout, "No jobs recorded")
				return nil
			}
			table := renderTable([]string{"Status", "Count"}, rows, []columnAlignment{alignLeft, alignRight})
			fmt.Fprintln(stdout, table)
			return nil
		},
	}

	return []*cobra.Command{startCmd, stopCmd, restartCmd, statusCmd}
}

func daemonLines(status *api.DaemonStatus, colorize bool) []string {
	lines := make([]string, 0, 4)
	if status.Running {
		detail := "Running"
		if status.PID > 0 {
			detail = fmt.Sprintf("Running (pid %d)", status.PID)
		}
		lines = append(lines, renderStatusLine("Glossa", statusOK, detail, colorize))
	} else {
		lines = append(lines, renderStatusLine("Glossa", statusWarn, "Not running (run `glossa start`)", colorize))
	}
	if status.JobDBPath != "" {
		lines = append(lines, renderStatusLine("Job database", statusInfo, status.JobDBPath, colorize))
	}
	if status.OutputDir != "" {
		lines = append(lines, renderStatusLine("Output directory", statusInfo, status.OutputDir, colorize))
	}
	return lines
}

func engineLines(status *api.DaemonStatus, colorize bool) []string {
	engine := status.Engine
	lines := make([]string, 0, 2)
	switch {
	case engine.Running:
		lines = append(lines, renderStatusLine("Worker", statusOK,
			fmt.Sprintf("Running (pid %d, port %d)", engine.PID, engine.Port), colorize))
	case engine.LaunchPending:
		lines = append(lines, renderStatusLine("Worker", statusInfo, "Launching", colorize))
	case !status.Running:
		lines = append(lines, renderStatusLine("Worker", statusInfo, "Inactive (daemon not running)", colorize))
	default:
		lines = append(lines, renderStatusLine("Worker", statusInfo, "Idle (launched on first translate)", colorize))
	}
	if engine.RecentRestarts > 0 {
		lines = append(lines, renderStatusLine("Restarts", statusWarn,
			fmt.Sprintf("%d in the current window", engine.RecentRestarts), colorize))
	}
	return lines
}

func dependencyLines(deps []api.DependencyStatus, colorize bool) []string {
	if len(deps) == 0 {
		return []string{renderStatusLine("Checks", statusInfo, "No checks available", colorize)}
	}
	lines := make([]string, 0, len(deps))
	for _, dep := range deps {
		if dep.Available {
			message := strings.TrimSpace(dep.Detail)
			if message == "" {
				message = "Ready"
			}
			lines = append(lines, renderStatusLine(dep.Name, statusOK, message, colorize))
			continue
		}
		detail := strings.TrimSpace(dep.Detail)
		if detail == "" {
			detail = "not available"
		}
		lines = append(lines, renderStatusLine(dep.Name, statusError, detail, colorize))
	}
	return lines
}

func buildJobStatsRows(stats api.JobStats) [][]string {
	if stats.Total == 0 {
		return nil
	}
	rows := make([][]string, 0, 5)
	appendRow := func(label string, count int) {
		if count == 0 {
			return
		}
		rows = append(rows, []string{label, strconv.Itoa(count)})
	}
	appendRow("Submitted", stats.Submitted)
	appendRow("Streaming", stats.Streaming)
	appendRow("Completed", stats.Completed)
	appendRow("Failed", stats.Failed)
	rows = append(rows, []string{"Total", strconv.Itoa(stats.Total)})
	return rows
}

func daemonExecutable() (string, error) {
	exe, err := os.Executable()
	if err != nil {
		return "", fmt.Errorf("resolve executable: %w", err)
	}
	return exe, nil
}

func daemonLaunchOptions(ctx *commandContext) daemonctl.LaunchOptions {
	opts := daemonctl.LaunchOptions{}
	if ctx.socketFlag != nil {
		if socket := strings.TrimSpace(*ctx.socketFlag); socket != "" {
			opts.SocketPath = socket
		}
	}
	if ctx.configFlag != nil {
		if config := strings.TrimSpace(*ctx.configFlag); config != "" {
			opts.ConfigPath = config
		}
	}
	return opts
}
