package main

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"glossa/internal/api"
	"glossa/internal/ipc"
	"glossa/internal/logs"
)

func newLogsCommand(ctx *commandContext) *cobra.Command {
	var follow bool
	var lines int
	var jobID string

	cmd := &cobra.Command{
		Use:   "logs",
		Short: "Show recent daemon log events",
		RunE: func(cmd *cobra.Command, args []string) error {
			client, dialErr := ipc.Dial(ctx.socketPath())
			if dialErr != nil {
				if daemonUnreachable(dialErr) {
					return tailLogFile(cmd, ctx, follow, lines, jobID)
				}
				return wrapDialError(dialErr, ctx.socketPath())
			}
			defer client.Close()

			stdout := cmd.OutOrStdout()
			resp, err := client.LogTail(ipc.LogTailRequest{Limit: lines})
			if err != nil {
				return err
			}
			printLogEvents(stdout, resp.Events, jobID)
			if !follow {
				return nil
			}

			since := resp.Next
			for {
				if err := cmd.Context().Err(); err != nil {
					return nil
				}
				page, err := client.LogTail(ipc.LogTailRequest{Since: since, Limit: 256, Follow: true})
				if err != nil {
					return err
				}
				printLogEvents(stdout, page.Events, jobID)
				since = page.Next
			}
		},
	}

	cmd.Flags().BoolVarP(&follow, "follow", "f", false, "Stream new log events until interrupted")
	cmd.Flags().IntVarP(&lines, "lines", "n", 50, "Number of buffered events to show")
	cmd.Flags().StringVar(&jobID, "job", "", "Only show events for the given job")
	return cmd
}

func daemonUnreachable(err error) bool {
	return errors.Is(err, syscall.ENOENT) || errors.Is(err, syscall.ECONNREFUSED) || os.IsNotExist(err)
}

// tailLogFile reads the current daemon log directly when no daemon is
// listening, so past runs stay inspectable.
func tailLogFile(cmd *cobra.Command, ctx *commandContext, follow bool, lines int, jobID string) error {
	cfg, err := ctx.ensureConfig()
	if err != nil {
		return err
	}
	path := filepath.Join(cfg.Paths.LogDir, "glossa.log")
	fmt.Fprintf(cmd.ErrOrStderr(), "Daemon not running, reading %s\n", path)

	stdout := cmd.OutOrStdout()
	res, err := logs.Tail(cmd.Context(), path, logs.TailOptions{Offset: -1, Limit: lines})
	if err != nil {
		return err
	}
	printLogLines(stdout, res.Lines, jobID)
	if !follow {
		return nil
	}

	offset := res.Offset
	for {
		if err := cmd.Context().Err(); err != nil {
			return nil
		}
		page, err := logs.Tail(cmd.Context(), path, logs.TailOptions{Offset: offset, Limit: 256, Follow: true, Wait: 2 * time.Second})
		if err != nil {
			return err
		}
		printLogLines(stdout, page.Lines, jobID)
		offset = page.Offset
	}
}

func printLogLines(stdout io.Writer, list []string, jobID string) {
	for _, line := range list {
		if jobID != "" && !strings.Contains(line, jobID) {
			continue
		}
		fmt.Fprintln(stdout, line)
	}
}

func printLogEvents(stdout io.Writer, list []api.LogEvent, jobID string) {
	for _, evt := range list {
		if jobID != "" && evt.JobID != jobID {
			continue
		}
		fmt.Fprintln(stdout, formatLogEvent(evt))
	}
}

func formatLogEvent(evt api.LogEvent) string {
	var sb strings.Builder
	sb.WriteString(evt.Timestamp.Format("15:04:05.000"))
	sb.WriteString(" ")
	sb.WriteString(fmt.Sprintf("%-5s", strings.ToUpper(evt.Level)))
	if evt.Component != "" {
		sb.WriteString(" [")
		sb.WriteString(evt.Component)
		sb.WriteString("]")
	}
	sb.WriteString(" ")
	sb.WriteString(evt.Message)
	if evt.JobID != "" {
		sb.WriteString(" job=")
		sb.WriteString(evt.JobID)
	}
	if len(evt.Fields) > 0 {
		keys := make([]string, 0, len(evt.Fields))
		for key := range evt.Fields {
			keys = append(keys, key)
		}
		sort.Strings(keys)
		for _, key := range keys {
			sb.WriteString(" ")
			sb.WriteString(key)
			sb.WriteString("=")
			sb.WriteString(evt.Fields[key])
		}
	}
	return sb.String()
}
