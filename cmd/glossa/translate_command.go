package main

import (
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"

	"glossa/internal/api"
	"glossa/internal/config"
	"glossa/internal/events"
	"glossa/internal/ipc"
)

func newTranslateCommand(ctx *commandContext) *cobra.Command {
	var service string
	var threads int
	var langIn string
	var langOut string
	var detach bool

	cmd := &cobra.Command{
		Use:   "translate <pdf>",
		Short: "Translate a PDF and wait for the result",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			sourcePath, err := config.ExpandPath(args[0])
			if err != nil {
				return err
			}

			return ctx.withClient(func(client *ipc.Client) error {
				stdout := cmd.OutOrStdout()

				resp, err := client.Translate(ipc.TranslateRequest{
					SourcePath: sourcePath,
					Service:    service,
					Threads:    threads,
					LangIn:     langIn,
					LangOut:    langOut,
				})
				if err != nil {
					return err
				}

				job := resp.Job
				fmt.Fprintf(stdout, "Submitted %s (job %s, service %s)\n", job.SourceFilename, job.ID, job.Service)
				if detach {
					fmt.Fprintf(stdout, "Follow progress with `glossa jobs show %s`\n", job.ID)
					return nil
				}

				return followJob(cmd, client, job.ID)
			})
		},
	}

	cmd.Flags().StringVar(&service, "service", "", "Translation service (google or bing)")
	cmd.Flags().IntVar(&threads, "threads", 0, "Worker thread count")
	cmd.Flags().StringVar(&langIn, "lang-in", "", "Source language tag")
	cmd.Flags().StringVar(&langOut, "lang-out", "", "Target language tag")
	cmd.Flags().BoolVar(&detach, "detach", false, "Submit without waiting for completion")
	return cmd
}

// followJob polls the job's event stream until a terminal frame arrives.
func followJob(cmd *cobra.Command, client *ipc.Client, jobID string) error {
	stdout := cmd.OutOrStdout()
	var since uint64

	for {
		if err := cmd.Context().Err(); err != nil {
			return err
		}
		resp, err := client.JobEvents(ipc.JobEventsRequest{
			JobID: jobID,
			Since: since,
			Limit: 64,
			Wait:  true,
		})
		if err != nil {
			return err
		}
		for _, evt := range resp.Events {
			switch evt.Type {
			case events.TypeProgress:
				printProgress(stdout, evt)
			case events.TypeError:
				fmt.Fprintf(stdout, "error: %s\n", eventFailureText(evt))
			case events.TypeDone:
				if evt.OK {
					fmt.Fprintf(stdout, "Translation complete: %s\n", evt.OutputFile)
					return nil
				}
				message := eventFailureText(evt)
				if message == "" {
					message = "translation failed"
				}
				return fmt.Errorf("translation failed: %s", message)
			}
		}
		since = resp.Next
		if resp.Finished && len(resp.Events) == 0 {
			// Terminal frame already consumed in a previous page.
			return nil
		}
	}
}

func printProgress(stdout io.Writer, evt api.JobEvent) {
	label := strings.TrimSpace(evt.Stage)
	if label == "" {
		label = "translating"
	}
	if message := strings.TrimSpace(evt.Message); message != "" {
		label = fmt.Sprintf("%s: %s", label, message)
	}
	fmt.Fprintf(stdout, "  %5.1f%%  %s\n", evt.Pct, label)
}

func eventFailureText(evt api.JobEvent) string {
	message := strings.TrimSpace(evt.Message)
	detail := strings.TrimSpace(evt.Detail)
	switch {
	case message != "" && detail != "":
		return message + ": " + detail
	case message != "":
		return message
	default:
		return detail
	}
}
