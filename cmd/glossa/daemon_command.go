package main

import (
	"strings"

	"github.com/spf13/cobra"

	"glossa/internal/daemonrun"
)

func newDaemonRunCommand(ctx *commandContext) *cobra.Command {
	cmd := &cobra.Command{
		Use:          "daemon",
		Short:        "Run the glossa daemon (internal)",
		Hidden:       true,
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			socket := ""
			if ctx.socketFlag != nil {
				socket = strings.TrimSpace(*ctx.socketFlag)
			}
			return daemonrun.Run(cmd.Context(), cfg, daemonrun.Options{
				SocketPath: socket,
				LogLevel:   cfg.Logging.Level,
			})
		},
	}
	return cmd
}
