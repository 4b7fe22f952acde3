package main

import (
	"context"

	"github.com/spf13/cobra"

	"MorningDigest/internal/app"
)

func newServeCommand(ctx *commandContext) *cobra.Command {
	var withScheduler bool

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the HTTP trigger endpoints",
		Long: "Serve the run, cron, group and metrics endpoints. With --scheduler the\n" +
			"in-process ticker also runs due groups and sends their digests.",
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withApplication(cmd.Context(), func(runCtx context.Context, a *app.Application) error {
				return a.Serve(runCtx, withScheduler)
			})
		},
	}

	cmd.Flags().BoolVar(&withScheduler, "scheduler", false, "Also run the in-process scheduler")
	return cmd
}
