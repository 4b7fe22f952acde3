package main

import (
	"context"

	"github.com/spf13/cobra"

	"MorningDigest/internal/app"
)

func newScheduleCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "schedule",
		Short: "Run due groups on a fixed tick until interrupted",
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withApplication(cmd.Context(), func(runCtx context.Context, a *app.Application) error {
				return a.RunScheduler(runCtx)
			})
		},
	}
}
