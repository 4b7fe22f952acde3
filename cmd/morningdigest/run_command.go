package main

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"

	"MorningDigest/internal/app"
	"MorningDigest/internal/usecase"
)

func newRunCommand(ctx *commandContext) *cobra.Command {
	var groupIDs []string
	var recipients []string
	var send bool
	var bypass bool
	var jsonOutput bool

	cmd := &cobra.Command{
		Use:   "run",
		Short: "Generate digests once and optionally send them",
		RunE: func(cmd *cobra.Command, args []string) error {
			req := usecase.RunRequest{
				GroupIDs:       groupIDs,
				SendEmails:     send,
				BypassSchedule: bypass,
				Recipients:     recipients,
				Trigger:        "cli",
			}
			if !cmd.Flags().Changed("bypass") {
				req.BypassSchedule = send
			}

			return ctx.withApplication(cmd.Context(), func(runCtx context.Context, a *app.Application) error {
				report, err := a.RunOnce(runCtx, req)
				if err != nil {
					return err
				}
				if jsonOutput {
					return writeJSON(cmd, report)
				}
				printReport(cmd, report)
				return nil
			})
		},
	}

	cmd.Flags().StringSliceVar(&groupIDs, "groups", nil, "Keyword group IDs to run (default: all active groups)")
	cmd.Flags().StringSliceVar(&recipients, "recipients", nil, "Override recipients for every issue")
	cmd.Flags().BoolVar(&send, "send", false, "Send generated digests by email")
	cmd.Flags().BoolVar(&bypass, "bypass", false, "Ignore send windows (defaults to the value of --send)")
	cmd.Flags().BoolVar(&jsonOutput, "json", false, "Output the run report as JSON")
	return cmd
}

func printReport(cmd *cobra.Command, report usecase.RunReport) {
	out := cmd.OutOrStdout()
	s := report.Stats
	fmt.Fprintf(out, "groups=%d created=%d failed=%d skipped=%d sent=%d send_failed=%d\n",
		s.GroupsProcessed, s.Successes, s.Failures, s.Skipped, s.DeliveriesSent, s.DeliveriesFailed)

	for _, d := range report.Details {
		switch {
		case d.Skipped:
			fmt.Fprintf(out, "  skip  %s: %s\n", d.GroupID, d.Error)
		case d.Error != "":
			fmt.Fprintf(out, "  fail  %s: %s\n", d.GroupID, d.Error)
		case d.Issue != nil:
			fmt.Fprintf(out, "  ok    %s: %s (%d articles)\n", d.GroupID, d.Issue.Subject, len(d.Issue.Articles))
		}
	}
}

func writeJSON(cmd *cobra.Command, v any) error {
	enc := json.NewEncoder(cmd.OutOrStdout())
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
