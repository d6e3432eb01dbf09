package app

import (
	"context"
	"fmt"
	"io"
	"strconv"

	"github.com/olekukonko/tablewriter"
	"github.com/spf13/cobra"

	"github.com/stacklok/jobtracker/internal/app"
	"github.com/stacklok/jobtracker/internal/applications"
	"github.com/stacklok/jobtracker/internal/dashboard"
)

func newDashboardCmd(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "dashboard",
		Short: "Show application statistics",
		Long:  `Show the number of applications per stage and per month.`,
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return opts.withClient(cmd, func(ctx context.Context, c *app.Client) error {
				if err := c.Dashboard.Refresh(ctx); err != nil {
					return err
				}
				return renderDashboard(cmd.OutOrStdout(), c.Dashboard.State())
			})
		},
	}
}

func renderDashboard(w io.Writer, state dashboard.State) error {
	summary := dashboard.Summarize(state.Stats)

	_, _ = fmt.Fprintln(w, headingStyle.Render("Applications by stage"))
	table := tablewriter.NewWriter(w)
	table.Header("Stage", "Applications")
	for _, stage := range applications.Stages {
		if err := table.Append([]string{stage.String(), strconv.Itoa(summary.PerStage[stage])}); err != nil {
			return fmt.Errorf("failed to render dashboard: %w", err)
		}
	}
	if summary.Other > 0 {
		if err := table.Append([]string{"Other", strconv.Itoa(summary.Other)}); err != nil {
			return fmt.Errorf("failed to render dashboard: %w", err)
		}
	}
	table.Footer("Total", strconv.Itoa(summary.Total))
	if err := table.Render(); err != nil {
		return fmt.Errorf("failed to render dashboard: %w", err)
	}

	_, _ = fmt.Fprintln(w)
	_, _ = fmt.Fprintln(w, headingStyle.Render("Applications by month"))
	if len(state.Monthly) == 0 {
		_, _ = fmt.Fprintln(w, mutedStyle.Render("no applications yet"))
		return nil
	}
	table = tablewriter.NewWriter(w)
	table.Header("Month", "Applications")
	for _, m := range state.Monthly {
		if err := table.Append([]string{m.Month, strconv.Itoa(m.Count)}); err != nil {
			return fmt.Errorf("failed to render dashboard: %w", err)
		}
	}
	if err := table.Render(); err != nil {
		return fmt.Errorf("failed to render dashboard: %w", err)
	}
	return nil
}
