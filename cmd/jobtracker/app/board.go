package app

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"maps"
	"slices"
	"strconv"
	"time"

	"github.com/charmbracelet/lipgloss"
	"github.com/olekukonko/tablewriter"
	"github.com/spf13/cobra"

	"github.com/stacklok/jobtracker/internal/app"
	"github.com/stacklok/jobtracker/internal/applications"
	"github.com/stacklok/jobtracker/internal/boardstate"
	"github.com/stacklok/jobtracker/internal/lookup"
	"github.com/stacklok/jobtracker/internal/store"
	appsync "github.com/stacklok/jobtracker/internal/sync"
)

var (
	headingStyle = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("12"))
	mutedStyle   = lipgloss.NewStyle().Faint(true)
)

func newBoardCmd(opts *rootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "board",
		Short: "Show the board of job applications",
		Long:  `Fetch every job application and show them grouped by stage, in pipeline order.`,
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			stageName, err := cmd.Flags().GetString("stage")
			if err != nil {
				return fmt.Errorf("failed to get stage flag: %w", err)
			}
			stages := applications.Stages
			if stageName != "" {
				stage, err := applications.ParseStage(stageName)
				if err != nil {
					return err
				}
				stages = []applications.Stage{stage}
			}

			return opts.withClient(cmd, func(ctx context.Context, c *app.Client) error {
				if err := syncBoard(ctx, c); err != nil {
					return err
				}
				return renderBoard(cmd.OutOrStdout(), c.Engine.Snapshot(), c.Lookup, stages)
			})
		},
	}
	cmd.Flags().String("stage", "", "Only show one stage")
	return cmd
}

// syncBoard fetches every application, restores the saved column order and
// records the outcome of the sync. Applications the service returned in an
// inconsistent state are left off the board with a warning.
func syncBoard(ctx context.Context, c *app.Client) error {
	state, err := c.BoardState.Load(ctx, c.BoardKey)
	if err != nil {
		slog.Warn("Ignoring unreadable board state", "error", err)
		state = &boardstate.State{}
	}

	fetchErr := c.Engine.FetchAll(ctx)
	if appsync.IsPartialRefresh(fetchErr) {
		slog.Warn("Some applications were left off the board", "error", fetchErr)
		fetchErr = nil
	}
	snap := c.Engine.Snapshot()
	state.RecordSync(time.Now(), snap.Len(), fetchErr)
	if fetchErr == nil {
		for _, stage := range applications.Stages {
			if err := c.Engine.Reorder(stage, state.Arrange(stage, snap.Column(stage))); err != nil {
				slog.Warn("Failed to restore column order", "stage", stage, "error", err)
			}
		}
	}

	if err := c.BoardState.Save(ctx, c.BoardKey, state); err != nil {
		slog.Warn("Failed to save board state", "error", err)
	}
	return fetchErr
}

func newReorderCmd(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "reorder <stage> <id>...",
		Short: "Reorder the applications of one stage",
		Long: `Move the given applications to the top of a stage, in the given order. The
order is kept locally and restored by every later command.`,
		Args: cobra.MinimumNArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			stage, err := applications.ParseStage(args[0])
			if err != nil {
				return err
			}
			return opts.withClient(cmd, func(ctx context.Context, c *app.Client) error {
				if err := syncBoard(ctx, c); err != nil {
					return err
				}

				state := &boardstate.State{}
				state.SetOrder(stage, args[1:])
				ids := state.Arrange(stage, c.Engine.Snapshot().Column(stage))
				for _, id := range args[1:] {
					if got, ok := c.Engine.Snapshot().StageOf(id); !ok || got != stage {
						return fmt.Errorf("application %s is not in stage %s", id, stage)
					}
				}
				if err := c.Engine.Reorder(stage, ids); err != nil {
					return err
				}

				saved, err := c.BoardState.Load(ctx, c.BoardKey)
				if err != nil {
					return fmt.Errorf("failed to load board state: %w", err)
				}
				saved.SetOrder(stage, ids)
				if err := c.BoardState.Save(ctx, c.BoardKey, saved); err != nil {
					return fmt.Errorf("failed to save board state: %w", err)
				}
				return renderBoard(cmd.OutOrStdout(), c.Engine.Snapshot(), c.Lookup, []applications.Stage{stage})
			})
		},
	}
}

func newStatusCmd(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Show the outcome of the last sync with each service",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := opts.loadConfig()
			if err != nil {
				return err
			}
			states, err := boardstate.NewFilePersistence(cfg.GetStateDir()).LoadAll(cmd.Context())
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			if len(states) == 0 {
				_, _ = fmt.Fprintln(out, mutedStyle.Render("no sync recorded yet"))
				return nil
			}
			keys := slices.Sorted(maps.Keys(states))
			table := tablewriter.NewWriter(out)
			table.Header("Service", "Phase", "Last Sync", "Applications", "Failed Attempts", "Message")
			for _, key := range keys {
				s := states[key]
				if err := table.Append([]string{
					key, valueOr(string(s.Phase), "-"), formatTime(s.LastSyncTime), strconv.Itoa(s.ApplicationCount),
					strconv.Itoa(s.AttemptCount), s.Message,
				}); err != nil {
					return fmt.Errorf("failed to render status: %w", err)
				}
			}
			if err := table.Render(); err != nil {
				return fmt.Errorf("failed to render status: %w", err)
			}
			return nil
		},
	}
}

func formatTime(t *time.Time) string {
	if t == nil {
		return "never"
	}
	return t.Local().Format(time.DateTime)
}

// renderBoard writes one table per stage.
func renderBoard(w io.Writer, snap *store.Snapshot, resolver *lookup.Resolver, stages []applications.Stage) error {
	for _, stage := range stages {
		ids := snap.Column(stage)
		_, _ = fmt.Fprintf(w, "%s %s\n", headingStyle.Render(stage.String()), mutedStyle.Render(fmt.Sprintf("(%d)", len(ids))))
		if len(ids) == 0 {
			_, _ = fmt.Fprintln(w)
			continue
		}

		table := tablewriter.NewWriter(w)
		table.Header("ID", "Company", "Job Title", "Location", "Contract", "Created")
		for _, id := range ids {
			r, ok := snap.Get(id)
			if !ok {
				continue
			}
			if err := table.Append([]string{
				r.ID, r.Company, r.JobTitle, r.DisplayLocation(), contractName(r, resolver), formatDate(r.CreatedAt),
			}); err != nil {
				return fmt.Errorf("failed to render board: %w", err)
			}
		}
		if err := table.Render(); err != nil {
			return fmt.Errorf("failed to render board: %w", err)
		}
		_, _ = fmt.Fprintln(w)
	}
	return nil
}

func contractName(r *applications.Record, resolver *lookup.Resolver) string {
	if r.ContractType != "" {
		return r.ContractType
	}
	if name, ok := resolver.ContractTypeName(r.ContractTypeID); ok {
		return name
	}
	return "-"
}

func formatDate(t applications.Timestamp) string {
	if t.IsZero() {
		return "-"
	}
	return t.Local().Format(time.DateOnly)
}
