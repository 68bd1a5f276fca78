package cli

import (
	"fmt"

	"github.com/spf13/cobra"
)

func (c *CLI) statusCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Show system summary",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := c.get(cmd.Context())
			if err != nil {
				return err
			}
			ctx := cmd.Context()
			counts, err := a.Tasks.Counts(ctx)
			if err != nil {
				return fmt.Errorf("count tasks: %w", err)
			}
			users, err := a.Users.List(ctx)
			if err != nil {
				return fmt.Errorf("list users: %w", err)
			}
			events, err := a.Activity.Count(ctx)
			if err != nil {
				return fmt.Errorf("count events: %w", err)
			}
			status := map[string]any{
				"tasks":           counts.Total,
				"open_tasks":      counts.Open,
				"pending_tasks":   counts.Pending,
				"completed_tasks": counts.Completed,
				"users":           len(users),
				"events":          events,
			}
			if stats, ok := a.Reports.CacheStats(); ok {
				status["report_cache"] = stats
			}
			return printJSON(cmd.OutOrStdout(), status)
		},
	}
}
