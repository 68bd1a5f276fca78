package cli

import (
	"encoding/json"
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"task-tracker/pkg/activity"
)

func (c *CLI) activityCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "activity",
		Short: "Inspect the activity log",
	}
	cmd.AddCommand(c.activityListCmd(), c.activityVerifyCmd())
	return cmd
}

func (c *CLI) activityListCmd() *cobra.Command {
	var (
		limit          int
		eventType      string
		taskID, userID int64
		format         string
	)
	cmd := &cobra.Command{
		Use:   "list",
		Short: "Show recent activity, newest first",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := c.get(cmd.Context())
			if err != nil {
				return err
			}
			ctx := cmd.Context()

			var events []activity.Event
			switch {
			case cmd.Flags().Changed("task"):
				events, err = a.Activity.ForEntity(ctx, "task", taskID, limit)
			case cmd.Flags().Changed("user"):
				events, err = a.Activity.ForEntity(ctx, "user", userID, limit)
			case eventType != "":
				events, err = a.Activity.ByType(ctx, eventType, limit)
			default:
				events, err = a.Activity.Recent(ctx, limit)
			}
			if err != nil {
				return fmt.Errorf("list activity: %w", err)
			}
			if format == "short" {
				printShortEvents(cmd.OutOrStdout(), events)
				return nil
			}
			return printJSON(cmd.OutOrStdout(), events)
		},
	}
	cmd.Flags().IntVar(&limit, "limit", 20, "maximum number of events")
	cmd.Flags().StringVar(&eventType, "type", "", "only events of this type, e.g. task.transitioned")
	cmd.Flags().Int64Var(&taskID, "task", 0, "only events about this task")
	cmd.Flags().Int64Var(&userID, "user", 0, "only events about this user")
	cmd.Flags().StringVar(&format, "format", "json", "output format (json or short)")
	return cmd
}

func (c *CLI) activityVerifyCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "verify",
		Short: "Check the integrity of the activity hash chain",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := c.get(cmd.Context())
			if err != nil {
				return err
			}
			if err := a.Activity.VerifyChain(cmd.Context()); err != nil {
				return fmt.Errorf("activity chain is broken: %w", err)
			}
			n, err := a.Activity.Count(cmd.Context())
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "activity chain OK (%d events)\n", n)
			return nil
		},
	}
}

func printShortEvents(w io.Writer, events []activity.Event) {
	for _, e := range events {
		content := ""
		if b, err := json.Marshal(e.Content); err == nil {
			content = string(b)
		}
		fmt.Fprintf(w, "%s  %-20s  %-6s  %-6d  %s\n",
			e.Timestamp.Format("2006-01-02 15:04:05"), truncStr(e.Type, 20), e.Source, e.EntityID, truncStr(content, 80))
	}
}
