package cli

import (
	"fmt"
	"io"
	"strconv"

	"github.com/spf13/cobra"

	"task-tracker/pkg/task"
)

func (c *CLI) taskCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "task",
		Short: "Create, inspect and move tasks",
	}
	cmd.AddCommand(
		c.taskCreateCmd(),
		c.taskListCmd(),
		c.taskGetCmd(),
		c.taskStatusCmd(),
		c.taskAssignCmd(),
		c.taskDeleteCmd(),
	)
	return cmd
}

func (c *CLI) taskCreateCmd() *cobra.Command {
	var title, description string
	cmd := &cobra.Command{
		Use:   "create --title <title> [--description <text>]",
		Short: "Create an OPEN task",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := c.get(cmd.Context())
			if err != nil {
				return err
			}
			t, err := a.Tasks.Create(cmd.Context(), title, description)
			if err != nil {
				return fmt.Errorf("create task: %w", err)
			}
			return printJSON(cmd.OutOrStdout(), t)
		},
	}
	cmd.Flags().StringVar(&title, "title", "", "task title (required, at most 100 characters)")
	cmd.Flags().StringVar(&description, "description", "", "task description (at most 200 characters)")
	_ = cmd.MarkFlagRequired("title")
	return cmd
}

func (c *CLI) taskListCmd() *cobra.Command {
	var (
		status, order int
		userID        int64
		sortBy        string
		format        string
	)
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List live tasks",
		Long: `List live tasks, optionally filtered by status (1=OPEN, 2=PENDING,
3=COMPLETED) or owner, sorted by any task column (1=ASC, 2=DESC).`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			q := task.Query{SortBy: sortBy}
			if cmd.Flags().Changed("status") {
				s, err := task.ParseStatus(status)
				if err != nil {
					return err
				}
				q.Status = &s
			}
			if cmd.Flags().Changed("order") {
				o, err := task.ParseOrder(order)
				if err != nil {
					return err
				}
				q.Order = o
			}
			if cmd.Flags().Changed("user") {
				q.UserID = &userID
			}

			a, err := c.get(cmd.Context())
			if err != nil {
				return err
			}
			tasks, err := a.Tasks.List(cmd.Context(), q)
			if err != nil {
				return fmt.Errorf("list tasks: %w", err)
			}
			if format == "short" {
				printShortTasks(cmd.OutOrStdout(), tasks)
				return nil
			}
			return printJSON(cmd.OutOrStdout(), tasks)
		},
	}
	cmd.Flags().IntVar(&status, "status", 0, "filter by status code")
	cmd.Flags().IntVar(&order, "order", int(task.OrderAsc), "sort direction (1=ASC, 2=DESC)")
	cmd.Flags().Int64Var(&userID, "user", 0, "filter by owner id")
	cmd.Flags().StringVar(&sortBy, "sort-by", "id", "column to sort by")
	cmd.Flags().StringVar(&format, "format", "json", "output format (json or short)")
	return cmd
}

func (c *CLI) taskGetCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "get <id>",
		Short: "Show a task",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseID(args[0])
			if err != nil {
				return err
			}
			a, err := c.get(cmd.Context())
			if err != nil {
				return err
			}
			t, err := a.Tasks.Get(cmd.Context(), id)
			if err != nil {
				return fmt.Errorf("get task: %w", err)
			}
			return printJSON(cmd.OutOrStdout(), t)
		},
	}
}

func (c *CLI) taskStatusCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "status <id> <code>",
		Short: "Move a task to another status",
		Long: `Move a task to status 1 (OPEN), 2 (PENDING) or 3 (COMPLETED).

Entering PENDING starts the clock; entering COMPLETED stores the seconds since
then as time spent; going back to OPEN resets time spent to zero.`,
		Args: cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseID(args[0])
			if err != nil {
				return err
			}
			code, err := strconv.Atoi(args[1])
			if err != nil {
				return fmt.Errorf("status code %q is not an integer", args[1])
			}
			a, err := c.get(cmd.Context())
			if err != nil {
				return err
			}
			t, err := a.Tasks.Transition(cmd.Context(), id, code)
			if err != nil {
				return fmt.Errorf("transition task: %w", err)
			}
			return printJSON(cmd.OutOrStdout(), t)
		},
	}
}

func (c *CLI) taskAssignCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "assign <id> <user-id>",
		Short: "Assign a task to a user",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseID(args[0])
			if err != nil {
				return err
			}
			userID, err := parseID(args[1])
			if err != nil {
				return err
			}
			a, err := c.get(cmd.Context())
			if err != nil {
				return err
			}
			t, err := a.Tasks.Assign(cmd.Context(), id, userID)
			if err != nil {
				return fmt.Errorf("assign task: %w", err)
			}
			return printJSON(cmd.OutOrStdout(), t)
		},
	}
}

func (c *CLI) taskDeleteCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "delete <id>",
		Short: "Soft-delete a task",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseID(args[0])
			if err != nil {
				return err
			}
			a, err := c.get(cmd.Context())
			if err != nil {
				return err
			}
			t, err := a.Tasks.Delete(cmd.Context(), id)
			if err != nil {
				return fmt.Errorf("delete task: %w", err)
			}
			return printJSON(cmd.OutOrStdout(), t)
		},
	}
}

func printShortTasks(w io.Writer, tasks []task.Task) {
	for _, t := range tasks {
		owner := "-"
		if t.UserID != nil {
			owner = strconv.FormatInt(*t.UserID, 10)
		}
		fmt.Fprintf(w, "%-6d  %-10s  %10.0fs  %-6s  %s\n", t.ID, t.Status, t.TimeSpent, owner, truncStr(t.Title, 60))
	}
}
