package cli

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"strconv"

	"github.com/spf13/cobra"

	"task-tracker/internal/app"
	"task-tracker/pkg/activity"
)

// Opener assembles the App the commands run against.
type Opener func(ctx context.Context) (*app.App, error)

// CLI is the tt command tree. The App is opened on first use, so help and
// completion work without a database.
type CLI struct {
	open Opener
	app  *app.App
}

// New creates a CLI that opens its App with open.
func New(open Opener) *CLI {
	return &CLI{open: open}
}

// Close releases the App, if one was opened.
func (c *CLI) Close() {
	if c.app != nil {
		c.app.Close()
		c.app = nil
	}
}

func (c *CLI) get(ctx context.Context) (*app.App, error) {
	if c.app == nil {
		a, err := c.open(ctx)
		if err != nil {
			return nil, fmt.Errorf("open storage: %w", err)
		}
		c.app = a
	}
	return c.app, nil
}

// Command builds the root command.
func (c *CLI) Command() *cobra.Command {
	root := &cobra.Command{
		Use:   "tt",
		Short: "Task tracker administration",
		Long: `tt manages tasks, users and time-spent reports directly against the
task tracker's database. Mutations are recorded in the activity log with
source "cli".`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			ctx := cmd.Context()
			if ctx == nil {
				ctx = context.Background()
			}
			cmd.SetContext(activity.WithSource(ctx, "cli"))
		},
	}
	root.AddCommand(
		c.taskCmd(),
		c.userCmd(),
		c.reportCmd(),
		c.activityCmd(),
		c.statusCmd(),
	)
	return root
}

func printJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func parseID(s string) (int64, error) {
	id, err := strconv.ParseInt(s, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("id %q is not an integer", s)
	}
	return id, nil
}

func truncStr(s string, n int) string {
	r := []rune(s)
	if len(r) > n {
		return string(r[:n])
	}
	return s
}
