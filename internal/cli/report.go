package cli

import (
	"errors"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"task-tracker/pkg/report"
)

func (c *CLI) reportCmd() *cobra.Command {
	var format, output string
	cmd := &cobra.Command{
		Use:   "report [--format json|chart|pdf] [-o file]",
		Short: "Render the time-spent report",
		Long: `Render the time spent on every live task that has any.

JSON is written to stdout unless --output is given. The chart (PNG) and the
PDF document are written to --output, or to time_spent_report.png /
time_spent_report.pdf in the current directory.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			f, err := report.ParseFormatName(format)
			if err != nil {
				return err
			}
			a, err := c.get(cmd.Context())
			if err != nil {
				return err
			}
			body, err := a.Reports.Generate(cmd.Context(), f)
			if errors.Is(err, report.ErrNoData) {
				return errors.New("no tracked time to chart yet")
			}
			if err != nil {
				return fmt.Errorf("generate report: %w", err)
			}

			if output == "" && f == report.FormatJSON {
				_, err := cmd.OutOrStdout().Write(body)
				return err
			}
			if output == "" {
				output = f.Filename()
			}
			if err := os.WriteFile(output, body, 0o644); err != nil {
				return fmt.Errorf("write report: %w", err)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "wrote %d bytes to %s\n", len(body), output)
			return nil
		},
	}
	cmd.Flags().StringVar(&format, "format", "json", "json, chart or pdf (or 1, 2, 3)")
	cmd.Flags().StringVarP(&output, "output", "o", "", "file to write the report to")
	return cmd
}
