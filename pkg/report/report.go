// Package report aggregates tracked time into report rows and renders them as
// JSON, a bar chart or a paginated document.
package report

import (
	"context"
	"fmt"
	"math"
	"strconv"

	"task-tracker/pkg/task"
)

// Row is one task in the time-spent report.
type Row struct {
	TaskID    int64   `json:"task_id"`
	Title     string  `json:"title"`
	TimeSpent string  `json:"time_spent"`
	UserID    *int64  `json:"user_id"`
	Username  *string `json:"username"`
	Status    string  `json:"status"`

	// Seconds is the raw time_spent the row was formatted from.
	Seconds float64 `json:"-"`
}

// Source yields live tasks with recorded time, ordered by task id.
type Source interface {
	TimeTracked(ctx context.Context) ([]task.Tracked, error)
}

// Build selects every live task with time on the clock and shapes it into
// report rows. The result is never nil.
func Build(ctx context.Context, src Source) ([]Row, error) {
	tracked, err := src.TimeTracked(ctx)
	if err != nil {
		return nil, fmt.Errorf("build report: %w", err)
	}
	rows := make([]Row, 0, len(tracked))
	for _, t := range tracked {
		if t.DateDeleted.IsDeleted() || t.TimeSpent <= 0 {
			continue
		}
		rows = append(rows, Row{
			TaskID:    t.ID,
			Title:     t.Title,
			TimeSpent: FormatTimeSpent(t.TimeSpent),
			UserID:    t.UserID,
			Username:  t.Username,
			Status:    strconv.Itoa(t.Status.Code()),
			Seconds:   t.TimeSpent,
		})
	}
	return rows, nil
}

// FormatTimeSpent renders a seconds count as "1d 2h 03m 04s", "2h 03m 04s"
// or "3m 04s". Fractions of a second are truncated.
func FormatTimeSpent(seconds float64) string {
	if seconds < 0 || math.IsNaN(seconds) {
		seconds = 0
	}
	total := int64(seconds)
	days := total / 86400
	hours := total % 86400 / 3600
	minutes := total % 3600 / 60
	secs := total % 60

	switch {
	case days > 0:
		return fmt.Sprintf("%dd %dh %02dm %02ds", days, hours, minutes, secs)
	case hours > 0:
		return fmt.Sprintf("%dh %02dm %02ds", hours, minutes, secs)
	default:
		return fmt.Sprintf("%dm %02ds", minutes, secs)
	}
}
