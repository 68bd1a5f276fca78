package report

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"pgregory.net/rapid"

	"task-tracker/pkg/storage"
	"task-tracker/pkg/task"
)

type fakeSource struct {
	tracked []task.Tracked
	err     error
	calls   int
}

func (s *fakeSource) TimeTracked(context.Context) ([]task.Tracked, error) {
	s.calls++
	return s.tracked, s.err
}

func ptr[T any](v T) *T { return &v }

func TestFormatTimeSpent(t *testing.T) {
	tests := []struct {
		seconds float64
		want    string
	}{
		{0, "0m 00s"},
		{59.9, "0m 59s"},
		{65, "1m 05s"},
		{3599, "59m 59s"},
		{3600, "1h 00m 00s"},
		{3661, "1h 01m 01s"},
		{86399, "23h 59m 59s"},
		{86400, "1d 0h 00m 00s"},
		{90065, "1d 1h 01m 05s"},
		{12*86400 + 11*3600 + 5, "12d 11h 00m 05s"},
		{-5, "0m 00s"},
	}
	for _, tt := range tests {
		t.Run(fmt.Sprint(tt.seconds), func(t *testing.T) {
			assert.Equal(t, tt.want, FormatTimeSpent(tt.seconds))
		})
	}
}

func TestFormatTimeSpentRecoversWholeSeconds(t *testing.T) {
	rapid.Check(t, func(rt *rapid.T) {
		secs := rapid.Float64Range(0, 1e8).Draw(rt, "seconds")

		var d, h, m, s int64
		out := FormatTimeSpent(secs)
		switch {
		case secs >= 86400:
			_, err := fmt.Sscanf(out, "%dd %dh %dm %ds", &d, &h, &m, &s)
			require.NoError(rt, err, out)
		case secs >= 3600:
			_, err := fmt.Sscanf(out, "%dh %dm %ds", &h, &m, &s)
			require.NoError(rt, err, out)
		default:
			_, err := fmt.Sscanf(out, "%dm %ds", &m, &s)
			require.NoError(rt, err, out)
		}
		if got := d*86400 + h*3600 + m*60 + s; got != int64(secs) {
			rt.Fatalf("%q decodes to %d, want %d", out, got, int64(secs))
		}
	})
}

func TestBuild(t *testing.T) {
	deletedAt := time.Date(2026, 2, 1, 0, 0, 0, 0, time.UTC)
	src := &fakeSource{tracked: []task.Tracked{
		{Task: task.Task{ID: 1, Title: "a", Status: task.StatusCompleted, TimeSpent: 65, UserID: ptr(int64(7))}, Username: ptr("alice")},
		{Task: task.Task{ID: 2, Title: "zero", Status: task.StatusOpen, TimeSpent: 0}},
		{Task: task.Task{ID: 3, Title: "gone", Status: task.StatusCompleted, TimeSpent: 10, DateDeleted: storage.Deleted(deletedAt)}},
		{Task: task.Task{ID: 4, Title: "b", Status: task.StatusPending, TimeSpent: 3661}},
	}}

	rows, err := Build(context.Background(), src)
	require.NoError(t, err)
	require.Len(t, rows, 2)

	assert.Equal(t, Row{
		TaskID: 1, Title: "a", TimeSpent: "1m 05s", UserID: ptr(int64(7)), Username: ptr("alice"),
		Status: "3", Seconds: 65,
	}, rows[0])
	assert.Equal(t, int64(4), rows[1].TaskID)
	assert.Equal(t, "2", rows[1].Status)
	assert.Nil(t, rows[1].UserID)
	assert.Nil(t, rows[1].Username)
}

func TestBuildEmptyAndFailure(t *testing.T) {
	rows, err := Build(context.Background(), &fakeSource{})
	require.NoError(t, err)
	assert.NotNil(t, rows)
	assert.Empty(t, rows)

	boom := errors.New("boom")
	_, err = Build(context.Background(), &fakeSource{err: boom})
	assert.ErrorIs(t, err, boom)
}
