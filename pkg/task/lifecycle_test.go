package task

import (
	"errors"
	"testing"
	"time"

	"pgregory.net/rapid"
)

func TestTransition(t *testing.T) {
	t0 := time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)
	t1 := t0.Add(90 * time.Minute)

	tests := []struct {
		name      string
		task      Task
		to        Status
		wantSpent float64
		wantStart *time.Time
		wantErr   error
	}{
		{
			name:      "open to pending stamps the start",
			task:      Task{Status: StatusOpen},
			to:        StatusPending,
			wantStart: &t1,
		},
		{
			name:      "pending to completed measures the elapsed time",
			task:      Task{Status: StatusPending, DateStartedAt: &t0},
			to:        StatusCompleted,
			wantSpent: 5400,
			wantStart: &t0,
		},
		{
			name:      "completed to open resets time but keeps the start",
			task:      Task{Status: StatusCompleted, TimeSpent: 5400, DateStartedAt: &t0},
			to:        StatusOpen,
			wantSpent: 0,
			wantStart: &t0,
		},
		{
			name:      "open to completed without a start records zero",
			task:      Task{Status: StatusOpen},
			to:        StatusCompleted,
			wantSpent: 0,
		},
		{
			name:      "re-entering pending overwrites the start and keeps time",
			task:      Task{Status: StatusCompleted, TimeSpent: 60, DateStartedAt: &t0},
			to:        StatusPending,
			wantSpent: 60,
			wantStart: &t1,
		},
		{
			name:    "same status is a no-op error",
			task:    Task{Status: StatusPending, DateStartedAt: &t0},
			to:      StatusPending,
			wantErr: ErrNoOpTransition,
		},
		{
			name:    "unknown status code",
			task:    Task{Status: StatusOpen},
			to:      Status(4),
			wantErr: ErrInvalidStatus,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := Transition(tt.task, tt.to, t1)
			if tt.wantErr != nil {
				if !errors.Is(err, tt.wantErr) {
					t.Fatalf("err = %v, want %v", err, tt.wantErr)
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if got.Status != tt.to {
				t.Errorf("status = %s, want %s", got.Status, tt.to)
			}
			if got.TimeSpent != tt.wantSpent {
				t.Errorf("time_spent = %v, want %v", got.TimeSpent, tt.wantSpent)
			}
			switch {
			case tt.wantStart == nil && got.DateStartedAt != nil:
				t.Errorf("date_started_at = %v, want nil", got.DateStartedAt)
			case tt.wantStart != nil && (got.DateStartedAt == nil || !got.DateStartedAt.Equal(*tt.wantStart)):
				t.Errorf("date_started_at = %v, want %v", got.DateStartedAt, *tt.wantStart)
			}
		})
	}
}

func TestTransitionDoesNotMutateInput(t *testing.T) {
	start := time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)
	in := Task{Status: StatusPending, DateStartedAt: &start}

	if _, err := Transition(in, StatusCompleted, start.Add(time.Hour)); err != nil {
		t.Fatal(err)
	}
	if in.Status != StatusPending || in.TimeSpent != 0 {
		t.Fatalf("input modified: %+v", in)
	}
}

func TestTransitionNormalisesZones(t *testing.T) {
	// The same instant expressed in two zones must measure as zero elapsed.
	east := time.FixedZone("UTC+5", 5*3600)
	start := time.Date(2026, 3, 1, 14, 0, 0, 0, east)
	now := time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)

	got, err := Transition(Task{Status: StatusPending, DateStartedAt: &start}, StatusCompleted, now)
	if err != nil {
		t.Fatal(err)
	}
	if got.TimeSpent != 3600 {
		t.Fatalf("time_spent = %v, want 3600", got.TimeSpent)
	}
}

func TestTransitionProperties(t *testing.T) {
	base := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	statuses := []Status{StatusOpen, StatusPending, StatusCompleted}

	rapid.Check(t, func(rt *rapid.T) {
		from := rapid.SampledFrom(statuses).Draw(rt, "from")
		to := rapid.SampledFrom(statuses).Draw(rt, "to")
		spent := rapid.Float64Range(0, 1e7).Draw(rt, "spent")
		startOffset := rapid.Int64Range(0, 1e6).Draw(rt, "start_offset")
		elapsed := rapid.Int64Range(0, 1e6).Draw(rt, "elapsed")

		start := base.Add(time.Duration(startOffset) * time.Second)
		now := start.Add(time.Duration(elapsed) * time.Second)
		in := Task{Status: from, TimeSpent: spent, DateStartedAt: &start}

		got, err := Transition(in, to, now)
		if from == to {
			if !errors.Is(err, ErrNoOpTransition) {
				rt.Fatalf("self transition %s returned %v", from, err)
			}
			return
		}
		if err != nil {
			rt.Fatalf("unexpected error: %v", err)
		}
		if got.TimeSpent < 0 {
			rt.Fatalf("negative time_spent %v", got.TimeSpent)
		}
		switch to {
		case StatusOpen:
			if got.TimeSpent != 0 {
				rt.Fatalf("open kept time_spent %v", got.TimeSpent)
			}
		case StatusPending:
			if !got.DateStartedAt.Equal(now) {
				rt.Fatalf("pending start = %v, want %v", got.DateStartedAt, now)
			}
			if got.TimeSpent != spent {
				rt.Fatalf("pending changed time_spent %v -> %v", spent, got.TimeSpent)
			}
		case StatusCompleted:
			if got.TimeSpent != float64(elapsed) {
				rt.Fatalf("completed time_spent = %v, want %d", got.TimeSpent, elapsed)
			}
		}
	})
}
