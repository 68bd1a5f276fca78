package task

import (
	"fmt"
	"time"
)

// Transition returns t moved to status `to` at instant now, with the
// time-tracking side effects of the move applied. t itself is not modified.
//
//	→ OPEN       time_spent reset to 0; date_started_at kept
//	→ PENDING    date_started_at = now; time_spent kept
//	→ COMPLETED  time_spent = now - date_started_at, or 0 when never started
func Transition(t Task, to Status, now time.Time) (Task, error) {
	if _, err := ParseStatus(int(to)); err != nil {
		return t, err
	}
	if t.Status == to {
		return t, fmt.Errorf("%w: %s", ErrNoOpTransition, to)
	}

	now = now.UTC()
	next := t
	next.Status = to

	switch to {
	case StatusOpen:
		next.TimeSpent = 0
	case StatusPending:
		started := now
		next.DateStartedAt = &started
	case StatusCompleted:
		next.TimeSpent = 0
		if t.DateStartedAt != nil {
			// Naive timestamps coming back from the store are read as UTC.
			elapsed := now.Sub(t.DateStartedAt.UTC()).Seconds()
			if elapsed > 0 {
				next.TimeSpent = elapsed
			}
		}
	}
	return next, nil
}
