package task

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"time"

	"task-tracker/pkg/storage"
)

// Status is the lifecycle state of a task. The numeric values are the codes
// used on the wire and in the database.
type Status int

const (
	StatusOpen      Status = 1
	StatusPending   Status = 2
	StatusCompleted Status = 3
)

// ParseStatus converts a wire code into a Status.
func ParseStatus(code int) (Status, error) {
	switch s := Status(code); s {
	case StatusOpen, StatusPending, StatusCompleted:
		return s, nil
	}
	return 0, fmt.Errorf("%w: %d (must be 1=OPEN, 2=PENDING or 3=COMPLETED)", ErrInvalidStatus, code)
}

// Code returns the wire code of s.
func (s Status) Code() int { return int(s) }

func (s Status) String() string {
	switch s {
	case StatusOpen:
		return "OPEN"
	case StatusPending:
		return "PENDING"
	case StatusCompleted:
		return "COMPLETED"
	}
	return "Status(" + strconv.Itoa(int(s)) + ")"
}

// MarshalJSON encodes the status by name.
func (s Status) MarshalJSON() ([]byte, error) {
	return json.Marshal(s.String())
}

// UnmarshalJSON accepts either the name or the numeric code.
func (s *Status) UnmarshalJSON(data []byte) error {
	var code int
	if err := json.Unmarshal(data, &code); err == nil {
		parsed, err := ParseStatus(code)
		if err != nil {
			return err
		}
		*s = parsed
		return nil
	}
	var name string
	if err := json.Unmarshal(data, &name); err != nil {
		return fmt.Errorf("%w: %s", ErrInvalidStatus, data)
	}
	for _, candidate := range []Status{StatusOpen, StatusPending, StatusCompleted} {
		if candidate.String() == name {
			*s = candidate
			return nil
		}
	}
	return fmt.Errorf("%w: %q", ErrInvalidStatus, name)
}

// Order is the direction of a list sort.
type Order int

const (
	OrderAsc  Order = 1
	OrderDesc Order = 2
)

// ParseOrder converts a wire code into an Order.
func ParseOrder(code int) (Order, error) {
	switch o := Order(code); o {
	case OrderAsc, OrderDesc:
		return o, nil
	}
	return 0, fmt.Errorf("%w: %d (must be 1=ASC or 2=DESC)", ErrInvalidOrder, code)
}

func (o Order) String() string {
	if o == OrderDesc {
		return "DESC"
	}
	return "ASC"
}

// Task is a unit of tracked work.
type Task struct {
	ID            int64            `json:"id"`
	Title         string           `json:"title"`
	Description   string           `json:"description"`
	Status        Status           `json:"status"`
	TimeSpent     float64          `json:"time_spent"` // seconds
	DateStartedAt *time.Time       `json:"date_started_at"`
	DateCreated   time.Time        `json:"date_created"`
	DateModified  *time.Time       `json:"date_modified"`
	DateDeleted   storage.Presence `json:"date_deleted"`
	UserID        *int64           `json:"user_id"`
}

// Tracked is a task with time on the clock, joined with its owner's username.
type Tracked struct {
	Task
	Username *string
}

// Query selects and orders live tasks for List.
type Query struct {
	Status *Status
	UserID *int64
	SortBy string // a column name; unknown names sort by id
	Order  Order  // zero means ascending
}

// sortColumns whitelists the columns List may order by.
var sortColumns = map[string]string{
	"id":              "id",
	"title":           "title",
	"description":     "description",
	"status":          "status",
	"time_spent":      "time_spent",
	"date_started_at": "date_started_at",
	"date_created":    "date_created",
	"date_modified":   "date_modified",
	"user_id":         "user_id",
}

// orderClause renders the ORDER BY expression for q. The id tiebreaker keeps
// the output deterministic for equal keys.
func (q Query) orderClause() string {
	col, ok := sortColumns[q.SortBy]
	if !ok {
		col = "id"
	}
	if col == "id" {
		return "id " + q.Order.String()
	}
	return col + " " + q.Order.String() + ", id ASC"
}

// Counts summarises the live tasks.
type Counts struct {
	Total     int `json:"tasks"`
	Open      int `json:"open_tasks"`
	Pending   int `json:"pending_tasks"`
	Completed int `json:"completed_tasks"`
}

// Store is the contract for task persistence. Every read and write ignores
// soft-deleted rows.
type Store interface {
	Create(ctx context.Context, t *Task) (*Task, error)
	Get(ctx context.Context, id int64) (*Task, error)
	List(ctx context.Context, q Query) ([]Task, error)

	// Transition applies the lifecycle rule to the task under a row lock and
	// commits the result in a single transaction.
	Transition(ctx context.Context, id int64, to Status) (*Task, error)

	// Assign links the task to a live user in a single transaction.
	Assign(ctx context.Context, taskID, userID int64) (*Task, error)

	// Delete soft-deletes the task and returns it as it was marked.
	Delete(ctx context.Context, id int64) (*Task, error)

	// TimeTracked returns live tasks with time_spent > 0 ordered by id.
	TimeTracked(ctx context.Context) ([]Tracked, error)

	Counts(ctx context.Context) (Counts, error)
	EnsureTable(ctx context.Context) error
}
