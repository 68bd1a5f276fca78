// Package client talks to the task tracker HTTP API.
package client

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"task-tracker/internal/api"
	"task-tracker/pkg/activity"
	"task-tracker/pkg/report"
	"task-tracker/pkg/task"
)

// Error is a non-2xx answer from the API.
type Error struct {
	Status  int
	Message string
}

func (e *Error) Error() string {
	return fmt.Sprintf("%d %s: %s", e.Status, http.StatusText(e.Status), e.Message)
}

// Status is the server summary.
type Status struct {
	Tasks          int `json:"tasks"`
	OpenTasks      int `json:"open_tasks"`
	PendingTasks   int `json:"pending_tasks"`
	CompletedTasks int `json:"completed_tasks"`
	Users          int `json:"users"`
	Events         int `json:"events"`
}

// User is a user as the API returns it, with its live tasks.
type User struct {
	ID       int64       `json:"id"`
	Username string      `json:"username"`
	Email    string      `json:"email"`
	Tasks    []task.Task `json:"tasks"`
}

// Client is an API client. Mutations it makes are recorded under its source.
type Client struct {
	base   string
	source string
	http   *http.Client
}

// New creates a Client for the API at base, naming itself source in the
// activity log.
func New(base, source string) *Client {
	return &Client{
		base:   strings.TrimRight(base, "/"),
		source: source,
		http:   &http.Client{Timeout: 10 * time.Second},
	}
}

func (c *Client) do(ctx context.Context, method, path string, body, out any) error {
	var r io.Reader
	if body != nil {
		b, err := json.Marshal(body)
		if err != nil {
			return err
		}
		r = bytes.NewReader(b)
	}
	req, err := http.NewRequestWithContext(ctx, method, c.base+path, r)
	if err != nil {
		return err
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if c.source != "" {
		req.Header.Set(api.SourceHeader, c.source)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		var e struct {
			Error string `json:"error"`
		}
		_ = json.NewDecoder(resp.Body).Decode(&e)
		return &Error{Status: resp.StatusCode, Message: e.Error}
	}
	if out == nil {
		return nil
	}
	return json.NewDecoder(resp.Body).Decode(out)
}

// Status fetches the server summary.
func (c *Client) Status(ctx context.Context) (Status, error) {
	var s Status
	err := c.do(ctx, http.MethodGet, "/status", nil, &s)
	return s, err
}

// Tasks lists live tasks, newest id last.
func (c *Client) Tasks(ctx context.Context) ([]task.Task, error) {
	var tasks []task.Task
	err := c.do(ctx, http.MethodGet, "/tasks", nil, &tasks)
	return tasks, err
}

// CreateTask creates an OPEN task.
func (c *Client) CreateTask(ctx context.Context, title, description string) (*task.Task, error) {
	var t task.Task
	body := map[string]string{"title": title, "description": description}
	if err := c.do(ctx, http.MethodPost, "/tasks", body, &t); err != nil {
		return nil, err
	}
	return &t, nil
}

// Transition moves a task to status to.
func (c *Client) Transition(ctx context.Context, id int64, to task.Status) (*task.Task, error) {
	var t task.Task
	body := map[string]any{"task_id": id, "new_status": to.Code()}
	if err := c.do(ctx, http.MethodPatch, "/tasks", body, &t); err != nil {
		return nil, err
	}
	return &t, nil
}

// Assign links a task to a user.
func (c *Client) Assign(ctx context.Context, taskID, userID int64) (*task.Task, error) {
	var t task.Task
	body := map[string]any{"user_id": userID}
	if err := c.do(ctx, http.MethodPatch, "/tasks/"+strconv.FormatInt(taskID, 10), body, &t); err != nil {
		return nil, err
	}
	return &t, nil
}

// DeleteTask soft-deletes a task.
func (c *Client) DeleteTask(ctx context.Context, id int64) error {
	return c.do(ctx, http.MethodDelete, "/tasks/"+strconv.FormatInt(id, 10), nil, nil)
}

// Users lists live users with their tasks.
func (c *Client) Users(ctx context.Context) ([]User, error) {
	var users []User
	err := c.do(ctx, http.MethodGet, "/users", nil, &users)
	return users, err
}

// CreateUser registers a user.
func (c *Client) CreateUser(ctx context.Context, username, email, password string) (*User, error) {
	var u User
	body := map[string]string{"username": username, "email": email, "password": password}
	if err := c.do(ctx, http.MethodPost, "/users", body, &u); err != nil {
		return nil, err
	}
	return &u, nil
}

// Report fetches the time-spent report rows.
func (c *Client) Report(ctx context.Context) ([]report.Row, error) {
	var rows []report.Row
	path := "/reports/tasks/time_spent?report_format=" + strconv.Itoa(int(report.FormatJSON))
	err := c.do(ctx, http.MethodGet, path, nil, &rows)
	return rows, err
}

// Activity fetches the most recent activity, newest first.
func (c *Client) Activity(ctx context.Context, limit int) ([]activity.Event, error) {
	var events []activity.Event
	q := url.Values{"limit": {strconv.Itoa(limit)}}
	err := c.do(ctx, http.MethodGet, "/activity?"+q.Encode(), nil, &events)
	return events, err
}
