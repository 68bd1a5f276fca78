package api

import (
	"fmt"
	"net/http"

	"task-tracker/pkg/task"
)

func (s *Server) handleTaskList(w http.ResponseWriter, r *http.Request) {
	q := task.Query{SortBy: r.URL.Query().Get("sort_by")}

	code, ok, err := queryInt(r, "status")
	if err != nil {
		s.writeErr(w, err)
		return
	}
	if ok {
		status, err := task.ParseStatus(code)
		if err != nil {
			s.writeErr(w, err)
			return
		}
		q.Status = &status
	}

	code, ok, err = queryInt(r, "order")
	if err != nil {
		s.writeErr(w, err)
		return
	}
	if ok {
		if q.Order, err = task.ParseOrder(code); err != nil {
			s.writeErr(w, err)
			return
		}
	}

	code, ok, err = queryInt(r, "user_id")
	if err != nil {
		s.writeErr(w, err)
		return
	}
	if ok {
		userID := int64(code)
		q.UserID = &userID
	}

	tasks, err := s.tasks.List(r.Context(), q)
	if err != nil {
		s.writeErr(w, err)
		return
	}
	writeJSON(w, http.StatusOK, tasks)
}

func (s *Server) handleTaskGet(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		s.writeErr(w, err)
		return
	}
	t, err := s.tasks.Get(r.Context(), id)
	if err != nil {
		s.writeErr(w, err)
		return
	}
	writeJSON(w, http.StatusOK, t)
}

func (s *Server) handleTaskCreate(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Title       string `json:"title"`
		Description string `json:"description"`
	}
	if err := decodeJSON(w, r, &req); err != nil {
		s.writeErr(w, err)
		return
	}
	t, err := s.tasks.Create(r.Context(), req.Title, req.Description)
	if err != nil {
		s.writeErr(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, t)
}

// handleTaskStatus changes a task's status. The task is named in the body.
func (s *Server) handleTaskStatus(w http.ResponseWriter, r *http.Request) {
	var req struct {
		TaskID    *int64 `json:"task_id"`
		NewStatus *int   `json:"new_status"`
	}
	if err := decodeJSON(w, r, &req); err != nil {
		s.writeErr(w, err)
		return
	}
	if req.TaskID == nil || req.NewStatus == nil {
		s.writeErr(w, fmt.Errorf("%w: task_id and new_status are required", errBadRequest))
		return
	}
	t, err := s.tasks.Transition(r.Context(), *req.TaskID, *req.NewStatus)
	if err != nil {
		s.writeErr(w, err)
		return
	}
	writeJSON(w, http.StatusOK, t)
}

func (s *Server) handleTaskAssign(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		s.writeErr(w, err)
		return
	}
	var req struct {
		UserID *int64 `json:"user_id"`
	}
	if err := decodeJSON(w, r, &req); err != nil {
		s.writeErr(w, err)
		return
	}
	if req.UserID == nil {
		s.writeErr(w, fmt.Errorf("%w: user_id is required", errBadRequest))
		return
	}
	t, err := s.tasks.Assign(r.Context(), id, *req.UserID)
	if err != nil {
		s.writeErr(w, err)
		return
	}
	writeJSON(w, http.StatusOK, t)
}

func (s *Server) handleTaskDelete(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		s.writeErr(w, err)
		return
	}
	t, err := s.tasks.Delete(r.Context(), id)
	if err != nil {
		s.writeErr(w, err)
		return
	}
	writeJSON(w, http.StatusOK, t)
}
