package api

import (
	"context"
	"net/http"
	"time"

	"task-tracker/pkg/task"
	"task-tracker/pkg/user"
)

// userView is the wire form of a user: its own fields plus its live tasks.
type userView struct {
	ID        int64       `json:"id"`
	Username  string      `json:"username"`
	Email     string      `json:"email"`
	CreatedAt time.Time   `json:"created_at"`
	UpdatedAt time.Time   `json:"updated_at"`
	Tasks     []task.Task `json:"tasks"`
}

func (s *Server) viewUser(ctx context.Context, u *user.User) (userView, error) {
	id := u.ID
	tasks, err := s.tasks.List(ctx, task.Query{UserID: &id})
	if err != nil {
		return userView{}, err
	}
	if tasks == nil {
		tasks = []task.Task{}
	}
	return userView{
		ID:        u.ID,
		Username:  u.Username,
		Email:     u.Email,
		CreatedAt: u.CreatedAt,
		UpdatedAt: u.UpdatedAt,
		Tasks:     tasks,
	}, nil
}

func (s *Server) handleUserList(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	users, err := s.users.List(ctx)
	if err != nil {
		s.writeErr(w, err)
		return
	}
	views := make([]userView, 0, len(users))
	for i := range users {
		v, err := s.viewUser(ctx, &users[i])
		if err != nil {
			s.writeErr(w, err)
			return
		}
		views = append(views, v)
	}
	writeJSON(w, http.StatusOK, views)
}

func (s *Server) handleUserGet(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		s.writeErr(w, err)
		return
	}
	u, err := s.users.Get(r.Context(), id)
	if err != nil {
		s.writeErr(w, err)
		return
	}
	s.writeUser(w, r, http.StatusOK, u)
}

type credentials struct {
	Username string `json:"username"`
	Email    string `json:"email,omitempty"`
	Password string `json:"password"`
}

func (s *Server) handleUserCreate(w http.ResponseWriter, r *http.Request) {
	var req credentials
	if err := decodeJSON(w, r, &req); err != nil {
		s.writeErr(w, err)
		return
	}
	u, err := s.users.Register(r.Context(), req.Username, req.Email, req.Password)
	if err != nil {
		s.writeErr(w, err)
		return
	}
	s.writeUser(w, r, http.StatusCreated, u)
}

// handleUserAuthenticate checks a username and password pair. It issues no
// session; a 200 only confirms the credential.
func (s *Server) handleUserAuthenticate(w http.ResponseWriter, r *http.Request) {
	var req credentials
	if err := decodeJSON(w, r, &req); err != nil {
		s.writeErr(w, err)
		return
	}
	u, err := s.users.Authenticate(r.Context(), req.Username, req.Password)
	if err != nil {
		s.writeErr(w, err)
		return
	}
	s.writeUser(w, r, http.StatusOK, u)
}

func (s *Server) handleUserDelete(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		s.writeErr(w, err)
		return
	}
	u, err := s.users.Delete(r.Context(), id)
	if err != nil {
		s.writeErr(w, err)
		return
	}
	s.writeUser(w, r, http.StatusOK, u)
}

func (s *Server) writeUser(w http.ResponseWriter, r *http.Request, status int, u *user.User) {
	v, err := s.viewUser(r.Context(), u)
	if err != nil {
		s.writeErr(w, err)
		return
	}
	writeJSON(w, status, v)
}
