package api

import (
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"go.uber.org/zap"

	"task-tracker/pkg/activity"
)

const (
	defaultActivityLimit = 50
	maxActivityLimit     = 500
)

func (s *Server) handleActivityList(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	limit, ok, err := queryInt(r, "limit")
	if err != nil {
		s.writeErr(w, err)
		return
	}
	if !ok || limit <= 0 {
		limit = defaultActivityLimit
	}
	limit = min(limit, maxActivityLimit)

	var events []activity.Event
	for _, entity := range []string{"task", "user"} {
		id, ok, err := queryInt(r, entity+"_id")
		if err != nil {
			s.writeErr(w, err)
			return
		}
		if ok {
			events, err = s.activity.ForEntity(ctx, entity, int64(id), limit)
			if err != nil {
				s.writeErr(w, err)
				return
			}
			writeJSON(w, http.StatusOK, events)
			return
		}
	}

	if t := r.URL.Query().Get("type"); t != "" {
		events, err = s.activity.ByType(ctx, t, limit)
	} else {
		events, err = s.activity.Recent(ctx, limit)
	}
	if err != nil {
		s.writeErr(w, err)
		return
	}
	writeJSON(w, http.StatusOK, events)
}

func (s *Server) handleActivityVerify(w http.ResponseWriter, r *http.Request) {
	if err := s.activity.VerifyChain(r.Context()); err != nil {
		s.log.Warn("activity chain verification failed", zap.Error(err))
		writeJSON(w, http.StatusOK, map[string]any{"valid": false, "error": err.Error()})
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"valid": true})
}

const heartbeatInterval = 15 * time.Second

// handleActivityStream pushes new activity as server-sent events. With
// ?after=<event id> the events recorded since that one are replayed first.
func (s *Server) handleActivityStream(w http.ResponseWriter, r *http.Request) {
	flusher, ok := w.(http.Flusher)
	if !ok {
		writeError(w, http.StatusInternalServerError, "streaming not supported")
		return
	}

	// Subscribe before replaying so nothing falls between the two.
	ch := s.activity.Subscribe()
	defer s.activity.Unsubscribe(ch)

	ctx := r.Context()
	var backlog []activity.Event
	if after := r.URL.Query().Get("after"); after != "" {
		var err error
		if backlog, err = s.activity.Since(ctx, after, maxActivityLimit); err != nil {
			s.writeErr(w, err)
			return
		}
	}

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.Header().Set("Access-Control-Allow-Origin", "*")
	w.WriteHeader(http.StatusOK)
	flusher.Flush()

	seen := make(map[string]struct{}, len(backlog))
	for i := range backlog {
		seen[backlog[i].ID] = struct{}{}
		if err := writeEvent(w, &backlog[i]); err != nil {
			return
		}
	}
	flusher.Flush()

	ticker := time.NewTicker(heartbeatInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case e := <-ch:
			if _, dup := seen[e.ID]; dup {
				continue
			}
			if err := writeEvent(w, e); err != nil {
				s.log.Debug("activity stream closed", zap.Error(err))
				return
			}
			flusher.Flush()
		case <-ticker.C:
			if _, err := fmt.Fprint(w, ": keepalive\n\n"); err != nil {
				return
			}
			flusher.Flush()
		}
	}
}

func writeEvent(w http.ResponseWriter, e *activity.Event) error {
	data, err := json.Marshal(e)
	if err != nil {
		return err
	}
	_, err = fmt.Fprintf(w, "id: %s\nevent: %s\ndata: %s\n\n", e.ID, e.Type, data)
	return err
}
