package server

import (
	"errors"
	"log"
	"net/http"
	"sort"
	"time"

	"github.com/go-chi/chi/v5"

	"incubator/internal/incubator"
)

func (s *Server) handleListTasks(w http.ResponseWriter, r *http.Request) {
	sess := sessionFromContext(r.Context())
	if sess == nil {
		writeError(w, http.StatusUnauthorized, "Unauthorized")
		return
	}

	tasks, err := s.Tasks.ListForUser(r.Context(), sess.User.ID)
	if err != nil {
		log.Printf("list tasks: %v", err)
		writeError(w, http.StatusInternalServerError, "Failed to load tasks")
		return
	}
	writeJSON(w, http.StatusOK, viewTasks(tasks))
}

type createTaskRequest struct {
	Title   string     `json:"title"`
	Notes   string     `json:"notes"`
	DueDate *time.Time `json:"dueDate"`
}

func (s *Server) handleCreateTask(w http.ResponseWriter, r *http.Request) {
	sess := sessionFromContext(r.Context())
	if sess == nil {
		writeError(w, http.StatusUnauthorized, "Unauthorized")
		return
	}

	var req createTaskRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	if req.Title == "" {
		writeError(w, http.StatusBadRequest, "Title is required")
		return
	}

	task, err := s.Tasks.Create(r.Context(), sess.User.ID, req.Title, req.Notes, req.DueDate)
	if err != nil {
		log.Printf("create task: %v", err)
		writeError(w, http.StatusInternalServerError, "Failed to create task")
		return
	}
	writeJSON(w, http.StatusCreated, viewTask(task))
}

type updateTaskRequest struct {
	Title        *string    `json:"title"`
	Notes        *string    `json:"notes"`
	Status       *string    `json:"status"`
	DueDate      *time.Time `json:"dueDate"`
	ClearDueDate bool       `json:"clearDueDate"`
}

func (s *Server) handleUpdateTask(w http.ResponseWriter, r *http.Request) {
	sess := sessionFromContext(r.Context())
	if sess == nil {
		writeError(w, http.StatusUnauthorized, "Unauthorized")
		return
	}

	var req updateTaskRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	if req.Status != nil && *req.Status != incubator.TaskOpen && *req.Status != incubator.TaskDone {
		writeError(w, http.StatusBadRequest, "Status must be open or done")
		return
	}

	task, err := s.Tasks.Update(r.Context(), sess.User.ID, chi.URLParam(r, "id"), incubator.TaskUpdate{
		Title:        req.Title,
		Notes:        req.Notes,
		Status:       req.Status,
		DueDate:      req.DueDate,
		ClearDueDate: req.ClearDueDate,
	})
	switch {
	case errors.Is(err, incubator.ErrNotFound):
		writeError(w, http.StatusNotFound, "Task not found")
		return
	case err != nil:
		log.Printf("update task: %v", err)
		writeError(w, http.StatusInternalServerError, "Failed to update task")
		return
	}
	writeJSON(w, http.StatusOK, viewTask(task))
}

func (s *Server) handleDeleteTask(w http.ResponseWriter, r *http.Request) {
	sess := sessionFromContext(r.Context())
	if sess == nil {
		writeError(w, http.StatusUnauthorized, "Unauthorized")
		return
	}

	if err := s.Tasks.Delete(r.Context(), sess.User.ID, chi.URLParam(r, "id")); err != nil {
		log.Printf("delete task: %v", err)
		writeError(w, http.StatusInternalServerError, "Failed to delete task")
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"message": "Task deleted."})
}

// handleCalendar merges the user's dated tasks and enrolled trainings into
// one chronological feed. The window defaults to the next 30 days.
func (s *Server) handleCalendar(w http.ResponseWriter, r *http.Request) {
	sess := sessionFromContext(r.Context())
	if sess == nil {
		writeError(w, http.StatusUnauthorized, "Unauthorized")
		return
	}

	from := time.Now()
	to := from.AddDate(0, 0, 30)
	if v := r.URL.Query().Get("from"); v != "" {
		parsed, err := time.Parse(time.RFC3339, v)
		if err != nil {
			writeError(w, http.StatusBadRequest, "from must be an RFC 3339 timestamp")
			return
		}
		from = parsed
	}
	if v := r.URL.Query().Get("to"); v != "" {
		parsed, err := time.Parse(time.RFC3339, v)
		if err != nil {
			writeError(w, http.StatusBadRequest, "to must be an RFC 3339 timestamp")
			return
		}
		to = parsed
	}
	if to.Before(from) {
		writeError(w, http.StatusBadRequest, "to must not be before from")
		return
	}

	ctx := r.Context()
	tasks, err := s.Tasks.DueBetween(ctx, sess.User.ID, from, to)
	if err != nil {
		log.Printf("calendar tasks: %v", err)
		writeError(w, http.StatusInternalServerError, "Failed to load calendar")
		return
	}
	trainings, err := s.Trainings.StartingBetween(ctx, sess.User.ID, from, to)
	if err != nil {
		log.Printf("calendar trainings: %v", err)
		writeError(w, http.StatusInternalServerError, "Failed to load calendar")
		return
	}

	entries := make([]incubator.CalendarEntry, 0, len(tasks)+len(trainings))
	for _, t := range tasks {
		entries = append(entries, incubator.CalendarEntry{
			Kind:  "task",
			ID:    t.ID,
			Title: t.Title,
			When:  *t.DueDate,
		})
	}
	for _, t := range trainings {
		entries = append(entries, incubator.CalendarEntry{
			Kind:  "training",
			ID:    t.ID,
			Title: t.Title,
			When:  t.StartsAt,
		})
	}
	sort.Slice(entries, func(i, j int) bool {
		if entries[i].When.Equal(entries[j].When) {
			return entries[i].ID < entries[j].ID
		}
		return entries[i].When.Before(entries[j].When)
	})

	writeJSON(w, http.StatusOK, entries)
}
