package server

import (
	"errors"
	"log"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"incubator/internal/incubator"
)

func (s *Server) handleListTrainings(w http.ResponseWriter, r *http.Request) {
	trainings, err := s.Trainings.ListUpcoming(r.Context(), time.Now())
	if err != nil {
		log.Printf("list trainings: %v", err)
		writeError(w, http.StatusInternalServerError, "Failed to load trainings")
		return
	}
	writeJSON(w, http.StatusOK, viewTrainings(trainings))
}

func (s *Server) handleEnroll(w http.ResponseWriter, r *http.Request) {
	sess := sessionFromContext(r.Context())
	if sess == nil {
		writeError(w, http.StatusUnauthorized, "Unauthorized")
		return
	}

	err := s.Trainings.Enroll(r.Context(), chi.URLParam(r, "id"), sess.User.ID)
	switch {
	case errors.Is(err, incubator.ErrNotFound):
		writeError(w, http.StatusNotFound, "Training not found")
		return
	case errors.Is(err, incubator.ErrAlreadyEnrolled):
		writeError(w, http.StatusConflict, "Already enrolled in this training")
		return
	case errors.Is(err, incubator.ErrTrainingFull):
		writeError(w, http.StatusConflict, "Training is fully booked")
		return
	case err != nil:
		log.Printf("enroll: %v", err)
		writeError(w, http.StatusInternalServerError, "Failed to enroll")
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"message": "Enrolled."})
}

func (s *Server) handleWithdraw(w http.ResponseWriter, r *http.Request) {
	sess := sessionFromContext(r.Context())
	if sess == nil {
		writeError(w, http.StatusUnauthorized, "Unauthorized")
		return
	}

	if err := s.Trainings.Withdraw(r.Context(), chi.URLParam(r, "id"), sess.User.ID); err != nil {
		log.Printf("withdraw: %v", err)
		writeError(w, http.StatusInternalServerError, "Failed to withdraw")
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"message": "Enrollment cancelled."})
}

func (s *Server) handleAdminListTrainings(w http.ResponseWriter, r *http.Request) {
	trainings, err := s.Trainings.ListAll(r.Context())
	if err != nil {
		log.Printf("admin list trainings: %v", err)
		writeError(w, http.StatusInternalServerError, "Failed to load trainings")
		return
	}
	writeJSON(w, http.StatusOK, viewTrainings(trainings))
}

type createTrainingRequest struct {
	Title       string    `json:"title"`
	Description string    `json:"description"`
	StartsAt    time.Time `json:"startsAt"`
	Location    string    `json:"location"`
	Capacity    int       `json:"capacity"`
}

func (s *Server) handleAdminCreateTraining(w http.ResponseWriter, r *http.Request) {
	var req createTrainingRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	if req.Title == "" || req.StartsAt.IsZero() {
		writeError(w, http.StatusBadRequest, "Title and start time are required")
		return
	}
	if req.Capacity < 0 {
		writeError(w, http.StatusBadRequest, "Capacity must not be negative")
		return
	}

	training, err := s.Trainings.Create(r.Context(), req.Title, req.Description, req.StartsAt, req.Location, req.Capacity)
	if err != nil {
		log.Printf("create training: %v", err)
		writeError(w, http.StatusInternalServerError, "Failed to create training")
		return
	}
	writeJSON(w, http.StatusCreated, viewTraining(training))
}

type updateTrainingRequest struct {
	Title       *string    `json:"title"`
	Description *string    `json:"description"`
	StartsAt    *time.Time `json:"startsAt"`
	Location    *string    `json:"location"`
	Capacity    *int       `json:"capacity"`
}

func (s *Server) handleAdminUpdateTraining(w http.ResponseWriter, r *http.Request) {
	var req updateTrainingRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	if req.Capacity != nil && *req.Capacity < 0 {
		writeError(w, http.StatusBadRequest, "Capacity must not be negative")
		return
	}

	training, err := s.Trainings.Update(r.Context(), chi.URLParam(r, "id"), incubator.TrainingUpdate{
		Title:       req.Title,
		Description: req.Description,
		StartsAt:    req.StartsAt,
		Location:    req.Location,
		Capacity:    req.Capacity,
	})
	switch {
	case errors.Is(err, incubator.ErrNotFound):
		writeError(w, http.StatusNotFound, "Training not found")
		return
	case err != nil:
		log.Printf("update training: %v", err)
		writeError(w, http.StatusInternalServerError, "Failed to update training")
		return
	}
	writeJSON(w, http.StatusOK, viewTraining(training))
}

func (s *Server) handleAdminDeleteTraining(w http.ResponseWriter, r *http.Request) {
	if err := s.Trainings.Delete(r.Context(), chi.URLParam(r, "id")); err != nil {
		log.Printf("delete training: %v", err)
		writeError(w, http.StatusInternalServerError, "Failed to delete training")
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"message": "Training deleted."})
}
