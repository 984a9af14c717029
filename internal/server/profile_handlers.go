package server

import (
	"errors"
	"log"
	"net/http"

	"incubator/internal/auth"
)

type updateProfileRequest struct {
	Name string `json:"name"`
}

// handleUpdateProfile lets a user rename their startup. The session capsule
// is reissued so the new name shows up without a re-login.
func (s *Server) handleUpdateProfile(w http.ResponseWriter, r *http.Request) {
	sess := sessionFromContext(r.Context())
	if sess == nil {
		writeError(w, http.StatusUnauthorized, "Unauthorized")
		return
	}

	var req updateProfileRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	if req.Name == "" {
		writeError(w, http.StatusBadRequest, "Name is required")
		return
	}

	user, err := s.Users.Update(r.Context(), sess.User.ID, auth.UserUpdate{Name: &req.Name})
	switch {
	case errors.Is(err, auth.ErrNotFound):
		writeError(w, http.StatusNotFound, "User not found")
		return
	case err != nil:
		log.Printf("update-profile: %v", err)
		writeError(w, http.StatusInternalServerError, "Failed to update profile")
		return
	}

	if err := s.Sessions.Issue(w, user.Snapshot()); err != nil {
		log.Printf("update-profile: session reissue failed: %v", err)
		writeError(w, http.StatusInternalServerError, "Failed to refresh session")
		return
	}

	writeJSON(w, http.StatusOK, viewUser(user))
}

type changePasswordRequest struct {
	CurrentPassword string `json:"currentPassword"`
	NewPassword     string `json:"newPassword"`
}

func (s *Server) handleChangePassword(w http.ResponseWriter, r *http.Request) {
	sess := sessionFromContext(r.Context())
	if sess == nil {
		writeError(w, http.StatusUnauthorized, "Unauthorized")
		return
	}

	var req changePasswordRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	if err := validatePassword(req.NewPassword); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	err := s.Auth.ChangePassword(r.Context(), sess.User.ID, req.CurrentPassword, req.NewPassword)
	switch {
	case errors.Is(err, auth.ErrMissingFields):
		writeError(w, http.StatusBadRequest, "Current and new password are required")
		return
	case errors.Is(err, auth.ErrInvalidCredentials):
		writeError(w, http.StatusBadRequest, "Current password is incorrect")
		return
	case errors.Is(err, auth.ErrNotFound):
		writeError(w, http.StatusNotFound, "User not found")
		return
	case err != nil:
		log.Printf("change-password: %v", err)
		writeError(w, http.StatusInternalServerError, "Failed to change password")
		return
	}

	writeJSON(w, http.StatusOK, map[string]string{"message": "Password updated."})
}
