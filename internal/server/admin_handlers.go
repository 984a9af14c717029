package server

import (
	"errors"
	"log"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"incubator/internal/auth"
)

func (s *Server) handleAdminListUsers(w http.ResponseWriter, r *http.Request) {
	role := r.URL.Query().Get("role")
	if role != "" && !auth.ValidRole(role) {
		writeError(w, http.StatusBadRequest, "Unknown role filter")
		return
	}

	page := queryInt(r, "page", 1)
	pageSize := queryInt(r, "pageSize", 25)
	if page < 1 {
		page = 1
	}
	if pageSize < 1 || pageSize > 100 {
		pageSize = 25
	}

	users, total, err := s.Users.List(r.Context(), role, page, pageSize)
	if err != nil {
		log.Printf("admin list users: %v", err)
		writeError(w, http.StatusInternalServerError, "Failed to load users")
		return
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{
		"users":    viewUsers(users),
		"total":    total,
		"page":     page,
		"pageSize": pageSize,
	})
}

type adminCreateUserRequest struct {
	Name     string `json:"name"`
	Email    string `json:"email"`
	Password string `json:"password"`
	Role     string `json:"role"`
	Verified bool   `json:"verified"`
}

// handleAdminCreateUser provisions an account from the back office. Unless
// the admin marks it verified, the new user still has to confirm their
// address through the usual email flow.
func (s *Server) handleAdminCreateUser(w http.ResponseWriter, r *http.Request) {
	var req adminCreateUserRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	if req.Name == "" {
		writeError(w, http.StatusBadRequest, "Name is required")
		return
	}
	if !validateEmail(req.Email) {
		writeError(w, http.StatusBadRequest, "Invalid email format")
		return
	}
	if err := validatePassword(req.Password); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	if req.Role == "" {
		req.Role = auth.RoleUser
	}
	if !auth.ValidRole(req.Role) {
		writeError(w, http.StatusBadRequest, "Role must be user or admin")
		return
	}

	hashed, err := s.Hasher.Hash(req.Password)
	if err != nil {
		log.Printf("admin create user: %v", err)
		writeError(w, http.StatusInternalServerError, "Failed to create user")
		return
	}

	ctx := r.Context()
	user, err := s.Users.Create(ctx, req.Name, req.Email, hashed, req.Role, req.Verified)
	switch {
	case errors.Is(err, auth.ErrEmailTaken):
		writeError(w, http.StatusConflict, "A user with this email already exists.")
		return
	case err != nil:
		log.Printf("admin create user: %v", err)
		writeError(w, http.StatusInternalServerError, "Failed to create user")
		return
	}

	if !user.EmailVerified {
		if err := s.Auth.ResendVerification(ctx, user.Email); err != nil {
			log.Printf("admin create user: verification email for %s failed: %v", user.Email, err)
		}
	}

	writeJSON(w, http.StatusCreated, viewUser(user))
}

type adminUpdateUserRequest struct {
	Name  *string `json:"name"`
	Email *string `json:"email"`
	Role  *string `json:"role"`
}

// handleAdminUpdateUser edits name, email or role. A role change takes
// effect for the target's live sessions only at their next login, because
// the session capsule carries its own copy of the role.
func (s *Server) handleAdminUpdateUser(w http.ResponseWriter, r *http.Request) {
	var req adminUpdateUserRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	if req.Email != nil && !validateEmail(*req.Email) {
		writeError(w, http.StatusBadRequest, "Invalid email format")
		return
	}
	if req.Role != nil && !auth.ValidRole(*req.Role) {
		writeError(w, http.StatusBadRequest, "Role must be user or admin")
		return
	}

	user, err := s.Users.Update(r.Context(), chi.URLParam(r, "id"), auth.UserUpdate{
		Name:  req.Name,
		Email: req.Email,
		Role:  req.Role,
	})
	switch {
	case errors.Is(err, auth.ErrNotFound):
		writeError(w, http.StatusNotFound, "User not found")
		return
	case errors.Is(err, auth.ErrEmailTaken):
		writeError(w, http.StatusConflict, "A user with this email already exists.")
		return
	case err != nil:
		log.Printf("admin update user: %v", err)
		writeError(w, http.StatusInternalServerError, "Failed to update user")
		return
	}
	writeJSON(w, http.StatusOK, viewUser(user))
}

func (s *Server) handleAdminDeleteUser(w http.ResponseWriter, r *http.Request) {
	sess := sessionFromContext(r.Context())
	if sess == nil {
		writeError(w, http.StatusUnauthorized, "Unauthorized")
		return
	}

	id := chi.URLParam(r, "id")
	if id == sess.User.ID {
		writeError(w, http.StatusBadRequest, "You cannot delete your own account")
		return
	}

	if err := s.Users.Delete(r.Context(), id); err != nil {
		log.Printf("admin delete user: %v", err)
		writeError(w, http.StatusInternalServerError, "Failed to delete user")
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"message": "User deleted."})
}

func (s *Server) handleAdminResendVerification(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	user, err := s.Users.FindByID(ctx, chi.URLParam(r, "id"))
	if err != nil {
		log.Printf("admin resend verification: %v", err)
		writeError(w, http.StatusInternalServerError, "Failed to load user")
		return
	}
	if user == nil {
		writeError(w, http.StatusNotFound, "User not found")
		return
	}
	if user.EmailVerified {
		writeError(w, http.StatusBadRequest, "This account is already verified")
		return
	}

	if err := s.Auth.ResendVerification(ctx, user.Email); err != nil {
		log.Printf("admin resend verification: %v", err)
		writeError(w, http.StatusInternalServerError, "Failed to send verification email")
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"message": "Verification email sent."})
}

func queryInt(r *http.Request, key string, def int) int {
	val := r.URL.Query().Get(key)
	if val == "" {
		return def
	}
	n, err := strconv.Atoi(val)
	if err != nil {
		return def
	}
	return n
}
