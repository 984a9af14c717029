package server

import (
	"errors"
	"fmt"
	"log"
	"net/http"
	"strings"

	"incubator/internal/auth"
)

type registerRequest struct {
	Name     string `json:"name"`
	Email    string `json:"email"`
	Password string `json:"password"`
}

func (s *Server) handleRegister(w http.ResponseWriter, r *http.Request) {
	var req registerRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	if req.Name == "" {
		writeError(w, http.StatusBadRequest, "Startup name is required")
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

	ctx := r.Context()
	ip := clientIP(r, s.trustedProxies)
	if locked, ttl, err := s.Limiter.RegisterRegisterAttempt(ctx, req.Email, ip); err != nil {
		log.Printf("register: rate limit check failed: %v", err)
		writeError(w, http.StatusInternalServerError, "Registration throttled")
		return
	} else if locked {
		writeJSON(w, http.StatusTooManyRequests, map[string]interface{}{
			"message":  "Too many signup attempts. Try again later.",
			"cooldown": int64(ttl.Seconds()),
		})
		return
	}

	user, err := s.Auth.Register(ctx, req.Name, req.Email, req.Password)
	switch {
	case errors.Is(err, auth.ErrMissingFields):
		writeError(w, http.StatusBadRequest, "Name, email and password are required")
		return
	case errors.Is(err, auth.ErrEmailTaken):
		writeError(w, http.StatusConflict, "A user with this email already exists.")
		return
	case err != nil:
		log.Printf("register: %v", err)
		writeError(w, http.StatusInternalServerError, "Failed to create user")
		return
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{
		"message": "Registration successful! Please check your email to verify your account.",
		"user": map[string]string{
			"id":    user.ID,
			"email": user.Email,
		},
	})
}

type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

func (s *Server) handleLogin(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	if !validateEmail(req.Email) || req.Password == "" {
		writeError(w, http.StatusBadRequest, "Email and password are required")
		return
	}

	ctx := r.Context()
	ip := clientIP(r, s.trustedProxies)

	if s.Limiter.IsIPBanned(ctx, ip) {
		writeError(w, http.StatusForbidden, "IP_BANNED")
		return
	}

	user, err := s.Auth.Login(ctx, req.Email, req.Password)
	switch {
	case errors.Is(err, auth.ErrInvalidCredentials):
		_ = s.Limiter.RegisterLoginFailure(ctx, ip)
		writeError(w, http.StatusUnauthorized, "INVALID_CREDENTIALS")
		return
	case errors.Is(err, auth.ErrEmailNotVerified):
		writeError(w, http.StatusForbidden, "EMAIL_NOT_VERIFIED")
		return
	case err != nil:
		log.Printf("login: %v", err)
		writeError(w, http.StatusInternalServerError, "Login failed")
		return
	}

	if err := s.Sessions.Issue(w, user.Snapshot()); err != nil {
		log.Printf("login: session issue failed: %v", err)
		writeError(w, http.StatusInternalServerError, "SESSION_CREATE_FAILED")
		return
	}
	s.Limiter.ResetLogin(ctx, ip)

	writeJSON(w, http.StatusOK, map[string]interface{}{
		"user": map[string]interface{}{
			"id":    user.ID,
			"email": user.Email,
			"name":  user.Name,
			"role":  user.Role,
		},
		"redirect": auth.RedirectTarget(user.Role),
	})
}

// handleLogout revokes the capsule server-side and removes the cookie. The
// revocation is what makes a copy of the cookie taken before logout
// worthless.
func (s *Server) handleLogout(w http.ResponseWriter, r *http.Request) {
	if sess := s.Sessions.Read(r); sess.Authenticated() {
		if err := s.Revoked.Revoke(r.Context(), sess.ID); err != nil {
			log.Printf("logout: revoke session: %v", err)
			writeError(w, http.StatusInternalServerError, "Failed to sign out")
			return
		}
	}
	s.Sessions.Clear(w)
	writeJSON(w, http.StatusOK, map[string]string{"message": "Signed out."})
}

func (s *Server) handleMe(w http.ResponseWriter, r *http.Request) {
	sess := sessionFromContext(r.Context())
	if sess == nil {
		writeError(w, http.StatusUnauthorized, "Unauthorized")
		return
	}
	writeJSON(w, http.StatusOK, sess.User)
}

func (s *Server) handleVerifyEmail(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	ip := clientIP(r, s.trustedProxies)

	locked, ttl, err := s.Limiter.RegisterVerifyAttempt(ctx, ip)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to verify email")
		return
	}
	if locked {
		writeJSON(w, http.StatusTooManyRequests, map[string]interface{}{
			"message":  "Too many verification attempts. Try again later.",
			"cooldown": int64(ttl.Seconds()),
		})
		return
	}

	token := r.URL.Query().Get("token")
	if token == "" {
		writeError(w, http.StatusBadRequest, "Missing verification token")
		return
	}

	_, err = s.Auth.VerifyEmail(ctx, token)
	switch {
	case errors.Is(err, auth.ErrTokenExpired):
		writeError(w, http.StatusBadRequest, "Verification link has expired. Request a new one.")
		return
	case errors.Is(err, auth.ErrInvalidToken):
		writeError(w, http.StatusBadRequest, "Invalid verification link.")
		return
	case err != nil:
		log.Printf("verify-email: %v", err)
		writeError(w, http.StatusInternalServerError, "Failed to verify email")
		return
	}

	http.Redirect(w, r, s.Config.BaseURL+"/login?verified=1", http.StatusSeeOther)
}

type resendVerificationRequest struct {
	Email string `json:"email"`
}

func (s *Server) handleResendVerification(w http.ResponseWriter, r *http.Request) {
	var req resendVerificationRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	if !validateEmail(req.Email) {
		writeError(w, http.StatusBadRequest, "Invalid email format")
		return
	}

	ctx := r.Context()
	cooldownKey := fmt.Sprintf("resend_cooldown:%s", strings.ToLower(req.Email))
	if ttl := s.Limiter.CooldownTTL(ctx, cooldownKey); ttl > 0 {
		writeJSON(w, http.StatusTooManyRequests, map[string]int64{"cooldown": int64(ttl.Seconds())})
		return
	}
	if locked, ttl, err := s.Limiter.RegisterRegisterAttempt(ctx, req.Email, clientIP(r, s.trustedProxies)); err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to process request")
		return
	} else if locked {
		writeJSON(w, http.StatusTooManyRequests, map[string]interface{}{
			"cooldown": int64(ttl.Seconds()),
			"message":  "Too many attempts. Try again later.",
		})
		return
	}

	if err := s.Auth.ResendVerification(ctx, req.Email); err != nil && !errors.Is(err, auth.ErrMissingFields) {
		log.Printf("resend-verification: %v", err)
		writeError(w, http.StatusInternalServerError, "Failed to send verification email")
		return
	}
	s.Limiter.SetCooldown(ctx, cooldownKey, auth.EmailCooldown)

	writeJSON(w, http.StatusOK, map[string]string{
		"message": "If the account exists, a verification email has been sent.",
	})
}

type forgotPasswordRequest struct {
	Email string `json:"email"`
}

func (s *Server) handleForgotPassword(w http.ResponseWriter, r *http.Request) {
	var req forgotPasswordRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	if !validateEmail(req.Email) {
		writeError(w, http.StatusBadRequest, "Invalid email format")
		return
	}

	ctx := r.Context()
	if locked, ttl, err := s.Limiter.RegisterResetAttempt(ctx, req.Email); err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to process request")
		return
	} else if locked {
		writeJSON(w, http.StatusTooManyRequests, map[string]int64{"cooldown": int64(ttl.Seconds())})
		return
	}

	if err := s.Auth.ForgotPassword(ctx, req.Email); err != nil {
		log.Printf("forgot-password: %v", err)
	}

	writeJSON(w, http.StatusOK, map[string]string{
		"message": "If the account exists, a reset link has been sent.",
	})
}

type resetPasswordRequest struct {
	Token    string `json:"token"`
	Password string `json:"password"`
}

func (s *Server) handleResetPassword(w http.ResponseWriter, r *http.Request) {
	var req resetPasswordRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	if req.Token == "" {
		writeError(w, http.StatusBadRequest, "Missing reset token")
		return
	}
	if err := validatePassword(req.Password); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	err := s.Auth.ResetPassword(r.Context(), req.Token, req.Password)
	switch {
	case errors.Is(err, auth.ErrInvalidToken):
		writeError(w, http.StatusBadRequest, "Invalid or expired reset link.")
		return
	case err != nil:
		log.Printf("reset-password: %v", err)
		writeError(w, http.StatusInternalServerError, "Failed to reset password")
		return
	}

	writeJSON(w, http.StatusOK, map[string]string{"message": "Password updated. You can now sign in."})
}
