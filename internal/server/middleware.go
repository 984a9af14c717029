package server

import (
	"context"
	"log"
	"net/http"

	"incubator/internal/auth"
	"incubator/internal/session"
)

type ctxKey string

const sessionContextKey ctxKey = "session"

// requireSession is the authentication guard: no valid capsule means 401,
// and a capsule revoked by logout is refused even though it still decrypts.
// Reading an active session re-seals it with a fresh activity timestamp,
// which is what keeps the inactivity window sliding.
func (s *Server) requireSession(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		sess := s.Sessions.Read(r)
		if !sess.Authenticated() {
			writeError(w, http.StatusUnauthorized, "Unauthorized")
			return
		}

		revoked, err := s.Revoked.IsRevoked(r.Context(), sess.ID)
		if err != nil {
			log.Printf("session revocation check failed: %v", err)
			writeError(w, http.StatusInternalServerError, "Failed to check session")
			return
		}
		if revoked {
			writeError(w, http.StatusUnauthorized, "Unauthorized")
			return
		}

		if err := s.Sessions.Refresh(w, sess); err != nil {
			log.Printf("session refresh failed: %v", err)
			writeError(w, http.StatusInternalServerError, "Failed to refresh session")
			return
		}

		ctx := context.WithValue(r.Context(), sessionContextKey, sess)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// requireAdmin distinguishes the two failure modes deliberately: 401 tells
// the client to log in, 403 tells an authenticated client it is not
// allowed.
func (s *Server) requireAdmin(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		sess := sessionFromContext(r.Context())
		if sess == nil {
			writeError(w, http.StatusUnauthorized, "Unauthorized")
			return
		}
		if sess.User.Role != auth.RoleAdmin {
			writeError(w, http.StatusForbidden, "Forbidden")
			return
		}
		next.ServeHTTP(w, r)
	})
}

func sessionFromContext(ctx context.Context) *session.Session {
	if val, ok := ctx.Value(sessionContextKey).(*session.Session); ok && val.Authenticated() {
		return val
	}
	return nil
}
