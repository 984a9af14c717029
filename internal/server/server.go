package server

import (
	"context"
	"log"
	"net"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"incubator/internal/analyzer"
	"incubator/internal/auth"
	"incubator/internal/config"
	"incubator/internal/incubator"
	"incubator/internal/session"
)

// UserDirectory is the admin-facing view of the credential store, on top
// of what the authentication service itself needs.
type UserDirectory interface {
	auth.UserStore
	Update(ctx context.Context, id string, upd auth.UserUpdate) (*auth.User, error)
	Delete(ctx context.Context, id string) error
	List(ctx context.Context, role string, page, pageSize int) ([]auth.User, int, error)
}

// SessionRevoker vetoes sealed capsules after logout. The capsule itself
// cannot be recalled from clients, so a replayed copy has to be refused by
// ID on the server.
type SessionRevoker interface {
	Revoke(ctx context.Context, id string) error
	IsRevoked(ctx context.Context, id string) (bool, error)
}

// Limiter is the slice of the rate limiter the handlers call.
type Limiter interface {
	IsIPBanned(ctx context.Context, ip string) bool
	RegisterLoginFailure(ctx context.Context, ip string) error
	ResetLogin(ctx context.Context, ip string)
	RegisterVerifyAttempt(ctx context.Context, ip string) (bool, time.Duration, error)
	RegisterResetAttempt(ctx context.Context, email string) (bool, time.Duration, error)
	RegisterRegisterAttempt(ctx context.Context, email, ip string) (bool, time.Duration, error)
	CooldownTTL(ctx context.Context, key string) time.Duration
	SetCooldown(ctx context.Context, key string, ttl time.Duration)
}

type Server struct {
	Config       config.Config
	Auth         *auth.Service
	Users        UserDirectory
	Sessions     *session.Manager
	Revoked      SessionRevoker
	Limiter      Limiter
	Hasher       auth.PasswordHasher
	Mailer       auth.Mailer
	Tasks        *incubator.TaskRepository
	Trainings    *incubator.TrainingRepository
	Applications *incubator.ApplicationRepository
	Content      *incubator.ContentRepository
	Analyzer     analyzer.Analyzer

	trustedProxies []net.IPNet
}

type Deps struct {
	Auth         *auth.Service
	Users        UserDirectory
	Sessions     *session.Manager
	Revoked      SessionRevoker
	Limiter      Limiter
	Hasher       auth.PasswordHasher
	Mailer       auth.Mailer
	Tasks        *incubator.TaskRepository
	Trainings    *incubator.TrainingRepository
	Applications *incubator.ApplicationRepository
	Content      *incubator.ContentRepository
	Analyzer     analyzer.Analyzer
}

func NewServer(cfg config.Config, deps Deps) *Server {
	return &Server{
		Config:         cfg,
		Auth:           deps.Auth,
		Users:          deps.Users,
		Sessions:       deps.Sessions,
		Revoked:        deps.Revoked,
		Limiter:        deps.Limiter,
		Hasher:         deps.Hasher,
		Mailer:         deps.Mailer,
		Tasks:          deps.Tasks,
		Trainings:      deps.Trainings,
		Applications:   deps.Applications,
		Content:        deps.Content,
		Analyzer:       deps.Analyzer,
		trustedProxies: parseProxyCIDRs(cfg.TrustedProxies),
	}
}

func (s *Server) Router() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	formatter := &middleware.DefaultLogFormatter{
		Logger:  log.New(log.Writer(), "", log.Flags()),
		NoColor: true,
	}
	r.Use(middleware.RequestLogger(formatter))
	r.Use(middleware.Recoverer)
	r.Use(secureHeaders)

	r.Post("/api/register", s.handleRegister)
	r.Post("/api/auth/login", s.handleLogin)
	r.Post("/api/auth/logout", s.handleLogout)
	r.Get("/api/verify-email", s.handleVerifyEmail)
	r.Post("/api/resend-verification", s.handleResendVerification)
	r.Post("/api/forgot-password", s.handleForgotPassword)
	r.Post("/api/reset-password", s.handleResetPassword)

	r.Get("/api/news", s.handleListNews)
	r.Get("/api/news/{id}", s.handleGetNews)
	r.Post("/api/contact", s.handleContact)

	r.Group(func(pr chi.Router) {
		pr.Use(s.requireSession)

		pr.Get("/api/auth/me", s.handleMe)
		pr.Post("/api/profile/update-profile", s.handleUpdateProfile)
		pr.Post("/api/profile/change-password", s.handleChangePassword)

		pr.Get("/api/tasks", s.handleListTasks)
		pr.Post("/api/tasks", s.handleCreateTask)
		pr.Patch("/api/tasks/{id}", s.handleUpdateTask)
		pr.Delete("/api/tasks/{id}", s.handleDeleteTask)
		pr.Get("/api/calendar", s.handleCalendar)

		pr.Get("/api/trainings", s.handleListTrainings)
		pr.Post("/api/trainings/{id}/enroll", s.handleEnroll)
		pr.Delete("/api/trainings/{id}/enroll", s.handleWithdraw)

		pr.Get("/api/applications", s.handleListMyApplications)
		pr.Post("/api/applications", s.handleSubmitApplication)
	})

	r.Group(func(ar chi.Router) {
		ar.Use(s.requireSession)
		ar.Use(s.requireAdmin)

		ar.Get("/api/admin/users", s.handleAdminListUsers)
		ar.Post("/api/admin/users", s.handleAdminCreateUser)
		ar.Patch("/api/admin/users/{id}", s.handleAdminUpdateUser)
		ar.Delete("/api/admin/users/{id}", s.handleAdminDeleteUser)
		ar.Post("/api/admin/users/{id}/resend-verification", s.handleAdminResendVerification)

		ar.Get("/api/admin/trainings", s.handleAdminListTrainings)
		ar.Post("/api/admin/trainings", s.handleAdminCreateTraining)
		ar.Patch("/api/admin/trainings/{id}", s.handleAdminUpdateTraining)
		ar.Delete("/api/admin/trainings/{id}", s.handleAdminDeleteTraining)

		ar.Get("/api/admin/applications", s.handleAdminListApplications)
		ar.Get("/api/admin/applications/{id}", s.handleAdminGetApplication)
		ar.Patch("/api/admin/applications/{id}", s.handleAdminUpdateApplication)
		ar.Delete("/api/admin/applications/{id}", s.handleAdminDeleteApplication)
		ar.Post("/api/admin/applications/{id}/analyze", s.handleAdminAnalyzeApplication)
		ar.Post("/api/admin/applications/{id}/send-result", s.handleAdminSendResult)

		ar.Get("/api/admin/news", s.handleAdminListNews)
		ar.Post("/api/admin/news", s.handleAdminCreateNews)
		ar.Patch("/api/admin/news/{id}", s.handleAdminUpdateNews)
		ar.Delete("/api/admin/news/{id}", s.handleAdminDeleteNews)
		ar.Post("/api/admin/news/{id}/publish", s.handleAdminPublishNews)

		ar.Get("/api/admin/contact-messages", s.handleAdminListContactMessages)
	})

	return r
}
