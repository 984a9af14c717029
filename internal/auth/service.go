package auth

import (
	"context"
	"fmt"
	"log"
	"time"

	"golang.org/x/crypto/bcrypt"
)

type UserStore interface {
	Create(ctx context.Context, name, email, passwordHash, role string, verified bool) (*User, error)
	FindByEmail(ctx context.Context, email string) (*User, error)
	FindByID(ctx context.Context, id string) (*User, error)
	SetEmailVerified(ctx context.Context, id string) error
	UpdatePassword(ctx context.Context, id, hashed string) error
	SetPasswordReset(ctx context.Context, id, hashedToken string, expires time.Time) error
	FindUserWithResetToken(ctx context.Context, token string) (*User, error)
}

type TokenStore interface {
	Create(ctx context.Context, userID, token string, expires time.Time) (*VerificationToken, error)
	Get(ctx context.Context, token string) (*VerificationToken, error)
	Delete(ctx context.Context, id string) error
	DeleteForUser(ctx context.Context, userID string) error
}

type Mailer interface {
	Send(ctx context.Context, to, subject, text, html string) error
}

// Service owns registration, login, email verification and password
// recovery. Store constraint violations surface here as the domain errors
// from errors.go; callers never see raw storage failures dressed up as
// domain outcomes.
type Service struct {
	Users           UserStore
	Tokens          TokenStore
	Hasher          PasswordHasher
	Mailer          Mailer
	BaseURL         string
	VerificationTTL time.Duration
	ResetTTL        time.Duration

	now func() time.Time
}

func NewService(users UserStore, tokens TokenStore, hasher PasswordHasher, mailer Mailer, baseURL string, verificationTTL, resetTTL time.Duration) *Service {
	return &Service{
		Users:           users,
		Tokens:          tokens,
		Hasher:          hasher,
		Mailer:          mailer,
		BaseURL:         baseURL,
		VerificationTTL: verificationTTL,
		ResetTTL:        resetTTL,
		now:             time.Now,
	}
}

// Register creates an unverified account and mails a verification link.
// Self-registration always yields the user role. A failed email delivery is
// logged but does not undo the registration.
func (s *Service) Register(ctx context.Context, name, email, password string) (*User, error) {
	if name == "" || email == "" || password == "" {
		return nil, ErrMissingFields
	}

	hashed, err := s.Hasher.Hash(password)
	if err != nil {
		return nil, fmt.Errorf("hash password: %w", err)
	}

	user, err := s.Users.Create(ctx, name, email, hashed, RoleUser, false)
	if err != nil {
		return nil, err
	}

	if err := s.issueVerification(ctx, user); err != nil {
		log.Printf("register: verification email for %s failed: %v", user.Email, err)
	}
	return user, nil
}

// Login checks credentials and the verified flag. A missing account and a
// wrong password are indistinguishable to the caller.
func (s *Service) Login(ctx context.Context, email, password string) (*User, error) {
	if email == "" || password == "" {
		return nil, ErrMissingFields
	}

	user, err := s.Users.FindByEmail(ctx, email)
	if err != nil {
		return nil, err
	}
	if user == nil || !s.Hasher.Compare(user.PasswordHash, password) {
		return nil, ErrInvalidCredentials
	}
	if !user.EmailVerified {
		return nil, ErrEmailNotVerified
	}
	return user, nil
}

// RedirectTarget picks the landing page for a fresh session.
func RedirectTarget(role string) string {
	if role == RoleAdmin {
		return "/admin"
	}
	return "/dashboard"
}

// VerifyEmail consumes a verification token. An expired token is deleted
// before the failure is returned, so re-presenting it can only yield
// ErrInvalidToken.
func (s *Service) VerifyEmail(ctx context.Context, token string) (*User, error) {
	if token == "" {
		return nil, ErrInvalidToken
	}

	vt, err := s.Tokens.Get(ctx, token)
	if err != nil {
		return nil, err
	}
	if vt == nil {
		return nil, ErrInvalidToken
	}
	if s.now().After(vt.Expires) {
		if err := s.Tokens.Delete(ctx, vt.ID); err != nil {
			return nil, err
		}
		return nil, ErrTokenExpired
	}

	if err := s.Users.SetEmailVerified(ctx, vt.UserID); err != nil {
		return nil, err
	}
	if err := s.Tokens.Delete(ctx, vt.ID); err != nil {
		return nil, err
	}
	return s.Users.FindByID(ctx, vt.UserID)
}

// ResendVerification issues a fresh token for an unverified account. The
// response is identical whether or not the address exists.
func (s *Service) ResendVerification(ctx context.Context, email string) error {
	if email == "" {
		return ErrMissingFields
	}
	user, err := s.Users.FindByEmail(ctx, email)
	if err != nil {
		return err
	}
	if user == nil || user.EmailVerified {
		return nil
	}
	return s.issueVerification(ctx, user)
}

func (s *Service) issueVerification(ctx context.Context, user *User) error {
	token, err := NewToken()
	if err != nil {
		return err
	}
	expires := s.now().Add(s.VerificationTTL)

	if err := s.Tokens.DeleteForUser(ctx, user.ID); err != nil {
		return err
	}
	if _, err := s.Tokens.Create(ctx, user.ID, token, expires); err != nil {
		return err
	}

	link := fmt.Sprintf("%s/verify-email?token=%s", s.BaseURL, token)
	subject, text, html := verificationEmail(user.Name, link)
	return s.Mailer.Send(ctx, user.Email, subject, text, html)
}

// ForgotPassword mails a reset link when the account exists; callers get
// the same nil either way.
func (s *Service) ForgotPassword(ctx context.Context, email string) error {
	if email == "" {
		return ErrMissingFields
	}
	user, err := s.Users.FindByEmail(ctx, email)
	if err != nil {
		return err
	}
	if user == nil {
		return nil
	}

	token, err := NewToken()
	if err != nil {
		return err
	}
	hashedToken, err := bcrypt.GenerateFromPassword([]byte(token), bcrypt.DefaultCost)
	if err != nil {
		return err
	}
	if err := s.Users.SetPasswordReset(ctx, user.ID, string(hashedToken), s.now().Add(s.ResetTTL)); err != nil {
		return err
	}

	link := fmt.Sprintf("%s/reset-password?token=%s", s.BaseURL, token)
	subject, text, html := passwordResetEmail(user.Name, link)
	return s.Mailer.Send(ctx, user.Email, subject, text, html)
}

func (s *Service) ResetPassword(ctx context.Context, token, newPassword string) error {
	if token == "" || newPassword == "" {
		return ErrMissingFields
	}
	user, err := s.Users.FindUserWithResetToken(ctx, token)
	if err != nil {
		return err
	}
	if user == nil {
		return ErrInvalidToken
	}

	hashed, err := s.Hasher.Hash(newPassword)
	if err != nil {
		return fmt.Errorf("hash password: %w", err)
	}
	return s.Users.UpdatePassword(ctx, user.ID, hashed)
}

func (s *Service) ChangePassword(ctx context.Context, userID, current, newPassword string) error {
	if current == "" || newPassword == "" {
		return ErrMissingFields
	}
	user, err := s.Users.FindByID(ctx, userID)
	if err != nil {
		return err
	}
	if user == nil {
		return ErrNotFound
	}
	if !s.Hasher.Compare(user.PasswordHash, current) {
		return ErrInvalidCredentials
	}

	hashed, err := s.Hasher.Hash(newPassword)
	if err != nil {
		return fmt.Errorf("hash password: %w", err)
	}
	return s.Users.UpdatePassword(ctx, user.ID, hashed)
}
