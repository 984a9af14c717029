package auth

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
)

type memUserStore struct {
	users map[string]*User // by id
}

func newMemUserStore() *memUserStore {
	return &memUserStore{users: map[string]*User{}}
}

func (m *memUserStore) Create(_ context.Context, name, email, passwordHash, role string, verified bool) (*User, error) {
	for _, u := range m.users {
		if strings.EqualFold(u.Email, email) {
			return nil, ErrEmailTaken
		}
	}
	u := &User{
		ID:            uuid.NewString(),
		Name:          name,
		Email:         email,
		PasswordHash:  passwordHash,
		Role:          role,
		EmailVerified: verified,
		CreatedAt:     time.Now(),
	}
	m.users[u.ID] = u
	return u, nil
}

func (m *memUserStore) FindByEmail(_ context.Context, email string) (*User, error) {
	for _, u := range m.users {
		if strings.EqualFold(u.Email, email) {
			copied := *u
			return &copied, nil
		}
	}
	return nil, nil
}

func (m *memUserStore) FindByID(_ context.Context, id string) (*User, error) {
	u, ok := m.users[id]
	if !ok {
		return nil, nil
	}
	copied := *u
	return &copied, nil
}

func (m *memUserStore) SetEmailVerified(_ context.Context, id string) error {
	if u, ok := m.users[id]; ok {
		u.EmailVerified = true
	}
	return nil
}

func (m *memUserStore) UpdatePassword(_ context.Context, id, hashed string) error {
	if u, ok := m.users[id]; ok {
		u.PasswordHash = hashed
		u.PasswordResetToken = nil
		u.PasswordResetExpires = nil
	}
	return nil
}

func (m *memUserStore) SetPasswordReset(_ context.Context, id, hashedToken string, expires time.Time) error {
	if u, ok := m.users[id]; ok {
		u.PasswordResetToken = &hashedToken
		u.PasswordResetExpires = &expires
	}
	return nil
}

func (m *memUserStore) FindUserWithResetToken(_ context.Context, token string) (*User, error) {
	for _, u := range m.users {
		if u.PasswordResetToken == nil || u.PasswordResetExpires == nil {
			continue
		}
		if time.Now().After(*u.PasswordResetExpires) {
			continue
		}
		if bcrypt.CompareHashAndPassword([]byte(*u.PasswordResetToken), []byte(token)) == nil {
			copied := *u
			return &copied, nil
		}
	}
	return nil, nil
}

type memTokenStore struct {
	tokens map[string]*VerificationToken // by id, Token holds the raw value
}

func newMemTokenStore() *memTokenStore {
	return &memTokenStore{tokens: map[string]*VerificationToken{}}
}

func (m *memTokenStore) Create(_ context.Context, userID, token string, expires time.Time) (*VerificationToken, error) {
	vt := &VerificationToken{
		ID:      uuid.NewString(),
		UserID:  userID,
		Token:   token,
		Expires: expires,
	}
	m.tokens[vt.ID] = vt
	return vt, nil
}

func (m *memTokenStore) Get(_ context.Context, token string) (*VerificationToken, error) {
	for _, vt := range m.tokens {
		if vt.Token == token {
			copied := *vt
			return &copied, nil
		}
	}
	return nil, nil
}

func (m *memTokenStore) Delete(_ context.Context, id string) error {
	delete(m.tokens, id)
	return nil
}

func (m *memTokenStore) DeleteForUser(_ context.Context, userID string) error {
	for id, vt := range m.tokens {
		if vt.UserID == userID {
			delete(m.tokens, id)
		}
	}
	return nil
}

func (m *memTokenStore) only(t *testing.T) *VerificationToken {
	t.Helper()
	require.Len(t, m.tokens, 1)
	for _, vt := range m.tokens {
		return vt
	}
	return nil
}

type capturingMailer struct {
	sent  []string // recipient addresses
	texts []string // plain-text bodies
}

func (m *capturingMailer) Send(_ context.Context, to, _, text, _ string) error {
	m.sent = append(m.sent, to)
	m.texts = append(m.texts, text)
	return nil
}

// lastToken pulls the token query parameter out of the link in the most
// recent email body.
func (m *capturingMailer) lastToken(t *testing.T) string {
	t.Helper()
	require.NotEmpty(t, m.texts)
	body := m.texts[len(m.texts)-1]
	idx := strings.Index(body, "token=")
	require.GreaterOrEqual(t, idx, 0)
	token := body[idx+len("token="):]
	if end := strings.IndexAny(token, "\n \t"); end >= 0 {
		token = token[:end]
	}
	return token
}

// plainHasher keeps tests fast; bcrypt has its own coverage.
type plainHasher struct{}

func (plainHasher) Hash(password string) (string, error) { return "plain:" + password, nil }
func (plainHasher) Compare(hash, password string) bool   { return hash == "plain:"+password }

func newTestService() (*Service, *memUserStore, *memTokenStore, *capturingMailer) {
	users := newMemUserStore()
	tokens := newMemTokenStore()
	mailer := &capturingMailer{}
	svc := NewService(users, tokens, plainHasher{}, mailer, "https://incubator.test", 24*time.Hour, time.Hour)
	return svc, users, tokens, mailer
}

func TestRegisterCreatesUnverifiedUserAndSendsEmail(t *testing.T) {
	svc, _, tokens, mailer := newTestService()

	user, err := svc.Register(context.Background(), "Acme", "founder@acme.test", "Secret#123")
	require.NoError(t, err)

	assert.Equal(t, RoleUser, user.Role)
	assert.False(t, user.EmailVerified)
	assert.Equal(t, []string{"founder@acme.test"}, mailer.sent)
	assert.Len(t, tokens.tokens, 1)
}

func TestRegisterRejectsMissingFields(t *testing.T) {
	svc, _, _, _ := newTestService()

	_, err := svc.Register(context.Background(), "", "founder@acme.test", "Secret#123")
	assert.ErrorIs(t, err, ErrMissingFields)
}

func TestRegisterRejectsDuplicateEmail(t *testing.T) {
	svc, _, _, _ := newTestService()
	ctx := context.Background()

	_, err := svc.Register(ctx, "Acme", "founder@acme.test", "Secret#123")
	require.NoError(t, err)

	_, err = svc.Register(ctx, "Other", "founder@acme.test", "Other#456")
	assert.ErrorIs(t, err, ErrEmailTaken)
}

func TestLoginFailuresAreIndistinguishable(t *testing.T) {
	svc, users, _, _ := newTestService()
	ctx := context.Background()

	_, err := svc.Register(ctx, "Acme", "founder@acme.test", "Secret#123")
	require.NoError(t, err)
	for _, u := range users.users {
		u.EmailVerified = true
	}

	_, wrongPassword := svc.Login(ctx, "founder@acme.test", "nope")
	_, noSuchUser := svc.Login(ctx, "ghost@acme.test", "nope")

	assert.ErrorIs(t, wrongPassword, ErrInvalidCredentials)
	assert.ErrorIs(t, noSuchUser, ErrInvalidCredentials)
}

func TestLoginRequiresVerifiedEmail(t *testing.T) {
	svc, _, _, _ := newTestService()
	ctx := context.Background()

	_, err := svc.Register(ctx, "Acme", "founder@acme.test", "Secret#123")
	require.NoError(t, err)

	_, err = svc.Login(ctx, "founder@acme.test", "Secret#123")
	assert.ErrorIs(t, err, ErrEmailNotVerified)
}

func TestVerifyEmailConsumesToken(t *testing.T) {
	svc, _, tokens, _ := newTestService()
	ctx := context.Background()

	_, err := svc.Register(ctx, "Acme", "founder@acme.test", "Secret#123")
	require.NoError(t, err)
	raw := tokens.only(t).Token

	user, err := svc.VerifyEmail(ctx, raw)
	require.NoError(t, err)
	assert.True(t, user.EmailVerified)
	assert.Empty(t, tokens.tokens)

	// Second presentation of the same token is invalid, not expired.
	_, err = svc.VerifyEmail(ctx, raw)
	assert.ErrorIs(t, err, ErrInvalidToken)
}

func TestVerifyEmailUnknownToken(t *testing.T) {
	svc, _, _, _ := newTestService()

	_, err := svc.VerifyEmail(context.Background(), "deadbeef")
	assert.ErrorIs(t, err, ErrInvalidToken)
}

func TestVerifyEmailExpiredTokenIsDeleted(t *testing.T) {
	svc, users, tokens, _ := newTestService()
	ctx := context.Background()

	user, err := svc.Register(ctx, "Acme", "founder@acme.test", "Secret#123")
	require.NoError(t, err)
	raw := tokens.only(t).Token

	// Jump past the 24h TTL; the first attempt reports expiry and burns the
	// token, the second sees nothing at all.
	svc.now = func() time.Time { return time.Now().Add(24*time.Hour + time.Second) }

	_, err = svc.VerifyEmail(ctx, raw)
	assert.ErrorIs(t, err, ErrTokenExpired)
	assert.Empty(t, tokens.tokens)

	_, err = svc.VerifyEmail(ctx, raw)
	assert.ErrorIs(t, err, ErrInvalidToken)
	assert.False(t, users.users[user.ID].EmailVerified)
}

func TestVerifyEmailAtExactExpiryStillWorks(t *testing.T) {
	svc, _, tokens, _ := newTestService()
	ctx := context.Background()

	base := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	svc.now = func() time.Time { return base }

	_, err := svc.Register(ctx, "Acme", "founder@acme.test", "Secret#123")
	require.NoError(t, err)
	raw := tokens.only(t).Token

	// The expiry instant itself is not "after" the deadline.
	svc.now = func() time.Time { return base.Add(24 * time.Hour) }

	user, err := svc.VerifyEmail(ctx, raw)
	require.NoError(t, err)
	assert.True(t, user.EmailVerified)
}

func TestResendVerificationIsSilentForUnknownOrVerified(t *testing.T) {
	svc, users, _, mailer := newTestService()
	ctx := context.Background()

	assert.NoError(t, svc.ResendVerification(ctx, "ghost@acme.test"))
	assert.Empty(t, mailer.sent)

	_, err := svc.Register(ctx, "Acme", "founder@acme.test", "Secret#123")
	require.NoError(t, err)
	for _, u := range users.users {
		u.EmailVerified = true
	}
	mailer.sent = nil

	assert.NoError(t, svc.ResendVerification(ctx, "founder@acme.test"))
	assert.Empty(t, mailer.sent)
}

func TestResendVerificationReplacesToken(t *testing.T) {
	svc, _, tokens, mailer := newTestService()
	ctx := context.Background()

	_, err := svc.Register(ctx, "Acme", "founder@acme.test", "Secret#123")
	require.NoError(t, err)
	first := tokens.only(t).Token

	require.NoError(t, svc.ResendVerification(ctx, "founder@acme.test"))
	second := tokens.only(t).Token

	assert.NotEqual(t, first, second)
	assert.Len(t, mailer.sent, 2)
}

func TestForgotAndResetPassword(t *testing.T) {
	svc, users, _, mailer := newTestService()
	ctx := context.Background()

	user, err := svc.Register(ctx, "Acme", "founder@acme.test", "Secret#123")
	require.NoError(t, err)
	for _, u := range users.users {
		u.EmailVerified = true
	}

	require.NoError(t, svc.ForgotPassword(ctx, "founder@acme.test"))
	token := mailer.lastToken(t)

	require.NoError(t, svc.ResetPassword(ctx, token, "Fresh#456"))
	assert.True(t, plainHasher{}.Compare(users.users[user.ID].PasswordHash, "Fresh#456"))
	assert.Nil(t, users.users[user.ID].PasswordResetToken)

	_, err = svc.Login(ctx, "founder@acme.test", "Fresh#456")
	assert.NoError(t, err)
}

func TestForgotPasswordSilentForUnknownAccount(t *testing.T) {
	svc, _, _, mailer := newTestService()

	assert.NoError(t, svc.ForgotPassword(context.Background(), "ghost@acme.test"))
	assert.Empty(t, mailer.sent)
}

func TestResetPasswordRejectsBadToken(t *testing.T) {
	svc, _, _, _ := newTestService()

	err := svc.ResetPassword(context.Background(), "not-a-real-token", "Fresh#456")
	assert.ErrorIs(t, err, ErrInvalidToken)
}

func TestChangePasswordChecksCurrent(t *testing.T) {
	svc, users, _, _ := newTestService()
	ctx := context.Background()

	user, err := svc.Register(ctx, "Acme", "founder@acme.test", "Secret#123")
	require.NoError(t, err)

	err = svc.ChangePassword(ctx, user.ID, "wrong", "Fresh#456")
	assert.ErrorIs(t, err, ErrInvalidCredentials)

	err = svc.ChangePassword(ctx, user.ID, "Secret#123", "Fresh#456")
	require.NoError(t, err)
	assert.True(t, plainHasher{}.Compare(users.users[user.ID].PasswordHash, "Fresh#456"))
}

func TestRedirectTarget(t *testing.T) {
	assert.Equal(t, "/admin", RedirectTarget(RoleAdmin))
	assert.Equal(t, "/dashboard", RedirectTarget(RoleUser))
	assert.Equal(t, "/dashboard", RedirectTarget(""))
}
