package server

import (
	"context"
	"net/http"
	"net/http/httptest"
	"sort"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"

	"incubator/internal/auth"
	"incubator/internal/config"
	"incubator/internal/session"
)

// In-memory doubles for the stores the HTTP tests exercise. Repositories
// backed by Postgres keep their own semantics; these only have to be
// faithful to the interfaces.

type fakeDirectory struct {
	users map[string]*auth.User
}

func newFakeDirectory() *fakeDirectory {
	return &fakeDirectory{users: map[string]*auth.User{}}
}

func (d *fakeDirectory) Create(_ context.Context, name, email, passwordHash, role string, verified bool) (*auth.User, error) {
	for _, u := range d.users {
		if strings.EqualFold(u.Email, email) {
			return nil, auth.ErrEmailTaken
		}
	}
	u := &auth.User{
		ID:            uuid.NewString(),
		Name:          name,
		Email:         email,
		PasswordHash:  passwordHash,
		Role:          role,
		EmailVerified: verified,
		CreatedAt:     time.Now(),
	}
	d.users[u.ID] = u
	return u, nil
}

func (d *fakeDirectory) FindByEmail(_ context.Context, email string) (*auth.User, error) {
	for _, u := range d.users {
		if strings.EqualFold(u.Email, email) {
			copied := *u
			return &copied, nil
		}
	}
	return nil, nil
}

func (d *fakeDirectory) FindByID(_ context.Context, id string) (*auth.User, error) {
	u, ok := d.users[id]
	if !ok {
		return nil, nil
	}
	copied := *u
	return &copied, nil
}

func (d *fakeDirectory) SetEmailVerified(_ context.Context, id string) error {
	if u, ok := d.users[id]; ok {
		u.EmailVerified = true
	}
	return nil
}

func (d *fakeDirectory) UpdatePassword(_ context.Context, id, hashed string) error {
	if u, ok := d.users[id]; ok {
		u.PasswordHash = hashed
		u.PasswordResetToken = nil
		u.PasswordResetExpires = nil
	}
	return nil
}

func (d *fakeDirectory) SetPasswordReset(_ context.Context, id, hashedToken string, expires time.Time) error {
	if u, ok := d.users[id]; ok {
		u.PasswordResetToken = &hashedToken
		u.PasswordResetExpires = &expires
	}
	return nil
}

func (d *fakeDirectory) FindUserWithResetToken(_ context.Context, _ string) (*auth.User, error) {
	return nil, nil
}

func (d *fakeDirectory) Update(_ context.Context, id string, upd auth.UserUpdate) (*auth.User, error) {
	u, ok := d.users[id]
	if !ok {
		return nil, auth.ErrNotFound
	}
	if upd.Name != nil {
		u.Name = *upd.Name
	}
	if upd.Email != nil {
		u.Email = *upd.Email
	}
	if upd.Role != nil {
		u.Role = *upd.Role
	}
	copied := *u
	return &copied, nil
}

func (d *fakeDirectory) Delete(_ context.Context, id string) error {
	delete(d.users, id)
	return nil
}

// List mirrors the repository contract: newest first with the ID as
// tie-breaker, total counted before the page is cut.
func (d *fakeDirectory) List(_ context.Context, role string, page, pageSize int) ([]auth.User, int, error) {
	var out []auth.User
	for _, u := range d.users {
		if role == "" || u.Role == role {
			out = append(out, *u)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].CreatedAt.After(out[j].CreatedAt)
		}
		return out[i].ID < out[j].ID
	})

	total := len(out)
	start := (page - 1) * pageSize
	if start >= total {
		return nil, total, nil
	}
	end := start + pageSize
	if end > total {
		end = total
	}
	return out[start:end], total, nil
}

type fakeTokens struct {
	tokens map[string]*auth.VerificationToken
}

func newFakeTokens() *fakeTokens {
	return &fakeTokens{tokens: map[string]*auth.VerificationToken{}}
}

func (f *fakeTokens) Create(_ context.Context, userID, token string, expires time.Time) (*auth.VerificationToken, error) {
	vt := &auth.VerificationToken{ID: uuid.NewString(), UserID: userID, Token: token, Expires: expires}
	f.tokens[vt.ID] = vt
	return vt, nil
}

func (f *fakeTokens) Get(_ context.Context, token string) (*auth.VerificationToken, error) {
	for _, vt := range f.tokens {
		if vt.Token == token {
			copied := *vt
			return &copied, nil
		}
	}
	return nil, nil
}

func (f *fakeTokens) Delete(_ context.Context, id string) error {
	delete(f.tokens, id)
	return nil
}

func (f *fakeTokens) DeleteForUser(_ context.Context, userID string) error {
	for id, vt := range f.tokens {
		if vt.UserID == userID {
			delete(f.tokens, id)
		}
	}
	return nil
}

type fakeLimiter struct {
	banned        bool
	locked        bool
	loginFailures int
}

func (f *fakeLimiter) IsIPBanned(context.Context, string) bool { return f.banned }

func (f *fakeLimiter) RegisterLoginFailure(context.Context, string) error {
	f.loginFailures++
	return nil
}

func (f *fakeLimiter) ResetLogin(context.Context, string) {}

func (f *fakeLimiter) RegisterVerifyAttempt(context.Context, string) (bool, time.Duration, error) {
	return f.locked, 0, nil
}

func (f *fakeLimiter) RegisterResetAttempt(context.Context, string) (bool, time.Duration, error) {
	return f.locked, 0, nil
}

func (f *fakeLimiter) RegisterRegisterAttempt(context.Context, string, string) (bool, time.Duration, error) {
	return f.locked, 0, nil
}

func (f *fakeLimiter) CooldownTTL(context.Context, string) time.Duration { return 0 }

func (f *fakeLimiter) SetCooldown(context.Context, string, time.Duration) {}

type fakeRevoker struct {
	revoked map[string]bool
}

func newFakeRevoker() *fakeRevoker {
	return &fakeRevoker{revoked: map[string]bool{}}
}

func (f *fakeRevoker) Revoke(_ context.Context, id string) error {
	f.revoked[id] = true
	return nil
}

func (f *fakeRevoker) IsRevoked(_ context.Context, id string) (bool, error) {
	if id == "" {
		return true, nil
	}
	return f.revoked[id], nil
}

type fakeMailer struct {
	sent  []string
	texts []string
}

func (m *fakeMailer) Send(_ context.Context, to, _, text, _ string) error {
	m.sent = append(m.sent, to)
	m.texts = append(m.texts, text)
	return nil
}

func (m *fakeMailer) lastToken(t *testing.T) string {
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

type plainHasher struct{}

func (plainHasher) Hash(password string) (string, error) { return "plain:" + password, nil }
func (plainHasher) Compare(hash, password string) bool   { return hash == "plain:"+password }

type testEnv struct {
	server  *Server
	handler http.Handler
	dir     *fakeDirectory
	limiter *fakeLimiter
	mailer  *fakeMailer
	revoker *fakeRevoker
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()

	cfg := config.Config{
		BaseURL:       "https://incubator.test",
		SessionSecret: []byte("0123456789abcdef0123456789abcdef"),
		SessionIdle:   30 * time.Minute,
	}

	dir := newFakeDirectory()
	tokens := newFakeTokens()
	limiter := &fakeLimiter{}
	mailer := &fakeMailer{}
	revoker := newFakeRevoker()
	hasher := plainHasher{}

	sessions, err := session.NewManager(cfg.SessionSecret, cfg.SessionIdle)
	require.NoError(t, err)

	authSvc := auth.NewService(dir, tokens, hasher, mailer, cfg.BaseURL, 24*time.Hour, time.Hour)

	srv := NewServer(cfg, Deps{
		Auth:     authSvc,
		Users:    dir,
		Sessions: sessions,
		Revoked:  revoker,
		Limiter:  limiter,
		Hasher:   hasher,
		Mailer:   mailer,
	})

	return &testEnv{
		server:  srv,
		handler: srv.Router(),
		dir:     dir,
		limiter: limiter,
		mailer:  mailer,
		revoker: revoker,
	}
}

func (e *testEnv) do(method, path, body string, cookies []*http.Cookie) *httptest.ResponseRecorder {
	var req *http.Request
	if body != "" {
		req = httptest.NewRequest(method, path, strings.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
	} else {
		req = httptest.NewRequest(method, path, nil)
	}
	for _, c := range cookies {
		req.AddCookie(&http.Cookie{Name: c.Name, Value: c.Value})
	}
	rec := httptest.NewRecorder()
	e.handler.ServeHTTP(rec, req)
	return rec
}

func sessionCookies(rec *httptest.ResponseRecorder) []*http.Cookie {
	return rec.Result().Cookies()
}
