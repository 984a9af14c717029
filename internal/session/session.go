package session

import (
	"crypto/cipher"
	"crypto/rand"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/google/uuid"
	"golang.org/x/crypto/chacha20poly1305"

	"incubator/internal/auth"
)

const cookieName = "session"

// Session is the client-held capsule. An empty User means unauthenticated;
// readers always get a non-nil handle. The ID survives refreshes, so a
// logout can revoke every copy of the capsule at once.
type Session struct {
	ID         string         `json:"id,omitempty"`
	User       *auth.Snapshot `json:"user,omitempty"`
	LastActive time.Time      `json:"lastActive"`
}

func (s *Session) Authenticated() bool {
	return s != nil && s.User != nil
}

// Manager seals sessions into a tamper-evident cookie. There is no
// server-side session table; the capsule is self-contained and expires
// lazily once the inactivity window elapses.
type Manager struct {
	aead cipher.AEAD
	idle time.Duration

	now func() time.Time
}

func NewManager(secret []byte, idle time.Duration) (*Manager, error) {
	aead, err := chacha20poly1305.New(secret)
	if err != nil {
		return nil, fmt.Errorf("session secret: %w", err)
	}
	if idle <= 0 {
		return nil, fmt.Errorf("inactivity window must be positive")
	}
	return &Manager{aead: aead, idle: idle, now: time.Now}, nil
}

// Read returns the session carried by the request. Missing, tampered,
// undecryptable and idle-expired capsules all come back as an empty
// session, never an error.
func (m *Manager) Read(r *http.Request) *Session {
	cookie, err := r.Cookie(cookieName)
	if err != nil || cookie.Value == "" {
		return &Session{}
	}
	sess, err := m.open(cookie.Value)
	if err != nil {
		return &Session{}
	}
	if m.now().Sub(sess.LastActive) > m.idle {
		return &Session{}
	}
	return sess
}

// Issue starts a session for a freshly authenticated user.
func (m *Manager) Issue(w http.ResponseWriter, user auth.Snapshot) error {
	return m.write(w, &Session{ID: uuid.NewString(), User: &user, LastActive: m.now()})
}

// Refresh re-seals the capsule with a bumped activity timestamp. Calling it
// on every authenticated request is what makes the expiration slide.
func (m *Manager) Refresh(w http.ResponseWriter, sess *Session) error {
	if !sess.Authenticated() {
		return nil
	}
	sess.LastActive = m.now()
	return m.write(w, sess)
}

// Clear removes the cookie from the client. Invalidating copies of the
// capsule that were taken before logout is the RevocationList's job; Clear
// only handles the browser side.
func (m *Manager) Clear(w http.ResponseWriter) {
	http.SetCookie(w, &http.Cookie{
		Name:     cookieName,
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		HttpOnly: true,
		Secure:   true,
	})
}

func (m *Manager) write(w http.ResponseWriter, sess *Session) error {
	sealed, err := m.seal(sess)
	if err != nil {
		return err
	}
	http.SetCookie(w, &http.Cookie{
		Name:     cookieName,
		Value:    sealed,
		Path:     "/",
		HttpOnly: true,
		Secure:   true,
		SameSite: http.SameSiteLaxMode,
		MaxAge:   int(m.idle.Seconds()),
	})
	return nil
}

func (m *Manager) seal(sess *Session) (string, error) {
	plain, err := json.Marshal(sess)
	if err != nil {
		return "", err
	}
	nonce := make([]byte, m.aead.NonceSize())
	if _, err := rand.Read(nonce); err != nil {
		return "", err
	}
	sealed := m.aead.Seal(nonce, nonce, plain, nil)
	return base64.RawURLEncoding.EncodeToString(sealed), nil
}

func (m *Manager) open(val string) (*Session, error) {
	raw, err := base64.RawURLEncoding.DecodeString(val)
	if err != nil {
		return nil, err
	}
	if len(raw) < m.aead.NonceSize() {
		return nil, fmt.Errorf("capsule too short")
	}
	nonce, ciphertext := raw[:m.aead.NonceSize()], raw[m.aead.NonceSize():]
	plain, err := m.aead.Open(nil, nonce, ciphertext, nil)
	if err != nil {
		return nil, err
	}
	var sess Session
	if err := json.Unmarshal(plain, &sess); err != nil {
		return nil, err
	}
	return &sess, nil
}
