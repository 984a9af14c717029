package auth

import (
	"context"
	"crypto/rand"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// TokenRepository persists single-use email-verification tokens. Only the
// SHA-256 digest of a token is stored; the plaintext leaves the process in
// the verification email and nowhere else.
type TokenRepository struct {
	DB *pgxpool.Pool
}

func NewTokenRepository(db *pgxpool.Pool) *TokenRepository {
	return &TokenRepository{DB: db}
}

func (r *TokenRepository) Create(ctx context.Context, userID, token string, expires time.Time) (*VerificationToken, error) {
	id := uuid.NewString()
	_, err := r.DB.Exec(ctx, `
		INSERT INTO verification_tokens ("id","user_id","token","expires")
		VALUES ($1,$2,$3,$4)
	`, id, userID, HashString(token), expires)
	if err != nil {
		return nil, err
	}
	return &VerificationToken{ID: id, UserID: userID, Token: token, Expires: expires}, nil
}

// Get looks a token up by value, expired rows included; expiry handling
// belongs to the caller so cleanup and failure stay ordered.
func (r *TokenRepository) Get(ctx context.Context, token string) (*VerificationToken, error) {
	row := r.DB.QueryRow(ctx, `
		SELECT "id","user_id","token","expires","created_at"
		FROM verification_tokens
		WHERE "token"=$1
	`, HashString(token))

	var vt VerificationToken
	if err := row.Scan(&vt.ID, &vt.UserID, &vt.Token, &vt.Expires, &vt.CreatedAt); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	return &vt, nil
}

func (r *TokenRepository) Delete(ctx context.Context, id string) error {
	_, err := r.DB.Exec(ctx, `DELETE FROM verification_tokens WHERE "id"=$1`, id)
	return err
}

func (r *TokenRepository) DeleteForUser(ctx context.Context, userID string) error {
	_, err := r.DB.Exec(ctx, `DELETE FROM verification_tokens WHERE "user_id"=$1`, userID)
	return err
}

// HashString returns a hex-encoded SHA-256 digest for token storage.
func HashString(s string) string {
	sum := sha256.Sum256([]byte(s))
	return hex.EncodeToString(sum[:])
}

// NewToken returns a fresh random token string (256 bits, hex).
func NewToken() (string, error) {
	buf := make([]byte, 32)
	if _, err := rand.Read(buf); err != nil {
		return "", err
	}
	return hex.EncodeToString(buf), nil
}
