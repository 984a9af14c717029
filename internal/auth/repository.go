package auth

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgerrcode"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"golang.org/x/crypto/bcrypt"
)

const userColumns = `"id","name","email","password_hash","role","email_verified","password_reset_token","password_reset_expires","created_at","updated_at"`

type UserRepository struct {
	DB *pgxpool.Pool
}

func NewUserRepository(db *pgxpool.Pool) *UserRepository {
	return &UserRepository{DB: db}
}

func (r *UserRepository) Create(ctx context.Context, name, email, passwordHash, role string, verified bool) (*User, error) {
	id := uuid.NewString()

	query := `
		INSERT INTO users ("id","name","email","password_hash","role","email_verified")
		VALUES ($1,$2,$3,$4,$5,$6)
		RETURNING ` + userColumns

	row := r.DB.QueryRow(ctx, query, id, name, email, passwordHash, role, verified)
	user, err := scanUser(row)
	if isUniqueViolation(err) {
		return nil, ErrEmailTaken
	}
	return user, err
}

func (r *UserRepository) FindByEmail(ctx context.Context, email string) (*User, error) {
	row := r.DB.QueryRow(ctx, `SELECT `+userColumns+` FROM users WHERE "email"=$1`, email)
	user, err := scanUser(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	return user, err
}

func (r *UserRepository) FindByID(ctx context.Context, id string) (*User, error) {
	row := r.DB.QueryRow(ctx, `SELECT `+userColumns+` FROM users WHERE "id"=$1`, id)
	user, err := scanUser(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	return user, err
}

func (r *UserRepository) Update(ctx context.Context, id string, upd UserUpdate) (*User, error) {
	if upd.Empty() {
		user, err := r.FindByID(ctx, id)
		if err != nil {
			return nil, err
		}
		if user == nil {
			return nil, ErrNotFound
		}
		return user, nil
	}

	sets := []string{}
	args := []interface{}{}
	idx := 1

	if upd.Name != nil {
		sets = append(sets, fmt.Sprintf(`"name"=$%d`, idx))
		args = append(args, *upd.Name)
		idx++
	}
	if upd.Email != nil {
		sets = append(sets, fmt.Sprintf(`"email"=$%d`, idx))
		args = append(args, *upd.Email)
		idx++
	}
	if upd.Role != nil {
		sets = append(sets, fmt.Sprintf(`"role"=$%d`, idx))
		args = append(args, *upd.Role)
		idx++
	}
	sets = append(sets, `"updated_at"=NOW()`)

	args = append(args, id)
	query := fmt.Sprintf(`UPDATE users SET %s WHERE "id"=$%d RETURNING %s`,
		strings.Join(sets, ","), idx, userColumns)

	row := r.DB.QueryRow(ctx, query, args...)
	user, err := scanUser(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if isUniqueViolation(err) {
		return nil, ErrEmailTaken
	}
	return user, err
}

func (r *UserRepository) UpdatePassword(ctx context.Context, id, hashed string) error {
	_, err := r.DB.Exec(ctx, `
		UPDATE users
		SET "password_hash"=$1,
		    "password_reset_token"=NULL,
		    "password_reset_expires"=NULL,
		    "updated_at"=NOW()
		WHERE "id"=$2
	`, hashed, id)
	return err
}

func (r *UserRepository) SetEmailVerified(ctx context.Context, id string) error {
	_, err := r.DB.Exec(ctx, `UPDATE users SET "email_verified"=TRUE, "updated_at"=NOW() WHERE "id"=$1`, id)
	return err
}

func (r *UserRepository) Delete(ctx context.Context, id string) error {
	_, err := r.DB.Exec(ctx, `DELETE FROM users WHERE "id"=$1`, id)
	return err
}

// List returns one page of users, most recent first, plus the unfiltered
// total for the same role filter. The id tiebreak keeps pagination stable
// when rows share a creation timestamp.
func (r *UserRepository) List(ctx context.Context, role string, page, pageSize int) ([]User, int, error) {
	if page < 1 {
		page = 1
	}
	if pageSize < 1 {
		pageSize = 20
	}
	offset := (page - 1) * pageSize

	var total int
	countQuery := `SELECT COUNT(*) FROM users`
	args := []interface{}{}
	if role != "" {
		countQuery += ` WHERE "role"=$1`
		args = append(args, role)
	}
	if err := r.DB.QueryRow(ctx, countQuery, args...).Scan(&total); err != nil {
		return nil, 0, err
	}

	query := `SELECT ` + userColumns + ` FROM users`
	args = args[:0]
	idx := 1
	if role != "" {
		query += fmt.Sprintf(` WHERE "role"=$%d`, idx)
		args = append(args, role)
		idx++
	}
	query += fmt.Sprintf(` ORDER BY "created_at" DESC, "id" LIMIT $%d OFFSET $%d`, idx, idx+1)
	args = append(args, pageSize, offset)

	rows, err := r.DB.Query(ctx, query, args...)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	var users []User
	for rows.Next() {
		user, err := scanUser(rows)
		if err != nil {
			return nil, 0, err
		}
		users = append(users, *user)
	}
	return users, total, rows.Err()
}

func (r *UserRepository) SetPasswordReset(ctx context.Context, id, hashedToken string, expires time.Time) error {
	_, err := r.DB.Exec(ctx, `
		UPDATE users
		SET "password_reset_token"=$1,
		    "password_reset_expires"=$2
		WHERE "id"=$3
	`, hashedToken, expires, id)
	return err
}

// FindUserWithResetToken compares the presented token against every live
// reset digest. Reset tokens are bcrypt-hashed at rest, so there is no
// column to match directly.
func (r *UserRepository) FindUserWithResetToken(ctx context.Context, token string) (*User, error) {
	rows, err := r.DB.Query(ctx, `
		SELECT `+userColumns+`
		FROM users
		WHERE "password_reset_token" IS NOT NULL AND "password_reset_expires" > NOW()
	`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	for rows.Next() {
		user, err := scanUser(rows)
		if err != nil {
			return nil, err
		}
		if user.PasswordResetToken != nil && bcrypt.CompareHashAndPassword([]byte(*user.PasswordResetToken), []byte(token)) == nil {
			return user, nil
		}
	}
	return nil, rows.Err()
}

func scanUser(row pgx.Row) (*User, error) {
	var u User
	if err := row.Scan(
		&u.ID,
		&u.Name,
		&u.Email,
		&u.PasswordHash,
		&u.Role,
		&u.EmailVerified,
		&u.PasswordResetToken,
		&u.PasswordResetExpires,
		&u.CreatedAt,
		&u.UpdatedAt,
	); err != nil {
		return nil, err
	}
	return &u, nil
}

func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == pgerrcode.UniqueViolation
}
