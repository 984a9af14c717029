package auth

import "time"

const (
	RoleUser  = "user"
	RoleAdmin = "admin"
)

type User struct {
	ID                   string
	Name                 string
	Email                string
	PasswordHash         string
	Role                 string
	EmailVerified        bool
	PasswordResetToken   *string
	PasswordResetExpires *time.Time
	CreatedAt            time.Time
	UpdatedAt            time.Time
}

// Snapshot is the denormalized user copy embedded in a session capsule.
// It is valid for the session's lifetime only; role changes made after
// login take effect on the next authentication.
type Snapshot struct {
	ID            string `json:"id"`
	Email         string `json:"email"`
	Name          string `json:"name"`
	Role          string `json:"role"`
	EmailVerified bool   `json:"emailVerified"`
}

func (u *User) Snapshot() Snapshot {
	return Snapshot{
		ID:            u.ID,
		Email:         u.Email,
		Name:          u.Name,
		Role:          u.Role,
		EmailVerified: u.EmailVerified,
	}
}

type VerificationToken struct {
	ID        string
	UserID    string
	Token     string
	Expires   time.Time
	CreatedAt time.Time
}

// UserUpdate carries an admin edit; nil fields are left untouched.
type UserUpdate struct {
	Name  *string
	Email *string
	Role  *string
}

func (u UserUpdate) Empty() bool {
	return u.Name == nil && u.Email == nil && u.Role == nil
}

func ValidRole(role string) bool {
	return role == RoleUser || role == RoleAdmin
}
