package users

import (
	"context"
	"errors"
	"time"
)

// Roles. A blocked user keeps their account but can no longer authenticate.
const (
	RoleUser    = "user"
	RoleAdmin   = "admin"
	RoleBlocked = "blocked"
)

var (
	ErrNotFound           = errors.New("user not found")
	ErrEmailTaken         = errors.New("email is already taken")
	ErrUsernameTaken      = errors.New("username is already taken")
	ErrInvalidCredentials = errors.New("invalid credentials")
	ErrInvalidResetToken  = errors.New("invalid or expired reset token")
	ErrSelfBlock          = errors.New("cannot block your own account")
	ErrAdminBlock         = errors.New("cannot block an administrator")
)

type User struct {
	ID           string
	Username     string
	Email        string
	PasswordHash string
	Role         string
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

type CreateParams struct {
	Username     string
	Email        string
	PasswordHash string
	Role         string
}

type UpdateProfileParams struct {
	Username string
	Email    string
}

// Repository is the persistence contract for users, implemented by
// storage/postgres.
type Repository interface {
	Create(ctx context.Context, params CreateParams) (*User, error)
	GetByID(ctx context.Context, id string) (*User, error)
	GetByEmail(ctx context.Context, email string) (*User, error)
	GetByUsername(ctx context.Context, username string) (*User, error)
	List(ctx context.Context) ([]User, error)
	ListIDsByRole(ctx context.Context, role string) ([]string, error)
	UpdateProfile(ctx context.Context, id string, params UpdateProfileParams) (*User, error)
	UpdateRole(ctx context.Context, id string, role string) error
	UpdatePassword(ctx context.Context, id string, passwordHash string) error
	SetResetToken(ctx context.Context, id string, tokenHash string, expiresAt time.Time) error
	GetByResetTokenHash(ctx context.Context, tokenHash string) (*User, error)
	ClearResetToken(ctx context.Context, id string) error
}
