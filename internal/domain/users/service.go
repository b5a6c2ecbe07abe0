package users

import (
	"context"
	"fmt"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/rs/zerolog"

	"github.com/AlessiaSanfi/EventHub-Project/internal/auth"
)

const resetTokenTTL = 15 * time.Minute

// ResetMailer delivers password reset tokens out of band. Implemented by
// the email service; a disabled mailer logs instead of sending.
type ResetMailer interface {
	SendPasswordReset(ctx context.Context, to, username, token string) error
}

type RegisterParams struct {
	Username string `validate:"required,min=3,max=32,alphanumunicode"`
	Email    string `validate:"required,email"`
	Password string `validate:"required,min=8,max=128"`
}

type LoginParams struct {
	Email    string `validate:"required,email"`
	Password string `validate:"required"`
}

type UpdateParams struct {
	Username string `validate:"required,min=3,max=32,alphanumunicode"`
	Email    string `validate:"required,email"`
}

type ResetPasswordParams struct {
	Token    string `validate:"required"`
	Password string `validate:"required,min=8,max=128"`
}

// AuthResult carries a freshly minted token alongside the user it
// authenticates.
type AuthResult struct {
	User  *User
	Token string
}

type Service struct {
	repo     Repository
	jwt      *auth.JWTManager
	mailer   ResetMailer
	validate *validator.Validate
	logger   zerolog.Logger
}

func NewService(repo Repository, jwt *auth.JWTManager, mailer ResetMailer, logger zerolog.Logger) *Service {
	return &Service{
		repo:     repo,
		jwt:      jwt,
		mailer:   mailer,
		validate: validator.New(validator.WithRequiredStructEnabled()),
		logger:   logger.With().Str("component", "users").Logger(),
	}
}

func (s *Service) Register(ctx context.Context, params RegisterParams) (*AuthResult, error) {
	if err := s.validate.Struct(params); err != nil {
		return nil, fmt.Errorf("validate registration: %w", err)
	}

	hash, err := auth.HashPassword(params.Password)
	if err != nil {
		return nil, fmt.Errorf("hash password: %w", err)
	}

	user, err := s.repo.Create(ctx, CreateParams{
		Username:     params.Username,
		Email:        params.Email,
		PasswordHash: hash,
		Role:         RoleUser,
	})
	if err != nil {
		return nil, err
	}

	token, err := s.jwt.Generate(user.ID, user.Role, user.Username)
	if err != nil {
		return nil, fmt.Errorf("generate token: %w", err)
	}

	s.logger.Info().Str("user_id", user.ID).Str("username", user.Username).Msg("user registered")
	return &AuthResult{User: user, Token: token}, nil
}

func (s *Service) Login(ctx context.Context, params LoginParams) (*AuthResult, error) {
	if err := s.validate.Struct(params); err != nil {
		return nil, fmt.Errorf("validate login: %w", err)
	}

	user, err := s.repo.GetByEmail(ctx, params.Email)
	if err != nil {
		if err == ErrNotFound {
			return nil, ErrInvalidCredentials
		}
		return nil, err
	}
	if err := auth.CheckPassword(user.PasswordHash, params.Password); err != nil {
		return nil, ErrInvalidCredentials
	}
	if user.Role == RoleBlocked {
		return nil, ErrInvalidCredentials
	}

	token, err := s.jwt.Generate(user.ID, user.Role, user.Username)
	if err != nil {
		return nil, fmt.Errorf("generate token: %w", err)
	}

	return &AuthResult{User: user, Token: token}, nil
}

// Role reports the user's current role. Tokens carry the role they were
// minted with, which goes stale when an admin blocks or unblocks the
// account mid-lifetime; callers that enforce access use this instead.
func (s *Service) Role(ctx context.Context, id string) (string, error) {
	user, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return "", err
	}
	return user.Role, nil
}

func (s *Service) Get(ctx context.Context, id string) (*User, error) {
	return s.repo.GetByID(ctx, id)
}

func (s *Service) UpdateProfile(ctx context.Context, id string, params UpdateParams) (*User, error) {
	if err := s.validate.Struct(params); err != nil {
		return nil, fmt.Errorf("validate profile update: %w", err)
	}
	return s.repo.UpdateProfile(ctx, id, UpdateProfileParams{
		Username: params.Username,
		Email:    params.Email,
	})
}

func (s *Service) List(ctx context.Context) ([]User, error) {
	return s.repo.List(ctx)
}

// RequestPasswordReset issues a short-lived token and mails it to the
// account holder. Unknown emails succeed silently so the endpoint does
// not leak which addresses have accounts.
func (s *Service) RequestPasswordReset(ctx context.Context, email string) error {
	user, err := s.repo.GetByEmail(ctx, email)
	if err != nil {
		if err == ErrNotFound {
			s.logger.Debug().Str("email", email).Msg("password reset requested for unknown email")
			return nil
		}
		return err
	}

	token, err := auth.NewResetToken()
	if err != nil {
		return fmt.Errorf("generate reset token: %w", err)
	}

	expiresAt := time.Now().UTC().Add(resetTokenTTL)
	if err := s.repo.SetResetToken(ctx, user.ID, auth.HashResetToken(token), expiresAt); err != nil {
		return fmt.Errorf("store reset token: %w", err)
	}

	if err := s.mailer.SendPasswordReset(ctx, user.Email, user.Username, token); err != nil {
		return fmt.Errorf("send reset email: %w", err)
	}

	s.logger.Info().Str("user_id", user.ID).Msg("password reset token issued")
	return nil
}

// ResetPassword consumes a reset token, replaces the password and logs
// the user straight in with a fresh JWT.
func (s *Service) ResetPassword(ctx context.Context, params ResetPasswordParams) (*AuthResult, error) {
	if err := s.validate.Struct(params); err != nil {
		return nil, fmt.Errorf("validate password reset: %w", err)
	}

	user, err := s.repo.GetByResetTokenHash(ctx, auth.HashResetToken(params.Token))
	if err != nil {
		if err == ErrNotFound {
			return nil, ErrInvalidResetToken
		}
		return nil, err
	}

	hash, err := auth.HashPassword(params.Password)
	if err != nil {
		return nil, fmt.Errorf("hash password: %w", err)
	}
	if err := s.repo.UpdatePassword(ctx, user.ID, hash); err != nil {
		return nil, fmt.Errorf("update password: %w", err)
	}
	if err := s.repo.ClearResetToken(ctx, user.ID); err != nil {
		return nil, fmt.Errorf("clear reset token: %w", err)
	}

	token, err := s.jwt.Generate(user.ID, user.Role, user.Username)
	if err != nil {
		return nil, fmt.Errorf("generate token: %w", err)
	}

	s.logger.Info().Str("user_id", user.ID).Msg("password reset completed")
	return &AuthResult{User: user, Token: token}, nil
}

// ToggleBlock flips a user between the user and blocked roles. Admins
// cannot be blocked and nobody can block themselves.
func (s *Service) ToggleBlock(ctx context.Context, actorID, targetID string) (*User, error) {
	if actorID == targetID {
		return nil, ErrSelfBlock
	}

	target, err := s.repo.GetByID(ctx, targetID)
	if err != nil {
		return nil, err
	}

	var next string
	switch target.Role {
	case RoleAdmin:
		return nil, ErrAdminBlock
	case RoleBlocked:
		next = RoleUser
	default:
		next = RoleBlocked
	}

	if err := s.repo.UpdateRole(ctx, targetID, next); err != nil {
		return nil, err
	}
	target.Role = next

	s.logger.Info().
		Str("actor_id", actorID).
		Str("target_id", targetID).
		Str("role", next).
		Msg("user role toggled")
	return target, nil
}

// AdminIDs satisfies the realtime admin directory so report
// notifications can find every connected administrator.
func (s *Service) AdminIDs(ctx context.Context) ([]string, error) {
	return s.repo.ListIDsByRole(ctx, RoleAdmin)
}
