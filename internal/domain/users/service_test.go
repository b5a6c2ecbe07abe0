package users

import (
	"context"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"

	"github.com/AlessiaSanfi/EventHub-Project/internal/auth"
)

type stubRepo struct {
	Repository

	createFn          func(ctx context.Context, params CreateParams) (*User, error)
	getByIDFn         func(ctx context.Context, id string) (*User, error)
	getByEmailFn      func(ctx context.Context, email string) (*User, error)
	updateRoleFn      func(ctx context.Context, id string, role string) error
	updatePasswordFn  func(ctx context.Context, id string, hash string) error
	setResetTokenFn   func(ctx context.Context, id string, tokenHash string, expiresAt time.Time) error
	getByResetTokenFn func(ctx context.Context, tokenHash string) (*User, error)
	clearResetTokenFn func(ctx context.Context, id string) error
	listIDsByRoleFn   func(ctx context.Context, role string) ([]string, error)
}

func (s *stubRepo) Create(ctx context.Context, params CreateParams) (*User, error) {
	return s.createFn(ctx, params)
}

func (s *stubRepo) GetByID(ctx context.Context, id string) (*User, error) {
	return s.getByIDFn(ctx, id)
}

func (s *stubRepo) GetByEmail(ctx context.Context, email string) (*User, error) {
	return s.getByEmailFn(ctx, email)
}

func (s *stubRepo) UpdateRole(ctx context.Context, id string, role string) error {
	return s.updateRoleFn(ctx, id, role)
}

func (s *stubRepo) UpdatePassword(ctx context.Context, id string, hash string) error {
	return s.updatePasswordFn(ctx, id, hash)
}

func (s *stubRepo) SetResetToken(ctx context.Context, id string, tokenHash string, expiresAt time.Time) error {
	return s.setResetTokenFn(ctx, id, tokenHash, expiresAt)
}

func (s *stubRepo) GetByResetTokenHash(ctx context.Context, tokenHash string) (*User, error) {
	return s.getByResetTokenFn(ctx, tokenHash)
}

func (s *stubRepo) ClearResetToken(ctx context.Context, id string) error {
	return s.clearResetTokenFn(ctx, id)
}

func (s *stubRepo) ListIDsByRole(ctx context.Context, role string) ([]string, error) {
	return s.listIDsByRoleFn(ctx, role)
}

type stubMailer struct {
	sent  int
	to    string
	token string
	err   error
}

func (m *stubMailer) SendPasswordReset(ctx context.Context, to, username, token string) error {
	m.sent++
	m.to = to
	m.token = token
	return m.err
}

func newTestService(repo Repository, mailer ResetMailer) *Service {
	jwt := auth.NewJWTManager("test-secret", time.Hour, "eventhub-test")
	return NewService(repo, jwt, mailer, zerolog.Nop())
}

func TestRegisterHashesPasswordAndIssuesToken(t *testing.T) {
	var created CreateParams
	repo := &stubRepo{
		createFn: func(ctx context.Context, params CreateParams) (*User, error) {
			created = params
			return &User{ID: "u1", Username: params.Username, Email: params.Email, Role: params.Role}, nil
		},
	}
	svc := newTestService(repo, &stubMailer{})

	result, err := svc.Register(context.Background(), RegisterParams{
		Username: "alice",
		Email:    "alice@example.com",
		Password: "correct-horse",
	})

	require.NoError(t, err)
	require.Equal(t, RoleUser, created.Role)
	require.NotEqual(t, "correct-horse", created.PasswordHash)
	require.NoError(t, auth.CheckPassword(created.PasswordHash, "correct-horse"))
	require.NotEmpty(t, result.Token)
	require.Equal(t, "u1", result.User.ID)
}

func TestRegisterRejectsInvalidInput(t *testing.T) {
	svc := newTestService(&stubRepo{}, &stubMailer{})

	_, err := svc.Register(context.Background(), RegisterParams{
		Username: "al",
		Email:    "not-an-email",
		Password: "short",
	})
	require.Error(t, err)
}

func TestRegisterPropagatesDuplicateEmail(t *testing.T) {
	repo := &stubRepo{
		createFn: func(ctx context.Context, params CreateParams) (*User, error) {
			return nil, ErrEmailTaken
		},
	}
	svc := newTestService(repo, &stubMailer{})

	_, err := svc.Register(context.Background(), RegisterParams{
		Username: "alice",
		Email:    "alice@example.com",
		Password: "correct-horse",
	})
	require.ErrorIs(t, err, ErrEmailTaken)
}

func TestLoginWrongPassword(t *testing.T) {
	hash, err := auth.HashPassword("right-password")
	require.NoError(t, err)
	repo := &stubRepo{
		getByEmailFn: func(ctx context.Context, email string) (*User, error) {
			return &User{ID: "u1", Email: email, PasswordHash: hash, Role: RoleUser}, nil
		},
	}
	svc := newTestService(repo, &stubMailer{})

	_, err = svc.Login(context.Background(), LoginParams{Email: "a@b.com", Password: "wrong-password"})
	require.ErrorIs(t, err, ErrInvalidCredentials)
}

func TestLoginUnknownEmailLooksLikeBadCredentials(t *testing.T) {
	repo := &stubRepo{
		getByEmailFn: func(ctx context.Context, email string) (*User, error) {
			return nil, ErrNotFound
		},
	}
	svc := newTestService(repo, &stubMailer{})

	_, err := svc.Login(context.Background(), LoginParams{Email: "a@b.com", Password: "whatever-pass"})
	require.ErrorIs(t, err, ErrInvalidCredentials)
}

func TestLoginBlockedUserRejected(t *testing.T) {
	hash, err := auth.HashPassword("right-password")
	require.NoError(t, err)
	repo := &stubRepo{
		getByEmailFn: func(ctx context.Context, email string) (*User, error) {
			return &User{ID: "u1", Email: email, PasswordHash: hash, Role: RoleBlocked}, nil
		},
	}
	svc := newTestService(repo, &stubMailer{})

	_, err = svc.Login(context.Background(), LoginParams{Email: "a@b.com", Password: "right-password"})
	require.ErrorIs(t, err, ErrInvalidCredentials)
}

func TestRequestPasswordResetUnknownEmailSilent(t *testing.T) {
	mailer := &stubMailer{}
	repo := &stubRepo{
		getByEmailFn: func(ctx context.Context, email string) (*User, error) {
			return nil, ErrNotFound
		},
	}
	svc := newTestService(repo, mailer)

	err := svc.RequestPasswordReset(context.Background(), "ghost@example.com")
	require.NoError(t, err)
	require.Zero(t, mailer.sent)
}

func TestRequestPasswordResetStoresHashNotToken(t *testing.T) {
	mailer := &stubMailer{}
	var storedHash string
	var storedExpiry time.Time
	repo := &stubRepo{
		getByEmailFn: func(ctx context.Context, email string) (*User, error) {
			return &User{ID: "u1", Email: email, Username: "alice", Role: RoleUser}, nil
		},
		setResetTokenFn: func(ctx context.Context, id string, tokenHash string, expiresAt time.Time) error {
			storedHash = tokenHash
			storedExpiry = expiresAt
			return nil
		},
	}
	svc := newTestService(repo, mailer)

	err := svc.RequestPasswordReset(context.Background(), "alice@example.com")
	require.NoError(t, err)
	require.Equal(t, 1, mailer.sent)
	require.NotEmpty(t, mailer.token)
	require.NotEqual(t, mailer.token, storedHash)
	require.Equal(t, auth.HashResetToken(mailer.token), storedHash)
	require.WithinDuration(t, time.Now().UTC().Add(15*time.Minute), storedExpiry, time.Minute)
}

func TestResetPasswordInvalidToken(t *testing.T) {
	repo := &stubRepo{
		getByResetTokenFn: func(ctx context.Context, tokenHash string) (*User, error) {
			return nil, ErrNotFound
		},
	}
	svc := newTestService(repo, &stubMailer{})

	_, err := svc.ResetPassword(context.Background(), ResetPasswordParams{Token: "bad", Password: "new-password-1"})
	require.ErrorIs(t, err, ErrInvalidResetToken)
}

func TestResetPasswordUpdatesAndClearsToken(t *testing.T) {
	var newHash string
	cleared := false
	repo := &stubRepo{
		getByResetTokenFn: func(ctx context.Context, tokenHash string) (*User, error) {
			return &User{ID: "u1", Username: "alice", Role: RoleUser}, nil
		},
		updatePasswordFn: func(ctx context.Context, id string, hash string) error {
			newHash = hash
			return nil
		},
		clearResetTokenFn: func(ctx context.Context, id string) error {
			cleared = true
			return nil
		},
	}
	svc := newTestService(repo, &stubMailer{})

	result, err := svc.ResetPassword(context.Background(), ResetPasswordParams{Token: "token", Password: "new-password-1"})
	require.NoError(t, err)
	require.True(t, cleared)
	require.NoError(t, auth.CheckPassword(newHash, "new-password-1"))
	require.NotEmpty(t, result.Token)
}

func TestRoleReportsCurrentRole(t *testing.T) {
	repo := &stubRepo{
		getByIDFn: func(ctx context.Context, id string) (*User, error) {
			return &User{ID: id, Role: RoleBlocked}, nil
		},
	}
	svc := newTestService(repo, &stubMailer{})

	role, err := svc.Role(context.Background(), "u1")
	require.NoError(t, err)
	require.Equal(t, RoleBlocked, role)
}

func TestRoleUnknownUser(t *testing.T) {
	repo := &stubRepo{
		getByIDFn: func(ctx context.Context, id string) (*User, error) {
			return nil, ErrNotFound
		},
	}
	svc := newTestService(repo, &stubMailer{})

	_, err := svc.Role(context.Background(), "ghost")
	require.ErrorIs(t, err, ErrNotFound)
}

func TestToggleBlockFlipsRoles(t *testing.T) {
	var updatedRole string
	repo := &stubRepo{
		getByIDFn: func(ctx context.Context, id string) (*User, error) {
			return &User{ID: id, Role: RoleUser}, nil
		},
		updateRoleFn: func(ctx context.Context, id string, role string) error {
			updatedRole = role
			return nil
		},
	}
	svc := newTestService(repo, &stubMailer{})

	user, err := svc.ToggleBlock(context.Background(), "admin-1", "u1")
	require.NoError(t, err)
	require.Equal(t, RoleBlocked, updatedRole)
	require.Equal(t, RoleBlocked, user.Role)
}

func TestToggleBlockUnblocks(t *testing.T) {
	repo := &stubRepo{
		getByIDFn: func(ctx context.Context, id string) (*User, error) {
			return &User{ID: id, Role: RoleBlocked}, nil
		},
		updateRoleFn: func(ctx context.Context, id string, role string) error {
			return nil
		},
	}
	svc := newTestService(repo, &stubMailer{})

	user, err := svc.ToggleBlock(context.Background(), "admin-1", "u1")
	require.NoError(t, err)
	require.Equal(t, RoleUser, user.Role)
}

func TestToggleBlockSelfForbidden(t *testing.T) {
	svc := newTestService(&stubRepo{}, &stubMailer{})

	_, err := svc.ToggleBlock(context.Background(), "admin-1", "admin-1")
	require.ErrorIs(t, err, ErrSelfBlock)
}

func TestToggleBlockAdminForbidden(t *testing.T) {
	repo := &stubRepo{
		getByIDFn: func(ctx context.Context, id string) (*User, error) {
			return &User{ID: id, Role: RoleAdmin}, nil
		},
	}
	svc := newTestService(repo, &stubMailer{})

	_, err := svc.ToggleBlock(context.Background(), "admin-1", "admin-2")
	require.ErrorIs(t, err, ErrAdminBlock)
}

func TestAdminIDs(t *testing.T) {
	repo := &stubRepo{
		listIDsByRoleFn: func(ctx context.Context, role string) ([]string, error) {
			require.Equal(t, RoleAdmin, role)
			return []string{"a1", "a2"}, nil
		},
	}
	svc := newTestService(repo, &stubMailer{})

	ids, err := svc.AdminIDs(context.Background())
	require.NoError(t, err)
	require.Equal(t, []string{"a1", "a2"}, ids)
}
