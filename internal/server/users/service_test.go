package users

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/graduationparty/auth-service/internal/apperror"
	"github.com/graduationparty/auth-service/internal/logging"
)

func discardLogger() logging.Logger {
	return logging.NewSlogLogger(slog.New(slog.NewTextHandler(io.Discard, nil)))
}

// fakeRepo counts calls so tests can assert that validation failures and open
// breakers never reach the repository.
type fakeRepo struct {
	calls int

	createID  string
	createErr error
	token     *AccessToken
	authErr   error
	user      *User
	findErr   error
	users     []User
	listErr   error
	total     int64
	countErr  error
	updateErr error
	deleteErr error
}

func (f *fakeRepo) CreateUser(ctx context.Context, user User, photo *Photo) (string, error) {
	f.calls++
	return f.createID, f.createErr
}

func (f *fakeRepo) AuthenticateUser(ctx context.Context, username, password string) (*AccessToken, error) {
	f.calls++
	return f.token, f.authErr
}

func (f *fakeRepo) FindUserByID(ctx context.Context, id string) (*User, error) {
	f.calls++
	if f.findErr != nil {
		return nil, f.findErr
	}
	u := *f.user
	u.ID = id
	return &u, nil
}

func (f *fakeRepo) FindAllUsers(ctx context.Context, page, size int) ([]User, error) {
	f.calls++
	return f.users, f.listErr
}

func (f *fakeRepo) CountUsers(ctx context.Context) (int64, error) {
	f.calls++
	return f.total, f.countErr
}

func (f *fakeRepo) UpdateUser(ctx context.Context, id string, user User) (*User, error) {
	f.calls++
	if f.updateErr != nil {
		return nil, f.updateErr
	}
	u := user
	u.ID = id
	return &u, nil
}

func (f *fakeRepo) DeleteUser(ctx context.Context, id string) error {
	f.calls++
	return f.deleteErr
}

func newTestService(t *testing.T, repo *fakeRepo) *Service {
	t.Helper()
	return NewService(repo, discardLogger())
}

func TestService_ValidationFailsWithoutRepositoryCall(t *testing.T) {
	ctx := context.Background()

	tests := []struct {
		name string
		call func(s *Service) error
	}{
		{"create blank username", func(s *Service) error {
			_, err := s.CreateUser(ctx, User{Email: "a@b.c", Password: "pw"}, nil)
			return err
		}},
		{"create blank email", func(s *Service) error {
			_, err := s.CreateUser(ctx, User{Username: "alice", Password: "pw"}, nil)
			return err
		}},
		{"create blank password", func(s *Service) error {
			_, err := s.CreateUser(ctx, User{Username: "alice", Email: "a@b.c", Role: RoleUser}, nil)
			return err
		}},
		{"create missing role", func(s *Service) error {
			_, err := s.CreateUser(ctx, User{Username: "alice", Email: "a@b.c", Password: "pw"}, nil)
			return err
		}},
		{"authenticate blank username", func(s *Service) error {
			_, err := s.AuthenticateUser(ctx, "  ", "pw")
			return err
		}},
		{"authenticate blank password", func(s *Service) error {
			_, err := s.AuthenticateUser(ctx, "alice", "")
			return err
		}},
		{"find blank id", func(s *Service) error {
			_, err := s.FindUserByID(ctx, "")
			return err
		}},
		{"list negative page", func(s *Service) error {
			_, err := s.FindAllUsers(ctx, -1, 10)
			return err
		}},
		{"list zero size", func(s *Service) error {
			_, err := s.FindAllUsers(ctx, 0, 0)
			return err
		}},
		{"update blank id", func(s *Service) error {
			_, err := s.UpdateUser(ctx, " ", User{Username: "alice", Email: "a@b.c", Role: RoleUser})
			return err
		}},
		{"update missing role", func(s *Service) error {
			_, err := s.UpdateUser(ctx, "u1", User{Username: "alice", Email: "a@b.c"})
			return err
		}},
		{"delete blank id", func(s *Service) error {
			return s.DeleteUser(ctx, "")
		}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			repo := &fakeRepo{}
			s := newTestService(t, repo)

			err := tt.call(s)

			assert.True(t, apperror.IsValidation(err), "expected validation error, got %v", err)
			assert.Zero(t, repo.calls, "repository must not be called")
		})
	}
}

func TestService_CreateUser_ReturnsCreatedUser(t *testing.T) {
	repo := &fakeRepo{
		createID: "id-1",
		user:     &User{Username: "alice", Email: "a@b.c", Role: RoleUser, ProfilePhoto: "http://x/p"},
	}
	s := newTestService(t, repo)

	created, err := s.CreateUser(context.Background(),
		User{Username: "alice", Email: "a@b.c", Password: "pw", Role: RoleUser}, nil)
	require.NoError(t, err)

	assert.Equal(t, "id-1", created.ID)
	assert.Equal(t, "alice", created.Username)
	assert.Equal(t, RoleUser, created.Role)
	assert.Equal(t, 2, repo.calls, "create then find")
}

func TestService_AuthenticateUser(t *testing.T) {
	t.Run("success returns token", func(t *testing.T) {
		repo := &fakeRepo{token: &AccessToken{Token: "tok-123"}}
		s := newTestService(t, repo)

		tok, err := s.AuthenticateUser(context.Background(), "alice", "correct")
		require.NoError(t, err)
		assert.Equal(t, "tok-123", tok.Token)
	})

	t.Run("rejected credentials", func(t *testing.T) {
		repo := &fakeRepo{authErr: apperror.NewAuthentication("invalid username or password", errors.New("401"))}
		s := newTestService(t, repo)

		_, err := s.AuthenticateUser(context.Background(), "alice", "wrong")
		assert.True(t, apperror.IsAuthentication(err))
	})
}

func TestService_FindAllUsers_PageEnvelope(t *testing.T) {
	tests := []struct {
		name      string
		content   int
		total     int64
		size      int
		wantPages int
	}{
		{"partial last page", 2, 2, 10, 1},
		{"several pages", 10, 25, 10, 3},
		{"empty", 0, 0, 10, 0},
		{"exact fit", 5, 10, 5, 2},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			repo := &fakeRepo{users: make([]User, tt.content), total: tt.total}
			s := newTestService(t, repo)

			page, err := s.FindAllUsers(context.Background(), 0, tt.size)
			require.NoError(t, err)

			assert.Len(t, page.Content, tt.content)
			assert.Equal(t, 0, page.Page)
			assert.Equal(t, tt.size, page.Size)
			assert.Equal(t, tt.total, page.TotalElements)
			assert.Equal(t, tt.wantPages, page.TotalPages)
		})
	}
}

func TestService_BreakerOpensAfterConsecutiveBackendFailures(t *testing.T) {
	repo := &fakeRepo{findErr: apperror.NewBackend("identity backend request failed", errors.New("boom"))}
	s := newTestService(t, repo)
	ctx := context.Background()

	for i := 0; i < 5; i++ {
		_, err := s.FindUserByID(ctx, "u1")
		assert.True(t, apperror.IsBackend(err), "call %d should reach the backend", i+1)
	}
	assert.Equal(t, 5, repo.calls)

	// breaker is open now, the next call must be short-circuited
	_, err := s.FindUserByID(ctx, "u1")
	assert.True(t, apperror.IsUnavailable(err))
	assert.Equal(t, 5, repo.calls, "open breaker must not invoke the repository")
}

func TestService_CallerErrorsDoNotTripBreaker(t *testing.T) {
	repo := &fakeRepo{findErr: apperror.NewNotFound("user not found", nil)}
	s := newTestService(t, repo)
	ctx := context.Background()

	for i := 0; i < 10; i++ {
		_, err := s.FindUserByID(ctx, "ghost")
		assert.True(t, apperror.IsNotFound(err))
	}
	assert.Equal(t, 10, repo.calls, "not-found responses must keep reaching the repository")
}

func TestService_SuccessResetsFailureStreak(t *testing.T) {
	repo := &fakeRepo{
		findErr: apperror.NewBackend("identity backend request failed", errors.New("boom")),
		user:    &User{Username: "alice"},
	}
	s := newTestService(t, repo)
	ctx := context.Background()

	for i := 0; i < 4; i++ {
		_, err := s.FindUserByID(ctx, "u1")
		assert.True(t, apperror.IsBackend(err))
	}

	repo.findErr = nil
	_, err := s.FindUserByID(ctx, "u1")
	require.NoError(t, err)

	repo.findErr = apperror.NewBackend("identity backend request failed", errors.New("boom"))
	for i := 0; i < 4; i++ {
		_, err := s.FindUserByID(ctx, "u1")
		assert.True(t, apperror.IsBackend(err), "streak was reset, breaker must still be closed")
	}
	assert.Equal(t, 9, repo.calls)
}

func TestService_BreakerHalfOpenAfterCooldown(t *testing.T) {
	repo := &fakeRepo{
		findErr: apperror.NewBackend("identity backend request failed", errors.New("boom")),
		user:    &User{Username: "alice"},
	}
	s := newService(repo, discardLogger(), 50*time.Millisecond)
	ctx := context.Background()

	for i := 0; i < 5; i++ {
		_, err := s.FindUserByID(ctx, "u1")
		assert.True(t, apperror.IsBackend(err))
	}
	_, err := s.FindUserByID(ctx, "u1")
	assert.True(t, apperror.IsUnavailable(err))
	assert.Equal(t, 5, repo.calls)

	time.Sleep(60 * time.Millisecond)

	// cooldown elapsed, a trial request is let through again
	repo.findErr = nil
	u, err := s.FindUserByID(ctx, "u1")
	require.NoError(t, err)
	assert.Equal(t, "alice", u.Username)
	assert.Equal(t, 6, repo.calls)
}

func TestService_UpdateUser_ReturnsUpdatedUser(t *testing.T) {
	repo := &fakeRepo{}
	s := newTestService(t, repo)

	updated, err := s.UpdateUser(context.Background(), "u1",
		User{Username: "alice", Email: "a@b.c", Role: RoleAdmin})
	require.NoError(t, err)

	assert.Equal(t, "u1", updated.ID)
	assert.Equal(t, RoleAdmin, updated.Role)
	assert.Equal(t, 1, repo.calls)
}

func TestService_CountUsers(t *testing.T) {
	repo := &fakeRepo{total: 42}
	s := newTestService(t, repo)

	n, err := s.CountUsers(context.Background())
	require.NoError(t, err)
	assert.Equal(t, int64(42), n)
}
