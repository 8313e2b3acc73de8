package users

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/sony/gobreaker/v2"

	"github.com/graduationparty/auth-service/internal/apperror"
	"github.com/graduationparty/auth-service/internal/logging"
)

const (
	breakerFailureWindow   = 5
	breakerCooldown        = 10 * time.Second
	breakerHalfOpenTrials  = 3
	unavailableUserMessage = "service unavailable, try again later"
)

// UseCase is the user-management API consumed by transport handlers.
type UseCase interface {
	CreateUser(ctx context.Context, user User, photo *Photo) (*User, error)
	AuthenticateUser(ctx context.Context, username, password string) (*AccessToken, error)
	FindUserByID(ctx context.Context, id string) (*User, error)
	FindAllUsers(ctx context.Context, page, size int) (*Page[User], error)
	CountUsers(ctx context.Context) (int64, error)
	UpdateUser(ctx context.Context, id string, user User) (*User, error)
	DeleteUser(ctx context.Context, id string) error
}

// Service validates inputs and guards every repository call with a circuit
// breaker. Five consecutive backend failures open the breaker; after the
// cooldown it lets a few trial requests through before closing again. Errors
// caused by the caller (bad input, missing user, wrong password) never count
// as breaker failures.
type Service struct {
	repo    Repository
	breaker *gobreaker.CircuitBreaker[any]
	log     logging.Logger
}

func NewService(repo Repository, log logging.Logger) *Service {
	return newService(repo, log, breakerCooldown)
}

func newService(repo Repository, log logging.Logger, cooldown time.Duration) *Service {
	log = log.With("module", "user_service")

	breaker := gobreaker.NewCircuitBreaker[any](gobreaker.Settings{
		Name:        "user-repository",
		MaxRequests: breakerHalfOpenTrials,
		Timeout:     cooldown,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= breakerFailureWindow
		},
		IsSuccessful: func(err error) bool {
			return err == nil || isCallerError(err)
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			log.Warn(context.Background(), "circuit breaker state changed",
				"breaker", name, "from", from.String(), "to", to.String())
		},
	})

	return &Service{repo: repo, breaker: breaker, log: log}
}

// isCallerError reports whether the error is the caller's fault rather than a
// sign of backend trouble.
func isCallerError(err error) bool {
	return apperror.IsValidation(err) ||
		apperror.IsNotFound(err) ||
		apperror.IsAuthentication(err) ||
		apperror.IsForbidden(err)
}

// execute runs fn through the breaker, mapping breaker rejections onto the
// unavailable error category.
func (s *Service) execute(fn func() (any, error)) (any, error) {
	res, err := s.breaker.Execute(fn)
	if err != nil {
		if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
			return nil, apperror.NewUnavailable(unavailableUserMessage, err)
		}
		return nil, err
	}
	return res, nil
}

// CreateUser registers an account and returns it with the backend-assigned id
// and resolved role.
func (s *Service) CreateUser(ctx context.Context, user User, photo *Photo) (*User, error) {
	if strings.TrimSpace(user.Username) == "" {
		return nil, apperror.NewValidation("username is required")
	}
	if strings.TrimSpace(user.Email) == "" {
		return nil, apperror.NewValidation("email is required")
	}
	if strings.TrimSpace(user.Password) == "" {
		return nil, apperror.NewValidation("password is required")
	}
	if _, err := ParseRole(string(user.Role)); err != nil {
		return nil, apperror.NewValidation("role is required")
	}

	res, err := s.execute(func() (any, error) {
		id, err := s.repo.CreateUser(ctx, user, photo)
		if err != nil {
			return nil, err
		}
		return s.repo.FindUserByID(ctx, id)
	})
	if err != nil {
		return nil, err
	}
	return res.(*User), nil
}

func (s *Service) AuthenticateUser(ctx context.Context, username, password string) (*AccessToken, error) {
	if strings.TrimSpace(username) == "" {
		return nil, apperror.NewValidation("username is required")
	}
	if strings.TrimSpace(password) == "" {
		return nil, apperror.NewValidation("password is required")
	}

	res, err := s.execute(func() (any, error) {
		return s.repo.AuthenticateUser(ctx, username, password)
	})
	if err != nil {
		return nil, err
	}
	return res.(*AccessToken), nil
}

func (s *Service) FindUserByID(ctx context.Context, id string) (*User, error) {
	if strings.TrimSpace(id) == "" {
		return nil, apperror.NewValidation("user id is required")
	}

	res, err := s.execute(func() (any, error) {
		return s.repo.FindUserByID(ctx, id)
	})
	if err != nil {
		return nil, err
	}
	return res.(*User), nil
}

// FindAllUsers returns one page of accounts. The window and the total count
// are fetched in a single breaker-guarded call; the count may drift from the
// window when accounts change in between.
func (s *Service) FindAllUsers(ctx context.Context, page, size int) (*Page[User], error) {
	if page < 0 {
		return nil, apperror.NewValidation("page must not be negative")
	}
	if size <= 0 {
		return nil, apperror.NewValidation("size must be positive")
	}

	res, err := s.execute(func() (any, error) {
		content, err := s.repo.FindAllUsers(ctx, page, size)
		if err != nil {
			return nil, err
		}
		total, err := s.repo.CountUsers(ctx)
		if err != nil {
			return nil, err
		}
		p := NewPage(content, page, size, total)
		return &p, nil
	})
	if err != nil {
		return nil, err
	}
	return res.(*Page[User]), nil
}

func (s *Service) CountUsers(ctx context.Context) (int64, error) {
	res, err := s.execute(func() (any, error) {
		return s.repo.CountUsers(ctx)
	})
	if err != nil {
		return 0, err
	}
	return res.(int64), nil
}

func (s *Service) UpdateUser(ctx context.Context, id string, user User) (*User, error) {
	if strings.TrimSpace(id) == "" {
		return nil, apperror.NewValidation("user id is required")
	}
	if strings.TrimSpace(user.Username) == "" {
		return nil, apperror.NewValidation("username is required")
	}
	if strings.TrimSpace(user.Email) == "" {
		return nil, apperror.NewValidation("email is required")
	}
	if _, err := ParseRole(string(user.Role)); err != nil {
		return nil, apperror.NewValidation("role is required")
	}

	res, err := s.execute(func() (any, error) {
		return s.repo.UpdateUser(ctx, id, user)
	})
	if err != nil {
		return nil, err
	}
	return res.(*User), nil
}

func (s *Service) DeleteUser(ctx context.Context, id string) error {
	if strings.TrimSpace(id) == "" {
		return apperror.NewValidation("user id is required")
	}

	_, err := s.execute(func() (any, error) {
		return nil, s.repo.DeleteUser(ctx, id)
	})
	return err
}
