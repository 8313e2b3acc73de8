package users

import (
	"context"
	"fmt"

	"github.com/graduationparty/auth-service/internal/logging"
	"github.com/graduationparty/auth-service/internal/server/config"
	"github.com/graduationparty/auth-service/internal/server/identity"
	"github.com/graduationparty/auth-service/internal/server/storage"
)

// Repository is the user-management façade over the identity backend. All
// errors it returns are *apperror.AppError values.
type Repository interface {
	// CreateUser registers a new account and returns its assigned id. The
	// photo is optional; when its upload fails the account is still created,
	// with an empty photo URL.
	CreateUser(ctx context.Context, user User, photo *Photo) (string, error)

	// AuthenticateUser exchanges credentials for an access token.
	AuthenticateUser(ctx context.Context, username, password string) (*AccessToken, error)

	// FindUserByID fetches one account with its resolved role and photo.
	FindUserByID(ctx context.Context, id string) (*User, error)

	// FindAllUsers returns one zero-based page window of accounts.
	FindAllUsers(ctx context.Context, page, size int) ([]User, error)

	// CountUsers returns the total number of accounts.
	CountUsers(ctx context.Context) (int64, error)

	// UpdateUser overwrites the account's mutable fields and reconciles its
	// role assignment, returning the resulting user.
	UpdateUser(ctx context.Context, id string, user User) (*User, error)

	// DeleteUser removes the account.
	DeleteUser(ctx context.Context, id string) error
}

// NewRepository builds the Repository selected by cfg.UserProvider. An
// unknown provider is a configuration mistake and fails construction.
func NewRepository(cfg *config.Config, files storage.FileStore, log logging.Logger) (Repository, error) {
	switch cfg.UserProvider {
	case "keycloak":
		return NewKeycloakRepository(identity.NewKeycloakClient(cfg, log), files, log), nil
	default:
		return nil, fmt.Errorf("unknown user provider %q", cfg.UserProvider)
	}
}
