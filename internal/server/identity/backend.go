// Package identity defines the boundary to the external identity provider:
// the system of record for user accounts, credentials and realm roles. The
// service itself stores no user state; every operation goes through a Backend.
package identity

import (
	"context"
	"errors"
)

var (
	// ErrNotFound is returned when the backend reports no such identity or role.
	ErrNotFound = errors.New("identity: not found")

	// ErrUnauthorized is returned when a credential exchange is rejected.
	ErrUnauthorized = errors.New("identity: unauthorized")
)

// CredentialRepresentation carries a credential attached to a new identity.
type CredentialRepresentation struct {
	Type      string `json:"type"`
	Value     string `json:"value"`
	Temporary bool   `json:"temporary"`
}

// UserRepresentation is the backend's wire form of an identity.
type UserRepresentation struct {
	ID          string                     `json:"id,omitempty"`
	Username    string                     `json:"username"`
	Email       string                     `json:"email"`
	Enabled     bool                       `json:"enabled"`
	Credentials []CredentialRepresentation `json:"credentials,omitempty"`
	RealmRoles  []string                   `json:"realmRoles,omitempty"`
	Attributes  map[string][]string        `json:"attributes,omitempty"`
}

// RoleRepresentation is the backend's wire form of a realm role.
type RoleRepresentation struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

// TokenResponse is the body of a successful token exchange.
type TokenResponse struct {
	AccessToken string `json:"access_token"`
	ExpiresIn   int    `json:"expires_in"`
	TokenType   string `json:"token_type"`
}

// Backend is the set of identity-provider operations the user repository
// consumes. Implementations must be safe for concurrent use.
type Backend interface {
	// CreateUser submits a new identity and returns the backend-assigned id.
	CreateUser(ctx context.Context, rep UserRepresentation) (string, error)

	// GetUser fetches one identity. Returns ErrNotFound when it does not exist.
	GetUser(ctx context.Context, id string) (*UserRepresentation, error)

	// ListUsers returns a window of identities, zero-based offset pagination.
	ListUsers(ctx context.Context, first, max int) ([]UserRepresentation, error)

	// CountUsers returns the total identity count in the realm.
	CountUsers(ctx context.Context) (int64, error)

	UpdateUser(ctx context.Context, id string, rep UserRepresentation) error
	DeleteUser(ctx context.Context, id string) error

	// ListEffectiveRealmRoles returns the names of the identity's effective
	// (composite) realm roles.
	ListEffectiveRealmRoles(ctx context.Context, id string) ([]string, error)

	// ListRealmRoles returns the realm roles directly assigned to the identity.
	ListRealmRoles(ctx context.Context, id string) ([]RoleRepresentation, error)

	AddRealmRoles(ctx context.Context, id string, roles []RoleRepresentation) error
	RemoveRealmRoles(ctx context.Context, id string, roles []RoleRepresentation) error

	// GetRealmRole resolves a realm role by name. Returns ErrNotFound when
	// the role is not defined.
	GetRealmRole(ctx context.Context, name string) (*RoleRepresentation, error)

	// ExchangePassword performs the resource-owner password grant. Any
	// rejection by the token endpoint is reported as ErrUnauthorized;
	// transport failures are returned as-is.
	ExchangePassword(ctx context.Context, username, password string) (*TokenResponse, error)
}
