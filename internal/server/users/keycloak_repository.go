package users

import (
	"context"
	"errors"
	"strings"

	"github.com/graduationparty/auth-service/internal/apperror"
	"github.com/graduationparty/auth-service/internal/logging"
	"github.com/graduationparty/auth-service/internal/server/identity"
	"github.com/graduationparty/auth-service/internal/server/storage"
)

const (
	photoAttribute = "profilePhoto"
	photoKeyPrefix = "profile-photos"
)

// KeycloakRepository implements Repository on the identity backend. Keycloak
// is the system of record; nothing is persisted locally.
type KeycloakRepository struct {
	backend identity.Backend
	files   storage.FileStore
	log     logging.Logger
}

func NewKeycloakRepository(backend identity.Backend, files storage.FileStore, log logging.Logger) *KeycloakRepository {
	return &KeycloakRepository{
		backend: backend,
		files:   files,
		log:     log.With("module", "keycloak_repository"),
	}
}

// backendError maps a raw backend failure onto the error taxonomy. Missing
// identities surface as not-found; everything else is logged in full and
// returned as an opaque backend error.
func (r *KeycloakRepository) backendError(ctx context.Context, op string, err error) error {
	if errors.Is(err, identity.ErrNotFound) {
		return apperror.NewNotFound("user not found", err)
	}
	r.log.Error(ctx, "identity backend call failed", "op", op, "error", err)
	return apperror.NewBackend("identity backend request failed", err)
}

// CreateUser validates required fields, uploads the photo best-effort, then
// registers the identity and grants its realm role. A failed photo upload is
// logged and the account is created without a photo URL.
func (r *KeycloakRepository) CreateUser(ctx context.Context, user User, photo *Photo) (string, error) {
	if strings.TrimSpace(user.Username) == "" {
		return "", apperror.NewValidation("username is required")
	}
	if strings.TrimSpace(user.Email) == "" {
		return "", apperror.NewValidation("email is required")
	}
	if strings.TrimSpace(user.Password) == "" {
		return "", apperror.NewValidation("password is required")
	}
	role, err := ParseRole(string(user.Role))
	if err != nil {
		return "", apperror.NewValidation("role is required")
	}

	photoURL := ""
	if photo != nil && len(photo.Data) > 0 {
		url, err := r.files.Upload(ctx, photo.Data, photo.ContentType, photoKeyPrefix+"/"+user.Username)
		if err != nil {
			r.log.Warn(ctx, "profile photo upload failed, creating user without photo",
				"username", user.Username, "error", err)
		} else {
			photoURL = url
		}
	}

	rep := identity.UserRepresentation{
		Username: user.Username,
		Email:    user.Email,
		Enabled:  true,
		Credentials: []identity.CredentialRepresentation{
			{Type: "password", Value: user.Password, Temporary: false},
		},
		RealmRoles: []string{string(role)},
		Attributes: map[string][]string{photoAttribute: {photoURL}},
	}

	id, err := r.backend.CreateUser(ctx, rep)
	if err != nil {
		return "", r.backendError(ctx, "create user", err)
	}

	// realmRoles in the representation is ignored on creation, the role has
	// to be granted through the role-mapping endpoint afterwards.
	if err := r.grantRole(ctx, id, role); err != nil {
		return "", err
	}

	r.log.Info(ctx, "user created", "id", id, "username", user.Username, "role", role)

	return id, nil
}

func (r *KeycloakRepository) grantRole(ctx context.Context, id string, role Role) error {
	rep, err := r.backend.GetRealmRole(ctx, string(role))
	if err != nil {
		return r.backendError(ctx, "resolve realm role", err)
	}
	if err := r.backend.AddRealmRoles(ctx, id, []identity.RoleRepresentation{*rep}); err != nil {
		return r.backendError(ctx, "grant realm role", err)
	}
	return nil
}

func (r *KeycloakRepository) AuthenticateUser(ctx context.Context, username, password string) (*AccessToken, error) {
	if strings.TrimSpace(username) == "" {
		return nil, apperror.NewValidation("username is required")
	}
	if strings.TrimSpace(password) == "" {
		return nil, apperror.NewValidation("password is required")
	}

	tok, err := r.backend.ExchangePassword(ctx, username, password)
	if err != nil {
		if errors.Is(err, identity.ErrUnauthorized) {
			return nil, apperror.NewAuthentication("invalid username or password", err)
		}
		return nil, r.backendError(ctx, "authenticate user", err)
	}
	return &AccessToken{Token: tok.AccessToken}, nil
}

func (r *KeycloakRepository) FindUserByID(ctx context.Context, id string) (*User, error) {
	if strings.TrimSpace(id) == "" {
		return nil, apperror.NewValidation("user id is required")
	}

	rep, err := r.backend.GetUser(ctx, id)
	if err != nil {
		return nil, r.backendError(ctx, "find user", err)
	}
	return r.toUser(ctx, rep)
}

// toUser converts a backend representation, resolving the effective role and
// the photo attribute.
func (r *KeycloakRepository) toUser(ctx context.Context, rep *identity.UserRepresentation) (*User, error) {
	role, err := r.resolveRole(ctx, rep.ID)
	if err != nil {
		return nil, err
	}

	return &User{
		ID:           rep.ID,
		Username:     rep.Username,
		Email:        rep.Email,
		Role:         role,
		ProfilePhoto: photoFromAttributes(rep.Attributes),
	}, nil
}

// resolveRole picks the first effective realm role that is one of the
// application roles. Accounts without one default to USER.
func (r *KeycloakRepository) resolveRole(ctx context.Context, id string) (Role, error) {
	names, err := r.backend.ListEffectiveRealmRoles(ctx, id)
	if err != nil {
		return "", r.backendError(ctx, "list effective roles", err)
	}
	for _, name := range names {
		if role, err := ParseRole(name); err == nil {
			return role, nil
		}
	}
	return RoleUser, nil
}

func photoFromAttributes(attrs map[string][]string) string {
	if vals, ok := attrs[photoAttribute]; ok && len(vals) > 0 {
		return vals[0]
	}
	return ""
}

func (r *KeycloakRepository) FindAllUsers(ctx context.Context, page, size int) ([]User, error) {
	reps, err := r.backend.ListUsers(ctx, page*size, size)
	if err != nil {
		return nil, r.backendError(ctx, "list users", err)
	}

	users := make([]User, 0, len(reps))
	for i := range reps {
		u, err := r.toUser(ctx, &reps[i])
		if err != nil {
			return nil, err
		}
		users = append(users, *u)
	}
	return users, nil
}

func (r *KeycloakRepository) CountUsers(ctx context.Context) (int64, error) {
	n, err := r.backend.CountUsers(ctx)
	if err != nil {
		return 0, r.backendError(ctx, "count users", err)
	}
	return n, nil
}

// UpdateUser overwrites the account's profile fields and reconciles its role
// assignment, returning the resulting user. The photo URL is only taken over
// when it points at the blob store, anything else is discarded.
func (r *KeycloakRepository) UpdateUser(ctx context.Context, id string, user User) (*User, error) {
	if strings.TrimSpace(id) == "" {
		return nil, apperror.NewValidation("user id is required")
	}
	if strings.TrimSpace(user.Username) == "" {
		return nil, apperror.NewValidation("username is required")
	}
	if strings.TrimSpace(user.Email) == "" {
		return nil, apperror.NewValidation("email is required")
	}
	role, err := ParseRole(string(user.Role))
	if err != nil {
		return nil, apperror.NewValidation("role is required")
	}

	rep, err := r.backend.GetUser(ctx, id)
	if err != nil {
		return nil, r.backendError(ctx, "find user", err)
	}

	rep.Username = user.Username
	rep.Email = user.Email

	if isTrustedPhotoURL(user.ProfilePhoto) {
		if rep.Attributes == nil {
			rep.Attributes = map[string][]string{}
		}
		rep.Attributes[photoAttribute] = []string{user.ProfilePhoto}
	}

	if err := r.backend.UpdateUser(ctx, id, *rep); err != nil {
		return nil, r.backendError(ctx, "update user", err)
	}

	if err := r.reconcileRole(ctx, id, role); err != nil {
		return nil, err
	}

	return &User{
		ID:           id,
		Username:     rep.Username,
		Email:        rep.Email,
		Role:         role,
		ProfilePhoto: photoFromAttributes(rep.Attributes),
	}, nil
}

// isTrustedPhotoURL accepts only URLs that plausibly point at the S3 photo
// store, keeping arbitrary strings out of the photo attribute.
func isTrustedPhotoURL(url string) bool {
	return strings.Contains(url, "https") && strings.Contains(url, "s3")
}

// reconcileRole removes any application role the account holds other than the
// desired one and grants the desired one when missing. The two steps are not
// atomic; a failure in between leaves the account without an application role
// until the next update.
func (r *KeycloakRepository) reconcileRole(ctx context.Context, id string, desired Role) error {
	assigned, err := r.backend.ListRealmRoles(ctx, id)
	if err != nil {
		return r.backendError(ctx, "list assigned roles", err)
	}

	hasDesired := false
	var toRemove []identity.RoleRepresentation
	for _, role := range assigned {
		parsed, err := ParseRole(role.Name)
		if err != nil {
			continue // not an application role, leave it alone
		}
		if parsed == desired {
			hasDesired = true
			continue
		}
		toRemove = append(toRemove, role)
	}

	if len(toRemove) > 0 {
		if err := r.backend.RemoveRealmRoles(ctx, id, toRemove); err != nil {
			return r.backendError(ctx, "remove realm roles", err)
		}
	}

	if !hasDesired {
		return r.grantRole(ctx, id, desired)
	}
	return nil
}

func (r *KeycloakRepository) DeleteUser(ctx context.Context, id string) error {
	if strings.TrimSpace(id) == "" {
		return apperror.NewValidation("user id is required")
	}

	if err := r.backend.DeleteUser(ctx, id); err != nil {
		return r.backendError(ctx, "delete user", err)
	}
	r.log.Info(ctx, "user deleted", "id", id)
	return nil
}
