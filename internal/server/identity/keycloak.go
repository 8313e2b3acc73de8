package identity

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/graduationparty/auth-service/internal/logging"
	"github.com/graduationparty/auth-service/internal/server/config"
)

// adminTokenLeeway is subtracted from the token lifetime so a token is
// refreshed before it actually expires mid-request.
const adminTokenLeeway = 30 * time.Second

// passwordGrantScope matches the scopes requested by the login flow.
const passwordGrantScope = "profile email roles openid"

// KeycloakClient implements Backend against the Keycloak admin REST API and
// token endpoint. The admin API is authenticated with a service-account token
// obtained via the client_credentials grant and cached until shortly before
// expiry.
type KeycloakClient struct {
	baseURL           string
	realm             string
	clientID          string
	clientSecret      string
	adminClientID     string
	adminClientSecret string
	client            *http.Client
	log               logging.Logger

	mu               sync.Mutex
	adminToken       string
	adminTokenExpiry time.Time
}

func NewKeycloakClient(cfg *config.Config, log logging.Logger) *KeycloakClient {
	return &KeycloakClient{
		baseURL:           strings.TrimSuffix(cfg.KeycloakBaseURL, "/"),
		realm:             cfg.KeycloakRealm,
		clientID:          cfg.KeycloakClientID,
		clientSecret:      cfg.KeycloakClientSecret,
		adminClientID:     cfg.KeycloakAdminClientID,
		adminClientSecret: cfg.KeycloakAdminClientSecret,
		client: &http.Client{
			Timeout: cfg.HTTPClientTimeout,
		},
		log: log.With("module", "keycloak_client"),
	}
}

func (c *KeycloakClient) tokenURL() string {
	return fmt.Sprintf("%s/realms/%s/protocol/openid-connect/token", c.baseURL, c.realm)
}

func (c *KeycloakClient) adminURL(format string, args ...any) string {
	return fmt.Sprintf("%s/admin/realms/%s", c.baseURL, c.realm) + fmt.Sprintf(format, args...)
}

// exchangeToken posts a form to the token endpoint and decodes the response.
// Non-200 statuses are reported as ErrUnauthorized with the status attached.
func (c *KeycloakClient) exchangeToken(ctx context.Context, form url.Values) (*TokenResponse, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.tokenURL(), strings.NewReader(form.Encode()))
	if err != nil {
		return nil, fmt.Errorf("keycloak: new token request: %w", err)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	res, err := c.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("keycloak: token exchange failed: %w", err)
	}
	defer res.Body.Close()

	if res.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("%w: token endpoint returned status %d", ErrUnauthorized, res.StatusCode)
	}

	var payload TokenResponse
	if err := json.NewDecoder(res.Body).Decode(&payload); err != nil {
		return nil, fmt.Errorf("keycloak: decode token response: %w", err)
	}
	if payload.AccessToken == "" {
		return nil, fmt.Errorf("%w: empty access token in response", ErrUnauthorized)
	}

	return &payload, nil
}

// adminAccessToken returns the cached service-account token, refreshing it
// through the client_credentials grant when missing or close to expiry.
func (c *KeycloakClient) adminAccessToken(ctx context.Context) (string, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.adminToken != "" && time.Now().Before(c.adminTokenExpiry) {
		return c.adminToken, nil
	}

	form := url.Values{}
	form.Set("grant_type", "client_credentials")
	form.Set("client_id", c.adminClientID)
	form.Set("client_secret", c.adminClientSecret)

	tok, err := c.exchangeToken(ctx, form)
	if err != nil {
		return "", fmt.Errorf("admin token: %w", err)
	}

	c.adminToken = tok.AccessToken
	c.adminTokenExpiry = time.Now().Add(time.Duration(tok.ExpiresIn)*time.Second - adminTokenLeeway)
	c.log.Debug(ctx, "refreshed admin access token", "expires_in", tok.ExpiresIn)

	return c.adminToken, nil
}

// doAdmin performs an authenticated admin API call. A non-nil payload is sent
// as JSON; a non-nil out receives the decoded response body. A 404 maps to
// ErrNotFound, any other non-2xx status becomes an error carrying the status.
func (c *KeycloakClient) doAdmin(ctx context.Context, method, endpoint string, payload, out any) error {
	token, err := c.adminAccessToken(ctx)
	if err != nil {
		return err
	}

	var body io.Reader
	if payload != nil {
		b, err := json.Marshal(payload)
		if err != nil {
			return fmt.Errorf("keycloak: marshal request: %w", err)
		}
		body = bytes.NewReader(b)
	}

	req, err := http.NewRequestWithContext(ctx, method, endpoint, body)
	if err != nil {
		return fmt.Errorf("keycloak: new request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+token)
	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	res, err := c.client.Do(req)
	if err != nil {
		return fmt.Errorf("keycloak: %s %s: %w", method, endpoint, err)
	}
	defer res.Body.Close()

	if res.StatusCode == http.StatusNotFound {
		return ErrNotFound
	}
	if res.StatusCode < 200 || res.StatusCode > 299 {
		return fmt.Errorf("keycloak: %s %s: unexpected status %d", method, endpoint, res.StatusCode)
	}

	if out != nil {
		if err := json.NewDecoder(res.Body).Decode(out); err != nil {
			return fmt.Errorf("keycloak: decode response: %w", err)
		}
	}

	return nil
}

// CreateUser posts the representation and extracts the new id from the
// Location header of the 201 response.
func (c *KeycloakClient) CreateUser(ctx context.Context, rep UserRepresentation) (string, error) {
	token, err := c.adminAccessToken(ctx)
	if err != nil {
		return "", err
	}

	b, err := json.Marshal(rep)
	if err != nil {
		return "", fmt.Errorf("keycloak: marshal user: %w", err)
	}

	endpoint := c.adminURL("/users")
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(b))
	if err != nil {
		return "", fmt.Errorf("keycloak: new request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+token)
	req.Header.Set("Content-Type", "application/json")

	res, err := c.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("keycloak: create user: %w", err)
	}
	defer res.Body.Close()

	if res.StatusCode != http.StatusCreated {
		return "", fmt.Errorf("keycloak: create user: unexpected status %d", res.StatusCode)
	}

	location := res.Header.Get("Location")
	id := location[strings.LastIndex(location, "/")+1:]
	if id == "" {
		return "", fmt.Errorf("keycloak: create user: missing id in Location header %q", location)
	}

	return id, nil
}

func (c *KeycloakClient) GetUser(ctx context.Context, id string) (*UserRepresentation, error) {
	var rep UserRepresentation
	if err := c.doAdmin(ctx, http.MethodGet, c.adminURL("/users/%s", id), nil, &rep); err != nil {
		return nil, err
	}
	return &rep, nil
}

func (c *KeycloakClient) ListUsers(ctx context.Context, first, max int) ([]UserRepresentation, error) {
	var reps []UserRepresentation
	endpoint := c.adminURL("/users?first=%d&max=%d", first, max)
	if err := c.doAdmin(ctx, http.MethodGet, endpoint, nil, &reps); err != nil {
		return nil, err
	}
	return reps, nil
}

func (c *KeycloakClient) CountUsers(ctx context.Context) (int64, error) {
	var count int64
	if err := c.doAdmin(ctx, http.MethodGet, c.adminURL("/users/count"), nil, &count); err != nil {
		return 0, err
	}
	return count, nil
}

func (c *KeycloakClient) UpdateUser(ctx context.Context, id string, rep UserRepresentation) error {
	return c.doAdmin(ctx, http.MethodPut, c.adminURL("/users/%s", id), rep, nil)
}

func (c *KeycloakClient) DeleteUser(ctx context.Context, id string) error {
	return c.doAdmin(ctx, http.MethodDelete, c.adminURL("/users/%s", id), nil, nil)
}

func (c *KeycloakClient) ListEffectiveRealmRoles(ctx context.Context, id string) ([]string, error) {
	var roles []RoleRepresentation
	endpoint := c.adminURL("/users/%s/role-mappings/realm/composite", id)
	if err := c.doAdmin(ctx, http.MethodGet, endpoint, nil, &roles); err != nil {
		return nil, err
	}

	names := make([]string, 0, len(roles))
	for _, r := range roles {
		names = append(names, r.Name)
	}
	return names, nil
}

func (c *KeycloakClient) ListRealmRoles(ctx context.Context, id string) ([]RoleRepresentation, error) {
	var roles []RoleRepresentation
	endpoint := c.adminURL("/users/%s/role-mappings/realm", id)
	if err := c.doAdmin(ctx, http.MethodGet, endpoint, nil, &roles); err != nil {
		return nil, err
	}
	return roles, nil
}

func (c *KeycloakClient) AddRealmRoles(ctx context.Context, id string, roles []RoleRepresentation) error {
	endpoint := c.adminURL("/users/%s/role-mappings/realm", id)
	return c.doAdmin(ctx, http.MethodPost, endpoint, roles, nil)
}

func (c *KeycloakClient) RemoveRealmRoles(ctx context.Context, id string, roles []RoleRepresentation) error {
	endpoint := c.adminURL("/users/%s/role-mappings/realm", id)
	return c.doAdmin(ctx, http.MethodDelete, endpoint, roles, nil)
}

func (c *KeycloakClient) GetRealmRole(ctx context.Context, name string) (*RoleRepresentation, error) {
	var role RoleRepresentation
	if err := c.doAdmin(ctx, http.MethodGet, c.adminURL("/roles/%s", name), nil, &role); err != nil {
		return nil, err
	}
	return &role, nil
}

func (c *KeycloakClient) ExchangePassword(ctx context.Context, username, password string) (*TokenResponse, error) {
	form := url.Values{}
	form.Set("grant_type", "password")
	form.Set("client_id", c.clientID)
	form.Set("client_secret", c.clientSecret)
	form.Set("username", username)
	form.Set("password", password)
	form.Set("scope", passwordGrantScope)

	return c.exchangeToken(ctx, form)
}
