// Package config handles configuration for the server component, including
// defaults, JSON overlay, environment variables, and command-line flags.
package config

import "time"

// Config holds runtime settings for the auth service.
//
// Fields:
//   - EndpointAddr: bind address for the public HTTP endpoint.
//   - UserProvider: identity persistence provider key ("keycloak").
//   - KeycloakBaseURL / KeycloakRealm: location of the identity backend.
//   - KeycloakClientID / KeycloakClientSecret: confidential client used for
//     the password grant on login.
//   - KeycloakAdminClientID / KeycloakAdminClientSecret: service account used
//     for the admin REST API (client_credentials grant).
//   - AccessTokenPublicKey: PEM-encoded RS256 public key of the realm, used
//     to verify bearer tokens on protected routes.
//   - HTTPClientTimeout: timeout applied to outbound identity-backend calls.
//   - S3RootUser / S3RootPassword: credentials for the S3-compatible backend.
//   - S3Bucket / S3Region / S3BaseEndpoint: object storage settings.
type Config struct {
	EndpointAddr              string
	UserProvider              string
	KeycloakBaseURL           string
	KeycloakRealm             string
	KeycloakClientID          string
	KeycloakClientSecret      string
	KeycloakAdminClientID     string
	KeycloakAdminClientSecret string
	AccessTokenPublicKey      string
	HTTPClientTimeout         time.Duration
	S3RootUser                string
	S3RootPassword            string
	S3Bucket                  string
	S3Region                  string
	S3BaseEndpoint            string
}

// LoadDefaults populates Config with sensible development defaults.
// NOTE: These values are insecure for production and should be overridden.
func (c *Config) LoadDefaults() {
	c.EndpointAddr = ":8080"
	c.UserProvider = "keycloak"
	c.KeycloakBaseURL = "http://127.0.0.1:8081"
	c.KeycloakRealm = "graduation-party"
	c.KeycloakClientID = "auth-service"
	c.KeycloakClientSecret = "secret"
	c.KeycloakAdminClientID = "auth-service-admin"
	c.KeycloakAdminClientSecret = "adminsecret"
	c.AccessTokenPublicKey = ""
	c.HTTPClientTimeout = 10 * time.Second
	c.S3RootUser = "admin"
	c.S3RootPassword = "secretpassword"
	c.S3Bucket = "auth-service"
	c.S3Region = "us-east-1"
	c.S3BaseEndpoint = "http://127.0.0.1:9000/"
}

// LoadConfig builds a Config by applying defaults, then overlaying values
// from an optional JSON file, environment variables, and finally
// command-line flags.
func LoadConfig() *Config {
	cfg := &Config{}
	cfg.LoadDefaults()
	parseJson(cfg)
	parseEnv(cfg)
	parseFlags(cfg)
	return cfg
}
