package config

import (
	"os"
	"time"
)

// parseEnv overlays configuration values from environment variables onto the
// provided Config. Unset variables leave the current value untouched, so the
// overlay composes with defaults and the JSON file.
func parseEnv(config *Config) {
	setString := func(target *string, key string) {
		if v, ok := os.LookupEnv(key); ok {
			*target = v
		}
	}

	setString(&config.EndpointAddr, "ENDPOINT_ADDR")
	setString(&config.UserProvider, "USER_PROVIDER")
	setString(&config.KeycloakBaseURL, "KEYCLOAK_BASE_URL")
	setString(&config.KeycloakRealm, "KEYCLOAK_REALM")
	setString(&config.KeycloakClientID, "KEYCLOAK_CLIENT_ID")
	setString(&config.KeycloakClientSecret, "KEYCLOAK_CLIENT_SECRET")
	setString(&config.KeycloakAdminClientID, "KEYCLOAK_ADMIN_CLIENT_ID")
	setString(&config.KeycloakAdminClientSecret, "KEYCLOAK_ADMIN_CLIENT_SECRET")
	setString(&config.AccessTokenPublicKey, "ACCESS_TOKEN_PUBLIC_KEY")
	setString(&config.S3RootUser, "S3_ROOT_USER")
	setString(&config.S3RootPassword, "S3_ROOT_PASSWORD")
	setString(&config.S3Bucket, "S3_BUCKET")
	setString(&config.S3Region, "S3_REGION")
	setString(&config.S3BaseEndpoint, "S3_BASE_ENDPOINT")

	if v, ok := os.LookupEnv("HTTP_CLIENT_TIMEOUT"); ok {
		if d, err := time.ParseDuration(v); err == nil {
			config.HTTPClientTimeout = d
		}
	}
}
