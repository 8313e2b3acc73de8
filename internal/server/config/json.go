package config

import (
	"encoding/json"
	"os"
	"time"

	"github.com/graduationparty/auth-service/internal/flagx"
	"github.com/graduationparty/auth-service/internal/timex"
)

// JsonConfig is the intermediate DTO used for reading JSON configuration
// files. It uses timex.Duration for interval fields, which allows parsing
// both string values such as "10s" and integer nanoseconds. After
// unmarshalling, its fields are copied into the runtime Config struct.
type JsonConfig struct {
	EndpointAddr              string         `json:"endpoint_addr"`
	UserProvider              string         `json:"user_provider"`
	KeycloakBaseURL           string         `json:"keycloak_base_url"`
	KeycloakRealm             string         `json:"keycloak_realm"`
	KeycloakClientID          string         `json:"keycloak_client_id"`
	KeycloakClientSecret      string         `json:"keycloak_client_secret"`
	KeycloakAdminClientID     string         `json:"keycloak_admin_client_id"`
	KeycloakAdminClientSecret string         `json:"keycloak_admin_client_secret"`
	AccessTokenPublicKey      string         `json:"access_token_public_key"`
	HTTPClientTimeout         timex.Duration `json:"http_client_timeout"`
	S3RootUser                string         `json:"s3_root_user"`
	S3RootPassword            string         `json:"s3_root_password"`
	S3Bucket                  string         `json:"s3_bucket"`
	S3Region                  string         `json:"s3_region"`
	S3BaseEndpoint            string         `json:"s3_base_endpoint"`
}

// parseJson loads configuration values from a JSON file into the provided
// Config instance. The file path is taken from the -c or -config flags; when
// neither is set, no JSON file is loaded. An unreadable or invalid file
// panics: a misconfigured server should not start.
func parseJson(config *Config) {

	jsonConfigFile := flagx.JsonConfigFlags()

	// nothing to load
	if jsonConfigFile == "" {
		return
	}

	c := &JsonConfig{}

	file, err := os.ReadFile(jsonConfigFile)
	if err != nil {
		panic(err)
	}

	err = json.Unmarshal(file, c)
	if err != nil {
		panic(err)
	}

	config.EndpointAddr = c.EndpointAddr
	config.UserProvider = c.UserProvider
	config.KeycloakBaseURL = c.KeycloakBaseURL
	config.KeycloakRealm = c.KeycloakRealm
	config.KeycloakClientID = c.KeycloakClientID
	config.KeycloakClientSecret = c.KeycloakClientSecret
	config.KeycloakAdminClientID = c.KeycloakAdminClientID
	config.KeycloakAdminClientSecret = c.KeycloakAdminClientSecret
	config.AccessTokenPublicKey = c.AccessTokenPublicKey
	config.HTTPClientTimeout = time.Duration(c.HTTPClientTimeout.Duration)
	config.S3RootUser = c.S3RootUser
	config.S3RootPassword = c.S3RootPassword
	config.S3Bucket = c.S3Bucket
	config.S3Region = c.S3Region
	config.S3BaseEndpoint = c.S3BaseEndpoint
}
