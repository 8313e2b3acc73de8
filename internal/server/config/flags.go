package config

import (
	"flag"
	"os"
	"time"

	"github.com/graduationparty/auth-service/internal/flagx"
)

// parseFlags populates selected server Config fields from command-line flags.
//
// Supported flags (short forms):
//
//	-a string   HTTP bind address (e.g., ":8080")
//	-o string   user persistence provider ("keycloak")
//	-k string   Keycloak base URL
//	-m string   Keycloak realm name
//	-i string   Keycloak client id (password grant)
//	-s string   Keycloak client secret (password grant)
//	-j string   Keycloak admin client id (client_credentials grant)
//	-w string   Keycloak admin client secret
//	-t int      outbound HTTP client timeout, seconds
//	-u string   S3 root user
//	-p string   S3 root password
//	-b string   S3 bucket name
//	-g string   S3 region
//	-e string   S3 base endpoint (e.g., "http://127.0.0.1:9000/")
//
// The function first filters os.Args to only the flags it recognizes using
// flagx.FilterArgs, avoiding collisions with other components. The realm
// public key is deliberately not a flag; supply it via JSON or environment.
func parseFlags(config *Config) {
	args := flagx.FilterArgs(os.Args[1:], []string{"-a", "-o", "-k", "-m", "-i", "-s", "-j", "-w", "-t", "-u", "-p", "-b", "-g", "-e"})

	fs := flag.NewFlagSet("main", flag.ContinueOnError)

	fs.StringVar(&config.EndpointAddr, "a", config.EndpointAddr, "address and port to run server")
	fs.StringVar(&config.UserProvider, "o", config.UserProvider, "user persistence provider")
	fs.StringVar(&config.KeycloakBaseURL, "k", config.KeycloakBaseURL, "Keycloak base URL")
	fs.StringVar(&config.KeycloakRealm, "m", config.KeycloakRealm, "Keycloak realm")
	fs.StringVar(&config.KeycloakClientID, "i", config.KeycloakClientID, "Keycloak client id")
	fs.StringVar(&config.KeycloakClientSecret, "s", config.KeycloakClientSecret, "Keycloak client secret")
	fs.StringVar(&config.KeycloakAdminClientID, "j", config.KeycloakAdminClientID, "Keycloak admin client id")
	fs.StringVar(&config.KeycloakAdminClientSecret, "w", config.KeycloakAdminClientSecret, "Keycloak admin client secret")

	httpClientTimeout := fs.Int("t", int(config.HTTPClientTimeout.Seconds()), "http_client_timeout (in seconds)")

	fs.StringVar(&config.S3RootUser, "u", config.S3RootUser, "S3 root user")
	fs.StringVar(&config.S3RootPassword, "p", config.S3RootPassword, "S3 root password")
	fs.StringVar(&config.S3Bucket, "b", config.S3Bucket, "S3 root bucket")
	fs.StringVar(&config.S3Region, "g", config.S3Region, "S3 root region")
	fs.StringVar(&config.S3BaseEndpoint, "e", config.S3BaseEndpoint, "S3 base endpoint")

	if err := fs.Parse(args); err != nil {
		panic(err)
	}

	config.HTTPClientTimeout = time.Duration(*httpClientTimeout) * time.Second
}
