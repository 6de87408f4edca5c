// Package config exposes environment-derived configuration through one
// interface per concern. Values are read lazily; Validate is called once at
// startup and fails the process when a required value is absent.
package config

import "github.com/pkg/errors"

type Config interface {
	EnvConfig
	AuthConfig
	IdpConfig
	DatabaseConfig
}

type EnvConfig interface {
	GetPort() string
	GetAppName() string
	GetEnv() string
	GetBaseURL() string
}

type mainConfig struct {
	EnvVars
	Auth
	Idp
	Database
}

func New() Config {
	return mainConfig{}
}

// Validate checks every required setting up front so a misconfigured
// deployment fails at startup rather than on the first login.
func Validate(c Config) error {
	required := map[string]string{
		"OAUTH2_SECRET_KEY":     c.GetSigningSecret(),
		"HMAC_KEY_ACCESS_TOKEN": c.GetFingerprintKey(),
		"IDP":                   c.GetIdpType(),
		"CLIENT_ID":             c.GetClientID(),
		"CLIENT_SECRET":         c.GetClientSecret(),
		"REDIRECT_URI":          c.GetRedirectURI(),
		"TOKEN_URL":             c.GetTokenURL(),
		"AUTHORIZATION_URL":     c.GetAuthorizationURL(),
		"JWKS_URL":              c.GetJWKSURL(),
		"DATABASE_URL":          c.GetDatabaseURL(),
	}
	for envVar, value := range required {
		if value == "" {
			return errors.Errorf("required environment variable %s is not set", envVar)
		}
	}
	return nil
}
