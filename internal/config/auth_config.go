package config

import (
	"strconv"
	"time"
)

type AuthConfig interface {
	GetSigningSecret() string
	GetSigningAlgorithm() string
	GetSessionTTL() time.Duration
	GetFingerprintKey() string
	GetHTTPSEnabled() bool
}

type Auth struct{}

var _ AuthConfig = Auth{}

// GetSigningSecret returns the symmetric secret for session token
// signatures.
func (Auth) GetSigningSecret() string {
	return GetEnv("OAUTH2_SECRET_KEY", "")
}

func (Auth) GetSigningAlgorithm() string {
	return GetEnv("OAUTH2_ALGORITHM", "HS256")
}

// GetSessionTTL returns the session token lifetime.
func (Auth) GetSessionTTL() time.Duration {
	minutes, err := strconv.Atoi(GetEnv("OAUTH2_ACCESS_TOKEN_EXPIRE_MINUTES", "30"))
	if err != nil || minutes <= 0 {
		minutes = 30
	}
	return time.Duration(minutes) * time.Minute
}

// GetFingerprintKey returns the HMAC key for token fingerprints. It must
// differ from the signing secret.
func (Auth) GetFingerprintKey() string {
	return GetEnv("HMAC_KEY_ACCESS_TOKEN", "")
}

// GetHTTPSEnabled reports whether the deployment terminates TLS; it decides
// the Secure attribute on cookies.
func (Auth) GetHTTPSEnabled() bool {
	return GetEnv("HTTPS", "false") == "true"
}
