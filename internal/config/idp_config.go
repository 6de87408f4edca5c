package config

type IdpConfig interface {
	GetIdpType() string
	GetClientID() string
	GetClientSecret() string
	GetRedirectURI() string
	GetTokenURL() string
	GetAuthorizationURL() string
	GetJWKSURL() string
	GetIssuer() string
	GetAudience() string
}

type Idp struct{}

var _ IdpConfig = Idp{}

func (Idp) GetIdpType() string {
	return GetEnv("IDP", "")
}

func (Idp) GetClientID() string {
	return GetEnv("CLIENT_ID", "")
}

func (Idp) GetClientSecret() string {
	return GetEnv("CLIENT_SECRET", "")
}

func (Idp) GetRedirectURI() string {
	return GetEnv("REDIRECT_URI", "")
}

func (Idp) GetTokenURL() string {
	return GetEnv("TOKEN_URL", "")
}

func (Idp) GetAuthorizationURL() string {
	return GetEnv("AUTHORIZATION_URL", "")
}

func (Idp) GetJWKSURL() string {
	return GetEnv("JWKS_URL", "")
}

// GetIssuer returns the expected issuer of provider tokens; empty disables
// the check.
func (Idp) GetIssuer() string {
	return GetEnv("IDP_ISSUER", "")
}

// GetAudience returns the expected audience of provider tokens; empty
// disables the check.
func (Idp) GetAudience() string {
	return GetEnv("IDP_AUDIENCE", "")
}
