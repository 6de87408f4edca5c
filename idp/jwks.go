package idp

import (
	"context"
	"net/http"
	"time"

	"github.com/lestrrat-go/jwx/v2/jwk"
	"github.com/lestrrat-go/jwx/v2/jwt"
	"github.com/pkg/errors"

	"github.com/veridianhq/veridian-server/internal/autherr"
)

const jwksMinRefreshInterval = 15 * time.Minute

// Verifier validates provider-issued access tokens against the provider's
// published JWKS. Key material is held in a TTL'd cache with single-flight
// refresh, so concurrent verifications read the cached set and never block
// behind one slow fetch. The cache is an explicit dependency injected into
// the adapter, not a process global.
type Verifier struct {
	jwksURL  string
	issuer   string
	audience string
	cache    *jwk.Cache
	client   *http.Client
}

type VerifierOption func(*Verifier)

// WithHTTPClient overrides the HTTP client used for JWKS fetches.
func WithHTTPClient(client *http.Client) VerifierOption {
	return func(v *Verifier) {
		v.client = client
	}
}

// WithIssuer enforces the "iss" claim on provider tokens.
func WithIssuer(issuer string) VerifierOption {
	return func(v *Verifier) {
		v.issuer = issuer
	}
}

// WithAudience enforces the "aud" claim on provider tokens.
func WithAudience(audience string) VerifierOption {
	return func(v *Verifier) {
		v.audience = audience
	}
}

// NewVerifier registers the JWKS URL with a refreshing cache. The ctx
// bounds the lifetime of the cache's background refresher and should be the
// process context.
func NewVerifier(ctx context.Context, jwksURL string, options ...VerifierOption) (*Verifier, error) {
	if jwksURL == "" {
		return nil, errors.New("[NewVerifier] JWKS URL is required")
	}

	v := &Verifier{
		jwksURL: jwksURL,
		client:  &http.Client{Timeout: 10 * time.Second},
	}
	for _, opt := range options {
		opt(v)
	}

	v.cache = jwk.NewCache(ctx)
	if err := v.cache.Register(v.jwksURL, jwk.WithMinRefreshInterval(jwksMinRefreshInterval), jwk.WithHTTPClient(v.client)); err != nil {
		return nil, errors.Wrap(err, "[NewVerifier] failed to register JWKS URL")
	}
	return v, nil
}

// Verify parses and validates a provider access token, returning its claims
// as a flat map (registered claims included). An unknown key id triggers
// one forced JWKS refresh before giving up, so provider key rotation does
// not lock users out until the next scheduled refresh.
func (v *Verifier) Verify(ctx context.Context, rawToken string) (map[string]any, error) {
	keySet, err := v.cache.Get(ctx, v.jwksURL)
	if err != nil {
		return nil, autherr.ErrIdpConnection
	}

	parsed, err := v.parse(rawToken, keySet)
	if err != nil {
		if refreshed, refreshErr := v.cache.Refresh(ctx, v.jwksURL); refreshErr == nil {
			parsed, err = v.parse(rawToken, refreshed)
		}
		if err != nil {
			return nil, errors.Wrap(autherr.ErrClaimValidation, err.Error())
		}
	}

	claims := parsed.PrivateClaims()
	if claims == nil {
		claims = make(map[string]any)
	}
	claims["sub"] = parsed.Subject()
	return claims, nil
}

func (v *Verifier) parse(rawToken string, keySet jwk.Set) (jwt.Token, error) {
	parseOptions := []jwt.ParseOption{
		jwt.WithKeySet(keySet),
		jwt.WithValidate(true),
	}
	if v.issuer != "" {
		parseOptions = append(parseOptions, jwt.WithIssuer(v.issuer))
	}
	if v.audience != "" {
		parseOptions = append(parseOptions, jwt.WithAudience(v.audience))
	}
	return jwt.Parse([]byte(rawToken), parseOptions...)
}
