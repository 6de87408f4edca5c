// Package idp integrates with external OpenID Connect Identity Providers.
// The authorization-code exchange and provider-token verification are
// shared; what varies per provider is how its claims map onto a local
// account identity. New providers implement ClaimMapper and register a case
// in NewAdapter.
package idp

import (
	"context"
	"time"

	"github.com/pkg/errors"
	"github.com/rs/zerolog"
	"golang.org/x/oauth2"

	"github.com/veridianhq/veridian-server/accounts"
	"github.com/veridianhq/veridian-server/internal/autherr"
)

// Kind selects an Identity Provider implementation at startup.
type Kind string

const (
	KindKeycloak Kind = "keycloak"
	KindADFS     Kind = "adfs"
)

// ParseKind maps a configuration string onto a provider Kind.
func ParseKind(name string) (Kind, error) {
	switch Kind(name) {
	case KindKeycloak, KindADFS:
		return Kind(name), nil
	}
	return "", errors.Errorf("unknown identity provider type %q (valid: %s, %s)", name, KindKeycloak, KindADFS)
}

// Config holds the relying-party settings for the configured provider.
type Config struct {
	ClientID         string
	ClientSecret     string
	RedirectURI      string
	AuthorizationURL string
	TokenURL         string
	JWKSURL          string
	Issuer           string // Optional; enforced on provider tokens when set
	Audience         string // Optional; enforced on provider tokens when set
}

// ClaimMapper is the provider-specific half of an adapter: a pure transform
// from verified provider claims to a local claim account.
type ClaimMapper interface {
	MapClaims(claims map[string]any) (*accounts.Account, error)
}

// Adapter exchanges an authorization code with the configured provider,
// verifies the returned access token against the provider's JWKS and maps
// its claims onto a local account identity.
type Adapter struct {
	cfg      Config
	mapper   ClaimMapper
	exchange *oauth2.Config
	verifier *Verifier
	log      zerolog.Logger
	timeout  time.Duration
}

type AdapterOption func(*Adapter)

// WithAdapterLogger sets the logger used for exchange diagnostics.
func WithAdapterLogger(log zerolog.Logger) AdapterOption {
	return func(a *Adapter) {
		a.log = log
	}
}

// WithExchangeTimeout bounds the out-of-band code exchange call.
func WithExchangeTimeout(timeout time.Duration) AdapterOption {
	return func(a *Adapter) {
		a.timeout = timeout
	}
}

// NewAdapter builds the adapter for the given provider kind.
func NewAdapter(kind Kind, cfg Config, verifier *Verifier, options ...AdapterOption) (*Adapter, error) {
	if verifier == nil {
		return nil, errors.New("[NewAdapter] verifier is required")
	}

	var mapper ClaimMapper
	switch kind {
	case KindKeycloak:
		mapper = &KeycloakMapper{ClientID: cfg.ClientID}
	case KindADFS:
		mapper = &AdfsMapper{ClientID: cfg.ClientID}
	default:
		return nil, errors.Errorf("[NewAdapter] unsupported identity provider kind %q", kind)
	}

	a := &Adapter{
		cfg:    cfg,
		mapper: mapper,
		exchange: &oauth2.Config{
			ClientID:     cfg.ClientID,
			ClientSecret: cfg.ClientSecret,
			RedirectURL:  cfg.RedirectURI,
			Endpoint: oauth2.Endpoint{
				AuthURL:  cfg.AuthorizationURL,
				TokenURL: cfg.TokenURL,
			},
		},
		verifier: verifier,
		log:      zerolog.Nop(),
		timeout:  10 * time.Second,
	}
	for _, opt := range options {
		opt(a)
	}
	return a, nil
}

// AuthCodeURL returns the provider's authorization page URL the browser is
// redirected to at the start of a login.
func (a *Adapter) AuthCodeURL(state string) string {
	return a.exchange.AuthCodeURL(state)
}

// ExchangeCode performs the out-of-band code-for-token exchange with the
// provider's token endpoint. The upstream response body is logged here,
// once, on failure; callers receive only the generic connection error.
func (a *Adapter) ExchangeCode(ctx context.Context, code string) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, a.timeout)
	defer cancel()

	tok, err := a.exchange.Exchange(ctx, code)
	if err != nil {
		var retrieveErr *oauth2.RetrieveError
		if errors.As(err, &retrieveErr) {
			a.log.Error().
				Int("status", retrieveErr.Response.StatusCode).
				Bytes("body", retrieveErr.Body).
				Msg("identity provider rejected the code exchange")
		} else {
			a.log.Error().Err(err).Msg("identity provider code exchange failed")
		}
		return "", autherr.ErrIdpConnection
	}
	return tok.AccessToken, nil
}

// MapClaims delegates to the provider-specific mapper.
func (a *Adapter) MapClaims(claims map[string]any) (*accounts.Account, error) {
	return a.mapper.MapClaims(claims)
}

// Login runs the full pipeline for an authorization code: exchange, verify
// the provider token against the JWKS, map its claims to a claim account.
func (a *Adapter) Login(ctx context.Context, code string) (*accounts.Account, error) {
	providerToken, err := a.ExchangeCode(ctx, code)
	if err != nil {
		return nil, err
	}
	claims, err := a.verifier.Verify(ctx, providerToken)
	if err != nil {
		return nil, err
	}
	return a.MapClaims(claims)
}
