package idp_test

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/lestrrat-go/jwx/v2/jwt"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/veridianhq/veridian-server/idp"
	"github.com/veridianhq/veridian-server/internal/autherr"
)

func adapterConfig(authURL, tokenURL, jwksURL string) idp.Config {
	return idp.Config{
		ClientID:         testClientID,
		ClientSecret:     "client-secret",
		RedirectURI:      "http://localhost:8080/api/callback",
		AuthorizationURL: authURL,
		TokenURL:         tokenURL,
		JWKSURL:          jwksURL,
	}
}

func TestParseKind(t *testing.T) {
	kind, err := idp.ParseKind("keycloak")
	require.NoError(t, err)
	assert.Equal(t, idp.KindKeycloak, kind)

	kind, err = idp.ParseKind("adfs")
	require.NoError(t, err)
	assert.Equal(t, idp.KindADFS, kind)

	_, err = idp.ParseKind("okta")
	assert.Error(t, err)
}

func TestAuthCodeURLCarriesState(t *testing.T) {
	f := setupJWKS(t)
	verifier, err := idp.NewVerifier(context.Background(), f.server.URL)
	require.NoError(t, err)

	adapter, err := idp.NewAdapter(idp.KindKeycloak,
		adapterConfig("https://idp.example.com/auth", "https://idp.example.com/token", f.server.URL),
		verifier)
	require.NoError(t, err)

	url := adapter.AuthCodeURL("state-123")
	assert.Contains(t, url, "https://idp.example.com/auth")
	assert.Contains(t, url, "state=state-123")
	assert.Contains(t, url, "client_id="+testClientID)
}

func TestLoginExchangesVerifiesAndMaps(t *testing.T) {
	f := setupJWKS(t)

	providerToken := f.providerToken(t, jwt.NewBuilder().
		Subject("internal-id-1").
		Expiration(time.Now().Add(time.Hour)).
		Claim("azp", testClientID).
		Claim("email", "ada@example.com").
		Claim("email_verified", true).
		Claim("name", "Ada Lovelace").
		Claim("resource_access", map[string]any{
			testClientID: map[string]any{"roles": []any{"admin"}},
		}))

	tokenEndpoint := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.NoError(t, r.ParseForm())
		assert.Equal(t, "authorization_code", r.FormValue("grant_type"))
		assert.Equal(t, "the-code", r.FormValue("code"))

		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"access_token":"` + providerToken + `","token_type":"bearer"}`))
	}))
	t.Cleanup(tokenEndpoint.Close)

	verifier, err := idp.NewVerifier(context.Background(), f.server.URL)
	require.NoError(t, err)
	adapter, err := idp.NewAdapter(idp.KindKeycloak,
		adapterConfig("https://idp.example.com/auth", tokenEndpoint.URL, f.server.URL),
		verifier)
	require.NoError(t, err)

	claim, err := adapter.Login(context.Background(), "the-code")
	require.NoError(t, err)
	assert.Equal(t, "ada@example.com", claim.Email)
	assert.Equal(t, "Ada Lovelace", claim.FullName)
}

func TestExchangeCodeRejectedByProvider(t *testing.T) {
	f := setupJWKS(t)

	tokenEndpoint := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusBadRequest)
		_, _ = w.Write([]byte(`{"error":"invalid_grant"}`))
	}))
	t.Cleanup(tokenEndpoint.Close)

	verifier, err := idp.NewVerifier(context.Background(), f.server.URL)
	require.NoError(t, err)
	adapter, err := idp.NewAdapter(idp.KindKeycloak,
		adapterConfig("https://idp.example.com/auth", tokenEndpoint.URL, f.server.URL),
		verifier)
	require.NoError(t, err)

	_, err = adapter.ExchangeCode(context.Background(), "bad-code")
	assert.ErrorIs(t, err, autherr.ErrIdpConnection)
}

func TestExchangeCodeUnreachableProvider(t *testing.T) {
	f := setupJWKS(t)

	verifier, err := idp.NewVerifier(context.Background(), f.server.URL)
	require.NoError(t, err)
	adapter, err := idp.NewAdapter(idp.KindKeycloak,
		adapterConfig("https://idp.example.com/auth", "http://127.0.0.1:1/token", f.server.URL),
		verifier,
		idp.WithExchangeTimeout(2*time.Second))
	require.NoError(t, err)

	_, err = adapter.ExchangeCode(context.Background(), "any-code")
	assert.ErrorIs(t, err, autherr.ErrIdpConnection)
}
