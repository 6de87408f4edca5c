// Package authn implements the per-request authentication guard: session
// cookie to verified claims to account to revocation state to scope and
// CSRF checks. The guard is transport-agnostic; the HTTP layer extracts the
// raw material from the request and maps failures onto responses.
package authn

import (
	"context"
	"crypto/hmac"

	"github.com/pkg/errors"
	"github.com/rs/zerolog"

	"github.com/veridianhq/veridian-server/accounts"
	"github.com/veridianhq/veridian-server/internal/autherr"
	"github.com/veridianhq/veridian-server/token"
)

// Request carries the authentication material extracted from one inbound
// HTTP request.
type Request struct {
	RawToken  string // Session token from the cookie (or bearer header); empty if absent
	Bearer    bool   // True when the token came from an Authorization header
	Method    string // HTTP method, decides whether the CSRF check applies
	CSRFToken string // CSRF header value; empty if absent
}

// mutating reports whether the request's method changes state and therefore
// requires CSRF proof. GET stays exempt; the one state-changing GET in this
// API is logout, where a forged request can at worst end the caller's own
// session. Bearer requests are exempt entirely; the token was attached
// deliberately by the caller, not ambiently by the browser, so there is no
// cross-site authority to prove.
func (r Request) mutating() bool {
	if r.Bearer {
		return false
	}
	switch r.Method {
	case "POST", "PUT", "DELETE", "PATCH":
		return true
	}
	return false
}

// Guard authenticates requests. Every check is pure lookup work; the guard
// holds no mutable state and is safe for concurrent use.
type Guard struct {
	signer      token.Signer
	fingerprint *token.Fingerprinter
	accountRepo accounts.Repo
	tokenRepo   token.Repo
	log         zerolog.Logger
}

type GuardOption func(*Guard)

// WithLogger sets the logger used for security-relevant events.
func WithLogger(log zerolog.Logger) GuardOption {
	return func(g *Guard) {
		g.log = log
	}
}

func NewGuard(signer token.Signer, fingerprint *token.Fingerprinter, accountRepo accounts.Repo, tokenRepo token.Repo, options ...GuardOption) (*Guard, error) {
	if signer == nil {
		return nil, errors.New("[NewGuard] signer is required")
	}
	if fingerprint == nil {
		return nil, errors.New("[NewGuard] fingerprinter is required")
	}
	if accountRepo == nil {
		return nil, errors.New("[NewGuard] account repo is required")
	}
	if tokenRepo == nil {
		return nil, errors.New("[NewGuard] token repo is required")
	}

	g := &Guard{
		signer:      signer,
		fingerprint: fingerprint,
		accountRepo: accountRepo,
		tokenRepo:   tokenRepo,
		log:         zerolog.Nop(),
	}
	for _, opt := range options {
		opt(g)
	}
	return g, nil
}

// Authenticate runs the full verification sequence and returns the account
// on success. Failures are values from the autherr taxonomy; the guard
// never swallows them and attaches nothing to any context itself.
func (g *Guard) Authenticate(ctx context.Context, req Request, requiredScopes ...accounts.Permission) (*accounts.Account, error) {
	// Check 1: a session token must be present at all.
	if req.RawToken == "" {
		return nil, autherr.ErrSessionTokenMissing
	}

	// Check 2: signature and expiry.
	claims, err := g.signer.Verify(req.RawToken)
	switch {
	case errors.Is(err, token.ErrTokenExpired):
		return nil, autherr.ErrSessionExpired
	case err != nil:
		return nil, autherr.ErrTokenValidation
	}

	// Check 3: the subject must map to an active account with roles.
	account, err := g.accountRepo.GetByEmail(ctx, claims.Subject)
	if errors.Is(err, accounts.ErrNotFound) {
		return nil, autherr.ErrAccountLocked
	}
	if err != nil {
		return nil, errors.Wrap(err, "[Guard.Authenticate] GetByEmail")
	}
	if !account.Active || len(account.Roles) == 0 {
		g.log.Warn().Str("email", account.Email).Msg("locked account presented a valid session token")
		return nil, autherr.ErrAccountLocked
	}

	// Check 4: the persisted record must exist and not be revoked.
	record, err := g.tokenRepo.GetByFingerprint(ctx, g.fingerprint.Fingerprint(req.RawToken))
	if errors.Is(err, token.ErrNotFound) {
		return nil, autherr.ErrSessionRevoked
	}
	if err != nil {
		return nil, errors.Wrap(err, "[Guard.Authenticate] GetByFingerprint")
	}
	if record.Revoked || (record.Type != token.TypeUser && record.Type != token.TypeAPI) {
		return nil, autherr.ErrSessionRevoked
	}

	// Check 5: at least one granted scope must match the route's
	// requirement. A miss here is a potential privilege escalation
	// attempt, so it is always logged.
	if len(requiredScopes) > 0 && !scopesIntersect(claims.Scopes, requiredScopes) {
		g.log.Warn().
			Str("email", account.Email).
			Strs("granted", claims.Scopes).
			Interface("required", requiredScopes).
			Msg("account requested scopes outside its grant")
		return nil, autherr.New(autherr.KindAuthorization, "could not validate account: %s", account.Email)
	}

	// Check 6: state-changing methods must echo the fingerprint in the
	// CSRF header (double-submit cookie).
	if req.mutating() {
		if req.CSRFToken == "" || !hmac.Equal([]byte(req.CSRFToken), []byte(record.Fingerprint)) {
			return nil, autherr.ErrInvalidCsrfToken
		}
	}

	return account, nil
}

func scopesIntersect(granted []string, required []accounts.Permission) bool {
	have := make(map[string]struct{}, len(granted))
	for _, s := range granted {
		have[s] = struct{}{}
	}
	for _, r := range required {
		if _, ok := have[string(r)]; ok {
			return true
		}
	}
	return false
}
