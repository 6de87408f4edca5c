package token

import (
	"context"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/pkg/errors"
	"github.com/rs/zerolog"

	"github.com/veridianhq/veridian-server/accounts"
	"github.com/veridianhq/veridian-server/internal/autherr"
)

const defaultSessionTTL = 30 * time.Minute

// Manager issues and revokes access tokens. It owns the login-time account
// upsert, the single-active-session invariant for user tokens, and the
// validation rules for user-created api tokens.
type Manager struct {
	accountRepo accounts.Repo
	tokenRepo   Repo
	signer      Signer
	fingerprint *Fingerprinter
	sessionTTL  time.Duration
	nowFunc     func() time.Time
	log         zerolog.Logger
}

type ManagerOption func(*Manager)

// WithSessionTTL sets the lifetime of user session tokens.
func WithSessionTTL(ttl time.Duration) ManagerOption {
	return func(m *Manager) {
		m.sessionTTL = ttl
	}
}

// WithNowFunc sets the clock (primarily for testing).
func WithNowFunc(now func() time.Time) ManagerOption {
	return func(m *Manager) {
		m.nowFunc = now
	}
}

// WithLogger sets the structured logger used for login events.
func WithLogger(log zerolog.Logger) ManagerOption {
	return func(m *Manager) {
		m.log = log
	}
}

func NewManager(accountRepo accounts.Repo, tokenRepo Repo, signer Signer, fingerprint *Fingerprinter, options ...ManagerOption) (*Manager, error) {
	if accountRepo == nil {
		return nil, errors.New("[NewManager] account repo is required")
	}
	if tokenRepo == nil {
		return nil, errors.New("[NewManager] token repo is required")
	}
	if signer == nil {
		return nil, errors.New("[NewManager] signer is required")
	}
	if fingerprint == nil {
		return nil, errors.New("[NewManager] fingerprinter is required")
	}

	m := &Manager{
		accountRepo: accountRepo,
		tokenRepo:   tokenRepo,
		signer:      signer,
		fingerprint: fingerprint,
		sessionTTL:  defaultSessionTTL,
		nowFunc:     time.Now,
		log:         zerolog.Nop(),
	}
	for _, opt := range options {
		opt(m)
	}
	return m, nil
}

// CreateTokenForAccount logs a mapped IdP claim account in: it upserts the
// local account record, stamps the login time, revokes any previously
// active user session and mints a fresh session token. It returns the raw
// token (for the session cookie) and the persisted record (whose
// fingerprint becomes the CSRF cookie value).
func (m *Manager) CreateTokenForAccount(ctx context.Context, claim *accounts.Account) (string, *AccessToken, error) {
	// Accounts without roles may not log in at all.
	if len(claim.Roles) == 0 {
		return "", nil, autherr.ErrAuthorization
	}

	claim.Email = accounts.NormalizeEmail(claim.Email)
	now := m.nowFunc()

	account, err := m.accountRepo.GetByEmail(ctx, claim.Email)
	switch {
	case errors.Is(err, accounts.ErrNotFound):
		// First login: the claim becomes the account.
		account = claim
		account.Active = true
		account.LastLogin = now
	case err != nil:
		return "", nil, errors.Wrap(err, "[Manager.CreateTokenForAccount] GetByEmail")
	case !account.Active:
		return "", nil, autherr.ErrAuthentication
	default:
		// Refresh the identity fields the IdP asserts on every login;
		// locally managed fields survive untouched. Login time is stamped
		// with local server time, the store normalizes timezones on write.
		account.MergeClaim(claim)
		account.LastLogin = now
	}

	if err := m.accountRepo.Upsert(ctx, account); err != nil {
		return "", nil, errors.Wrap(err, "[Manager.CreateTokenForAccount] Upsert")
	}

	record, rawToken, err := m.CreateToken(ctx, account, TypeUser, now.Add(m.sessionTTL), "", account.Scopes())
	if err != nil {
		return "", nil, err
	}

	m.log.Info().Str("email", account.Email).Msg("account successfully logged in")
	return rawToken, record, nil
}

// CreateToken is the low-level issuance primitive shared by session logins
// and user-initiated api token creation. It signs a token for the account,
// computes its fingerprint and persists the record; an existing record with
// the same fingerprint is reused rather than duplicated. For user-type
// tokens the insert also revokes every previously active user session of
// the account, atomically.
func (m *Manager) CreateToken(ctx context.Context, account *accounts.Account, tokenType Type, expires time.Time, name string, scopes []accounts.Permission) (*AccessToken, string, error) {
	record := &AccessToken{
		ID:         uuid.New().String(),
		AccountID:  account.ID,
		Type:       tokenType,
		Name:       name,
		Scopes:     scopes,
		Revoked:    false,
		Expiration: expires,
		CreatedAt:  m.nowFunc(),
	}

	rawToken, err := m.signer.Sign(SessionClaims{
		Scopes: record.ScopeNames(),
		Name:   name,
		Type:   string(tokenType),
		RegisteredClaims: jwt.RegisteredClaims{
			Subject: account.Email,
		},
	}, expires)
	if err != nil {
		return nil, "", errors.Wrap(err, "[Manager.CreateToken] Sign")
	}
	record.Fingerprint = m.fingerprint.Fingerprint(rawToken)

	if tokenType == TypeUser {
		record, err = m.tokenRepo.RotateUserSession(ctx, record)
		if err != nil {
			return nil, "", errors.Wrap(err, "[Manager.CreateToken] RotateUserSession")
		}
		return record, rawToken, nil
	}

	// Identical signing inputs yield an identical token, so a retry maps
	// onto the already persisted record.
	if existing, err := m.tokenRepo.GetByFingerprint(ctx, record.Fingerprint); err == nil {
		return existing, rawToken, nil
	} else if !errors.Is(err, ErrNotFound) {
		return nil, "", errors.Wrap(err, "[Manager.CreateToken] GetByFingerprint")
	}

	if err := m.tokenRepo.Insert(ctx, record); err != nil {
		return nil, "", errors.Wrap(err, "[Manager.CreateToken] Insert")
	}
	return record, rawToken, nil
}

// CreateAPIToken validates and issues a long-lived api token for the
// account. All validation happens before any write: the expiration must lie
// in the future, a label is required, the requested scopes must be a subset
// of what the account's roles permit, and the name+scopes+expiration
// combination must be unique among the account's api tokens.
func (m *Manager) CreateAPIToken(ctx context.Context, account *accounts.Account, name string, scopes []accounts.Permission, expires time.Time) (*AccessToken, string, error) {
	if name == "" {
		return nil, "", autherr.New(autherr.KindInvalidData, "api token name is required")
	}
	if !expires.After(m.nowFunc()) {
		return nil, "", autherr.New(autherr.KindInvalidData, "api token expiration must lie in the future")
	}
	if len(scopes) == 0 {
		return nil, "", autherr.New(autherr.KindInvalidData, "api token requires at least one scope")
	}
	if !accounts.PermissionsSubset(scopes, account.Scopes()) {
		return nil, "", autherr.ErrAuthorization
	}

	requested := &AccessToken{AccountID: account.ID, Name: name, Scopes: scopes, Expiration: expires}
	existing, err := m.tokenRepo.ListByAccount(ctx, account.ID, TypeAPI)
	if err != nil {
		return nil, "", errors.Wrap(err, "[Manager.CreateAPIToken] ListByAccount")
	}
	// The check covers revoked records too: identical signing inputs would
	// reproduce the revoked token byte for byte, so the grant must differ in
	// name, scopes or expiration.
	for _, t := range existing {
		if t.SameGrant(requested) {
			return nil, "", autherr.New(autherr.KindConflict, "an api token with this name, scopes and expiration already exists")
		}
	}

	return m.CreateToken(ctx, account, TypeAPI, expires, name, scopes)
}

// ListAPITokens returns the account's api token records. User session
// records are never listed; their fingerprints double as CSRF secrets.
func (m *Manager) ListAPITokens(ctx context.Context, accountID string) ([]*AccessToken, error) {
	tokens, err := m.tokenRepo.ListByAccount(ctx, accountID, TypeAPI)
	if err != nil {
		return nil, errors.Wrap(err, "[Manager.ListAPITokens] ListByAccount")
	}
	return tokens, nil
}

// RevokeToken revokes one of the account's own api tokens. Records owned by
// other accounts or user-type records are reported as not found.
func (m *Manager) RevokeToken(ctx context.Context, account *accounts.Account, tokenID string) error {
	record, err := m.tokenRepo.GetByID(ctx, tokenID)
	if err != nil {
		return errors.Wrap(err, "[Manager.RevokeToken] GetByID")
	}
	if record.AccountID != account.ID || record.Type != TypeAPI {
		return ErrNotFound
	}
	if err := m.tokenRepo.Revoke(ctx, record.ID); err != nil {
		return errors.Wrap(err, "[Manager.RevokeToken] Revoke")
	}
	return nil
}

// RevokeAllForAccount revokes every non-revoked token of the given type for
// the account. Used on logout.
func (m *Manager) RevokeAllForAccount(ctx context.Context, accountID string, tokenType Type) error {
	if err := m.tokenRepo.RevokeAllForAccount(ctx, accountID, tokenType); err != nil {
		return errors.Wrap(err, "[Manager.RevokeAllForAccount] RevokeAllForAccount")
	}
	return nil
}
