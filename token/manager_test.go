package token_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/veridianhq/veridian-server/accounts"
	fakeaccountrepo "github.com/veridianhq/veridian-server/accounts/repofake"
	"github.com/veridianhq/veridian-server/internal/autherr"
	"github.com/veridianhq/veridian-server/token"
	faketokenrepo "github.com/veridianhq/veridian-server/token/repofake"
)

type managerFixture struct {
	accountRepo *fakeaccountrepo.FakeAccountRepo
	tokenRepo   *faketokenrepo.FakeTokenRepo
	manager     *token.Manager
	now         time.Time
}

func setupManager(t *testing.T) *managerFixture {
	t.Helper()

	f := &managerFixture{
		accountRepo: fakeaccountrepo.NewFakeAccountRepo(),
		tokenRepo:   faketokenrepo.NewFakeTokenRepo(),
		now:         time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC),
	}

	manager, err := token.NewManager(
		f.accountRepo,
		f.tokenRepo,
		newSigner(t, testSigningSecret, "HS256"),
		token.NewFingerprinter("fingerprint-key"),
		token.WithNowFunc(func() time.Time { return f.now }),
	)
	require.NoError(t, err)
	f.manager = manager
	return f
}

func (f *managerFixture) advance(d time.Duration) {
	f.now = f.now.Add(d)
}

func userClaim(email string) *accounts.Account {
	return &accounts.Account{
		Email:    email,
		FullName: "Ada Lovelace",
		Roles:    []accounts.Role{accounts.RoleUser},
	}
}

func TestFirstLoginCreatesAccountAndSession(t *testing.T) {
	f := setupManager(t)
	ctx := context.Background()

	rawToken, record, err := f.manager.CreateTokenForAccount(ctx, userClaim("Ada@Example.com"))
	require.NoError(t, err)
	require.NotEmpty(t, rawToken)

	account, err := f.accountRepo.GetByEmail(ctx, "ada@example.com")
	require.NoError(t, err)
	assert.True(t, account.Active)
	assert.Equal(t, f.now, account.LastLogin)

	assert.Equal(t, token.TypeUser, record.Type)
	assert.Equal(t, account.ID, record.AccountID)
	assert.Equal(t, f.now.Add(30*time.Minute), record.Expiration)
	assert.True(t, record.Active(f.now))

	stored, err := f.tokenRepo.GetByFingerprint(ctx, record.Fingerprint)
	require.NoError(t, err)
	assert.Equal(t, record.ID, stored.ID)
}

func TestSecondLoginRevokesPreviousSession(t *testing.T) {
	f := setupManager(t)
	ctx := context.Background()

	_, first, err := f.manager.CreateTokenForAccount(ctx, userClaim("ada@example.com"))
	require.NoError(t, err)

	f.advance(time.Minute)
	_, second, err := f.manager.CreateTokenForAccount(ctx, userClaim("ada@example.com"))
	require.NoError(t, err)
	require.NotEqual(t, first.Fingerprint, second.Fingerprint)

	revoked, err := f.tokenRepo.GetByID(ctx, first.ID)
	require.NoError(t, err)
	assert.True(t, revoked.Revoked, "the previous session must be revoked")

	active, err := f.tokenRepo.GetByID(ctx, second.ID)
	require.NoError(t, err)
	assert.False(t, active.Revoked)
}

func TestLoginLeavesAPITokensAndOtherAccountsAlone(t *testing.T) {
	f := setupManager(t)
	ctx := context.Background()

	_, _, err := f.manager.CreateTokenForAccount(ctx, userClaim("ada@example.com"))
	require.NoError(t, err)
	ada, err := f.accountRepo.GetByEmail(ctx, "ada@example.com")
	require.NoError(t, err)
	apiRecord, _, err := f.manager.CreateAPIToken(ctx, ada, "ci", []accounts.Permission{accounts.PermissionAccountMeRead}, f.now.Add(24*time.Hour))
	require.NoError(t, err)

	_, graceSession, err := f.manager.CreateTokenForAccount(ctx, userClaim("grace@example.com"))
	require.NoError(t, err)

	f.advance(time.Minute)
	_, _, err = f.manager.CreateTokenForAccount(ctx, userClaim("ada@example.com"))
	require.NoError(t, err)

	apiToken, err := f.tokenRepo.GetByID(ctx, apiRecord.ID)
	require.NoError(t, err)
	assert.False(t, apiToken.Revoked, "api tokens survive session rotation")

	graceToken, err := f.tokenRepo.GetByID(ctx, graceSession.ID)
	require.NoError(t, err)
	assert.False(t, graceToken.Revoked, "other accounts' sessions survive")
}

func TestLoginRefreshesIdentityFieldsOnly(t *testing.T) {
	f := setupManager(t)
	ctx := context.Background()

	_, _, err := f.manager.CreateTokenForAccount(ctx, userClaim("ada@example.com"))
	require.NoError(t, err)

	account, err := f.accountRepo.GetByEmail(ctx, "ada@example.com")
	require.NoError(t, err)
	account.Density = accounts.TableDensityCompact
	account.Sidebar = true
	require.NoError(t, f.accountRepo.Upsert(ctx, account))

	claim := userClaim("ada@example.com")
	claim.FullName = "Ada King"
	claim.Roles = []accounts.Role{accounts.RoleAdmin}
	f.advance(time.Minute)
	_, _, err = f.manager.CreateTokenForAccount(ctx, claim)
	require.NoError(t, err)

	account, err = f.accountRepo.GetByEmail(ctx, "ada@example.com")
	require.NoError(t, err)
	assert.Equal(t, "Ada King", account.FullName)
	assert.Equal(t, []accounts.Role{accounts.RoleAdmin}, account.Roles)
	assert.Equal(t, accounts.TableDensityCompact, account.Density, "UI preferences survive logins")
	assert.True(t, account.Sidebar)
}

func TestLoginRejectsInactiveAccount(t *testing.T) {
	f := setupManager(t)
	ctx := context.Background()

	_, _, err := f.manager.CreateTokenForAccount(ctx, userClaim("ada@example.com"))
	require.NoError(t, err)
	require.NoError(t, f.accountRepo.SetActive(ctx, "ada@example.com", false))

	_, _, err = f.manager.CreateTokenForAccount(ctx, userClaim("ada@example.com"))
	assert.ErrorIs(t, err, autherr.ErrAuthentication)
}

func TestLoginRejectsRolelessClaim(t *testing.T) {
	f := setupManager(t)

	claim := userClaim("ada@example.com")
	claim.Roles = nil
	_, _, err := f.manager.CreateTokenForAccount(context.Background(), claim)
	assert.ErrorIs(t, err, autherr.ErrAuthorization)

	_, getErr := f.accountRepo.GetByEmail(context.Background(), "ada@example.com")
	assert.ErrorIs(t, getErr, accounts.ErrNotFound, "no account is written for a rejected login")
}

func loggedInAccount(t *testing.T, f *managerFixture) *accounts.Account {
	t.Helper()
	ctx := context.Background()
	_, _, err := f.manager.CreateTokenForAccount(ctx, userClaim("ada@example.com"))
	require.NoError(t, err)
	account, err := f.accountRepo.GetByEmail(ctx, "ada@example.com")
	require.NoError(t, err)
	return account
}

func TestCreateAPITokenValidatesBeforeWriting(t *testing.T) {
	f := setupManager(t)
	ctx := context.Background()
	account := loggedInAccount(t, f)
	scopes := []accounts.Permission{accounts.PermissionAccountMeRead}

	tt := []struct {
		name    string
		label   string
		scopes  []accounts.Permission
		expires time.Time
		kind    autherr.Kind
	}{
		{"missing name", "", scopes, f.now.Add(time.Hour), autherr.KindInvalidData},
		{"past expiration", "ci", scopes, f.now.Add(-time.Hour), autherr.KindInvalidData},
		{"no scopes", "ci", nil, f.now.Add(time.Hour), autherr.KindInvalidData},
		{"scopes beyond roles", "ci", []accounts.Permission{accounts.PermissionAccountDelete}, f.now.Add(time.Hour), autherr.KindAuthorization},
	}

	for _, tc := range tt {
		t.Run(tc.name, func(t *testing.T) {
			_, _, err := f.manager.CreateAPIToken(ctx, account, tc.label, tc.scopes, tc.expires)
			require.Error(t, err)
			authErr, ok := autherr.AsError(err)
			require.True(t, ok)
			assert.Equal(t, tc.kind, authErr.Kind)

			records, listErr := f.tokenRepo.ListByAccount(ctx, account.ID, token.TypeAPI)
			require.NoError(t, listErr)
			assert.Empty(t, records, "nothing is persisted for a rejected request")
		})
	}
}

func TestCreateAPITokenRejectsDuplicateGrant(t *testing.T) {
	f := setupManager(t)
	ctx := context.Background()
	account := loggedInAccount(t, f)
	scopes := []accounts.Permission{accounts.PermissionAccountMeRead}
	expires := f.now.Add(24 * time.Hour)

	_, _, err := f.manager.CreateAPIToken(ctx, account, "ci", scopes, expires)
	require.NoError(t, err)

	f.advance(time.Second)
	_, _, err = f.manager.CreateAPIToken(ctx, account, "ci", scopes, expires)
	assert.ErrorIs(t, err, autherr.ErrConflict)

	records, err := f.tokenRepo.ListByAccount(ctx, account.ID, token.TypeAPI)
	require.NoError(t, err)
	assert.Len(t, records, 1)
}

func TestCreateAPITokenAllowsDifferentGrants(t *testing.T) {
	f := setupManager(t)
	ctx := context.Background()
	account := loggedInAccount(t, f)
	scopes := []accounts.Permission{accounts.PermissionAccountMeRead}

	_, _, err := f.manager.CreateAPIToken(ctx, account, "ci", scopes, f.now.Add(24*time.Hour))
	require.NoError(t, err)
	f.advance(time.Second)
	_, _, err = f.manager.CreateAPIToken(ctx, account, "deploy", scopes, f.now.Add(24*time.Hour))
	require.NoError(t, err)

	records, err := f.tokenRepo.ListByAccount(ctx, account.ID, token.TypeAPI)
	require.NoError(t, err)
	assert.Len(t, records, 2)
}

func TestRevokeTokenOnlyTouchesOwnAPITokens(t *testing.T) {
	f := setupManager(t)
	ctx := context.Background()

	ada := loggedInAccount(t, f)
	adaToken, _, err := f.manager.CreateAPIToken(ctx, ada, "ci", []accounts.Permission{accounts.PermissionAccountMeRead}, f.now.Add(time.Hour))
	require.NoError(t, err)

	_, graceSession, err := f.manager.CreateTokenForAccount(ctx, userClaim("grace@example.com"))
	require.NoError(t, err)
	grace, err := f.accountRepo.GetByEmail(ctx, "grace@example.com")
	require.NoError(t, err)

	// Another account cannot revoke it.
	assert.ErrorIs(t, f.manager.RevokeToken(ctx, grace, adaToken.ID), token.ErrNotFound)

	// User session records are not addressable through this path.
	assert.ErrorIs(t, f.manager.RevokeToken(ctx, grace, graceSession.ID), token.ErrNotFound)

	// The owner can.
	require.NoError(t, f.manager.RevokeToken(ctx, ada, adaToken.ID))
	revoked, err := f.tokenRepo.GetByID(ctx, adaToken.ID)
	require.NoError(t, err)
	assert.True(t, revoked.Revoked)
}

func TestRevokeAllForAccountOnLogout(t *testing.T) {
	f := setupManager(t)
	ctx := context.Background()

	ada := loggedInAccount(t, f)
	apiRecord, _, err := f.manager.CreateAPIToken(ctx, ada, "ci", []accounts.Permission{accounts.PermissionAccountMeRead}, f.now.Add(time.Hour))
	require.NoError(t, err)

	require.NoError(t, f.manager.RevokeAllForAccount(ctx, ada.ID, token.TypeUser))

	sessions, err := f.tokenRepo.ListByAccount(ctx, ada.ID, token.TypeUser)
	require.NoError(t, err)
	for _, s := range sessions {
		assert.True(t, s.Revoked)
	}

	apiToken, err := f.tokenRepo.GetByID(ctx, apiRecord.ID)
	require.NoError(t, err)
	assert.False(t, apiToken.Revoked, "logout does not touch api tokens")
}
