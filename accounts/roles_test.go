package accounts_test

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/veridianhq/veridian-server/accounts"
)

func TestScopesForRolesDeduplicatesAndOrders(t *testing.T) {
	scopes := accounts.ScopesForRoles([]accounts.Role{accounts.RoleAuditor, accounts.RoleUser})

	// Auditor and user overlap on me-read and token-read; the union keeps
	// one copy of each, in enumeration order.
	assert.Equal(t, []accounts.Permission{
		accounts.PermissionAccountRead,
		accounts.PermissionAccountMeRead,
		accounts.PermissionAccountMeUpdate,
		accounts.PermissionAccessTokenRead,
		accounts.PermissionAccessTokenCreate,
		accounts.PermissionAccessTokenDelete,
	}, scopes)
}

func TestAdminHoldsEveryPermission(t *testing.T) {
	scopes := accounts.ScopesForRoles([]accounts.Role{accounts.RoleAdmin})
	assert.Equal(t, accounts.AllPermissions, scopes)
}

func TestScopesForUnknownRolesAreEmpty(t *testing.T) {
	assert.Empty(t, accounts.ScopesForRoles(nil))
	assert.Empty(t, accounts.ScopesForRoles([]accounts.Role{accounts.Role("intruder")}))
}

func TestParseRolesDropsUnknownNames(t *testing.T) {
	roles := accounts.ParseRoles([]string{"admin", "some-ad-group", "user"})
	assert.Equal(t, []accounts.Role{accounts.RoleAdmin, accounts.RoleUser}, roles)
}

func TestParsePermissionsDropsUnknownNames(t *testing.T) {
	perms := accounts.ParsePermissions([]string{"account_read", "launch_missiles"})
	assert.Equal(t, []accounts.Permission{accounts.PermissionAccountRead}, perms)
}

func TestPermissionsSubset(t *testing.T) {
	super := accounts.ScopesForRoles([]accounts.Role{accounts.RoleUser})

	assert.True(t, accounts.PermissionsSubset(nil, super))
	assert.True(t, accounts.PermissionsSubset([]accounts.Permission{accounts.PermissionAccountMeRead}, super))
	assert.False(t, accounts.PermissionsSubset([]accounts.Permission{accounts.PermissionAccountDelete}, super))
}

func TestNormalizeEmail(t *testing.T) {
	assert.Equal(t, "ada@example.com", accounts.NormalizeEmail("  Ada@Example.COM "))
}

func TestMergeClaimKeepsLocalFields(t *testing.T) {
	account := &accounts.Account{
		Email:    "ada@example.com",
		FullName: "Ada Lovelace",
		Roles:    []accounts.Role{accounts.RoleUser},
		Density:  accounts.TableDensityCompact,
		Sidebar:  true,
	}

	account.MergeClaim(&accounts.Account{
		FullName: "Ada King",
		Roles:    []accounts.Role{accounts.RoleAdmin},
		ClientIP: "10.1.2.3",
	})

	assert.Equal(t, "Ada King", account.FullName)
	assert.Equal(t, []accounts.Role{accounts.RoleAdmin}, account.Roles)
	assert.Equal(t, "10.1.2.3", account.ClientIP)
	assert.Equal(t, accounts.TableDensityCompact, account.Density)
	assert.True(t, account.Sidebar)
}

func TestMergeClaimIgnoresEmptyFields(t *testing.T) {
	account := &accounts.Account{
		FullName: "Ada Lovelace",
		Roles:    []accounts.Role{accounts.RoleUser},
	}

	account.MergeClaim(&accounts.Account{})

	assert.Equal(t, "Ada Lovelace", account.FullName)
	assert.Equal(t, []accounts.Role{accounts.RoleUser}, account.Roles)
}
