package accounts

import (
	"strings"
	"time"
)

// TableDensity controls how tightly the SPA renders data tables for an
// account. Stored as a plain string so new density values do not require a
// schema change.
type TableDensity string

const (
	TableDensityCompact     TableDensity = "compact"
	TableDensityStandard    TableDensity = "standard"
	TableDensityComfortable TableDensity = "comfortable"
)

// Account is a local user record. Accounts are created on first successful
// login (or administratively) and are never hard-deleted; deactivation is
// expressed through the Active flag.
type Account struct {
	ID        string       `json:"id,omitempty"`
	Email     string       `json:"email,omitempty"` // Lower-cased, unique
	FullName  string       `json:"full_name,omitempty"`
	Active    bool         `json:"active"`
	Roles     []Role       `json:"roles,omitempty"`
	LastLogin time.Time    `json:"last_login,omitempty"`
	Avatar    []byte       `json:"-"` // PNG blob, served via its own endpoint
	Density   TableDensity `json:"table_density,omitempty"`
	Sidebar   bool         `json:"sidebar_collapsed,omitempty"`
	ClientIP  string       `json:"-"` // Last login origin, diagnostics only

	CreatedAt time.Time `json:"created_at,omitempty"`
	UpdatedAt time.Time `json:"updated_at,omitempty"`
}

// NormalizeEmail lower-cases and trims an email address. All account lookups
// and claim mappings go through this so the unique-email invariant is
// case-insensitive.
func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

// Scopes returns the permission set derived from the account's roles,
// deduplicated and in enumeration order.
func (a *Account) Scopes() []Permission {
	return ScopesForRoles(a.Roles)
}

// ScopeNames returns the account's derived permissions as strings, the form
// embedded into session token claims.
func (a *Account) ScopeNames() []string {
	scopes := a.Scopes()
	names := make([]string, 0, len(scopes))
	for _, s := range scopes {
		names = append(names, string(s))
	}
	return names
}

// HasRole reports whether the account carries the given role.
func (a *Account) HasRole(role Role) bool {
	for _, r := range a.Roles {
		if r == role {
			return true
		}
	}
	return false
}

// MergeClaim copies the identity fields an IdP claim asserts on every login
// (name, roles, origin IP) into the persisted account. Locally managed
// fields such as the avatar, UI preferences and the active flag are left
// untouched.
func (a *Account) MergeClaim(claim *Account) {
	if claim.FullName != "" {
		a.FullName = claim.FullName
	}
	if len(claim.Roles) > 0 {
		a.Roles = claim.Roles
	}
	if claim.ClientIP != "" {
		a.ClientIP = claim.ClientIP
	}
}
