package token

import (
	"time"

	"github.com/veridianhq/veridian-server/accounts"
)

// Type tags an AccessToken record. A "user" token backs a browser session;
// an "api" token is a long-lived, user-created credential with a scope
// subset of its owner's permissions.
type Type string

const (
	TypeUser Type = "user"
	TypeAPI  Type = "api"
)

// AccessToken is the persisted record of an issued token. It stores the
// token's keyed fingerprint, never the raw token itself. Revocation is
// monotonic: once Revoked is set it is never cleared.
type AccessToken struct {
	ID          string                `json:"id"`
	AccountID   string                `json:"-"`
	Type        Type                  `json:"type"`
	Name        string                `json:"name,omitempty"` // Required and unique per account for api tokens
	Scopes      []accounts.Permission `json:"scopes"`
	Fingerprint string                `json:"-"`
	Revoked     bool                  `json:"revoked"`
	Expiration  time.Time             `json:"expiration"`
	CreatedAt   time.Time             `json:"created_at"`
}

// Active reports whether the record is usable at the given instant.
func (t *AccessToken) Active(now time.Time) bool {
	return !t.Revoked && now.Before(t.Expiration)
}

// ScopeNames returns the granted scopes as strings for embedding in claims.
func (t *AccessToken) ScopeNames() []string {
	names := make([]string, 0, len(t.Scopes))
	for _, s := range t.Scopes {
		names = append(names, string(s))
	}
	return names
}

// SameGrant reports whether another record represents the same api token
// request: identical name, scope set and expiration for the same account.
// Used for the per-account uniqueness check on api token creation.
func (t *AccessToken) SameGrant(other *AccessToken) bool {
	if t.AccountID != other.AccountID || t.Name != other.Name || !t.Expiration.Equal(other.Expiration) {
		return false
	}
	if len(t.Scopes) != len(other.Scopes) {
		return false
	}
	scopes := make(map[accounts.Permission]struct{}, len(t.Scopes))
	for _, s := range t.Scopes {
		scopes[s] = struct{}{}
	}
	for _, s := range other.Scopes {
		if _, ok := scopes[s]; !ok {
			return false
		}
	}
	return true
}
