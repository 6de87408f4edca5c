package token

import (
	"context"
	"errors"
)

// Repository errors.
var (
	ErrNotFound = errors.New("access token not found")
)

// Repo is the persistence boundary for AccessToken records.
//
// RotateUserSession carries the single-active-session invariant: it revokes
// every non-revoked user-type record of the account and inserts the new
// record in one atomic step. If a record with the same fingerprint already
// exists (idempotent retry), that record is returned instead of inserting a
// duplicate. Implementations must make the revoke-then-insert sequence
// atomic with respect to concurrent logins for the same account.
type Repo interface {
	Insert(ctx context.Context, record *AccessToken) error
	RotateUserSession(ctx context.Context, record *AccessToken) (*AccessToken, error)
	GetByFingerprint(ctx context.Context, fingerprint string) (*AccessToken, error)
	GetByID(ctx context.Context, id string) (*AccessToken, error)
	ListByAccount(ctx context.Context, accountID string, tokenType Type) ([]*AccessToken, error)
	Revoke(ctx context.Context, id string) error
	RevokeAllForAccount(ctx context.Context, accountID string, tokenType Type) error
}
