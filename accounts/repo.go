package accounts

import (
	"context"
	"errors"
)

// ErrNotFound is returned by repositories when no account matches.
var ErrNotFound = errors.New("account not found")

// Repo is the persistence boundary for accounts. Implementations must treat
// emails case-insensitively; callers pass them through NormalizeEmail.
type Repo interface {
	Upsert(ctx context.Context, account *Account) error
	GetByEmail(ctx context.Context, email string) (*Account, error)
	GetByID(ctx context.Context, id string) (*Account, error)
	SetActive(ctx context.Context, email string, active bool) error
	List(ctx context.Context, offset, limit int) ([]*Account, error)
}
