package authn

import (
	"context"

	"github.com/veridianhq/veridian-server/accounts"
)

// contextKey is an unexported type for context keys in this package,
// preventing collisions with keys from other packages.
type contextKey int

const accountKey contextKey = iota

// ContextWithAccount returns a new context with the authenticated account
// attached. Called by the HTTP middleware after the guard succeeds.
func ContextWithAccount(ctx context.Context, account *accounts.Account) context.Context {
	return context.WithValue(ctx, accountKey, account)
}

// AccountFromContext retrieves the authenticated account from the context.
// Returns nil and false if no account has been attached.
func AccountFromContext(ctx context.Context) (*accounts.Account, bool) {
	account, ok := ctx.Value(accountKey).(*accounts.Account)
	return account, ok
}
