package postgres

import (
	"context"

	"github.com/jackc/pgx/v5"
	"github.com/pkg/errors"

	"github.com/veridianhq/veridian-server/accounts"
	"github.com/veridianhq/veridian-server/token"
)

var _ token.Repo = (*TokenStore)(nil)

type TokenStore struct {
	pool Pool
}

const tokenColumns = `id, account_id, type, name, scopes, fingerprint, revoked, expiration, created_at`

func (ts *TokenStore) Insert(ctx context.Context, record *token.AccessToken) error {
	_, err := ts.pool.Exec(ctx, `
		INSERT INTO access_tokens (id, account_id, type, name, scopes, fingerprint, revoked, expiration, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`,
		record.ID,
		record.AccountID,
		string(record.Type),
		record.Name,
		scopeNames(record.Scopes),
		record.Fingerprint,
		record.Revoked,
		record.Expiration,
		record.CreatedAt,
	)
	return errors.Wrap(err, "[TokenStore.Insert] exec")
}

// RotateUserSession revokes the account's active user sessions and inserts
// the new record in one transaction. The row lock taken by the UPDATE
// serializes concurrent logins for the same account: whichever transaction
// commits last revokes the other's token, which is exactly the
// single-active-session policy. A fingerprint collision (idempotent retry)
// reuses the existing row.
func (ts *TokenStore) RotateUserSession(ctx context.Context, record *token.AccessToken) (*token.AccessToken, error) {
	tx, err := ts.pool.Begin(ctx)
	if err != nil {
		return nil, errors.Wrap(err, "[TokenStore.RotateUserSession] begin")
	}
	defer func() { _ = tx.Rollback(ctx) }()

	_, err = tx.Exec(ctx, `
		UPDATE access_tokens SET revoked = true
		WHERE account_id = $1 AND type = $2 AND NOT revoked AND fingerprint <> $3`,
		record.AccountID, string(token.TypeUser), record.Fingerprint)
	if err != nil {
		return nil, errors.Wrap(err, "[TokenStore.RotateUserSession] revoke previous")
	}

	tag, err := tx.Exec(ctx, `
		INSERT INTO access_tokens (id, account_id, type, name, scopes, fingerprint, revoked, expiration, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		ON CONFLICT (fingerprint) DO NOTHING`,
		record.ID,
		record.AccountID,
		string(record.Type),
		record.Name,
		scopeNames(record.Scopes),
		record.Fingerprint,
		record.Revoked,
		record.Expiration,
		record.CreatedAt,
	)
	if err != nil {
		return nil, errors.Wrap(err, "[TokenStore.RotateUserSession] insert")
	}

	result := record
	if tag.RowsAffected() == 0 {
		// Same fingerprint already on file, reuse that row.
		result, err = scanToken(tx.QueryRow(ctx,
			`SELECT `+tokenColumns+` FROM access_tokens WHERE fingerprint = $1`,
			record.Fingerprint))
		if err != nil {
			return nil, errors.Wrap(err, "[TokenStore.RotateUserSession] reuse existing")
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, errors.Wrap(err, "[TokenStore.RotateUserSession] commit")
	}
	return result, nil
}

func (ts *TokenStore) GetByFingerprint(ctx context.Context, fingerprint string) (*token.AccessToken, error) {
	return scanToken(ts.pool.QueryRow(ctx,
		`SELECT `+tokenColumns+` FROM access_tokens WHERE fingerprint = $1`, fingerprint))
}

func (ts *TokenStore) GetByID(ctx context.Context, id string) (*token.AccessToken, error) {
	return scanToken(ts.pool.QueryRow(ctx,
		`SELECT `+tokenColumns+` FROM access_tokens WHERE id = $1`, id))
}

func (ts *TokenStore) ListByAccount(ctx context.Context, accountID string, tokenType token.Type) ([]*token.AccessToken, error) {
	rows, err := ts.pool.Query(ctx,
		`SELECT `+tokenColumns+` FROM access_tokens WHERE account_id = $1 AND type = $2 ORDER BY created_at`,
		accountID, string(tokenType))
	if err != nil {
		return nil, errors.Wrap(err, "[TokenStore.ListByAccount] query")
	}
	defer rows.Close()

	var list []*token.AccessToken
	for rows.Next() {
		record, err := scanToken(rows)
		if err != nil {
			return nil, err
		}
		list = append(list, record)
	}
	return list, errors.Wrap(rows.Err(), "[TokenStore.ListByAccount] rows")
}

// Revoke is monotonic: it only ever sets the flag, never clears it.
func (ts *TokenStore) Revoke(ctx context.Context, id string) error {
	tag, err := ts.pool.Exec(ctx,
		`UPDATE access_tokens SET revoked = true WHERE id = $1`, id)
	if err != nil {
		return errors.Wrap(err, "[TokenStore.Revoke] exec")
	}
	if tag.RowsAffected() == 0 {
		return token.ErrNotFound
	}
	return nil
}

func (ts *TokenStore) RevokeAllForAccount(ctx context.Context, accountID string, tokenType token.Type) error {
	_, err := ts.pool.Exec(ctx,
		`UPDATE access_tokens SET revoked = true WHERE account_id = $1 AND type = $2 AND NOT revoked`,
		accountID, string(tokenType))
	return errors.Wrap(err, "[TokenStore.RevokeAllForAccount] exec")
}

func scanToken(row pgx.Row) (*token.AccessToken, error) {
	var (
		record    token.AccessToken
		tokenType string
		scopes    []string
	)
	err := row.Scan(
		&record.ID,
		&record.AccountID,
		&tokenType,
		&record.Name,
		&scopes,
		&record.Fingerprint,
		&record.Revoked,
		&record.Expiration,
		&record.CreatedAt,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, token.ErrNotFound
	}
	if err != nil {
		return nil, errors.Wrap(err, "scan access token")
	}
	record.Type = token.Type(tokenType)
	record.Scopes = accounts.ParsePermissions(scopes)
	return &record, nil
}

func scopeNames(scopes []accounts.Permission) []string {
	names := make([]string, 0, len(scopes))
	for _, s := range scopes {
		names = append(names, string(s))
	}
	return names
}
