package postgres

import (
	"context"

	"github.com/jackc/pgx/v5"
	"github.com/pkg/errors"

	"github.com/veridianhq/veridian-server/accounts"
)

var _ accounts.Repo = (*AccountStore)(nil)

type AccountStore struct {
	pool Pool
}

const accountColumns = `id, email, full_name, active, roles, last_login, avatar, table_density, sidebar_collapsed, client_ip, created_at, updated_at`

// Upsert inserts the account or, when the email already exists, refreshes
// every mutable field from the given struct. Timestamps are normalized to
// UTC on write; the caller stamps last_login in local server time.
func (as *AccountStore) Upsert(ctx context.Context, account *accounts.Account) error {
	account.Email = accounts.NormalizeEmail(account.Email)
	row := as.pool.QueryRow(ctx, `
		INSERT INTO accounts (email, full_name, active, roles, last_login, avatar, table_density, sidebar_collapsed, client_ip)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		ON CONFLICT (email) DO UPDATE SET
			full_name         = EXCLUDED.full_name,
			active            = EXCLUDED.active,
			roles             = EXCLUDED.roles,
			last_login        = EXCLUDED.last_login,
			avatar            = EXCLUDED.avatar,
			table_density     = EXCLUDED.table_density,
			sidebar_collapsed = EXCLUDED.sidebar_collapsed,
			client_ip         = EXCLUDED.client_ip,
			updated_at        = now()
		RETURNING id, created_at, updated_at`,
		account.Email,
		account.FullName,
		account.Active,
		roleNames(account.Roles),
		account.LastLogin,
		account.Avatar,
		string(account.Density),
		account.Sidebar,
		account.ClientIP,
	)
	if err := row.Scan(&account.ID, &account.CreatedAt, &account.UpdatedAt); err != nil {
		return errors.Wrap(err, "[AccountStore.Upsert] scan")
	}
	return nil
}

func (as *AccountStore) GetByEmail(ctx context.Context, email string) (*accounts.Account, error) {
	row := as.pool.QueryRow(ctx,
		`SELECT `+accountColumns+` FROM accounts WHERE email = $1`,
		accounts.NormalizeEmail(email),
	)
	return scanAccount(row)
}

func (as *AccountStore) GetByID(ctx context.Context, id string) (*accounts.Account, error) {
	row := as.pool.QueryRow(ctx,
		`SELECT `+accountColumns+` FROM accounts WHERE id = $1`, id)
	return scanAccount(row)
}

func (as *AccountStore) SetActive(ctx context.Context, email string, active bool) error {
	tag, err := as.pool.Exec(ctx,
		`UPDATE accounts SET active = $2, updated_at = now() WHERE email = $1`,
		accounts.NormalizeEmail(email), active)
	if err != nil {
		return errors.Wrap(err, "[AccountStore.SetActive] exec")
	}
	if tag.RowsAffected() == 0 {
		return accounts.ErrNotFound
	}
	return nil
}

func (as *AccountStore) List(ctx context.Context, offset, limit int) ([]*accounts.Account, error) {
	if limit <= 0 {
		limit = 100
	}
	rows, err := as.pool.Query(ctx,
		`SELECT `+accountColumns+` FROM accounts ORDER BY email OFFSET $1 LIMIT $2`,
		offset, limit)
	if err != nil {
		return nil, errors.Wrap(err, "[AccountStore.List] query")
	}
	defer rows.Close()

	var list []*accounts.Account
	for rows.Next() {
		account, err := scanAccount(rows)
		if err != nil {
			return nil, err
		}
		list = append(list, account)
	}
	return list, errors.Wrap(rows.Err(), "[AccountStore.List] rows")
}

func scanAccount(row pgx.Row) (*accounts.Account, error) {
	var (
		account accounts.Account
		roles   []string
		density string
	)
	err := row.Scan(
		&account.ID,
		&account.Email,
		&account.FullName,
		&account.Active,
		&roles,
		&account.LastLogin,
		&account.Avatar,
		&density,
		&account.Sidebar,
		&account.ClientIP,
		&account.CreatedAt,
		&account.UpdatedAt,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, accounts.ErrNotFound
	}
	if err != nil {
		return nil, errors.Wrap(err, "scan account")
	}
	account.Roles = accounts.ParseRoles(roles)
	account.Density = accounts.TableDensity(density)
	return &account, nil
}

func roleNames(roles []accounts.Role) []string {
	names := make([]string, 0, len(roles))
	for _, r := range roles {
		names = append(names, string(r))
	}
	return names
}
