package pgx

import (
	"context"

	"github.com/lborres/medauth/core"
)

const accountColumns = `id, email, password_hash, name, role, department, avatar, created_at, updated_at`

func (a *Adapter) CreateAccount(ctx context.Context, acc *core.Account) error {
	query := `INSERT INTO public.accounts (id, email, password_hash, name, role, department, avatar)
	          VALUES ($1, $2, $3, $4, $5, $6, $7)
	          RETURNING created_at, updated_at`

	err := a.db.QueryRow(ctx, query,
		acc.ID, core.NormalizeEmail(acc.Email), acc.PasswordHash, acc.Name, acc.Role, acc.Department, acc.Avatar,
	).Scan(&acc.CreatedAt, &acc.UpdatedAt)

	return mapError(err, core.ErrUserNotFound)
}

func (a *Adapter) GetAccountByID(ctx context.Context, id string) (*core.Account, error) {
	query := `SELECT ` + accountColumns + ` FROM public.accounts WHERE id = $1`
	return a.scanAccount(ctx, query, id)
}

func (a *Adapter) GetAccountByEmail(ctx context.Context, email string) (*core.Account, error) {
	query := `SELECT ` + accountColumns + ` FROM public.accounts WHERE lower(email) = $1`
	return a.scanAccount(ctx, query, core.NormalizeEmail(email))
}

func (a *Adapter) UpdatePasswordHash(ctx context.Context, email, hash string) error {
	query := `UPDATE public.accounts SET password_hash = $1, updated_at = now()
	          WHERE lower(email) = $2`

	tag, err := a.db.Exec(ctx, query, hash, core.NormalizeEmail(email))
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return core.ErrUserNotFound
	}
	return nil
}

func (a *Adapter) scanAccount(ctx context.Context, query string, arg string) (*core.Account, error) {
	acc := &core.Account{}
	err := a.db.QueryRow(ctx, query, arg).Scan(
		&acc.ID, &acc.Email, &acc.PasswordHash, &acc.Name, &acc.Role, &acc.Department, &acc.Avatar, &acc.CreatedAt, &acc.UpdatedAt,
	)
	if err != nil {
		return nil, mapError(err, core.ErrUserNotFound)
	}
	return acc, nil
}
