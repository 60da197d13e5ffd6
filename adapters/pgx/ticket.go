package pgx

import (
	"context"
	"time"

	"github.com/lborres/medauth/core"
)

func (a *Adapter) PutTicket(ctx context.Context, t *core.ResetTicket) error {
	query := `INSERT INTO public.reset_tickets (token_hash, email, expires_at, created_at)
	          VALUES ($1, $2, $3, $4)
	          ON CONFLICT (token_hash) DO UPDATE SET email = EXCLUDED.email, expires_at = EXCLUDED.expires_at`

	_, err := a.db.Exec(ctx, query, t.TokenHash, t.Email, t.ExpiresAt, t.CreatedAt)
	return err
}

// TakeTicket deletes and returns the ticket in one statement, so concurrent
// callers see at most one row.
func (a *Adapter) TakeTicket(ctx context.Context, tokenHash string) (*core.ResetTicket, error) {
	query := `DELETE FROM public.reset_tickets WHERE token_hash = $1
	          RETURNING token_hash, email, expires_at, created_at`

	t := &core.ResetTicket{}
	err := a.db.QueryRow(ctx, query, tokenHash).Scan(&t.TokenHash, &t.Email, &t.ExpiresAt, &t.CreatedAt)
	if err != nil {
		return nil, mapError(err, core.ErrTicketNotFound)
	}
	return t, nil
}

func (a *Adapter) DeleteExpiredTickets(ctx context.Context, now time.Time) (int, error) {
	tag, err := a.db.Exec(ctx, `DELETE FROM public.reset_tickets WHERE expires_at < $1`, now)
	if err != nil {
		return 0, err
	}
	return int(tag.RowsAffected()), nil
}
