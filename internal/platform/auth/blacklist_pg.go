package auth

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/medapi/medapi/internal/platform/db"
)

// PGBlacklist stores revoked refresh tokens in the token_blacklist table.
type PGBlacklist struct {
	conn func(ctx context.Context) db.Querier
}

func NewPGBlacklist(pool *pgxpool.Pool) *PGBlacklist {
	return &PGBlacklist{conn: func(ctx context.Context) db.Querier { return db.Conn(ctx, pool) }}
}

func (b *PGBlacklist) Add(ctx context.Context, jti string, userID int64, expiresAt time.Time) error {
	tag, err := b.conn(ctx).Exec(ctx, `
		INSERT INTO token_blacklist (jti, user_id, expires_at)
		VALUES ($1, $2, $3)
		ON CONFLICT (jti) DO NOTHING`,
		jti, userID, expiresAt)
	if err != nil {
		return fmt.Errorf("blacklist token: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrAlreadyBlacklisted
	}
	return nil
}

func (b *PGBlacklist) Contains(ctx context.Context, jti string) (bool, error) {
	var exists bool
	err := b.conn(ctx).QueryRow(ctx,
		`SELECT EXISTS (SELECT 1 FROM token_blacklist WHERE jti = $1)`, jti).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("check token blacklist: %w", err)
	}
	return exists, nil
}

func (b *PGBlacklist) FlushExpired(ctx context.Context) (int, error) {
	tag, err := b.conn(ctx).Exec(ctx, `DELETE FROM token_blacklist WHERE expires_at < now()`)
	if err != nil {
		return 0, fmt.Errorf("flush token blacklist: %w", err)
	}
	return int(tag.RowsAffected()), nil
}
