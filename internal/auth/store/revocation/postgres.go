package revocation

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"
)

// PostgresTRL persists revoked token JTIs in PostgreSQL. It backs the list
// when a database is configured but Redis is not.
type PostgresTRL struct {
	db    *sql.DB
	clock Clock
}

type PostgresTRLOption func(*PostgresTRL)

// WithPostgresClock sets the clock function for testability.
func WithPostgresClock(clock Clock) PostgresTRLOption {
	return func(trl *PostgresTRL) {
		if clock != nil {
			trl.clock = clock
		}
	}
}

func NewPostgresTRL(db *sql.DB, opts ...PostgresTRLOption) *PostgresTRL {
	trl := &PostgresTRL{
		db:    db,
		clock: time.Now,
	}
	for _, opt := range opts {
		if opt != nil {
			opt(trl)
		}
	}
	return trl
}

// RevokeToken adds a token to the revocation list with TTL.
func (t *PostgresTRL) RevokeToken(ctx context.Context, jti string, ttl time.Duration) error {
	if jti == "" {
		return nil
	}
	if err := validateTTL(ttl); err != nil {
		return err
	}
	expiresAt := t.clock().Add(ttl)
	query := `
		INSERT INTO token_revocations (jti, expires_at)
		VALUES ($1, $2)
		ON CONFLICT (jti) DO UPDATE SET
			expires_at = EXCLUDED.expires_at
	`
	if _, err := t.db.ExecContext(ctx, query, jti, expiresAt); err != nil {
		return fmt.Errorf("revoke token: %w", err)
	}
	return nil
}

// IsRevoked checks if a token is in the revocation list.
func (t *PostgresTRL) IsRevoked(ctx context.Context, jti string) (bool, error) {
	if jti == "" {
		return false, nil
	}
	var expiresAt time.Time
	err := t.db.QueryRowContext(ctx, `SELECT expires_at FROM token_revocations WHERE jti = $1`, jti).Scan(&expiresAt)
	if errors.Is(err, sql.ErrNoRows) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("check token revocation: %w", err)
	}
	return t.clock().Before(expiresAt), nil
}

// PurgeExpired deletes entries whose tokens have expired and reports how many
// were removed.
func (t *PostgresTRL) PurgeExpired(ctx context.Context) (int64, error) {
	res, err := t.db.ExecContext(ctx, `DELETE FROM token_revocations WHERE expires_at <= $1`, t.clock())
	if err != nil {
		return 0, fmt.Errorf("purge token revocations: %w", err)
	}
	return res.RowsAffected()
}
