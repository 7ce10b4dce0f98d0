package db

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"liveshop/internal/app/issuer"
)

// execer is the subset of pgxpool.Pool used by AuditStore.
type execer interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
}

// uniqueViolation is the PostgreSQL SQLSTATE for unique constraint failures.
const uniqueViolation = "23505"

const insertIssuance = `
INSERT INTO token_issuances (
    issuance_id, token_type, channel_name, account, rtm_user_id, role, issued_at, expires_at, remote_ip
) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`

// AuditStore records issuances in the token_issuances table.
type AuditStore struct {
	db execer
}

// NewAuditStore returns an AuditStore backed by pool.
func NewAuditStore(pool *pgxpool.Pool) *AuditStore {
	return &AuditStore{db: pool}
}

// Record inserts rec. Replaying an already stored issuance id is not an error.
func (s *AuditStore) Record(ctx context.Context, rec issuer.Record) error {
	_, err := s.db.Exec(ctx, insertIssuance,
		rec.IssuanceID,
		string(rec.TokenType),
		rec.ChannelName,
		rec.Account,
		rec.RTMUserID,
		rec.Role,
		rec.IssuedAt,
		rec.ExpiresAt,
		rec.RemoteIP,
	)
	if err != nil {
		if isDuplicateIssuance(err) {
			return nil
		}
		return fmt.Errorf("failed to insert token issuance %s: %w", rec.IssuanceID, err)
	}
	return nil
}

// isDuplicateIssuance reports a primary key conflict on issuance_id.
func isDuplicateIssuance(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == uniqueViolation
}
