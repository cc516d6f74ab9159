// Package verifications provides a PostgreSQL-backed store for single-use
// email verification tokens. Both issue and consume are single statements,
// so the unique index on email and the delete-returning form carry the
// concurrency guarantees; no application-level locking exists.
package verifications

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/staywo/authgate/internal/common"
	"github.com/staywo/authgate/internal/dbx"
	"github.com/staywo/authgate/internal/server/models"
)

// PostgresRepository implements Repository over dbx.DBTX
// (satisfied by *sql.DB or *sql.Tx).
type PostgresRepository struct {
	db dbx.DBTX
}

// NewPostgresRepository constructs a repository bound to the given DBTX.
func NewPostgresRepository(db dbx.DBTX) *PostgresRepository {
	return &PostgresRepository{db: db}
}

// Issue inserts a pending record, replacing an expired one for the same
// email in the same statement. Two concurrent calls for one email cannot
// both succeed: the loser of the conflict sees no returned row.
func (r *PostgresRepository) Issue(ctx context.Context, email, token string, ttl time.Duration) error {
	query := `
		INSERT INTO email_verifications (email, token)
		VALUES ($1, $2)
		ON CONFLICT (email) DO UPDATE
		SET token = EXCLUDED.token, created_at = now()
		WHERE email_verifications.created_at < now() - make_interval(secs => $3)
		RETURNING id
	`
	var id int64
	err := r.db.QueryRowContext(ctx, query, email, token, ttl.Seconds()).Scan(&id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return common.ErrorAlreadyPending
		}
		return fmt.Errorf("db error: %w", err)
	}
	return nil
}

// Consume deletes the record holding token and returns its email. The
// delete-returning form makes a second consume of the same token fail with
// common.ErrorNotFound even under concurrent callers.
func (r *PostgresRepository) Consume(ctx context.Context, token string, ttl time.Duration) (string, error) {
	query := `
		DELETE FROM email_verifications
		WHERE token = $1 AND created_at >= now() - make_interval(secs => $2)
		RETURNING email
	`
	var email string
	err := r.db.QueryRowContext(ctx, query, token, ttl.Seconds()).Scan(&email)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return "", common.ErrorNotFound
		}
		return "", fmt.Errorf("db error: %w", err)
	}
	return email, nil
}

// FindByEmail returns the pending record for the given email.
func (r *PostgresRepository) FindByEmail(ctx context.Context, email string) (*models.EmailVerification, error) {
	query := `
		SELECT id, email, token, created_at
		FROM email_verifications
		WHERE email = $1
	`
	v := &models.EmailVerification{}
	err := r.db.QueryRowContext(ctx, query, email).Scan(&v.ID, &v.Email, &v.Token, &v.CreatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, common.ErrorNotFound
		}
		return nil, fmt.Errorf("db error: %w", err)
	}
	return v, nil
}
