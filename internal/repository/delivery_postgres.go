// Package repository persists delivery outcomes and the suppression list
// in Postgres. The database is optional: runs without a DATABASE_URL skip
// history and suppression entirely.
package repository

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	sq "github.com/Masterminds/squirrel"

	"github.com/lzcjsyr/email-bulk-sender/internal/domain"
)

// psql builds queries with Postgres dollar placeholders
var psql = sq.StatementBuilder.PlaceholderFormat(sq.Dollar)

// DeliveryRepository implements domain.DeliveryHistory and
// domain.SuppressionList on a shared database connection.
type DeliveryRepository struct {
	db *sql.DB
}

var (
	_ domain.DeliveryHistory = (*DeliveryRepository)(nil)
	_ domain.SuppressionList = (*DeliveryRepository)(nil)
)

// NewDeliveryRepository creates a new delivery repository
func NewDeliveryRepository(db *sql.DB) *DeliveryRepository {
	return &DeliveryRepository{db: db}
}

const schema = `
CREATE TABLE IF NOT EXISTS deliveries (
	id TEXT PRIMARY KEY,
	recipient TEXT NOT NULL,
	message_id TEXT NOT NULL DEFAULT '',
	subject TEXT NOT NULL DEFAULT '',
	status TEXT NOT NULL,
	attempts INTEGER NOT NULL DEFAULT 0,
	error_kind TEXT NOT NULL DEFAULT '',
	error_message TEXT NOT NULL DEFAULT '',
	bounce_type TEXT NOT NULL DEFAULT '',
	bounce_reason TEXT NOT NULL DEFAULT '',
	completed_at TIMESTAMPTZ NOT NULL
);

CREATE INDEX IF NOT EXISTS deliveries_recipient_idx ON deliveries (recipient);

CREATE TABLE IF NOT EXISTS suppressions (
	email TEXT PRIMARY KEY,
	reason TEXT NOT NULL DEFAULT '',
	code INTEGER NOT NULL DEFAULT 0,
	created_at TIMESTAMPTZ NOT NULL
);
`

// InitSchema creates the delivery tables when they do not exist yet.
// Safe to call on every startup.
func (r *DeliveryRepository) InitSchema(ctx context.Context) error {
	if _, err := r.db.ExecContext(ctx, schema); err != nil {
		return fmt.Errorf("failed to initialize delivery schema: %w", err)
	}
	return nil
}

// RecordDelivery writes one terminal delivery outcome
func (r *DeliveryRepository) RecordDelivery(ctx context.Context, record *domain.DeliveryRecord) error {
	if record == nil {
		return fmt.Errorf("delivery record is nil")
	}

	completedAt := record.CompletedAt
	if completedAt.IsZero() {
		completedAt = time.Now().UTC()
	}

	query, args, err := psql.Insert("deliveries").
		Columns("id", "recipient", "message_id", "subject", "status", "attempts",
			"error_kind", "error_message", "bounce_type", "bounce_reason", "completed_at").
		Values(record.ID, record.Recipient, record.MessageID, record.Subject,
			string(record.Status), record.Attempts, record.ErrorKind, record.ErrorMessage,
			record.BounceType, record.BounceReason, completedAt).
		ToSql()
	if err != nil {
		return fmt.Errorf("failed to build delivery insert: %w", err)
	}

	if _, err := r.db.ExecContext(ctx, query, args...); err != nil {
		return fmt.Errorf("failed to record delivery: %w", err)
	}
	return nil
}

// Suppress adds an address to the suppression list. Suppressing an
// address that is already on the list keeps the original entry.
func (r *DeliveryRepository) Suppress(ctx context.Context, suppression *domain.Suppression) error {
	if suppression == nil {
		return fmt.Errorf("suppression is nil")
	}
	email := normalizeEmail(suppression.Email)
	if email == "" {
		return fmt.Errorf("suppression address is empty")
	}

	createdAt := suppression.CreatedAt
	if createdAt.IsZero() {
		createdAt = time.Now().UTC()
	}

	query, args, err := psql.Insert("suppressions").
		Columns("email", "reason", "code", "created_at").
		Values(email, suppression.Reason, suppression.Code, createdAt).
		Suffix("ON CONFLICT (email) DO NOTHING").
		ToSql()
	if err != nil {
		return fmt.Errorf("failed to build suppression insert: %w", err)
	}

	if _, err := r.db.ExecContext(ctx, query, args...); err != nil {
		return fmt.Errorf("failed to suppress %s: %w", email, err)
	}
	return nil
}

// IsSuppressed reports whether the address is on the suppression list
func (r *DeliveryRepository) IsSuppressed(ctx context.Context, email string) (bool, error) {
	query, args, err := psql.Select("1").
		From("suppressions").
		Where(sq.Eq{"email": normalizeEmail(email)}).
		Limit(1).
		ToSql()
	if err != nil {
		return false, fmt.Errorf("failed to build suppression lookup: %w", err)
	}

	var one int
	err = r.db.QueryRowContext(ctx, query, args...).Scan(&one)
	if err == sql.ErrNoRows {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("failed to check suppression for %s: %w", email, err)
	}
	return true, nil
}

// normalizeEmail canonicalizes an address for suppression matching, so a
// bounce recorded as Ana@Example.COM still blocks ana@example.com.
func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}
