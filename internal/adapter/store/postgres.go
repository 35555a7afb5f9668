package store

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/collabhub/gateway/internal/domain"
	"github.com/google/uuid"
)

// PostgresStore persists the session registry and the proxy audit
// trail. The cookie remains the carrier of the session token itself;
// the registry only exists so sign-out revokes across processes.
type PostgresStore struct {
	db *sql.DB
}

// NewPostgresStore opens a connection and returns a store instance.
func NewPostgresStore(databaseURL string) (*PostgresStore, error) {
	db, err := sql.Open("postgres", databaseURL)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}

	db.SetMaxOpenConns(25)
	db.SetMaxIdleConns(5)
	db.SetConnMaxLifetime(5 * time.Minute)

	if err := db.PingContext(context.Background()); err != nil {
		return nil, fmt.Errorf("ping database: %w", err)
	}

	return &PostgresStore{db: db}, nil
}

// Close closes the database connection.
func (s *PostgresStore) Close() error {
	return s.db.Close()
}

// --- Session registry ---

// CreateSession records a newly issued session and returns its id.
func (s *PostgresStore) CreateSession(ctx context.Context, userID string, expiresAt time.Time) (*domain.SessionRecord, error) {
	record := &domain.SessionRecord{
		ID:        uuid.NewString(),
		UserID:    userID,
		CreatedAt: time.Now(),
		ExpiresAt: expiresAt,
	}

	query := `INSERT INTO sessions (id, user_id, created_at, expires_at) VALUES ($1, $2, $3, $4)`
	if _, err := s.db.ExecContext(ctx, query, record.ID, record.UserID, record.CreatedAt, record.ExpiresAt); err != nil {
		return nil, fmt.Errorf("create session: %w", err)
	}
	return record, nil
}

// RevokeSession marks a session revoked. Revoking an already revoked or
// unknown session is a no-op.
func (s *PostgresStore) RevokeSession(ctx context.Context, id string) error {
	query := `UPDATE sessions SET revoked_at = NOW() WHERE id = $1 AND revoked_at IS NULL`
	if _, err := s.db.ExecContext(ctx, query, id); err != nil {
		return fmt.Errorf("revoke session: %w", err)
	}
	return nil
}

// SessionRevoked reports whether the session has been revoked. Unknown
// sessions count as revoked.
func (s *PostgresStore) SessionRevoked(ctx context.Context, id string) (bool, error) {
	query := `SELECT revoked_at IS NOT NULL FROM sessions WHERE id = $1`

	var revoked bool
	err := s.db.QueryRowContext(ctx, query, id).Scan(&revoked)
	if err == sql.ErrNoRows {
		return true, nil
	}
	if err != nil {
		return false, fmt.Errorf("lookup session: %w", err)
	}
	return revoked, nil
}

// --- Proxy audit trail ---

// WriteAudit persists one proxied-request record.
func (s *PostgresStore) WriteAudit(ctx context.Context, entry domain.AuditEntry) error {
	query := `
		INSERT INTO proxy_audit (id, method, target_path, status, duration_ms, caller_ip, user_agent, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, NOW())`

	_, err := s.db.ExecContext(ctx, query,
		uuid.NewString(), entry.Method, entry.TargetPath, entry.Status,
		entry.DurationMS, entry.CallerIP, entry.UserAgent,
	)
	if err != nil {
		return fmt.Errorf("write audit entry: %w", err)
	}
	return nil
}

// ListAudit returns the most recent proxied-request records.
func (s *PostgresStore) ListAudit(ctx context.Context, limit int) ([]domain.AuditEntry, error) {
	if limit <= 0 || limit > 500 {
		limit = 100
	}

	query := `
		SELECT id, method, target_path, status, duration_ms, caller_ip, user_agent, created_at
		FROM proxy_audit ORDER BY created_at DESC LIMIT $1`

	rows, err := s.db.QueryContext(ctx, query, limit)
	if err != nil {
		return nil, fmt.Errorf("list audit entries: %w", err)
	}
	defer rows.Close()

	var entries []domain.AuditEntry
	for rows.Next() {
		var e domain.AuditEntry
		if err := rows.Scan(&e.ID, &e.Method, &e.TargetPath, &e.Status,
			&e.DurationMS, &e.CallerIP, &e.UserAgent, &e.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan audit entry: %w", err)
		}
		entries = append(entries, e)
	}
	return entries, rows.Err()
}
