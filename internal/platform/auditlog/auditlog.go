// Package auditlog stores the PHI access trail produced by the audit
// middleware.
package auditlog

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/medapi/medapi/internal/platform/authz"
	"github.com/medapi/medapi/internal/platform/db"
	"github.com/medapi/medapi/internal/platform/middleware"
)

// Store writes audit entries to the access_log table.
type Store struct {
	pool *pgxpool.Pool
}

func NewStore(pool *pgxpool.Pool) *Store {
	return &Store{pool: pool}
}

var _ middleware.AuditRecorder = (*Store)(nil)

func (s *Store) RecordAccess(ctx context.Context, e middleware.AuditEntry) error {
	var resourceID *int64
	if e.ResourceID != 0 {
		resourceID = &e.ResourceID
	}
	_, err := db.Conn(ctx, s.pool).Exec(ctx, `
		INSERT INTO access_log (
			user_id, role, resource, resource_id, action, method, path,
			status, ip_address, user_agent, request_id, accessed_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)`,
		e.UserID, string(e.Role), e.Resource, resourceID, e.Action, e.Method, e.Path,
		e.StatusCode, e.IPAddress, e.UserAgent, e.RequestID, e.Timestamp,
	)
	if err != nil {
		return fmt.Errorf("record access: %w", err)
	}
	return nil
}

// ForUser returns the newest entries recorded for userID.
func (s *Store) ForUser(ctx context.Context, userID int64, limit int) ([]middleware.AuditEntry, error) {
	rows, err := db.Conn(ctx, s.pool).Query(ctx, `
		SELECT user_id, role, resource, COALESCE(resource_id, 0), action, method, path,
		       status, ip_address, user_agent, request_id, accessed_at
		FROM access_log
		WHERE user_id = $1
		ORDER BY accessed_at DESC, id DESC
		LIMIT $2`, userID, limit)
	if err != nil {
		return nil, fmt.Errorf("query access log: %w", err)
	}
	defer rows.Close()

	entries := []middleware.AuditEntry{}
	for rows.Next() {
		var (
			e    middleware.AuditEntry
			role string
		)
		if err := rows.Scan(&e.UserID, &role, &e.Resource, &e.ResourceID, &e.Action, &e.Method,
			&e.Path, &e.StatusCode, &e.IPAddress, &e.UserAgent, &e.RequestID, &e.Timestamp); err != nil {
			return nil, fmt.Errorf("scan access log: %w", err)
		}
		e.Role = authz.Role(role)
		entries = append(entries, e)
	}
	return entries, rows.Err()
}
