package repository

import (
	"context"
	"database/sql"

	"github.com/google/uuid"

	"soph-gateway/internal/domain"
)

// AuditRepo implements domain.AuditRepository.
type AuditRepo struct {
	db *sql.DB
}

// NewAuditRepo creates a new AuditRepo on the write pool.
func NewAuditRepo(db *sql.DB) *AuditRepo {
	return &AuditRepo{db: db}
}

func (r *AuditRepo) Insert(ctx context.Context, entry *domain.AuditEntry) error {
	if entry.ID == "" {
		entry.ID = uuid.NewString()
	}
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO audit_log (id, user_id, action, status, detail) VALUES (?, ?, ?, ?, ?)`,
		entry.ID, entry.UserID, entry.Action, entry.Status, entry.Detail)
	return mapDBError(err)
}

func (r *AuditRepo) List(ctx context.Context, limit int) ([]domain.AuditEntry, error) {
	if limit <= 0 {
		limit = 100
	}
	rows, err := r.db.QueryContext(ctx,
		`SELECT id, user_id, action, status, detail, created_at
		 FROM audit_log ORDER BY created_at DESC LIMIT ?`, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var entries []domain.AuditEntry
	for rows.Next() {
		var e domain.AuditEntry
		if err := rows.Scan(&e.ID, &e.UserID, &e.Action, &e.Status, &e.Detail, &e.CreatedAt); err != nil {
			return nil, err
		}
		entries = append(entries, e)
	}
	return entries, rows.Err()
}
