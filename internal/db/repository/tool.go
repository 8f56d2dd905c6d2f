package repository

import (
	"context"
	"database/sql"

	"soph-gateway/internal/domain"
)

// ToolRepo implements domain.ToolRepository.
type ToolRepo struct {
	db *sql.DB
}

// NewToolRepo creates a new ToolRepo. Tools are read-only at runtime,
// so the read pool is fine.
func NewToolRepo(db *sql.DB) *ToolRepo {
	return &ToolRepo{db: db}
}

func (r *ToolRepo) GetBySlug(ctx context.Context, slug string) (*domain.ProtectedTool, error) {
	row := r.db.QueryRowContext(ctx,
		`SELECT slug, name, url FROM protected_tools WHERE slug = ?`, slug)

	var t domain.ProtectedTool
	if err := row.Scan(&t.Slug, &t.Name, &t.URL); err != nil {
		return nil, mapDBError(err)
	}
	return &t, nil
}
