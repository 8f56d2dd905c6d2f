package repository

import (
	"context"
	"database/sql"
	"time"

	"soph-gateway/internal/domain"
)

// PromoCodeRepo implements domain.PromoCodeRepository for the self-hosted
// code variant.
type PromoCodeRepo struct {
	db *sql.DB
}

// NewPromoCodeRepo creates a new PromoCodeRepo on the write pool.
func NewPromoCodeRepo(db *sql.DB) *PromoCodeRepo {
	return &PromoCodeRepo{db: db}
}

func (r *PromoCodeRepo) Get(ctx context.Context, code string) (*domain.PromoCode, error) {
	row := r.db.QueryRowContext(ctx,
		`SELECT code, used, used_by, used_at, duration_months, bound_email, created_at
		 FROM promo_codes WHERE code = ?`, code)

	var c domain.PromoCode
	var usedAt sql.NullTime
	if err := row.Scan(&c.Code, &c.Used, &c.UsedBy, &usedAt, &c.DurationMonths, &c.BoundEmail, &c.CreatedAt); err != nil {
		return nil, mapDBError(err)
	}
	if usedAt.Valid {
		t := usedAt.Time
		c.UsedAt = &t
	}
	return &c, nil
}

func (r *PromoCodeRepo) Create(ctx context.Context, code *domain.PromoCode) error {
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO promo_codes (code, duration_months, bound_email) VALUES (?, ?, ?)`,
		code.Code, code.DurationMonths, code.BoundEmail)
	return mapDBError(err)
}

func (r *PromoCodeRepo) List(ctx context.Context) ([]domain.PromoCode, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT code, used, used_by, used_at, duration_months, bound_email, created_at
		 FROM promo_codes ORDER BY created_at`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var codes []domain.PromoCode
	for rows.Next() {
		var c domain.PromoCode
		var usedAt sql.NullTime
		if err := rows.Scan(&c.Code, &c.Used, &c.UsedBy, &usedAt, &c.DurationMonths, &c.BoundEmail, &c.CreatedAt); err != nil {
			return nil, err
		}
		if usedAt.Valid {
			t := usedAt.Time
			c.UsedAt = &t
		}
		codes = append(codes, c)
	}
	return codes, rows.Err()
}

// Consume marks the code used by the principal. The conditional update on
// used=0 is the single-use guarantee: of two concurrent consumers exactly
// one affects a row, the other gets ConflictError.
func (r *PromoCodeRepo) Consume(ctx context.Context, code, userID string, at time.Time) error {
	res, err := r.db.ExecContext(ctx,
		`UPDATE promo_codes SET used = 1, used_by = ?, used_at = ? WHERE code = ? AND used = 0`,
		userID, at.UTC(), code)
	if err != nil {
		return mapDBError(err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		if _, err := r.Get(ctx, code); err != nil {
			return err // not found
		}
		return domain.ErrConflict("código já utilizado")
	}
	return nil
}

// Release undoes a consumption whose entitlement grant failed, so codes
// are never burned without granting access.
func (r *PromoCodeRepo) Release(ctx context.Context, code string) error {
	_, err := r.db.ExecContext(ctx,
		`UPDATE promo_codes SET used = 0, used_by = '', used_at = NULL WHERE code = ?`, code)
	return mapDBError(err)
}
