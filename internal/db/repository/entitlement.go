package repository

import (
	"context"
	"database/sql"
	"time"

	"soph-gateway/internal/domain"
)

// EntitlementRepo implements domain.EntitlementRepository.
type EntitlementRepo struct {
	db *sql.DB
}

// NewEntitlementRepo creates a new EntitlementRepo. Pass the write pool:
// upserts need serialized write access.
func NewEntitlementRepo(db *sql.DB) *EntitlementRepo {
	return &EntitlementRepo{db: db}
}

// Get returns the entitlement for the user, or NotFoundError when the
// user never redeemed.
func (r *EntitlementRepo) Get(ctx context.Context, userID string) (*domain.Entitlement, error) {
	row := r.db.QueryRowContext(ctx,
		`SELECT user_id, email, access_origin, access_until, updated_at, version
		 FROM entitlements WHERE user_id = ?`, userID)

	var e domain.Entitlement
	var until sql.NullTime
	if err := row.Scan(&e.UserID, &e.Email, &e.Origin, &until, &e.UpdatedAt, &e.Version); err != nil {
		return nil, mapDBError(err)
	}
	if until.Valid {
		t := until.Time
		e.AccessUntil = &t
	}
	return &e, nil
}

// Upsert creates or updates the record keyed by user id. expectVersion=0
// means "no record existed when I looked"; a non-zero value must match the
// stored version. Either way a concurrent writer makes the conditional
// write affect zero rows, surfaced as ConflictError so the caller can
// retry or roll back.
func (r *EntitlementRepo) Upsert(ctx context.Context, rec *domain.Entitlement, expectVersion int64) (*domain.Entitlement, error) {
	now := time.Now().UTC()
	var until interface{}
	if rec.AccessUntil != nil {
		until = rec.AccessUntil.UTC()
	}

	var res sql.Result
	var err error
	if expectVersion == 0 {
		res, err = r.db.ExecContext(ctx,
			`INSERT INTO entitlements (user_id, email, access_origin, access_until, updated_at, version)
			 VALUES (?, ?, ?, ?, ?, 1)
			 ON CONFLICT(user_id) DO NOTHING`,
			rec.UserID, rec.Email, rec.Origin, until, now)
	} else {
		res, err = r.db.ExecContext(ctx,
			`UPDATE entitlements
			 SET email = ?, access_origin = ?, access_until = ?, updated_at = ?, version = version + 1
			 WHERE user_id = ? AND version = ?`,
			rec.Email, rec.Origin, until, now, rec.UserID, expectVersion)
	}
	if err != nil {
		return nil, mapDBError(err)
	}

	n, err := res.RowsAffected()
	if err != nil {
		return nil, err
	}
	if n == 0 {
		return nil, domain.ErrConflict("entitlement for %s was modified concurrently", rec.UserID)
	}

	return r.Get(ctx, rec.UserID)
}
