package repository

import (
	"context"
	"testing"
	"time"

	_ "github.com/mattn/go-sqlite3"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	internaldb "soph-gateway/internal/db"
	"soph-gateway/internal/domain"
)

func setupEntitlementRepo(t *testing.T) *EntitlementRepo {
	t.Helper()
	writeDB, _ := internaldb.OpenTestSQLite(t)
	return NewEntitlementRepo(writeDB)
}

func TestEntitlementRepo_GetMissing(t *testing.T) {
	repo := setupEntitlementRepo(t)

	_, err := repo.Get(context.Background(), "nobody")
	var nf *domain.NotFoundError
	assert.ErrorAs(t, err, &nf)
}

func TestEntitlementRepo_UpsertAndGet(t *testing.T) {
	repo := setupEntitlementRepo(t)
	ctx := context.Background()

	until := time.Now().Add(time.Hour).UTC().Truncate(time.Second)
	rec, err := repo.Upsert(ctx, &domain.Entitlement{
		UserID:      "user-1",
		Email:       "u@example.com",
		Origin:      "importadoras",
		AccessUntil: &until,
	}, 0)
	require.NoError(t, err)
	assert.Equal(t, int64(1), rec.Version)
	require.NotNil(t, rec.AccessUntil)
	assert.Equal(t, until.Unix(), rec.AccessUntil.Unix())

	got, err := repo.Get(ctx, "user-1")
	require.NoError(t, err)
	assert.Equal(t, "importadoras", got.Origin)
	assert.True(t, got.ValidAt(time.Now()))
}

func TestEntitlementRepo_UpsertUpdatesInPlace(t *testing.T) {
	repo := setupEntitlementRepo(t)
	ctx := context.Background()

	past := time.Now().Add(-time.Hour).UTC()
	rec, err := repo.Upsert(ctx, &domain.Entitlement{UserID: "user-1", AccessUntil: &past}, 0)
	require.NoError(t, err)
	assert.False(t, rec.ValidAt(time.Now()))

	future := time.Now().Add(time.Hour).UTC()
	rec, err = repo.Upsert(ctx, &domain.Entitlement{UserID: "user-1", AccessUntil: &future}, rec.Version)
	require.NoError(t, err)
	assert.Equal(t, int64(2), rec.Version)
	assert.True(t, rec.ValidAt(time.Now()))
}

func TestEntitlementRepo_UpsertVersionConflict(t *testing.T) {
	repo := setupEntitlementRepo(t)
	ctx := context.Background()

	until := time.Now().Add(time.Hour).UTC()
	rec, err := repo.Upsert(ctx, &domain.Entitlement{UserID: "user-1", AccessUntil: &until}, 0)
	require.NoError(t, err)

	// A concurrent writer bumped the version first.
	_, err = repo.Upsert(ctx, &domain.Entitlement{UserID: "user-1", AccessUntil: &until}, rec.Version)
	require.NoError(t, err)

	_, err = repo.Upsert(ctx, &domain.Entitlement{UserID: "user-1", AccessUntil: &until}, rec.Version)
	var conflict *domain.ConflictError
	assert.ErrorAs(t, err, &conflict)
}

func TestEntitlementRepo_InsertRace(t *testing.T) {
	repo := setupEntitlementRepo(t)
	ctx := context.Background()

	until := time.Now().Add(time.Hour).UTC()
	_, err := repo.Upsert(ctx, &domain.Entitlement{UserID: "user-1", AccessUntil: &until}, 0)
	require.NoError(t, err)

	// Second writer that also observed "no record" must not clobber.
	_, err = repo.Upsert(ctx, &domain.Entitlement{UserID: "user-1", AccessUntil: &until}, 0)
	var conflict *domain.ConflictError
	assert.ErrorAs(t, err, &conflict)
}
