package service

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"soph-gateway/internal/config"
	"soph-gateway/internal/domain"
)

func testRedemptionCfg() config.RedemptionConfig {
	return config.RedemptionConfig{OriginTag: "importadoras", DurationMonths: 6}
}

func newRedemption(entitlements domain.EntitlementRepository, authority CodeAuthority, now time.Time) *RedemptionService {
	svc := NewRedemptionService(entitlements, authority, &memAudit{}, testRedemptionCfg(), discardLogger())
	svc.now = func() time.Time { return now }
	return svc
}

func TestRedemptionService_GrantsSixMonths(t *testing.T) {
	t.Parallel()
	now := time.Date(2026, 3, 10, 12, 0, 0, 0, time.UTC)
	ents := newMemEntitlements()
	codes := newMemCodes(domain.PromoCode{Code: "PROMO10"})
	svc := newRedemption(ents, NewLocalCodeAuthority(codes), now)

	p := domain.Principal{ID: "user-1", Email: "ana@example.com"}
	granted, err := svc.Redeem(context.Background(), p, "  promo10  ")
	require.NoError(t, err)
	require.NotNil(t, granted.AccessUntil)
	assert.Equal(t, now.AddDate(0, 6, 0), *granted.AccessUntil)
	assert.Equal(t, "importadoras", granted.Origin)

	// code is burned
	rec, err := codes.Get(context.Background(), "PROMO10")
	require.NoError(t, err)
	assert.True(t, rec.Used)
	assert.Equal(t, "user-1", rec.UsedBy)
}

func TestRedemptionService_UsesCodeDuration(t *testing.T) {
	t.Parallel()
	now := time.Date(2026, 3, 10, 12, 0, 0, 0, time.UTC)
	ents := newMemEntitlements()
	codes := newMemCodes(domain.PromoCode{Code: "ANUAL", DurationMonths: 12})
	svc := newRedemption(ents, NewLocalCodeAuthority(codes), now)

	granted, err := svc.Redeem(context.Background(), domain.Principal{ID: "user-1"}, "anual")
	require.NoError(t, err)
	require.NotNil(t, granted.AccessUntil)
	assert.Equal(t, now.AddDate(0, 12, 0), *granted.AccessUntil)
}

func TestRedemptionService_Guards(t *testing.T) {
	t.Parallel()
	now := time.Now()
	future := now.Add(30 * 24 * time.Hour)

	t.Run("unauthenticated", func(t *testing.T) {
		t.Parallel()
		svc := newRedemption(newMemEntitlements(), NewLocalCodeAuthority(newMemCodes()), now)
		_, err := svc.Redeem(context.Background(), domain.Principal{}, "X")
		var authErr *domain.AuthenticationError
		assert.ErrorAs(t, err, &authErr)
	})

	t.Run("empty code", func(t *testing.T) {
		t.Parallel()
		svc := newRedemption(newMemEntitlements(), NewLocalCodeAuthority(newMemCodes()), now)
		_, err := svc.Redeem(context.Background(), domain.Principal{ID: "u"}, "   ")
		var valErr *domain.ValidationError
		assert.ErrorAs(t, err, &valErr)
	})

	t.Run("already entitled keeps the code", func(t *testing.T) {
		t.Parallel()
		ents := newMemEntitlements()
		ents.recs["user-1"] = &domain.Entitlement{UserID: "user-1", AccessUntil: &future, Version: 1}
		codes := newMemCodes(domain.PromoCode{Code: "PROMO10"})
		svc := newRedemption(ents, NewLocalCodeAuthority(codes), now)

		_, err := svc.Redeem(context.Background(), domain.Principal{ID: "user-1"}, "PROMO10")
		var already *domain.AlreadyEntitledError
		require.ErrorAs(t, err, &already)
		assert.Equal(t, future, already.AccessUntil)

		rec, _ := codes.Get(context.Background(), "PROMO10")
		assert.False(t, rec.Used)
	})

	t.Run("expired entitlement can redeem again", func(t *testing.T) {
		t.Parallel()
		past := now.Add(-time.Hour)
		ents := newMemEntitlements()
		ents.recs["user-1"] = &domain.Entitlement{UserID: "user-1", AccessUntil: &past, Version: 3}
		svc := newRedemption(ents, NewLocalCodeAuthority(newMemCodes(domain.PromoCode{Code: "NEW1"})), now)

		granted, err := svc.Redeem(context.Background(), domain.Principal{ID: "user-1"}, "NEW1")
		require.NoError(t, err)
		assert.True(t, granted.AccessUntil.After(now))
	})

	t.Run("unknown code", func(t *testing.T) {
		t.Parallel()
		svc := newRedemption(newMemEntitlements(), NewLocalCodeAuthority(newMemCodes()), now)
		_, err := svc.Redeem(context.Background(), domain.Principal{ID: "u"}, "NOPE")
		var invalid *domain.CodeInvalidError
		assert.ErrorAs(t, err, &invalid)
	})

	t.Run("consumed code never reusable", func(t *testing.T) {
		t.Parallel()
		codes := newMemCodes(domain.PromoCode{Code: "ONCE"})
		ents := newMemEntitlements()
		svc := newRedemption(ents, NewLocalCodeAuthority(codes), now)

		_, err := svc.Redeem(context.Background(), domain.Principal{ID: "u1"}, "ONCE")
		require.NoError(t, err)

		_, err = svc.Redeem(context.Background(), domain.Principal{ID: "u2"}, "ONCE")
		var invalid *domain.CodeInvalidError
		assert.ErrorAs(t, err, &invalid)
	})

	t.Run("email-bound code", func(t *testing.T) {
		t.Parallel()
		codes := newMemCodes(domain.PromoCode{Code: "VIP", BoundEmail: "ana@example.com"})
		svc := newRedemption(newMemEntitlements(), NewLocalCodeAuthority(codes), now)

		_, err := svc.Redeem(context.Background(), domain.Principal{ID: "u2", Email: "bob@example.com"}, "VIP")
		var invalid *domain.CodeInvalidError
		assert.ErrorAs(t, err, &invalid)

		_, err = svc.Redeem(context.Background(), domain.Principal{ID: "u1", Email: "ANA@example.com"}, "VIP")
		assert.NoError(t, err)
	})
}

func TestRedemptionService_ConcurrentRedeemGrantsOnce(t *testing.T) {
	t.Parallel()
	now := time.Now()
	ents := newMemEntitlements()
	codes := newMemCodes(
		domain.PromoCode{Code: "C1"}, domain.PromoCode{Code: "C2"},
		domain.PromoCode{Code: "C3"}, domain.PromoCode{Code: "C4"},
	)
	svc := newRedemption(ents, NewLocalCodeAuthority(codes), now)
	p := domain.Principal{ID: "user-1", Email: "ana@example.com"}

	var granted atomic.Int32
	var wg sync.WaitGroup
	for _, code := range []string{"C1", "C2", "C3", "C4"} {
		wg.Add(1)
		go func(code string) {
			defer wg.Done()
			if _, err := svc.Redeem(context.Background(), p, code); err == nil {
				granted.Add(1)
			}
		}(code)
	}
	wg.Wait()

	// exactly one code may win the grant race; the losers keep their codes
	assert.Equal(t, int32(1), granted.Load())
	unused := 0
	list, _ := codes.List(context.Background())
	for _, c := range list {
		if !c.Used {
			unused++
		}
	}
	assert.Equal(t, 3, unused)
}

// conflictOnUpsert simulates a write that always loses the version race
// while the re-read still shows no active grant.
type conflictOnUpsert struct {
	*memEntitlements
}

func (c *conflictOnUpsert) Upsert(context.Context, *domain.Entitlement, int64) (*domain.Entitlement, error) {
	return nil, domain.ErrConflict("concurrent update")
}

func TestRedemptionService_FailedGrantReleasesCode(t *testing.T) {
	t.Parallel()
	now := time.Now()
	ents := &conflictOnUpsert{newMemEntitlements()}
	codes := newMemCodes(domain.PromoCode{Code: "PROMO"})
	svc := newRedemption(ents, NewLocalCodeAuthority(codes), now)

	_, err := svc.Redeem(context.Background(), domain.Principal{ID: "user-1"}, "PROMO")
	require.Error(t, err)

	rec, getErr := codes.Get(context.Background(), "PROMO")
	require.NoError(t, getErr)
	assert.False(t, rec.Used)
}

func TestRemoteCodeAuthority(t *testing.T) {
	t.Parallel()

	t.Run("valid true", func(t *testing.T) {
		t.Parallel()
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			var req struct {
				Code string `json:"code"`
			}
			require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
			assert.Equal(t, "PROMO10", req.Code)
			_, _ = w.Write([]byte(`{"valid":true}`))
		}))
		defer srv.Close()

		a := NewRemoteCodeAuthority(config.RedemptionConfig{AuthorityURL: srv.URL}, discardLogger())
		assert.NoError(t, a.Check(context.Background(), "PROMO10", domain.Principal{}))
	})

	t.Run("valid false is rejection", func(t *testing.T) {
		t.Parallel()
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
			_, _ = w.Write([]byte(`{"valid":false}`))
		}))
		defer srv.Close()

		a := NewRemoteCodeAuthority(config.RedemptionConfig{AuthorityURL: srv.URL}, discardLogger())
		err := a.Check(context.Background(), "PROMO10", domain.Principal{})
		var invalid *domain.CodeInvalidError
		assert.ErrorAs(t, err, &invalid)
	})

	t.Run("5xx is unavailability, not rejection", func(t *testing.T) {
		t.Parallel()
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
			w.WriteHeader(http.StatusBadGateway)
		}))
		defer srv.Close()

		a := NewRemoteCodeAuthority(config.RedemptionConfig{AuthorityURL: srv.URL}, discardLogger())
		err := a.Check(context.Background(), "PROMO10", domain.Principal{})
		var unavailable *domain.AuthorityUnavailableError
		assert.ErrorAs(t, err, &unavailable)
	})

	t.Run("timeout is unavailability", func(t *testing.T) {
		t.Parallel()
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			select {
			case <-time.After(time.Second):
			case <-r.Context().Done():
			}
			_, _ = w.Write([]byte(`{"valid":true}`))
		}))
		defer srv.Close()

		a := NewRemoteCodeAuthority(config.RedemptionConfig{AuthorityURL: srv.URL, AuthorityTimeout: 50 * time.Millisecond}, discardLogger())
		err := a.Check(context.Background(), "PROMO10", domain.Principal{})
		var unavailable *domain.AuthorityUnavailableError
		assert.ErrorAs(t, err, &unavailable)
	})

	t.Run("unreachable is unavailability", func(t *testing.T) {
		t.Parallel()
		a := NewRemoteCodeAuthority(config.RedemptionConfig{AuthorityURL: "http://127.0.0.1:1"}, discardLogger())
		err := a.Check(context.Background(), "PROMO10", domain.Principal{})
		var unavailable *domain.AuthorityUnavailableError
		assert.ErrorAs(t, err, &unavailable)
	})
}

func TestRedemptionService_AuthorityOutageDoesNotJudgeCode(t *testing.T) {
	t.Parallel()
	now := time.Now()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	defer srv.Close()

	authority := NewRemoteCodeAuthority(config.RedemptionConfig{AuthorityURL: srv.URL}, discardLogger())
	svc := newRedemption(newMemEntitlements(), authority, now)

	_, err := svc.Redeem(context.Background(), domain.Principal{ID: "u"}, "PROMO")
	var unavailable *domain.AuthorityUnavailableError
	require.ErrorAs(t, err, &unavailable)
	var invalid *domain.CodeInvalidError
	assert.False(t, errors.As(err, &invalid))
}

func TestRedemptionService_Prevalidate(t *testing.T) {
	t.Parallel()
	now := time.Now()
	codes := newMemCodes(domain.PromoCode{Code: "PROMO"})
	svc := newRedemption(newMemEntitlements(), NewLocalCodeAuthority(codes), now)

	assert.NoError(t, svc.Prevalidate(context.Background(), domain.Principal{ID: "u"}, " promo "))

	// prevalidation never consumes
	rec, _ := codes.Get(context.Background(), "PROMO")
	assert.False(t, rec.Used)
}
