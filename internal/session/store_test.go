package session

import (
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"soph-gateway/internal/domain"
)

func TestMemoryMarkerStore_PutGetDelete(t *testing.T) {
	t.Parallel()
	s := NewMemoryMarkerStore()

	_, ok := s.Get("sess-1")
	assert.False(t, ok)

	marker := domain.SSOMarker{
		Token:       "tok",
		Validated:   true,
		Subject:     "user-1",
		ValidatedAt: time.Now(),
	}
	s.Put("sess-1", marker)

	got, ok := s.Get("sess-1")
	require.True(t, ok)
	assert.Equal(t, "user-1", got.Subject)
	assert.True(t, got.Validated)

	s.Delete("sess-1")
	_, ok = s.Get("sess-1")
	assert.False(t, ok)
}

func TestMemoryMarkerStore_PurgeExpired(t *testing.T) {
	t.Parallel()
	s := NewMemoryMarkerStore()
	now := time.Now()

	s.Put("fresh", domain.SSOMarker{Token: "a", Validated: true, Subject: "u1", ValidatedAt: now})
	s.Put("stale", domain.SSOMarker{Token: "b", Validated: true, Subject: "u2", ValidatedAt: now.Add(-10 * time.Minute)})
	s.Put("never-validated", domain.SSOMarker{Token: "c", ValidatedAt: now})

	purged := s.PurgeExpired(now)
	assert.Equal(t, 2, purged)
	assert.Equal(t, 1, s.Len())

	_, ok := s.Get("fresh")
	assert.True(t, ok)
	_, ok = s.Get("stale")
	assert.False(t, ok)
}

func TestMemoryMarkerStore_ConcurrentAccess(t *testing.T) {
	t.Parallel()
	s := NewMemoryMarkerStore()
	now := time.Now()

	var wg sync.WaitGroup
	for i := 0; i < 16; i++ {
		wg.Add(1)
		go func(n int) {
			defer wg.Done()
			id := string(rune('a' + n))
			s.Put(id, domain.SSOMarker{Token: "t", Validated: true, Subject: id, ValidatedAt: now})
			s.Get(id)
			s.PurgeExpired(now)
		}(i)
	}
	wg.Wait()

	assert.Equal(t, 16, s.Len())
}
