package session

import (
	"sync"
	"time"

	"soph-gateway/internal/domain"
)

// MemoryMarkerStore keeps validated SSO markers in process memory, keyed
// by session id. Nothing here survives a restart: markers mirror the
// lifetime of a browser session, not of the service.
type MemoryMarkerStore struct {
	mu      sync.RWMutex
	markers map[string]domain.SSOMarker
}

// NewMemoryMarkerStore creates an empty store.
func NewMemoryMarkerStore() *MemoryMarkerStore {
	return &MemoryMarkerStore{markers: make(map[string]domain.SSOMarker)}
}

// Get returns the marker for the session, if any.
func (s *MemoryMarkerStore) Get(sessionID string) (*domain.SSOMarker, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	m, ok := s.markers[sessionID]
	if !ok {
		return nil, false
	}
	return &m, true
}

// Put stores or replaces the marker for the session.
func (s *MemoryMarkerStore) Put(sessionID string, marker domain.SSOMarker) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.markers[sessionID] = marker
}

// Delete removes the marker for the session.
func (s *MemoryMarkerStore) Delete(sessionID string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.markers, sessionID)
}

// PurgeExpired drops markers that have gone stale and returns how many
// were removed.
func (s *MemoryMarkerStore) PurgeExpired(now time.Time) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	n := 0
	for id, m := range s.markers {
		if m.Stale(now) {
			delete(s.markers, id)
			n++
		}
	}
	return n
}

// Len reports the number of stored markers.
func (s *MemoryMarkerStore) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.markers)
}
