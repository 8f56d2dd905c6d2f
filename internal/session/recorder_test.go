package session

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"soph-gateway/internal/domain"
)

type recordingAudit struct {
	mu      sync.Mutex
	entries []domain.AuditEntry
}

func (a *recordingAudit) Insert(_ context.Context, entry *domain.AuditEntry) error {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.entries = append(a.entries, *entry)
	return nil
}

func (a *recordingAudit) List(context.Context, int) ([]domain.AuditEntry, error) {
	a.mu.Lock()
	defer a.mu.Unlock()
	return append([]domain.AuditEntry(nil), a.entries...), nil
}

func (a *recordingAudit) snapshot() []domain.AuditEntry {
	a.mu.Lock()
	defer a.mu.Unlock()
	return append([]domain.AuditEntry(nil), a.entries...)
}

func waitFor(t *testing.T, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatal("condition not met in time")
}

func TestRecorder_AuditsSessionTransitions(t *testing.T) {
	t.Parallel()
	watcher := NewWatcher()
	audit := &recordingAudit{}
	rec := NewRecorder(watcher, audit, discardLogger())

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	done := make(chan struct{})
	go func() {
		rec.Run(ctx)
		close(done)
	}()

	// publishing before the subscription is live would drop the event
	waitFor(t, func() bool {
		watcher.mu.Lock()
		defer watcher.mu.Unlock()
		return len(watcher.subs) == 1
	})

	watcher.Publish(Event{SessionID: "sess-1", Subject: "user-1", Kind: EventSignedIn})
	watcher.Publish(Event{SessionID: "sess-1", Subject: "user-1", Kind: EventSignedOut})

	waitFor(t, func() bool { return len(audit.snapshot()) == 2 })
	entries := audit.snapshot()
	require.Len(t, entries, 2)
	assert.Equal(t, domain.ActionSSOSession, entries[0].Action)
	assert.Equal(t, "user-1", entries[0].UserID)
	assert.Equal(t, "sessão SSO estabelecida", entries[0].Detail)
	assert.Equal(t, "sessão SSO encerrada", entries[1].Detail)

	cancel()
	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("recorder did not stop on cancel")
	}
}

func TestRecorder_StopsWhenSubscriptionCloses(t *testing.T) {
	t.Parallel()
	watcher := NewWatcher()
	rec := NewRecorder(watcher, &recordingAudit{}, discardLogger())

	done := make(chan struct{})
	go func() {
		rec.Run(context.Background())
		close(done)
	}()

	waitFor(t, func() bool {
		watcher.mu.Lock()
		defer watcher.mu.Unlock()
		return len(watcher.subs) == 1
	})

	// closing every subscription ends the run loop
	watcher.mu.Lock()
	for id, ch := range watcher.subs {
		delete(watcher.subs, id)
		close(ch)
	}
	watcher.mu.Unlock()

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("recorder did not stop on closed subscription")
	}
}
