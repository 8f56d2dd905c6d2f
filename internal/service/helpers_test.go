package service

import (
	"bytes"
	"context"
	"log/slog"
	"sync"
	"time"

	"soph-gateway/internal/domain"
)

type nilWriter struct{}

func (nilWriter) Write(p []byte) (int, error) { return len(p), nil }

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(nilWriter{}, nil))
}

// captureLogger returns a logger whose output is collected in buf.
func captureLogger(buf *bytes.Buffer) *slog.Logger {
	return slog.New(slog.NewTextHandler(buf, &slog.HandlerOptions{Level: slog.LevelDebug}))
}

// memEntitlements is an in-memory EntitlementRepository with the same
// version semantics as the SQLite implementation.
type memEntitlements struct {
	mu   sync.Mutex
	recs map[string]*domain.Entitlement
	err  error // forced error for outage scenarios
}

func newMemEntitlements() *memEntitlements {
	return &memEntitlements{recs: make(map[string]*domain.Entitlement)}
}

func (m *memEntitlements) Get(_ context.Context, userID string) (*domain.Entitlement, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return nil, m.err
	}
	rec, ok := m.recs[userID]
	if !ok {
		return nil, domain.ErrNotFound("entitlement for user %s not found", userID)
	}
	cp := *rec
	return &cp, nil
}

func (m *memEntitlements) Upsert(_ context.Context, rec *domain.Entitlement, expectVersion int64) (*domain.Entitlement, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return nil, m.err
	}
	existing, ok := m.recs[rec.UserID]
	if expectVersion == 0 {
		if ok {
			return nil, domain.ErrConflict("entitlement for user %s already exists", rec.UserID)
		}
		cp := *rec
		cp.Version = 1
		m.recs[rec.UserID] = &cp
		out := cp
		return &out, nil
	}
	if !ok || existing.Version != expectVersion {
		return nil, domain.ErrConflict("concurrent update on entitlement for user %s", rec.UserID)
	}
	cp := *rec
	cp.Version = expectVersion + 1
	m.recs[rec.UserID] = &cp
	out := cp
	return &out, nil
}

// memCodes is an in-memory PromoCodeRepository with single-use semantics.
type memCodes struct {
	mu    sync.Mutex
	codes map[string]*domain.PromoCode
}

func newMemCodes(codes ...domain.PromoCode) *memCodes {
	m := &memCodes{codes: make(map[string]*domain.PromoCode)}
	for i := range codes {
		c := codes[i]
		m.codes[c.Code] = &c
	}
	return m
}

func (m *memCodes) Get(_ context.Context, code string) (*domain.PromoCode, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	rec, ok := m.codes[code]
	if !ok {
		return nil, domain.ErrNotFound("code %s not found", code)
	}
	cp := *rec
	return &cp, nil
}

func (m *memCodes) Create(_ context.Context, code *domain.PromoCode) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.codes[code.Code]; ok {
		return domain.ErrConflict("code %s already exists", code.Code)
	}
	cp := *code
	m.codes[code.Code] = &cp
	return nil
}

func (m *memCodes) List(_ context.Context) ([]domain.PromoCode, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]domain.PromoCode, 0, len(m.codes))
	for _, c := range m.codes {
		out = append(out, *c)
	}
	return out, nil
}

func (m *memCodes) Consume(_ context.Context, code, userID string, at time.Time) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	rec, ok := m.codes[code]
	if !ok {
		return domain.ErrNotFound("code %s not found", code)
	}
	if rec.Used {
		return domain.ErrConflict("código já utilizado")
	}
	rec.Used = true
	rec.UsedBy = userID
	t := at
	rec.UsedAt = &t
	return nil
}

func (m *memCodes) Release(_ context.Context, code string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	rec, ok := m.codes[code]
	if !ok {
		return domain.ErrNotFound("code %s not found", code)
	}
	rec.Used = false
	rec.UsedBy = ""
	rec.UsedAt = nil
	return nil
}

// memAudit collects audit entries for assertions.
type memAudit struct {
	mu      sync.Mutex
	entries []domain.AuditEntry
}

func (m *memAudit) Insert(_ context.Context, entry *domain.AuditEntry) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.entries = append(m.entries, *entry)
	return nil
}

func (m *memAudit) List(_ context.Context, _ int) ([]domain.AuditEntry, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]domain.AuditEntry(nil), m.entries...), nil
}

// memTools is a fixed ToolRepository.
type memTools map[string]domain.ProtectedTool

func (m memTools) GetBySlug(_ context.Context, slug string) (*domain.ProtectedTool, error) {
	t, ok := m[slug]
	if !ok {
		return nil, domain.ErrNotFound("tool %s not found", slug)
	}
	return &t, nil
}
