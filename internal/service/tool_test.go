package service

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"soph-gateway/internal/domain"
)

func newToolService(ents *memEntitlements, tools memTools) *ToolService {
	access := NewAccessService(ents, discardLogger())
	return NewToolService(tools, access, &memAudit{}, discardLogger())
}

func TestToolService_Resolve(t *testing.T) {
	t.Parallel()
	future := time.Now().Add(time.Hour)
	tools := memTools{
		"precificacao": {Slug: "precificacao", Name: "App de Precificação", URL: "https://aplicativodeprecificacao.netlify.app"},
	}

	t.Run("entitled user resolves", func(t *testing.T) {
		t.Parallel()
		ents := newMemEntitlements()
		ents.recs["user-1"] = &domain.Entitlement{UserID: "user-1", AccessUntil: &future}
		svc := newToolService(ents, tools)

		tool, err := svc.Resolve(context.Background(), domain.Principal{ID: "user-1"}, "PRECIFICACAO")
		require.NoError(t, err)
		assert.Equal(t, "precificacao", tool.Slug)
	})

	t.Run("slug is sanitized before lookup", func(t *testing.T) {
		t.Parallel()
		ents := newMemEntitlements()
		ents.recs["user-1"] = &domain.Entitlement{UserID: "user-1", AccessUntil: &future}
		svc := newToolService(ents, tools)

		tool, err := svc.Resolve(context.Background(), domain.Principal{ID: "user-1"}, "../PRECIFICACAO")
		require.NoError(t, err)
		assert.Equal(t, "precificacao", tool.Slug)
	})

	t.Run("unentitled user is denied before lookup", func(t *testing.T) {
		t.Parallel()
		svc := newToolService(newMemEntitlements(), tools)

		_, err := svc.Resolve(context.Background(), domain.Principal{ID: "user-1"}, "precificacao")
		var denied *domain.AccessDeniedError
		assert.ErrorAs(t, err, &denied)

		// unknown slug yields the same denial, not a not-found hint
		_, err = svc.Resolve(context.Background(), domain.Principal{ID: "user-1"}, "segredo")
		assert.ErrorAs(t, err, &denied)
	})

	t.Run("empty slug after sanitizing", func(t *testing.T) {
		t.Parallel()
		svc := newToolService(newMemEntitlements(), tools)
		_, err := svc.Resolve(context.Background(), domain.Principal{ID: "user-1"}, "!!!")
		var valErr *domain.ValidationError
		assert.ErrorAs(t, err, &valErr)
	})
}
