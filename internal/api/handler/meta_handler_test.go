package handler

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/ZertGraf/changelog-builder/internal/domain"
	"github.com/ZertGraf/changelog-builder/internal/pkg/logger"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMetaHandler(t *testing.T) {
	h := NewMetaHandler(
		[]domain.RepoRef{{ProjectKey: "MB", Slug: "mobile-app"}},
		"release/2025-09",
		"1.0.0",
		logger.Discard(),
	)
	h.now = func() time.Time { return time.Date(2025, 10, 1, 12, 0, 0, 0, time.UTC) }
	routes := h.Routes()

	rec := httptest.NewRecorder()
	routes.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/repos", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{
		"repos": [{"projectKey": "MB", "slug": "mobile-app"}],
		"defaultReleaseBranch": "release/2025-09"
	}`, rec.Body.String())

	rec = httptest.NewRecorder()
	routes.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/health", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{
		"status": "Healthy",
		"timestamp": "2025-10-01T12:00:00Z",
		"version": "1.0.0"
	}`, rec.Body.String())
}

func TestMetaHandler_NoRepos(t *testing.T) {
	rec := httptest.NewRecorder()
	NewMetaHandler(nil, "release/2025-09", "1.0.0", logger.Discard()).Routes().
		ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/repos", nil))

	assert.JSONEq(t, `{"repos": [], "defaultReleaseBranch": "release/2025-09"}`, rec.Body.String())
}
