package middleware

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/ZertGraf/changelog-builder/internal/api/handler"
	"github.com/ZertGraf/changelog-builder/internal/domain"
	"github.com/ZertGraf/changelog-builder/internal/pkg/logger"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// countingRecorder counts WriteHeader calls reaching the real writer.
type countingRecorder struct {
	*httptest.ResponseRecorder
	headerWrites int
}

func (c *countingRecorder) WriteHeader(code int) {
	c.headerWrites++
	c.ResponseRecorder.WriteHeader(code)
}

func serveWithTimeout(t *testing.T, next http.HandlerFunc) *countingRecorder {
	t.Helper()

	rec := &countingRecorder{ResponseRecorder: httptest.NewRecorder()}
	Timeout(20*time.Millisecond, logger.Discard())(next).
		ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/api/report/build", nil))
	return rec
}

func errorCode(t *testing.T, rec *countingRecorder) handler.ErrorCode {
	t.Helper()

	var resp handler.ErrorResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	return resp.Error.Code
}

func TestTimeout_HandlerReportsDeadline(t *testing.T) {
	rec := serveWithTimeout(t, func(w http.ResponseWriter, r *http.Request) {
		<-r.Context().Done()
		err := &domain.UpstreamError{Stage: domain.StageFetchChanges, Repo: "MB/app", Err: r.Context().Err()}
		handler.WriteError(w, err, logger.Discard())
	})

	assert.Equal(t, http.StatusGatewayTimeout, rec.Code)
	assert.Equal(t, 1, rec.headerWrites)
	assert.Equal(t, handler.CodeUpstreamTimeout, errorCode(t, rec))
}

func TestTimeout_SilentHandlerGets504(t *testing.T) {
	rec := serveWithTimeout(t, func(w http.ResponseWriter, r *http.Request) {
		<-r.Context().Done()
	})

	assert.Equal(t, http.StatusGatewayTimeout, rec.Code)
	assert.Equal(t, 1, rec.headerWrites)
	assert.Equal(t, handler.CodeUpstreamTimeout, errorCode(t, rec))
}

func TestTimeout_FastHandlerUntouched(t *testing.T) {
	rec := serveWithTimeout(t, func(w http.ResponseWriter, r *http.Request) {
		_, hasDeadline := r.Context().Deadline()
		assert.True(t, hasDeadline)
		w.WriteHeader(http.StatusNoContent)
	})

	assert.Equal(t, http.StatusNoContent, rec.Code)
	assert.Equal(t, 1, rec.headerWrites)
	assert.Empty(t, rec.Body.String())
}

func TestTimeout_ParentCancellationIsNotATimeout(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	rec := &countingRecorder{ResponseRecorder: httptest.NewRecorder()}
	req := httptest.NewRequest(http.MethodGet, "/api/meta/repos", nil).WithContext(ctx)
	Timeout(time.Minute, logger.Discard())(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {})).
		ServeHTTP(rec, req)

	assert.Zero(t, rec.headerWrites)
}
