package httpx

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"
	"time"

	"github.com/ZertGraf/changelog-builder/internal/pkg/logger"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestClient(t *testing.T, handler http.HandlerFunc) *Client {
	t.Helper()
	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)

	client, err := New(&Config{
		BaseURL:    server.URL + "/",
		Token:      "secret",
		Timeout:    5 * time.Second,
		HTTPClient: server.Client(),
	}, logger.Discard())
	require.NoError(t, err)
	return client
}

func TestGetJSON(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodGet, r.Method)
		assert.Equal(t, "/rest/api/thing", r.URL.Path)
		assert.Equal(t, "MERGED", r.URL.Query().Get("state"))
		assert.Equal(t, "Bearer secret", r.Header.Get("Authorization"))
		assert.Equal(t, "application/json", r.Header.Get("Accept"))
		assert.Empty(t, r.Header.Get("Content-Type"))
		_, _ = w.Write([]byte(`{"name": "thing"}`))
	})

	var out struct {
		Name string `json:"name"`
	}
	err := client.GetJSON(context.Background(), "/rest/api/thing", url.Values{"state": {"MERGED"}}, &out)
	require.NoError(t, err)
	assert.Equal(t, "thing", out.Name)
}

func TestPostJSON(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "application/json", r.Header.Get("Content-Type"))

		var body map[string]any
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		assert.Equal(t, "key = 1", body["jql"])
		_, _ = w.Write([]byte(`{"total": 1}`))
	})

	var out struct {
		Total int `json:"total"`
	}
	require.NoError(t, client.PostJSON(context.Background(), "/search", map[string]string{"jql": "key = 1"}, &out))
	assert.Equal(t, 1, out.Total)
}

func TestStatusError(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
		_, _ = w.Write([]byte(strings.Repeat("x", 2000)))
	})

	err := client.GetJSON(context.Background(), "/missing", nil, nil)
	require.Error(t, err)
	assert.True(t, IsNotFound(err))

	var statusErr *StatusError
	require.True(t, errors.As(err, &statusErr))
	assert.Equal(t, "/missing", statusErr.Path)
	assert.Len(t, statusErr.Body, maxErrorBody+len("..."))
}

func TestMalformedResponse(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"broken":`))
	})

	var out map[string]any
	err := client.GetJSON(context.Background(), "/broken", nil, &out)
	require.Error(t, err)
	assert.False(t, IsNotFound(err))
	assert.Contains(t, err.Error(), "decode GET /broken response")
}

func TestCancelledContext(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{}`))
	})

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	err := client.GetJSON(ctx, "/any", nil, nil)
	require.ErrorIs(t, err, context.Canceled)
}

func TestConfigValidate(t *testing.T) {
	_, err := New(&Config{BaseURL: "not a url", Token: "t"}, logger.Discard())
	assert.Error(t, err)

	_, err = New(&Config{BaseURL: "https://jira.example.com"}, logger.Discard())
	assert.Error(t, err)
}
