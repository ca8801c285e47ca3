package jira

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/ZertGraf/changelog-builder/internal/pkg/httpx"
	"github.com/ZertGraf/changelog-builder/internal/pkg/logger"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestClient(t *testing.T, server *httptest.Server) *Client {
	t.Helper()
	api, err := httpx.New(&httpx.Config{
		BaseURL:    server.URL,
		Token:      "jira-token",
		Timeout:    5 * time.Second,
		HTTPClient: server.Client(),
	}, logger.Discard())
	require.NoError(t, err)
	return NewClient(api, Config{}, logger.Discard())
}

func TestSearchTickets(t *testing.T) {
	var received searchRequest
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/rest/api/2/search", r.URL.Path)
		assert.Equal(t, "Bearer jira-token", r.Header.Get("Authorization"))
		assert.Equal(t, "application/json", r.Header.Get("Content-Type"))
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&received))

		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{
			"total": 2, "startAt": 0, "maxResults": 3,
			"issues": [
				{"key": "MBSS-100", "fields": {
					"summary": "Login page", "status": {"name": "Done"},
					"assignee": {"displayName": "Jane Doe"},
					"customfield_10371": "MBSS-1"}},
				{"key": "MBBO-7", "fields": {
					"summary": "Batch job", "status": {"name": "In Progress"},
					"assignee": null, "customfield_10371": null}}
			]}`))
	}))
	defer server.Close()

	records, err := newTestClient(t, server).SearchTickets(context.Background(), []string{"MBSS-100", "MBBO-7", "MBSS-404"})
	require.NoError(t, err)

	assert.Equal(t, "key IN ('MBSS-100','MBBO-7','MBSS-404')", received.JQL)
	assert.Equal(t, []string{"summary", "status", "assignee", "description", DefaultEpicLinkField}, received.Fields)
	assert.Equal(t, 3, received.MaxResults)

	require.Len(t, records, 2)
	assert.Equal(t, "MBSS-100", records[0].Key)
	assert.Equal(t, "Login page", records[0].Summary)
	assert.Equal(t, "Done", records[0].Status)
	require.NotNil(t, records[0].Assignee)
	assert.Equal(t, "Jane Doe", *records[0].Assignee)
	assert.Equal(t, "MBSS-1", records[0].ParentKey)
	assert.Equal(t, server.URL+"/browse/MBSS-100", records[0].URL)

	assert.Nil(t, records[1].Assignee)
	assert.Empty(t, records[1].ParentKey)
}

func TestSearchTickets_NoKeysSkipsCall(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		t.Error("no request expected")
	}))
	defer server.Close()

	records, err := newTestClient(t, server).SearchTickets(context.Background(), nil)
	require.NoError(t, err)
	assert.Empty(t, records)
}

func TestSearchTickets_Failure(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, `{"errorMessages":["unauthorized"]}`, http.StatusUnauthorized)
	}))
	defer server.Close()

	_, err := newTestClient(t, server).SearchTickets(context.Background(), []string{"MBSS-1"})
	require.Error(t, err)

	var statusErr *httpx.StatusError
	require.ErrorAs(t, err, &statusErr)
	assert.Equal(t, http.StatusUnauthorized, statusErr.StatusCode)
}

func TestFetchEpic(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/rest/api/2/issue/MBSS-1", r.URL.Path)
		assert.Equal(t, "summary,"+DefaultPmEpicField, r.URL.Query().Get("fields"))
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"key": "MBSS-1", "fields": {"summary": "Auth epic", "customfield_12272": {"key": "MBSS-0"}}}`))
	}))
	defer server.Close()

	epic, err := newTestClient(t, server).FetchEpic(context.Background(), "MBSS-1")
	require.NoError(t, err)
	assert.Equal(t, "MBSS-1", epic.Key)
	assert.Equal(t, "Auth epic", epic.Summary)
	assert.Equal(t, "MBSS-0", epic.ParentKey)
}

func TestFetchEpic_NotFound(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.NotFound(w, r)
	}))
	defer server.Close()

	_, err := newTestClient(t, server).FetchEpic(context.Background(), "MBSS-9")
	require.Error(t, err)
	assert.True(t, httpx.IsNotFound(err))
}
