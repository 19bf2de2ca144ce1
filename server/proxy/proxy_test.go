//
// Copyright (C) 2025 membridge authors.
//
// membridge is licensed under the Apache License Version 2.0.
//

package proxy

import (
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestProxy(t *testing.T, upstream http.HandlerFunc) *httptest.Server {
	t.Helper()
	backend := httptest.NewServer(upstream)
	t.Cleanup(backend.Close)
	s, err := New(backend.URL, "mk-secret")
	require.NoError(t, err)
	front := httptest.NewServer(s.Handler())
	t.Cleanup(front.Close)
	return front
}

func TestNewValidation(t *testing.T) {
	_, err := New("", "key")
	assert.ErrorIs(t, err, ErrTargetRequired)
	_, err = New("http://example.com", "")
	assert.ErrorIs(t, err, ErrAPIKeyRequired)
}

func TestForwardsMemoryPathsWithInjectedCredential(t *testing.T) {
	var gotAuth, gotPath string
	front := newTestProxy(t, func(w http.ResponseWriter, r *http.Request) {
		gotAuth = r.Header.Get("Authorization")
		gotPath = r.URL.Path
		w.Write([]byte(`{"task_id":"t1","status":"PENDING"}`))
	})

	req, err := http.NewRequest(http.MethodPost,
		front.URL+"/api/v1/memory/memorize", strings.NewReader(`{}`))
	require.NoError(t, err)
	// The client-side credential must never reach the upstream.
	req.Header.Set("Authorization", "Bearer leaked-client-token")

	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()

	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "Bearer mk-secret", gotAuth)
	assert.Equal(t, "/api/v1/memory/memorize", gotPath)
	assert.NotEmpty(t, resp.Header.Get("X-Request-Id"))

	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	assert.JSONEq(t, `{"task_id":"t1","status":"PENDING"}`, string(body))
}

func TestNonMemoryPathsNotForwarded(t *testing.T) {
	upstreamHit := false
	front := newTestProxy(t, func(w http.ResponseWriter, r *http.Request) {
		upstreamHit = true
	})

	resp, err := http.Get(front.URL + "/api/v1/agents/list")
	require.NoError(t, err)
	resp.Body.Close()

	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
	assert.False(t, upstreamHit)
}

func TestUpstreamFailureReturnsBadGateway(t *testing.T) {
	backend := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	backend.Close() // upstream is down

	s, err := New(backend.URL, "mk-secret")
	require.NoError(t, err)
	front := httptest.NewServer(s.Handler())
	defer front.Close()

	resp, err := http.Post(front.URL+"/api/v1/memory/memorize", "application/json", strings.NewReader(`{}`))
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusBadGateway, resp.StatusCode)
}

func TestPreflightAllowed(t *testing.T) {
	front := newTestProxy(t, func(w http.ResponseWriter, r *http.Request) {
		t.Error("preflight must not reach upstream")
	})

	req, err := http.NewRequest(http.MethodOptions, front.URL+"/api/v1/memory/memorize", nil)
	require.NoError(t, err)
	req.Header.Set("Origin", "http://localhost:8000")
	req.Header.Set("Access-Control-Request-Method", http.MethodPost)

	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	resp.Body.Close()

	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.NotEmpty(t, resp.Header.Get("Access-Control-Allow-Origin"))
}
