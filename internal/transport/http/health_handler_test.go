package http

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"solunex/internal/services"
	"solunex/internal/store"
	"solunex/pkg/contracts/domain"
)

// brokenStore fails Ping so readiness checks can be driven into the error path.
type brokenStore struct {
	inner store.RecordStore
}

func (b *brokenStore) Get(ctx context.Context, key string) (*domain.License, error) {
	return b.inner.Get(ctx, key)
}

func (b *brokenStore) Create(ctx context.Context, lic *domain.License) error {
	return b.inner.Create(ctx, lic)
}

func (b *brokenStore) Update(ctx context.Context, lic *domain.License, expectedVersion int64) error {
	return b.inner.Update(ctx, lic, expectedVersion)
}

func (b *brokenStore) Ping(ctx context.Context) error {
	return errors.New("connection refused")
}

func (b *brokenStore) Close() error { return b.inner.Close() }

func newHealthServer(t *testing.T, st store.RecordStore) *httptest.Server {
	t.Helper()
	svc := services.NewHealthService(st, testLogger())
	handler := NewHealthHandler(svc, testLogger())
	srv := httptest.NewServer(handler.Routes())
	t.Cleanup(srv.Close)
	return srv
}

func TestHealthHealthy(t *testing.T) {
	srv := newHealthServer(t, store.NewMemoryStore(testLogger()))

	resp, err := http.Get(srv.URL + "/")
	require.NoError(t, err)
	defer resp.Body.Close()

	assert.Equal(t, http.StatusOK, resp.StatusCode)

	var status services.HealthStatus
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&status))
	assert.Equal(t, "healthy", status.Status)
	assert.Contains(t, status.Services, "store")
}

func TestHealthDegraded(t *testing.T) {
	srv := newHealthServer(t, &brokenStore{inner: store.NewMemoryStore(testLogger())})

	resp, err := http.Get(srv.URL + "/")
	require.NoError(t, err)
	defer resp.Body.Close()

	assert.Equal(t, http.StatusServiceUnavailable, resp.StatusCode)

	var status services.HealthStatus
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&status))
	assert.Equal(t, "degraded", status.Status)
}

func TestReady(t *testing.T) {
	srv := newHealthServer(t, store.NewMemoryStore(testLogger()))

	resp, err := http.Get(srv.URL + "/ready")
	require.NoError(t, err)
	defer resp.Body.Close()

	assert.Equal(t, http.StatusOK, resp.StatusCode)

	var body map[string]string
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
	assert.Equal(t, "ready", body["status"])
}

func TestReadyStoreDown(t *testing.T) {
	srv := newHealthServer(t, &brokenStore{inner: store.NewMemoryStore(testLogger())})

	resp, err := http.Get(srv.URL + "/ready")
	require.NoError(t, err)
	defer resp.Body.Close()

	assert.Equal(t, http.StatusServiceUnavailable, resp.StatusCode)

	var body struct {
		StatusCode int    `json:"status_code"`
		ErrorCode  string `json:"error_code"`
		Message    string `json:"message"`
		Details    string `json:"details"`
	}
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
	assert.Equal(t, http.StatusServiceUnavailable, body.StatusCode)
	assert.Equal(t, "NOT_READY", body.ErrorCode)
	assert.Contains(t, body.Details, "connection refused")
}

func TestLive(t *testing.T) {
	srv := newHealthServer(t, store.NewMemoryStore(testLogger()))

	resp, err := http.Get(srv.URL + "/live")
	require.NoError(t, err)
	defer resp.Body.Close()

	assert.Equal(t, http.StatusOK, resp.StatusCode)

	var body map[string]interface{}
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
	assert.Equal(t, "alive", body["status"])
}
