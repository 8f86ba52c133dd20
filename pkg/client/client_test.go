package client

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"solunex/internal/security"
	"solunex/pkg/contracts/domain"
)

const clientTestKey = "SOL-W56J-UPH1-N3YG-2B9R-EA"

func TestNewValidatesBaseURL(t *testing.T) {
	_, err := New("not a url", WithDeviceID("d1"))
	assert.Error(t, err)

	_, err = New("/just/a/path", WithDeviceID("d1"))
	assert.Error(t, err)

	c, err := New("http://127.0.0.1:8080", WithDeviceID("d1"))
	require.NoError(t, err)
	assert.Equal(t, "d1", c.DeviceID())
}

func TestClientAppendsAPIPrefixOnce(t *testing.T) {
	var gotPath string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		json.NewEncoder(w).Encode(domain.ValidationResult{Valid: true, Status: "active"})
	}))
	defer srv.Close()

	c, err := New(srv.URL+"/api/license", WithDeviceID("d1"))
	require.NoError(t, err)
	_, err = c.Check(context.Background(), clientTestKey)
	require.NoError(t, err)
	assert.Equal(t, "/api/license/check/"+clientTestKey, gotPath)
}

func TestClientCheck(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodGet, r.Method)
		json.NewEncoder(w).Encode(domain.ValidationResult{
			Valid:        false,
			Status:       "not_found",
			BoundDevices: []domain.BoundDevice{},
			Message:      "License not found",
		})
	}))
	defer srv.Close()

	c, err := New(srv.URL, WithDeviceID("d1"))
	require.NoError(t, err)

	res, err := c.Check(context.Background(), clientTestKey)
	require.NoError(t, err)
	assert.False(t, res.Valid)
	assert.Equal(t, "not_found", res.Status)
	assert.Equal(t, "License not found", res.Message)
}

func TestClientActivateSendsDeviceAndHeaders(t *testing.T) {
	const secret = "sdk-secret"
	verifier := security.NewSigner(secret)

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/license/activate", r.URL.Path)
		assert.Equal(t, "billing-app", r.Header.Get("X-Solunex-Client"))
		assert.Equal(t, "production", r.Header.Get("X-Solunex-Env"))

		body, err := io.ReadAll(r.Body)
		require.NoError(t, err)
		assert.True(t, verifier.Verify(body, r.Header.Get("X-Solunex-Signature")),
			"activate body must be signed over the exact wire bytes")

		var req map[string]interface{}
		require.NoError(t, json.Unmarshal(body, &req))
		assert.Equal(t, clientTestKey, req["license_key"])
		assert.Equal(t, "machine-42", req["device_id"])

		json.NewEncoder(w).Encode(domain.ActivationResult{
			Activated:    true,
			BoundDevices: []domain.BoundDevice{{DeviceID: "machine-42", BoundAt: time.Now().UTC()}},
			MaxDevices:   3,
		})
	}))
	defer srv.Close()

	c, err := New(srv.URL,
		WithDeviceID("machine-42"),
		WithSigningSecret(secret),
		WithClientInfo("billing-app", "production"))
	require.NoError(t, err)

	res, err := c.Activate(context.Background(), clientTestKey,
		map[string]json.RawMessage{"os": json.RawMessage(`"linux"`)})
	require.NoError(t, err)
	assert.True(t, res.Activated)
	require.Len(t, res.BoundDevices, 1)
	assert.Equal(t, "machine-42", res.BoundDevices[0].DeviceID)
	assert.Equal(t, 3, res.MaxDevices)
}

func TestClientUnsignedWithoutSecret(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Empty(t, r.Header.Get("X-Solunex-Signature"))
		json.NewEncoder(w).Encode(domain.ActivationResult{Activated: true})
	}))
	defer srv.Close()

	c, err := New(srv.URL, WithDeviceID("d1"))
	require.NoError(t, err)
	_, err = c.Activate(context.Background(), clientTestKey, nil)
	require.NoError(t, err)
}

func TestClientPingSignsEmptyBody(t *testing.T) {
	const secret = "sdk-secret"
	verifier := security.NewSigner(secret)

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.True(t, verifier.Verify(nil, r.Header.Get("X-Solunex-Signature")))
		json.NewEncoder(w).Encode(domain.PingResult{Alive: true, Status: "active"})
	}))
	defer srv.Close()

	c, err := New(srv.URL, WithDeviceID("d1"), WithSigningSecret(secret))
	require.NoError(t, err)

	res, err := c.Ping(context.Background(), clientTestKey)
	require.NoError(t, err)
	assert.True(t, res.Alive)
}

func TestClientDecodesProblemDetails(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/problem+json")
		w.WriteHeader(http.StatusConflict)
		w.Write([]byte(`{"type":"/errors/max-devices-reached","title":"Max Devices Reached","status":409,"detail":"Max devices reached","trace_id":"abc-123"}`))
	}))
	defer srv.Close()

	c, err := New(srv.URL, WithDeviceID("d1"))
	require.NoError(t, err)

	_, err = c.Activate(context.Background(), clientTestKey, nil)
	require.Error(t, err)

	var apiErr *APIError
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, http.StatusConflict, apiErr.Status)
	assert.Equal(t, "Max devices reached", apiErr.Detail)
	assert.Equal(t, "abc-123", apiErr.TraceID)
}

func TestClientHandlesNonJSONErrorBody(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "bad gateway", http.StatusBadGateway)
	}))
	defer srv.Close()

	c, err := New(srv.URL, WithDeviceID("d1"))
	require.NoError(t, err)

	_, err = c.Info(context.Background(), clientTestKey)
	var apiErr *APIError
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, http.StatusBadGateway, apiErr.Status)
	assert.Contains(t, apiErr.Error(), "bad gateway")
}

func TestResolveDeviceIDIsStable(t *testing.T) {
	first := ResolveDeviceID()
	second := ResolveDeviceID()
	assert.NotEmpty(t, first)
	assert.Equal(t, first, second)
}
