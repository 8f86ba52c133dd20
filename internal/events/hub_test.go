package events

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"solunex/pkg/contracts/events"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func dialHub(t *testing.T, srv *httptest.Server) *websocket.Conn {
	t.Helper()
	url := "ws" + strings.TrimPrefix(srv.URL, "http")
	conn, resp, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	if resp != nil {
		resp.Body.Close()
	}
	t.Cleanup(func() { conn.Close() })
	return conn
}

func TestHubBroadcastsLicenseEvents(t *testing.T) {
	hub := NewHub(testLogger())
	hub.Start()
	t.Cleanup(hub.Stop)

	srv := httptest.NewServer(http.HandlerFunc(hub.ServeWS))
	t.Cleanup(srv.Close)

	conn := dialHub(t, srv)
	require.Eventually(t, func() bool { return hub.ClientCount() == 1 },
		time.Second, 10*time.Millisecond)

	hub.PublishLicenseEvent(context.Background(), events.MessageTypeLicenseActivated, events.LicenseEvent{
		LicenseKey: "SOL-W56J...",
		DeviceID:   "device-1",
		Outcome:    "activated",
		BoundCount: 1,
		MaxDevices: 2,
	})

	conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	_, payload, err := conn.ReadMessage()
	require.NoError(t, err)

	var msg events.WebSocketMessage
	require.NoError(t, json.Unmarshal(payload, &msg))
	assert.Equal(t, events.MessageTypeLicenseActivated, msg.Type)
	assert.NotEmpty(t, msg.ID)

	data, err := json.Marshal(msg.Data)
	require.NoError(t, err)
	var evt events.LicenseEvent
	require.NoError(t, json.Unmarshal(data, &evt))
	assert.Equal(t, "device-1", evt.DeviceID)
	assert.Equal(t, "activated", evt.Outcome)
}

func TestServeWSAfterStopDoesNotBlock(t *testing.T) {
	hub := NewHub(testLogger())
	hub.Start()
	hub.Stop()

	served := make(chan struct{})
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hub.ServeWS(w, r)
		close(served)
	}))
	t.Cleanup(srv.Close)

	url := "ws" + strings.TrimPrefix(srv.URL, "http")
	conn, resp, err := websocket.DefaultDialer.Dial(url, nil)
	if resp != nil {
		resp.Body.Close()
	}
	if err == nil {
		defer conn.Close()
	}

	select {
	case <-served:
	case <-time.After(2 * time.Second):
		t.Fatal("ServeWS did not return after hub stop")
	}
	assert.Equal(t, 0, hub.ClientCount())

	if err == nil {
		// The upgraded connection is torn down, not left half-open.
		conn.SetReadDeadline(time.Now().Add(2 * time.Second))
		_, _, readErr := conn.ReadMessage()
		assert.Error(t, readErr)
	}
}

func TestStopIsIdempotent(t *testing.T) {
	hub := NewHub(testLogger())
	hub.Start()
	hub.Stop()
	hub.Stop()
}
