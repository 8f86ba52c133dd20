package services

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	ierrors "solunex/internal/errors"
	"solunex/internal/license"
	"solunex/internal/store"
	"solunex/pkg/contracts/domain"
	"solunex/pkg/contracts/events"
)

const svcTestKey = "SOL-W56J-UPH1-N3YG-2B9R-EA"

// capturingPublisher records published events for assertions.
type capturingPublisher struct {
	mu     sync.Mutex
	types  []events.MessageType
	events []events.LicenseEvent
}

func (p *capturingPublisher) PublishLicenseEvent(_ context.Context, typ events.MessageType, evt events.LicenseEvent) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.types = append(p.types, typ)
	p.events = append(p.events, evt)
}

func (p *capturingPublisher) last() (events.MessageType, events.LicenseEvent) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if len(p.types) == 0 {
		return "", events.LicenseEvent{}
	}
	return p.types[len(p.types)-1], p.events[len(p.events)-1]
}

func newTestService(t *testing.T, pub EventPublisher) (LicenseService, *store.MemoryStore) {
	t.Helper()
	st := store.NewMemoryStore(nil)
	require.NoError(t, st.Create(context.Background(), &domain.License{
		ID:          1,
		LicenseKey:  svcTestKey,
		UserEmail:   "user@example.com",
		AppID:       "app-1",
		Status:      domain.LicenseStatusActive,
		GeneratedAt: time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC),
		MaxDevices:  1,
	}))
	engine := license.NewEngine(st, nil)
	return NewLicenseService(engine, pub, nil), st
}

func TestServiceCheckNormalizesKey(t *testing.T) {
	svc, _ := newTestService(t, nil)

	result, err := svc.Check(context.Background(), "  sol-w56j-uph1-n3yg-2b9r-ea ")
	require.NoError(t, err)
	assert.True(t, result.Valid)
	assert.Equal(t, "active", result.Status)
}

func TestServiceCheckPublishesEvent(t *testing.T) {
	pub := &capturingPublisher{}
	svc, _ := newTestService(t, pub)

	_, err := svc.Check(context.Background(), svcTestKey)
	require.NoError(t, err)

	typ, evt := pub.last()
	assert.Equal(t, events.MessageTypeLicenseChecked, typ)
	assert.Equal(t, "active", evt.Outcome)
	// Keys never reach the event stream unmasked.
	assert.NotContains(t, evt.LicenseKey, "2B9R")
}

func TestServiceActivatePublishesOutcomes(t *testing.T) {
	pub := &capturingPublisher{}
	svc, _ := newTestService(t, pub)
	ctx := context.Background()

	_, err := svc.Activate(ctx, svcTestKey, "device-1", nil)
	require.NoError(t, err)
	typ, evt := pub.last()
	assert.Equal(t, events.MessageTypeLicenseActivated, typ)
	assert.Equal(t, "activated", evt.Outcome)
	assert.Equal(t, 1, evt.BoundCount)
	assert.Equal(t, 1, evt.MaxDevices)

	// Idempotent rebind is still a success event.
	_, err = svc.Activate(ctx, svcTestKey, "device-1", nil)
	require.NoError(t, err)
	typ, evt = pub.last()
	assert.Equal(t, events.MessageTypeLicenseActivated, typ)
	assert.Equal(t, "rebound", evt.Outcome)

	// Capacity denial is a denied event with a classified outcome.
	_, err = svc.Activate(ctx, svcTestKey, "device-2", nil)
	assert.ErrorIs(t, err, ierrors.ErrMaxDevicesReached)
	typ, evt = pub.last()
	assert.Equal(t, events.MessageTypeLicenseDenied, typ)
	assert.Equal(t, "max_devices", evt.Outcome)
	assert.Equal(t, "device-2", evt.DeviceID)
}

func TestServiceActivateUnknownKey(t *testing.T) {
	pub := &capturingPublisher{}
	svc, _ := newTestService(t, pub)

	_, err := svc.Activate(context.Background(), "SOL-ZZZZ-ZZZZ-ZZZZ-ZZZZ-00", "device-1", nil)
	assert.ErrorIs(t, err, ierrors.ErrLicenseNotFound)

	typ, evt := pub.last()
	assert.Equal(t, events.MessageTypeLicenseDenied, typ)
	assert.Equal(t, "not_found", evt.Outcome)
}

func TestServiceInfoAndPing(t *testing.T) {
	svc, _ := newTestService(t, nil)
	ctx := context.Background()

	info, err := svc.Info(ctx, svcTestKey)
	require.NoError(t, err)
	assert.Equal(t, svcTestKey, info.LicenseKey)
	assert.Equal(t, "active", info.Status)
	assert.False(t, info.IsBound)

	_, err = svc.Activate(ctx, svcTestKey, "device-1", nil)
	require.NoError(t, err)

	ping, err := svc.Ping(ctx, svcTestKey)
	require.NoError(t, err)
	assert.True(t, ping.Alive)
	assert.True(t, ping.IsBound)

	_, err = svc.Info(ctx, "SOL-ZZZZ-ZZZZ-ZZZZ-ZZZZ-00")
	assert.ErrorIs(t, err, ierrors.ErrLicenseNotFound)
	_, err = svc.Ping(ctx, "SOL-ZZZZ-ZZZZ-ZZZZ-ZZZZ-00")
	assert.ErrorIs(t, err, ierrors.ErrLicenseNotFound)
}

func TestHealthServiceCheck(t *testing.T) {
	st := store.NewMemoryStore(nil)
	svc := NewHealthService(st, nil)

	status := svc.Check(context.Background())
	assert.Equal(t, "healthy", status.Status)
	assert.NotEmpty(t, status.Version)
	assert.NoError(t, svc.Ready(context.Background()))
}
