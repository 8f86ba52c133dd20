package license

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"math/rand"
	"time"

	ierrors "solunex/internal/errors"
	"solunex/internal/store"
	"solunex/pkg/contracts/domain"
)

const (
	defaultMaxAttempts = 5
	defaultBaseBackoff = 10 * time.Millisecond
)

// Engine runs the binding decision procedure over a RecordStore. It is
// safe for concurrent use; all coordination happens through the store's
// compare-and-swap update.
type Engine struct {
	store       store.RecordStore
	eval        *Evaluator
	logger      *slog.Logger
	metrics     *Metrics
	now         func() time.Time
	maxAttempts int
	baseBackoff time.Duration
}

// EngineOption customizes Engine construction.
type EngineOption func(*Engine)

// WithClock overrides the engine clock. Tests use this to pin expiry
// boundaries.
func WithClock(now func() time.Time) EngineOption {
	return func(e *Engine) { e.now = now }
}

// WithRetry overrides the compare-and-swap retry budget.
func WithRetry(maxAttempts int, baseBackoff time.Duration) EngineOption {
	return func(e *Engine) {
		if maxAttempts > 0 {
			e.maxAttempts = maxAttempts
		}
		if baseBackoff > 0 {
			e.baseBackoff = baseBackoff
		}
	}
}

// WithMetrics attaches OpenTelemetry instruments to the engine.
func WithMetrics(m *Metrics) EngineOption {
	return func(e *Engine) { e.metrics = m }
}

// NewEngine creates a binding engine over the given store.
func NewEngine(st store.RecordStore, logger *slog.Logger, opts ...EngineOption) *Engine {
	if logger == nil {
		logger = slog.Default()
	}
	e := &Engine{
		store:       st,
		eval:        NewEvaluator(),
		logger:      logger.With(slog.String("component", "binding_engine")),
		now:         time.Now,
		maxAttempts: defaultMaxAttempts,
		baseBackoff: defaultBaseBackoff,
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Evaluator exposes the engine's status evaluator for read paths.
func (e *Engine) Evaluator() *Evaluator {
	return e.eval
}

// BindResult is the outcome of a successful TryBind.
type BindResult struct {
	License *domain.License
	// Rebound is true when the device was already in the roster and no
	// write was performed.
	Rebound bool
}

// TryBind binds deviceID to the license identified by licenseKey.
//
// The decision is made against a fresh read of the record on every
// attempt. Re-activating an already-bound device succeeds without
// touching the store, so the first binding's timestamp and metadata are
// permanent. A lost compare-and-swap race triggers a re-read and a full
// re-decision; after the retry budget the engine gives up with
// ErrStoreConflict rather than guessing a verdict.
func (e *Engine) TryBind(ctx context.Context, licenseKey, deviceID string, meta map[string]json.RawMessage) (*BindResult, error) {
	if licenseKey == "" || deviceID == "" {
		return nil, ierrors.ErrMissingInput
	}

	var lastConflict error
	for attempt := 1; attempt <= e.maxAttempts; attempt++ {
		lic, err := e.store.Get(ctx, licenseKey)
		if errors.Is(err, store.ErrNotFound) {
			e.recordActivation(ctx, "not_found")
			return nil, ierrors.ErrLicenseNotFound
		}
		if err != nil {
			e.recordActivation(ctx, "store_error")
			return nil, fmt.Errorf("binding engine: read %s: %w", MaskKey(licenseKey), err)
		}

		now := e.now()
		switch e.eval.EffectiveStatus(lic, now) {
		case domain.LicenseStatusRevoked:
			e.recordActivation(ctx, "revoked")
			return nil, ierrors.ErrLicenseRevoked
		case domain.LicenseStatusExpired:
			e.recordActivation(ctx, "expired")
			return nil, ierrors.ErrLicenseExpired
		}

		if lic.Device(deviceID) != nil {
			e.logger.InfoContext(ctx, "device already bound, idempotent success",
				slog.String("license_key", MaskKey(licenseKey)),
				slog.String("device_id", deviceID))
			e.recordActivation(ctx, "rebound")
			return &BindResult{License: lic, Rebound: true}, nil
		}

		if len(lic.BoundDevices) >= lic.MaxDevices {
			e.recordActivation(ctx, "max_devices")
			return nil, ierrors.ErrMaxDevicesReached
		}

		lic.BoundDevices = append(lic.BoundDevices, domain.BoundDevice{
			DeviceID: deviceID,
			BoundAt:  now.UTC(),
			Meta:     meta,
		})

		err = e.store.Update(ctx, lic, lic.Version)
		if err == nil {
			lic.Version++
			e.logger.InfoContext(ctx, "device bound",
				slog.String("license_key", MaskKey(licenseKey)),
				slog.String("device_id", deviceID),
				slog.Int("bound_devices", len(lic.BoundDevices)),
				slog.Int("max_devices", lic.MaxDevices))
			e.recordActivation(ctx, "activated")
			return &BindResult{License: lic}, nil
		}
		if !errors.Is(err, store.ErrVersionConflict) {
			e.recordActivation(ctx, "store_error")
			return nil, fmt.Errorf("binding engine: update %s: %w", MaskKey(licenseKey), err)
		}

		lastConflict = err
		e.logger.DebugContext(ctx, "lost update race, retrying",
			slog.String("license_key", MaskKey(licenseKey)),
			slog.Int("attempt", attempt))
		if attempt < e.maxAttempts {
			e.sleep(ctx, attempt)
		}
	}

	e.recordActivation(ctx, "conflict_exhausted")
	return nil, fmt.Errorf("%w after %d attempts: %v", ierrors.ErrStoreConflict, e.maxAttempts, lastConflict)
}

// CheckOnly evaluates a license without any possibility of a write. An
// unknown key is a soft outcome here, not an error: the caller always
// gets a shaped result.
func (e *Engine) CheckOnly(ctx context.Context, licenseKey string) (*domain.ValidationResult, error) {
	if licenseKey == "" {
		return nil, ierrors.ErrMissingInput
	}

	lic, err := e.store.Get(ctx, licenseKey)
	if errors.Is(err, store.ErrNotFound) {
		e.recordCheck(ctx, "not_found")
		return &domain.ValidationResult{
			Valid:        false,
			Status:       domain.EffectiveStatusNotFound,
			BoundDevices: []domain.BoundDevice{},
			Message:      "License not found",
		}, nil
	}
	if err != nil {
		e.recordCheck(ctx, "store_error")
		return nil, fmt.Errorf("binding engine: read %s: %w", MaskKey(licenseKey), err)
	}

	now := e.now()
	status := e.eval.EffectiveStatus(lic, now)
	result := &domain.ValidationResult{
		Valid:        status == domain.LicenseStatusActive,
		Status:       string(status),
		ExpiresAt:    lic.ExpiresAt,
		BoundDevices: lic.BoundDevices,
		Message:      e.eval.InvalidReason(lic, now),
	}
	e.recordCheck(ctx, string(status))
	return result, nil
}

// Snapshot returns a copy of the current record for read-only projections
// (info, ping). Unknown keys are an error on this path.
func (e *Engine) Snapshot(ctx context.Context, licenseKey string) (*domain.License, error) {
	if licenseKey == "" {
		return nil, ierrors.ErrMissingInput
	}
	lic, err := e.store.Get(ctx, licenseKey)
	if errors.Is(err, store.ErrNotFound) {
		return nil, ierrors.ErrLicenseNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("binding engine: read %s: %w", MaskKey(licenseKey), err)
	}
	return lic, nil
}

// Now exposes the engine clock so projections use the same time source.
func (e *Engine) Now() time.Time {
	return e.now()
}

// sleep backs off with jitter between retry attempts, honoring context
// cancellation.
func (e *Engine) sleep(ctx context.Context, attempt int) {
	backoff := e.baseBackoff * time.Duration(attempt)
	backoff += time.Duration(rand.Int63n(int64(e.baseBackoff)))
	timer := time.NewTimer(backoff)
	defer timer.Stop()
	select {
	case <-ctx.Done():
	case <-timer.C:
	}
}

func (e *Engine) recordActivation(ctx context.Context, result string) {
	if e.metrics != nil {
		e.metrics.RecordActivation(ctx, result)
	}
}

func (e *Engine) recordCheck(ctx context.Context, status string) {
	if e.metrics != nil {
		e.metrics.RecordCheck(ctx, status)
	}
}

// MaskKey masks a license key for safe logging
func MaskKey(key string) string {
	if len(key) <= 8 {
		return "***"
	}
	return key[:8] + "..."
}
