// Package services contains the business layer between the HTTP transport
// and the binding engine.
package services

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"time"

	ierrors "solunex/internal/errors"
	"solunex/internal/license"
	"solunex/internal/middleware"
	"solunex/pkg/contracts/domain"
	"solunex/pkg/contracts/events"
)

// LicenseService provides business logic for license operations
type LicenseService interface {
	// Check evaluates a license key on the soft lane: unknown, revoked
	// and expired keys yield a shaped result, never an error verdict.
	Check(ctx context.Context, key string) (*domain.ValidationResult, error)

	// Activate binds a device to a license. Denials surface as the
	// sentinel errors of the errors package.
	Activate(ctx context.Context, key, deviceID string, meta map[string]json.RawMessage) (*domain.ActivationResult, error)

	// Info returns the full read-only projection of a license record.
	Info(ctx context.Context, key string) (*domain.LicenseInfo, error)

	// Ping is the lightweight heartbeat projection.
	Ping(ctx context.Context, key string) (*domain.PingResult, error)
}

// EventPublisher receives license lifecycle events for the WebSocket
// stream. A nil publisher disables the stream.
type EventPublisher interface {
	PublishLicenseEvent(ctx context.Context, typ events.MessageType, evt events.LicenseEvent)
}

type licenseService struct {
	engine    *license.Engine
	publisher EventPublisher
	logger    *slog.Logger
}

// NewLicenseService creates the license service over a binding engine.
func NewLicenseService(engine *license.Engine, publisher EventPublisher, logger *slog.Logger) LicenseService {
	if logger == nil {
		logger = slog.Default()
	}
	return &licenseService{
		engine:    engine,
		publisher: publisher,
		logger:    logger.With(slog.String("service", "license")),
	}
}

func (s *licenseService) Check(ctx context.Context, key string) (*domain.ValidationResult, error) {
	start := time.Now()
	traceID := middleware.GetReqID(ctx)

	key = license.NormalizeKey(key)
	result, err := s.engine.CheckOnly(ctx, key)
	if err != nil {
		s.logger.ErrorContext(ctx, "license check failed",
			slog.String("trace_id", traceID),
			slog.String("license_key", license.MaskKey(key)),
			slog.String("error", err.Error()))
		return nil, err
	}

	s.logger.InfoContext(ctx, "license checked",
		slog.String("trace_id", traceID),
		slog.String("license_key", license.MaskKey(key)),
		slog.String("status", result.Status),
		slog.Bool("valid", result.Valid),
		slog.Duration("duration", time.Since(start)))

	s.publish(ctx, events.MessageTypeLicenseChecked, events.LicenseEvent{
		LicenseKey: license.MaskKey(key),
		Outcome:    result.Status,
		BoundCount: len(result.BoundDevices),
	})
	return result, nil
}

func (s *licenseService) Activate(ctx context.Context, key, deviceID string, meta map[string]json.RawMessage) (*domain.ActivationResult, error) {
	start := time.Now()
	traceID := middleware.GetReqID(ctx)
	key = license.NormalizeKey(key)

	s.logger.InfoContext(ctx, "activation started",
		slog.String("trace_id", traceID),
		slog.String("license_key", license.MaskKey(key)),
		slog.String("device_id", deviceID))

	bind, err := s.engine.TryBind(ctx, key, deviceID, meta)
	if err != nil {
		s.logger.WarnContext(ctx, "activation denied",
			slog.String("trace_id", traceID),
			slog.String("license_key", license.MaskKey(key)),
			slog.String("device_id", deviceID),
			slog.String("error", err.Error()),
			slog.Duration("duration", time.Since(start)))
		s.publish(ctx, events.MessageTypeLicenseDenied, events.LicenseEvent{
			LicenseKey: license.MaskKey(key),
			DeviceID:   deviceID,
			Outcome:    denialOutcome(err),
		})
		return nil, err
	}

	outcome := "activated"
	if bind.Rebound {
		outcome = "rebound"
	}
	s.logger.InfoContext(ctx, "activation succeeded",
		slog.String("trace_id", traceID),
		slog.String("license_key", license.MaskKey(key)),
		slog.String("device_id", deviceID),
		slog.String("outcome", outcome),
		slog.Int("bound_devices", len(bind.License.BoundDevices)),
		slog.Duration("duration", time.Since(start)))

	s.publish(ctx, events.MessageTypeLicenseActivated, events.LicenseEvent{
		LicenseKey: license.MaskKey(key),
		DeviceID:   deviceID,
		Outcome:    outcome,
		BoundCount: len(bind.License.BoundDevices),
		MaxDevices: bind.License.MaxDevices,
	})

	return &domain.ActivationResult{
		Activated:    true,
		BoundDevices: bind.License.BoundDevices,
		MaxDevices:   bind.License.MaxDevices,
	}, nil
}

func (s *licenseService) Info(ctx context.Context, key string) (*domain.LicenseInfo, error) {
	key = license.NormalizeKey(key)
	lic, err := s.engine.Snapshot(ctx, key)
	if err != nil {
		return nil, err
	}

	status := s.engine.Evaluator().EffectiveStatus(lic, s.engine.Now())
	return &domain.LicenseInfo{
		ID:           lic.ID,
		LicenseKey:   lic.LicenseKey,
		UserEmail:    lic.UserEmail,
		AppID:        lic.AppID,
		Status:       string(status),
		GeneratedAt:  lic.GeneratedAt,
		ExpiresAt:    lic.ExpiresAt,
		IsBound:      lic.IsBound(),
		MaxDevices:   lic.MaxDevices,
		BoundDevices: lic.BoundDevices,
	}, nil
}

func (s *licenseService) Ping(ctx context.Context, key string) (*domain.PingResult, error) {
	key = license.NormalizeKey(key)
	lic, err := s.engine.Snapshot(ctx, key)
	if err != nil {
		return nil, err
	}

	status := s.engine.Evaluator().EffectiveStatus(lic, s.engine.Now())
	return &domain.PingResult{
		Alive:     status == domain.LicenseStatusActive,
		Status:    string(status),
		IsBound:   lic.IsBound(),
		ExpiresAt: lic.ExpiresAt,
	}, nil
}

func (s *licenseService) publish(ctx context.Context, typ events.MessageType, evt events.LicenseEvent) {
	if s.publisher == nil {
		return
	}
	s.publisher.PublishLicenseEvent(ctx, typ, evt)
}

// denialOutcome classifies a TryBind error for the event stream.
func denialOutcome(err error) string {
	switch {
	case errors.Is(err, ierrors.ErrLicenseNotFound):
		return "not_found"
	case errors.Is(err, ierrors.ErrLicenseRevoked):
		return "revoked"
	case errors.Is(err, ierrors.ErrLicenseExpired):
		return "expired"
	case errors.Is(err, ierrors.ErrMaxDevicesReached):
		return "max_devices"
	default:
		return "error"
	}
}
