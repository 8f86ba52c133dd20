package license

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"time"

	"gopkg.in/yaml.v2"

	"solunex/internal/store"
	"solunex/pkg/contracts/domain"
)

// seedFile is the on-disk fixture format consumed by LoadSeed.
type seedFile struct {
	Licenses []seedLicense `yaml:"licenses"`
}

type seedLicense struct {
	ID         int64             `yaml:"id"`
	LicenseKey string            `yaml:"license_key"`
	UserEmail  string            `yaml:"user_email"`
	AppID      string            `yaml:"app_id"`
	Status     string            `yaml:"status"`
	ExpiresAt  *time.Time        `yaml:"expires_at"`
	MaxDevices int               `yaml:"max_devices"`
	Devices    []seedBoundDevice `yaml:"devices"`
}

type seedBoundDevice struct {
	DeviceID string     `yaml:"device_id"`
	BoundAt  *time.Time `yaml:"bound_at"`
}

// LoadSeed reads a YAML license fixture and creates each record in the
// store. Records that already exist are skipped so restarts with the same
// seed file are idempotent. Returns the number of records created.
func LoadSeed(ctx context.Context, st store.RecordStore, path string, logger *slog.Logger) (int, error) {
	if logger == nil {
		logger = slog.Default()
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return 0, fmt.Errorf("read seed file: %w", err)
	}

	var f seedFile
	if err := yaml.Unmarshal(data, &f); err != nil {
		return 0, fmt.Errorf("parse seed file %s: %w", path, err)
	}

	created := 0
	for i, s := range f.Licenses {
		if s.ID == 0 {
			s.ID = int64(i + 1)
		}
		lic, err := seedToLicense(s)
		if err != nil {
			return created, fmt.Errorf("seed entry %d: %w", i, err)
		}

		if err := st.Create(ctx, lic); err != nil {
			if errors.Is(err, store.ErrAlreadyExists) {
				logger.DebugContext(ctx, "seed record already exists",
					slog.String("license_key", MaskKey(lic.LicenseKey)))
				continue
			}
			return created, fmt.Errorf("seed entry %d (%s): %w", i, MaskKey(lic.LicenseKey), err)
		}
		created++
	}

	logger.InfoContext(ctx, "seed file loaded",
		slog.String("path", path),
		slog.Int("total", len(f.Licenses)),
		slog.Int("created", created))
	return created, nil
}

func seedToLicense(s seedLicense) (*domain.License, error) {
	key := NormalizeKey(s.LicenseKey)
	if err := CheckKeyFormat(key); err != nil {
		return nil, err
	}

	status := domain.LicenseStatus(s.Status)
	if status == "" {
		status = domain.LicenseStatusActive
	}
	switch status {
	case domain.LicenseStatusPending, domain.LicenseStatusActive, domain.LicenseStatusRevoked:
	default:
		return nil, fmt.Errorf("unsupported seed status %q", s.Status)
	}

	maxDevices := s.MaxDevices
	if maxDevices <= 0 {
		maxDevices = 1
	}
	if len(s.Devices) > maxDevices {
		return nil, fmt.Errorf("seed binds %d devices but max_devices is %d", len(s.Devices), maxDevices)
	}

	now := time.Now().UTC()
	lic := &domain.License{
		ID:          s.ID,
		LicenseKey:  key,
		UserEmail:   s.UserEmail,
		AppID:       s.AppID,
		Status:      status,
		GeneratedAt: now,
		ExpiresAt:   s.ExpiresAt,
		MaxDevices:  maxDevices,
	}

	seen := make(map[string]struct{}, len(s.Devices))
	for _, d := range s.Devices {
		if d.DeviceID == "" {
			return nil, fmt.Errorf("seed device for %s has empty device_id", MaskKey(key))
		}
		if _, dup := seen[d.DeviceID]; dup {
			return nil, fmt.Errorf("seed device %q bound twice on %s", d.DeviceID, MaskKey(key))
		}
		seen[d.DeviceID] = struct{}{}

		boundAt := now
		if d.BoundAt != nil {
			boundAt = d.BoundAt.UTC()
		}
		lic.BoundDevices = append(lic.BoundDevices, domain.BoundDevice{
			DeviceID: d.DeviceID,
			BoundAt:  boundAt,
		})
	}

	return lic, nil
}
