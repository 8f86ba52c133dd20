// Package domain contains the core domain models for the Solunex license
// server. These types serve as the Single Source of Truth (SSOT) for all
// layers of the application.
package domain

import (
	"encoding/json"
	"time"
)

// License is the authoritative record for a single license key. Records are
// issued externally; this service only reads them and appends device
// bindings. Version is the optimistic-concurrency token: every successful
// store update increments it, and writers must present the version they
// read.
type License struct {
	ID           int64           `json:"id"`
	LicenseKey   string          `json:"license_key" validate:"required,min=10"`
	UserEmail    string          `json:"user_email" validate:"omitempty,email"`
	AppID        string          `json:"app_id"`
	Status       LicenseStatus   `json:"status" validate:"required"`
	GeneratedAt  time.Time       `json:"generated_at"`
	ExpiresAt    *time.Time      `json:"expires_at"`
	MaxDevices   int             `json:"max_devices" validate:"min=1"`
	BoundDevices []BoundDevice   `json:"bound_devices"`
	Version      int64           `json:"version"`
}

// BoundDevice is one entry in a license's device roster. BoundAt and Meta
// are set when the device is first bound and never rewritten afterwards.
// Meta is opaque to the server: stored and echoed verbatim, never inspected.
type BoundDevice struct {
	DeviceID string                     `json:"device_id"`
	BoundAt  time.Time                  `json:"bound_at"`
	Meta     map[string]json.RawMessage `json:"meta,omitempty"`
}

// LicenseStatus is the administratively stored status of a license.
// "expired" may appear in legacy records but is never written by this
// service; expiry is computed from ExpiresAt at evaluation time.
type LicenseStatus string

const (
	LicenseStatusPending LicenseStatus = "pending"
	LicenseStatusActive  LicenseStatus = "active"
	LicenseStatusRevoked LicenseStatus = "revoked"
	LicenseStatusExpired LicenseStatus = "expired"
)

// EffectiveStatusNotFound is reported on the soft validation lane when the
// key does not resolve to a record.
const EffectiveStatusNotFound = "not_found"

// IsBound reports whether at least one device is bound to the license.
func (l *License) IsBound() bool {
	return len(l.BoundDevices) > 0
}

// Device returns the roster entry for deviceID, or nil when the device is
// not bound.
func (l *License) Device(deviceID string) *BoundDevice {
	for i := range l.BoundDevices {
		if l.BoundDevices[i].DeviceID == deviceID {
			return &l.BoundDevices[i]
		}
	}
	return nil
}

// DeviceIDs returns the roster's device identifiers in binding order.
func (l *License) DeviceIDs() []string {
	ids := make([]string, len(l.BoundDevices))
	for i, d := range l.BoundDevices {
		ids[i] = d.DeviceID
	}
	return ids
}

// Clone returns a deep copy of the license. Stores hand out clones so
// callers can never mutate shared state.
func (l *License) Clone() *License {
	c := *l
	c.BoundDevices = make([]BoundDevice, len(l.BoundDevices))
	for i, d := range l.BoundDevices {
		c.BoundDevices[i] = d
		if d.Meta != nil {
			m := make(map[string]json.RawMessage, len(d.Meta))
			for k, v := range d.Meta {
				m[k] = append(json.RawMessage(nil), v...)
			}
			c.BoundDevices[i].Meta = m
		}
	}
	if l.ExpiresAt != nil {
		t := *l.ExpiresAt
		c.ExpiresAt = &t
	}
	return &c
}

// ValidationResult is the soft-lane outcome shared by the check and
// validate operations. It is always returned with HTTP 200; Valid carries
// the verdict and Message the human-readable reason when invalid.
// BoundDevices carries the full roster entries so clients see bound_at
// and meta, not just identifiers.
type ValidationResult struct {
	Valid        bool          `json:"valid"`
	Status       string        `json:"status"`
	ExpiresAt    *time.Time    `json:"expires_at"`
	BoundDevices []BoundDevice `json:"bound_devices"`
	Message      string        `json:"message,omitempty"`
}

// ActivationResult is the hard-lane success payload.
type ActivationResult struct {
	Activated    bool          `json:"activated"`
	BoundDevices []BoundDevice `json:"bound_devices"`
	MaxDevices   int           `json:"max_devices"`
}

// LicenseInfo is the full read-only projection served by the info
// operation.
type LicenseInfo struct {
	ID           int64         `json:"id"`
	LicenseKey   string        `json:"license_key"`
	UserEmail    string        `json:"user_email"`
	AppID        string        `json:"app_id"`
	Status       string        `json:"status"`
	GeneratedAt  time.Time     `json:"generated_at"`
	ExpiresAt    *time.Time    `json:"expires_at"`
	IsBound      bool          `json:"is_bound"`
	MaxDevices   int           `json:"max_devices"`
	BoundDevices []BoundDevice `json:"bound_devices"`
}

// PingResult is the heartbeat projection: just enough for a client to tell
// whether its license is still usable.
type PingResult struct {
	Alive     bool       `json:"alive"`
	Status    string     `json:"status"`
	IsBound   bool       `json:"is_bound"`
	ExpiresAt *time.Time `json:"expires_at"`
}
