// Package api contains API contract definitions for the Solunex license
// server. Version v1 represents the current stable API version.
package api

import "encoding/json"

// License API requests.

// ActivateRequest binds a device to a license. Meta is opaque client
// context (hostname, os, app build) stored with the binding on first
// activation and ignored on idempotent re-activation.
type ActivateRequest struct {
	LicenseKey string                     `json:"license_key" validate:"required,min=10"`
	DeviceID   string                     `json:"device_id" validate:"required,min=1"`
	Meta       map[string]json.RawMessage `json:"meta,omitempty"`
}

// ValidateRequest is the read-only validation request. DeviceID and Meta
// are accepted for forward compatibility but never influence the verdict
// and never cause a write.
type ValidateRequest struct {
	LicenseKey string                     `json:"license_key" validate:"required,min=10"`
	DeviceID   string                     `json:"device_id,omitempty"`
	Meta       map[string]json.RawMessage `json:"meta,omitempty"`
}
