package license

import (
	"time"

	"solunex/pkg/contracts/domain"
)

// Evaluator computes the effective status of a license record at a point
// in time. It is pure: no I/O, no clock access, no mutation of the record.
type Evaluator struct{}

// NewEvaluator creates a status evaluator.
func NewEvaluator() *Evaluator {
	return &Evaluator{}
}

// EffectiveStatus resolves the status a license has right now.
// Administrative revocation wins over everything. Expiry is computed from
// expires_at against now; a nil expires_at never expires. Otherwise the
// stored status stands, including a stored "expired" left by legacy
// tooling.
func (e *Evaluator) EffectiveStatus(lic *domain.License, now time.Time) domain.LicenseStatus {
	if lic.Status == domain.LicenseStatusRevoked {
		return domain.LicenseStatusRevoked
	}
	if lic.ExpiresAt != nil && !lic.ExpiresAt.After(now) {
		return domain.LicenseStatusExpired
	}
	return lic.Status
}

// IsValid reports whether the license is usable: effective status active
// and, when an expiry exists, strictly before it.
func (e *Evaluator) IsValid(lic *domain.License, now time.Time) bool {
	return e.EffectiveStatus(lic, now) == domain.LicenseStatusActive
}

// InvalidReason returns the contract message for an unusable license, and
// the empty string for a valid one. The wording is part of the public API.
func (e *Evaluator) InvalidReason(lic *domain.License, now time.Time) string {
	switch e.EffectiveStatus(lic, now) {
	case domain.LicenseStatusActive:
		return ""
	case domain.LicenseStatusRevoked:
		return "License revoked"
	case domain.LicenseStatusExpired:
		return "License expired"
	case domain.LicenseStatusPending:
		return "License not active"
	default:
		return "License not active"
	}
}
