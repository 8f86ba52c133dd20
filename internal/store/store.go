// Package store provides persistence for license records with optimistic
// concurrency control. All implementations expose compare-and-swap update
// semantics keyed on the record version so the binding engine can
// linearize roster changes without holding locks across reads.
package store

import (
	"context"
	"errors"

	"solunex/pkg/contracts/domain"
)

var (
	// ErrNotFound is returned when no record exists for a license key.
	ErrNotFound = errors.New("store: license not found")

	// ErrVersionConflict is returned by Update when the record changed
	// since the caller read it. Callers re-read and retry.
	ErrVersionConflict = errors.New("store: version conflict")

	// ErrAlreadyExists is returned by Create for a duplicate key.
	ErrAlreadyExists = errors.New("store: license already exists")
)

// RecordStore is the persistence contract for license records.
//
// Get returns a deep copy; mutating the result never affects stored state.
// Update succeeds only when expectedVersion matches the stored version,
// then persists the record with version expectedVersion+1. Create rejects
// duplicate keys.
type RecordStore interface {
	Get(ctx context.Context, licenseKey string) (*domain.License, error)
	Create(ctx context.Context, lic *domain.License) error
	Update(ctx context.Context, lic *domain.License, expectedVersion int64) error

	// Ping reports backend reachability for health checks.
	Ping(ctx context.Context) error

	Close() error
}
