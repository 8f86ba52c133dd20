package store

import (
	"context"
	"log/slog"
	"sync"

	"solunex/pkg/contracts/domain"
)

// MemoryStore is an in-process RecordStore guarded by a RWMutex. It is the
// default backend for development and tests, and the reference semantics
// for other implementations.
type MemoryStore struct {
	mu      sync.RWMutex
	records map[string]*domain.License
	logger  *slog.Logger
}

// NewMemoryStore creates an empty in-memory store.
func NewMemoryStore(logger *slog.Logger) *MemoryStore {
	if logger == nil {
		logger = slog.Default()
	}
	return &MemoryStore{
		records: make(map[string]*domain.License),
		logger:  logger.With(slog.String("store", "memory")),
	}
}

// Get implements RecordStore.
func (s *MemoryStore) Get(ctx context.Context, licenseKey string) (*domain.License, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()

	rec, ok := s.records[licenseKey]
	if !ok {
		return nil, ErrNotFound
	}
	return rec.Clone(), nil
}

// Create implements RecordStore. The stored record starts at version 1
// regardless of the version on the input.
func (s *MemoryStore) Create(ctx context.Context, lic *domain.License) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.records[lic.LicenseKey]; ok {
		return ErrAlreadyExists
	}
	rec := lic.Clone()
	rec.Version = 1
	s.records[lic.LicenseKey] = rec
	return nil
}

// Update implements RecordStore. The version check and the write happen
// under one lock, so concurrent writers serialize here.
func (s *MemoryStore) Update(ctx context.Context, lic *domain.License, expectedVersion int64) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	cur, ok := s.records[lic.LicenseKey]
	if !ok {
		return ErrNotFound
	}
	if cur.Version != expectedVersion {
		s.logger.Debug("version conflict",
			slog.Int64("expected", expectedVersion),
			slog.Int64("actual", cur.Version))
		return ErrVersionConflict
	}
	rec := lic.Clone()
	rec.Version = expectedVersion + 1
	s.records[lic.LicenseKey] = rec
	return nil
}

// Ping implements RecordStore.
func (s *MemoryStore) Ping(ctx context.Context) error {
	return ctx.Err()
}

// Close implements RecordStore.
func (s *MemoryStore) Close() error {
	return nil
}

// Len returns the number of stored records. Used by seeding and tests.
func (s *MemoryStore) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.records)
}
