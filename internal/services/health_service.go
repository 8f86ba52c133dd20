package services

import (
	"context"
	"log/slog"
	"runtime"
	"time"

	"solunex/internal/store"
	"solunex/pkg/contracts"
)

// HealthService provides health check functionality
type HealthService struct {
	store     store.RecordStore
	startTime time.Time
	logger    *slog.Logger
}

// HealthStatus represents the health status response
type HealthStatus struct {
	Status    string                 `json:"status"`
	Timestamp time.Time              `json:"timestamp"`
	Version   string                 `json:"version"`
	Runtime   map[string]interface{} `json:"runtime,omitempty"`
	Services  map[string]interface{} `json:"services,omitempty"`
}

// ServiceHealth represents individual service health
type ServiceHealth struct {
	Status  string `json:"status"`
	Message string `json:"message,omitempty"`
}

// NewHealthService creates a health service over the record store.
func NewHealthService(st store.RecordStore, logger *slog.Logger) *HealthService {
	if logger == nil {
		logger = slog.Default()
	}
	return &HealthService{
		store:     st,
		startTime: time.Now(),
		logger:    logger.With(slog.String("service", "health")),
	}
}

// Check returns the overall health of the server.
func (s *HealthService) Check(ctx context.Context) *HealthStatus {
	status := "healthy"
	services := make(map[string]interface{})

	storeHealth := ServiceHealth{Status: "healthy"}
	checkCtx, cancel := context.WithTimeout(ctx, 2*time.Second)
	defer cancel()
	if err := s.store.Ping(checkCtx); err != nil {
		status = "degraded"
		storeHealth = ServiceHealth{Status: "unhealthy", Message: err.Error()}
		s.logger.WarnContext(ctx, "store health check failed", slog.String("error", err.Error()))
	}
	services["store"] = storeHealth

	return &HealthStatus{
		Status:    status,
		Timestamp: time.Now(),
		Version:   contracts.Version,
		Runtime: map[string]interface{}{
			"go_version":     runtime.Version(),
			"goroutines":     runtime.NumGoroutine(),
			"uptime_seconds": time.Since(s.startTime).Seconds(),
		},
		Services: services,
	}
}

// Ready reports whether the server can serve traffic.
func (s *HealthService) Ready(ctx context.Context) error {
	checkCtx, cancel := context.WithTimeout(ctx, 2*time.Second)
	defer cancel()
	return s.store.Ping(checkCtx)
}
