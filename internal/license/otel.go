package license

import (
	"context"
	"fmt"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

const MeterName = "license-engine"

// Metrics holds the engine's OpenTelemetry instruments.
type Metrics struct {
	ActivationAttempts metric.Int64Counter
	CheckAttempts      metric.Int64Counter
	BindDuration       metric.Float64Histogram
}

// InitializeMetrics creates the engine metrics on the given meter.
func InitializeMetrics(meter metric.Meter) (*Metrics, error) {
	m := &Metrics{}

	var err error
	m.ActivationAttempts, err = meter.Int64Counter(
		"license_activation_attempts_total",
		metric.WithDescription("Total number of license activation attempts by result"),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create activation attempts counter: %w", err)
	}

	m.CheckAttempts, err = meter.Int64Counter(
		"license_check_attempts_total",
		metric.WithDescription("Total number of license checks by effective status"),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create check attempts counter: %w", err)
	}

	m.BindDuration, err = meter.Float64Histogram(
		"license_bind_duration_seconds",
		metric.WithDescription("License bind duration in seconds"),
		metric.WithUnit("s"),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create bind duration histogram: %w", err)
	}

	return m, nil
}

// RecordActivation increments the activation counter for a result class.
func (m *Metrics) RecordActivation(ctx context.Context, result string) {
	m.ActivationAttempts.Add(ctx, 1,
		metric.WithAttributes(attribute.String("result", result)))
}

// RecordCheck increments the check counter for an effective status.
func (m *Metrics) RecordCheck(ctx context.Context, status string) {
	m.CheckAttempts.Add(ctx, 1,
		metric.WithAttributes(attribute.String("status", status)))
}

// RecordBindDuration records one bind round-trip.
func (m *Metrics) RecordBindDuration(ctx context.Context, seconds float64) {
	m.BindDuration.Record(ctx, seconds)
}
