package otel

import (
	"context"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

// GuardMetrics counts guard decisions by action. Nil-safe: a nil *GuardMetrics
// records nothing, so callers need no enabled checks.
type GuardMetrics struct {
	decisions metric.Int64Counter
}

// NewGuardMetrics registers the guard decision counter on the given meter provider.
func NewGuardMetrics(mp metric.MeterProvider) (*GuardMetrics, error) {
	meter := mp.Meter("session-gateway/guard")
	decisions, err := meter.Int64Counter(
		"auth.decisions",
		metric.WithDescription("Guard decisions by action (allow, redirect_login, redirect_landing)"),
	)
	if err != nil {
		return nil, err
	}
	return &GuardMetrics{decisions: decisions}, nil
}

// RecordDecision counts one guard decision with the given action label.
func (m *GuardMetrics) RecordDecision(ctx context.Context, action string) {
	if m == nil || m.decisions == nil {
		return
	}
	m.decisions.Add(ctx, 1, metric.WithAttributes(attribute.String("action", action)))
}
