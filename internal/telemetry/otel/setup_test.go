package otel

import (
	"context"
	"testing"

	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
)

func TestNewProviders_EmptyEndpointIsNoop(t *testing.T) {
	p, err := NewProviders(context.Background(), "", "session-gateway", false)
	if err != nil {
		t.Fatalf("NewProviders: %v", err)
	}
	if p.MeterProvider == nil {
		t.Fatal("MeterProvider is nil")
	}
	if err := p.Shutdown(context.Background()); err != nil {
		t.Errorf("Shutdown: %v", err)
	}
}

func TestNewProviders_InvalidEndpoint(t *testing.T) {
	if _, err := NewProviders(context.Background(), "http://", "session-gateway", false); err == nil {
		t.Fatal("NewProviders with missing host: want error, got nil")
	}
}

func TestNewProviders_EndpointWithPath(t *testing.T) {
	// Exporter construction is lazy; no collector needs to be running.
	p, err := NewProviders(context.Background(), "http://localhost:4317/v1/metrics", "session-gateway", false)
	if err != nil {
		t.Fatalf("NewProviders: %v", err)
	}
	defer func() { _ = p.Shutdown(context.Background()) }()
	if p.MeterProvider == nil {
		t.Fatal("MeterProvider is nil")
	}
}

func TestGuardMetrics_RecordDecision(t *testing.T) {
	mp := sdkmetric.NewMeterProvider()
	defer func() { _ = mp.Shutdown(context.Background()) }()

	m, err := NewGuardMetrics(mp)
	if err != nil {
		t.Fatalf("NewGuardMetrics: %v", err)
	}
	m.RecordDecision(context.Background(), "allow")
}

func TestGuardMetrics_NilSafe(t *testing.T) {
	var m *GuardMetrics
	m.RecordDecision(context.Background(), "allow") // must not panic
}
