package producer

import (
	"context"
	"testing"

	"session-gateway/internal/telemetry"
)

func TestNewKafkaProducer_DisabledWhenUnconfigured(t *testing.T) {
	p, err := NewKafkaProducer(nil, "session-events")
	if err != nil {
		t.Fatalf("NewKafkaProducer: %v", err)
	}
	if p != nil {
		t.Errorf("no brokers: got %+v, want nil producer", p)
	}

	p, err = NewKafkaProducer([]string{"localhost:9092"}, "")
	if err != nil {
		t.Fatalf("NewKafkaProducer: %v", err)
	}
	if p != nil {
		t.Errorf("no topic: got %+v, want nil producer", p)
	}
}

func TestKafkaProducer_NilSafe(t *testing.T) {
	var p *KafkaProducer
	if err := p.Emit(context.Background(), telemetry.NewEvent(telemetry.EventLogin)); err != nil {
		t.Errorf("nil producer Emit: %v", err)
	}
	if err := p.Close(); err != nil {
		t.Errorf("nil producer Close: %v", err)
	}
}
