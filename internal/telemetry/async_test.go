package telemetry

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"
)

// captureEmitter records emitted events for tests.
type captureEmitter struct {
	mu     sync.Mutex
	events []*Event
	err    error
	done   chan struct{}
}

func (c *captureEmitter) Emit(ctx context.Context, event *Event) error {
	c.mu.Lock()
	c.events = append(c.events, event)
	c.mu.Unlock()
	if c.done != nil {
		close(c.done)
	}
	return c.err
}

func TestEmitAsync_Delivers(t *testing.T) {
	emitter := &captureEmitter{done: make(chan struct{})}
	event := NewEvent(EventLogin)
	event.SubjectID = "user-1"

	EmitAsync(emitter, event)

	select {
	case <-emitter.done:
	case <-time.After(2 * time.Second):
		t.Fatal("emit did not complete")
	}

	emitter.mu.Lock()
	defer emitter.mu.Unlock()
	if len(emitter.events) != 1 || emitter.events[0].SubjectID != "user-1" {
		t.Errorf("events = %+v", emitter.events)
	}
}

func TestEmitAsync_NilSafe(t *testing.T) {
	// Must not panic or spawn goroutines.
	EmitAsync(nil, NewEvent(EventLogout))
	EmitAsync(&captureEmitter{}, nil)
}

func TestEmitAsync_ErrorDoesNotPropagate(t *testing.T) {
	emitter := &captureEmitter{err: errors.New("broker down"), done: make(chan struct{})}

	// Fire-and-forget: the caller has no error path at all.
	EmitAsync(emitter, NewEvent(EventAccessDenied))

	select {
	case <-emitter.done:
	case <-time.After(2 * time.Second):
		t.Fatal("emit did not complete")
	}
}

func TestNewEvent(t *testing.T) {
	before := time.Now().UTC()
	e := NewEvent(EventLogin)
	if e.Type != EventLogin {
		t.Errorf("Type = %q", e.Type)
	}
	if e.CreatedAt.Before(before) || e.CreatedAt.After(time.Now().UTC()) {
		t.Errorf("CreatedAt = %v", e.CreatedAt)
	}
}
