// Package service starts and stops the long-running collaborators around the engine.
package service

import (
	"context"
	"errors"
	"sync"

	"github.com/lixenwraith/luckydraw/core"
)

// Service is a background collaborator: scheduler loop, autosave, control server
//
// Lifecycle:
//  1. Construction
//  2. Start(ctx) - launch goroutines; must not block
//  3. [runtime operation]
//  4. Stop() - halt goroutines and wait for them; safe to call twice
type Service interface {
	// Name returns the unique identifier for this service
	Name() string

	// Dependencies returns names of services that must start before this one
	Dependencies() []string

	Start(ctx context.Context) error
	Stop() error
}

// Task runs a blocking function as a Service
type Task struct {
	name string
	deps []string
	run  func(ctx context.Context) error

	mu     sync.Mutex
	cancel context.CancelFunc
	done   chan struct{}
	err    error
}

// Background wraps run, which must return once its context is cancelled
func Background(name string, run func(ctx context.Context) error, deps ...string) *Task {
	return &Task{name: name, deps: deps, run: run}
}

func (t *Task) Name() string           { return t.name }
func (t *Task) Dependencies() []string { return t.deps }

// Start launches run on a crash-safe goroutine
func (t *Task) Start(ctx context.Context) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.done != nil {
		return errors.New("service " + t.name + " already started")
	}

	ctx, t.cancel = context.WithCancel(ctx)
	t.done = make(chan struct{})
	done := t.done
	core.Go(func() {
		defer close(done)
		err := t.run(ctx)
		t.mu.Lock()
		t.err = err
		t.mu.Unlock()
	})
	return nil
}

// Done is closed when run returns; nil before Start
func (t *Task) Done() <-chan struct{} {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.done
}

// Err is the error run returned, cancellation excluded
func (t *Task) Err() error {
	t.mu.Lock()
	defer t.mu.Unlock()
	if errors.Is(t.err, context.Canceled) {
		return nil
	}
	return t.err
}

// Stop cancels run and waits for it
func (t *Task) Stop() error {
	t.mu.Lock()
	cancel, done := t.cancel, t.done
	t.mu.Unlock()
	if done == nil {
		return nil
	}
	cancel()
	<-done
	return t.Err()
}
