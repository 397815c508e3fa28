// Package clock abstracts time so draw timing can be driven by a mock in tests
package clock

import (
	"sync"
	"time"
)

// Provider supplies the current time
type Provider interface {
	Now() time.Time
}

// Real reads the system clock with monotonic readings
type Real struct{}

// NewReal creates a wall clock provider
func NewReal() Real {
	return Real{}
}

// Now returns the current time with monotonic clock reading
func (Real) Now() time.Time {
	return time.Now()
}

// Mock is a manually advanced clock for deterministic tests
type Mock struct {
	mu  sync.RWMutex
	now time.Time
}

// NewMock creates a mock clock frozen at start
func NewMock(start time.Time) *Mock {
	return &Mock{now: start}
}

// Now returns the current mocked time
func (m *Mock) Now() time.Time {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.now
}

// Set jumps the mock to t; moving backwards is ignored to keep time monotonic
func (m *Mock) Set(t time.Time) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if t.After(m.now) {
		m.now = t
	}
}

// Advance moves the mock forward by d
func (m *Mock) Advance(d time.Duration) {
	if d <= 0 {
		return
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.now = m.now.Add(d)
}
