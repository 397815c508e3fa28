package sched

import (
	"time"

	"github.com/lixenwraith/luckydraw/clock"
)

// Advance moves a mock clock forward by d, stopping at every pending deadline
// so each callback observes the exact time it was scheduled for
// Callbacks scheduled during the walk are honoured if they fall inside the window
func Advance(s *Scheduler, m *clock.Mock, d time.Duration) int {
	target := m.Now().Add(d)
	fired := s.Drain()
	for {
		next, ok := s.NextDeadline()
		if !ok || next.After(target) {
			break
		}
		m.Set(next)
		fired += s.RunDue()
		fired += s.Drain()
	}
	m.Set(target)
	fired += s.RunDue()
	return fired
}

// RunUntilIdle advances the mock clock until no callbacks remain or limit elapses
// Returns the simulated time consumed
func RunUntilIdle(s *Scheduler, m *clock.Mock, limit time.Duration) time.Duration {
	start := m.Now()
	deadline := start.Add(limit)
	for {
		s.Drain()
		next, ok := s.NextDeadline()
		if !ok || next.After(deadline) {
			break
		}
		m.Set(next)
		s.RunDue()
	}
	return m.Now().Sub(start)
}
