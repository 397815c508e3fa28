package constants

import "time"

// Reveal Rolling Phase
const (
	// RevealStepInterval is the cadence of rolling-phase steps
	RevealStepInterval = 75 * time.Millisecond

	// RevealLockBase is when the first digit locks to its winning value
	RevealLockBase = 800 * time.Millisecond

	// RevealLockStagger separates consecutive digit locks
	RevealLockStagger = 400 * time.Millisecond
)

// Reveal Slow-Motion Phase
const (
	// SlowMoDuration is the deceleration length for regular prizes
	SlowMoDuration = 4000 * time.Millisecond

	// FinalSlowMoDuration is the deceleration length for the last prize
	FinalSlowMoDuration = 14000 * time.Millisecond

	// SlowMoFloor is the minimum delay between slow-motion steps
	SlowMoFloor = 50 * time.Millisecond

	// SlowMoSpan is the delay added at full easing progress
	SlowMoSpan = 800 * time.Millisecond
)

// Near-Miss Beat (final prize only)
const (
	// NearMissLead is how long before settle the fake digit appears
	NearMissLead = 2000 * time.Millisecond

	// NearMissHold is how long the fake digit stays frozen
	NearMissHold = 800 * time.Millisecond
)

// CelebrationWindow is advertised with each settled result
const CelebrationWindow = 8000 * time.Millisecond
