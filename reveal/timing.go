package reveal

import (
	"fmt"
	"math"
	"time"

	"github.com/lixenwraith/luckydraw/constants"
)

// Timing holds every duration the animator uses
type Timing struct {
	Step         time.Duration // Rolling-phase cadence
	LockBase     time.Duration // First digit lock
	LockStagger  time.Duration // Gap between digit locks
	SlowMo       time.Duration // Deceleration for regular prizes
	FinalSlowMo  time.Duration // Deceleration for the final prize
	SlowMoFloor  time.Duration // Minimum slow-motion step delay
	SlowMoSpan   time.Duration // Delay added at full easing
	NearMissLead time.Duration // Near-miss fires this long before settle
	NearMissHold time.Duration // Fake digit stays frozen this long
	Celebration  time.Duration // Quiescent window advertised on settle
}

// DefaultTiming returns the stock reveal pacing
func DefaultTiming() Timing {
	return Timing{
		Step:         constants.RevealStepInterval,
		LockBase:     constants.RevealLockBase,
		LockStagger:  constants.RevealLockStagger,
		SlowMo:       constants.SlowMoDuration,
		FinalSlowMo:  constants.FinalSlowMoDuration,
		SlowMoFloor:  constants.SlowMoFloor,
		SlowMoSpan:   constants.SlowMoSpan,
		NearMissLead: constants.NearMissLead,
		NearMissHold: constants.NearMissHold,
		Celebration:  constants.CelebrationWindow,
	}
}

// Validate rejects non-positive step and phase durations
// Lead and celebration may be zero
func (t Timing) Validate() error {
	named := []struct {
		name string
		d    time.Duration
	}{
		{"step", t.Step},
		{"lock_base", t.LockBase},
		{"slow_mo", t.SlowMo},
		{"final_slow_mo", t.FinalSlowMo},
		{"slow_mo_floor", t.SlowMoFloor},
	}
	for _, n := range named {
		if n.d <= 0 {
			return fmt.Errorf("reveal timing %s must be positive, got %s", n.name, n.d)
		}
	}
	if t.LockStagger < 0 || t.SlowMoSpan < 0 || t.NearMissLead < 0 || t.NearMissHold < 0 || t.Celebration < 0 {
		return fmt.Errorf("reveal timing durations cannot be negative")
	}
	return nil
}

// lockTimings returns when each leading digit locks, one entry per digit but the last
func (t Timing) lockTimings(maxDigits int) []time.Duration {
	locks := make([]time.Duration, max(0, maxDigits-1))
	for i := range locks {
		locks[i] = t.LockBase + time.Duration(i)*t.LockStagger
	}
	return locks
}

// slowMoStart is the last lock time, or the lock base for single-digit tickets
func (t Timing) slowMoStart(locks []time.Duration) time.Duration {
	if len(locks) == 0 {
		return t.LockBase
	}
	return locks[len(locks)-1]
}

func (t Timing) slowMoDuration(final bool) time.Duration {
	if final {
		return t.FinalSlowMo
	}
	return t.SlowMo
}

// nearMissAt clamps the near-miss threshold into the slow-motion window
func (t Timing) nearMissAt(dur time.Duration) time.Duration {
	return max(0, dur-t.NearMissLead)
}

// slowMoDelay eases the step delay from floor toward floor+span as sme approaches dur
func (t Timing) slowMoDelay(sme, dur time.Duration) time.Duration {
	p := min(max(float64(sme)/float64(dur), 0), 1)
	eased := 1 - math.Pow(1-p, 4)
	return t.SlowMoFloor + time.Duration(eased*float64(t.SlowMoSpan))
}
