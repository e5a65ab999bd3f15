package scheduler

import (
	"math"
	"math/rand"
	"time"
)

// NextWait returns the wait until the next event of a recurring type, given
// how long it has been since that type last fired. Waits are exponential
// inter-arrivals (mean 1/rate); past AccelThreshold the rate doubles so the
// system catches up after a quiet period; at HardCap the wait collapses to
// zero as a safety net. Pure computation over its inputs; every caller
// owns its own timer and re-invokes this with freshly measured elapsed time
// after each fire.
//
// A nonpositive Rate has no finite mean to sample, so it degrades to the
// hard-cap behavior (fire immediately) instead of dividing by zero.
// NewConfigFromEnv refuses nonpositive rates, so this only triggers on a
// hand-built config.
func NextWait(cfg IntervalConfig, elapsed time.Duration, rng *rand.Rand) time.Duration {
	if cfg.HardCap > 0 && elapsed >= cfg.HardCap {
		return 0
	}

	rate := cfg.Rate
	if rate <= 0 {
		return 0
	}
	if elapsed >= cfg.AccelThreshold {
		rate *= 2
	}

	// Inverse-CDF sample of Exp(rate). Float64 is in [0, 1), so 1-u never
	// hits zero.
	u := rng.Float64()
	return time.Duration(-math.Log(1-u) / rate * float64(time.Second))
}
