package scheduler

import (
	"os"
	"strconv"
	"strings"
	"time"
)

// IntervalConfig parameterizes the probabilistic interval generator for one
// recurring event type.
type IntervalConfig struct {
	// Rate is the base event rate in events per second (lambda). Must be
	// positive.
	Rate float64
	// AccelThreshold is the quiet-period length after which the rate
	// doubles so the event type can catch up.
	AccelThreshold time.Duration
	// HardCap is the quiet-period length at which the generator stops
	// waiting entirely and fires immediately. A nonpositive HardCap
	// disables the cap.
	HardCap time.Duration
}

// Config holds every scheduler knob. Nothing that matters to correctness is
// hard-coded in a code path; production overrides come from SCHED_*
// environment variables.
type Config struct {
	// Room formation.
	FormationEnabled  bool
	FormationInterval IntervalConfig
	AllowedCapacities []int
	// StartOffset is how far in the future a formed room's draft is
	// scheduled; StartDeferral is how far a short autonomous room's start
	// is pushed on each supervisor pass.
	StartOffset   time.Duration
	StartDeferral time.Duration

	// Enrollment.
	EnrollmentInterval IntervalConfig
	EnrollmentSweep    time.Duration

	// Draft start supervision.
	SupervisorSweep time.Duration

	// Draft engine pacing. Bot picks land after a uniform integer delay in
	// [PickDelayMinSec, PickDelayMaxSec] so rooms look human-paced and
	// stay desynchronized; human turns are rechecked every HumanRecheck.
	PickDelayMinSec int
	PickDelayMaxSec int
	HumanRecheck    time.Duration
}

// DefaultConfig returns the stock scheduler configuration.
func DefaultConfig() Config {
	return Config{
		FormationEnabled: true,
		FormationInterval: IntervalConfig{
			Rate:           1.0 / 600, // one room every ten minutes on average
			AccelThreshold: 15 * time.Minute,
			HardCap:        time.Hour,
		},
		AllowedCapacities: []int{8, 10, 12},
		StartOffset:       30 * time.Minute,
		StartDeferral:     10 * time.Minute,

		EnrollmentInterval: IntervalConfig{
			Rate:           1.0 / 90, // one join every ninety seconds on average
			AccelThreshold: 5 * time.Minute,
			HardCap:        30 * time.Minute,
		},
		EnrollmentSweep: 15 * time.Second,

		SupervisorSweep: 10 * time.Second,

		PickDelayMinSec: 3,
		PickDelayMaxSec: 12,
		HumanRecheck:    5 * time.Second,
	}
}

// NewConfigFromEnv layers SCHED_* environment variables over the defaults.
func NewConfigFromEnv() Config {
	cfg := DefaultConfig()

	cfg.FormationEnabled = getEnvAsBool("SCHED_FORMATION_ENABLED", cfg.FormationEnabled)
	cfg.FormationInterval.Rate = getEnvAsRate("SCHED_FORMATION_RATE", cfg.FormationInterval.Rate)
	cfg.FormationInterval.AccelThreshold = getEnvAsDuration("SCHED_FORMATION_ACCEL_THRESHOLD", cfg.FormationInterval.AccelThreshold)
	cfg.FormationInterval.HardCap = getEnvAsDuration("SCHED_FORMATION_HARD_CAP", cfg.FormationInterval.HardCap)
	cfg.AllowedCapacities = getEnvAsInts("SCHED_ALLOWED_CAPACITIES", cfg.AllowedCapacities)
	cfg.StartOffset = getEnvAsDuration("SCHED_START_OFFSET", cfg.StartOffset)
	cfg.StartDeferral = getEnvAsDuration("SCHED_START_DEFERRAL", cfg.StartDeferral)

	cfg.EnrollmentInterval.Rate = getEnvAsRate("SCHED_ENROLLMENT_RATE", cfg.EnrollmentInterval.Rate)
	cfg.EnrollmentInterval.AccelThreshold = getEnvAsDuration("SCHED_ENROLLMENT_ACCEL_THRESHOLD", cfg.EnrollmentInterval.AccelThreshold)
	cfg.EnrollmentInterval.HardCap = getEnvAsDuration("SCHED_ENROLLMENT_HARD_CAP", cfg.EnrollmentInterval.HardCap)
	cfg.EnrollmentSweep = getEnvAsDuration("SCHED_ENROLLMENT_SWEEP", cfg.EnrollmentSweep)

	cfg.SupervisorSweep = getEnvAsDuration("SCHED_SUPERVISOR_SWEEP", cfg.SupervisorSweep)

	cfg.PickDelayMinSec = getEnvAsInt("SCHED_PICK_DELAY_MIN_SEC", cfg.PickDelayMinSec)
	cfg.PickDelayMaxSec = getEnvAsInt("SCHED_PICK_DELAY_MAX_SEC", cfg.PickDelayMaxSec)
	cfg.HumanRecheck = getEnvAsDuration("SCHED_HUMAN_RECHECK", cfg.HumanRecheck)

	return cfg
}

func getEnvAsBool(key string, fallback bool) bool {
	if v := os.Getenv(key); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			return b
		}
	}
	return fallback
}

func getEnvAsInt(key string, fallback int) int {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return fallback
}

// getEnvAsRate keeps the fallback for malformed or nonpositive values;
// a zero rate would make NextWait degenerate.
func getEnvAsRate(key string, fallback float64) float64 {
	if v := os.Getenv(key); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil && f > 0 {
			return f
		}
	}
	return fallback
}

func getEnvAsDuration(key string, fallback time.Duration) time.Duration {
	if v := os.Getenv(key); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			return d
		}
	}
	return fallback
}

func getEnvAsInts(key string, fallback []int) []int {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	var out []int
	for _, part := range strings.Split(v, ",") {
		n, err := strconv.Atoi(strings.TrimSpace(part))
		if err != nil {
			return fallback
		}
		out = append(out, n)
	}
	if len(out) == 0 {
		return fallback
	}
	return out
}
