// Package ultrasonic measures distance with a single-pin HC-SR04 class
// ranger: drive the pin high briefly to trigger a burst, then re-open it
// as an input and time the echo pulse.
package ultrasonic

import (
	"fmt"
	"time"

	"github.com/baysense/bayd/internal/gpiohal"
	"github.com/baysense/bayd/internal/monitoring"
	"github.com/baysense/bayd/internal/timeutil"
	"github.com/baysense/bayd/internal/units"
)

// Config holds the sampler parameters. Zero values fall back to the
// defaults below.
type Config struct {
	// Pin is the GPIO number wired to the ranger's combined trig/echo line.
	Pin int

	// TriggerHold is how long the trigger pulse is held high.
	TriggerHold time.Duration

	// MaxPollIterations bounds the busy-poll for the echo edges. It exists
	// to cap worst-case blocking of the control loop, not as a timing
	// reference.
	MaxPollIterations int

	// SentinelCM is reported when no echo is observed within the bound.
	// Must exceed any occupancy threshold.
	SentinelCM float64
}

const (
	defaultTriggerHold       = 10 * time.Microsecond
	defaultMaxPollIterations = 10_000
	defaultSentinelCM        = 400.0
)

// Ranger samples distance through a gpiohal.Opener.
type Ranger struct {
	opener gpiohal.Opener
	clock  timeutil.Clock
	cfg    Config
}

// New creates a Ranger, filling zero config fields with defaults.
func New(opener gpiohal.Opener, clock timeutil.Clock, cfg Config) *Ranger {
	if cfg.TriggerHold <= 0 {
		cfg.TriggerHold = defaultTriggerHold
	}
	if cfg.MaxPollIterations <= 0 {
		cfg.MaxPollIterations = defaultMaxPollIterations
	}
	if cfg.SentinelCM <= 0 {
		cfg.SentinelCM = defaultSentinelCM
	}
	return &Ranger{opener: opener, clock: clock, cfg: cfg}
}

// SentinelCM returns the configured no-echo sentinel distance.
func (r *Ranger) SentinelCM() float64 {
	return r.cfg.SentinelCM
}

// Sample takes one distance measurement in centimeters. A missing echo is
// a valid reading and returns the sentinel with a nil error; pin failures
// return the sentinel with the error so the caller can count the discard.
// Every acquired handle is released before returning, on all paths.
func (r *Ranger) Sample() (float64, error) {
	if err := r.trigger(); err != nil {
		return r.cfg.SentinelCM, err
	}

	in, err := r.opener.OpenAsInput(r.cfg.Pin)
	if err != nil {
		return r.cfg.SentinelCM, fmt.Errorf("failed to open echo input on pin %d: %w", r.cfg.Pin, err)
	}
	defer closeQuietly(in, "echo input")

	// Busy-poll for the echo edges. The pulse is tens of microseconds to
	// a few milliseconds wide, finer than any scheduler granularity, so
	// the loop must stay tight: no sleeping, no yielding.
	var start, end timeutil.Timestamp
	latched := false
	for i := 0; i < r.cfg.MaxPollIterations; i++ {
		level, err := in.Read()
		if err != nil {
			return r.cfg.SentinelCM, fmt.Errorf("failed to read echo pin %d: %w", r.cfg.Pin, err)
		}
		if level == gpiohal.High {
			if !latched {
				start = r.clock.NowMonotonic()
				latched = true
			}
			continue
		}
		if latched {
			end = r.clock.NowMonotonic()
			break
		}
	}

	if end.IsZero() {
		// Never saw the pulse complete within the bound.
		return r.cfg.SentinelCM, nil
	}

	elapsed := end.Sub(start)
	return units.EchoToCentimeters(elapsed.Nanoseconds()), nil
}

// trigger drives the pin high for the configured hold, then low, and
// releases it so it can be re-acquired as an input.
func (r *Ranger) trigger() error {
	out, err := r.opener.OpenAsOutput(r.cfg.Pin, gpiohal.High)
	if err != nil {
		return fmt.Errorf("failed to open trigger output on pin %d: %w", r.cfg.Pin, err)
	}
	defer closeQuietly(out, "trigger output")

	r.clock.Sleep(r.cfg.TriggerHold)
	if err := out.Set(gpiohal.Low); err != nil {
		return fmt.Errorf("failed to drop trigger on pin %d: %w", r.cfg.Pin, err)
	}
	return nil
}

func closeQuietly(h gpiohal.Handle, what string) {
	if err := h.Close(); err != nil {
		monitoring.Logf("failed to release %s handle: %v", what, err)
	}
}
