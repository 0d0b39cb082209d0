package timeutil

import "time"

// nanosPerSecond is the normalization bound for Timestamp.Nsec.
const nanosPerSecond = 1_000_000_000

// Timestamp is a monotonic clock reading split into whole seconds and
// nanoseconds. A normalized Timestamp always has Nsec in [0, 1e9).
//
// The split representation exists because echo-pulse timing and retry
// deadlines need exact borrow/carry arithmetic that is easy to get wrong
// when hidden inside an opaque type; Sub and Add keep the normalization
// invariant explicit and testable.
type Timestamp struct {
	Sec  int64
	Nsec int64
}

// FromDuration converts a duration into a normalized Timestamp delta.
// Negative durations are clamped to zero; the monotonic domain has no
// representation for "before the epoch".
func FromDuration(d time.Duration) Timestamp {
	if d < 0 {
		d = 0
	}
	ns := d.Nanoseconds()
	return Timestamp{Sec: ns / nanosPerSecond, Nsec: ns % nanosPerSecond}
}

// Sub returns t - u, normalized. When the raw nanosecond difference is
// negative it borrows one second, so the result's Nsec stays in [0, 1e9).
func (t Timestamp) Sub(u Timestamp) Timestamp {
	d := Timestamp{
		Sec:  t.Sec - u.Sec,
		Nsec: t.Nsec - u.Nsec,
	}
	if d.Nsec < 0 {
		d.Sec--
		d.Nsec += nanosPerSecond
	}
	return d
}

// Add returns t + u, normalized, carrying into seconds when the raw
// nanosecond sum reaches a full second.
func (t Timestamp) Add(u Timestamp) Timestamp {
	s := Timestamp{
		Sec:  t.Sec + u.Sec,
		Nsec: t.Nsec + u.Nsec,
	}
	if s.Nsec >= nanosPerSecond {
		s.Sec++
		s.Nsec -= nanosPerSecond
	}
	return s
}

// After reports whether t is strictly later than u.
func (t Timestamp) After(u Timestamp) bool {
	if t.Sec != u.Sec {
		return t.Sec > u.Sec
	}
	return t.Nsec > u.Nsec
}

// Before reports whether t is strictly earlier than u.
func (t Timestamp) Before(u Timestamp) bool {
	return u.After(t)
}

// IsZero reports whether t is the zero reading. The ultrasonic sampler
// uses the zero value as "edge never latched".
func (t Timestamp) IsZero() bool {
	return t.Sec == 0 && t.Nsec == 0
}

// Nanoseconds returns the reading as a single nanosecond count.
func (t Timestamp) Nanoseconds() int64 {
	return t.Sec*nanosPerSecond + t.Nsec
}

// Duration returns the reading as a time.Duration. Intended for deltas
// produced by Sub, not absolute readings.
func (t Timestamp) Duration() time.Duration {
	return time.Duration(t.Nanoseconds())
}
