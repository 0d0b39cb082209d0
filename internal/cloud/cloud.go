// Package cloud is the telemetry leg of the bay sensor: a narrow client
// surface the control loop pumps once per iteration, implemented over
// MQTT. The loop never blocks on the broker; connection status arrives
// asynchronously through a last-write-wins mailbox.
package cloud

import "errors"

// ErrOutboxFull is returned when a report cannot be queued for the next
// pump. Reports are not retried; the transition is dropped.
var ErrOutboxFull = errors.New("cloud: report outbox full")

// Client is the surface the control loop consumes.
type Client interface {
	// SetConnectionStatusCallback registers the connectivity callback.
	// The callback may fire from the client's own goroutines; it must
	// only post to a mailbox.
	SetConnectionStatusCallback(fn func(connected bool))

	// SetupClient opportunistically (re)establishes the broker session.
	// Safe to call while already connected (no-op success). It never
	// blocks; a fresh attempt reports false until the status callback
	// confirms the session.
	SetupClient() bool

	// DoPeriodicTasks runs the client's session upkeep: flushing queued
	// reports and reaping completed publishes. Call it every loop
	// iteration while connected; starving it risks session timeout.
	DoPeriodicTasks()

	// ReportState queues one property value for publication on the next
	// pump.
	ReportState(property string, value any) error

	// Close tears the session down.
	Close()
}

// StatusMailbox carries connectivity notifications from the client's
// goroutines to the control loop. Capacity one, last write wins: only the
// newest state matters.
type StatusMailbox struct {
	ch chan bool
}

// NewStatusMailbox creates an empty mailbox.
func NewStatusMailbox() *StatusMailbox {
	return &StatusMailbox{ch: make(chan bool, 1)}
}

// Post replaces the pending notification, if any, with v.
func (m *StatusMailbox) Post(v bool) {
	for {
		select {
		case m.ch <- v:
			return
		default:
			select {
			case <-m.ch:
			default:
			}
		}
	}
}

// Poll returns the pending notification, if any.
func (m *StatusMailbox) Poll() (v bool, ok bool) {
	select {
	case v = <-m.ch:
		return v, true
	default:
		return false, false
	}
}
