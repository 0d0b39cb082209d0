// Package loop runs the bay sensor's single-threaded control loop: sample
// the ranger on a fixed cadence, map distances onto LED and telemetry
// state, and keep the broker session alive on a retry schedule. All
// peripheral access happens on the loop goroutine; other goroutines only
// touch the mailbox and the state cell.
package loop

import (
	"context"
	"sync/atomic"
	"time"

	"github.com/baysense/bayd/internal/cloud"
	"github.com/baysense/bayd/internal/leds"
	"github.com/baysense/bayd/internal/monitoring"
	"github.com/baysense/bayd/internal/occupancy"
	"github.com/baysense/bayd/internal/timeutil"
)

// Sampler measures the distance to whatever is in the bay.
type Sampler interface {
	// Sample returns the distance in centimeters. A timed-out echo is not
	// an error; it returns the sentinel distance.
	Sample() (float64, error)

	// SentinelCM is the distance reported when no echo returns.
	SentinelCM() float64
}

// Panel is the slice of the LED panel the loop drives.
type Panel interface {
	Set(id leds.ID, c leds.Color) error
}

// Options configures a Loop. Clock, Sampler, Panel, Mapper, Client,
// Mailbox, Metrics and State are required; zero durations fall back to
// defaults.
type Options struct {
	Clock   timeutil.Clock
	Sampler Sampler
	Panel   Panel
	Mapper  *occupancy.Mapper
	Client  cloud.Client
	Mailbox *cloud.StatusMailbox
	Metrics *monitoring.Metrics
	State   *StateCell

	// SamplePeriod is the ranger cadence.
	SamplePeriod time.Duration
	// RetryInterval is the minimum spacing between broker connect
	// attempts while disconnected.
	RetryInterval time.Duration
	// LoopSleep bounds how hot the loop spins between ticks.
	LoopSleep time.Duration
}

// Loop is the control loop. Run drives it; everything else is loop-local.
type Loop struct {
	clock   timeutil.Clock
	sampler Sampler
	panel   Panel
	mapper  *occupancy.Mapper
	client  cloud.Client
	mailbox *cloud.StatusMailbox
	metrics *monitoring.Metrics
	state   *StateCell

	samplePeriod  time.Duration
	retryInterval time.Duration
	loopSleep     time.Duration

	connected   bool
	nextAttempt timeutil.Timestamp
	hasAttempt  bool

	term   atomic.Bool
	runErr error
}

// New creates a Loop from Options.
func New(o Options) *Loop {
	if o.SamplePeriod <= 0 {
		o.SamplePeriod = 500 * time.Millisecond
	}
	if o.RetryInterval <= 0 {
		o.RetryInterval = time.Second
	}
	if o.LoopSleep <= 0 {
		o.LoopSleep = time.Millisecond
	}
	return &Loop{
		clock:         o.Clock,
		sampler:       o.Sampler,
		panel:         o.Panel,
		mapper:        o.Mapper,
		client:        o.Client,
		mailbox:       o.Mailbox,
		metrics:       o.Metrics,
		state:         o.State,
		samplePeriod:  o.SamplePeriod,
		retryInterval: o.RetryInterval,
		loopSleep:     o.LoopSleep,
	}
}

// Stop requests termination. Safe from any goroutine.
func (l *Loop) Stop() {
	l.term.Store(true)
}

// Run executes the control loop until the context is canceled or a fatal
// peripheral error occurs, then tears down exactly once. The returned
// error is the fatal error, or nil on a clean shutdown.
func (l *Loop) Run(ctx context.Context) error {
	l.client.SetConnectionStatusCallback(l.mailbox.Post)

	ticker := l.clock.NewTicker(l.samplePeriod)
	defer ticker.Stop()

	monitoring.Logf("control loop started: sample period %v, retry interval %v",
		l.samplePeriod, l.retryInterval)

	for !l.term.Load() {
		select {
		case <-ctx.Done():
			l.term.Store(true)
			continue
		case <-ticker.C():
			l.sampleTick()
		default:
		}
		if l.term.Load() {
			continue
		}
		l.connectivityTick()
		l.clock.Sleep(l.loopSleep)
	}

	l.teardown()
	return l.runErr
}

// fail records the first fatal error and requests termination.
func (l *Loop) fail(err error) {
	monitoring.Logf("ERROR: %v", err)
	if l.runErr == nil {
		l.runErr = err
	}
	l.term.Store(true)
}

// sampleTick runs one measure-classify-apply pass.
func (l *Loop) sampleTick() {
	l.metrics.SamplesTotal.Inc()

	distanceCM, err := l.sampler.Sample()
	if err != nil {
		// A failed sample is a skipped sample, not a dead unit. The pins
		// are reopened on the next tick.
		l.metrics.SampleErrorsTotal.Inc()
		monitoring.Logf("WARNING: sample failed: %v", err)
		return
	}
	if distanceCM == l.sampler.SentinelCM() {
		l.metrics.EchoTimeoutsTotal.Inc()
	}
	l.metrics.LastDistanceCM.Set(distanceCM)

	band, outcome, err := l.mapper.Apply(distanceCM)
	if err != nil {
		l.fail(err)
		return
	}

	switch outcome {
	case occupancy.OutcomeReported:
		l.metrics.ReportsTotal.Inc()
		if err := l.panel.Set(leds.Activity, leds.Blue); err != nil {
			l.fail(err)
			return
		}
	case occupancy.OutcomeDropped:
		l.metrics.ReportDropsTotal.Inc()
	default:
		if err := l.panel.Set(leds.Activity, leds.Off); err != nil {
			l.fail(err)
			return
		}
	}

	l.state.SetSample(distanceCM, band.String(), band.Occupied(), l.clock.Now())
}

// connectivityTick drains the status mailbox, runs the time-gated setup
// attempt, refreshes the network LED, and pumps the session while
// connected.
func (l *Loop) connectivityTick() {
	if v, ok := l.mailbox.Poll(); ok && v != l.connected {
		l.setConnected(v)
	}

	// The setup call runs whenever it is due, connected or not: it is an
	// idempotent no-op success on a live session and a real dial
	// otherwise. Its result is the connectivity truth for this tick.
	now := l.clock.NowMonotonic()
	if !l.hasAttempt || !now.Before(l.nextAttempt) {
		if !l.connected {
			l.metrics.ConnectAttemptsTotal.Inc()
		}
		if ok := l.client.SetupClient(); ok != l.connected {
			l.setConnected(ok)
		}
		// Spaced from now, not from the missed deadline, so a stalled
		// loop does not burst-retry on catch-up.
		l.nextAttempt = now.Add(timeutil.FromDuration(l.retryInterval))
		l.hasAttempt = true
	}

	color := leds.Off
	if l.connected {
		color = leds.Green
	}
	if err := l.panel.Set(leds.Network, color); err != nil {
		l.fail(err)
		return
	}

	if l.connected {
		l.client.DoPeriodicTasks()
	}
}

func (l *Loop) setConnected(v bool) {
	l.connected = v
	l.state.SetConnected(v)
	if v {
		l.metrics.Connected.Set(1)
		monitoring.Logf("broker session established")
	} else {
		l.metrics.Connected.Set(0)
		monitoring.Logf("WARNING: broker session lost")
	}
}

// teardown quiets the panel and closes the broker session. Best effort;
// failures are logged, never propagated.
func (l *Loop) teardown() {
	for _, id := range []leds.ID{leds.Traffic, leds.Activity, leds.Network} {
		if err := l.panel.Set(id, leds.Off); err != nil {
			monitoring.Logf("WARNING: failed to quiet %v LED during shutdown: %v", id, err)
		}
	}
	l.client.Close()
	monitoring.Logf("control loop stopped")
}
