// Package occupancy turns distance samples into a bay state: a three-band
// traffic color for the local LED and a two-state occupied flag for
// telemetry.
package occupancy

import (
	"fmt"

	"github.com/baysense/bayd/internal/leds"
	"github.com/baysense/bayd/internal/monitoring"
)

// Band is the distance classification of a sample.
type Band int

// Bands, nearest first.
const (
	// BandOccupied: at or inside the near threshold.
	BandOccupied Band = iota
	// BandApproaching: between the near and far thresholds.
	BandApproaching
	// BandVacant: beyond the far threshold. The no-echo sentinel lands
	// here because it exceeds every threshold.
	BandVacant
)

// String returns the band name.
func (b Band) String() string {
	switch b {
	case BandOccupied:
		return "occupied"
	case BandApproaching:
		return "approaching"
	case BandVacant:
		return "vacant"
	default:
		return fmt.Sprintf("band(%d)", int(b))
	}
}

// Occupied reports the telemetry state for the band. Approaching already
// counts as occupied: a vehicle nosing into the bay should read as taken
// before it settles. Three visual bands collapse into two reported states
// on purpose.
func (b Band) Occupied() bool {
	return b != BandVacant
}

// Color returns the traffic LED color for the band.
func (b Band) Color() leds.Color {
	switch b {
	case BandOccupied:
		return leds.Red
	case BandApproaching:
		return leds.Yellow
	default:
		return leds.Green
	}
}

// Thresholds are the band boundaries in centimeters. NearCM must be below
// FarCM; config.TuningConfig validates this.
type Thresholds struct {
	NearCM float64
	FarCM  float64
}

// Classify maps a distance sample onto exactly one band.
func Classify(distanceCM float64, t Thresholds) Band {
	switch {
	case distanceCM > t.FarCM:
		return BandVacant
	case distanceCM > t.NearCM:
		return BandApproaching
	default:
		return BandOccupied
	}
}

// Outcome describes what a Report call did.
type Outcome int

const (
	// OutcomeUnchanged: occupancy did not transition, nothing was sent.
	OutcomeUnchanged Outcome = iota
	// OutcomeReported: a transition was sent to the broker.
	OutcomeReported
	// OutcomeDropped: a transition was latched locally but not delivered.
	// Dropped transitions are not queued; delivery is at-most-once.
	OutcomeDropped
)

// Reporter latches the process-wide occupancy state and forwards
// transitions to the telemetry publisher, gated on connectivity.
type Reporter struct {
	publish   func(occupied bool) error
	connected func() bool

	latched    bool
	hasLatched bool
}

// NewReporter creates a Reporter. publish sends one occupancy value to the
// broker; connected reports current broker connectivity.
func NewReporter(publish func(occupied bool) error, connected func() bool) *Reporter {
	return &Reporter{publish: publish, connected: connected}
}

// Occupied returns the latched occupancy state.
func (r *Reporter) Occupied() bool {
	return r.latched
}

// Report latches the occupancy value and, if it transitioned, forwards it.
// The very first value always counts as a transition since the broker has
// no prior state for the bay. When disconnected or the publish fails, the
// transition stays latched locally and is dropped with a warning.
func (r *Reporter) Report(occupied bool) Outcome {
	if r.hasLatched && r.latched == occupied {
		return OutcomeUnchanged
	}
	r.latched = occupied
	r.hasLatched = true

	if !r.connected() {
		monitoring.Logf("WARNING: cannot report occupancy=%t: not connected to broker", occupied)
		return OutcomeDropped
	}
	if err := r.publish(occupied); err != nil {
		monitoring.Logf("WARNING: failed to report occupancy=%t: %v", occupied, err)
		return OutcomeDropped
	}
	return OutcomeReported
}

// Mapper applies a distance sample: traffic LED first, then the report
// path.
type Mapper struct {
	thresholds Thresholds
	panel      TrafficPanel
	reporter   *Reporter
}

// TrafficPanel is the slice of the LED panel the mapper owns.
type TrafficPanel interface {
	Set(id leds.ID, c leds.Color) error
}

// NewMapper creates a Mapper.
func NewMapper(t Thresholds, panel TrafficPanel, reporter *Reporter) *Mapper {
	return &Mapper{thresholds: t, panel: panel, reporter: reporter}
}

// Apply classifies the sample, drives the traffic LED, and reports the
// derived occupancy. The returned error is an LED failure; report
// outcomes never error, they are reflected in the Outcome.
func (m *Mapper) Apply(distanceCM float64) (Band, Outcome, error) {
	band := Classify(distanceCM, m.thresholds)
	if err := m.panel.Set(leds.Traffic, band.Color()); err != nil {
		return band, OutcomeUnchanged, fmt.Errorf("failed to set traffic LED: %w", err)
	}
	outcome := m.reporter.Report(band.Occupied())
	return band, outcome, nil
}
