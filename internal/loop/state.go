package loop

import (
	"sync"
	"time"
)

// Status is a snapshot of the unit's externally visible state.
type Status struct {
	// DistanceCM is the most recent sample, sentinel included.
	DistanceCM float64 `json:"distance_cm"`
	// Band is the classification of that sample.
	Band string `json:"band"`
	// Occupied is the latched occupancy value.
	Occupied bool `json:"occupied"`
	// Connected reports broker connectivity.
	Connected bool `json:"connected"`
	// SampledAt is the wall-clock time of the last sample, zero until the
	// first one lands.
	SampledAt time.Time `json:"sampled_at"`
}

// StateCell holds the latest Status for readers outside the control loop,
// the HTTP status endpoint mainly. The loop writes, everyone else reads.
type StateCell struct {
	mu sync.RWMutex
	s  Status
}

// NewStateCell creates an empty cell.
func NewStateCell() *StateCell {
	return &StateCell{}
}

// Snapshot returns a copy of the current status.
func (c *StateCell) Snapshot() Status {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.s
}

// SetSample records the latest distance sample and its classification.
func (c *StateCell) SetSample(distanceCM float64, band string, occupied bool, at time.Time) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.s.DistanceCM = distanceCM
	c.s.Band = band
	c.s.Occupied = occupied
	c.s.SampledAt = at
}

// SetConnected records broker connectivity.
func (c *StateCell) SetConnected(v bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.s.Connected = v
}

// Connected reads broker connectivity without copying the whole status.
func (c *StateCell) Connected() bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.s.Connected
}
