// Package uartrange samples distance from a free-running serial
// rangefinder. The sensor streams frames of the form "R####\r" where the
// digits are the range in millimeters; there is no trigger cycle, the
// sampler just consumes the next valid frame.
package uartrange

import (
	"bufio"
	"fmt"
	"io"
	"strconv"
	"strings"

	"go.bug.st/serial"

	"github.com/baysense/bayd/internal/monitoring"
)

// Porter defines the minimal interface needed for the sensor port.
// This abstraction enables unit testing without real serial hardware.
type Porter interface {
	io.Reader
	io.Closer
}

// maxFrameAttempts bounds how many frames a single Sample call may
// discard while resynchronizing on a noisy line.
const maxFrameAttempts = 4

// Ranger reads distance frames from a serial rangefinder.
type Ranger struct {
	port       Porter
	br         *bufio.Reader
	sentinelCM float64
}

// New wraps an already-open port. sentinelCM is returned for out-of-range
// readings and on read failures, matching the GPIO sampler's contract.
func New(port Porter, sentinelCM float64) *Ranger {
	return &Ranger{
		port:       port,
		br:         bufio.NewReader(port),
		sentinelCM: sentinelCM,
	}
}

// Open opens the sensor at the given device path.
func Open(path string, opts PortOptions, sentinelCM float64) (*Ranger, error) {
	mode, err := opts.SerialMode()
	if err != nil {
		return nil, err
	}
	port, err := serial.Open(path, mode)
	if err != nil {
		return nil, fmt.Errorf("uartrange: failed to open %s: %w", path, err)
	}
	return New(port, sentinelCM), nil
}

// SentinelCM is the distance reported for out-of-range readings.
func (r *Ranger) SentinelCM() float64 {
	return r.sentinelCM
}

// Sample returns the next distance reading in centimeters. Malformed
// frames are discarded up to a small bound; a reading at or beyond the
// sentinel clamps to it.
func (r *Ranger) Sample() (float64, error) {
	for attempt := 0; attempt < maxFrameAttempts; attempt++ {
		frame, err := r.readFrame()
		if err != nil {
			return r.sentinelCM, fmt.Errorf("uartrange: failed to read frame: %w", err)
		}
		cm, err := ParseFrame(frame)
		if err != nil {
			monitoring.Logf("WARNING: discarding frame %q: %v", frame, err)
			continue
		}
		if cm > r.sentinelCM {
			cm = r.sentinelCM
		}
		return cm, nil
	}
	return r.sentinelCM, fmt.Errorf("uartrange: no valid frame in %d reads", maxFrameAttempts)
}

// Close closes the underlying port.
func (r *Ranger) Close() error {
	return r.port.Close()
}

// readFrame returns the bytes up to the next carriage return, trimmed to
// start at the last 'R'. Starting mid-frame is normal right after open;
// the trim resynchronizes.
func (r *Ranger) readFrame() (string, error) {
	line, err := r.br.ReadString('\r')
	if err != nil {
		return "", err
	}
	line = strings.TrimSuffix(line, "\r")
	if idx := strings.LastIndexByte(line, 'R'); idx > 0 {
		line = line[idx:]
	}
	return line, nil
}

// ParseFrame converts one "R####" frame into centimeters.
func ParseFrame(frame string) (float64, error) {
	if len(frame) < 2 || frame[0] != 'R' {
		return 0, fmt.Errorf("frame missing R prefix")
	}
	mm, err := strconv.Atoi(frame[1:])
	if err != nil {
		return 0, fmt.Errorf("non-numeric range: %w", err)
	}
	if mm < 0 {
		return 0, fmt.Errorf("negative range %d", mm)
	}
	return float64(mm) / 10, nil
}
