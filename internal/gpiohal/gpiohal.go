// Package gpiohal provides a minimal abstraction over digital GPIO pins.
// The narrow Opener/Handle pair enables unit testing sensor and LED code
// without real hardware, and isolates the one periph.io touchpoint.
package gpiohal

import "errors"

// Level is a digital pin level.
type Level bool

// Pin levels.
const (
	Low  Level = false
	High Level = true
)

// ErrWrongDirection is returned when a handle is used against the
// direction it was acquired in.
var ErrWrongDirection = errors.New("gpiohal: handle acquired in other direction")

// Handle is an acquired pin in a single direction. A handle is valid until
// Close; acquiring the same pin again in either direction requires a fresh
// handle. Acquire and release are always paired, including on error paths.
type Handle interface {
	// Set drives an output handle to the given level.
	Set(Level) error
	// Read returns the current level of an input handle.
	Read() (Level, error)
	// Close releases the pin so it can be re-acquired, possibly in the
	// other direction.
	Close() error
}

// Opener acquires pins by number. Implementations must support rapid
// direction switching on the same physical pin across consecutive
// acquisitions; the ultrasonic trigger/listen protocol depends on it.
type Opener interface {
	// OpenAsOutput acquires a pin as a push-pull output driven to the
	// initial level.
	OpenAsOutput(pin int, initial Level) (Handle, error)
	// OpenAsInput acquires a pin as an input.
	OpenAsInput(pin int) (Handle, error)
}
