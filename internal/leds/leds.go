// Package leds drives the unit's three status RGB LEDs through GPIO pin
// triples: traffic (bay state), activity (telemetry send), and network
// (broker connectivity).
package leds

import (
	"fmt"

	"github.com/baysense/bayd/internal/gpiohal"
	"github.com/baysense/bayd/internal/monitoring"
)

// ID names a logical LED on the unit.
type ID int

// Logical LEDs, indexed into the panel's pin table.
const (
	Traffic ID = iota
	Activity
	Network
	numLEDs
)

// String returns the LED name.
func (id ID) String() string {
	switch id {
	case Traffic:
		return "traffic"
	case Activity:
		return "activity"
	case Network:
		return "network"
	default:
		return fmt.Sprintf("led(%d)", int(id))
	}
}

// Color is one of the closed palette an RGB LED can show.
type Color int

// The palette. Each color is a fixed on/off combination of the three
// channels; there is no PWM dimming.
const (
	Off Color = iota
	Red
	Green
	Blue
	Yellow
	Magenta
	Cyan
	White
)

// String returns the color name.
func (c Color) String() string {
	switch c {
	case Off:
		return "off"
	case Red:
		return "red"
	case Green:
		return "green"
	case Blue:
		return "blue"
	case Yellow:
		return "yellow"
	case Magenta:
		return "magenta"
	case Cyan:
		return "cyan"
	case White:
		return "white"
	default:
		return fmt.Sprintf("color(%d)", int(c))
	}
}

// channels returns the red, green, blue channel states for the color.
func (c Color) channels() (r, g, b bool) {
	switch c {
	case Red:
		return true, false, false
	case Green:
		return false, true, false
	case Blue:
		return false, false, true
	case Yellow:
		return true, true, false
	case Magenta:
		return true, false, true
	case Cyan:
		return false, true, true
	case White:
		return true, true, true
	default:
		return false, false, false
	}
}

// PinTriple is the GPIO numbers of one LED's color channels.
type PinTriple struct {
	Red   int
	Green int
	Blue  int
}

// Panel owns the acquired channel handles for all logical LEDs.
type Panel struct {
	handles   [numLEDs][3]gpiohal.Handle
	current   [numLEDs]Color
	activeLow bool
	closed    bool
}

// OpenPanel acquires every channel pin as an output at the "off" level.
// activeLow is set for boards that sink the LED channels (driving the pin
// low turns the channel on). On failure, already-acquired handles are
// released before returning.
func OpenPanel(opener gpiohal.Opener, pins [3]PinTriple, activeLow bool) (*Panel, error) {
	p := &Panel{activeLow: activeLow}
	off := p.level(false)

	for id := ID(0); id < numLEDs; id++ {
		for ch, pin := range []int{pins[id].Red, pins[id].Green, pins[id].Blue} {
			h, err := opener.OpenAsOutput(pin, off)
			if err != nil {
				p.CloseAll()
				return nil, fmt.Errorf("failed to open %s LED channel pin %d: %w", id, pin, err)
			}
			p.handles[id][ch] = h
		}
	}
	return p, nil
}

// Set drives the LED to the given color. Setting the current color again
// is a cheap no-op, so callers may refresh unconditionally every tick.
func (p *Panel) Set(id ID, c Color) error {
	if id < 0 || id >= numLEDs {
		return fmt.Errorf("unknown LED %d", int(id))
	}
	if p.current[id] == c {
		return nil
	}

	r, g, b := c.channels()
	for ch, on := range []bool{r, g, b} {
		h := p.handles[id][ch]
		if h == nil {
			return fmt.Errorf("%s LED channel %d not open", id, ch)
		}
		if err := h.Set(p.level(on)); err != nil {
			return fmt.Errorf("failed to set %s LED to %s: %w", id, c, err)
		}
	}
	p.current[id] = c
	return nil
}

// Color returns the color the LED was last set to.
func (p *Panel) Color(id ID) Color {
	if id < 0 || id >= numLEDs {
		return Off
	}
	return p.current[id]
}

// CloseAll releases every channel handle. Release is best-effort: a
// failing close is logged and the remaining handles are still attempted.
func (p *Panel) CloseAll() {
	if p.closed {
		return
	}
	p.closed = true
	for id := ID(0); id < numLEDs; id++ {
		for ch, h := range p.handles[id] {
			if h == nil {
				continue
			}
			if err := h.Close(); err != nil {
				monitoring.Logf("failed to close %s LED channel %d: %v", id, ch, err)
			}
			p.handles[id][ch] = nil
		}
	}
}

func (p *Panel) level(on bool) gpiohal.Level {
	if p.activeLow {
		return gpiohal.Level(!on)
	}
	return gpiohal.Level(on)
}
