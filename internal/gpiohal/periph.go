package gpiohal

import (
	"fmt"
	"strconv"

	"periph.io/x/conn/v3/gpio"
	"periph.io/x/conn/v3/gpio/gpioreg"
	"periph.io/x/host/v3"
)

// PeriphOpener acquires pins through the periph.io host drivers.
type PeriphOpener struct{}

// NewPeriphOpener initializes the periph host drivers and returns an
// Opener backed by them.
func NewPeriphOpener() (*PeriphOpener, error) {
	if _, err := host.Init(); err != nil {
		return nil, fmt.Errorf("failed to initialize periph host: %w", err)
	}
	return &PeriphOpener{}, nil
}

// OpenAsOutput acquires the numbered pin as a push-pull output.
func (o *PeriphOpener) OpenAsOutput(pin int, initial Level) (Handle, error) {
	p := gpioreg.ByName(strconv.Itoa(pin))
	if p == nil {
		return nil, fmt.Errorf("no GPIO pin named %d", pin)
	}
	if err := p.Out(gpio.Level(initial)); err != nil {
		return nil, fmt.Errorf("failed to open pin %d as output: %w", pin, err)
	}
	return &periphHandle{pin: p, output: true}, nil
}

// OpenAsInput acquires the numbered pin as an input. The echo line idles
// low, so the pull is down.
func (o *PeriphOpener) OpenAsInput(pin int) (Handle, error) {
	p := gpioreg.ByName(strconv.Itoa(pin))
	if p == nil {
		return nil, fmt.Errorf("no GPIO pin named %d", pin)
	}
	if err := p.In(gpio.PullDown, gpio.NoEdge); err != nil {
		return nil, fmt.Errorf("failed to open pin %d as input: %w", pin, err)
	}
	return &periphHandle{pin: p}, nil
}

type periphHandle struct {
	pin    gpio.PinIO
	output bool
}

func (h *periphHandle) Set(l Level) error {
	if !h.output {
		return ErrWrongDirection
	}
	return h.pin.Out(gpio.Level(l))
}

func (h *periphHandle) Read() (Level, error) {
	if h.output {
		return Low, ErrWrongDirection
	}
	return Level(h.pin.Read()), nil
}

func (h *periphHandle) Close() error {
	return h.pin.Halt()
}
