package gpiohal

import "sync"

// MemOpener is an in-memory Opener for tests. Pins are created on demand;
// input readings are scripted per pin and output levels are recorded.
type MemOpener struct {
	mu       sync.Mutex
	pins     map[int]*MemPin
	failOut  map[int]error
	failIn   map[int]error
}

// NewMemOpener creates an empty MemOpener.
func NewMemOpener() *MemOpener {
	return &MemOpener{
		pins:    make(map[int]*MemPin),
		failOut: make(map[int]error),
		failIn:  make(map[int]error),
	}
}

// Pin returns the MemPin for the given number, creating it if needed.
func (o *MemOpener) Pin(n int) *MemPin {
	o.mu.Lock()
	defer o.mu.Unlock()
	p, ok := o.pins[n]
	if !ok {
		p = &MemPin{}
		o.pins[n] = p
	}
	return p
}

// FailOutput makes OpenAsOutput for the given pin return err.
func (o *MemOpener) FailOutput(n int, err error) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.failOut[n] = err
}

// FailInput makes OpenAsInput for the given pin return err.
func (o *MemOpener) FailInput(n int, err error) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.failIn[n] = err
}

// OpenAsOutput acquires the scripted pin as an output.
func (o *MemOpener) OpenAsOutput(n int, initial Level) (Handle, error) {
	o.mu.Lock()
	err := o.failOut[n]
	o.mu.Unlock()
	if err != nil {
		return nil, err
	}
	p := o.Pin(n)
	p.recordWrite(initial)
	p.addOpen()
	return &memHandle{pin: p, output: true}, nil
}

// OpenAsInput acquires the scripted pin as an input.
func (o *MemOpener) OpenAsInput(n int) (Handle, error) {
	o.mu.Lock()
	err := o.failIn[n]
	o.mu.Unlock()
	if err != nil {
		return nil, err
	}
	p := o.Pin(n)
	p.addOpen()
	return &memHandle{pin: p}, nil
}

// MemPin is a scripted in-memory pin.
type MemPin struct {
	mu     sync.Mutex
	script []Level
	idx    int
	writes []Level
	opens  int
	closes int
}

// Script sets the sequence of levels returned by successive reads. Once
// the script is exhausted the last level repeats; an unscripted pin
// reads low forever.
func (p *MemPin) Script(levels ...Level) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.script = levels
	p.idx = 0
}

// Writes returns every level driven on the pin, including the initial
// level from OpenAsOutput.
func (p *MemPin) Writes() []Level {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make([]Level, len(p.writes))
	copy(out, p.writes)
	return out
}

// Opens returns how many times the pin was acquired.
func (p *MemPin) Opens() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.opens
}

// Closes returns how many times a handle on the pin was closed.
func (p *MemPin) Closes() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.closes
}

func (p *MemPin) recordWrite(l Level) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.writes = append(p.writes, l)
}

func (p *MemPin) read() Level {
	p.mu.Lock()
	defer p.mu.Unlock()
	if len(p.script) == 0 {
		return Low
	}
	l := p.script[p.idx]
	if p.idx < len(p.script)-1 {
		p.idx++
	}
	return l
}

func (p *MemPin) addOpen() {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.opens++
}

func (p *MemPin) addClose() {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.closes++
}

type memHandle struct {
	pin    *MemPin
	output bool
}

func (h *memHandle) Set(l Level) error {
	if !h.output {
		return ErrWrongDirection
	}
	h.pin.recordWrite(l)
	return nil
}

func (h *memHandle) Read() (Level, error) {
	if h.output {
		return Low, ErrWrongDirection
	}
	return h.pin.read(), nil
}

func (h *memHandle) Close() error {
	h.pin.addClose()
	return nil
}
