package uartrange

import (
	"errors"
	"io"
	"strings"
	"testing"

	"go.bug.st/serial"
)

type stringPort struct {
	io.Reader
	closed bool
}

func newStringPort(s string) *stringPort {
	return &stringPort{Reader: strings.NewReader(s)}
}

func (p *stringPort) Close() error {
	p.closed = true
	return nil
}

func TestParseFrame(t *testing.T) {
	tests := []struct {
		frame   string
		want    float64
		wantErr bool
	}{
		{"R0123", 12.3, false},
		{"R0000", 0, false},
		{"R9999", 999.9, false},
		{"0123", 0, true},
		{"R", 0, true},
		{"Rxyz", 0, true},
		{"R-12", 0, true},
	}

	for _, tt := range tests {
		got, err := ParseFrame(tt.frame)
		if (err != nil) != tt.wantErr {
			t.Errorf("ParseFrame(%q) error = %v, wantErr %v", tt.frame, err, tt.wantErr)
			continue
		}
		if !tt.wantErr && got != tt.want {
			t.Errorf("ParseFrame(%q) = %f, want %f", tt.frame, got, tt.want)
		}
	}
}

func TestSample_ReadsFrames(t *testing.T) {
	r := New(newStringPort("R0050\rR0123\r"), 400)

	got, err := r.Sample()
	if err != nil {
		t.Fatalf("Sample: %v", err)
	}
	if got != 5.0 {
		t.Errorf("first sample = %f, want 5.0", got)
	}

	got, err = r.Sample()
	if err != nil {
		t.Fatalf("Sample: %v", err)
	}
	if got != 12.3 {
		t.Errorf("second sample = %f, want 12.3", got)
	}
}

func TestSample_ResyncsMidFrame(t *testing.T) {
	// Opening mid-stream lands inside a frame; the partial bytes before
	// the first full frame are discarded within the same Sample call.
	r := New(newStringPort("23\rR0045\r"), 400)

	got, err := r.Sample()
	if err != nil {
		t.Fatalf("Sample: %v", err)
	}
	if got != 4.5 {
		t.Errorf("sample after resync = %f, want 4.5", got)
	}
}

func TestSample_SkipsMalformedFrames(t *testing.T) {
	r := New(newStringPort("garbage\rR0070\r"), 400)

	got, err := r.Sample()
	if err != nil {
		t.Fatalf("Sample: %v", err)
	}
	if got != 7.0 {
		t.Errorf("Sample = %f, want 7.0", got)
	}
}

func TestSample_ExhaustsAttempts(t *testing.T) {
	r := New(newStringPort("x\rx\rx\rx\rR0010\r"), 400)

	got, err := r.Sample()
	if err == nil {
		t.Fatal("expected error after exhausting frame attempts")
	}
	if got != 400 {
		t.Errorf("Sample = %f, want sentinel 400", got)
	}
}

func TestSample_ClampsToSentinel(t *testing.T) {
	r := New(newStringPort("R9999\r"), 400)

	got, err := r.Sample()
	if err != nil {
		t.Fatalf("Sample: %v", err)
	}
	if got != 400 {
		t.Errorf("Sample = %f, want clamped 400", got)
	}
}

func TestSample_ReadErrorReturnsSentinel(t *testing.T) {
	r := New(newStringPort(""), 400)

	got, err := r.Sample()
	if !errors.Is(err, io.EOF) {
		t.Fatalf("Sample error = %v, want io.EOF", err)
	}
	if got != 400 {
		t.Errorf("Sample = %f, want sentinel 400", got)
	}
}

func TestPortOptions_Normalize(t *testing.T) {
	opts, err := PortOptions{}.Normalize()
	if err != nil {
		t.Fatalf("Normalize: %v", err)
	}
	if opts.BaudRate != 9600 || opts.DataBits != 8 || opts.StopBits != 1 || opts.Parity != "N" {
		t.Errorf("defaults = %+v, want 9600 8N1", opts)
	}

	if _, err := (PortOptions{DataBits: 9}).Normalize(); err == nil {
		t.Error("expected error for 9 data bits")
	}
	if _, err := (PortOptions{Parity: "M"}).Normalize(); err == nil {
		t.Error("expected error for parity M")
	}
}

func TestPortOptions_SerialModeStopBits(t *testing.T) {
	// StopBits is an enum in the serial package; the default count of 1
	// must land on OneStopBit, not OnePointFiveStopBits.
	mode, err := PortOptions{}.SerialMode()
	if err != nil {
		t.Fatalf("SerialMode: %v", err)
	}
	if mode.StopBits != serial.OneStopBit {
		t.Errorf("default StopBits = %v, want OneStopBit", mode.StopBits)
	}
	if mode.Parity != serial.NoParity {
		t.Errorf("default Parity = %v, want NoParity", mode.Parity)
	}

	mode, err = PortOptions{StopBits: 2}.SerialMode()
	if err != nil {
		t.Fatalf("SerialMode: %v", err)
	}
	if mode.StopBits != serial.TwoStopBits {
		t.Errorf("StopBits = %v, want TwoStopBits", mode.StopBits)
	}
}

func TestClose_ClosesPort(t *testing.T) {
	p := newStringPort("")
	r := New(p, 400)
	if err := r.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}
	if !p.closed {
		t.Error("underlying port not closed")
	}
}
