package monitoring

import (
	"fmt"
	"strings"
	"testing"
)

// captureLogs redirects the package logger into the returned slice until
// the returned restore function runs. Not safe for concurrent capture.
func captureLogs() (*[]string, func()) {
	original := Logf
	var lines []string
	Logf = func(format string, v ...interface{}) {
		lines = append(lines, fmt.Sprintf(format, v...))
	}
	return &lines, func() { Logf = original }
}

func TestSetLogger(t *testing.T) {
	original := Logf
	defer func() { Logf = original }()

	called := false
	SetLogger(func(format string, v ...interface{}) {
		called = true
	})
	Logf("test message")
	if !called {
		t.Error("custom logger was not called")
	}

	// nil mutes without panicking
	called = false
	SetLogger(nil)
	Logf("test message")
	if called {
		t.Error("muted logger still triggered the previous callback")
	}
}

func TestLogf_Default(t *testing.T) {
	if Logf == nil {
		t.Fatal("Logf should not be nil by default")
	}
}

func TestCaptureLogs(t *testing.T) {
	lines, restore := captureLogs()

	Logf("distance %0.1f cm", 5.5)
	Logf("WARNING: %s", "echo timeout")
	restore()
	Logf("after restore")

	if len(*lines) != 2 {
		t.Fatalf("captured %d lines, want 2", len(*lines))
	}
	if (*lines)[0] != "distance 5.5 cm" {
		t.Errorf("line 0 = %q", (*lines)[0])
	}
	if !strings.HasPrefix((*lines)[1], "WARNING:") {
		t.Errorf("line 1 = %q, want WARNING prefix", (*lines)[1])
	}
}
