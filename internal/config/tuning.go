package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/baysense/bayd/internal/monitoring"
)

// TuningConfig represents the tuning parameters for the bay sensor unit.
// All fields are optional; the Get* methods provide fallback defaults so
// partial configs are safe.
type TuningConfig struct {
	// Occupancy thresholds (centimeters)
	NearThresholdCM *float64 `json:"near_threshold_cm,omitempty"`
	FarThresholdCM  *float64 `json:"far_threshold_cm,omitempty"`

	// SentinelDistanceCM is reported when no echo returns within the poll
	// bound. It must exceed the far threshold so a timeout reads as vacant.
	SentinelDistanceCM *float64 `json:"sentinel_distance_cm,omitempty"`

	// Sampler params
	SamplePeriod      *string `json:"sample_period,omitempty"` // duration string like "500ms"
	TriggerHold       *string `json:"trigger_hold,omitempty"`  // duration string like "10us"
	MaxPollIterations *int    `json:"max_poll_iterations,omitempty"`

	// Connectivity params
	RetryInterval *string `json:"retry_interval,omitempty"` // duration string like "1s"

	// Loop params
	LoopSleep *string `json:"loop_sleep,omitempty"` // duration string like "1ms"
}

// Helper functions to create pointers
func ptrFloat64(v float64) *float64 { return &v }
func ptrString(v string) *string    { return &v }
func ptrInt(v int) *int             { return &v }

// EmptyTuningConfig returns a TuningConfig with all fields set to nil.
func EmptyTuningConfig() *TuningConfig {
	return &TuningConfig{}
}

// LoadTuningConfig loads a TuningConfig from a JSON file.
// The file is validated to ensure it has a .json extension and is under the max file size.
// Fields omitted from the JSON file retain their default values, so
// partial configs are safe.
func LoadTuningConfig(path string) (*TuningConfig, error) {
	cleanPath := filepath.Clean(path)
	if ext := filepath.Ext(cleanPath); ext != ".json" {
		return nil, fmt.Errorf("config file must have .json extension, got %q", ext)
	}

	// Check file size for safety (max 1MB)
	fileInfo, err := os.Stat(cleanPath)
	if err != nil {
		return nil, fmt.Errorf("failed to stat config file: %w", err)
	}
	const maxFileSize = 1 * 1024 * 1024 // 1MB
	if fileInfo.Size() > maxFileSize {
		return nil, fmt.Errorf("config file too large: %d bytes (max %d)", fileInfo.Size(), maxFileSize)
	}

	data, err := os.ReadFile(cleanPath)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	cfg := EmptyTuningConfig()
	if err := json.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config JSON: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return cfg, nil
}

// Validate checks that the configuration values are valid.
func (c *TuningConfig) Validate() error {
	if c.NearThresholdCM != nil && *c.NearThresholdCM <= 0 {
		return fmt.Errorf("near_threshold_cm must be positive, got %f", *c.NearThresholdCM)
	}

	if c.FarThresholdCM != nil && *c.FarThresholdCM <= 0 {
		return fmt.Errorf("far_threshold_cm must be positive, got %f", *c.FarThresholdCM)
	}

	// Enforce band ordering against whichever side is defaulted.
	if c.GetNearThresholdCM() >= c.GetFarThresholdCM() {
		return fmt.Errorf("near_threshold_cm %f must be below far_threshold_cm %f",
			c.GetNearThresholdCM(), c.GetFarThresholdCM())
	}

	// The sentinel stands in for "no echo"; if it fell inside the bands a
	// timed-out sample would read as a parked car.
	if c.GetSentinelDistanceCM() <= c.GetFarThresholdCM() {
		return fmt.Errorf("sentinel_distance_cm %f must exceed far_threshold_cm %f",
			c.GetSentinelDistanceCM(), c.GetFarThresholdCM())
	}

	if c.MaxPollIterations != nil && *c.MaxPollIterations <= 0 {
		return fmt.Errorf("max_poll_iterations must be positive, got %d", *c.MaxPollIterations)
	}

	for name, v := range map[string]*string{
		"sample_period":  c.SamplePeriod,
		"trigger_hold":   c.TriggerHold,
		"retry_interval": c.RetryInterval,
		"loop_sleep":     c.LoopSleep,
	} {
		if v != nil && *v != "" {
			if _, err := time.ParseDuration(*v); err != nil {
				return fmt.Errorf("invalid %s '%s': %w", name, *v, err)
			}
		}
	}

	return nil
}

// GetNearThresholdCM returns the near_threshold_cm value or the default.
func (c *TuningConfig) GetNearThresholdCM() float64 {
	if c.NearThresholdCM == nil {
		return 2.0
	}
	return *c.NearThresholdCM
}

// GetFarThresholdCM returns the far_threshold_cm value or the default.
func (c *TuningConfig) GetFarThresholdCM() float64 {
	if c.FarThresholdCM == nil {
		return 8.0
	}
	return *c.FarThresholdCM
}

// GetSentinelDistanceCM returns the sentinel_distance_cm value or the default.
func (c *TuningConfig) GetSentinelDistanceCM() float64 {
	if c.SentinelDistanceCM == nil {
		return 400.0 // HC-SR04 max range
	}
	return *c.SentinelDistanceCM
}

// GetSamplePeriod parses and returns the SamplePeriod as a time.Duration.
func (c *TuningConfig) GetSamplePeriod() time.Duration {
	return c.durationOr(c.SamplePeriod, 500*time.Millisecond)
}

// GetTriggerHold parses and returns the TriggerHold as a time.Duration.
func (c *TuningConfig) GetTriggerHold() time.Duration {
	return c.durationOr(c.TriggerHold, 10*time.Microsecond)
}

// GetRetryInterval parses and returns the RetryInterval as a time.Duration.
func (c *TuningConfig) GetRetryInterval() time.Duration {
	return c.durationOr(c.RetryInterval, time.Second)
}

// GetLoopSleep parses and returns the LoopSleep as a time.Duration.
func (c *TuningConfig) GetLoopSleep() time.Duration {
	return c.durationOr(c.LoopSleep, time.Millisecond)
}

// GetMaxPollIterations returns the max_poll_iterations value or the default.
func (c *TuningConfig) GetMaxPollIterations() int {
	if c.MaxPollIterations == nil {
		return 10_000
	}
	return *c.MaxPollIterations
}

func (c *TuningConfig) durationOr(v *string, def time.Duration) time.Duration {
	if v == nil || *v == "" {
		return def
	}
	d, err := time.ParseDuration(*v)
	if err != nil {
		monitoring.Logf("WARNING: invalid duration %q, using default %v: %v", *v, def, err)
		return def
	}
	return d
}
