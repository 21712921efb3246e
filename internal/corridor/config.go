package corridor

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"gopkg.in/yaml.v3"
)

// DefaultConfigPath is the path to the canonical corridor defaults file.
const DefaultConfigPath = "config/corridor.defaults.yaml"

// IntersectionConfig describes one signalised intersection along the corridor.
// Intersections are listed in cascade order; the first must have a zero
// ETA offset and offsets must be non-decreasing along the corridor.
type IntersectionConfig struct {
	ID               string  `yaml:"id"`
	Name             string  `yaml:"name"`
	ETAOffsetSeconds float64 `yaml:"eta_offset_seconds"`
}

// Config holds corridor tuning parameters. Omitted fields keep their
// defaults, so partial config files are safe.
type Config struct {
	Intersections []IntersectionConfig `yaml:"intersections"`

	CorridorDurationSeconds *float64 `yaml:"corridor_duration_seconds,omitempty"`
	CooldownSeconds         *float64 `yaml:"cooldown_seconds,omitempty"`
	LedgerCapacity          *int     `yaml:"ledger_capacity,omitempty"`

	// Ingestion boundary params
	TrackCooldownSeconds *float64 `yaml:"track_cooldown_seconds,omitempty"`

	// Reporting params
	TimeSavedPerIntersectionSeconds *float64 `yaml:"time_saved_per_intersection_seconds,omitempty"`
}

func ptrFloat64(v float64) *float64 { return &v }
func ptrInt(v int) *int             { return &v }

// DefaultConfig returns the built-in four-intersection corridor.
func DefaultConfig() *Config {
	return &Config{
		Intersections: []IntersectionConfig{
			{ID: "sig-1", Name: "Main & 1st", ETAOffsetSeconds: 0},
			{ID: "sig-2", Name: "Main & 2nd", ETAOffsetSeconds: 8},
			{ID: "sig-3", Name: "Main & 3rd", ETAOffsetSeconds: 18},
			{ID: "sig-4", Name: "Main & 4th", ETAOffsetSeconds: 28},
		},
	}
}

// LoadConfig loads a Config from a YAML file. Fields omitted from the file
// retain their defaults; an omitted intersections list falls back to the
// built-in corridor.
func LoadConfig(path string) (*Config, error) {
	cleanPath := filepath.Clean(path)
	if ext := filepath.Ext(cleanPath); ext != ".yaml" && ext != ".yml" {
		return nil, fmt.Errorf("config file must have .yaml or .yml extension, got %q", ext)
	}

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

	cfg := &Config{}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config YAML: %w", err)
	}
	if len(cfg.Intersections) == 0 {
		cfg.Intersections = DefaultConfig().Intersections
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return cfg, nil
}

// Validate checks the corridor invariants.
func (c *Config) Validate() error {
	if len(c.Intersections) == 0 {
		return fmt.Errorf("at least one intersection is required")
	}
	seen := make(map[string]bool, len(c.Intersections))
	for k, ic := range c.Intersections {
		if ic.ID == "" {
			return fmt.Errorf("intersection %d has an empty id", k)
		}
		if seen[ic.ID] {
			return fmt.Errorf("duplicate intersection id %q", ic.ID)
		}
		seen[ic.ID] = true
		if k == 0 && ic.ETAOffsetSeconds != 0 {
			return fmt.Errorf("first intersection must have a zero eta offset, got %f", ic.ETAOffsetSeconds)
		}
		if k > 0 && ic.ETAOffsetSeconds < c.Intersections[k-1].ETAOffsetSeconds {
			return fmt.Errorf("eta offsets must be non-decreasing: %q has %f after %f",
				ic.ID, ic.ETAOffsetSeconds, c.Intersections[k-1].ETAOffsetSeconds)
		}
	}
	if c.CorridorDurationSeconds != nil && *c.CorridorDurationSeconds <= 0 {
		return fmt.Errorf("corridor_duration_seconds must be positive, got %f", *c.CorridorDurationSeconds)
	}
	if c.CooldownSeconds != nil && *c.CooldownSeconds <= 0 {
		return fmt.Errorf("cooldown_seconds must be positive, got %f", *c.CooldownSeconds)
	}
	if c.LedgerCapacity != nil && *c.LedgerCapacity < 1 {
		return fmt.Errorf("ledger_capacity must be at least 1, got %d", *c.LedgerCapacity)
	}
	if c.TrackCooldownSeconds != nil && *c.TrackCooldownSeconds < 0 {
		return fmt.Errorf("track_cooldown_seconds must be non-negative, got %f", *c.TrackCooldownSeconds)
	}
	return nil
}

// GetCorridorDuration returns how long each intersection stays green.
func (c *Config) GetCorridorDuration() time.Duration {
	if c.CorridorDurationSeconds == nil {
		return 12 * time.Second
	}
	return time.Duration(*c.CorridorDurationSeconds * float64(time.Second))
}

// GetCooldown returns the delay between revert and the return to idle.
func (c *Config) GetCooldown() time.Duration {
	if c.CooldownSeconds == nil {
		return 5 * time.Second
	}
	return time.Duration(*c.CooldownSeconds * float64(time.Second))
}

// GetLedgerCapacity returns the maximum number of retained incidents.
func (c *Config) GetLedgerCapacity() int {
	if c.LedgerCapacity == nil {
		return 200
	}
	return *c.LedgerCapacity
}

// GetTrackCooldown returns the minimum spacing between accepted detections
// for the same track, enforced at the ingestion boundary.
func (c *Config) GetTrackCooldown() time.Duration {
	if c.TrackCooldownSeconds == nil {
		return 2 * time.Second
	}
	return time.Duration(*c.TrackCooldownSeconds * float64(time.Second))
}

// GetTimeSavedPerIntersection returns the per-intersection contribution to
// the time-saved estimate recorded on each incident.
func (c *Config) GetTimeSavedPerIntersection() float64 {
	if c.TimeSavedPerIntersectionSeconds == nil {
		return 25.0
	}
	return *c.TimeSavedPerIntersectionSeconds
}

// ETAOffset returns the eta offset of intersection k as a duration.
func (c *Config) ETAOffset(k int) time.Duration {
	return time.Duration(c.Intersections[k].ETAOffsetSeconds * float64(time.Second))
}
