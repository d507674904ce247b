// Package store keeps the photo library and the display configuration on disk
package store

import (
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"
)

// Defaults is the configuration used when no document exists yet, or when the
// stored one cannot be read.
func Defaults() DisplayConfig {
	return DisplayConfig{
		CycleEnabled:  false,
		CycleInterval: 3600,
		Orientation:   OrientationLandscape,
		PhotoOrder:    []string{},
		Widgets: map[string]json.RawMessage{
			"date": json.RawMessage(`{"enabled": false, "position": {"preset": "bottom_right"}, "style": {"style": "classic"}}`),
		},
		QuietHours: QuietHours{Enabled: false, Start: "23:00", End: "06:00"},
	}
}

// ConfigStore reads and writes the JSON configuration document. The file is
// the single source of truth; callers re-read it instead of caching.
type ConfigStore struct {
	path string
}

func NewConfigStore(path string) *ConfigStore {
	return &ConfigStore{path: path}
}

func (s *ConfigStore) Path() string { return s.path }

// Load reads the document and merges it over the defaults: keys present in
// the file win, missing keys are backfilled, unknown keys are preserved. A
// missing or corrupt file yields the full defaults. Load never fails.
func (s *ConfigStore) Load() DisplayConfig {
	cfg := Defaults()

	data, err := os.ReadFile(s.path)
	if err != nil {
		if !errors.Is(err, os.ErrNotExist) {
			slog.Warn("unable to read config, using defaults", "path", s.path, "error", err)
		}
		return cfg
	}

	if err := json.Unmarshal(data, &cfg); err != nil {
		slog.Warn("config file is corrupt, using defaults", "path", s.path, "error", err)
		return Defaults()
	}

	// null or empty values in the file still fall back to something usable
	defaults := Defaults()
	if cfg.Orientation != OrientationLandscape && cfg.Orientation != OrientationPortrait {
		cfg.Orientation = defaults.Orientation
	}
	if cfg.PhotoOrder == nil {
		cfg.PhotoOrder = []string{}
	}
	if cfg.Widgets == nil {
		cfg.Widgets = defaults.Widgets
	}
	if cfg.QuietHours.Start == "" {
		cfg.QuietHours.Start = defaults.QuietHours.Start
	}
	if cfg.QuietHours.End == "" {
		cfg.QuietHours.End = defaults.QuietHours.End
	}
	return cfg
}

// Save writes the whole document, replacing the previous one.
func (s *ConfigStore) Save(cfg DisplayConfig) error {
	data, err := json.MarshalIndent(cfg, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to encode config: %w", err)
	}
	if err := os.WriteFile(s.path, append(data, '\n'), 0o644); err != nil {
		return fmt.Errorf("failed to write config %s: %w", s.path, err)
	}
	return nil
}
