package project

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/piwi3910/uldpack/internal/model"
)

// State is the directory holding everything uldpack keeps between runs:
// the app config, the fleet, custom profiles and, unless the config points
// elsewhere, the run archive.
type State struct {
	Dir string
}

// DefaultState returns the state in ~/.uldpack, or ./.uldpack when the home
// directory is unknown.
func DefaultState() State {
	home, err := os.UserHomeDir()
	if err != nil {
		home = "."
	}
	return State{Dir: filepath.Join(home, ".uldpack")}
}

func (s State) ConfigPath() string   { return filepath.Join(s.Dir, "config.json") }
func (s State) FleetPath() string    { return filepath.Join(s.Dir, "fleet.json") }
func (s State) ProfilesPath() string { return filepath.Join(s.Dir, "profiles.json") }

// ArchiveDir returns the run archive directory: the one named by config,
// or runs/ in the state directory.
func (s State) ArchiveDir(config model.AppConfig) string {
	if config.ArchiveDir != "" {
		return config.ArchiveDir
	}
	return filepath.Join(s.Dir, "runs")
}

// LoadAppConfig reads the app config. Keys missing from the file keep their
// defaults, and a missing file yields model.DefaultAppConfig.
func (s State) LoadAppConfig() (model.AppConfig, error) {
	config := model.DefaultAppConfig()
	data, err := os.ReadFile(s.ConfigPath())
	switch {
	case errors.Is(err, os.ErrNotExist):
		return config, nil
	case err != nil:
		return model.AppConfig{}, err
	}
	if err := json.Unmarshal(data, &config); err != nil {
		return model.AppConfig{}, fmt.Errorf("failed to parse %s: %w", s.ConfigPath(), err)
	}
	if config.RecentRuns == nil {
		config.RecentRuns = []string{}
	}
	return config, nil
}

// SaveAppConfig writes the app config, creating the state directory if needed.
func (s State) SaveAppConfig(config model.AppConfig) error {
	return writeJSON(s.ConfigPath(), config)
}

// writeJSON stores v as indented JSON at path, creating parent directories.
func writeJSON(path string, v any) error {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return err
	}
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0644)
}
