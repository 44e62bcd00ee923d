package model

import "time"

// AppConfig holds user-wide preferences and the defaults applied to new runs.
type AppConfig struct {
	// Solver defaults applied to new runs
	DefaultAlgorithm      Algorithm      `json:"default_algorithm"`
	DefaultEngine         string         `json:"default_engine"`
	DefaultTimeLimit      time.Duration  `json:"default_time_limit"`
	DefaultMIPTimeLimit   time.Duration  `json:"default_mip_time_limit"`
	DefaultMinSupport     float64        `json:"default_min_support"`
	DefaultStability      bool           `json:"default_stability"`
	DefaultSurcharge      float64        `json:"default_surcharge"`
	DefaultContainerOrder ContainerOrder `json:"default_container_order"`

	// Application preferences
	ArchiveDir     string   `json:"archive_dir"` // empty = <config dir>/runs
	RecentRuns     []string `json:"recent_runs"`
	DefaultProfile string   `json:"default_profile"` // used when no profile is named
}

// DefaultAppConfig returns an AppConfig populated with the values from
// DefaultSettings().
func DefaultAppConfig() AppConfig {
	defaults := DefaultSettings()
	return AppConfig{
		DefaultAlgorithm:      defaults.Algorithm,
		DefaultEngine:         defaults.Engine,
		DefaultTimeLimit:      defaults.TimeLimit,
		DefaultMIPTimeLimit:   defaults.MIPTimeLimit,
		DefaultMinSupport:     defaults.MinSupport,
		DefaultStability:      defaults.Stability,
		DefaultSurcharge:      defaults.PrioritySurcharge,
		DefaultContainerOrder: defaults.ContainerOrder,
		RecentRuns:            []string{},
		DefaultProfile:        "default",
	}
}

// ApplyToSettings copies the default values from AppConfig into a Settings struct.
func (c AppConfig) ApplyToSettings(s *Settings) {
	s.Algorithm = c.DefaultAlgorithm
	s.Engine = c.DefaultEngine
	s.TimeLimit = c.DefaultTimeLimit
	s.MIPTimeLimit = c.DefaultMIPTimeLimit
	s.MinSupport = c.DefaultMinSupport
	s.Stability = c.DefaultStability
	s.PrioritySurcharge = c.DefaultSurcharge
	s.ContainerOrder = c.DefaultContainerOrder
}

// AddRecentRun puts id at the front of the recent list, keeping at most max entries.
func (c *AppConfig) AddRecentRun(id string, max int) {
	out := []string{id}
	for _, r := range c.RecentRuns {
		if r != id {
			out = append(out, r)
		}
	}
	if max > 0 && len(out) > max {
		out = out[:max]
	}
	c.RecentRuns = out
}
