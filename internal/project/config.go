package project

import (
	"fmt"
	"reflect"
	"strings"

	"github.com/spf13/viper"

	"github.com/piwi3910/uldpack/internal/model"
)

// EnvPrefix prefixes every environment override, e.g. ULDPACK_TIME_LIMIT=90s.
const EnvPrefix = "ULDPACK"

// LoadConfig layers solver settings: base, then the file at path (YAML,
// JSON or TOML; skipped when path is empty), then ULDPACK_* environment
// variables. Durations are given as strings such as "20s".
func LoadConfig(path string, base model.Settings) (model.Settings, error) {
	v := viper.New()
	setDefaults(v, base)

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_", ".", "_"))
	v.AutomaticEnv()

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return base, fmt.Errorf("failed to read config %s: %w", path, err)
		}
	}

	s := base
	if err := v.Unmarshal(&s); err != nil {
		return base, fmt.Errorf("failed to decode config: %w", err)
	}
	if err := ValidateSettings(s); err != nil {
		return base, err
	}
	return s, nil
}

// setDefaults registers every mapstructure key of s so that environment
// variables are picked up for all of them.
func setDefaults(v *viper.Viper, s model.Settings) {
	rv := reflect.ValueOf(s)
	rt := rv.Type()
	for i := 0; i < rt.NumField(); i++ {
		key := rt.Field(i).Tag.Get("mapstructure")
		if key == "" {
			continue
		}
		v.SetDefault(key, rv.Field(i).Interface())
	}
}

// ValidateSettings reports every out-of-range setting in one error.
func ValidateSettings(s model.Settings) error {
	var problems []string
	bad := func(format string, args ...interface{}) {
		problems = append(problems, fmt.Sprintf(format, args...))
	}

	switch s.Algorithm {
	case model.AlgorithmGreedy, model.AlgorithmGenetic:
	default:
		bad("unknown algorithm %q", s.Algorithm)
	}
	switch s.ContainerOrder {
	case model.OrderWeight, model.OrderVolume, model.OrderGiven:
	default:
		bad("unknown container order %q", s.ContainerOrder)
	}
	switch s.RefineOrder {
	case model.RefineRichest, model.RefineFreeVolume:
	default:
		bad("unknown refine order %q", s.RefineOrder)
	}
	switch s.Objective {
	case model.ObjectiveUnplacedCost, model.ObjectiveMaxVolume:
	default:
		bad("unknown objective %q", s.Objective)
	}

	if s.MinSupport < 0 || s.MinSupport > 1 {
		bad("min_support must be within [0, 1], got %g", s.MinSupport)
	}
	if s.StabilityThreshold < 0 || s.StabilityThreshold > 1 {
		bad("stability_threshold must be within [0, 1], got %g", s.StabilityThreshold)
	}
	if s.PrioritySurcharge < 0 {
		bad("priority_surcharge must not be negative")
	}
	if s.BigM < 0 {
		bad("big_m must not be negative")
	}
	if s.TimeLimit <= 0 || s.MIPTimeLimit <= 0 {
		bad("time limits must be positive")
	}
	if s.PriorityContainers < 0 || s.AllowedUnstable < 0 || s.RefineContainers < 0 {
		bad("container counts must not be negative")
	}
	if s.SettleIterations < 0 || s.GrowthBatch < 0 || s.GrowthPatience < 0 || s.SubsetLimit < 0 {
		bad("refinement limits must not be negative")
	}
	if s.WindowSize < 1 {
		bad("window_size must be at least 1, got %d", s.WindowSize)
	}
	if s.Algorithm == model.AlgorithmGenetic && (s.GeneticPopulation < 2 || s.GeneticGenerations < 1) {
		bad("genetic search needs a population of at least 2 and one generation")
	}

	if len(problems) > 0 {
		return fmt.Errorf("invalid settings: %s", strings.Join(problems, "; "))
	}
	return nil
}
