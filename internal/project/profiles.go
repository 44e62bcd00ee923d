package project

import (
	"encoding/json"
	"errors"
	"os"

	"github.com/piwi3910/uldpack/internal/model"
)

// SaveCustomProfiles saves custom profiles to a JSON file.
func SaveCustomProfiles(path string, profiles []model.SettingsProfile) error {
	return writeJSON(path, profiles)
}

// LoadCustomProfiles loads custom profiles from a JSON file.
// Returns an empty slice if the file does not exist.
func LoadCustomProfiles(path string) ([]model.SettingsProfile, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return []model.SettingsProfile{}, nil
		}
		return nil, err
	}

	var profiles []model.SettingsProfile
	if err := json.Unmarshal(data, &profiles); err != nil {
		return nil, err
	}

	for i := range profiles {
		profiles[i].IsBuiltIn = false
	}
	return profiles, nil
}

// AllProfiles returns the built-in profiles followed by the custom ones
// stored at path. A custom profile never shadows a built-in name.
func AllProfiles(path string) ([]model.SettingsProfile, error) {
	all := model.BuiltInProfiles()
	custom, err := LoadCustomProfiles(path)
	if err != nil {
		return all, err
	}
	for _, p := range custom {
		if model.FindProfile(all, p.Name) == nil {
			all = append(all, p)
		}
	}
	return all, nil
}

// ExportProfile exports a single profile to a JSON file (for sharing).
func ExportProfile(path string, profile model.SettingsProfile) error {
	profile.IsBuiltIn = false
	return writeJSON(path, profile)
}

// ImportProfile imports a single profile from a JSON file.
func ImportProfile(path string) (model.SettingsProfile, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return model.SettingsProfile{}, err
	}

	var profile model.SettingsProfile
	if err := json.Unmarshal(data, &profile); err != nil {
		return model.SettingsProfile{}, err
	}

	profile.IsBuiltIn = false
	if profile.Name == "" {
		return model.SettingsProfile{}, errors.New("imported profile has no name")
	}
	return profile, nil
}
