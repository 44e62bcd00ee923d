package project

import (
	"encoding/json"
	"os"

	"github.com/piwi3910/uldpack/internal/model"
)

// SaveFleet writes the fleet to the specified JSON file.
// It creates parent directories if they do not exist.
func SaveFleet(path string, fleet model.Fleet) error {
	return writeJSON(path, fleet)
}

// LoadFleet reads the fleet from the specified JSON file.
// If the file does not exist, it returns the default fleet and saves it.
func LoadFleet(path string) (model.Fleet, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			fleet := model.DefaultFleet()
			if saveErr := SaveFleet(path, fleet); saveErr != nil {
				return fleet, saveErr
			}
			return fleet, nil
		}
		return model.Fleet{}, err
	}
	var fleet model.Fleet
	if err := json.Unmarshal(data, &fleet); err != nil {
		return model.Fleet{}, err
	}
	return fleet, nil
}

// ImportFleet merges the presets stored at path into existing. Presets
// whose ID or type code is already present are skipped.
func ImportFleet(path string, existing model.Fleet) (model.Fleet, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return existing, err
	}
	var imported model.Fleet
	if err := json.Unmarshal(data, &imported); err != nil {
		return existing, err
	}

	ids := make(map[string]bool, len(existing.ULDs))
	codes := make(map[string]bool, len(existing.ULDs))
	for _, u := range existing.ULDs {
		ids[u.ID] = true
		codes[u.Code] = true
	}
	for _, u := range imported.ULDs {
		if ids[u.ID] || codes[u.Code] {
			continue
		}
		existing.ULDs = append(existing.ULDs, u)
		ids[u.ID] = true
		codes[u.Code] = true
	}
	return existing, nil
}
