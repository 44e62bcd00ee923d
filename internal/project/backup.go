package project

import (
	"encoding/json"
	"fmt"
	"os"
	"time"

	"github.com/piwi3910/uldpack/internal/model"
)

// backupVersion is written into every backup file.
const backupVersion = "1.0.0"

// BackupData is the top-level structure for import/export of all application data.
type BackupData struct {
	Version   string                  `json:"version"`
	CreatedAt string                  `json:"created_at"`
	Config    model.AppConfig         `json:"config"`
	Fleet     model.Fleet             `json:"fleet"`
	Profiles  []model.SettingsProfile `json:"profiles,omitempty"`
}

// ExportAllData exports the config, fleet and custom profiles to a single
// JSON file at the specified path.
func ExportAllData(exportPath string, config model.AppConfig, fleet model.Fleet, profiles []model.SettingsProfile) error {
	var custom []model.SettingsProfile
	for _, p := range profiles {
		if !p.IsBuiltIn {
			custom = append(custom, p)
		}
	}
	backup := BackupData{
		Version:   backupVersion,
		CreatedAt: time.Now().UTC().Format(time.RFC3339),
		Config:    config,
		Fleet:     fleet,
		Profiles:  custom,
	}
	if err := writeJSON(exportPath, backup); err != nil {
		return fmt.Errorf("failed to write backup file: %w", err)
	}
	return nil
}

// ImportAllData reads a backup JSON file and returns the contained data.
// The caller is responsible for applying the imported config.
func ImportAllData(importPath string) (BackupData, error) {
	data, err := os.ReadFile(importPath)
	if err != nil {
		return BackupData{}, fmt.Errorf("failed to read backup file: %w", err)
	}
	var backup BackupData
	if err := json.Unmarshal(data, &backup); err != nil {
		return BackupData{}, fmt.Errorf("failed to parse backup file: %w", err)
	}
	if backup.Version == "" {
		return BackupData{}, fmt.Errorf("invalid backup file: missing version field")
	}
	if backup.Config.RecentRuns == nil {
		backup.Config.RecentRuns = []string{}
	}
	return backup, nil
}
