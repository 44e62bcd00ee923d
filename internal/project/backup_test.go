package project

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/piwi3910/uldpack/internal/model"
)

func TestExportAndImportAllData(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "backup.json")

	cfg := model.DefaultAppConfig()
	cfg.DefaultSurcharge = 2500
	cfg.DefaultProfile = "thorough"

	fleet := model.DefaultFleet()
	custom := model.SettingsProfile{Name: "night-shift", Settings: model.DefaultSettings()}
	profiles := append(model.BuiltInProfiles(), custom)

	if err := ExportAllData(path, cfg, fleet, profiles); err != nil {
		t.Fatalf("ExportAllData failed: %v", err)
	}

	backup, err := ImportAllData(path)
	if err != nil {
		t.Fatalf("ImportAllData failed: %v", err)
	}

	if backup.Version != "1.0.0" {
		t.Errorf("expected version 1.0.0, got %s", backup.Version)
	}
	if backup.CreatedAt == "" {
		t.Error("expected non-empty CreatedAt")
	}
	if backup.Config.DefaultSurcharge != 2500 {
		t.Errorf("expected DefaultSurcharge=2500, got %f", backup.Config.DefaultSurcharge)
	}
	if backup.Config.DefaultProfile != "thorough" {
		t.Errorf("expected DefaultProfile=thorough, got %s", backup.Config.DefaultProfile)
	}
	if len(backup.Fleet.ULDs) != len(fleet.ULDs) {
		t.Errorf("expected %d presets, got %d", len(fleet.ULDs), len(backup.Fleet.ULDs))
	}
	if len(backup.Profiles) != 1 || backup.Profiles[0].Name != "night-shift" {
		t.Errorf("expected only the custom profile to be exported, got %+v", backup.Profiles)
	}
}

func TestImportAllDataMissingFile(t *testing.T) {
	_, err := ImportAllData(filepath.Join(t.TempDir(), "nope.json"))
	if err == nil {
		t.Fatal("expected error for missing file")
	}
}

func TestImportAllDataInvalidJSON(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "bad.json")
	if err := os.WriteFile(path, []byte("{not json}"), 0644); err != nil {
		t.Fatal(err)
	}

	_, err := ImportAllData(path)
	if err == nil {
		t.Fatal("expected error for invalid JSON")
	}
}

func TestImportAllDataMissingVersion(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "noversion.json")
	data := []byte(`{"config":{"default_profile":"thorough"}}`)
	if err := os.WriteFile(path, data, 0644); err != nil {
		t.Fatal(err)
	}

	_, err := ImportAllData(path)
	if err == nil {
		t.Fatal("expected error for missing version")
	}
}

func TestExportAllDataCreatesDirectories(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "deep", "nested", "backup.json")

	if err := ExportAllData(path, model.DefaultAppConfig(), model.Fleet{}, nil); err != nil {
		t.Fatalf("ExportAllData should create parent dirs: %v", err)
	}

	if _, err := os.Stat(path); os.IsNotExist(err) {
		t.Fatal("backup file was not created")
	}
}

func TestImportAllDataNilRecentRuns(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "backup.json")
	data := []byte(`{"version":"1.0.0","created_at":"2025-01-01T00:00:00Z","config":{"recent_runs":null}}`)
	if err := os.WriteFile(path, data, 0644); err != nil {
		t.Fatal(err)
	}

	backup, err := ImportAllData(path)
	if err != nil {
		t.Fatalf("ImportAllData failed: %v", err)
	}
	if backup.Config.RecentRuns == nil {
		t.Error("RecentRuns should not be nil after import")
	}
}
