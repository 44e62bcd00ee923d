package project

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/piwi3910/uldpack/internal/model"
)

func TestSaveAndLoadFleet(t *testing.T) {
	path := filepath.Join(t.TempDir(), "test_fleet.json")

	fleet := model.Fleet{ULDs: []model.ULDPreset{
		model.NewULDPreset("Demo pallet", "PXX", 300, 200, 150, 5000),
	}}
	if err := SaveFleet(path, fleet); err != nil {
		t.Fatalf("SaveFleet failed: %v", err)
	}

	loaded, err := LoadFleet(path)
	if err != nil {
		t.Fatalf("LoadFleet failed: %v", err)
	}
	if len(loaded.ULDs) != 1 {
		t.Fatalf("expected 1 preset, got %d", len(loaded.ULDs))
	}
	u := loaded.ULDs[0]
	if u.Code != "PXX" || u.Length != 300 || u.MaxWeight != 5000 {
		t.Errorf("preset did not survive the round trip: %+v", u)
	}
}

func TestLoadFleetCreatesDefault(t *testing.T) {
	path := filepath.Join(t.TempDir(), "sub", "fleet.json")

	fleet, err := LoadFleet(path)
	if err != nil {
		t.Fatalf("LoadFleet failed: %v", err)
	}
	if len(fleet.ULDs) != len(model.DefaultFleet().ULDs) {
		t.Errorf("expected the default fleet, got %d presets", len(fleet.ULDs))
	}
	if fleet.FindByCode("AKE") == nil {
		t.Error("default fleet should contain AKE")
	}
	if _, err := os.Stat(path); err != nil {
		t.Errorf("default fleet was not saved: %v", err)
	}
}

func TestLoadFleetInvalidJSON(t *testing.T) {
	path := filepath.Join(t.TempDir(), "fleet.json")
	if err := os.WriteFile(path, []byte("[broken"), 0644); err != nil {
		t.Fatal(err)
	}
	if _, err := LoadFleet(path); err == nil {
		t.Fatal("expected error for invalid JSON")
	}
}

func TestImportFleetMergesByIDAndCode(t *testing.T) {
	existing := model.Fleet{ULDs: []model.ULDPreset{
		{ID: "a1", Name: "LD3", Code: "AKE", Length: 153, Width: 156, Height: 163, MaxWeight: 1588},
	}}
	imported := model.Fleet{ULDs: []model.ULDPreset{
		{ID: "a1", Name: "duplicate id", Code: "ZZZ"},
		{ID: "b2", Name: "duplicate code", Code: "AKE"},
		{ID: "c3", Name: "LD7", Code: "PMC", Length: 317, Width: 243, Height: 163, MaxWeight: 6804},
	}}
	path := filepath.Join(t.TempDir(), "import.json")
	if err := SaveFleet(path, imported); err != nil {
		t.Fatal(err)
	}

	merged, err := ImportFleet(path, existing)
	if err != nil {
		t.Fatalf("ImportFleet failed: %v", err)
	}
	if len(merged.ULDs) != 2 {
		t.Fatalf("expected 2 presets after merge, got %d", len(merged.ULDs))
	}
	if merged.FindByCode("PMC") == nil {
		t.Error("expected PMC to be imported")
	}
	if merged.FindByCode("ZZZ") != nil {
		t.Error("preset with duplicate ID should be skipped")
	}
}

func TestImportFleetMissingFile(t *testing.T) {
	existing := model.DefaultFleet()
	merged, err := ImportFleet(filepath.Join(t.TempDir(), "nope.json"), existing)
	if err == nil {
		t.Fatal("expected error for missing file")
	}
	if len(merged.ULDs) != len(existing.ULDs) {
		t.Error("existing fleet should be returned unchanged on error")
	}
}
