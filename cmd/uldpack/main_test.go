package main

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/piwi3910/uldpack/internal/model"
)

const (
	testItems = "id,length,width,height,weight,type,cost\n" +
		"P1,40,30,20,10,Priority,-\n" +
		"E1,50,40,30,20,Economy,80\n" +
		"E2,30,30,30,15,Economy,60\n"
	testContainers = "id,length,width,height,weight\n" +
		"U1,100,100,100,500\n" +
		"U2,80,80,80,300\n"
)

func writeInputs(t *testing.T) (items, containers string) {
	t.Helper()
	dir := t.TempDir()
	items = filepath.Join(dir, "items.csv")
	containers = filepath.Join(dir, "containers.csv")
	require.NoError(t, os.WriteFile(items, []byte(testItems), 0644))
	require.NoError(t, os.WriteFile(containers, []byte(testContainers), 0644))
	return items, containers
}

func TestRunNoCommand(t *testing.T) {
	var out bytes.Buffer
	require.Error(t, run(nil, &out))
	assert.Contains(t, out.String(), "commands:")
}

func TestRunUnknownCommand(t *testing.T) {
	var out bytes.Buffer
	err := run([]string{"pack"}, &out)
	require.Error(t, err)
	assert.Contains(t, err.Error(), `unknown command "pack"`)
}

func TestSolveWritesOutputsAndArchivesRun(t *testing.T) {
	items, containers := writeInputs(t)
	state := t.TempDir()
	outDir := t.TempDir()
	csvPath := filepath.Join(outDir, "output.csv")
	xlsxPath := filepath.Join(outDir, "plan.xlsx")

	var out bytes.Buffer
	err := run([]string{"solve",
		"-items", items, "-containers", containers,
		"-state-dir", state, "-time-limit", "5s",
		"-out", csvPath, "-xlsx", xlsxPath, "-name", "smoke",
	}, &out)
	require.NoError(t, err)
	assert.Contains(t, out.String(), "placed 3/3")

	data, err := os.ReadFile(csvPath)
	require.NoError(t, err)
	lines := strings.Split(strings.TrimSpace(string(data)), "\n")
	require.Len(t, lines, 4)
	assert.True(t, strings.HasSuffix(lines[0], ",3,1"), "header %q", lines[0])
	assert.FileExists(t, xlsxPath)

	out.Reset()
	require.NoError(t, run([]string{"history", "-state-dir", state}, &out))
	assert.Contains(t, out.String(), "smoke")

	cfgData, err := os.ReadFile(filepath.Join(state, "config.json"))
	require.NoError(t, err)
	assert.Contains(t, string(cfgData), "recent_runs")
}

func TestSolveNoArchive(t *testing.T) {
	items, containers := writeInputs(t)
	state := t.TempDir()

	var out bytes.Buffer
	require.NoError(t, run([]string{"solve",
		"-items", items, "-containers", containers,
		"-state-dir", state, "-time-limit", "5s", "-no-archive",
		"-out", filepath.Join(t.TempDir(), "output.csv"),
	}, &out))

	out.Reset()
	require.NoError(t, run([]string{"history", "-state-dir", state}, &out))
	assert.Contains(t, out.String(), "no archived runs")
}

func TestSolveRequiresInputs(t *testing.T) {
	items, _ := writeInputs(t)
	var out bytes.Buffer

	err := run([]string{"solve", "-state-dir", t.TempDir()}, &out)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "-items is required")

	err = run([]string{"solve", "-items", items, "-state-dir", t.TempDir()}, &out)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "-containers or -fleet")
}

func TestSolveUnknownEngine(t *testing.T) {
	items, containers := writeInputs(t)
	var out bytes.Buffer
	err := run([]string{"solve", "-items", items, "-containers", containers,
		"-state-dir", t.TempDir(), "-engine", "cplex"}, &out)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unknown MIP engine")
}

func TestCompareMarksBestScenario(t *testing.T) {
	items, containers := writeInputs(t)
	var out bytes.Buffer
	require.NoError(t, run([]string{"compare", "-items", items, "-containers", containers,
		"-state-dir", t.TempDir()}, &out))

	text := out.String()
	assert.Contains(t, text, "Current Settings")
	assert.Equal(t, 1, strings.Count(text, "*"))
}

func TestHistoryShowMissingRun(t *testing.T) {
	var out bytes.Buffer
	err := run([]string{"history", "-state-dir", t.TempDir(), "-show", "nope"}, &out)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "no run nope")
}

func TestFleetListsDefaults(t *testing.T) {
	var out bytes.Buffer
	require.NoError(t, run([]string{"fleet", "-state-dir", t.TempDir()}, &out))
	fleet := model.DefaultFleet()
	for _, code := range fleet.Codes() {
		assert.Contains(t, out.String(), code)
	}
}

func TestFleetEstimate(t *testing.T) {
	items, _ := writeInputs(t)
	var out bytes.Buffer
	require.NoError(t, run([]string{"fleet", "-state-dir", t.TempDir(),
		"-estimate", items, "-code", "ake", "-stowage", "0"}, &out))
	assert.Contains(t, out.String(), "AKE: at least 1")
}

func TestFleetEstimateUnknownCode(t *testing.T) {
	items, _ := writeInputs(t)
	var out bytes.Buffer
	err := run([]string{"fleet", "-state-dir", t.TempDir(), "-estimate", items, "-code", "XYZ"}, &out)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unknown ULD type")
}

func TestContainersFromFleet(t *testing.T) {
	fleet := model.DefaultFleet()

	conts, err := containersFromFleet(fleet, "AKE:2, pmc, AKE")
	require.NoError(t, err)
	ids := make([]string, len(conts))
	for i, c := range conts {
		ids[i] = c.ID
	}
	assert.Equal(t, []string{"AKE-1", "AKE-2", "PMC-1", "AKE-3"}, ids)

	_, err = containersFromFleet(fleet, "AKE:0")
	assert.Error(t, err)
	_, err = containersFromFleet(fleet, "ZZZ:1")
	assert.Error(t, err)
}

func TestSolveWithFleetContainers(t *testing.T) {
	items, _ := writeInputs(t)
	csvPath := filepath.Join(t.TempDir(), "output.csv")
	var out bytes.Buffer
	require.NoError(t, run([]string{"solve", "-items", items, "-fleet", "AKE:1",
		"-state-dir", t.TempDir(), "-time-limit", "5s", "-no-archive", "-out", csvPath}, &out))

	data, err := os.ReadFile(csvPath)
	require.NoError(t, err)
	assert.Contains(t, string(data), "AKE-1")
}

func TestProfilesExportImportRoundTrip(t *testing.T) {
	state := t.TempDir()
	file := filepath.Join(t.TempDir(), "quick.json")
	var out bytes.Buffer

	require.NoError(t, run([]string{"profiles", "-state-dir", state}, &out))
	assert.Contains(t, out.String(), "thorough")

	require.NoError(t, run([]string{"profiles", "-state-dir", state, "-export", "quick", "-to", file}, &out))

	// built-in names cannot be shadowed
	err := run([]string{"profiles", "-state-dir", state, "-import", file}, &out)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "already exists")

	p := model.BuiltInProfiles()[1]
	p.Name = "night"
	data, err := json.Marshal(p)
	require.NoError(t, err)
	require.NoError(t, os.WriteFile(file, data, 0644))
	require.NoError(t, run([]string{"profiles", "-state-dir", state, "-import", file}, &out))

	out.Reset()
	require.NoError(t, run([]string{"profiles", "-state-dir", state}, &out))
	assert.Contains(t, out.String(), "night")
}

func TestSolveWithProfile(t *testing.T) {
	items, containers := writeInputs(t)
	var out bytes.Buffer
	require.NoError(t, run([]string{"solve", "-items", items, "-containers", containers,
		"-state-dir", t.TempDir(), "-profile", "quick", "-time-limit", "5s", "-no-archive",
		"-out", filepath.Join(t.TempDir(), "output.csv")}, &out))

	err := run([]string{"solve", "-items", items, "-containers", containers,
		"-state-dir", t.TempDir(), "-profile", "nope"}, &out)
	require.Error(t, err)
	assert.Contains(t, err.Error(), `unknown profile "nope"`)
}

func TestBackupRestore(t *testing.T) {
	src := t.TempDir()
	file := filepath.Join(t.TempDir(), "backup.json")
	var out bytes.Buffer

	require.NoError(t, run([]string{"fleet", "-state-dir", src}, &out))
	require.NoError(t, run([]string{"backup", "-state-dir", src, "-out", file}, &out))
	assert.FileExists(t, file)

	dst := t.TempDir()
	out.Reset()
	require.NoError(t, run([]string{"backup", "-state-dir", dst, "-restore", file}, &out))
	assert.Contains(t, out.String(), "5 presets")
	assert.FileExists(t, filepath.Join(dst, "fleet.json"))
	assert.FileExists(t, filepath.Join(dst, "config.json"))

	assert.Error(t, run([]string{"backup", "-state-dir", dst}, &out))
}
