package importer

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/xuri/excelize/v2"

	"github.com/piwi3910/uldpack/internal/inspect"
	"github.com/piwi3910/uldpack/internal/model"
)

// ─── DetectCSVDelimiter Tests ──────────────────────────────

func TestDetectCSVDelimiter(t *testing.T) {
	tests := []struct {
		name string
		data string
		want rune
	}{
		{"comma", "id,length,width,height,weight\nU1,224,318,162,2500\n", ','},
		{"semicolon", "id;length;width;height;weight\nU1;224;318;162;2500\n", ';'},
		{"tab", "id\tlength\twidth\theight\tweight\nU1\t224\t318\t162\t2500\n", '\t'},
		{"pipe", "id|length|width|height|weight\nU1|224|318|162|2500\n", '|'},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := DetectCSVDelimiter([]byte(tt.data)); got != tt.want {
				t.Errorf("expected %q, got %q", tt.want, got)
			}
		})
	}
}

// ─── DetectColumns Tests ───────────────────────────────────

func TestDetectColumns_ItemHeaders(t *testing.T) {
	row := []string{"Item ID", "Length", "Width", "Height", "Weight", "Type", "Cost"}
	m, isHeader := DetectColumns(row, ItemTable)

	if !isHeader {
		t.Fatal("expected header to be detected")
	}
	if m.ID != 0 || m.Length != 1 || m.Width != 2 || m.Height != 3 || m.Weight != 4 || m.Type != 5 || m.Cost != 6 {
		t.Errorf("unexpected mapping %+v", m)
	}
	if m.Container != -1 || m.X != -1 {
		t.Errorf("expected no placement columns, got %+v", m)
	}
}

func TestDetectColumns_ReorderedAndCaseInsensitive(t *testing.T) {
	row := []string{"COST", "HEIGHT", "WEIGHT", "W", "L", "ID"}
	m, isHeader := DetectColumns(row, ItemTable)

	if !isHeader {
		t.Fatal("expected header to be detected")
	}
	if m.Cost != 0 || m.Height != 1 || m.Weight != 2 || m.Width != 3 || m.Length != 4 || m.ID != 5 {
		t.Errorf("unexpected mapping %+v", m)
	}
}

func TestDetectColumns_NoHeader(t *testing.T) {
	m, isHeader := DetectColumns([]string{"P-1", "99", "53", "55", "61", "Economy", "176"}, ItemTable)
	if isHeader {
		t.Error("expected no header detection for numeric data")
	}
	if m.Type != 5 || m.Cost != 6 {
		t.Errorf("expected positional item mapping, got %+v", m)
	}

	m, _ = DetectColumns([]string{"U1", "224", "318", "162", "2500"}, ContainerTable)
	if m.Weight != 4 || m.Type != -1 || m.Cost != -1 {
		t.Errorf("expected positional container mapping, got %+v", m)
	}
}

func TestDetectColumns_ContainerIgnoresItemColumns(t *testing.T) {
	m, _ := DetectColumns([]string{"ULD", "Length", "Width", "Height", "Weight Limit", "Cost"}, ContainerTable)
	if m.Cost != -1 {
		t.Errorf("expected cost column to be ignored for containers, got %d", m.Cost)
	}
	if m.Weight != 4 {
		t.Errorf("expected weight at 4, got %d", m.Weight)
	}
}

// ─── Item rows ─────────────────────────────────────────────

func TestImportItems_OriginalFormat(t *testing.T) {
	data := "P-1,99,53,55,61,Economy,176\nP-2,56,99,81,53,Priority,-\nP-3,42,101,51,17,Economy,\n"
	result := ImportCSVFromReader(strings.NewReader(data), ',', ItemTable)

	if len(result.Errors) > 0 {
		t.Fatalf("unexpected errors: %v", result.Errors)
	}
	if len(result.Items) != 3 {
		t.Fatalf("expected 3 items, got %d", len(result.Items))
	}

	p1 := result.Items[0]
	if p1.ID != "P-1" || p1.Weight != 61 || p1.Cost != 176 || p1.Priority {
		t.Errorf("unexpected item %+v", p1)
	}
	if p1.Dims != (model.Vec3{53, 55, 99}) {
		t.Errorf("expected sorted dims, got %v", p1.Dims)
	}
	if !result.Items[1].Priority {
		t.Error("expected P-2 to be priority")
	}
	if result.Items[1].Cost != model.DefaultCost || result.Items[2].Cost != model.DefaultCost {
		t.Error("expected missing cost to use the default")
	}
}

func TestImportItems_Placements(t *testing.T) {
	data := "id,length,width,height,weight,type,cost,container,x,y,z,dx,dy,dz\n" +
		"A,10,20,30,1,Economy,5,U1,0,0,0,30,10,20\n" +
		"B,10,10,10,1,Economy,5,NONE,,,,,,\n" +
		"C,10,10,10,1,Economy,5,-1,,,,,,\n"
	result := ImportCSVFromReader(strings.NewReader(data), ',', ItemTable)

	if len(result.Errors) > 0 {
		t.Fatalf("unexpected errors: %v", result.Errors)
	}
	if len(result.Assignments) != 1 {
		t.Fatalf("expected 1 assignment, got %d", len(result.Assignments))
	}
	a := result.Assignments[0]
	if a.Item != 0 || a.Container != "U1" || a.Extent != (model.Vec3{30, 10, 20}) {
		t.Errorf("unexpected assignment %+v", a)
	}
}

func TestImportItems_RowErrors(t *testing.T) {
	data := "A,10,20,30,1,Economy,5\n" +
		"B,abc,20,30,1,Economy,5\n" +
		"C,10,0,30,1,Economy,5\n" +
		"D,10,20,30,-1,Economy,5\n" +
		"E,10,20\n" +
		"F,10,20,30,1,Economy,cheap\n"
	result := ImportCSVFromReader(strings.NewReader(data), ',', ItemTable)

	if len(result.Items) != 2 {
		t.Errorf("expected 2 valid items, got %d", len(result.Items))
	}
	if len(result.Errors) != 4 {
		t.Errorf("expected 4 errors, got %d: %v", len(result.Errors), result.Errors)
	}
	if len(result.Warnings) != 1 || !strings.Contains(result.Warnings[0], "cheap") {
		t.Errorf("expected a cost warning, got %v", result.Warnings)
	}
	if !strings.Contains(result.Errors[0], "Line 2") {
		t.Errorf("expected error on line 2, got %q", result.Errors[0])
	}
}

func TestImportItems_DuplicateIDsAndEmptyRows(t *testing.T) {
	data := "A,10,20,30,1,Economy,5\n\n,,,\nA,10,20,30,1,Economy,5\n"
	result := ImportCSVFromReader(strings.NewReader(data), ',', ItemTable)

	if len(result.Items) != 2 {
		t.Fatalf("expected 2 items, got %d", len(result.Items))
	}
	if len(result.Warnings) != 1 || !strings.Contains(result.Warnings[0], "Duplicate") {
		t.Errorf("expected a duplicate warning, got %v", result.Warnings)
	}
}

func TestImportItems_GeneratedIDs(t *testing.T) {
	data := "id,length,width,height,weight\n,10,20,30,1\n,10,20,30,1\n"
	result := ImportCSVFromReader(strings.NewReader(data), ',', ItemTable)

	if len(result.Items) != 2 {
		t.Fatalf("expected 2 items, got %d (errors: %v)", len(result.Items), result.Errors)
	}
	if result.Items[0].ID == "" || result.Items[0].ID == result.Items[1].ID {
		t.Errorf("expected distinct generated ids, got %q and %q", result.Items[0].ID, result.Items[1].ID)
	}
}

func TestImport_MissingRequiredColumn(t *testing.T) {
	data := "id,length,width,weight\nA,1,2,3\n"
	result := ImportCSVFromReader(strings.NewReader(data), ',', ItemTable)

	if len(result.Errors) != 1 || !strings.Contains(result.Errors[0], "Height") {
		t.Errorf("expected missing height error, got %v", result.Errors)
	}
}

func TestImport_Empty(t *testing.T) {
	result := ImportCSVFromReader(strings.NewReader(""), ',', ContainerTable)
	if len(result.Errors) == 0 {
		t.Error("expected error for empty input")
	}

	result = ImportCSVFromReader(strings.NewReader("id,length,width,height,weight\n"), ',', ContainerTable)
	if len(result.Errors) == 0 || !strings.Contains(result.Errors[0], "No containers") {
		t.Errorf("expected no containers error, got %v", result.Errors)
	}
}

// ─── Container rows ────────────────────────────────────────

func TestImportContainers_OriginalFormat(t *testing.T) {
	data := "U1,224,318,162,2500\nU2,224,318,162,2500\nU3,244,318,244,2800\n"
	result := ImportCSVFromReader(strings.NewReader(data), ',', ContainerTable)

	if len(result.Errors) > 0 {
		t.Fatalf("unexpected errors: %v", result.Errors)
	}
	if len(result.Containers) != 3 {
		t.Fatalf("expected 3 containers, got %d", len(result.Containers))
	}
	c := result.Containers[2]
	if c.ID != "U3" || c.Size != (model.Vec3{244, 318, 244}) || c.MaxWeight != 2800 {
		t.Errorf("unexpected container %+v", c)
	}
}

// ─── Files ─────────────────────────────────────────────────

func TestImportCSV_SemicolonFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "uld.csv")
	if err := os.WriteFile(path, []byte("id;length;width;height;weight\nU1;224;318;162;2500\n"), 0644); err != nil {
		t.Fatal(err)
	}

	result := Import(path, ContainerTable)
	if len(result.Containers) != 1 {
		t.Fatalf("expected 1 container, got %d (errors: %v)", len(result.Containers), result.Errors)
	}
	found := false
	for _, w := range result.Warnings {
		if strings.Contains(w, "semicolon") {
			found = true
		}
	}
	if !found {
		t.Errorf("expected semicolon warning, got %v", result.Warnings)
	}
}

func TestImportCSV_FileNotFoundOrEmpty(t *testing.T) {
	if result := ImportCSV("/nonexistent/items.csv", ItemTable); len(result.Errors) == 0 {
		t.Error("expected error for missing file")
	}

	path := filepath.Join(t.TempDir(), "empty.csv")
	if err := os.WriteFile(path, []byte("  \n"), 0644); err != nil {
		t.Fatal(err)
	}
	if result := ImportCSV(path, ItemTable); len(result.Errors) == 0 {
		t.Error("expected error for empty file")
	}
}

func createTestExcel(t *testing.T, rows [][]interface{}) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "items.xlsx")

	f := excelize.NewFile()
	sheet := f.GetSheetName(0)
	for i, row := range rows {
		for j, cell := range row {
			cellRef, err := excelize.CoordinatesToCellName(j+1, i+1)
			if err != nil {
				t.Fatalf("failed to create cell reference: %v", err)
			}
			if err := f.SetCellValue(sheet, cellRef, cell); err != nil {
				t.Fatalf("failed to set cell value: %v", err)
			}
		}
	}
	if err := f.SaveAs(path); err != nil {
		t.Fatalf("failed to save Excel file: %v", err)
	}
	return path
}

func TestImportExcel_Items(t *testing.T) {
	path := createTestExcel(t, [][]interface{}{
		{"ID", "Length", "Width", "Height", "Weight", "Type", "Cost"},
		{"P-1", 99, 53, 55, 61, "Economy", 176},
		{"P-2", 56, 99, 81, 53, "Priority", "-"},
	})

	result := Import(path, ItemTable)
	if len(result.Errors) > 0 {
		t.Errorf("unexpected errors: %v", result.Errors)
	}
	if len(result.Items) != 2 {
		t.Fatalf("expected 2 items, got %d", len(result.Items))
	}
	if result.Items[0].Cost != 176 || !result.Items[1].Priority {
		t.Errorf("unexpected items %+v", result.Items)
	}
}

func TestImportExcel_FileNotFound(t *testing.T) {
	if result := ImportExcel("/nonexistent/items.xlsx", ItemTable); len(result.Errors) == 0 {
		t.Error("expected error for missing file")
	}
}

// ─── BuildPlan ─────────────────────────────────────────────

func TestBuildPlan(t *testing.T) {
	items := ImportCSVFromReader(strings.NewReader(
		"id,length,width,height,weight,type,cost,container,x,y,z,dx,dy,dz\n"+
			"A,10,20,30,1,Economy,5,U1,0,0,0,30,10,20\n"+
			"B,10,10,10,1,Economy,5,U9,0,0,0,,,\n"+
			"C,10,10,10,1,Economy,5,U1,0,0,0,10,10,11\n"+
			"D,10,10,10,1,Economy,5,U1,30,0,0,,,\n"), ',', ItemTable)
	containers := ImportCSVFromReader(strings.NewReader("U1,100,100,100,1000\n"), ',', ContainerTable)

	plan, warnings := BuildPlan(items, containers)
	if len(warnings) != 2 {
		t.Errorf("expected 2 warnings, got %v", warnings)
	}
	a := plan.Items[0]
	if a.Slot == nil || a.Slot.Container != 0 || a.Slot.Orientation != model.OrientHLW {
		t.Errorf("unexpected slot for A: %+v", a.Slot)
	}
	if plan.Items[1].Placed() || plan.Items[2].Placed() {
		t.Error("expected B and C to stay unplaced")
	}
	if d := plan.Items[3]; d.Slot == nil || d.Slot.Orientation != model.OrientLWH {
		t.Errorf("expected D placed as LWH, got %+v", d.Slot)
	}
	if got := plan.Containers[0].Items; len(got) != 2 {
		t.Errorf("expected 2 items listed in U1, got %v", got)
	}
}

func TestBuildPlan_DropsConflicts(t *testing.T) {
	items := ImportCSVFromReader(strings.NewReader(
		"id,length,width,height,weight,type,cost,container,x,y,z\n"+
			"A,10,10,10,1,Economy,5,U1,0,0,0\n"+
			"B,10,10,10,1,Economy,5,U1,5,0,0\n"+
			"C,10,10,10,1,Economy,5,U1,95,0,0\n"+
			"D,10,10,10,1.5,Economy,5,U2,0,0,0\n"+
			"E,10,10,10,1,Economy,5,U2,10,0,0\n"), ',', ItemTable)
	containers := ImportCSVFromReader(strings.NewReader("U1,100,100,100,1000\nU2,20,20,20,2\n"), ',', ContainerTable)

	plan, warnings := BuildPlan(items, containers)
	if len(warnings) != 3 {
		t.Fatalf("expected 3 warnings, got %v", warnings)
	}
	for k, want := range []string{"Item B: overlap", "Item C: out-of-bounds", "Item E: overweight"} {
		if !strings.HasPrefix(warnings[k], want) {
			t.Errorf("warning %d: expected prefix %q, got %q", k, want, warnings[k])
		}
	}
	for i, placed := range []bool{true, false, false, true, false} {
		if plan.Items[i].Placed() != placed {
			t.Errorf("item %s: expected placed=%v", plan.Items[i].ID, placed)
		}
	}
	if v := inspect.Verify(plan); len(v) != 0 {
		t.Errorf("expected a valid plan, got %v", v)
	}
}
