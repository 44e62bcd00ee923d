package export

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"testing"

	"github.com/piwi3910/uldpack/internal/model"
)

func TestExportLabels_CreatesFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "labels.pdf")

	if err := ExportLabels(path, buildTestPlan()); err != nil {
		t.Fatalf("ExportLabels returned error: %v", err)
	}

	info, err := os.Stat(path)
	if err != nil {
		t.Fatalf("PDF file was not created: %v", err)
	}
	if info.Size() < 500 {
		t.Errorf("PDF file seems too small: %d bytes", info.Size())
	}
}

func TestExportLabels_NothingPlaced(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "no_placements.pdf")

	plan := model.NewPlan([]model.Item{model.NewItem("A", 1, 1, 1, 1, 1, false)},
		[]model.Container{model.NewContainer("U1", 5, 5, 5, 10)})
	if err := ExportLabels(path, plan); err == nil {
		t.Fatal("expected error for plan with no placements, got nil")
	}
}

func TestExportLabels_MultiplePages(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "many.pdf")

	var items []model.Item
	for i := 0; i < labelsPerPage+5; i++ {
		items = append(items, model.NewItem(fmt.Sprintf("a-very-long-item-identifier-%03d", i), 1, 1, 1, 1, 1, false))
	}
	plan := model.NewPlan(items, []model.Container{model.NewContainer("U1", 100, 1, 1, 1000)})
	for i := range items {
		plan.Place(i, model.Slot{Container: 0, Position: model.Vec3{float64(i), 0, 0}})
	}

	if err := ExportLabels(path, plan); err != nil {
		t.Fatalf("ExportLabels returned error: %v", err)
	}
}

func TestCollectLabelInfos(t *testing.T) {
	labels := CollectLabelInfos(buildTestPlan())

	if len(labels) != 3 {
		t.Fatalf("expected 3 labels, got %d", len(labels))
	}

	want := []struct {
		id, container string
		seq           int
	}{
		{"A", "U1", 1},
		{"B", "U1", 2},
		{"C", "U2", 1},
	}
	for k, w := range want {
		if labels[k].ItemID != w.id || labels[k].Container != w.container || labels[k].Seq != w.seq {
			t.Errorf("label %d = %s in %s #%d, want %s in %s #%d",
				k, labels[k].ItemID, labels[k].Container, labels[k].Seq, w.id, w.container, w.seq)
		}
	}

	b := labels[1]
	if b.Kind != "Priority" {
		t.Errorf("expected B to be Priority, got %q", b.Kind)
	}
	if b.Size != (model.Vec3{10, 10, 5}) {
		t.Errorf("wrong loaded size for B: %v", b.Size)
	}
	if b.Orientation != "WHL" {
		t.Errorf("expected orientation WHL, got %q", b.Orientation)
	}
	if b.Position != (model.Vec3{10, 0, 0}) {
		t.Errorf("wrong position for B: %v", b.Position)
	}
}

func TestLabelInfo_JSON(t *testing.T) {
	info := LabelInfo{
		ItemID:      "P-17",
		Kind:        "Economy",
		Size:        model.Vec3{40, 30, 20},
		Weight:      12,
		Container:   "AKE-2",
		Seq:         4,
		Position:    model.Vec3{0, 30, 0},
		Orientation: "HWL",
	}

	data, err := json.Marshal(info)
	if err != nil {
		t.Fatalf("json.Marshal failed: %v", err)
	}

	var decoded map[string]interface{}
	if err := json.Unmarshal(data, &decoded); err != nil {
		t.Fatalf("json.Unmarshal failed: %v", err)
	}

	for _, key := range []string{"id", "type", "size", "weight", "uld", "seq", "pos", "orientation"} {
		if _, ok := decoded[key]; !ok {
			t.Errorf("expected key %q in JSON output", key)
		}
	}
	if decoded["uld"] != "AKE-2" {
		t.Errorf("expected uld AKE-2, got %v", decoded["uld"])
	}
}
