package export

import (
	"fmt"
	"math"

	"github.com/xuri/excelize/v2"

	"github.com/piwi3910/uldpack/internal/model"
)

const (
	sheetItems      = "Items"
	sheetContainers = "Containers"
	sheetSummary    = "Summary"
)

// ExportExcel writes the load plan as a workbook with one sheet for item
// placements, one per-container sheet and a summary sheet.
func ExportExcel(path string, plan *model.Plan, surcharge float64) error {
	f := excelize.NewFile()
	defer f.Close()

	if err := f.SetSheetName("Sheet1", sheetItems); err != nil {
		return fmt.Errorf("failed to rename sheet: %w", err)
	}
	for _, name := range []string{sheetContainers, sheetSummary} {
		if _, err := f.NewSheet(name); err != nil {
			return fmt.Errorf("failed to create sheet %s: %w", name, err)
		}
	}

	bold, err := f.NewStyle(&excelize.Style{
		Font: &excelize.Font{Bold: true},
		Fill: excelize.Fill{Type: "pattern", Color: []string{"#E6E6E6"}, Pattern: 1},
	})
	if err != nil {
		return fmt.Errorf("failed to create header style: %w", err)
	}

	if err := writeItemSheet(f, plan, bold); err != nil {
		return err
	}
	if err := writeContainerSheet(f, plan, bold); err != nil {
		return err
	}
	if err := writeSummarySheet(f, plan, surcharge, bold); err != nil {
		return err
	}

	if err := f.SaveAs(path); err != nil {
		return fmt.Errorf("failed to save workbook: %w", err)
	}
	return nil
}

func writeItemSheet(f *excelize.File, plan *model.Plan, style int) error {
	header := []interface{}{"ID", "Type", "Container", "X", "Y", "Z", "DX", "DY", "DZ", "Orientation", "Weight", "Cost"}
	if err := writeRow(f, sheetItems, 1, header); err != nil {
		return err
	}
	if err := f.SetCellStyle(sheetItems, "A1", "L1", style); err != nil {
		return fmt.Errorf("failed to style header: %w", err)
	}

	for n, i := range outputOrder(plan) {
		it := &plan.Items[i]
		row := []interface{}{it.ID, it.Kind(), "NONE", "", "", "", it.Dims[0], it.Dims[1], it.Dims[2], "", it.Weight, it.Cost}
		if it.Placed() {
			pos, size := it.Slot.Position.Snap(), it.Size()
			row[2] = plan.Containers[it.Slot.Container].ID
			row[3], row[4], row[5] = pos[0], pos[1], pos[2]
			row[6], row[7], row[8] = size[0], size[1], size[2]
			row[9] = it.Slot.Orientation.String()
		}
		if err := writeRow(f, sheetItems, n+2, row); err != nil {
			return err
		}
	}
	return f.SetColWidth(sheetItems, "A", "L", 12)
}

func writeContainerSheet(f *excelize.File, plan *model.Plan, style int) error {
	header := []interface{}{"ID", "Length", "Width", "Height", "Items", "Fill %", "Load", "Max Weight", "Priority", "COM X", "COM Y", "COM Z"}
	if err := writeRow(f, sheetContainers, 1, header); err != nil {
		return err
	}
	if err := f.SetCellStyle(sheetContainers, "A1", "L1", style); err != nil {
		return fmt.Errorf("failed to style header: %w", err)
	}

	for n, r := range ContainerRows(plan) {
		row := []interface{}{r.ID, r.Size[0], r.Size[1], r.Size[2], r.Items, round1(r.Fill * 100), r.Load, r.MaxWeight, r.Priority, "", "", ""}
		if r.HasCOM {
			row[9], row[10], row[11] = round1(r.COM[0]), round1(r.COM[1]), round1(r.COM[2])
		}
		if err := writeRow(f, sheetContainers, n+2, row); err != nil {
			return err
		}
	}
	return f.SetColWidth(sheetContainers, "A", "L", 12)
}

func writeSummarySheet(f *excelize.File, plan *model.Plan, surcharge float64, style int) error {
	sum := plan.Summarize(surcharge)
	fs := ComputeFillStats(ContainerRows(plan))
	rows := [][]interface{}{
		{"Metric", "Value"},
		{"Cost", sum.Cost},
		{"Items placed", fmt.Sprintf("%d / %d", sum.Placed, sum.Total)},
		{"Priority placed", fmt.Sprintf("%d / %d", sum.PriorityPlaced, sum.PriorityTotal)},
		{"Economy placed", fmt.Sprintf("%d / %d", sum.EconomyPlaced, sum.EconomyTotal)},
		{"Priority containers", sum.PriorityContainers},
		{"Utilization %", round1(sum.Utilization * 100)},
		{"Containers used", fs.Used},
		{"Mean fill %", round1(fs.Mean * 100)},
		{"Fill std dev %", round1(fs.StdDev * 100)},
		{"Median fill %", round1(fs.Median * 100)},
	}
	for n, row := range rows {
		if err := writeRow(f, sheetSummary, n+1, row); err != nil {
			return err
		}
	}
	if err := f.SetCellStyle(sheetSummary, "A1", "B1", style); err != nil {
		return fmt.Errorf("failed to style header: %w", err)
	}
	return f.SetColWidth(sheetSummary, "A", "A", 22)
}

func writeRow(f *excelize.File, sheet string, row int, values []interface{}) error {
	cell, err := excelize.CoordinatesToCellName(1, row)
	if err != nil {
		return err
	}
	if err := f.SetSheetRow(sheet, cell, &values); err != nil {
		return fmt.Errorf("failed to write %s row %d: %w", sheet, row, err)
	}
	return nil
}

func round1(v float64) float64 {
	return math.Round(v*10) / 10
}
