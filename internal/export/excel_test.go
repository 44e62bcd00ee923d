package export

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"
)

func TestExportExcel_Workbook(t *testing.T) {
	path := filepath.Join(t.TempDir(), "plan.xlsx")
	require.NoError(t, ExportExcel(path, buildTestPlan(), testSurcharge))

	f, err := excelize.OpenFile(path)
	require.NoError(t, err)
	defer f.Close()

	assert.Equal(t, []string{sheetItems, sheetContainers, sheetSummary}, f.GetSheetList())

	items, err := f.GetRows(sheetItems)
	require.NoError(t, err)
	require.Len(t, items, 5)
	assert.Equal(t, "ID", items[0][0])
	assert.Equal(t, []string{"D", "Economy", "NONE"}, items[1][:3])
	assert.Equal(t, "B", items[3][0])
	assert.Equal(t, "Priority", items[3][1])
	assert.Equal(t, "U1", items[3][2])
	assert.Equal(t, "WHL", items[3][9])

	containers, err := f.GetRows(sheetContainers)
	require.NoError(t, err)
	require.Len(t, containers, 4)
	assert.Equal(t, "U1", containers[1][0])
	assert.Equal(t, "75", containers[1][5])

	cost, err := f.GetCellValue(sheetSummary, "B2")
	require.NoError(t, err)
	assert.Equal(t, "107", cost)
	placed, err := f.GetCellValue(sheetSummary, "B3")
	require.NoError(t, err)
	assert.Equal(t, "3 / 4", placed)
}

func TestExportExcel_BadPath(t *testing.T) {
	err := ExportExcel(filepath.Join(t.TempDir(), "missing", "plan.xlsx"), buildTestPlan(), 0)
	assert.Error(t, err)
}
