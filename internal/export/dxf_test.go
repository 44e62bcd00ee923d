package export

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/yofu/dxf"
	"github.com/yofu/dxf/entity"

	"github.com/piwi3910/uldpack/internal/model"
)

func TestBoxEdges(t *testing.T) {
	edges := boxEdges(model.Vec3{1, 2, 3}, model.Vec3{10, 20, 30})

	var total float64
	for _, e := range edges {
		d := model.Vec3{e[1][0] - e[0][0], e[1][1] - e[0][1], e[1][2] - e[0][2]}
		nonZero := 0
		for _, v := range d {
			if v != 0 {
				nonZero++
			}
		}
		assert.Equal(t, 1, nonZero, "edge %v is axis-aligned", e)
		total += d.Norm()
	}
	assert.InDelta(t, 4*(10+20+30), total, 1e-9)
}

func TestExportDXF_Wireframe(t *testing.T) {
	path := filepath.Join(t.TempDir(), "plan.dxf")
	require.NoError(t, ExportDXF(path, buildTestPlan()))

	d, err := dxf.Open(path)
	require.NoError(t, err)

	lines, texts := 0, 0
	for _, ent := range d.Entities() {
		switch ent.(type) {
		case *entity.Line:
			lines++
		case *entity.Text:
			texts++
		}
	}
	// two loaded containers and three items, 12 edges each; U3 is empty
	assert.Equal(t, 12*5, lines)
	assert.Equal(t, 2, texts)
}

func TestExportDXF_NothingLoaded(t *testing.T) {
	plan := model.NewPlan([]model.Item{model.NewItem("A", 1, 1, 1, 1, 1, false)},
		[]model.Container{model.NewContainer("U1", 5, 5, 5, 10)})
	assert.Error(t, ExportDXF(filepath.Join(t.TempDir(), "empty.dxf"), plan))
}
