package export

import (
	"fmt"

	"github.com/yofu/dxf"
	"github.com/yofu/dxf/color"
	"github.com/yofu/dxf/drawing"

	"github.com/piwi3910/uldpack/internal/model"
)

// DXF layer names.
const (
	LayerContainers = "CONTAINERS"
	LayerEconomy    = "ECONOMY"
	LayerPriority   = "PRIORITY"
	LayerLabels     = "LABELS"
)

// dxfGap separates neighbouring containers along x, as a fraction of the
// widest container.
const dxfGap = 0.2

// ExportDXF writes a 3D wireframe of every non-empty container. Containers
// are laid out side by side along x; each item is drawn as the 12 edges of
// its box on the layer of its kind.
func ExportDXF(path string, plan *model.Plan) error {
	d := dxf.NewDrawing()

	layers := []struct {
		name string
		cl   color.ColorNumber
	}{
		{LayerContainers, color.White},
		{LayerEconomy, color.Cyan},
		{LayerPriority, color.Red},
		{LayerLabels, color.Yellow},
	}
	for _, l := range layers {
		if _, err := d.AddLayer(l.name, l.cl, dxf.DefaultLineType, false); err != nil {
			return fmt.Errorf("failed to add layer %s: %w", l.name, err)
		}
	}

	var widest float64
	for c := range plan.Containers {
		if plan.Containers[c].Size[0] > widest {
			widest = plan.Containers[c].Size[0]
		}
	}

	drawn := 0
	var offset float64
	for c := range plan.Containers {
		ct := &plan.Containers[c]
		if len(ct.Items) == 0 {
			continue
		}
		origin := model.Vec3{offset, 0, 0}
		if err := drawBox(d, LayerContainers, origin, ct.Size); err != nil {
			return fmt.Errorf("failed to draw container %s: %w", ct.ID, err)
		}
		if err := d.ChangeLayer(LayerLabels); err != nil {
			return err
		}
		if _, err := d.Text(ct.ID, offset, -ct.Size[1]*0.1, 0, ct.Size[1]*0.05); err != nil {
			return fmt.Errorf("failed to label container %s: %w", ct.ID, err)
		}

		for _, i := range ct.Items {
			it := &plan.Items[i]
			layer := LayerEconomy
			if it.Priority {
				layer = LayerPriority
			}
			b := it.Box()
			if err := drawBox(d, layer, origin.Add(b.Min), b.Size); err != nil {
				return fmt.Errorf("failed to draw item %s: %w", it.ID, err)
			}
		}
		offset += ct.Size[0] + widest*dxfGap
		drawn++
	}
	if drawn == 0 {
		return fmt.Errorf("no loaded containers to draw")
	}

	if err := d.SaveAs(path); err != nil {
		return fmt.Errorf("failed to save DXF: %w", err)
	}
	return nil
}

// drawBox draws the 12 edges of the box at lo with the given size.
func drawBox(d *drawing.Drawing, layer string, lo, size model.Vec3) error {
	if err := d.ChangeLayer(layer); err != nil {
		return err
	}
	for _, e := range boxEdges(lo, size) {
		a, b := e[0], e[1]
		if _, err := d.Line(a[0], a[1], a[2], b[0], b[1], b[2]); err != nil {
			return err
		}
	}
	return nil
}

// boxEdges returns the 12 edges of a box as point pairs.
func boxEdges(lo, size model.Vec3) [12][2]model.Vec3 {
	var corner [8]model.Vec3
	for k := 0; k < 8; k++ {
		for ax := 0; ax < 3; ax++ {
			corner[k][ax] = lo[ax]
			if k&(1<<ax) != 0 {
				corner[k][ax] += size[ax]
			}
		}
	}
	var edges [12][2]model.Vec3
	n := 0
	for k := 0; k < 8; k++ {
		for ax := 0; ax < 3; ax++ {
			if k&(1<<ax) == 0 {
				edges[n] = [2]model.Vec3{corner[k], corner[k|1<<ax]}
				n++
			}
		}
	}
	return edges
}
