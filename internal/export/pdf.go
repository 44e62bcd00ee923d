// Package export writes load plans to delivery and report formats: the
// delivery CSV, an Excel workbook, a PDF report, QR-coded labels and a DXF
// wireframe.
package export

import (
	"fmt"
	"math"
	"sort"

	"github.com/go-pdf/fpdf"

	"github.com/piwi3910/uldpack/internal/inspect"
	"github.com/piwi3910/uldpack/internal/model"
)

// itemColor represents an RGB color for a placed item.
type itemColor struct {
	R, G, B int
}

var itemColors = []itemColor{
	{R: 76, G: 175, B: 80},  // green
	{R: 33, G: 150, B: 243}, // blue
	{R: 255, G: 152, B: 0},  // orange
	{R: 156, G: 39, B: 176}, // purple
	{R: 0, G: 188, B: 212},  // cyan
	{R: 121, G: 85, B: 72},  // brown
	{R: 255, G: 235, B: 59}, // yellow
	{R: 96, G: 125, B: 139}, // slate
}

// Page layout constants (A4 landscape in mm).
const (
	pageWidth    = 297.0
	pageHeight   = 210.0
	marginLeft   = 15.0
	marginRight  = 15.0
	marginTop    = 15.0
	marginBottom = 15.0
	headerHeight = 12.0
	legendHeight = 30.0
	viewGap      = 15.0
	drawAreaTop  = marginTop + headerHeight + 10.0
)

// view is an orthographic projection of a container onto two axes.
type view struct {
	title string
	h, v  model.Axis // horizontal and vertical page axes
	depth model.Axis // items nearer the viewer are drawn last
	near  bool       // true if larger depth is nearer
}

var containerViews = []view{
	{title: "Top view (x, y)", h: model.AxisX, v: model.AxisY, depth: model.AxisZ, near: true},
	{title: "Side view (x, z)", h: model.AxisX, v: model.AxisZ, depth: model.AxisY, near: false},
}

// ExportPDF generates the load plan report: one page per loaded container
// with a top and a side view, followed by a summary page.
func ExportPDF(path string, plan *model.Plan, settings model.Settings) error {
	if len(plan.Containers) == 0 {
		return fmt.Errorf("no containers to export")
	}

	pdf := fpdf.New("L", "mm", "A4", "")
	pdf.SetAutoPageBreak(false, marginBottom)

	rows := ContainerRows(plan)
	page := 0
	for c := range plan.Containers {
		if len(plan.Containers[c].Items) == 0 {
			continue
		}
		page++
		pdf.AddPage()
		renderContainerPage(pdf, plan, rows[c], settings, page)
	}

	pdf.AddPage()
	renderSummaryPage(pdf, plan, rows, settings)

	return pdf.OutputFileAndClose(path)
}

// renderContainerPage draws one container on the current page.
func renderContainerPage(pdf *fpdf.Fpdf, plan *model.Plan, row ContainerRow, settings model.Settings, pageNum int) {
	ct := &plan.Containers[row.Index]

	pdf.SetFont("Helvetica", "B", 14)
	pdf.SetXY(marginLeft, marginTop)
	title := fmt.Sprintf("Container %d: %s (%.0f x %.0f x %.0f)", pageNum, ct.ID, ct.Size[0], ct.Size[1], ct.Size[2])
	if row.Priority {
		title += " - PRIORITY"
	}
	pdf.CellFormat(pageWidth-marginLeft-marginRight, headerHeight, title, "", 0, "L", false, 0, "")

	pdf.SetFont("Helvetica", "", 10)
	pdf.SetXY(marginLeft, marginTop+headerHeight)
	stats := fmt.Sprintf("Items: %d | Fill: %.1f%% | Load: %.0f / %.0f", row.Items, row.Fill*100, row.Load, row.MaxWeight)
	if row.HasCOM {
		stats += fmt.Sprintf(" | Center of mass: (%.0f, %.0f, %.0f)", row.COM[0], row.COM[1], row.COM[2])
	}
	if ok, rep := inspect.ContainerStability(plan, row.Index, settings.MinSupport, settings.AllowedUnstable); !ok {
		stats += fmt.Sprintf(" | UNSTABLE: %d", rep.Flying+rep.Unstable)
	}
	pdf.CellFormat(pageWidth-marginLeft-marginRight, 5, stats, "", 0, "L", false, 0, "")

	drawWidth := (pageWidth - marginLeft - marginRight - viewGap) / 2
	drawHeight := pageHeight - drawAreaTop - marginBottom - legendHeight

	for k, v := range containerViews {
		left := marginLeft + float64(k)*(drawWidth+viewGap)
		drawView(pdf, plan, row.Index, v, left, drawAreaTop, drawWidth, drawHeight)
	}

	drawItemsLegend(pdf, plan, row.Index, pageHeight-marginBottom-legendHeight+8)
}

// drawView renders one projection of a container inside the given box.
func drawView(pdf *fpdf.Fpdf, plan *model.Plan, c int, v view, left, top, w, h float64) {
	size := plan.Containers[c].Size
	extH, extV := size[v.h], size[v.v]
	scale := math.Min(w/extH, h/extV)
	canvasW, canvasH := extH*scale, extV*scale
	offsetX := left + (w-canvasW)/2
	offsetY := top

	pdf.SetFont("Helvetica", "B", 9)
	pdf.SetXY(offsetX, offsetY-5)
	pdf.CellFormat(canvasW, 4, v.title, "", 0, "L", false, 0, "")

	pdf.SetFillColor(235, 235, 235)
	pdf.SetDrawColor(100, 100, 100)
	pdf.SetLineWidth(0.5)
	pdf.Rect(offsetX, offsetY, canvasW, canvasH, "FD")

	depth := func(i int) float64 {
		b := plan.Items[i].Box()
		if v.near {
			return b.Max()[v.depth]
		}
		return -b.Min[v.depth]
	}
	order := append([]int(nil), plan.Containers[c].Items...)
	sort.SliceStable(order, func(a, b int) bool {
		return depth(order[a]) < depth(order[b])
	})

	for _, i := range order {
		it := &plan.Items[i]
		b := it.Box()
		col := itemColors[i%len(itemColors)]
		iw := b.Size[v.h] * scale
		ih := b.Size[v.v] * scale
		ix := offsetX + b.Min[v.h]*scale
		// page y grows downwards, so the floor is drawn at the bottom
		iy := offsetY + canvasH - (b.Min[v.v]+b.Size[v.v])*scale

		pdf.SetFillColor(col.R, col.G, col.B)
		if it.Priority {
			pdf.SetDrawColor(200, 0, 0)
			pdf.SetLineWidth(0.6)
		} else {
			pdf.SetDrawColor(30, 30, 30)
			pdf.SetLineWidth(0.3)
		}
		pdf.Rect(ix, iy, iw, ih, "FD")

		if iw > 12 && ih > 6 {
			pdf.SetFont("Helvetica", "", labelFontSize(iw, ih))
			pdf.SetTextColor(0, 0, 0)
			label := it.ID
			labelW := pdf.GetStringWidth(label)
			if labelW < iw-2 {
				pdf.SetXY(ix+(iw-labelW)/2, iy+ih/2-2)
				pdf.CellFormat(labelW, 4, label, "", 0, "C", false, 0, "")
			}
		}
	}

	drawDimensionAnnotations(pdf, extH, extV, offsetX, offsetY, canvasW, canvasH)
}

// drawDimensionAnnotations labels the two visible extents outside the view.
func drawDimensionAnnotations(pdf *fpdf.Fpdf, extH, extV, offsetX, offsetY, canvasW, canvasH float64) {
	pdf.SetFont("Helvetica", "", 8)
	pdf.SetTextColor(80, 80, 80)

	hLabel := fmt.Sprintf("%.0f", extH)
	hW := pdf.GetStringWidth(hLabel)
	pdf.SetXY(offsetX+(canvasW-hW)/2, offsetY+canvasH+1)
	pdf.CellFormat(hW, 4, hLabel, "", 0, "C", false, 0, "")

	vLabel := fmt.Sprintf("%.0f", extV)
	pdf.TransformBegin()
	pdf.TransformRotate(90, offsetX-3, offsetY+canvasH/2)
	vW := pdf.GetStringWidth(vLabel)
	pdf.SetXY(offsetX-3-vW/2, offsetY+canvasH/2-2)
	pdf.CellFormat(vW, 4, vLabel, "", 0, "C", false, 0, "")
	pdf.TransformEnd()

	pdf.SetTextColor(0, 0, 0)
}

// drawItemsLegend renders a compact legend of the container contents.
func drawItemsLegend(pdf *fpdf.Fpdf, plan *model.Plan, c int, startY float64) {
	items := plan.Containers[c].Items
	if len(items) == 0 {
		return
	}

	pdf.SetFont("Helvetica", "B", 8)
	pdf.SetTextColor(0, 0, 0)
	pdf.SetXY(marginLeft, startY)
	pdf.CellFormat(30, 4, "Items loaded:", "", 0, "L", false, 0, "")

	pdf.SetFont("Helvetica", "", 7)
	xPos := marginLeft + 32
	maxX := pageWidth - marginRight

	for _, i := range items {
		it := &plan.Items[i]
		col := itemColors[i%len(itemColors)]
		s := it.Size()
		label := fmt.Sprintf("%s (%.0fx%.0fx%.0f %s)", it.ID, s[0], s[1], s[2], it.Slot.Orientation)
		if it.Priority {
			label += " P"
		}
		labelW := pdf.GetStringWidth(label) + 6

		if xPos+labelW > maxX {
			startY += 5
			xPos = marginLeft
		}
		if startY > pageHeight-marginBottom {
			break
		}

		pdf.SetFillColor(col.R, col.G, col.B)
		pdf.Rect(xPos, startY+0.5, 3, 3, "F")

		pdf.SetXY(xPos+4, startY)
		pdf.CellFormat(labelW-4, 4, label, "", 0, "L", false, 0, "")

		xPos += labelW + 2
	}
}

// renderSummaryPage draws the final page with overall statistics.
func renderSummaryPage(pdf *fpdf.Fpdf, plan *model.Plan, rows []ContainerRow, settings model.Settings) {
	pdf.SetFont("Helvetica", "B", 16)
	pdf.SetXY(marginLeft, marginTop)
	pdf.CellFormat(pageWidth-marginLeft-marginRight, 10, "Load Plan Summary", "", 0, "L", false, 0, "")

	pdf.SetDrawColor(0, 0, 0)
	pdf.SetLineWidth(0.5)
	pdf.Line(marginLeft, marginTop+12, pageWidth-marginRight, marginTop+12)

	y := marginTop + 18

	pdf.SetFont("Helvetica", "B", 12)
	pdf.SetXY(marginLeft, y)
	pdf.CellFormat(100, 7, "Overall Statistics", "", 0, "L", false, 0, "")
	y += 9

	sum := plan.Summarize(settings.PrioritySurcharge)
	fs := ComputeFillStats(rows)
	summaryItems := []struct {
		label string
		value string
	}{
		{"Total Cost", fmt.Sprintf("%.0f", sum.Cost)},
		{"Items Placed", fmt.Sprintf("%d / %d", sum.Placed, sum.Total)},
		{"Priority Placed", fmt.Sprintf("%d / %d", sum.PriorityPlaced, sum.PriorityTotal)},
		{"Economy Placed", fmt.Sprintf("%d / %d", sum.EconomyPlaced, sum.EconomyTotal)},
		{"Priority Containers", fmt.Sprintf("%d", sum.PriorityContainers)},
		{"Volume Utilization", fmt.Sprintf("%.1f%%", sum.Utilization*100)},
		{"Fill (mean / std dev)", fmt.Sprintf("%.1f%% / %.1f%%", fs.Mean*100, fs.StdDev*100)},
	}

	pdf.SetFont("Helvetica", "", 10)
	for _, item := range summaryItems {
		pdf.SetXY(marginLeft+5, y)
		pdf.CellFormat(60, 6, item.label+":", "", 0, "L", false, 0, "")
		pdf.SetFont("Helvetica", "B", 10)
		pdf.CellFormat(40, 6, item.value, "", 0, "L", false, 0, "")
		pdf.SetFont("Helvetica", "", 10)
		y += 7
	}

	y += 5

	pdf.SetFont("Helvetica", "B", 12)
	pdf.SetXY(marginLeft, y)
	pdf.CellFormat(100, 7, "Container Breakdown", "", 0, "L", false, 0, "")
	y += 9

	colWidths := []float64{35, 55, 25, 30, 50, 25, 45}
	headers := []string{"Container", "Dimensions", "Items", "Fill", "Load / Limit", "Priority", "Center of Mass"}

	pdf.SetFont("Helvetica", "B", 9)
	pdf.SetFillColor(230, 230, 230)
	xPos := marginLeft
	for i, header := range headers {
		pdf.SetXY(xPos, y)
		pdf.CellFormat(colWidths[i], 6, header, "1", 0, "C", true, 0, "")
		xPos += colWidths[i]
	}
	y += 6

	pdf.SetFont("Helvetica", "", 9)
	for i, r := range rows {
		if y > pageHeight-marginBottom-10 {
			pdf.AddPage()
			y = marginTop
		}
		com := "-"
		if r.HasCOM {
			com = fmt.Sprintf("%.0f, %.0f, %.0f", r.COM[0], r.COM[1], r.COM[2])
		}
		priority := ""
		if r.Priority {
			priority = "yes"
		}
		rowData := []string{
			r.ID,
			fmt.Sprintf("%.0f x %.0f x %.0f", r.Size[0], r.Size[1], r.Size[2]),
			fmt.Sprintf("%d", r.Items),
			fmt.Sprintf("%.1f%%", r.Fill*100),
			fmt.Sprintf("%.0f / %.0f", r.Load, r.MaxWeight),
			priority,
			com,
		}

		if i%2 == 0 {
			pdf.SetFillColor(245, 245, 245)
		} else {
			pdf.SetFillColor(255, 255, 255)
		}

		xPos = marginLeft
		for j, cell := range rowData {
			pdf.SetXY(xPos, y)
			pdf.CellFormat(colWidths[j], 6, cell, "1", 0, "C", true, 0, "")
			xPos += colWidths[j]
		}
		y += 6
	}

	if unplaced := plan.Unplaced(); len(unplaced) > 0 {
		y += 8
		pdf.SetFont("Helvetica", "B", 11)
		pdf.SetTextColor(200, 0, 0)
		pdf.SetXY(marginLeft, y)
		pdf.CellFormat(200, 7, fmt.Sprintf("Unplaced Items (%d)", len(unplaced)), "", 0, "L", false, 0, "")
		y += 8

		pdf.SetFont("Helvetica", "", 9)
		pdf.SetTextColor(0, 0, 0)
		for _, i := range unplaced {
			if y > pageHeight-marginBottom-5 {
				pdf.AddPage()
				y = marginTop
			}
			it := &plan.Items[i]
			pdf.SetXY(marginLeft+5, y)
			text := fmt.Sprintf("- %s: %.0f x %.0f x %.0f, %.0f kg, %s, cost %.0f",
				it.ID, it.Dims[0], it.Dims[1], it.Dims[2], it.Weight, it.Kind(), it.Cost)
			pdf.CellFormat(200, 5, text, "", 0, "L", false, 0, "")
			y += 5
		}
	}

	pdf.SetFont("Helvetica", "I", 8)
	pdf.SetTextColor(120, 120, 120)
	pdf.SetXY(marginLeft, pageHeight-marginBottom)
	footer := fmt.Sprintf("Generated by uldpack - %s packer, %s engine, surcharge %.0f",
		settings.Algorithm, settings.Engine, settings.PrioritySurcharge)
	pdf.CellFormat(pageWidth-marginLeft-marginRight, 4, footer, "", 0, "C", false, 0, "")
}

// labelFontSize returns an appropriate font size based on the rectangle dimensions.
func labelFontSize(w, h float64) float64 {
	minDim := math.Min(w, h)
	switch {
	case minDim > 40:
		return 8
	case minDim > 20:
		return 7
	default:
		return 6
	}
}
