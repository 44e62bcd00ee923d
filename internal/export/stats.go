package export

import (
	"sort"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat"

	"github.com/piwi3910/uldpack/internal/inspect"
	"github.com/piwi3910/uldpack/internal/model"
)

// ContainerRow is the per-container line of every report.
type ContainerRow struct {
	Index      int
	ID         string
	Size       model.Vec3
	Items      int
	Used       float64 // placed volume
	Fill       float64 // Used / inner volume
	Load       float64
	MaxWeight  float64
	WeightFill float64 // Load / MaxWeight
	Priority   bool
	COM        model.Vec3
	HasCOM     bool
}

// ContainerRows collects the report rows of every container in plan order.
func ContainerRows(plan *model.Plan) []ContainerRow {
	rows := make([]ContainerRow, len(plan.Containers))
	for c := range plan.Containers {
		ct := &plan.Containers[c]
		r := ContainerRow{
			Index:     c,
			ID:        ct.ID,
			Size:      ct.Size,
			Items:     len(ct.Items),
			Used:      plan.UsedVolume(c),
			Load:      plan.Load(c),
			MaxWeight: ct.MaxWeight,
			Priority:  plan.IsPriority(c),
		}
		if v := ct.Volume(); v > 0 {
			r.Fill = r.Used / v
		}
		if ct.MaxWeight > 0 {
			r.WeightFill = r.Load / ct.MaxWeight
		}
		r.COM, r.HasCOM = inspect.CenterOfMass(plan, c)
		rows[c] = r
	}
	return rows
}

// FillStats summarizes how evenly the containers are filled. Only
// containers holding at least one item count.
type FillStats struct {
	Used   int
	Empty  int
	Mean   float64
	StdDev float64
	Median float64
	Min    float64
	Max    float64
	// Load-weighted mean of the volume fill
	WeightedMean float64
}

// ComputeFillStats computes FillStats over the rows.
func ComputeFillStats(rows []ContainerRow) FillStats {
	var fills, loads []float64
	var st FillStats
	for _, r := range rows {
		if r.Items == 0 {
			st.Empty++
			continue
		}
		fills = append(fills, r.Fill)
		loads = append(loads, r.Load)
	}
	st.Used = len(fills)
	if st.Used == 0 {
		return st
	}

	st.Mean = stat.Mean(fills, nil)
	if st.Used > 1 {
		st.StdDev = stat.StdDev(fills, nil)
	}
	if floats.Sum(loads) > 0 {
		st.WeightedMean = stat.Mean(fills, loads)
	}
	st.Min = floats.Min(fills)
	st.Max = floats.Max(fills)

	sorted := append([]float64(nil), fills...)
	sort.Float64s(sorted)
	st.Median = stat.Quantile(0.5, stat.Empirical, sorted, nil)
	return st
}
