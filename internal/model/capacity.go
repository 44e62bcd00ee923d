package model

import "math"

// CapacityEstimate is a quick lower bound on how many containers of one type
// a set of items needs.
type CapacityEstimate struct {
	TotalVolume       float64  `json:"total_volume"`        // Sum of item volumes
	TotalWeight       float64  `json:"total_weight"`        // Sum of item weights
	ContainerVolume   float64  `json:"container_volume"`    // Inner volume of one container
	ByVolume          int      `json:"by_volume"`           // ceil(total volume / container volume)
	ByWeight          int      `json:"by_weight"`           // ceil(total weight / weight limit)
	ContainersMin     int      `json:"containers_min"`      // max of the two bounds
	ContainersAdvised int      `json:"containers_advised"`  // min bound inflated by the stowage factor
	StowagePercent    float64  `json:"stowage_percent"`     // Allowance for unusable space (e.g. 20 for 20%)
	Oversized         []string `json:"oversized,omitempty"` // Items that fit no orientation of the container
}

// EstimateCapacity computes how many containers of the given size are needed
// at least, ignoring geometry beyond a per-item fit check.
func EstimateCapacity(items []Item, container Container, stowagePercent float64) CapacityEstimate {
	est := CapacityEstimate{
		ContainerVolume: container.Volume(),
		StowagePercent:  stowagePercent,
	}
	for i := range items {
		it := &items[i]
		est.TotalVolume += it.Volume()
		est.TotalWeight += it.Weight
		if !FitsSomeOrientation(it.Dims, container.Size) {
			est.Oversized = append(est.Oversized, it.ID)
		}
	}

	if est.ContainerVolume > 0 {
		est.ByVolume = int(math.Ceil(est.TotalVolume/est.ContainerVolume - Eps))
	}
	if container.MaxWeight > 0 {
		est.ByWeight = int(math.Ceil(est.TotalWeight/container.MaxWeight - Eps))
	}
	est.ContainersMin = est.ByVolume
	if est.ByWeight > est.ContainersMin {
		est.ContainersMin = est.ByWeight
	}

	factor := 1.0 + stowagePercent/100.0
	est.ContainersAdvised = int(math.Ceil(float64(est.ContainersMin)*factor - Eps))
	if est.ContainersAdvised < est.ContainersMin {
		est.ContainersAdvised = est.ContainersMin
	}
	return est
}

// FitsSomeOrientation reports whether sorted dims fit inside size in at least
// one of the six orientations.
func FitsSomeOrientation(dims, size Vec3) bool {
	for _, o := range Orientations {
		d := o.Apply(dims)
		if d[0] <= size[0]+Eps && d[1] <= size[1]+Eps && d[2] <= size[2]+Eps {
			return true
		}
	}
	return false
}
