package inspect

import (
	"github.com/golang/glog"

	"github.com/piwi3910/uldpack/internal/model"
)

// Stability classifies how well an item is supported.
type Stability int

const (
	Stable   Stability = iota // Resting on the floor, a wall, or enough support
	Unstable                  // Some support, below the required fraction
	Flying                    // Off the floor with nothing beneath it
)

func (s Stability) String() string {
	switch s {
	case Stable:
		return "stable"
	case Unstable:
		return "unstable"
	default:
		return "flying"
	}
}

// DefaultMinOverlap is the default fraction of the base that must rest on
// other items.
const DefaultMinOverlap = 0.5

// SupportFraction returns the share of item i's base resting on the tops of
// other items in the same container.
func SupportFraction(plan *model.Plan, i int) float64 {
	it := &plan.Items[i]
	if it.Slot == nil {
		return 0
	}
	box := it.Box()
	base := box.Base()
	if base.Area() <= 0 {
		return 0
	}
	var overlap float64
	for _, k := range plan.Containers[it.Slot.Container].Items {
		if k == i {
			continue
		}
		other := plan.Items[k].Box()
		if !model.Approx(other.Max()[model.AxisZ], box.Min[model.AxisZ]) {
			continue
		}
		overlap += model.RectOverlapArea(base, other.Base())
	}
	return overlap / base.Area()
}

// ItemStability classifies a placed item. Items on the floor are stable;
// items with no contact below are flying; items touching a side wall are
// stable; otherwise the supported share of the base must reach minOverlap.
func ItemStability(plan *model.Plan, i int, minOverlap float64) Stability {
	it := &plan.Items[i]
	if it.Slot == nil {
		return Stable
	}
	box := it.Box()
	if box.Min[model.AxisZ] <= model.Eps {
		return Stable
	}
	frac := SupportFraction(plan, i)
	if frac <= 0 {
		return Flying
	}
	size := plan.Containers[it.Slot.Container].Size
	max := box.Max()
	if box.Min[model.AxisX] <= model.Eps || box.Min[model.AxisY] <= model.Eps ||
		model.Approx(max[model.AxisX], size[model.AxisX]) || model.Approx(max[model.AxisY], size[model.AxisY]) {
		return Stable
	}
	if frac < minOverlap {
		return Unstable
	}
	return Stable
}

// Report summarizes the checks run on one container.
type Report struct {
	Container    string      `json:"container"`
	Items        int         `json:"items"`
	Stable       int         `json:"stable"`
	Unstable     int         `json:"unstable"`
	Flying       int         `json:"flying"`
	Violations   []Violation `json:"violations,omitempty"`
	CenterOfMass model.Vec3  `json:"center_of_mass"`
}

// ContainerStability classifies every item of container c and lists every
// intersecting pair and out-of-bounds item as a hard violation. The
// container passes when the number of items that are not stable is at most
// allowed.
func ContainerStability(plan *model.Plan, c int, minOverlap float64, allowed int) (bool, Report) {
	cont := &plan.Containers[c]
	rep := Report{Container: cont.ID, Items: len(cont.Items)}
	rep.Violations = containerViolations(plan, c)
	for _, v := range rep.Violations {
		glog.Errorf("inspect: %s", v)
	}

	for _, i := range cont.Items {
		switch ItemStability(plan, i, minOverlap) {
		case Stable:
			rep.Stable++
		case Unstable:
			rep.Unstable++
		case Flying:
			rep.Flying++
		}
	}
	rep.CenterOfMass, _ = CenterOfMass(plan, c)
	glog.V(1).Infof("inspect: %s has %d of %d items not stable", cont.ID, rep.Unstable+rep.Flying, rep.Items)
	return rep.Unstable+rep.Flying <= allowed, rep
}

// CenterOfMass returns the weight-averaged center of the items in container
// c. It reports false when the container carries no weight.
func CenterOfMass(plan *model.Plan, c int) (model.Vec3, bool) {
	var sum model.Vec3
	var total float64
	for _, i := range plan.Containers[c].Items {
		it := &plan.Items[i]
		b := it.Box()
		for _, axis := range model.Axes {
			sum[axis] += (b.Min[axis] + b.Size[axis]/2) * it.Weight
		}
		total += it.Weight
	}
	if total <= 0 {
		return model.Vec3{}, false
	}
	return model.Vec3{sum[0] / total, sum[1] / total, sum[2] / total}, true
}
