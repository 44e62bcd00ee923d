package model

import (
	"fmt"
	"sort"

	"github.com/google/uuid"
)

// DefaultCost is the penalty for an item whose input cost is missing or "-".
const DefaultCost = 1e7

// Slot is the placement of an item: container index, minimum corner and
// orientation are always set together.
type Slot struct {
	Container   int         `json:"container"`
	Position    Vec3        `json:"position"`
	Orientation Orientation `json:"orientation"`
}

// Item represents a carton to be loaded.
type Item struct {
	ID       string  `json:"id"`
	Dims     Vec3    `json:"dims"` // sorted ascending
	Weight   float64 `json:"weight"`
	Cost     float64 `json:"cost"` // penalty if left unplaced
	Priority bool    `json:"priority"`
	Slot     *Slot   `json:"slot,omitempty"` // nil while unplaced
}

// NewItem creates an item with its dimensions sorted ascending. An empty id is
// replaced by a generated one.
func NewItem(id string, l, w, h, weight, cost float64, priority bool) Item {
	if id == "" {
		id = uuid.New().String()[:8]
	}
	dims := []float64{l, w, h}
	sort.Float64s(dims)
	return Item{
		ID:       id,
		Dims:     Vec3{dims[0], dims[1], dims[2]},
		Weight:   weight,
		Cost:     cost,
		Priority: priority,
	}
}

// Placed reports whether the item sits in a container.
func (it *Item) Placed() bool {
	return it.Slot != nil
}

// Size returns the effective x, y, z extents. Unplaced items report their
// sorted dimensions.
func (it *Item) Size() Vec3 {
	if it.Slot == nil {
		return it.Dims
	}
	return it.Slot.Orientation.Apply(it.Dims)
}

// Box returns the occupied cuboid of a placed item.
func (it *Item) Box() Box {
	if it.Slot == nil {
		return Box{Size: it.Dims}
	}
	return Box{Min: it.Slot.Position, Size: it.Size()}
}

// Volume returns the item volume.
func (it *Item) Volume() float64 {
	return it.Dims.Volume()
}

// Kind returns the label used in input and output tables.
func (it *Item) Kind() string {
	if it.Priority {
		return "Priority"
	}
	return "Economy"
}

// Container represents a unit load device.
type Container struct {
	ID        string  `json:"id"`
	Size      Vec3    `json:"size"` // length, width, height; never reordered
	MaxWeight float64 `json:"max_weight"`
	Items     []int   `json:"items"` // indices into Plan.Items
}

// NewContainer creates an empty container.
func NewContainer(id string, l, w, h, maxWeight float64) Container {
	if id == "" {
		id = uuid.New().String()[:8]
	}
	return Container{ID: id, Size: Vec3{l, w, h}, MaxWeight: maxWeight}
}

// Volume returns the inner volume.
func (c *Container) Volume() float64 {
	return c.Size.Volume()
}

// Plan is the shared state every component works on: all items and all
// containers. Item slots are the source of truth; container item lists are
// kept consistent with them by Place and Unplace.
type Plan struct {
	Items      []Item      `json:"items"`
	Containers []Container `json:"containers"`
}

// NewPlan builds a plan. Items that arrive with a slot are registered in
// their container lists.
func NewPlan(items []Item, containers []Container) *Plan {
	p := &Plan{Items: items, Containers: containers}
	p.Reconcile()
	return p
}

// Clone returns a deep copy.
func (p *Plan) Clone() *Plan {
	out := &Plan{}
	if p.Items != nil {
		out.Items = make([]Item, len(p.Items))
		copy(out.Items, p.Items)
	}
	for i := range out.Items {
		if s := out.Items[i].Slot; s != nil {
			cp := *s
			out.Items[i].Slot = &cp
		}
	}
	if p.Containers != nil {
		out.Containers = make([]Container, len(p.Containers))
		copy(out.Containers, p.Containers)
	}
	for c := range out.Containers {
		if src := p.Containers[c].Items; src != nil {
			out.Containers[c].Items = append(make([]int, 0, len(src)), src...)
		}
	}
	return out
}

// Place records item i at slot and appends it to the container list.
// A previously placed item is first removed from its old container.
func (p *Plan) Place(i int, s Slot) {
	if p.Items[i].Slot != nil {
		p.Unplace(i)
	}
	p.Items[i].Slot = &s
	c := &p.Containers[s.Container]
	c.Items = append(c.Items, i)
}

// Unplace clears the slot of item i and drops it from its container list.
func (p *Plan) Unplace(i int) {
	s := p.Items[i].Slot
	if s == nil {
		return
	}
	c := &p.Containers[s.Container]
	for k, idx := range c.Items {
		if idx == i {
			c.Items = append(c.Items[:k], c.Items[k+1:]...)
			break
		}
	}
	p.Items[i].Slot = nil
}

// Clear unplaces every item of container c.
func (p *Plan) Clear(c int) {
	for _, i := range p.Containers[c].Items {
		p.Items[i].Slot = nil
	}
	p.Containers[c].Items = p.Containers[c].Items[:0]
}

// Reconcile rebuilds every container list from the item slots. Slots that
// point outside the container range are dropped.
func (p *Plan) Reconcile() {
	for c := range p.Containers {
		p.Containers[c].Items = p.Containers[c].Items[:0]
	}
	for i := range p.Items {
		s := p.Items[i].Slot
		if s == nil {
			continue
		}
		if s.Container < 0 || s.Container >= len(p.Containers) {
			p.Items[i].Slot = nil
			continue
		}
		p.Containers[s.Container].Items = append(p.Containers[s.Container].Items, i)
	}
}

// Load returns the total weight placed in container c.
func (p *Plan) Load(c int) float64 {
	var w float64
	for _, i := range p.Containers[c].Items {
		w += p.Items[i].Weight
	}
	return w
}

// UsedVolume returns the volume occupied in container c.
func (p *Plan) UsedVolume(c int) float64 {
	var v float64
	for _, i := range p.Containers[c].Items {
		v += p.Items[i].Volume()
	}
	return v
}

// FreeVolume returns the unoccupied volume of container c.
func (p *Plan) FreeVolume(c int) float64 {
	return p.Containers[c].Volume() - p.UsedVolume(c)
}

// IsPriority reports whether container c holds at least one priority item.
func (p *Plan) IsPriority(c int) bool {
	for _, i := range p.Containers[c].Items {
		if p.Items[i].Priority {
			return true
		}
	}
	return false
}

// PlacedCost returns the summed cost of the items placed in container c.
func (p *Plan) PlacedCost(c int) float64 {
	var v float64
	for _, i := range p.Containers[c].Items {
		v += p.Items[i].Cost
	}
	return v
}

// PriorityContainers counts containers holding a priority item.
func (p *Plan) PriorityContainers() int {
	n := 0
	for c := range p.Containers {
		if p.IsPriority(c) {
			n++
		}
	}
	return n
}

// Cost is the objective: the cost of every unplaced item plus surcharge for
// each container holding a priority item.
func (p *Plan) Cost(surcharge float64) float64 {
	var total float64
	for i := range p.Items {
		if p.Items[i].Slot == nil {
			total += p.Items[i].Cost
		}
	}
	return total + surcharge*float64(p.PriorityContainers())
}

// Unplaced returns the indices of all items without a slot.
func (p *Plan) Unplaced() []int {
	var out []int
	for i := range p.Items {
		if p.Items[i].Slot == nil {
			out = append(out, i)
		}
	}
	return out
}

// Summary holds aggregate counts of a plan.
type Summary struct {
	Cost               float64 `json:"cost"`
	Placed             int     `json:"placed"`
	Total              int     `json:"total"`
	PriorityPlaced     int     `json:"priority_placed"`
	PriorityTotal      int     `json:"priority_total"`
	EconomyPlaced      int     `json:"economy_placed"`
	EconomyTotal       int     `json:"economy_total"`
	PriorityContainers int     `json:"priority_containers"`
	Utilization        float64 `json:"utilization"` // placed volume over total container volume
}

// Summarize computes the aggregate counts of a plan.
func (p *Plan) Summarize(surcharge float64) Summary {
	s := Summary{
		Cost:               p.Cost(surcharge),
		Total:              len(p.Items),
		PriorityContainers: p.PriorityContainers(),
	}
	var used, total float64
	for i := range p.Items {
		it := &p.Items[i]
		if it.Priority {
			s.PriorityTotal++
		} else {
			s.EconomyTotal++
		}
		if it.Slot == nil {
			continue
		}
		s.Placed++
		used += it.Volume()
		if it.Priority {
			s.PriorityPlaced++
		} else {
			s.EconomyPlaced++
		}
	}
	for c := range p.Containers {
		total += p.Containers[c].Volume()
	}
	if total > 0 {
		s.Utilization = used / total
	}
	return s
}

func (s Summary) String() string {
	return fmt.Sprintf("cost=%.0f placed=%d/%d priority=%d/%d economy=%d/%d priority_containers=%d",
		s.Cost, s.Placed, s.Total, s.PriorityPlaced, s.PriorityTotal, s.EconomyPlaced, s.EconomyTotal, s.PriorityContainers)
}
