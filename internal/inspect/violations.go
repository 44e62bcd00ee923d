package inspect

import (
	"fmt"

	"github.com/piwi3910/uldpack/internal/model"
)

// ViolationKind identifies which plan invariant is broken.
type ViolationKind string

const (
	KindOverlap      ViolationKind = "overlap"
	KindOutOfBounds  ViolationKind = "out-of-bounds"
	KindOverweight   ViolationKind = "overweight"
	KindInconsistent ViolationKind = "inconsistent"
)

// Violation is a broken hard constraint of a plan.
type Violation struct {
	Kind      ViolationKind `json:"kind"`
	Container string        `json:"container"`
	Items     []string      `json:"items,omitempty"`
	Detail    string        `json:"detail"`
}

func (v Violation) String() string {
	return fmt.Sprintf("%s in %s %v: %s", v.Kind, v.Container, v.Items, v.Detail)
}

// containerViolations lists overlapping pairs, out-of-bounds items and an
// exceeded weight limit in container c.
func containerViolations(plan *model.Plan, c int) []Violation {
	cont := &plan.Containers[c]
	var out []Violation
	for n, i := range cont.Items {
		a := &plan.Items[i]
		if a.Slot == nil {
			continue
		}
		box := a.Box()
		if !box.Within(cont.Size) {
			out = append(out, Violation{
				Kind:      KindOutOfBounds,
				Container: cont.ID,
				Items:     []string{a.ID},
				Detail:    fmt.Sprintf("box %v+%v exceeds %v", box.Min, box.Size, cont.Size),
			})
		}
		for _, k := range cont.Items[n+1:] {
			b := &plan.Items[k]
			if b.Slot == nil {
				continue
			}
			if model.Intersects(box, b.Box()) {
				out = append(out, Violation{
					Kind:      KindOverlap,
					Container: cont.ID,
					Items:     []string{a.ID, b.ID},
					Detail:    fmt.Sprintf("%v+%v and %v+%v", box.Min, box.Size, b.Slot.Position, b.Size()),
				})
			}
		}
	}
	if load := plan.Load(c); load > cont.MaxWeight+model.Eps {
		out = append(out, Violation{
			Kind:      KindOverweight,
			Container: cont.ID,
			Detail:    fmt.Sprintf("load %.2f exceeds limit %.2f", load, cont.MaxWeight),
		})
	}
	return out
}

// Verify checks every hard invariant of the plan: no overlap, bounds, weight
// limits, valid orientations and agreement between item slots and container
// lists.
func Verify(plan *model.Plan) []Violation {
	var out []Violation
	listed := make(map[int]int, len(plan.Items))
	for c := range plan.Containers {
		cont := &plan.Containers[c]
		for _, i := range cont.Items {
			if i < 0 || i >= len(plan.Items) {
				out = append(out, Violation{
					Kind:      KindInconsistent,
					Container: cont.ID,
					Detail:    fmt.Sprintf("list references missing item %d", i),
				})
				continue
			}
			listed[i]++
			it := &plan.Items[i]
			switch {
			case it.Slot == nil:
				out = append(out, Violation{Kind: KindInconsistent, Container: cont.ID, Items: []string{it.ID}, Detail: "listed but unplaced"})
			case it.Slot.Container != c:
				out = append(out, Violation{Kind: KindInconsistent, Container: cont.ID, Items: []string{it.ID}, Detail: "listed in the wrong container"})
			case !it.Slot.Orientation.Valid():
				out = append(out, Violation{Kind: KindInconsistent, Container: cont.ID, Items: []string{it.ID}, Detail: "invalid orientation"})
			}
		}
		out = append(out, containerViolations(plan, c)...)
	}
	for i := range plan.Items {
		it := &plan.Items[i]
		if it.Slot != nil && listed[i] != 1 {
			out = append(out, Violation{
				Kind:   KindInconsistent,
				Items:  []string{it.ID},
				Detail: fmt.Sprintf("placed but listed %d times", listed[i]),
			})
		}
	}
	return out
}

// FormatViolations produces human-readable messages from violations.
func FormatViolations(violations []Violation) []string {
	msgs := make([]string, 0, len(violations))
	for _, v := range violations {
		msgs = append(msgs, v.String())
	}
	return msgs
}
