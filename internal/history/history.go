// Package history keeps plan snapshots: an in-memory undo stack used by the
// refinement driver to roll back a stage, and a persistent archive of runs.
package history

import "github.com/piwi3910/uldpack/internal/model"

const defaultMaxDepth = 50

// Snapshot captures a plan at a point in time.
type Snapshot struct {
	Plan  *model.Plan
	Cost  float64
	Label string // stage name, e.g. "growth"
}

// MakeSnapshot creates a snapshot holding a deep copy of plan.
func MakeSnapshot(plan *model.Plan, surcharge float64, label string) Snapshot {
	return Snapshot{
		Plan:  plan.Clone(),
		Cost:  plan.Cost(surcharge),
		Label: label,
	}
}

// History is a bounded undo stack of plan snapshots.
type History struct {
	undoStack []Snapshot
	maxDepth  int
}

// NewHistory creates a History with the default max depth of 50.
func NewHistory() *History {
	return &History{
		maxDepth: defaultMaxDepth,
	}
}

// Push saves a snapshot onto the undo stack, dropping the oldest entry
// beyond the max depth. Call it before the stage runs.
func (h *History) Push(s Snapshot) {
	h.undoStack = append(h.undoStack, s)
	if len(h.undoStack) > h.maxDepth {
		h.undoStack = h.undoStack[len(h.undoStack)-h.maxDepth:]
	}
}

// Undo pops the most recent snapshot. It returns false if there is nothing
// to undo.
func (h *History) Undo() (Snapshot, bool) {
	if len(h.undoStack) == 0 {
		return Snapshot{}, false
	}
	last := h.undoStack[len(h.undoStack)-1]
	h.undoStack = h.undoStack[:len(h.undoStack)-1]
	return last, true
}

// Clear removes all history.
func (h *History) Clear() {
	h.undoStack = nil
}
