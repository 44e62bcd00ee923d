package export

import (
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"sort"
	"strconv"
	"strings"

	"github.com/piwi3910/uldpack/internal/model"
)

// unplacedKey is the sort key of unplaced rows, ahead of alphanumeric
// container ids.
const unplacedKey = "-1"

// WriteCSV writes the load plan in the delivery format. The first record is
// `cost,placed,priority containers`; every item follows as
// `id,container,x0,y0,z0,x1,y1,z1`, ordered by container id and then
// position. Unplaced items carry container NONE and -1 corners.
func WriteCSV(w io.Writer, plan *model.Plan, surcharge float64) error {
	sum := plan.Summarize(surcharge)
	out := csv.NewWriter(w)

	head := []string{num(sum.Cost), strconv.Itoa(sum.Placed), strconv.Itoa(sum.PriorityContainers)}
	if err := out.Write(head); err != nil {
		return fmt.Errorf("failed to write summary record: %w", err)
	}

	for _, i := range outputOrder(plan) {
		it := &plan.Items[i]
		rec := []string{it.ID, "NONE", "-1", "-1", "-1", "-1", "-1", "-1"}
		if it.Placed() {
			b := it.Box()
			lo, hi := b.Min.Snap(), b.Max().Snap()
			rec = []string{it.ID, plan.Containers[it.Slot.Container].ID,
				num(lo[0]), num(lo[1]), num(lo[2]), num(hi[0]), num(hi[1]), num(hi[2])}
		}
		if err := out.Write(rec); err != nil {
			return fmt.Errorf("failed to write item %s: %w", it.ID, err)
		}
	}
	out.Flush()
	return out.Error()
}

// ExportCSV writes the delivery CSV to path.
func ExportCSV(path string, plan *model.Plan, surcharge float64) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create %s: %w", path, err)
	}
	if err := WriteCSV(f, plan, surcharge); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}

// outputOrder returns item indices sorted by (container id, x, y, z).
func outputOrder(plan *model.Plan) []int {
	key := func(i int) (string, model.Vec3) {
		it := &plan.Items[i]
		if !it.Placed() {
			return unplacedKey, model.Vec3{-1, -1, -1}
		}
		return plan.Containers[it.Slot.Container].ID, it.Slot.Position
	}
	order := make([]int, len(plan.Items))
	for i := range order {
		order[i] = i
	}
	sort.SliceStable(order, func(a, b int) bool {
		ka, pa := key(order[a])
		kb, pb := key(order[b])
		if ka != kb {
			return ka < kb
		}
		for ax := 0; ax < 3; ax++ {
			if !model.Approx(pa[ax], pb[ax]) {
				return pa[ax] < pb[ax]
			}
		}
		return false
	})
	return order
}

// num formats v on the coordinate grid without trailing zeros.
func num(v float64) string {
	s := strconv.FormatFloat(v, 'f', 6, 64)
	s = strings.TrimSuffix(strings.TrimRight(s, "0"), ".")
	if s == "-0" {
		return "0"
	}
	return s
}
