package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"
	"text/tabwriter"

	"github.com/piwi3910/uldpack/internal/engine"
)

// runCompare packs the same input under the default scenario set and prints
// one row per scenario. Only the greedy stage runs, so the comparison is fast.
func runCompare(args []string, out io.Writer) error {
	fs := flag.NewFlagSet("compare", flag.ContinueOnError)
	var in inputFlags
	in.register(fs)
	if err := fs.Parse(args); err != nil {
		return err
	}

	settings, _, err := in.settings()
	if err != nil {
		return err
	}
	plan, err := in.loadPlan()
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	results := engine.CompareScenarios(ctx, engine.BuildDefaultScenarios(settings), plan)
	best := engine.Best(results)

	tw := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "\tSCENARIO\tCOST\tPLACED\tPRIORITY\tECONOMY\tPRIO ULDS\tUTIL")
	for i, r := range results {
		mark := ""
		if i == best {
			mark = "*"
		}
		s := r.Summary
		fmt.Fprintf(tw, "%s\t%s\t%.0f\t%d/%d\t%d/%d\t%d/%d\t%d\t%.1f%%\n",
			mark, r.Scenario.Name, s.Cost, s.Placed, s.Total,
			s.PriorityPlaced, s.PriorityTotal, s.EconomyPlaced, s.EconomyTotal,
			s.PriorityContainers, s.Utilization*100)
	}
	return tw.Flush()
}
