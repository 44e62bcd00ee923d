package main

import (
	"errors"
	"flag"
	"fmt"
	"io"
	"text/tabwriter"
	"time"

	"github.com/piwi3910/uldpack/internal/history"
	"github.com/piwi3910/uldpack/internal/project"
)

func runHistory(args []string, out io.Writer) error {
	fs := flag.NewFlagSet("history", flag.ContinueOnError)
	var st project.State
	registerState(fs, &st)
	show := fs.String("show", "", "print the stages of the run with this id")
	del := fs.String("delete", "", "delete the run with this id")
	if err := fs.Parse(args); err != nil {
		return err
	}

	cfg, err := st.LoadAppConfig()
	if err != nil {
		return fmt.Errorf("failed to load app config: %w", err)
	}
	archive, err := history.OpenArchive(st.ArchiveDir(cfg))
	if err != nil {
		return err
	}
	defer archive.Close()

	switch {
	case *del != "":
		if err := archive.Delete(*del); err != nil {
			return err
		}
		fmt.Fprintf(out, "deleted run %s\n", *del)
		return nil
	case *show != "":
		run, err := archive.Load(*show)
		if errors.Is(err, history.ErrRunNotFound) {
			return fmt.Errorf("no run %s in the archive", *show)
		}
		if err != nil {
			return err
		}
		return showRun(out, run)
	}

	runs, err := archive.List()
	if err != nil {
		return err
	}
	if len(runs) == 0 {
		fmt.Fprintln(out, "no archived runs")
		return nil
	}
	tw := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "ID\tNAME\tSTARTED\tSTAGES\tCOST")
	for _, r := range runs {
		cost := "-"
		if n := len(r.Stages); n > 0 {
			cost = fmt.Sprintf("%.0f", r.Stages[n-1].Cost)
		}
		fmt.Fprintf(tw, "%s\t%s\t%s\t%d\t%s\n", r.ID, r.Name, r.Started.Format(time.DateTime), len(r.Stages), cost)
	}
	return tw.Flush()
}

func showRun(out io.Writer, run *history.Run) error {
	fmt.Fprintf(out, "run %s (%s), started %s\n", run.ID, run.Name, run.Started.Format(time.DateTime))
	fmt.Fprintf(out, "engine %s, time limit %s, surcharge %.0f\n\n",
		run.Settings.Engine, run.Settings.TimeLimit, run.Settings.PrioritySurcharge)

	tw := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "STAGE\tCOST\tPLACED\tPRIO ULDS\tELAPSED\t")
	for _, st := range run.Stages {
		note := ""
		if st.RolledBack {
			note = "rolled back"
		}
		fmt.Fprintf(tw, "%s\t%.0f\t%d/%d\t%d\t%s\t%s\n", st.Stage, st.Cost,
			st.Summary.Placed, st.Summary.Total, st.Summary.PriorityContainers,
			st.Elapsed.Round(time.Millisecond), note)
	}
	return tw.Flush()
}
