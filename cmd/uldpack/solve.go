package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"
	"path/filepath"
	"time"

	"github.com/golang/glog"

	"github.com/piwi3910/uldpack/internal/export"
	"github.com/piwi3910/uldpack/internal/history"
	"github.com/piwi3910/uldpack/internal/inspect"
	"github.com/piwi3910/uldpack/internal/model"
	"github.com/piwi3910/uldpack/internal/project"
	"github.com/piwi3910/uldpack/internal/refine"
)

const maxRecentRuns = 20

type outputFlags struct {
	csv, xlsx, pdf, labels, dxf string
}

func (o *outputFlags) register(fs *flag.FlagSet) {
	fs.StringVar(&o.csv, "out", "output.csv", "delivery CSV path")
	fs.StringVar(&o.xlsx, "xlsx", "", "also write an Excel workbook")
	fs.StringVar(&o.pdf, "pdf", "", "also write a PDF load plan report")
	fs.StringVar(&o.labels, "labels", "", "also write a PDF sheet of QR item labels")
	fs.StringVar(&o.dxf, "dxf", "", "also write a DXF wireframe")
}

// write produces every requested output.
func (o *outputFlags) write(plan *model.Plan, s model.Settings) error {
	sur := s.PrioritySurcharge
	writers := []struct {
		path  string
		write func(string) error
	}{
		{o.csv, func(p string) error { return export.ExportCSV(p, plan, sur) }},
		{o.xlsx, func(p string) error { return export.ExportExcel(p, plan, sur) }},
		{o.pdf, func(p string) error { return export.ExportPDF(p, plan, s) }},
		{o.labels, func(p string) error { return export.ExportLabels(p, plan) }},
		{o.dxf, func(p string) error { return export.ExportDXF(p, plan) }},
	}
	for _, w := range writers {
		if w.path == "" {
			continue
		}
		if err := w.write(w.path); err != nil {
			return fmt.Errorf("failed to write %s: %w", w.path, err)
		}
		glog.Infof("wrote %s", w.path)
	}
	return nil
}

func runSolve(args []string, out io.Writer) error {
	fs := flag.NewFlagSet("solve", flag.ContinueOnError)
	var in inputFlags
	var outputs outputFlags
	in.register(fs)
	outputs.register(fs)
	engineName := fs.String("engine", "", fmt.Sprintf("MIP engine, one of %v (default from settings)", refine.Engines))
	timeLimit := fs.Duration("time-limit", 0, "overall refinement budget (default from settings)")
	name := fs.String("name", "", "run name stored in the archive (default: items file name)")
	noArchive := fs.Bool("no-archive", false, "do not store the run in the archive")
	if err := fs.Parse(args); err != nil {
		return err
	}

	settings, cfg, err := in.settings()
	if err != nil {
		return err
	}
	if *engineName != "" {
		settings.Engine = *engineName
	}
	if *timeLimit > 0 {
		settings.TimeLimit = *timeLimit
	}
	eng, err := refine.NewEngine(settings.Engine)
	if err != nil {
		return err
	}

	plan, err := in.loadPlan()
	if err != nil {
		return err
	}

	runName := *name
	if runName == "" {
		runName = filepath.Base(in.items)
	}
	r := refine.New(settings, eng)
	r.Run = history.NewRun(runName, settings)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	start := time.Now()
	result, err := r.Refine(ctx, plan)
	if err != nil {
		return fmt.Errorf("refinement failed: %w", err)
	}
	r.Run.Plan = result

	if v := inspect.Verify(result); len(v) > 0 {
		for _, msg := range inspect.FormatViolations(v) {
			glog.Error(msg)
		}
		return fmt.Errorf("final plan breaks %d invariants", len(v))
	}

	if err := outputs.write(result, settings); err != nil {
		return err
	}

	if !*noArchive {
		if err := archiveRun(in.state, cfg, r.Run); err != nil {
			glog.Warningf("run not archived: %v", err)
		}
	}

	printRun(out, r.Run, result, settings, time.Since(start))
	return nil
}

// archiveRun stores run and records it in the recent list of the app config.
func archiveRun(st project.State, cfg model.AppConfig, run *history.Run) error {
	archive, err := history.OpenArchive(st.ArchiveDir(cfg))
	if err != nil {
		return err
	}
	defer archive.Close()
	if err := archive.Save(run); err != nil {
		return err
	}
	cfg.AddRecentRun(run.ID, maxRecentRuns)
	return st.SaveAppConfig(cfg)
}

func printRun(out io.Writer, run *history.Run, plan *model.Plan, s model.Settings, elapsed time.Duration) {
	sum := plan.Summarize(s.PrioritySurcharge)
	fmt.Fprintf(out, "run %s (%s) finished in %s\n", run.ID, run.Name, elapsed.Round(time.Millisecond))
	for _, st := range run.Stages {
		mark := ""
		if st.RolledBack {
			mark = " (rolled back)"
		}
		fmt.Fprintf(out, "  %-14s cost %-12.0f %s%s\n", st.Stage, st.Cost, st.Elapsed.Round(time.Millisecond), mark)
	}
	fmt.Fprintf(out, "cost %.0f, placed %d/%d (priority %d/%d, economy %d/%d), %d priority containers, utilization %.1f%%\n",
		sum.Cost, sum.Placed, sum.Total, sum.PriorityPlaced, sum.PriorityTotal,
		sum.EconomyPlaced, sum.EconomyTotal, sum.PriorityContainers, sum.Utilization*100)
}
