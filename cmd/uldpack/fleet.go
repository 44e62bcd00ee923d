package main

import (
	"flag"
	"fmt"
	"io"
	"strings"
	"text/tabwriter"

	"github.com/piwi3910/uldpack/internal/importer"
	"github.com/piwi3910/uldpack/internal/model"
	"github.com/piwi3910/uldpack/internal/project"
)

func runFleet(args []string, out io.Writer) error {
	fs := flag.NewFlagSet("fleet", flag.ContinueOnError)
	var st project.State
	registerState(fs, &st)
	importPath := fs.String("import", "", "merge presets from a fleet JSON file")
	estimate := fs.String("estimate", "", "items file to estimate the container count for")
	code := fs.String("code", "AKE", "ULD type code used by -estimate")
	stowage := fs.Float64("stowage", 20, "stowage allowance in percent used by -estimate")
	if err := fs.Parse(args); err != nil {
		return err
	}

	path := st.FleetPath()
	fleet, err := project.LoadFleet(path)
	if err != nil {
		return fmt.Errorf("failed to load fleet: %w", err)
	}

	if *importPath != "" {
		before := len(fleet.ULDs)
		fleet, err = project.ImportFleet(*importPath, fleet)
		if err != nil {
			return fmt.Errorf("failed to import fleet: %w", err)
		}
		if err := project.SaveFleet(path, fleet); err != nil {
			return err
		}
		fmt.Fprintf(out, "imported %d presets\n", len(fleet.ULDs)-before)
	}

	if *estimate != "" {
		return printEstimate(out, fleet, *estimate, *code, *stowage)
	}

	tw := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "CODE\tNAME\tLENGTH\tWIDTH\tHEIGHT\tMAX WEIGHT")
	for _, u := range fleet.ULDs {
		fmt.Fprintf(tw, "%s\t%s\t%g\t%g\t%g\t%g\n", u.Code, u.Name, u.Length, u.Width, u.Height, u.MaxWeight)
	}
	return tw.Flush()
}

func printEstimate(out io.Writer, fleet model.Fleet, itemsPath, code string, stowage float64) error {
	preset := fleet.FindByCode(strings.ToUpper(code))
	if preset == nil {
		return fmt.Errorf("unknown ULD type %q (known: %s)", code, strings.Join(fleet.Codes(), ", "))
	}
	res := importer.Import(itemsPath, importer.ItemTable)
	report(itemsPath, res)
	if len(res.Items) == 0 {
		return fmt.Errorf("no items imported from %s", itemsPath)
	}

	c := preset.ToContainers(1)[0]
	est := model.EstimateCapacity(res.Items, c, stowage)
	fmt.Fprintf(out, "%d items, %.0f volume, %.0f weight\n", len(res.Items), est.TotalVolume, est.TotalWeight)
	fmt.Fprintf(out, "%s: at least %d (volume %d, weight %d), advised %d with %.0f%% stowage\n",
		preset.Code, est.ContainersMin, est.ByVolume, est.ByWeight, est.ContainersAdvised, est.StowagePercent)
	if len(est.Oversized) > 0 {
		fmt.Fprintf(out, "items that fit no orientation: %s\n", strings.Join(est.Oversized, ", "))
	}
	return nil
}
