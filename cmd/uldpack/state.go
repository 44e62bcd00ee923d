package main

import (
	"flag"
	"fmt"
	"io"
	"text/tabwriter"

	"github.com/piwi3910/uldpack/internal/model"
	"github.com/piwi3910/uldpack/internal/project"
)

func runProfiles(args []string, out io.Writer) error {
	fs := flag.NewFlagSet("profiles", flag.ContinueOnError)
	var st project.State
	registerState(fs, &st)
	exportName := fs.String("export", "", "write the named profile to the -to file")
	to := fs.String("to", "", "destination of -export")
	importPath := fs.String("import", "", "add a profile from a JSON file")
	if err := fs.Parse(args); err != nil {
		return err
	}

	path := st.ProfilesPath()
	all, err := project.AllProfiles(path)
	if err != nil {
		return fmt.Errorf("failed to load profiles: %w", err)
	}

	switch {
	case *exportName != "":
		p := model.FindProfile(all, *exportName)
		if p == nil {
			return fmt.Errorf("unknown profile %q", *exportName)
		}
		if *to == "" {
			return fmt.Errorf("-export needs -to")
		}
		if err := project.ExportProfile(*to, *p); err != nil {
			return fmt.Errorf("failed to export profile: %w", err)
		}
		fmt.Fprintf(out, "exported %s to %s\n", p.Name, *to)
		return nil
	case *importPath != "":
		p, err := project.ImportProfile(*importPath)
		if err != nil {
			return fmt.Errorf("failed to import profile: %w", err)
		}
		if model.FindProfile(all, p.Name) != nil {
			return fmt.Errorf("profile %q already exists", p.Name)
		}
		if err := project.ValidateSettings(p.Settings); err != nil {
			return err
		}
		custom, err := project.LoadCustomProfiles(path)
		if err != nil {
			return err
		}
		if err := project.SaveCustomProfiles(path, append(custom, p)); err != nil {
			return err
		}
		fmt.Fprintf(out, "imported profile %s\n", p.Name)
		return nil
	}

	tw := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "NAME\tBUILT-IN\tENGINE\tTIME LIMIT\tDESCRIPTION")
	for _, p := range all {
		fmt.Fprintf(tw, "%s\t%t\t%s\t%s\t%s\n", p.Name, p.IsBuiltIn, p.Settings.Engine, p.Settings.TimeLimit, p.Description)
	}
	return tw.Flush()
}

// runBackup writes or restores the whole state directory contents except
// the run archive.
func runBackup(args []string, out io.Writer) error {
	fs := flag.NewFlagSet("backup", flag.ContinueOnError)
	var st project.State
	registerState(fs, &st)
	to := fs.String("out", "", "write a backup file")
	restore := fs.String("restore", "", "restore config, fleet and custom profiles from a backup file")
	if err := fs.Parse(args); err != nil {
		return err
	}

	switch {
	case *restore != "":
		b, err := project.ImportAllData(*restore)
		if err != nil {
			return err
		}
		if err := st.SaveAppConfig(b.Config); err != nil {
			return err
		}
		if err := project.SaveFleet(st.FleetPath(), b.Fleet); err != nil {
			return err
		}
		if err := project.SaveCustomProfiles(st.ProfilesPath(), b.Profiles); err != nil {
			return err
		}
		fmt.Fprintf(out, "restored backup from %s (%d presets, %d profiles)\n", b.CreatedAt, len(b.Fleet.ULDs), len(b.Profiles))
		return nil
	case *to != "":
		cfg, err := st.LoadAppConfig()
		if err != nil {
			return err
		}
		fleet, err := project.LoadFleet(st.FleetPath())
		if err != nil {
			return err
		}
		profiles, err := project.AllProfiles(st.ProfilesPath())
		if err != nil {
			return err
		}
		if err := project.ExportAllData(*to, cfg, fleet, profiles); err != nil {
			return err
		}
		fmt.Fprintf(out, "wrote backup to %s\n", *to)
		return nil
	}
	return fmt.Errorf("one of -out or -restore is required")
}
