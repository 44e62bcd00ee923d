package main

import (
	"flag"
	"fmt"
	"strconv"
	"strings"

	"github.com/golang/glog"

	"github.com/piwi3910/uldpack/internal/importer"
	"github.com/piwi3910/uldpack/internal/model"
	"github.com/piwi3910/uldpack/internal/project"
)

// inputFlags are shared by the commands that build a plan.
type inputFlags struct {
	items      string
	containers string
	fleet      string
	state      project.State
	config     string
	profile    string
}

func (f *inputFlags) register(fs *flag.FlagSet) {
	fs.StringVar(&f.items, "items", "", "items file (CSV or XLSX): id,length,width,height,weight,type,cost")
	fs.StringVar(&f.containers, "containers", "", "containers file (CSV or XLSX): id,length,width,height,weight")
	fs.StringVar(&f.fleet, "fleet", "", "containers from presets instead of a file, e.g. AKE:4,PMC:2")
	registerState(fs, &f.state)
	fs.StringVar(&f.config, "config", "", "settings file (YAML, JSON or TOML); ULDPACK_* variables override it")
	fs.StringVar(&f.profile, "profile", "", "settings profile name")
}

func registerState(fs *flag.FlagSet, st *project.State) {
	fs.StringVar(&st.Dir, "state-dir", project.DefaultState().Dir, "directory holding config, fleet, profiles and the run archive")
}

// settings resolves the solver settings: the named profile (or the app
// config defaults), then the settings file and environment.
func (f *inputFlags) settings() (model.Settings, model.AppConfig, error) {
	cfg, err := f.state.LoadAppConfig()
	if err != nil {
		return model.Settings{}, cfg, fmt.Errorf("failed to load app config: %w", err)
	}

	name := f.profile
	if name == "" {
		name = cfg.DefaultProfile
	}
	var s model.Settings
	if name == "" || name == "default" {
		s = model.DefaultSettings()
		cfg.ApplyToSettings(&s)
	} else {
		all, err := project.AllProfiles(f.state.ProfilesPath())
		if err != nil {
			return s, cfg, fmt.Errorf("failed to load profiles: %w", err)
		}
		p := model.FindProfile(all, name)
		if p == nil {
			return s, cfg, fmt.Errorf("unknown profile %q", name)
		}
		s = p.Settings
	}

	s, err = project.LoadConfig(f.config, s)
	if err != nil {
		return s, cfg, err
	}
	return s, cfg, nil
}

// loadPlan imports items and containers into a plan. Row problems are
// logged; only a missing table is fatal.
func (f *inputFlags) loadPlan() (*model.Plan, error) {
	if f.items == "" {
		return nil, fmt.Errorf("-items is required")
	}
	items := importer.Import(f.items, importer.ItemTable)
	report(f.items, items)
	if len(items.Items) == 0 {
		return nil, fmt.Errorf("no items imported from %s", f.items)
	}

	var containers importer.ImportResult
	switch {
	case f.containers != "":
		containers = importer.Import(f.containers, importer.ContainerTable)
		report(f.containers, containers)
	case f.fleet != "":
		fleet, err := project.LoadFleet(f.state.FleetPath())
		if err != nil {
			return nil, fmt.Errorf("failed to load fleet: %w", err)
		}
		conts, err := containersFromFleet(fleet, f.fleet)
		if err != nil {
			return nil, err
		}
		containers.Containers = conts
	default:
		return nil, fmt.Errorf("one of -containers or -fleet is required")
	}
	if len(containers.Containers) == 0 {
		return nil, fmt.Errorf("no containers to load")
	}

	plan, warnings := importer.BuildPlan(items, containers)
	for _, w := range warnings {
		glog.Warning(w)
	}
	glog.Infof("kept %d assigned items", len(plan.Items)-len(plan.Unplaced()))
	glog.Infof("loaded %d items and %d containers", len(plan.Items), len(plan.Containers))
	return plan, nil
}

func report(path string, res importer.ImportResult) {
	for _, w := range res.Warnings {
		glog.Warningf("%s: %s", path, w)
	}
	for _, e := range res.Errors {
		glog.Errorf("%s: %s", path, e)
	}
}

// containersFromFleet expands a CODE:QTY list into containers.
func containersFromFleet(fleet model.Fleet, spec string) ([]model.Container, error) {
	var out []model.Container
	seen := map[string]int{}
	for _, part := range strings.Split(spec, ",") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		code, qty := part, 1
		if k := strings.IndexByte(part, ':'); k >= 0 {
			n, err := strconv.Atoi(part[k+1:])
			if err != nil || n < 1 {
				return nil, fmt.Errorf("invalid quantity in %q", part)
			}
			code, qty = part[:k], n
		}
		preset := fleet.FindByCode(strings.ToUpper(code))
		if preset == nil {
			return nil, fmt.Errorf("unknown ULD type %q (known: %s)", code, strings.Join(fleet.Codes(), ", "))
		}
		conts := preset.ToContainers(qty)
		for k := range conts {
			conts[k].ID = fmt.Sprintf("%s-%d", preset.Code, seen[preset.Code]+k+1)
		}
		seen[preset.Code] += qty
		out = append(out, conts...)
	}
	return out, nil
}
