// uldpack loads cartons into air cargo unit load devices.
//
// It builds a greedy extreme-point plan, refines it with exact models over
// small subsets and writes the load plan as CSV, Excel, PDF, labels or DXF.
//
// Usage:
//
//	uldpack [glog flags] <command> [flags]
//
// Commands:
//
//	solve     pack items into containers and write the load plan
//	compare   pack the same input under several scenarios
//	history   list, show or delete archived runs
//	fleet     list container presets and estimate capacity
//	profiles  list, export or import settings profiles
//	backup    write or restore config, fleet and profiles
//
// Build:
//
//	go build -o uldpack ./cmd/uldpack
package main

import (
	"flag"
	"fmt"
	"io"
	"os"

	"github.com/golang/glog"
)

type command struct {
	name    string
	summary string
	run     func(args []string, out io.Writer) error
}

var commands = []command{
	{"solve", "pack items into containers and write the load plan", runSolve},
	{"compare", "pack the same input under several scenarios", runCompare},
	{"history", "list, show or delete archived runs", runHistory},
	{"fleet", "list container presets and estimate capacity", runFleet},
	{"profiles", "list, export or import settings profiles", runProfiles},
	{"backup", "write or restore config, fleet and profiles", runBackup},
}

func usage(w io.Writer) {
	fmt.Fprintf(w, "usage: uldpack [glog flags] <command> [flags]\n\ncommands:\n")
	for _, c := range commands {
		fmt.Fprintf(w, "  %-9s %s\n", c.name, c.summary)
	}
	fmt.Fprintf(w, "\nrun 'uldpack <command> -h' for command flags\n")
}

// run dispatches args[0] to its command.
func run(args []string, out io.Writer) error {
	if len(args) == 0 {
		usage(out)
		return fmt.Errorf("no command given")
	}
	for _, c := range commands {
		if c.name == args[0] {
			return c.run(args[1:], out)
		}
	}
	usage(out)
	return fmt.Errorf("unknown command %q", args[0])
}

func main() {
	flag.Usage = func() { usage(flag.CommandLine.Output()) }
	flag.Parse()
	defer glog.Flush()

	if err := run(flag.Args(), os.Stdout); err != nil {
		glog.Errorf("%v", err)
		glog.Flush()
		fmt.Fprintf(os.Stderr, "uldpack: %v\n", err)
		os.Exit(1)
	}
}
