// tzinfo prints the contents of an update bundle, a rules-data file or a
// single TZif file.
package main

import (
	"fmt"
	"io"
	"maps"
	"os"
	"slices"
	"strings"

	"github.com/spf13/pflag"

	"github.com/ngrash/go-tzupdate/internal/inputfile"
	"github.com/ngrash/go-tzupdate/tzif"
)

func main() {
	if err := run(os.Args[1:], os.Stdout); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

type options struct {
	zone    string
	printV1 bool
	check   bool
}

func run(args []string, w io.Writer) error {
	var opts options
	fs := pflag.NewFlagSet("tzinfo", pflag.ContinueOnError)
	fs.StringVar(&opts.zone, "zone", "", "print the TZif data of this zone")
	fs.BoolVar(&opts.printV1, "v1", false, "always print v1 header and data")
	fs.BoolVar(&opts.check, "check", false, "validate every zone")
	fs.Usage = func() {
		fmt.Fprintln(os.Stderr, "Usage: tzinfo [flags] <bundle|rules data|tzif file>")
		fs.PrintDefaults()
	}
	if err := fs.Parse(args); err != nil {
		return err
	}
	if fs.NArg() != 1 {
		fs.Usage()
		return fmt.Errorf("expected one file, got %d", fs.NArg())
	}

	in, err := inputfile.Load(fs.Arg(0))
	if err != nil {
		return err
	}
	fmt.Fprintln(w, "Type:", in.Kind)

	if in.Bundle != nil {
		printBundle(w, in)
	}
	if in.Zone != nil {
		printData(w, *in.Zone, opts.printV1)
		return nil
	}
	if in.Rules == nil {
		return nil
	}

	fmt.Fprintln(w, "Rules version:", in.Rules.RulesVersion())
	names := in.Rules.ZoneNames()
	fmt.Fprintln(w, "Zones:", len(names))
	fmt.Fprintln(w, "Zone table:", len(in.Rules.ZoneTab()), "bytes")
	if opts.check {
		if err := in.Rules.Validate(); err != nil {
			return fmt.Errorf("validate: %w", err)
		}
		fmt.Fprintln(w, "Validation: ok")
	}
	fmt.Fprintln(w)

	if opts.zone == "" {
		for _, name := range names {
			fmt.Fprintln(w, " ", name)
		}
		return nil
	}
	d, err := in.Rules.Zone(opts.zone)
	if err != nil {
		return err
	}
	printData(w, d, opts.printV1)
	return nil
}

func printBundle(w io.Writer, in *inputfile.Input) {
	if in.Version != nil {
		fmt.Fprintln(w, "Version record:", in.Version)
	} else {
		fmt.Fprintln(w, "Version record: missing")
	}
	fmt.Fprintln(w, "Digest:", in.Bundle.Digest())
	fmt.Fprintln(w, "Entries:")
	for _, name := range slices.Sorted(maps.Keys(in.Entries)) {
		fmt.Fprintf(w, "  %s (%d bytes)\n", name, len(in.Entries[name]))
	}
}

func printData(w io.Writer, d tzif.Data, printV1 bool) {
	if d.Version == tzif.V1 || printV1 {
		printHeader(w, d.V1Header)
		printBlock(w, d.V1Header.Version, d.V1Data)
	}
	if d.Version > tzif.V1 {
		printHeader(w, d.V2Header)
		printBlock(w, d.V2Header.Version, d.V2Data)
		printFooter(w, d.V2Footer)
	}
}

func printFooter(w io.Writer, f tzif.Footer) {
	fmt.Fprintln(w, "Footer")
	fmt.Fprintln(w, "  TZString =", string(f.TZString))
	fmt.Fprintln(w)
}

func printHeader(w io.Writer, h tzif.Header) {
	fmt.Fprintln(w, "Header")
	fmt.Fprintln(w, "  version =", h.Version)
	fmt.Fprintln(w, "  isutcnt =", h.Isutcnt)
	fmt.Fprintln(w, "  isstdcnt =", h.Isstdcnt)
	fmt.Fprintln(w, "  leapcnt =", h.Leapcnt)
	fmt.Fprintln(w, "  timecnt =", h.Timecnt)
	fmt.Fprintln(w, "  typecnt =", h.Typecnt)
	fmt.Fprintln(w, "  charcnt =", h.Charcnt)
	fmt.Fprintln(w)
}

func printBlock[T tzif.TimeValue](w io.Writer, v tzif.Version, b tzif.DataBlock[T]) {
	fmt.Fprintln(w, "Data block", v)
	fmt.Fprintf(w, "  TransitionTimes (%d) = %v\n", len(b.TransitionTimes), b.TransitionTimes)
	fmt.Fprintf(w, "  TransitionTypes (%d) = %v\n", len(b.TransitionTypes), b.TransitionTypes)
	fmt.Fprintf(w, "  LocalTimeTypeRecord (%d) = %+v\n", len(b.LocalTimeTypeRecord), b.LocalTimeTypeRecord)
	fmt.Fprintf(w, "  TimeZoneDesignation (%d) = %v\n", len(b.TimeZoneDesignation), strings.Split(string(b.TimeZoneDesignation), "\x00"))
	fmt.Fprintf(w, "  LeapSecondRecords (%d) = %+v\n", len(b.LeapSecondRecords), b.LeapSecondRecords)
	fmt.Fprintf(w, "  StandardWallIndicators (%d) = %v\n", len(b.StandardWallIndicators), b.StandardWallIndicators)
	fmt.Fprintf(w, "  UTLocalIndicators (%d) = %v\n", len(b.UTLocalIndicators), b.UTLocalIndicators)
	fmt.Fprintln(w)
}
