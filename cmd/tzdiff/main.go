// tzdiff compares two update bundles, rules-data files or TZif files.
package main

import (
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/google/go-cmp/cmp"
	"github.com/spf13/pflag"

	"github.com/ngrash/go-tzupdate/internal/inputfile"
)

func main() {
	if err := run(os.Args[1:], os.Stdout); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func run(args []string, w io.Writer) error {
	fs := pflag.NewFlagSet("tzdiff", pflag.ContinueOnError)
	if err := fs.Parse(args); err != nil {
		return err
	}
	if fs.NArg() != 2 {
		return fmt.Errorf("Usage: tzdiff <file A> <file B>")
	}

	a, err := inputfile.Load(fs.Arg(0))
	if err != nil {
		return err
	}
	b, err := inputfile.Load(fs.Arg(1))
	if err != nil {
		return err
	}

	var diffs []string
	switch {
	case a.Zone != nil && b.Zone != nil:
		if diff := cmp.Diff(*a.Zone, *b.Zone); diff != "" {
			diffs = append(diffs, diff)
		}
	case a.Rules != nil && b.Rules != nil:
		diffs, err = diffRules(a, b)
		if err != nil {
			return err
		}
	default:
		return fmt.Errorf("cannot compare %s with %s", a.Kind, b.Kind)
	}

	if len(diffs) == 0 {
		fmt.Fprintln(w, "files are identical")
		return nil
	}
	fmt.Fprintln(w, "files are different: -A +B")
	for _, d := range diffs {
		fmt.Fprintln(w, d)
	}
	return nil
}

func diffRules(a, b *inputfile.Input) ([]string, error) {
	var diffs []string
	if a.Version != nil || b.Version != nil {
		if av, bv := versionString(a), versionString(b); av != bv {
			diffs = append(diffs, fmt.Sprintf("version record: -%s +%s", av, bv))
		}
	}
	if av, bv := a.Rules.RulesVersion(), b.Rules.RulesVersion(); av != bv {
		diffs = append(diffs, fmt.Sprintf("rules version: -%s +%s", av, bv))
	}

	inB := make(map[string]bool)
	for _, name := range b.Rules.ZoneNames() {
		inB[name] = true
	}
	for _, name := range a.Rules.ZoneNames() {
		if !inB[name] {
			diffs = append(diffs, "zone removed: "+name)
			continue
		}
		delete(inB, name)
		az, err := a.Rules.Zone(name)
		if err != nil {
			return nil, fmt.Errorf("A: %w", err)
		}
		bz, err := b.Rules.Zone(name)
		if err != nil {
			return nil, fmt.Errorf("B: %w", err)
		}
		if diff := cmp.Diff(az, bz); diff != "" {
			diffs = append(diffs, fmt.Sprintf("zone changed: %s\n%s", name, diff))
		}
	}
	for _, name := range b.Rules.ZoneNames() {
		if inB[name] {
			diffs = append(diffs, "zone added: "+name)
		}
	}

	at := strings.Split(string(a.Rules.ZoneTab()), "\n")
	bt := strings.Split(string(b.Rules.ZoneTab()), "\n")
	if diff := cmp.Diff(at, bt); diff != "" {
		diffs = append(diffs, "zone table changed:\n"+diff)
	}
	return diffs, nil
}

func versionString(in *inputfile.Input) string {
	if in.Version == nil {
		return "(none)"
	}
	return in.Version.String()
}
