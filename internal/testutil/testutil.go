// Package testutil provides shared fixtures for tests of the installer,
// the bundle format and the command-line tools.
package testutil

import (
	"fmt"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/ngrash/go-tzupdate/rulesdata"
	"github.com/ngrash/go-tzupdate/tzif"
)

// ZoneTab is a small zone table used as companion data.
const ZoneTab = "# tzdb timezone descriptions\nDE\t+5230+01322\tEurope/Berlin\nUS\t+404251-0740023\tAmerica/New_York\n"

// fixedZones are the zones put into every generated rules-data file.
var fixedZones = []struct {
	name   string
	abbrev string
	utoff  int32
}{
	{"America/New_York", "EST", -5 * 3600},
	{"Etc/UTC", "UTC", 0},
	{"Europe/Berlin", "CET", 3600},
}

// RulesFile returns a valid rules-data file description for rulesVersion.
func RulesFile(t testing.TB, rulesVersion string) rulesdata.File {
	t.Helper()
	f := rulesdata.File{RulesVersion: rulesVersion, ZoneTab: []byte(ZoneTab)}
	for _, z := range fixedZones {
		b, err := tzif.FixedZone(z.abbrev, z.utoff).Bytes()
		if err != nil {
			t.Fatalf("encoding zone %s: %v", z.name, err)
		}
		f.Zones = append(f.Zones, rulesdata.Zone{Name: z.name, Data: b})
	}
	return f
}

// RulesData returns an encoded, valid rules-data file for rulesVersion.
func RulesData(t testing.TB, rulesVersion string) []byte {
	t.Helper()
	b, err := rulesdata.Marshal(RulesFile(t, rulesVersion))
	if err != nil {
		t.Fatalf("encoding rules data %s: %v", rulesVersion, err)
	}
	return b
}

// WriteSystemRules writes a rules-data file for rulesVersion into a fresh
// temporary directory and returns its path. It stands in for the rules
// file baked into the system image.
func WriteSystemRules(t testing.TB, rulesVersion string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "system", "tzdata")
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		t.Fatalf("creating system dir: %v", err)
	}
	if err := os.WriteFile(path, RulesData(t, rulesVersion), 0o644); err != nil {
		t.Fatalf("writing system rules: %v", err)
	}
	return path
}

// RequireReceive reads one value from ch within timeout, or fails the
// test.
func RequireReceive[T any](t testing.TB, ch <-chan T, timeout time.Duration, msgAndArgs ...any) T {
	t.Helper()
	select {
	case v, ok := <-ch:
		if !ok {
			t.Fatalf("channel closed without sending a value: %s", formatMessage(msgAndArgs))
		}
		return v
	case <-time.After(timeout):
		t.Fatalf("timed out after %v: %s", timeout, formatMessage(msgAndArgs))
	}
	panic("unreachable")
}

func formatMessage(msgAndArgs []any) string {
	if len(msgAndArgs) == 0 {
		return ""
	}
	if format, ok := msgAndArgs[0].(string); ok {
		return fmt.Sprintf(format, msgAndArgs[1:]...)
	}
	return fmt.Sprint(msgAndArgs...)
}
